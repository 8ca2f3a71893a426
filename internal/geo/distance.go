package geo

import (
	"math"

	"github.com/tidwall/geodesic"
)

const metersPerMile = 1609.344

// Miles returns the geodesic distance between a and b in statute miles.
func Miles(a, b Coordinate) float64 {
	return Meters(a, b) / metersPerMile
}

// Meters returns the shortest distance between a and b on the WGS-84 ellipsoid.
// Karney's method converges for every pair, antipodal points included.
func Meters(a, b Coordinate) float64 {
	if a == b {
		return 0
	}

	var meters float64
	geodesic.WGS84.Inverse(a.Lat, a.Lon, b.Lat, b.Lon, &meters, nil, nil)
	return meters
}

// NearestMiles returns the smallest distance in miles from c to any of the
// targets. ok is false when targets is empty.
func NearestMiles(c Coordinate, targets []Coordinate) (miles float64, ok bool) {
	best := math.Inf(1)
	for _, t := range targets {
		if d := Miles(c, t); d < best {
			best = d
		}
	}
	if math.IsInf(best, 1) {
		return 0, false
	}
	return best, true
}
