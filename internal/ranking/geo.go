package ranking

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/placement-assistant/internal/community"
	"github.com/spigell/placement-assistant/internal/geo"
	"github.com/spigell/placement-assistant/internal/geocode"
)

// DefaultClientLocation is Rochester, NY.
var DefaultClientLocation = geo.Coordinate{Lat: 43.1566, Lon: -77.6088}

// Resolver turns free text into a coordinate.
type Resolver interface {
	Resolve(ctx context.Context, query string) (geo.Coordinate, bool)
}

// PostalDirectory looks up the place behind a postal code.
type PostalDirectory interface {
	ResolvePostal(ctx context.Context, postal string) (geocode.Place, bool)
}

// GeoRanker attaches coordinates, town and state, and client distance to communities.
type GeoRanker struct {
	Geocoder  Resolver
	Postal    PostalDirectory
	Qualifier string
	Default   geo.Coordinate
	Logger    *zap.Logger
}

// ClientCoordinates resolves the preferred locations. When none resolve the
// default coordinate is returned.
func (g *GeoRanker) ClientCoordinates(ctx context.Context, locations []string) []geo.Coordinate {
	log := g.logger()

	coords := make([]geo.Coordinate, 0, len(locations))
	for _, loc := range locations {
		loc = strings.TrimSpace(loc)
		if loc == "" || g.Geocoder == nil {
			continue
		}
		if c, ok := g.Geocoder.Resolve(ctx, loc); ok {
			coords = append(coords, c)
			continue
		}
		log.Warn("preferred location not resolved", zap.String("location", loc))
	}

	if len(coords) == 0 {
		def := g.Default
		if def == (geo.Coordinate{}) {
			def = DefaultClientLocation
		}
		log.Info("using default client location", zap.Stringer("coordinate", def))
		coords = append(coords, def)
	}

	return coords
}

// Rank returns a copy of the table with location data and the distance to the
// nearest client coordinate filled in. Communities that cannot be located keep
// an empty distance and stay in the table.
func (g *GeoRanker) Rank(ctx context.Context, t *community.Table, clients []geo.Coordinate) *community.Table {
	log := g.logger()

	if !t.Schema().HasPostal() {
		log.Info("geographic ranking disabled", zap.String("reason", "dataset has no postal code column"))
		return t.Map(func(r community.Record) community.Record { return r })
	}

	located := 0
	ranked := t.Map(func(r community.Record) community.Record {
		r = g.locate(ctx, r)
		if r.HasCoord {
			r.Distance, r.HasDistance = geo.NearestMiles(r.Coordinate, clients)
			located++
		}
		return r
	})

	log.Info("geographic ranking",
		zap.Int("communities", ranked.Len()),
		zap.Int("located", located),
		zap.Int("clients", len(clients)),
	)

	return ranked
}

func (g *GeoRanker) locate(ctx context.Context, r community.Record) community.Record {
	if c, ok := geo.ParseCoordinate(r.StoredGeocode); ok {
		r.Coordinate, r.HasCoord = c, true
	}

	if r.PostalCode == "" {
		return r
	}

	if g.Postal != nil {
		if place, ok := g.Postal.ResolvePostal(ctx, r.PostalCode); ok {
			r.Town = place.Town
			r.State = place.State
			if !r.HasCoord {
				r.Coordinate, r.HasCoord = place.Coordinate, true
			}
		}
	}

	if !r.HasCoord && g.Geocoder != nil {
		if c, ok := g.Geocoder.Resolve(ctx, g.postalQuery(r.PostalCode)); ok {
			r.Coordinate, r.HasCoord = c, true
		}
	}

	if !r.HasCoord {
		g.logger().Debug("community not located",
			zap.String("community", r.Label()),
			zap.String("postal_code", r.PostalCode),
		)
	}

	return r
}

func (g *GeoRanker) postalQuery(postal string) string {
	qualifier := strings.TrimSpace(g.Qualifier)
	if qualifier == "" {
		qualifier = "USA"
	}
	return postal + ", " + qualifier
}

func (g *GeoRanker) logger() *zap.Logger {
	if g.Logger == nil {
		return zap.NewNop()
	}
	return g.Logger
}
