package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/spigell/placement-assistant/internal/geo"
)

const (
	zippopotamURL  = "https://api.zippopotam.us"
	defaultCountry = "us"
)

// PostalDirectory looks postal codes up in the Zippopotam directory.
type PostalDirectory struct {
	HTTPClient *http.Client
	BaseURL    string
	Country    string
	UserAgent  string
}

// NewPostalDirectory creates a directory client for US postal codes.
func NewPostalDirectory() *PostalDirectory {
	return &PostalDirectory{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		BaseURL:    zippopotamURL,
		Country:    defaultCountry,
		UserAgent:  defaultUserAgent,
	}
}

type zippopotamResponse struct {
	PostCode string `json:"post code"`
	Places   []struct {
		PlaceName         string `json:"place name"`
		StateAbbreviation string `json:"state abbreviation"`
		Latitude          string `json:"latitude"`
		Longitude         string `json:"longitude"`
	} `json:"places"`
}

func (d *PostalDirectory) Name() string { return "zippopotam" }

// Search looks up a single postal code.
func (d *PostalDirectory) Search(ctx context.Context, postal string) (Place, error) {
	country := strings.ToLower(strings.TrimSpace(d.Country))
	if country == "" {
		country = defaultCountry
	}

	reqURL := strings.TrimRight(d.BaseURL, "/") + "/" + url.PathEscape(country) + "/" + url.PathEscape(postal)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Place{}, eris.Wrap(err, "geocode: postal build request")
	}
	setHeaders(req, d.UserAgent)

	resp, err := d.HTTPClient.Do(req)
	if err != nil {
		return Place{}, eris.Wrap(err, "geocode: postal request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		return Place{}, ErrNoMatch
	}
	if resp.StatusCode != http.StatusOK {
		return Place{}, eris.Errorf("geocode: postal returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Place{}, eris.Wrap(err, "geocode: postal read body")
	}

	var parsed zippopotamResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Place{}, eris.Wrap(err, "geocode: postal parse response")
	}
	if len(parsed.Places) == 0 {
		return Place{}, ErrNoMatch
	}

	p := parsed.Places[0]
	lat, err := strconv.ParseFloat(p.Latitude, 64)
	if err != nil {
		return Place{}, eris.Wrapf(err, "geocode: postal latitude %q", p.Latitude)
	}
	lon, err := strconv.ParseFloat(p.Longitude, 64)
	if err != nil {
		return Place{}, eris.Wrapf(err, "geocode: postal longitude %q", p.Longitude)
	}

	return Place{
		Coordinate: newCoordinate(lat, lon),
		Town:       strings.TrimSpace(p.PlaceName),
		State:      strings.TrimSpace(p.StateAbbreviation),
	}, nil
}

func newCoordinate(lat, lon float64) geo.Coordinate {
	return geo.Coordinate{Lat: lat, Lon: lon}
}
