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
)

const (
	nominatimURL     = "https://nominatim.openstreetmap.org"
	defaultUserAgent = "placement-assistant (github.com/spigell/placement-assistant)"
)

// Nominatim searches OpenStreetMap's Nominatim service.
type Nominatim struct {
	HTTPClient *http.Client
	BaseURL    string
	// UserAgent and Email identify the caller as the usage policy requires.
	UserAgent string
	Email     string
}

// NewNominatim creates a Nominatim client with default settings.
func NewNominatim() *Nominatim {
	return &Nominatim{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		BaseURL:    nominatimURL,
		UserAgent:  defaultUserAgent,
	}
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Address     struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		State   string `json:"state"`
	} `json:"address"`
}

func (n *Nominatim) Name() string { return "nominatim" }

// Search returns the best match for query.
func (n *Nominatim) Search(ctx context.Context, query string) (Place, error) {
	params := url.Values{
		"q":              {query},
		"format":         {"jsonv2"},
		"limit":          {"1"},
		"addressdetails": {"1"},
	}
	if n.Email != "" {
		params.Set("email", n.Email)
	}

	reqURL := strings.TrimRight(n.BaseURL, "/") + "/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Place{}, eris.Wrap(err, "geocode: nominatim build request")
	}
	setHeaders(req, n.UserAgent)

	resp, err := n.HTTPClient.Do(req)
	if err != nil {
		return Place{}, eris.Wrap(err, "geocode: nominatim request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return Place{}, eris.Errorf("geocode: nominatim returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Place{}, eris.Wrap(err, "geocode: nominatim read body")
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return Place{}, eris.Wrap(err, "geocode: nominatim parse response")
	}
	if len(places) == 0 {
		return Place{}, ErrNoMatch
	}

	p := places[0]
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return Place{}, eris.Wrapf(err, "geocode: nominatim latitude %q", p.Lat)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return Place{}, eris.Wrapf(err, "geocode: nominatim longitude %q", p.Lon)
	}

	return Place{
		Coordinate: newCoordinate(lat, lon),
		Town:       firstNonEmpty(p.Address.City, p.Address.Town, p.Address.Village),
		State:      p.Address.State,
	}, nil
}

func setHeaders(req *http.Request, userAgent string) {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
