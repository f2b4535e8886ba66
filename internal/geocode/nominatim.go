package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"drone-dispatch/internal/logger"
	"drone-dispatch/internal/mission"
)

const (
	DefaultNominatimURL = "https://nominatim.openstreetmap.org"
	DefaultUserAgent    = "Vriksh Flight Systems"

	maxResponseBytes = 1 << 20
)

// Nominatim queries an OpenStreetMap Nominatim search endpoint. The public
// instance requires an identifying User-Agent.
type Nominatim struct {
	BaseURL   string
	UserAgent string
	Client    *http.Client
}

func NewNominatim(baseURL, userAgent string) *Nominatim {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Nominatim{
		BaseURL:   baseURL,
		UserAgent: userAgent,
		Client:    &http.Client{Timeout: 10 * time.Second},
	}
}

type nominatimHit struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (n *Nominatim) Resolve(ctx context.Context, address string) (Place, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Place{}, fmt.Errorf("%w: empty address", ErrGeocode)
	}

	u, err := url.Parse(n.BaseURL)
	if err != nil {
		return Place{}, fmt.Errorf("%w: base url: %w", ErrGeocode, err)
	}
	u = u.JoinPath("search")
	u.RawQuery = url.Values{
		"q":      {address},
		"format": {"jsonv2"},
		"limit":  {"1"},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Place{}, fmt.Errorf("%w: %w", ErrGeocode, err)
	}
	req.Header.Set("User-Agent", n.UserAgent)
	req.Header.Set("Accept", "application/json")

	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return Place{}, fmt.Errorf("%w: %q: %w", ErrGeocode, address, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Place{}, fmt.Errorf("%w: %q: nominatim returned %s", ErrGeocode, address, resp.Status)
	}

	var hits []nominatimHit
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&hits); err != nil {
		return Place{}, fmt.Errorf("%w: %q: decode response: %w", ErrGeocode, address, err)
	}
	if len(hits) == 0 {
		return Place{}, fmt.Errorf("%w: %q: %w", ErrGeocode, address, ErrNotFound)
	}

	place, err := hits[0].place()
	if err != nil {
		return Place{}, fmt.Errorf("%w: %q: %w", ErrGeocode, address, err)
	}
	logger.Log.Debug("geocoded address",
		slog.String("address", address),
		slog.String("match", place.Address),
		slog.Duration("took", time.Since(start)),
	)
	return place, nil
}

func (h nominatimHit) place() (Place, error) {
	lat, err := strconv.ParseFloat(h.Lat, 64)
	if err != nil {
		return Place{}, fmt.Errorf("bad latitude %q", h.Lat)
	}
	lon, err := strconv.ParseFloat(h.Lon, 64)
	if err != nil {
		return Place{}, fmt.Errorf("bad longitude %q", h.Lon)
	}
	c := mission.Coordinate{Latitude: lat, Longitude: lon}
	if !c.Valid() {
		return Place{}, fmt.Errorf("coordinate out of range: %s", c)
	}
	return Place{Address: h.DisplayName, Coordinate: c}, nil
}
