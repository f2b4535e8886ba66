package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"drone-dispatch/internal/geocode"
	"drone-dispatch/internal/logger"
	"drone-dispatch/internal/mission"
)

type entry struct {
	Category categoryField `json:"category"`
	Address  string        `json:"address"`
	Lat      *float64      `json:"lat"`
	Lng      *float64      `json:"lng"`
}

// categoryField accepts either a name ("medical") or a menu number (1 or "1").
type categoryField string

func (c *categoryField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = categoryField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("category must be a string or number: %w", err)
	}
	*c = categoryField(n.String())
	return nil
}

/*
LoadFile reads destinations from JSON. Accepted shapes:

	{ "destinations": [ {...}, ... ] }
	[ {...}, ... ]

Each entry has a category and either an address, resolved through g, or
explicit lat/lng. Addresses that fail to resolve become unresolved
destinations, as they do interactively.
*/
func LoadFile(ctx context.Context, path string, g geocode.Geocoder) ([]mission.Destination, error) {
	clean := filepath.Clean(path)
	data, err := os.ReadFile(clean)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", clean, err)
	}
	entries, err := parseEntries(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", clean, err)
	}

	out := make([]mission.Destination, 0, len(entries))
	for i, e := range entries {
		d, err := e.destination(ctx, g)
		if err != nil {
			return nil, fmt.Errorf("%s: destination #%d: %w", clean, i+1, err)
		}
		out = append(out, d)
	}
	logger.Log.Info("destinations loaded", slog.String("file", clean), slog.Int("count", len(out)))
	return out, nil
}

func parseEntries(data []byte) ([]entry, error) {
	// Format 1: object with "destinations"
	var obj struct {
		Destinations []entry `json:"destinations"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && len(obj.Destinations) > 0 {
		return obj.Destinations, nil
	}

	// Format 2: bare array
	var arr []entry
	if err := json.Unmarshal(data, &arr); err == nil && len(arr) > 0 {
		return arr, nil
	}
	return nil, fmt.Errorf("unrecognized destinations format")
}

func (e entry) destination(ctx context.Context, g geocode.Geocoder) (mission.Destination, error) {
	d := mission.Destination{
		Category: mission.ParseCategory(string(e.Category)),
		Address:  strings.TrimSpace(e.Address),
	}

	switch {
	case e.Lat != nil || e.Lng != nil:
		if e.Lat == nil || e.Lng == nil {
			return d, fmt.Errorf("lat and lng must be given together")
		}
		c := mission.Coordinate{Latitude: *e.Lat, Longitude: *e.Lng}
		if !c.Valid() {
			return d, fmt.Errorf("coordinate out of range: %s", c)
		}
		d.Coordinate = &c
	case d.Address != "":
		if g == nil {
			return d, fmt.Errorf("address %q needs a geocoder", d.Address)
		}
		place, err := g.Resolve(ctx, d.Address)
		if err != nil {
			if ctx.Err() != nil {
				return d, ctx.Err()
			}
			logger.Log.Warn("address not resolved", slog.String("address", d.Address), slog.String("error", err.Error()))
			return d, nil
		}
		c := place.Coordinate
		d.Coordinate = &c
	default:
		return d, fmt.Errorf("needs an address or lat/lng")
	}
	return d, nil
}
