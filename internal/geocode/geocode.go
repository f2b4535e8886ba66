// Package geocode turns free-form addresses into coordinates.
package geocode

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"drone-dispatch/internal/logger"
	"drone-dispatch/internal/mission"
)

var (
	ErrGeocode  = errors.New("geocode error")
	ErrNotFound = errors.New("address not found")
)

// Place is a resolved address. Address is the geocoder's canonical name for
// it, which may differ from what the operator typed.
type Place struct {
	Address    string
	Coordinate mission.Coordinate
}

// Geocoder resolves one address. Every failure, including not found, wraps
// ErrGeocode.
type Geocoder interface {
	Resolve(ctx context.Context, address string) (Place, error)
}

func normalize(address string) string {
	return strings.ToLower(strings.Join(strings.Fields(address), " "))
}

// Cached memoizes successful lookups in a fixed-size LRU. Failures are not
// cached so a transient outage does not stick.
type Cached struct {
	next  Geocoder
	cache *lru.Cache[string, Place]
}

func NewCached(next Geocoder, size int) (*Cached, error) {
	if size <= 0 {
		size = 128
	}
	cache, err := lru.New[string, Place](size)
	if err != nil {
		return nil, err
	}
	return &Cached{next: next, cache: cache}, nil
}

func (c *Cached) Resolve(ctx context.Context, address string) (Place, error) {
	key := normalize(address)
	if p, ok := c.cache.Get(key); ok {
		logger.Log.Debug("geocode cache hit", slog.String("address", address))
		return p, nil
	}
	p, err := c.next.Resolve(ctx, address)
	if err != nil {
		return Place{}, err
	}
	c.cache.Add(key, p)
	return p, nil
}

// Static resolves from a fixed table, matching addresses case- and
// whitespace-insensitively.
type Static map[string]mission.Coordinate

func (s Static) Resolve(ctx context.Context, address string) (Place, error) {
	if err := ctx.Err(); err != nil {
		return Place{}, errors.Join(ErrGeocode, err)
	}
	want := normalize(address)
	for name, c := range s {
		if normalize(name) == want {
			return Place{Address: name, Coordinate: c}, nil
		}
	}
	return Place{}, errors.Join(ErrGeocode, ErrNotFound)
}
