package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"drone-dispatch/internal/mission"
)

func TestNominatimResolve(t *testing.T) {
	var gotUA, gotQuery, gotFormat string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			http.NotFound(w, r)
			return
		}
		gotUA = r.Header.Get("User-Agent")
		gotQuery = r.URL.Query().Get("q")
		gotFormat = r.URL.Query().Get("format")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat":"12.9716","lon":"77.5946","display_name":"Bengaluru, Karnataka, India"}]`))
	}))
	defer srv.Close()

	g := NewNominatim(srv.URL, "")
	place, err := g.Resolve(context.Background(), "  Bengaluru ")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if place.Coordinate != (mission.Coordinate{Latitude: 12.9716, Longitude: 77.5946}) {
		t.Errorf("coordinate = %v", place.Coordinate)
	}
	if place.Address != "Bengaluru, Karnataka, India" {
		t.Errorf("address = %q", place.Address)
	}
	if gotUA != DefaultUserAgent || gotQuery != "Bengaluru" || gotFormat != "jsonv2" {
		t.Errorf("request ua=%q q=%q format=%q", gotUA, gotQuery, gotFormat)
	}
}

func TestNominatimFailures(t *testing.T) {
	testCases := []struct {
		name     string
		status   int
		body     string
		notFound bool
	}{
		{name: "no match", status: 200, body: `[]`, notFound: true},
		{name: "server error", status: 503, body: `busy`},
		{name: "garbage", status: 200, body: `<html>`},
		{name: "bad latitude", status: 200, body: `[{"lat":"north","lon":"1"}]`},
		{name: "out of range", status: 200, body: `[{"lat":"91","lon":"1"}]`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewNominatim(srv.URL, "test").Resolve(context.Background(), "nowhere")
			if !errors.Is(err, ErrGeocode) {
				t.Fatalf("err = %v, want ErrGeocode", err)
			}
			if got := errors.Is(err, ErrNotFound); got != tc.notFound {
				t.Errorf("errors.Is(err, ErrNotFound) = %v, want %v", got, tc.notFound)
			}
		})
	}
}

func TestNominatimEmptyAddress(t *testing.T) {
	if _, err := NewNominatim("http://127.0.0.1:0", "").Resolve(context.Background(), "   "); !errors.Is(err, ErrGeocode) {
		t.Errorf("err = %v", err)
	}
}

func TestNominatimHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewNominatim(srv.URL, "").Resolve(ctx, "anywhere")
	if !errors.Is(err, ErrGeocode) || !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}

type countingGeocoder struct {
	calls atomic.Int32
	next  Geocoder
}

func (c *countingGeocoder) Resolve(ctx context.Context, address string) (Place, error) {
	c.calls.Add(1)
	return c.next.Resolve(ctx, address)
}

func TestCachedStoresOnlySuccesses(t *testing.T) {
	inner := &countingGeocoder{next: Static{"MG Road": {Latitude: 12.97, Longitude: 77.6}}}
	g, err := NewCached(inner, 4)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	for _, addr := range []string{"MG Road", "mg  road", " MG ROAD"} {
		p, err := g.Resolve(ctx, addr)
		if err != nil || p.Coordinate.Latitude != 12.97 {
			t.Fatalf("Resolve(%q) = %+v, %v", addr, p, err)
		}
	}
	if n := inner.calls.Load(); n != 1 {
		t.Errorf("inner calls = %d, want 1", n)
	}

	for range 2 {
		if _, err := g.Resolve(ctx, "Atlantis"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("err = %v", err)
		}
	}
	if n := inner.calls.Load(); n != 3 {
		t.Errorf("failures were cached: inner calls = %d, want 3", n)
	}
}

func TestStaticResolve(t *testing.T) {
	s := Static{"Station Road": {Latitude: 1, Longitude: 2}}
	p, err := s.Resolve(context.Background(), "station road")
	if err != nil || p.Address != "Station Road" {
		t.Errorf("Resolve = %+v, %v", p, err)
	}
	if _, err := s.Resolve(context.Background(), "elsewhere"); !errors.Is(err, ErrGeocode) {
		t.Errorf("err = %v", err)
	}
}
