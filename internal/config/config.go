// Package config reads runtime settings from the environment. A .env file,
// if present, is loaded into the environment before Load runs.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"drone-dispatch/internal/geocode"
	"drone-dispatch/internal/logger"
	"drone-dispatch/internal/observability"
	"drone-dispatch/internal/planner"
)

type Config struct {
	Endpoint       string
	Altitude       float32
	Speed          float32
	AckTimeout     time.Duration
	ConnectTimeout time.Duration
	SimTick        time.Duration

	GeocoderURL       string
	GeocoderUserAgent string
	GeocoderCacheSize int

	Log         logger.Config
	MetricsAddr string
	Tracing     observability.TracingConfig
}

func Default() Config {
	return Config{
		Endpoint:          "udp://:14540",
		Altitude:          planner.DefaultAltitude,
		Speed:             planner.DefaultSpeed,
		AckTimeout:        5 * time.Second,
		ConnectTimeout:    30 * time.Second,
		SimTick:           time.Second,
		GeocoderURL:       geocode.DefaultNominatimURL,
		GeocoderUserAgent: geocode.DefaultUserAgent,
		GeocoderCacheSize: 128,
		Log:               logger.Config{Path: "dispatch.log", Level: "info", Format: "text"},
	}
}

// Load overlays environment variables on Default. Malformed values are
// reported together rather than silently ignored.
func Load() (Config, error) {
	cfg := Default()
	var errs []error

	str("DISPATCH_ENDPOINT", &cfg.Endpoint)
	errs = append(errs,
		float("DISPATCH_ALTITUDE_M", &cfg.Altitude),
		float("DISPATCH_SPEED_MS", &cfg.Speed),
		duration("DISPATCH_ACK_TIMEOUT", &cfg.AckTimeout),
		duration("DISPATCH_CONNECT_TIMEOUT", &cfg.ConnectTimeout),
		duration("DISPATCH_SIM_TICK", &cfg.SimTick),
		integer("GEOCODER_CACHE_SIZE", &cfg.GeocoderCacheSize),
	)
	str("GEOCODER_URL", &cfg.GeocoderURL)
	str("GEOCODER_USER_AGENT", &cfg.GeocoderUserAgent)
	str("LOG_FILE", &cfg.Log.Path)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("METRICS_ADDR", &cfg.MetricsAddr)
	cfg.Tracing = observability.TracingConfigFromEnv()

	if cfg.Altitude <= 0 {
		errs = append(errs, fmt.Errorf("DISPATCH_ALTITUDE_M must be positive, got %v", cfg.Altitude))
	}
	if cfg.Speed <= 0 {
		errs = append(errs, fmt.Errorf("DISPATCH_SPEED_MS must be positive, got %v", cfg.Speed))
	}
	if err := errors.Join(errs...); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func str(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func float(key string, dst *float32) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = float32(f)
	return nil
}

func integer(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func duration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
