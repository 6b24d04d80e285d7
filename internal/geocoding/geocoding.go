// Package geocoding resolves a free-text address to coordinates using the
// map provider configured for the deployment.
package geocoding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrEmptyQuery is returned for blank search text; no request is made.
	ErrEmptyQuery = errors.New("geocoding: empty query")
	// ErrNoMatch is returned when the provider has no candidate for the query.
	ErrNoMatch = errors.New("geocoding: no match")
)

// Result is the first candidate returned by a provider.
type Result struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	DisplayName string  `json:"display_name"`
}

// Geocoder looks up an address. Implementations make at most one upstream
// request per call and never retry.
type Geocoder interface {
	Search(ctx context.Context, query string) (Result, error)
	Provider() string
}

// Config selects the provider and optional caches.
type Config struct {
	Provider     string // osm, mapbox
	NominatimURL string
	MapboxURL    string
	MapboxToken  string
	UserAgent    string
	Timeout      time.Duration
	CacheSize    int
	RedisURL     string
	RedisTTL     time.Duration
}

// Open builds the configured geocoder, wrapped in a Redis cache when a URL
// is given and in an in-process LRU when CacheSize is positive.
func Open(ctx context.Context, cfg Config) (Geocoder, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	var g Geocoder
	switch strings.ToLower(cfg.Provider) {
	case "", "osm", "nominatim":
		g = NewNominatim(cfg.NominatimURL, cfg.UserAgent, client)
	case "mapbox":
		if cfg.MapboxToken == "" {
			return nil, errors.New("geocoding: mapbox provider requires a token")
		}
		g = NewMapbox(cfg.MapboxURL, cfg.MapboxToken, client)
	default:
		return nil, fmt.Errorf("geocoding: unsupported provider %q", cfg.Provider)
	}

	if cfg.RedisURL != "" {
		rc, err := NewRedisCache(ctx, g, cfg.RedisURL, cfg.RedisTTL)
		if err != nil {
			return nil, err
		}
		g = rc
	}
	if cfg.CacheSize > 0 {
		lc, err := NewLRUCache(g, cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		g = lc
	}
	return g, nil
}

func normalize(query string) string {
	return strings.Join(strings.Fields(query), " ")
}
