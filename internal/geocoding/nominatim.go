package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

// Nominatim queries the OpenStreetMap search endpoint.
type Nominatim struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

func NewNominatim(baseURL, userAgent string, client *http.Client) *Nominatim {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	if userAgent == "" {
		userAgent = "energyplatform"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Nominatim{baseURL: strings.TrimRight(baseURL, "/"), userAgent: userAgent, client: client}
}

func (n *Nominatim) Provider() string { return "osm" }

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (n *Nominatim) Search(ctx context.Context, query string) (Result, error) {
	q := normalize(query)
	if q == "" {
		return Result{}, ErrEmptyQuery
	}

	u := n.baseURL + "/search?" + url.Values{"format": {"json"}, "q": {q}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Result{}, err
	}
	// Nominatim's usage policy requires an identifying agent.
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("nominatim request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("nominatim: unexpected status %d", resp.StatusCode)
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return Result{}, fmt.Errorf("nominatim decode: %w", err)
	}
	if len(places) == 0 {
		return Result{}, ErrNoMatch
	}

	first := places[0]
	lat, err := strconv.ParseFloat(first.Lat, 64)
	if err != nil {
		return Result{}, fmt.Errorf("nominatim lat %q: %w", first.Lat, err)
	}
	lon, err := strconv.ParseFloat(first.Lon, 64)
	if err != nil {
		return Result{}, fmt.Errorf("nominatim lon %q: %w", first.Lon, err)
	}
	return Result{Lat: lat, Lon: lon, DisplayName: first.DisplayName}, nil
}
