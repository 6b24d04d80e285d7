package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const DefaultMapboxURL = "https://api.mapbox.com"

// Mapbox uses the Mapbox forward geocoding API.
type Mapbox struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewMapbox(baseURL, token string, client *http.Client) *Mapbox {
	if baseURL == "" {
		baseURL = DefaultMapboxURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Mapbox{baseURL: strings.TrimRight(baseURL, "/"), token: token, client: client}
}

func (m *Mapbox) Provider() string { return "mapbox" }

type mapboxResponse struct {
	Features []struct {
		PlaceName string    `json:"place_name"`
		Center    []float64 `json:"center"` // lon, lat
	} `json:"features"`
}

func (m *Mapbox) Search(ctx context.Context, query string) (Result, error) {
	q := normalize(query)
	if q == "" {
		return Result{}, ErrEmptyQuery
	}

	u := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%s.json?%s",
		m.baseURL,
		url.PathEscape(q),
		url.Values{"access_token": {m.token}, "limit": {"1"}}.Encode(),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Result{}, err
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("mapbox request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("mapbox: unexpected status %d", resp.StatusCode)
	}

	var body mapboxResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{}, fmt.Errorf("mapbox decode: %w", err)
	}
	if len(body.Features) == 0 {
		return Result{}, ErrNoMatch
	}
	f := body.Features[0]
	if len(f.Center) != 2 {
		return Result{}, fmt.Errorf("mapbox: malformed center %v", f.Center)
	}
	return Result{Lat: f.Center[1], Lon: f.Center[0], DisplayName: f.PlaceName}, nil
}
