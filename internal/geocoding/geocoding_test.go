package geocoding

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nominatimServer(t *testing.T, body string, status int, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const twoPlaces = `[
	{"lat":"7.1193","lon":"-73.1227","display_name":"Calle 45, Bucaramanga, Santander, Colombia"},
	{"lat":"4.6","lon":"-74.08","display_name":"Calle 45, Bogotá"}
]`

func TestNominatim_FirstCandidate(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query().Get("q")
		w.Write([]byte(twoPlaces))
	}))
	defer srv.Close()

	g := NewNominatim(srv.URL, "test-agent", srv.Client())
	res, err := g.Search(context.Background(), "  Calle 45   Bucaramanga ")
	require.NoError(t, err)
	assert.Equal(t, "Calle 45 Bucaramanga", got)
	assert.InDelta(t, 7.1193, res.Lat, 1e-9)
	assert.InDelta(t, -73.1227, res.Lon, 1e-9)
	assert.Equal(t, "Calle 45, Bucaramanga, Santander, Colombia", res.DisplayName)
	assert.Equal(t, "osm", g.Provider())
}

func TestNominatim_EmptyQueryMakesNoRequest(t *testing.T) {
	var hits int32
	srv := nominatimServer(t, twoPlaces, http.StatusOK, &hits)

	_, err := NewNominatim(srv.URL, "", srv.Client()).Search(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestNominatim_NoMatch(t *testing.T) {
	srv := nominatimServer(t, `[]`, http.StatusOK, nil)
	_, err := NewNominatim(srv.URL, "", srv.Client()).Search(context.Background(), "nowhere")
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestNominatim_TransportFailures(t *testing.T) {
	cases := map[string]*httptest.Server{
		"status":  nominatimServer(t, `oops`, http.StatusBadGateway, nil),
		"decode":  nominatimServer(t, `{not json`, http.StatusOK, nil),
		"bad lat": nominatimServer(t, `[{"lat":"x","lon":"1"}]`, http.StatusOK, nil),
	}
	for name, srv := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewNominatim(srv.URL, "", srv.Client()).Search(context.Background(), "Calle 45")
			require.Error(t, err)
			assert.False(t, errors.Is(err, ErrNoMatch))
		})
	}

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		_, err := NewNominatim(url, "", &http.Client{Timeout: time.Second}).Search(context.Background(), "Calle 45")
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrNoMatch))
	})
}

func TestMapbox_FirstFeature(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocoding/v5/mapbox.places/Parque Industrial Cúcuta.json", r.URL.Path)
		assert.Equal(t, "tok", r.URL.Query().Get("access_token"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"features":[{"place_name":"Cúcuta, Norte de Santander","center":[-72.4967,7.8891]}]}`))
	}))
	defer srv.Close()

	res, err := NewMapbox(srv.URL, "tok", srv.Client()).Search(context.Background(), "Parque Industrial Cúcuta")
	require.NoError(t, err)
	assert.InDelta(t, 7.8891, res.Lat, 1e-9)
	assert.InDelta(t, -72.4967, res.Lon, 1e-9)
	assert.Equal(t, "Cúcuta, Norte de Santander", res.DisplayName)
}

func TestMapbox_NoFeatures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"features":[]}`))
	}))
	defer srv.Close()

	_, err := NewMapbox(srv.URL, "tok", srv.Client()).Search(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoMatch)
}

type countingGeocoder struct {
	calls int32
	res   Result
	err   error
}

func (c *countingGeocoder) Provider() string { return "fake" }

func (c *countingGeocoder) Search(ctx context.Context, query string) (Result, error) {
	atomic.AddInt32(&c.calls, 1)
	return c.res, c.err
}

func TestLRUCache_HitAvoidsUpstream(t *testing.T) {
	up := &countingGeocoder{res: Result{Lat: 1, Lon: 2, DisplayName: "x"}}
	c, err := NewLRUCache(up, 8)
	require.NoError(t, err)

	for _, q := range []string{"Calle 45", "calle  45", "CALLE 45"} {
		r, err := c.Search(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, up.res, r)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&up.calls))
}

func TestLRUCache_ErrorsNotCached(t *testing.T) {
	up := &countingGeocoder{err: ErrNoMatch}
	c, err := NewLRUCache(up, 8)
	require.NoError(t, err)

	_, err = c.Search(context.Background(), "nowhere")
	assert.ErrorIs(t, err, ErrNoMatch)
	_, err = c.Search(context.Background(), "nowhere")
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.Equal(t, int32(2), atomic.LoadInt32(&up.calls))
}

func TestRedisCache_SharedHit(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	up := &countingGeocoder{res: Result{Lat: 7.1, Lon: -73.1, DisplayName: "Bucaramanga"}}

	a, err := NewRedisCache(ctx, up, "redis://"+mr.Addr(), time.Hour)
	require.NoError(t, err)
	defer a.Close()
	b, err := NewRedisCache(ctx, up, "redis://"+mr.Addr(), time.Hour)
	require.NoError(t, err)
	defer b.Close()

	r1, err := a.Search(ctx, "Bucaramanga")
	require.NoError(t, err)
	r2, err := b.Search(ctx, "bucaramanga")
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&up.calls))

	assert.True(t, mr.Exists("geocode:fake:bucaramanga"))
	mr.FastForward(2 * time.Hour)
	assert.False(t, mr.Exists("geocode:fake:bucaramanga"))
}

func TestRedisCache_CorruptEntryRefetched(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	up := &countingGeocoder{res: Result{Lat: 1, Lon: 1}}
	require.NoError(t, mr.Set("geocode:fake:x", "{broken"))

	c, err := NewRedisCache(ctx, up, "redis://"+mr.Addr(), time.Hour)
	require.NoError(t, err)
	defer c.Close()

	r, err := c.Search(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, up.res, r)
	assert.Equal(t, int32(1), atomic.LoadInt32(&up.calls))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	g, err := Open(ctx, Config{Provider: "osm"})
	require.NoError(t, err)
	assert.IsType(t, &Nominatim{}, g)

	g, err = Open(ctx, Config{Provider: "mapbox", MapboxToken: "tok", CacheSize: 16})
	require.NoError(t, err)
	assert.IsType(t, &LRUCache{}, g)
	assert.Equal(t, "mapbox", g.Provider())

	_, err = Open(ctx, Config{Provider: "mapbox"})
	assert.Error(t, err)

	_, err = Open(ctx, Config{Provider: "google"})
	assert.Error(t, err)
}
