// Package api exposes the billing simulator, invoice archive, map and
// dashboard data over HTTP.
package api

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bher20/energyplatform/internal/api/swagger"
	"github.com/bher20/energyplatform/internal/artifact"
	"github.com/bher20/energyplatform/internal/auth"
	"github.com/bher20/energyplatform/internal/billing"
	"github.com/bher20/energyplatform/internal/events"
	"github.com/bher20/energyplatform/internal/geocoding"
	"github.com/bher20/energyplatform/internal/invoice"
	"github.com/bher20/energyplatform/internal/metrics"
	"github.com/bher20/energyplatform/internal/notification"
	"github.com/bher20/energyplatform/internal/storage"
	"github.com/bher20/energyplatform/internal/ui"
)

// Deps are the collaborators the handlers are built from. Artifacts and
// Geocoder may be nil; Events defaults to a no-op publisher.
type Deps struct {
	Calculator *billing.Calculator
	Generator  *invoice.Generator
	Storage    storage.Storage
	Artifacts  artifact.Store
	Geocoder   geocoding.Geocoder
	Events     events.Publisher
	Auth       *auth.Service
	Notifier   *notification.Service
	Logger     *slog.Logger
	Clock      clockwork.Clock
	Location   *time.Location
	DBDriver   string
}

type server struct {
	Deps
}

type statsProvider interface {
	Stats() (sql.DBStats, error)
}

// NewMux constructs the HTTP mux with every route registered.
func NewMux(d Deps) *http.ServeMux {
	if d.Events == nil {
		d.Events = events.NopPublisher{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	s := &server{Deps: d}

	mux := http.NewServeMux()

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("live"))
	})

	s.registerBillingRoutes(mux)
	s.registerMapRoutes(mux)
	s.registerDataRoutes(mux)
	s.registerAuthRoutes(mux)
	s.registerNotificationRoutes(mux)

	mux.Handle("/swagger/", http.StripPrefix("/swagger", swagger.Handler()))
	mux.Handle("/ui/", http.StripPrefix("/ui/", ui.Handler()))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/ui/", http.StatusFound)
	})

	return mux
}

func (s *server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.Storage.Ping(r.Context()); err != nil {
		s.Logger.Warn("readyz: db ping failed", "error", err)
		http.Error(w, "db not ready", http.StatusServiceUnavailable)
		return
	}
	if sp, ok := s.Storage.(statsProvider); ok {
		if st, err := sp.Stats(); err == nil {
			metrics.UpdateDBPoolMetrics(s.DBDriver, st)
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument records request count, latency and error responses under route.
func instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		metrics.RequestsTotal.WithLabelValues(route).Inc()
		defer func() {
			metrics.RequestDurationSeconds.WithLabelValues(route).Observe(time.Since(start).Seconds())
			if rec.status >= 400 {
				metrics.RequestErrorsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
			}
		}()
		next(rec, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response failed", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	return dec.Decode(v)
}
