package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bher20/energyplatform/internal/geocoding"
	"github.com/bher20/energyplatform/internal/metrics"
	"github.com/bher20/energyplatform/internal/sectormap"
)

const (
	msgAddressNotFound = "No se pudo encontrar la dirección"
	msgConnectionError = "Error de conexión"
)

type geocodeResponse struct {
	geocoding.Result
	Zoom int `json:"zoom"`
}

type markersResponse struct {
	View    sectormap.View     `json:"view"`
	Markers []sectormap.Marker `json:"markers"`
}

func (s *server) registerMapRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/geocode", instrument("/api/v1/geocode", s.handleGeocode))
	mux.HandleFunc("GET /api/v1/map/markers", instrument("/api/v1/map/markers", s.handleMarkers))
	mux.HandleFunc("GET /api/v1/map/markers/{id}", instrument("/api/v1/map/markers/id", s.handleMarker))
	mux.HandleFunc("GET /api/v1/map/markers/{id}/directions", instrument("/api/v1/map/markers/directions", s.handleDirections))
}

func (s *server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	if s.Geocoder == nil {
		writeError(w, http.StatusServiceUnavailable, "geocoding disabled")
		return
	}
	provider := s.Geocoder.Provider()

	res, err := s.Geocoder.Search(r.Context(), r.URL.Query().Get("q"))
	switch {
	case err == nil:
		metrics.GeocodeRequestsTotal.WithLabelValues(provider, "ok").Inc()
		writeJSON(w, http.StatusOK, geocodeResponse{Result: res, Zoom: sectormap.DefaultView.SearchZoom})
	case errors.Is(err, geocoding.ErrEmptyQuery):
		metrics.GeocodeRequestsTotal.WithLabelValues(provider, "empty").Inc()
		writeError(w, http.StatusBadRequest, "missing q")
	case errors.Is(err, geocoding.ErrNoMatch):
		metrics.GeocodeRequestsTotal.WithLabelValues(provider, "no_match").Inc()
		writeError(w, http.StatusNotFound, msgAddressNotFound)
	default:
		metrics.GeocodeRequestsTotal.WithLabelValues(provider, "error").Inc()
		s.Logger.Warn("geocode failed", "provider", provider, "error", err)
		writeError(w, http.StatusBadGateway, msgConnectionError)
	}
}

func (s *server) handleMarkers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, markersResponse{View: sectormap.DefaultView, Markers: sectormap.Markers()})
}

func markerFromPath(r *http.Request) (sectormap.Marker, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return sectormap.Marker{}, false
	}
	return sectormap.Lookup(id)
}

func (s *server) handleMarker(w http.ResponseWriter, r *http.Request) {
	m, ok := markerFromPath(r)
	if !ok {
		writeError(w, http.StatusNotFound, "marker not found")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *server) handleDirections(w http.ResponseWriter, r *http.Request) {
	m, ok := markerFromPath(r)
	if !ok {
		writeError(w, http.StatusNotFound, "marker not found")
		return
	}
	http.Redirect(w, r, sectormap.DirectionsURL(m.Position), http.StatusFound)
}
