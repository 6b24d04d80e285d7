package api

import (
	"net/http"

	"github.com/bher20/energyplatform/internal/billing"
	"github.com/bher20/energyplatform/internal/dashboard"
	"github.com/bher20/energyplatform/internal/news"
	"github.com/bher20/energyplatform/internal/tariff"
)

type rateEntry struct {
	tariff.Entry
	Formatted string `json:"formatted"`
}

type ratesResponse struct {
	Rates            []rateEntry `json:"rates"`
	SurchargePercent string      `json:"public_lighting_surcharge"`
}

type newsResponse struct {
	Articles   []news.Article `json:"articles"`
	Categories []string       `json:"categories"`
}

func (s *server) registerDataRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/rates", instrument("/api/v1/rates", s.handleRates))
	mux.HandleFunc("GET /api/v1/dashboard", instrument("/api/v1/dashboard", s.handleDashboard))
	mux.HandleFunc("GET /api/v1/news", instrument("/api/v1/news", s.handleNews))
}

func (s *server) handleRates(w http.ResponseWriter, r *http.Request) {
	entries := s.Calculator.Rates().Entries()
	out := ratesResponse{Rates: make([]rateEntry, 0, len(entries)), SurchargePercent: billing.SurchargePercent}
	for _, e := range entries {
		out.Rates = append(out.Rates, rateEntry{Entry: e, Formatted: billing.FormatCurrency(e.UnitPrice) + "/kWh"})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dashboard.Build(s.Calculator.Rates()))
}

func (s *server) handleNews(w http.ResponseWriter, r *http.Request) {
	articles := news.List(r.URL.Query().Get("category"))
	if articles == nil {
		articles = []news.Article{}
	}
	writeJSON(w, http.StatusOK, newsResponse{Articles: articles, Categories: news.Categories()})
}
