package api

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/bher20/energyplatform/internal/artifact"
	"github.com/bher20/energyplatform/internal/auth"
	"github.com/bher20/energyplatform/internal/billing"
	"github.com/bher20/energyplatform/internal/events"
	"github.com/bher20/energyplatform/internal/invoice"
	"github.com/bher20/energyplatform/internal/metrics"
	"github.com/bher20/energyplatform/internal/storage"
)

// formattedAmounts mirrors a BillResult as shown on the invoice.
type formattedAmounts struct {
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
	Surcharge string `json:"public_lighting_surcharge"`
	Total     string `json:"total"`
}

type billResponse struct {
	Result    billing.BillResult `json:"result"`
	Formatted formattedAmounts   `json:"formatted"`
}

type invoiceResponse struct {
	ID          string             `json:"id"`
	Filename    string             `json:"filename"`
	DownloadURL string             `json:"download_url"`
	Location    string             `json:"location,omitempty"`
	Result      billing.BillResult `json:"result"`
	Formatted   formattedAmounts   `json:"formatted"`
}

type listResponse struct {
	Invoices []storage.InvoiceRecord `json:"invoices"`
	Limit    int                     `json:"limit"`
	Offset   int                     `json:"offset"`
}

func format(res billing.BillResult) formattedAmounts {
	return formattedAmounts{
		UnitPrice: billing.FormatCurrency(res.UnitPrice),
		Subtotal:  billing.FormatCurrency(res.Subtotal),
		Surcharge: billing.FormatCurrency(res.PublicLightingSurcharge),
		Total:     billing.FormatCurrency(res.Total),
	}
}

func (s *server) registerBillingRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/bills", instrument("/api/v1/bills", s.handleComputeBill))
	mux.HandleFunc("POST /api/v1/invoices", instrument("/api/v1/invoices", s.handleCreateInvoice))
	mux.HandleFunc("GET /api/v1/invoices/{id}/pdf", instrument("/api/v1/invoices/pdf", s.handleDownloadInvoice))
	mux.Handle("GET /api/v1/invoices", s.Auth.Require(auth.ObjInvoices, auth.ActRead,
		instrument("/api/v1/invoices/list", s.handleListInvoices)))
}

// compute runs the calculator and writes the 4xx response itself when the
// request is rejected.
func (s *server) compute(w http.ResponseWriter, r *http.Request) (billing.BillRequest, billing.BillResult, bool) {
	var req billing.BillRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, billing.BillResult{}, false
	}

	res, err := s.Calculator.Compute(req)
	if err != nil {
		var verr *billing.ValidationError
		if errors.As(err, &verr) {
			metrics.ValidationFailuresTotal.WithLabelValues(verr.Reason).Inc()
			writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: verr.Error(), Field: verr.Field})
			return req, billing.BillResult{}, false
		}
		s.Logger.Error("compute bill failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return req, billing.BillResult{}, false
	}

	metrics.BillsComputedTotal.WithLabelValues(res.Sector.String()).Inc()
	return req, res, true
}

func (s *server) publish(ctx context.Context, e events.Event) {
	e.OccurredAt = s.Clock.Now()
	if err := s.Events.Publish(ctx, e); err != nil {
		s.Logger.Warn("publish event failed", "type", e.Type, "error", err)
	}
}

func (s *server) handleComputeBill(w http.ResponseWriter, r *http.Request) {
	_, res, ok := s.compute(w, r)
	if !ok {
		return
	}
	s.publish(r.Context(), events.Event{
		Type:        events.TypeBillComputed,
		Sector:      res.Sector.String(),
		Consumption: res.Consumption.String(),
		Total:       res.Total.String(),
	})
	writeJSON(w, http.StatusOK, billResponse{Result: res, Formatted: format(res)})
}

func (s *server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	req, res, ok := s.compute(w, r)
	if !ok {
		return
	}

	doc, err := s.Generator.Render(req, &res)
	if err != nil {
		var perr *invoice.PreconditionError
		if errors.As(err, &perr) {
			writeError(w, http.StatusConflict, perr.Error())
			return
		}
		s.Logger.Error("render invoice failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	metrics.InvoicesRenderedTotal.Inc()
	metrics.InvoiceBytes.Observe(float64(len(doc.Content)))

	rec := storage.InvoiceRecord{
		ID:           uuid.New().String(),
		CustomerName: req.CustomerName,
		Address:      req.Address,
		Sector:       res.Sector.String(),
		Consumption:  res.Consumption.String(),
		UnitPrice:    res.UnitPrice.String(),
		Subtotal:     res.Subtotal.String(),
		Surcharge:    res.PublicLightingSurcharge.String(),
		Total:        res.Total.String(),
		Filename:     doc.Filename,
		CreatedAt:    doc.GeneratedAt,
	}

	if s.Artifacts != nil {
		loc, err := s.Artifacts.Put(r.Context(), artifact.Key(rec.ID), doc.Content, doc.ContentType)
		if err != nil {
			s.Logger.Error("store invoice artifact failed", "id", rec.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		rec.Location = loc
	} else {
		rec.Content = doc.Content
	}

	if err := s.Storage.SaveInvoice(r.Context(), rec); err != nil {
		s.Logger.Error("save invoice failed", "id", rec.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.Logger.Info("invoice generated", "id", rec.ID, "sector", rec.Sector, "bytes", len(doc.Content))

	s.publish(r.Context(), events.Event{
		Type:        events.TypeInvoiceGenerated,
		InvoiceID:   rec.ID,
		Sector:      rec.Sector,
		Consumption: rec.Consumption,
		Total:       rec.Total,
		Filename:    rec.Filename,
	})

	writeJSON(w, http.StatusCreated, invoiceResponse{
		ID:          rec.ID,
		Filename:    rec.Filename,
		DownloadURL: fmt.Sprintf("/api/v1/invoices/%s/pdf", rec.ID),
		Location:    rec.Location,
		Result:      res,
		Formatted:   format(res),
	})
}

// loadInvoice fetches the record and its document bytes, from the record
// itself or from the artifact store.
func (s *server) loadInvoice(ctx context.Context, id string) (*storage.InvoiceRecord, error) {
	rec, err := s.Storage.GetInvoice(ctx, id)
	if err != nil || rec == nil {
		return rec, err
	}
	if len(rec.Content) == 0 && s.Artifacts != nil {
		content, err := s.Artifacts.Get(ctx, artifact.Key(rec.ID))
		if err != nil {
			return nil, fmt.Errorf("load artifact: %w", err)
		}
		rec.Content = content
	}
	return rec, nil
}

func (s *server) handleDownloadInvoice(w http.ResponseWriter, r *http.Request) {
	rec, err := s.loadInvoice(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			writeError(w, http.StatusNotFound, "invoice document not found")
			return
		}
		s.Logger.Error("load invoice failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if rec == nil || len(rec.Content) == 0 {
		writeError(w, http.StatusNotFound, "invoice not found")
		return
	}

	w.Header().Set("Content-Type", invoice.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": rec.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(rec.Content)))
	_, _ = w.Write(rec.Content)
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func (s *server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if limit == 0 || limit > 500 {
		limit = 50
	}

	list, err := s.Storage.ListInvoices(r.Context(), limit, offset)
	if err != nil {
		s.Logger.Error("list invoices failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if list == nil {
		list = []storage.InvoiceRecord{}
	}
	writeJSON(w, http.StatusOK, listResponse{Invoices: list, Limit: limit, Offset: offset})
}
