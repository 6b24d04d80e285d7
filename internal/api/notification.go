package api

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/bher20/energyplatform/internal/artifact"
	"github.com/bher20/energyplatform/internal/auth"
	"github.com/bher20/energyplatform/internal/billing"
	"github.com/bher20/energyplatform/internal/invoice"
	"github.com/bher20/energyplatform/internal/notification"
	"github.com/bher20/energyplatform/internal/storage"
)

const redacted = "********"

type emailRequest struct {
	To string `json:"to"`
}

func (s *server) registerNotificationRoutes(mux *http.ServeMux) {
	mux.Handle("GET /api/v1/settings/email", s.Auth.Require(auth.ObjSettings, auth.ActRead,
		instrument("/api/v1/settings/email", s.handleGetEmailConfig)))
	mux.Handle("PUT /api/v1/settings/email", s.Auth.Require(auth.ObjSettings, auth.ActWrite,
		instrument("/api/v1/settings/email", s.handleSaveEmailConfig)))
	mux.Handle("POST /api/v1/settings/email/test", s.Auth.Require(auth.ObjSettings, auth.ActWrite,
		instrument("/api/v1/settings/email/test", s.handleTestEmailConfig)))
	mux.Handle("POST /api/v1/invoices/{id}/email", s.Auth.Require(auth.ObjInvoices, auth.ActWrite,
		instrument("/api/v1/invoices/email", s.handleEmailInvoice)))
}

func (s *server) handleGetEmailConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.Notifier.GetConfig(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if cfg == nil {
		cfg = &storage.EmailConfig{}
	}
	out := *cfg
	if out.Password != "" {
		out.Password = redacted
	}
	if out.APIKey != "" {
		out.APIKey = redacted
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleSaveEmailConfig(w http.ResponseWriter, r *http.Request) {
	var req storage.EmailConfig
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	// redacted secrets sent back unchanged keep the stored values
	if req.Password == redacted || req.APIKey == redacted {
		cur, err := s.Notifier.GetConfig(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if cur != nil {
			if req.Password == redacted {
				req.Password = cur.Password
			}
			if req.APIKey == redacted {
				req.APIKey = cur.APIKey
			}
		}
	}
	if err := s.Notifier.SaveConfig(r.Context(), req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *server) handleTestEmailConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Config storage.EmailConfig `json:"config"`
		To     string              `json:"to"`
	}
	if err := decodeJSON(r, &req); err != nil || req.To == "" {
		writeError(w, http.StatusBadRequest, "config and to are required")
		return
	}

	msg := notification.Message{
		To:      req.To,
		Subject: "Prueba de configuración de correo",
		HTML:    "<p>La configuración de correo funciona correctamente.</p>",
	}
	if err := s.Notifier.SendWith(r.Context(), req.Config, msg); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *server) handleEmailInvoice(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil || req.To == "" {
		writeError(w, http.StatusBadRequest, "to is required")
		return
	}

	rec, err := s.loadInvoice(r.Context(), r.PathValue("id"))
	if err != nil && !errors.Is(err, artifact.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if rec == nil || len(rec.Content) == 0 {
		writeError(w, http.StatusNotFound, "invoice not found")
		return
	}

	total, err := decimal.NewFromString(rec.Total)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	doc := &invoice.Document{Filename: rec.Filename, ContentType: invoice.ContentType, Content: rec.Content}
	msg := notification.InvoiceMessage(req.To, rec.CustomerName, billing.FormatAmount(total), doc)

	if err := s.Notifier.Send(r.Context(), msg); err != nil {
		if errors.Is(err, notification.ErrNotConfigured) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.Logger.Warn("email invoice failed", "id", rec.ID, "error", err)
		writeError(w, http.StatusBadGateway, "email delivery failed")
		return
	}
	s.Logger.Info("invoice emailed", "id", rec.ID)
	w.WriteHeader(http.StatusAccepted)
}
