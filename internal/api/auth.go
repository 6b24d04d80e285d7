package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/bher20/energyplatform/internal/auth"
	"github.com/bher20/energyplatform/internal/storage"
)

type credentials struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Role      string `json:"role,omitempty"`
	ExpiresIn string `json:"expires_in,omitempty"`
}

type loginResponse struct {
	Token     string     `json:"token"`
	TokenID   string     `json:"token_id"`
	Role      string     `json:"role"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type tokenListResponse struct {
	Owner  storage.User    `json:"owner"`
	Tokens []storage.Token `json:"tokens"`
}

func (s *server) registerAuthRoutes(mux *http.ServeMux) {
	mux.Handle("POST /api/v1/auth/register", s.Auth.Middleware(instrument("/api/v1/auth/register", s.handleRegister)))
	mux.HandleFunc("POST /api/v1/auth/login", instrument("/api/v1/auth/login", s.handleLogin))
	mux.Handle("GET /api/v1/auth/tokens", s.Auth.Middleware(instrument("/api/v1/auth/tokens", s.handleListTokens)))
	mux.Handle("DELETE /api/v1/auth/tokens/{id}", s.Auth.Middleware(instrument("/api/v1/auth/tokens/id", s.handleDeleteToken)))
}

// handleRegister lets anyone create the first account (as admin unless a
// role is given). Later accounts need an admin token.
func (s *server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil || req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	hasUsers, err := s.Auth.HasUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if hasUsers {
		token, ok := auth.TokenFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		allowed, err := s.Auth.Enforce(token.UserID, auth.ObjSettings, auth.ActWrite)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !allowed {
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}
	}

	role := req.Role
	if role == "" {
		role = auth.RoleViewer
		if !hasUsers {
			role = auth.RoleAdmin
		}
	}

	u, err := s.Auth.Register(r.Context(), req.Username, req.Password, role)
	switch {
	case errors.Is(err, auth.ErrUserExists):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, auth.ErrUnknownRole):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.Logger.Error("register user failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.Logger.Info("user registered", "user", u.Username, "role", u.Role)
	writeJSON(w, http.StatusCreated, u)
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	expiresAt, err := auth.ParseExpiration(req.ExpiresIn, s.Clock.Now(), s.Location)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := s.Auth.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	t, raw, err := s.Auth.CreateToken(r.Context(), u.ID, "login", u.Role, expiresAt)
	if err != nil {
		s.Logger.Error("create token failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: raw, TokenID: t.ID, Role: t.Role, ExpiresAt: t.ExpiresAt})
}

func (s *server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	token, ok := auth.TokenFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	owner, err := s.Storage.GetUser(r.Context(), token.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if owner == nil {
		// account removed after the token was issued
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	tokens, err := s.Storage.ListTokens(r.Context(), token.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if tokens == nil {
		tokens = []storage.Token{}
	}
	writeJSON(w, http.StatusOK, tokenListResponse{Owner: *owner, Tokens: tokens})
}

func (s *server) handleDeleteToken(w http.ResponseWriter, r *http.Request) {
	token, ok := auth.TokenFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	tokens, err := s.Storage.ListTokens(r.Context(), token.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	id := r.PathValue("id")
	for _, t := range tokens {
		if t.ID == id {
			if err := s.Storage.DeleteToken(r.Context(), id); err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeError(w, http.StatusNotFound, "token not found")
}
