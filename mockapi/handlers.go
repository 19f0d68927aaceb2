package mockapi

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/jrsteele09/go-dash-session/internal/errors"
	"github.com/jrsteele09/go-dash-session/token"
	"github.com/rs/zerolog"
)

const contentTypeJSON = "application/json"

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Handlers serves the auth endpoints and the protected resources.
type Handlers struct {
	svc     *AuthService
	recs    RecommendationSource
	logger  zerolog.Logger
	version string
}

func NewHandlers(svc *AuthService, recs RecommendationSource, logger zerolog.Logger, version string) *Handlers {
	return &Handlers{svc: svc, recs: recs, logger: logger, version: version}
}

// Login exchanges email and password for a token pair.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Wrapf(apperrors.ErrInvalidRequest, "decode body"))
		return
	}

	resp, err := h.svc.Login(req.Email, req.Password)
	if err != nil {
		h.logger.Info().Err(err).Str("request_id", RequestIDFrom(r.Context())).Msg("login rejected")
		writeError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, resp)
}

// Refresh rotates the refresh token.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Wrapf(apperrors.ErrInvalidRequest, "decode body"))
		return
	}

	resp, err := h.svc.Refresh(req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, resp)
}

// Logout succeeds for expired or missing access tokens too, so a client can
// always drop its refresh token.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if r.ContentLength != 0 {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	var claims *token.Claims
	if raw, ok := bearerToken(r); ok {
		if c, err := h.svc.Authenticate(raw); err == nil {
			claims = c
		}
	}

	if err := h.svc.Logout(claims, req.RefreshToken); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the signed in user's profile.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFrom(r.Context())
	user, err := h.svc.Profile(claims.Subject)
	if err != nil {
		// The token outlived its user.
		writeError(w, apperrors.Wrapf(apperrors.ErrInvalidToken, "%v", err))
		return
	}
	writeJSON(w, http.StatusOK, user.Profile())
}

// Recommendations returns the dashboard's recommendation list.
func (h *Handlers) Recommendations(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFrom(r.Context())
	recs, err := h.recs.For(r.Context(), claims.Subject)
	if err != nil {
		writeError(w, apperrors.Wrapf(apperrors.ErrInternal, "recommendations: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, RecommendationList{Items: recs})
}

func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": h.version})
}

func (h *Handlers) NotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, apperrors.ErrNotFound)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the shared sentinels onto status codes and OAuth2 style
// error bodies.
func writeError(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, "server_error"
	switch {
	case apperrors.Is(err, apperrors.ErrInvalidRequest):
		status, code = http.StatusBadRequest, "invalid_request"
	case apperrors.Is(err, apperrors.ErrInvalidCredentials):
		status, code = http.StatusUnauthorized, "invalid_credentials"
	case apperrors.Is(err, apperrors.ErrInvalidToken), apperrors.Is(err, apperrors.ErrTokenExpired):
		status, code = http.StatusUnauthorized, "invalid_token"
	case apperrors.Is(err, apperrors.ErrInvalidRefreshToken), apperrors.Is(err, apperrors.ErrRefreshTokenExpired):
		status, code = http.StatusUnauthorized, "invalid_grant"
	case apperrors.Is(err, apperrors.ErrUserBlocked):
		status, code = http.StatusForbidden, "access_denied"
	case apperrors.Is(err, apperrors.ErrUserNotFound), apperrors.Is(err, apperrors.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	}

	description := err.Error()
	if status == http.StatusInternalServerError {
		description = apperrors.ErrInternal.Error()
	}
	writeJSON(w, status, map[string]string{
		"error":             code,
		"error_description": description,
	})
}
