package mockapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-dash-session/internal/errors"
	"github.com/jrsteele09/go-dash-session/token"
	"github.com/rs/zerolog"
)

// RequestIDHeader is echoed back so clients can correlate their retries.
const RequestIDHeader = "X-Request-ID"

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyRequestID stores the request ID
	ContextKeyRequestID ContextKey = "request_id"
	// ContextKeyClaims stores the validated access token claims
	ContextKeyClaims ContextKey = "claims"
)

// RequestID keeps the caller's X-Request-ID or assigns one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), ContextKeyRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFrom returns the id set by RequestID.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ContextKeyRequestID).(string)
	return id
}

// Logger logs request method, path, status, and duration.
func Logger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			logger.Info().
				Str("request_id", RequestIDFrom(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", sw.status).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

// Recovery catches panics and returns a 500.
func Recovery(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error().
						Interface("panic", rec).
						Str("path", r.URL.Path).
						Msg("panic recovered")
					writeError(w, apperrors.ErrInternal)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// BearerAuth validates Authorization: Bearer <token> and stores the claims
// in the request context.
func BearerAuth(svc *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="dashsession"`)
				writeError(w, apperrors.Wrapf(apperrors.ErrInvalidToken, "missing bearer token"))
				return
			}
			claims, err := svc.Authenticate(raw)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="dashsession", error="invalid_token"`)
				writeError(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFrom returns the claims stored by BearerAuth.
func ClaimsFrom(ctx context.Context) (*token.Claims, bool) {
	c, ok := ctx.Value(ContextKeyClaims).(*token.Claims)
	return c, ok
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
