package mockapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Routes served by the development backend.
const (
	RouteHealth          = "/health"
	RouteLogin           = "/auth/login"
	RouteRefresh         = "/auth/refresh"
	RouteLogout          = "/auth/logout"
	RouteMe              = "/me"
	RouteRecommendations = "/recommendations"
)

// NewRouter creates the chi router with all routes and middleware.
func NewRouter(h *Handlers, svc *AuthService, logger zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (runs on ALL routes including /health)
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recovery(logger))

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method_not_allowed"})
	})

	// Unauthenticated routes
	r.Get(RouteHealth, h.Health)
	r.Post(RouteLogin, h.Login)
	r.Post(RouteRefresh, h.Refresh)
	r.Post(RouteLogout, h.Logout)

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(svc))
		r.Get(RouteMe, h.Me)
		r.Get(RouteRecommendations, h.Recommendations)
	})

	return r
}
