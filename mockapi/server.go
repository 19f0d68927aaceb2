package mockapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jrsteele09/go-dash-session/internal/config"
	"github.com/jrsteele09/go-dash-session/token"
	"github.com/jrsteele09/go-dash-session/token/refresh"
	refreshrepofake "github.com/jrsteele09/go-dash-session/token/refresh/repofake"
	"github.com/jrsteele09/go-dash-session/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config is the configuration the backend reads.
type Config interface {
	config.EnvConfig
	config.MockAPIConfig
}

type Server struct {
	env    string // Environment (e.g., "DEV", "PROD")
	router *chi.Mux
	svc    *AuthService
	logger zerolog.Logger
}

type serverOptions struct {
	logger  zerolog.Logger
	nowTime func() time.Time
	recs    RecommendationSource
	version string
}

// Option defines a function type to modify the Server instance.
type Option func(*serverOptions)

func WithLogger(logger zerolog.Logger) Option {
	return func(o *serverOptions) {
		o.logger = logger
	}
}

// WithClock sets the now time function (primarily for testing)
func WithClock(nowFunc func() time.Time) Option {
	return func(o *serverOptions) {
		o.nowTime = nowFunc
	}
}

func WithRecommendations(src RecommendationSource) Option {
	return func(o *serverOptions) {
		o.recs = src
	}
}

func WithVersion(v string) Option {
	return func(o *serverOptions) {
		o.version = v
	}
}

func New(cfg Config, userRepo users.UserRepo, options ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("[mockapi.New] config is required")
	}
	if userRepo == nil {
		return nil, errors.New("[mockapi.New] user repo is required")
	}
	o := serverOptions{
		logger:  log.Logger,
		nowTime: time.Now,
		recs:    DefaultRecommendations(),
		version: "dev",
	}
	for _, opt := range options {
		opt(&o)
	}

	issuer, err := token.NewIssuer(
		token.NewHMACSigner(cfg.GetJWTSecret()),
		token.NewInMemoryRevokedTokenCache(),
		cfg.GetAccessTokenExpiry(),
		token.WithNowTime(o.nowTime),
	)
	if err != nil {
		return nil, fmt.Errorf("[mockapi.New] %w", err)
	}
	refreshManager := refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), cfg, refresh.WithNowTime(o.nowTime))

	svc, err := NewAuthService(userRepo, issuer, refreshManager, WithNowTime(o.nowTime))
	if err != nil {
		return nil, fmt.Errorf("[mockapi.New] %w", err)
	}

	logger := o.logger.With().Str("component", "mockapi").Logger()
	s := &Server{
		env:    cfg.GetEnv(),
		svc:    svc,
		logger: logger,
	}
	s.router = NewRouter(NewHandlers(svc, o.recs, logger, o.version), svc, logger)
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	_ = chi.Walk(s.router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		s.logger.Debug().Str("method", method).Str("route", route).Msg("route")
		return nil
	})
}

// ParseUserSpec reads "email:password[:display name]".
func ParseUserSpec(spec string) (email, password, displayName string, err error) {
	parts := strings.SplitN(spec, ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", fmt.Errorf("user %q: want email:password[:display name]", spec)
	}
	if len(parts) == 3 {
		displayName = parts[2]
	}
	return parts[0], parts[1], displayName, nil
}

// SeedUsers adds the users described by specs to repo.
func SeedUsers(repo users.UserRepo, specs []string, bcryptCost int) error {
	for _, spec := range specs {
		email, password, name, err := ParseUserSpec(spec)
		if err != nil {
			return err
		}
		u, err := users.NewUser(email, name, password, bcryptCost)
		if err != nil {
			return fmt.Errorf("user %s: %w", email, err)
		}
		if err := repo.Upsert(u); err != nil {
			return fmt.Errorf("user %s: %w", email, err)
		}
	}
	return nil
}
