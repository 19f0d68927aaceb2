package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jrsteele09/go-dash-session/authapi"
	"github.com/jrsteele09/go-dash-session/credentials"
	"github.com/jrsteele09/go-dash-session/failure"
	"github.com/jrsteele09/go-dash-session/gateway"
	"github.com/jrsteele09/go-dash-session/internal/config"
	"github.com/jrsteele09/go-dash-session/retry"
	"github.com/jrsteele09/go-dash-session/session"
	"github.com/rs/zerolog"
)

// app is the client stack one command invocation works with.
type app struct {
	cfg     config.Config
	logger  zerolog.Logger
	store   credentials.Store
	manager *session.Manager
	gateway *gateway.Gateway
	closers []func() error
}

func newApp(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	a.store = store

	transport, err := gateway.NewHTTPTransport(cfg.GetBaseURL(), gateway.WithAttemptTimeout(cfg.GetRequestTimeout()))
	if err != nil {
		a.Close()
		return nil, err
	}

	policy, err := retry.New(retry.Config{
		MaxAttempts:        cfg.GetMaxAttempts(),
		BaseDelay:          cfg.GetBaseDelay(),
		ExponentialBackoff: cfg.GetExponentialBackoff(),
	},
		retry.WithLogger(logger),
		retry.WithObserver(func(at retry.Attempt) {
			if at.Err != nil {
				logger.Debug().Int("attempt", at.Number).Str("kind", at.Kind.String()).Msg("attempt failed")
			}
		}),
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("retry config: %w", err)
	}

	auth, err := a.authenticator(ctx, transport, policy)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.manager, err = session.NewManager(a.store, auth,
		session.WithLogger(logger),
		session.WithTransitionHook(func(from, to session.Status) {
			logger.Debug().Stringer("from", from).Stringer("to", to).Msg("session")
		}),
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	var opts []gateway.Option
	if cfg.GetRefreshOnUnauthorized() {
		opts = append(opts, gateway.WithTokenRefresh())
	}
	opts = append(opts, gateway.WithLogger(logger))
	a.gateway, err = gateway.New(transport, a.manager, policy, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}

	if err := a.manager.Restore(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	}
	return a, nil
}

func (a *app) openStore(ctx context.Context) (credentials.Store, error) {
	path := a.cfg.GetCredentialPath()
	switch a.cfg.GetStorageDriver() {
	case config.StorageDriverFile:
		return credentials.NewFileStore(path), nil
	case config.StorageDriverSQLite:
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
				return nil, fmt.Errorf("create credential directory: %w", err)
			}
		}
		store, err := credentials.NewSQLiteStore(ctx, path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", a.cfg.GetStorageDriver())
}

func (a *app) authenticator(ctx context.Context, transport gateway.Transport, policy *retry.Policy) (session.Authenticator, error) {
	switch a.cfg.GetAuthMode() {
	case config.AuthModeAPI:
		return authapi.NewAPIAuthenticator(transport, policy, authapi.WithLogger(a.logger))
	case config.AuthModeOIDC:
		if a.cfg.GetOIDCIssuer() == "" || a.cfg.GetOIDCClientID() == "" {
			return nil, fmt.Errorf("auth mode %q needs an issuer and a client id", config.AuthModeOIDC)
		}
		return authapi.DiscoverOIDC(ctx,
			a.cfg.GetOIDCIssuer(),
			a.cfg.GetOIDCClientID(),
			a.cfg.GetOIDCClientSecret(),
			a.cfg.GetOIDCScopes(),
			policy,
			authapi.WithLogger(a.logger),
		)
	}
	return nil, fmt.Errorf("unknown auth mode %q", a.cfg.GetAuthMode())
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Warn().Err(err).Msg("close")
		}
	}
	a.closers = nil
}

// describe turns a failure into a line for the user.
func describe(err error) string {
	kind := failure.KindOf(err)
	switch {
	case kind.PromptsReauth():
		return "Your session has ended. Sign in again with 'dashsession login'."
	case kind.AllowsManualRetry():
		return fmt.Sprintf("The dashboard could not be reached (%s). Try again in a moment.", kind)
	case kind == failure.Forbidden:
		return "You do not have access to this resource."
	case kind == failure.NotFound:
		return "Not found."
	case kind == failure.RateLimited:
		return "Too many requests. Slow down and try again."
	case kind == failure.InvalidResponse:
		return "The dashboard sent a response that could not be read."
	}
	return err.Error()
}
