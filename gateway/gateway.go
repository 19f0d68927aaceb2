// Package gateway sends authenticated requests to the backend, retries
// transient failures and reports rejected credentials to the session.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-dash-session/failure"
	"github.com/jrsteele09/go-dash-session/retry"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// RequestIDHeader carries one id per logical call, shared by all its attempts.
const RequestIDHeader = "X-Request-ID"

// ErrNoToken is returned, wrapped as Unauthorized, when no session token is available.
var ErrNoToken = errors.New("no access token")

// TokenSource supplies the bearer token and receives the unauthorized signal.
// *session.Manager implements it.
type TokenSource interface {
	AccessToken() (string, bool)
	// Invalidate reports that token was rejected by the backend.
	Invalidate(token string) bool
	// Renew exchanges the refresh token and returns a fresh access token.
	Renew(ctx context.Context, stale string) (string, error)
}

// Gateway is safe for concurrent use.
type Gateway struct {
	transport    Transport
	tokens       TokenSource
	policy       *retry.Policy
	classify     retry.Classifier
	renewOn401   bool
	logger       zerolog.Logger
	newRequestID func() string
}

// Option defines a function type to modify the Gateway instance.
type Option func(*Gateway)

// WithTokenRefresh makes an Unauthorized call renew the token and replay once
// before the session is expired.
func WithTokenRefresh() Option {
	return func(g *Gateway) {
		g.renewOn401 = true
	}
}

// WithClassifier replaces failure.Classify.
func WithClassifier(c retry.Classifier) Option {
	return func(g *Gateway) {
		g.classify = c
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithRequestIDs sets the request id generator, uuid.NewString by default.
func WithRequestIDs(fn func() string) Option {
	return func(g *Gateway) {
		g.newRequestID = fn
	}
}

func New(transport Transport, tokens TokenSource, policy *retry.Policy, options ...Option) (*Gateway, error) {
	if transport == nil {
		return nil, errors.New("[gateway.New] transport is required")
	}
	if tokens == nil {
		return nil, errors.New("[gateway.New] token source is required")
	}
	if policy == nil {
		return nil, errors.New("[gateway.New] retry policy is required")
	}

	g := &Gateway{
		transport:    transport,
		tokens:       tokens,
		policy:       policy,
		classify:     failure.Classify,
		logger:       log.Logger,
		newRequestID: uuid.NewString,
	}
	for _, opt := range options {
		opt(g)
	}
	return g, nil
}

// Call sends spec with the current access token. Failures are returned as
// *failure.Error. A call without a token fails with Unauthorized before any
// network activity. When the backend rejects the token the session is
// invalidated once for this call, unless ctx was cancelled.
func (g *Gateway) Call(ctx context.Context, spec RequestSpec) (*Response, error) {
	token, ok := g.tokens.AccessToken()
	if !ok {
		return nil, failure.New(failure.Unauthorized, ErrNoToken)
	}

	requestID := g.newRequestID()
	logger := g.logger.With().
		Str("request_id", requestID).
		Str("method", spec.Method).
		Str("path", spec.Path).
		Logger()
	spec = spec.withHeader(RequestIDHeader, requestID)

	resp, err := g.send(ctx, spec, token)
	if err == nil {
		return resp, nil
	}

	if g.renewOn401 && g.rejected(ctx, err) {
		fresh, renewErr := g.tokens.Renew(ctx, token)
		if renewErr == nil {
			logger.Debug().Msg("token renewed, replaying request")
			token = fresh
			resp, err = g.send(ctx, spec, token)
			if err == nil {
				return resp, nil
			}
		} else {
			logger.Debug().Err(renewErr).Msg("token renewal failed")
		}
	}

	if g.rejected(ctx, err) {
		if g.tokens.Invalidate(token) {
			logger.Info().Msg("credential rejected, session expired")
		}
	}

	werr := failure.Wrap(err)
	logger.Debug().Err(werr).Str("kind", failure.KindOf(werr).String()).Msg("request failed")
	return nil, werr
}

// CallJSON is Call followed by decoding the body into out. A body that does
// not decode is an InvalidResponse failure. A nil out discards the body.
func (g *Gateway) CallJSON(ctx context.Context, spec RequestSpec, out any) error {
	resp, err := g.Call(ctx, spec)
	if err != nil {
		return err
	}
	if out == nil || (len(resp.Body) == 0 && resp.StatusCode == http.StatusNoContent) {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return failure.Wrap(failure.NewDecodeError(resp.Body, err))
	}
	return nil
}

// Get fetches path and decodes the JSON body into out.
func (g *Gateway) Get(ctx context.Context, path string, out any) error {
	spec, err := NewJSONRequest(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return g.CallJSON(ctx, spec, out)
}

// send runs one retried exchange with token.
func (g *Gateway) send(ctx context.Context, spec RequestSpec, token string) (*Response, error) {
	bearer := &oauth2.Token{AccessToken: token, TokenType: "Bearer"}
	spec = spec.withHeader("Authorization", bearer.Type()+" "+bearer.AccessToken)

	return retry.Run(ctx, g.policy, func(ctx context.Context) (*Response, error) {
		return Exchange(ctx, g.transport, spec)
	}, g.classify)
}

func (g *Gateway) rejected(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return g.classify(err) == failure.Unauthorized
}

// Exchange performs one round trip and turns a non-success status into a
// *failure.StatusError. A transport error is returned as is.
func Exchange(ctx context.Context, transport Transport, spec RequestSpec) (*Response, error) {
	resp, err := transport.Do(ctx, spec)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, failure.ErrNoResponse
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, failure.NewStatusError(resp.StatusCode, resp.Body)
	}
	return resp, nil
}
