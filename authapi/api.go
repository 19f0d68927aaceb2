// Package authapi implements session.Authenticator against the dashboard
// backend's JSON auth endpoints and against an OpenID Connect provider.
package authapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jrsteele09/go-dash-session/failure"
	"github.com/jrsteele09/go-dash-session/gateway"
	"github.com/jrsteele09/go-dash-session/retry"
	"github.com/jrsteele09/go-dash-session/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Backend auth routes, relative to the transport's base URL.
const (
	LoginPath   = "/auth/login"
	RefreshPath = "/auth/refresh"
	LogoutPath  = "/auth/logout"
	MePath      = "/me"
)

var _ session.Authenticator = (*APIAuthenticator)(nil)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse is the body returned by the login and refresh endpoints.
type TokenResponse struct {
	AccessToken  string            `json:"access_token"`
	TokenType    string            `json:"token_type,omitempty"`
	RefreshToken string            `json:"refresh_token,omitempty"`
	ExpiresIn    int64             `json:"expires_in,omitempty"` // seconds
	Identity     *session.Identity `json:"identity,omitempty"`
}

// APIAuthenticator talks to the backend's /auth endpoints through the same
// transport and retry policy the request gateway uses.
type APIAuthenticator struct {
	transport gateway.Transport
	policy    *retry.Policy
	classify  retry.Classifier
	logger    zerolog.Logger
	nowTime   func() time.Time
}

// Option defines a function type to modify the authenticators.
type Option func(*options)

type options struct {
	classify retry.Classifier
	logger   zerolog.Logger
	nowTime  func() time.Time
	client   *http.Client
	revoke   string
}

func defaultOptions() options {
	return options{
		classify: failure.Classify,
		logger:   log.Logger,
		nowTime:  time.Now,
		client:   http.DefaultClient,
	}
}

// WithClassifier replaces failure.Classify for retry decisions.
func WithClassifier(c retry.Classifier) Option {
	return func(o *options) {
		o.classify = c
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(o *options) {
		o.nowTime = nowFunc
	}
}

// WithHTTPClient sets the client used for OIDC token and revocation calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.client = c
	}
}

// WithRevocationURL enables RFC 7009 revocation on logout for OIDCAuthenticator.
func WithRevocationURL(u string) Option {
	return func(o *options) {
		o.revoke = u
	}
}

func NewAPIAuthenticator(transport gateway.Transport, policy *retry.Policy, opts ...Option) (*APIAuthenticator, error) {
	if transport == nil {
		return nil, errors.New("[NewAPIAuthenticator] transport is required")
	}
	if policy == nil {
		return nil, errors.New("[NewAPIAuthenticator] retry policy is required")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &APIAuthenticator{
		transport: transport,
		policy:    policy,
		classify:  o.classify,
		logger:    o.logger.With().Str("component", "authapi").Logger(),
		nowTime:   o.nowTime,
	}, nil
}

func (a *APIAuthenticator) Login(ctx context.Context, email, password string) (*session.Grant, error) {
	spec, err := gateway.NewJSONRequest(http.MethodPost, LoginPath, loginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	grant, err := a.exchange(ctx, spec)
	if err != nil {
		return nil, errors.Wrap(err, "login")
	}
	return grant, nil
}

func (a *APIAuthenticator) Refresh(ctx context.Context, refreshToken string) (*session.Grant, error) {
	spec, err := gateway.NewJSONRequest(http.MethodPost, RefreshPath, refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, err
	}
	grant, err := a.exchange(ctx, spec)
	if err != nil {
		return nil, errors.Wrap(err, "refresh")
	}
	return grant, nil
}

// Revoke tells the backend to drop the refresh token. It is not retried.
func (a *APIAuthenticator) Revoke(ctx context.Context, accessToken, refreshToken string) error {
	spec, err := gateway.NewJSONRequest(http.MethodPost, LogoutPath, refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return err
	}
	spec.Headers.Set("Authorization", bearer(accessToken))
	if _, err := gateway.Exchange(ctx, a.transport, spec); err != nil {
		return errors.Wrap(err, "logout")
	}
	return nil
}

func (a *APIAuthenticator) exchange(ctx context.Context, spec gateway.RequestSpec) (*session.Grant, error) {
	resp, err := a.send(ctx, spec)
	if err != nil {
		return nil, err
	}

	var body TokenResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, failure.NewDecodeError(resp.Body, err)
	}
	if body.AccessToken == "" {
		return nil, failure.NewDecodeError(resp.Body, errors.New("missing access_token"))
	}

	identity := body.Identity
	if identity == nil {
		if identity, err = a.me(ctx, body.AccessToken); err != nil {
			return nil, err
		}
	}

	return &session.Grant{
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
		ExpiresAt:    expiresAt(a.nowTime(), body.ExpiresIn),
		Identity:     *identity,
	}, nil
}

// me fetches the identity for token when the token response left it out.
func (a *APIAuthenticator) me(ctx context.Context, token string) (*session.Identity, error) {
	spec, err := gateway.NewJSONRequest(http.MethodGet, MePath, nil)
	if err != nil {
		return nil, err
	}
	spec.Headers.Set("Authorization", bearer(token))

	resp, err := a.send(ctx, spec)
	if err != nil {
		return nil, errors.Wrap(err, "fetch identity")
	}
	var identity wireIdentity
	if err := json.Unmarshal(resp.Body, &identity); err != nil {
		return nil, failure.NewDecodeError(resp.Body, err)
	}
	return identity.identity(), nil
}

func (a *APIAuthenticator) send(ctx context.Context, spec gateway.RequestSpec) (*gateway.Response, error) {
	return retry.Run(ctx, a.policy, func(ctx context.Context) (*gateway.Response, error) {
		return gateway.Exchange(ctx, a.transport, spec)
	}, a.classify)
}

func bearer(token string) string {
	t := &oauth2.Token{AccessToken: token, TokenType: "Bearer"}
	return t.Type() + " " + t.AccessToken
}

func expiresAt(now time.Time, expiresIn int64) time.Time {
	if expiresIn <= 0 {
		return time.Time{}
	}
	return now.Add(time.Duration(expiresIn) * time.Second)
}
