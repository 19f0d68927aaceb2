package authapi

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-dash-session/failure"
	"github.com/jrsteele09/go-dash-session/retry"
	"github.com/jrsteele09/go-dash-session/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

var _ session.Authenticator = (*OIDCAuthenticator)(nil)

// ErrMissingIDToken is returned when a password grant yields no id_token.
var ErrMissingIDToken = errors.New("token response has no id_token")

// OIDCAuthenticator signs in with the OAuth2 resource owner password grant
// and reads the identity from the verified ID token.
type OIDCAuthenticator struct {
	config   *oauth2.Config
	verifier *oidc.IDTokenVerifier
	policy   *retry.Policy
	classify retry.Classifier
	client   *http.Client
	revoke   string
	logger   zerolog.Logger
}

type idClaims struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
}

type discoveryClaims struct {
	RevocationURL string `json:"revocation_endpoint"`
}

// DiscoverOIDC builds an OIDCAuthenticator from the issuer's discovery document.
func DiscoverOIDC(ctx context.Context, issuer, clientID, clientSecret string, scopes []string, policy *retry.Policy, opts ...Option) (*OIDCAuthenticator, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, o.client), issuer)
	if err != nil {
		return nil, errors.Wrapf(err, "discover issuer %s", issuer)
	}

	endpoint := provider.Endpoint()
	endpoint.AuthStyle = oauth2.AuthStyleInHeader
	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     endpoint,
		Scopes:       scopes,
	}

	if o.revoke == "" {
		var dc discoveryClaims
		if err := provider.Claims(&dc); err == nil && dc.RevocationURL != "" {
			opts = append(opts, WithRevocationURL(dc.RevocationURL))
		}
	}
	return NewOIDCAuthenticator(config, provider.Verifier(&oidc.Config{ClientID: clientID}), policy, opts...)
}

func NewOIDCAuthenticator(config *oauth2.Config, verifier *oidc.IDTokenVerifier, policy *retry.Policy, opts ...Option) (*OIDCAuthenticator, error) {
	if config == nil {
		return nil, errors.New("[NewOIDCAuthenticator] oauth2 config is required")
	}
	if verifier == nil {
		return nil, errors.New("[NewOIDCAuthenticator] id token verifier is required")
	}
	if policy == nil {
		return nil, errors.New("[NewOIDCAuthenticator] retry policy is required")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &OIDCAuthenticator{
		config:   config,
		verifier: verifier,
		policy:   policy,
		classify: o.classify,
		client:   o.client,
		revoke:   o.revoke,
		logger:   o.logger.With().Str("component", "oidc").Logger(),
	}, nil
}

func (a *OIDCAuthenticator) Login(ctx context.Context, email, password string) (*session.Grant, error) {
	ctx = oidc.ClientContext(ctx, a.client)
	tok, err := retry.Run(ctx, a.policy, func(ctx context.Context) (*oauth2.Token, error) {
		tok, err := a.config.PasswordCredentialsToken(ctx, email, password)
		return tok, tokenError(err)
	}, a.classify)
	if err != nil {
		return nil, errors.Wrap(err, "password grant")
	}

	grant, err := a.grant(ctx, tok)
	if err != nil {
		return nil, err
	}
	if grant.Identity.ID == "" {
		return nil, failure.New(failure.InvalidResponse, ErrMissingIDToken)
	}
	return grant, nil
}

// Refresh exchanges refreshToken through an oauth2.TokenSource. Providers
// that omit the id_token on refresh leave Identity empty.
func (a *OIDCAuthenticator) Refresh(ctx context.Context, refreshToken string) (*session.Grant, error) {
	ctx = oidc.ClientContext(ctx, a.client)
	tok, err := retry.Run(ctx, a.policy, func(ctx context.Context) (*oauth2.Token, error) {
		tok, err := a.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
		return tok, tokenError(err)
	}, a.classify)
	if err != nil {
		return nil, errors.Wrap(err, "refresh grant")
	}
	return a.grant(ctx, tok)
}

// Revoke posts the refresh token to the revocation endpoint, if one is known.
func (a *OIDCAuthenticator) Revoke(ctx context.Context, accessToken, refreshToken string) error {
	if a.revoke == "" {
		return nil
	}

	form := url.Values{"client_id": {a.config.ClientID}}
	if refreshToken != "" {
		form.Set("token", refreshToken)
		form.Set("token_type_hint", "refresh_token")
	} else {
		form.Set("token", accessToken)
		form.Set("token_type_hint", "access_token")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.revoke, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "build revocation request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if a.config.ClientSecret != "" {
		req.SetBasicAuth(url.QueryEscape(a.config.ClientID), url.QueryEscape(a.config.ClientSecret))
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "revoke")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return failure.NewStatusError(resp.StatusCode, nil)
	}
	return nil
}

func (a *OIDCAuthenticator) grant(ctx context.Context, tok *oauth2.Token) (*session.Grant, error) {
	if tok.AccessToken == "" {
		return nil, failure.New(failure.InvalidResponse, errors.New("token response has no access_token"))
	}
	g := &session.Grant{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}

	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		return g, nil
	}
	idToken, err := a.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, failure.New(failure.InvalidResponse, errors.Wrap(err, "verify id_token"))
	}
	var claims idClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, failure.New(failure.InvalidResponse, errors.Wrap(err, "id_token claims"))
	}
	g.Identity = session.Identity{ID: claims.Subject, Email: claims.Email, DisplayName: claims.Name}
	if g.ExpiresAt.IsZero() {
		g.ExpiresAt = idToken.Expiry
	}
	return g, nil
}

// tokenError turns an oauth2 token endpoint rejection into a classifiable
// failure. invalid_grant and invalid_client mean the credentials were refused.
func tokenError(err error) error {
	if err == nil {
		return nil
	}
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return err
	}
	switch re.ErrorCode {
	case "invalid_grant", "invalid_client", "unauthorized_client":
		return failure.New(failure.Unauthorized, err)
	}
	if re.Response != nil {
		return failure.NewStatusError(re.Response.StatusCode, re.Body)
	}
	return err
}
