package authapi_test

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-dash-session/authapi"
	"github.com/jrsteele09/go-dash-session/failure"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const (
	testClientID     = "dash"
	testClientSecret = "s3cret"
	testKeyID        = "k1"
)

// fakeProvider is a minimal OpenID provider with a password grant.
type fakeProvider struct {
	t      *testing.T
	srv    *httptest.Server
	key    *rsa.PrivateKey
	tokens atomic.Int32

	mu           sync.Mutex
	omitIDToken  bool
	revokedToken string
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	p := &fakeProvider{t: t, key: key}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/openid-configuration", p.discovery)
	mux.HandleFunc("GET /keys", p.jwks)
	mux.HandleFunc("POST /token", p.token)
	mux.HandleFunc("POST /revoke", p.revoke)
	p.srv = httptest.NewServer(mux)
	t.Cleanup(p.srv.Close)
	return p
}

func (p *fakeProvider) discovery(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"issuer":                                p.srv.URL,
		"authorization_endpoint":                p.srv.URL + "/authorize",
		"token_endpoint":                        p.srv.URL + "/token",
		"jwks_uri":                              p.srv.URL + "/keys",
		"revocation_endpoint":                   p.srv.URL + "/revoke",
		"id_token_signing_alg_values_supported": []string{"RS256"},
	})
}

func (p *fakeProvider) jwks(w http.ResponseWriter, _ *http.Request) {
	pub := p.key.PublicKey
	writeJSON(w, http.StatusOK, map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"alg": "RS256",
			"use": "sig",
			"kid": testKeyID,
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	})
}

func (p *fakeProvider) token(w http.ResponseWriter, r *http.Request) {
	p.tokens.Add(1)
	id, secret, ok := r.BasicAuth()
	if !ok || id != testClientID || secret != testClientSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_client"})
		return
	}
	require.NoError(p.t, r.ParseForm())

	switch r.PostForm.Get("grant_type") {
	case "password":
		if r.PostForm.Get("username") != "a@b.com" || r.PostForm.Get("password") != "x" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
		p.writeTokens(w, "at1", "rt1")
	case "refresh_token":
		if r.PostForm.Get("refresh_token") != "rt1" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
		p.writeTokens(w, "at2", "rt2")
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
	}
}

func (p *fakeProvider) writeTokens(w http.ResponseWriter, access, refresh string) {
	body := map[string]any{
		"access_token":  access,
		"token_type":    "Bearer",
		"refresh_token": refresh,
		"expires_in":    3600,
	}
	p.mu.Lock()
	omit := p.omitIDToken
	p.mu.Unlock()
	if !omit {
		body["id_token"] = p.idToken(p.srv.URL)
	}
	writeJSON(w, http.StatusOK, body)
}

func (p *fakeProvider) idToken(issuer string) string {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":   issuer,
		"aud":   testClientID,
		"sub":   "user-1",
		"email": "a@b.com",
		"name":  "Ada Lovelace",
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	})
	tok.Header["kid"] = testKeyID
	signed, err := tok.SignedString(p.key)
	require.NoError(p.t, err)
	return signed
}

func (p *fakeProvider) revoke(w http.ResponseWriter, r *http.Request) {
	require.NoError(p.t, r.ParseForm())
	p.mu.Lock()
	p.revokedToken = r.PostForm.Get("token")
	p.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (p *fakeProvider) authenticator(t *testing.T, secret string) *authapi.OIDCAuthenticator {
	t.Helper()
	config := &oauth2.Config{
		ClientID:     testClientID,
		ClientSecret: secret,
		Endpoint:     oauth2.Endpoint{TokenURL: p.srv.URL + "/token", AuthStyle: oauth2.AuthStyleInHeader},
		Scopes:       []string{oidc.ScopeOpenID, "email"},
	}
	keys := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&p.key.PublicKey}}
	verifier := oidc.NewVerifier(p.srv.URL, keys, &oidc.Config{ClientID: testClientID})

	a, err := authapi.NewOIDCAuthenticator(config, verifier, testPolicy(t),
		authapi.WithRevocationURL(p.srv.URL+"/revoke"))
	require.NoError(t, err)
	return a
}

func TestOIDCAuthenticator_Login(t *testing.T) {
	p := newFakeProvider(t)
	a := p.authenticator(t, testClientSecret)

	grant, err := a.Login(context.Background(), "a@b.com", "x")
	require.NoError(t, err)
	require.Equal(t, "at1", grant.AccessToken)
	require.Equal(t, "rt1", grant.RefreshToken)
	require.Equal(t, "user-1", grant.Identity.ID)
	require.Equal(t, "a@b.com", grant.Identity.Email)
	require.Equal(t, "Ada Lovelace", grant.Identity.DisplayName)
	require.WithinDuration(t, time.Now().Add(time.Hour), grant.ExpiresAt, time.Minute)
}

func TestOIDCAuthenticator_LoginRejected(t *testing.T) {
	p := newFakeProvider(t)

	tests := []struct {
		name     string
		secret   string
		password string
	}{
		{"wrong password", testClientSecret, "nope"},
		{"wrong client secret", "other", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := p.tokens.Load()
			a := p.authenticator(t, tt.secret)

			_, err := a.Login(context.Background(), "a@b.com", tt.password)
			require.Equal(t, failure.Unauthorized, failure.KindOf(err))
			require.Equal(t, before+1, p.tokens.Load(), "a rejected grant is not retried")
		})
	}
}

func TestOIDCAuthenticator_LoginRequiresIDToken(t *testing.T) {
	p := newFakeProvider(t)
	p.omitIDToken = true
	a := p.authenticator(t, testClientSecret)

	_, err := a.Login(context.Background(), "a@b.com", "x")
	require.ErrorIs(t, err, authapi.ErrMissingIDToken)
	require.Equal(t, failure.InvalidResponse, failure.KindOf(err))
}

func TestOIDCAuthenticator_RejectsForeignIDToken(t *testing.T) {
	p := newFakeProvider(t)
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	config := &oauth2.Config{
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: p.srv.URL + "/token", AuthStyle: oauth2.AuthStyleInHeader},
	}
	keys := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&otherKey.PublicKey}}
	verifier := oidc.NewVerifier(p.srv.URL, keys, &oidc.Config{ClientID: testClientID})
	a, err := authapi.NewOIDCAuthenticator(config, verifier, testPolicy(t))
	require.NoError(t, err)

	_, err = a.Login(context.Background(), "a@b.com", "x")
	require.Equal(t, failure.InvalidResponse, failure.KindOf(err))
}

func TestOIDCAuthenticator_Refresh(t *testing.T) {
	p := newFakeProvider(t)
	a := p.authenticator(t, testClientSecret)

	grant, err := a.Refresh(context.Background(), "rt1")
	require.NoError(t, err)
	require.Equal(t, "at2", grant.AccessToken)
	require.Equal(t, "rt2", grant.RefreshToken)
	require.Equal(t, "user-1", grant.Identity.ID)

	_, err = a.Refresh(context.Background(), "revoked")
	require.Equal(t, failure.Unauthorized, failure.KindOf(err))
}

func TestOIDCAuthenticator_RefreshWithoutIDToken(t *testing.T) {
	p := newFakeProvider(t)
	p.omitIDToken = true
	a := p.authenticator(t, testClientSecret)

	grant, err := a.Refresh(context.Background(), "rt1")
	require.NoError(t, err)
	require.Equal(t, "at2", grant.AccessToken)
	require.Empty(t, grant.Identity.ID)
}

func TestOIDCAuthenticator_Revoke(t *testing.T) {
	p := newFakeProvider(t)
	a := p.authenticator(t, testClientSecret)

	require.NoError(t, a.Revoke(context.Background(), "at1", "rt1"))
	p.mu.Lock()
	defer p.mu.Unlock()
	require.Equal(t, "rt1", p.revokedToken)
}

func TestDiscoverOIDC(t *testing.T) {
	p := newFakeProvider(t)

	a, err := authapi.DiscoverOIDC(context.Background(), p.srv.URL, testClientID, testClientSecret,
		[]string{oidc.ScopeOpenID}, testPolicy(t))
	require.NoError(t, err)

	grant, err := a.Login(context.Background(), "a@b.com", "x")
	require.NoError(t, err)
	require.Equal(t, "user-1", grant.Identity.ID)

	require.NoError(t, a.Revoke(context.Background(), grant.AccessToken, grant.RefreshToken))
	p.mu.Lock()
	defer p.mu.Unlock()
	require.Equal(t, "rt1", p.revokedToken)
}

func TestDiscoverOIDC_UnreachableIssuer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	issuer := srv.URL
	srv.Close()

	_, err := authapi.DiscoverOIDC(context.Background(), issuer, testClientID, "", nil, testPolicy(t))
	require.Error(t, err)
}
