// Package token mints and validates the development backend's access tokens.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-dash-session/users"
)

var (
	ErrInvalidToken = errors.New("invalid access token")
	ErrTokenExpired = errors.New("access token expired")
	ErrTokenRevoked = errors.New("access token revoked")
)

// DefaultIssuer is the iss claim when none is configured.
const DefaultIssuer = "dashsession-mockapi"

// Claims is what a validated access token says about its bearer.
type Claims struct {
	Subject   string
	Email     string
	Name      string
	ID        string // jti
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// AccessToken is a freshly minted token.
type AccessToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// Issuer creates access tokens and checks them on the way back in.
type Issuer struct {
	signer  Signer
	revoked RevokedTokenCache
	issuer  string
	expiry  time.Duration
	nowTime func() time.Time
}

// IssuerOption defines a function type to modify the Issuer instance.
type IssuerOption func(*Issuer)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowTime = nowFunc
	}
}

func WithIssuer(iss string) IssuerOption {
	return func(i *Issuer) {
		i.issuer = iss
	}
}

func NewIssuer(signer Signer, revoked RevokedTokenCache, expiry time.Duration, options ...IssuerOption) (*Issuer, error) {
	if signer == nil {
		return nil, errors.New("[NewIssuer] signer is required")
	}
	if revoked == nil {
		return nil, errors.New("[NewIssuer] revoked token cache is required")
	}
	if expiry <= 0 {
		return nil, errors.New("[NewIssuer] access token expiry must be positive")
	}
	i := &Issuer{
		signer:  signer,
		revoked: revoked,
		issuer:  DefaultIssuer,
		expiry:  expiry,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(i)
	}
	return i, nil
}

// Expiry is the lifetime of new access tokens.
func (i *Issuer) Expiry() time.Duration {
	return i.expiry
}

func (i *Issuer) Issue(user *users.User) (*AccessToken, error) {
	now := i.nowTime()
	exp := now.Add(i.expiry)
	jti := uuid.New().String()

	claims := jwt.MapClaims{
		"iss":   i.issuer,         // The issuer of the token
		"sub":   user.ID,          // The user the token was issued to
		"email": user.Email,       // Lets clients show who is signed in without a round trip
		"name":  user.DisplayName, // Display name
		"iat":   now.Unix(),       // Issued At
		"exp":   exp.Unix(),       // Expiry
		"jti":   jti,              // Unique token ID for revocation
	}
	signed, err := i.signer.Sign(claims)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	return &AccessToken{Token: signed, ID: jti, ExpiresAt: time.Unix(exp.Unix(), 0)}, nil
}

// Validate verifies signature, issuer, expiry and revocation.
func (i *Issuer) Validate(raw string) (*Claims, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrInvalidToken
	}

	mc := jwt.MapClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{i.signer.GetSigningMethod().Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.nowTime),
	)
	if _, err := parser.ParseWithClaims(raw, mc, i.signer.GetVerificationKey); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	c := &Claims{}
	c.Subject, _ = mc["sub"].(string)
	c.Email, _ = mc["email"].(string)
	c.Name, _ = mc["name"].(string)
	c.ID, _ = mc["jti"].(string)
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	if c.Subject == "" || c.ID == "" {
		return nil, ErrInvalidToken
	}
	if i.revoked.IsRevoked(c.ID) {
		return nil, ErrTokenRevoked
	}
	return c, nil
}

// Revoke blocks the token with claims c until it would have expired anyway.
func (i *Issuer) Revoke(c *Claims) error {
	i.revoked.Cleanup(i.nowTime())
	return i.revoked.Add(c.ID, c.ExpiresAt)
}
