package token_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-dash-session/token"
	"github.com/jrsteele09/go-dash-session/users"
	"github.com/stretchr/testify/require"
)

// testFixture holds all test dependencies
type testFixture struct {
	now     time.Time
	revoked *token.InMemoryRevokedTokenCache
	issuer  *token.Issuer
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{
		now:     time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
		revoked: token.NewInMemoryRevokedTokenCache(),
	}
	issuer, err := token.NewIssuer(token.NewHMACSigner("test-secret"), f.revoked, 15*time.Minute,
		token.WithNowTime(func() time.Time { return f.now }))
	require.NoError(t, err)
	f.issuer = issuer
	return f
}

var testUser = &users.User{ID: "u1", Email: "a@b.com", DisplayName: "Ada"}

func TestIssueAndValidate(t *testing.T) {
	f := setupTestFixture(t)

	at, err := f.issuer.Issue(testUser)
	require.NoError(t, err)
	require.NotEmpty(t, at.ID)
	require.Equal(t, f.now.Add(15*time.Minute), at.ExpiresAt.UTC())

	claims, err := f.issuer.Validate(at.Token)
	require.NoError(t, err)
	require.Equal(t, "u1", claims.Subject)
	require.Equal(t, "a@b.com", claims.Email)
	require.Equal(t, "Ada", claims.Name)
	require.Equal(t, at.ID, claims.ID)
	require.Equal(t, at.ExpiresAt.Unix(), claims.ExpiresAt.Unix())
}

func TestIssue_UniqueIDs(t *testing.T) {
	f := setupTestFixture(t)
	a, err := f.issuer.Issue(testUser)
	require.NoError(t, err)
	b, err := f.issuer.Issue(testUser)
	require.NoError(t, err)
	require.NotEqual(t, a.ID, b.ID)
	require.NotEqual(t, a.Token, b.Token)
}

func TestValidate_Expired(t *testing.T) {
	f := setupTestFixture(t)
	at, err := f.issuer.Issue(testUser)
	require.NoError(t, err)

	f.now = f.now.Add(16 * time.Minute)
	_, err = f.issuer.Validate(at.Token)
	require.ErrorIs(t, err, token.ErrTokenExpired)
}

func TestValidate_Rejects(t *testing.T) {
	f := setupTestFixture(t)

	other, err := token.NewIssuer(token.NewHMACSigner("other-secret"), token.NewInMemoryRevokedTokenCache(), time.Minute)
	require.NoError(t, err)
	foreign, err := other.Issue(testUser)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"iss": token.DefaultIssuer,
		"sub": "u1",
		"jti": "x",
		"exp": f.now.Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"empty":      "",
		"garbage":    "not-a-jwt",
		"wrong key":  foreign.Token,
		"alg none":   unsigned,
		"whitespace": "   ",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := f.issuer.Validate(raw)
			require.ErrorIs(t, err, token.ErrInvalidToken)
		})
	}
}

func TestRevoke(t *testing.T) {
	f := setupTestFixture(t)
	at, err := f.issuer.Issue(testUser)
	require.NoError(t, err)

	claims, err := f.issuer.Validate(at.Token)
	require.NoError(t, err)
	require.NoError(t, f.issuer.Revoke(claims))

	_, err = f.issuer.Validate(at.Token)
	require.ErrorIs(t, err, token.ErrTokenRevoked)

	// Entries are dropped once the token would have expired.
	f.now = f.now.Add(time.Hour)
	f.revoked.Cleanup(f.now)
	require.Zero(t, f.revoked.Len())
}

func TestNewIssuer_Validation(t *testing.T) {
	_, err := token.NewIssuer(nil, token.NewInMemoryRevokedTokenCache(), time.Minute)
	require.Error(t, err)
	_, err = token.NewIssuer(token.NewHMACSigner("s"), nil, time.Minute)
	require.Error(t, err)
	_, err = token.NewIssuer(token.NewHMACSigner("s"), token.NewInMemoryRevokedTokenCache(), 0)
	require.Error(t, err)
}
