package credentials

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExpiresAt reports when the access token stops being valid, as far as can be
// told locally: the stored hint first, then the exp claim if the token is a
// JWT. The signature is not verified; the server remains the authority.
func (c StoredCredential) ExpiresAt() (time.Time, bool) {
	if c.ExpiresAtHint != nil && !c.ExpiresAtHint.IsZero() {
		return *c.ExpiresAtHint, true
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(c.AccessToken, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// ExpiredAt is true only when the expiry is known and not after now.
func (c StoredCredential) ExpiredAt(now time.Time) bool {
	exp, ok := c.ExpiresAt()
	return ok && !exp.After(now)
}
