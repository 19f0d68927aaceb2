package session

import "context"

// Authenticator exchanges user credentials for tokens with the backend.
// Failures should be classifiable by failure.Classify.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*Grant, error)
	Refresh(ctx context.Context, refreshToken string) (*Grant, error)

	// Revoke invalidates the tokens server side. Logout ignores its error.
	Revoke(ctx context.Context, accessToken, refreshToken string) error
}
