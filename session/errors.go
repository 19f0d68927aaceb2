package session

import "errors"

var (
	// ErrSessionBusy rejects a login, logout or refresh while another is in flight.
	ErrSessionBusy = errors.New("session busy")

	// ErrNotAuthenticated is returned by operations that need a signed in session.
	ErrNotAuthenticated = errors.New("session not authenticated")

	// ErrNoRefreshToken means the session cannot be renewed without credentials.
	ErrNoRefreshToken = errors.New("session has no refresh token")

	// ErrInvalidGrant means the backend answered without a token or identity.
	ErrInvalidGrant = errors.New("grant missing access token or identity")
)
