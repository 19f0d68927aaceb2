// Package credentials persists the session's tokens across process restarts.
//
// Exactly one StoredCredential is kept per profile, under StorageKey. Writes
// are atomic: a crash mid-save leaves either the previous credential or the
// new one, never a partial record.
package credentials

import (
	"context"
	"errors"
	"time"
)

// StorageKey is the fixed key the credential is stored under.
const StorageKey = "dashsession.credential"

var (
	// ErrNotFound means no credential is stored. It is not a failure.
	ErrNotFound = errors.New("credential not found")

	// ErrStorageCorrupt means the stored credential cannot be read back, either
	// because the bytes do not decode or because reading them failed. Callers
	// treat it as absent.
	ErrStorageCorrupt = errors.New("credential storage corrupt")

	// ErrEmptyAccessToken rejects saving a credential without a token.
	ErrEmptyAccessToken = errors.New("credential has no access token")
)

// Identity is the user the credential was issued to.
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

// StoredCredential is the persisted form of a session's tokens.
type StoredCredential struct {
	AccessToken   string     `json:"access_token"`
	RefreshToken  string     `json:"refresh_token,omitempty"`
	ExpiresAtHint *time.Time `json:"expires_at_hint,omitempty"`
	Identity      *Identity  `json:"identity,omitempty"`
}

// Validate checks the fields every stored credential must carry.
func (c StoredCredential) Validate() error {
	if c.AccessToken == "" {
		return ErrEmptyAccessToken
	}
	return nil
}

// Clone returns a deep copy so stores never share pointers with callers.
func (c StoredCredential) Clone() StoredCredential {
	out := c
	if c.ExpiresAtHint != nil {
		t := *c.ExpiresAtHint
		out.ExpiresAtHint = &t
	}
	if c.Identity != nil {
		id := *c.Identity
		out.Identity = &id
	}
	return out
}

// Store persists a single credential.
type Store interface {
	// Save replaces the stored credential atomically.
	Save(ctx context.Context, cred StoredCredential) error

	// Load returns the stored credential, ErrNotFound when there is none, or
	// an error wrapping ErrStorageCorrupt.
	Load(ctx context.Context) (*StoredCredential, error)

	// Clear removes the stored credential. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}
