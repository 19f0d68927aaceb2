// Package session owns the client's authentication state machine.
//
// A Manager holds exactly one Session and is the only writer of the
// credentials.Store. States and transitions:
//
//	Anonymous      --Login-->              Authenticating
//	Authenticating --success-->            Authenticated   (store written)
//	Authenticating --failure-->            Error           (LastError set)
//	Authenticated  --Logout-->             Anonymous       (store cleared)
//	Authenticated  --unauthorized signal-> Expired         (store cleared)
//	Expired, Error, Authenticated --Login--> Authenticating
//	Anonymous      --Restore-->            Authenticated   (stored credential not expired)
//
// Every state reaches Anonymous through Logout.
package session

import (
	"time"

	"github.com/jrsteele09/go-dash-session/credentials"
	"github.com/jrsteele09/go-dash-session/failure"
)

// Status is the state of the session.
type Status int

const (
	Anonymous Status = iota
	Authenticating
	Authenticated
	Expired
	Error
)

func (s Status) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Expired:
		return "expired"
	case Error:
		return "error"
	}
	return "invalid"
}

// Identity is the signed in user.
type Identity = credentials.Identity

// Session is a snapshot of the authenticated identity.
// AccessToken and Identity are set iff Status is Authenticated.
type Session struct {
	Status       Status
	Identity     *Identity
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	LastError    *failure.Kind
}

func (s Session) clone() Session {
	out := s
	if s.Identity != nil {
		id := *s.Identity
		out.Identity = &id
	}
	if s.ExpiresAt != nil {
		t := *s.ExpiresAt
		out.ExpiresAt = &t
	}
	if s.LastError != nil {
		k := *s.LastError
		out.LastError = &k
	}
	return out
}

func (s Session) credential() credentials.StoredCredential {
	return credentials.StoredCredential{
		AccessToken:   s.AccessToken,
		RefreshToken:  s.RefreshToken,
		ExpiresAtHint: s.ExpiresAt,
		Identity:      s.Identity,
	}.Clone()
}

// Grant is what an Authenticator returns for a successful login or refresh.
type Grant struct {
	AccessToken  string
	RefreshToken string    // optional
	ExpiresAt    time.Time // zero when the backend gives no hint
	Identity     Identity
}
