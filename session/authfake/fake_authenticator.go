package authfake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-dash-session/session"
)

var _ session.Authenticator = (*FakeAuthenticator)(nil)

// FakeAuthenticator answers from the configured funcs and counts calls.
// A nil func succeeds with Grant (for Login/Refresh) or nil (for Revoke).
type FakeAuthenticator struct {
	Grant       session.Grant
	LoginFunc   func(ctx context.Context, email, password string) (*session.Grant, error)
	RefreshFunc func(ctx context.Context, refreshToken string) (*session.Grant, error)
	RevokeFunc  func(ctx context.Context, accessToken, refreshToken string) error

	lock    sync.Mutex
	logins  int
	refresh int
	revokes int
}

func NewFakeAuthenticator(grant session.Grant) *FakeAuthenticator {
	return &FakeAuthenticator{Grant: grant}
}

func (fa *FakeAuthenticator) Login(ctx context.Context, email, password string) (*session.Grant, error) {
	fa.lock.Lock()
	fa.logins++
	fn := fa.LoginFunc
	fa.lock.Unlock()

	if fn != nil {
		return fn(ctx, email, password)
	}
	g := fa.Grant
	return &g, nil
}

func (fa *FakeAuthenticator) Refresh(ctx context.Context, refreshToken string) (*session.Grant, error) {
	fa.lock.Lock()
	fa.refresh++
	fn := fa.RefreshFunc
	fa.lock.Unlock()

	if fn != nil {
		return fn(ctx, refreshToken)
	}
	g := fa.Grant
	return &g, nil
}

func (fa *FakeAuthenticator) Revoke(ctx context.Context, accessToken, refreshToken string) error {
	fa.lock.Lock()
	fa.revokes++
	fn := fa.RevokeFunc
	fa.lock.Unlock()

	if fn != nil {
		return fn(ctx, accessToken, refreshToken)
	}
	return nil
}

func (fa *FakeAuthenticator) Logins() int {
	fa.lock.Lock()
	defer fa.lock.Unlock()
	return fa.logins
}

func (fa *FakeAuthenticator) Refreshes() int {
	fa.lock.Lock()
	defer fa.lock.Unlock()
	return fa.refresh
}

func (fa *FakeAuthenticator) Revokes() int {
	fa.lock.Lock()
	defer fa.lock.Unlock()
	return fa.revokes
}
