package refreshrepofake

import (
	"sync"

	"github.com/jrsteele09/go-dash-session/token/refresh"
)

var _ refresh.Repo = (*FakeRefreshTokenRepo)(nil)

type FakeRefreshTokenRepo struct {
	tokens  map[string]*refresh.StoredRefreshToken
	userIDs map[string]string // user ID to token ID
	lock    sync.RWMutex
}

func NewFakeRefreshTokenRepo() *FakeRefreshTokenRepo {
	return &FakeRefreshTokenRepo{
		tokens:  make(map[string]*refresh.StoredRefreshToken),
		userIDs: make(map[string]string),
	}
}

func (tr *FakeRefreshTokenRepo) Upsert(refreshToken *refresh.StoredRefreshToken) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	rt := *refreshToken
	tr.tokens[rt.Token] = &rt
	tr.userIDs[rt.UserID] = rt.Token
	return nil
}

func (tr *FakeRefreshTokenRepo) Delete(token string) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	rt, ok := tr.tokens[token]
	if !ok {
		return refresh.ErrNotFound
	}
	if tr.userIDs[rt.UserID] == token {
		delete(tr.userIDs, rt.UserID)
	}
	delete(tr.tokens, token)
	return nil
}

func (tr *FakeRefreshTokenRepo) DeleteByUserID(userID string) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	token, ok := tr.userIDs[userID]
	if !ok {
		return refresh.ErrNotFound
	}
	delete(tr.userIDs, userID)
	delete(tr.tokens, token)
	return nil
}

func (tr *FakeRefreshTokenRepo) Get(token string) (*refresh.StoredRefreshToken, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	rt, ok := tr.tokens[token]
	if !ok {
		return nil, refresh.ErrNotFound
	}
	out := *rt
	return &out, nil
}
