package storefake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-dash-session/credentials"
)

var _ credentials.Store = (*FakeStore)(nil)

// FakeStore is an in-memory credentials.Store that counts writes.
type FakeStore struct {
	cred    *credentials.StoredCredential
	LoadErr error // returned by Load when set
	SaveErr error // returned by Save when set
	saves   int
	clears  int
	lock    sync.RWMutex
}

func NewFakeStore() *FakeStore {
	return &FakeStore{}
}

// NewFakeStoreWith returns a store already holding cred.
func NewFakeStoreWith(cred credentials.StoredCredential) *FakeStore {
	c := cred.Clone()
	return &FakeStore{cred: &c}
}

func (fs *FakeStore) Save(_ context.Context, cred credentials.StoredCredential) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if fs.SaveErr != nil {
		return fs.SaveErr
	}
	if err := cred.Validate(); err != nil {
		return err
	}
	c := cred.Clone()
	fs.cred = &c
	fs.saves++
	return nil
}

func (fs *FakeStore) Load(_ context.Context) (*credentials.StoredCredential, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	if fs.LoadErr != nil {
		return nil, fs.LoadErr
	}
	if fs.cred == nil {
		return nil, credentials.ErrNotFound
	}
	c := fs.cred.Clone()
	return &c, nil
}

func (fs *FakeStore) Clear(_ context.Context) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.cred = nil
	fs.clears++
	return nil
}

// Saves returns how many successful saves happened.
func (fs *FakeStore) Saves() int {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return fs.saves
}

// Clears returns how many times Clear was called.
func (fs *FakeStore) Clears() int {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return fs.clears
}
