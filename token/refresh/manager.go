// Package refresh issues opaque refresh tokens and rotates them on use.
package refresh

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalid = errors.New("invalid refresh token")
	ErrExpired = errors.New("refresh token expired")
)

// Config is the part of the backend configuration refresh tokens need.
type Config interface {
	GetRefreshTokenLength() int
	GetRefreshTokenExpiry() time.Duration
}

// Manager handles refresh token creation, validation, and rotation
type Manager struct {
	repo    Repo
	config  Config
	nowTime func() time.Time
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// NewManager creates a new refresh token manager
func NewManager(repo Repo, cfg Config, options ...ManagerOption) *Manager {
	m := &Manager{
		repo:    repo,
		config:  cfg,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Create generates a new refresh token for userID and stores it. Each user
// holds at most one refresh token, so signing in elsewhere drops the old one.
func (m *Manager) Create(userID string) (string, error) {
	if err := m.repo.DeleteByUserID(userID); err != nil && !errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("failed to delete existing refresh token: %w", err)
	}

	tokenBytes := make([]byte, m.config.GetRefreshTokenLength())
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	tokenStr := hex.EncodeToString(tokenBytes)
	if err := m.repo.Upsert(&StoredRefreshToken{
		Token:  tokenStr,
		UserID: userID,
		Iat:    m.nowTime(),
	}); err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}
	return tokenStr, nil
}

// Rotate consumes token and issues a replacement for the same user. An
// expired token is deleted and rejected.
func (m *Manager) Rotate(token string) (newToken, userID string, err error) {
	rt, err := m.repo.Get(token)
	if err != nil {
		return "", "", ErrInvalid
	}
	if m.IsExpired(rt) {
		_ = m.repo.Delete(token)
		return "", "", ErrExpired
	}

	newToken, err = m.Create(rt.UserID)
	if err != nil {
		return "", "", err
	}
	return newToken, rt.UserID, nil
}

// Get retrieves a refresh token from storage
func (m *Manager) Get(token string) (*StoredRefreshToken, error) {
	return m.repo.Get(token)
}

// Delete removes a refresh token from storage
func (m *Manager) Delete(token string) error {
	return m.repo.Delete(token)
}

func (m *Manager) IsExpired(rt *StoredRefreshToken) bool {
	return m.nowTime().Sub(rt.Iat) > m.config.GetRefreshTokenExpiry()
}
