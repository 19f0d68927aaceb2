// Package mockapi is a development backend for the dashboard client. It
// serves the auth endpoints and a couple of protected resources.
package mockapi

import (
	"errors"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-dash-session/internal/errors"
	"github.com/jrsteele09/go-dash-session/token"
	"github.com/jrsteele09/go-dash-session/token/refresh"
	"github.com/jrsteele09/go-dash-session/users"
)

// TokenResponse is returned by login and refresh.
type TokenResponse struct {
	AccessToken  string        `json:"access_token"`
	TokenType    string        `json:"token_type"`
	RefreshToken string        `json:"refresh_token,omitempty"`
	ExpiresIn    int64         `json:"expires_in"` // seconds
	Identity     users.Profile `json:"identity"`
}

// AuthService holds the backend's auth rules, independent of HTTP.
type AuthService struct {
	users   users.UserRepo
	issuer  *token.Issuer
	refresh *refresh.Manager
	nowTime func() time.Time
}

// AuthServiceOption defines a function type to modify the AuthService instance.
type AuthServiceOption func(*AuthService)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) AuthServiceOption {
	return func(s *AuthService) {
		s.nowTime = nowFunc
	}
}

func NewAuthService(userRepo users.UserRepo, issuer *token.Issuer, refreshManager *refresh.Manager, options ...AuthServiceOption) (*AuthService, error) {
	if userRepo == nil {
		return nil, errors.New("[NewAuthService] user repo is required")
	}
	if issuer == nil {
		return nil, errors.New("[NewAuthService] token issuer is required")
	}
	if refreshManager == nil {
		return nil, errors.New("[NewAuthService] refresh token manager is required")
	}
	s := &AuthService{
		users:   userRepo,
		issuer:  issuer,
		refresh: refreshManager,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Login checks the password and issues a token pair.
func (s *AuthService) Login(email, password string) (*TokenResponse, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "email and password are required")
	}

	user, err := s.users.GetByEmail(email)
	if err != nil {
		// Unknown users look the same as bad passwords.
		return nil, apperrors.ErrInvalidCredentials
	}
	if !users.CheckPasswordHash(password, user.PasswordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if user.Blocked {
		return nil, apperrors.ErrUserBlocked
	}

	if err := s.users.RecordLogin(user.Email, s.nowTime()); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInternal, "record login: %v", err)
	}
	return s.issue(user)
}

// Refresh rotates refreshToken and issues a new token pair for its owner.
func (s *AuthService) Refresh(refreshToken string) (*TokenResponse, error) {
	if refreshToken == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "refresh_token is required")
	}

	next, userID, err := s.refresh.Rotate(refreshToken)
	switch {
	case errors.Is(err, refresh.ErrExpired):
		return nil, apperrors.ErrRefreshTokenExpired
	case errors.Is(err, refresh.ErrInvalid):
		return nil, apperrors.ErrInvalidRefreshToken
	case err != nil:
		return nil, apperrors.Wrapf(apperrors.ErrInternal, "rotate refresh token: %v", err)
	}

	user, err := s.users.GetByID(userID)
	if err != nil {
		_ = s.refresh.Delete(next)
		return nil, apperrors.ErrInvalidRefreshToken
	}
	if user.Blocked {
		_ = s.refresh.Delete(next)
		return nil, apperrors.ErrUserBlocked
	}

	at, err := s.issuer.Issue(user)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInternal, "issue access token: %v", err)
	}
	return s.response(at, next, user), nil
}

// Logout revokes the access token, if one was presented, and drops the
// refresh token. Unknown tokens are ignored.
func (s *AuthService) Logout(claims *token.Claims, refreshToken string) error {
	if claims != nil {
		if err := s.issuer.Revoke(claims); err != nil {
			return apperrors.Wrapf(apperrors.ErrInternal, "revoke access token: %v", err)
		}
	}
	if refreshToken != "" {
		if err := s.refresh.Delete(refreshToken); err != nil && !errors.Is(err, refresh.ErrNotFound) {
			return apperrors.Wrapf(apperrors.ErrInternal, "delete refresh token: %v", err)
		}
	}
	return nil
}

// Authenticate validates a bearer access token.
func (s *AuthService) Authenticate(raw string) (*token.Claims, error) {
	claims, err := s.issuer.Validate(raw)
	switch {
	case errors.Is(err, token.ErrTokenExpired):
		return nil, apperrors.ErrTokenExpired
	case err != nil:
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "%v", err)
	}
	return claims, nil
}

// Profile returns the user behind an authenticated request.
func (s *AuthService) Profile(userID string) (*users.User, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, apperrors.ErrUserNotFound
	}
	return user, nil
}

func (s *AuthService) issue(user *users.User) (*TokenResponse, error) {
	at, err := s.issuer.Issue(user)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInternal, "issue access token: %v", err)
	}
	rt, err := s.refresh.Create(user.ID)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInternal, "issue refresh token: %v", err)
	}
	return s.response(at, rt, user), nil
}

func (s *AuthService) response(at *token.AccessToken, refreshToken string, user *users.User) *TokenResponse {
	expiresIn := int64(at.ExpiresAt.Sub(s.nowTime()).Round(time.Second) / time.Second)
	if expiresIn < 0 {
		expiresIn = 0
	}
	return &TokenResponse{
		AccessToken:  at.Token,
		TokenType:    "Bearer",
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
		Identity:     user.Profile(),
	}
}
