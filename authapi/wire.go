package authapi

import (
	"encoding/json"

	"github.com/jrsteele09/go-dash-session/session"
)

// The backend answers in snake_case, but camelCase bodies
// ({"accessToken": ..., "identity": {"displayName": ...}}) are accepted too.
// When both spellings are present the snake_case one wins.

type wireIdentity struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	DisplayName      string `json:"display_name"`
	DisplayNameCamel string `json:"displayName"`
}

func (w wireIdentity) identity() *session.Identity {
	return &session.Identity{
		ID:          w.ID,
		Email:       w.Email,
		DisplayName: firstSet(w.DisplayName, w.DisplayNameCamel),
	}
}

func (r *TokenResponse) UnmarshalJSON(data []byte) error {
	var w struct {
		AccessToken       string        `json:"access_token"`
		AccessTokenCamel  string        `json:"accessToken"`
		TokenType         string        `json:"token_type"`
		TokenTypeCamel    string        `json:"tokenType"`
		RefreshToken      string        `json:"refresh_token"`
		RefreshTokenCamel string        `json:"refreshToken"`
		ExpiresIn         int64         `json:"expires_in"`
		ExpiresInCamel    int64         `json:"expiresIn"`
		Identity          *wireIdentity `json:"identity"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*r = TokenResponse{
		AccessToken:  firstSet(w.AccessToken, w.AccessTokenCamel),
		TokenType:    firstSet(w.TokenType, w.TokenTypeCamel),
		RefreshToken: firstSet(w.RefreshToken, w.RefreshTokenCamel),
		ExpiresIn:    firstSet(w.ExpiresIn, w.ExpiresInCamel),
	}
	if w.Identity != nil {
		r.Identity = w.Identity.identity()
	}
	return nil
}

func firstSet[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}
