package config

import (
	"strings"
)

const (
	AuthModeAPI  = "api"
	AuthModeOIDC = "oidc"
)

type AuthConfig interface {
	GetAuthMode() string
	GetRefreshOnUnauthorized() bool
	GetOIDCIssuer() string
	GetOIDCClientID() string
	GetOIDCClientSecret() string
	GetOIDCScopes() []string
}

type Auth struct {
	file *File
}

var _ AuthConfig = Auth{}

func (a Auth) GetAuthMode() string {
	return GetEnv("AUTH_MODE", orDefault(a.file.Auth.Mode, AuthModeAPI))
}

func (a Auth) GetRefreshOnUnauthorized() bool {
	return GetEnvBool("AUTH_REFRESH_ON_UNAUTHORIZED", boolOrDefault(a.file.Auth.RefreshOnExpiry, false))
}

func (a Auth) GetOIDCIssuer() string {
	return GetEnv("OIDC_ISSUER", a.file.Auth.OIDCIssuer)
}

func (a Auth) GetOIDCClientID() string {
	return GetEnv("OIDC_CLIENT_ID", a.file.Auth.OIDCClientID)
}

func (a Auth) GetOIDCClientSecret() string {
	return GetEnv("OIDC_CLIENT_SECRET", a.file.Auth.OIDCClientSecret)
}

// GetOIDCScopes reads OIDC_SCOPES as a space separated list.
func (a Auth) GetOIDCScopes() []string {
	if v := GetEnv("OIDC_SCOPES", ""); v != "" {
		return strings.Fields(v)
	}
	if len(a.file.Auth.OIDCScopes) > 0 {
		return a.file.Auth.OIDCScopes
	}
	return []string{"openid", "profile", "email", "offline_access"}
}
