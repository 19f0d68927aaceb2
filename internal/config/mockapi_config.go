package config

import (
	"fmt"
	"strings"
	"time"
)

type MockAPIConfig interface {
	GetPort() string
	GetJWTSecret() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetRefreshTokenLength() int
}

type MockAPI struct {
	file *File
}

var _ MockAPIConfig = MockAPI{}

func (m MockAPI) GetPort() string {
	port := GetEnv("PORT", orDefault(m.file.MockAPI.Port, "8080"))
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (m MockAPI) GetJWTSecret() string {
	return GetEnv("JWT_SECRET", orDefault(m.file.MockAPI.JWTSecret, "dev-secret-change-me"))
}

func (m MockAPI) GetAccessTokenExpiry() time.Duration {
	return GetEnvDuration("ACCESS_TOKEN_EXPIRY", orDefault(m.file.MockAPI.AccessTokenExpiry, 15*time.Minute))
}

func (m MockAPI) GetRefreshTokenExpiry() time.Duration {
	return GetEnvDuration("REFRESH_TOKEN_EXPIRY", orDefault(m.file.MockAPI.RefreshTokenExpiry, 7*24*time.Hour))
}

func (m MockAPI) GetRefreshTokenLength() int {
	return orDefault(m.file.MockAPI.RefreshTokenLength, 32) // 32 bytes = 256 bits
}
