package config

import "time"

type APIConfig interface {
	GetBaseURL() string
	GetRequestTimeout() time.Duration
}

type API struct {
	file *File
}

var _ APIConfig = API{}

// GetBaseURL returns the root of the dashboard API (e.g., "https://api.example.com")
func (a API) GetBaseURL() string {
	return GetEnv("API_BASE_URL", orDefault(a.file.API.BaseURL, "http://localhost:8080"))
}

// GetRequestTimeout bounds a single transport round trip, not the whole retry sequence.
func (a API) GetRequestTimeout() time.Duration {
	return GetEnvDuration("API_TIMEOUT", orDefault(a.file.API.Timeout, 10*time.Second))
}
