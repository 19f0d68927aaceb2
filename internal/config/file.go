package config

import "time"

// File is the on-disk YAML layout. Zero values fall through to defaults.
type File struct {
	AppName string `yaml:"app_name"`
	Env     string `yaml:"env"`
	Log     struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // "console" | "json"
	} `yaml:"log"`
	API struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"api"`
	Retry struct {
		MaxAttempts        int           `yaml:"max_attempts"`
		BaseDelay          time.Duration `yaml:"base_delay"`
		ExponentialBackoff *bool         `yaml:"exponential_backoff"`
	} `yaml:"retry"`
	Storage struct {
		Driver string `yaml:"driver"` // "file" | "sqlite"
		Path   string `yaml:"path"`
	} `yaml:"storage"`
	Auth struct {
		Mode             string   `yaml:"mode"` // "api" | "oidc"
		RefreshOnExpiry  *bool    `yaml:"refresh_on_unauthorized"`
		OIDCIssuer       string   `yaml:"oidc_issuer"`
		OIDCClientID     string   `yaml:"oidc_client_id"`
		OIDCClientSecret string   `yaml:"oidc_client_secret"`
		OIDCScopes       []string `yaml:"oidc_scopes"`
	} `yaml:"auth"`
	MockAPI struct {
		Port               string        `yaml:"port"`
		JWTSecret          string        `yaml:"jwt_secret"`
		AccessTokenExpiry  time.Duration `yaml:"access_token_expiry"`
		RefreshTokenExpiry time.Duration `yaml:"refresh_token_expiry"`
		RefreshTokenLength int           `yaml:"refresh_token_length"`
	} `yaml:"mockapi"`
}
