package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnvVar = "DASHSESSION_CONFIG"
	configDir        = "dashsession"
	configFile       = "config.yaml"
)

type Config interface {
	EnvConfig
	APIConfig
	RetryConfig
	StorageConfig
	AuthConfig
	MockAPIConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetLogFormat() string
}

type mainConfig struct {
	EnvVars
	API
	Retry
	Storage
	Auth
	MockAPI
}

// New returns a Config backed by environment variables only.
func New() Config {
	return newMainConfig(&File{})
}

// Load reads the YAML config file at path and layers environment variables
// over it. An empty path resolves to DefaultPath. A missing file is not an
// error.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	f, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return newMainConfig(f), nil
}

func newMainConfig(f *File) mainConfig {
	return mainConfig{
		EnvVars: EnvVars{file: f},
		API:     API{file: f},
		Retry:   Retry{file: f},
		Storage: Storage{file: f},
		Auth:    Auth{file: f},
		MockAPI: MockAPI{file: f},
	}
}

// DefaultPath is $DASHSESSION_CONFIG or ~/.config/dashsession/config.yaml.
func DefaultPath() string {
	if p := os.Getenv(configPathEnvVar); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return configFile
	}
	return filepath.Join(dir, configDir, configFile)
}

// ReadFile parses a YAML config file. A missing file yields an empty File.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &File{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &f, nil
}
