package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	appNameVar   = "APP_NAME"
	envVar       = "ENV"
	logLevelVar  = "LOG_LEVEL"
	logFormatVar = "LOG_FORMAT"
)

type EnvVars struct {
	file *File
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return GetEnv(appNameVar, orDefault(e.file.AppName, "Dash Session"))
}

func (e EnvVars) GetEnv() string {
	return strings.ToUpper(GetEnv(envVar, orDefault(e.file.Env, "DEV")))
}

func (e EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, orDefault(e.file.Log.Level, "info"))
}

func (e EnvVars) GetLogFormat() string {
	return GetEnv(logFormatVar, orDefault(e.file.Log.Format, "console"))
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetEnvInt falls back to defaultValue when the variable is unset or not a number.
func GetEnvInt(envVar string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(envVar))
	if err != nil {
		return defaultValue
	}
	return value
}

// GetEnvDuration accepts Go duration syntax, e.g. "250ms".
func GetEnvDuration(envVar string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(envVar))
	if err != nil {
		return defaultValue
	}
	return value
}

func GetEnvBool(envVar string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(envVar))
	if err != nil {
		return defaultValue
	}
	return value
}

func orDefault[T comparable](value, defaultValue T) T {
	var zero T
	if value == zero {
		return defaultValue
	}
	return value
}

func boolOrDefault(value *bool, defaultValue bool) bool {
	if value == nil {
		return defaultValue
	}
	return *value
}
