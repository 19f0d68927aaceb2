package config

import "time"

type RetryConfig interface {
	GetMaxAttempts() int
	GetBaseDelay() time.Duration
	GetExponentialBackoff() bool
}

type Retry struct {
	file *File
}

var _ RetryConfig = Retry{}

func (r Retry) GetMaxAttempts() int {
	return GetEnvInt("RETRY_MAX_ATTEMPTS", orDefault(r.file.Retry.MaxAttempts, 3))
}

func (r Retry) GetBaseDelay() time.Duration {
	return GetEnvDuration("RETRY_BASE_DELAY", orDefault(r.file.Retry.BaseDelay, 250*time.Millisecond))
}

func (r Retry) GetExponentialBackoff() bool {
	return GetEnvBool("RETRY_EXPONENTIAL", boolOrDefault(r.file.Retry.ExponentialBackoff, true))
}
