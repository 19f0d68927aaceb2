// Package retry runs an operation with a bounded number of attempts and a
// backoff delay between them.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-dash-session/failure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidMaxAttempts = errors.New("max attempts must be at least 1")
	ErrInvalidBaseDelay   = errors.New("base delay must be positive")
)

// Config controls the attempt budget and the wait between attempts.
type Config struct {
	MaxAttempts        int           // total attempts, 1 means no retries
	BaseDelay          time.Duration // wait after the first failure
	ExponentialBackoff bool          // wait BaseDelay*attempt instead of BaseDelay
}

// DefaultConfig is three attempts, 250ms apart and growing.
func DefaultConfig() Config {
	return Config{MaxAttempts: 3, BaseDelay: 250 * time.Millisecond, ExponentialBackoff: true}
}

func (c Config) Validate() error {
	if c.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}
	if c.BaseDelay <= 0 {
		return ErrInvalidBaseDelay
	}
	return nil
}

// Delay is the wait after failed attempt number attempt (1-based).
func (c Config) Delay(attempt int) time.Duration {
	if c.ExponentialBackoff {
		return c.BaseDelay * time.Duration(attempt)
	}
	return c.BaseDelay
}

// Schedule lists every wait a fully failing run goes through.
func (c Config) Schedule() []time.Duration {
	if c.MaxAttempts <= 1 {
		return nil
	}
	waits := make([]time.Duration, 0, c.MaxAttempts-1)
	for attempt := 1; attempt < c.MaxAttempts; attempt++ {
		waits = append(waits, c.Delay(attempt))
	}
	return waits
}

// Attempt describes one invocation of the operation. It is not persisted.
type Attempt struct {
	Number int           // 1-based
	Delay  time.Duration // wait before this attempt
	Err    error         // nil on success
	Kind   failure.Kind  // classification of Err
}

// Classifier maps an operation failure to its kind.
type Classifier func(error) failure.Kind

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Policy executes operations under a Config.
type Policy struct {
	config   Config
	sleep    Sleeper
	observer func(Attempt)
	logger   zerolog.Logger
}

// Option defines a function type to modify the Policy instance.
type Option func(*Policy)

// WithSleeper replaces the wait (primarily for testing)
func WithSleeper(s Sleeper) Option {
	return func(p *Policy) {
		p.sleep = s
	}
}

// WithObserver is called after every attempt.
func WithObserver(fn func(Attempt)) Option {
	return func(p *Policy) {
		p.observer = fn
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(p *Policy) {
		p.logger = logger
	}
}

// New validates cfg and returns a Policy.
func New(cfg Config, options ...Option) (*Policy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("[retry.New] %w", err)
	}
	p := &Policy{
		config: cfg,
		sleep:  Sleep,
		logger: log.Logger,
	}
	for _, opt := range options {
		opt(p)
	}
	return p, nil
}

// Config returns the policy's configuration.
func (p *Policy) Config() Config {
	return p.config
}

// Execute runs op until it succeeds, fails with a non-retryable kind, or the
// attempt budget is spent. The last failure is returned unchanged. If ctx is
// done, no further attempts are made and the context error is returned.
func (p *Policy) Execute(ctx context.Context, op func(ctx context.Context) error, classify Classifier) error {
	if classify == nil {
		classify = failure.Classify
	}

	var delay time.Duration
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			p.observe(Attempt{Number: attempt, Delay: delay})
			return nil
		}

		kind := classify(err)
		p.observe(Attempt{Number: attempt, Delay: delay, Err: err, Kind: kind})

		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w (attempt %d: %v)", ctxErr, attempt, err)
		}
		if !kind.Retryable() || attempt >= p.config.MaxAttempts {
			return err
		}

		delay = p.config.Delay(attempt)
		p.logger.Debug().
			Int("attempt", attempt).
			Str("kind", kind.String()).
			Dur("delay", delay).
			Msg("retrying after failure")

		if sleepErr := p.sleep(ctx, delay); sleepErr != nil {
			return fmt.Errorf("%w (attempt %d: %v)", sleepErr, attempt, err)
		}
	}
}

// Run is Execute for operations that produce a value.
func Run[T any](ctx context.Context, p *Policy, op func(ctx context.Context) (T, error), classify Classifier) (T, error) {
	var result T
	err := p.Execute(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	}, classify)
	return result, err
}

func (p *Policy) observe(a Attempt) {
	if p.observer != nil {
		p.observer(a)
	}
}

// Sleep waits for d without blocking other goroutines and returns early with
// ctx.Err() when ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
