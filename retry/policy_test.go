package retry_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-dash-session/failure"
	"github.com/jrsteele09/go-dash-session/retry"
	"github.com/stretchr/testify/require"
)

// recordingSleeper records waits instead of sleeping.
type recordingSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waits = append(r.waits, d)
	return ctx.Err()
}

func (r *recordingSleeper) total() time.Duration {
	var sum time.Duration
	for _, w := range r.waits {
		sum += w
	}
	return sum
}

func newPolicy(t *testing.T, cfg retry.Config, opts ...retry.Option) (*retry.Policy, *recordingSleeper) {
	t.Helper()
	rs := &recordingSleeper{}
	p, err := retry.New(cfg, append([]retry.Option{retry.WithSleeper(rs.sleep)}, opts...)...)
	require.NoError(t, err)
	return p, rs
}

func failingWith(kind failure.Kind, calls *int) func(context.Context) error {
	return func(context.Context) error {
		*calls++
		return failure.New(kind, errors.New("boom"))
	}
}

func TestConfig_Validate(t *testing.T) {
	require.ErrorIs(t, retry.Config{MaxAttempts: 0, BaseDelay: time.Millisecond}.Validate(), retry.ErrInvalidMaxAttempts)
	require.ErrorIs(t, retry.Config{MaxAttempts: 1, BaseDelay: 0}.Validate(), retry.ErrInvalidBaseDelay)
	require.NoError(t, retry.Config{MaxAttempts: 1, BaseDelay: time.Millisecond}.Validate())

	_, err := retry.New(retry.Config{})
	require.Error(t, err)
}

func TestConfig_Schedule(t *testing.T) {
	linear := retry.Config{MaxAttempts: 4, BaseDelay: 100 * time.Millisecond}
	require.Equal(t, []time.Duration{100 * time.Millisecond, 100 * time.Millisecond, 100 * time.Millisecond}, linear.Schedule())

	growing := retry.Config{MaxAttempts: 4, BaseDelay: 100 * time.Millisecond, ExponentialBackoff: true}
	require.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond}, growing.Schedule())

	require.Nil(t, retry.Config{MaxAttempts: 1, BaseDelay: time.Second}.Schedule())
}

func TestExecute_RetryableInvokesExactlyMaxAttempts(t *testing.T) {
	retryable := []failure.Kind{failure.Network, failure.Timeout, failure.ServerFault, failure.RateLimited, failure.Unknown}

	for n := 1; n <= 5; n++ {
		for _, kind := range retryable {
			for _, exp := range []bool{false, true} {
				cfg := retry.Config{MaxAttempts: n, BaseDelay: 10 * time.Millisecond, ExponentialBackoff: exp}
				p, rs := newPolicy(t, cfg)

				calls := 0
				err := p.Execute(context.Background(), failingWith(kind, &calls), nil)

				require.Equal(t, kind, failure.KindOf(err))
				require.Equal(t, n, calls, "n=%d kind=%s", n, kind)
				require.Equal(t, cfg.Schedule(), nilIfEmpty(rs.waits))
			}
		}
	}
}

func nilIfEmpty(d []time.Duration) []time.Duration {
	if len(d) == 0 {
		return nil
	}
	return d
}

func TestExecute_NonRetryableInvokesOnce(t *testing.T) {
	for _, kind := range []failure.Kind{failure.Unauthorized, failure.Forbidden, failure.NotFound, failure.InvalidResponse} {
		t.Run(kind.String(), func(t *testing.T) {
			p, rs := newPolicy(t, retry.Config{MaxAttempts: 5, BaseDelay: time.Millisecond})

			calls := 0
			err := p.Execute(context.Background(), failingWith(kind, &calls), nil)

			require.Equal(t, kind, failure.KindOf(err))
			require.Equal(t, 1, calls)
			require.Empty(t, rs.waits)
		})
	}
}

func TestExecute_SuccessStopsImmediately(t *testing.T) {
	p, rs := newPolicy(t, retry.Config{MaxAttempts: 5, BaseDelay: time.Millisecond})

	calls := 0
	err := p.Execute(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return failure.NewStatusError(http.StatusServiceUnavailable, nil)
		}
		return nil
	}, nil)

	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.Len(t, rs.waits, 2)
}

func TestExecute_ExponentialScheduleScenario(t *testing.T) {
	var attempts []retry.Attempt
	p, rs := newPolicy(t,
		retry.Config{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond, ExponentialBackoff: true},
		retry.WithObserver(func(a retry.Attempt) { attempts = append(attempts, a) }),
	)

	calls := 0
	err := p.Execute(context.Background(), failingWith(failure.ServerFault, &calls), nil)

	require.ErrorIs(t, err, failure.ErrServerFault)
	require.Equal(t, 3, calls)
	require.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, rs.waits)
	require.Equal(t, 300*time.Millisecond, rs.total())

	require.Len(t, attempts, 3)
	for i, a := range attempts {
		require.Equal(t, i+1, a.Number)
		require.Equal(t, failure.ServerFault, a.Kind)
	}
	require.Equal(t, time.Duration(0), attempts[0].Delay)
	require.Equal(t, 200*time.Millisecond, attempts[2].Delay)
}

func TestExecute_RealTimeSchedule(t *testing.T) {
	p, err := retry.New(retry.Config{MaxAttempts: 3, BaseDelay: 20 * time.Millisecond, ExponentialBackoff: true})
	require.NoError(t, err)

	start := time.Now()
	var offsets []time.Duration
	err = p.Execute(context.Background(), func(context.Context) error {
		offsets = append(offsets, time.Since(start))
		return failure.NewStatusError(http.StatusBadGateway, nil)
	}, nil)

	require.ErrorIs(t, failure.Wrap(err), failure.ErrServerFault)
	require.Len(t, offsets, 3)
	require.Less(t, offsets[0], 20*time.Millisecond)
	require.GreaterOrEqual(t, offsets[1], 20*time.Millisecond)
	require.GreaterOrEqual(t, offsets[2], 60*time.Millisecond)
}

func TestExecute_CancelStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p, err := retry.New(retry.Config{MaxAttempts: 10, BaseDelay: time.Hour})
	require.NoError(t, err)

	calls := 0
	done := make(chan error)
	go func() {
		done <- p.Execute(ctx, failingWith(failure.Network, &calls), nil)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
		require.Equal(t, 1, calls)
	case <-time.After(time.Second):
		t.Fatal("Execute did not return after cancel")
	}
}

func TestExecute_AlreadyCancelledDoesNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p, _ := newPolicy(t, retry.DefaultConfig())

	calls := 0
	err := p.Execute(ctx, failingWith(failure.Network, &calls), nil)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, calls)
}

func TestExecute_WaitDoesNotBlockOthers(t *testing.T) {
	p, err := retry.New(retry.Config{MaxAttempts: 2, BaseDelay: 50 * time.Millisecond})
	require.NoError(t, err)

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Execute(context.Background(), func(context.Context) error {
				return failure.ErrNetwork
			}, nil)
		}()
	}
	wg.Wait()

	require.Less(t, time.Since(start), 150*time.Millisecond)
}

func TestRun_ReturnsValue(t *testing.T) {
	p, _ := newPolicy(t, retry.Config{MaxAttempts: 2, BaseDelay: time.Millisecond})

	calls := 0
	v, err := retry.Run(context.Background(), p, func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", failure.ErrTimeout
		}
		return "ok", nil
	}, nil)

	require.NoError(t, err)
	require.Equal(t, "ok", v)
}
