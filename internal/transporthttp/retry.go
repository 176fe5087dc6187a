package transporthttp

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"time"
)

// HostError is a non-success HTTP status answered by a media host.
type HostError struct {
	Host       string
	StatusCode int
}

func (e *HostError) Error() string {
	return fmt.Sprintf("host %s returned status %d", e.Host, e.StatusCode)
}

// RetryConfig bounds ExecuteWithRetry for one logical network operation.
type RetryConfig struct {
	// MaxRetries is the total attempt budget, first try included. Values
	// below 1 mean a single attempt.
	MaxRetries int

	// InitialDelay seeds the exponential backoff; MaxDelay caps it.
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// OnRetry observes each scheduled re-attempt: the number of the
	// attempt that just failed and its error.
	OnRetry func(attempt int, err error)
}

// retryable reports whether another identical attempt can plausibly
// succeed: transport-level failures (timeouts, resets, dropped
// connections) and 429/5xx answers can; a definitive server answer or a
// cancelled context cannot.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var he *HostError
	if errors.As(err, &he) {
		return he.StatusCode == http.StatusTooManyRequests || he.StatusCode >= 500
	}

	var ne net.Error
	return errors.As(err, &ne)
}

// backoff returns the pause before re-attempt n (1-based): exponential
// growth from initial, capped at max, with the upper half of the interval
// jittered so parallel transfers don't re-attempt in lockstep.
func backoff(n int, initial, max time.Duration) time.Duration {
	if initial <= 0 {
		initial = 50 * time.Millisecond
	}
	d := initial
	for i := 1; i < n && d < max; i++ {
		d *= 2
	}
	if max > 0 && d > max {
		d = max
	}
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}

// ExecuteWithRetry runs op until it succeeds, the attempt budget runs
// out, or an attempt fails in a way retrying cannot help. The pause
// between attempts honors ctx, so cancelling a transfer also cancels its
// backoff wait.
func ExecuteWithRetry(ctx context.Context, cfg RetryConfig, op func() error) error {
	attempts := cfg.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		if n >= attempts {
			return fmt.Errorf("transporthttp: %d attempts exhausted: %w", attempts, err)
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(n, err)
		}

		select {
		case <-time.After(backoff(n, cfg.InitialDelay, cfg.MaxDelay)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
