package app

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"time"

	"review_radar/internal/domain"
)

const (
	DefaultAttemptTimeout = 10 * time.Second
	DefaultMaxRetries     = 2
	// upstream Retry-After hints are honored up to this bound
	maxRetryAfter = 10 * time.Second
)

// RetryPolicy runs one upstream call with a per-attempt timeout and a small,
// fixed number of retries for transient failures.
type RetryPolicy struct {
	AttemptTimeout time.Duration
	MaxRetries     int
	Backoff        func(attempt int) time.Duration
	// OnRetry is called before sleeping for the next attempt. Optional.
	OnRetry func(op string, attempt int, err error)
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		AttemptTimeout: DefaultAttemptTimeout,
		MaxRetries:     DefaultMaxRetries,
		Backoff:        backoff,
	}
}

// Do calls fn until it succeeds, fails permanently, or retries run out.
// Exhausted retries and non-transient upstream failures are reported as
// domain.ErrUpstreamUnavailable; invalid app ids and requests pass through.
// Cancellation of ctx stops immediately with ctx.Err().
func (p RetryPolicy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := p.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := p.attempt(ctx, fn)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, domain.ErrInvalidAppID) || errors.Is(err, domain.ErrInvalidRequest) {
			return err
		}
		lastErr = err
		if !retryable(err) {
			break
		}
		if i == attempts-1 {
			break
		}

		if p.OnRetry != nil {
			p.OnRetry(op, i+1, err)
		}
		if !sleepCtx(ctx, p.wait(i, err)) {
			return ctx.Err()
		}
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrUpstreamUnavailable, op, lastErr)
}

func (p RetryPolicy) attempt(ctx context.Context, fn func(ctx context.Context) error) error {
	if p.AttemptTimeout <= 0 {
		return fn(ctx)
	}
	actx, cancel := context.WithTimeout(ctx, p.AttemptTimeout)
	defer cancel()
	return fn(actx)
}

func (p RetryPolicy) wait(i int, err error) time.Duration {
	var te *domain.TransientError
	if errors.As(err, &te) && te.RetryAfter > 0 {
		return min(te.RetryAfter, maxRetryAfter)
	}
	if p.Backoff == nil {
		return 0
	}
	return p.Backoff(i)
}

// Transport failures, 429/5xx, and per-attempt timeouts are worth another try.
func retryable(err error) bool {
	return domain.IsTransient(err) || errors.Is(err, context.DeadlineExceeded)
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// backoff returns an exponential delay (200ms, 400ms, 800ms...) with up to
// +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
