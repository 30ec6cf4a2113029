package reasoning

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Backoff configures retry delays. Attempt numbers are 1-indexed: the first
// retry waits InitialDelay.
type Backoff struct {
	InitialDelay time.Duration
	Factor       float64
	MaxDelay     time.Duration
}

// DefaultBackoff is 200ms doubling up to 10s.
func DefaultBackoff() Backoff {
	return Backoff{InitialDelay: 200 * time.Millisecond, Factor: 2, MaxDelay: 10 * time.Second}
}

// DelayForAttempt returns the wait before retry number attempt.
func (b Backoff) DelayForAttempt(attempt int) time.Duration {
	if attempt < 1 || b.InitialDelay <= 0 {
		return 0
	}
	factor := b.Factor
	if factor < 1 {
		factor = 1
	}
	d := float64(b.InitialDelay) * math.Pow(factor, float64(attempt-1))
	if b.MaxDelay > 0 && d > float64(b.MaxDelay) {
		return b.MaxDelay
	}
	return time.Duration(d)
}

// retrying retries unavailable-model failures.
type retrying struct {
	next    Model
	backoff Backoff
	retries int
	sleep   func(ctx context.Context, d time.Duration) error
}

// WithRetry retries retryable failures of next up to retries times with
// exponential backoff. Role invocations use a single retry.
func WithRetry(next Model, backoff Backoff, retries int) Model {
	return &retrying{next: next, backoff: backoff, retries: retries, sleep: sleepCtx}
}

func (r *retrying) Name() string { return r.next.Name() }

func (r *retrying) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			if err := r.sleep(ctx, r.backoff.DelayForAttempt(attempt)); err != nil {
				return "", err
			}
		}
		out, err := r.next.Generate(ctx, prompt, opts)
		if err == nil {
			return out, nil
		}
		if !IsRetryable(err) || ctx.Err() != nil || attempt >= r.retries || !takeRetry(ctx) {
			return "", err
		}
	}
}

type retryBudgetKey struct{}

// WithRetryBudget caps the retries WithRetry may spend across every Generate
// call made with the returned context. Without a budget each call gets its
// own allowance.
func WithRetryBudget(ctx context.Context, n int) context.Context {
	b := new(atomic.Int32)
	b.Store(int32(n))
	return context.WithValue(ctx, retryBudgetKey{}, b)
}

func takeRetry(ctx context.Context) bool {
	b, ok := ctx.Value(retryBudgetKey{}).(*atomic.Int32)
	if !ok {
		return true
	}
	return b.Add(-1) >= 0
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// rateLimited waits on a token bucket before each call.
type rateLimited struct {
	next    Model
	limiter *rate.Limiter
}

// WithRateLimit limits next to rps requests per second with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(next Model, rps float64, burst int) Model {
	if rps <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &rateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (r *rateLimited) Name() string { return r.next.Name() }

func (r *rateLimited) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.next.Generate(ctx, prompt, opts)
}
