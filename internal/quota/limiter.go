// Package quota rate-limits requests against the ads provider's shared
// API quota. All concurrent category fetches for a scope draw from the
// same limiter so a single analysis run cannot exceed the provider budget.
package quota

import (
	"context"
	"sync"
	"time"
)

// Limiter grants permission to make provider requests.
type Limiter interface {
	// Wait blocks until a request token is available or the context is done.
	Wait(ctx context.Context) error
}

// TokenBucket is an in-process token-bucket limiter. It refills at a fixed
// rate up to a burst capacity.
type TokenBucket struct {
	mu     sync.Mutex
	rate   float64 // tokens per second
	burst  float64
	tokens float64
	last   time.Time
}

// NewTokenBucket creates a limiter allowing ratePerSecond requests with the
// given burst capacity. The bucket starts full.
func NewTokenBucket(ratePerSecond, burst int) *TokenBucket {
	if ratePerSecond < 1 {
		ratePerSecond = 1
	}
	if burst < 1 {
		burst = ratePerSecond
	}
	return &TokenBucket{
		rate:   float64(ratePerSecond),
		burst:  float64(burst),
		tokens: float64(burst),
		last:   time.Now(),
	}
}

// Wait blocks until a token is available or ctx is cancelled.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		tb.refill()
		if tb.tokens >= 1 {
			tb.tokens--
			tb.mu.Unlock()
			return nil
		}
		// Time until the next whole token accrues.
		wait := time.Duration((1 - tb.tokens) / tb.rate * float64(time.Second))
		tb.mu.Unlock()

		if wait < time.Millisecond {
			wait = time.Millisecond
		}
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

func (tb *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.last).Seconds()
	tb.last = now
	tb.tokens += elapsed * tb.rate
	if tb.tokens > tb.burst {
		tb.tokens = tb.burst
	}
}
