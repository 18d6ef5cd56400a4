// Package httpretry provides an HTTP client with automatic retry logic,
// exponential backoff, and jitter for resilient external API calls.
package httpretry

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/ignite/ppc-analyzer/internal/pkg/logger"
)

// HTTPDoer is the interface for executing HTTP requests.
// Both *http.Client and *RetryClient satisfy this interface.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RetryClient wraps an HTTPDoer with retry logic using exponential backoff and jitter.
// A Retry-After header on a 429 response overrides the computed backoff.
type RetryClient struct {
	client     HTTPDoer
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// NewRetryClient creates a new RetryClient that wraps the given HTTPDoer.
// If client is nil, a default http.Client with 30s timeout is used.
// maxRetries is the number of retry attempts after the initial request (default 3).
func NewRetryClient(client HTTPDoer, maxRetries int) *RetryClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &RetryClient{
		client:     client,
		maxRetries: maxRetries,
		baseDelay:  1 * time.Second,
		maxDelay:   30 * time.Second,
	}
}

// Do executes the HTTP request with retry logic.
// It retries on retryable status codes (429, 500, 502, 503, 504) and
// transient network/timeout errors. It does NOT retry on client errors
// (400, 401, 403, 404) or context cancellation.
// On the final attempt, it returns the response as-is so the caller
// can inspect the status code and body.
func (rc *RetryClient) Do(req *http.Request) (*http.Response, error) {
	var lastErr error
	var retryAfter time.Duration

	for attempt := 0; attempt <= rc.maxRetries; attempt++ {
		if req.Context().Err() != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, req.Context().Err()
		}

		if attempt > 0 {
			// Reset request body for retry if applicable
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("httpretry: failed to reset request body: %w", err)
				}
				req.Body = body
			}

			delay := rc.calculateDelay(attempt)
			if retryAfter > delay {
				delay = retryAfter
			}
			logger.Debug("httpretry: retrying request",
				"attempt", attempt, "max", rc.maxRetries,
				"method", req.Method, "host", req.URL.Host, "path", req.URL.Path,
				"delay", delay.String())

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-req.Context().Done():
				timer.Stop()
				if lastErr != nil {
					return nil, lastErr
				}
				return nil, req.Context().Err()
			}
		}
		retryAfter = 0

		resp, err := rc.client.Do(req)
		if err != nil {
			lastErr = err
			if req.Context().Err() != nil {
				return nil, err
			}
			// Network/connection/timeout error — retry
			continue
		}

		if !isRetryableStatus(resp.StatusCode) {
			return resp, nil
		}

		// If this is the last attempt, return the response as-is
		// so the caller can read the body and handle the error
		if attempt == rc.maxRetries {
			return resp, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		}

		// Drain body for connection reuse, then retry
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		lastErr = fmt.Errorf("httpretry: server returned retryable status %d", resp.StatusCode)
	}

	return nil, lastErr
}

// calculateDelay returns the backoff duration for the given retry attempt.
// Uses exponential backoff with full jitter: random(0, min(maxDelay, baseDelay * 2^(attempt-1))).
func (rc *RetryClient) calculateDelay(attempt int) time.Duration {
	expDelay := float64(rc.baseDelay) * math.Pow(2, float64(attempt-1))
	if expDelay > float64(rc.maxDelay) {
		expDelay = float64(rc.maxDelay)
	}

	jittered := time.Duration(rand.Float64() * expDelay)
	if jittered < 100*time.Millisecond {
		jittered = 100 * time.Millisecond
	}
	return jittered
}

// parseRetryAfter handles the delay-seconds form of the Retry-After header.
// The HTTP-date form is rare on ads APIs and falls back to zero.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// isRetryableStatus returns true if the HTTP status code indicates a
// transient server error that should be retried.
func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
