package ads

import (
	"fmt"
	"time"
)

// TooManyIdentifiersError rejects an oversized page request before any
// network call is made.
type TooManyIdentifiersError struct {
	Requested int
	Max       int
}

func (e *TooManyIdentifiersError) Error() string {
	return fmt.Sprintf("requested %d identifiers in one page, provider cap is %d", e.Requested, e.Max)
}

// RateLimitError signals the provider's quota was exceeded. It triggers
// backoff and retry, not immediate failure.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider rate limit exceeded, retry after %s", e.RetryAfter)
	}
	return "provider rate limit exceeded"
}

// DataFetchError reports an upstream provider failure for one category after
// retries were exhausted. It carries the count of records already obtained so
// callers can decide to proceed with a flagged partial dataset.
type DataFetchError struct {
	Category     Category
	PartialCount int
	Err          error
}

func (e *DataFetchError) Error() string {
	return fmt.Sprintf("fetch failed for category %s after retries (%d records obtained): %v",
		e.Category, e.PartialCount, e.Err)
}

func (e *DataFetchError) Unwrap() error { return e.Err }

// PartialDataError means a category fetch stopped below the configured
// completeness floor, so the run cannot proceed even with flagged data.
type PartialDataError struct {
	Category Category
	Ratio    float64
	Floor    float64
}

func (e *PartialDataError) Error() string {
	return fmt.Sprintf("category %s fetched %.0f%% of records, below the %.0f%% completeness floor",
		e.Category, e.Ratio*100, e.Floor*100)
}
