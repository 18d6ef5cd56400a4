package ads

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/ignite/ppc-analyzer/internal/config"
	"github.com/ignite/ppc-analyzer/internal/pkg/logger"
	"github.com/ignite/ppc-analyzer/internal/quota"
)

// Provider is the consumer-side view of the data-provider boundary.
// *Client satisfies it; tests supply fakes.
type Provider interface {
	ListPage(ctx context.Context, category Category, scope Scope, pageSize, offset int) (Page, error)
}

// Fetcher pages through the provider, assembling complete, deduplicated
// record sets per category. Every page request draws a token from the shared
// quota limiter, so concurrent category fetches cannot exceed the provider
// budget together.
type Fetcher struct {
	provider Provider
	limiter  quota.Limiter
	cfg      config.FetchConfig
}

// NewFetcher creates a fetch orchestrator. A nil limiter disables quota
// pacing (tests).
func NewFetcher(provider Provider, limiter quota.Limiter, cfg config.FetchConfig) *Fetcher {
	return &Fetcher{provider: provider, limiter: limiter, cfg: cfg}
}

// FetchAll retrieves every record for one category. Pages are fetched in
// offset order until the provider signals no more results; rows are
// deduplicated by identity across page boundaries. On failure after retries
// the partial records obtained so far are returned alongside a DataFetchError.
func (f *Fetcher) FetchAll(ctx context.Context, category Category, scope Scope) ([]Record, error) {
	records, _, err := f.fetchCategory(ctx, category, scope)
	return records, err
}

func (f *Fetcher) fetchCategory(ctx context.Context, category Category, scope Scope) ([]Record, int, error) {
	var records []Record
	seen := make(map[string]struct{})
	offset := 0
	total := 0

	for {
		page, err := f.listWithRetry(ctx, category, scope, offset)
		if err != nil {
			return records, total, &DataFetchError{Category: category, PartialCount: len(records), Err: err}
		}
		if page.Total > total {
			total = page.Total
		}

		for _, rec := range page.Records {
			id := rec.Identity()
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			records = append(records, rec)
		}

		if !page.HasMore {
			return records, total, nil
		}
		if page.NextOffset <= offset {
			// Defend against a provider that never advances the cursor.
			offset += f.cfg.PageSize
		} else {
			offset = page.NextOffset
		}
	}
}

// listWithRetry fetches one page with bounded exponential backoff. Identifier
// cap violations are never retried; they are caller bugs, not transient faults.
func (f *Fetcher) listWithRetry(ctx context.Context, category Category, scope Scope, offset int) (Page, error) {
	var lastErr error

	for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt, lastErr)
			logger.Debug("retrying page fetch",
				"category", string(category), "offset", offset,
				"attempt", attempt, "delay", delay.String())
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return Page{}, ctx.Err()
			}
		}

		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return Page{}, err
			}
		}

		page, err := f.provider.ListPage(ctx, category, scope, f.cfg.PageSize, offset)
		if err == nil {
			return page, nil
		}

		var tooMany *TooManyIdentifiersError
		if errors.As(err, &tooMany) {
			return Page{}, err
		}
		if ctx.Err() != nil {
			return Page{}, err
		}
		lastErr = err
	}
	return Page{}, lastErr
}

// backoffDelay computes exponential backoff with jitter. A rate-limit error
// with a provider-supplied retry-after takes precedence.
func backoffDelay(attempt int, lastErr error) time.Duration {
	var rl *RateLimitError
	if errors.As(lastErr, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}
	base := 500 * time.Millisecond * time.Duration(1<<(attempt-1))
	if base > 15*time.Second {
		base = 15 * time.Second
	}
	return base/2 + time.Duration(rand.Int63n(int64(base/2)+1))
}

type categoryResult struct {
	category Category
	records  []Record
	total    int
	err      error
}

// FetchDataset fetches all four categories concurrently under a single
// deadline. A category that fails after retries contributes its partial
// records when it clears the completeness floor; otherwise the run fails
// with a PartialDataError.
func (f *Fetcher) FetchDataset(ctx context.Context, scope Scope) (*Dataset, error) {
	results := make([]categoryResult, len(Categories))
	var wg sync.WaitGroup

	for i, category := range Categories {
		wg.Add(1)
		go func(i int, category Category) {
			defer wg.Done()
			records, total, err := f.fetchCategory(ctx, category, scope)
			results[i] = categoryResult{category: category, records: records, total: total, err: err}
		}(i, category)
	}
	wg.Wait()

	dataset := &Dataset{
		Scope:   scope,
		Records: make(map[Category][]Record, len(Categories)),
		Partial: make(map[Category]bool, len(Categories)),
	}

	for _, res := range results {
		if res.err == nil {
			dataset.Records[res.category] = res.records
			continue
		}

		ratio := 0.0
		if res.total > 0 {
			ratio = float64(len(res.records)) / float64(res.total)
		}
		if ratio < f.cfg.CompletenessFloor {
			return nil, &PartialDataError{Category: res.category, Ratio: ratio, Floor: f.cfg.CompletenessFloor}
		}

		logger.Warn("proceeding with partial category data",
			"category", string(res.category),
			"fetched", len(res.records), "expected", res.total,
			"error", res.err.Error())
		dataset.Records[res.category] = res.records
		dataset.Partial[res.category] = true
	}

	return dataset, nil
}
