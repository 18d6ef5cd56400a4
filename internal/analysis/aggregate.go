package analysis

import (
	"github.com/ignite/ppc-analyzer/internal/ads"
)

// AggregateBucket is a grouping key plus summed metrics and derived ratios.
// Buckets are created fresh per run by Aggregate and never mutated afterwards;
// detectors read them only. Derived ratios are zero, never division errors,
// when the denominator is zero.
type AggregateBucket struct {
	Key             string  `json:"key"`
	Impressions     int64   `json:"impressions"`
	Clicks          int64   `json:"clicks"`
	Cost            float64 `json:"cost"`
	Conversions     float64 `json:"conversions"`
	ConversionValue float64 `json:"conversion_value"`
	RecordCount     int     `json:"record_count"`

	CTR            float64 `json:"ctr,omitempty"`
	AvgCPC         float64 `json:"avg_cpc,omitempty"`
	CPA            float64 `json:"cpa,omitempty"`
	ROAS           float64 `json:"roas,omitempty"`
	ConversionRate float64 `json:"conversion_rate,omitempty"`

	// Rep is the first record folded into the bucket, kept so detectors can
	// read identity fields (match type, campaign, location) for the group.
	Rep ads.Record `json:"-"`
}

// AggregateSet is the result of one aggregation pass.
type AggregateSet struct {
	GroupBy string
	Buckets map[string]*AggregateBucket

	// ExcludedCount counts records left out of bucket membership because
	// they fell below the minimum-impressions threshold.
	ExcludedCount int
}

// KeyFunc derives the grouping key for a record. Keys must already be
// normalized by the caller; grouping is exact equality, no fuzzy matching.
type KeyFunc func(ads.Record) string

// Aggregate folds records into buckets in a single pass. Records below
// minImpressions are excluded from membership but counted for transparency.
// Derived ratios are computed once, after all records are folded in.
// Empty input yields an empty set, not an error.
func Aggregate(records []ads.Record, groupBy string, keyFn KeyFunc, minImpressions int) *AggregateSet {
	set := &AggregateSet{
		GroupBy: groupBy,
		Buckets: make(map[string]*AggregateBucket),
	}

	for _, rec := range records {
		if rec.Metrics.Impressions < int64(minImpressions) {
			set.ExcludedCount++
			continue
		}
		key := keyFn(rec)
		bucket, ok := set.Buckets[key]
		if !ok {
			bucket = &AggregateBucket{Key: key, Rep: rec}
			set.Buckets[key] = bucket
		}
		bucket.Impressions += rec.Metrics.Impressions
		bucket.Clicks += rec.Metrics.Clicks
		bucket.Cost += rec.Metrics.Cost
		bucket.Conversions += rec.Metrics.Conversions
		bucket.ConversionValue += rec.Metrics.ConversionValue
		bucket.RecordCount++
	}

	for _, bucket := range set.Buckets {
		bucket.finalize()
	}
	return set
}

func (b *AggregateBucket) finalize() {
	if b.Impressions > 0 {
		b.CTR = float64(b.Clicks) / float64(b.Impressions)
	}
	if b.Clicks > 0 {
		b.AvgCPC = b.Cost / float64(b.Clicks)
		b.ConversionRate = b.Conversions / float64(b.Clicks)
	}
	if b.Conversions > 0 {
		b.CPA = b.Cost / b.Conversions
	}
	if b.Cost > 0 {
		b.ROAS = b.ConversionValue / b.Cost
	}
}

// Totals folds every bucket in the set into one account-level bucket.
func (s *AggregateSet) Totals(key string) *AggregateBucket {
	total := &AggregateBucket{Key: key}
	for _, b := range s.Buckets {
		total.Impressions += b.Impressions
		total.Clicks += b.Clicks
		total.Cost += b.Cost
		total.Conversions += b.Conversions
		total.ConversionValue += b.ConversionValue
		total.RecordCount += b.RecordCount
	}
	total.finalize()
	return total
}
