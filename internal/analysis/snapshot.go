package analysis

import (
	"fmt"
	"strings"

	"github.com/ignite/ppc-analyzer/internal/ads"
	"github.com/ignite/ppc-analyzer/internal/config"
)

// Snapshot is the immutable aggregate view one analysis run is computed
// from. Every detector reads the same snapshot; none may mutate it, which is
// what makes the detector fan-out lock-free.
type Snapshot struct {
	Dataset *ads.Dataset

	// Keyword aggregates.
	ByMatchType    *AggregateSet // key: match type
	ByKeywordMatch *AggregateSet // key: normalized text | match type
	Account        *AggregateBucket

	// Geo aggregates.
	ByLocation *AggregateSet
	GeoAccount *AggregateBucket

	// ExcludedCounts per category (records below min impressions).
	ExcludedCounts map[ads.Category]int
}

// KeywordMatchKey is the grouping key for per-keyword, per-match-type buckets.
func KeywordMatchKey(r ads.Record) string {
	return fmt.Sprintf("%s|%s", r.NormalizedText(), r.MatchType)
}

// BuildSnapshot aggregates the fetched dataset along every dimension the
// detectors read. Buckets are finalized here; detectors never recompute.
func BuildSnapshot(dataset *ads.Dataset, cfg config.AnalysisConfig) *Snapshot {
	keywords := dataset.Records[ads.CategoryKeywords]
	geo := dataset.Records[ads.CategoryGeo]

	byMatchType := Aggregate(keywords, "match_type",
		func(r ads.Record) string { return string(r.MatchType) },
		cfg.MinImpressionsFor(string(ads.CategoryKeywords)))

	byKeywordMatch := Aggregate(keywords, "keyword_match", KeywordMatchKey,
		cfg.MinImpressionsFor(string(ads.CategoryKeywords)))

	byLocation := Aggregate(geo, "location",
		func(r ads.Record) string { return r.LocationID },
		cfg.MinImpressionsFor(string(ads.CategoryGeo)))

	snap := &Snapshot{
		Dataset:        dataset,
		ByMatchType:    byMatchType,
		ByKeywordMatch: byKeywordMatch,
		Account:        byMatchType.Totals("account"),
		ByLocation:     byLocation,
		GeoAccount:     byLocation.Totals("geo_account"),
		ExcludedCounts: map[ads.Category]int{
			ads.CategoryKeywords: byKeywordMatch.ExcludedCount,
			ads.CategoryGeo:      byLocation.ExcludedCount,
		},
	}
	return snap
}

// SearchTerms returns the raw search-term records. Detectors that need
// per-campaign spread work from records, not buckets.
func (s *Snapshot) SearchTerms() []ads.Record {
	return s.Dataset.Records[ads.CategorySearchTerms]
}

// Keywords returns the raw positive-keyword records.
func (s *Snapshot) Keywords() []ads.Record {
	return s.Dataset.Records[ads.CategoryKeywords]
}

// Negatives returns the raw negative-keyword records.
func (s *Snapshot) Negatives() []ads.Record {
	return s.Dataset.Records[ads.CategoryNegatives]
}

// containsAnyPattern reports whether the normalized text contains any of the
// configured patterns as a substring.
func containsAnyPattern(text string, patterns []string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" && strings.Contains(text, p) {
			return true
		}
	}
	return false
}
