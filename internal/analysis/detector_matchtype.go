package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/ignite/ppc-analyzer/internal/ads"
	"github.com/ignite/ppc-analyzer/internal/config"
)

// MatchTypeDetector finds broad/phrase keyword groupings that burn spend
// (low ROAS or CPA far above the account average) and broad/phrase keywords
// whose query volume is dominated by their own exact text, which should be
// converted to exact match.
type MatchTypeDetector struct{}

// Name implements Detector.
func (d *MatchTypeDetector) Name() string { return "match_type_optimizer" }

type termVolume struct {
	exactImpressions int64
	totalImpressions int64
}

type matchTypeReason struct {
	text    string
	weight  float64 // cost attributable to the reason; highest-cost reason wins
	action  string
	savings float64
}

// Detect implements Detector.
func (d *MatchTypeDetector) Detect(snap *Snapshot, cfg config.AnalysisConfig) ([]Opportunity, []Note) {
	keywords := snap.Keywords()
	if len(keywords) < cfg.MinRecordsForAnalysis {
		return nil, insufficientNote(d.Name(), len(keywords), cfg.MinRecordsForAnalysis)
	}

	est := NewEstimator(cfg, snap.Account.CPA)

	// Pre-fold search-term volume per triggering keyword.
	volumes := make(map[string]*termVolume)
	for _, term := range snap.SearchTerms() {
		kw := strings.ToLower(strings.TrimSpace(term.MatchedKeyword))
		if kw == "" {
			continue
		}
		vol, ok := volumes[kw]
		if !ok {
			vol = &termVolume{}
			volumes[kw] = vol
		}
		vol.totalImpressions += term.Metrics.Impressions
		if term.NormalizedText() == kw {
			vol.exactImpressions += term.Metrics.Impressions
		}
	}

	keys := make([]string, 0, len(snap.ByKeywordMatch.Buckets))
	for key := range snap.ByKeywordMatch.Buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var opportunities []Opportunity
	for _, key := range keys {
		bucket := snap.ByKeywordMatch.Buckets[key]
		if bucket.Rep.MatchType != ads.MatchBroad && bucket.Rep.MatchType != ads.MatchPhrase {
			continue
		}

		var reasons []matchTypeReason

		if bucket.Cost >= cfg.HighCostThreshold {
			if bucket.ROAS < cfg.LowROASThreshold {
				reasons = append(reasons, matchTypeReason{
					text: fmt.Sprintf("ROAS %.2f is below the %.2f target on $%.2f spend",
						bucket.ROAS, cfg.LowROASThreshold, bucket.Cost),
					weight:  bucket.Cost,
					action:  "Reduce broad-match usage: pause the keyword or convert it to a tighter match type",
					savings: est.CPAGap(bucket.Cost, bucket.Conversions),
				})
			}
			if snap.Account.CPA > 0 && bucket.Conversions > 0 &&
				bucket.CPA > cfg.MaxBroadCPAMultiplier*snap.Account.CPA {
				reasons = append(reasons, matchTypeReason{
					text: fmt.Sprintf("CPA $%.2f exceeds %.1fx the account average of $%.2f",
						bucket.CPA, cfg.MaxBroadCPAMultiplier, snap.Account.CPA),
					weight:  bucket.Cost,
					action:  "Pause or convert keyword: its acquisition cost is far above the account average",
					savings: est.CPAGap(bucket.Cost, bucket.Conversions),
				})
			}
		}

		text := bucket.Rep.NormalizedText()
		if vol, ok := volumes[text]; ok && vol.totalImpressions > 0 {
			share := float64(vol.exactImpressions) / float64(vol.totalImpressions)
			if share >= cfg.ExactMatchRatio {
				reasons = append(reasons, matchTypeReason{
					text: fmt.Sprintf("%.0f%% of search-term volume exactly matches the keyword text",
						share*100),
					weight:  bucket.Cost * (1 - share),
					action:  "Convert to exact match: the keyword already wins its traffic on its own text",
					savings: est.MatchTypeConversion(bucket.Cost, share),
				})
			}
		}

		if len(reasons) == 0 {
			continue
		}

		winner := reasons[0]
		for _, r := range reasons[1:] {
			if r.weight > winner.weight {
				winner = r
			}
		}

		rationale := make([]string, 0, len(reasons))
		for _, r := range reasons {
			rationale = append(rationale, r.text)
		}

		severity := SeverityMedium
		if bucket.Conversions == 0 && bucket.Cost >= cfg.HighCostThreshold {
			severity = SeverityHigh
		} else if bucket.Cost >= 2*cfg.HighCostThreshold && winner.weight >= bucket.Cost {
			severity = SeverityHigh
		}

		opportunities = append(opportunities, Opportunity{
			ID:        uuid.NewString(),
			Category:  CategoryMatchType,
			SubjectID: bucket.Key,
			Subject:   fmt.Sprintf("%q (%s)", text, bucket.Rep.MatchType),
			CurrentState: fmt.Sprintf("$%.2f spend, %.1f conversions, ROAS %.2f over the period",
				bucket.Cost, bucket.Conversions, bucket.ROAS),
			ProposedAction:          winner.action,
			Rationale:               rationale,
			EstimatedMonthlySavings: winner.savings,
			Severity:                severity,
			PeriodCost:              bucket.Cost,
		})
	}

	return opportunities, nil
}
