package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/ignite/ppc-analyzer/internal/ads"
	"github.com/ignite/ppc-analyzer/internal/config"
)

// NegativeConflictDetector cross-references the positive-keyword set against
// the negative-keyword set using match-type semantics and reports negatives
// that block valuable positives from serving.
type NegativeConflictDetector struct{}

// Name implements Detector.
func (d *NegativeConflictDetector) Name() string { return "negative_conflict" }

// Detect implements Detector.
func (d *NegativeConflictDetector) Detect(snap *Snapshot, cfg config.AnalysisConfig) ([]Opportunity, []Note) {
	positives := snap.Keywords()
	negatives := snap.Negatives()
	if len(negatives) == 0 {
		return nil, insufficientNote(d.Name(), 0, 1)
	}
	if len(positives) == 0 {
		return nil, insufficientNote(d.Name(), 0, 1)
	}

	est := NewEstimator(cfg, snap.Account.CPA)

	// Deterministic scan order.
	negs := append([]ads.Record(nil), negatives...)
	sort.Slice(negs, func(i, j int) bool { return negs[i].Identity() < negs[j].Identity() })
	pos := append([]ads.Record(nil), positives...)
	sort.Slice(pos, func(i, j int) bool { return pos[i].Identity() < pos[j].Identity() })

	var opportunities []Opportunity
	for _, neg := range negs {
		for _, p := range pos {
			if !negativeApplies(neg, p) {
				continue
			}
			if !blocks(neg, p) {
				continue
			}

			severity := conflictSeverity(p)
			opportunities = append(opportunities, Opportunity{
				ID:        uuid.NewString(),
				Category:  CategoryNegativeConflict,
				SubjectID: neg.Identity() + "->" + p.Identity(),
				Subject: fmt.Sprintf("negative %q (%s) blocks keyword %q (%s)",
					neg.NormalizedText(), neg.MatchType, p.NormalizedText(), p.MatchType),
				CurrentState: fmt.Sprintf("blocked keyword drove %.1f conversions and $%.2f spend over the period",
					p.Metrics.Conversions, p.Metrics.Cost),
				ProposedAction: "Remove the negative keyword, narrow its match type, or exclude it from this ad group only",
				Rationale: []string{
					fmt.Sprintf("%s negative %q matches the positive's text under %s semantics",
						strings.ToLower(string(neg.MatchType)), neg.NormalizedText(), strings.ToLower(string(neg.MatchType))),
					fmt.Sprintf("blocked keyword quality score: %s", qualityScoreLabel(p)),
				},
				EstimatedMonthlySavings: est.WasteFraction(p.Metrics.Cost),
				Severity:                severity,
				PeriodCost:              p.Metrics.Cost,
			})
		}
	}

	return opportunities, nil
}

// negativeApplies reports whether the negative's level puts it in the same
// serving scope as the positive.
func negativeApplies(neg, pos ads.Record) bool {
	switch neg.NegativeLevel {
	case ads.NegativeLevelCampaign:
		return neg.CampaignID == pos.CampaignID
	case ads.NegativeLevelAdGroup:
		return neg.CampaignID == pos.CampaignID && neg.AdGroupID == pos.AdGroupID
	default:
		// Account-level (shared list) negatives block everywhere.
		return true
	}
}

// blocks applies match-type semantics: an exact negative blocks only an
// identical-text exact positive; a phrase negative blocks any positive whose
// text contains the phrase contiguously; a broad negative blocks any positive
// containing all of its words in any order.
func blocks(neg, pos ads.Record) bool {
	negText := neg.NormalizedText()
	posText := pos.NormalizedText()
	if negText == "" || posText == "" {
		return false
	}

	switch neg.MatchType {
	case ads.MatchExact:
		return pos.MatchType == ads.MatchExact && negText == posText
	case ads.MatchPhrase:
		return strings.Contains(posText, negText)
	case ads.MatchBroad:
		posWords := make(map[string]struct{})
		for _, w := range strings.Fields(posText) {
			posWords[w] = struct{}{}
		}
		for _, w := range strings.Fields(negText) {
			if _, ok := posWords[w]; !ok {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// conflictSeverity grades a block by the positive's trailing conversion
// volume and quality score: high-conversion, high-quality blocks are the
// ones silently costing the most.
func conflictSeverity(p ads.Record) Severity {
	conversions := p.Metrics.Conversions
	qs := 0
	if p.Metrics.QualityScore != nil {
		qs = *p.Metrics.QualityScore
	}

	switch {
	case conversions >= 10 && qs >= 8:
		return SeverityCritical
	case conversions >= 10 || qs >= 8:
		return SeverityHigh
	case conversions >= 1:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func qualityScoreLabel(p ads.Record) string {
	if p.Metrics.QualityScore == nil {
		return "not reported"
	}
	return fmt.Sprintf("%d/10", *p.Metrics.QualityScore)
}
