package analysis

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/ignite/ppc-analyzer/internal/ads"
	"github.com/ignite/ppc-analyzer/internal/config"
)

// CannibalizationDetector joins search terms observed under automated
// campaign types against the same terms under manually-targeted campaigns.
// When the automated side pays materially more per conversion for a query
// the manual side already wins, the automated campaign is cannibalizing:
// the term should be negatived out of it.
type CannibalizationDetector struct{}

// Name implements Detector.
func (d *CannibalizationDetector) Name() string { return "cross_campaign_cannibalization" }

type campaignSideStats struct {
	cost        float64
	conversions float64
	campaigns   map[string]struct{}
}

func (s *campaignSideStats) fold(rec ads.Record) {
	s.cost += rec.Metrics.Cost
	s.conversions += rec.Metrics.Conversions
	s.campaigns[rec.CampaignID] = struct{}{}
}

// Detect implements Detector.
func (d *CannibalizationDetector) Detect(snap *Snapshot, cfg config.AnalysisConfig) ([]Opportunity, []Note) {
	terms := snap.SearchTerms()
	if len(terms) < cfg.MinRecordsForAnalysis {
		return nil, insufficientNote(d.Name(), len(terms), cfg.MinRecordsForAnalysis)
	}

	est := NewEstimator(cfg, snap.Account.CPA)

	automated := make(map[string]*campaignSideStats)
	manual := make(map[string]*campaignSideStats)
	for _, rec := range terms {
		text := rec.NormalizedText()
		if text == "" {
			continue
		}
		side := manual
		if ads.IsAutomatedCampaignType(rec.CampaignType) {
			side = automated
		}
		stats, ok := side[text]
		if !ok {
			stats = &campaignSideStats{campaigns: make(map[string]struct{})}
			side[text] = stats
		}
		stats.fold(rec)
	}

	texts := make([]string, 0, len(automated))
	for text := range automated {
		if _, overlaps := manual[text]; overlaps {
			texts = append(texts, text)
		}
	}
	sort.Strings(texts)

	var opportunities []Opportunity
	for _, text := range texts {
		auto := automated[text]
		man := manual[text]

		if man.conversions <= 0 || auto.cost <= 0 {
			continue
		}
		manualCPA := man.cost / man.conversions

		cannibalizing := false
		var autoCPA float64
		if auto.conversions > 0 {
			autoCPA = auto.cost / auto.conversions
			cannibalizing = autoCPA > manualCPA*(1+cfg.CannibalizationCPAMargin)
		} else {
			// The automated side spends without converting at all while the
			// manual side converts: pure cannibalized spend.
			cannibalizing = true
		}
		if !cannibalizing {
			continue
		}

		var savings float64
		if auto.conversions == 0 {
			savings = est.ZeroConversionWaste(auto.cost)
		} else {
			// Excess over what the manual campaign would have paid for the
			// same conversions, dampened.
			excess := auto.cost - auto.conversions*manualCPA
			savings = clampToCost(excess*cfg.CPAGapDampening, auto.cost)
		}

		// Brand terms and local-intent phrases belong in manually-targeted
		// campaigns; stealing them is the most damaging form of overlap.
		severity := SeverityMedium
		priority := ""
		if containsAnyPattern(text, cfg.BrandTerms) {
			severity = SeverityHigh
			priority = "brand term: "
		} else if containsAnyPattern(text, cfg.LocalIntentPatterns) {
			severity = SeverityHigh
			priority = "high-intent local phrase: "
		}

		currentState := fmt.Sprintf("automated campaigns spent $%.2f (%.1f conversions) vs manual CPA $%.2f",
			auto.cost, auto.conversions, manualCPA)
		rationale := []string{
			priority + fmt.Sprintf("term serves under %d automated and %d manual campaign(s)",
				len(auto.campaigns), len(man.campaigns)),
		}
		if auto.conversions > 0 {
			rationale = append(rationale, fmt.Sprintf("automated CPA $%.2f exceeds manual CPA $%.2f by more than %.0f%%",
				autoCPA, manualCPA, cfg.CannibalizationCPAMargin*100))
		} else {
			rationale = append(rationale, "automated campaigns convert nothing on a term the manual campaigns already win")
		}

		opportunities = append(opportunities, Opportunity{
			ID:                      uuid.NewString(),
			Category:                CategoryCannibalization,
			SubjectID:               text,
			Subject:                 fmt.Sprintf("search term %q", text),
			CurrentState:            currentState,
			ProposedAction:          fmt.Sprintf("Add %q as a negative keyword in the automated campaign(s) so the manual campaign keeps the traffic", text),
			Rationale:               rationale,
			EstimatedMonthlySavings: savings,
			Severity:                severity,
			PeriodCost:              auto.cost,
		})
	}

	return opportunities, nil
}
