package analysis

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/ignite/ppc-analyzer/internal/ads"
	"github.com/ignite/ppc-analyzer/internal/config"
)

// SearchTermWasteDetector finds search terms that soak up spend without
// converting, or that match configured irrelevant-intent patterns, and
// recommends negative keywords at the narrowest scope that covers the waste.
//
// Terms matching local-intent patterns or the account's own brand terms are
// never negative-keyword candidates: blocking them risks cutting legitimate
// demand even when they show zero conversions in the analyzed period.
type SearchTermWasteDetector struct{}

// Name implements Detector.
func (d *SearchTermWasteDetector) Name() string { return "search_term_waste" }

type termGroup struct {
	text        string
	cost        float64
	conversions float64
	impressions int64
	campaigns   map[string]struct{}
	adGroups    map[string]struct{}
	sample      ads.Record
}

// Detect implements Detector.
func (d *SearchTermWasteDetector) Detect(snap *Snapshot, cfg config.AnalysisConfig) ([]Opportunity, []Note) {
	terms := snap.SearchTerms()
	if len(terms) < cfg.MinRecordsForAnalysis {
		return nil, insufficientNote(d.Name(), len(terms), cfg.MinRecordsForAnalysis)
	}

	est := NewEstimator(cfg, snap.Account.CPA)

	groups := make(map[string]*termGroup)
	for _, rec := range terms {
		text := rec.NormalizedText()
		if text == "" {
			continue
		}
		g, ok := groups[text]
		if !ok {
			g = &termGroup{
				text:      text,
				campaigns: make(map[string]struct{}),
				adGroups:  make(map[string]struct{}),
				sample:    rec,
			}
			groups[text] = g
		}
		g.cost += rec.Metrics.Cost
		g.conversions += rec.Metrics.Conversions
		g.impressions += rec.Metrics.Impressions
		g.campaigns[rec.CampaignID] = struct{}{}
		g.adGroups[rec.CampaignID+"|"+rec.AdGroupID] = struct{}{}
	}

	texts := make([]string, 0, len(groups))
	for text := range groups {
		texts = append(texts, text)
	}
	sort.Strings(texts)

	var opportunities []Opportunity
	for _, text := range texts {
		g := groups[text]

		// Protected terms are excluded from candidacy regardless of
		// performance.
		if containsAnyPattern(g.text, cfg.BrandTerms) || containsAnyPattern(g.text, cfg.LocalIntentPatterns) {
			continue
		}

		zeroConvWaste := g.cost >= cfg.HighCostThreshold && g.conversions == 0
		irrelevant := containsAnyPattern(g.text, cfg.IrrelevantPatterns)
		if !zeroConvWaste && !irrelevant {
			continue
		}

		level, target := negativeScope(g)

		var rationale []string
		if zeroConvWaste {
			rationale = append(rationale, fmt.Sprintf("$%.2f spend with zero conversions over the period", g.cost))
		}
		if irrelevant {
			rationale = append(rationale, "term matches a configured irrelevant-intent pattern")
		}
		rationale = append(rationale, fmt.Sprintf("seen in %d campaign(s), %d ad group(s)", len(g.campaigns), len(g.adGroups)))

		var savings float64
		if g.conversions == 0 {
			savings = est.ZeroConversionWaste(g.cost)
		} else {
			savings = est.WasteFraction(g.cost)
		}

		severity := SeverityMedium
		if zeroConvWaste && g.cost >= 2*cfg.HighCostThreshold {
			severity = SeverityHigh
		} else if !zeroConvWaste && g.cost < cfg.HighCostThreshold {
			severity = SeverityLow
		}

		opportunities = append(opportunities, Opportunity{
			ID:        uuid.NewString(),
			Category:  CategorySearchTermWaste,
			SubjectID: g.text,
			Subject:   fmt.Sprintf("search term %q", g.text),
			CurrentState: fmt.Sprintf("$%.2f spend, %.1f conversions across %d campaign(s)",
				g.cost, g.conversions, len(g.campaigns)),
			ProposedAction:          fmt.Sprintf("Add %q as a negative keyword at the %s level (%s)", g.text, level, target),
			Rationale:               rationale,
			EstimatedMonthlySavings: savings,
			Severity:                severity,
			PeriodCost:              g.cost,
		})
	}

	return opportunities, nil
}

// negativeScope chooses the level a negative keyword should be added at:
// terms recurring across campaigns go to an account-wide shared list, terms
// confined to one campaign but several ad groups go to the campaign, and
// single-ad-group terms stay at the ad group.
func negativeScope(g *termGroup) (ads.NegativeLevel, string) {
	if len(g.campaigns) >= 2 {
		return ads.NegativeLevelAccount, "shared negative list"
	}
	if len(g.adGroups) >= 2 {
		return ads.NegativeLevelCampaign, "campaign " + g.sample.CampaignID
	}
	return ads.NegativeLevelAdGroup, fmt.Sprintf("campaign %s, ad group %s", g.sample.CampaignID, g.sample.AdGroupID)
}
