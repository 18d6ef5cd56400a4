package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/ppc-analyzer/internal/ads"
)

func autoTermRec(text, campaignID string, m ads.Metrics) ads.Record {
	r := searchTermRec(text, "", campaignID, m)
	r.CampaignType = ads.CampaignTypePerformanceMax
	return r
}

func TestCannibalizationAutomatedPaysMore(t *testing.T) {
	cfg := testAnalysisCfg()

	snap := buildTestSnapshot(cfg, map[ads.Category][]ads.Record{
		ads.CategorySearchTerms: {
			autoTermRec("blue widgets", "pmax1", ads.Metrics{Impressions: 2000, Clicks: 100, Cost: 400, Conversions: 2}),
			searchTermRec("blue widgets", "widgets", "search1", ads.Metrics{Impressions: 3000, Clicks: 150, Cost: 300, Conversions: 10}),
		},
	})

	opps, notes := (&CannibalizationDetector{}).Detect(snap, cfg)
	require.Empty(t, notes)
	require.Len(t, opps, 1)

	opp := opps[0]
	assert.Equal(t, CategoryCannibalization, opp.Category)
	assert.Equal(t, "blue widgets", opp.SubjectID)
	assert.Contains(t, opp.ProposedAction, "negative keyword in the automated campaign(s)")
	// Auto CPA 200 vs manual CPA 30: excess (400 - 2*30) dampened by half.
	assert.InDelta(t, (400-2*30)*0.5, opp.EstimatedMonthlySavings, 1e-9)
	assert.Equal(t, SeverityMedium, opp.Severity)
	assert.InDelta(t, 400.0, opp.PeriodCost, 1e-9)
}

func TestCannibalizationAutomatedNeverConverts(t *testing.T) {
	cfg := testAnalysisCfg()

	snap := buildTestSnapshot(cfg, map[ads.Category][]ads.Record{
		ads.CategorySearchTerms: {
			autoTermRec("blue widgets", "pmax1", ads.Metrics{Impressions: 2000, Clicks: 100, Cost: 250}),
			searchTermRec("blue widgets", "widgets", "search1", ads.Metrics{Impressions: 3000, Clicks: 150, Cost: 300, Conversions: 10}),
		},
	})

	opps, _ := (&CannibalizationDetector{}).Detect(snap, cfg)
	require.Len(t, opps, 1)

	opp := opps[0]
	assert.InDelta(t, 250*0.8, opp.EstimatedMonthlySavings, 1e-9)
	assert.Contains(t, opp.Rationale[1], "convert nothing")
}

func TestCannibalizationWithinMarginIsTolerated(t *testing.T) {
	cfg := testAnalysisCfg()

	snap := buildTestSnapshot(cfg, map[ads.Category][]ads.Record{
		ads.CategorySearchTerms: {
			// Auto CPA 35 vs manual CPA 30: inside the 30% margin.
			autoTermRec("blue widgets", "pmax1", ads.Metrics{Impressions: 2000, Clicks: 100, Cost: 350, Conversions: 10}),
			searchTermRec("blue widgets", "widgets", "search1", ads.Metrics{Impressions: 3000, Clicks: 150, Cost: 300, Conversions: 10}),
		},
	})

	opps, _ := (&CannibalizationDetector{}).Detect(snap, cfg)
	assert.Empty(t, opps)
}

func TestCannibalizationRequiresOverlapAndManualConversions(t *testing.T) {
	cfg := testAnalysisCfg()

	snap := buildTestSnapshot(cfg, map[ads.Category][]ads.Record{
		ads.CategorySearchTerms: {
			// Auto-only term: nothing to cannibalize.
			autoTermRec("red widgets", "pmax1", ads.Metrics{Impressions: 2000, Clicks: 100, Cost: 400}),
			// Overlapping term whose manual side never converts: no trusted
			// baseline to compare against.
			autoTermRec("green widgets", "pmax1", ads.Metrics{Impressions: 2000, Clicks: 100, Cost: 400, Conversions: 1}),
			searchTermRec("green widgets", "widgets", "search1", ads.Metrics{Impressions: 3000, Clicks: 150, Cost: 300}),
		},
	})

	opps, _ := (&CannibalizationDetector{}).Detect(snap, cfg)
	assert.Empty(t, opps)
}

func TestCannibalizationBrandTermEscalates(t *testing.T) {
	cfg := testAnalysisCfg()
	cfg.BrandTerms = []string{"acme"}

	snap := buildTestSnapshot(cfg, map[ads.Category][]ads.Record{
		ads.CategorySearchTerms: {
			autoTermRec("acme widgets", "pmax1", ads.Metrics{Impressions: 2000, Clicks: 100, Cost: 400, Conversions: 2}),
			searchTermRec("acme widgets", "acme", "search1", ads.Metrics{Impressions: 3000, Clicks: 150, Cost: 300, Conversions: 10}),
		},
	})

	opps, _ := (&CannibalizationDetector{}).Detect(snap, cfg)
	require.Len(t, opps, 1)
	assert.Equal(t, SeverityHigh, opps[0].Severity)
	assert.Contains(t, opps[0].Rationale[0], "brand term")
}
