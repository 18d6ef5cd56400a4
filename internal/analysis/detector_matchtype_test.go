package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/ppc-analyzer/internal/ads"
	"github.com/ignite/ppc-analyzer/internal/config"
)

// testAnalysisCfg returns defaults tuned for small fixtures: the account-level
// record minimum is lowered so detectors run on a handful of records.
func testAnalysisCfg() config.AnalysisConfig {
	cfg := config.Default().Analysis
	cfg.MinRecordsForAnalysis = 1
	return cfg
}

func buildTestSnapshot(cfg config.AnalysisConfig, records map[ads.Category][]ads.Record) *Snapshot {
	dataset := &ads.Dataset{
		Records: records,
		Partial: map[ads.Category]bool{},
	}
	return BuildSnapshot(dataset, cfg)
}

func searchTermRec(text, matchedKeyword, campaignID string, m ads.Metrics) ads.Record {
	return ads.Record{
		Category:       ads.CategorySearchTerms,
		Text:           text,
		MatchedKeyword: matchedKeyword,
		CampaignID:     campaignID,
		CampaignType:   ads.CampaignTypeSearch,
		AdGroupID:      "g1",
		Metrics:        m,
	}
}

// A healthy broad keyword whose query volume is dominated by its own exact
// text gets a convert-to-exact recommendation even though no performance
// threshold fires.
func TestMatchTypeDetectorExactDominatedTraffic(t *testing.T) {
	cfg := testAnalysisCfg()

	records := map[ads.Category][]ads.Record{
		ads.CategoryKeywords: {
			keywordRec("running shoes", ads.MatchBroad, ads.Metrics{
				Impressions: 10000, Clicks: 500, Cost: 2500,
				Conversions: 50, ConversionValue: 10000, // ROAS 4.0, no waste signal
			}),
		},
		ads.CategorySearchTerms: {
			searchTermRec("running shoes", "running shoes", "c1", ads.Metrics{Impressions: 700, Clicks: 35, Cost: 175}),
			searchTermRec("best running shoes 2026", "running shoes", "c1", ads.Metrics{Impressions: 300, Clicks: 15, Cost: 75}),
		},
	}
	snap := buildTestSnapshot(cfg, records)

	detector := &MatchTypeDetector{}
	opps, notes := detector.Detect(snap, cfg)
	require.Empty(t, notes)
	require.Len(t, opps, 1)

	opp := opps[0]
	assert.Equal(t, CategoryMatchType, opp.Category)
	assert.Equal(t, "running shoes|BROAD", opp.SubjectID)
	assert.Contains(t, opp.ProposedAction, "Convert to exact match")
	// 70% exact share: half the non-exact spend is the conservative estimate.
	assert.InDelta(t, 2500*0.3*0.5, opp.EstimatedMonthlySavings, 1e-9)
	assert.Equal(t, SeverityMedium, opp.Severity)
	assert.LessOrEqual(t, opp.EstimatedMonthlySavings, opp.PeriodCost)
}

func TestMatchTypeDetectorLowROASHighCost(t *testing.T) {
	cfg := testAnalysisCfg()

	records := map[ads.Category][]ads.Record{
		ads.CategoryKeywords: {
			keywordRec("cheap stuff", ads.MatchBroad, ads.Metrics{
				Impressions: 5000, Clicks: 400, Cost: 300,
				Conversions: 0, ConversionValue: 0,
			}),
			// A healthy exact keyword so the account average is defined.
			keywordRec("running shoes", ads.MatchExact, ads.Metrics{
				Impressions: 5000, Clicks: 250, Cost: 500,
				Conversions: 25, ConversionValue: 2500,
			}),
		},
	}
	snap := buildTestSnapshot(cfg, records)

	opps, notes := (&MatchTypeDetector{}).Detect(snap, cfg)
	require.Empty(t, notes)
	require.Len(t, opps, 1, "exact keywords are never flagged")

	opp := opps[0]
	assert.Equal(t, "cheap stuff|BROAD", opp.SubjectID)
	assert.Equal(t, SeverityHigh, opp.Severity, "zero conversions on high spend")
	require.NotEmpty(t, opp.Rationale)
	assert.Contains(t, opp.Rationale[0], "ROAS")
}

// When both a performance reason and an exact-share reason apply, the
// highest-cost reason picks the action but every reason stays in the
// rationale.
func TestMatchTypeDetectorHighestWeightReasonWins(t *testing.T) {
	cfg := testAnalysisCfg()

	records := map[ads.Category][]ads.Record{
		ads.CategoryKeywords: {
			keywordRec("wool socks", ads.MatchBroad, ads.Metrics{
				Impressions: 8000, Clicks: 600, Cost: 1200,
				Conversions: 3, ConversionValue: 600, // ROAS 0.5
			}),
		},
		ads.CategorySearchTerms: {
			searchTermRec("wool socks", "wool socks", "c1", ads.Metrics{Impressions: 900}),
			searchTermRec("warm wool socks", "wool socks", "c1", ads.Metrics{Impressions: 100}),
		},
	}
	snap := buildTestSnapshot(cfg, records)

	opps, _ := (&MatchTypeDetector{}).Detect(snap, cfg)
	require.Len(t, opps, 1)

	opp := opps[0]
	// Performance reason weight is the full 1200 spend; the exact-share
	// reason weighs only the non-exact 10% of it.
	assert.Contains(t, opp.ProposedAction, "Reduce broad-match usage")
	assert.Len(t, opp.Rationale, 2)
}

func TestMatchTypeDetectorInsufficientData(t *testing.T) {
	cfg := testAnalysisCfg()
	cfg.MinRecordsForAnalysis = 10

	snap := buildTestSnapshot(cfg, map[ads.Category][]ads.Record{
		ads.CategoryKeywords: {keywordRec("a", ads.MatchBroad, ads.Metrics{Impressions: 200, Clicks: 10, Cost: 5})},
	})

	opps, notes := (&MatchTypeDetector{}).Detect(snap, cfg)
	assert.Empty(t, opps)
	require.Len(t, notes, 1)
	assert.Equal(t, "match_type_optimizer", notes[0].Detector)
	assert.Contains(t, notes[0].Reason, "minimum is 10")
}
