package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/ppc-analyzer/internal/ads"
)

func negativeRec(text string, match ads.MatchType, level ads.NegativeLevel, campaignID, adGroupID string) ads.Record {
	return ads.Record{
		Category:      ads.CategoryNegatives,
		Text:          text,
		MatchType:     match,
		NegativeLevel: level,
		CampaignID:    campaignID,
		AdGroupID:     adGroupID,
	}
}

func positiveRec(text string, match ads.MatchType, conversions float64, qs *int) ads.Record {
	return ads.Record{
		Category:   ads.CategoryKeywords,
		Text:       text,
		MatchType:  match,
		CampaignID: "c1",
		AdGroupID:  "g1",
		Metrics: ads.Metrics{
			Impressions: 10000, Clicks: 500, Cost: 800,
			Conversions: conversions, QualityScore: qs,
		},
	}
}

func intPtr(v int) *int { return &v }

// A broad account-level negative sharing all its words with a converting,
// high-quality positive is the worst kind of silent block.
func TestNegativeConflictBroadBlocksValuableKeyword(t *testing.T) {
	cfg := testAnalysisCfg()

	snap := buildTestSnapshot(cfg, map[ads.Category][]ads.Record{
		ads.CategoryKeywords: {
			positiveRec("free shipping shoes", ads.MatchPhrase, 50, intPtr(9)),
		},
		ads.CategoryNegatives: {
			negativeRec("free", ads.MatchBroad, ads.NegativeLevelAccount, "", ""),
		},
	})

	opps, notes := (&NegativeConflictDetector{}).Detect(snap, cfg)
	require.Empty(t, notes)
	require.Len(t, opps, 1)

	opp := opps[0]
	assert.Equal(t, CategoryNegativeConflict, opp.Category)
	assert.Equal(t, SeverityCritical, opp.Severity, "50 conversions and QS 9")
	assert.Contains(t, opp.Subject, `negative "free"`)
	assert.Contains(t, opp.Subject, `keyword "free shipping shoes"`)
	assert.InDelta(t, 800*0.7, opp.EstimatedMonthlySavings, 1e-9)
}

func TestNegativeConflictMatchTypeSemantics(t *testing.T) {
	cfg := testAnalysisCfg()

	tests := []struct {
		name     string
		negative ads.Record
		positive ads.Record
		blocked  bool
	}{
		{
			name:     "exact negative blocks identical exact positive",
			negative: negativeRec("running shoes", ads.MatchExact, ads.NegativeLevelAccount, "", ""),
			positive: positiveRec("running shoes", ads.MatchExact, 5, nil),
			blocked:  true,
		},
		{
			name:     "exact negative ignores phrase positive with same text",
			negative: negativeRec("running shoes", ads.MatchExact, ads.NegativeLevelAccount, "", ""),
			positive: positiveRec("running shoes", ads.MatchPhrase, 5, nil),
			blocked:  false,
		},
		{
			name:     "phrase negative blocks contiguous containment",
			negative: negativeRec("running shoes", ads.MatchPhrase, ads.NegativeLevelAccount, "", ""),
			positive: positiveRec("best running shoes", ads.MatchBroad, 5, nil),
			blocked:  true,
		},
		{
			name:     "phrase negative ignores interleaved words",
			negative: negativeRec("running shoes", ads.MatchPhrase, ads.NegativeLevelAccount, "", ""),
			positive: positiveRec("running blue shoes", ads.MatchBroad, 5, nil),
			blocked:  false,
		},
		{
			name:     "broad negative blocks any word order",
			negative: negativeRec("shoes running", ads.MatchBroad, ads.NegativeLevelAccount, "", ""),
			positive: positiveRec("best running shoes", ads.MatchBroad, 5, nil),
			blocked:  true,
		},
		{
			name:     "broad negative needs every word present",
			negative: negativeRec("running shoes sale", ads.MatchBroad, ads.NegativeLevelAccount, "", ""),
			positive: positiveRec("running shoes", ads.MatchBroad, 5, nil),
			blocked:  false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			snap := buildTestSnapshot(cfg, map[ads.Category][]ads.Record{
				ads.CategoryKeywords:  {tc.positive},
				ads.CategoryNegatives: {tc.negative},
			})
			opps, _ := (&NegativeConflictDetector{}).Detect(snap, cfg)
			if tc.blocked {
				assert.Len(t, opps, 1)
			} else {
				assert.Empty(t, opps)
			}
		})
	}
}

func TestNegativeConflictLevelScoping(t *testing.T) {
	cfg := testAnalysisCfg()
	positive := positiveRec("running shoes", ads.MatchExact, 5, nil) // campaign c1, ad group g1

	tests := []struct {
		name     string
		negative ads.Record
		blocked  bool
	}{
		{
			name:     "ad group negative in another ad group does not apply",
			negative: negativeRec("running shoes", ads.MatchExact, ads.NegativeLevelAdGroup, "c1", "g2"),
			blocked:  false,
		},
		{
			name:     "ad group negative in the same ad group applies",
			negative: negativeRec("running shoes", ads.MatchExact, ads.NegativeLevelAdGroup, "c1", "g1"),
			blocked:  true,
		},
		{
			name:     "campaign negative in another campaign does not apply",
			negative: negativeRec("running shoes", ads.MatchExact, ads.NegativeLevelCampaign, "c2", ""),
			blocked:  false,
		},
		{
			name:     "account negative applies everywhere",
			negative: negativeRec("running shoes", ads.MatchExact, ads.NegativeLevelAccount, "", ""),
			blocked:  true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			snap := buildTestSnapshot(cfg, map[ads.Category][]ads.Record{
				ads.CategoryKeywords:  {positive},
				ads.CategoryNegatives: {tc.negative},
			})
			opps, _ := (&NegativeConflictDetector{}).Detect(snap, cfg)
			if tc.blocked {
				assert.Len(t, opps, 1)
			} else {
				assert.Empty(t, opps)
			}
		})
	}
}

func TestNegativeConflictSeverityGrading(t *testing.T) {
	assert.Equal(t, SeverityCritical, conflictSeverity(positiveRec("a", ads.MatchExact, 10, intPtr(8))))
	assert.Equal(t, SeverityHigh, conflictSeverity(positiveRec("a", ads.MatchExact, 10, nil)))
	assert.Equal(t, SeverityHigh, conflictSeverity(positiveRec("a", ads.MatchExact, 0, intPtr(9))))
	assert.Equal(t, SeverityMedium, conflictSeverity(positiveRec("a", ads.MatchExact, 1, nil)))
	assert.Equal(t, SeverityLow, conflictSeverity(positiveRec("a", ads.MatchExact, 0, nil)))
}

func TestNegativeConflictNoNegatives(t *testing.T) {
	cfg := testAnalysisCfg()
	snap := buildTestSnapshot(cfg, map[ads.Category][]ads.Record{
		ads.CategoryKeywords: {positiveRec("running shoes", ads.MatchExact, 5, nil)},
	})

	opps, notes := (&NegativeConflictDetector{}).Detect(snap, cfg)
	assert.Empty(t, opps)
	require.Len(t, notes, 1)
	assert.Equal(t, "negative_conflict", notes[0].Detector)
}
