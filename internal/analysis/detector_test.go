package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/ppc-analyzer/internal/ads"
	"github.com/ignite/ppc-analyzer/internal/config"
)

type stubDetector struct {
	name string
	opps []Opportunity
}

func (d *stubDetector) Name() string { return d.name }
func (d *stubDetector) Detect(*Snapshot, config.AnalysisConfig) ([]Opportunity, []Note) {
	return d.opps, nil
}

type panickingDetector struct{}

func (d *panickingDetector) Name() string { return "panicking" }
func (d *panickingDetector) Detect(*Snapshot, config.AnalysisConfig) ([]Opportunity, []Note) {
	panic("index out of range")
}

func TestDefaultDetectorsFixedOrder(t *testing.T) {
	detectors := DefaultDetectors()
	require.Len(t, detectors, 5)

	names := make([]string, 0, len(detectors))
	for _, d := range detectors {
		names = append(names, d.Name())
	}
	assert.Equal(t, []string{
		"match_type_optimizer",
		"search_term_waste",
		"negative_conflict",
		"geo_performance",
		"cross_campaign_cannibalization",
	}, names)
}

func TestRunDetectorsCollectsInFixedOrder(t *testing.T) {
	cfg := testAnalysisCfg()
	snap := buildTestSnapshot(cfg, map[ads.Category][]ads.Record{})

	detectors := []Detector{
		&stubDetector{name: "first", opps: []Opportunity{{ID: "a"}, {ID: "b"}}},
		&stubDetector{name: "second", opps: []Opportunity{{ID: "c"}}},
	}

	for i := 0; i < 10; i++ {
		opps, notes := RunDetectors(detectors, snap, cfg)
		require.Len(t, opps, 3)
		assert.Equal(t, "a", opps[0].ID)
		assert.Equal(t, "b", opps[1].ID)
		assert.Equal(t, "c", opps[2].ID)
		assert.Empty(t, notes)
	}
}

// One detector blowing up must not take down the run or the other detectors.
func TestRunDetectorsIsolatesPanics(t *testing.T) {
	cfg := testAnalysisCfg()
	snap := buildTestSnapshot(cfg, map[ads.Category][]ads.Record{})

	detectors := []Detector{
		&panickingDetector{},
		&stubDetector{name: "healthy", opps: []Opportunity{{ID: "survivor"}}},
	}

	opps, notes := RunDetectors(detectors, snap, cfg)

	require.Len(t, opps, 1)
	assert.Equal(t, "survivor", opps[0].ID)
	require.Len(t, notes, 1)
	assert.Equal(t, "panicking", notes[0].Detector)
	assert.Contains(t, notes[0].Reason, "detector failure")
	assert.Contains(t, notes[0].Reason, "index out of range")
}
