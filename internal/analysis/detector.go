package analysis

import (
	"fmt"
	"sync"

	"github.com/ignite/ppc-analyzer/internal/config"
	"github.com/ignite/ppc-analyzer/internal/pkg/logger"
)

// Detector is one rule-based opportunity detector. Implementations must be
// pure functions of the snapshot and config: deterministic for identical
// inputs, no shared mutable state, no dependency on other detectors.
type Detector interface {
	Name() string
	Detect(snap *Snapshot, cfg config.AnalysisConfig) ([]Opportunity, []Note)
}

// DefaultDetectors returns the five detectors in their fixed evaluation
// order. The order matters only for deterministic collection; the detectors
// themselves are independent.
func DefaultDetectors() []Detector {
	return []Detector{
		&MatchTypeDetector{},
		&SearchTermWasteDetector{},
		&NegativeConflictDetector{},
		&GeoPerformanceDetector{},
		&CannibalizationDetector{},
	}
}

// RunDetectors fans the detectors out over the immutable snapshot, one
// goroutine per detector. A panicking detector is isolated: its failure
// becomes a report note and the other detectors are unaffected. Outputs are
// collected in the fixed detector order so the result is deterministic.
func RunDetectors(detectors []Detector, snap *Snapshot, cfg config.AnalysisConfig) ([]Opportunity, []Note) {
	type result struct {
		opps  []Opportunity
		notes []Note
	}
	results := make([]result, len(detectors))

	var wg sync.WaitGroup
	for i, d := range detectors {
		wg.Add(1)
		go func(i int, d Detector) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.Error("detector failed", "detector", d.Name(), "panic", fmt.Sprintf("%v", r))
					results[i] = result{notes: []Note{{
						Detector: d.Name(),
						Reason:   fmt.Sprintf("detector failure: %v", r),
					}}}
				}
			}()
			opps, notes := d.Detect(snap, cfg)
			results[i] = result{opps: opps, notes: notes}
		}(i, d)
	}
	wg.Wait()

	var opportunities []Opportunity
	var notes []Note
	for _, res := range results {
		opportunities = append(opportunities, res.opps...)
		notes = append(notes, res.notes...)
	}
	return opportunities, notes
}

// insufficientNote is the uniform "too little data" outcome shared by all
// detectors: zero opportunities plus an explicit note, never an error.
func insufficientNote(detector string, records, minimum int) []Note {
	err := &InsufficientDataError{Detector: detector, Records: records, Minimum: minimum}
	return []Note{{Detector: detector, Reason: err.Error()}}
}
