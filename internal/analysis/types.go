// Package analysis implements the analysis orchestration engine: metric
// aggregation, five rule-based opportunity detectors, conservative savings
// estimation, deterministic ranking, and report compaction.
package analysis

import (
	"encoding/json"
	"fmt"
)

// OpportunityCategory tags which detector produced an opportunity.
type OpportunityCategory string

const (
	CategoryMatchType        OpportunityCategory = "match_type"
	CategorySearchTermWaste  OpportunityCategory = "search_term_waste"
	CategoryNegativeConflict OpportunityCategory = "negative_conflict"
	CategoryGeoPerformance   OpportunityCategory = "geo_performance"
	CategoryCannibalization  OpportunityCategory = "cannibalization"
)

// Severity orders how urgently an opportunity should be acted on.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var severityNames = map[Severity]string{
	SeverityLow:      "low",
	SeverityMedium:   "medium",
	SeverityHigh:     "high",
	SeverityCritical: "critical",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// MarshalJSON renders the severity as its name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Opportunity is one detector finding. Opportunities are produced once per
// run and never mutated afterwards; the ranker only orders them.
type Opportunity struct {
	ID             string              `json:"id"`
	Category       OpportunityCategory `json:"category"`
	SubjectID      string              `json:"subject_id"`
	Subject        string              `json:"subject"`
	CurrentState   string              `json:"current_state"`
	ProposedAction string              `json:"proposed_action"`
	Rationale      []string            `json:"rationale"`

	// EstimatedMonthlySavings never exceeds PeriodCost; the estimator clamps.
	EstimatedMonthlySavings float64  `json:"estimated_monthly_savings"`
	Severity                Severity `json:"severity"`

	// PeriodCost is the subject's cost over the analyzed period.
	PeriodCost float64 `json:"period_cost"`
}

// Note surfaces a non-fatal condition (insufficient data, detector failure)
// on the report instead of aborting the run.
type Note struct {
	Detector string `json:"detector,omitempty"`
	Reason   string `json:"reason"`
}

// InsufficientDataError reports that a category or detector had too few
// qualifying records to produce a meaningful result. It is not fatal; the
// pipeline converts it into a report-level note.
type InsufficientDataError struct {
	Detector string
	Records  int
	Minimum  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: %d qualifying records, minimum is %d", e.Detector, e.Records, e.Minimum)
}
