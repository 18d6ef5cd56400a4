package analysis

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/ppc-analyzer/internal/ads"
	"github.com/ignite/ppc-analyzer/internal/config"
)

// Recommendation is one surfaced, ranked opportunity on the report.
type Recommendation struct {
	Rank                    int                 `json:"rank"`
	Category                OpportunityCategory `json:"category"`
	Subject                 string              `json:"subject"`
	SubjectID               string              `json:"subject_id"`
	CurrentState            string              `json:"current_state"`
	ProposedAction          string              `json:"proposed_action"`
	Rationale               []string            `json:"rationale,omitempty"`
	EstimatedMonthlySavings float64             `json:"estimated_monthly_savings"`
	Severity                Severity            `json:"severity"`
}

// OverflowSummary counts opportunities past the recommendation cap. They are
// never enumerated individually once the cap is reached.
type OverflowSummary struct {
	Count                   int     `json:"count"`
	EstimatedMonthlySavings float64 `json:"estimated_monthly_savings"`
}

// PlanPhase is one phase of the mechanical implementation plan.
type PlanPhase struct {
	Phase int      `json:"phase"`
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

// AccountSummary carries the account-level aggregates on the report.
type AccountSummary struct {
	Impressions    int64   `json:"impressions"`
	Clicks         int64   `json:"clicks"`
	Cost           float64 `json:"cost"`
	Conversions    float64 `json:"conversions"`
	CTR            float64 `json:"ctr"`
	AvgCPC         float64 `json:"avg_cpc"`
	CPA            float64 `json:"cpa"`
	ROAS           float64 `json:"roas"`
	ConversionRate float64 `json:"conversion_rate"`
}

// Report is the terminal artifact of one analysis run. It is handed to the
// presentation boundary and not retained by the engine.
type Report struct {
	RunID       string `json:"run_id"`
	GeneratedAt string `json:"generated_at"`

	CustomerID  string   `json:"customer_id"`
	PeriodStart string   `json:"period_start"`
	PeriodEnd   string   `json:"period_end"`
	CampaignIDs []string `json:"campaign_ids,omitempty"`

	TotalRecordsAnalyzed int                  `json:"total_records_analyzed"`
	RecordCounts         map[ads.Category]int `json:"record_counts"`
	ExcludedCounts       map[ads.Category]int `json:"excluded_counts"`
	Partial              bool                 `json:"partial,omitempty"`

	Summary AccountSummary `json:"summary"`

	Recommendations              []Recommendation `json:"recommendations"`
	AdditionalOpportunities      OverflowSummary  `json:"additional_opportunities"`
	TotalEstimatedMonthlySavings float64          `json:"total_estimated_monthly_savings"`

	ImplementationPlan []PlanPhase `json:"implementation_plan"`
	Notes              []Note      `json:"notes,omitempty"`
}

// Compact truncates ranked opportunities to the configured cap, summarizes
// the overflow, derives the implementation plan, and enforces the serialized
// byte budget so the artifact stays consumable by a downstream client with a
// limited processing budget.
func Compact(ranked []Opportunity, snap *Snapshot, notes []Note, cfg *config.Config, scope ads.Scope) (*Report, error) {
	maxRecs := cfg.Report.MaxRecommendations
	surfaced := ranked
	if len(surfaced) > maxRecs {
		surfaced = surfaced[:maxRecs]
	}

	recommendations := make([]Recommendation, 0, len(surfaced))
	for i, opp := range surfaced {
		recommendations = append(recommendations, Recommendation{
			Rank:                    i + 1,
			Category:                opp.Category,
			Subject:                 opp.Subject,
			SubjectID:               opp.SubjectID,
			CurrentState:            opp.CurrentState,
			ProposedAction:          opp.ProposedAction,
			Rationale:               opp.Rationale,
			EstimatedMonthlySavings: round2(opp.EstimatedMonthlySavings),
			Severity:                opp.Severity,
		})
	}

	var overflow OverflowSummary
	for _, opp := range ranked[len(surfaced):] {
		overflow.Count++
		overflow.EstimatedMonthlySavings += opp.EstimatedMonthlySavings
	}
	overflow.EstimatedMonthlySavings = round2(overflow.EstimatedMonthlySavings)

	total := 0.0
	for _, opp := range ranked {
		total += opp.EstimatedMonthlySavings
	}

	dataset := snap.Dataset
	recordCounts := make(map[ads.Category]int, len(dataset.Records))
	for category, recs := range dataset.Records {
		recordCounts[category] = len(recs)
	}

	report := &Report{
		RunID:                        uuid.NewString(),
		GeneratedAt:                  time.Now().UTC().Format(time.RFC3339),
		CustomerID:                   scope.CustomerID,
		PeriodStart:                  scope.StartDate.Format("2006-01-02"),
		PeriodEnd:                    scope.EndDate.Format("2006-01-02"),
		CampaignIDs:                  scope.CampaignIDs,
		TotalRecordsAnalyzed:         dataset.TotalRecords(),
		RecordCounts:                 recordCounts,
		ExcludedCounts:               snap.ExcludedCounts,
		Partial:                      dataset.IsPartial(),
		Summary:                      accountSummary(snap.Account),
		Recommendations:              recommendations,
		AdditionalOpportunities:      overflow,
		TotalEstimatedMonthlySavings: round2(total),
		ImplementationPlan:           buildPlan(recommendations),
		Notes:                        notes,
	}

	if err := enforceByteBudget(report, cfg.Report.MaxReportBytes); err != nil {
		return nil, err
	}
	return report, nil
}

func accountSummary(account *AggregateBucket) AccountSummary {
	return AccountSummary{
		Impressions:    account.Impressions,
		Clicks:         account.Clicks,
		Cost:           round2(account.Cost),
		Conversions:    account.Conversions,
		CTR:            account.CTR,
		AvgCPC:         round2(account.AvgCPC),
		CPA:            round2(account.CPA),
		ROAS:           account.ROAS,
		ConversionRate: account.ConversionRate,
	}
}

// buildPlan derives a fixed three-phase plan mechanically from the surfaced
// recommendations. Phase membership follows the action's nature: negatives
// and conflict fixes are quick wins, match-type and geo changes are
// structural, and the last phase is always measurement.
func buildPlan(recommendations []Recommendation) []PlanPhase {
	var quickWins, structural []string
	for _, rec := range recommendations {
		item := fmt.Sprintf("#%d %s: %s", rec.Rank, rec.Subject, rec.ProposedAction)
		switch rec.Category {
		case CategorySearchTermWaste, CategoryNegativeConflict, CategoryCannibalization:
			quickWins = append(quickWins, item)
		default:
			structural = append(structural, item)
		}
	}
	if quickWins == nil {
		quickWins = []string{"No negative-keyword or conflict actions surfaced this period"}
	}
	if structural == nil {
		structural = []string{"No match-type or location actions surfaced this period"}
	}
	return []PlanPhase{
		{Phase: 1, Name: "Week 1: quick wins", Items: quickWins},
		{Phase: 2, Name: "Week 2: structural changes", Items: structural},
		{Phase: 3, Name: "Weeks 3-4: monitor and iterate", Items: []string{
			"Compare CPA, ROAS, and conversion volume against the pre-change baseline",
			"Re-run the analysis on the post-change period before applying further cuts",
		}},
	}
}

// enforceByteBudget shrinks the serialized report to fit maxBytes: first by
// trimming rationale to its leading entry, then by demoting the lowest-ranked
// recommendations into the overflow summary.
func enforceByteBudget(report *Report, maxBytes int) error {
	if maxBytes <= 0 {
		return nil
	}
	size, err := serializedSize(report)
	if err != nil {
		return err
	}
	if size <= maxBytes {
		return nil
	}

	for i := range report.Recommendations {
		if len(report.Recommendations[i].Rationale) > 1 {
			report.Recommendations[i].Rationale = report.Recommendations[i].Rationale[:1]
		}
	}

	for {
		size, err = serializedSize(report)
		if err != nil {
			return err
		}
		if size <= maxBytes {
			return nil
		}
		if len(report.Recommendations) == 0 {
			return fmt.Errorf("report exceeds %d byte budget even with no recommendations", maxBytes)
		}
		last := report.Recommendations[len(report.Recommendations)-1]
		report.Recommendations = report.Recommendations[:len(report.Recommendations)-1]
		report.AdditionalOpportunities.Count++
		report.AdditionalOpportunities.EstimatedMonthlySavings = round2(
			report.AdditionalOpportunities.EstimatedMonthlySavings + last.EstimatedMonthlySavings)
		report.ImplementationPlan = buildPlan(report.Recommendations)
	}
}

func serializedSize(report *Report) (int, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to size report: %w", err)
	}
	return len(data), nil
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
