package analysis

import "sort"

// Rank orders opportunities for the report: estimated savings descending,
// ties broken by severity (critical first), then by subject id and category
// so the order is total and deterministic for identical input.
//
// Opportunities about the same subject from different detectors are never
// merged: they usually represent independent, additive actions.
func Rank(opportunities []Opportunity) []Opportunity {
	ranked := append([]Opportunity(nil), opportunities...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.EstimatedMonthlySavings != b.EstimatedMonthlySavings {
			return a.EstimatedMonthlySavings > b.EstimatedMonthlySavings
		}
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		if a.SubjectID != b.SubjectID {
			return a.SubjectID < b.SubjectID
		}
		return a.Category < b.Category
	})
	return ranked
}
