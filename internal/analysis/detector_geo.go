package analysis

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/ignite/ppc-analyzer/internal/config"
)

// GeoPerformanceDetector compares each location's ROAS and conversion rate
// to the account-wide average and recommends bid adjustments, or full
// exclusion for locations that spend heavily without ever converting.
type GeoPerformanceDetector struct{}

// Name implements Detector.
func (d *GeoPerformanceDetector) Name() string { return "geo_performance" }

// Detect implements Detector.
func (d *GeoPerformanceDetector) Detect(snap *Snapshot, cfg config.AnalysisConfig) ([]Opportunity, []Note) {
	if len(snap.ByLocation.Buckets) == 0 {
		return nil, insufficientNote(d.Name(), 0, 1)
	}

	est := NewEstimator(cfg, snap.Account.CPA)
	avg := snap.GeoAccount

	keys := make([]string, 0, len(snap.ByLocation.Buckets))
	for key := range snap.ByLocation.Buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var opportunities []Opportunity
	for _, key := range keys {
		loc := snap.ByLocation.Buckets[key]
		name := loc.Rep.LocationName
		if name == "" {
			name = loc.Rep.LocationID
		}

		// Exclusion takes precedence: heavy spend with zero conversions is
		// waste no bid adjustment can fix.
		if loc.Conversions == 0 && loc.Cost >= cfg.GeoExclusionSpendThreshold {
			opportunities = append(opportunities, Opportunity{
				ID:        uuid.NewString(),
				Category:  CategoryGeoPerformance,
				SubjectID: loc.Rep.LocationID,
				Subject:   fmt.Sprintf("location %s", name),
				CurrentState: fmt.Sprintf("$%.2f spend with zero conversions over the period",
					loc.Cost),
				ProposedAction: "Exclude this location from targeting",
				Rationale: []string{
					fmt.Sprintf("spend $%.2f exceeds the $%.2f exclusion threshold with no conversions",
						loc.Cost, cfg.GeoExclusionSpendThreshold),
				},
				EstimatedMonthlySavings: est.ZeroConversionWaste(loc.Cost),
				Severity:                SeverityHigh,
				PeriodCost:              loc.Cost,
			})
			continue
		}

		if avg.ROAS <= 0 || avg.ConversionRate <= 0 {
			// No meaningful account baseline to compare against.
			continue
		}

		roasRatio := loc.ROAS / avg.ROAS
		convRatio := loc.ConversionRate / avg.ConversionRate

		switch {
		case roasRatio >= cfg.GeoOutperformMultiplier &&
			convRatio >= cfg.GeoOutperformMultiplier &&
			loc.Conversions >= cfg.GeoMinConversions:

			magnitude := positiveAdjustment(roasRatio, cfg)
			opportunities = append(opportunities, Opportunity{
				ID:        uuid.NewString(),
				Category:  CategoryGeoPerformance,
				SubjectID: loc.Rep.LocationID,
				Subject:   fmt.Sprintf("location %s", name),
				CurrentState: fmt.Sprintf("ROAS %.2f (%.1fx account average), conversion rate %.1fx average, %.1f conversions",
					loc.ROAS, roasRatio, convRatio, loc.Conversions),
				ProposedAction: fmt.Sprintf("Increase location bid adjustment by +%.0f%%", magnitude*100),
				Rationale: []string{
					fmt.Sprintf("outperforms the account on both ROAS and conversion rate at or above the %.1fx threshold", cfg.GeoOutperformMultiplier),
					"revenue-upside action: no cost reduction is estimated for bid increases",
				},
				EstimatedMonthlySavings: 0,
				Severity:                SeverityMedium,
				PeriodCost:              loc.Cost,
			})

		case roasRatio <= 0.5 && convRatio <= 0.5:
			magnitude := cfg.BidAdjustmentMin
			opportunities = append(opportunities, Opportunity{
				ID:        uuid.NewString(),
				Category:  CategoryGeoPerformance,
				SubjectID: loc.Rep.LocationID,
				Subject:   fmt.Sprintf("location %s", name),
				CurrentState: fmt.Sprintf("ROAS %.2f (%.1fx account average), conversion rate %.1fx average, $%.2f spend",
					loc.ROAS, roasRatio, convRatio, loc.Cost),
				ProposedAction: fmt.Sprintf("Decrease location bid adjustment by -%.0f%%", magnitude*100),
				Rationale: []string{
					"underperforms the account at or below half the average on both ROAS and conversion rate",
				},
				EstimatedMonthlySavings: est.BidAdjustmentReduction(loc.Cost, magnitude),
				Severity:                SeverityMedium,
				PeriodCost:              loc.Cost,
			})
		}
	}

	return opportunities, nil
}

// positiveAdjustment maps how far a location outperforms the average onto
// the configured bid-adjustment range: at the outperform threshold the
// minimum applies, at twice the threshold (or beyond) the maximum.
func positiveAdjustment(roasRatio float64, cfg config.AnalysisConfig) float64 {
	span := cfg.BidAdjustmentMax - cfg.BidAdjustmentMin
	if span <= 0 {
		return cfg.BidAdjustmentMin
	}
	scale := (roasRatio - cfg.GeoOutperformMultiplier) / cfg.GeoOutperformMultiplier
	if scale < 0 {
		scale = 0
	}
	if scale > 1 {
		scale = 1
	}
	return cfg.BidAdjustmentMin + span*scale
}
