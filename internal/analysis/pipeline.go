package analysis

import (
	"context"
	"fmt"

	"github.com/ignite/ppc-analyzer/internal/ads"
	"github.com/ignite/ppc-analyzer/internal/config"
	"github.com/ignite/ppc-analyzer/internal/pkg/logger"
)

// DatasetFetcher is the pipeline's view of the fetch orchestrator.
type DatasetFetcher interface {
	FetchDataset(ctx context.Context, scope ads.Scope) (*ads.Dataset, error)
}

// Pipeline runs one full analysis: fetch, aggregate, detect, rank, compact.
// It holds no per-run state, so concurrent runs for different scopes do not
// interfere.
type Pipeline struct {
	fetcher   DatasetFetcher
	detectors []Detector
	cfg       *config.Config
}

// NewPipeline wires the pipeline with the default five detectors.
func NewPipeline(fetcher DatasetFetcher, cfg *config.Config) *Pipeline {
	return &Pipeline{fetcher: fetcher, detectors: DefaultDetectors(), cfg: cfg}
}

// Run executes one analysis for the scope under a single deadline. The
// deadline covers fetch and analysis; detection itself never blocks.
func (p *Pipeline) Run(ctx context.Context, scope ads.Scope) (*Report, error) {
	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Fetch.Timeout())
	defer cancel()

	logger.Info("analysis run starting",
		"customer_id", scope.CustomerID,
		"period_start", scope.StartDate.Format("2006-01-02"),
		"period_end", scope.EndDate.Format("2006-01-02"))

	dataset, err := p.fetcher.FetchDataset(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("analysis aborted: %w", err)
	}

	snap := BuildSnapshot(dataset, p.cfg.Analysis)

	var opportunities []Opportunity
	var notes []Note

	if dataset.TotalRecords() < p.cfg.Analysis.MinRecordsForAnalysis {
		// Too little data for any detector to say something meaningful.
		// Not a crash: an empty report with an explicit note.
		insufficient := &InsufficientDataError{
			Detector: "account",
			Records:  dataset.TotalRecords(),
			Minimum:  p.cfg.Analysis.MinRecordsForAnalysis,
		}
		notes = append(notes, Note{Reason: insufficient.Error()})
		logger.Warn("insufficient data for analysis",
			"records", dataset.TotalRecords(),
			"minimum", p.cfg.Analysis.MinRecordsForAnalysis)
	} else {
		opportunities, notes = RunDetectors(p.detectors, snap, p.cfg.Analysis)
	}

	for _, category := range ads.Categories {
		if dataset.Partial[category] {
			notes = append(notes, Note{Reason: fmt.Sprintf(
				"category %s analyzed from partial data (provider fetch failed after retries)", category)})
		}
	}

	ranked := Rank(opportunities)
	report, err := Compact(ranked, snap, notes, p.cfg, scope)
	if err != nil {
		return nil, err
	}

	logger.Info("analysis run complete",
		"customer_id", scope.CustomerID,
		"records", report.TotalRecordsAnalyzed,
		"opportunities", len(ranked),
		"surfaced", len(report.Recommendations),
		"total_savings", fmt.Sprintf("%.2f", report.TotalEstimatedMonthlySavings))

	return report, nil
}
