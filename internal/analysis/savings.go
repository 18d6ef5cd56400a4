package analysis

import (
	"github.com/ignite/ppc-analyzer/internal/config"
)

// Estimator is the shared, conservative financial-impact calculator. Every
// estimate is clamped to the subject's analyzed-period cost: the engine
// must never promise savings larger than what was actually spent.
//
// Multipliers are named configuration values, deliberately below 1.0, so the
// engine understates rather than overstates impact.
type Estimator struct {
	cfg        config.AnalysisConfig
	accountCPA float64
}

// NewEstimator creates an estimator for one run. accountCPA of zero means
// the account-average CPA is undefined; CPA-gap estimates then fall back to
// the plain waste fraction.
func NewEstimator(cfg config.AnalysisConfig, accountCPA float64) *Estimator {
	return &Estimator{cfg: cfg, accountCPA: accountCPA}
}

// ZeroConversionWaste estimates recoverable spend for a subject with zero
// conversions: a fixed fraction of its spend, never all of it.
func (e *Estimator) ZeroConversionWaste(cost float64) float64 {
	return clampToCost(cost*e.cfg.ZeroConvRecoveryFraction, cost)
}

// WasteFraction estimates recoverable spend for identified waste that still
// carries some conversions.
func (e *Estimator) WasteFraction(cost float64) float64 {
	return clampToCost(cost*e.cfg.WasteRecoveryFraction, cost)
}

// CPAGap estimates the spend recoverable by bringing a high-CPA subject back
// to the account-average CPA, scaled by a dampening factor.
func (e *Estimator) CPAGap(cost, conversions float64) float64 {
	if conversions <= 0 {
		return e.ZeroConversionWaste(cost)
	}
	if e.accountCPA <= 0 {
		return e.WasteFraction(cost)
	}
	subjectCPA := cost / conversions
	gap := (subjectCPA - e.accountCPA) * conversions
	if gap <= 0 {
		return 0
	}
	return clampToCost(gap*e.cfg.CPAGapDampening, cost)
}

// MatchTypeConversion estimates savings from converting a broad/phrase
// keyword to exact match: a fraction of the spend currently going to queries
// that are not the keyword itself.
func (e *Estimator) MatchTypeConversion(cost, exactShare float64) float64 {
	if exactShare < 0 {
		exactShare = 0
	}
	if exactShare > 1 {
		exactShare = 1
	}
	return clampToCost(cost*(1-exactShare)*e.cfg.MatchTypeSavingsFraction, cost)
}

// BidAdjustmentReduction estimates savings from a negative bid adjustment of
// the given magnitude on a subject's spend.
func (e *Estimator) BidAdjustmentReduction(cost, magnitude float64) float64 {
	if magnitude < 0 {
		magnitude = 0
	}
	return clampToCost(cost*magnitude*e.cfg.WasteRecoveryFraction, cost)
}

func clampToCost(v, cost float64) float64 {
	if v < 0 {
		return 0
	}
	if v > cost {
		return cost
	}
	return v
}
