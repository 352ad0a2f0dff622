package backtest

// Named go/no-go checks, in report order.
const (
	CheckDrawdownImproved   = "drawdown_or_recovery_improved"
	CheckFrequencyReduced   = "frequency_reduced"
	CheckExpectancyOK       = "expectancy_not_significantly_worse"
	CheckSegmentConsistency = "segment_consistency"
)

// Thresholds tunes the gate. The zero value falls back to the defaults.
type Thresholds struct {
	// ExpectancyTolerance is the fraction of a profitable baseline's
	// expectancy the candidate must retain.
	ExpectancyTolerance float64
}

// DefaultThresholds returns the production gate thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{ExpectancyTolerance: 0.9}
}

// Check is one named gate criterion with its outcome.
type Check struct {
	Name string `json:"name"`
	Pass bool   `json:"pass"`
}

// Verdict is the go/no-go outcome. A No-Go is a successful run result, not an
// error: it means the advisory layer did not earn its keep.
type Verdict struct {
	Go               bool    `json:"go"`
	CandidateVariant string  `json:"candidate_variant,omitempty"`
	Reason           string  `json:"reason,omitempty"`
	Checks           []Check `json:"checks"`
}

// EvaluateGoNoGo compares the advisory candidate variant against the
// baseline. The candidate is ai_filter_sizing when present, otherwise
// ai_filter. Every check must pass for a Go.
func EvaluateGoNoGo(results map[string]*VariantResult, th Thresholds) Verdict {
	if th.ExpectancyTolerance <= 0 {
		th = DefaultThresholds()
	}

	baseline := results["baseline"]
	candidate := results["ai_filter_sizing"]
	if candidate == nil {
		candidate = results["ai_filter"]
	}
	if baseline == nil || candidate == nil {
		return Verdict{Reason: "missing_baseline_or_ai_results"}
	}

	checks := []Check{
		{Name: CheckDrawdownImproved, Pass: drawdownImproved(baseline.Metrics, candidate.Metrics)},
		{Name: CheckFrequencyReduced, Pass: candidate.Metrics.TradeFrequencyPer30Days <= baseline.Metrics.TradeFrequencyPer30Days},
		{Name: CheckExpectancyOK, Pass: expectancyOK(baseline.Metrics, candidate.Metrics, th.ExpectancyTolerance)},
		{Name: CheckSegmentConsistency, Pass: segmentConsistency(baseline.SegmentMetrics, candidate.SegmentMetrics)},
	}

	pass := true
	for _, c := range checks {
		pass = pass && c.Pass
	}
	return Verdict{Go: pass, CandidateVariant: candidate.Variant, Checks: checks}
}

// drawdownImproved passes when the candidate's max drawdown is strictly
// smaller, or both runs recovered and the candidate recovered faster.
func drawdownImproved(base, ai Metrics) bool {
	if ai.MaxDrawdownPct < base.MaxDrawdownPct {
		return true
	}
	return base.MaxDrawdownRecoveryBars != nil &&
		ai.MaxDrawdownRecoveryBars != nil &&
		*ai.MaxDrawdownRecoveryBars < *base.MaxDrawdownRecoveryBars
}

// expectancyOK tolerates a bounded expectancy give-up when the baseline is
// profitable; an unprofitable baseline must not get worse.
func expectancyOK(base, ai Metrics, tolerance float64) bool {
	if base.ExpectancyPerTrade > 0 {
		return ai.ExpectancyPerTrade >= base.ExpectancyPerTrade*tolerance
	}
	return ai.ExpectancyPerTrade >= base.ExpectancyPerTrade
}

// segmentConsistency requires the candidate's drawdown to be no worse than
// the baseline's in at least half of the comparable segments, and in at least
// one. No comparable segments fails the check.
func segmentConsistency(base, ai map[string]Metrics) bool {
	comparable := 0
	improving := 0
	for name, bm := range base {
		am, ok := ai[name]
		if !ok {
			continue
		}
		comparable++
		if am.MaxDrawdownPct <= bm.MaxDrawdownPct {
			improving++
		}
	}
	if comparable == 0 {
		return false
	}
	need := comparable / 2
	if need < 1 {
		need = 1
	}
	return improving >= need
}
