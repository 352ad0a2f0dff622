package risk

import "fmt"

// Violation names one broken rule.
type Violation struct {
	Code string
	Msg  string
}

// Decision is the gate's verdict: either an accepted SizedOrder or the full
// list of violations. A rejection is terminal for the bar; there is no retry.
type Decision struct {
	Allowed    bool
	Violations []Violation
	Order      *SizedOrder
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Reasons returns the violation codes, for journaling.
func (d Decision) Reasons() []string {
	out := make([]string, len(d.Violations))
	for i, v := range d.Violations {
		out[i] = v.Code
	}
	return out
}

// Evaluate runs the hard checks in fixed order and, when all pass, sizes the
// order. sizeMultiplier comes from the advisory layer on sizing variants and
// is 1.0 otherwise; it is applied before the exposure cap so it can only
// shrink the final size.
func Evaluate(p Policy, in Intent, acct AccountState, sizeMultiplier float64) Decision {
	d := Decision{Allowed: true}

	// 1. Price sanity: stop on the losing side, target on the winning side.
	if in.Entry <= 0 || in.Stop <= 0 {
		d.add("NO_STOP_OR_ENTRY", "entry and stop must be positive")
		return d
	}
	if in.Stop >= in.Entry {
		d.add("STOP_NOT_BELOW_ENTRY",
			fmt.Sprintf("long stop %.4f must be below entry %.4f", in.Stop, in.Entry))
	}
	if in.Target != 0 && in.Target <= in.Entry {
		d.add("TARGET_NOT_ABOVE_ENTRY",
			fmt.Sprintf("long target %.4f must be above entry %.4f", in.Target, in.Entry))
	}

	// 2. Minimum stop distance: implausibly tight stops produce absurd sizes.
	stopDist := in.Entry - in.Stop
	if stopDist > 0 && stopDist < in.Entry*p.MinStopDistancePct/100.0 {
		d.add("STOP_TOO_TIGHT",
			fmt.Sprintf("stop distance %.4f below %.2f%% of entry", stopDist, p.MinStopDistancePct))
	}

	// 3. Concurrency limit.
	if acct.OpenPositions >= p.MaxOpenPositions {
		d.add("TOO_MANY_OPEN_POSITIONS",
			fmt.Sprintf("open positions %d >= max %d", acct.OpenPositions, p.MaxOpenPositions))
	}

	// 4. Loss-streak circuit breaker.
	if acct.ConsecutiveLosses >= p.MaxConsecutiveLosses {
		d.add("MAX_CONSECUTIVE_LOSSES",
			fmt.Sprintf("consecutive losses %d >= max %d", acct.ConsecutiveLosses, p.MaxConsecutiveLosses))
	}

	// 5. Rolling drawdown circuit breaker.
	if acct.WeeklyDrawdownPct >= p.MaxWeeklyDrawdownPct {
		d.add("MAX_WEEKLY_DRAWDOWN",
			fmt.Sprintf("weekly drawdown %.2f%% >= max %.2f%%", acct.WeeklyDrawdownPct, p.MaxWeeklyDrawdownPct))
	}

	if !d.Allowed {
		return d
	}

	// 6. Sizing: risk fraction over stop distance, advisory multiplier, then
	// the exposure cap last so the cap always wins.
	qty := Size(p, acct.Equity, in.Entry, in.Stop, sizeMultiplier)
	if qty <= 0 {
		d.add("QTY_ZERO", "position size is zero after risk controls")
		return d
	}

	d.Order = &SizedOrder{
		Symbol:     in.Symbol,
		Side:       in.Side,
		Entry:      in.Entry,
		Stop:       in.Stop,
		Target:     in.Target,
		Qty:        qty,
		RiskAmount: qty * stopDist,
	}
	return d
}

// Size computes the position quantity: equity×risk% / stop distance, scaled
// by the multiplier, clamped by the notional exposure cap. Monotonic in the
// multiplier by construction.
func Size(p Policy, equity, entry, stop, multiplier float64) float64 {
	if equity <= 0 || entry <= 0 || stop <= 0 {
		return 0
	}
	perUnitRisk := entry - stop
	if perUnitRisk <= 0 {
		return 0
	}
	if multiplier < 0 {
		multiplier = 0
	}
	if multiplier > 1 {
		multiplier = 1
	}

	riskAmount := equity * p.RiskPerTradePct / 100.0
	qty := riskAmount / perUnitRisk * multiplier

	if p.MaxExposurePct > 0 {
		maxQty := equity * p.MaxExposurePct / 100.0 / entry
		if qty > maxQty {
			qty = maxQty
		}
	}
	if qty < 0 {
		return 0
	}
	return qty
}
