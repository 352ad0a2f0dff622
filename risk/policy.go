// Package risk is the final authority on every trade. Its rules are hard
// coded into a fixed evaluation order and cannot be bypassed by the strategy
// or the advisory layer; an advisory multiplier can only shrink a position,
// never grow it past the caps.
package risk

import "github.com/rustyeddy/swing/strategy"

// Policy holds the hard limits. Percentages are expressed as percent of
// equity (0.5 means 0.5%).
type Policy struct {
	RiskPerTradePct      float64 // equity fraction risked between entry and stop
	MaxExposurePct       float64 // notional cap as percent of equity
	MinStopDistancePct   float64 // reject stops tighter than this percent of entry
	MaxOpenPositions     int     // 1 in stage 1
	MaxConsecutiveLosses int     // block new entries at or above this streak
	MaxWeeklyDrawdownPct float64 // block new entries at or above this drawdown
}

// DefaultPolicy returns the production limits.
func DefaultPolicy() Policy {
	return Policy{
		RiskPerTradePct:      0.5,
		MaxExposurePct:       10.0,
		MinStopDistancePct:   0.1,
		MaxOpenPositions:     1,
		MaxConsecutiveLosses: 3,
		MaxWeeklyDrawdownPct: 3.0,
	}
}

// AccountState is the account snapshot the gate evaluates against. It is
// instantiated fresh per variant replay; nothing here is shared state.
type AccountState struct {
	Equity            float64
	OpenPositions     int
	ConsecutiveLosses int
	WeeklyDrawdownPct float64
}

// Intent is the unsized trade the gate evaluates, taken from a candidate
// either directly or after the advisory layer has had its say.
type Intent struct {
	Symbol string
	Side   strategy.Side
	Entry  float64
	Stop   float64
	Target float64
}

// IntentFrom lifts a candidate into a gate intent.
func IntentFrom(c *strategy.Candidate) Intent {
	return Intent{
		Symbol: c.Symbol,
		Side:   c.Side,
		Entry:  c.Entry,
		Stop:   c.Stop,
		Target: c.Target,
	}
}

// SizedOrder is an accepted, sized order intent ready for the execution
// target.
type SizedOrder struct {
	Symbol     string
	Side       strategy.Side
	Entry      float64
	Stop       float64
	Target     float64
	Qty        float64
	RiskAmount float64 // account currency at risk between entry and stop
}
