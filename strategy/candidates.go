// Package strategy turns indicator snapshots into trade candidates. It is a
// pure function of the snapshot: no clocks, no randomness, no side effects.
package strategy

import (
	"time"

	"github.com/rustyeddy/swing/indicators"
)

// Side is the trade direction. Only long entries exist in stage 1.
type Side string

const Long Side = "LONG"

// Candidate is a proposed trade before advisory and risk evaluation. It is
// produced fresh each bar and never mutated.
type Candidate struct {
	Symbol  string
	Side    Side
	Time    time.Time
	Entry   float64
	Stop    float64
	Target  float64
	ATR     float64
	Reasons []string
}

// Params tune the trend-pullback entry rules.
type Params struct {
	Symbol            string
	AtrHighQuantile   float64 // candidates are suppressed above this quantile
	PullbackThreshold float64 // max |close-ema20| in ATR units
	StopATRMultiplier float64 // protective stop distance in ATR units
	TargetR           float64 // target distance as a multiple of stop distance
}

// DefaultParams returns the production rule thresholds.
func DefaultParams(symbol string) Params {
	return Params{
		Symbol:            symbol,
		AtrHighQuantile:   0.8,
		PullbackThreshold: 0.5,
		StopATRMultiplier: 2.0,
		TargetR:           2.0,
	}
}

// Generate emits at most one long candidate per bar. Conditions are checked
// in a fixed priority order so a bar satisfying several rules always resolves
// the same way:
//
//  1. context trend must be UP
//  2. ATR must be defined and positive
//  3. volatility must not be extreme (ATR quantile gate)
//  4. price must have pulled back near the fast EMA (distance gate)
//
// Undefined indicator values fail their gate; warm-up bars never fire.
func Generate(p Params, snap indicators.Snapshot) *Candidate {
	if snap.Trend != indicators.TrendUp {
		return nil
	}
	if !snap.ATR.Defined || snap.ATR.F <= 0 {
		return nil
	}
	if !snap.ATRQuantile.Defined || snap.ATRQuantile.F > p.AtrHighQuantile {
		return nil
	}
	if !snap.DistanceToEMA20.Defined || snap.DistanceToEMA20.F > p.PullbackThreshold {
		return nil
	}
	if !snap.Price.Defined {
		return nil
	}

	entry := snap.Price.F
	stop := entry - snap.ATR.F*p.StopATRMultiplier
	if stop < 0 {
		stop = 0
	}
	target := entry + (entry-stop)*p.TargetR

	return &Candidate{
		Symbol: p.Symbol,
		Side:   Long,
		Time:   snap.Time,
		Entry:  entry,
		Stop:   stop,
		Target: target,
		ATR:    snap.ATR.F,
		Reasons: []string{
			"trend_up_1d",
			"pullback_near_ema20_4h",
			"atr_not_extreme",
		},
	}
}
