// Package indicators derives the per-bar feature snapshot consumed by the
// candidate generator and the advisory layer. All values are pure windowed
// functions of closed bars; until a lookback window is satisfied the value is
// explicitly undefined, never a numeric placeholder.
package indicators

import (
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/swing/market"
)

// Trend is the context-timeframe regime classification.
type Trend string

const (
	TrendUp      Trend = "UP"
	TrendDown    Trend = "DOWN"
	TrendNeutral Trend = "NEUTRAL"
)

// VolatilityLabel buckets the ATR quantile for the advisor.
type VolatilityLabel string

const (
	VolLow    VolatilityLabel = "LOW"
	VolNormal VolatilityLabel = "NORMAL"
	VolHigh   VolatilityLabel = "HIGH"
)

// Value is an indicator reading that may still be warming up.
type Value struct {
	F       float64
	Defined bool
}

func defined(f float64) Value { return Value{F: f, Defined: true} }

// Snapshot is the immutable indicator state at one fast-timeframe bar close.
type Snapshot struct {
	Time time.Time // close time of the fast bar

	Price      Value
	EMAFastTF  Value // fast EMA on the execution timeframe (ema20_4h)
	EMASlowTF  Value // slow EMA on the execution timeframe (ema50_4h)
	EMAFastCtx Value // fast EMA on the context timeframe (ema20_1d)
	EMASlowCtx Value // slow EMA on the context timeframe (ema50_1d)

	ATR             Value // atr_14_4h
	ATRQuantile     Value // rank of current ATR within the lookback window
	DistanceToEMA20 Value // |close - ema20_4h| in ATR units

	Trend Trend
}

// ATRLabel buckets the current ATR quantile. Quantile < 0.33 is LOW,
// < 0.8 NORMAL, else HIGH.
func (s Snapshot) ATRLabel() VolatilityLabel {
	if !s.ATRQuantile.Defined {
		return VolNormal
	}
	switch {
	case s.ATRQuantile.F < 0.33:
		return VolLow
	case s.ATRQuantile.F < 0.8:
		return VolNormal
	default:
		return VolHigh
	}
}

// Fields flattens the defined values for journaling.
func (s Snapshot) Fields() map[string]float64 {
	out := make(map[string]float64, 8)
	put := func(k string, v Value) {
		if v.Defined {
			out[k] = v.F
		}
	}
	put("price", s.Price)
	put("ema20_4h", s.EMAFastTF)
	put("ema50_4h", s.EMASlowTF)
	put("ema20_1d", s.EMAFastCtx)
	put("ema50_1d", s.EMASlowCtx)
	put("atr_14_4h", s.ATR)
	put("atr_quantile", s.ATRQuantile)
	put("distance_to_ema20_atr", s.DistanceToEMA20)
	return out
}

// Params are the lookback windows for one snapshot computation.
type Params struct {
	FastEMA        int // 20
	SlowEMA        int // 50
	ATRPeriod      int // 14
	ATRLookback    int // quantile window over defined ATR values, 180
	MinContextBars int // context bars required before trend can classify, 60
}

// DefaultParams returns the production lookbacks.
func DefaultParams() Params {
	return Params{
		FastEMA:        20,
		SlowEMA:        50,
		ATRPeriod:      14,
		ATRLookback:    180,
		MinContextBars: 60,
	}
}

// Compute builds the snapshot from bar history up to and including the
// current fast bar. Both slices must be timestamp-ascending (market.Series
// guarantees this); ctxBars must already be aligned so that no context bar
// closes after the current fast bar.
func Compute(p Params, fastBars, ctxBars []market.Bar) (Snapshot, error) {
	if len(fastBars) == 0 || len(ctxBars) == 0 {
		return Snapshot{}, fmt.Errorf("indicators: empty bar history")
	}

	last := fastBars[len(fastBars)-1]
	snap := Snapshot{
		Time:  last.CloseTime,
		Price: defined(last.Close),
		Trend: TrendNeutral,
	}

	fastCloses := market.Closes(fastBars)
	ctxCloses := market.Closes(ctxBars)

	snap.EMAFastTF = lastEMA(fastCloses, p.FastEMA)
	snap.EMASlowTF = lastEMA(fastCloses, p.SlowEMA)
	snap.EMAFastCtx = lastEMA(ctxCloses, p.FastEMA)
	snap.EMASlowCtx = lastEMA(ctxCloses, p.SlowEMA)

	atrSeries := ATRSeries(fastBars, p.ATRPeriod)
	snap.ATR = lastDefined(atrSeries)
	snap.ATRQuantile = atrQuantile(atrSeries, p.ATRLookback)

	if snap.ATR.Defined && snap.ATR.F > 0 && snap.EMAFastTF.Defined {
		snap.DistanceToEMA20 = defined(math.Abs(last.Close-snap.EMAFastTF.F) / snap.ATR.F)
	}

	snap.Trend = ClassifyTrend(ctxCloses, p.FastEMA, p.SlowEMA, p.MinContextBars)
	return snap, nil
}

// ClassifyTrend labels the context regime. UP requires the fast EMA above the
// slow EMA with both rising against the previous bar; DOWN is the mirror;
// anything else, or fewer than minBars of history, is NEUTRAL.
func ClassifyTrend(closes []float64, fastPeriod, slowPeriod, minBars int) Trend {
	if len(closes) < minBars || len(closes) < 2 {
		return TrendNeutral
	}
	fast := EMASeries(closes, fastPeriod)
	slow := EMASeries(closes, slowPeriod)

	n := len(closes)
	fLast, fPrev := fast[n-1], fast[n-2]
	sLast, sPrev := slow[n-1], slow[n-2]

	if fLast > sLast && fLast > fPrev && sLast > sPrev {
		return TrendUp
	}
	if fLast < sLast && fLast < fPrev && sLast < sPrev {
		return TrendDown
	}
	return TrendNeutral
}

// atrQuantile ranks the current ATR within the trailing window of defined
// ATR values: (count <= current) / sample size. An empty sample ranks 1.0 so
// warm-up periods read as maximally volatile and candidates stay suppressed.
func atrQuantile(series []Value, lookback int) Value {
	var sample []float64
	for _, v := range series {
		if v.Defined {
			sample = append(sample, v.F)
		}
	}
	if len(sample) == 0 {
		return defined(1.0)
	}
	if len(sample) > lookback {
		sample = sample[len(sample)-lookback:]
	}
	current := sample[len(sample)-1]
	rank := 0
	for _, v := range sample {
		if v <= current {
			rank++
		}
	}
	return defined(float64(rank) / float64(len(sample)))
}

func lastEMA(closes []float64, period int) Value {
	if len(closes) < period {
		return Value{}
	}
	series := EMASeries(closes, period)
	return defined(series[len(series)-1])
}

func lastDefined(series []Value) Value {
	for i := len(series) - 1; i >= 0; i-- {
		if series[i].Defined {
			return series[i]
		}
	}
	return Value{}
}
