package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/swing/market"
)

// ATRSeries computes the average true range per bar as a simple rolling mean
// of true ranges over `period`. The value at index i is undefined until
// i >= period (true range needs a previous close, the mean needs a full
// window).
func ATRSeries(bars []market.Bar, period int) []Value {
	out := make([]Value, len(bars))
	if len(bars) < period+1 || period <= 0 {
		return out
	}

	trs := make([]float64, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		trs[i-1] = trueRange(bars[i], bars[i-1])
	}

	sum := 0.0
	for i, tr := range trs {
		sum += tr
		if i >= period {
			sum -= trs[i-period]
		}
		if i >= period-1 {
			out[i+1] = defined(sum / float64(period))
		}
	}
	return out
}

// ATR is the streaming counterpart of ATRSeries.
type ATR struct {
	period  int
	window  []float64
	sum     float64
	prev    market.Bar
	hasPrev bool
}

// NewATR creates a streaming ATR with the given period.
func NewATR(period int) *ATR {
	return &ATR{
		period: period,
		window: make([]float64, 0, period),
	}
}

func (a *ATR) Name() string { return fmt.Sprintf("ATR(%d)", a.period) }

// Warmup needs period+1 bars: true range requires the previous bar.
func (a *ATR) Warmup() int { return a.period + 1 }

func (a *ATR) Reset() {
	a.window = a.window[:0]
	a.sum = 0
	a.hasPrev = false
}

// Update consumes the next closed bar.
func (a *ATR) Update(b market.Bar) {
	if !a.hasPrev {
		a.prev = b
		a.hasPrev = true
		return
	}
	tr := trueRange(b, a.prev)
	a.prev = b

	a.window = append(a.window, tr)
	a.sum += tr
	if len(a.window) > a.period {
		a.sum -= a.window[0]
		a.window = a.window[1:]
	}
}

func (a *ATR) Ready() bool { return len(a.window) >= a.period }

// Value returns the current ATR. Callers should check Ready() first.
func (a *ATR) Value() float64 {
	if !a.Ready() {
		return 0
	}
	return a.sum / float64(a.period)
}

func trueRange(current, previous market.Bar) float64 {
	hl := current.High - current.Low
	hc := math.Abs(current.High - previous.Close)
	lc := math.Abs(current.Low - previous.Close)
	return math.Max(hl, math.Max(hc, lc))
}
