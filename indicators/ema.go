package indicators

import "fmt"

// EMASeries computes the full exponential moving average series, seeded with
// the first value (alpha = 2/(period+1)). Readings before `period` samples
// are warm-up output; callers treat them as undefined.
func EMASeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 2.0 / float64(period+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// EMA is the streaming counterpart of EMASeries. Batch and streaming output
// are identical for the same input sequence.
type EMA struct {
	period int
	alpha  float64
	ema    float64
	count  int
}

// NewEMA creates a streaming EMA with the given period.
func NewEMA(period int) *EMA {
	return &EMA{
		period: period,
		alpha:  2.0 / float64(period+1),
	}
}

func (e *EMA) Name() string { return fmt.Sprintf("EMA(%d)", e.period) }

func (e *EMA) Warmup() int { return e.period }

func (e *EMA) Reset() {
	e.ema = 0
	e.count = 0
}

// Update consumes the next closed value.
func (e *EMA) Update(v float64) {
	if e.count == 0 {
		e.ema = v
	} else {
		e.ema = e.alpha*v + (1-e.alpha)*e.ema
	}
	e.count++
}

func (e *EMA) Ready() bool { return e.count >= e.period }

// Value returns the current EMA. Callers should check Ready() first.
func (e *EMA) Value() float64 { return e.ema }
