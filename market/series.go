package market

import (
	"fmt"
	"sort"
	"time"
)

// Series is an immutable, validated, timestamp-ascending bar sequence.
type Series struct {
	bars []Bar
}

// NewSeries validates ordering and wraps the bars. Gaps are fine; equal or
// decreasing open times are not.
func NewSeries(bars []Bar) (*Series, error) {
	for i := 1; i < len(bars); i++ {
		if !bars[i].OpenTime.After(bars[i-1].OpenTime) {
			return nil, fmt.Errorf("%w: bar %d open %s not after bar %d open %s",
				ErrDataOrder, i, bars[i].OpenTime.UTC().Format(time.RFC3339),
				i-1, bars[i-1].OpenTime.UTC().Format(time.RFC3339))
		}
	}
	return &Series{bars: bars}, nil
}

func (s *Series) Len() int { return len(s.bars) }

// Bar returns the i-th bar. Panics on out-of-range like a slice would.
func (s *Series) Bar(i int) Bar { return s.bars[i] }

// Last returns the most recent bar and false when the series is empty.
func (s *Series) Last() (Bar, bool) {
	if len(s.bars) == 0 {
		return Bar{}, false
	}
	return s.bars[len(s.bars)-1], true
}

// Prefix returns the bars up to and including index i.
func (s *Series) Prefix(i int) []Bar {
	if i < 0 {
		return nil
	}
	if i >= len(s.bars) {
		i = len(s.bars) - 1
	}
	return s.bars[:i+1]
}

// ClosedBy returns every bar whose CloseTime is at or before t. Used to align
// the context timeframe with the execution timeframe without lookahead.
func (s *Series) ClosedBy(t time.Time) []Bar {
	n := sort.Search(len(s.bars), func(i int) bool {
		return s.bars[i].CloseTime.After(t)
	})
	return s.bars[:n]
}

// Closes extracts the close column from a bar slice.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
