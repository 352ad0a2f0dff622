package backtest

import (
	"time"

	"github.com/rustyeddy/swing/pipeline"
)

// Segment is one named time window of the run, evaluated independently so the
// go/no-go gate can check consistency across regimes.
type Segment struct {
	Name  string    `json:"name"`
	Start time.Time `json:"start_at"`
	End   time.Time `json:"end_at"`
}

// DefaultSegments splits the equity curve into two halves, window_a and
// window_b. Fewer than two points yields no segments.
func DefaultSegments(curve []pipeline.EquityPoint) []Segment {
	if len(curve) < 2 {
		return nil
	}
	mid := len(curve) / 2
	return []Segment{
		{Name: "window_a", Start: curve[0].Time, End: curve[mid-1].Time},
		{Name: "window_b", Start: curve[mid].Time, End: curve[len(curve)-1].Time},
	}
}

// SegmentMetrics computes the summary metrics over each segment's slice of
// the equity curve and the trades that closed inside it. Boundaries are
// inclusive on both ends.
func SegmentMetrics(curve []pipeline.EquityPoint, trades []pipeline.Trade, segments []Segment) map[string]Metrics {
	out := make(map[string]Metrics, len(segments))
	for _, seg := range segments {
		var segCurve []pipeline.EquityPoint
		for _, p := range curve {
			if !p.Time.Before(seg.Start) && !p.Time.After(seg.End) {
				segCurve = append(segCurve, p)
			}
		}
		var segTrades []pipeline.Trade
		for _, t := range trades {
			if !t.CloseTime.Before(seg.Start) && !t.CloseTime.After(seg.End) {
				segTrades = append(segTrades, t)
			}
		}
		out[seg.Name] = ComputeMetrics(segCurve, segTrades)
	}
	return out
}
