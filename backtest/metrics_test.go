package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/swing/pipeline"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func curveOf(values ...float64) []pipeline.EquityPoint {
	out := make([]pipeline.EquityPoint, len(values))
	for i, v := range values {
		out[i] = pipeline.EquityPoint{Time: t0.Add(time.Duration(i) * 4 * time.Hour), Equity: v}
	}
	return out
}

func TestMaxDrawdown_Fixture(t *testing.T) {
	t.Parallel()

	// Peak 100, trough 85 (15%), recovered two bars after the trough.
	dd, recovery := maxDrawdownWithRecovery([]float64{100, 90, 85, 95, 110})
	assert.InDelta(t, 15.0, dd, 1e-9)
	require.NotNil(t, recovery)
	assert.Equal(t, 2, *recovery)
}

func TestMaxDrawdown_NeverRecovered(t *testing.T) {
	t.Parallel()

	dd, recovery := maxDrawdownWithRecovery([]float64{100, 90, 80, 85})
	assert.InDelta(t, 20.0, dd, 1e-9)
	assert.Nil(t, recovery)
}

func TestMaxDrawdown_NoDrawdown(t *testing.T) {
	t.Parallel()

	dd, recovery := maxDrawdownWithRecovery([]float64{100, 105, 110})
	assert.Equal(t, 0.0, dd)
	require.NotNil(t, recovery)
	assert.Equal(t, 0, *recovery)
}

func TestComputeMetrics(t *testing.T) {
	t.Parallel()

	curve := curveOf(10_000, 10_100, 9_900, 10_200)
	trades := []pipeline.Trade{
		{PnL: 100, RiskAmount: 50, CloseTime: curve[1].Time},  // +2R
		{PnL: -50, RiskAmount: 50, CloseTime: curve[2].Time},  // -1R
		{PnL: 150, RiskAmount: 100, CloseTime: curve[3].Time}, // +1.5R
	}

	m := ComputeMetrics(curve, trades)
	assert.Equal(t, 3, m.TradeCount)
	assert.InDelta(t, 2.0, m.TotalReturnPct, 1e-9)
	assert.InDelta(t, (2.0-1.0+1.5)/3.0, m.ExpectancyPerTrade, 1e-9)
	assert.InDelta(t, (100.0-50.0+150.0)/3.0, m.AvgTradePnL, 1e-9)
	assert.InDelta(t, 100.0*2.0/3.0, m.WinRatePct, 1e-9)

	// Three trades over half a day scale to 180 per 30 days.
	assert.InDelta(t, 180.0, m.TradeFrequencyPer30Days, 1e-6)
}

func TestComputeMetrics_Empty(t *testing.T) {
	t.Parallel()

	m := ComputeMetrics(nil, nil)
	assert.Equal(t, 0, m.TradeCount)
	assert.Equal(t, 0.0, m.TotalReturnPct)
	assert.Nil(t, m.MaxDrawdownRecoveryBars)
}

func TestDefaultSegments(t *testing.T) {
	t.Parallel()

	curve := curveOf(100, 101, 102, 103, 104, 105)
	segs := DefaultSegments(curve)
	require.Len(t, segs, 2)

	assert.Equal(t, "window_a", segs[0].Name)
	assert.Equal(t, curve[0].Time, segs[0].Start)
	assert.Equal(t, curve[2].Time, segs[0].End)
	assert.Equal(t, "window_b", segs[1].Name)
	assert.Equal(t, curve[3].Time, segs[1].Start)
	assert.Equal(t, curve[5].Time, segs[1].End)

	assert.Nil(t, DefaultSegments(curve[:1]))
}

func TestSegmentMetrics_InclusiveBounds(t *testing.T) {
	t.Parallel()

	curve := curveOf(100, 90, 110, 120)
	trades := []pipeline.Trade{
		{PnL: -10, RiskAmount: 10, CloseTime: curve[1].Time},
		{PnL: 30, RiskAmount: 10, CloseTime: curve[3].Time},
	}
	segs := []Segment{
		{Name: "early", Start: curve[0].Time, End: curve[1].Time},
		{Name: "late", Start: curve[2].Time, End: curve[3].Time},
	}

	got := SegmentMetrics(curve, trades, segs)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got["early"].TradeCount)
	assert.InDelta(t, 10.0, got["early"].MaxDrawdownPct, 1e-9)
	assert.Equal(t, 1, got["late"].TradeCount)
	assert.Equal(t, 0.0, got["late"].MaxDrawdownPct)
}
