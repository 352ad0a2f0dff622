package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/swing/market"
)

func mkBars(closes []float64) []market.Bar {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]market.Bar, len(closes))
	for i, c := range closes {
		open := t0.Add(time.Duration(i) * 4 * time.Hour)
		bars[i] = market.Bar{
			OpenTime:  open,
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			CloseTime: open.Add(4 * time.Hour),
		}
	}
	return bars
}

func TestEMASeries_SeededWithFirstValue(t *testing.T) {
	t.Parallel()

	values := []float64{10, 11, 12}
	got := EMASeries(values, 2) // alpha = 2/3

	assert.InDelta(t, 10.0, got[0], 1e-12)
	assert.InDelta(t, 2.0/3.0*11+1.0/3.0*10, got[1], 1e-12)
	assert.InDelta(t, 2.0/3.0*12+1.0/3.0*got[1], got[2], 1e-12)
}

func TestEMA_StreamingMatchesBatch(t *testing.T) {
	t.Parallel()

	values := []float64{100, 101, 99, 103, 102, 105, 104, 108, 107, 110}
	batch := EMASeries(values, 5)

	e := NewEMA(5)
	for i, v := range values {
		e.Update(v)
		assert.InDelta(t, batch[i], e.Value(), 1e-12, "index %d", i)
		assert.Equal(t, i >= 4, e.Ready(), "index %d", i)
	}
}

func TestATRSeries_WarmupAndValue(t *testing.T) {
	t.Parallel()

	bars := mkBars([]float64{100, 101, 102, 103, 104, 105})
	series := ATRSeries(bars, 3)

	// Needs period+1 bars: index 0..2 undefined, defined from index 3.
	for i := 0; i < 3; i++ {
		assert.False(t, series[i].Defined, "index %d", i)
	}
	require.True(t, series[3].Defined)

	// Each bar: high-low = 2, gap to previous close = 1; TR = max(2, 2, 0) = 2.
	assert.InDelta(t, 2.0, series[3].F, 1e-12)
	assert.InDelta(t, 2.0, series[5].F, 1e-12)
}

func TestATR_StreamingMatchesBatch(t *testing.T) {
	t.Parallel()

	closes := []float64{100, 104, 99, 107, 103, 110, 108, 115}
	bars := mkBars(closes)
	batch := ATRSeries(bars, 3)

	a := NewATR(3)
	for i, b := range bars {
		a.Update(b)
		assert.Equal(t, batch[i].Defined, a.Ready(), "index %d", i)
		if batch[i].Defined {
			assert.InDelta(t, batch[i].F, a.Value(), 1e-12, "index %d", i)
		}
	}
}

func TestClassifyTrend(t *testing.T) {
	t.Parallel()

	rising := make([]float64, 80)
	falling := make([]float64, 80)
	for i := range rising {
		rising[i] = 100 + float64(i)
		falling[i] = 200 - float64(i)
	}

	tests := []struct {
		name    string
		closes  []float64
		minBars int
		want    Trend
	}{
		{"uptrend", rising, 60, TrendUp},
		{"downtrend", falling, 60, TrendDown},
		{"too little history", rising[:30], 60, TrendNeutral},
		{"flat", []float64{100, 100, 100, 100}, 2, TrendNeutral},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ClassifyTrend(tt.closes, 20, 50, tt.minBars))
		})
	}
}

func TestCompute_UndefinedBeforeWarmup(t *testing.T) {
	t.Parallel()

	p := DefaultParams()
	fast := mkBars([]float64{100, 101, 102}) // far below any lookback
	ctx := mkBars([]float64{100, 101, 102})

	snap, err := Compute(p, fast, ctx)
	require.NoError(t, err)

	assert.True(t, snap.Price.Defined)
	assert.False(t, snap.EMAFastTF.Defined)
	assert.False(t, snap.EMASlowTF.Defined)
	assert.False(t, snap.ATR.Defined)
	assert.False(t, snap.DistanceToEMA20.Defined)
	assert.Equal(t, TrendNeutral, snap.Trend)

	// Quantile of an empty sample reads maximally volatile.
	require.True(t, snap.ATRQuantile.Defined)
	assert.Equal(t, 1.0, snap.ATRQuantile.F)
}

func TestCompute_FullSnapshot(t *testing.T) {
	t.Parallel()

	p := DefaultParams()
	fastCloses := make([]float64, 250)
	ctxCloses := make([]float64, 80)
	for i := range fastCloses {
		fastCloses[i] = 100 + 0.2*float64(i) + 2*math.Sin(float64(i)/5)
	}
	for i := range ctxCloses {
		ctxCloses[i] = 100 + float64(i)
	}

	snap, err := Compute(p, mkBars(fastCloses), mkBars(ctxCloses))
	require.NoError(t, err)

	assert.True(t, snap.EMAFastTF.Defined)
	assert.True(t, snap.EMASlowTF.Defined)
	assert.True(t, snap.ATR.Defined)
	assert.Greater(t, snap.ATR.F, 0.0)
	assert.True(t, snap.ATRQuantile.Defined)
	assert.GreaterOrEqual(t, snap.ATRQuantile.F, 0.0)
	assert.LessOrEqual(t, snap.ATRQuantile.F, 1.0)
	assert.True(t, snap.DistanceToEMA20.Defined)
	assert.Equal(t, TrendUp, snap.Trend)

	fields := snap.Fields()
	assert.Contains(t, fields, "ema20_4h")
	assert.Contains(t, fields, "atr_quantile")
}

func TestSnapshot_ATRLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		quantile float64
		want     VolatilityLabel
	}{
		{0.1, VolLow},
		{0.33, VolNormal},
		{0.79, VolNormal},
		{0.8, VolHigh},
		{1.0, VolHigh},
	}
	for _, tt := range tests {
		s := Snapshot{ATRQuantile: Value{F: tt.quantile, Defined: true}}
		assert.Equal(t, tt.want, s.ATRLabel(), "quantile %.2f", tt.quantile)
	}

	undefined := Snapshot{}
	assert.Equal(t, VolNormal, undefined.ATRLabel())
}

func TestATRQuantile_RankSemantics(t *testing.T) {
	t.Parallel()

	series := []Value{
		{F: 1, Defined: true},
		{F: 2, Defined: true},
		{F: 3, Defined: true},
		{F: 2.5, Defined: true},
	}
	// Values <= 2.5: 1, 2, 2.5 -> 3/4
	got := atrQuantile(series, 180)
	require.True(t, got.Defined)
	assert.InDelta(t, 0.75, got.F, 1e-12)
}
