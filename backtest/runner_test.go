package backtest

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/swing/advisor"
	"github.com/rustyeddy/swing/indicators"
	"github.com/rustyeddy/swing/market"
	"github.com/rustyeddy/swing/risk"
	"github.com/rustyeddy/swing/strategy"
)

// syntheticData builds a trending 4h series with pullbacks and breathing
// volatility, plus a 1d context series that starts well before it so the
// trend classifier has history from the first fast bar.
func syntheticData(t *testing.T) (*market.Series, *market.Series) {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	fastBars := make([]market.Bar, 300)
	for i := range fastBars {
		c := 100 + 0.05*float64(i) + 2*math.Sin(float64(i)/7)
		h := 1.2 + 0.8*math.Sin(float64(i)/11+1)
		if h < 0.3 {
			h = 0.3
		}
		open := start.Add(time.Duration(i) * 4 * time.Hour)
		fastBars[i] = market.Bar{
			OpenTime:  open,
			Open:      c,
			High:      c + h,
			Low:       c - h,
			Close:     c,
			Volume:    100,
			CloseTime: open.Add(4 * time.Hour),
		}
	}
	fast, err := market.NewSeries(fastBars)
	require.NoError(t, err)

	ctxBars := make([]market.Bar, 200)
	for i := range ctxBars {
		c := 50 + 0.5*float64(i)
		open := start.AddDate(0, 0, i-120)
		ctxBars[i] = market.Bar{
			OpenTime:  open,
			Open:      c,
			High:      c + 2,
			Low:       c - 2,
			Close:     c,
			Volume:    1000,
			CloseTime: open.AddDate(0, 0, 1),
		}
	}
	ctxSeries, err := market.NewSeries(ctxBars)
	require.NoError(t, err)

	return fast, ctxSeries
}

func testRunner(adv advisor.Advisor) *Runner {
	cfg := DefaultConfig("BTCUSDT")
	cfg.WarmupFastBars = 80
	cfg.MinContextBars = 30
	return &Runner{
		Config:  cfg,
		Advisor: adv,
		Source:  "synthetic",
		Log:     zerolog.Nop(),
		Now:     func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) },
	}
}

func TestRunner_Deterministic(t *testing.T) {
	t.Parallel()

	fast, ctxSeries := syntheticData(t)

	run := func() *RunResult {
		res, err := testRunner(advisor.Heuristic{}).Run(context.Background(), fast, ctxSeries)
		require.NoError(t, err)
		return res
	}

	a := run()
	b := run()

	require.Equal(t, a.Order, b.Order)
	for _, name := range a.Order {
		assert.Equal(t, a.Variants[name].Trades, b.Variants[name].Trades, name)
		assert.Equal(t, a.Variants[name].Curve, b.Variants[name].Curve, name)
		assert.Equal(t, a.Variants[name].Metrics, b.Variants[name].Metrics, name)
		assert.Equal(t, a.Variants[name].Warnings, b.Variants[name].Warnings, name)
	}
	assert.Equal(t, a.Verdict, b.Verdict)
}

func TestRunner_UnavailableAdvisorMatchesBaseline(t *testing.T) {
	t.Parallel()

	fast, ctxSeries := syntheticData(t)
	res, err := testRunner(advisor.Unavailable{}).Run(context.Background(), fast, ctxSeries)
	require.NoError(t, err)

	// With the advisor permanently down, both AI variants degrade to the
	// approve-at-full-size fallback and must reproduce the baseline exactly.
	base := res.Variants["baseline"]
	require.NotEmpty(t, base.Curve)
	for _, name := range []string{"ai_filter", "ai_filter_sizing"} {
		assert.Equal(t, base.Trades, res.Variants[name].Trades, name)
		assert.Equal(t, base.Curve, res.Variants[name].Curve, name)
		assert.Equal(t, base.Metrics, res.Variants[name].Metrics, name)
	}
}

func TestRunner_Cancellation(t *testing.T) {
	t.Parallel()

	fast, ctxSeries := syntheticData(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := testRunner(advisor.Heuristic{}).Run(ctx, fast, ctxSeries)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestRunner_Validation(t *testing.T) {
	t.Parallel()

	fast, ctxSeries := syntheticData(t)

	r := testRunner(advisor.Heuristic{})
	r.Config.WarmupFastBars = 0
	_, err := r.Run(context.Background(), fast, ctxSeries)
	assert.Error(t, err)

	r = testRunner(advisor.Heuristic{})
	r.Config.WarmupFastBars = fast.Len()
	_, err = r.Run(context.Background(), fast, ctxSeries)
	assert.Error(t, err)
}

// entryOnLastBar builds a ten-bar history whose final bar fires a candidate
// under tiny lookbacks, so the replay opens on the very last bar and the
// end-of-data close is forced.
func entryOnLastBar(t *testing.T) (*market.Series, *market.Series) {
	t.Helper()
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	heights := []float64{3, 3, 3, 2, 2, 1, 1, 0.5, 0.5, 0.5}
	fastBars := make([]market.Bar, len(heights))
	for i, h := range heights {
		c := 100 + 0.2*float64(i)
		open := start.Add(time.Duration(i) * 4 * time.Hour)
		fastBars[i] = market.Bar{
			OpenTime: open, Open: c, High: c + h, Low: c - h, Close: c,
			CloseTime: open.Add(4 * time.Hour),
		}
	}
	fast, err := market.NewSeries(fastBars)
	require.NoError(t, err)

	ctxBars := make([]market.Bar, 6)
	for i := range ctxBars {
		c := 100 + float64(i)
		open := start.AddDate(0, 0, i-6)
		ctxBars[i] = market.Bar{
			OpenTime: open, Open: c, High: c + 1, Low: c - 1, Close: c,
			CloseTime: open.AddDate(0, 0, 1),
		}
	}
	ctxSeries, err := market.NewSeries(ctxBars)
	require.NoError(t, err)

	return fast, ctxSeries
}

func tinyConfig() Config {
	return Config{
		Symbol:         "BTCUSDT",
		WarmupFastBars: 9,
		MinContextBars: 2,
		InitialEquity:  10_000,
		SlippageBps:    0,
		MaxHoldingDays: 7,
		Indicators: indicators.Params{
			FastEMA:        2,
			SlowEMA:        3,
			ATRPeriod:      2,
			ATRLookback:    10,
			MinContextBars: 2,
		},
		Strategy: strategy.DefaultParams("BTCUSDT"),
		Policy:   risk.DefaultPolicy(),
	}
}

func TestRunner_EndOfDataForceClose(t *testing.T) {
	t.Parallel()

	fast, ctxSeries := entryOnLastBar(t)
	r := &Runner{
		Config:  tinyConfig(),
		Advisor: advisor.Heuristic{},
		Source:  "synthetic",
		Log:     zerolog.Nop(),
	}

	res, err := r.Run(context.Background(), fast, ctxSeries)
	require.NoError(t, err)

	for _, name := range res.Order {
		trades := res.Variants[name].Trades
		require.Len(t, trades, 1, name)
		assert.Equal(t, "end_of_data", trades[0].ExitReason, name)

		last, _ := fast.Last()
		assert.Equal(t, last.CloseTime, trades[0].CloseTime, name)
	}
}
