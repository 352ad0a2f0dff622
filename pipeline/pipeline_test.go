package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/swing/advisor"
	"github.com/rustyeddy/swing/broker"
	"github.com/rustyeddy/swing/indicators"
	"github.com/rustyeddy/swing/journal"
	"github.com/rustyeddy/swing/market"
	"github.com/rustyeddy/swing/risk"
	"github.com/rustyeddy/swing/strategy"
)

type captureJournal struct {
	records []journal.Record
}

func (c *captureJournal) Append(r journal.Record) error {
	c.records = append(c.records, r)
	return nil
}

func (c *captureJournal) Close() error { return nil }

// signalBars builds a fast-bar history whose last bar fires the candidate
// generator under the small test lookbacks: gently rising closes with
// shrinking ranges, so the latest ATR ranks low in its window.
func signalBars() []market.Bar {
	heights := []float64{3, 3, 3, 2, 2, 1, 1, 0.5, 0.5, 0.5}
	bars := make([]market.Bar, len(heights))
	for i, h := range heights {
		c := 100 + 0.2*float64(i)
		open := t0.Add(time.Duration(i) * 4 * time.Hour)
		bars[i] = market.Bar{
			OpenTime:  open,
			Open:      c,
			High:      c + h,
			Low:       c - h,
			Close:     c,
			CloseTime: open.Add(4 * time.Hour),
		}
	}
	return bars
}

func contextBars(rising bool) []market.Bar {
	bars := make([]market.Bar, 6)
	for i := range bars {
		c := 100 + float64(i)
		if !rising {
			c = 100 - float64(i)
		}
		open := t0.AddDate(0, 0, i-6)
		bars[i] = market.Bar{
			OpenTime:  open,
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			CloseTime: open.AddDate(0, 0, 1),
		}
	}
	return bars
}

func testPipeline(v Variant, adv advisor.Advisor, jr journal.Journal) *Pipeline {
	return &Pipeline{
		Symbol:  "BTCUSDT",
		Variant: v,
		Indicators: indicators.Params{
			FastEMA:        2,
			SlowEMA:        3,
			ATRPeriod:      2,
			ATRLookback:    10,
			MinContextBars: 2,
		},
		Strategy: strategy.DefaultParams("BTCUSDT"),
		Policy:   risk.DefaultPolicy(),
		Advisor:  adv,
		Target:   broker.NewPaper(0),
		Tracker:  NewTracker(10_000, 7),
		Journal:  jr,
		Log:      zerolog.Nop(),
	}
}

func TestOnBar_BaselineOpens(t *testing.T) {
	t.Parallel()

	jr := &captureJournal{}
	pl := testPipeline(Baseline, nil, jr)

	d := pl.OnBar(context.Background(), signalBars(), contextBars(true))

	assert.Equal(t, StatusOpened, d.Status)
	require.NotNil(t, d.Fill)
	require.NotNil(t, pl.Tracker.Position())
	require.NotNil(t, d.Verdict)
	assert.Equal(t, "baseline_no_ai", d.Verdict.Reason)

	// The bar's decision record plus the entry fill.
	require.Len(t, jr.records, 2)
	assert.Equal(t, journal.EventDecision, jr.records[0].Event)
	assert.Equal(t, journal.EventFill, jr.records[1].Event)

	// Equity point appended for the bar.
	assert.Len(t, pl.Tracker.Curve(), 1)
}

func TestOnBar_NoSignal(t *testing.T) {
	t.Parallel()

	jr := &captureJournal{}
	pl := testPipeline(Baseline, nil, jr)

	d := pl.OnBar(context.Background(), signalBars(), contextBars(false))

	assert.Equal(t, StatusNoSignal, d.Status)
	assert.Nil(t, pl.Tracker.Position())
	assert.Len(t, jr.records, 1)
}

func TestOnBar_PositionOpenBlocksNewEntry(t *testing.T) {
	t.Parallel()

	pl := testPipeline(Baseline, nil, journal.Noop{})

	d := pl.OnBar(context.Background(), signalBars(), contextBars(true))
	require.Equal(t, StatusOpened, d.Status)

	// Next bar stays inside the range: no exit, no second entry.
	bars := signalBars()
	next := bars[len(bars)-1]
	next.OpenTime = next.OpenTime.Add(4 * time.Hour)
	next.CloseTime = next.CloseTime.Add(4 * time.Hour)
	bars = append(bars, next)

	d = pl.OnBar(context.Background(), bars, contextBars(true))
	assert.Equal(t, StatusPositionOpen, d.Status)
	assert.Equal(t, 1, pl.Tracker.Account().OpenPositions)
}

// stopCrashBar extends the signal history with a bar that crashes through the
// stop, even though it would otherwise still be a signal bar.
func stopCrashBar(stop float64) []market.Bar {
	bars := signalBars()
	last := bars[len(bars)-1]
	exitBar := market.Bar{
		OpenTime:  last.OpenTime.Add(4 * time.Hour),
		Open:      last.Close,
		High:      last.Close + 0.5,
		Low:       stop - 1,
		Close:     stop - 0.5,
		CloseTime: last.CloseTime.Add(4 * time.Hour),
	}
	return append(bars, exitBar)
}

func TestOnBar_ExitBarNeverReenters(t *testing.T) {
	t.Parallel()

	jr := &captureJournal{}
	pl := testPipeline(Baseline, nil, jr)

	d := pl.OnBar(context.Background(), signalBars(), contextBars(true))
	require.Equal(t, StatusOpened, d.Status)
	stop := pl.Tracker.Position().Stop

	d = pl.OnBar(context.Background(), stopCrashBar(stop), contextBars(true))
	assert.Equal(t, "exit_"+ExitStop, d.Status)
	require.NotNil(t, d.Trade)
	assert.Equal(t, ExitStop, d.Trade.ExitReason)
	assert.Nil(t, pl.Tracker.Position(), "no new entry on an exit bar")
	assert.Len(t, pl.Tracker.Trades(), 1)

	// Both the entry and the exit fill were journaled alongside the two
	// decision records.
	require.Len(t, jr.records, 4)
	assert.Equal(t, journal.EventFill, jr.records[1].Event)
	assert.Equal(t, journal.EventFill, jr.records[3].Event)
}

func TestOnBar_FallbackTradesMatchBaseline(t *testing.T) {
	t.Parallel()

	// Open and stop out one full trade under a variant/advisor pairing.
	run := func(v Variant, adv advisor.Advisor) Trade {
		pl := testPipeline(v, adv, journal.Noop{})
		d := pl.OnBar(context.Background(), signalBars(), contextBars(true))
		require.Equal(t, StatusOpened, d.Status)

		d = pl.OnBar(context.Background(), stopCrashBar(pl.Tracker.Position().Stop), contextBars(true))
		require.NotNil(t, d.Trade)
		return *d.Trade
	}

	// With the advisor down, the degraded variants must produce trades
	// indistinguishable from baseline, labels included.
	base := run(Baseline, nil)
	assert.Equal(t, base, run(AIFilter, advisor.Unavailable{}))
	assert.Equal(t, base, run(AIFilterSizing, advisor.Unavailable{}))
}

func TestOnBar_AdvisoryRejected(t *testing.T) {
	t.Parallel()

	adv := &advisor.Scripted{Verdicts: []advisor.Verdict{
		advisor.Reject("range_bound"),
	}}
	pl := testPipeline(AIFilter, adv, journal.Noop{})

	d := pl.OnBar(context.Background(), signalBars(), contextBars(true))
	assert.Equal(t, StatusAdvisoryRejected, d.Status)
	assert.Nil(t, pl.Tracker.Position())
	require.NotNil(t, d.Candidate, "the veto still records what was vetoed")
}

func TestOnBar_UnavailableAdvisorFallsBack(t *testing.T) {
	t.Parallel()

	pl := testPipeline(AIFilter, advisor.Unavailable{}, journal.Noop{})

	d := pl.OnBar(context.Background(), signalBars(), contextBars(true))
	assert.Equal(t, StatusOpened, d.Status)
	require.NotNil(t, d.Verdict)
	assert.Contains(t, d.Verdict.Flags, "AI_UNAVAILABLE")
	assert.Equal(t, 1.0, d.Verdict.SizeMultiplier)
}

func TestOnBar_SizingVariantShrinksPosition(t *testing.T) {
	t.Parallel()

	full := testPipeline(AIFilter, &advisor.Scripted{Verdicts: []advisor.Verdict{
		{Approved: true, Confidence: 0.5, SizeMultiplier: 0.5},
	}}, journal.Noop{})
	sized := testPipeline(AIFilterSizing, &advisor.Scripted{Verdicts: []advisor.Verdict{
		{Approved: true, Confidence: 0.5, SizeMultiplier: 0.5},
	}}, journal.Noop{})

	// Lift the notional cap so the multiplier, not the cap, decides the size.
	full.Policy.MaxExposurePct = 100
	sized.Policy.MaxExposurePct = 100

	df := full.OnBar(context.Background(), signalBars(), contextBars(true))
	ds := sized.OnBar(context.Background(), signalBars(), contextBars(true))
	require.Equal(t, StatusOpened, df.Status)
	require.Equal(t, StatusOpened, ds.Status)

	// The filter variant ignores the multiplier; the sizing variant applies it.
	assert.Less(t, ds.Fill.Qty, df.Fill.Qty)
}

func TestOnBar_RiskRejected(t *testing.T) {
	t.Parallel()

	pl := testPipeline(Baseline, nil, journal.Noop{})
	pl.Tracker = RestoreTracker(State{
		Equity:            10_000,
		ConsecutiveLosses: 3,
		WeekStartEquity:   10_000,
	}, 7)

	d := pl.OnBar(context.Background(), signalBars(), contextBars(true))
	assert.Equal(t, StatusRiskRejected, d.Status)
	require.NotNil(t, d.Risk)
	assert.Contains(t, d.Risk.Reasons(), "MAX_CONSECUTIVE_LOSSES")
}
