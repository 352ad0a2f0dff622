// Package backtest replays historical bars through the live decision
// pipeline, once per variant, and reduces the results to metrics, a segment
// breakdown, and a go/no-go verdict.
package backtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/swing/advisor"
	"github.com/rustyeddy/swing/broker"
	"github.com/rustyeddy/swing/indicators"
	"github.com/rustyeddy/swing/journal"
	"github.com/rustyeddy/swing/market"
	"github.com/rustyeddy/swing/pipeline"
	"github.com/rustyeddy/swing/risk"
	"github.com/rustyeddy/swing/strategy"
)

// Config parameterizes one backtest run. Zero values are invalid; callers go
// through DefaultConfig or config.Load.
type Config struct {
	Symbol         string
	WarmupFastBars int
	MinContextBars int
	InitialEquity  float64
	SlippageBps    float64
	MaxHoldingDays int
	Indicators     indicators.Params
	Strategy       strategy.Params
	Policy         risk.Policy
	Segments       []Segment // empty = two default halves
	Thresholds     Thresholds
}

// DefaultConfig returns the production backtest parameters for one symbol.
func DefaultConfig(symbol string) Config {
	return Config{
		Symbol:         symbol,
		WarmupFastBars: 200,
		MinContextBars: 60,
		InitialEquity:  10_000,
		SlippageBps:    5,
		MaxHoldingDays: 7,
		Indicators:     indicators.DefaultParams(),
		Strategy:       strategy.DefaultParams(symbol),
		Policy:         risk.DefaultPolicy(),
		Thresholds:     DefaultThresholds(),
	}
}

// VariantResult is one variant's complete replay output.
type VariantResult struct {
	Variant        string                 `json:"variant"`
	Trades         []pipeline.Trade       `json:"-"`
	Curve          []pipeline.EquityPoint `json:"-"`
	Warnings       []string               `json:"warnings"`
	Metrics        Metrics                `json:"metrics"`
	SegmentMetrics map[string]Metrics     `json:"segment_metrics"`
}

// RunResult aggregates all variants plus the gate verdict.
type RunResult struct {
	Symbol    string
	StartedAt time.Time
	Source    string
	Segments  []Segment
	Order     []string // variant names in canonical order
	Variants  map[string]*VariantResult
	Verdict   Verdict
}

// Runner replays bars through the pipeline. Variants run concurrently; each
// gets fresh state, so results never depend on scheduling.
type Runner struct {
	Config  Config
	Advisor advisor.Advisor
	Source  string // data provenance label for the report
	Log     zerolog.Logger
	Now     func() time.Time // report timestamp; defaults to time.Now
}

// Run replays the full range once per variant and evaluates the gate.
// Cancellation is honored between bars; a cancelled run returns the context
// error and no result.
func (r *Runner) Run(ctx context.Context, fast, ctxSeries *market.Series) (*RunResult, error) {
	cfg := r.Config
	if cfg.WarmupFastBars <= 0 {
		return nil, fmt.Errorf("backtest: warmup bars must be positive")
	}
	if fast.Len() <= cfg.WarmupFastBars {
		return nil, fmt.Errorf("backtest: %d fast bars insufficient for %d warmup",
			fast.Len(), cfg.WarmupFastBars)
	}

	variants := pipeline.AllVariants()
	results := make([]*VariantResult, len(variants))
	errs := make([]error, len(variants))

	var wg sync.WaitGroup
	for i, v := range variants {
		wg.Add(1)
		go func(i int, v pipeline.Variant) {
			defer wg.Done()
			results[i], errs[i] = r.runVariant(ctx, v, fast, ctxSeries)
		}(i, v)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	res := &RunResult{
		Symbol:   cfg.Symbol,
		Source:   r.Source,
		Variants: make(map[string]*VariantResult, len(results)),
	}
	if r.Now != nil {
		res.StartedAt = r.Now().UTC()
	} else {
		res.StartedAt = time.Now().UTC()
	}
	for i, v := range variants {
		res.Order = append(res.Order, v.Name)
		res.Variants[v.Name] = results[i]
	}

	res.Segments = cfg.Segments
	if len(res.Segments) == 0 {
		res.Segments = DefaultSegments(res.Variants["baseline"].Curve)
	}
	for _, vr := range res.Variants {
		vr.SegmentMetrics = SegmentMetrics(vr.Curve, vr.Trades, res.Segments)
	}

	res.Verdict = EvaluateGoNoGo(res.Variants, cfg.Thresholds)
	r.Log.Info().
		Bool("go", res.Verdict.Go).
		Str("candidate", res.Verdict.CandidateVariant).
		Msg("backtest complete")
	return res, nil
}

// runVariant replays the whole range for one variant with fresh state. Bars
// still inside the warm-up window, or without enough context history, are
// skipped without producing an equity point.
func (r *Runner) runVariant(ctx context.Context, v pipeline.Variant, fast, ctxSeries *market.Series) (*VariantResult, error) {
	cfg := r.Config
	tracker := pipeline.NewTracker(cfg.InitialEquity, cfg.MaxHoldingDays)

	pl := &pipeline.Pipeline{
		Symbol:     cfg.Symbol,
		Variant:    v,
		Indicators: cfg.Indicators,
		Strategy:   cfg.Strategy,
		Policy:     cfg.Policy,
		Advisor:    r.Advisor,
		Target:     broker.NewPaper(cfg.SlippageBps),
		Tracker:    tracker,
		Journal:    journal.Noop{},
		Log:        r.Log.With().Str("variant", v.Name).Logger(),
	}

	vr := &VariantResult{Variant: v.Name}

	for i := cfg.WarmupFastBars; i < fast.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("backtest: variant %s cancelled: %w", v.Name, err)
		}

		bar := fast.Bar(i)
		ctxBars := ctxSeries.ClosedBy(bar.CloseTime)
		if len(ctxBars) < cfg.MinContextBars {
			continue
		}

		d := pl.OnBar(ctx, fast.Prefix(i), ctxBars)
		switch d.Status {
		case pipeline.StatusIndicatorError:
			vr.Warnings = append(vr.Warnings, fmt.Sprintf("indicator_error:%v", d.Err))
		case pipeline.StatusRiskRejected:
			vr.Warnings = append(vr.Warnings, "risk_block:"+strings.Join(d.Risk.Reasons(), ","))
		case pipeline.StatusExecutionRejected:
			vr.Warnings = append(vr.Warnings, fmt.Sprintf("execution_rejected:%v", d.Err))
		}
	}

	if err := r.closeAtEndOfData(ctx, pl, tracker, fast); err != nil {
		return nil, err
	}

	vr.Trades = tracker.Trades()
	vr.Curve = tracker.Curve()
	vr.Metrics = ComputeMetrics(vr.Curve, vr.Trades)
	return vr, nil
}

// closeAtEndOfData force-closes a position still open after the final bar so
// every replay ends flat and comparable.
func (r *Runner) closeAtEndOfData(ctx context.Context, pl *pipeline.Pipeline, tracker *pipeline.Tracker, fast *market.Series) error {
	pos := tracker.Position()
	if pos == nil {
		return nil
	}
	last, _ := fast.Last()

	fill, err := pl.Target.Submit(ctx, broker.Order{
		Time:   last.CloseTime,
		Symbol: pos.Symbol,
		Action: broker.ActionClose,
		Price:  last.Close,
		Qty:    pos.Qty,
		Reason: pipeline.ExitEndOfData,
	})
	if err != nil {
		return fmt.Errorf("backtest: end-of-data close: %w", err)
	}
	tracker.Close(fill, pipeline.ExitEndOfData)

	regime := indicators.TrendNeutral
	if curve := tracker.Curve(); len(curve) > 0 {
		regime = curve[len(curve)-1].Regime
	}
	tracker.Mark(last.CloseTime, last.Close, regime)
	return nil
}
