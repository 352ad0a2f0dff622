package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/swing/advisor"
	"github.com/rustyeddy/swing/broker"
	"github.com/rustyeddy/swing/config"
	"github.com/rustyeddy/swing/journal"
	"github.com/rustyeddy/swing/market"
	"github.com/rustyeddy/swing/pipeline"
)

var statePath string

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run one live paper cycle on the newest closed bar",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime()
		if err != nil {
			return err
		}
		adv, err := buildAdvisor(cfg)
		if err != nil {
			return err
		}
		jr, err := buildJournal(cfg)
		if err != nil {
			return err
		}
		defer jr.Close()

		d, err := runCycle(cmd.Context(), cfg, log, jr, adv)
		if err != nil {
			return err
		}
		fmt.Println(d.Status)
		return nil
	},
}

// runCycle executes one full decision cycle: fetch closed bars, run the
// pipeline on the newest 4h bar against persisted paper state, and persist
// the state back. It is the unit both `once` and `loop` share, and the same
// code path the backtest replays. The cycle boundaries and any cycle-level
// failure are journaled around the pipeline's own records.
func runCycle(ctx context.Context, cfg *config.Config, log zerolog.Logger, jr journal.Journal, adv advisor.Advisor) (d pipeline.Decision, err error) {
	record(log, jr, journal.EventCycleStart, map[string]any{
		"symbol":  cfg.Symbol,
		"variant": cfg.Variant,
	})
	defer func() {
		if err != nil {
			record(log, jr, journal.EventError, map[string]any{"error": err.Error()})
		}
		record(log, jr, journal.EventCycleEnd, map[string]any{"status": d.Status})
	}()

	src := market.NewBinance("")
	fast, err := src.GetBars(ctx, cfg.Symbol, market.TF4H, 300)
	if err != nil {
		return pipeline.Decision{}, err
	}
	ctxSeries, err := src.GetBars(ctx, cfg.Symbol, market.TF1D, 400)
	if err != nil {
		return pipeline.Decision{}, err
	}

	variant, err := pipeline.VariantByName(cfg.Variant)
	if err != nil {
		return pipeline.Decision{}, err
	}

	state, found, err := pipeline.LoadState(statePath)
	if err != nil {
		return pipeline.Decision{}, err
	}
	var tracker *pipeline.Tracker
	if found {
		tracker = pipeline.RestoreTracker(state, cfg.Risk.MaxHoldingDays)
	} else {
		tracker = pipeline.NewTracker(cfg.Backtest.InitialEquity, cfg.Risk.MaxHoldingDays)
	}

	pl := &pipeline.Pipeline{
		Symbol:     cfg.Symbol,
		Variant:    variant,
		Indicators: indicatorParams(cfg),
		Strategy:   strategyParams(cfg),
		Policy:     riskPolicy(cfg),
		Advisor:    adv,
		Target:     broker.NewPaper(cfg.Backtest.SlippageBps),
		Tracker:    tracker,
		Journal:    jr,
		Log:        log,
	}

	last, _ := fast.Last()
	d = pl.OnBar(ctx, fast.Prefix(fast.Len()-1), ctxSeries.ClosedBy(last.CloseTime))

	if err := pipeline.SaveState(statePath, tracker.Snapshot()); err != nil {
		return d, err
	}
	log.Info().
		Str("status", d.Status).
		Float64("equity", tracker.Equity()).
		Msg("cycle complete")
	return d, nil
}

// record journals one cycle-level event; failures are logged, never fatal.
func record(log zerolog.Logger, jr journal.Journal, event string, payload map[string]any) {
	rec := journal.Record{Time: time.Now().UTC(), Event: event, Payload: payload}
	if err := jr.Append(rec); err != nil {
		log.Error().Err(err).Str("event", event).Msg("journal append failed")
	}
}

func init() {
	onceCmd.Flags().StringVar(&statePath, "state", "paper_state.json", "paper account state file")
	rootCmd.AddCommand(onceCmd)
}
