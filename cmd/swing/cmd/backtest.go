package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/swing/backtest"
	"github.com/rustyeddy/swing/config"
	"github.com/rustyeddy/swing/market"
)

var (
	btOut        string
	btFastCSV    string
	btContextCSV string
	btFastBars   int
	btCtxBars    int
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay historical bars per variant and evaluate the go/no-go gate",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime()
		if err != nil {
			return err
		}
		adv, err := buildAdvisor(cfg)
		if err != nil {
			return err
		}

		ctx := cmd.Context()

		fastCSV := btFastCSV
		if fastCSV == "" {
			fastCSV = cfg.Backtest.FastCSV
		}
		ctxCSV := btContextCSV
		if ctxCSV == "" {
			ctxCSV = cfg.Backtest.ContextCSV
		}

		var fast, ctxSeries *market.Series
		source := "csv"
		if fastCSV != "" && ctxCSV != "" {
			if fast, err = market.LoadCSV(fastCSV); err != nil {
				return err
			}
			if ctxSeries, err = market.LoadCSV(ctxCSV); err != nil {
				return err
			}
		} else {
			source = "binance"
			src := market.NewBinance("")
			if fast, err = market.FetchWithCache(ctx, src, cfg.Symbol, market.TF4H, btFastBars, cfg.Backtest.CacheDir); err != nil {
				return err
			}
			if ctxSeries, err = market.FetchWithCache(ctx, src, cfg.Symbol, market.TF1D, btCtxBars, cfg.Backtest.CacheDir); err != nil {
				return err
			}
		}

		runner := &backtest.Runner{
			Config:  backtestConfig(cfg),
			Advisor: adv,
			Source:  source,
			Log:     log,
		}
		res, err := runner.Run(ctx, fast, ctxSeries)
		if err != nil {
			return err
		}

		out := btOut
		if out == "" {
			out = cfg.Backtest.OutputDir
		}
		if err := backtest.WriteArtifacts(out, res); err != nil {
			return err
		}

		decision := "NO-GO"
		if res.Verdict.Go {
			decision = "GO"
		}
		fmt.Printf("%s (%s)\n", decision, res.Verdict.CandidateVariant)
		for _, c := range res.Verdict.Checks {
			mark := "FAIL"
			if c.Pass {
				mark = "PASS"
			}
			fmt.Printf("  %-36s %s\n", c.Name, mark)
		}
		fmt.Printf("artifacts written to %s\n", out)
		return nil
	},
}

func backtestConfig(cfg *config.Config) backtest.Config {
	bc := backtest.Config{
		Symbol:         cfg.Symbol,
		WarmupFastBars: cfg.Backtest.WarmupFastBars,
		MinContextBars: cfg.Strategy.MinContextBars,
		InitialEquity:  cfg.Backtest.InitialEquity,
		SlippageBps:    cfg.Backtest.SlippageBps,
		MaxHoldingDays: cfg.Risk.MaxHoldingDays,
		Indicators:     indicatorParams(cfg),
		Strategy:       strategyParams(cfg),
		Policy:         riskPolicy(cfg),
		Thresholds:     backtest.Thresholds{ExpectancyTolerance: cfg.Backtest.GoNoGo.ExpectancyTolerance},
	}
	for _, seg := range cfg.Backtest.Segments {
		start, end, err := seg.ParseWindow()
		if err != nil {
			continue // rejected by Validate at load time
		}
		bc.Segments = append(bc.Segments, backtest.Segment{Name: seg.Name, Start: start, End: end})
	}
	return bc
}

func init() {
	backtestCmd.Flags().StringVar(&btOut, "out", "", "artifact output directory")
	backtestCmd.Flags().StringVar(&btFastCSV, "fast-csv", "", "4h OHLCV csv file")
	backtestCmd.Flags().StringVar(&btContextCSV, "context-csv", "", "1d OHLCV csv file")
	backtestCmd.Flags().IntVar(&btFastBars, "fast-bars", 1000, "4h bars to fetch when no csv is given")
	backtestCmd.Flags().IntVar(&btCtxBars, "context-bars", 400, "1d bars to fetch when no csv is given")
	rootCmd.AddCommand(backtestCmd)
}
