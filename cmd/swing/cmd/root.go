// Package cmd wires the swing CLI: a backtest runner and a live paper
// trading loop sharing one decision pipeline.
package cmd

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/swing/advisor"
	"github.com/rustyeddy/swing/config"
	"github.com/rustyeddy/swing/journal"
	"github.com/rustyeddy/swing/pkg/logger"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "swing",
	Short: "A BTC swing-trading research pipeline with an advisory veto layer",
	Long: `Swing runs a bar-by-bar trend-pullback decision pipeline on 4h/1d
candles: indicators, candidate generation, an optional advisory oracle, a
hard risk gate, and paper execution.

The same pipeline serves two modes:
  - backtest: replay historical data per variant and evaluate a go/no-go gate
  - once/loop: live paper cycles against exchange klines`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
}

// loadRuntime builds the shared collaborators every subcommand needs.
func loadRuntime() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, zerolog.Logger{}, err
	}
	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, zerolog.Logger{}, err
	}
	return cfg, log, nil
}

// buildAdvisor constructs the configured oracle behind the timeout/panic
// guard. Mode "none" yields a permanently unavailable advisor, so advisory
// variants degrade to their documented fallback.
func buildAdvisor(cfg *config.Config) (advisor.Advisor, error) {
	timeout, err := cfg.Advisor.ParseTimeout()
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var inner advisor.Advisor
	switch cfg.Advisor.Mode {
	case "none":
		inner = advisor.Unavailable{}
	case "heuristic":
		inner = advisor.Heuristic{}
	case "remote":
		inner = advisor.NewRemote(cfg.Advisor.URL, cfg.Advisor.APIKey)
	default:
		return nil, fmt.Errorf("unknown advisor mode %q", cfg.Advisor.Mode)
	}
	return advisor.Bounded{Inner: inner, Timeout: timeout}, nil
}

// buildJournal constructs the configured decision store.
func buildJournal(cfg *config.Config) (journal.Journal, error) {
	switch cfg.Journal.Type {
	case "none":
		return journal.Noop{}, nil
	case "jsonl":
		return journal.NewJSONL(cfg.Journal.Dir)
	case "sqlite":
		return journal.NewSQLite(cfg.Journal.DBPath)
	default:
		return nil, fmt.Errorf("unknown journal type %q", cfg.Journal.Type)
	}
}
