package cmd

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var loopInterval time.Duration

var loopCmd = &cobra.Command{
	Use:   "loop",
	Short: "Run live paper cycles on a ticker until interrupted",
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

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log.Info().Dur("interval", loopInterval).Msg("loop started")

		// A cycle already in flight finishes; the signal is only honored
		// between cycles.
		ticker := time.NewTicker(loopInterval)
		defer ticker.Stop()

		for {
			if _, err := runCycle(ctx, cfg, log, jr, adv); err != nil {
				if ctx.Err() != nil {
					break
				}
				log.Error().Err(err).Msg("cycle failed")
			}

			select {
			case <-ctx.Done():
				log.Info().Msg("loop stopped")
				return nil
			case <-ticker.C:
			}
		}
		log.Info().Msg("loop stopped")
		return nil
	},
}

func init() {
	loopCmd.Flags().DurationVar(&loopInterval, "interval", 4*time.Hour, "time between cycles")
	loopCmd.Flags().StringVar(&statePath, "state", "paper_state.json", "paper account state file")
	rootCmd.AddCommand(loopCmd)
}
