package cmd

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/swing/config"
)

func TestBacktestConfig_SegmentsAndThresholds(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Backtest.GoNoGo.ExpectancyTolerance = 0.8
	cfg.Backtest.Segments = []config.SegmentConfig{
		{Name: "bull", Start: "2024-01-01T00:00:00Z", End: "2024-06-30T00:00:00Z"},
		{Name: "chop", Start: "2024-07-01T00:00:00Z", End: "2024-12-31T00:00:00Z"},
	}
	require.NoError(t, cfg.Validate())

	bc := backtestConfig(cfg)
	assert.Equal(t, 0.8, bc.Thresholds.ExpectancyTolerance)
	require.Len(t, bc.Segments, 2)
	assert.Equal(t, "bull", bc.Segments[0].Name)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), bc.Segments[0].Start)
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), bc.Segments[0].End)
}

func TestBacktestConfig_NoSegmentsMeansDefaultSplit(t *testing.T) {
	t.Parallel()

	bc := backtestConfig(config.Default())
	assert.Empty(t, bc.Segments)
	assert.Equal(t, 0.9, bc.Thresholds.ExpectancyTolerance)
}

func TestStateFlagOnBothLiveCommands(t *testing.T) {
	t.Parallel()

	for _, c := range []*cobra.Command{onceCmd, loopCmd} {
		assert.NotNil(t, c.Flags().Lookup("state"), c.Use)
	}
}
