// Package config loads the runtime configuration from YAML with environment
// overrides. Validation is strict: a bad config fails at startup, never
// mid-decision.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete runtime configuration.
type Config struct {
	Symbol   string         `yaml:"symbol"`
	Variant  string         `yaml:"variant"`
	Strategy StrategyConfig `yaml:"strategy"`
	Risk     RiskConfig     `yaml:"risk"`
	Advisor  AdvisorConfig  `yaml:"advisor"`
	Backtest BacktestConfig `yaml:"backtest"`
	Journal  JournalConfig  `yaml:"journal"`
	Log      LogConfig      `yaml:"log"`
}

// StrategyConfig tunes the indicator lookbacks and entry thresholds.
type StrategyConfig struct {
	FastEMA           int     `yaml:"fast_ema"`
	SlowEMA           int     `yaml:"slow_ema"`
	ATRPeriod         int     `yaml:"atr_period"`
	ATRLookback       int     `yaml:"atr_lookback"`
	MinContextBars    int     `yaml:"min_context_bars"`
	AtrHighQuantile   float64 `yaml:"atr_high_quantile"`
	PullbackThreshold float64 `yaml:"pullback_threshold"`
	StopATRMultiplier float64 `yaml:"stop_atr_multiplier"`
	TargetR           float64 `yaml:"target_r"`
}

// RiskConfig holds the hard limits enforced by the gate.
type RiskConfig struct {
	RiskPerTradePct      float64 `yaml:"risk_per_trade_pct"`
	MaxExposurePct       float64 `yaml:"max_exposure_pct"`
	MinStopDistancePct   float64 `yaml:"min_stop_distance_pct"`
	MaxOpenPositions     int     `yaml:"max_open_positions"`
	MaxConsecutiveLosses int     `yaml:"max_consecutive_losses"`
	MaxWeeklyDrawdownPct float64 `yaml:"max_weekly_drawdown_pct"`
	MaxHoldingDays       int     `yaml:"max_holding_days"`
}

// AdvisorConfig selects and parameterizes the advisory oracle.
type AdvisorConfig struct {
	Mode    string `yaml:"mode"` // none, heuristic, remote
	URL     string `yaml:"url"`
	APIKey  string `yaml:"api_key"`
	Timeout string `yaml:"timeout"` // Go duration, e.g. "10s"
}

// ParseTimeout converts the timeout string; empty means the default.
func (a AdvisorConfig) ParseTimeout() (time.Duration, error) {
	if a.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(a.Timeout)
}

// BacktestConfig parameterizes replays.
type BacktestConfig struct {
	WarmupFastBars int             `yaml:"warmup_fast_bars"`
	InitialEquity  float64         `yaml:"initial_equity"`
	SlippageBps    float64         `yaml:"slippage_bps"`
	OutputDir      string          `yaml:"output_dir"`
	FastCSV        string          `yaml:"fast_csv"`
	ContextCSV     string          `yaml:"context_csv"`
	CacheDir       string          `yaml:"cache_dir"`
	Segments       []SegmentConfig `yaml:"segments"`
	GoNoGo         GoNoGoConfig    `yaml:"go_no_go"`
}

// SegmentConfig names one evaluation window. No segments configured means the
// run is split into two default halves.
type SegmentConfig struct {
	Name  string `yaml:"name"`
	Start string `yaml:"start_at"` // RFC3339
	End   string `yaml:"end_at"`   // RFC3339
}

// ParseWindow converts the RFC3339 boundaries.
func (s SegmentConfig) ParseWindow() (time.Time, time.Time, error) {
	start, err := time.Parse(time.RFC3339, s.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start_at: %w", err)
	}
	end, err := time.Parse(time.RFC3339, s.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end_at: %w", err)
	}
	return start, end, nil
}

// GoNoGoConfig tunes the promotion gate.
type GoNoGoConfig struct {
	// ExpectancyTolerance is the fraction of a profitable baseline's
	// expectancy the candidate must retain, in (0, 1].
	ExpectancyTolerance float64 `yaml:"expectancy_tolerance"`
}

// JournalConfig selects the decision store.
type JournalConfig struct {
	Type   string `yaml:"type"` // none, jsonl, sqlite
	Dir    string `yaml:"dir"`
	DBPath string `yaml:"db_path"`
}

// LogConfig selects log level and rendering.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// Default returns the production configuration.
func Default() *Config {
	return &Config{
		Symbol:  "BTCUSDT",
		Variant: "ai_filter_sizing",
		Strategy: StrategyConfig{
			FastEMA:           20,
			SlowEMA:           50,
			ATRPeriod:         14,
			ATRLookback:       180,
			MinContextBars:    60,
			AtrHighQuantile:   0.8,
			PullbackThreshold: 0.5,
			StopATRMultiplier: 2.0,
			TargetR:           2.0,
		},
		Risk: RiskConfig{
			RiskPerTradePct:      0.5,
			MaxExposurePct:       10.0,
			MinStopDistancePct:   0.1,
			MaxOpenPositions:     1,
			MaxConsecutiveLosses: 3,
			MaxWeeklyDrawdownPct: 3.0,
			MaxHoldingDays:       7,
		},
		Advisor: AdvisorConfig{
			Mode:    "heuristic",
			Timeout: "10s",
		},
		Backtest: BacktestConfig{
			WarmupFastBars: 200,
			InitialEquity:  10_000,
			SlippageBps:    5,
			OutputDir:      "backtest_out",
			CacheDir:       ".cache",
			GoNoGo:         GoNoGoConfig{ExpectancyTolerance: 0.9},
		},
		Journal: JournalConfig{
			Type: "jsonl",
			Dir:  "journal",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load builds the effective configuration: defaults, then the YAML file (if
// given), then .env, then environment variables. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env never overrides variables already exported.
	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyEnv overlays SWING_* environment variables on top of the file values.
// Only operationally sensitive knobs are exposed this way.
func (c *Config) applyEnv() {
	setString(&c.Symbol, "SWING_SYMBOL")
	setString(&c.Variant, "SWING_VARIANT")
	setString(&c.Advisor.Mode, "SWING_ADVISOR_MODE")
	setString(&c.Advisor.URL, "SWING_ADVISOR_URL")
	setString(&c.Advisor.APIKey, "SWING_ADVISOR_API_KEY")
	setString(&c.Advisor.Timeout, "SWING_ADVISOR_TIMEOUT")
	setString(&c.Journal.Type, "SWING_JOURNAL_TYPE")
	setString(&c.Journal.Dir, "SWING_JOURNAL_DIR")
	setString(&c.Journal.DBPath, "SWING_JOURNAL_DB")
	setString(&c.Log.Level, "SWING_LOG_LEVEL")
	setString(&c.Log.Format, "SWING_LOG_FORMAT")
	setFloat(&c.Risk.RiskPerTradePct, "SWING_RISK_PER_TRADE_PCT")
	setFloat(&c.Backtest.SlippageBps, "SWING_SLIPPAGE_BPS")
	setFloat(&c.Backtest.InitialEquity, "SWING_INITIAL_EQUITY")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

// Validate checks the configuration for values that would corrupt a run.
func (c *Config) Validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	switch c.Variant {
	case "baseline", "ai_filter", "ai_filter_sizing":
	default:
		return fmt.Errorf("variant must be baseline, ai_filter, or ai_filter_sizing, got %q", c.Variant)
	}

	s := c.Strategy
	if s.FastEMA <= 0 || s.SlowEMA <= 0 || s.FastEMA >= s.SlowEMA {
		return fmt.Errorf("strategy EMAs must satisfy 0 < fast_ema < slow_ema")
	}
	if s.ATRPeriod <= 0 {
		return fmt.Errorf("strategy.atr_period must be positive")
	}
	if s.AtrHighQuantile <= 0 || s.AtrHighQuantile > 1 {
		return fmt.Errorf("strategy.atr_high_quantile must be in (0, 1]")
	}
	if s.StopATRMultiplier <= 0 {
		return fmt.Errorf("strategy.stop_atr_multiplier must be positive")
	}

	r := c.Risk
	if r.RiskPerTradePct <= 0 || r.RiskPerTradePct > 2.0 {
		return fmt.Errorf("risk.risk_per_trade_pct must be in (0, 2]")
	}
	if r.MaxExposurePct <= 0 {
		return fmt.Errorf("risk.max_exposure_pct must be positive")
	}
	if r.MaxOpenPositions <= 0 {
		return fmt.Errorf("risk.max_open_positions must be positive")
	}
	if r.MaxConsecutiveLosses <= 0 {
		return fmt.Errorf("risk.max_consecutive_losses must be positive")
	}
	if r.MaxWeeklyDrawdownPct <= 0 {
		return fmt.Errorf("risk.max_weekly_drawdown_pct must be positive")
	}
	if r.MaxHoldingDays <= 0 {
		return fmt.Errorf("risk.max_holding_days must be positive")
	}

	switch c.Advisor.Mode {
	case "none", "heuristic", "remote":
	default:
		return fmt.Errorf("advisor.mode must be none, heuristic, or remote, got %q", c.Advisor.Mode)
	}
	if c.Advisor.Mode == "remote" && c.Advisor.URL == "" {
		return fmt.Errorf("advisor.url is required for remote mode")
	}
	if _, err := c.Advisor.ParseTimeout(); err != nil {
		return fmt.Errorf("advisor.timeout: %w", err)
	}

	if c.Backtest.WarmupFastBars <= 0 {
		return fmt.Errorf("backtest.warmup_fast_bars must be positive")
	}
	if c.Backtest.InitialEquity <= 0 {
		return fmt.Errorf("backtest.initial_equity must be positive")
	}
	if c.Backtest.SlippageBps < 0 {
		return fmt.Errorf("backtest.slippage_bps must not be negative")
	}
	if g := c.Backtest.GoNoGo.ExpectancyTolerance; g <= 0 || g > 1 {
		return fmt.Errorf("backtest.go_no_go.expectancy_tolerance must be in (0, 1]")
	}
	names := make(map[string]bool, len(c.Backtest.Segments))
	for i, seg := range c.Backtest.Segments {
		if seg.Name == "" {
			return fmt.Errorf("backtest.segments[%d]: name is required", i)
		}
		if names[seg.Name] {
			return fmt.Errorf("backtest.segments: duplicate name %q", seg.Name)
		}
		names[seg.Name] = true
		start, end, err := seg.ParseWindow()
		if err != nil {
			return fmt.Errorf("backtest.segments[%d]: %w", i, err)
		}
		if !start.Before(end) {
			return fmt.Errorf("backtest.segments[%d]: start_at must precede end_at", i)
		}
	}

	switch c.Journal.Type {
	case "none", "jsonl", "sqlite":
	default:
		return fmt.Errorf("journal.type must be none, jsonl, or sqlite, got %q", c.Journal.Type)
	}
	if c.Journal.Type == "sqlite" && c.Journal.DBPath == "" {
		return fmt.Errorf("journal.db_path is required for sqlite journal")
	}

	return nil
}
