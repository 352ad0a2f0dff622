package cmd

import (
	"github.com/rustyeddy/swing/config"
	"github.com/rustyeddy/swing/indicators"
	"github.com/rustyeddy/swing/risk"
	"github.com/rustyeddy/swing/strategy"
)

func indicatorParams(cfg *config.Config) indicators.Params {
	return indicators.Params{
		FastEMA:        cfg.Strategy.FastEMA,
		SlowEMA:        cfg.Strategy.SlowEMA,
		ATRPeriod:      cfg.Strategy.ATRPeriod,
		ATRLookback:    cfg.Strategy.ATRLookback,
		MinContextBars: cfg.Strategy.MinContextBars,
	}
}

func strategyParams(cfg *config.Config) strategy.Params {
	return strategy.Params{
		Symbol:            cfg.Symbol,
		AtrHighQuantile:   cfg.Strategy.AtrHighQuantile,
		PullbackThreshold: cfg.Strategy.PullbackThreshold,
		StopATRMultiplier: cfg.Strategy.StopATRMultiplier,
		TargetR:           cfg.Strategy.TargetR,
	}
}

func riskPolicy(cfg *config.Config) risk.Policy {
	return risk.Policy{
		RiskPerTradePct:      cfg.Risk.RiskPerTradePct,
		MaxExposurePct:       cfg.Risk.MaxExposurePct,
		MinStopDistancePct:   cfg.Risk.MinStopDistancePct,
		MaxOpenPositions:     cfg.Risk.MaxOpenPositions,
		MaxConsecutiveLosses: cfg.Risk.MaxConsecutiveLosses,
		MaxWeeklyDrawdownPct: cfg.Risk.MaxWeeklyDrawdownPct,
	}
}
