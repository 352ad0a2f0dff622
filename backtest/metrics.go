package backtest

import (
	"github.com/rustyeddy/swing/pipeline"
)

// Metrics summarizes one variant run or one segment of it.
type Metrics struct {
	TradeCount              int     `json:"trade_count"`
	TotalReturnPct          float64 `json:"total_return_pct"`
	MaxDrawdownPct          float64 `json:"max_drawdown_pct"`
	MaxDrawdownRecoveryBars *int    `json:"max_drawdown_recovery_bars"`
	ExpectancyPerTrade      float64 `json:"expectancy_per_trade"`
	AvgTradePnL             float64 `json:"avg_trade_pnl"`
	TradeFrequencyPer30Days float64 `json:"trade_frequency_per_30d"`
	WinRatePct              float64 `json:"win_rate_pct"`
}

// ComputeMetrics derives the summary metrics from one equity curve and its
// trades. Expectancy is expressed in R multiples (PnL over the amount risked
// between entry and stop); the raw mean PnL is kept as avg_trade_pnl.
func ComputeMetrics(curve []pipeline.EquityPoint, trades []pipeline.Trade) Metrics {
	if len(curve) == 0 {
		return Metrics{}
	}

	m := Metrics{TradeCount: len(trades)}

	start := curve[0].Equity
	end := curve[len(curve)-1].Equity
	if start > 0 {
		m.TotalReturnPct = (end/start - 1.0) * 100.0
	}

	values := make([]float64, len(curve))
	for i, p := range curve {
		values[i] = p.Equity
	}
	m.MaxDrawdownPct, m.MaxDrawdownRecoveryBars = maxDrawdownWithRecovery(values)

	if len(trades) > 0 {
		var pnlSum, rSum float64
		wins := 0
		for _, t := range trades {
			pnlSum += t.PnL
			if t.RiskAmount > 0 {
				rSum += t.PnL / t.RiskAmount
			}
			if t.PnL > 0 {
				wins++
			}
		}
		n := float64(len(trades))
		m.AvgTradePnL = pnlSum / n
		m.ExpectancyPerTrade = rSum / n
		m.WinRatePct = float64(wins) / n * 100.0
	}

	durationDays := curve[len(curve)-1].Time.Sub(curve[0].Time).Seconds() / 86400.0
	if durationDays < 1e-9 {
		durationDays = 1e-9
	}
	m.TradeFrequencyPer30Days = float64(len(trades)) / durationDays * 30.0

	return m
}

// maxDrawdownWithRecovery finds the deepest peak-to-trough drawdown in percent
// and how many bars the curve needed to climb back to that peak. A nil
// recovery means the curve never got back; zero means there was no drawdown.
func maxDrawdownWithRecovery(values []float64) (float64, *int) {
	if len(values) == 0 {
		return 0, nil
	}

	peak := values[0]
	peakIdx := 0
	maxDD := 0.0
	troughIdx := 0
	peakIdxAtMaxDD := 0

	for i, v := range values {
		if v > peak {
			peak = v
			peakIdx = i
		}
		dd := 0.0
		if peak > 0 {
			dd = (peak - v) / peak * 100.0
		}
		if dd > maxDD {
			maxDD = dd
			troughIdx = i
			peakIdxAtMaxDD = peakIdx
		}
	}

	if maxDD <= 0 {
		zero := 0
		return 0, &zero
	}

	target := values[peakIdxAtMaxDD]
	for i := troughIdx + 1; i < len(values); i++ {
		if values[i] >= target {
			bars := i - troughIdx
			return maxDD, &bars
		}
	}
	return maxDD, nil
}
