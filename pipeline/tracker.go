// Package pipeline runs the bar-by-bar decision loop: exit checks, candidate
// generation, advisory evaluation, risk gating, execution, and position
// tracking. The same code path serves live cycles and backtest replays.
package pipeline

import (
	"time"

	"github.com/rustyeddy/swing/broker"
	"github.com/rustyeddy/swing/indicators"
	"github.com/rustyeddy/swing/market"
	"github.com/rustyeddy/swing/risk"
	"github.com/rustyeddy/swing/strategy"
)

// Exit reasons recorded on closed trades.
const (
	ExitStop      = "stop_hit"
	ExitTarget    = "target_hit"
	ExitTimeStop  = "time_stop"
	ExitEndOfData = "end_of_data"
)

// Position is the single open position. Stage 1 holds at most one.
type Position struct {
	Symbol       string
	Side         strategy.Side
	Qty          float64
	Entry        float64 // fill price, slippage included
	Stop         float64
	Target       float64
	RiskAmount   float64
	OpenTime     time.Time
	EntryFillID  string
	AIDecision   string
	AIConfidence float64
}

// Trade is a closed round trip.
type Trade struct {
	Symbol       string    `json:"symbol"`
	Side         string    `json:"side"`
	Qty          float64   `json:"qty"`
	Entry        float64   `json:"entry"`
	Exit         float64   `json:"exit"`
	Stop         float64   `json:"stop"`
	Target       float64   `json:"target"`
	RiskAmount   float64   `json:"risk_amount"`
	OpenTime     time.Time `json:"open_time"`
	CloseTime    time.Time `json:"close_time"`
	PnL          float64   `json:"pnl"`
	ExitReason   string    `json:"exit_reason"`
	AIDecision   string    `json:"ai_decision"`
	AIConfidence float64   `json:"ai_confidence"`
}

// EquityPoint is one bar of the equity curve. Equity is marked to the bar
// close while a position is open and realized otherwise.
type EquityPoint struct {
	Time   time.Time        `json:"time"`
	Equity float64          `json:"equity"`
	Regime indicators.Trend `json:"regime"`
}

// Tracker owns the flat/in-position state machine and the account state the
// risk gate evaluates against. Each variant replay gets a fresh instance.
type Tracker struct {
	MaxHoldingDays int // time stop; 0 disables it

	equity            float64
	consecutiveLosses int
	weekStartEquity   float64
	weekKey           int

	pos    *Position
	trades []Trade
	curve  []EquityPoint
}

// NewTracker starts a flat tracker at the given equity.
func NewTracker(startEquity float64, maxHoldingDays int) *Tracker {
	return &Tracker{
		MaxHoldingDays:  maxHoldingDays,
		equity:          startEquity,
		weekStartEquity: startEquity,
	}
}

// Position returns the open position, nil when flat.
func (t *Tracker) Position() *Position { return t.pos }

// Equity returns realized equity.
func (t *Tracker) Equity() float64 { return t.equity }

// Trades returns the closed trades in close order.
func (t *Tracker) Trades() []Trade { return t.trades }

// Curve returns the per-bar equity points.
func (t *Tracker) Curve() []EquityPoint { return t.curve }

// Account snapshots the state the risk gate needs. The weekly drawdown is
// measured against the equity at the start of the current ISO week.
func (t *Tracker) Account() risk.AccountState {
	open := 0
	if t.pos != nil {
		open = 1
	}
	dd := 0.0
	if t.weekStartEquity > 0 && t.equity < t.weekStartEquity {
		dd = (t.weekStartEquity - t.equity) / t.weekStartEquity * 100.0
	}
	return risk.AccountState{
		Equity:            t.equity,
		OpenPositions:     open,
		ConsecutiveLosses: t.consecutiveLosses,
		WeeklyDrawdownPct: dd,
	}
}

// RollWeek resets the week-start equity whenever the bar time crosses into a
// new ISO week. Called once per bar before any decision.
func (t *Tracker) RollWeek(now time.Time) {
	year, week := now.UTC().ISOWeek()
	key := year*100 + week
	if key != t.weekKey {
		t.weekKey = key
		t.weekStartEquity = t.equity
	}
}

// CheckExit evaluates the open position against one bar. Rules apply in a
// fixed order: stop touch, target touch, then the time stop. When a bar
// touches both stop and target the stop wins; intrabar order is unknowable so
// the losing outcome is assumed.
func (t *Tracker) CheckExit(bar market.Bar) (reason string, price float64, ok bool) {
	if t.pos == nil {
		return "", 0, false
	}
	if bar.Low <= t.pos.Stop {
		return ExitStop, t.pos.Stop, true
	}
	if t.pos.Target > 0 && bar.High >= t.pos.Target {
		return ExitTarget, t.pos.Target, true
	}
	if t.MaxHoldingDays > 0 {
		held := bar.CloseTime.Sub(t.pos.OpenTime)
		if held >= time.Duration(t.MaxHoldingDays)*24*time.Hour {
			return ExitTimeStop, bar.Close, true
		}
	}
	return "", 0, false
}

// Open records a filled entry.
func (t *Tracker) Open(order risk.SizedOrder, fill broker.Fill, aiDecision string, aiConfidence float64) {
	t.pos = &Position{
		Symbol:       order.Symbol,
		Side:         order.Side,
		Qty:          fill.Qty,
		Entry:        fill.Price,
		Stop:         order.Stop,
		Target:       order.Target,
		RiskAmount:   order.RiskAmount,
		OpenTime:     fill.Time,
		EntryFillID:  fill.ID,
		AIDecision:   aiDecision,
		AIConfidence: aiConfidence,
	}
}

// Close settles the open position against a fill, updates equity and the
// consecutive-loss counter, and appends the trade.
func (t *Tracker) Close(fill broker.Fill, reason string) Trade {
	p := t.pos
	pnl := (fill.Price - p.Entry) * p.Qty
	t.equity += pnl
	if pnl < 0 {
		t.consecutiveLosses++
	} else {
		t.consecutiveLosses = 0
	}

	trade := Trade{
		Symbol:       p.Symbol,
		Side:         string(p.Side),
		Qty:          p.Qty,
		Entry:        p.Entry,
		Exit:         fill.Price,
		Stop:         p.Stop,
		Target:       p.Target,
		RiskAmount:   p.RiskAmount,
		OpenTime:     p.OpenTime,
		CloseTime:    fill.Time,
		PnL:          pnl,
		ExitReason:   reason,
		AIDecision:   p.AIDecision,
		AIConfidence: p.AIConfidence,
	}
	t.trades = append(t.trades, trade)
	t.pos = nil
	return trade
}

// Mark appends the bar's equity point: realized equity plus the open
// position's unrealized PnL at the bar close.
func (t *Tracker) Mark(at time.Time, close float64, regime indicators.Trend) {
	eq := t.equity
	if t.pos != nil {
		eq += (close - t.pos.Entry) * t.pos.Qty
	}
	t.curve = append(t.curve, EquityPoint{Time: at, Equity: eq, Regime: regime})
}
