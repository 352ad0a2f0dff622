package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/swing/advisor"
	"github.com/rustyeddy/swing/broker"
	"github.com/rustyeddy/swing/indicators"
	"github.com/rustyeddy/swing/journal"
	"github.com/rustyeddy/swing/market"
	"github.com/rustyeddy/swing/risk"
	"github.com/rustyeddy/swing/strategy"
)

// Per-bar decision statuses.
const (
	StatusIndicatorError    = "indicator_error"
	StatusPositionOpen      = "position_open"
	StatusNoSignal          = "no_signal"
	StatusAdvisoryRejected  = "advisory_rejected"
	StatusRiskRejected      = "risk_rejected"
	StatusExecutionRejected = "execution_rejected"
	StatusOpened            = "opened"
)

// Decision is the full audit record for one bar.
type Decision struct {
	Time      time.Time
	Status    string
	Snapshot  indicators.Snapshot
	Candidate *strategy.Candidate
	Verdict   *advisor.Verdict
	Risk      *risk.Decision
	Fill      *broker.Fill
	Trade     *Trade // set when the bar closed a position
	Err       error
}

// Pipeline wires one symbol's decision loop. All collaborators are injected;
// the pipeline itself holds no clock and no randomness, so replaying the same
// bars yields the same decisions.
type Pipeline struct {
	Symbol     string
	Variant    Variant
	Indicators indicators.Params
	Strategy   strategy.Params
	Policy     risk.Policy
	Advisor    advisor.Advisor
	Target     broker.Target
	Tracker    *Tracker
	Journal    journal.Journal
	Log        zerolog.Logger
}

// OnBar processes one closed fast bar with its aligned context history. The
// order is fixed: week rollover, exit check, indicator snapshot, candidate,
// advisory, risk gate, execution. A bar that exits a position never also
// opens one. Every bar journals one decision record, plus a fill record
// whenever an order filled.
func (pl *Pipeline) OnBar(ctx context.Context, fastBars, ctxBars []market.Bar) Decision {
	bar := fastBars[len(fastBars)-1]
	d := Decision{Time: bar.CloseTime}
	defer pl.record(&d)

	pl.Tracker.RollWeek(bar.CloseTime)

	// Exits come first so a stopped-out position is settled before any new
	// signal is considered.
	if reason, price, ok := pl.Tracker.CheckExit(bar); ok {
		d.Status = "exit_" + reason
		pos := pl.Tracker.Position()
		fill, err := pl.Target.Submit(ctx, broker.Order{
			Time:   bar.CloseTime,
			Symbol: pos.Symbol,
			Action: broker.ActionClose,
			Price:  price,
			Qty:    pos.Qty,
			Reason: reason,
		})
		if err != nil {
			d.Status = StatusExecutionRejected
			d.Err = err
			pl.Log.Error().Err(err).Str("reason", reason).Msg("close order rejected")
			pl.markAndSnapshot(&d, fastBars, ctxBars, bar)
			return d
		}
		trade := pl.Tracker.Close(fill, reason)
		d.Fill = &fill
		d.Trade = &trade
		pl.Log.Info().
			Str("reason", reason).
			Float64("pnl", trade.PnL).
			Float64("equity", pl.Tracker.Equity()).
			Msg("position closed")
		pl.markAndSnapshot(&d, fastBars, ctxBars, bar)
		return d
	}

	snap, err := indicators.Compute(pl.Indicators, fastBars, ctxBars)
	if err != nil {
		d.Status = StatusIndicatorError
		d.Err = err
		pl.Tracker.Mark(bar.CloseTime, bar.Close, indicators.TrendNeutral)
		return d
	}
	d.Snapshot = snap
	defer pl.Tracker.Mark(bar.CloseTime, bar.Close, snap.Trend)

	if pl.Tracker.Position() != nil {
		d.Status = StatusPositionOpen
		return d
	}

	cand := strategy.Generate(pl.Strategy, snap)
	if cand == nil {
		d.Status = StatusNoSignal
		return d
	}
	d.Candidate = cand

	verdict := pl.advise(ctx, cand, snap)
	d.Verdict = &verdict
	if !verdict.Approved {
		d.Status = StatusAdvisoryRejected
		pl.Log.Info().Str("reason", verdict.Reason).Msg("candidate vetoed")
		return d
	}

	multiplier := 1.0
	if pl.Variant.UseAdvisorySizing {
		multiplier = advisor.Clamp01(verdict.SizeMultiplier)
	}

	gate := risk.Evaluate(pl.Policy, risk.IntentFrom(cand), pl.Tracker.Account(), multiplier)
	d.Risk = &gate
	if !gate.Allowed {
		d.Status = StatusRiskRejected
		pl.Log.Info().Strs("violations", gate.Reasons()).Msg("candidate blocked by risk gate")
		return d
	}

	fill, err := pl.Target.Submit(ctx, broker.Order{
		Time:   bar.CloseTime,
		Symbol: gate.Order.Symbol,
		Action: broker.ActionOpen,
		Price:  gate.Order.Entry,
		Qty:    gate.Order.Qty,
		Stop:   gate.Order.Stop,
		Target: gate.Order.Target,
		Reason: "entry",
	})
	if err != nil {
		d.Status = StatusExecutionRejected
		d.Err = err
		pl.Log.Error().Err(err).Msg("entry order rejected")
		return d
	}

	// A fallback approval records as a plain allow: degraded variants must
	// replay bar-for-bar identical to baseline, so the degradation marker
	// lives only in the journaled verdict flags.
	pl.Tracker.Open(*gate.Order, fill, "allow", verdict.Confidence)
	d.Fill = &fill
	d.Status = StatusOpened
	pl.Log.Info().
		Float64("entry", fill.Price).
		Float64("qty", fill.Qty).
		Float64("stop", gate.Order.Stop).
		Float64("target", gate.Order.Target).
		Msg("position opened")
	return d
}

// advise obtains the advisory verdict for the active variant. The baseline
// never consults the advisor; unavailable advisors degrade to the documented
// approve-at-full-size fallback.
func (pl *Pipeline) advise(ctx context.Context, cand *strategy.Candidate, snap indicators.Snapshot) advisor.Verdict {
	if !pl.Variant.UseAdvisory {
		return advisor.Verdict{
			Approved:       true,
			Confidence:     1.0,
			SizeMultiplier: 1.0,
			Reason:         "baseline_no_ai",
		}
	}

	v, err := pl.Advisor.Evaluate(ctx, cand, snap)
	if err != nil {
		if !errors.Is(err, advisor.ErrUnavailable) {
			pl.Log.Warn().Err(err).Msg("advisor error treated as unavailable")
		}
		return advisor.Fallback("advisor_unavailable")
	}
	return v
}

// markAndSnapshot fills the decision snapshot and appends the equity point on
// exit paths, where the normal deferred Mark has not been armed yet.
func (pl *Pipeline) markAndSnapshot(d *Decision, fastBars, ctxBars []market.Bar, bar market.Bar) {
	regime := indicators.TrendNeutral
	if snap, err := indicators.Compute(pl.Indicators, fastBars, ctxBars); err == nil {
		d.Snapshot = snap
		regime = snap.Trend
	}
	pl.Tracker.Mark(bar.CloseTime, bar.Close, regime)
}

// record journals the bar's decision and, when an order filled, the fill.
// Journal failures are logged, never fatal: the decision already happened.
func (pl *Pipeline) record(d *Decision) {
	if pl.Journal == nil {
		return
	}

	payload := map[string]any{
		"symbol":  pl.Symbol,
		"variant": pl.Variant.Name,
		"status":  d.Status,
		"fields":  d.Snapshot.Fields(),
		"trend":   string(d.Snapshot.Trend),
	}
	if d.Candidate != nil {
		payload["candidate"] = map[string]any{
			"entry":   d.Candidate.Entry,
			"stop":    d.Candidate.Stop,
			"target":  d.Candidate.Target,
			"reasons": d.Candidate.Reasons,
		}
	}
	if d.Verdict != nil {
		payload["advisory"] = map[string]any{
			"approved":        d.Verdict.Approved,
			"confidence":      d.Verdict.Confidence,
			"size_multiplier": d.Verdict.SizeMultiplier,
			"reason":          d.Verdict.Reason,
			"flags":           d.Verdict.Flags,
		}
	}
	if d.Risk != nil {
		payload["risk"] = map[string]any{
			"allowed":    d.Risk.Allowed,
			"violations": d.Risk.Reasons(),
		}
	}
	if d.Fill != nil {
		payload["fill"] = map[string]any{
			"id":    d.Fill.ID,
			"price": d.Fill.Price,
			"qty":   d.Fill.Qty,
		}
	}
	if d.Err != nil {
		payload["error"] = d.Err.Error()
	}

	rec := journal.Record{Time: d.Time, Event: journal.EventDecision, Payload: payload}
	if err := pl.Journal.Append(rec); err != nil {
		pl.Log.Error().Err(err).Msg("journal append failed")
	}

	if d.Fill == nil {
		return
	}
	fillRec := journal.Record{Time: d.Fill.Time, Event: journal.EventFill, Payload: map[string]any{
		"id":      d.Fill.ID,
		"symbol":  d.Fill.Symbol,
		"variant": pl.Variant.Name,
		"action":  string(d.Fill.Action),
		"price":   d.Fill.Price,
		"qty":     d.Fill.Qty,
		"status":  d.Status,
	}}
	if err := pl.Journal.Append(fillRec); err != nil {
		pl.Log.Error().Err(err).Msg("journal append failed")
	}
}
