package advisor

import (
	"context"

	"github.com/rustyeddy/swing/indicators"
	"github.com/rustyeddy/swing/strategy"
)

// Heuristic is a deterministic rule-based advisor. It makes offline backtests
// reproducible without a live oracle and doubles as a sane default when no
// remote endpoint is configured.
type Heuristic struct{}

// Evaluate approves everything the candidate generator produced but shrinks
// size in high-volatility regimes.
func (Heuristic) Evaluate(_ context.Context, _ *strategy.Candidate, snap indicators.Snapshot) (Verdict, error) {
	if snap.ATRLabel() == indicators.VolHigh {
		return Verdict{
			Approved:       true,
			Confidence:     0.5,
			SizeMultiplier: 0.5,
			Reason:         "atr_high",
			Flags:          []string{"VOLATILE"},
		}, nil
	}
	return Verdict{
		Approved:       true,
		Confidence:     0.85,
		SizeMultiplier: 0.85,
		Reason:         "regime_supportive",
	}, nil
}

// Scripted replays a fixed verdict sequence; once exhausted it repeats the
// last entry. Test double for pipeline and backtest tests.
type Scripted struct {
	Verdicts []Verdict
	next     int
}

func (s *Scripted) Evaluate(_ context.Context, _ *strategy.Candidate, _ indicators.Snapshot) (Verdict, error) {
	if len(s.Verdicts) == 0 {
		return Verdict{}, ErrUnavailable
	}
	v := s.Verdicts[s.next]
	if s.next < len(s.Verdicts)-1 {
		s.next++
	}
	return v, nil
}

// Unavailable always fails, for exercising the degradation path.
type Unavailable struct{}

func (Unavailable) Evaluate(context.Context, *strategy.Candidate, indicators.Snapshot) (Verdict, error) {
	return Verdict{}, ErrUnavailable
}
