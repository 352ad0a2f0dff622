// Package advisor defines the advisory oracle contract: an optional,
// pluggable gate that can restrict a trade candidate but never fabricate one.
// Every failure mode resolves to ErrUnavailable at the package boundary; the
// pipeline maps unavailable to the documented approve-with-full-size
// fallback so indicators alone keep producing trades.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/swing/indicators"
	"github.com/rustyeddy/swing/strategy"
)

// ErrUnavailable signals that no verdict could be obtained (disabled, timed
// out, transport failure, panic). It is an expected, non-fatal condition.
var ErrUnavailable = errors.New("advisor: unavailable")

// Verdict is the oracle's answer for one candidate.
type Verdict struct {
	Approved       bool
	Confidence     float64 // [0,1]
	SizeMultiplier float64 // [0,1]; applied only by sizing variants
	Reason         string
	Flags          []string
}

// Advisor evaluates one candidate against the current feature snapshot. Any
// concrete oracle (heuristic rules, remote model, canned test double) is an
// implementation of this one capability.
type Advisor interface {
	Evaluate(ctx context.Context, cand *strategy.Candidate, snap indicators.Snapshot) (Verdict, error)
}

// Fallback is the degraded-mode verdict used when the advisor is unavailable:
// approved at full size, flagged so the degradation stays auditable.
func Fallback(reason string) Verdict {
	return Verdict{
		Approved:       true,
		Confidence:     1.0,
		SizeMultiplier: 1.0,
		Reason:         reason,
		Flags:          []string{"AI_UNAVAILABLE"},
	}
}

// Reject builds a conservative rejection verdict.
func Reject(reason string, flags ...string) Verdict {
	return Verdict{
		Approved:       false,
		Confidence:     0,
		SizeMultiplier: 0,
		Reason:         reason,
		Flags:          flags,
	}
}

// Bounded wraps an advisor with a hard timeout and a panic guard so a
// misbehaving oracle can neither stall the bar loop nor crash it.
type Bounded struct {
	Inner   Advisor
	Timeout time.Duration
}

type evalResult struct {
	verdict Verdict
	err     error
}

// Evaluate runs the inner advisor with the configured deadline. Timeouts,
// errors, and panics all surface as ErrUnavailable.
func (b Bounded) Evaluate(ctx context.Context, cand *strategy.Candidate, snap indicators.Snapshot) (Verdict, error) {
	if b.Inner == nil {
		return Verdict{}, fmt.Errorf("%w: no advisor configured", ErrUnavailable)
	}

	timeout := b.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := make(chan evalResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("%w: advisor panic: %v", ErrUnavailable, r)}
			}
		}()
		v, err := b.Inner.Evaluate(ctx, cand, snap)
		ch <- evalResult{verdict: v, err: err}
	}()

	select {
	case <-ctx.Done():
		return Verdict{}, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	case r := <-ch:
		if r.err != nil {
			if errors.Is(r.err, ErrUnavailable) {
				return Verdict{}, r.err
			}
			return Verdict{}, fmt.Errorf("%w: %v", ErrUnavailable, r.err)
		}
		return r.verdict, nil
	}
}

// Clamp01 bounds a confidence or multiplier into [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
