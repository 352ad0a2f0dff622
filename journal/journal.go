// Package journal provides append-only persistence for pipeline decisions and
// fills. One record is written per decision — including no-op bars — and one
// per fill, so every run is auditable after the fact.
package journal

import "time"

// Record is one append-only journal entry. Payload must be JSON-marshalable.
type Record struct {
	ID      string
	Time    time.Time
	Event   string
	Payload any
}

// Known event types. Stores accept others; these are what the pipeline and
// the live cycle emit. Candidate, advisory, and risk detail rides inside the
// decision payload rather than as separate events.
const (
	EventCycleStart = "cycle_start"
	EventDecision   = "decision"
	EventFill       = "fill"
	EventCycleEnd   = "cycle_end"
	EventError      = "error"
)

// Journal is the append-only store contract.
type Journal interface {
	Append(Record) error
	Close() error
}

// Noop discards everything. Backtests use it when journaling is disabled.
type Noop struct{}

func (Noop) Append(Record) error { return nil }
func (Noop) Close() error        { return nil }
