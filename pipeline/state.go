package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
)

// State is the persisted paper account between live cycles. It mirrors the
// tracker's internals exactly so a restarted process resumes where it left
// off, including mid-week drawdown accounting.
type State struct {
	Equity            float64   `json:"equity"`
	ConsecutiveLosses int       `json:"consecutive_losses"`
	WeekStartEquity   float64   `json:"week_start_equity"`
	WeekKey           int       `json:"week_key"`
	Position          *Position `json:"position,omitempty"`
}

// Snapshot exports the tracker state for persistence.
func (t *Tracker) Snapshot() State {
	return State{
		Equity:            t.equity,
		ConsecutiveLosses: t.consecutiveLosses,
		WeekStartEquity:   t.weekStartEquity,
		WeekKey:           t.weekKey,
		Position:          t.pos,
	}
}

// RestoreTracker rebuilds a tracker from persisted state.
func RestoreTracker(s State, maxHoldingDays int) *Tracker {
	return &Tracker{
		MaxHoldingDays:    maxHoldingDays,
		equity:            s.Equity,
		consecutiveLosses: s.ConsecutiveLosses,
		weekStartEquity:   s.WeekStartEquity,
		weekKey:           s.WeekKey,
		pos:               s.Position,
	}
}

// LoadState reads the state file. A missing file is not an error; found
// reports whether state existed.
func LoadState(path string) (s State, found bool, err error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("pipeline: read state: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, false, fmt.Errorf("pipeline: parse state: %w", err)
	}
	return s, true, nil
}

// SaveState writes the state file atomically via a temp-and-rename.
func SaveState(path string, s State) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("pipeline: marshal state: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("pipeline: write state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("pipeline: replace state: %w", err)
	}
	return nil
}
