package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rustyeddy/swing/pkg/id"
)

// JSONL appends records to one file per UTC day under dir.
type JSONL struct {
	dir string
}

// NewJSONL ensures the journal directory exists.
func NewJSONL(dir string) (*JSONL, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("journal: create dir: %w", err)
	}
	return &JSONL{dir: dir}, nil
}

type jsonlLine struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	EventType string `json:"event_type"`
	Payload   any    `json:"payload"`
}

func (j *JSONL) Append(r Record) error {
	if r.ID == "" {
		r.ID = id.New()
	}
	if r.Time.IsZero() {
		r.Time = time.Now().UTC()
	}

	line, err := json.Marshal(jsonlLine{
		ID:        r.ID,
		Timestamp: r.Time.UTC().Format(time.RFC3339Nano),
		EventType: r.Event,
		Payload:   r.Payload,
	})
	if err != nil {
		return fmt.Errorf("journal: marshal record: %w", err)
	}

	path := filepath.Join(j.dir, r.Time.UTC().Format("2006-01-02")+".jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("journal: open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("journal: append: %w", err)
	}
	return nil
}

func (j *JSONL) Close() error { return nil }
