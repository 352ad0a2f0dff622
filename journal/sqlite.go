package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/swing/pkg/id"
)

// SQLite stores decisions and fills in two indexed tables keyed by ULID, so
// rows sort by creation time.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the journal database.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (j *SQLite) Append(r Record) error {
	if r.ID == "" {
		r.ID = id.New()
	}
	if r.Time.IsZero() {
		r.Time = time.Now().UTC()
	}

	payload, err := json.Marshal(r.Payload)
	if err != nil {
		return fmt.Errorf("journal: marshal payload: %w", err)
	}

	if r.Event == EventFill {
		_, err = j.db.Exec(
			`INSERT INTO fills (id, time, payload) VALUES (?, ?, ?)`,
			r.ID, r.Time.UTC(), string(payload),
		)
		return err
	}

	_, err = j.db.Exec(
		`INSERT INTO decisions (id, time, event_type, payload) VALUES (?, ?, ?, ?)`,
		r.ID, r.Time.UTC(), r.Event, string(payload),
	)
	return err
}

// ListRecent returns up to limit of the newest decision records.
func (j *SQLite) ListRecent(limit int) ([]Record, error) {
	rows, err := j.db.Query(
		`SELECT id, time, event_type, payload FROM decisions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var payload string
		if err := rows.Scan(&r.ID, &r.Time, &r.Event, &payload); err != nil {
			return nil, err
		}
		var decoded any
		if err := json.Unmarshal([]byte(payload), &decoded); err == nil {
			r.Payload = decoded
		} else {
			r.Payload = payload
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (j *SQLite) Close() error { return j.db.Close() }
