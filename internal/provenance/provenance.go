// Package provenance records one row per decision taken by the core so a
// session's interview, ranking and escalation history can be audited later.
package provenance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrIncomplete is returned by Record when an entry has no kind or decision.
var ErrIncomplete = errors.New("record decision: kind and decision are required")

// #region schema
const schemaSQL = `
CREATE TABLE IF NOT EXISTS decision_log (
	id            TEXT PRIMARY KEY,
	session_id    TEXT,
	kind          TEXT NOT NULL,
	decision      TEXT NOT NULL,
	reason        TEXT,
	payload_json  TEXT,
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decision_log_session ON decision_log(session_id, created_at);
`

// #endregion schema

// #region entry

// Entry is a single row in decision_log.
type Entry struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"sessionId,omitempty"`
	Kind        string    `json:"kind"`     // "interview" | "shortlist" | "distress" | "trend" | "advisor"
	Decision    string    `json:"decision"` // e.g. "ask", "complete", "ranked", "insufficient-matches"
	Reason      string    `json:"reason,omitempty"`
	PayloadJSON string    `json:"payload,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// #endregion entry

// #region log

// Log writes and reads decision_log rows.
type Log struct {
	db *sql.DB
}

// New migrates decision_log on db and returns a Log over it.
func New(db *sql.DB) (*Log, error) {
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("migrate decision_log: %w", err)
	}
	return &Log{db: db}, nil
}

// Record inserts entry, filling a missing ID and timestamp.
func (l *Log) Record(ctx context.Context, entry Entry) (Entry, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.Kind == "" || entry.Decision == "" {
		return entry, ErrIncomplete
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO decision_log (id, session_id, kind, decision, reason, payload_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		nullIfEmpty(entry.SessionID),
		entry.Kind,
		entry.Decision,
		nullIfEmpty(entry.Reason),
		nullIfEmpty(entry.PayloadJSON),
		entry.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return entry, fmt.Errorf("record decision: %w", err)
	}
	return entry, nil
}

// List returns entries oldest first. An empty sessionID lists every session;
// limit <= 0 means no limit.
func (l *Log) List(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	query := `SELECT id, session_id, kind, decision, reason, payload_json, created_at FROM decision_log`
	var args []any
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY created_at, rowid`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                        Entry
			session, reason, payload sql.NullString
			created                  string
		)
		if err := rows.Scan(&e.ID, &session, &e.Kind, &e.Decision, &reason, &payload, &created); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		e.SessionID = session.String
		e.Reason = reason.String
		e.PayloadJSON = payload.String
		if e.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion log

// #region helpers
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
