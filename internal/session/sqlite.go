package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/barathraj048/Ai-counsler/internal/schema"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region schema
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS interview_sessions (
	id            TEXT PRIMARY KEY,
	status        TEXT NOT NULL,
	asked_json    TEXT NOT NULL,
	pending_json  TEXT,
	version       INTEGER NOT NULL,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS interview_answers (
	session_id    TEXT NOT NULL,
	position      INTEGER NOT NULL,
	question_id   TEXT NOT NULL,
	value_json    TEXT NOT NULL,
	answered_at   TEXT NOT NULL,
	PRIMARY KEY (session_id, question_id),
	FOREIGN KEY (session_id) REFERENCES interview_sessions(id)
);
`

// #endregion schema

// #region store-struct

// SQLiteStore persists sessions in SQLite. Every Save is one transaction.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// #endregion store-struct

// #region constructor

// NewSQLiteStore opens a SQLite database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	return NewSQLiteStoreFromDB(db)
}

// NewSQLiteStoreFromDB migrates and wraps an already-open database.
func NewSQLiteStoreFromDB(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("migrate sessions: %w", err)
	}
	return &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. provenance).
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region get

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Session, error) {
	var (
		sess                   Session
		status, askedJSON      string
		pendingJSON            sql.NullString
		createdStr, updatedStr string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, status, asked_json, pending_json, version, created_at, updated_at
		 FROM interview_sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &status, &askedJSON, &pendingJSON, &sess.Version, &createdStr, &updatedStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s: %w", id, ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}

	sess.Status = Status(status)
	if err := json.Unmarshal([]byte(askedJSON), &sess.Asked); err != nil {
		return nil, fmt.Errorf("unmarshal asked: %w", err)
	}
	if pendingJSON.Valid {
		var q schema.Question
		if err := json.Unmarshal([]byte(pendingJSON.String), &q); err != nil {
			return nil, fmt.Errorf("unmarshal pending: %w", err)
		}
		sess.Pending = &q
	}
	sess.CreatedAt, _ = time.Parse(timeLayout, createdStr)
	sess.UpdatedAt, _ = time.Parse(timeLayout, updatedStr)

	answers, err := s.answers(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.Answers = answers
	return &sess, nil
}

func (s *SQLiteStore) answers(ctx context.Context, id string) ([]Answer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT question_id, value_json, answered_at FROM interview_answers
		 WHERE session_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}
	defer rows.Close()

	var out []Answer
	for rows.Next() {
		var a Answer
		var valueJSON, answeredStr string
		if err := rows.Scan(&a.QuestionID, &valueJSON, &answeredStr); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		if err := json.Unmarshal([]byte(valueJSON), &a.Value); err != nil {
			return nil, fmt.Errorf("unmarshal answer %s: %w", a.QuestionID, err)
		}
		a.AnsweredAt, _ = time.Parse(timeLayout, answeredStr)
		out = append(out, a)
	}
	return out, rows.Err()
}

// #endregion get

// #region create

// Create inserts an empty session, or returns the existing one for id.
func (s *SQLiteStore) Create(ctx context.Context, id string) (*Session, error) {
	sess := New(id, s.now())
	ts := sess.CreatedAt.Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO interview_sessions (id, status, asked_json, pending_json, version, created_at, updated_at)
		 VALUES (?, ?, '[]', NULL, 0, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		id, string(StatusActive), ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return s.Get(ctx, id)
}

// #endregion create

// #region save

func (s *SQLiteStore) Save(ctx context.Context, sess *Session) error {
	askedJSON, err := json.Marshal(nonNil(sess.Asked))
	if err != nil {
		return fmt.Errorf("marshal asked: %w", err)
	}
	var pending any
	if sess.Pending != nil {
		b, err := json.Marshal(sess.Pending)
		if err != nil {
			return fmt.Errorf("marshal pending: %w", err)
		}
		pending = string(b)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE interview_sessions
		 SET status = ?, asked_json = ?, pending_json = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		string(sess.Status), string(askedJSON), pending, sess.UpdatedAt.Format(timeLayout),
		sess.ID, sess.Version,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM interview_sessions WHERE id = ?`, sess.ID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check session: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("save %s: %w", sess.ID, ErrSessionNotFound)
		}
		return fmt.Errorf("save %s at version %d: %w", sess.ID, sess.Version, ErrConflict)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM interview_answers WHERE session_id = ?`, sess.ID); err != nil {
		return fmt.Errorf("clear answers: %w", err)
	}
	for i, a := range sess.Answers {
		valueJSON, err := json.Marshal(a.Value)
		if err != nil {
			return fmt.Errorf("marshal answer %s: %w", a.QuestionID, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO interview_answers (session_id, position, question_id, value_json, answered_at)
			 VALUES (?, ?, ?, ?, ?)`,
			sess.ID, i, a.QuestionID, string(valueJSON), a.AnsweredAt.Format(timeLayout),
		)
		if err != nil {
			return fmt.Errorf("insert answer %s: %w", a.QuestionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	sess.Version++
	return nil
}

// #endregion save

// #region list

// List returns all sessions ordered by creation time.
func (s *SQLiteStore) List(ctx context.Context) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM interview_sessions ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	out := make([]*Session, 0, len(ids))
	for _, id := range ids {
		sess, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, nil
}

// #endregion list

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
