package provenance

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// #region helpers
func setupLog(t *testing.T) *Log {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "provenance.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	l, err := New(db)
	if err != nil {
		t.Fatalf("new log: %v", err)
	}
	return l
}

// #endregion helpers

// #region record-tests
func TestRecord_Success(t *testing.T) {
	l := setupLog(t)
	ctx := context.Background()

	e, err := l.Record(ctx, Entry{
		SessionID:   "s1",
		Kind:        "interview",
		Decision:    "ask",
		Reason:      "oracle_next",
		PayloadJSON: `{"stepCount":3}`,
		CreatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.ID == "" {
		t.Error("expected generated id")
	}

	got, err := l.List(ctx, "s1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
	if got[0] != e {
		t.Errorf("round trip mismatch: got %+v want %+v", got[0], e)
	}
}

func TestRecord_ZeroCreatedAt(t *testing.T) {
	l := setupLog(t)

	before := time.Now().UTC()
	e, err := l.Record(context.Background(), Entry{Kind: "trend", Decision: "steady"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.CreatedAt.Before(before) {
		t.Errorf("expected created_at to be filled, got %v", e.CreatedAt)
	}
}

func TestRecord_MissingKind(t *testing.T) {
	l := setupLog(t)
	if _, err := l.Record(context.Background(), Entry{Decision: "ask"}); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete for missing kind, got %v", err)
	}
	if _, err := l.Record(context.Background(), Entry{Kind: "interview"}); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete for missing decision, got %v", err)
	}
}

func TestRecord_NullableColumns(t *testing.T) {
	l := setupLog(t)
	ctx := context.Background()
	if _, err := l.Record(ctx, Entry{Kind: "shortlist", Decision: "ranked"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var nulls int
	if err := l.db.QueryRow(`SELECT COUNT(*) FROM decision_log WHERE session_id IS NULL AND reason IS NULL AND payload_json IS NULL`).Scan(&nulls); err != nil {
		t.Fatalf("query: %v", err)
	}
	if nulls != 1 {
		t.Errorf("expected empty fields stored as NULL, got %d rows", nulls)
	}
}

// #endregion record-tests

// #region list-tests
func TestList_FilterAndLimit(t *testing.T) {
	l := setupLog(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, sid := range []string{"a", "b", "a", "a"} {
		_, err := l.Record(ctx, Entry{SessionID: sid, Kind: "interview", Decision: "ask", CreatedAt: base.Add(time.Duration(i) * time.Minute)})
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	all, err := l.List(ctx, "", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("expected 4 rows, got %d", len(all))
	}

	a, err := l.List(ctx, "a", 2)
	if err != nil {
		t.Fatalf("list a: %v", err)
	}
	if len(a) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(a))
	}
	if !a[0].CreatedAt.Before(a[1].CreatedAt) {
		t.Errorf("expected oldest first, got %v then %v", a[0].CreatedAt, a[1].CreatedAt)
	}
}

// #endregion list-tests
