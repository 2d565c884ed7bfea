package session

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/barathraj048/Ai-counsler/internal/schema"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// #region helpers

func tempSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": tempSQLite(t),
	}
}

// #endregion helpers

// #region session-tests

func TestMergeOverwritesSameQuestion(t *testing.T) {
	now := time.Now()
	s := New("s1", now)
	require.NoError(t, s.Merge("gpa", "3.1", now))
	require.NoError(t, s.Merge("major", "Physics", now))
	require.NoError(t, s.Merge("gpa", "3.4", now))

	assert.Equal(t, 2, s.StepCount())
	assert.Equal(t, "3.4", s.AnswerMap()["gpa"])
	assert.Equal(t, "gpa", s.Answers[0].QuestionID)
}

func TestMergeAfterCompletion(t *testing.T) {
	s := New("s1", time.Now())
	s.Complete(time.Now())
	assert.ErrorIs(t, s.Merge("gpa", "3.0", time.Now()), ErrSessionCompleted)
	assert.Equal(t, 0, s.StepCount())
}

func TestCloneIsIndependent(t *testing.T) {
	s := New("s1", time.Now())
	require.NoError(t, s.Merge("gpa", "3.0", time.Now()))
	s.Ask(schema.Question{ID: "major", Text: "Major?", Type: schema.QuestionSelect, Options: []string{"CS"}}, time.Now())

	c := s.Clone()
	require.NoError(t, c.Merge("major", "CS", time.Now()))
	c.Pending.Options[0] = "EE"
	c.Asked[0] = "changed"

	assert.Equal(t, 1, s.StepCount())
	assert.Equal(t, "CS", s.Pending.Options[0])
	assert.Equal(t, "major", s.Asked[0])
}

func TestWasAsked(t *testing.T) {
	s := New("s1", time.Now())
	s.Ask(schema.Question{ID: "budget", Text: "Budget?"}, time.Now())
	require.NoError(t, s.Merge("gpa", "3.0", time.Now()))
	assert.True(t, s.WasAsked("budget"))
	assert.True(t, s.WasAsked("gpa"))
	assert.False(t, s.Has("budget"))
	assert.False(t, s.WasAsked("major"))
}

// #endregion session-tests

// #region store-tests

func TestStore_CreateGetSave(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := st.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrSessionNotFound)

			s, err := st.Create(ctx, "abc")
			require.NoError(t, err)
			assert.Equal(t, StatusActive, s.Status)
			assert.Equal(t, int64(0), s.Version)

			now := time.Now().UTC()
			require.NoError(t, s.Merge("education_level", "Graduate (Master)", now))
			require.NoError(t, s.Merge("gpa", 3.6, now))
			s.Ask(schema.Question{ID: "budget", Text: "Budget?", Type: schema.QuestionNumber}, now)
			require.NoError(t, st.Save(ctx, s))
			assert.Equal(t, int64(1), s.Version)

			got, err := st.Get(ctx, "abc")
			require.NoError(t, err)
			want := map[string]any{"education_level": "Graduate (Master)", "gpa": 3.6}
			if diff := cmp.Diff(want, got.AnswerMap()); diff != "" {
				t.Fatalf("answers mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, []string{"education_level", "gpa"}, []string{got.Answers[0].QuestionID, got.Answers[1].QuestionID})
			require.NotNil(t, got.Pending)
			assert.Equal(t, "budget", got.Pending.ID)
			assert.Equal(t, []string{"budget"}, got.Asked)
			assert.Equal(t, int64(1), got.Version)

			again, err := st.Create(ctx, "abc")
			require.NoError(t, err)
			assert.Equal(t, 2, again.StepCount())
		})
	}
}

func TestStore_Conflict(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := st.Create(ctx, "c1")
			require.NoError(t, err)

			a, err := st.Get(ctx, "c1")
			require.NoError(t, err)
			b, err := st.Get(ctx, "c1")
			require.NoError(t, err)

			require.NoError(t, a.Merge("gpa", "3.0", time.Now()))
			require.NoError(t, st.Save(ctx, a))

			require.NoError(t, b.Merge("major", "Law", time.Now()))
			assert.ErrorIs(t, st.Save(ctx, b), ErrConflict)

			got, err := st.Get(ctx, "c1")
			require.NoError(t, err)
			assert.True(t, got.Has("gpa"))
			assert.False(t, got.Has("major"))

			assert.ErrorIs(t, st.Save(ctx, New("ghost", time.Now())), ErrSessionNotFound)
		})
	}
}

func TestStore_CompletedPersists(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s, err := st.Create(ctx, "done")
			require.NoError(t, err)
			s.Ask(schema.Question{ID: "x", Text: "X?"}, time.Now())
			s.Complete(time.Now())
			require.NoError(t, st.Save(ctx, s))

			got, err := st.Get(ctx, "done")
			require.NoError(t, err)
			assert.True(t, got.Completed())
			assert.Nil(t, got.Pending)
		})
	}
}

func TestSQLiteStore_List(t *testing.T) {
	st := tempSQLite(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		_, err := st.Create(ctx, id)
		require.NoError(t, err)
	}
	all, err := st.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

// #endregion store-tests

// #region locker-tests

func TestLocker_SerializesSameKey(t *testing.T) {
	l := NewLocker()
	var active, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "s1")
			if err != nil {
				t.Error(err)
				return
			}
			n := atomic.AddInt32(&active, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), peak)
	assert.Equal(t, 0, l.Held())
}

func TestLocker_IndependentKeys(t *testing.T) {
	l := NewLocker()
	unlockA, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := l.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()
	unlockB()
}

func TestLocker_ContextCancelled(t *testing.T) {
	l := NewLocker()
	unlock, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	assert.Equal(t, 0, l.Held())
}

// #endregion locker-tests
