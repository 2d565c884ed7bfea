package session

import (
	"context"
	"errors"
	"time"

	"github.com/barathraj048/Ai-counsler/internal/schema"
)

// #region errors

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionCompleted = errors.New("session already completed")
	ErrConflict         = errors.New("session modified concurrently")
)

// #endregion errors

// #region types

// Status is the interview lifecycle state. Completed is terminal.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Answer is one recorded answer, keyed by the question it answers.
type Answer struct {
	QuestionID string    `json:"questionId"`
	Value      any       `json:"value"`
	AnsweredAt time.Time `json:"answeredAt"`
}

// Session is the interview state of one student. Answers keep insertion
// order; re-answering a question overwrites its value in place.
type Session struct {
	ID        string           `json:"id"`
	Answers   []Answer         `json:"answers"`
	Status    Status           `json:"status"`
	Asked     []string         `json:"asked"`
	Pending   *schema.Question `json:"pending,omitempty"`
	Version   int64            `json:"version"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// #endregion types

// #region store-interface

// Store persists sessions. Save is an optimistic write: it fails with
// ErrConflict when the stored version differs from the one s was loaded at,
// and bumps s.Version on success.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Create(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
}

// #endregion store-interface

// #region methods

// New returns an empty active session.
func New(id string, now time.Time) *Session {
	return &Session{ID: id, Status: StatusActive, CreatedAt: now, UpdatedAt: now}
}

// StepCount is the number of distinct questions answered.
func (s *Session) StepCount() int { return len(s.Answers) }

// Completed reports whether the interview has finished.
func (s *Session) Completed() bool { return s.Status == StatusCompleted }

// Has reports whether questionID has been answered.
func (s *Session) Has(questionID string) bool {
	for _, a := range s.Answers {
		if a.QuestionID == questionID {
			return true
		}
	}
	return false
}

// WasAsked reports whether questionID was ever posed or answered.
func (s *Session) WasAsked(questionID string) bool {
	for _, id := range s.Asked {
		if id == questionID {
			return true
		}
	}
	return s.Has(questionID)
}

// AnswerMap returns the answers keyed by question id.
func (s *Session) AnswerMap() map[string]any {
	m := make(map[string]any, len(s.Answers))
	for _, a := range s.Answers {
		m[a.QuestionID] = a.Value
	}
	return m
}

// Merge records value for questionID. The same id overwrites the previous
// value without changing the step count.
func (s *Session) Merge(questionID string, value any, now time.Time) error {
	if s.Completed() {
		return ErrSessionCompleted
	}
	for i := range s.Answers {
		if s.Answers[i].QuestionID == questionID {
			s.Answers[i].Value = value
			s.Answers[i].AnsweredAt = now
			s.UpdatedAt = now
			return nil
		}
	}
	s.Answers = append(s.Answers, Answer{QuestionID: questionID, Value: value, AnsweredAt: now})
	s.UpdatedAt = now
	return nil
}

// Ask records q as the pending question.
func (s *Session) Ask(q schema.Question, now time.Time) {
	if !s.WasAsked(q.ID) {
		s.Asked = append(s.Asked, q.ID)
	}
	s.Pending = &q
	s.UpdatedAt = now
}

// Complete moves the session to its terminal state.
func (s *Session) Complete(now time.Time) {
	s.Status = StatusCompleted
	s.Pending = nil
	s.UpdatedAt = now
}

// Clone returns a deep copy suitable for staging a step.
func (s *Session) Clone() *Session {
	c := *s
	c.Answers = append([]Answer(nil), s.Answers...)
	c.Asked = append([]string(nil), s.Asked...)
	if s.Pending != nil {
		p := *s.Pending
		p.Options = append([]string(nil), s.Pending.Options...)
		c.Pending = &p
	}
	return &c
}

// #endregion methods
