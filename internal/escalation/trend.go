package escalation

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/barathraj048/Ai-counsler/internal/oracle"
	"github.com/barathraj048/Ai-counsler/internal/schema"
)

const (
	DefaultWindow = 6

	// minTrendTurns is the conversation length below which the oracle trend
	// review is skipped.
	minTrendTurns = 4
	// maxMessages caps the per-session conversation kept for trend review.
	maxMessages = 20
)

// #region types

// TrendState is the escalation verdict for a session.
type TrendState struct {
	Escalating                 bool         `json:"isEscalating"`
	RecommendHumanIntervention bool         `json:"recommendHumanIntervention"`
	Window                     []Assessment `json:"window"`
	RaisedByOracle             bool         `json:"raisedByOracle,omitempty"`
}

type trail struct {
	assessments []Assessment
	messages    []Message
}

// Tracker keeps a sliding window of assessments per session. Sessions never
// see each other's window.
type Tracker struct {
	mu       sync.Mutex
	window   int
	sessions map[string]*trail
	client   *oracle.Client
	logger   *zap.Logger
}

// #endregion types

// #region constructor

// NewTracker creates a tracker keeping the last window assessments per
// session. A nil client disables the oracle trend review.
func NewTracker(window int, client *oracle.Client, logger *zap.Logger) *Tracker {
	if window < 3 {
		window = DefaultWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		window:   window,
		sessions: make(map[string]*trail),
		client:   client,
		logger:   logger.Named("trend"),
	}
}

// #endregion constructor

// #region record

// Record appends a user message and its assessment to the session window.
func (t *Tracker) Record(sessionID, text string, a Assessment) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tr, ok := t.sessions[sessionID]
	if !ok {
		tr = &trail{}
		t.sessions[sessionID] = tr
	}
	tr.assessments = append(tr.assessments, a)
	if len(tr.assessments) > t.window {
		tr.assessments = tr.assessments[len(tr.assessments)-t.window:]
	}
	tr.messages = append(tr.messages, Message{Role: "user", Content: text})
	if len(tr.messages) > maxMessages {
		tr.messages = tr.messages[len(tr.messages)-maxMessages:]
	}
}

// Messages returns a copy of the recorded conversation for sessionID.
func (t *Tracker) Messages(sessionID string) []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	tr, ok := t.sessions[sessionID]
	if !ok {
		return nil
	}
	return append([]Message(nil), tr.messages...)
}

// Forget drops everything recorded for sessionID.
func (t *Tracker) Forget(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, sessionID)
}

// #endregion record

// #region evaluate

// Evaluate is the deterministic trend verdict. Human intervention is
// recommended once 2 of the last 3 turns were flagged or any turn in the
// window reached high. Escalating means the last two turns were flagged with
// non-decreasing level, or intervention is recommended.
func (t *Tracker) Evaluate(sessionID string) TrendState {
	t.mu.Lock()
	var window []Assessment
	if tr, ok := t.sessions[sessionID]; ok {
		window = append([]Assessment(nil), tr.assessments...)
	}
	t.mu.Unlock()
	return evaluateWindow(window)
}

func evaluateWindow(window []Assessment) TrendState {
	st := TrendState{Window: window}
	if st.Window == nil {
		st.Window = []Assessment{}
	}

	tail := window
	if len(tail) > 3 {
		tail = tail[len(tail)-3:]
	}
	flagged := 0
	for _, a := range tail {
		if a.IsDistressed {
			flagged++
		}
	}
	high := false
	for _, a := range window {
		if a.Level == LevelHigh {
			high = true
			break
		}
	}
	st.RecommendHumanIntervention = flagged >= 2 || high

	if n := len(window); n >= 2 {
		prev, last := window[n-2], window[n-1]
		if prev.IsDistressed && last.IsDistressed && last.Level.rank() >= prev.Level.rank() {
			st.Escalating = true
		}
	}
	if st.RecommendHumanIntervention {
		st.Escalating = true
	}
	return st
}

// #endregion evaluate

// #region review

type trendReply struct {
	IsEscalating               *bool `json:"isEscalating" validate:"required"`
	RecommendHumanIntervention *bool `json:"recommendHumanIntervention" validate:"required"`
}

func decodeTrend(raw string) (trendReply, error) {
	var r trendReply
	err := schema.Decode(raw, &r)
	return r, err
}

// Review evaluates the window and, for conversations long enough, asks the
// oracle for a second opinion. The oracle can only raise the verdict.
func (t *Tracker) Review(ctx context.Context, sessionID string) TrendState {
	st := t.Evaluate(sessionID)
	msgs := t.Messages(sessionID)
	if len(msgs) < minTrendTurns || !t.client.Available() {
		return st
	}
	if st.Escalating && st.RecommendHumanIntervention {
		return st
	}

	res := oracle.Invoke(ctx, t.client, oracle.Request{
		TaskKind: oracle.TaskTrendCheck,
		Context:  map[string]any{"conversation": msgs},
	}, decodeTrend)
	r, ok := res.Value()
	if !ok {
		return st
	}
	if *r.IsEscalating && !st.Escalating {
		st.Escalating = true
		st.RaisedByOracle = true
	}
	if *r.RecommendHumanIntervention && !st.RecommendHumanIntervention {
		st.RecommendHumanIntervention = true
		st.Escalating = true
		st.RaisedByOracle = true
	}
	if st.RaisedByOracle {
		t.logger.Info("trend raised by oracle",
			zap.String("session", sessionID),
			zap.Bool("escalating", st.Escalating),
			zap.Bool("recommend_human", st.RecommendHumanIntervention))
	}
	return st
}

// #endregion review
