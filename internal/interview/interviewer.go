package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/barathraj048/Ai-counsler/internal/metrics"
	"github.com/barathraj048/Ai-counsler/internal/oracle"
	"github.com/barathraj048/Ai-counsler/internal/schema"
	"github.com/barathraj048/Ai-counsler/internal/session"
)

// ErrInvalidAnswer is returned for a step without a question id.
var ErrInvalidAnswer = errors.New("answer must reference a question id")

// InitialQuestion is the fixed first question of every interview.
func InitialQuestion() schema.Question {
	return schema.Question{
		ID:   "education_level",
		Text: "Let's start with the basics. What is your current level of education?",
		Type: schema.QuestionSelect,
		Options: []string{
			"High School",
			"Undergraduate (Bachelor)",
			"Graduate (Master)",
			"Doctoral (PhD)",
		},
	}
}

// #region types

// Step is the outcome of one interview step.
type Step struct {
	SessionID      string           `json:"sessionId"`
	Status         session.Status   `json:"status"`
	NextQuestion   *schema.Question `json:"nextQuestion,omitempty"`
	StepCount      int              `json:"stepCount"`
	TotalQuestions int              `json:"totalQuestions"`
	Reason         Reason           `json:"reason,omitempty"`
}

// Interviewer drives sessions through the termination policy. Steps on the
// same session are serialized; steps on different sessions run in parallel.
type Interviewer struct {
	store  session.Store
	client *oracle.Client
	policy Policy
	locks  *session.Locker
	logger *zap.Logger
	now    func() time.Time
}

// #endregion types

// #region constructor

// New creates an interviewer. The policy must be valid.
func New(store session.Store, client *oracle.Client, policy Policy, logger *zap.Logger) (*Interviewer, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("interview policy: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Interviewer{
		store:  store,
		client: client,
		policy: policy,
		locks:  session.NewLocker(),
		logger: logger.Named("interview"),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Policy returns the active bounds.
func (iv *Interviewer) Policy() Policy { return iv.policy }

// #endregion constructor

// #region start

// Start opens (or resumes) a session and returns the question to show.
func (iv *Interviewer) Start(ctx context.Context, sessionID string) (Step, error) {
	unlock, err := iv.locks.Lock(ctx, sessionID)
	if err != nil {
		return Step{}, err
	}
	defer unlock()

	sess, err := iv.load(ctx, sessionID)
	if err != nil {
		return Step{}, err
	}
	if sess.Completed() || sess.Pending != nil {
		return iv.stepOf(sess, ""), nil
	}

	q := InitialQuestion()
	if sess.WasAsked(q.ID) {
		q = *fallbackQuestion(sess.StepCount(), sess.WasAsked)
	}
	staged := sess.Clone()
	staged.Ask(q, iv.now())
	if err := iv.store.Save(ctx, staged); err != nil {
		return Step{}, fmt.Errorf("save session %s: %w", sessionID, err)
	}
	return iv.stepOf(staged, ""), nil
}

// #endregion start

// #region advance

// Advance records answer for questionID and decides the next step. Nothing is
// committed if ctx ends before the decision is made.
func (iv *Interviewer) Advance(ctx context.Context, sessionID, questionID string, answer any) (Step, error) {
	questionID = strings.TrimSpace(questionID)
	if questionID == "" {
		return Step{}, ErrInvalidAnswer
	}

	unlock, err := iv.locks.Lock(ctx, sessionID)
	if err != nil {
		return Step{}, err
	}
	defer unlock()

	sess, err := iv.load(ctx, sessionID)
	if err != nil {
		return Step{}, err
	}
	if sess.Completed() {
		return iv.stepOf(sess, ""), fmt.Errorf("advance %s: %w", sessionID, session.ErrSessionCompleted)
	}

	staged := sess.Clone()
	if err := staged.Merge(questionID, answer, iv.now()); err != nil {
		return Step{}, err
	}
	step := staged.StepCount()

	var dec Decision
	if iv.policy.Ceiling(step) {
		dec = Decision{Complete: true, Reason: ReasonCeiling}
	} else {
		res := oracle.Invoke(ctx, iv.client, iv.request(staged), DecodeNextReply)
		dec = iv.policy.Resolve(step, res, staged.WasAsked)
	}

	if err := ctx.Err(); err != nil {
		iv.logger.Info("step abandoned", zap.String("session", sessionID), zap.Error(err))
		return Step{}, err
	}

	if dec.Complete {
		staged.Complete(iv.now())
	} else {
		staged.Ask(*dec.Next, iv.now())
	}
	if err := iv.store.Save(ctx, staged); err != nil {
		return Step{}, fmt.Errorf("save session %s: %w", sessionID, err)
	}

	metrics.InterviewStep(string(dec.Reason))
	iv.logger.Debug("step decided",
		zap.String("session", sessionID),
		zap.Int("step", step),
		zap.String("reason", string(dec.Reason)),
		zap.Bool("complete", dec.Complete))
	return iv.stepOf(staged, dec.Reason), nil
}

// #endregion advance

// #region helpers

func (iv *Interviewer) load(ctx context.Context, id string) (*session.Session, error) {
	sess, err := iv.store.Get(ctx, id)
	if errors.Is(err, session.ErrSessionNotFound) {
		sess, err = iv.store.Create(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	return sess, nil
}

func (iv *Interviewer) request(s *session.Session) oracle.Request {
	return oracle.Request{
		TaskKind: oracle.TaskNextQuestion,
		Context: map[string]any{
			"answers":       s.AnswerMap(),
			"answeredCount": s.StepCount(),
			"askedIds":      s.Asked,
		},
		Constraints: map[string]any{
			"minQuestions": iv.policy.MinQuestions,
			"maxQuestions": iv.policy.MaxQuestions,
			"stepCount":    s.StepCount(),
		},
	}
}

func (iv *Interviewer) stepOf(s *session.Session, reason Reason) Step {
	return Step{
		SessionID:      s.ID,
		Status:         s.Status,
		NextQuestion:   s.Pending,
		StepCount:      s.StepCount(),
		TotalQuestions: iv.policy.MaxQuestions,
		Reason:         reason,
	}
}

// #endregion helpers
