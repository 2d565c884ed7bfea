// Package core is the decision core façade: it wires the interviewer, the
// shortlist ranker, the escalation classifier and the advisor behind one
// entry point and fires post-step hooks after each decision.
package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/barathraj048/Ai-counsler/internal/advisor"
	"github.com/barathraj048/Ai-counsler/internal/escalation"
	"github.com/barathraj048/Ai-counsler/internal/interview"
	"github.com/barathraj048/Ai-counsler/internal/oracle"
	"github.com/barathraj048/Ai-counsler/internal/session"
	"github.com/barathraj048/Ai-counsler/internal/shortlist"
)

const defaultHookTimeout = 5 * time.Second

// #region options

// Options configures a Core. Zero values take the product defaults.
type Options struct {
	Policy      interview.Policy
	Rank        shortlist.RankConfig
	Keywords    *escalation.KeywordSet
	TrendWindow int
	HookTimeout time.Duration
	Hooks       []Hook
	Logger      *zap.Logger
}

// #endregion options

// #region core-struct

// Core is the top-level coordinator. It is safe for concurrent use.
type Core struct {
	interviewer *interview.Interviewer
	shortlist   *shortlist.Service
	classifier  *escalation.Classifier
	tracker     *escalation.Tracker
	advisor     *advisor.Advisor

	hooks       []Hook
	hookTimeout time.Duration
	hookMu      sync.Mutex // guards closed and inflight.Add
	closed      bool
	inflight    sync.WaitGroup
	logger      *zap.Logger
}

// #endregion core-struct

// #region constructor

// New creates a fully wired core. A nil client runs every decision on its
// deterministic path.
func New(store session.Store, client *oracle.Client, opts Options) (*Core, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	policy := opts.Policy
	if policy == (interview.Policy{}) {
		policy = interview.DefaultPolicy()
	}
	rank := opts.Rank
	if rank == (shortlist.RankConfig{}) {
		rank = shortlist.DefaultRankConfig()
	}
	keywords := escalation.DefaultKeywords()
	if opts.Keywords != nil {
		keywords = *opts.Keywords
	}
	hookTimeout := opts.HookTimeout
	if hookTimeout <= 0 {
		hookTimeout = defaultHookTimeout
	}

	iv, err := interview.New(store, client, policy, logger)
	if err != nil {
		return nil, err
	}

	return &Core{
		interviewer: iv,
		shortlist:   shortlist.NewService(client, shortlist.NewRanker(rank), logger),
		classifier:  escalation.NewClassifier(keywords, client, logger),
		tracker:     escalation.NewTracker(opts.TrendWindow, client, logger),
		advisor:     advisor.New(client, logger),
		hooks:       opts.Hooks,
		hookTimeout: hookTimeout,
		logger:      logger.Named("core"),
	}, nil
}

// Close stops firing hooks for new decisions and waits for in-flight ones,
// or for ctx to end. Decisions taken after Close still work.
func (c *Core) Close(ctx context.Context) error {
	c.hookMu.Lock()
	c.closed = true
	c.hookMu.Unlock()

	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// #endregion constructor

// #region interview

// StartInterview opens or resumes a session.
func (c *Core) StartInterview(ctx context.Context, sessionID string) (interview.Step, *HookRun, error) {
	step, err := c.interviewer.Start(ctx, sessionID)
	if err != nil {
		return step, nil, err
	}
	return step, c.fire(ctx, interviewEvent(step)), nil
}

// AdvanceInterview records one answer and returns the next step.
func (c *Core) AdvanceInterview(ctx context.Context, sessionID, questionID string, answer any) (interview.Step, *HookRun, error) {
	step, err := c.interviewer.Advance(ctx, sessionID, questionID, answer)
	if err != nil {
		return step, nil, err
	}
	return step, c.fire(ctx, interviewEvent(step)), nil
}

func interviewEvent(step interview.Step) Event {
	decision := "ask"
	if step.Status == session.StatusCompleted {
		decision = "complete"
	}
	return Event{
		Kind:      EventInterview,
		SessionID: step.SessionID,
		Decision:  decision,
		Reason:    string(step.Reason),
		Payload:   step,
	}
}

// #endregion interview

// #region shortlist

// DiscoverCandidates asks the oracle for a candidate pool.
func (c *Core) DiscoverCandidates(ctx context.Context, profile shortlist.Profile) oracle.Result[[]shortlist.Candidate] {
	return c.shortlist.Discover(ctx, profile)
}

// RankCandidates ranks a candidate pool. Besides invalid weights, the only
// surfaced error is insufficient matches, which wraps
// oracle.ErrInsufficientMatches and still fires hooks.
func (c *Core) RankCandidates(ctx context.Context, candidates []shortlist.Candidate, weights shortlist.PriorityWeights, profile shortlist.Profile) (shortlist.Result, *HookRun, error) {
	res, err := c.shortlist.Shortlist(ctx, candidates, weights, profile)
	ev := Event{Kind: EventShortlist, Decision: "ranked", Payload: res}
	switch {
	case errors.Is(err, oracle.ErrInsufficientMatches):
		ev.Decision = string(oracle.FailInsufficientMatches)
		ev.Reason = err.Error()
	case err != nil:
		return res, nil, err
	default:
		ev.Reason = res.Reasoning
	}
	return res, c.fire(ctx, ev), err
}

// #endregion shortlist

// #region escalation

// ClassifyMessage assesses one user message and adds it to the session's
// trend window. An empty history falls back to the recorded conversation.
func (c *Core) ClassifyMessage(ctx context.Context, sessionID, text string, history []escalation.Message) (escalation.Assessment, *HookRun) {
	if len(history) == 0 {
		history = c.tracker.Messages(sessionID)
	}
	a := c.classifier.Classify(ctx, text, history)
	c.tracker.Record(sessionID, text, a)
	return a, c.fire(ctx, Event{
		Kind:      EventDistress,
		SessionID: sessionID,
		Decision:  string(a.Level),
		Reason:    string(a.Source),
		Payload:   a,
	})
}

// EvaluateTrend returns the escalation verdict for a session.
func (c *Core) EvaluateTrend(ctx context.Context, sessionID string) (escalation.TrendState, *HookRun) {
	st := c.tracker.Review(ctx, sessionID)
	decision := "steady"
	switch {
	case st.RecommendHumanIntervention:
		decision = "recommend-human"
	case st.Escalating:
		decision = "escalating"
	}
	reason := "window"
	if st.RaisedByOracle {
		reason = "oracle"
	}
	return st, c.fire(ctx, Event{
		Kind:      EventTrend,
		SessionID: sessionID,
		Decision:  decision,
		Reason:    reason,
		Payload:   st,
	})
}

// ForgetConversation drops the trend window of a session.
func (c *Core) ForgetConversation(sessionID string) {
	c.tracker.Forget(sessionID)
}

// #endregion escalation

// #region advisor

// ImprovementTasks proposes actions that strengthen the profile.
func (c *Core) ImprovementTasks(ctx context.Context, p advisor.Profile) advisor.Improvement {
	return c.advisor.ImprovementTasks(ctx, p)
}

// Dashboard returns the journey dashboard for the profile.
func (c *Core) Dashboard(ctx context.Context, p advisor.Profile) advisor.Dashboard {
	return c.advisor.Dashboard(ctx, p)
}

// SuggestTasks proposes tasks when message asks for next steps.
func (c *Core) SuggestTasks(ctx context.Context, message string, history []escalation.Message) advisor.Suggestions {
	return c.advisor.SuggestTasks(ctx, message, history)
}

// #endregion advisor

// #region helpers

// Policy returns the active interview bounds.
func (c *Core) Policy() interview.Policy { return c.interviewer.Policy() }

// #endregion helpers
