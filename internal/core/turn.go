package core

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/barathraj048/Ai-counsler/internal/advisor"
	"github.com/barathraj048/Ai-counsler/internal/escalation"
)

// Turn is the combined decision for one counselor chat message.
type Turn struct {
	Assessment escalation.Assessment `json:"assessment"`
	Trend      escalation.TrendState `json:"trend"`
	// Suggestions is empty whenever the message was flagged distressed.
	Suggestions advisor.Suggestions `json:"suggestions"`
}

// HandleTurn classifies a chat message and, in parallel, drafts task
// suggestions. A distressed message drops the suggestions in favor of the
// trend verdict. The returned runs cover the distress and trend hooks.
func (c *Core) HandleTurn(ctx context.Context, sessionID, text string, history []escalation.Message) (Turn, []*HookRun) {
	if len(history) == 0 {
		history = c.tracker.Messages(sessionID)
	}

	var (
		turn   Turn
		runs   []*HookRun
		distRn *HookRun
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		turn.Assessment, distRn = c.ClassifyMessage(gctx, sessionID, text, history)
		return nil
	})
	g.Go(func() error {
		turn.Suggestions = c.advisor.SuggestTasks(gctx, text, history)
		return nil
	})
	_ = g.Wait()
	runs = append(runs, distRn)

	if turn.Assessment.IsDistressed {
		turn.Suggestions = advisor.Suggestions{Triggered: turn.Suggestions.Triggered, Tasks: []advisor.SuggestedTask{}}
	}
	var trendRn *HookRun
	turn.Trend, trendRn = c.EvaluateTrend(ctx, sessionID)
	return turn, append(runs, trendRn)
}
