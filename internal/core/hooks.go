package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/barathraj048/Ai-counsler/internal/metrics"
	"github.com/barathraj048/Ai-counsler/internal/provenance"
)

// #region event

// EventKind names the decision an Event reports.
type EventKind string

const (
	EventInterview EventKind = "interview"
	EventShortlist EventKind = "shortlist"
	EventDistress  EventKind = "distress"
	EventTrend     EventKind = "trend"
)

// Event describes one decision after it has been taken.
type Event struct {
	Kind      EventKind
	SessionID string
	Decision  string
	Reason    string
	Payload   any
	At        time.Time
}

// Hook runs after a decision. Its error never changes the decision.
type Hook func(ctx context.Context, ev Event) error

// #endregion event

// #region hook-run

// HookRun tracks the hooks fired for one decision. Callers may wait on it or
// ignore it. A nil HookRun is already finished.
type HookRun struct {
	done chan struct{}
	err  error
}

// Done is closed once every hook has returned.
func (r *HookRun) Done() <-chan struct{} {
	if r == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return r.done
}

// Wait blocks until the hooks finish or ctx ends, and returns the joined hook
// errors.
func (r *HookRun) Wait(ctx context.Context) error {
	if r == nil {
		return nil
	}
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fire runs hooks in order on their own goroutine. They see a context that
// outlives the request but is bounded by hookTimeout. Once Close has started
// no hooks fire.
func (c *Core) fire(ctx context.Context, ev Event) *HookRun {
	if len(c.hooks) == 0 {
		return nil
	}
	c.hookMu.Lock()
	if c.closed {
		c.hookMu.Unlock()
		c.logger.Debug("core closed, skipping hooks",
			zap.String("kind", string(ev.Kind)),
			zap.String("session", ev.SessionID))
		return nil
	}
	c.inflight.Add(1)
	c.hookMu.Unlock()

	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	run := &HookRun{done: make(chan struct{})}
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.hookTimeout)

	go func() {
		defer c.inflight.Done()
		defer close(run.done)
		defer cancel()

		var errs []error
		for i, h := range c.hooks {
			if err := callHook(hctx, h, ev); err != nil {
				metrics.HookFailure(string(ev.Kind))
				c.logger.Warn("post-step hook failed",
					zap.Int("hook", i),
					zap.String("kind", string(ev.Kind)),
					zap.String("session", ev.SessionID),
					zap.Error(err))
				errs = append(errs, err)
			}
		}
		run.err = errors.Join(errs...)
	}()
	return run
}

func callHook(ctx context.Context, h Hook, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hook panic: %v", r)
		}
	}()
	return h(ctx, ev)
}

// #endregion hook-run

// #region provenance-hook

// ProvenanceHook writes every event to the decision log.
func ProvenanceHook(log *provenance.Log) Hook {
	return func(ctx context.Context, ev Event) error {
		var payload string
		if ev.Payload != nil {
			b, err := json.Marshal(ev.Payload)
			if err != nil {
				return fmt.Errorf("marshal %s payload: %w", ev.Kind, err)
			}
			payload = string(b)
		}
		_, err := log.Record(ctx, provenance.Entry{
			SessionID:   ev.SessionID,
			Kind:        string(ev.Kind),
			Decision:    ev.Decision,
			Reason:      ev.Reason,
			PayloadJSON: payload,
			CreatedAt:   ev.At,
		})
		return err
	}
}

// #endregion provenance-hook
