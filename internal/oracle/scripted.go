package oracle

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNoScript is returned by ScriptedTransport when a task has no queued reply.
var ErrNoScript = errors.New("no scripted reply")

// Reply is one scripted transport outcome.
type Reply struct {
	Text  string
	Err   error
	Delay time.Duration
}

// ScriptedTransport replays queued replies per task kind. The last reply of a
// queue repeats once the queue is drained. It backs tests and offline mode.
type ScriptedTransport struct {
	mu       sync.Mutex
	replies  map[TaskKind][]Reply
	requests []Request
}

// NewScriptedTransport returns an empty script. Tasks without replies fail
// with ErrNoScript.
func NewScriptedTransport() *ScriptedTransport {
	return &ScriptedTransport{replies: make(map[TaskKind][]Reply)}
}

// On queues replies for task and returns the transport for chaining.
func (s *ScriptedTransport) On(task TaskKind, replies ...Reply) *ScriptedTransport {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[task] = append(s.replies[task], replies...)
	return s
}

// OnText queues plain text replies for task.
func (s *ScriptedTransport) OnText(task TaskKind, texts ...string) *ScriptedTransport {
	replies := make([]Reply, len(texts))
	for i, t := range texts {
		replies[i] = Reply{Text: t}
	}
	return s.On(task, replies...)
}

// Complete pops the next reply for req.TaskKind.
func (s *ScriptedTransport) Complete(ctx context.Context, req Request) (string, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	queue := s.replies[req.TaskKind]
	if len(queue) == 0 {
		s.mu.Unlock()
		return "", ErrNoScript
	}
	r := queue[0]
	if len(queue) > 1 {
		s.replies[req.TaskKind] = queue[1:]
	}
	s.mu.Unlock()

	if r.Delay > 0 {
		timer := time.NewTimer(r.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	return r.Text, r.Err
}

// Requests returns a copy of every request seen so far.
func (s *ScriptedTransport) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Calls returns how many requests of the given task were seen.
func (s *ScriptedTransport) Calls(task TaskKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.TaskKind == task {
			n++
		}
	}
	return n
}
