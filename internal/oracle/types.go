package oracle

import (
	"errors"
	"fmt"
)

// #region task-kind

// TaskKind tags a judgment request so the transport and the validator agree
// on the expected reply schema.
type TaskKind string

const (
	TaskNextQuestion     TaskKind = "next-question"
	TaskDiscovery        TaskKind = "discovery"
	TaskShortlist        TaskKind = "shortlist"
	TaskDistressCheck    TaskKind = "distress-check"
	TaskTrendCheck       TaskKind = "trend-check"
	TaskImprovementTasks TaskKind = "improvement-tasks"
	TaskDashboard        TaskKind = "dashboard"
	TaskSuggestions      TaskKind = "task-suggestions"
)

// #endregion task-kind

// #region request

// Request is an opaque judgment request. Context carries the accumulated
// facts (answers, conversation tail, candidate pool); Constraints carries the
// deterministic bounds the oracle is told about.
type Request struct {
	TaskKind    TaskKind       `json:"taskKind"`
	Context     map[string]any `json:"context"`
	Constraints map[string]any `json:"constraints,omitempty"`
}

// #endregion request

// #region failure

// FailureReason is the failure taxonomy of the decision core.
type FailureReason string

const (
	FailTransport           FailureReason = "transport"
	FailSchema              FailureReason = "schema"
	FailEmptyPool           FailureReason = "empty-pool"
	FailInsufficientMatches FailureReason = "insufficient-matches"
)

// Failure is the explicit failure tag of a Result. It doubles as an error so
// callers that surface it can match with errors.Is against the sentinels below.
type Failure struct {
	Reason FailureReason
	Task   TaskKind
	Err    error
}

func (f *Failure) Error() string {
	switch {
	case f.Task != "" && f.Err != nil:
		return fmt.Sprintf("%s failed (%s): %v", f.Task, f.Reason, f.Err)
	case f.Task != "":
		return fmt.Sprintf("%s failed (%s)", f.Task, f.Reason)
	case f.Err != nil:
		return fmt.Sprintf("%s: %v", f.Reason, f.Err)
	}
	return string(f.Reason)
}

func (f *Failure) Unwrap() error { return f.Err }

// Is matches failures by reason. A target without a task matches any task.
func (f *Failure) Is(target error) bool {
	var t *Failure
	if !errors.As(target, &t) {
		return false
	}
	return t.Reason == f.Reason && (t.Task == "" || t.Task == f.Task)
}

var (
	ErrTransport           = &Failure{Reason: FailTransport}
	ErrSchema              = &Failure{Reason: FailSchema}
	ErrEmptyPool           = &Failure{Reason: FailEmptyPool}
	ErrInsufficientMatches = &Failure{Reason: FailInsufficientMatches}

	// ErrNoTransport is the cause attached when a client has no transport configured.
	ErrNoTransport = errors.New("no oracle transport configured")
)

// #endregion failure

// #region result

// Result is either Ok(value) or Failed(reason). It is never partially valid:
// a value is only present when validation fully accepted it.
type Result[T any] struct {
	value   T
	failure *Failure
}

// Ok wraps a fully validated value.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Failed wraps an explicit failure. A nil failure is treated as a transport failure.
func Failed[T any](f *Failure) Result[T] {
	if f == nil {
		f = &Failure{Reason: FailTransport}
	}
	return Result[T]{failure: f}
}

// OK reports whether the result carries a value.
func (r Result[T]) OK() bool { return r.failure == nil }

// Value returns the value and whether it is present.
func (r Result[T]) Value() (T, bool) {
	if r.failure != nil {
		var zero T
		return zero, false
	}
	return r.value, true
}

// Failure returns the failure tag, or nil for Ok results.
func (r Result[T]) Failure() *Failure { return r.failure }

// Unwrap converts the result into the (value, error) convention.
func (r Result[T]) Unwrap() (T, error) {
	if r.failure != nil {
		var zero T
		return zero, r.failure
	}
	return r.value, nil
}

// #endregion result
