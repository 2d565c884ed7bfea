package interview

import (
	"fmt"

	"github.com/barathraj048/Ai-counsler/internal/oracle"
	"github.com/barathraj048/Ai-counsler/internal/schema"
)

// #region constants

const (
	DefaultMinQuestions = 12
	DefaultMaxQuestions = 18

	fallbackText = "Please tell us more about your study abroad goals."
)

// #endregion constants

// #region types

// Policy bounds the interview length. The ceiling is absolute; the floor only
// stops the oracle from finishing early.
type Policy struct {
	MinQuestions int `json:"minQuestions" yaml:"min_questions"`
	MaxQuestions int `json:"maxQuestions" yaml:"max_questions"`
}

// DefaultPolicy returns the product bounds.
func DefaultPolicy() Policy {
	return Policy{MinQuestions: DefaultMinQuestions, MaxQuestions: DefaultMaxQuestions}
}

// Validate checks 1 <= min <= max.
func (p Policy) Validate() error {
	if p.MinQuestions < 1 {
		return fmt.Errorf("min questions must be >= 1, got %d", p.MinQuestions)
	}
	if p.MaxQuestions < p.MinQuestions {
		return fmt.Errorf("max questions (%d) must be >= min questions (%d)", p.MaxQuestions, p.MinQuestions)
	}
	return nil
}

// Reason explains which rule produced a decision.
type Reason string

const (
	ReasonCeiling           Reason = "ceiling"
	ReasonOracleComplete    Reason = "oracle_complete"
	ReasonOracleNext        Reason = "oracle_next"
	ReasonPrematureComplete Reason = "premature_complete"
	ReasonFallbackComplete  Reason = "fallback_complete"
	ReasonFallbackQuestion  Reason = "fallback_question"
)

// Decision is the policy outcome for one step.
type Decision struct {
	Complete bool
	Next     *schema.Question
	Reason   Reason
}

// NextReply is the validated next-question reply.
type NextReply struct {
	Completed    *bool            `json:"completed" validate:"required"`
	NextQuestion *schema.Question `json:"nextQuestion,omitempty"`
}

// #endregion types

// #region decode

// DecodeNextReply validates a raw next-question reply. A reply that does not
// finish the interview must carry a question.
func DecodeNextReply(raw string) (NextReply, error) {
	var r NextReply
	if err := schema.Decode(raw, &r); err != nil {
		return NextReply{}, err
	}
	if r.NextQuestion != nil {
		if err := r.NextQuestion.Normalize(); err != nil {
			return NextReply{}, err
		}
	}
	if !*r.Completed && r.NextQuestion == nil {
		return NextReply{}, fmt.Errorf("%w: nextQuestion missing while not completed", schema.ErrInvalid)
	}
	return r, nil
}

// #endregion decode

// #region resolve

// Ceiling reports whether step has reached the hard maximum. The oracle is
// not consulted past this point.
func (p Policy) Ceiling(step int) bool {
	return step >= p.MaxQuestions
}

// Resolve turns the oracle outcome for a session at step answers into a
// decision. isUsed reports ids that may not be asked again.
func (p Policy) Resolve(step int, res oracle.Result[NextReply], isUsed func(string) bool) Decision {
	if p.Ceiling(step) {
		return Decision{Complete: true, Reason: ReasonCeiling}
	}

	reply, ok := res.Value()
	if !ok {
		if step >= p.MinQuestions {
			return Decision{Complete: true, Reason: ReasonFallbackComplete}
		}
		return Decision{Next: fallbackQuestion(step, isUsed), Reason: ReasonFallbackQuestion}
	}

	if *reply.Completed {
		if step >= p.MinQuestions {
			return Decision{Complete: true, Reason: ReasonOracleComplete}
		}
		// Too early to finish: keep going with whatever the oracle offered.
		if reply.NextQuestion == nil {
			return Decision{Next: fallbackQuestion(step, isUsed), Reason: ReasonPrematureComplete}
		}
		return Decision{Next: uniqueQuestion(*reply.NextQuestion, step, isUsed), Reason: ReasonPrematureComplete}
	}

	return Decision{Next: uniqueQuestion(*reply.NextQuestion, step, isUsed), Reason: ReasonOracleNext}
}

// uniqueQuestion re-keys q when its id collides with an answered or asked
// question: first <id>_<step>, then fallback ids.
func uniqueQuestion(q schema.Question, step int, isUsed func(string) bool) *schema.Question {
	if !isUsed(q.ID) {
		return &q
	}
	if id := fmt.Sprintf("%s_%d", q.ID, step); !isUsed(id) {
		q.ID = id
		return &q
	}
	q.ID = fallbackID(step, isUsed)
	return &q
}

func fallbackQuestion(step int, isUsed func(string) bool) *schema.Question {
	return &schema.Question{
		ID:   fallbackID(step, isUsed),
		Text: fallbackText,
		Type: schema.QuestionText,
	}
}

func fallbackID(step int, isUsed func(string) bool) string {
	id := fmt.Sprintf("fallback_%d", step)
	for n := 1; isUsed(id); n++ {
		id = fmt.Sprintf("fallback_%d_%d", step, n)
	}
	return id
}

// #endregion resolve
