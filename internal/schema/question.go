package schema

import "fmt"

// QuestionType is the input widget a question expects.
type QuestionType string

const (
	QuestionText        QuestionType = "text"
	QuestionSelect      QuestionType = "select"
	QuestionMultiSelect QuestionType = "multiselect"
	QuestionNumber      QuestionType = "number"
)

// Question is one interview question as proposed by the oracle or synthesized
// by the termination policy.
type Question struct {
	ID          string       `json:"id" validate:"nonblank,max=64"`
	Text        string       `json:"text" validate:"nonblank"`
	Type        QuestionType `json:"type,omitempty" validate:"omitempty,oneof=text select multiselect number"`
	Options     []string     `json:"options,omitempty" validate:"omitempty,dive,nonblank"`
	Placeholder string       `json:"placeholder,omitempty"`
}

// Normalize defaults the type to text and rejects choice questions without
// options.
func (q *Question) Normalize() error {
	if q.Type == "" {
		q.Type = QuestionText
	}
	if (q.Type == QuestionSelect || q.Type == QuestionMultiSelect) && len(q.Options) == 0 {
		return fmt.Errorf("%w: %s question %q has no options", ErrInvalid, q.Type, q.ID)
	}
	return nil
}
