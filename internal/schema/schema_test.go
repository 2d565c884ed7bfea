package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		err  error
	}{
		{"plain object", `{"a":1}`, `{"a":1}`, nil},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`, nil},
		{"bare fence", "```\n[1,2]\n```", `[1,2]`, nil},
		{"prose around", "Sure! Here it is: {\"a\": {\"b\": 2}} Hope that helps.", `{"a": {"b": 2}}`, nil},
		{"prose and fence", "Result:\n```json\n{\"ok\":true}\n```\nDone", `{"ok":true}`, nil},
		{"unterminated fence", "```json\n{\"a\":1}", `{"a":1}`, nil},
		{"inline fence", "```{\"a\":1}```", `{"a":1}`, nil},
		{"empty", "   ", "", ErrEmpty},
		{"null", "null", "", ErrEmpty},
		{"no json", "I cannot help with that.", "", ErrNotJSON},
		{"truncated", `{"a": [1, 2`, "", ErrNotJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sanitize(tt.raw)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type sample struct {
	Name   string   `json:"name" validate:"nonblank"`
	Level  string   `json:"level" validate:"required,oneof=none mild moderate high"`
	Flag   *bool    `json:"flag" validate:"required"`
	Scores []string `json:"scores" validate:"omitempty,dive,nonblank"`
}

func TestDecode(t *testing.T) {
	var s sample
	err := Decode("```json\n{\"name\":\"x\",\"level\":\"mild\",\"flag\":false}\n```", &s)
	require.NoError(t, err)
	assert.Equal(t, "mild", s.Level)
	require.NotNil(t, s.Flag)
	assert.False(t, *s.Flag)
}

func TestDecode_Violations(t *testing.T) {
	cases := map[string]string{
		"missing flag":   `{"name":"x","level":"mild"}`,
		"enum":           `{"name":"x","level":"severe","flag":true}`,
		"blank name":     `{"name":"  ","level":"none","flag":true}`,
		"blank in slice": `{"name":"x","level":"none","flag":true,"scores":[""]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			var s sample
			err := Decode(raw, &s)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}

	var s sample
	err := Decode(`{"name": 5}`, &s)
	assert.True(t, errors.Is(err, ErrNotJSON))
}

func TestQuestionNormalize(t *testing.T) {
	q := Question{ID: "gpa", Text: "GPA?"}
	require.NoError(t, q.Normalize())
	assert.Equal(t, QuestionText, q.Type)

	q = Question{ID: "country", Text: "Where?", Type: QuestionSelect}
	assert.ErrorIs(t, q.Normalize(), ErrInvalid)

	var bad Question
	assert.ErrorIs(t, Decode(`{"id":"x","text":"y","type":"slider"}`, &bad), ErrInvalid)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 20, Clamp(35, 1, 20))
	assert.Equal(t, 1, Clamp(-4, 1, 20))
	assert.Equal(t, 55.5, Clamp(55.5, 20, 80))
	assert.True(t, OneOf("low", "high", "medium", "low"))
	assert.False(t, OneOf("urgent", "high", "medium", "low"))
}
