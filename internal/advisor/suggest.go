package advisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/barathraj048/Ai-counsler/internal/escalation"
	"github.com/barathraj048/Ai-counsler/internal/oracle"
	"github.com/barathraj048/Ai-counsler/internal/schema"
)

const (
	minSuggestions = 2
	maxSuggestions = 4
	// suggestionHistory is how many recent turns accompany the request.
	suggestionHistory = 6
)

// taskTriggers are the phrases that mark a message as asking for next steps.
var taskTriggers = []string{
	"what should i do", "next steps", "how do i", "where do i start",
	"help me with", "can you help", "need to do", "what tasks",
}

// SuggestedTask is an action item proposed from the conversation.
type SuggestedTask struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Priority    Priority `json:"priority"`
}

// Suggestions is the result of SuggestTasks. Tasks is empty when the message
// did not ask for next steps or the oracle could not answer.
type Suggestions struct {
	Triggered bool            `json:"triggered"`
	Tasks     []SuggestedTask `json:"tasks"`
}

// WantsTasks reports whether message asks for next steps.
func WantsTasks(message string) bool {
	lower := strings.ToLower(message)
	for _, k := range taskTriggers {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// SuggestTasks proposes 2 to 4 tasks when the message asks for next steps.
// There is no rule-based fallback: a failed call suggests nothing.
func (a *Advisor) SuggestTasks(ctx context.Context, message string, history []escalation.Message) Suggestions {
	if !WantsTasks(message) {
		return Suggestions{Tasks: []SuggestedTask{}}
	}
	if len(history) > suggestionHistory {
		history = history[len(history)-suggestionHistory:]
	}
	res := oracle.Invoke(ctx, a.client, oracle.Request{
		TaskKind:    oracle.TaskSuggestions,
		Context:     map[string]any{"message": message, "history": history},
		Constraints: map[string]any{"minTasks": minSuggestions, "maxTasks": maxSuggestions},
	}, decodeSuggestions)
	tasks, ok := res.Value()
	if !ok {
		tasks = []SuggestedTask{}
	}
	return Suggestions{Triggered: true, Tasks: tasks}
}

type suggestionReply struct {
	Tasks []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Priority    string `json:"priority"`
	} `json:"tasks" validate:"required"`
}

func decodeSuggestions(raw string) ([]SuggestedTask, error) {
	var r suggestionReply
	if err := schema.Decode(raw, &r); err != nil {
		return nil, err
	}
	tasks := make([]SuggestedTask, 0, len(r.Tasks))
	for _, t := range r.Tasks {
		title := strings.TrimSpace(t.Title)
		if title == "" {
			continue
		}
		tasks = append(tasks, SuggestedTask{
			Title:       title,
			Description: strings.TrimSpace(t.Description),
			Priority:    normalizePriority(t.Priority),
		})
	}
	if len(tasks) < minSuggestions {
		return nil, fmt.Errorf("%w: %d usable tasks, need %d", schema.ErrInvalid, len(tasks), minSuggestions)
	}
	if len(tasks) > maxSuggestions {
		tasks = tasks[:maxSuggestions]
	}
	return tasks, nil
}
