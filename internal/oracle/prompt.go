package oracle

import (
	"encoding/json"
	"fmt"
	"strings"
)

// systemPrompt frames every chat-style request. Task-specific shape hints are
// appended per task kind.
const systemPrompt = "You are the judgment service of a study-abroad counseling product. " +
	"Respond with a single JSON value and nothing else."

var replyShapes = map[TaskKind]string{
	TaskNextQuestion:     `{"completed": bool, "nextQuestion": {"id": string, "text": string, "type": "text|select|multiselect|number", "options": [string]}}`,
	TaskDiscovery:        `{"universities": [{"name": string, "country": string, "ranking": number, "tuitionFee": number|string, "programs": [string], "matchReason": string}]}`,
	TaskShortlist:        `{"reasoning": string, "tradeoffs": {"<candidate id>": string}}`,
	TaskDistressCheck:    `{"isDistressed": bool, "distressLevel": "none|mild|moderate|high", "indicators": [string]}`,
	TaskTrendCheck:       `{"isEscalating": bool, "recommendHumanIntervention": bool}`,
	TaskImprovementTasks: `{"tasks": [{"title": string, "description": string, "impact": number, "category": "academic|experience|tests|documents"}]}`,
	TaskDashboard:        `{"profileStrength": number, "currentStage": string, "stages": [{"id": string, "name": string, "status": "completed|current|upcoming"}], "todos": [{"title": string, "priority": "high|medium|low"}]}`,
	TaskSuggestions:      `{"tasks": [{"title": string, "description": string, "priority": "high|medium|low"}]}`,
}

// RenderPrompt renders req as a (system, user) message pair for chat-style
// transports. The wording is deliberately minimal; the JSON body carries the
// request verbatim.
func RenderPrompt(req Request) (string, string, error) {
	body, err := json.MarshalIndent(struct {
		Context     map[string]any `json:"context"`
		Constraints map[string]any `json:"constraints,omitempty"`
	}{req.Context, req.Constraints}, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("render %s prompt: %w", req.TaskKind, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n", req.TaskKind)
	if shape, ok := replyShapes[req.TaskKind]; ok {
		fmt.Fprintf(&b, "Reply shape: %s\n", shape)
	}
	b.WriteString("Input:\n")
	b.Write(body)
	return systemPrompt, b.String(), nil
}
