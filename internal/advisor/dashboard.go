package advisor

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/barathraj048/Ai-counsler/internal/oracle"
	"github.com/barathraj048/Ai-counsler/internal/schema"
)

const (
	minStrength = 20
	maxStrength = 80
	minTodos    = 3
	maxTodos    = 5
)

// #region stages

// StageID names one step of the study-abroad journey.
type StageID string

const (
	StageProfileSetup        StageID = "profile-setup"
	StageUniversityDiscovery StageID = "university-discovery"
	StageTestPreparation     StageID = "test-preparation"
	StageApplication         StageID = "application"
	StageVisaProcess         StageID = "visa-process"
	StagePreDeparture        StageID = "pre-departure"
)

// journey is the fixed stage order.
var journey = []struct {
	id   StageID
	name string
}{
	{StageProfileSetup, "Profile Setup"},
	{StageUniversityDiscovery, "University Discovery"},
	{StageTestPreparation, "Test Preparation"},
	{StageApplication, "Application"},
	{StageVisaProcess, "Visa Process"},
	{StagePreDeparture, "Pre-Departure"},
}

func stageIndex(id StageID) int {
	for i, s := range journey {
		if s.id == id {
			return i
		}
	}
	return -1
}

// #endregion stages

// #region types

// Stage is one journey stage with its status.
type Stage struct {
	ID     StageID     `json:"id"`
	Name   string      `json:"name"`
	Status StageStatus `json:"status"`
	Order  int         `json:"order"`
}

// Todo is one dashboard action item.
type Todo struct {
	Title    string   `json:"title"`
	Priority Priority `json:"priority"`
}

// Dashboard summarizes where the student stands. Stages always holds the six
// journey stages in order and CurrentStage is the one marked current.
type Dashboard struct {
	ProfileStrength int     `json:"profileStrength"`
	CurrentStage    StageID `json:"currentStage"`
	Stages          []Stage `json:"stages"`
	Todos           []Todo  `json:"todos"`
	Source          Source  `json:"source"`
}

// #endregion types

// #region dashboard

// Dashboard asks the oracle for the journey dashboard and repairs it into a
// consistent shape. Oracle failure yields the rule-based dashboard.
func (a *Advisor) Dashboard(ctx context.Context, p Profile) Dashboard {
	res := oracle.Invoke(ctx, a.client, oracle.Request{
		TaskKind: oracle.TaskDashboard,
		Context:  map[string]any{"profile": p},
		Constraints: map[string]any{
			"profileStrength": []int{minStrength, maxStrength},
			"stages":          stageIDs(),
			"todos":           []int{minTodos, maxTodos},
		},
	}, decodeDashboard)
	if d, ok := res.Value(); ok {
		return d
	}
	if a.client.Available() {
		a.logger.Info("dashboard from rules", zap.String("reason", string(res.Failure().Reason)))
	}
	return DefaultDashboard(p)
}

type dashboardReply struct {
	ProfileStrength *float64 `json:"profileStrength" validate:"required"`
	CurrentStage    string   `json:"currentStage"`
	Stages          []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"stages"`
	AllStages []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"allStages"`
	Todos []struct {
		Title    string `json:"title"`
		Priority string `json:"priority"`
	} `json:"todos"`
}

// decodeDashboard validates a dashboard reply. The current stage is taken
// from the first stage marked current, else from currentStage; stages before
// it are completed and after it upcoming. Fewer than three usable todos is a
// schema violation.
func decodeDashboard(raw string) (Dashboard, error) {
	var r dashboardReply
	if err := schema.Decode(raw, &r); err != nil {
		return Dashboard{}, err
	}
	if math.IsNaN(*r.ProfileStrength) {
		return Dashboard{}, fmt.Errorf("%w: profileStrength is NaN", schema.ErrInvalid)
	}

	stages := r.Stages
	if len(stages) == 0 {
		stages = r.AllStages
	}
	current := -1
	for _, s := range stages {
		if StageStatus(strings.TrimSpace(s.Status)) == StageCurrent {
			if i := stageIndex(StageID(strings.TrimSpace(s.ID))); i >= 0 {
				current = i
				break
			}
		}
	}
	if current < 0 {
		current = stageIndex(StageID(strings.TrimSpace(r.CurrentStage)))
	}
	if current < 0 {
		return Dashboard{}, fmt.Errorf("%w: no known current stage", schema.ErrInvalid)
	}

	todos := make([]Todo, 0, len(r.Todos))
	for _, t := range r.Todos {
		title := strings.TrimSpace(t.Title)
		if title == "" {
			continue
		}
		todos = append(todos, Todo{Title: title, Priority: normalizePriority(t.Priority)})
	}
	if len(todos) < minTodos {
		return Dashboard{}, fmt.Errorf("%w: %d usable todos, need %d", schema.ErrInvalid, len(todos), minTodos)
	}
	if len(todos) > maxTodos {
		todos = todos[:maxTodos]
	}

	return Dashboard{
		ProfileStrength: int(math.Round(schema.Clamp(*r.ProfileStrength, minStrength, maxStrength))),
		CurrentStage:    journey[current].id,
		Stages:          buildStages(current),
		Todos:           todos,
		Source:          SourceOracle,
	}, nil
}

// #endregion dashboard

// #region defaults

// stageTodos are generic next steps per stage, used to pad the rule-based
// dashboard.
var stageTodos = map[StageID][]string{
	StageProfileSetup: {
		"Complete your academic profile",
		"Set a target intake and budget",
		"Explore universities matching your goals",
	},
}

// ProfileStrength scores a profile out of 100: a base of 10 plus points for
// GPA tier, test scores, experience, SOP, recommendations, activities and
// publications. Repeatable items earn points per entry up to a cap.
func ProfileStrength(p Profile) int {
	score := 10.0

	switch {
	case p.GPA >= 3.5:
		score += 15
	case p.GPA >= 3.0:
		score += 10
	case p.GPA > 0:
		score += 5
	}

	if p.hasScore("gre", "gmat") {
		score += 10
	}
	if p.hasScore("toefl", "ielts") {
		score += 10
	}

	score += capped(len(p.WorkExperience), 5, 15)
	if strings.TrimSpace(p.SOP) != "" {
		score += 12
	}
	score += capped(len(p.LORs), 3.5, 10)
	score += capped(len(p.Extracurriculars), 2.5, 8)
	score += capped(len(p.Publications), 5, 10)

	return int(math.Min(100, math.Round(score)))
}

func capped(n int, each, limit float64) float64 {
	return math.Min(limit, float64(n)*each)
}

// DefaultDashboard derives a dashboard from the profile alone. It always sits
// at profile-setup, with ProfileStrength held to the dashboard range.
func DefaultDashboard(p Profile) Dashboard {
	strength := schema.Clamp(ProfileStrength(p), minStrength, maxStrength)

	var todos []Todo
	for _, t := range DefaultImprovementTasks(p) {
		if len(todos) == maxTodos {
			break
		}
		todos = append(todos, Todo{Title: t.Title, Priority: priorityForImpact(t.Impact)})
	}
	for _, title := range stageTodos[StageProfileSetup] {
		if len(todos) >= minTodos {
			break
		}
		todos = append(todos, Todo{Title: title, Priority: PriorityMedium})
	}

	return Dashboard{
		ProfileStrength: strength,
		CurrentStage:    StageProfileSetup,
		Stages:          buildStages(0),
		Todos:           todos,
		Source:          SourceFallback,
	}
}

func buildStages(current int) []Stage {
	out := make([]Stage, len(journey))
	for i, s := range journey {
		status := StageUpcoming
		switch {
		case i < current:
			status = StageCompleted
		case i == current:
			status = StageCurrent
		}
		out[i] = Stage{ID: s.id, Name: s.name, Status: status, Order: i + 1}
	}
	return out
}

func stageIDs() []string {
	ids := make([]string, len(journey))
	for i, s := range journey {
		ids[i] = string(s.id)
	}
	return ids
}

func priorityForImpact(impact int) Priority {
	switch {
	case impact >= 15:
		return PriorityHigh
	case impact >= 10:
		return PriorityMedium
	}
	return PriorityLow
}

func normalizePriority(s string) Priority {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if schema.OneOf(string(p), string(PriorityHigh), string(PriorityMedium), string(PriorityLow)) {
		return p
	}
	return PriorityMedium
}

// #endregion defaults
