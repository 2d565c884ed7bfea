package advisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barathraj048/Ai-counsler/internal/escalation"
	"github.com/barathraj048/Ai-counsler/internal/oracle"
)

func newAdvisor(tr oracle.Transport) *Advisor {
	return New(oracle.NewClient(tr, oracle.ClientConfig{Timeout: time.Second, MaxAttempts: 1}, nil), nil)
}

func strongProfile() Profile {
	return Profile{
		Field:            "computer science",
		GPA:              3.7,
		TestScores:       map[string]float64{"GRE": 325, "toefl": 110},
		WorkExperience:   []string{"2 years backend engineer"},
		SOP:              "draft",
		LORs:             []string{"prof a", "manager b"},
		Extracurriculars: []string{"robotics club"},
	}
}

// #region improvement

func TestDefaultImprovementTasks_EmptyProfile(t *testing.T) {
	tasks := DefaultImprovementTasks(Profile{})
	require.Len(t, tasks, 6)
	assert.Equal(t, "add-test-scores", tasks[0].ID)
	assert.Equal(t, 20, tasks[0].Impact)
	for i := 1; i < len(tasks); i++ {
		assert.GreaterOrEqual(t, tasks[i-1].Impact, tasks[i].Impact)
	}
}

func TestDefaultImprovementTasks_StrongProfilePadded(t *testing.T) {
	tasks := DefaultImprovementTasks(strongProfile())
	require.Len(t, tasks, 3)
	assert.Equal(t, "research-scholarships", tasks[0].ID)

	p := strongProfile()
	p.LORs = p.LORs[:1]
	tasks = DefaultImprovementTasks(p)
	assert.Equal(t, "add-lors", tasks[0].ID)
	assert.Contains(t, tasks[0].Description, "1 letter")
}

func TestImprovementTasks_OracleReplyRepaired(t *testing.T) {
	tr := oracle.NewScriptedTransport().OnText(oracle.TaskImprovementTasks, `[
		{"title": "Take the GRE", "impact": 45, "category": "tests"},
		{"title": "  ", "impact": 10, "category": "tests"},
		{"title": "Publish a paper", "impact": 0, "category": "research"},
		{"title": "Write SOP", "category": "documents"}
	]`)
	got := newAdvisor(tr).ImprovementTasks(context.Background(), Profile{})
	require.Equal(t, SourceOracle, got.Source)
	require.Len(t, got.Tasks, 3)

	assert.Equal(t, "Take the GRE", got.Tasks[0].Title)
	assert.Equal(t, 20, got.Tasks[0].Impact)
	assert.Equal(t, 10, got.Tasks[1].Impact, "missing impact defaults")
	assert.Equal(t, 1, got.Tasks[2].Impact)
	assert.Equal(t, CategoryAcademic, got.Tasks[2].Category)
	assert.Equal(t, "task-1", got.Tasks[0].ID)
}

func TestImprovementTasks_TruncatesToSix(t *testing.T) {
	tr := oracle.NewScriptedTransport().OnText(oracle.TaskImprovementTasks, `{"tasks": [
		{"title": "a", "impact": 1}, {"title": "b", "impact": 2}, {"title": "c", "impact": 3},
		{"title": "d", "impact": 4}, {"title": "e", "impact": 5}, {"title": "f", "impact": 6},
		{"title": "g", "impact": 7}
	]}`)
	got := newAdvisor(tr).ImprovementTasks(context.Background(), Profile{})
	require.Len(t, got.Tasks, 6)
	assert.Equal(t, "g", got.Tasks[0].Title)
	assert.Equal(t, "b", got.Tasks[5].Title)
}

func TestImprovementTasks_Fallback(t *testing.T) {
	for name, reply := range map[string]oracle.Reply{
		"transport": {Err: errors.New("connection refused")},
		"too few":   {Text: `{"tasks": [{"title": "only one", "impact": 5}]}`},
		"prose":     {Text: "Work harder."},
	} {
		t.Run(name, func(t *testing.T) {
			tr := oracle.NewScriptedTransport().On(oracle.TaskImprovementTasks, reply)
			got := newAdvisor(tr).ImprovementTasks(context.Background(), Profile{})
			assert.Equal(t, SourceFallback, got.Source)
			assert.Equal(t, DefaultImprovementTasks(Profile{}), got.Tasks)
		})
	}

	got := New(nil, nil).ImprovementTasks(context.Background(), strongProfile())
	assert.Equal(t, SourceFallback, got.Source)
	assert.Len(t, got.Tasks, 3)
}

// #endregion improvement

// #region dashboard

func TestDashboard_OracleReplyRepaired(t *testing.T) {
	tr := oracle.NewScriptedTransport().OnText(oracle.TaskDashboard, `{
		"profileStrength": 95,
		"currentStage": "application",
		"allStages": [
			{"id": "profile-setup", "status": "current"},
			{"id": "test-preparation", "status": "current"}
		],
		"todos": [
			{"title": "Book TOEFL", "priority": "urgent"},
			{"title": "Shortlist 5 universities", "priority": "high"},
			{"title": ""},
			{"title": "Request transcripts", "priority": "LOW"},
			{"title": "a"}, {"title": "b"}, {"title": "c"}
		]
	}`)
	d := newAdvisor(tr).Dashboard(context.Background(), Profile{})

	assert.Equal(t, SourceOracle, d.Source)
	assert.Equal(t, 80, d.ProfileStrength)
	assert.Equal(t, StageProfileSetup, d.CurrentStage)
	require.Len(t, d.Stages, 6)
	assert.Equal(t, StageCurrent, d.Stages[0].Status)
	for _, s := range d.Stages[1:] {
		assert.Equal(t, StageUpcoming, s.Status)
	}
	require.Len(t, d.Todos, 5)
	assert.Equal(t, PriorityMedium, d.Todos[0].Priority)
	assert.Equal(t, PriorityLow, d.Todos[2].Priority)
}

func TestDashboard_CurrentStageFromField(t *testing.T) {
	tr := oracle.NewScriptedTransport().OnText(oracle.TaskDashboard, `{
		"profileStrength": 5,
		"currentStage": "visa-process",
		"todos": [{"title": "a"}, {"title": "b"}, {"title": "c"}]
	}`)
	d := newAdvisor(tr).Dashboard(context.Background(), Profile{})

	assert.Equal(t, 20, d.ProfileStrength)
	assert.Equal(t, StageVisaProcess, d.CurrentStage)
	current := 0
	for i, s := range d.Stages {
		assert.Equal(t, i+1, s.Order)
		if s.Status == StageCurrent {
			current++
			assert.Equal(t, d.CurrentStage, s.ID)
		}
	}
	assert.Equal(t, 1, current)
	assert.Equal(t, StageCompleted, d.Stages[3].Status)
	assert.Equal(t, StageUpcoming, d.Stages[5].Status)
}

func TestDashboard_Fallback(t *testing.T) {
	tr := oracle.NewScriptedTransport().OnText(oracle.TaskDashboard,
		`{"profileStrength": 50, "currentStage": "moon-landing", "todos": [{"title": "a"}, {"title": "b"}, {"title": "c"}]}`)
	d := newAdvisor(tr).Dashboard(context.Background(), Profile{})
	assert.Equal(t, SourceFallback, d.Source)
	assert.Equal(t, DefaultDashboard(Profile{}), d)
}

func TestProfileStrength(t *testing.T) {
	tests := []struct {
		name string
		p    Profile
		want int
	}{
		{"empty", Profile{}, 10},
		{"high gpa", Profile{GPA: 3.6}, 25},
		{"mid gpa", Profile{GPA: 3.0}, 20},
		{"low gpa", Profile{GPA: 2.4}, 15},
		{"gre only", Profile{TestScores: map[string]float64{"GRE": 320}}, 20},
		{"gmat and ielts", Profile{TestScores: map[string]float64{"gmat": 700, "IELTS": 7.5}}, 30},
		{"zero score ignored", Profile{TestScores: map[string]float64{"toefl": 0}}, 10},
		{"experience capped", Profile{WorkExperience: []string{"a", "b", "c", "d"}}, 25},
		{"blank sop", Profile{SOP: "  "}, 10},
		{"sop", Profile{SOP: "draft"}, 22},
		{"one lor rounds", Profile{LORs: []string{"a"}}, 14},
		{"lors capped", Profile{LORs: []string{"a", "b", "c", "d"}}, 20},
		{"activities", Profile{Extracurriculars: []string{"a", "b"}}, 15},
		{"activities capped", Profile{Extracurriculars: []string{"a", "b", "c", "d"}}, 18},
		{"publications capped", Profile{Publications: []string{"a", "b", "c"}}, 20},
		{"strong", strongProfile(), 72},
		{"complete", Profile{
			GPA:              3.9,
			TestScores:       map[string]float64{"gre": 330, "toefl": 115},
			WorkExperience:   []string{"a", "b", "c"},
			SOP:              "final",
			LORs:             []string{"a", "b", "c"},
			Extracurriculars: []string{"a", "b", "c", "d"},
			Publications:     []string{"a", "b"},
		}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProfileStrength(tt.p))
		})
	}
}

func TestDefaultDashboard(t *testing.T) {
	weak := DefaultDashboard(Profile{})
	assert.Equal(t, 20, weak.ProfileStrength)
	assert.Equal(t, StageProfileSetup, weak.CurrentStage)
	assert.Len(t, weak.Todos, 5)
	assert.Equal(t, PriorityHigh, weak.Todos[0].Priority)

	strong := DefaultDashboard(strongProfile())
	assert.Equal(t, 72, strong.ProfileStrength)
	assert.Len(t, strong.Todos, 3)
	assert.Len(t, strong.Stages, 6)
}

// #endregion dashboard

// #region suggestions

func TestWantsTasks(t *testing.T) {
	assert.True(t, WantsTasks("What should I do about my GRE?"))
	assert.True(t, WantsTasks("can you help with visas"))
	assert.False(t, WantsTasks("Tell me about Toronto"))
}

func TestSuggestTasks_NotTriggered(t *testing.T) {
	tr := oracle.NewScriptedTransport()
	s := newAdvisor(tr).SuggestTasks(context.Background(), "Tell me about Toronto", nil)
	assert.False(t, s.Triggered)
	assert.Empty(t, s.Tasks)
	assert.Empty(t, tr.Requests())
}

func TestSuggestTasks(t *testing.T) {
	tr := oracle.NewScriptedTransport().OnText(oracle.TaskSuggestions, `{"tasks": [
		{"title": "Book IELTS", "priority": "high"},
		{"title": "Draft SOP outline", "priority": "whenever"},
		{"title": "Ask for LORs"}, {"title": "Compare scholarships"}, {"title": "Open savings account"}
	]}`)
	history := make([]escalation.Message, 10)
	for i := range history {
		history[i] = escalation.Message{Role: "user", Content: "turn"}
	}
	s := newAdvisor(tr).SuggestTasks(context.Background(), "What are my next steps?", history)

	assert.True(t, s.Triggered)
	require.Len(t, s.Tasks, 4)
	assert.Equal(t, PriorityHigh, s.Tasks[0].Priority)
	assert.Equal(t, PriorityMedium, s.Tasks[1].Priority)
	assert.Len(t, tr.Requests()[0].Context["history"], 6)
}

func TestSuggestTasks_FailureSuggestsNothing(t *testing.T) {
	tr := oracle.NewScriptedTransport().OnText(oracle.TaskSuggestions, `{"tasks": [{"title": "just one"}]}`)
	s := newAdvisor(tr).SuggestTasks(context.Background(), "where do I start", nil)
	assert.True(t, s.Triggered)
	assert.Empty(t, s.Tasks)
}

// #endregion suggestions
