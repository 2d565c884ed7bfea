package advisor

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/barathraj048/Ai-counsler/internal/oracle"
	"github.com/barathraj048/Ai-counsler/internal/schema"
)

const (
	minImprovementTasks = 3
	maxImprovementTasks = 6
	minImpact           = 1
	maxImpact           = 20
	defaultImpact       = 10
)

// #region types

// ImprovementTask is one action that raises the profile's admission odds.
// Impact is the estimated gain in percentage points.
type ImprovementTask struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Impact      int      `json:"impact"`
	Category    Category `json:"category"`
	Actionable  string   `json:"actionable,omitempty"`
}

// Improvement is the result of ImprovementTasks.
type Improvement struct {
	Tasks  []ImprovementTask `json:"tasks"`
	Source Source            `json:"source"`
}

// #endregion types

// #region improvement-tasks

// ImprovementTasks asks the oracle for 3 to 6 improvement tasks, highest
// impact first. Any oracle failure falls back to the rule-based list.
func (a *Advisor) ImprovementTasks(ctx context.Context, p Profile) Improvement {
	res := oracle.Invoke(ctx, a.client, oracle.Request{
		TaskKind:    oracle.TaskImprovementTasks,
		Context:     map[string]any{"profile": p},
		Constraints: map[string]any{"minTasks": minImprovementTasks, "maxTasks": maxImprovementTasks, "impactRange": []int{minImpact, maxImpact}},
	}, decodeImprovement)
	if tasks, ok := res.Value(); ok {
		return Improvement{Tasks: tasks, Source: SourceOracle}
	}
	if a.client.Available() {
		a.logger.Info("improvement tasks from rules", zap.String("reason", string(res.Failure().Reason)))
	}
	return Improvement{Tasks: DefaultImprovementTasks(p), Source: SourceFallback}
}

type improvementReply struct {
	Tasks []struct {
		ID          string   `json:"id"`
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Impact      *float64 `json:"impact"`
		Category    string   `json:"category"`
		Actionable  string   `json:"actionable"`
	} `json:"tasks"`
}

// decodeImprovement accepts the task envelope or a bare array. Untitled tasks
// are dropped; impact is clamped to [1,20] and an unknown category becomes
// academic.
func decodeImprovement(raw string) ([]ImprovementTask, error) {
	s, err := schema.Sanitize(raw)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(s, "[") {
		s = `{"tasks":` + s + `}`
	}
	var r improvementReply
	if err := schema.Decode(s, &r); err != nil {
		return nil, err
	}

	tasks := make([]ImprovementTask, 0, len(r.Tasks))
	for i, t := range r.Tasks {
		title := strings.TrimSpace(t.Title)
		if title == "" {
			continue
		}
		impact := defaultImpact
		if t.Impact != nil && !math.IsNaN(*t.Impact) {
			impact = int(math.Round(schema.Clamp(*t.Impact, minImpact, maxImpact)))
		}
		cat := Category(strings.ToLower(strings.TrimSpace(t.Category)))
		if !schema.OneOf(string(cat), string(CategoryAcademic), string(CategoryExperience), string(CategoryTests), string(CategoryDocuments)) {
			cat = CategoryAcademic
		}
		id := strings.TrimSpace(t.ID)
		if id == "" {
			id = fmt.Sprintf("task-%d", i+1)
		}
		tasks = append(tasks, ImprovementTask{
			ID:          id,
			Title:       title,
			Description: strings.TrimSpace(t.Description),
			Impact:      impact,
			Category:    cat,
			Actionable:  strings.TrimSpace(t.Actionable),
		})
	}
	if len(tasks) < minImprovementTasks {
		return nil, fmt.Errorf("%w: %d usable tasks, need %d", schema.ErrInvalid, len(tasks), minImprovementTasks)
	}
	slices.SortStableFunc(tasks, func(x, y ImprovementTask) int { return cmp.Compare(y.Impact, x.Impact) })
	if len(tasks) > maxImprovementTasks {
		tasks = tasks[:maxImprovementTasks]
	}
	return tasks, nil
}

// #endregion improvement-tasks

// #region defaults

// padding tasks apply to any profile and fill the rule-based list up to the
// minimum.
var paddingTasks = []ImprovementTask{
	{ID: "research-scholarships", Title: "Research Scholarships", Description: "List scholarships and assistantships offered by your target universities and note their deadlines.", Impact: 6, Category: CategoryDocuments},
	{ID: "tailor-applications", Title: "Tailor Each Application", Description: "Adapt your essays to each program's strengths and faculty instead of sending one generic version.", Impact: 5, Category: CategoryDocuments},
	{ID: "prepare-interviews", Title: "Prepare for Admission Interviews", Description: "Practice explaining your goals and fit for the program in a short mock interview.", Impact: 4, Category: CategoryExperience},
}

// DefaultImprovementTasks derives tasks from gaps in the profile, highest
// impact first, padded to at least three tasks.
func DefaultImprovementTasks(p Profile) []ImprovementTask {
	var tasks []ImprovementTask
	if p.GPA < 3.0 {
		tasks = append(tasks, ImprovementTask{
			ID:          "improve-gpa",
			Title:       "Strengthen Academic Record",
			Description: "A GPA of 3.5 or higher opens competitive programs. Focus on upcoming coursework or retake key courses.",
			Impact:      15,
			Category:    CategoryAcademic,
		})
	}
	if !p.HasTestScores() {
		tasks = append(tasks, ImprovementTask{
			ID:          "add-test-scores",
			Title:       "Complete Standardized Tests",
			Description: "Most universities require GRE/GMAT and TOEFL/IELTS. Strong scores offset weaker areas.",
			Impact:      20,
			Category:    CategoryTests,
		})
	}
	if len(p.WorkExperience) == 0 {
		tasks = append(tasks, ImprovementTask{
			ID:          "add-experience",
			Title:       "Gain Relevant Experience",
			Description: "Internships, research or projects in your field show commitment and practical skill.",
			Impact:      15,
			Category:    CategoryExperience,
		})
	}
	if strings.TrimSpace(p.SOP) == "" {
		tasks = append(tasks, ImprovementTask{
			ID:          "add-sop",
			Title:       "Draft Statement of Purpose",
			Description: "Connect your background and goals to why each program is the right fit.",
			Impact:      12,
			Category:    CategoryDocuments,
		})
	}
	if n := len(p.LORs); n < 2 {
		desc := "Ask two or three professors or supervisors who know your work for recommendation letters."
		if n == 1 {
			desc = "You have 1 letter. Aim for 2 or 3 recommendations from people who can speak to your strengths."
		}
		tasks = append(tasks, ImprovementTask{
			ID:          "add-lors",
			Title:       "Secure Recommendation Letters",
			Description: desc,
			Impact:      10,
			Category:    CategoryDocuments,
		})
	}
	if len(p.Extracurriculars) == 0 {
		tasks = append(tasks, ImprovementTask{
			ID:          "add-activities",
			Title:       "Showcase Leadership & Activities",
			Description: "Volunteer work and leadership roles show the soft skills admissions committees look for.",
			Impact:      8,
			Category:    CategoryExperience,
		})
	}
	for _, t := range paddingTasks {
		if len(tasks) >= minImprovementTasks {
			break
		}
		tasks = append(tasks, t)
	}
	slices.SortStableFunc(tasks, func(x, y ImprovementTask) int { return cmp.Compare(y.Impact, x.Impact) })
	return tasks
}

// #endregion defaults
