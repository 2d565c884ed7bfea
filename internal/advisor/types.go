// Package advisor produces the profile-driven guidance around the interview:
// improvement tasks, the journey dashboard and in-chat task suggestions. Every
// operation has a deterministic answer when the oracle is unavailable.
package advisor

import (
	"strings"

	"go.uber.org/zap"

	"github.com/barathraj048/Ai-counsler/internal/oracle"
)

// #region enums

// Category groups improvement tasks.
type Category string

const (
	CategoryAcademic   Category = "academic"
	CategoryExperience Category = "experience"
	CategoryTests      Category = "tests"
	CategoryDocuments  Category = "documents"
)

// Priority ranks todos and suggested tasks.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// StageStatus is the progress of one journey stage.
type StageStatus string

const (
	StageCompleted StageStatus = "completed"
	StageCurrent   StageStatus = "current"
	StageUpcoming  StageStatus = "upcoming"
)

// Source records whether a result came from the oracle or the rule-based
// fallback.
type Source string

const (
	SourceOracle   Source = "oracle"
	SourceFallback Source = "fallback"
)

// #endregion enums

// #region profile

// Profile is the student record the advisor reasons about. Zero values mean
// "not provided".
type Profile struct {
	Field              string             `json:"field,omitempty"`
	TargetDegree       string             `json:"targetDegree,omitempty"`
	Intake             string             `json:"intake,omitempty"`
	Budget             string             `json:"budget,omitempty"`
	PreferredCountries []string           `json:"preferredCountries,omitempty"`
	GPA                float64            `json:"gpa,omitempty"`
	TestScores         map[string]float64 `json:"testScores,omitempty"`
	WorkExperience     []string           `json:"workExperience,omitempty"`
	SOP                string             `json:"sop,omitempty"`
	LORs               []string           `json:"lors,omitempty"`
	Extracurriculars   []string           `json:"extracurriculars,omitempty"`
	Publications       []string           `json:"publications,omitempty"`
}

// admissionTests are the scores that count as "has test scores".
var admissionTests = []string{"gre", "gmat", "toefl", "ielts"}

// HasTestScores reports whether any admission or language test score is set.
func (p Profile) HasTestScores() bool {
	return p.hasScore(admissionTests...)
}

// hasScore reports whether any of the named tests has a positive score.
// Names match case-insensitively.
func (p Profile) hasScore(tests ...string) bool {
	for k, v := range p.TestScores {
		for _, t := range tests {
			if strings.EqualFold(k, t) && v > 0 {
				return true
			}
		}
	}
	return false
}

// #endregion profile

// #region advisor

// Advisor runs the guidance operations. A nil client means every operation
// answers from its fallback.
type Advisor struct {
	client *oracle.Client
	logger *zap.Logger
}

// New creates an advisor.
func New(client *oracle.Client, logger *zap.Logger) *Advisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Advisor{client: client, logger: logger.Named("advisor")}
}

// #endregion advisor
