package shortlist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/barathraj048/Ai-counsler/internal/schema"
)

// ErrInvalidWeights is returned when a priority weight is outside [0,100].
var ErrInvalidWeights = errors.New("priority weights must be within [0,100]")

// #region tuition

// Tuition is an annual tuition figure in USD. The oracle reports it either as
// a number or as free text such as "$35,000/year"; text that yields no figure
// stays unresolved.
type Tuition struct {
	Amount   float64
	Raw      string
	Resolved bool
}

// USD returns a resolved tuition.
func USD(amount float64) Tuition {
	return Tuition{Amount: amount, Resolved: true}
}

var amountPattern = regexp.MustCompile(`(\d[\d,]*(?:\.\d+)?)(?:\s*([kK])\b)?`)

// ParseUSD extracts the highest figure from s. Ranges resolve to their upper
// bound; a standalone "k" suffix multiplies by 1000. Text with no figure at all
// resolves to zero only when it says the program is free.
func ParseUSD(s string) Tuition {
	t := Tuition{Raw: s}
	for _, m := range amountPattern.FindAllStringSubmatch(s, -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		if m[2] != "" {
			v *= 1000
		}
		if !t.Resolved || v > t.Amount {
			t.Amount = v
			t.Resolved = true
		}
	}
	if !t.Resolved {
		lower := strings.ToLower(s)
		t.Resolved = strings.Contains(lower, "free") || strings.Contains(lower, "no tuition")
	}
	return t
}

func (t *Tuition) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*t = Tuition{}
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = ParseUSD(s)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("tuition: %w", err)
	}
	if v < 0 {
		return fmt.Errorf("tuition: negative amount %v", v)
	}
	*t = USD(v)
	return nil
}

func (t Tuition) MarshalJSON() ([]byte, error) {
	switch {
	case t.Raw != "":
		return json.Marshal(t.Raw)
	case t.Resolved:
		return json.Marshal(t.Amount)
	}
	return []byte("null"), nil
}

// #endregion tuition

// #region candidate

// Candidate is one university in the discovery pool.
type Candidate struct {
	ID               string   `json:"id"`
	Name             string   `json:"name" validate:"nonblank"`
	Country          string   `json:"country" validate:"nonblank"`
	Ranking          float64  `json:"ranking" validate:"gt=0"`
	TuitionFee       Tuition  `json:"tuitionFee"`
	Programs         []string `json:"programs,omitempty"`
	MatchReason      string   `json:"matchReason,omitempty"`
	ProgramRelevance string   `json:"programRelevance,omitempty"`
}

// Validate checks the required candidate fields.
func (c Candidate) Validate() error {
	return schema.Validate(c)
}

// nameKey normalizes a university name for duplicate detection.
func nameKey(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func slug(name string) string {
	return strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

// #endregion candidate

// #region weights

// Dimension is one axis of the priority weights.
type Dimension string

const (
	DimCost     Dimension = "cost"
	DimRanking  Dimension = "ranking"
	DimLocation Dimension = "location"
	DimCareer   Dimension = "career"
)

// precedence breaks ties between equal weights.
var precedence = []Dimension{DimCost, DimRanking, DimLocation, DimCareer}

// PriorityWeights are the student's 0-100 importance sliders.
type PriorityWeights struct {
	Cost     float64 `json:"cost" validate:"gte=0,lte=100"`
	Ranking  float64 `json:"ranking" validate:"gte=0,lte=100"`
	Location float64 `json:"location" validate:"gte=0,lte=100"`
	Career   float64 `json:"career" validate:"gte=0,lte=100"`
}

// Validate rejects weights outside [0,100] and NaN.
func (w PriorityWeights) Validate() error {
	for _, d := range precedence {
		if math.IsNaN(w.Of(d)) {
			return fmt.Errorf("%w: %s is NaN", ErrInvalidWeights, d)
		}
	}
	if err := schema.Validate(w); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWeights, err)
	}
	return nil
}

// Of returns the weight of d.
func (w PriorityWeights) Of(d Dimension) float64 {
	switch d {
	case DimCost:
		return w.Cost
	case DimRanking:
		return w.Ranking
	case DimLocation:
		return w.Location
	case DimCareer:
		return w.Career
	}
	return 0
}

// Ordered returns the dimensions by descending weight, ties broken by
// cost > ranking > location > career.
func (w PriorityWeights) Ordered() []Dimension {
	out := append([]Dimension(nil), precedence...)
	sort.SliceStable(out, func(i, j int) bool {
		return w.Of(out[i]) > w.Of(out[j])
	})
	return out
}

// #endregion weights

// #region profile

// Profile is the part of the student profile the ranker reads.
type Profile struct {
	Field              string         `json:"field,omitempty"`
	TargetDegree       string         `json:"targetDegree,omitempty"`
	Budget             string         `json:"budget,omitempty"`
	Intake             string         `json:"intake,omitempty"`
	GPA                string         `json:"gpa,omitempty"`
	PreferredCountries []string       `json:"preferredCountries,omitempty"`
	TestScores         map[string]any `json:"testScores,omitempty"`
}

// #endregion profile

// #region result

// SubScores are the per-dimension scores in [0,1].
type SubScores struct {
	Cost     float64 `json:"cost"`
	Ranking  float64 `json:"ranking"`
	Location float64 `json:"location"`
	Career   float64 `json:"career"`
}

// Of returns the sub-score of d.
func (s SubScores) Of(d Dimension) float64 {
	return PriorityWeights(s).Of(d)
}

// Entry is a shortlisted candidate.
type Entry struct {
	Candidate
	FitScore  float64   `json:"fitScore"`
	Scores    SubScores `json:"scores"`
	Tradeoffs string    `json:"tradeoffs"`
}

// Result is a validated shortlist: 3 to 6 entries sorted by fit.
type Result struct {
	Shortlist []Entry   `json:"shortlist"`
	Reasoning string    `json:"reasoning"`
	Primary   Dimension `json:"primaryPriority"`
	Secondary Dimension `json:"secondaryPriority"`
	Invalid   int       `json:"invalid"`
	Vetoed    int       `json:"vetoed"`
	BelowFit  int       `json:"belowFit"`
}

// #endregion result
