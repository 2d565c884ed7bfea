package shortlist

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/barathraj048/Ai-counsler/internal/oracle"
)

// #region constants

const (
	DefaultMinFit     = 60.0
	DefaultMinEntries = 3
	DefaultMaxEntries = 6

	// costScale is the tuition at which the cost sub-score reaches zero.
	costScale = 100000.0
	// rankScale is the rank span over which the ranking sub-score decays.
	rankScale = 500.0
)

// #endregion constants

// #region ranker

// RankConfig bounds the shortlist.
type RankConfig struct {
	Gate       GateConfig `yaml:"gate"`
	MinFit     float64    `yaml:"min_fit"`
	MinEntries int        `yaml:"min_entries"`
	MaxEntries int        `yaml:"max_entries"`
}

// DefaultRankConfig returns the product bounds.
func DefaultRankConfig() RankConfig {
	return RankConfig{
		Gate:       DefaultGateConfig(),
		MinFit:     DefaultMinFit,
		MinEntries: DefaultMinEntries,
		MaxEntries: DefaultMaxEntries,
	}
}

// Ranker is the deterministic half of the shortlist: the same inputs always
// give the same output.
type Ranker struct {
	gate   *Gate
	config RankConfig
}

// NewRanker creates a ranker.
func NewRanker(config RankConfig) *Ranker {
	return &Ranker{gate: NewGate(config.Gate), config: config}
}

// #endregion ranker

// #region rank

type scored struct {
	entry Entry
	raw   float64
}

// Rank filters, scores and orders candidates. Candidates failing Validate are
// dropped before the gate. Fewer than MinEntries survivors is an
// insufficient-matches failure.
func (r *Ranker) Rank(candidates []Candidate, weights PriorityWeights, profile Profile) (Result, error) {
	if err := weights.Validate(); err != nil {
		return Result{}, err
	}
	order := weights.Ordered()
	res := Result{Primary: order[0], Secondary: order[1]}

	var kept []scored
	for _, c := range candidates {
		if c.Validate() != nil {
			res.Invalid++
			continue
		}
		if d := r.gate.Evaluate(c, weights); d.Vetoed {
			res.Vetoed++
			continue
		}
		subs := subScores(c, profile)
		fit := fitScore(subs, weights)
		if fit < r.config.MinFit {
			res.BelowFit++
			continue
		}
		kept = append(kept, scored{
			entry: Entry{Candidate: c, FitScore: math.Round(fit*10) / 10, Scores: subs},
			raw:   fit,
		})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if a.raw != b.raw {
			return a.raw > b.raw
		}
		for _, d := range order[:2] {
			if sa, sb := a.entry.Scores.Of(d), b.entry.Scores.Of(d); sa != sb {
				return sa > sb
			}
		}
		if a.entry.Name != b.entry.Name {
			return a.entry.Name < b.entry.Name
		}
		return a.entry.ID < b.entry.ID
	})

	if len(kept) < r.config.MinEntries {
		return res, &oracle.Failure{
			Reason: oracle.FailInsufficientMatches,
			Task:   oracle.TaskShortlist,
			Err: fmt.Errorf("only %d of %d candidates passed (%d invalid, %d vetoed, %d below fit %.0f); "+
				"lower the cost or ranking weight below %.0f or discover more universities",
				len(kept), len(candidates), res.Invalid, res.Vetoed, res.BelowFit, r.config.MinFit, r.config.Gate.CriticalWeight),
		}
	}
	if len(kept) > r.config.MaxEntries {
		kept = kept[:r.config.MaxEntries]
	}

	res.Shortlist = make([]Entry, len(kept))
	for i, k := range kept {
		k.entry.Tradeoffs = defaultTradeoff(k.entry, order)
		res.Shortlist[i] = k.entry
	}
	res.Reasoning = defaultReasoning(res, weights, len(candidates))
	return res, nil
}

// #endregion rank

// #region scoring

func subScores(c Candidate, p Profile) SubScores {
	rank := clamp01(1 - (c.Ranking-1)/rankScale)
	return SubScores{
		Cost:     costScore(c.TuitionFee),
		Ranking:  rank,
		Location: locationScore(c.Country, p.PreferredCountries),
		Career:   0.5*programMatch(c.Programs, p.Field) + 0.5*rank,
	}
}

func costScore(t Tuition) float64 {
	if !t.Resolved {
		return 0.5
	}
	return clamp01(1 - t.Amount/costScale)
}

func locationScore(country string, preferred []string) float64 {
	if len(preferred) == 0 {
		return 0.6
	}
	c := strings.ToLower(strings.TrimSpace(country))
	for _, p := range preferred {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" && (strings.Contains(c, p) || strings.Contains(p, c)) {
			return 1.0
		}
	}
	return 0.3
}

func programMatch(programs []string, field string) float64 {
	field = strings.ToLower(strings.TrimSpace(field))
	if field == "" || len(programs) == 0 {
		return 0.5
	}
	for _, prog := range programs {
		prog = strings.ToLower(prog)
		if strings.Contains(prog, field) || strings.Contains(field, prog) {
			return 1.0
		}
	}
	return 0.4
}

// fitScore is the weighted mean of the sub-scores on a 0-100 scale. Weights
// are squared so the dominant priorities carry most of the score.
func fitScore(s SubScores, w PriorityWeights) float64 {
	var num, den float64
	for _, d := range precedence {
		wd := w.Of(d) * w.Of(d)
		num += wd * s.Of(d)
		den += wd
	}
	if den == 0 {
		return 100 * (s.Cost + s.Ranking + s.Location + s.Career) / 4
	}
	return 100 * num / den
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// #endregion scoring

// #region text

func defaultTradeoff(e Entry, order []Dimension) string {
	weakest := order[0]
	for _, d := range order {
		if e.Scores.Of(d) < e.Scores.Of(weakest) {
			weakest = d
		}
	}
	switch weakest {
	case DimCost:
		if e.TuitionFee.Resolved {
			return fmt.Sprintf("Higher tuition (about $%.0f/year) than cheaper options", e.TuitionFee.Amount)
		}
		return "Tuition is not confirmed"
	case DimRanking:
		return fmt.Sprintf("Lower global ranking (#%.0f)", e.Ranking)
	case DimLocation:
		return "Outside your preferred countries"
	}
	return "Weaker program alignment with your field"
}

func defaultReasoning(res Result, w PriorityWeights, pool int) string {
	return fmt.Sprintf("Ranked by %s (%.0f/100) first and %s (%.0f/100) second; shortlisted %d of %d universities.",
		res.Primary, w.Of(res.Primary), res.Secondary, w.Of(res.Secondary), len(res.Shortlist), pool)
}

// #endregion text
