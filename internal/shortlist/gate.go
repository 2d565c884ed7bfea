package shortlist

import "fmt"

// #region veto-type

// VetoType enumerates hard filter categories.
type VetoType string

const (
	VetoTuitionCeiling VetoType = "tuition_ceiling"
	VetoRankingCeiling VetoType = "ranking_ceiling"
)

// VetoSignal is one hard filter a candidate failed.
type VetoSignal struct {
	Type   VetoType `json:"type"`
	Reason string   `json:"reason"`
}

// #endregion veto-type

// #region gate-config

// GateConfig holds the hard filter thresholds.
type GateConfig struct {
	CriticalWeight    float64 `yaml:"critical_weight"`     // a weight at or above this arms its filter
	TuitionCeilingUSD float64 `yaml:"tuition_ceiling_usd"` // max annual tuition once cost is critical
	RankingCeiling    float64 `yaml:"ranking_ceiling"`     // worst acceptable rank once ranking is critical
}

// DefaultGateConfig returns the product thresholds.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		CriticalWeight:    70,
		TuitionCeilingUSD: 40000,
		RankingCeiling:    100,
	}
}

// #endregion gate-config

// #region gate

// GateDecision is the gate verdict for one candidate.
type GateDecision struct {
	Action      string // "keep" | "drop"
	Vetoed      bool
	VetoSignals []VetoSignal
}

// Gate applies hard filters that no score can override.
type Gate struct {
	config GateConfig
}

// NewGate creates a gate with the given configuration.
func NewGate(config GateConfig) *Gate {
	return &Gate{config: config}
}

// Evaluate checks every armed filter. Unresolved tuition never trips the
// tuition filter.
func (g *Gate) Evaluate(c Candidate, w PriorityWeights) GateDecision {
	var vetoes []VetoSignal

	if w.Cost >= g.config.CriticalWeight && c.TuitionFee.Resolved && c.TuitionFee.Amount > g.config.TuitionCeilingUSD {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoTuitionCeiling,
			Reason: fmt.Sprintf("tuition %.0f exceeds %.0f", c.TuitionFee.Amount, g.config.TuitionCeilingUSD),
		})
	}

	if w.Ranking >= g.config.CriticalWeight && c.Ranking > g.config.RankingCeiling {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoRankingCeiling,
			Reason: fmt.Sprintf("rank %.0f worse than %.0f", c.Ranking, g.config.RankingCeiling),
		})
	}

	if len(vetoes) > 0 {
		return GateDecision{Action: "drop", Vetoed: true, VetoSignals: vetoes}
	}
	return GateDecision{Action: "keep"}
}

// #endregion gate
