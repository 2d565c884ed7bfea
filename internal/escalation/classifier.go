package escalation

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/barathraj048/Ai-counsler/internal/metrics"
	"github.com/barathraj048/Ai-counsler/internal/oracle"
	"github.com/barathraj048/Ai-counsler/internal/schema"
)

// #region types

// Level grades distress. The order matters: none < mild < moderate < high.
type Level string

const (
	LevelNone     Level = "none"
	LevelMild     Level = "mild"
	LevelModerate Level = "moderate"
	LevelHigh     Level = "high"
)

func (l Level) rank() int {
	switch l {
	case LevelMild:
		return 1
	case LevelModerate:
		return 2
	case LevelHigh:
		return 3
	}
	return 0
}

// Source records which path produced an assessment.
type Source string

const (
	SourceKeyword  Source = "keyword"
	SourceOracle   Source = "oracle"
	SourceFallback Source = "fallback"
	SourceNone     Source = "none"
)

// Assessment is the distress verdict for one message.
type Assessment struct {
	IsDistressed bool     `json:"isDistressed"`
	Level        Level    `json:"distressLevel"`
	Indicators   []string `json:"indicators"`
	Source       Source   `json:"source"`
}

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// historyTail is how many recent turns accompany a distress-check request.
const historyTail = 3

// #endregion types

// #region classifier

// Classifier runs the keyword floor and, only when it finds nothing, the
// oracle distress check.
type Classifier struct {
	keywords KeywordSet
	client   *oracle.Client
	logger   *zap.Logger
}

// NewClassifier creates a classifier. A nil client disables the oracle path.
func NewClassifier(keywords KeywordSet, client *oracle.Client, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{keywords: keywords, client: client, logger: logger.Named("escalation")}
}

// Scan applies the keyword floor alone. ok is false when no phrase matched.
func (c *Classifier) Scan(text string) (Assessment, bool) {
	matches, high := c.keywords.Scan(text)
	if len(matches) == 0 {
		return Assessment{}, false
	}
	level := LevelMild
	switch {
	case high:
		level = LevelHigh
	case len(matches) >= 2:
		level = LevelModerate
	}
	return Assessment{IsDistressed: true, Level: level, Indicators: matches, Source: SourceKeyword}, true
}

// Classify assesses text. A keyword hit is final and never waits on the
// oracle. Oracle failure yields the non-alarming default.
func (c *Classifier) Classify(ctx context.Context, text string, history []Message) Assessment {
	if a, ok := c.Scan(text); ok {
		metrics.DistressAssessment(string(a.Level), string(a.Source))
		return a
	}

	if !c.client.Available() {
		a := Assessment{Level: LevelNone, Indicators: []string{}, Source: SourceNone}
		metrics.DistressAssessment(string(a.Level), string(a.Source))
		return a
	}

	if len(history) > historyTail {
		history = history[len(history)-historyTail:]
	}
	res := oracle.Invoke(ctx, c.client, oracle.Request{
		TaskKind: oracle.TaskDistressCheck,
		Context: map[string]any{
			"message": text,
			"history": history,
		},
	}, decodeDistress)

	a, ok := res.Value()
	if !ok {
		c.logger.Debug("distress check unavailable, defaulting to none", zap.String("reason", string(res.Failure().Reason)))
		a = Assessment{Level: LevelNone, Indicators: []string{}, Source: SourceFallback}
	}
	metrics.DistressAssessment(string(a.Level), string(a.Source))
	return a
}

// #endregion classifier

// #region decode

type distressReply struct {
	IsDistressed *bool    `json:"isDistressed" validate:"required"`
	Level        Level    `json:"distressLevel" validate:"required,oneof=none mild moderate high"`
	Indicators   []string `json:"indicators"`
}

// decodeDistress validates a distress-check reply and reconciles the flag
// with the level: a distressed verdict is at least mild, and a calm verdict
// is always none.
func decodeDistress(raw string) (Assessment, error) {
	var r distressReply
	if err := schema.Decode(raw, &r); err != nil {
		return Assessment{}, err
	}
	a := Assessment{IsDistressed: *r.IsDistressed, Level: r.Level, Indicators: []string{}, Source: SourceOracle}
	for _, ind := range r.Indicators {
		if ind = strings.TrimSpace(ind); ind != "" {
			a.Indicators = append(a.Indicators, ind)
		}
	}
	switch {
	case a.IsDistressed && a.Level == LevelNone:
		a.Level = LevelMild
	case !a.IsDistressed:
		a.Level = LevelNone
	}
	return a, nil
}

// #endregion decode
