package shortlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/barathraj048/Ai-counsler/internal/metrics"
	"github.com/barathraj048/Ai-counsler/internal/oracle"
	"github.com/barathraj048/Ai-counsler/internal/schema"
)

// Service runs discovery through the oracle and ranking through the Ranker.
type Service struct {
	client *oracle.Client
	ranker *Ranker
	logger *zap.Logger
}

// NewService creates a shortlist service.
func NewService(client *oracle.Client, ranker *Ranker, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: client, ranker: ranker, logger: logger.Named("shortlist")}
}

// #region discover

// DecodePool parses a discovery reply. Candidates are validated one by one:
// invalid entries are dropped, duplicates by normalized name keep the first.
// A reply whose envelope is not JSON is a schema error; an envelope with no
// usable candidate yields an empty pool.
func DecodePool(raw string) ([]Candidate, error) {
	s, err := schema.Sanitize(raw)
	if err != nil {
		return nil, err
	}

	var items []json.RawMessage
	if strings.HasPrefix(s, "[") {
		if err := json.Unmarshal([]byte(s), &items); err != nil {
			return nil, fmt.Errorf("%w: %v", schema.ErrNotJSON, err)
		}
	} else {
		var env struct {
			Universities []json.RawMessage `json:"universities"`
			Candidates   []json.RawMessage `json:"candidates"`
		}
		if err := json.Unmarshal([]byte(s), &env); err != nil {
			return nil, fmt.Errorf("%w: %v", schema.ErrNotJSON, err)
		}
		items = append(env.Universities, env.Candidates...)
	}

	seenName := make(map[string]bool, len(items))
	seenID := make(map[string]bool, len(items))
	out := make([]Candidate, 0, len(items))
	for _, item := range items {
		var c Candidate
		if err := json.Unmarshal(item, &c); err != nil {
			continue
		}
		if err := c.Validate(); err != nil {
			continue
		}
		key := nameKey(c.Name)
		if seenName[key] {
			continue
		}
		seenName[key] = true

		c.ID = strings.TrimSpace(c.ID)
		if c.ID == "" || seenID[c.ID] {
			c.ID = slug(c.Name)
		}
		for n := 2; seenID[c.ID]; n++ {
			c.ID = fmt.Sprintf("%s-%d", slug(c.Name), n)
		}
		seenID[c.ID] = true
		out = append(out, c)
	}
	return out, nil
}

// Discover asks the oracle for a broad candidate pool for profile.
func (s *Service) Discover(ctx context.Context, profile Profile) oracle.Result[[]Candidate] {
	res := oracle.Invoke(ctx, s.client, oracle.Request{
		TaskKind: oracle.TaskDiscovery,
		Context:  map[string]any{"profile": profile},
		Constraints: map[string]any{
			"poolSize": "15-20",
		},
	}, DecodePool)

	pool, ok := res.Value()
	if !ok {
		metrics.ShortlistOutcome("discovery_" + string(res.Failure().Reason))
		return res
	}
	if len(pool) == 0 {
		metrics.ShortlistOutcome(string(oracle.FailEmptyPool))
		return oracle.Failed[[]Candidate](&oracle.Failure{
			Reason: oracle.FailEmptyPool,
			Task:   oracle.TaskDiscovery,
		})
	}
	s.logger.Debug("discovered pool", zap.Int("candidates", len(pool)))
	return res
}

// #endregion discover

// #region shortlist

// decoration is the optional shortlist reply: wording only.
type decoration struct {
	Reasoning string            `json:"reasoning" validate:"nonblank"`
	Tradeoffs map[string]string `json:"tradeoffs"`
}

func decodeDecoration(raw string) (decoration, error) {
	var d decoration
	err := schema.Decode(raw, &d)
	return d, err
}

// Shortlist ranks candidates deterministically, then asks the oracle to word
// the reasoning and tradeoffs. The oracle never changes membership or order.
func (s *Service) Shortlist(ctx context.Context, candidates []Candidate, weights PriorityWeights, profile Profile) (Result, error) {
	res, err := s.ranker.Rank(candidates, weights, profile)
	if err != nil {
		metrics.ShortlistOutcome(outcomeOf(err))
		return res, err
	}
	metrics.ShortlistOutcome("ok")

	if !s.client.Available() {
		return res, nil
	}

	entries := make([]map[string]any, len(res.Shortlist))
	for i, e := range res.Shortlist {
		entries[i] = map[string]any{
			"id":         e.ID,
			"name":       e.Name,
			"country":    e.Country,
			"ranking":    e.Ranking,
			"tuitionFee": e.TuitionFee,
			"fitScore":   e.FitScore,
		}
	}
	dec := oracle.Invoke(ctx, s.client, oracle.Request{
		TaskKind: oracle.TaskShortlist,
		Context: map[string]any{
			"profile":   profile,
			"weights":   weights,
			"shortlist": entries,
		},
		Constraints: map[string]any{
			"primaryPriority":   res.Primary,
			"secondaryPriority": res.Secondary,
		},
	}, decodeDecoration)

	d, ok := dec.Value()
	if !ok {
		return res, nil
	}
	res.Reasoning = strings.TrimSpace(d.Reasoning)
	for i := range res.Shortlist {
		if t := strings.TrimSpace(d.Tradeoffs[res.Shortlist[i].ID]); t != "" {
			res.Shortlist[i].Tradeoffs = t
		}
	}
	return res, nil
}

func outcomeOf(err error) string {
	var f *oracle.Failure
	if errors.As(err, &f) {
		return string(f.Reason)
	}
	return "invalid_input"
}

// #endregion shortlist
