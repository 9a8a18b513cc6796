package engine

import (
	"context"
	"math"
)

// Decision answers a yes/no query.
type Decision struct {
	Valid bool `json:"valid"`
	Stats
}

// Ranking is an ordered list of full configurations, best first.
type Ranking struct {
	Configurations []RankedConfiguration `json:"configurations"`
	Stats
}

// Count is the number of consistent full configurations.
type Count struct {
	Configurations int64 `json:"configurations"`
	Stats
}

// ExistsValid reports whether at least one full configuration is consistent.
// It stops at the first one found.
func (m *Model) ExistsValid(ctx context.Context, opts Options) (Decision, error) {
	out, err := m.run(ctx, query{mode: modeExists}, opts)
	if err != nil {
		return Decision{}, err
	}
	return Decision{Valid: out.found, Stats: out.stats}, nil
}

// MinimizeImpact returns the limit consistent configurations whose aggregate
// is closest to MinImpact, ascending.
func (m *Model) MinimizeImpact(ctx context.Context, limit int, opts Options) (Ranking, error) {
	return m.NearestToTarget(ctx, MinImpact, limit, opts)
}

// MaximizeImpact returns the limit consistent configurations whose aggregate
// is closest to MaxImpact.
func (m *Model) MaximizeImpact(ctx context.Context, limit int, opts Options) (Ranking, error) {
	return m.NearestToTarget(ctx, MaxImpact, limit, opts)
}

// NearestToTarget returns the limit consistent configurations whose aggregate
// is closest to target. Equal distances keep discovery order.
func (m *Model) NearestToTarget(ctx context.Context, target float64, limit int, opts Options) (Ranking, error) {
	if err := checkLimit(limit); err != nil {
		return Ranking{}, err
	}
	if err := checkImpact("impact", target); err != nil {
		return Ranking{}, err
	}
	return m.rank(ctx, query{mode: modeRank, obj: objective{target: target}, limit: limit}, opts)
}

// FilterByRange returns up to limit consistent configurations whose aggregate
// lies in [lo, hi], lowest aggregate first.
func (m *Model) FilterByRange(ctx context.Context, lo, hi float64, limit int, opts Options) (Ranking, error) {
	if err := checkLimit(limit); err != nil {
		return Ranking{}, err
	}
	if err := checkImpact("min_threshold", lo); err != nil {
		return Ranking{}, err
	}
	if err := checkImpact("max_threshold", hi); err != nil {
		return Ranking{}, err
	}
	if lo > hi {
		return Ranking{}, inputErr("min_threshold", "%g is greater than max_threshold %g", lo, hi)
	}
	q := query{
		mode:  modeRank,
		obj:   objective{lowest: true, bounded: true, min: lo, max: hi},
		limit: limit,
	}
	return m.rank(ctx, q, opts)
}

// ValidateGiven checks a caller-supplied full or partial configuration.
// Names that do not exist in the graph are an InputError; packages outside
// the scope are ignored.
func (m *Model) ValidateGiven(cfg Configuration) (bool, error) {
	if len(cfg) == 0 {
		return false, inputErr("config", "no package assigned")
	}
	a, err := m.Resolve(cfg)
	if err != nil {
		return false, err
	}
	if m.Empty() {
		return false, ErrEmptyScope
	}
	return IsConsistent(m.scope, a), nil
}

// CompletePartial keeps the assignments of cfg and searches the remaining
// packages for the consistent completion whose full aggregate is closest to
// MinImpact. The ranking is empty when no completion exists.
func (m *Model) CompletePartial(ctx context.Context, cfg Configuration, opts Options) (Ranking, error) {
	fixed, err := m.fixedChoice(cfg)
	if err != nil {
		return Ranking{}, err
	}
	q := query{mode: modeRank, obj: objective{target: MinImpact}, limit: 1, fixed: fixed}
	return m.rank(ctx, q, opts)
}

// CountConfigurations counts the consistent full configurations.
func (m *Model) CountConfigurations(ctx context.Context, opts Options) (Count, error) {
	out, err := m.run(ctx, query{mode: modeCount}, opts)
	if err != nil {
		return Count{}, err
	}
	return Count{Configurations: out.count, Stats: out.stats}, nil
}

func (m *Model) rank(ctx context.Context, q query, opts Options) (Ranking, error) {
	out, err := m.run(ctx, q, opts)
	if err != nil {
		return Ranking{}, err
	}
	r := Ranking{
		Configurations: make([]RankedConfiguration, 0, len(out.entries)),
		Stats:          out.stats,
	}
	for _, e := range out.entries {
		r.Configurations = append(r.Configurations, RankedConfiguration{
			Configuration: m.configuration(e.choice),
			Impact:        e.agg,
		})
	}
	return r, nil
}

func checkLimit(limit int) error {
	if limit < 1 {
		return inputErr("limit", "must be >= 1, got %d", limit)
	}
	return nil
}

func checkImpact(field string, x float64) error {
	if math.IsNaN(x) || x < MinImpact || x > MaxImpact {
		return inputErr(field, "must be within [%g, %g], got %g", MinImpact, MaxImpact, x)
	}
	return nil
}
