package engine

import (
	"fmt"
	"strings"

	"github.com/dusk-indust/depsolve/internal/graph"
)

// Aggregator selects how a configuration's impact scores are reduced to one
// value. Both kinds average over the packages whose chosen version has a
// non-zero impact: a zero impact means no known vulnerability and does not
// dilute the result. A configuration without any impact aggregates to 0.
type Aggregator string

const (
	// Mean is the arithmetic mean.
	Mean Aggregator = "mean"
	// WeightedMean weights each package's impact by the package weight
	// carried in the graph. A package of weight 0 is ignored.
	WeightedMean Aggregator = "weighted_mean"
)

// Impact scores are in [MinImpact, MaxImpact]; thresholds and targets given
// by callers must lie in this range.
const (
	MinImpact = graph.MinImpact
	MaxImpact = graph.MaxImpact
)

// ParseAggregator maps a name to an Aggregator. The empty string is Mean.
func ParseAggregator(name string) (Aggregator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", string(Mean):
		return Mean, nil
	case string(WeightedMean), "weighted-mean", "weightedmean":
		return WeightedMean, nil
	}
	return "", inputErr("aggregator", "unknown aggregator %q (want %s or %s)", name, Mean, WeightedMean)
}

func (a Aggregator) String() string { return string(a) }

// weights returns the per-position weight vector.
func (a Aggregator) weights(m *Model) ([]float64, error) {
	w := make([]float64, m.n)
	switch a {
	case Mean, "":
		for p := range w {
			w[p] = 1
		}
	case WeightedMean:
		for p := range w {
			w[p] = m.scope.Package(p).Weight
		}
	default:
		return nil, fmt.Errorf("engine: %w", inputErr("aggregator", "unknown aggregator %q", string(a)))
	}
	return w, nil
}

// contributes reports whether an impact under weight w enters the average.
func contributes(w, impact float64) bool {
	return w > 0 && impact != 0
}

func ratio(sum, total float64) float64 {
	if total == 0 {
		return 0
	}
	return sum / total
}

// Aggregate reduces a full configuration to one impact value. Partial
// configurations are rejected.
func (m *Model) Aggregate(cfg Configuration, kind Aggregator) (float64, error) {
	if m.Empty() {
		return 0, ErrEmptyScope
	}
	choice, err := m.fullChoice(cfg)
	if err != nil {
		return 0, err
	}
	w, err := kind.weights(m)
	if err != nil {
		return 0, err
	}
	var sum, total float64
	for p, v := range choice {
		x := m.impacts[p][v]
		sum += w[p] * x
		if contributes(w[p], x) {
			total += w[p]
		}
	}
	return ratio(sum, total), nil
}
