package operation

import (
	"github.com/dusk-indust/depsolve/internal/engine"
	"github.com/dusk-indust/depsolve/internal/graph"
)

// Status tags the outcome of an operation.
type Status string

const (
	// StatusSuccess: the query ran to completion. A boolean answer may still
	// be false.
	StatusSuccess Status = "operation_success"
	// StatusNoDependencies: no package lies within the depth bound.
	StatusNoDependencies Status = "no_dependencies"
	// StatusNoSolution: the search space was exhausted without a matching
	// configuration.
	StatusNoSolution Status = "no_solution"
	// StatusTruncated: the search budget ran out; any payload is incomplete.
	StatusTruncated Status = "search_truncated"
)

// Result is the envelope returned for every operation.
type Result struct {
	RequestID  string `json:"requestId"`
	Operation  Kind   `json:"operation"`
	GraphID    string `json:"graphId"`
	MaxDepth   string `json:"maxDepth"`
	Aggregator string `json:"aggregator,omitempty"`
	Status     Status `json:"status"`

	Valid          *bool                        `json:"valid,omitempty"`
	Configurations []engine.RankedConfiguration `json:"configurations,omitempty"`
	Count          *int64                       `json:"count,omitempty"`
	Info           *graph.Info                  `json:"info,omitempty"`

	Stats engine.Stats `json:"stats"`
}

func (r *Result) setStats(s engine.Stats) {
	r.Stats = s
	if s.Truncated {
		r.Status = StatusTruncated
	}
}
