//go:build e2e

package e2e

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/depsolve/internal/graph"
	"github.com/dusk-indust/depsolve/internal/operation"
)

// TestWebapp_Counts checks the size of the webapp configuration space:
// 8 flask-side choices, 2 markupsafe versions and 8 requests-side choices.
func TestWebapp_Counts(t *testing.T) {
	d := newDispatcher(t, graph.NewMemStore(), 1)

	res := run(t, d, namedRequest{"count", operation.Request{
		Operation: operation.CountConfigs, GraphID: "webapp", MaxDepth: int(graph.Unbounded),
	}})
	require.NotNil(t, res.Count)
	assert.Equal(t, int64(128), *res.Count)

	res = run(t, d, namedRequest{"info", operation.Request{
		Operation: operation.GraphInfo, GraphID: "webapp", MaxDepth: int(graph.Unbounded),
	}})
	require.NotNil(t, res.Info)
	assert.Equal(t, "432", res.Info.SearchSpace)
	assert.Equal(t, 7, res.Info.Packages)
}

// TestWebapp_RankedConfigurationsAreValid feeds every configuration returned
// by a ranking query back through valid_config.
func TestWebapp_RankedConfigurationsAreValid(t *testing.T) {
	d := newDispatcher(t, graph.NewMemStore(), 1)

	for _, nr := range webappRequests() {
		res := run(t, d, nr)
		for _, rc := range res.Configurations {
			check, err := d.Dispatch(context.Background(), operation.Request{
				Operation: operation.ValidConfig,
				GraphID:   nr.req.GraphID,
				MaxDepth:  nr.req.MaxDepth,
				Config:    rc.Configuration,
			})
			require.NoError(t, err)
			require.NotNil(t, check.Valid)
			assert.True(t, *check.Valid, "%s returned an invalid configuration %v", nr.name, rc.Configuration)
		}
	}
}

// TestWebapp_ParallelMatchesSequential runs the suite with one worker and
// with several and expects identical results.
func TestWebapp_ParallelMatchesSequential(t *testing.T) {
	seq := newDispatcher(t, graph.NewMemStore(), 1)
	par := newDispatcher(t, graph.NewMemStore(), 4)

	for _, nr := range webappRequests() {
		a := run(t, seq, nr)
		b := run(t, par, nr)
		// Expansion counts depend on how work was split.
		a.Stats.Expansions, b.Stats.Expansions = 0, 0
		assert.Equal(t, a, b, nr.name)
	}
}
