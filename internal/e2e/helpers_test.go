//go:build e2e

package e2e

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/depsolve/internal/engine"
	"github.com/dusk-indust/depsolve/internal/graph"
	"github.com/dusk-indust/depsolve/internal/operation"
	"github.com/dusk-indust/depsolve/internal/sampledata"
)

// namedRequest is one query of the end-to-end suite. name doubles as the
// golden file name.
type namedRequest struct {
	name string
	req  operation.Request
}

// webappRequests covers every operation against the webapp sample graph.
func webappRequests() []namedRequest {
	unbounded := int(graph.Unbounded)
	req := func(op operation.Kind) operation.Request {
		return operation.Request{Operation: op, GraphID: "webapp", MaxDepth: unbounded}
	}
	with := func(r operation.Request, f func(*operation.Request)) operation.Request {
		f(&r)
		return r
	}
	return []namedRequest{
		{"graph_info", req(operation.GraphInfo)},
		{"graph_info_level1", with(req(operation.GraphInfo), func(r *operation.Request) { r.MaxDepth = 2 })},
		{"valid_graph", req(operation.ValidGraph)},
		{"count_configs", req(operation.CountConfigs)},
		{"minimize_impact", with(req(operation.MinimizeImpact), func(r *operation.Request) { r.Limit = 5 })},
		{"maximize_impact", with(req(operation.MaximizeImpact), func(r *operation.Request) { r.Limit = 5 })},
		{"maximize_impact_weighted", with(req(operation.MaximizeImpact), func(r *operation.Request) {
			r.Limit = 5
			r.Aggregator = string(engine.WeightedMean)
		})},
		{"filter_configs", with(req(operation.FilterConfigs), func(r *operation.Request) {
			r.Limit = 10
			r.MinThreshold = 4
			r.MaxThreshold = 5
		})},
		{"config_by_impact", with(req(operation.ConfigByImpact), func(r *operation.Request) {
			r.Limit = 3
			r.Impact = 6
		})},
		{"valid_config", with(req(operation.ValidConfig), func(r *operation.Request) {
			r.Config = map[string]string{"flask": "3.0.0", "werkzeug": "2.3.8"}
		})},
		{"complete_config", with(req(operation.CompleteConfig), func(r *operation.Request) {
			r.Config = map[string]string{"requests": "2.28.2"}
		})},
		{"no_dependencies", with(req(operation.MinimizeImpact), func(r *operation.Request) {
			r.MaxDepth = 0
			r.Limit = 1
		})},
	}
}

// newDispatcher returns a dispatcher over store with the webapp graph loaded.
func newDispatcher(t *testing.T, store graph.Store, parallelism int) *operation.Dispatcher {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.InitSchema(ctx))

	d, err := operation.New(store,
		operation.WithDefaults(engine.Options{Aggregator: engine.Mean, Parallelism: parallelism}),
		operation.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)

	doc, err := sampledata.Document("webapp")
	require.NoError(t, err)
	_, err = d.Load(ctx, doc)
	require.NoError(t, err)
	return d
}

// run dispatches nr and clears the per-request id so results compare.
func run(t *testing.T, d *operation.Dispatcher, nr namedRequest) *operation.Result {
	t.Helper()
	res, err := d.Dispatch(context.Background(), nr.req)
	require.NoError(t, err, nr.name)
	res.RequestID = ""
	return res
}
