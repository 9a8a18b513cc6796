package mcptools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/depsolve/internal/engine"
	"github.com/dusk-indust/depsolve/internal/graph"
	"github.com/dusk-indust/depsolve/internal/operation"
)

// DefaultLimit applies when a ranking tool is called without a limit.
const DefaultLimit = 10

// Service holds the dispatcher used by MCP tool handlers.
type Service struct {
	dispatcher *operation.Dispatcher
}

// NewService creates a Service answering through d.
func NewService(d *operation.Dispatcher) *Service {
	return &Service{dispatcher: d}
}

// LoadGraph parses a graph document from a file or inline text and stores it.
func (s *Service) LoadGraph(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input LoadGraphInput,
) (*mcp.CallToolResult, LoadGraphOutput, error) {
	var (
		doc graph.Document
		err error
	)
	switch {
	case input.Path != "":
		doc, err = graph.ReadDocument(input.Path)
	case strings.TrimSpace(input.Document) != "":
		doc, err = graph.ParseDocument([]byte(input.Document))
	default:
		err = fmt.Errorf("path or document is required")
	}
	if err != nil {
		return nil, LoadGraphOutput{}, err
	}
	if input.ID != "" {
		doc.ID = input.ID
	}

	summary, err := s.dispatcher.Load(ctx, doc)
	if err != nil {
		return nil, LoadGraphOutput{}, err
	}
	return nil, LoadGraphOutput{Graph: toSummary(summary)}, nil
}

// ListGraphs returns every stored graph.
func (s *Service) ListGraphs(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListGraphsInput,
) (*mcp.CallToolResult, ListGraphsOutput, error) {
	list, err := s.dispatcher.Store().ListGraphs(ctx)
	if err != nil {
		return nil, ListGraphsOutput{}, fmt.Errorf("list graphs: %w", err)
	}
	out := ListGraphsOutput{Graphs: make([]GraphSummary, 0, len(list))}
	for _, g := range list {
		out.Graphs = append(out.Graphs, toSummary(g))
	}
	return nil, out, nil
}

// GraphInfo summarizes the in-scope part of a graph.
func (s *Service) GraphInfo(ctx context.Context, _ *mcp.CallToolRequest, input GraphQueryInput) (*mcp.CallToolResult, operation.Result, error) {
	return s.dispatch(ctx, operation.GraphInfo, input.request())
}

// ValidGraph reports whether any consistent configuration exists.
func (s *Service) ValidGraph(ctx context.Context, _ *mcp.CallToolRequest, input GraphQueryInput) (*mcp.CallToolResult, operation.Result, error) {
	return s.dispatch(ctx, operation.ValidGraph, input.request())
}

// CountConfigs counts the consistent configurations.
func (s *Service) CountConfigs(ctx context.Context, _ *mcp.CallToolRequest, input GraphQueryInput) (*mcp.CallToolResult, operation.Result, error) {
	return s.dispatch(ctx, operation.CountConfigs, input.request())
}

// MinimizeImpact ranks configurations by lowest aggregate impact.
func (s *Service) MinimizeImpact(ctx context.Context, _ *mcp.CallToolRequest, input ImpactQueryInput) (*mcp.CallToolResult, operation.Result, error) {
	return s.dispatch(ctx, operation.MinimizeImpact, input.request())
}

// MaximizeImpact ranks configurations by highest aggregate impact.
func (s *Service) MaximizeImpact(ctx context.Context, _ *mcp.CallToolRequest, input ImpactQueryInput) (*mcp.CallToolResult, operation.Result, error) {
	return s.dispatch(ctx, operation.MaximizeImpact, input.request())
}

// FilterConfigs lists configurations whose aggregate lies in a range.
func (s *Service) FilterConfigs(ctx context.Context, _ *mcp.CallToolRequest, input FilterConfigsInput) (*mcp.CallToolResult, operation.Result, error) {
	return s.dispatch(ctx, operation.FilterConfigs, input.request())
}

// ConfigByImpact ranks configurations by distance to a target impact.
func (s *Service) ConfigByImpact(ctx context.Context, _ *mcp.CallToolRequest, input ConfigByImpactInput) (*mcp.CallToolResult, operation.Result, error) {
	return s.dispatch(ctx, operation.ConfigByImpact, input.request())
}

// ValidConfig checks a caller-supplied configuration.
func (s *Service) ValidConfig(ctx context.Context, _ *mcp.CallToolRequest, input ConfigInput) (*mcp.CallToolResult, operation.Result, error) {
	return s.dispatch(ctx, operation.ValidConfig, input.request())
}

// CompleteConfig completes a partial configuration with the lowest impact.
func (s *Service) CompleteConfig(ctx context.Context, _ *mcp.CallToolRequest, input ConfigInput) (*mcp.CallToolResult, operation.Result, error) {
	return s.dispatch(ctx, operation.CompleteConfig, input.request())
}

// pendingRequest carries a request whose level conversion may have failed,
// so handlers can build it in one expression.
type pendingRequest struct {
	req operation.Request
	err error
}

func (s *Service) dispatch(ctx context.Context, op operation.Kind, p pendingRequest) (*mcp.CallToolResult, operation.Result, error) {
	if p.err != nil {
		return nil, operation.Result{}, p.err
	}
	p.req.Operation = op
	res, err := s.dispatcher.Dispatch(ctx, p.req)
	if err != nil {
		return nil, operation.Result{}, err
	}
	return nil, *res, nil
}

// partial holds the fields every query tool shares.
type partial struct {
	graphID       string
	maxLevel      *int
	aggregator    string
	maxExpansions int64
	timeoutMs     int64
}

func (p partial) request() pendingRequest {
	depth, err := levelBound(p.maxLevel)
	return pendingRequest{
		req: operation.Request{
			GraphID:       p.graphID,
			MaxDepth:      depth,
			Aggregator:    p.aggregator,
			MaxExpansions: p.maxExpansions,
			Timeout:       time.Duration(p.timeoutMs) * time.Millisecond,
		},
		err: err,
	}
}

func (in GraphQueryInput) request() pendingRequest {
	return partial{in.GraphID, in.MaxLevel, in.Aggregator, in.MaxExpansions, in.TimeoutMs}.request()
}

func (in ImpactQueryInput) request() pendingRequest {
	p := partial{in.GraphID, in.MaxLevel, in.Aggregator, in.MaxExpansions, in.TimeoutMs}.request()
	p.req.Limit = limitOrDefault(in.Limit)
	return p
}

func (in FilterConfigsInput) request() pendingRequest {
	p := partial{in.GraphID, in.MaxLevel, in.Aggregator, in.MaxExpansions, in.TimeoutMs}.request()
	p.req.MinThreshold = in.MinThreshold
	p.req.MaxThreshold = in.MaxThreshold
	p.req.Limit = limitOrDefault(in.Limit)
	return p
}

func (in ConfigByImpactInput) request() pendingRequest {
	p := partial{in.GraphID, in.MaxLevel, in.Aggregator, in.MaxExpansions, in.TimeoutMs}.request()
	p.req.Impact = in.Impact
	p.req.Limit = limitOrDefault(in.Limit)
	return p
}

func (in ConfigInput) request() pendingRequest {
	p := partial{in.GraphID, in.MaxLevel, in.Aggregator, in.MaxExpansions, in.TimeoutMs}.request()
	p.req.Config = in.Config
	return p
}

// levelBound turns a user-facing level into an edge bound: nil and -1 are
// unbounded, 0 keeps no packages, anything else must be >= 1 and is doubled.
func levelBound(level *int) (int, error) {
	if level == nil || *level == -1 {
		return int(graph.Unbounded), nil
	}
	if *level < 0 {
		return 0, &engine.InputError{Field: "maxLevel", Reason: fmt.Sprintf("must be >= 0 or -1, got %d", *level)}
	}
	return int(graph.LevelBound(*level)), nil
}

func limitOrDefault(limit int) int {
	if limit == 0 {
		return DefaultLimit
	}
	return limit
}

func toSummary(g graph.GraphSummary) GraphSummary {
	return GraphSummary{
		ID:        g.ID,
		Ecosystem: g.Ecosystem,
		Moment:    g.Moment.Format(time.RFC3339Nano),
		Stats:     g.Stats,
	}
}
