package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewServer creates an MCP server with the graph and configuration tools
// registered.
func NewServer(svc *Service) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "depsolve",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "load_graph",
		Description: "Load a dependency graph document (YAML or JSON) from a path or inline text and store it under its id. Replaces any graph with the same id.",
	}, svc.LoadGraph)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_graphs",
		Description: "List the stored dependency graphs with package, version and edge counts.",
	}, svc.ListGraphs)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "graph_info",
		Description: "Summarize the part of a graph within maxLevel: packages, versions, edges, vulnerable versions and the raw size of the configuration space.",
	}, svc.GraphInfo)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "valid_graph",
		Description: "Report whether at least one configuration satisfies every dependency constraint within maxLevel.",
	}, svc.ValidGraph)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "count_configs",
		Description: "Count the configurations that satisfy every dependency constraint within maxLevel.",
	}, svc.CountConfigs)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "minimize_impact",
		Description: "Return the valid configurations with the lowest aggregate vulnerability impact, best first.",
	}, svc.MinimizeImpact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "maximize_impact",
		Description: "Return the valid configurations with the highest aggregate vulnerability impact, best first.",
	}, svc.MaximizeImpact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "filter_configs",
		Description: "Return valid configurations whose aggregate impact lies within [minThreshold, maxThreshold], lowest first.",
	}, svc.FilterConfigs)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "config_by_impact",
		Description: "Return the valid configurations whose aggregate impact is closest to a target value.",
	}, svc.ConfigByImpact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "valid_config",
		Description: "Check whether a full or partial configuration (package to version) satisfies the dependency constraints.",
	}, svc.ValidConfig)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "complete_config",
		Description: "Complete a partial configuration with the lowest-impact valid choice for every other package. Given assignments are never changed.",
	}, svc.CompleteConfig)

	return server
}

// RunStdio runs the MCP server on stdio transport, blocking until stdin is
// closed or the context is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the MCP tools over streamable HTTP on addr.
func RunHTTP(ctx context.Context, server *mcp.Server, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
