package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/depsolve/internal/mcptools"
	"github.com/dusk-indust/depsolve/internal/operation"
)

func newServeCmd(a *app) *cobra.Command {
	var httpAddr, metricsAddr string
	cmd := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Run as an MCP server",
		Long: `Serve the graph and configuration tools over MCP. The server speaks stdio
unless --http is given. --metrics-addr additionally exposes Prometheus metrics
at /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(d *operation.Dispatcher) error {
				server := mcptools.NewServer(mcptools.NewService(d))
				var metrics http.Handler
				if metricsAddr != "" {
					metrics = promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})
				}
				return runServers(cmd.Context(), metricsAddr, metrics, func(ctx context.Context) error {
					if httpAddr != "" {
						a.logger.Info("serving MCP over HTTP", "addr", httpAddr)
						return mcptools.RunHTTP(ctx, server, httpAddr)
					}
					return mcptools.RunStdio(ctx, server)
				})
			})
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "serve streamable HTTP on this address instead of stdio")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

// runServers runs serveMCP and, when metricsAddr is set, the metrics endpoint
// next to it. The metrics server stops as soon as serveMCP returns.
func runServers(ctx context.Context, metricsAddr string, metrics http.Handler, serveMCP func(context.Context) error) error {
	g, ctx := errgroup.WithContext(ctx)
	mctx, cancel := context.WithCancel(ctx)
	if metricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(mctx, metricsAddr, metrics)
		})
	}
	g.Go(func() error {
		defer cancel()
		return serveMCP(ctx)
	})
	return g.Wait()
}

func serveMetrics(ctx context.Context, addr string, h http.Handler) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
