package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/depsolve/internal/engine"
	"github.com/dusk-indust/depsolve/internal/export"
	"github.com/dusk-indust/depsolve/internal/graph"
	"github.com/dusk-indust/depsolve/internal/operation"
)

func newRootCmd() *cobra.Command {
	return newAppCmd(&app{})
}

// newAppCmd builds the command tree around a. Every command that opens the
// store closes it before returning, on success or error.
func newAppCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "depsolve",
		Short: "Query the configuration space of a dependency graph",
		Long: `depsolve answers questions about the version choices of a dependency graph:
whether a consistent set of versions exists, which sets carry the least or
most vulnerability impact, and whether a given set of versions is valid.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	a.bindFlags(root)

	root.AddCommand(
		newLoadCmd(a),
		newListCmd(a),
		newInfoCmd(a),
		newQueryCmd(a),
		newDiagramCmd(a),
		newExportCmd(a),
		newServeCmd(a),
		newInitCmd(),
	)
	return root
}

// depthFlags selects the depth bound. --level counts dependency levels the
// way the MCP tools do; --max-depth takes the raw edge bound.
type depthFlags struct {
	level    int
	maxDepth int
}

func (f *depthFlags) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.level, "level", -1, "dependency levels to include (>= 0, -1 for the whole graph)")
	cmd.Flags().IntVar(&f.maxDepth, "max-depth", 0, "raw depth bound: an even number, 0 for nothing, -1 for unbounded (overrides --level)")
}

func (f *depthFlags) bound(cmd *cobra.Command) (int, error) {
	if cmd.Flags().Changed("max-depth") {
		return f.maxDepth, nil
	}
	if f.level == -1 {
		return int(graph.Unbounded), nil
	}
	if f.level < 0 {
		return 0, &engine.InputError{Field: "level", Reason: fmt.Sprintf("must be >= 0 or -1, got %d", f.level)}
	}
	return int(graph.LevelBound(f.level)), nil
}

func newLoadCmd(a *app) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "load <document>...",
		Short: "Load graph documents into the store",
		Long: `Load parses each YAML or JSON graph document and stores it, replacing any
graph with the same id. sample:<name> loads a built-in graph. With the memory
store the graphs only live for this invocation.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if id != "" && len(args) > 1 {
				return fmt.Errorf("--id needs exactly one document")
			}
			return a.withStore(cmd, func(d *operation.Dispatcher) error {
				summaries := make([]graph.GraphSummary, 0, len(args))
				for _, ref := range args {
					doc, err := readGraph(ref)
					if err != nil {
						return err
					}
					if id != "" {
						doc.ID = id
					}
					s, err := d.Load(cmd.Context(), doc)
					if err != nil {
						return fmt.Errorf("load %s: %w", ref, err)
					}
					summaries = append(summaries, s)
				}
				return export.WriteJSON(cmd.OutOrStdout(), summaries)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "graph id, overriding the id in the document")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored graphs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(d *operation.Dispatcher) error {
				graphs, err := d.Store().ListGraphs(cmd.Context())
				if err != nil {
					return err
				}
				if len(graphs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No graphs stored.")
					return nil
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tECOSYSTEM\tPACKAGES\tVERSIONS\tEDGES\tMOMENT")
				for _, g := range graphs {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", g.ID, g.Ecosystem,
						g.Stats.PackageCount, g.Stats.VersionCount, g.Stats.EdgeCount,
						g.Moment.UTC().Format(time.RFC3339))
				}
				return tw.Flush()
			})
		},
	}
}

func newInfoCmd(a *app) *cobra.Command {
	var depth depthFlags
	cmd := &cobra.Command{
		Use:   "info <graph>",
		Short: "Summarize the part of a graph within the depth bound",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bound, err := depth.bound(cmd)
			if err != nil {
				return err
			}
			return a.dispatch(cmd, operation.Request{
				Operation: operation.GraphInfo,
				GraphID:   args[0],
				MaxDepth:  bound,
			})
		},
	}
	depth.bind(cmd)
	return cmd
}

// queryFlags mirrors the optional fields of operation.Request.
type queryFlags struct {
	depth         depthFlags
	aggregator    string
	limit         int
	minThreshold  float64
	maxThreshold  float64
	impact        float64
	config        map[string]string
	maxExpansions int64
	timeout       time.Duration
}

func newQueryCmd(a *app) *cobra.Command {
	var q queryFlags
	names := make([]string, 0, len(operation.Kinds()))
	for _, k := range operation.Kinds() {
		names = append(names, string(k))
	}
	cmd := &cobra.Command{
		Use:   "query <operation> <graph>",
		Short: "Run an operation against a stored graph",
		Long: "Run an operation against a stored graph and print the result as JSON.\n\nOperations: " +
			strings.Join(names, ", "),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := operation.ParseKind(args[0])
			if err != nil {
				return err
			}
			bound, err := q.depth.bound(cmd)
			if err != nil {
				return err
			}
			return a.dispatch(cmd, operation.Request{
				Operation:     kind,
				GraphID:       args[1],
				MaxDepth:      bound,
				Aggregator:    q.aggregator,
				Limit:         q.limit,
				MinThreshold:  q.minThreshold,
				MaxThreshold:  q.maxThreshold,
				Impact:        q.impact,
				Config:        q.config,
				MaxExpansions: q.maxExpansions,
				Timeout:       q.timeout,
			})
		},
	}
	q.depth.bind(cmd)
	fs := cmd.Flags()
	fs.StringVar(&q.aggregator, "aggregator", "", "mean or weighted_mean (default from config)")
	fs.IntVar(&q.limit, "limit", 10, "maximum number of configurations for ranking operations")
	fs.Float64Var(&q.minThreshold, "min", 0, "lowest accepted aggregate impact for filter_configs")
	fs.Float64Var(&q.maxThreshold, "max", 10, "highest accepted aggregate impact for filter_configs")
	fs.Float64Var(&q.impact, "impact", 0, "target aggregate impact for config_by_impact")
	fs.StringToStringVar(&q.config, "config", nil, "package=version assignments for valid_config and complete_config")
	fs.Int64Var(&q.maxExpansions, "max-expansions", 0, "search budget in candidate assignments (0 = config default)")
	fs.DurationVar(&q.timeout, "timeout", 0, "search time budget (0 = config default)")
	return cmd
}

func (a *app) dispatch(cmd *cobra.Command, req operation.Request) error {
	return a.withStore(cmd, func(d *operation.Dispatcher) error {
		res, err := d.Dispatch(cmd.Context(), req)
		if err != nil {
			return err
		}
		return export.WriteJSON(cmd.OutOrStdout(), res)
	})
}

func newDiagramCmd(a *app) *cobra.Command {
	var (
		depth    depthFlags
		best     bool
		selected map[string]string
	)
	cmd := &cobra.Command{
		Use:   "diagram <graph>",
		Short: "Print a Mermaid diagram of the graph within the depth bound",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bound, err := depth.bound(cmd)
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(d *operation.Dispatcher) error {
				m, err := d.Model(cmd.Context(), args[0], graph.DepthBound(bound))
				if err != nil {
					return err
				}
				if best {
					res, err := d.Dispatch(cmd.Context(), operation.Request{
						Operation: operation.MinimizeImpact,
						GraphID:   args[0],
						MaxDepth:  bound,
						Limit:     1,
					})
					if err != nil {
						return err
					}
					if len(res.Configurations) > 0 {
						selected = res.Configurations[0].Configuration
					}
				}
				fmt.Fprint(cmd.OutOrStdout(), export.Mermaid(m.Scope(), selected))
				return nil
			})
		},
	}
	depth.bind(cmd)
	cmd.Flags().BoolVar(&best, "best", false, "highlight the lowest-impact valid configuration")
	cmd.Flags().StringToStringVar(&selected, "config", nil, "package=version assignments to highlight")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var depth depthFlags
	cmd := &cobra.Command{
		Use:   "export <graph>",
		Short: "Print the graph within the depth bound as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bound, err := depth.bound(cmd)
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(d *operation.Dispatcher) error {
				m, err := d.Model(cmd.Context(), args[0], graph.DepthBound(bound))
				if err != nil {
					return err
				}
				return export.WriteJSON(cmd.OutOrStdout(), export.ExportScope(m.Scope(), time.Now()))
			})
		},
	}
	depth.bind(cmd)
	return cmd
}
