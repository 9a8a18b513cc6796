package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dusk-indust/depsolve/internal/config"
	"github.com/dusk-indust/depsolve/internal/engine"
	"github.com/dusk-indust/depsolve/internal/graph"
	"github.com/dusk-indust/depsolve/internal/operation"
	"github.com/dusk-indust/depsolve/internal/sampledata"
)

// samplePrefix selects an embedded graph in --graph, e.g. sample:webapp.
const samplePrefix = "sample:"

// app carries the global flags and the components built from them. Commands
// reach the store through withStore, which opens and closes it.
type app struct {
	configDir string
	storeKind string
	kuzuPath  string
	graphs    []string
	verbose   bool

	cfg        *config.Config
	logger     *slog.Logger
	registry   *prometheus.Registry
	store      graph.Store
	dispatcher *operation.Dispatcher
}

func (a *app) bindFlags(cmd *cobra.Command) {
	fs := cmd.PersistentFlags()
	fs.StringVar(&a.configDir, "config-dir", ".", "directory holding depsolve.yml and .env")
	fs.StringVar(&a.storeKind, "store", "", "graph store: memory or kuzu (overrides config)")
	fs.StringVar(&a.kuzuPath, "kuzu-path", "", "KuzuDB directory for the kuzu store (overrides config)")
	fs.StringArrayVar(&a.graphs, "graph", nil, "graph document to load before running (repeatable; sample:<name> for a built-in graph)")
	fs.BoolVar(&a.verbose, "verbose", false, "enable verbose output")
}

// open loads the configuration, opens the store, preloads --graph documents
// and creates the dispatcher.
func (a *app) open(ctx context.Context, stderr io.Writer) (*operation.Dispatcher, error) {
	if a.dispatcher != nil {
		return a.dispatcher, nil
	}

	cfg, err := config.Load(a.configDir)
	if err != nil {
		return nil, err
	}
	if a.storeKind != "" {
		cfg.Store = strings.ToLower(a.storeKind)
	}
	if a.kuzuPath != "" {
		cfg.KuzuPath = a.kuzuPath
	}
	if cfg.Store == config.StoreKuzu && cfg.KuzuPath == "" {
		cfg.KuzuPath = config.DefaultKuzuPath
	}
	if a.verbose {
		cfg.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a.cfg = cfg

	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	a.registry = prometheus.NewRegistry()

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := store.InitSchema(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("init store: %w", err)
	}
	a.store = store

	defaults, err := searchDefaults(cfg)
	if err != nil {
		return nil, err
	}
	d, err := operation.New(store,
		operation.WithCacheSize(cfg.CacheSize),
		operation.WithDefaults(defaults),
		operation.WithMetrics(operation.NewMetrics(a.registry)),
		operation.WithLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}
	a.dispatcher = d

	for _, ref := range a.graphs {
		doc, err := readGraph(ref)
		if err != nil {
			return nil, err
		}
		if _, err := d.Load(ctx, doc); err != nil {
			return nil, fmt.Errorf("load %s: %w", ref, err)
		}
	}
	return d, nil
}

// withStore opens the app, runs fn and closes the store whatever fn returns.
// A close error is reported only when fn succeeded.
func (a *app) withStore(cmd *cobra.Command, fn func(*operation.Dispatcher) error) (err error) {
	d, err := a.open(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		a.close()
		return err
	}
	defer func() {
		if cerr := a.close(); err == nil {
			err = cerr
		}
	}()
	return fn(d)
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	a.dispatcher = nil
	return err
}

func openStore(cfg *config.Config) (graph.Store, error) {
	switch cfg.Store {
	case config.StoreKuzu:
		return openKuzuStore(cfg.KuzuPath)
	default:
		return graph.NewMemStore(), nil
	}
}

func searchDefaults(cfg *config.Config) (engine.Options, error) {
	timeout, err := cfg.SearchTimeout()
	if err != nil {
		return engine.Options{}, err
	}
	agg, err := engine.ParseAggregator(cfg.Aggregator)
	if err != nil {
		return engine.Options{}, fmt.Errorf("config: %w", err)
	}
	return engine.Options{
		Aggregator:  agg,
		Budget:      engine.Budget{MaxExpansions: cfg.MaxExpansions, Timeout: timeout},
		Parallelism: cfg.Parallelism,
	}, nil
}

// readGraph resolves a --graph value: a file path or sample:<name>.
func readGraph(ref string) (graph.Document, error) {
	if name, ok := strings.CutPrefix(ref, samplePrefix); ok {
		return sampledata.Document(name)
	}
	if _, err := os.Stat(ref); err != nil {
		return graph.Document{}, fmt.Errorf("graph document %s: %w", ref, err)
	}
	return graph.ReadDocument(ref)
}
