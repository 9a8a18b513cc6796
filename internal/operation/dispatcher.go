package operation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dusk-indust/depsolve/internal/engine"
	"github.com/dusk-indust/depsolve/internal/graph"
)

// DefaultCacheSize is the number of compiled models kept when no size is
// configured.
const DefaultCacheSize = 64

// Dispatcher maps a Request onto one engine call and shapes the Result.
// Compiled models are cached per graph id, depth bound and graph moment.
// Loading a graph drops every cached model of its id, so a replacement with
// an unchanged moment is never answered from the old model.
type Dispatcher struct {
	store    graph.Store
	cache    *lru.Cache[string, *engine.Model]
	defaults engine.Options
	metrics  *Metrics
	logger   *slog.Logger
	newID    func() string
}

// Option configures a Dispatcher.
type Option func(*dispatcherConfig)

type dispatcherConfig struct {
	cacheSize int
	defaults  engine.Options
	metrics   *Metrics
	logger    *slog.Logger
}

// WithCacheSize sets how many compiled models are kept.
func WithCacheSize(n int) Option {
	return func(c *dispatcherConfig) { c.cacheSize = n }
}

// WithDefaults sets the aggregator, budget and parallelism used when a
// request leaves them unset.
func WithDefaults(o engine.Options) Option {
	return func(c *dispatcherConfig) { c.defaults = o }
}

// WithMetrics records dispatcher metrics on m.
func WithMetrics(m *Metrics) Option {
	return func(c *dispatcherConfig) { c.metrics = m }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *dispatcherConfig) { c.logger = l }
}

// New creates a Dispatcher reading graphs from store.
func New(store graph.Store, opts ...Option) (*Dispatcher, error) {
	cfg := dispatcherConfig{cacheSize: DefaultCacheSize}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.cacheSize <= 0 {
		cfg.cacheSize = DefaultCacheSize
	}
	if cfg.metrics == nil {
		cfg.metrics = NewMetrics(nil)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.defaults.Aggregator == "" {
		cfg.defaults.Aggregator = engine.Mean
	}
	cache, err := lru.New[string, *engine.Model](cfg.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("operation: model cache: %w", err)
	}
	return &Dispatcher{
		store:    store,
		cache:    cache,
		defaults: cfg.defaults,
		metrics:  cfg.metrics,
		logger:   cfg.logger,
		newID:    uuid.NewString,
	}, nil
}

// Store returns the graph store the dispatcher reads from.
func (d *Dispatcher) Store() graph.Store { return d.store }

// Load builds a graph from doc and stores it, replacing any graph with the
// same id.
func (d *Dispatcher) Load(ctx context.Context, doc graph.Document) (graph.GraphSummary, error) {
	g, err := graph.New(doc)
	if err != nil {
		return graph.GraphSummary{}, err
	}
	if err := d.store.PutGraph(ctx, g); err != nil {
		return graph.GraphSummary{}, fmt.Errorf("store graph %s: %w", g.ID(), err)
	}
	d.evict(g.ID())
	d.logger.Info("graph loaded", "graph", g.ID(), "packages", g.Stats().PackageCount,
		"versions", g.Stats().VersionCount, "edges", g.Stats().EdgeCount)
	return g.Summary(), nil
}

func (d *Dispatcher) evict(graphID string) {
	prefix := graphID + ":"
	for _, key := range d.cache.Keys() {
		if strings.HasPrefix(key, prefix) {
			d.cache.Remove(key)
		}
	}
}

// Model returns the compiled model of a stored graph at bound.
func (d *Dispatcher) Model(ctx context.Context, graphID string, bound graph.DepthBound) (*engine.Model, error) {
	if err := bound.Validate(); err != nil {
		return nil, &engine.InputError{Field: "maxDepth", Reason: err.Error()}
	}
	g, err := d.store.GetGraph(ctx, graphID)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%s:%d:%d", g.ID(), int(bound), g.Moment().UnixNano())
	if m, ok := d.cache.Get(key); ok {
		d.metrics.cacheLookups.WithLabelValues("hit").Inc()
		d.logger.Debug("model cache hit", "key", key)
		return m, nil
	}
	d.metrics.cacheLookups.WithLabelValues("miss").Inc()

	s, err := g.Scope(bound)
	if err != nil {
		return nil, err
	}
	m := engine.Compile(s)
	d.cache.Add(key, m)
	return m, nil
}

// Dispatch validates req, runs it and returns the result envelope. Input
// errors, unknown graphs and caller cancellation are returned as errors;
// every other outcome is a Status.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	id := d.newID()
	log := d.logger.With("request", id, "operation", string(req.Operation), "graph", req.GraphID, "maxDepth", req.MaxDepth)

	res, err := d.dispatch(ctx, id, req)
	elapsed := time.Since(start)
	d.metrics.duration.WithLabelValues(string(req.Operation)).Observe(elapsed.Seconds())
	if err != nil {
		d.metrics.operations.WithLabelValues(string(req.Operation), "error").Inc()
		log.Warn("operation failed", "err", err, "duration", elapsed)
		return nil, err
	}
	d.metrics.operations.WithLabelValues(string(req.Operation), string(res.Status)).Inc()
	if res.Operation != GraphInfo && res.Operation != ValidConfig && res.Status != StatusNoDependencies {
		d.metrics.expansions.WithLabelValues(string(req.Operation)).Observe(float64(res.Stats.Expansions))
	}
	log.Info("operation finished", "status", res.Status, "expansions", res.Stats.Expansions,
		"truncated", res.Stats.Truncated, "duration", elapsed)
	return res, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, id string, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	opts, err := d.options(req)
	if err != nil {
		return nil, err
	}
	bound := graph.DepthBound(req.MaxDepth)
	m, err := d.Model(ctx, req.GraphID, bound)
	if err != nil {
		return nil, err
	}

	res := &Result{
		RequestID:  id,
		Operation:  req.Operation,
		GraphID:    req.GraphID,
		MaxDepth:   bound.String(),
		Aggregator: opts.Aggregator.String(),
		Status:     StatusSuccess,
	}
	if len(req.Config) > 0 {
		if _, err := m.Resolve(engine.Configuration(req.Config)); err != nil {
			return nil, err
		}
	}
	if req.Operation == GraphInfo {
		info := m.Scope().Info()
		res.Info = &info
		res.Aggregator = ""
	}
	if m.Empty() {
		res.Status = StatusNoDependencies
		return res, nil
	}

	err = d.run(ctx, m, req, opts, res)
	if errors.Is(err, engine.ErrEmptyScope) {
		res.Status = StatusNoDependencies
		return res, nil
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (d *Dispatcher) run(ctx context.Context, m *engine.Model, req Request, opts engine.Options, res *Result) error {
	var (
		ranking engine.Ranking
		err     error
	)
	switch req.Operation {
	case GraphInfo:
		return nil
	case ValidGraph:
		dec, err := m.ExistsValid(ctx, opts)
		if err != nil {
			return err
		}
		res.Valid = &dec.Valid
		res.setStats(dec.Stats)
		return nil
	case ValidConfig:
		ok, err := m.ValidateGiven(engine.Configuration(req.Config))
		if err != nil {
			return err
		}
		res.Valid = &ok
		return nil
	case CountConfigs:
		c, err := m.CountConfigurations(ctx, opts)
		if err != nil {
			return err
		}
		res.Count = &c.Configurations
		res.setStats(c.Stats)
		return nil
	case MinimizeImpact:
		ranking, err = m.MinimizeImpact(ctx, req.Limit, opts)
	case MaximizeImpact:
		ranking, err = m.MaximizeImpact(ctx, req.Limit, opts)
	case FilterConfigs:
		ranking, err = m.FilterByRange(ctx, req.MinThreshold, req.MaxThreshold, req.Limit, opts)
	case ConfigByImpact:
		ranking, err = m.NearestToTarget(ctx, req.Impact, req.Limit, opts)
	case CompleteConfig:
		ranking, err = m.CompletePartial(ctx, engine.Configuration(req.Config), opts)
	default:
		return &engine.InputError{Field: "operation", Reason: fmt.Sprintf("unknown operation %q", req.Operation)}
	}
	if err != nil {
		return err
	}
	res.Configurations = ranking.Configurations
	if len(ranking.Configurations) == 0 {
		res.Status = StatusNoSolution
	}
	res.setStats(ranking.Stats)
	return nil
}

// options merges the request's search settings over the defaults.
func (d *Dispatcher) options(req Request) (engine.Options, error) {
	opts := d.defaults
	if req.Aggregator != "" {
		agg, err := engine.ParseAggregator(req.Aggregator)
		if err != nil {
			return engine.Options{}, err
		}
		opts.Aggregator = agg
	}
	if req.MaxExpansions > 0 {
		opts.Budget.MaxExpansions = req.MaxExpansions
	}
	if req.Timeout > 0 {
		opts.Budget.Timeout = req.Timeout
	}
	return opts, nil
}
