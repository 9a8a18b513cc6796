package engine

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Budget bounds one search. Zero fields are unlimited.
type Budget struct {
	// MaxExpansions caps the number of candidate assignments tried.
	MaxExpansions int64
	// Timeout caps wall-clock time.
	Timeout time.Duration
}

// Options tune a search.
type Options struct {
	Aggregator Aggregator
	Budget     Budget
	// Parallelism is the number of workers searching the first package's
	// candidates concurrently. Values <= 1 search sequentially. The result
	// does not depend on it unless the budget truncates the search.
	Parallelism int
}

// Stats reports the work a search did.
type Stats struct {
	Expansions int64 `json:"expansions"`
	// Truncated is set when the budget ran out before the search space was
	// exhausted. Results are then incomplete.
	Truncated bool `json:"truncated"`
}

const (
	// ctxCheckEvery is how many expansions pass between context checks.
	ctxCheckEvery = 1024
	epsilon       = 1e-9
)

type mode int

const (
	modeExists mode = iota
	modeRank
	modeCount
)

type query struct {
	mode  mode
	obj   objective
	limit int
	// fixed holds a forced candidate per position, -1 when free. Nil means
	// every position is free.
	fixed []int
}

type outcome struct {
	found   bool
	count   int64
	entries []entry
	stats   Stats
}

// budgetState is shared by every worker of one search.
type budgetState struct {
	ctx        context.Context
	max        int64
	expansions atomic.Int64
	truncated  atomic.Bool
	stop       atomic.Bool
}

// tick accounts one expansion and reports whether the search may go on.
func (b *budgetState) tick() bool {
	if b.stop.Load() {
		return false
	}
	n := b.expansions.Add(1)
	if b.max > 0 && n > b.max {
		b.truncated.Store(true)
		b.stop.Store(true)
		return false
	}
	if n%ctxCheckEvery == 0 && b.ctx.Err() != nil {
		b.truncated.Store(true)
		b.stop.Store(true)
		return false
	}
	return true
}

func (b *budgetState) spent() int64 {
	n := b.expansions.Load()
	if b.max > 0 && n > b.max {
		return b.max
	}
	return n
}

// objective ranks full configurations by distance of their aggregate to a
// target, or by the aggregate itself when lowest is set. A bounded objective
// only admits aggregates inside [min, max].
type objective struct {
	target   float64
	lowest   bool
	bounded  bool
	min, max float64
}

func (o objective) dist(agg float64) float64 {
	if o.lowest {
		return agg
	}
	return math.Abs(agg - o.target)
}

func (o objective) admits(agg float64) bool {
	return !o.bounded || (agg >= o.min && agg <= o.max)
}

// lowerBound is the smallest distance any aggregate in [lo, hi] can reach.
// ok is false when no aggregate in the interval is admissible.
func (o objective) lowerBound(lo, hi float64) (bound float64, ok bool) {
	if o.bounded {
		if hi < o.min-epsilon || lo > o.max+epsilon {
			return 0, false
		}
		lo = math.Max(lo, o.min)
	}
	switch {
	case o.lowest:
		return lo, true
	case o.target < lo:
		return lo - o.target, true
	case o.target > hi:
		return o.target - hi, true
	}
	return 0, true
}

// searcher is the backtracking state of one worker.
type searcher struct {
	m *Model
	q query
	b *budgetState
	w []float64
	// Over positions p and after: the smallest and largest impact that can
	// enter the average (+Inf and -Inf when none can), and whether every
	// position can pick a version that stays out of it.
	remMin []float64
	remMax []float64
	zeroOK []bool

	// first restricts position 0 to a single candidate, -1 for none.
	first  int
	branch int

	chosen []int
	// banned[p][v] counts the assignments currently ruling out candidate v
	// at position p; alive[p] counts the candidates with banned == 0.
	banned [][]int32
	alive  []int

	found bool
	count int64
	seq   int64
	top   topK
}

func newSearcher(m *Model, q query, w []float64, b *budgetState) *searcher {
	s := &searcher{
		m:      m,
		q:      q,
		b:      b,
		w:      w,
		remMin: make([]float64, m.n+1),
		remMax: make([]float64, m.n+1),
		zeroOK: make([]bool, m.n+1),
		first:  -1,
		chosen: make([]int, m.n),
		banned: make([][]int32, m.n),
		alive:  make([]int, m.n),
		top:    topK{limit: q.limit},
	}
	for p := 0; p < m.n; p++ {
		s.banned[p] = make([]int32, len(m.impacts[p]))
		s.alive[p] = len(m.impacts[p])
		if f := s.fixedAt(p); f >= 0 {
			for v := range s.banned[p] {
				if v != f {
					s.banned[p][v] = 1
				}
			}
			s.alive[p] = 1
		}
	}
	s.remMin[m.n] = math.Inf(1)
	s.remMax[m.n] = math.Inf(-1)
	s.zeroOK[m.n] = true
	for p := m.n - 1; p >= 0; p-- {
		lo, hi, zero := s.impactRange(p)
		s.remMin[p] = math.Min(s.remMin[p+1], lo)
		s.remMax[p] = math.Max(s.remMax[p+1], hi)
		s.zeroOK[p] = s.zeroOK[p+1] && zero
	}
	return s
}

func (s *searcher) fixedAt(p int) int {
	if s.q.fixed == nil {
		return -1
	}
	return s.q.fixed[p]
}

// impactRange scans the candidates of position p for the impacts that can
// enter the average and for one that cannot.
func (s *searcher) impactRange(p int) (lo, hi float64, zero bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for v, x := range s.m.impacts[p] {
		if f := s.fixedAt(p); f >= 0 && v != f {
			continue
		}
		if !contributes(s.w[p], x) {
			zero = true
			continue
		}
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi, zero
}

// clone copies the mutable state for a new branch worker.
func (s *searcher) clone(first int) *searcher {
	c := *s
	c.first = first
	c.branch = first
	c.chosen = make([]int, len(s.chosen))
	c.banned = make([][]int32, len(s.banned))
	for p := range s.banned {
		c.banned[p] = append([]int32(nil), s.banned[p]...)
	}
	c.alive = append([]int(nil), s.alive...)
	c.top = topK{limit: s.q.limit}
	return &c
}

// descend assigns position p and everything after it. sum and total are the
// weighted impact and the weight entering the average over positions before
// p. It returns false once the search must stop.
func (s *searcher) descend(p int, sum, total float64) bool {
	if p == s.m.n {
		return s.leaf(ratio(sum, total))
	}
	if s.q.mode == modeRank && !s.promising(p, sum, total) {
		return true
	}
	for v := range s.m.impacts[p] {
		if p == 0 && s.first >= 0 && v != s.first {
			continue
		}
		// Candidates ruled out by an assigned ancestor are filtered here.
		if s.banned[p][v] > 0 {
			continue
		}
		if !s.b.tick() {
			return false
		}
		if !s.compatible(p, v) {
			continue
		}
		s.chosen[p] = v
		cont := true
		if s.assign(p, v) {
			x := s.m.impacts[p][v]
			t := total
			if contributes(s.w[p], x) {
				t += s.w[p]
			}
			cont = s.descend(p+1, sum+s.w[p]*x, t)
		}
		s.unassign(p, v)
		if !cont {
			return false
		}
	}
	return true
}

// compatible checks the edges of (p, v) that point back at assigned
// positions, including p itself.
func (s *searcher) compatible(p, v int) bool {
	for _, c := range s.m.backward[p][v] {
		target := v
		if c.to != p {
			target = s.chosen[c.to]
		}
		if !c.accept[target] {
			return false
		}
	}
	return true
}

// assign bans the candidates that (p, v) rules out at later positions. It
// reports false when some later position is left with no candidate. The
// bans are applied in full either way and must be undone by unassign.
func (s *searcher) assign(p, v int) bool {
	ok := true
	for _, l := range s.m.forward[p][v] {
		row := s.banned[l.to]
		for _, r := range l.reject {
			row[r]++
			if row[r] == 1 {
				s.alive[l.to]--
			}
		}
		if s.alive[l.to] == 0 {
			ok = false
		}
	}
	return ok
}

func (s *searcher) unassign(p, v int) {
	for _, l := range s.m.forward[p][v] {
		row := s.banned[l.to]
		for _, r := range l.reject {
			row[r]--
			if row[r] == 0 {
				s.alive[l.to]++
			}
		}
	}
}

// promising reports whether the subtree below position p can still hold a
// configuration that enters the ranking.
func (s *searcher) promising(p int, sum, total float64) bool {
	if !s.q.obj.bounded && !s.top.full() {
		return true
	}
	lo, hi := s.aggregateRange(p, sum, total)
	bound, ok := s.q.obj.lowerBound(lo, hi)
	if !ok {
		return false
	}
	return !s.top.full() || bound <= s.top.worst()+epsilon
}

// aggregateRange bounds the final aggregate below position p. The final
// value is a convex combination of the current average and the impacts
// still to be chosen, or 0 when nothing enters the average.
func (s *searcher) aggregateRange(p int, sum, total float64) (lo, hi float64) {
	lo, hi = s.remMin[p], s.remMax[p]
	if total > 0 {
		mu := sum / total
		return math.Min(lo, mu), math.Max(hi, mu)
	}
	if s.zeroOK[p] {
		lo = 0
		hi = math.Max(hi, 0)
	}
	return lo, hi
}

func (s *searcher) leaf(agg float64) bool {
	switch s.q.mode {
	case modeExists:
		s.found = true
		s.b.stop.Store(true)
		return false
	case modeCount:
		s.count++
		return true
	}
	if !s.q.obj.admits(agg) {
		return true
	}
	s.seq++
	dist := s.q.obj.dist(agg)
	if !s.top.admits(dist) {
		return true
	}
	s.top.offer(entry{
		dist:   dist,
		agg:    agg,
		branch: s.branch,
		seq:    s.seq,
		choice: append([]int(nil), s.chosen...),
	})
	return true
}

// run executes q over the model. Caller cancellation returns the context
// error; an exhausted budget is reported through Stats.Truncated.
func (m *Model) run(ctx context.Context, q query, opts Options) (outcome, error) {
	if m.Empty() {
		return outcome{}, ErrEmptyScope
	}
	if err := opts.Budget.validate(); err != nil {
		return outcome{}, err
	}
	w, err := opts.Aggregator.weights(m)
	if err != nil {
		return outcome{}, err
	}
	if err := ctx.Err(); err != nil {
		return outcome{}, err
	}

	sctx := ctx
	if opts.Budget.Timeout > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, opts.Budget.Timeout)
		defer cancel()
	}
	b := &budgetState{ctx: sctx, max: opts.Budget.MaxExpansions}
	base := newSearcher(m, q, w, b)

	var out outcome
	if opts.Parallelism > 1 && base.fixedAt(0) < 0 && len(m.impacts[0]) > 1 {
		workers := make([]*searcher, len(m.impacts[0]))
		g, _ := errgroup.WithContext(sctx)
		g.SetLimit(opts.Parallelism)
		for v := range workers {
			s := base.clone(v)
			workers[v] = s
			g.Go(func() error {
				s.descend(0, 0, 0)
				return nil
			})
		}
		_ = g.Wait()

		merged := topK{limit: q.limit}
		for _, s := range workers {
			out.found = out.found || s.found
			out.count += s.count
			for _, e := range s.top.items {
				merged.offer(e)
			}
		}
		out.entries = merged.items
	} else {
		base.descend(0, 0, 0)
		out.found = base.found
		out.count = base.count
		out.entries = base.top.items
	}

	if err := ctx.Err(); err != nil {
		return outcome{}, err
	}
	out.stats = Stats{
		Expansions: b.spent(),
		Truncated:  b.truncated.Load() && !out.found,
	}
	return out, nil
}

func (b Budget) validate() error {
	if b.MaxExpansions < 0 {
		return inputErr("max_expansions", "must be >= 0, got %d", b.MaxExpansions)
	}
	if b.Timeout < 0 {
		return inputErr("timeout", "must be >= 0, got %s", b.Timeout)
	}
	return nil
}
