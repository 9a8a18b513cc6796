package engine

import "sort"

// entry is one ranked full configuration. Entries are totally ordered by
// distance, then by discovery: branch is the first package's candidate the
// configuration descends from and seq its position among that branch's
// finds, so the order never depends on which worker finished first.
type entry struct {
	dist   float64
	agg    float64
	branch int
	seq    int64
	choice []int
}

func (a entry) before(b entry) bool {
	if a.dist != b.dist {
		return a.dist < b.dist
	}
	if a.branch != b.branch {
		return a.branch < b.branch
	}
	return a.seq < b.seq
}

// topK keeps the limit best entries, sorted.
type topK struct {
	limit int
	items []entry
}

func (t *topK) full() bool { return len(t.items) >= t.limit }

func (t *topK) worst() float64 { return t.items[len(t.items)-1].dist }

// admits reports whether an entry at dist found after every held entry of
// the same branch would be kept.
func (t *topK) admits(dist float64) bool {
	return !t.full() || dist < t.worst()
}

func (t *topK) offer(e entry) {
	i := sort.Search(len(t.items), func(i int) bool { return e.before(t.items[i]) })
	if i >= t.limit {
		return
	}
	t.items = append(t.items, entry{})
	copy(t.items[i+1:], t.items[i:])
	t.items[i] = e
	if len(t.items) > t.limit {
		t.items = t.items[:t.limit]
	}
}
