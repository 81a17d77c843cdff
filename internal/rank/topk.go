package rank

import (
	"container/heap"
	"fmt"
	"strings"
	"time"
)

// TieBreak selects the ordering applied between candidates with equal hits.
type TieBreak int

const (
	// TieBreakModTime prefers the more recently modified source, then the
	// earlier traversal position.
	TieBreakModTime TieBreak = iota
	// TieBreakInsertion ignores modification time and keeps traversal order.
	TieBreakInsertion
)

func (t TieBreak) String() string {
	switch t {
	case TieBreakInsertion:
		return "insertion"
	default:
		return "mtime"
	}
}

// ParseTieBreak parses "mtime" or "insertion" (case-insensitive).
func ParseTieBreak(s string) (TieBreak, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mtime", "modtime", "modified":
		return TieBreakModTime, nil
	case "insertion", "seq", "order":
		return TieBreakInsertion, nil
	default:
		return TieBreakModTime, fmt.Errorf("unknown tie-break %q (want mtime or insertion)", s)
	}
}

// Scored is a candidate with its pair-hit count.
type Scored[T any] struct {
	Hits       int
	Normalized float64   // Hits / pair count
	ModTime    time.Time // modification time of the candidate's source
	Seq        uint64    // position in corpus traversal order
	Value      T
}

// Selector retains the k best candidates of an unsorted stream. Candidates
// rank by hits (descending), then per TieBreak by source modification time
// (descending), then by Seq (ascending). Seq is supplied by the producer, so
// the outcome does not depend on the order Insert is called in.
//
// A Selector is not safe for concurrent use; give each worker its own and
// Merge them.
type Selector[T any] struct {
	k int
	h scoredHeap[T]
}

// NewSelector returns a Selector keeping at most k candidates. k <= 0 keeps
// every candidate.
func NewSelector[T any](k int, order TieBreak) *Selector[T] {
	return &Selector[T]{
		k: k,
		h: scoredHeap[T]{order: order},
	}
}

// Len returns the number of retained candidates.
func (s *Selector[T]) Len() int {
	return len(s.h.items)
}

// Insert offers one candidate. When the selector is full the weakest retained
// candidate is evicted if c ranks ahead of it.
func (s *Selector[T]) Insert(c Scored[T]) {
	if s.k <= 0 || len(s.h.items) < s.k {
		heap.Push(&s.h, c)
		return
	}
	if s.h.ahead(c, s.h.items[0]) {
		s.h.items[0] = c
		heap.Fix(&s.h, 0)
	}
}

// Merge inserts every candidate retained by other. other is left unchanged.
func (s *Selector[T]) Merge(other *Selector[T]) {
	for _, c := range other.h.items {
		s.Insert(c)
	}
}

// Drain returns up to k retained candidates, best first (k <= 0 returns all)
// and empties the selector.
func (s *Selector[T]) Drain(k int) []Scored[T] {
	n := len(s.h.items)
	out := make([]Scored[T], n)
	for i := n - 1; i >= 0; i-- {
		out[i] = heap.Pop(&s.h).(Scored[T])
	}
	if k > 0 && k < len(out) {
		out = out[:k]
	}
	return out
}

// scoredHeap is a min-heap: the root is the weakest retained candidate.
type scoredHeap[T any] struct {
	order TieBreak
	items []Scored[T]
}

// ahead reports whether a ranks strictly ahead of b.
func (h *scoredHeap[T]) ahead(a, b Scored[T]) bool {
	if a.Hits != b.Hits {
		return a.Hits > b.Hits
	}
	if h.order == TieBreakModTime && !a.ModTime.Equal(b.ModTime) {
		return a.ModTime.After(b.ModTime)
	}
	return a.Seq < b.Seq
}

func (h *scoredHeap[T]) Len() int           { return len(h.items) }
func (h *scoredHeap[T]) Less(i, j int) bool { return h.ahead(h.items[j], h.items[i]) }
func (h *scoredHeap[T]) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *scoredHeap[T]) Push(x any) {
	h.items = append(h.items, x.(Scored[T]))
}

func (h *scoredHeap[T]) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	var zero Scored[T]
	old[n-1] = zero
	h.items = old[:n-1]
	return item
}
