package store

import (
	"sync"

	"github.com/geoknoesis/quadgraph/dict"
)

// selectivityStats keeps a cheap, approximate distinct-value count per
// quad position (S,P,O,G), updated on every insert and cleared by
// Compact. It breaks ties between index permutations that share the same
// bound-prefix length in selectIndex; the SPARQL optimizer does not read
// it. Safe for concurrent use: the bulk loader observes from multiple
// shard workers.
type selectivityStats struct {
	mu      sync.Mutex
	seen    [4]map[[dict.EncodedTermSize]byte]struct{}
	capSize int
}

func newSelectivityStats() *selectivityStats {
	s := &selectivityStats{capSize: 50000}
	for i := range s.seen {
		s.seen[i] = make(map[[dict.EncodedTermSize]byte]struct{})
	}
	return s
}

func (s *selectivityStats) observe(terms [4]dict.EncodedTerm) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range terms {
		if len(s.seen[i]) >= s.capSize {
			continue
		}
		s.seen[i][t.Bytes()] = struct{}{}
	}
}

// selectivity estimates 1/distinct-values at pos: larger means fewer
// distinct values, so a bound term at that position is expected to keep a
// larger share of candidate rows.
func (s *selectivityStats) selectivity(pos int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.seen[pos])
	if n == 0 {
		return 1
	}
	return 1.0 / float64(n)
}

func (s *selectivityStats) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.seen {
		s.seen[i] = make(map[[dict.EncodedTermSize]byte]struct{})
	}
}
