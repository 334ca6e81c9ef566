package sparql

import (
	"sync/atomic"
	"time"

	"github.com/geoknoesis/quadgraph/rdf"
)

// Solution is a variable -> term binding row. A variable absent from the
// map is unbound ("undef"); there is no separate sentinel value, matching
// Go's natural "zero value means missing" map semantics.
type Solution map[Variable]rdf.Term

// Clone returns an independent copy of s.
func (s Solution) Clone() Solution {
	out := make(Solution, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Compatible reports whether s and other agree on every variable they
// both bind (SPARQL join compatibility).
func (s Solution) Compatible(other Solution) bool {
	for v, t := range s {
		if ot, ok := other[v]; ok && !rdf.Equal(t, ot) {
			return false
		}
	}
	return true
}

// Merge returns a new Solution with every binding from s and other
// (callers must have already checked Compatible).
func (s Solution) Merge(other Solution) Solution {
	out := make(Solution, len(s)+len(other))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// CancellationToken is a cheap, shared, atomic cancellation flag. The BGP,
// join, left-join, filter, group and property-path operators check it
// between rows; the other operators do not check it themselves and stop
// when a child that checks it stops.
type CancellationToken struct {
	flag atomic.Bool
}

// Cancel sets the token.
func (c *CancellationToken) Cancel() { c.flag.Store(true) }

// Cancelled reports whether the token has been set.
func (c *CancellationToken) Cancelled() bool { return c.flag.Load() }

// ErrCancelled is returned by an iterator once its cancellation token has
// been observed set; it carries no partial output.
var ErrCancelled = &evalError{"sparql: evaluation cancelled"}

type evalError struct{ msg string }

func (e *evalError) Error() string { return e.msg }

// Limits bounds resource usage during evaluation. An all-zero Limits value
// means DefaultLimits; otherwise a zero field disables that limit.
// MaxMemoryBytes is carried in the presets but no evaluator code reads it,
// so memory use is not bounded.
type Limits struct {
	Timeout              time.Duration
	MaxResultRows         int64
	MaxGroups             int64
	MaxPropertyPathDepth  int64
	MaxMemoryBytes        int64
}

// DefaultLimits is the permissive preset: 30s timeout, 10000 result rows,
// 1000 groups, 1000 property-path depth, 1GiB memory.
func DefaultLimits() Limits {
	return Limits{
		Timeout:              30 * time.Second,
		MaxResultRows:        10_000,
		MaxGroups:            1_000,
		MaxPropertyPathDepth: 1_000,
		MaxMemoryBytes:       1 << 30,
	}
}

// StrictLimits is the tighter preset for exposed endpoints: 5s timeout,
// 1000 result rows, 100 groups, 100 property-path depth, 100MiB memory.
func StrictLimits() Limits {
	return Limits{
		Timeout:              5 * time.Second,
		MaxResultRows:        1_000,
		MaxGroups:            100,
		MaxPropertyPathDepth: 100,
		MaxMemoryBytes:       100 << 20,
	}
}

// EvalOptions configures one query evaluation.
type EvalOptions struct {
	Limits  Limits
	Token   *CancellationToken
	Service ServiceHandler // nil uses DefaultServiceHandler

	// DescribeFollow lists the predicates a DESCRIBE result follows one
	// hop beyond each resource's outbound triples. Nil uses the default
	// (rdfs:label and rdf:type); an explicit empty slice disables the
	// second hop entirely.
	DescribeFollow []rdf.IRI
}

// startTimeoutWatcher arms a background timer that cancels token after
// limits.Timeout elapses (zero duration disables it), returning a stop
// function the caller must invoke once evaluation finishes.
func startTimeoutWatcher(token *CancellationToken, timeout time.Duration) func() {
	if timeout <= 0 {
		return func() {}
	}
	timer := time.AfterFunc(timeout, token.Cancel)
	return func() { timer.Stop() }
}

// SolutionIterator is the pull-based evaluator contract every physical
// operator implements.
type SolutionIterator interface {
	Next() bool
	Solution() Solution
	Err() error
	Close() error
}
