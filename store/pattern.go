package store

import "github.com/geoknoesis/quadgraph/rdf"

// GraphScope disambiguates the three ways a Pattern can treat the graph
// component: unconstrained, restricted to the default graph, or bound to a
// specific named graph. A bare nil rdf.Term can't carry this distinction on
// its own (nil already means "the default graph" on a Quad), so Pattern
// makes it explicit.
type GraphScope uint8

const (
	// AnyGraph matches quads in any graph, default or named.
	AnyGraph GraphScope = iota
	// DefaultGraphOnly matches only quads with no graph component.
	DefaultGraphOnly
	// NamedGraph matches only quads whose graph equals Pattern.G.
	NamedGraph
)

// Pattern is a quad pattern: nil S/P/O means "any term" (a SPARQL
// variable); GraphScope controls how the graph position is matched.
type Pattern struct {
	S, P, O    rdf.Term
	GraphScope GraphScope
	G          rdf.Term // meaningful only when GraphScope == NamedGraph
}

// boundMask reports which of the four key positions (S,P,O,G in that
// order) are bound in this pattern.
func (p Pattern) boundMask() [4]bool {
	return [4]bool{
		p.S != nil,
		p.P != nil,
		p.O != nil,
		p.GraphScope != AnyGraph,
	}
}

// selectIndex picks the quad index family whose permutation puts the
// largest prefix of bound positions first, tie-broken by a caller-supplied
// selectivity estimator for the first unbound position in each candidate
// ordering.
func selectIndex(p Pattern, selectivity func(pos int) float64) Family {
	bound := p.boundMask()

	best := FamilySPOG
	bestLen := -1
	bestScore := -1.0
	for _, fam := range quadIndexFamilies {
		perm := quadIndexPermutation(fam)
		n := 0
		for _, pos := range perm {
			if !bound[pos] {
				break
			}
			n++
		}
		score := 0.0
		if n < 4 && selectivity != nil {
			score = selectivity(perm[n])
		}
		if n > bestLen || (n == bestLen && score > bestScore) {
			best, bestLen, bestScore = fam, n, score
		}
	}
	return best
}
