package sparql

import (
	"github.com/geoknoesis/quadgraph/rdf"
	"github.com/geoknoesis/quadgraph/store"
)

// buildPath evaluates a property-path triple pattern the same way buildBGP
// evaluates an ordinary one: joined against whatever solutions precede it
// (here, the implicit empty solution, since Path only ever appears as one
// conjunct of a larger BGP/Join tree built by the parser).
func (e *Evaluator) buildPath(n Path, gc graphCtx) (SolutionIterator, error) {
	var it SolutionIterator = &singletonIterator{sol: Solution{}}
	return &pathJoinIterator{eval: e, left: it, path: n, gc: gc}, nil
}

type pathJoinIterator struct {
	eval *Evaluator
	left SolutionIterator
	path Path
	gc   graphCtx

	pending           []pathMatch
	leftSolForPending Solution
	idx               int
	current           Solution
	err               error
}

type pathMatch struct {
	start, end rdf.Term
}

func (p *pathJoinIterator) Next() bool {
	if p.eval.opts.Token.Cancelled() {
		p.err = ErrCancelled
		return false
	}
	for {
		if p.idx < len(p.pending) {
			m := p.pending[p.idx]
			p.idx++
			sol, ok := bindPathMatch(p.leftSolForPending, p.path, m)
			if !ok {
				continue
			}
			p.current = sol
			return true
		}
		if !p.left.Next() {
			if err := p.left.Err(); err != nil {
				p.err = err
			}
			return false
		}
		sol := p.left.Solution()
		p.leftSolForPending = sol
		matches, err := p.eval.evalPath(p.path, sol, p.gc)
		if err != nil {
			p.err = err
			return false
		}
		p.pending = matches
		p.idx = 0
	}
}

func (p *pathJoinIterator) Solution() Solution { return p.current }
func (p *pathJoinIterator) Err() error          { return p.err }
func (p *pathJoinIterator) Close() error        { return p.left.Close() }

func bindPathMatch(base Solution, path Path, m pathMatch) (Solution, bool) {
	out := base.Clone()
	if !bindOne(out, path.Start, m.start) {
		return nil, false
	}
	if !bindOne(out, path.End, m.end) {
		return nil, false
	}
	return out, true
}

// evalPath resolves a property-path pattern against sol's existing
// bindings, returning every (start, end) pair it matches.
func (e *Evaluator) evalPath(path Path, sol Solution, gc graphCtx) ([]pathMatch, error) {
	startBound, hasStart := resolvePatternTerm(path.Start, sol)
	endBound, hasEnd := resolvePatternTerm(path.End, sol)

	switch {
	case hasStart && hasEnd:
		ends, err := e.expandPath(path.Expr, startBound, gc, e.opts.Limits.MaxPropertyPathDepth)
		if err != nil {
			return nil, err
		}
		for _, end := range ends {
			if rdf.Equal(end, endBound) {
				return []pathMatch{{start: startBound, end: endBound}}, nil
			}
		}
		return nil, nil
	case hasStart:
		ends, err := e.expandPath(path.Expr, startBound, gc, e.opts.Limits.MaxPropertyPathDepth)
		if err != nil {
			return nil, err
		}
		out := make([]pathMatch, len(ends))
		for i, end := range ends {
			out[i] = pathMatch{start: startBound, end: end}
		}
		return out, nil
	case hasEnd:
		starts, err := e.expandPath(invertPath(path.Expr), endBound, gc, e.opts.Limits.MaxPropertyPathDepth)
		if err != nil {
			return nil, err
		}
		out := make([]pathMatch, len(starts))
		for i, start := range starts {
			out[i] = pathMatch{start: start, end: endBound}
		}
		return out, nil
	default:
		starts, err := e.distinctTerms(gc)
		if err != nil {
			return nil, err
		}
		var out []pathMatch
		for _, s := range starts {
			ends, err := e.expandPath(path.Expr, s, gc, e.opts.Limits.MaxPropertyPathDepth)
			if err != nil {
				return nil, err
			}
			for _, end := range ends {
				out = append(out, pathMatch{start: s, end: end})
			}
		}
		return out, nil
	}
}

func resolvePatternTerm(pt PatternTerm, sol Solution) (rdf.Term, bool) {
	if !pt.IsVariable() {
		return pt.Term, true
	}
	t, ok := sol[pt.Var]
	return t, ok
}

// invertPath swaps a path expression's direction, used to evaluate a
// bound-End/unbound-Start pattern as a forward expansion from End.
func invertPath(pe PathExpr) PathExpr {
	switch pe.Kind {
	case PathIRI:
		return PathExpr{Kind: PathInverse, Sub: &pe}
	case PathInverse:
		return *pe.Sub
	case PathSeq:
		l, r := invertPath(*pe.Left), invertPath(*pe.Right)
		return PathExpr{Kind: PathSeq, Left: &r, Right: &l}
	case PathAlt:
		l, r := invertPath(*pe.Left), invertPath(*pe.Right)
		return PathExpr{Kind: PathAlt, Left: &l, Right: &r}
	case PathZeroOrOne, PathZeroOrMore, PathOneOrMore:
		sub := invertPath(*pe.Sub)
		return PathExpr{Kind: pe.Kind, Sub: &sub}
	case PathNegatedSet:
		return PathExpr{Kind: PathNegatedSet, Negated: pe.NegatedInv, NegatedInv: pe.Negated}
	default:
		return pe
	}
}

// expandPath computes the set of terms reachable from start via pe,
// deduplicated. */+ traversals run a breadth-first closure that fails with
// a LimitError, rather than silently truncating, as soon as it would expand
// a frontier that lies maxDepth hops from start.
func (e *Evaluator) expandPath(pe PathExpr, start rdf.Term, gc graphCtx, maxDepth int64) ([]rdf.Term, error) {
	switch pe.Kind {
	case PathIRI:
		return e.onePredicateHop(pe.IRI, start, gc, false)
	case PathInverse:
		return e.expandInverseStep(*pe.Sub, start, gc)
	case PathSeq:
		mids, err := e.expandPath(*pe.Left, start, gc, maxDepth)
		if err != nil {
			return nil, err
		}
		seen := map[string]rdf.Term{}
		for _, m := range mids {
			ends, err := e.expandPath(*pe.Right, m, gc, maxDepth)
			if err != nil {
				return nil, err
			}
			for _, end := range ends {
				seen[termKey(end)] = end
			}
		}
		return termSetValues(seen), nil
	case PathAlt:
		left, err := e.expandPath(*pe.Left, start, gc, maxDepth)
		if err != nil {
			return nil, err
		}
		right, err := e.expandPath(*pe.Right, start, gc, maxDepth)
		if err != nil {
			return nil, err
		}
		seen := map[string]rdf.Term{}
		for _, t := range left {
			seen[termKey(t)] = t
		}
		for _, t := range right {
			seen[termKey(t)] = t
		}
		return termSetValues(seen), nil
	case PathZeroOrOne:
		seen := map[string]rdf.Term{termKey(start): start}
		ends, err := e.expandPath(*pe.Sub, start, gc, maxDepth)
		if err != nil {
			return nil, err
		}
		for _, t := range ends {
			seen[termKey(t)] = t
		}
		return termSetValues(seen), nil
	case PathZeroOrMore:
		return e.expandClosure(*pe.Sub, start, gc, maxDepth, true)
	case PathOneOrMore:
		return e.expandClosure(*pe.Sub, start, gc, maxDepth, false)
	case PathNegatedSet:
		return e.expandNegatedSet(pe, start, gc)
	default:
		return nil, typeErrorf("unsupported property path expression")
	}
}

func (e *Evaluator) expandInverseStep(pe PathExpr, start rdf.Term, gc graphCtx) ([]rdf.Term, error) {
	if pe.Kind == PathIRI {
		return e.onePredicateHop(pe.IRI, start, gc, true)
	}
	return e.expandPath(invertPath(pe), start, gc, e.opts.Limits.MaxPropertyPathDepth)
}

// onePredicateHop queries the store for a single predicate hop from start;
// inverse=true walks the edge backward (start is the object, not subject).
func (e *Evaluator) onePredicateHop(pred rdf.IRI, start rdf.Term, gc graphCtx, inverse bool) ([]rdf.Term, error) {
	p := store.Pattern{P: pred, GraphScope: gc.scope, G: gc.name}
	if inverse {
		p.O = start
	} else {
		p.S = start
	}
	it, err := e.store.Query(p)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var out []rdf.Term
	for it.Next() {
		q, err := it.Quad()
		if err != nil {
			return nil, err
		}
		if inverse {
			out = append(out, q.S)
		} else {
			out = append(out, q.O)
		}
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Evaluator) expandClosure(sub PathExpr, start rdf.Term, gc graphCtx, maxDepth int64, includeZero bool) ([]rdf.Term, error) {
	visited := map[string]rdf.Term{}
	if includeZero {
		visited[termKey(start)] = start
	}
	frontier := []rdf.Term{start}
	for depth := int64(0); len(frontier) > 0; depth++ {
		if maxDepth > 0 && depth >= maxDepth {
			return nil, limitErrorf("max_property_path_depth")
		}
		var next []rdf.Term
		for _, t := range frontier {
			nbrs, err := e.expandPath(sub, t, gc, maxDepth)
			if err != nil {
				return nil, err
			}
			for _, n := range nbrs {
				k := termKey(n)
				if _, ok := visited[k]; ok {
					continue
				}
				visited[k] = n
				next = append(next, n)
			}
		}
		frontier = next
	}
	return termSetValues(visited), nil
}

func (e *Evaluator) expandNegatedSet(pe PathExpr, start rdf.Term, gc graphCtx) ([]rdf.Term, error) {
	excluded := map[string]bool{}
	for _, iri := range pe.Negated {
		excluded[iri.Value] = true
	}
	var out []rdf.Term
	p := store.Pattern{S: start, GraphScope: gc.scope, G: gc.name}
	it, err := e.store.Query(p)
	if err != nil {
		return nil, err
	}
	for it.Next() {
		q, err := it.Quad()
		if err != nil {
			it.Close()
			return nil, err
		}
		if !excluded[q.P.Value] {
			out = append(out, q.O)
		}
	}
	if err := it.Err(); err != nil {
		it.Close()
		return nil, err
	}
	it.Close()

	invExcluded := map[string]bool{}
	for _, iri := range pe.NegatedInv {
		invExcluded[iri.Value] = true
	}
	p2 := store.Pattern{O: start, GraphScope: gc.scope, G: gc.name}
	it2, err := e.store.Query(p2)
	if err != nil {
		return nil, err
	}
	defer it2.Close()
	for it2.Next() {
		q, err := it2.Quad()
		if err != nil {
			return nil, err
		}
		if !invExcluded[q.P.Value] {
			out = append(out, q.S)
		}
	}
	if err := it2.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// distinctTerms enumerates candidate path-start terms when both Start and
// End are unbound, by scanning every subject in scope. This is the
// fallback path for a pattern like "?x foaf:knows+ ?y" with no other
// constraint to seed it from; bounded only by max_result_rows downstream.
func (e *Evaluator) distinctTerms(gc graphCtx) ([]rdf.Term, error) {
	it, err := e.store.Query(store.Pattern{GraphScope: gc.scope, G: gc.name})
	if err != nil {
		return nil, err
	}
	defer it.Close()
	seen := map[string]rdf.Term{}
	for it.Next() {
		q, err := it.Quad()
		if err != nil {
			return nil, err
		}
		seen[termKey(q.S)] = q.S
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return termSetValues(seen), nil
}

func termKey(t rdf.Term) string { return t.String() }

func termSetValues(m map[string]rdf.Term) []rdf.Term {
	out := make([]rdf.Term, 0, len(m))
	for _, t := range m {
		out = append(out, t)
	}
	return out
}
