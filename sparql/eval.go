package sparql

import (
	"sort"

	"github.com/geoknoesis/quadgraph/rdf"
	"github.com/geoknoesis/quadgraph/store"
)

// Evaluator evaluates a parsed algebra tree against a Store, producing a
// pull-based SolutionIterator. One Evaluator is built per request; its
// graph context (which graph a bare BGP scans) is threaded through nested
// GRAPH clauses by graphCtx, not stored on the Evaluator itself, so
// sub-evaluations never leak context across sibling branches.
type Evaluator struct {
	store *store.Store
	opts  EvalOptions
	env   *evalEnv
	rows  int64 // emitted result rows, checked against Limits.MaxResultRows
}

// graphCtx is the ambient graph scope a BGP/Path inherits from its
// enclosing GRAPH clause (store.AnyGraph/DefaultGraphOnly/NamedGraph,
// plus the bound graph term when NamedGraph).
type graphCtx struct {
	scope store.GraphScope
	name  rdf.Term
}

var defaultGraphCtx = graphCtx{scope: store.DefaultGraphOnly}

// NewEvaluator builds an Evaluator over st using opts (zero value uses
// DefaultLimits and a fresh CancellationToken).
func NewEvaluator(st *store.Store, opts EvalOptions) *Evaluator {
	if opts.Limits == (Limits{}) {
		opts.Limits = DefaultLimits()
	}
	if opts.Token == nil {
		opts.Token = &CancellationToken{}
	}
	return &Evaluator{store: st, opts: opts, env: newEvalEnv(nil)}
}

// WithCustomFunctions registers extension functions reachable through
// OpCustomCall, returning the same Evaluator for chaining.
func (e *Evaluator) WithCustomFunctions(fns map[string]CustomFunction) *Evaluator {
	e.env.custom = fns
	return e
}

// Evaluate builds alg's pull-based solution iterator; rows are produced as
// the caller advances it. The caller must Close() the returned iterator.
func (e *Evaluator) Evaluate(alg Algebra) (SolutionIterator, error) {
	stop := startTimeoutWatcher(e.opts.Token, e.opts.Limits.Timeout)
	it, err := e.build(alg, defaultGraphCtx)
	if err != nil {
		stop()
		return nil, err
	}
	return &timeoutClosingIterator{SolutionIterator: it, stop: stop}, nil
}

type timeoutClosingIterator struct {
	SolutionIterator
	stop func()
}

func (t *timeoutClosingIterator) Close() error {
	t.stop()
	return t.SolutionIterator.Close()
}

func (e *Evaluator) build(alg Algebra, gc graphCtx) (SolutionIterator, error) {
	switch n := alg.(type) {
	case BGP:
		return e.buildBGP(n, gc)
	case Path:
		return e.buildPath(n, gc)
	case Join:
		return e.buildJoin(n, gc)
	case LeftJoin:
		return e.buildLeftJoin(n, gc)
	case Union:
		return e.buildUnion(n, gc)
	case Filter:
		return e.buildFilter(n, gc)
	case Extend:
		return e.buildExtend(n, gc)
	case Minus:
		return e.buildMinus(n, gc)
	case Values:
		return e.buildValues(n)
	case Service:
		return e.buildService(n, gc)
	case Graph:
		return e.buildGraph(n, gc)
	case Group:
		return e.buildGroup(n, gc)
	case OrderBy:
		return e.buildOrderBy(n, gc)
	case Project:
		return e.buildProject(n, gc)
	case Distinct:
		return e.buildDistinct(n, gc)
	case Reduced:
		return e.buildReduced(n, gc)
	case Slice:
		return e.buildSlice(n, gc)
	default:
		return nil, typeErrorf("unsupported algebra node %T", alg)
	}
}

// --- BGP ---------------------------------------------------------------

// buildBGP evaluates a basic graph pattern as a left-deep nested-loop join
// of its triple patterns, each probed against the store with the
// substitution accumulated so far -- the standard index-nested-loop-join
// strategy for BGP evaluation over a pattern-indexed store.
func (e *Evaluator) buildBGP(n BGP, gc graphCtx) (SolutionIterator, error) {
	var it SolutionIterator = &singletonIterator{sol: Solution{}}
	for _, tp := range n.Patterns {
		tp := tp
		it = &bgpJoinIterator{eval: e, left: it, pattern: tp, gc: gc}
	}
	return it, nil
}

// singletonIterator yields exactly one (usually empty) solution.
type singletonIterator struct {
	sol  Solution
	done bool
}

func (s *singletonIterator) Next() bool {
	if s.done {
		return false
	}
	s.done = true
	return true
}
func (s *singletonIterator) Solution() Solution { return s.sol }
func (s *singletonIterator) Err() error          { return nil }
func (s *singletonIterator) Close() error        { return nil }

// bgpJoinIterator joins left's solutions against one triple pattern,
// substituting left's bindings into the pattern before each store lookup.
type bgpJoinIterator struct {
	eval    *Evaluator
	left    SolutionIterator
	pattern TriplePattern
	gc      graphCtx

	leftSol Solution
	cur     store.QuadIterator
	current Solution
	err     error
	cancel  bool
}

func (b *bgpJoinIterator) Next() bool {
	if b.cancel || b.eval.opts.Token.Cancelled() {
		b.err = ErrCancelled
		return false
	}
	for {
		if b.cur != nil {
			for b.cur.Next() {
				q, err := b.cur.Quad()
				if err != nil {
					b.err = err
					return false
				}
				sol, ok := bindQuad(b.leftSol, b.pattern, q)
				if !ok {
					continue
				}
				if !b.eval.withinRowBudget() {
					b.err = limitErrorf("max_result_rows")
					return false
				}
				b.current = sol
				return true
			}
			if err := b.cur.Err(); err != nil {
				b.err = err
				return false
			}
			b.cur.Close()
			b.cur = nil
		}
		if !b.left.Next() {
			if err := b.left.Err(); err != nil {
				b.err = err
			}
			return false
		}
		b.leftSol = b.left.Solution()
		pattern, err := instantiatePattern(b.pattern, b.leftSol, b.gc)
		if err != nil {
			continue // unbindable due to type mismatch: contributes no rows
		}
		it, err := b.eval.store.Query(pattern)
		if err != nil {
			b.err = err
			return false
		}
		b.cur = it
	}
}

func (b *bgpJoinIterator) Solution() Solution { return b.current }
func (b *bgpJoinIterator) Err() error          { return b.err }
func (b *bgpJoinIterator) Close() error {
	if b.cur != nil {
		b.cur.Close()
	}
	return b.left.Close()
}

// instantiatePattern substitutes any variable in tp already bound in sol,
// producing a store.Pattern with graph scope from gc.
func instantiatePattern(tp TriplePattern, sol Solution, gc graphCtx) (store.Pattern, error) {
	s, err := instantiateTerm(tp.S, sol)
	if err != nil {
		return store.Pattern{}, err
	}
	p, err := instantiateTerm(tp.P, sol)
	if err != nil {
		return store.Pattern{}, err
	}
	o, err := instantiateTerm(tp.O, sol)
	if err != nil {
		return store.Pattern{}, err
	}
	return store.Pattern{S: s, P: p, O: o, GraphScope: gc.scope, G: gc.name}, nil
}

func instantiateTerm(pt PatternTerm, sol Solution) (rdf.Term, error) {
	if !pt.IsVariable() {
		return pt.Term, nil
	}
	if t, ok := sol[pt.Var]; ok {
		return t, nil
	}
	return nil, nil
}

// bindQuad extends base with tp's variable bindings from q, failing if a
// variable already bound in base disagrees with q (join compatibility).
func bindQuad(base Solution, tp TriplePattern, q rdf.Quad) (Solution, bool) {
	out := base.Clone()
	if !bindOne(out, tp.S, q.S) {
		return nil, false
	}
	if !bindOne(out, tp.P, q.P) {
		return nil, false
	}
	if !bindOne(out, tp.O, q.O) {
		return nil, false
	}
	return out, true
}

func bindOne(sol Solution, pt PatternTerm, term rdf.Term) bool {
	if !pt.IsVariable() {
		return true
	}
	if existing, ok := sol[pt.Var]; ok {
		return rdf.Equal(existing, term)
	}
	sol[pt.Var] = term
	return true
}

func (e *Evaluator) withinRowBudget() bool {
	if e.opts.Limits.MaxResultRows <= 0 {
		return true
	}
	e.rows++
	return e.rows <= e.opts.Limits.MaxResultRows
}

// --- Join / LeftJoin / Union --------------------------------------------

// hashJoinThreshold is the materialized-right row count above which a
// keyed hash join beats probing every right row per left row.
const hashJoinThreshold = 8

func (e *Evaluator) buildJoin(n Join, gc graphCtx) (SolutionIterator, error) {
	left, err := e.build(n.Left, gc)
	if err != nil {
		return nil, err
	}
	right, err := materialize(n.Right, e, gc)
	if err != nil {
		left.Close()
		return nil, err
	}
	if keys := sharedJoinVars(n.Left, n.Right); len(keys) > 0 && len(right) >= hashJoinThreshold {
		return newHashJoinIterator(e, left, right, keys), nil
	}
	return &nestedLoopJoinIterator{eval: e, left: left, rightRows: right}, nil
}

// sharedJoinVars returns the variables syntactically present on both join
// sides, sorted for a deterministic bucket key order.
func sharedJoinVars(left, right Algebra) []Variable {
	inLeft := map[Variable]struct{}{}
	for _, v := range collectVars(left) {
		inLeft[v] = struct{}{}
	}
	var keys []Variable
	for _, v := range collectVars(right) {
		if _, ok := inLeft[v]; ok {
			keys = append(keys, v)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// hashJoinIterator buckets the materialized right side by its key-variable
// values and probes one bucket per left row. Right rows that leave a key
// variable unbound can join with anything on that variable, so they sit in
// a residual list probed on every left row; a left row missing a key
// binding falls back to scanning all right rows. Both fallbacks keep the
// join's multiset semantics identical to the nested-loop plan.
type hashJoinIterator struct {
	eval    *Evaluator
	left    SolutionIterator
	keys    []Variable
	buckets map[string][]Solution
	residual []Solution
	all      []Solution

	leftSol    Solution
	candidates []Solution
	idx        int
	current    Solution
	err        error
}

func newHashJoinIterator(e *Evaluator, left SolutionIterator, right []Solution, keys []Variable) *hashJoinIterator {
	h := &hashJoinIterator{eval: e, left: left, keys: keys, buckets: map[string][]Solution{}, all: right}
	for _, r := range right {
		key, ok := joinKey(r, keys)
		if !ok {
			h.residual = append(h.residual, r)
			continue
		}
		h.buckets[key] = append(h.buckets[key], r)
	}
	return h
}

// joinKey renders sol's values for keys as a bucket key; ok is false when
// any key variable is unbound.
func joinKey(sol Solution, keys []Variable) (string, bool) {
	out := ""
	for _, k := range keys {
		t, ok := sol[k]
		if !ok {
			return "", false
		}
		out += t.String() + "\x00"
	}
	return out, true
}

func (h *hashJoinIterator) Next() bool {
	if h.eval.opts.Token.Cancelled() {
		h.err = ErrCancelled
		return false
	}
	for {
		for h.idx < len(h.candidates) {
			r := h.candidates[h.idx]
			h.idx++
			if h.leftSol.Compatible(r) {
				h.current = h.leftSol.Merge(r)
				return true
			}
		}
		if !h.left.Next() {
			if err := h.left.Err(); err != nil {
				h.err = err
			}
			return false
		}
		h.leftSol = h.left.Solution()
		h.idx = 0
		if key, ok := joinKey(h.leftSol, h.keys); ok {
			bucket := h.buckets[key]
			h.candidates = bucket
			if len(h.residual) > 0 {
				h.candidates = append(append([]Solution{}, bucket...), h.residual...)
			}
		} else {
			h.candidates = h.all
		}
	}
}
func (h *hashJoinIterator) Solution() Solution { return h.current }
func (h *hashJoinIterator) Err() error          { return h.err }
func (h *hashJoinIterator) Close() error        { return h.left.Close() }

type nestedLoopJoinIterator struct {
	eval      *Evaluator
	left      SolutionIterator
	rightRows []Solution
	leftSol   Solution
	idx       int
	current   Solution
	err       error
}

func (j *nestedLoopJoinIterator) Next() bool {
	if j.eval.opts.Token.Cancelled() {
		j.err = ErrCancelled
		return false
	}
	for {
		for j.idx < len(j.rightRows) {
			r := j.rightRows[j.idx]
			j.idx++
			if j.leftSol.Compatible(r) {
				j.current = j.leftSol.Merge(r)
				return true
			}
		}
		if !j.left.Next() {
			if err := j.left.Err(); err != nil {
				j.err = err
			}
			return false
		}
		j.leftSol = j.left.Solution()
		j.idx = 0
	}
}
func (j *nestedLoopJoinIterator) Solution() Solution { return j.current }
func (j *nestedLoopJoinIterator) Err() error          { return j.err }
func (j *nestedLoopJoinIterator) Close() error        { return j.left.Close() }

func (e *Evaluator) buildLeftJoin(n LeftJoin, gc graphCtx) (SolutionIterator, error) {
	left, err := e.build(n.Left, gc)
	if err != nil {
		return nil, err
	}
	right, err := materialize(n.Right, e, gc)
	if err != nil {
		left.Close()
		return nil, err
	}
	return &leftJoinIterator{eval: e, left: left, rightRows: right, filter: n.Filter}, nil
}

type leftJoinIterator struct {
	eval      *Evaluator
	left      SolutionIterator
	rightRows []Solution
	filter    Expr

	leftSol    Solution
	idx        int
	matchedAny bool
	current    Solution
	err        error
	needAdvanceLeft bool
	started    bool
}

func (l *leftJoinIterator) Next() bool {
	if l.eval.opts.Token.Cancelled() {
		l.err = ErrCancelled
		return false
	}
	for {
		if !l.started || l.needAdvanceLeft {
			if !l.left.Next() {
				if err := l.left.Err(); err != nil {
					l.err = err
				}
				return false
			}
			l.leftSol = l.left.Solution()
			l.idx = 0
			l.matchedAny = false
			l.started = true
			l.needAdvanceLeft = false
		}
		for l.idx < len(l.rightRows) {
			r := l.rightRows[l.idx]
			l.idx++
			if !l.leftSol.Compatible(r) {
				continue
			}
			merged := l.leftSol.Merge(r)
			if l.filter != nil {
				b, err := evalExpr(l.filter, merged, l.eval.env)
				if err != nil {
					continue
				}
				ok, err := effectiveBooleanValue(b)
				if err != nil || !ok {
					continue
				}
			}
			l.matchedAny = true
			l.current = merged
			return true
		}
		if !l.matchedAny {
			l.current = l.leftSol
			l.needAdvanceLeft = true
			return true
		}
		l.needAdvanceLeft = true
	}
}
func (l *leftJoinIterator) Solution() Solution { return l.current }
func (l *leftJoinIterator) Err() error          { return l.err }
func (l *leftJoinIterator) Close() error        { return l.left.Close() }

func (e *Evaluator) buildUnion(n Union, gc graphCtx) (SolutionIterator, error) {
	left, err := e.build(n.Left, gc)
	if err != nil {
		return nil, err
	}
	right, err := e.build(n.Right, gc)
	if err != nil {
		left.Close()
		return nil, err
	}
	return &unionIterator{left: left, right: right}, nil
}

type unionIterator struct {
	left, right SolutionIterator
	onRight     bool
	current     Solution
	err         error
}

func (u *unionIterator) Next() bool {
	if !u.onRight {
		if u.left.Next() {
			u.current = u.left.Solution()
			return true
		}
		if err := u.left.Err(); err != nil {
			u.err = err
			return false
		}
		u.onRight = true
	}
	if u.right.Next() {
		u.current = u.right.Solution()
		return true
	}
	if err := u.right.Err(); err != nil {
		u.err = err
	}
	return false
}
func (u *unionIterator) Solution() Solution { return u.current }
func (u *unionIterator) Err() error          { return u.err }
func (u *unionIterator) Close() error {
	err1 := u.left.Close()
	err2 := u.right.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// materialize fully evaluates alg and returns its solutions as a slice,
// for use as the probed side of a nested-loop join/left-join/minus.
func materialize(alg Algebra, e *Evaluator, gc graphCtx) ([]Solution, error) {
	it, err := e.build(alg, gc)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var rows []Solution
	for it.Next() {
		rows = append(rows, it.Solution())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// --- Filter / Extend / Minus / Values ------------------------------------

func (e *Evaluator) buildFilter(n Filter, gc graphCtx) (SolutionIterator, error) {
	child, err := e.build(n.Child, gc)
	if err != nil {
		return nil, err
	}
	return &filterIterator{eval: e, child: child, cond: n.Cond}, nil
}

type filterIterator struct {
	eval    *Evaluator
	child   SolutionIterator
	cond    Expr
	current Solution
	err     error
}

func (f *filterIterator) Next() bool {
	for f.child.Next() {
		if f.eval.opts.Token.Cancelled() {
			f.err = ErrCancelled
			return false
		}
		sol := f.child.Solution()
		keep, err := f.eval.evalCondition(f.cond, sol)
		if err != nil {
			continue
		}
		if keep {
			f.current = sol
			return true
		}
	}
	if err := f.child.Err(); err != nil {
		f.err = err
	}
	return false
}
func (f *filterIterator) Solution() Solution { return f.current }
func (f *filterIterator) Err() error          { return f.err }
func (f *filterIterator) Close() error        { return f.child.Close() }

// evalCondition evaluates an Expr as a FILTER condition, handling
// [NOT] EXISTS specially since it needs the Evaluator to run a
// sub-evaluation rather than being a pure function of the solution.
func (e *Evaluator) evalCondition(cond Expr, sol Solution) (bool, error) {
	if ex, ok := cond.(ExistsExpr); ok {
		found, err := e.evalExists(ex.Pattern, sol)
		if err != nil {
			return false, err
		}
		if ex.Negate {
			return !found, nil
		}
		return found, nil
	}
	v, err := evalExpr(cond, sol, e.env)
	if err != nil {
		return false, err
	}
	return effectiveBooleanValue(v)
}

func (e *Evaluator) evalExists(pattern Algebra, outer Solution) (bool, error) {
	it, err := e.build(substituteBound(pattern, outer), defaultGraphCtx)
	if err != nil {
		return false, err
	}
	defer it.Close()
	found := it.Next()
	if err := it.Err(); err != nil && !found {
		return false, err
	}
	return found, nil
}

// substituteBound restricts an EXISTS sub-pattern to the outer solution by
// joining it with a one-row VALUES table of the outer bindings, so every
// variable shared with the outer row must take its outer value.
func substituteBound(pattern Algebra, outer Solution) Algebra {
	if len(outer) == 0 {
		return pattern
	}
	vars := make([]Variable, 0, len(outer))
	row := make([]rdf.Term, 0, len(outer))
	for v, t := range outer {
		vars = append(vars, v)
		row = append(row, t)
	}
	return Join{Left: Values{Vars: vars, Rows: [][]rdf.Term{row}}, Right: pattern}
}

func (e *Evaluator) buildExtend(n Extend, gc graphCtx) (SolutionIterator, error) {
	child, err := e.build(n.Child, gc)
	if err != nil {
		return nil, err
	}
	return &extendIterator{eval: e, child: child, varName: n.Var, expr: n.Expr}, nil
}

type extendIterator struct {
	eval    *Evaluator
	child   SolutionIterator
	varName Variable
	expr    Expr
	current Solution
	err     error
}

func (x *extendIterator) Next() bool {
	if !x.child.Next() {
		if err := x.child.Err(); err != nil {
			x.err = err
		}
		return false
	}
	sol := x.child.Solution().Clone()
	if v, err := evalExpr(x.expr, sol, x.eval.env); err == nil {
		sol[x.varName] = v
	}
	x.current = sol
	return true
}
func (x *extendIterator) Solution() Solution { return x.current }
func (x *extendIterator) Err() error          { return x.err }
func (x *extendIterator) Close() error        { return x.child.Close() }

func (e *Evaluator) buildMinus(n Minus, gc graphCtx) (SolutionIterator, error) {
	left, err := e.build(n.Left, gc)
	if err != nil {
		return nil, err
	}
	right, err := materialize(n.Right, e, gc)
	if err != nil {
		left.Close()
		return nil, err
	}
	return &minusIterator{left: left, rightRows: right}, nil
}

type minusIterator struct {
	left      SolutionIterator
	rightRows []Solution
	current   Solution
	err       error
}

func (m *minusIterator) Next() bool {
	for m.left.Next() {
		sol := m.left.Solution()
		if !m.excludedBy(sol) {
			m.current = sol
			return true
		}
	}
	if err := m.left.Err(); err != nil {
		m.err = err
	}
	return false
}

// excludedBy implements MINUS's exact rule: sol is excluded only if some
// right row shares at least one variable with sol AND is compatible with
// it (two solutions with disjoint domains never exclude each other).
func (m *minusIterator) excludedBy(sol Solution) bool {
	for _, r := range m.rightRows {
		if !sharesVariable(sol, r) {
			continue
		}
		if sol.Compatible(r) {
			return true
		}
	}
	return false
}

func sharesVariable(a, b Solution) bool {
	for v := range a {
		if _, ok := b[v]; ok {
			return true
		}
	}
	return false
}

func (m *minusIterator) Solution() Solution { return m.current }
func (m *minusIterator) Err() error          { return m.err }
func (m *minusIterator) Close() error        { return m.left.Close() }

func (e *Evaluator) buildValues(n Values) (SolutionIterator, error) {
	rows := make([]Solution, 0, len(n.Rows))
	for _, row := range n.Rows {
		sol := Solution{}
		for i, v := range n.Vars {
			if i < len(row) && row[i] != nil {
				sol[v] = row[i]
			}
		}
		rows = append(rows, sol)
	}
	return &sliceIterator{rows: rows}, nil
}

type sliceIterator struct {
	rows []Solution
	idx  int
}

func (s *sliceIterator) Next() bool {
	if s.idx >= len(s.rows) {
		return false
	}
	s.idx++
	return true
}
func (s *sliceIterator) Solution() Solution { return s.rows[s.idx-1] }
func (s *sliceIterator) Err() error          { return nil }
func (s *sliceIterator) Close() error        { return nil }

// --- Graph ---------------------------------------------------------------

func (e *Evaluator) buildGraph(n Graph, gc graphCtx) (SolutionIterator, error) {
	if n.Name.IsVariable() {
		return e.buildGraphVar(n)
	}
	inner := graphCtx{scope: store.NamedGraph, name: n.Name.Term}
	return e.build(n.Pattern, inner)
}

// buildGraphVar enumerates every named graph the pattern matches in,
// binding Name.Var to each in turn (GRAPH ?g { ... }).
func (e *Evaluator) buildGraphVar(n Graph) (SolutionIterator, error) {
	graphs, err := e.store.ListGraphs()
	if err != nil {
		return nil, err
	}
	iters := make([]SolutionIterator, 0, len(graphs))
	for _, g := range graphs {
		inner := graphCtx{scope: store.NamedGraph, name: g}
		it, err := e.build(n.Pattern, inner)
		if err != nil {
			for _, prev := range iters {
				prev.Close()
			}
			return nil, err
		}
		iters = append(iters, &bindGraphVarIterator{child: it, varName: n.Name.Var, graph: g})
	}
	return &concatIterator{iters: iters}, nil
}

type bindGraphVarIterator struct {
	child   SolutionIterator
	varName Variable
	graph   rdf.Term
	current Solution
}

func (b *bindGraphVarIterator) Next() bool {
	if !b.child.Next() {
		return false
	}
	sol := b.child.Solution().Clone()
	sol[b.varName] = b.graph
	b.current = sol
	return true
}
func (b *bindGraphVarIterator) Solution() Solution { return b.current }
func (b *bindGraphVarIterator) Err() error          { return b.child.Err() }
func (b *bindGraphVarIterator) Close() error        { return b.child.Close() }

type concatIterator struct {
	iters []SolutionIterator
	idx   int
}

func (c *concatIterator) Next() bool {
	for c.idx < len(c.iters) {
		if c.iters[c.idx].Next() {
			return true
		}
		c.idx++
	}
	return false
}
func (c *concatIterator) Solution() Solution {
	return c.iters[c.idx].Solution()
}
func (c *concatIterator) Err() error {
	if c.idx < len(c.iters) {
		return c.iters[c.idx].Err()
	}
	return nil
}
func (c *concatIterator) Close() error {
	var firstErr error
	for _, it := range c.iters {
		if err := it.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// --- Project / Distinct / Reduced / Slice / OrderBy ----------------------

func (e *Evaluator) buildProject(n Project, gc graphCtx) (SolutionIterator, error) {
	child, err := e.build(n.Child, gc)
	if err != nil {
		return nil, err
	}
	return &projectIterator{child: child, vars: n.Vars}, nil
}

type projectIterator struct {
	child   SolutionIterator
	vars    []Variable
	current Solution
}

func (p *projectIterator) Next() bool {
	if !p.child.Next() {
		return false
	}
	src := p.child.Solution()
	out := Solution{}
	for _, v := range p.vars {
		if t, ok := src[v]; ok {
			out[v] = t
		}
	}
	p.current = out
	return true
}
func (p *projectIterator) Solution() Solution { return p.current }
func (p *projectIterator) Err() error          { return p.child.Err() }
func (p *projectIterator) Close() error        { return p.child.Close() }

func (e *Evaluator) buildDistinct(n Distinct, gc graphCtx) (SolutionIterator, error) {
	child, err := e.build(n.Child, gc)
	if err != nil {
		return nil, err
	}
	return &distinctIterator{child: child, seen: map[string]struct{}{}}, nil
}

type distinctIterator struct {
	child   SolutionIterator
	seen    map[string]struct{}
	current Solution
}

func (d *distinctIterator) Next() bool {
	for d.child.Next() {
		sol := d.child.Solution()
		key := solutionKey(sol)
		if _, ok := d.seen[key]; ok {
			continue
		}
		d.seen[key] = struct{}{}
		d.current = sol
		return true
	}
	return false
}
func (d *distinctIterator) Solution() Solution { return d.current }
func (d *distinctIterator) Err() error          { return d.child.Err() }
func (d *distinctIterator) Close() error        { return d.child.Close() }

func solutionKey(sol Solution) string {
	vars := make([]string, 0, len(sol))
	for v := range sol {
		vars = append(vars, string(v))
	}
	sort.Strings(vars)
	key := ""
	for _, v := range vars {
		key += v + "=" + sol[Variable(v)].String() + "\x00"
	}
	return key
}

// buildReduced is REDUCED: the SPARQL spec permits but does not require
// duplicate elimination, so this passes solutions through unchanged,
// preserving Child's streaming behavior rather than paying Distinct's
// memory cost.
func (e *Evaluator) buildReduced(n Reduced, gc graphCtx) (SolutionIterator, error) {
	return e.build(n.Child, gc)
}

func (e *Evaluator) buildSlice(n Slice, gc graphCtx) (SolutionIterator, error) {
	child, err := e.build(n.Child, gc)
	if err != nil {
		return nil, err
	}
	return &sliceOpIterator{child: child, remaining: n.Offset, limit: n.Limit}, nil
}

type sliceOpIterator struct {
	child     SolutionIterator
	remaining int64
	limit     int64
	emitted   int64
	current   Solution
}

func (s *sliceOpIterator) Next() bool {
	for s.remaining > 0 {
		if !s.child.Next() {
			return false
		}
		s.remaining--
	}
	if s.limit >= 0 && s.emitted >= s.limit {
		return false
	}
	if !s.child.Next() {
		return false
	}
	s.emitted++
	s.current = s.child.Solution()
	return true
}
func (s *sliceOpIterator) Solution() Solution { return s.current }
func (s *sliceOpIterator) Err() error          { return s.child.Err() }
func (s *sliceOpIterator) Close() error        { return s.child.Close() }

func (e *Evaluator) buildOrderBy(n OrderBy, gc graphCtx) (SolutionIterator, error) {
	rows, err := materialize(n.Child, e, gc)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, cond := range n.Conditions {
			vi, erri := evalExpr(cond.Expr, rows[i], e.env)
			vj, errj := evalExpr(cond.Expr, rows[j], e.env)
			c := compareOrderValues(vi, erri, vj, errj)
			if c != 0 {
				if cond.Descending {
					return c > 0
				}
				return c < 0
			}
		}
		return false
	})
	return &sliceIterator{rows: rows}, nil
}

// compareOrderValues orders ORDER BY keys with unevaluable/error values
// sorting lowest (spec's standard treatment of error as a minimal key).
// Numeric literals compare by value, everything else by rdf.Compare's
// total order.
func compareOrderValues(a rdf.Term, errA error, b rdf.Term, errB error) int {
	if errA != nil && errB != nil {
		return 0
	}
	if errA != nil {
		return -1
	}
	if errB != nil {
		return 1
	}
	na, aNum := extractNumeric(a)
	nb, bNum := extractNumeric(b)
	if aNum && bNum {
		switch {
		case na.f < nb.f:
			return -1
		case na.f > nb.f:
			return 1
		default:
			return 0
		}
	}
	return rdf.Compare(a, b)
}

// --- Service ---------------------------------------------------------------

func (e *Evaluator) buildService(n Service, gc graphCtx) (SolutionIterator, error) {
	handler := e.opts.Service
	if handler == nil {
		handler = DefaultServiceHandler
	}
	endpoint, ok := n.Endpoint.Term.(rdf.IRI)
	if !ok {
		if n.Silent {
			return &singletonIterator{sol: Solution{}}, nil
		}
		return nil, typeErrorf("SERVICE requires a bound IRI endpoint")
	}
	rows, err := handler.Query(endpoint, n.Pattern)
	if err != nil {
		if n.Silent {
			return &singletonIterator{sol: Solution{}}, nil
		}
		return nil, err
	}
	return &sliceIterator{rows: rows}, nil
}
