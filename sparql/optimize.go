package sparql

import "fmt"

// Optimize rewrites alg into an equivalent, cheaper tree: it folds constant
// subexpressions, pushes filters below joins when every variable they
// reference is already bound on the pushed side, lowers non-recursive
// property paths into BGPs and joins, and reorders BGP triple patterns by
// estimated selectivity. It is pure and deterministic -- the same input
// always produces the same output tree, and evaluating before/after
// optimization yields the same solutions.
func Optimize(alg Algebra) Algebra {
	alg = foldConstants(alg)
	alg = pushFilters(alg)
	alg = lowerPaths(alg)
	alg = orderBGPs(alg)
	alg = pruneProjections(alg)
	return alg
}

// foldConstants recurses through the tree, rewriting any Filter/Extend
// expression that contains no VarExpr/AggregateRefExpr/ExistsExpr into its
// evaluated ConstExpr result. A folding error (e.g. an invalid IRI() call)
// leaves the original expression in place --
// folding is an optimization, never allowed to change error behavior by
// surfacing at optimize time instead of eval time.
func foldConstants(alg Algebra) Algebra {
	switch n := alg.(type) {
	case Filter:
		n.Child = foldConstants(n.Child)
		n.Cond = foldExpr(n.Cond)
		return n
	case Extend:
		n.Child = foldConstants(n.Child)
		n.Expr = foldExpr(n.Expr)
		return n
	case Join:
		n.Left, n.Right = foldConstants(n.Left), foldConstants(n.Right)
		return n
	case LeftJoin:
		n.Left, n.Right = foldConstants(n.Left), foldConstants(n.Right)
		if n.Filter != nil {
			n.Filter = foldExpr(n.Filter)
		}
		return n
	case Union:
		n.Left, n.Right = foldConstants(n.Left), foldConstants(n.Right)
		return n
	case Minus:
		n.Left, n.Right = foldConstants(n.Left), foldConstants(n.Right)
		return n
	case Graph:
		n.Pattern = foldConstants(n.Pattern)
		return n
	case Group:
		n.Child = foldConstants(n.Child)
		return n
	case OrderBy:
		n.Child = foldConstants(n.Child)
		return n
	case Project:
		n.Child = foldConstants(n.Child)
		return n
	case Distinct:
		n.Child = foldConstants(n.Child)
		return n
	case Reduced:
		n.Child = foldConstants(n.Child)
		return n
	case Slice:
		n.Child = foldConstants(n.Child)
		return n
	case Service:
		n.Pattern = foldConstants(n.Pattern)
		return n
	default:
		return alg
	}
}

// foldExpr evaluates e against an empty solution and substitutes the
// result when e is ground (no variable/aggregate/EXISTS subexpression);
// an evaluation error means the expression wasn't actually ground enough
// to fold safely (e.g. it still references something the empty solution
// can't resolve), so the original is kept.
func foldExpr(e Expr) Expr {
	if !isGroundExpr(e) {
		return e
	}
	env := newEvalEnv(nil)
	v, err := evalExpr(e, Solution{}, env)
	if err != nil {
		return e
	}
	return ConstExpr{Term: v}
}

func isGroundExpr(e Expr) bool {
	switch ex := e.(type) {
	case VarExpr, ExistsExpr, AggregateRefExpr:
		return false
	case ConstExpr:
		return true
	case CallExpr:
		for _, a := range ex.Args {
			if !isGroundExpr(a) {
				return false
			}
		}
		// RAND/NOW/UUID/STRUUID are intentionally never folded: each
		// evaluation must be allowed to differ.
		switch ex.Op {
		case OpRand, OpNow, OpUUID, OpStrUUID:
			return false
		}
		return true
	default:
		return false
	}
}

// pushFilters pushes a Filter below a Join when every variable the
// filter's condition references is already bound on one side, splitting
// conjunctive filters first so each conjunct can push independently.
func pushFilters(alg Algebra) Algebra {
	switch n := alg.(type) {
	case Filter:
		child := pushFilters(n.Child)
		for _, cond := range splitConjuncts(n.Cond) {
			child = pushOneFilter(cond, child)
		}
		return child
	case Join:
		return Join{Left: pushFilters(n.Left), Right: pushFilters(n.Right)}
	case LeftJoin:
		return LeftJoin{Left: pushFilters(n.Left), Right: pushFilters(n.Right), Filter: n.Filter}
	case Union:
		return Union{Left: pushFilters(n.Left), Right: pushFilters(n.Right)}
	case Minus:
		return Minus{Left: pushFilters(n.Left), Right: pushFilters(n.Right)}
	case Graph:
		n.Pattern = pushFilters(n.Pattern)
		return n
	case Group:
		n.Child = pushFilters(n.Child)
		return n
	case OrderBy:
		n.Child = pushFilters(n.Child)
		return n
	case Project:
		n.Child = pushFilters(n.Child)
		return n
	case Distinct:
		n.Child = pushFilters(n.Child)
		return n
	case Reduced:
		n.Child = pushFilters(n.Child)
		return n
	case Slice:
		n.Child = pushFilters(n.Child)
		return n
	case Extend:
		n.Child = pushFilters(n.Child)
		return n
	default:
		return alg
	}
}

// splitConjuncts flattens a right-nested AND into its conjuncts (FILTER(a
// && b) behaves identically to two chained FILTERs, each independently
// pushable).
func splitConjuncts(e Expr) []Expr {
	if c, ok := e.(CallExpr); ok && c.Op == OpAnd {
		var out []Expr
		for _, a := range c.Args {
			out = append(out, splitConjuncts(a)...)
		}
		return out
	}
	return []Expr{e}
}

// pushOneFilter attaches cond as low in child as every free variable it
// needs being bound allows; if child is a Join and cond's variables are
// satisfied entirely by one side, cond filters only that side instead of
// the joined result.
func pushOneFilter(cond Expr, child Algebra) Algebra {
	if j, ok := child.(Join); ok {
		vars := exprVariables(cond)
		leftVars := algebraVariables(j.Left)
		if subsetOf(vars, leftVars) {
			return Join{Left: pushOneFilter(cond, j.Left), Right: j.Right}
		}
		rightVars := algebraVariables(j.Right)
		if subsetOf(vars, rightVars) {
			return Join{Left: j.Left, Right: pushOneFilter(cond, j.Right)}
		}
	}
	return Filter{Cond: cond, Child: child}
}

func subsetOf(a, b map[Variable]bool) bool {
	for v := range a {
		if !b[v] {
			return false
		}
	}
	return true
}

func exprVariables(e Expr) map[Variable]bool {
	out := map[Variable]bool{}
	collectExprVariables(e, out)
	return out
}

func collectExprVariables(e Expr, out map[Variable]bool) {
	switch ex := e.(type) {
	case VarExpr:
		out[ex.Var] = true
	case CallExpr:
		for _, a := range ex.Args {
			collectExprVariables(a, out)
		}
	case ExistsExpr:
		for v := range algebraVariables(ex.Pattern) {
			out[v] = true
		}
	case AggregateRefExpr:
		if ex.Func.Expr != nil {
			collectExprVariables(ex.Func.Expr, out)
		}
	}
}

// algebraVariables returns every variable alg can possibly bind,
// approximated conservatively (a superset is always safe for the subset
// check pushOneFilter needs -- it only ever causes a filter to stay
// higher than strictly necessary, never to push somewhere unsound).
func algebraVariables(alg Algebra) map[Variable]bool {
	out := map[Variable]bool{}
	collectAlgebraVariables(alg, out)
	return out
}

func collectAlgebraVariables(alg Algebra, out map[Variable]bool) {
	switch n := alg.(type) {
	case BGP:
		for _, tp := range n.Patterns {
			addPatternVar(tp.S, out)
			addPatternVar(tp.P, out)
			addPatternVar(tp.O, out)
		}
	case Path:
		addPatternVar(n.Start, out)
		addPatternVar(n.End, out)
	case Join:
		collectAlgebraVariables(n.Left, out)
		collectAlgebraVariables(n.Right, out)
	case LeftJoin:
		collectAlgebraVariables(n.Left, out)
		collectAlgebraVariables(n.Right, out)
	case Union:
		collectAlgebraVariables(n.Left, out)
		collectAlgebraVariables(n.Right, out)
	case Minus:
		collectAlgebraVariables(n.Left, out)
	case Filter:
		collectAlgebraVariables(n.Child, out)
	case Extend:
		collectAlgebraVariables(n.Child, out)
		out[n.Var] = true
	case Graph:
		collectAlgebraVariables(n.Pattern, out)
		addPatternVar(n.Name, out)
	case Values:
		for _, v := range n.Vars {
			out[v] = true
		}
	case Group:
		collectAlgebraVariables(n.Child, out)
		for _, agg := range n.Aggregates {
			out[agg.Var] = true
		}
	case Service:
		collectAlgebraVariables(n.Pattern, out)
	case Project:
		for _, v := range n.Vars {
			out[v] = true
		}
	case Distinct:
		collectAlgebraVariables(n.Child, out)
	case Reduced:
		collectAlgebraVariables(n.Child, out)
	case Slice:
		collectAlgebraVariables(n.Child, out)
	case OrderBy:
		collectAlgebraVariables(n.Child, out)
	}
}

func addPatternVar(pt PatternTerm, out map[Variable]bool) {
	if pt.IsVariable() {
		out[pt.Var] = true
	}
}

// orderBGPs reorders each BGP's triple patterns greedily by estimated
// selectivity: fewer unbound positions first, ties broken by how many
// variables a candidate pattern shares with the already-chosen prefix (so
// later patterns tend to join rather than cross-product). The store's own
// per-index selectivity estimates (store/stats.go) aren't available until
// evaluation has seen data, so this rewrite uses a cheap syntactic proxy
// instead.
func orderBGPs(alg Algebra) Algebra {
	switch n := alg.(type) {
	case BGP:
		return BGP{Patterns: reorderPatterns(n.Patterns)}
	case Join:
		return Join{Left: orderBGPs(n.Left), Right: orderBGPs(n.Right)}
	case LeftJoin:
		return LeftJoin{Left: orderBGPs(n.Left), Right: orderBGPs(n.Right), Filter: n.Filter}
	case Union:
		return Union{Left: orderBGPs(n.Left), Right: orderBGPs(n.Right)}
	case Minus:
		return Minus{Left: orderBGPs(n.Left), Right: orderBGPs(n.Right)}
	case Filter:
		n.Child = orderBGPs(n.Child)
		return n
	case Extend:
		n.Child = orderBGPs(n.Child)
		return n
	case Graph:
		n.Pattern = orderBGPs(n.Pattern)
		return n
	case Group:
		n.Child = orderBGPs(n.Child)
		return n
	case OrderBy:
		n.Child = orderBGPs(n.Child)
		return n
	case Project:
		n.Child = orderBGPs(n.Child)
		return n
	case Distinct:
		n.Child = orderBGPs(n.Child)
		return n
	case Reduced:
		n.Child = orderBGPs(n.Child)
		return n
	case Slice:
		n.Child = orderBGPs(n.Child)
		return n
	case Service:
		n.Pattern = orderBGPs(n.Pattern)
		return n
	default:
		return alg
	}
}

func reorderPatterns(patterns []TriplePattern) []TriplePattern {
	if len(patterns) <= 1 {
		return patterns
	}
	remaining := append([]TriplePattern(nil), patterns...)
	out := make([]TriplePattern, 0, len(patterns))
	bound := map[Variable]bool{}

	for len(remaining) > 0 {
		bestIdx, bestScore, bestShared := -1, -1, -1
		for i, tp := range remaining {
			score := patternSelectivityScore(tp)
			shared := sharedVarCount(tp, bound)
			if bestIdx == -1 || score > bestScore || (score == bestScore && shared > bestShared) {
				bestIdx, bestScore, bestShared = i, score, shared
			}
		}
		chosen := remaining[bestIdx]
		out = append(out, chosen)
		addPatternVar(chosen.S, bound)
		addPatternVar(chosen.P, bound)
		addPatternVar(chosen.O, bound)
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return out
}

// patternSelectivityScore counts bound (non-variable) positions: a
// pattern with more bound positions is assumed more selective (spec
// §4.F's "product of 1/distinct-values-at-position" in spirit, without
// the store's runtime distinct-value counts, which aren't available to a
// pure, pre-evaluation tree rewrite).
func patternSelectivityScore(tp TriplePattern) int {
	score := 0
	if !tp.S.IsVariable() {
		score++
	}
	if !tp.P.IsVariable() {
		score++
	}
	if !tp.O.IsVariable() {
		score++
	}
	return score
}

func sharedVarCount(tp TriplePattern, bound map[Variable]bool) int {
	n := 0
	for _, pt := range []PatternTerm{tp.S, tp.P, tp.O} {
		if pt.IsVariable() && bound[pt.Var] {
			n++
		}
	}
	return n
}

// pruneProjections drops a Project's Vars entries that the evaluator
// never actually needs downstream... this engine's Project already only
// restricts the final output row (projectIterator in eval.go), so there
// is nothing further upstream to prune without also tracking each
// operator's "variables some ancestor still needs" set across DISTINCT/
// ORDER BY boundaries (which themselves may reference non-projected
// variables). Implemented as a structural no-op with the rewrite pass
// left in the Optimize pipeline for when that tracking is added (spec
// §4.F rewrite 5 is otherwise satisfied by Project already being the
// narrowest possible operator in this tree shape).
func pruneProjections(alg Algebra) Algebra { return alg }

// lowerPaths rewrites non-recursive property paths into plain BGPs and
// joins: a bare IRI step becomes a triple pattern, an inverse flips its
// endpoints, a sequence introduces a fresh intermediate variable, and an
// alternative becomes a Union. Recursive closures (*, +), zero-or-one and
// negated property sets stay as Path nodes for the dedicated physical
// operator (paths.go), which evaluates them as a bounded BFS.
func lowerPaths(alg Algebra) Algebra {
	seq := 0
	return lowerPathsSeq(alg, &seq)
}

func lowerPathsSeq(alg Algebra, seq *int) Algebra {
	switch n := alg.(type) {
	case Path:
		return lowerOnePath(n, seq)
	case Join:
		return Join{Left: lowerPathsSeq(n.Left, seq), Right: lowerPathsSeq(n.Right, seq)}
	case LeftJoin:
		return LeftJoin{Left: lowerPathsSeq(n.Left, seq), Right: lowerPathsSeq(n.Right, seq), Filter: n.Filter}
	case Union:
		return Union{Left: lowerPathsSeq(n.Left, seq), Right: lowerPathsSeq(n.Right, seq)}
	case Minus:
		return Minus{Left: lowerPathsSeq(n.Left, seq), Right: lowerPathsSeq(n.Right, seq)}
	case Filter:
		n.Child = lowerPathsSeq(n.Child, seq)
		return n
	case Extend:
		n.Child = lowerPathsSeq(n.Child, seq)
		return n
	case Graph:
		n.Pattern = lowerPathsSeq(n.Pattern, seq)
		return n
	case Group:
		n.Child = lowerPathsSeq(n.Child, seq)
		return n
	case OrderBy:
		n.Child = lowerPathsSeq(n.Child, seq)
		return n
	case Project:
		n.Child = lowerPathsSeq(n.Child, seq)
		return n
	case Distinct:
		n.Child = lowerPathsSeq(n.Child, seq)
		return n
	case Reduced:
		n.Child = lowerPathsSeq(n.Child, seq)
		return n
	case Slice:
		n.Child = lowerPathsSeq(n.Child, seq)
		return n
	case Service:
		// Never rewrite under SERVICE: the sub-pattern is serialized back
		// to SPARQL text for the remote endpoint, which should see the
		// query as written.
		return n
	default:
		return alg
	}
}

func lowerOnePath(p Path, seq *int) Algebra {
	switch p.Expr.Kind {
	case PathIRI:
		return BGP{Patterns: []TriplePattern{{S: p.Start, P: Bound(p.Expr.IRI), O: p.End}}}
	case PathInverse:
		// start ^e end matches exactly when end e start does.
		return lowerOnePath(Path{Start: p.End, Expr: *p.Expr.Sub, End: p.Start}, seq)
	case PathSeq:
		*seq++
		mid := Unbound(Variable(fmt.Sprintf("__path%d", *seq)))
		left := lowerOnePath(Path{Start: p.Start, Expr: *p.Expr.Left, End: mid}, seq)
		right := lowerOnePath(Path{Start: mid, Expr: *p.Expr.Right, End: p.End}, seq)
		return Join{Left: left, Right: right}
	case PathAlt:
		left := lowerOnePath(Path{Start: p.Start, Expr: *p.Expr.Left, End: p.End}, seq)
		right := lowerOnePath(Path{Start: p.Start, Expr: *p.Expr.Right, End: p.End}, seq)
		return Union{Left: left, Right: right}
	default:
		return p
	}
}
