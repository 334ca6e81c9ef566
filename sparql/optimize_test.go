package sparql

import (
	"testing"

	"github.com/geoknoesis/quadgraph/rdf"
)

func TestOptimizeFoldsGroundArithmetic(t *testing.T) {
	expr := CallExpr{Op: OpAdd, Args: []Expr{
		ConstExpr{Term: rdf.Literal{Lexical: "2", Datatype: rdf.IRI{Value: "http://www.w3.org/2001/XMLSchema#integer"}}},
		ConstExpr{Term: rdf.Literal{Lexical: "3", Datatype: rdf.IRI{Value: "http://www.w3.org/2001/XMLSchema#integer"}}},
	}}
	alg := Extend{Var: "sum", Expr: expr, Child: BGP{}}

	got := Optimize(alg).(Extend)
	c, ok := got.Expr.(ConstExpr)
	if !ok {
		t.Fatalf("expected folded expression to become a ConstExpr, got %T", got.Expr)
	}
	lit, ok := c.Term.(rdf.Literal)
	if !ok || lit.Lexical != "5" {
		t.Fatalf("expected folded value 5, got %+v", c.Term)
	}
}

func TestOptimizeDoesNotFoldNow(t *testing.T) {
	expr := CallExpr{Op: OpNow, Args: nil}
	alg := Extend{Var: "t", Expr: expr, Child: BGP{}}

	got := Optimize(alg).(Extend)
	if _, ok := got.Expr.(ConstExpr); ok {
		t.Fatalf("NOW() must never be folded to a constant")
	}
}

func TestOptimizePushesFilterToMatchingJoinSide(t *testing.T) {
	ex := func(s string) rdf.IRI { return rdf.IRI{Value: "http://ex/" + s} }
	left := BGP{Patterns: []TriplePattern{{S: Unbound("s"), P: Bound(ex("age")), O: Unbound("age")}}}
	right := BGP{Patterns: []TriplePattern{{S: Unbound("s"), P: Bound(ex("name")), O: Unbound("name")}}}
	join := Join{Left: left, Right: right}
	cond := CallExpr{Op: OpGreater, Args: []Expr{VarExpr{Var: "age"}, ConstExpr{Term: rdf.Literal{Lexical: "18"}}}}
	alg := Filter{Cond: cond, Child: join}

	got := Optimize(alg)
	j, ok := got.(Join)
	if !ok {
		t.Fatalf("expected the filter to push below the join, got %T", got)
	}
	if _, ok := j.Left.(Filter); !ok {
		t.Fatalf("expected the filter to land on the join's left (age) side, got %T", j.Left)
	}
	if _, ok := j.Right.(Filter); ok {
		t.Fatalf("filter must not land on the unrelated right side")
	}
}

func TestOptimizeOrdersBGPByBoundness(t *testing.T) {
	ex := func(s string) rdf.IRI { return rdf.IRI{Value: "http://ex/" + s} }
	bgp := BGP{Patterns: []TriplePattern{
		{S: Unbound("s"), P: Unbound("p"), O: Unbound("o")},
		{S: Unbound("s"), P: Bound(ex("knows")), O: Bound(ex("bob"))},
	}}
	got := Optimize(bgp).(BGP)
	if len(got.Patterns) != 2 {
		t.Fatalf("expected 2 patterns, got %d", len(got.Patterns))
	}
	if got.Patterns[0].P.IsVariable() {
		t.Fatalf("expected the fully-bound pattern to be scheduled first, got %+v", got.Patterns[0])
	}
}

func TestOptimizeLowersPathSequenceToJoin(t *testing.T) {
	p := func(name string) *PathExpr {
		return &PathExpr{Kind: PathIRI, IRI: rdf.IRI{Value: "http://ex/" + name}}
	}
	path := Path{
		Start: Unbound("s"),
		Expr:  PathExpr{Kind: PathSeq, Left: p("a"), Right: p("b")},
		End:   Unbound("o"),
	}
	out := Optimize(path)
	join, ok := out.(Join)
	if !ok {
		t.Fatalf("expected a/b sequence lowered to Join, got %T", out)
	}
	left, lok := join.Left.(BGP)
	right, rok := join.Right.(BGP)
	if !lok || !rok || len(left.Patterns) != 1 || len(right.Patterns) != 1 {
		t.Fatalf("expected two single-pattern BGPs, got %T / %T", join.Left, join.Right)
	}
	mid := left.Patterns[0].O
	if !mid.IsVariable() || right.Patterns[0].S.Var != mid.Var {
		t.Fatalf("sequence halves must share a fresh intermediate variable")
	}
}

func TestOptimizeKeepsClosurePathsPhysical(t *testing.T) {
	sub := &PathExpr{Kind: PathIRI, IRI: rdf.IRI{Value: "http://ex/p"}}
	path := Path{Start: Unbound("s"), Expr: PathExpr{Kind: PathOneOrMore, Sub: sub}, End: Unbound("o")}
	if _, ok := Optimize(path).(Path); !ok {
		t.Fatalf("a recursive closure must stay a Path node")
	}
}

func TestOptimizeLowersInverseByFlippingEndpoints(t *testing.T) {
	sub := &PathExpr{Kind: PathIRI, IRI: rdf.IRI{Value: "http://ex/p"}}
	path := Path{Start: Unbound("s"), Expr: PathExpr{Kind: PathInverse, Sub: sub}, End: Unbound("o")}
	out := Optimize(path)
	bgp, ok := out.(BGP)
	if !ok || len(bgp.Patterns) != 1 {
		t.Fatalf("expected a single-pattern BGP, got %#v", out)
	}
	tp := bgp.Patterns[0]
	if tp.S.Var != "o" || tp.O.Var != "s" {
		t.Fatalf("inverse must flip endpoints, got %+v", tp)
	}
}

// Evaluating a query before and after optimization must yield the same
// multiset of solutions.
func TestOptimizeEquivalenceOnStore(t *testing.T) {
	s := newTestStore(t) // three subjects with :val 10/20/30
	defer s.Close()

	q := mustParse(t, `PREFIX : <http://ex/>
		SELECT ?s ?v WHERE { ?s :val ?v . FILTER(?v > 5) }`)

	run := func(alg Algebra) map[string]int {
		ev := NewEvaluator(s, EvalOptions{})
		it, err := ev.Evaluate(alg)
		if err != nil {
			t.Fatalf("Evaluate: %v", err)
		}
		defer it.Close()
		counts := map[string]int{}
		for it.Next() {
			counts[solutionKey(it.Solution())]++
		}
		if err := it.Err(); err != nil {
			t.Fatalf("iterate: %v", err)
		}
		return counts
	}

	raw := run(q.Algebra)
	opt := run(Optimize(q.Algebra))
	if len(raw) != len(opt) {
		t.Fatalf("optimization changed the solution set: %v vs %v", raw, opt)
	}
	for k, n := range raw {
		if opt[k] != n {
			t.Fatalf("multiset mismatch at %q: %d vs %d", k, n, opt[k])
		}
	}
	if len(raw) != 3 {
		t.Fatalf("expected 3 solutions, got %d", len(raw))
	}
}
