package sparql

import (
	"testing"

	"github.com/geoknoesis/quadgraph/rdf"
	"github.com/geoknoesis/quadgraph/store"
	"github.com/geoknoesis/quadgraph/xsd"
)

func intLit(n int64) rdf.Literal {
	return rdf.Literal{Lexical: formatInt(n), Datatype: xsd.Integer}
}

func formatInt(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}

func valueBGP() BGP {
	ex := func(s string) rdf.IRI { return rdf.IRI{Value: "http://ex/" + s} }
	return BGP{Patterns: []TriplePattern{
		{S: Unbound("s"), P: Bound(ex("val")), O: Unbound("v")},
	}}
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.Open(store.OpenMemory())
	ex := func(n string) rdf.IRI { return rdf.IRI{Value: "http://ex/" + n} }
	vals := []int64{10, 20, 30}
	for i, v := range vals {
		q := rdf.Quad{S: ex(formatInt(int64(i))), P: ex("val"), O: intLit(v)}
		if err := s.Insert(q); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	return s
}

func TestGroupSumNoKeys(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	group := Group{
		Keys: nil,
		Aggregates: []AggregateBinding{
			{Var: "total", Func: AggregateFunc{Kind: AggSum, Expr: VarExpr{Var: "v"}}},
			{Var: "n", Func: AggregateFunc{Kind: AggCount, Expr: VarExpr{Var: "v"}}},
		},
		Child: valueBGP(),
	}

	ev := NewEvaluator(s, EvalOptions{})
	it, err := ev.Evaluate(group)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	defer it.Close()

	if !it.Next() {
		t.Fatalf("expected one group row, got none (err=%v)", it.Err())
	}
	sol := it.Solution()
	total, ok := sol["total"].(rdf.Literal)
	if !ok || total.Lexical != "60" {
		t.Fatalf("expected total=60, got %+v", sol["total"])
	}
	n, ok := sol["n"].(rdf.Literal)
	if !ok || n.Lexical != "3" {
		t.Fatalf("expected n=3, got %+v", sol["n"])
	}
	if it.Next() {
		t.Fatalf("expected exactly one group row")
	}
}

func TestGroupMaxGroupsLimit(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	group := Group{
		Keys:       []Expr{VarExpr{Var: "v"}},
		Aggregates: nil,
		Child:      valueBGP(),
	}

	opts := EvalOptions{Limits: Limits{MaxGroups: 1, MaxResultRows: 1000, MaxPropertyPathDepth: 100, Timeout: DefaultLimits().Timeout}}
	ev := NewEvaluator(s, opts)
	_, err := ev.Evaluate(group)
	if _, ok := err.(*LimitError); !ok {
		t.Fatalf("expected a *LimitError once more than MaxGroups distinct groups appear, got %v", err)
	}
}
