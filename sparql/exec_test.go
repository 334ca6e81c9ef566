package sparql

import (
	"testing"

	"github.com/geoknoesis/quadgraph/rdf"
	"github.com/geoknoesis/quadgraph/store"
)

func TestExecuteConstructBuildsGraph(t *testing.T) {
	s := store.Open(store.OpenMemory())
	defer s.Close()
	if err := s.Insert(rdf.Quad{S: ex("a"), P: ex("p"), O: ex("b")}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Insert(rdf.Quad{S: ex("c"), P: ex("p"), O: ex("d")}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	q := mustParse(t, `PREFIX : <http://ex/>
		CONSTRUCT { ?s :rewired ?o } WHERE { ?s :p ?o }`)
	res, err := ExecuteQuery(s, q, EvalOptions{})
	if err != nil {
		t.Fatalf("ExecuteQuery: %v", err)
	}
	if len(res.Triples) != 2 {
		t.Fatalf("expected 2 constructed triples, got %d", len(res.Triples))
	}
	for _, tr := range res.Triples {
		if tr.P.Value != "http://ex/rewired" {
			t.Fatalf("unexpected constructed predicate %s", tr.P.Value)
		}
	}
}

func TestExecuteConstructFreshBlankNodesPerRow(t *testing.T) {
	s := store.Open(store.OpenMemory())
	defer s.Close()
	if err := s.Insert(rdf.Quad{S: ex("a"), P: ex("p"), O: intLit(1)}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Insert(rdf.Quad{S: ex("b"), P: ex("p"), O: intLit(2)}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	q := mustParse(t, `PREFIX : <http://ex/>
		CONSTRUCT { _:v :of ?s } WHERE { ?s :p ?o }`)
	res, err := ExecuteQuery(s, q, EvalOptions{})
	if err != nil {
		t.Fatalf("ExecuteQuery: %v", err)
	}
	if len(res.Triples) != 2 {
		t.Fatalf("expected 2 triples, got %d", len(res.Triples))
	}
	b0, ok0 := res.Triples[0].S.(rdf.BlankNode)
	b1, ok1 := res.Triples[1].S.(rdf.BlankNode)
	if !ok0 || !ok1 {
		t.Fatalf("expected blank node subjects, got %T and %T", res.Triples[0].S, res.Triples[1].S)
	}
	if b0.ID == b1.ID {
		t.Fatalf("template blank node must be renamed per solution, both rows got %q", b0.ID)
	}
}

func TestExecuteDescribeFollowsLabelAndType(t *testing.T) {
	s := store.Open(store.OpenMemory())
	defer s.Close()
	label := rdf.IRI{Value: "http://www.w3.org/2000/01/rdf-schema#label"}
	for _, q := range []rdf.Quad{
		{S: ex("a"), P: ex("knows"), O: ex("b")},
		{S: ex("b"), P: label, O: rdf.Literal{Lexical: "B"}},
		{S: ex("b"), P: ex("age"), O: intLit(7)}, // beyond the follow set: must not appear
		{S: ex("z"), P: ex("p"), O: ex("y")},     // unrelated resource
	} {
		if err := s.Insert(q); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	q := mustParse(t, `DESCRIBE <http://ex/a>`)
	res, err := ExecuteQuery(s, q, EvalOptions{})
	if err != nil {
		t.Fatalf("ExecuteQuery: %v", err)
	}
	var sawKnows, sawLabel, sawAge bool
	for _, tr := range res.Triples {
		switch tr.P.Value {
		case "http://ex/knows":
			sawKnows = true
		case label.Value:
			sawLabel = true
		case "http://ex/age":
			sawAge = true
		}
	}
	if !sawKnows || !sawLabel {
		t.Fatalf("expected outbound triple and object label (knows=%v label=%v)", sawKnows, sawLabel)
	}
	if sawAge {
		t.Fatalf("DESCRIBE must not follow predicates outside the configured follow set")
	}
}

func TestExecuteDescribeWithWhereBindsResources(t *testing.T) {
	s := store.Open(store.OpenMemory())
	defer s.Close()
	if err := s.Insert(rdf.Quad{S: ex("a"), P: ex("p"), O: ex("b")}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	q := mustParse(t, `PREFIX : <http://ex/> DESCRIBE ?s WHERE { ?s :p :b }`)
	res, err := ExecuteQuery(s, q, EvalOptions{})
	if err != nil {
		t.Fatalf("ExecuteQuery: %v", err)
	}
	if len(res.Triples) == 0 {
		t.Fatalf("expected the description of :a, got nothing")
	}
	for _, tr := range res.Triples {
		if tr.S.String() != "http://ex/a" && tr.S.String() != "http://ex/b" {
			t.Fatalf("unexpected subject %s in description", tr.S)
		}
	}
}

func TestQueryResultToBindings(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	q := mustParse(t, `PREFIX : <http://ex/> SELECT ?s ?v WHERE { ?s :val ?v }`)
	res, err := ExecuteQuery(s, q, EvalOptions{})
	if err != nil {
		t.Fatalf("ExecuteQuery: %v", err)
	}
	wire, err := res.Result()
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if wire.Bindings == nil {
		t.Fatalf("expected a bindings result")
	}
	if len(wire.Bindings.Vars) != 2 || wire.Bindings.Vars[0] != "s" || wire.Bindings.Vars[1] != "v" {
		t.Fatalf("unexpected head %v", wire.Bindings.Vars)
	}
	if len(wire.Bindings.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(wire.Bindings.Rows))
	}

	ask := &QueryResult{Form: FormAsk, Boolean: true}
	wire, err = ask.Result()
	if err != nil || wire.Boolean == nil || !*wire.Boolean {
		t.Fatalf("unexpected ASK conversion: %+v err=%v", wire, err)
	}

	graph := &QueryResult{Form: FormConstruct}
	if _, err := graph.Result(); err == nil {
		t.Fatalf("CONSTRUCT results must not convert to a bindings result")
	}
}
