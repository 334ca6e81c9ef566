package sparql

import (
	"testing"

	"github.com/geoknoesis/quadgraph/rdf"
	"github.com/geoknoesis/quadgraph/store"
)

func mustParse(t *testing.T, text string) *Query {
	t.Helper()
	q, err := ParseQuery(text)
	if err != nil {
		t.Fatalf("ParseQuery(%q): %v", text, err)
	}
	return q
}

func TestSelectArithmeticProjection(t *testing.T) {
	s := store.Open(store.OpenMemory())
	defer s.Close()
	if err := s.Insert(rdf.Quad{S: ex("a"), P: ex("p"), O: intLit(1)}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	q := mustParse(t, `SELECT (?o + 1 AS ?n) WHERE { ?s ?p ?o }`)
	res, err := ExecuteQuery(s, q, EvalOptions{})
	if err != nil {
		t.Fatalf("ExecuteQuery: %v", err)
	}
	if len(res.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(res.Rows))
	}
	n, ok := res.Rows[0]["n"].(rdf.Literal)
	if !ok || n.Lexical != "2" {
		t.Fatalf("expected ?n = 2, got %+v", res.Rows[0]["n"])
	}
}

func TestPropertyPathOneOrMore(t *testing.T) {
	s := store.Open(store.OpenMemory())
	defer s.Close()
	for _, pair := range [][2]string{{"a", "b"}, {"b", "c"}, {"c", "d"}} {
		if err := s.Insert(rdf.Quad{S: ex(pair[0]), P: ex("p"), O: ex(pair[1])}); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	q := mustParse(t, `PREFIX : <http://ex/> SELECT ?x WHERE { :a :p+ ?x }`)
	res, err := ExecuteQuery(s, q, EvalOptions{})
	if err != nil {
		t.Fatalf("ExecuteQuery: %v", err)
	}
	got := map[string]bool{}
	for _, row := range res.Rows {
		got[row["x"].String()] = true
	}
	for _, want := range []string{"http://ex/b", "http://ex/c", "http://ex/d"} {
		if !got[want] {
			t.Fatalf("missing %s in path closure, got %v", want, got)
		}
	}
	if len(got) != 3 {
		t.Fatalf("expected exactly 3 closure members, got %v", got)
	}
}

type failingServiceHandler struct{}

func (failingServiceHandler) Query(endpoint rdf.IRI, pattern Algebra) ([]Solution, error) {
	return nil, &ServiceError{Endpoint: endpoint.Value, Err: errUnreachable}
}

var errUnreachable = &evalError{"dial: host unreachable"}

func TestAskServiceSilentUnreachableIsTrue(t *testing.T) {
	s := store.Open(store.OpenMemory())
	defer s.Close()

	q := mustParse(t, `ASK { SERVICE SILENT <http://example/does-not-exist> { ?s ?p ?o } }`)
	res, err := ExecuteQuery(s, q, EvalOptions{Service: failingServiceHandler{}})
	if err != nil {
		t.Fatalf("ExecuteQuery: %v", err)
	}
	if !res.Boolean {
		t.Fatalf("SERVICE SILENT against an unreachable endpoint must yield the empty solution, so ASK is true")
	}
}

func TestServiceNotSilentPropagatesError(t *testing.T) {
	s := store.Open(store.OpenMemory())
	defer s.Close()

	q := mustParse(t, `ASK { SERVICE <http://example/does-not-exist> { ?s ?p ?o } }`)
	_, err := ExecuteQuery(s, q, EvalOptions{Service: failingServiceHandler{}})
	if _, ok := err.(*ServiceError); !ok {
		t.Fatalf("expected *ServiceError without SILENT, got %v", err)
	}
}

func TestCancellationStopsIteration(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	token := &CancellationToken{}
	token.Cancel()
	ev := NewEvaluator(s, EvalOptions{Token: token})
	it, err := ev.Evaluate(valueBGP())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	defer it.Close()
	if it.Next() {
		t.Fatalf("a cancelled evaluation must not emit rows")
	}
	if it.Err() != ErrCancelled {
		t.Fatalf("expected ErrCancelled, got %v", it.Err())
	}
}

func TestOptionalLeavesUnmatchedUnbound(t *testing.T) {
	s := store.Open(store.OpenMemory())
	defer s.Close()
	for _, err := range []error{
		s.Insert(rdf.Quad{S: ex("a"), P: ex("p"), O: ex("x")}),
		s.Insert(rdf.Quad{S: ex("b"), P: ex("p"), O: ex("y")}),
		s.Insert(rdf.Quad{S: ex("a"), P: ex("name"), O: rdf.Literal{Lexical: "A"}}),
	} {
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	q := mustParse(t, `PREFIX : <http://ex/>
		SELECT ?s ?n WHERE { ?s :p ?o . OPTIONAL { ?s :name ?n } }`)
	res, err := ExecuteQuery(s, q, EvalOptions{})
	if err != nil {
		t.Fatalf("ExecuteQuery: %v", err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(res.Rows))
	}
	bound := 0
	for _, row := range res.Rows {
		if _, ok := row["n"]; ok {
			bound++
		}
	}
	if bound != 1 {
		t.Fatalf("expected exactly one row with ?n bound, got %d", bound)
	}
}

func TestOrderByDescLimit(t *testing.T) {
	s := newTestStore(t) // values 10, 20, 30
	defer s.Close()

	q := mustParse(t, `PREFIX : <http://ex/>
		SELECT ?v WHERE { ?s :val ?v } ORDER BY DESC(?v) LIMIT 2`)
	res, err := ExecuteQuery(s, q, EvalOptions{})
	if err != nil {
		t.Fatalf("ExecuteQuery: %v", err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(res.Rows))
	}
	first := res.Rows[0]["v"].(rdf.Literal)
	second := res.Rows[1]["v"].(rdf.Literal)
	if first.Lexical != "30" || second.Lexical != "20" {
		t.Fatalf("expected [30 20], got [%s %s]", first.Lexical, second.Lexical)
	}
}

func TestHashJoinMatchesNestedLoopSemantics(t *testing.T) {
	s := store.Open(store.OpenMemory())
	defer s.Close()
	// 12 subjects with both :p and :q values: enough rows to cross
	// hashJoinThreshold on the materialized side.
	for i := int64(0); i < 12; i++ {
		subj := ex("s" + formatInt(i))
		if err := s.Insert(rdf.Quad{S: subj, P: ex("p"), O: intLit(i)}); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		if err := s.Insert(rdf.Quad{S: subj, P: ex("q"), O: intLit(i * 10)}); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	join := Join{
		Left:  BGP{Patterns: []TriplePattern{{S: Unbound("s"), P: Bound(ex("p")), O: Unbound("a")}}},
		Right: BGP{Patterns: []TriplePattern{{S: Unbound("s"), P: Bound(ex("q")), O: Unbound("b")}}},
	}
	ev := NewEvaluator(s, EvalOptions{})
	it, err := ev.Evaluate(join)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	defer it.Close()

	count := 0
	for it.Next() {
		sol := it.Solution()
		if _, ok := sol["a"]; !ok {
			t.Fatalf("missing ?a in joined row %v", sol)
		}
		if _, ok := sol["b"]; !ok {
			t.Fatalf("missing ?b in joined row %v", sol)
		}
		count++
	}
	if err := it.Err(); err != nil {
		t.Fatalf("iteration error: %v", err)
	}
	if count != 12 {
		t.Fatalf("expected 12 joined rows (one per subject), got %d", count)
	}
}

func TestGraphClauseScopesToNamedGraph(t *testing.T) {
	s := store.Open(store.OpenMemory())
	defer s.Close()
	if err := s.Insert(rdf.Quad{S: ex("a"), P: ex("p"), O: ex("x")}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Insert(rdf.Quad{S: ex("b"), P: ex("p"), O: ex("y"), G: ex("g")}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	q := mustParse(t, `PREFIX : <http://ex/> SELECT ?s WHERE { GRAPH :g { ?s :p ?o } }`)
	res, err := ExecuteQuery(s, q, EvalOptions{})
	if err != nil {
		t.Fatalf("ExecuteQuery: %v", err)
	}
	if len(res.Rows) != 1 || res.Rows[0]["s"].String() != "http://ex/b" {
		t.Fatalf("expected only the named-graph subject, got %+v", res.Rows)
	}
}

func TestFilterThreeValuedLogicDropsErrorRows(t *testing.T) {
	s := store.Open(store.OpenMemory())
	defer s.Close()
	// One numeric value and one plain string: ?v > 15 errors on the
	// string row, and an error outcome must drop the row, not keep it.
	if err := s.Insert(rdf.Quad{S: ex("a"), P: ex("val"), O: intLit(20)}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Insert(rdf.Quad{S: ex("b"), P: ex("val"), O: rdf.Literal{Lexical: "tall"}}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	q := mustParse(t, `PREFIX : <http://ex/> SELECT ?s WHERE { ?s :val ?v . FILTER(?v > 15) }`)
	res, err := ExecuteQuery(s, q, EvalOptions{})
	if err != nil {
		t.Fatalf("ExecuteQuery: %v", err)
	}
	if len(res.Rows) != 1 || res.Rows[0]["s"].String() != "http://ex/a" {
		t.Fatalf("expected only the numeric row to pass, got %+v", res.Rows)
	}
}
