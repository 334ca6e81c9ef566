package sparql

import (
	"testing"

	"github.com/geoknoesis/quadgraph/rdf"
	"github.com/geoknoesis/quadgraph/store"
)

func ex(s string) rdf.IRI { return rdf.IRI{Value: "http://ex/" + s} }

func TestExecuteUpdateInsertDelete(t *testing.T) {
	s := store.Open(store.OpenMemory())
	defer s.Close()

	u := &Update{Operations: []UpdateOp{
		InsertData{Quads: []rdf.Quad{
			{S: ex("alice"), P: ex("knows"), O: ex("bob")},
			{S: ex("bob"), P: ex("knows"), O: ex("carol")},
		}},
	}}
	if err := ExecuteUpdate(s, u, EvalOptions{}); err != nil {
		t.Fatalf("ExecuteUpdate insert: %v", err)
	}
	n, err := s.Count()
	if err != nil || n != 2 {
		t.Fatalf("expected 2 quads after insert, got %d (err=%v)", n, err)
	}

	u2 := &Update{Operations: []UpdateOp{
		DeleteData{Quads: []rdf.Quad{{S: ex("alice"), P: ex("knows"), O: ex("bob")}}},
	}}
	if err := ExecuteUpdate(s, u2, EvalOptions{}); err != nil {
		t.Fatalf("ExecuteUpdate delete: %v", err)
	}
	n, err = s.Count()
	if err != nil || n != 1 {
		t.Fatalf("expected 1 quad after delete, got %d (err=%v)", n, err)
	}
}

func TestExecuteUpdateDeleteInsertRewiresPredicate(t *testing.T) {
	s := store.Open(store.OpenMemory())
	defer s.Close()

	if err := s.Insert(rdf.Quad{S: ex("alice"), P: ex("knows"), O: ex("bob")}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	op := DeleteInsert{
		DeleteTemplate: []TriplePattern{{S: Unbound("s"), P: Bound(ex("knows")), O: Unbound("o")}},
		InsertTemplate: []TriplePattern{{S: Unbound("s"), P: Bound(ex("friendOf")), O: Unbound("o")}},
		Where:          BGP{Patterns: []TriplePattern{{S: Unbound("s"), P: Bound(ex("knows")), O: Unbound("o")}}},
	}
	if err := ExecuteUpdate(s, &Update{Operations: []UpdateOp{op}}, EvalOptions{}); err != nil {
		t.Fatalf("ExecuteUpdate deleteinsert: %v", err)
	}

	ok, err := s.Contains(rdf.Quad{S: ex("alice"), P: ex("knows"), O: ex("bob")})
	if err != nil {
		t.Fatalf("Contains: %v", err)
	}
	if ok {
		t.Fatalf("expected the old knows triple to be gone")
	}
	ok, err = s.Contains(rdf.Quad{S: ex("alice"), P: ex("friendOf"), O: ex("bob")})
	if err != nil {
		t.Fatalf("Contains: %v", err)
	}
	if !ok {
		t.Fatalf("expected the rewired friendOf triple to be present")
	}
}

func TestExecuteUpdateClearDefault(t *testing.T) {
	s := store.Open(store.OpenMemory())
	defer s.Close()
	if err := s.Insert(rdf.Quad{S: ex("alice"), P: ex("knows"), O: ex("bob")}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Insert(rdf.Quad{S: ex("alice"), P: ex("knows"), O: ex("carol"), G: ex("g1")}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	op := Clear{Ref: GraphRefDefault}
	if err := ExecuteUpdate(s, &Update{Operations: []UpdateOp{op}}, EvalOptions{}); err != nil {
		t.Fatalf("ExecuteUpdate clear: %v", err)
	}

	n, err := s.Count()
	if err != nil || n != 1 {
		t.Fatalf("expected only the named-graph quad to survive CLEAR DEFAULT, got %d (err=%v)", n, err)
	}
}

func TestExecuteUpdateCopyGraph(t *testing.T) {
	s := store.Open(store.OpenMemory())
	defer s.Close()
	if err := s.Insert(rdf.Quad{S: ex("alice"), P: ex("knows"), O: ex("bob"), G: ex("src")}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	op := Copy{
		Source: GraphOp{Ref: GraphRefNamed, Name: ex("src")},
		Dest:   GraphOp{Ref: GraphRefNamed, Name: ex("dst")},
	}
	if err := ExecuteUpdate(s, &Update{Operations: []UpdateOp{op}}, EvalOptions{}); err != nil {
		t.Fatalf("ExecuteUpdate copy: %v", err)
	}

	ok, err := s.Contains(rdf.Quad{S: ex("alice"), P: ex("knows"), O: ex("bob"), G: ex("dst")})
	if err != nil {
		t.Fatalf("Contains: %v", err)
	}
	if !ok {
		t.Fatalf("expected the copied triple to appear in the destination graph")
	}
	ok, err = s.Contains(rdf.Quad{S: ex("alice"), P: ex("knows"), O: ex("bob"), G: ex("src")})
	if err != nil {
		t.Fatalf("Contains: %v", err)
	}
	if !ok {
		t.Fatalf("expected COPY to leave the source graph intact")
	}
}
