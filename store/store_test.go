package store

import (
	"testing"

	"github.com/geoknoesis/quadgraph/rdf"
)

func sampleQuads() []rdf.Quad {
	ex := func(s string) rdf.IRI { return rdf.IRI{Value: "http://ex/" + s} }
	return []rdf.Quad{
		{S: ex("alice"), P: ex("knows"), O: ex("bob")},
		{S: ex("bob"), P: ex("knows"), O: ex("carol")},
		{S: ex("alice"), P: ex("name"), O: rdf.Literal{Lexical: "Alice"}},
		{S: ex("alice"), P: ex("knows"), O: ex("dave"), G: ex("graph1")},
	}
}

func TestInsertContainsCount(t *testing.T) {
	s := Open(OpenMemory())
	defer s.Close()

	for _, q := range sampleQuads() {
		if err := s.Insert(q); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	count, err := s.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 4 {
		t.Fatalf("expected 4 quads, got %d", count)
	}

	ok, err := s.Contains(sampleQuads()[0])
	if err != nil {
		t.Fatalf("Contains: %v", err)
	}
	if !ok {
		t.Fatalf("expected quad to be present")
	}

	missing := rdf.Quad{S: rdf.IRI{Value: "http://ex/nobody"}, P: rdf.IRI{Value: "http://ex/knows"}, O: rdf.IRI{Value: "http://ex/noone"}}
	ok, err = s.Contains(missing)
	if err != nil {
		t.Fatalf("Contains: %v", err)
	}
	if ok {
		t.Fatalf("expected missing quad to be absent")
	}
}

func TestQueryBoundPredicate(t *testing.T) {
	s := Open(OpenMemory())
	defer s.Close()
	for _, q := range sampleQuads() {
		if err := s.Insert(q); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	it, err := s.Query(Pattern{P: rdf.IRI{Value: "http://ex/knows"}, GraphScope: DefaultGraphOnly})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	defer it.Close()

	var got []rdf.Quad
	for it.Next() {
		q, err := it.Quad()
		if err != nil {
			t.Fatalf("Quad: %v", err)
		}
		got = append(got, q)
	}
	if err := it.Err(); err != nil {
		t.Fatalf("iteration error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 default-graph knows quads, got %d: %v", len(got), got)
	}
}

func TestQueryNamedGraph(t *testing.T) {
	s := Open(OpenMemory())
	defer s.Close()
	for _, q := range sampleQuads() {
		if err := s.Insert(q); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	it, err := s.Query(Pattern{GraphScope: NamedGraph, G: rdf.IRI{Value: "http://ex/graph1"}})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	defer it.Close()

	n := 0
	for it.Next() {
		q, err := it.Quad()
		if err != nil {
			t.Fatalf("Quad: %v", err)
		}
		if q.G == nil || q.G.String() != "http://ex/graph1" {
			t.Fatalf("unexpected graph on %v", q)
		}
		n++
	}
	if n != 1 {
		t.Fatalf("expected 1 quad in graph1, got %d", n)
	}
}

func TestDeleteRemovesFromAllIndexes(t *testing.T) {
	s := Open(OpenMemory())
	defer s.Close()
	quads := sampleQuads()
	for _, q := range quads {
		if err := s.Insert(q); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	if err := s.Delete(quads[0]); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	ok, err := s.Contains(quads[0])
	if err != nil {
		t.Fatalf("Contains: %v", err)
	}
	if ok {
		t.Fatalf("expected deleted quad to be gone")
	}
	count, err := s.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != int64(len(quads)-1) {
		t.Fatalf("expected %d remaining quads, got %d", len(quads)-1, count)
	}
}

func TestBulkInsert(t *testing.T) {
	s := Open(OpenMemory())
	defer s.Close()

	loader, err := s.NewBulkLoader()
	if err != nil {
		t.Fatalf("NewBulkLoader: %v", err)
	}
	loader.WithoutAtomicity()
	if err := loader.InsertAll(sampleQuads()); err != nil {
		t.Fatalf("InsertAll: %v", err)
	}
	if err := loader.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	count, err := s.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 4 {
		t.Fatalf("expected 4 quads after bulk insert, got %d", count)
	}
}

func TestLargeLiteralRoundTripsThroughDictionary(t *testing.T) {
	s := Open(OpenMemory())
	defer s.Close()

	long := rdf.Literal{Lexical: "this lexical form is intentionally longer than the fifteen-byte inline threshold so it has to hash through the dictionary side table"}
	q := rdf.Quad{S: rdf.IRI{Value: "http://ex/doc"}, P: rdf.IRI{Value: "http://ex/body"}, O: long}
	if err := s.Insert(q); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	it, err := s.Query(Pattern{S: rdf.IRI{Value: "http://ex/doc"}, GraphScope: DefaultGraphOnly})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	defer it.Close()
	if !it.Next() {
		t.Fatalf("expected a match")
	}
	got, err := it.Quad()
	if err != nil {
		t.Fatalf("Quad: %v", err)
	}
	if !rdf.Equal(got.O, long) {
		t.Fatalf("round trip mismatch: got %v, want %v", got.O, long)
	}
}
