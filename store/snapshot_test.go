package store

import (
	"testing"

	"github.com/geoknoesis/quadgraph/rdf"
)

// A reader opened before a commit must observe none of its quads; one
// opened after must observe all of them.
func TestSnapshotIsolation(t *testing.T) {
	s := Open(OpenMemory())
	defer s.Close()

	x := rdf.IRI{Value: "http://ex/x"}
	p := rdf.IRI{Value: "http://ex/p"}
	y := rdf.IRI{Value: "http://ex/y"}

	before, err := s.Query(Pattern{S: x, P: p, O: y})
	if err != nil {
		t.Fatalf("Query (pre-commit): %v", err)
	}
	defer before.Close()

	if err := s.Insert(rdf.Quad{S: x, P: p, O: y}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if before.Next() {
		t.Fatalf("a reader opened before the commit observed its quad")
	}
	if err := before.Err(); err != nil {
		t.Fatalf("pre-commit reader error: %v", err)
	}

	after, err := s.Query(Pattern{S: x, P: p, O: y})
	if err != nil {
		t.Fatalf("Query (post-commit): %v", err)
	}
	defer after.Close()
	n := 0
	for after.Next() {
		n++
	}
	if err := after.Err(); err != nil {
		t.Fatalf("post-commit reader error: %v", err)
	}
	if n != 1 {
		t.Fatalf("a reader opened after the commit should see exactly one match, saw %d", n)
	}
}

// All six quad indexes answer the same pattern set: query the same data
// through patterns that force each index family's bound-prefix shape.
func TestSixIndexAgreement(t *testing.T) {
	s := Open(OpenMemory())
	defer s.Close()

	a := rdf.IRI{Value: "http://ex/a"}
	p := rdf.IRI{Value: "http://ex/p"}
	b := rdf.IRI{Value: "http://ex/b"}
	g := rdf.IRI{Value: "http://ex/g"}
	if err := s.Insert(rdf.Quad{S: a, P: p, O: b, G: g}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	patterns := []Pattern{
		{S: a},                                  // SPOG
		{P: p},                                  // POSG
		{O: b},                                  // OSPG
		{GraphScope: NamedGraph, G: g},          // GSPO
		{GraphScope: NamedGraph, G: g, P: p},    // GPOS
		{GraphScope: NamedGraph, G: g, O: b},    // GOSP
	}
	for i, pat := range patterns {
		it, err := s.Query(pat)
		if err != nil {
			t.Fatalf("Query #%d: %v", i, err)
		}
		n := 0
		for it.Next() {
			q, err := it.Quad()
			if err != nil {
				t.Fatalf("Quad #%d: %v", i, err)
			}
			if !rdf.Equal(q.S, a) || q.P.Value != p.Value || !rdf.Equal(q.O, b) || !rdf.Equal(q.G, g) {
				t.Fatalf("pattern #%d decoded wrong quad: %+v", i, q)
			}
			n++
		}
		it.Close()
		if n != 1 {
			t.Fatalf("pattern #%d matched %d quads, want 1", i, n)
		}
	}
}

// Quoted triples survive the encode -> store -> decode cycle.
func TestQuotedTripleRoundTripsThroughStore(t *testing.T) {
	s := Open(OpenMemory())
	defer s.Close()

	inner := rdf.TripleTerm{
		S: rdf.IRI{Value: "http://ex/a"},
		P: rdf.IRI{Value: "http://ex/p"},
		O: rdf.Literal{Lexical: "v"},
	}
	q := rdf.Quad{
		S: inner,
		P: rdf.IRI{Value: "http://ex/saidBy"},
		O: rdf.IRI{Value: "http://ex/alice"},
	}
	if err := s.Insert(q); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	it, err := s.Query(Pattern{P: rdf.IRI{Value: "http://ex/saidBy"}})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	defer it.Close()
	if !it.Next() {
		t.Fatalf("quoted-triple quad not found (err=%v)", it.Err())
	}
	got, err := it.Quad()
	if err != nil {
		t.Fatalf("Quad: %v", err)
	}
	if !rdf.Equal(got.S, inner) {
		t.Fatalf("quoted triple did not round-trip: %v", got.S)
	}
}
