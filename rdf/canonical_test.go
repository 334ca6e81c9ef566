package rdf

import "testing"

func TestCanonicalizeQuadsRelabelsConsistently(t *testing.T) {
	a := []Quad{
		{S: BlankNode{ID: "x"}, P: IRI{Value: "http://ex/p"}, O: IRI{Value: "http://ex/o"}},
		{S: IRI{Value: "http://ex/s"}, P: IRI{Value: "http://ex/p"}, O: BlankNode{ID: "x"}},
	}
	b := []Quad{
		{S: BlankNode{ID: "other"}, P: IRI{Value: "http://ex/p"}, O: IRI{Value: "http://ex/o"}},
		{S: IRI{Value: "http://ex/s"}, P: IRI{Value: "http://ex/p"}, O: BlankNode{ID: "other"}},
	}

	ca := CanonicalizeQuads(a)
	cb := CanonicalizeQuads(b)

	if len(ca) != len(cb) {
		t.Fatalf("length mismatch: %d vs %d", len(ca), len(cb))
	}
	for i := range ca {
		if !Equal(ca[i].S, cb[i].S) || !Equal(ca[i].O, cb[i].O) {
			t.Fatalf("canonicalized quads differ at %d: %v vs %v", i, ca[i], cb[i])
		}
	}
}

func TestCanonicalizeQuadsNoBlankNodes(t *testing.T) {
	quads := []Quad{{S: IRI{Value: "http://ex/s"}, P: IRI{Value: "http://ex/p"}, O: IRI{Value: "http://ex/o"}}}
	out := CanonicalizeQuads(quads)
	if len(out) != 1 || !Equal(out[0].S, quads[0].S) {
		t.Fatalf("unexpected canonicalization of ground quads: %v", out)
	}
}
