package rdf

import (
	"strings"
	"testing"
)

func TestTurtleDecoderExpandsPrefixedNames(t *testing.T) {
	input := "@prefix ex: <http://quadgraph.example/> .\nex:s ex:p \"v\" .\n"
	dec := newTurtleTripleDecoder(strings.NewReader(input))
	quad, err := dec.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if got, want := quad.P.Value, "http://quadgraph.example/p"; got != want {
		t.Fatalf("predicate = %q, want %q", got, want)
	}
}

func TestTurtleDecoderResolvesRelativeIRIAgainstBase(t *testing.T) {
	input := "@base <http://quadgraph.example/> .\n<rel> <http://quadgraph.example/p> <http://quadgraph.example/o> .\n"
	dec := newTurtleTripleDecoder(strings.NewReader(input))
	quad, err := dec.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	iri, ok := quad.S.(IRI)
	if !ok || iri.Value != "http://quadgraph.example/rel" {
		t.Fatalf("subject = %#v, want http://quadgraph.example/rel", quad.S)
	}
}

func TestTurtleDecoderParsesQuotedTripleSubject(t *testing.T) {
	input := "<< <http://quadgraph.example/s> <http://quadgraph.example/p> <http://quadgraph.example/o> >> " +
		"<http://quadgraph.example/certainty> <http://quadgraph.example/high> .\n"
	dec := newTurtleTripleDecoder(strings.NewReader(input))
	quad, err := dec.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if _, ok := quad.S.(TripleTerm); !ok {
		t.Fatalf("subject = %T, want TripleTerm", quad.S)
	}
}

func TestTurtleDecoderRejectsBadQuotedTriple(t *testing.T) {
	input := "<< <http://quadgraph.example/s> <http://quadgraph.example/p> <http://quadgraph.example/o> " +
		"<http://quadgraph.example/p2> <http://quadgraph.example/o2> .\n"
	dec := newTurtleTripleDecoder(strings.NewReader(input))
	if _, err := dec.Next(); err == nil {
		t.Fatal("expected an error for a quoted triple with no closing >>")
	}
}

func TestTurtleDecoderRejectsLiteralPredicate(t *testing.T) {
	input := "_:n1 \"not a predicate\" <http://quadgraph.example/o> .\n"
	dec := newTurtleTripleDecoder(strings.NewReader(input))
	if _, err := dec.Next(); err == nil {
		t.Fatal("expected an error: a literal cannot serve as a predicate")
	}
}

func TestTurtleDecoderRejectsUndeclaredPrefix(t *testing.T) {
	input := "ex:s ex:p ex:o .\n"
	dec := newTurtleTripleDecoder(strings.NewReader(input))
	if _, err := dec.Next(); err == nil {
		t.Fatal("expected an error for a prefix that was never declared")
	}
}

func TestTriGDecoderAttachesGraphTerm(t *testing.T) {
	input := "@prefix ex: <http://quadgraph.example/> .\nex:g { ex:s ex:p ex:o . }\n"
	dec := newTriGQuadDecoder(strings.NewReader(input))
	quad, err := dec.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if quad.G == nil {
		t.Fatal("expected a bound graph term inside a TriG GRAPH block")
	}
}

func TestTurtleDecoderParsesPrefixedDatatype(t *testing.T) {
	input := "@prefix ex: <http://quadgraph.example/> .\nex:s ex:p \"42\"^^ex:int .\n"
	dec := newTurtleTripleDecoder(strings.NewReader(input))
	quad, err := dec.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	lit, ok := quad.O.(Literal)
	if !ok || lit.Datatype.Value != "http://quadgraph.example/int" {
		t.Fatalf("object = %#v, want a datatyped literal", quad.O)
	}
}

func TestTurtleDecoderParsesLanguageTaggedLiteral(t *testing.T) {
	input := "@prefix ex: <http://quadgraph.example/> .\nex:s ex:p \"hola\"@es .\n"
	dec := newTurtleTripleDecoder(strings.NewReader(input))
	quad, err := dec.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	lit, ok := quad.O.(Literal)
	if !ok || lit.Lang != "es" {
		t.Fatalf("object = %#v, want a literal tagged es", quad.O)
	}
}

func TestTurtleCollectionExpandsToRDFList(t *testing.T) {
	input := "@prefix : <http://quadgraph.example/> .\n:s :p ( :a :b :c ) .\n"
	dec := newTurtleTripleDecoder(strings.NewReader(input))
	var quads []Quad
	for {
		q, err := dec.Next()
		if err != nil {
			break
		}
		quads = append(quads, q)
	}
	if len(quads) != 7 {
		t.Fatalf("got %d triples for a 3-element collection, want 7 (the standard RDF list encoding)", len(quads))
	}
}

func TestTurtleDecoderExpandsCollectionToSevenTriples(t *testing.T) {
	input := "@prefix : <http://ex/> . :s :p ( :a :b :c ) .\n"
	dec := newTurtleTripleDecoder(strings.NewReader(input))

	const rdfNS = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	counts := map[string]int{}
	total := 0
	for {
		quad, err := dec.Next()
		if err != nil {
			break
		}
		counts[quad.P.Value]++
		total++
	}

	// The standard RDF collection encoding of a 3-element list: the
	// :s :p <head> triple, three rdf:first triples, and three rdf:rest
	// triples (the last one pointing at rdf:nil).
	if total != 7 {
		t.Fatalf("collection expanded to %d triples, want 7 (%v)", total, counts)
	}
	if counts[rdfNS+"first"] != 3 {
		t.Fatalf("rdf:first count = %d, want 3", counts[rdfNS+"first"])
	}
	if counts[rdfNS+"rest"] != 3 {
		t.Fatalf("rdf:rest count = %d, want 3", counts[rdfNS+"rest"])
	}
	if counts["http://ex/p"] != 1 {
		t.Fatalf("head triple count = %d, want 1", counts["http://ex/p"])
	}
}
