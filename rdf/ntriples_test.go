package rdf

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestNTriplesDecoderRejectsIncompleteStatements(t *testing.T) {
	cases := []string{
		"<http://quadgraph.example/s> <http://quadgraph.example/p> .\n",
		"<http://quadgraph.example/s> <http://quadgraph.example/p> <http://quadgraph.example/o>\n",
		"<http://quadgraph.example/s <http://quadgraph.example/p> <http://quadgraph.example/o> .\n",
		"_: <http://quadgraph.example/p> <http://quadgraph.example/o> .\n",
	}
	for _, line := range cases {
		t.Run(line, func(t *testing.T) {
			dec := newNTriplesTripleDecoder(strings.NewReader(line))
			if _, err := dec.Next(); err == nil {
				t.Fatalf("expected a syntax error for %q", line)
			}
		})
	}
}

func TestNTriplesDecoderRejectsFourthComponent(t *testing.T) {
	line := "<http://quadgraph.example/s> <http://quadgraph.example/p> <http://quadgraph.example/o> <http://quadgraph.example/g> .\n"
	dec := newNTriplesTripleDecoder(strings.NewReader(line))
	if _, err := dec.Next(); err == nil {
		t.Fatal("N-Triples must reject a fourth (graph) term")
	}
}

func TestNTriplesDecoderHandlesBlankSubjectAndLangLiteral(t *testing.T) {
	line := "_:n1 <http://quadgraph.example/p> \"bonjour\"@fr .\n"
	dec := newNTriplesTripleDecoder(strings.NewReader(line))
	triple, err := dec.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if _, ok := triple.S.(BlankNode); !ok {
		t.Fatalf("subject = %T, want BlankNode", triple.S)
	}
	lit, ok := triple.O.(Literal)
	if !ok || lit.Lang != "fr" {
		t.Fatalf("object = %#v, want a literal tagged fr", triple.O)
	}
}

func TestNTriplesDecoderHandlesDatatypedLiteral(t *testing.T) {
	line := "<http://quadgraph.example/s> <http://quadgraph.example/p> \"42\"^^<http://quadgraph.example/int> .\n"
	dec := newNTriplesTripleDecoder(strings.NewReader(line))
	triple, err := dec.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	lit, ok := triple.O.(Literal)
	if !ok || lit.Datatype.Value != "http://quadgraph.example/int" {
		t.Fatalf("object = %#v, want a datatyped literal", triple.O)
	}
}

func TestNTriplesDecoderHandlesQuotedTripleSubject(t *testing.T) {
	line := "<< <http://quadgraph.example/s> <http://quadgraph.example/p> <http://quadgraph.example/o> >> " +
		"<http://quadgraph.example/certainty> \"0.9\" .\n"
	dec := newNTriplesTripleDecoder(strings.NewReader(line))
	triple, err := dec.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if _, ok := triple.S.(TripleTerm); !ok {
		t.Fatalf("subject = %T, want TripleTerm", triple.S)
	}
}

func TestNTriplesDecoderRejectsUnclosedQuotedTriple(t *testing.T) {
	line := "<< <http://quadgraph.example/s> <http://quadgraph.example/p> <http://quadgraph.example/o> " +
		"<http://quadgraph.example/certainty> \"0.9\" .\n"
	dec := newNTriplesTripleDecoder(strings.NewReader(line))
	if _, err := dec.Next(); err == nil {
		t.Fatal("expected a syntax error for a quoted triple missing its closing >>")
	}
}

func TestNQuadsEncoderRejectsIncompleteQuads(t *testing.T) {
	var buf bytes.Buffer
	enc := newNQuadsQuadEncoder(&buf).(*ntQuadEncoder)
	if err := enc.Write(Quad{}); err == nil {
		t.Fatal("expected an error writing an empty quad")
	}
	if err := enc.Write(Quad{S: IRI{Value: "s"}}); err == nil {
		t.Fatal("expected an error writing a quad missing predicate/object")
	}
	enc.err = io.ErrClosedPipe
	complete := Quad{S: IRI{Value: "s"}, P: IRI{Value: "p"}, O: IRI{Value: "o"}}
	if err := enc.Write(complete); err == nil {
		t.Fatal("expected the cached writer error to resurface on the next Write")
	}
}
