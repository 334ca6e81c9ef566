package rdf

import (
	"strings"
	"testing"
)

func TestDecoderReadsOneNTriplesStatement(t *testing.T) {
	input := "<http://quadgraph.example/s> <http://quadgraph.example/p> <http://quadgraph.example/o> .\n"
	dec, err := NewDecoder(strings.NewReader(input), FormatNTriples)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	if _, err := dec.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
}

func TestDecoderCarriesGraphTermForNQuads(t *testing.T) {
	input := "<http://quadgraph.example/s> <http://quadgraph.example/p> <http://quadgraph.example/o> <http://quadgraph.example/g> .\n"
	dec, err := NewDecoder(strings.NewReader(input), FormatNQuads)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	quad, err := dec.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if quad.G == nil {
		t.Fatal("expected a non-nil graph term for an N-Quads line")
	}
}

func TestDecoderResolvesPrefixedNamesInTurtle(t *testing.T) {
	input := "@prefix ex: <http://quadgraph.example/> .\nex:s ex:p ex:o .\n"
	dec, err := NewDecoder(strings.NewReader(input), FormatTurtle)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	if _, err := dec.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
}
