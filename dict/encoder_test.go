package dict

import (
	"testing"

	"github.com/geoknoesis/quadgraph/rdf"
	"github.com/geoknoesis/quadgraph/xsd"
)

func TestEncodeDecodeInlineRoundTrip(t *testing.T) {
	enc := NewEncoder(NewDictionary())
	terms := []rdf.Term{
		rdf.IRI{Value: "http://ex/s"},
		rdf.BlankNode{ID: "b1"},
		rdf.Literal{Lexical: "hello"},
		rdf.Literal{Lexical: "true", Datatype: xsd.Boolean},
		rdf.Literal{Lexical: "42", Datatype: xsd.Integer},
	}
	for _, term := range terms {
		got, err := enc.Encode(term)
		if err != nil {
			t.Fatalf("Encode(%v): %v", term, err)
		}
		if got.IsHashed() {
			t.Fatalf("expected %v to encode inline, got hashed tag %d", term, got.Tag)
		}
		back, err := enc.Decode(got)
		if err != nil {
			t.Fatalf("Decode(%v): %v", term, err)
		}
		if !rdf.Equal(back, term) {
			t.Fatalf("round trip mismatch: got %v, want %v", back, term)
		}
	}
}

func TestEncodeDecodeHashedRoundTrip(t *testing.T) {
	enc := NewEncoder(NewDictionary())
	long := rdf.IRI{Value: "http://example.org/a-rather-long-iri-that-does-not-fit-inline"}
	got, err := enc.Encode(long)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !got.IsHashed() {
		t.Fatalf("expected hashed tag, got %d", got.Tag)
	}
	back, err := enc.Decode(got)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !rdf.Equal(back, long) {
		t.Fatalf("round trip mismatch: got %v, want %v", back, long)
	}
}

func TestEncodeLangLiteralIsHashed(t *testing.T) {
	enc := NewEncoder(NewDictionary())
	lit := rdf.Literal{Lexical: "bonjour", Lang: "fr"}
	got, err := enc.Encode(lit)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got.Tag != TagLiteralHash {
		t.Fatalf("expected TagLiteralHash, got %d", got.Tag)
	}
	back, err := enc.Decode(got)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !rdf.Equal(back, lit) {
		t.Fatalf("round trip mismatch: got %v, want %v", back, lit)
	}
}

func TestIntern_CollisionDetection(t *testing.T) {
	d := NewDictionary()
	hash, err := d.Intern(rdf.IRI{Value: "http://ex/a"}, []byte("same-content"))
	if err != nil {
		t.Fatalf("Intern: %v", err)
	}
	if _, err := d.Intern(rdf.IRI{Value: "http://ex/b"}, []byte("same-content")); err != ErrDictionaryCorruption {
		t.Fatalf("expected ErrDictionaryCorruption, got %v", err)
	}
	term, ok := d.Resolve(hash)
	if !ok || term.String() != "http://ex/a" {
		t.Fatalf("Resolve returned unexpected term %v, ok=%v", term, ok)
	}
}
