package rdf

import "testing"

func TestTermStringForms(t *testing.T) {
	s := IRI{Value: "http://quadgraph.example/s"}
	if s.Kind() != TermIRI {
		t.Fatalf("IRI.Kind() = %v, want TermIRI", s.Kind())
	}
	if got, want := s.String(), "http://quadgraph.example/s"; got != want {
		t.Fatalf("IRI.String() = %q, want %q", got, want)
	}

	b := BlankNode{ID: "n0"}
	if b.Kind() != TermBlankNode {
		t.Fatalf("BlankNode.Kind() = %v, want TermBlankNode", b.Kind())
	}
	if got, want := b.String(), "_:n0"; got != want {
		t.Fatalf("BlankNode.String() = %q, want %q", got, want)
	}

	plain := Literal{Lexical: "hello"}
	if got, want := plain.String(), `"hello"`; got != want {
		t.Fatalf("plain literal String() = %q, want %q", got, want)
	}

	tagged := Literal{Lexical: "bonjour", Lang: "fr"}
	if got, want := tagged.String(), `"bonjour"@fr`; got != want {
		t.Fatalf("tagged literal String() = %q, want %q", got, want)
	}

	typed := Literal{Lexical: "7", Datatype: IRI{Value: "http://quadgraph.example/int"}}
	if got, want := typed.String(), `"7"^^<http://quadgraph.example/int>`; got != want {
		t.Fatalf("typed literal String() = %q, want %q", got, want)
	}

	quoted := TripleTerm{S: s, P: IRI{Value: "http://quadgraph.example/p"}, O: plain}
	if quoted.Kind() != TermTriple {
		t.Fatalf("TripleTerm.Kind() = %v, want TermTriple", quoted.Kind())
	}
	want := `<<http://quadgraph.example/s http://quadgraph.example/p "hello">>`
	if got := quoted.String(); got != want {
		t.Fatalf("quoted triple String() = %q, want %q", got, want)
	}
}

func TestQuadIsZeroTracksAllFourComponents(t *testing.T) {
	var q Quad
	if !q.IsZero() {
		t.Fatal("freshly constructed Quad should be zero")
	}
	q.S = IRI{Value: "http://quadgraph.example/s"}
	if q.IsZero() {
		t.Fatal("Quad with a subject set must not report zero")
	}
	if (Quad{P: IRI{Value: "http://quadgraph.example/p"}}).IsZero() {
		t.Fatal("Quad with a predicate set must not report zero")
	}
	if (Quad{O: IRI{Value: "http://quadgraph.example/o"}}).IsZero() {
		t.Fatal("Quad with an object set must not report zero")
	}
	if (Quad{G: IRI{Value: "http://quadgraph.example/g"}}).IsZero() {
		t.Fatal("Quad with a graph set must not report zero")
	}
}

func TestLiteralEqualityDistinguishesLangAndDatatype(t *testing.T) {
	a := Literal{Lexical: "x", Lang: "en"}
	b := Literal{Lexical: "x", Lang: "en-US"}
	if a == b {
		t.Fatal("literals with different language tags must not compare equal")
	}
	c := Literal{Lexical: "x", Datatype: IRI{Value: "http://quadgraph.example/a"}}
	d := Literal{Lexical: "x", Datatype: IRI{Value: "http://quadgraph.example/b"}}
	if c == d {
		t.Fatal("literals with different datatypes must not compare equal")
	}
}
