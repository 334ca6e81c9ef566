package rdf

import (
	"bytes"
	"strings"
	"testing"
)

func rdfxmlDoc(body string) string {
	return `<?xml version="1.0"?><rdf:RDF xmlns:rdf="` + rdfXMLNS + `">` + body + `</rdf:RDF>`
}

func TestRDFXMLDecoderResolvesResourceAttribute(t *testing.T) {
	doc := rdfxmlDoc(`<rdf:Description rdf:about="http://quadgraph.example/s">` +
		`<ex:p xmlns:ex="http://quadgraph.example/" rdf:resource="http://quadgraph.example/o"/>` +
		`</rdf:Description>`)
	dec := newRDFXMLDecoder(strings.NewReader(doc))
	quad, err := dec.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	iri, ok := quad.O.(IRI)
	if !ok || iri.Value != "http://quadgraph.example/o" {
		t.Fatalf("object = %#v, want IRI http://quadgraph.example/o", quad.O)
	}
}

func TestRDFXMLDecoderResolvesNodeIDAttribute(t *testing.T) {
	doc := rdfxmlDoc(`<rdf:Description rdf:about="http://quadgraph.example/s">` +
		`<ex:p xmlns:ex="http://quadgraph.example/" rdf:nodeID="b0"/>` +
		`</rdf:Description>`)
	dec := newRDFXMLDecoder(strings.NewReader(doc))
	quad, err := dec.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if _, ok := quad.O.(BlankNode); !ok {
		t.Fatalf("object = %#v, want BlankNode", quad.O)
	}
}

func TestRDFXMLDecoderRejectsUnknownNestedElement(t *testing.T) {
	doc := rdfxmlDoc(`<rdf:Description rdf:about="http://quadgraph.example/s">` +
		`<ex:p xmlns:ex="http://quadgraph.example/"><ex:surprise>v</ex:surprise></ex:p>` +
		`</rdf:Description>`)
	dec := newRDFXMLDecoder(strings.NewReader(doc))
	if _, err := dec.Next(); err == nil {
		t.Fatal("expected an error for an unsupported nested property element")
	}
}

func TestRDFXMLEncoderRejectsQuotedTripleObject(t *testing.T) {
	enc := newRDFXMLEncoder(&bytes.Buffer{})
	quoted := TripleTerm{
		S: IRI{Value: "http://quadgraph.example/s"},
		P: IRI{Value: "http://quadgraph.example/p"},
		O: Literal{Lexical: "o"},
	}
	err := enc.Write(Quad{
		S: IRI{Value: "http://quadgraph.example/s"},
		P: IRI{Value: "http://quadgraph.example/p"},
		O: quoted,
	})
	if err == nil {
		t.Fatal("expected the RDF/XML encoder to reject a quoted-triple object; striped syntax has no RDF-star encoding")
	}
}
