package rdf

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
)

func TestJSONLDDecoderExpandsGraphArray(t *testing.T) {
	input := `{"@context":{"ex":"http://quadgraph.example/"},"@graph":[{"@id":"ex:s","ex:p":{"@id":"ex:o"}}]}`
	dec, err := NewReader(strings.NewReader(input), FormatJSONLD)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	stmt, err := dec.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if got, want := stmt.P.Value, "http://quadgraph.example/p"; got != want {
		t.Fatalf("predicate = %q, want %q", got, want)
	}
}

func TestJSONLDDecoderRequiresSubjectID(t *testing.T) {
	input := `{"@context":{"ex":"http://quadgraph.example/"},"ex:p":"v"}`
	dec, err := NewReader(strings.NewReader(input), FormatJSONLD)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if _, err := dec.Next(); err == nil {
		t.Fatal("expected an error for a node object with no @id")
	}
}

func TestJSONLDDecoderRejectsUnrecognizedValueShape(t *testing.T) {
	input := `{"@context":{"ex":"http://quadgraph.example/"},"@id":"ex:s","ex:p":{"nonsense":1}}`
	dec, err := NewReader(strings.NewReader(input), FormatJSONLD)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if _, err := dec.Next(); err == nil {
		t.Fatal("expected an error for a value object quadgraph cannot expand")
	}
}

func TestJSONLDWriterClosesCleanlyWithoutAnyWrites(t *testing.T) {
	enc, err := NewWriter(&bytes.Buffer{}, FormatJSONLD)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close on an empty writer returned %v, want nil", err)
	}
}

func TestJSONLDWriterRejectsWriteAfterClose(t *testing.T) {
	enc, err := NewWriter(&bytes.Buffer{}, FormatJSONLD)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	stmt := Statement{S: IRI{Value: "s"}, P: IRI{Value: "p"}, O: Literal{Lexical: "v"}}
	if err := enc.Write(stmt); err == nil {
		t.Fatal("expected Write after Close to return an error")
	}
}

func TestJSONLDDecoderStopsOnContextCancelBetweenTriples(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	input := `{"@context":{"ex":"http://quadgraph.example/"},"@graph":[` +
		`{"@id":"ex:s1","ex:p":"v1"},{"@id":"ex:s2","ex:p":"v2"}]}`
	reader, err := NewReader(strings.NewReader(input), FormatJSONLD, OptContext(ctx))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer reader.Close()

	first, err := reader.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if first.AsTriple().S == nil {
		t.Fatal("expected a bound subject on the first triple")
	}
	cancel()

	for {
		if _, err := reader.Next(); err != nil {
			if err == context.Canceled || err == io.EOF {
				return
			}
			t.Fatalf("unexpected error after cancellation: %v", err)
		}
	}
}
