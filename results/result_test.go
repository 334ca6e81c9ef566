package results

import (
	"bytes"
	"strings"
	"testing"

	"github.com/geoknoesis/quadgraph/rdf"
)

func sampleBindings() Result {
	return BindingsResult(
		[]string{"s", "name"},
		[]Row{
			{"s": rdf.IRI{Value: "http://ex/alice"}, "name": rdf.Literal{Lexical: "Alice", Datatype: rdf.IRI{Value: "http://www.w3.org/2001/XMLSchema#string"}}},
			{"s": rdf.IRI{Value: "http://ex/bob"}}, // "name" unbound
		},
	)
}

func TestJSONRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatJSON, sampleBindings()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(&buf, FormatJSON)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Bindings == nil || len(got.Bindings.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %+v", got.Bindings)
	}
	if _, ok := got.Bindings.Rows[1]["name"]; ok {
		t.Fatalf("expected second row's name to stay unbound")
	}
	alice := got.Bindings.Rows[0]["s"].(rdf.IRI)
	if alice.Value != "http://ex/alice" {
		t.Fatalf("unexpected subject: %+v", alice)
	}
}

func TestJSONBoolean(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatJSON, BooleanResult(true)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(&buf, FormatJSON)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !got.IsBoolean() || !*got.Boolean {
		t.Fatalf("expected boolean true, got %+v", got)
	}
}

func TestXMLRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatXML, sampleBindings()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(&buf, FormatXML)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Bindings == nil || len(got.Bindings.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %+v", got.Bindings)
	}
	name := got.Bindings.Rows[0]["name"].(rdf.Literal)
	if name.Lexical != "Alice" {
		t.Fatalf("unexpected literal: %+v", name)
	}
}

func TestTSVRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatTSV, sampleBindings()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(&buf, FormatTSV)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got.Bindings.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got.Bindings.Rows))
	}
	s := got.Bindings.Rows[0]["s"].(rdf.IRI)
	if s.Value != "http://ex/alice" {
		t.Fatalf("unexpected subject: %+v", s)
	}
}

func TestCSVIsLossy(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatCSV, sampleBindings()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.Contains(buf.String(), "http://ex/alice") {
		t.Fatalf("expected bare IRI text in CSV output, got %q", buf.String())
	}
	if strings.Contains(buf.String(), "<http://ex/alice>") {
		t.Fatalf("CSV must not carry angle-bracket term syntax, got %q", buf.String())
	}
}

func TestFromMediaType(t *testing.T) {
	cases := map[string]Format{
		"application/sparql-results+json":          FormatJSON,
		"application/sparql-results+xml; charset=utf-8": FormatXML,
		"text/csv":                                 FormatCSV,
		"text/tab-separated-values":                FormatTSV,
		"application/x-json":                       FormatJSON,
	}
	for mt, want := range cases {
		got, ok := FromMediaType(mt)
		if !ok || got != want {
			t.Errorf("FromMediaType(%q) = %v, %v; want %v, true", mt, got, ok, want)
		}
	}
	if _, ok := FromMediaType("application/octet-stream"); ok {
		t.Fatalf("expected unknown media type to be rejected")
	}
}

func TestFromExtension(t *testing.T) {
	cases := map[string]Format{"srx": FormatXML, ".srj": FormatJSON, "csv": FormatCSV, "tsv": FormatTSV}
	for ext, want := range cases {
		got, ok := FromExtension(ext)
		if !ok || got != want {
			t.Errorf("FromExtension(%q) = %v, %v; want %v, true", ext, got, ok, want)
		}
	}
}
