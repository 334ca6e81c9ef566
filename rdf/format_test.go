package rdf

import "testing"

func TestParseFormatTripleAliases(t *testing.T) {
	cases := map[string]Format{
		"turtle":   FormatTurtle,
		"ttl":      FormatTurtle,
		"ntriples": FormatNTriples,
		"nt":       FormatNTriples,
		"rdfxml":   FormatRDFXML,
		"rdf":      FormatRDFXML,
		"xml":      FormatRDFXML,
		"jsonld":   FormatJSONLD,
		"json-ld":  FormatJSONLD,
		"json":     FormatJSONLD,
	}
	for alias, want := range cases {
		got, ok := ParseFormat(alias)
		if !ok {
			t.Errorf("ParseFormat(%q): expected recognized alias", alias)
			continue
		}
		if got != want {
			t.Errorf("ParseFormat(%q) = %v, want %v", alias, got, want)
		}
	}
}

func TestParseFormatQuadAliases(t *testing.T) {
	cases := map[string]Format{
		"trig":   FormatTriG,
		"nquads": FormatNQuads,
		"nq":     FormatNQuads,
	}
	for alias, want := range cases {
		got, ok := ParseFormat(alias)
		if !ok {
			t.Errorf("ParseFormat(%q): expected recognized alias", alias)
			continue
		}
		if got != want {
			t.Errorf("ParseFormat(%q) = %v, want %v", alias, got, want)
		}
	}
}

func TestParseFormatRejectsUnknownAlias(t *testing.T) {
	if _, ok := ParseFormat("unknown"); ok {
		t.Fatal("ParseFormat(\"unknown\") should report ok=false")
	}
	if got, _ := ParseFormat("unknown"); got != "" {
		t.Fatalf("ParseFormat(\"unknown\") returned non-empty format %q", got)
	}
}
