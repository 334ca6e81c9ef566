package rdf

import "strings"

// Format identifies RDF serialization formats.
type Format string

const (
	// FormatAuto requests format auto-detection from content.
	FormatAuto     Format = ""
	FormatTurtle   Format = "turtle"
	FormatTriG     Format = "trig"
	FormatNTriples Format = "ntriples"
	FormatNQuads   Format = "nquads"
	FormatRDFXML   Format = "rdfxml"
	FormatJSONLD   Format = "jsonld"
	FormatN3       Format = "n3"
)

// String returns the format's canonical name, or "auto" for FormatAuto.
func (f Format) String() string {
	if f == FormatAuto {
		return "auto"
	}
	return string(f)
}

// ParseFormat normalizes a format string.
func ParseFormat(value string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "auto":
		return FormatAuto, true
	case "turtle", "ttl":
		return FormatTurtle, true
	case "trig":
		return FormatTriG, true
	case "ntriples", "nt":
		return FormatNTriples, true
	case "nquads", "nq":
		return FormatNQuads, true
	case "rdfxml", "rdf", "xml":
		return FormatRDFXML, true
	case "jsonld", "json-ld", "json":
		return FormatJSONLD, true
	case "n3":
		return FormatN3, true
	default:
		return "", false
	}
}

// TripleFormat identifies a triple-only (graph-less) serialization.
type TripleFormat string

const (
	TripleFormatTurtle   TripleFormat = "turtle"
	TripleFormatNTriples TripleFormat = "ntriples"
	TripleFormatRDFXML   TripleFormat = "rdfxml"
	TripleFormatJSONLD   TripleFormat = "jsonld"
	TripleFormatN3       TripleFormat = "n3"
)

// QuadFormat identifies a graph-carrying serialization.
type QuadFormat string

const (
	QuadFormatTriG   QuadFormat = "trig"
	QuadFormatNQuads QuadFormat = "nquads"
	QuadFormatJSONLD QuadFormat = "jsonld"
)
