package results

import (
	"fmt"
	"io"

	"github.com/geoknoesis/quadgraph/rdf"
)

// Row is one solution: a variable name to bound term, absent for an
// unbound ("undef") variable. Keyed by plain string rather than a
// sparql.Variable so this package has no dependency on the sparql
// package -- sparql.Variable converts to/from string for free.
type Row map[string]rdf.Term

// Bindings is the SELECT-query result shape: an ordered variable list
// (defines column order for CSV/TSV and the <head> for XML/JSON) plus the
// solution rows.
type Bindings struct {
	Vars []string
	Rows []Row
}

// Result is a parsed or to-be-serialized SPARQL result: exactly one of
// Boolean (ASK) or Bindings (SELECT) is set, so both result shapes parse
// and serialize through the same entry point.
type Result struct {
	Boolean  *bool
	Bindings *Bindings
}

// BooleanResult wraps an ASK outcome as a Result.
func BooleanResult(v bool) Result { return Result{Boolean: &v} }

// BindingsResult wraps a SELECT outcome as a Result.
func BindingsResult(vars []string, rows []Row) Result {
	return Result{Bindings: &Bindings{Vars: vars, Rows: rows}}
}

// IsBoolean reports whether r holds an ASK outcome.
func (r Result) IsBoolean() bool { return r.Boolean != nil }

// Write serializes r in format to w.
func Write(w io.Writer, format Format, r Result) error {
	switch format {
	case FormatXML:
		return writeXML(w, r)
	case FormatJSON:
		return writeJSON(w, r)
	case FormatCSV:
		return writeDelimited(w, r, ',')
	case FormatTSV:
		return writeDelimited(w, r, '\t')
	default:
		return fmt.Errorf("results: unsupported format %v", format)
	}
}

// Read parses a Result in format from r. CSV and TSV carry no boolean
// form in the W3C spec (a CSV/TSV boolean result is not standardized);
// for those two formats Read parses any input as a bindings table whose
// first record is the variable list, and never yields a boolean result.
func Read(r io.Reader, format Format) (Result, error) {
	switch format {
	case FormatXML:
		return readXML(r)
	case FormatJSON:
		return readJSON(r)
	case FormatCSV:
		return readDelimited(r, ',')
	case FormatTSV:
		return readDelimited(r, '\t')
	default:
		return Result{}, fmt.Errorf("results: unsupported format %v", format)
	}
}

// termType classifies a term the way the JSON/XML binding formats require
// ("uri", "literal", "bnode", plus this engine's "triple" extension for
// RDF-star).
func termType(t rdf.Term) string {
	switch t.(type) {
	case rdf.IRI:
		return "uri"
	case rdf.BlankNode:
		return "bnode"
	case rdf.TripleTerm:
		return "triple"
	default:
		return "literal"
	}
}
