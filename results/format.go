// Package results implements the four SPARQL query results serialization
// formats: XML, JSON, CSV and TSV. A single entry point (Write/Read) handles
// both of a query's possible result shapes -- a boolean (ASK) or a bindings
// table (SELECT) -- over Go's io.Reader/io.Writer idioms.
package results

import (
	"fmt"
	"strings"
)

// Format identifies one of the four SPARQL results serializations.
type Format int

const (
	FormatXML Format = iota
	FormatJSON
	FormatCSV
	FormatTSV
)

// IRI returns the format's canonical identifier from the W3C formats
// registry, grounded on sparesults::QueryResultsFormat::iri.
func (f Format) IRI() string {
	switch f {
	case FormatXML:
		return "http://www.w3.org/ns/formats/SPARQL_Results_XML"
	case FormatJSON:
		return "http://www.w3.org/ns/formats/SPARQL_Results_JSON"
	case FormatCSV:
		return "http://www.w3.org/ns/formats/SPARQL_Results_CSV"
	case FormatTSV:
		return "http://www.w3.org/ns/formats/SPARQL_Results_TSV"
	default:
		return ""
	}
}

// MediaType returns the format's IANA media type, grounded on
// sparesults::QueryResultsFormat::media_type.
func (f Format) MediaType() string {
	switch f {
	case FormatXML:
		return "application/sparql-results+xml"
	case FormatJSON:
		return "application/sparql-results+json"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatTSV:
		return "text/tab-separated-values; charset=utf-8"
	default:
		return ""
	}
}

// Extension returns the format's canonical file extension, grounded on
// sparesults::QueryResultsFormat::file_extension.
func (f Format) Extension() string {
	switch f {
	case FormatXML:
		return "srx"
	case FormatJSON:
		return "srj"
	case FormatCSV:
		return "csv"
	case FormatTSV:
		return "tsv"
	default:
		return ""
	}
}

func (f Format) String() string {
	switch f {
	case FormatXML:
		return "SPARQL Results in XML"
	case FormatJSON:
		return "SPARQL Results in JSON"
	case FormatCSV:
		return "SPARQL Results in CSV"
	case FormatTSV:
		return "SPARQL Results in TSV"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// FromMediaType resolves a (possibly parameterized) media type to a
// Format, accepting the same aliases sparesults' from_media_type does
// ("application/xml" -> Xml, "application/json" -> Json, "text/plain" ->
// Csv, an "x-" subtype prefix ignored).
func FromMediaType(mediaType string) (Format, bool) {
	base, _, _ := strings.Cut(mediaType, ";")
	typ, subtype, ok := strings.Cut(strings.TrimSpace(base), "/")
	if !ok {
		return 0, false
	}
	typ = strings.ToLower(strings.TrimSpace(typ))
	if typ != "application" && typ != "text" {
		return 0, false
	}
	subtype = strings.ToLower(strings.TrimSpace(subtype))
	subtype = strings.TrimPrefix(subtype, "x-")
	switch subtype {
	case "sparql-results+json", "json":
		return FormatJSON, true
	case "sparql-results+xml", "xml":
		return FormatXML, true
	case "csv", "plain":
		return FormatCSV, true
	case "tab-separated-values", "tsv":
		return FormatTSV, true
	default:
		return 0, false
	}
}

// FromExtension resolves a canonical (or aliased) file extension to a
// Format, grounded on sparesults::QueryResultsFormat::from_extension.
func FromExtension(ext string) (Format, bool) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "srx", "xml":
		return FormatXML, true
	case "srj", "json":
		return FormatJSON, true
	case "csv", "txt":
		return FormatCSV, true
	case "tsv":
		return FormatTSV, true
	default:
		return 0, false
	}
}
