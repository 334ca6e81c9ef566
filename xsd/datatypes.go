// Package xsd provides XML Schema datatype IRIs and typed-value helpers
// implementing XPath/XQuery arithmetic semantics for the subset of XSD
// datatypes SPARQL gives special meaning to.
package xsd

import "github.com/geoknoesis/quadgraph/rdf"

// Datatype IRIs, grounded on the knakk/rdf/xsd table plus rdf:langString.
var (
	String   = rdf.IRI{Value: "http://www.w3.org/2001/XMLSchema#string"}
	Boolean  = rdf.IRI{Value: "http://www.w3.org/2001/XMLSchema#boolean"}
	Decimal  = rdf.IRI{Value: "http://www.w3.org/2001/XMLSchema#decimal"}
	Integer  = rdf.IRI{Value: "http://www.w3.org/2001/XMLSchema#integer"}
	Long     = rdf.IRI{Value: "http://www.w3.org/2001/XMLSchema#long"}
	Int      = rdf.IRI{Value: "http://www.w3.org/2001/XMLSchema#int"}
	Short    = rdf.IRI{Value: "http://www.w3.org/2001/XMLSchema#short"}
	Byte     = rdf.IRI{Value: "http://www.w3.org/2001/XMLSchema#byte"}
	Double   = rdf.IRI{Value: "http://www.w3.org/2001/XMLSchema#double"}
	Float    = rdf.IRI{Value: "http://www.w3.org/2001/XMLSchema#float"}
	Date     = rdf.IRI{Value: "http://www.w3.org/2001/XMLSchema#date"}
	Time     = rdf.IRI{Value: "http://www.w3.org/2001/XMLSchema#time"}
	DateTime = rdf.IRI{Value: "http://www.w3.org/2001/XMLSchema#dateTime"}

	GYear      = rdf.IRI{Value: "http://www.w3.org/2001/XMLSchema#gYear"}
	GMonth     = rdf.IRI{Value: "http://www.w3.org/2001/XMLSchema#gMonth"}
	GDay       = rdf.IRI{Value: "http://www.w3.org/2001/XMLSchema#gDay"}
	GYearMonth = rdf.IRI{Value: "http://www.w3.org/2001/XMLSchema#gYearMonth"}

	Duration          = rdf.IRI{Value: "http://www.w3.org/2001/XMLSchema#duration"}
	YearMonthDuration = rdf.IRI{Value: "http://www.w3.org/2001/XMLSchema#yearMonthDuration"}
	DayTimeDuration   = rdf.IRI{Value: "http://www.w3.org/2001/XMLSchema#dayTimeDuration"}

	AnyURI = rdf.IRI{Value: "http://www.w3.org/2001/XMLSchema#anyURI"}

	// LangString is rdf:langString, the implicit datatype of a
	// language-tagged literal.
	LangString = rdf.IRI{Value: "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"}
)

// IsNumeric reports whether iri is one of the XSD numeric datatypes SPARQL
// arithmetic operates on.
func IsNumeric(iri rdf.IRI) bool {
	switch iri {
	case Integer, Decimal, Double, Float, Long, Int, Short, Byte:
		return true
	}
	return false
}

// IsIntegerFamily reports whether iri is xsd:integer or one of the integer
// subtypes long, int, short and byte; xsd:decimal is not included.
func IsIntegerFamily(iri rdf.IRI) bool {
	switch iri {
	case Integer, Long, Int, Short, Byte:
		return true
	}
	return false
}
