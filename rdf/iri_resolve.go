package rdf

import (
	"net/url"
	"strings"
)

// resolveIRI resolves a relative IRI reference against a base IRI per
// RFC 3986 §5 ("Reference Resolution"), delegating the merge-and-remove-
// dot-segments algorithm to net/url. Turtle's @base and RDF/XML's xml:base
// both need exactly this resolution for bare relative references.
func resolveIRI(baseStr, relative string) string {
	base, err := url.Parse(baseStr)
	if err != nil {
		return concatenateAsPath(baseStr, relative)
	}

	rel, err := url.Parse(relative)
	if err != nil {
		return concatenateAsPath(baseStr, relative)
	}

	if rel.Scheme != "" {
		return relative
	}

	return base.ResolveReference(rel).String()
}

// concatenateAsPath is the fallback used when either side of the
// resolution fails to parse as a URL at all: it still produces a plausible
// path join rather than surfacing the unparseable IRI as an error here,
// leaving validation to the caller's own IRI syntax checks.
func concatenateAsPath(baseStr, relative string) string {
	if strings.HasSuffix(baseStr, "/") {
		return baseStr + relative
	}
	if lastSlash := strings.LastIndex(baseStr, "/"); lastSlash >= 0 {
		return baseStr[:lastSlash+1] + relative
	}
	return baseStr + "/" + relative
}
