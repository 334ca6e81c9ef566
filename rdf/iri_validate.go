package rdf

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateIRI performs a pragmatic RFC 3987 check on iri: it parses the
// IRI with net/url, requires a well-formed scheme when one is present (or
// looks like it was meant to be), and rejects raw control characters and
// the handful of delimiters ('<', '>') that RFC 3987 says must always be
// percent-encoded. It does not implement the full ucschar/iprivate
// production tables — callers needing strict compliance should pair this
// with a dedicated IRI library.
func ValidateIRI(iri string) error {
	if iri == "" {
		return fmt.Errorf("empty IRI")
	}

	parsed, err := url.Parse(iri)
	if err != nil {
		return fmt.Errorf("invalid IRI syntax: %w", err)
	}

	if err := validateIRIScheme(iri, parsed); err != nil {
		return err
	}
	return validateIRICharacters(iri)
}

func validateIRIScheme(iri string, parsed *url.URL) error {
	if parsed.Scheme != "" {
		if first := parsed.Scheme[0]; !((first >= 'a' && first <= 'z') || (first >= 'A' && first <= 'Z')) {
			return fmt.Errorf("scheme must start with a letter: %s", iri)
		}
		return nil
	}

	// No scheme: a bare network-path reference ("//host/...") is only valid
	// alongside a scheme, and a string that looks like "scheme:rest" but
	// failed url.Parse's scheme detection is missing one outright.
	if strings.HasPrefix(iri, "//") {
		return fmt.Errorf("relative IRI without scheme: %s", iri)
	}
	if strings.HasPrefix(iri, "/") || strings.HasPrefix(iri, "./") || strings.HasPrefix(iri, "../") {
		return nil
	}
	scheme, rest, hasColon := strings.Cut(iri, ":")
	if !hasColon {
		return nil
	}
	_ = rest
	if !isSchemeBody(scheme) || scheme == "" {
		return fmt.Errorf("IRI appears to be missing a scheme: %s", iri)
	}
	return nil
}

// iriDisallowedRawRunes must be percent-encoded per RFC 3987; of this set
// only '<'/'>' are rejected outright here; the others are left to more
// specific format-level escaping rules.
var iriDisallowedRawRunes = map[rune]bool{'<': true, '>': true}

func validateIRICharacters(iri string) error {
	for i, r := range iri {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			return fmt.Errorf("invalid control character at position %d in IRI: %s", i, iri)
		}
		if iriDisallowedRawRunes[r] {
			return fmt.Errorf("invalid character '%c' at position %d in IRI (should be percent-encoded): %s", r, i, iri)
		}
	}
	return nil
}
