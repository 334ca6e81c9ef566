package rdf

import (
	"encoding/json"
	"io"
)

// CanonicalizeJSONLD rewrites a JSON-LD document into its JCS canonical
// form (RFC 8785): object keys sorted, numbers and strings normalized,
// insignificant whitespace removed. This is JSON-level canonicalization
// only — it does not expand, compact, or otherwise interpret the JSON-LD
// context, and it buffers the whole document, so it is not suited to
// streaming encoders.
func CanonicalizeJSONLD(jsonData []byte) ([]byte, error) {
	var data interface{}
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, err
	}
	normalized, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return canonicalizeJSONText(normalized)
}

// CanonicalizeJSONLDReader reads r fully and canonicalizes its contents.
func CanonicalizeJSONLDReader(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return CanonicalizeJSONLD(data)
}

// CanonicalizeJSONLDWriter canonicalizes the JSON-LD read from r and
// writes the result to w.
func CanonicalizeJSONLDWriter(w io.Writer, r io.Reader) error {
	canonical, err := CanonicalizeJSONLDReader(r)
	if err != nil {
		return err
	}
	_, err = w.Write(canonical)
	return err
}
