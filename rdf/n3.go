package rdf

import (
	"fmt"
	"io"
)

// n3TripleDecoder wraps the Turtle parser, additionally rejecting Notation3
// rule syntax ("=>", "<=") which this implementation does not evaluate.
// Everything else in N3 that overlaps with Turtle (prefixes, collections,
// blank node property lists, literals) is parsed identically.
type n3TripleDecoder struct {
	inner TripleDecoder
}

func newN3TripleDecoderWithOptions(r io.Reader, opts DecodeOptions) TripleDecoder {
	return &n3TripleDecoder{inner: newTurtleTripleDecoderWithOptions(r, opts)}
}

func (d *n3TripleDecoder) Next() (Triple, error) {
	t, err := d.inner.Next()
	if err != nil {
		return t, err
	}
	if t.P.Value == "=>" || t.P.Value == "<=" {
		return Triple{}, WrapParseError("n3", t.P.Value, -1,
			fmt.Errorf("N3 rule syntax (%q) is not supported", t.P.Value))
	}
	return t, nil
}

func (d *n3TripleDecoder) Err() error   { return d.inner.Err() }
func (d *n3TripleDecoder) Close() error { return d.inner.Close() }
