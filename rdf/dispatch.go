package rdf

import (
	"context"
	"io"
)

// NewTripleDecoder creates a triple decoder for the given triple-only format.
func NewTripleDecoder(r io.Reader, format TripleFormat) (TripleDecoder, error) {
	return newTripleDecoderWithOptions(r, string(format), DefaultDecodeOptions())
}

// NewQuadDecoder creates a quad decoder for the given graph-carrying format.
func NewQuadDecoder(r io.Reader, format QuadFormat) (QuadDecoder, error) {
	return newQuadDecoderWithOptions(r, string(format), DefaultDecodeOptions())
}

// NewTripleDecoderWithOptions creates a triple decoder for the given
// triple-only format, applying the given functional options on top of the
// default limits.
func NewTripleDecoderWithOptions(r io.Reader, format TripleFormat, opts ...Option) (TripleDecoder, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return newTripleDecoderWithOptions(r, string(format), optionsToDecodeOptions(options))
}

// NewQuadDecoderWithOptions creates a quad decoder for the given
// graph-carrying format, applying the given functional options on top of
// the default limits.
func NewQuadDecoderWithOptions(r io.Reader, format QuadFormat, opts ...Option) (QuadDecoder, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return newQuadDecoderWithOptions(r, string(format), optionsToDecodeOptions(options))
}

// DecodeOptionsToOptions converts a DecodeOptions value into the equivalent
// slice of functional Options, for callers that build limits via
// DecodeOptions but decode through the TripleFormat/QuadFormat-keyed
// constructors.
func DecodeOptionsToOptions(opts DecodeOptions) []Option {
	return []Option{
		OptContext(opts.Context),
		OptMaxLineBytes(opts.MaxLineBytes),
		OptMaxStatementBytes(opts.MaxStatementBytes),
		OptMaxDepth(opts.MaxDepth),
		OptMaxTriples(opts.MaxTriples),
	}
}

func optionsToDecodeOptions(o Options) DecodeOptions {
	return DecodeOptions{
		Context:                    o.Context,
		MaxLineBytes:               o.MaxLineBytes,
		MaxStatementBytes:          o.MaxStatementBytes,
		MaxDepth:                   o.MaxDepth,
		MaxTriples:                 o.MaxTriples,
		AllowQuotedTripleStatement: o.AllowQuotedTripleStatement,
		DebugStatements:            o.DebugStatements,
	}
}

// WithMaxTriples bounds the number of triples/quads a decoder yields before
// returning ErrTripleLimitExceeded.
func WithMaxTriples(max int64) Option { return OptMaxTriples(max) }

// WithMaxDepth bounds collection/blank-node-property-list/quoted-triple
// nesting depth.
func WithMaxDepth(max int) Option { return OptMaxDepth(max) }

// WithSafeLimits applies SafeDecodeOptions' conservative limits.
func WithSafeLimits() Option { return OptSafeLimits() }

// NewTripleEncoder creates a triple encoder for the given triple-only format.
func NewTripleEncoder(w io.Writer, format TripleFormat) (TripleEncoder, error) {
	return newTripleEncoder(w, string(format))
}

// NewQuadEncoder creates a quad encoder for the given graph-carrying format.
func NewQuadEncoder(w io.Writer, format QuadFormat) (QuadEncoder, error) {
	return newQuadEncoder(w, string(format))
}

// NewRDFXMLTripleEncoder creates an RDF/XML triple encoder with options.
func NewRDFXMLTripleEncoder(w io.Writer, opts RDFXMLEncodeOptions) TripleEncoder {
	return newRDFXMLtripleEncoderWithOptions(w, opts)
}

// ParseTriples streams triples from r to handler using the given format.
func ParseTriples(ctx context.Context, r io.Reader, format TripleFormat, handler TripleHandler) error {
	dec, err := NewTripleDecoder(r, format)
	if err != nil {
		return err
	}
	defer dec.Close()
	return parseTriplesWithDecoder(ctx, dec, handler)
}

// ParseQuads streams quads from r to handler using the given format.
func ParseQuads(ctx context.Context, r io.Reader, format QuadFormat, handler QuadHandler) error {
	dec, err := NewQuadDecoder(r, format)
	if err != nil {
		return err
	}
	defer dec.Close()
	return parseQuadsWithDecoder(ctx, dec, handler)
}

// ParseTriplesWithOptions streams triples from r to handler using the given
// format, honoring the given decode limits.
func ParseTriplesWithOptions(ctx context.Context, r io.Reader, format TripleFormat, opts DecodeOptions, handler TripleHandler) error {
	dec, err := newTripleDecoderWithOptions(r, string(format), opts)
	if err != nil {
		return err
	}
	defer dec.Close()
	return parseTriplesWithDecoder(ctx, dec, handler)
}

// ParseQuadsWithOptions streams quads from r to handler using the given
// format, honoring the given decode limits.
func ParseQuadsWithOptions(ctx context.Context, r io.Reader, format QuadFormat, opts DecodeOptions, handler QuadHandler) error {
	dec, err := newQuadDecoderWithOptions(r, string(format), opts)
	if err != nil {
		return err
	}
	defer dec.Close()
	return parseQuadsWithDecoder(ctx, dec, handler)
}

func parseTriplesWithDecoder(ctx context.Context, dec TripleDecoder, handler TripleHandler) error {
	for {
		if ctx != nil {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		t, err := dec.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := handler.Handle(t); err != nil {
			return err
		}
	}
}

func parseQuadsWithDecoder(ctx context.Context, dec QuadDecoder, handler QuadHandler) error {
	for {
		if ctx != nil {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		q, err := dec.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := handler.Handle(q); err != nil {
			return err
		}
	}
}

// newTripleDecoderWithOptions dispatches to a concrete triple decoder by
// format name, honoring decode options where the format supports them.
func newTripleDecoderWithOptions(r io.Reader, format string, opts DecodeOptions) (TripleDecoder, error) {
	opts = normalizeDecodeOptions(opts)
	switch Format(format) {
	case FormatTurtle:
		return newTurtleTripleDecoderWithOptions(r, opts), nil
	case FormatNTriples:
		return newNTriplesTripleDecoderWithOptions(r, opts), nil
	case FormatRDFXML:
		return newRDFXMLtripleDecoder(r), nil
	case FormatJSONLD:
		return newJSONLDTripleDecoderWithOptions(r, JSONLDOptions{}), nil
	case FormatN3:
		return newN3TripleDecoderWithOptions(r, opts), nil
	default:
		return nil, ErrUnsupportedFormat
	}
}

// newQuadDecoderWithOptions dispatches to a concrete quad decoder by format
// name, honoring decode options where the format supports them.
func newQuadDecoderWithOptions(r io.Reader, format string, opts DecodeOptions) (QuadDecoder, error) {
	opts = normalizeDecodeOptions(opts)
	switch Format(format) {
	case FormatTriG:
		return newTriGQuadDecoderWithOptions(r, opts), nil
	case FormatNQuads:
		return newNQuadsQuadDecoderWithOptions(r, opts), nil
	case FormatJSONLD:
		return newJSONLDQuadDecoderWithOptions(r, JSONLDOptions{}), nil
	default:
		return nil, ErrUnsupportedFormat
	}
}

// newTripleEncoder dispatches to a concrete triple encoder by format name.
func newTripleEncoder(w io.Writer, format string) (TripleEncoder, error) {
	switch Format(format) {
	case FormatTurtle:
		return newTurtleTripleEncoder(w), nil
	case FormatNTriples:
		return newNTriplesTripleEncoder(w), nil
	case FormatRDFXML:
		return newRDFXMLtripleEncoder(w), nil
	case FormatJSONLD:
		return newJSONLDTripleEncoder(w), nil
	default:
		return nil, ErrUnsupportedFormat
	}
}

// newQuadEncoder dispatches to a concrete quad encoder by format name.
func newQuadEncoder(w io.Writer, format string) (QuadEncoder, error) {
	switch Format(format) {
	case FormatTriG:
		return newTriGQuadEncoder(w), nil
	case FormatNQuads:
		return newNQuadsQuadEncoder(w), nil
	case FormatJSONLD:
		return newJSONLDQuadEncoderWithOptions(w, JSONLDOptions{}), nil
	default:
		return nil, ErrUnsupportedFormat
	}
}
