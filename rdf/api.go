package rdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
)

// Reader streams RDF statements from an input.
// A statement can be either a triple (G is nil) or a quad (G is non-nil).
type Reader interface {
	Next() (Statement, error)
	Close() error
}

// Writer streams RDF statements to an output.
// For triple-only formats, the graph (G) field is ignored.
type Writer interface {
	Write(Statement) error
	Flush() error
	Close() error
}

// Handler processes statements in push mode.
type Handler func(Statement) error

// HandlerFunc is an alias of Handler, for callers that prefer to name the
// conversion explicitly (mirroring TripleHandlerFunc/QuadHandlerFunc).
type HandlerFunc = Handler

// Option configures reader/writer behavior.
type Option func(*Options)

// Options configures parser/encoder behavior.
type Options struct {
	Context context.Context

	// Limits for untrusted input.
	MaxLineBytes      int
	MaxStatementBytes int
	MaxDepth          int
	MaxTriples        int64

	AllowQuotedTripleStatement bool
	DebugStatements            bool

	// StrictIRIValidation runs ValidateIRI against every IRI term a
	// decoder produces, surfacing malformed IRIs as a Next() error
	// instead of passing them through to the caller.
	StrictIRIValidation bool
}

// NewReader creates a reader for the specified format.
// If format is FormatAuto (empty string), the format is automatically detected.
// Auto-detection reads from the reader, so the reader position will be advanced.
func NewReader(r io.Reader, format Format, opts ...Option) (Reader, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	if format == FormatAuto {
		detected, sniffed, ok := detectFormat(r)
		if !ok {
			return nil, ErrUnsupportedFormat
		}
		format, r = detected, sniffed
	}

	return newDecoder(r, format, options)
}

// Parse parses RDF from the reader and streams statements to the handler.
// If format is FormatAuto (empty string), the format is automatically detected.
func Parse(ctx context.Context, r io.Reader, format Format, handler Handler, opts ...Option) error {
	options := defaultOptions()
	options.Context = ctx
	for _, opt := range opts {
		opt(&options)
	}

	reader, err := NewReader(r, format, opts...)
	if err != nil {
		return err
	}
	defer reader.Close()

	for {
		if ctx != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		stmt, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := handler(stmt); err != nil {
			return err
		}
	}
}

// ParseChan parses RDF from the reader and streams statements over a
// channel, closing it once decoding finishes. At most one error is sent on
// the returned error channel before it is closed.
func ParseChan(ctx context.Context, r io.Reader, format Format, opts ...Option) (<-chan Statement, <-chan error) {
	if ctx == nil {
		ctx = context.Background()
	}
	out := make(chan Statement)
	errs := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errs)
		err := Parse(ctx, r, format, func(s Statement) error {
			select {
			case out <- s:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}, opts...)
		if err != nil {
			errs <- err
		}
	}()
	return out, errs
}

// ReadAll reads all statements from the reader into memory.
// This is a convenience function for small datasets.
// For large inputs, use Parse or NewReader for streaming.
func ReadAll(ctx context.Context, r io.Reader, format Format, opts ...Option) ([]Statement, error) {
	var stmts []Statement
	err := Parse(ctx, r, format, func(s Statement) error {
		stmts = append(stmts, s)
		return nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	return stmts, nil
}

// NewWriter creates a writer for the specified format.
func NewWriter(w io.Writer, format Format, opts ...Option) (Writer, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return newEncoder(w, format, options)
}

// WriteAll writes all statements to the writer.
func WriteAll(ctx context.Context, w io.Writer, format Format, stmts []Statement, opts ...Option) error {
	writer, err := NewWriter(w, format, opts...)
	if err != nil {
		return err
	}
	defer writer.Close()

	for _, s := range stmts {
		if err := writer.Write(s); err != nil {
			return err
		}
	}
	return writer.Flush()
}

// OptContext sets the context for cancellation and timeouts.
func OptContext(ctx context.Context) Option {
	return func(opts *Options) { opts.Context = ctx }
}

// OptMaxLineBytes sets the maximum line size limit.
func OptMaxLineBytes(maxBytes int) Option {
	return func(opts *Options) { opts.MaxLineBytes = maxBytes }
}

// OptMaxStatementBytes sets the maximum statement size limit.
func OptMaxStatementBytes(maxBytes int) Option {
	return func(opts *Options) { opts.MaxStatementBytes = maxBytes }
}

// OptMaxDepth sets the maximum nesting depth limit.
func OptMaxDepth(maxDepth int) Option {
	return func(opts *Options) { opts.MaxDepth = maxDepth }
}

// OptMaxTriples sets the maximum number of triples/quads to process.
func OptMaxTriples(maxTriples int64) Option {
	return func(opts *Options) { opts.MaxTriples = maxTriples }
}

// OptStrictIRIValidation rejects malformed IRI terms during decoding,
// instead of passing them through as opaque strings.
func OptStrictIRIValidation() Option {
	return func(opts *Options) { opts.StrictIRIValidation = true }
}

// OptSafeLimits applies safe limits suitable for untrusted input.
func OptSafeLimits() Option {
	return func(opts *Options) {
		safe := safeOptions()
		opts.MaxLineBytes = safe.MaxLineBytes
		opts.MaxStatementBytes = safe.MaxStatementBytes
		opts.MaxDepth = safe.MaxDepth
		opts.MaxTriples = safe.MaxTriples
	}
}

func defaultOptions() Options {
	return Options{
		MaxLineBytes:      DefaultMaxLineBytes,
		MaxStatementBytes: DefaultMaxStatementBytes,
		MaxDepth:          DefaultMaxDepth,
		MaxTriples:        DefaultMaxTriples,
	}
}

func safeOptions() Options {
	safe := SafeDecodeOptions()
	return Options{
		MaxLineBytes:      safe.MaxLineBytes,
		MaxStatementBytes: safe.MaxStatementBytes,
		MaxDepth:          safe.MaxDepth,
		MaxTriples:        safe.MaxTriples,
	}
}

// detectFormat sniffs a 512-byte sample from r and returns the detected
// format plus a reader that replays the sample ahead of r's remaining
// bytes, so the chosen decoder still sees the whole document from the
// start.
func detectFormat(r io.Reader) (Format, io.Reader, bool) {
	buf := make([]byte, 512)
	n, err := r.Read(buf)
	if err != nil && err != io.EOF {
		return FormatAuto, r, false
	}
	sample := buf[:n]
	replay := func() io.Reader { return io.MultiReader(bytes.NewReader(sample), r) }

	if quadFormat, ok := DetectQuadFormat(bytes.NewReader(sample)); ok {
		return quadFormat, replay(), true
	}
	if tripleFormat, ok := DetectFormat(bytes.NewReader(sample)); ok {
		return tripleFormat, replay(), true
	}
	return FormatAuto, replay(), false
}

func (o Options) toDecodeOptions() DecodeOptions {
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

// formatKind records whether a Format's wire syntax carries a graph
// component, and the internal format-family name newTripleDecoderWithOptions
// / newQuadDecoderWithOptions / newTripleEncoder / newQuadEncoder expect.
type formatKind struct {
	family   string
	hasGraph bool
}

var formatKinds = map[Format]formatKind{
	FormatTurtle:   {family: "turtle", hasGraph: false},
	FormatNTriples: {family: "ntriples", hasGraph: false},
	FormatRDFXML:   {family: "rdfxml", hasGraph: false},
	FormatJSONLD:   {family: "jsonld", hasGraph: false},
	FormatTriG:     {family: "trig", hasGraph: true},
	FormatNQuads:   {family: "nquads", hasGraph: true},
}

// newDecoder creates a reader for the specified format.
func newDecoder(r io.Reader, format Format, opts Options) (Reader, error) {
	kind, ok := formatKinds[format]
	if !ok {
		return nil, ErrUnsupportedFormat
	}
	decodeOpts := opts.toDecodeOptions()

	var reader Reader
	if kind.hasGraph {
		dec, err := newQuadDecoderWithOptions(r, kind.family, decodeOpts)
		if err != nil {
			return nil, err
		}
		reader = &quadStatementReader{dec: dec}
	} else {
		dec, err := newTripleDecoderWithOptions(r, kind.family, decodeOpts)
		if err != nil {
			return nil, err
		}
		reader = &tripleStatementReader{dec: dec}
	}

	if opts.StrictIRIValidation {
		reader = &iriValidatingReader{Reader: reader}
	}
	return reader, nil
}

// newEncoder creates a writer for the specified format.
func newEncoder(w io.Writer, format Format, opts Options) (Writer, error) {
	kind, ok := formatKinds[format]
	if !ok {
		return nil, ErrUnsupportedFormat
	}

	if kind.hasGraph {
		enc, err := newQuadEncoder(w, kind.family)
		if err != nil {
			return nil, err
		}
		return &quadStatementWriter{enc: enc}, nil
	}
	enc, err := newTripleEncoder(w, kind.family)
	if err != nil {
		return nil, err
	}
	return &tripleStatementWriter{enc: enc}, nil
}

// iriValidatingReader wraps a Reader, running ValidateIRI against every
// IRI term of every statement before handing it back to the caller.
type iriValidatingReader struct {
	Reader
}

func (v *iriValidatingReader) Next() (Statement, error) {
	stmt, err := v.Reader.Next()
	if err != nil {
		return stmt, err
	}
	for _, term := range []Term{stmt.S, stmt.P, stmt.O, stmt.G} {
		iri, ok := term.(IRI)
		if !ok {
			continue
		}
		if err := ValidateIRI(iri.Value); err != nil {
			return Statement{}, fmt.Errorf("strict IRI validation: %w", err)
		}
	}
	return stmt, nil
}

// tripleStatementReader adapts a TripleDecoder to the unified Reader
// interface, setting G to nil on every Statement it produces.
type tripleStatementReader struct{ dec TripleDecoder }

func (a *tripleStatementReader) Next() (Statement, error) {
	triple, err := a.dec.Next()
	if err != nil {
		return Statement{}, err
	}
	return Statement{S: triple.S, P: triple.P, O: triple.O}, nil
}

func (a *tripleStatementReader) Close() error { return a.dec.Close() }

// quadStatementReader adapts a QuadDecoder to the unified Reader interface.
type quadStatementReader struct{ dec QuadDecoder }

func (a *quadStatementReader) Next() (Statement, error) {
	quad, err := a.dec.Next()
	if err != nil {
		return Statement{}, err
	}
	return quad.ToStatement(), nil
}

func (a *quadStatementReader) Close() error { return a.dec.Close() }

// tripleStatementWriter adapts a TripleEncoder to the unified Writer
// interface, dropping any graph component on the statements it writes.
type tripleStatementWriter struct{ enc TripleEncoder }

func (a *tripleStatementWriter) Write(s Statement) error { return a.enc.Write(s.AsTriple()) }
func (a *tripleStatementWriter) Flush() error            { return a.enc.Flush() }
func (a *tripleStatementWriter) Close() error            { return a.enc.Close() }

// quadStatementWriter adapts a QuadEncoder to the unified Writer interface.
type quadStatementWriter struct{ enc QuadEncoder }

func (a *quadStatementWriter) Write(s Statement) error { return a.enc.Write(s.AsQuad()) }
func (a *quadStatementWriter) Flush() error            { return a.enc.Flush() }
func (a *quadStatementWriter) Close() error            { return a.enc.Close() }
