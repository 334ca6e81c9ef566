package rdf

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// FormatKind says whether a named format is triple- or quad-oriented.
type FormatKind int

const (
	FormatUnknown FormatKind = iota
	FormatTriples
	FormatQuads
)

// AnyFormat is a resolved, whole-document parse/serialize target: a name
// plus enough of TripleFormat/QuadFormat to drive ParseAny/SerializeAny
// without the caller needing to know which of the two families it is.
type AnyFormat struct {
	Name      string
	Kind      FormatKind
	TripleFmt TripleFormat
	QuadFmt   QuadFormat
	IsJSONLD  bool
}

// AnyFormatOptions carries the per-format options structs that apply when
// a caller wants more than the zero-value encoder for a given format.
type AnyFormatOptions struct {
	JSONLD *JSONLDOptions
	Turtle *TurtleEncodeOptions
	TriG   *TriGEncodeOptions
	RDFXML *RDFXMLEncodeOptions
}

var anyFormatsByName = map[string]AnyFormat{
	"turtle":   {Kind: FormatTriples, TripleFmt: TripleFormatTurtle},
	"ntriples": {Kind: FormatTriples, TripleFmt: TripleFormatNTriples},
	"rdfxml":   {Kind: FormatTriples, TripleFmt: TripleFormatRDFXML},
	"jsonld":   {Kind: FormatTriples, TripleFmt: TripleFormatJSONLD, IsJSONLD: true},
	"trig":     {Kind: FormatQuads, QuadFmt: QuadFormatTriG},
	"nquads":   {Kind: FormatQuads, QuadFmt: QuadFormatNQuads},
}

var anyFormatNameByExtension = map[string]string{
	".ttl":    "turtle",
	".nt":     "ntriples",
	".trig":   "trig",
	".nq":     "nquads",
	".rdf":    "rdfxml",
	".xml":    "rdfxml",
	".jsonld": "jsonld",
	".json":   "jsonld",
}

var anyFormatNameByMediaType = map[string]string{
	"text/turtle":          "turtle",
	"application/n-triples": "ntriples",
	"application/trig":      "trig",
	"application/n-quads":   "nquads",
	"application/rdf+xml":   "rdfxml",
	"application/xml":       "rdfxml",
	"text/xml":              "rdfxml",
	"application/ld+json":   "jsonld",
}

// ResolveAnyFormat looks up a canonical format name ("turtle", "jsonld", ...).
func ResolveAnyFormat(name string) (AnyFormat, error) {
	f, ok := anyFormatsByName[name]
	if !ok {
		return AnyFormat{}, fmt.Errorf("rdf: unknown format name %q", name)
	}
	f.Name = name
	return f, nil
}

// ResolveAnyFormatFromPath infers a format from a file's extension.
func ResolveAnyFormatFromPath(path string) (AnyFormat, error) {
	ext := strings.ToLower(filepath.Ext(path))
	name, ok := anyFormatNameByExtension[ext]
	if !ok {
		return AnyFormat{}, fmt.Errorf("rdf: no format registered for extension %q", ext)
	}
	return ResolveAnyFormat(name)
}

// ResolveAnyFormatFromContentType infers a format from an HTTP Content-Type,
// ignoring any ";charset=..." parameters.
func ResolveAnyFormatFromContentType(contentType string) (AnyFormat, error) {
	mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	name, ok := anyFormatNameByMediaType[mediaType]
	if !ok {
		return AnyFormat{}, fmt.Errorf("rdf: no format registered for media type %q", mediaType)
	}
	return ResolveAnyFormat(name)
}

func resolveAnyFormatFromHints(path, contentType string) (AnyFormat, error) {
	if path != "" {
		if format, err := ResolveAnyFormatFromPath(path); err == nil {
			return format, nil
		}
	}
	if contentType != "" {
		return ResolveAnyFormatFromContentType(contentType)
	}
	return AnyFormat{}, fmt.Errorf("rdf: could not infer a format from path %q or content type %q", path, contentType)
}

// ParseAnyAuto infers the document's format from its path (by extension) or
// its content type, then decodes it fully into memory.
func ParseAnyAuto(ctx context.Context, r io.Reader, path string, contentType string, opts AnyFormatOptions) ([]Quad, error) {
	format, err := resolveAnyFormatFromHints(path, contentType)
	if err != nil {
		return nil, err
	}
	return ParseAnyWithFormat(ctx, r, format, opts)
}

// SerializeAnyAuto is the write-side counterpart of ParseAnyAuto.
func SerializeAnyAuto(ctx context.Context, w io.Writer, path string, contentType string, quads []Quad, opts AnyFormatOptions) error {
	format, err := resolveAnyFormatFromHints(path, contentType)
	if err != nil {
		return err
	}
	return SerializeAnyWithFormat(ctx, w, format, quads, opts)
}

// ParseAnyWithFormat parses a whole document already resolved to a format.
func ParseAnyWithFormat(ctx context.Context, r io.Reader, format AnyFormat, opts AnyFormatOptions) ([]Quad, error) {
	return ParseAny(ctx, r, format.Name, opts)
}

// SerializeAnyWithFormat serializes quads for an already-resolved format.
func SerializeAnyWithFormat(ctx context.Context, w io.Writer, format AnyFormat, quads []Quad, opts AnyFormatOptions) error {
	return SerializeAny(ctx, w, format.Name, quads, opts)
}

// ParseAny decodes an entire document by format name into a slice of quads.
// Triple-oriented formats land their statements in the default graph.
func ParseAny(ctx context.Context, r io.Reader, formatName string, opts AnyFormatOptions) ([]Quad, error) {
	format, err := ResolveAnyFormat(formatName)
	if err != nil {
		return nil, err
	}
	if format.IsJSONLD {
		return collectJSONLDQuads(ctx, r, optionalJSONLDOptions(opts))
	}
	switch format.Kind {
	case FormatTriples:
		return collectTripleQuads(ctx, r, format.TripleFmt)
	case FormatQuads:
		return collectQuads(ctx, r, format.QuadFmt)
	default:
		return nil, fmt.Errorf("rdf: format %q has no triple/quad kind", formatName)
	}
}

func optionalJSONLDOptions(opts AnyFormatOptions) JSONLDOptions {
	if opts.JSONLD != nil {
		return *opts.JSONLD
	}
	return JSONLDOptions{}
}

func collectJSONLDQuads(ctx context.Context, r io.Reader, opts JSONLDOptions) ([]Quad, error) {
	var quads []Quad
	err := ParseJSONLDQuads(ctx, r, opts, QuadHandlerFunc(func(q Quad) error {
		quads = append(quads, q)
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return quads, nil
}

func collectTripleQuads(ctx context.Context, r io.Reader, format TripleFormat) ([]Quad, error) {
	var quads []Quad
	err := ParseTriples(ctx, r, format, TripleHandlerFunc(func(t Triple) error {
		quads = append(quads, Quad{S: t.S, P: t.P, O: t.O})
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return quads, nil
}

func collectQuads(ctx context.Context, r io.Reader, format QuadFormat) ([]Quad, error) {
	var quads []Quad
	err := ParseQuads(ctx, r, format, QuadHandlerFunc(func(q Quad) error {
		quads = append(quads, q)
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return quads, nil
}

// SerializeAny writes quads to w using the named format. Triple-oriented
// formats reject any quad carrying a non-default graph.
func SerializeAny(ctx context.Context, w io.Writer, formatName string, quads []Quad, opts AnyFormatOptions) error {
	_ = ctx
	format, err := ResolveAnyFormat(formatName)
	if err != nil {
		return err
	}
	if format.IsJSONLD {
		return serializeJSONLD(w, quads, optionalJSONLDOptions(opts))
	}
	switch format.Kind {
	case FormatTriples:
		return serializeAsTriples(w, format, quads, opts)
	case FormatQuads:
		return serializeAsQuads(w, format, quads, opts)
	default:
		return fmt.Errorf("rdf: format %q has no triple/quad kind", formatName)
	}
}

func serializeJSONLD(w io.Writer, quads []Quad, opts JSONLDOptions) error {
	if anyNamedGraph(quads) {
		enc := NewJSONLDQuadEncoder(w, opts)
		defer enc.Close()
		for _, q := range quads {
			if err := enc.Write(q); err != nil {
				return err
			}
		}
		return nil
	}
	enc := NewJSONLDTripleEncoder(w, opts)
	defer enc.Close()
	for _, q := range quads {
		if err := enc.Write(Triple{S: q.S, P: q.P, O: q.O}); err != nil {
			return err
		}
	}
	return nil
}

func serializeAsTriples(w io.Writer, format AnyFormat, quads []Quad, opts AnyFormatOptions) error {
	if anyNamedGraph(quads) {
		return fmt.Errorf("rdf: format %q cannot represent a named graph", format.Name)
	}
	var (
		enc TripleEncoder
		err error
	)
	switch format.TripleFmt {
	case TripleFormatTurtle:
		if opts.Turtle != nil {
			enc = NewTurtleTripleEncoder(w, *opts.Turtle)
		} else {
			enc, err = NewTripleEncoder(w, format.TripleFmt)
		}
	case TripleFormatRDFXML:
		if opts.RDFXML != nil {
			enc = NewRDFXMLTripleEncoder(w, *opts.RDFXML)
		} else {
			enc, err = NewTripleEncoder(w, format.TripleFmt)
		}
	default:
		enc, err = NewTripleEncoder(w, format.TripleFmt)
	}
	if err != nil {
		return err
	}
	defer enc.Close()
	for _, q := range quads {
		if err := enc.Write(Triple{S: q.S, P: q.P, O: q.O}); err != nil {
			return err
		}
	}
	return nil
}

func serializeAsQuads(w io.Writer, format AnyFormat, quads []Quad, opts AnyFormatOptions) error {
	var (
		enc QuadEncoder
		err error
	)
	switch format.QuadFmt {
	case QuadFormatTriG:
		if opts.TriG != nil {
			enc = NewTriGQuadEncoder(w, *opts.TriG)
		} else {
			enc, err = NewQuadEncoder(w, format.QuadFmt)
		}
	default:
		enc, err = NewQuadEncoder(w, format.QuadFmt)
	}
	if err != nil {
		return err
	}
	defer enc.Close()
	for _, q := range quads {
		if err := enc.Write(q); err != nil {
			return err
		}
	}
	return nil
}

func anyNamedGraph(quads []Quad) bool {
	for _, q := range quads {
		if q.G != nil {
			return true
		}
	}
	return false
}
