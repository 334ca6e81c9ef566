package rdf

import "io"

// Encoder streams RDF quads to an output.
type Encoder interface {
	Write(Quad) error
	Flush() error
	Close() error
}

// Decoder streams RDF quads from an input, regardless of whether the
// underlying format carries a graph component.
type Decoder interface {
	Next() (Quad, error)
	Err() error
	Close() error
}

// tripleEncoder/quadEncoder are internal aliases kept for format-specific
// files (e.g. rdfxml_encoder.go) that predate the exported TripleEncoder/
// QuadEncoder names.
type tripleEncoder = TripleEncoder
type quadEncoder = QuadEncoder

// tripleDecoderAsDecoder adapts a TripleDecoder to the generic Decoder
// interface by placing every statement in the default graph.
type tripleDecoderAsDecoder struct {
	dec TripleDecoder
}

func (a tripleDecoderAsDecoder) Next() (Quad, error) {
	t, err := a.dec.Next()
	if err != nil {
		return Quad{}, err
	}
	return t.ToQuad(), nil
}

func (a tripleDecoderAsDecoder) Err() error   { return a.dec.Err() }
func (a tripleDecoderAsDecoder) Close() error { return a.dec.Close() }

// tripleEncoderAsEncoder adapts a TripleEncoder to the generic Encoder
// interface, dropping the graph component of any quad written to it.
type tripleEncoderAsEncoder struct {
	enc TripleEncoder
}

func (a tripleEncoderAsEncoder) Write(q Quad) error { return a.enc.Write(q.ToTriple()) }
func (a tripleEncoderAsEncoder) Flush() error       { return a.enc.Flush() }
func (a tripleEncoderAsEncoder) Close() error       { return a.enc.Close() }

// NewDecoder creates a generic quad-level decoder for the given format.
// Triple-only formats place every statement in the default graph.
func NewDecoder(r io.Reader, format Format) (Decoder, error) {
	switch format {
	case FormatNTriples:
		return tripleDecoderAsDecoder{newNTriplesTripleDecoder(r)}, nil
	case FormatTurtle:
		return tripleDecoderAsDecoder{newTurtleTripleDecoder(r)}, nil
	case FormatJSONLD:
		return tripleDecoderAsDecoder{newJSONLDTripleDecoder(r)}, nil
	case FormatNQuads:
		return newNQuadsQuadDecoder(r), nil
	case FormatTriG:
		return newTriGQuadDecoder(r), nil
	case FormatRDFXML:
		return newRDFXMLDecoder(r), nil
	default:
		return nil, ErrUnsupportedFormat
	}
}

// NewEncoder creates a generic quad-level encoder for the given format.
// Triple-only formats silently drop the graph component of each quad.
func NewEncoder(w io.Writer, format Format) (Encoder, error) {
	switch format {
	case FormatNTriples:
		return tripleEncoderAsEncoder{newNTriplesTripleEncoder(w)}, nil
	case FormatTurtle:
		return tripleEncoderAsEncoder{newTurtleTripleEncoder(w)}, nil
	case FormatJSONLD:
		return tripleEncoderAsEncoder{newJSONLDTripleEncoder(w)}, nil
	case FormatNQuads:
		return newNQuadsQuadEncoder(w), nil
	case FormatTriG:
		return newTriGQuadEncoder(w), nil
	case FormatRDFXML:
		return newRDFXMLEncoder(w), nil
	default:
		return nil, ErrUnsupportedFormat
	}
}
