// Package rdf provides a compact RDF term model together with streaming
// parsers and encoders for the Turtle, TriG, N-Triples, N-Quads, RDF/XML,
// and JSON-LD syntaxes.
//
// The package favors fast, low-allocation I/O with a small surface area
// and type safety:
//   - Decode: NewTripleDecoder() and NewQuadDecoder() return pull-style decoders.
//   - Encode: NewTripleEncoder() and NewQuadEncoder() return push-style encoders.
//   - Parse: ParseTriples() and ParseQuads() provide streaming helpers.
//   - ParseChan provides channel-based streaming over the Handler/Statement surface.
//
// Triple formats can only be used with triple decoders/encoders, and quad
// formats can only be used with quad decoders/encoders, so a format
// mismatch is caught at the call site rather than producing malformed
// output.
//
// RDF-star is represented via TripleTerm, letting a quoted triple appear
// as a subject or object.
//
// Example (decoding triples):
//
//	dec, err := rdf.NewTripleDecoder(strings.NewReader(input), rdf.TripleFormatNTriples)
//	if err != nil {
//	    // handle error
//	}
//	defer dec.Close()
//
//	for {
//	    triple, err := dec.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        // handle error
//	    }
//	    // process triple.S, triple.P, triple.O
//	}
//
// Example (decoding quads):
//
//	dec, err := rdf.NewQuadDecoder(strings.NewReader(input), rdf.QuadFormatNQuads)
//	if err != nil {
//	    // handle error
//	}
//	defer dec.Close()
//
//	for {
//	    quad, err := dec.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        // handle error
//	    }
//	    // process quad.S, quad.P, quad.O, quad.G
//	}
//
// NewTripleDecoder, NewQuadDecoder, NewTripleEncoder, and NewQuadEncoder
// return ErrUnsupportedFormat for a format they don't recognize.
//
// The API favors streaming: for large inputs prefer NewTripleDecoder /
// NewQuadDecoder or ParseTriples / ParseQuads over buffering every result.
//
// NewTripleDecoderWithOptions and NewQuadDecoderWithOptions (and the
// WithOptions streaming variants) accept line- and statement-length
// limits, for decoding input that isn't fully trusted.
//
// The RDF/XML triple decoder always expands rdf:li container membership
// properties to numbered rdf:_1, rdf:_2, ... predicates; there is no
// option to turn this expansion off.
package rdf
