package dict

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/geoknoesis/quadgraph/rdf"
	"github.com/geoknoesis/quadgraph/xsd"
)

// inlineThreshold is the largest lexical form (in bytes) that fits inline
// in an EncodedTerm's payload: small inline strings up to 15 UTF-8 bytes.
const inlineThreshold = payloadSize - 1

// Encoder turns rdf.Term values into EncodedTerm handles and back, using a
// Dictionary for any value too large to inline.
type Encoder struct {
	dict *Dictionary
}

// NewEncoder builds an Encoder backed by dict.
func NewEncoder(dict *Dictionary) *Encoder {
	return &Encoder{dict: dict}
}

// Encode maps term to its fixed-width handle, interning it in the backing
// Dictionary if it doesn't fit inline.
func (e *Encoder) Encode(term rdf.Term) (EncodedTerm, error) {
	switch t := term.(type) {
	case rdf.IRI:
		return e.encodeString(TagIRIInline, TagIRIHash, t, []byte(t.Value))
	case rdf.BlankNode:
		return e.encodeString(TagBlankInline, TagBlankHash, t, []byte(t.ID))
	case rdf.Literal:
		return e.encodeLiteral(t)
	case rdf.TripleTerm:
		return e.encodeHashedTerm(TagTripleHash, t, []byte(t.String()))
	default:
		return EncodedTerm{}, ErrUnsupportedTerm
	}
}

func (e *Encoder) encodeString(inlineTag, hashTag Tag, term rdf.Term, raw []byte) (EncodedTerm, error) {
	if len(raw) <= inlineThreshold {
		var enc EncodedTerm
		enc.Tag = inlineTag
		enc.Payload[0] = byte(len(raw))
		copy(enc.Payload[1:], raw)
		return enc, nil
	}
	return e.encodeHashedTerm(hashTag, term, raw)
}

func (e *Encoder) encodeHashedTerm(tag Tag, term rdf.Term, content []byte) (EncodedTerm, error) {
	hash, err := e.dict.Intern(term, content)
	if err != nil {
		return EncodedTerm{}, fmt.Errorf("dictionary: encoding %s: %w", term, err)
	}
	var enc EncodedTerm
	enc.Tag = tag
	copy(enc.Payload[:], hash[:])
	return enc, nil
}

func (e *Encoder) encodeLiteral(lit rdf.Literal) (EncodedTerm, error) {
	// A lang-tagged or custom-datatype literal with a non-numeric lexical
	// form always goes through the term table: there isn't room in 15
	// bytes for lexical form + datatype + language tag together.
	if lit.Lang == "" && (lit.Datatype.Value == "" || lit.Datatype == xsd.String) {
		return e.encodeString(TagLiteralSimpleInline, TagLiteralSimpleHash, lit, []byte(lit.Lexical))
	}
	if lit.Lang == "" && xsd.IsNumeric(lit.Datatype) {
		if enc, ok := e.encodeNumericInline(lit); ok {
			if back, err := e.decodeNumericInline(enc); err == nil && rdf.Equal(back, lit) {
				return enc, nil
			}
		}
	}
	return e.encodeHashedTerm(TagLiteralHash, lit, []byte(lit.String()))
}

func (e *Encoder) encodeNumericInline(lit rdf.Literal) (EncodedTerm, bool) {
	var enc EncodedTerm
	enc.Tag = TagLiteralTypedInline
	switch lit.Datatype {
	case xsd.Boolean:
		enc.Payload[0] = byte(subtypeBoolean)
		if lit.Lexical == "true" || lit.Lexical == "1" {
			enc.Payload[1] = 1
		}
		return enc, true
	case xsd.Integer, xsd.Long, xsd.Int, xsd.Short, xsd.Byte:
		var v int64
		if _, err := fmt.Sscanf(lit.Lexical, "%d", &v); err != nil {
			return EncodedTerm{}, false
		}
		enc.Payload[0] = byte(subtypeInteger)
		binary.BigEndian.PutUint64(enc.Payload[1:9], uint64(v))
		return enc, true
	case xsd.Double:
		var f float64
		if _, err := fmt.Sscanf(lit.Lexical, "%g", &f); err != nil {
			return EncodedTerm{}, false
		}
		enc.Payload[0] = byte(subtypeDouble)
		binary.BigEndian.PutUint64(enc.Payload[1:9], math.Float64bits(f))
		return enc, true
	case xsd.Float:
		var f float32
		if _, err := fmt.Sscanf(lit.Lexical, "%g", &f); err != nil {
			return EncodedTerm{}, false
		}
		enc.Payload[0] = byte(subtypeFloat)
		binary.BigEndian.PutUint32(enc.Payload[1:5], math.Float32bits(f))
		return enc, true
	case xsd.Decimal:
		// A decimal's scaled big.Int mantissa doesn't fit the 8 spare
		// payload bytes for the full xsd:decimal value range, so it
		// always routes through the hashed term table.
		return EncodedTerm{}, false
	}
	return EncodedTerm{}, false
}

// EncodeGraph encodes a quad's graph component, mapping a nil term (the
// default graph) to the DefaultGraph sentinel instead of erroring.
func (e *Encoder) EncodeGraph(graph rdf.Term) (EncodedTerm, error) {
	if graph == nil {
		return DefaultGraph, nil
	}
	return e.Encode(graph)
}

// DecodeGraph is the inverse of EncodeGraph: the DefaultGraph sentinel
// decodes back to a nil rdf.Term.
func (e *Encoder) DecodeGraph(enc EncodedTerm) (rdf.Term, error) {
	if enc.IsDefaultGraph() {
		return nil, nil
	}
	return e.Decode(enc)
}

// Decode reconstructs the original rdf.Term from its encoded handle.
func (e *Encoder) Decode(enc EncodedTerm) (rdf.Term, error) {
	switch enc.Tag {
	case TagIRIInline:
		return rdf.IRI{Value: decodeInlineString(enc)}, nil
	case TagBlankInline:
		return rdf.BlankNode{ID: decodeInlineString(enc)}, nil
	case TagLiteralSimpleInline:
		return rdf.Literal{Lexical: decodeInlineString(enc)}, nil
	case TagLiteralTypedInline:
		return e.decodeNumericInline(enc)
	case TagIRIHash, TagBlankHash, TagLiteralSimpleHash, TagLiteralHash, TagTripleHash:
		var hash [16]byte
		copy(hash[:], enc.Payload[:])
		term, ok := e.dict.Resolve(hash)
		if !ok {
			return nil, fmt.Errorf("dictionary: unresolved hash reference (corrupted index)")
		}
		return term, nil
	default:
		return nil, fmt.Errorf("dictionary: unknown encoded term tag %d", enc.Tag)
	}
}

func decodeInlineString(enc EncodedTerm) string {
	n := int(enc.Payload[0])
	if n > inlineThreshold {
		n = inlineThreshold
	}
	return string(enc.Payload[1 : 1+n])
}

func (e *Encoder) decodeNumericInline(enc EncodedTerm) (rdf.Term, error) {
	switch numericSubtype(enc.Payload[0]) {
	case subtypeBoolean:
		v := enc.Payload[1] != 0
		lex := "false"
		if v {
			lex = "true"
		}
		return rdf.Literal{Lexical: lex, Datatype: xsd.Boolean}, nil
	case subtypeInteger:
		v := int64(binary.BigEndian.Uint64(enc.Payload[1:9]))
		return rdf.Literal{Lexical: fmt.Sprintf("%d", v), Datatype: xsd.Integer}, nil
	case subtypeDouble:
		f := math.Float64frombits(binary.BigEndian.Uint64(enc.Payload[1:9]))
		return rdf.Literal{Lexical: fmt.Sprintf("%v", f), Datatype: xsd.Double}, nil
	case subtypeFloat:
		f := math.Float32frombits(binary.BigEndian.Uint32(enc.Payload[1:5]))
		return rdf.Literal{Lexical: fmt.Sprintf("%v", f), Datatype: xsd.Float}, nil
	default:
		return nil, fmt.Errorf("dictionary: unknown numeric subtype %d", enc.Payload[0])
	}
}
