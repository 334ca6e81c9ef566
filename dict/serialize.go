package dict

import (
	"encoding/binary"
	"fmt"

	"github.com/geoknoesis/quadgraph/rdf"
)

// EncodeTermBytes produces the durable side-table value for a term that
// hashed to tag (one of the *Hash tags): everything Decode needs to
// reconstruct the term without access to the in-memory Dictionary cache.
// This is what a persistent Backend stores in its string/term family,
// keyed by the 128-bit hash.
func EncodeTermBytes(tag Tag, term rdf.Term) ([]byte, error) {
	switch tag {
	case TagIRIHash:
		iri, ok := term.(rdf.IRI)
		if !ok {
			return nil, fmt.Errorf("dict: TagIRIHash term is %T, not rdf.IRI", term)
		}
		return []byte(iri.Value), nil
	case TagBlankHash:
		b, ok := term.(rdf.BlankNode)
		if !ok {
			return nil, fmt.Errorf("dict: TagBlankHash term is %T, not rdf.BlankNode", term)
		}
		return []byte(b.ID), nil
	case TagLiteralSimpleHash:
		lit, ok := term.(rdf.Literal)
		if !ok {
			return nil, fmt.Errorf("dict: TagLiteralSimpleHash term is %T, not rdf.Literal", term)
		}
		return []byte(lit.Lexical), nil
	case TagLiteralHash:
		lit, ok := term.(rdf.Literal)
		if !ok {
			return nil, fmt.Errorf("dict: TagLiteralHash term is %T, not rdf.Literal", term)
		}
		return encodeLiteralBytes(lit), nil
	case TagTripleHash:
		tt, ok := term.(rdf.TripleTerm)
		if !ok {
			return nil, fmt.Errorf("dict: TagTripleHash term is %T, not rdf.TripleTerm", term)
		}
		return encodeTripleBytes(tt), nil
	default:
		return nil, fmt.Errorf("dict: tag %d does not hash through the term table", tag)
	}
}

// DecodeTermBytes is the inverse of EncodeTermBytes.
func DecodeTermBytes(tag Tag, b []byte) (rdf.Term, error) {
	switch tag {
	case TagIRIHash:
		return rdf.IRI{Value: string(b)}, nil
	case TagBlankHash:
		return rdf.BlankNode{ID: string(b)}, nil
	case TagLiteralSimpleHash:
		return rdf.Literal{Lexical: string(b)}, nil
	case TagLiteralHash:
		return decodeLiteralBytes(b)
	case TagTripleHash:
		return decodeTripleBytes(b)
	default:
		return nil, fmt.Errorf("dict: tag %d does not hash through the term table", tag)
	}
}

func putLenPrefixed(dst []byte, s string) []byte {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(s)))
	dst = append(dst, lenBuf[:n]...)
	return append(dst, s...)
}

func readLenPrefixed(b []byte) (string, []byte, error) {
	length, n := binary.Uvarint(b)
	if n <= 0 {
		return "", nil, fmt.Errorf("dict: malformed length prefix")
	}
	b = b[n:]
	if uint64(len(b)) < length {
		return "", nil, fmt.Errorf("dict: truncated field, want %d bytes have %d", length, len(b))
	}
	return string(b[:length]), b[length:], nil
}

func encodeLiteralBytes(lit rdf.Literal) []byte {
	buf := make([]byte, 0, len(lit.Lexical)+len(lit.Datatype.Value)+len(lit.Lang)+3)
	buf = putLenPrefixed(buf, lit.Lexical)
	buf = putLenPrefixed(buf, lit.Datatype.Value)
	buf = putLenPrefixed(buf, lit.Lang)
	return buf
}

func decodeLiteralBytes(b []byte) (rdf.Literal, error) {
	lexical, b, err := readLenPrefixed(b)
	if err != nil {
		return rdf.Literal{}, err
	}
	datatype, b, err := readLenPrefixed(b)
	if err != nil {
		return rdf.Literal{}, err
	}
	lang, _, err := readLenPrefixed(b)
	if err != nil {
		return rdf.Literal{}, err
	}
	lit := rdf.Literal{Lexical: lexical, Lang: lang}
	if datatype != "" {
		lit.Datatype = rdf.IRI{Value: datatype}
	}
	return lit, nil
}

func encodeTripleBytes(t rdf.TripleTerm) []byte {
	var buf []byte
	buf = append(buf, encodeNestedTerm(t.S)...)
	buf = putLenPrefixed(buf, t.P.Value)
	buf = append(buf, encodeNestedTerm(t.O)...)
	return buf
}

func decodeTripleBytes(b []byte) (rdf.TripleTerm, error) {
	s, rest, err := decodeNestedTerm(b)
	if err != nil {
		return rdf.TripleTerm{}, err
	}
	pred, rest, err := readLenPrefixed(rest)
	if err != nil {
		return rdf.TripleTerm{}, err
	}
	o, _, err := decodeNestedTerm(rest)
	if err != nil {
		return rdf.TripleTerm{}, err
	}
	return rdf.TripleTerm{S: s, P: rdf.IRI{Value: pred}, O: o}, nil
}

// nested term kinds within a quoted triple's serialized form.
const (
	nestedKindIRI byte = iota
	nestedKindBlank
	nestedKindLiteral
	nestedKindTriple
)

func encodeNestedTerm(term rdf.Term) []byte {
	switch t := term.(type) {
	case rdf.IRI:
		buf := []byte{nestedKindIRI}
		return putLenPrefixed(buf, t.Value)
	case rdf.BlankNode:
		buf := []byte{nestedKindBlank}
		return putLenPrefixed(buf, t.ID)
	case rdf.Literal:
		buf := []byte{nestedKindLiteral}
		return append(buf, encodeLiteralBytes(t)...)
	case rdf.TripleTerm:
		buf := []byte{nestedKindTriple}
		return append(buf, encodeTripleBytes(t)...)
	default:
		return []byte{nestedKindIRI, 0}
	}
}

func decodeNestedTerm(b []byte) (rdf.Term, []byte, error) {
	if len(b) == 0 {
		return nil, nil, fmt.Errorf("dict: truncated nested term")
	}
	kind, b := b[0], b[1:]
	switch kind {
	case nestedKindIRI:
		v, rest, err := readLenPrefixed(b)
		return rdf.IRI{Value: v}, rest, err
	case nestedKindBlank:
		v, rest, err := readLenPrefixed(b)
		return rdf.BlankNode{ID: v}, rest, err
	case nestedKindLiteral:
		lexical, b, err := readLenPrefixed(b)
		if err != nil {
			return nil, nil, err
		}
		datatype, b, err := readLenPrefixed(b)
		if err != nil {
			return nil, nil, err
		}
		lang, rest, err := readLenPrefixed(b)
		if err != nil {
			return nil, nil, err
		}
		lit := rdf.Literal{Lexical: lexical, Lang: lang}
		if datatype != "" {
			lit.Datatype = rdf.IRI{Value: datatype}
		}
		return lit, rest, nil
	case nestedKindTriple:
		tt, err := decodeTripleBytes(b)
		return tt, nil, err
	default:
		return nil, nil, fmt.Errorf("dict: unknown nested term kind %d", kind)
	}
}
