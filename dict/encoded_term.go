// Package dict implements the term dictionary and encoder: a bijective
// mapping between external rdf.Term values and a fixed-width EncodedTerm,
// inlining small values and hash-addressing large strings through a side
// table with explicit collision detection, using an xxh3 128-bit hash for
// term fingerprints.
package dict

// Tag identifies the encoding strategy packed into an EncodedTerm.
type Tag uint8

const (
	// TagIRIInline carries an IRI whose UTF-8 form fits within payloadSize.
	TagIRIInline Tag = iota
	// TagIRIHash carries a 128-bit fingerprint of a large IRI, resolved
	// through the string table.
	TagIRIHash
	// TagBlankInline carries a blank node id that fits within payloadSize.
	TagBlankInline
	// TagBlankHash carries a fingerprint of a large blank node id.
	TagBlankHash
	// TagLiteralSimpleInline carries a plain (no datatype/lang) string
	// literal whose lexical form fits within payloadSize.
	TagLiteralSimpleInline
	// TagLiteralSimpleHash carries a fingerprint of a large plain string
	// literal's lexical form.
	TagLiteralSimpleHash
	// TagLiteralTypedInline carries one of the inlineable typed literals
	// (boolean, i64-range integer, f32 or f64) whose lexical form decodes
	// back unchanged. Decimal and date/time literals are not inlined; they
	// use TagLiteralHash.
	TagLiteralTypedInline
	// TagLiteralHash carries a fingerprint of any literal (lang-tagged,
	// oversized lexical form, or a typed literal that doesn't fit inline)
	// resolved by looking the whole literal up in the term table.
	TagLiteralHash
	// TagTripleHash carries a fingerprint of an RDF-star quoted triple,
	// always resolved through the term table (a triple's three components
	// don't fit in a fixed 16-byte payload).
	TagTripleHash
	// TagDefaultGraph is the sentinel encoding of the default graph (a nil
	// rdf.Term graph component). It lets every quad, including default-graph
	// ones, key into the same six graph-first/graph-last indexes instead of
	// needing a seventh default-graph-only family.
	TagDefaultGraph
)

// payloadSize is the fixed payload width following the tag byte.
const payloadSize = 16

// EncodedTermSize is the total fixed width of an EncodedTerm: 1 tag byte
// plus payloadSize payload bytes.
const EncodedTermSize = 1 + payloadSize

// EncodedTerm is the fixed-width internal handle for an RDF term: an
// arena-plus-index resolution of the term/dictionary cycle, where this
// value is the integer-tagged handle and Dictionary is the owning arena.
type EncodedTerm struct {
	Tag     Tag
	Payload [payloadSize]byte
}

// Bytes returns the flat on-disk/in-key representation: tag byte followed
// by the payload, suitable for direct use as (part of) a storage key.
func (e EncodedTerm) Bytes() [EncodedTermSize]byte {
	var b [EncodedTermSize]byte
	b[0] = byte(e.Tag)
	copy(b[1:], e.Payload[:])
	return b
}

// FromBytes reconstructs an EncodedTerm from its flat representation.
func FromBytes(b []byte) EncodedTerm {
	var e EncodedTerm
	if len(b) == 0 {
		return e
	}
	e.Tag = Tag(b[0])
	copy(e.Payload[:], b[1:])
	return e
}

// IsHashed reports whether decoding e requires a string/term table lookup.
func (e EncodedTerm) IsHashed() bool {
	switch e.Tag {
	case TagIRIHash, TagBlankHash, TagLiteralSimpleHash, TagLiteralHash, TagTripleHash:
		return true
	default:
		return false
	}
}

// DefaultGraph is the fixed encoding used for the default graph (nil
// rdf.Term graph component) in every graph-bearing index key.
var DefaultGraph = EncodedTerm{Tag: TagDefaultGraph}

// IsDefaultGraph reports whether e is the default-graph sentinel.
func (e EncodedTerm) IsDefaultGraph() bool {
	return e.Tag == TagDefaultGraph
}

// numeric subtypes packed into TagLiteralTypedInline's payload[0].
type numericSubtype byte

const (
	subtypeBoolean numericSubtype = iota + 1
	subtypeInteger
	subtypeDecimal
	subtypeFloat
	subtypeDouble
)
