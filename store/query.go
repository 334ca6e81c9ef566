package store

import (
	"fmt"

	"github.com/geoknoesis/quadgraph/dict"
	"github.com/geoknoesis/quadgraph/rdf"
)

// QuadIterator walks the quads matching a Pattern, decoded on demand.
type QuadIterator interface {
	Next() bool
	Quad() (rdf.Quad, error)
	Err() error
	Close() error
}

// Query selects the index whose permutation gives the pattern's longest
// bound prefix (tie-broken by estimated selectivity of the next
// component), range-scans it by that prefix, and decodes matches lazily.
func (s *Store) Query(pattern Pattern) (QuadIterator, error) {
	r, err := s.backend.Snapshot()
	if err != nil {
		return nil, err
	}

	terms, bound, err := s.encodePattern(pattern)
	if err != nil {
		r.Close()
		return nil, err
	}

	family := selectIndex(pattern, s.stats.selectivity)
	perm := quadIndexPermutation(family)
	prefix := buildPrefix(terms, perm, bound)

	it, err := r.Scan(family, prefix)
	if err != nil {
		r.Close()
		return nil, err
	}

	return &quadIterator{
		store:   s,
		reader:  r,
		it:      it,
		perm:    perm,
		pattern: pattern,
		terms:   terms,
		bound:   bound,
	}, nil
}

// encodePattern encodes each bound pattern position, leaving unbound ones
// at their zero value (never dereferenced by buildPrefix, which stops at
// the first unbound position in perm order).
func (s *Store) encodePattern(p Pattern) ([4]dict.EncodedTerm, [4]bool, error) {
	var terms [4]dict.EncodedTerm
	bound := p.boundMask()

	if p.S != nil {
		enc, err := s.encoder.Encode(p.S)
		if err != nil {
			return terms, bound, fmt.Errorf("store: encoding pattern subject: %w", err)
		}
		terms[0] = enc
	}
	if p.P != nil {
		enc, err := s.encoder.Encode(p.P)
		if err != nil {
			return terms, bound, fmt.Errorf("store: encoding pattern predicate: %w", err)
		}
		terms[1] = enc
	}
	if p.O != nil {
		enc, err := s.encoder.Encode(p.O)
		if err != nil {
			return terms, bound, fmt.Errorf("store: encoding pattern object: %w", err)
		}
		terms[2] = enc
	}
	switch p.GraphScope {
	case DefaultGraphOnly:
		terms[3] = dict.DefaultGraph
	case NamedGraph:
		enc, err := s.encoder.Encode(p.G)
		if err != nil {
			return terms, bound, fmt.Errorf("store: encoding pattern graph: %w", err)
		}
		terms[3] = enc
	}
	return terms, bound, nil
}

type quadIterator struct {
	store   *Store
	reader  Reader
	it      Iterator
	perm    [4]int
	pattern Pattern
	terms   [4]dict.EncodedTerm
	bound   [4]bool
	current rdf.Quad
	err     error
	closed  bool
}

// Next advances to the next matching quad, re-checking any pattern
// positions the chosen index's prefix didn't already guarantee (this
// happens when the index's permutation interleaves a bound position after
// an unbound one -- e.g. a (?, p, o, ?) pattern scanned via POSG still
// needs its own graph re-check since POSG's prefix only covers P and O).
func (qi *quadIterator) Next() bool {
	if qi.closed || qi.err != nil {
		return false
	}
	for qi.it.Next() {
		key := qi.it.Key()
		components, err := splitKey(key, qi.perm)
		if err != nil {
			qi.err = err
			return false
		}
		if !qi.matches(components) {
			continue
		}
		q, err := qi.decode(components)
		if err != nil {
			qi.err = err
			return false
		}
		qi.current = q
		return true
	}
	return false
}

func (qi *quadIterator) matches(components [4]dict.EncodedTerm) bool {
	if qi.bound[0] && components[0] != qi.terms[0] {
		return false
	}
	if qi.bound[1] && components[1] != qi.terms[1] {
		return false
	}
	if qi.bound[2] && components[2] != qi.terms[2] {
		return false
	}
	if qi.pattern.GraphScope != AnyGraph && components[3] != qi.terms[3] {
		return false
	}
	return true
}

func (qi *quadIterator) decode(components [4]dict.EncodedTerm) (rdf.Quad, error) {
	s, err := qi.store.decodeTerm(qi.reader, components[0])
	if err != nil {
		return rdf.Quad{}, fmt.Errorf("store: decoding subject: %w", err)
	}
	p, err := qi.store.decodeTerm(qi.reader, components[1])
	if err != nil {
		return rdf.Quad{}, fmt.Errorf("store: decoding predicate: %w", err)
	}
	pIRI, ok := p.(rdf.IRI)
	if !ok {
		return rdf.Quad{}, &Corruption{Reason: "predicate position decoded to a non-IRI term"}
	}
	o, err := qi.store.decodeTerm(qi.reader, components[2])
	if err != nil {
		return rdf.Quad{}, fmt.Errorf("store: decoding object: %w", err)
	}
	g, err := qi.store.decodeGraph(qi.reader, components[3])
	if err != nil {
		return rdf.Quad{}, fmt.Errorf("store: decoding graph: %w", err)
	}
	return rdf.Quad{S: s, P: pIRI, O: o, G: g}, nil
}

func (qi *quadIterator) Quad() (rdf.Quad, error) {
	if qi.err != nil {
		return rdf.Quad{}, qi.err
	}
	return qi.current, nil
}

func (qi *quadIterator) Err() error { return qi.err }

func (qi *quadIterator) Close() error {
	if qi.closed {
		return nil
	}
	qi.closed = true
	qi.it.Close()
	return qi.reader.Close()
}
