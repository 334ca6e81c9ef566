package store

import (
	"fmt"

	"github.com/geoknoesis/quadgraph/dict"
	"github.com/geoknoesis/quadgraph/rdf"
)

// Store is the high-level quad store: a Backend plus the term dictionary
// that encodes/decodes its index keys. It owns index-key construction and
// pattern-based index selection; the Backend only ever sees raw bytes.
type Store struct {
	backend Backend
	dict    *dict.Dictionary
	encoder *dict.Encoder
	stats   *selectivityStats
}

// Open wraps backend with a fresh in-memory term cache. The dictionary's
// durable half (hash -> term bytes) lives in the backend's
// FamilyDictString family and is written when a quad is inserted; the
// in-memory cache is filled lazily on first resolution.
func Open(backend Backend) *Store {
	d := dict.NewDictionary()
	return &Store{
		backend: backend,
		dict:    d,
		encoder: dict.NewEncoder(d),
		stats:   newSelectivityStats(),
	}
}

// Close releases the underlying backend.
func (s *Store) Close() error { return s.backend.Close() }

// Flush forces any buffered writes to durable storage.
func (s *Store) Flush() error { return s.backend.Flush() }

// Compact reclaims space from deleted/superseded entries and resets the
// selectivity estimator, which is refilled by subsequent inserts and bulk
// loads.
func (s *Store) Compact() error {
	s.stats.reset()
	return s.backend.Compact()
}

// Backup writes a full copy of the store to dir.
func (s *Store) Backup(dir string) error { return s.backend.Backup(dir) }

// NewBulkLoader returns a loader for the amortized bulk-insert path (see
// bulk.go), building index keys through this Store's encoder.
func (s *Store) NewBulkLoader() (*BulkInserter, error) {
	loader, err := s.backend.NewBulkLoader()
	if err != nil {
		return nil, err
	}
	return &BulkInserter{store: s, loader: loader}, nil
}

// Insert adds a quad, writing all six indexes (and the named-graph
// membership table, for non-default-graph quads) atomically.
func (s *Store) Insert(q rdf.Quad) error {
	txn, err := s.backend.BeginWrite()
	if err != nil {
		return err
	}
	defer txn.Rollback()
	if err := s.insertInTxn(txn, q); err != nil {
		return err
	}
	return txn.Commit()
}

func (s *Store) insertInTxn(txn Transaction, q rdf.Quad) error {
	terms, err := s.encodeQuad(txn, q)
	if err != nil {
		return err
	}
	for _, fam := range quadIndexFamilies {
		key := buildKey(terms, quadIndexPermutation(fam))
		if err := txn.Set(fam, key, nil); err != nil {
			return err
		}
	}
	if q.G != nil {
		if err := txn.Set(FamilyGraphs, terms[3].Bytes()[:], nil); err != nil {
			return err
		}
	}
	s.stats.observe(terms)
	return nil
}

// Delete removes a quad from all six indexes. The dictionary and graphs
// tables are append-only: their entries are never removed, not even by
// Compact.
func (s *Store) Delete(q rdf.Quad) error {
	txn, err := s.backend.BeginWrite()
	if err != nil {
		return err
	}
	defer txn.Rollback()
	if err := s.deleteInTxn(txn, q); err != nil {
		return err
	}
	return txn.Commit()
}

func (s *Store) deleteInTxn(txn Transaction, q rdf.Quad) error {
	terms, err := s.encodeQuadReadOnly(q)
	if err != nil {
		return err
	}
	for _, fam := range quadIndexFamilies {
		key := buildKey(terms, quadIndexPermutation(fam))
		if err := txn.Delete(fam, key); err != nil {
			return err
		}
	}
	return nil
}

// ApplyBatch deletes every quad in deletes then inserts every quad in
// inserts, all within one transaction (SPARQL Update's DELETE/INSERT
// atomicity requirement: the WHERE pattern is evaluated once against the
// pre-update snapshot, and the resulting deletes and inserts become
// visible together or not at all). Passing the same quad in both slices
// is well defined: it is deleted, then re-inserted, so it ends up present.
func (s *Store) ApplyBatch(deletes, inserts []rdf.Quad) error {
	txn, err := s.backend.BeginWrite()
	if err != nil {
		return err
	}
	defer txn.Rollback()
	for _, q := range deletes {
		if err := s.deleteInTxn(txn, q); err != nil {
			return err
		}
	}
	for _, q := range inserts {
		if err := s.insertInTxn(txn, q); err != nil {
			return err
		}
	}
	return txn.Commit()
}

// Contains reports whether q is present, via the primary SPOG index.
func (s *Store) Contains(q rdf.Quad) (bool, error) {
	r, err := s.backend.Snapshot()
	if err != nil {
		return false, err
	}
	defer r.Close()

	terms, err := s.encodeQuadReadOnly(q)
	if err != nil {
		return false, err
	}
	key := buildKey(terms, quadIndexPermutation(FamilySPOG))
	_, err = r.Get(FamilySPOG, key)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Count returns the number of quads, scanning the primary SPOG index.
func (s *Store) Count() (int64, error) {
	r, err := s.backend.Snapshot()
	if err != nil {
		return 0, err
	}
	defer r.Close()

	it, err := r.Scan(FamilySPOG, nil)
	if err != nil {
		return 0, err
	}
	defer it.Close()

	var n int64
	for it.Next() {
		n++
	}
	return n, nil
}

// encodeQuad encodes every component of q, persisting any newly-hashed
// term's durable side-table entry in txn so later readers can resolve it
// without the in-memory Dictionary having seen it.
func (s *Store) encodeQuad(txn Transaction, q rdf.Quad) ([4]dict.EncodedTerm, error) {
	var terms [4]dict.EncodedTerm
	comps := [3]rdf.Term{q.S, q.P, q.O}
	for i, t := range comps {
		enc, err := s.encoder.Encode(t)
		if err != nil {
			return terms, fmt.Errorf("store: encoding quad component %d: %w", i, err)
		}
		if enc.IsHashed() {
			if err := s.persistHashedTerm(txn, enc, t); err != nil {
				return terms, err
			}
		}
		terms[i] = enc
	}
	genc, err := s.encoder.EncodeGraph(q.G)
	if err != nil {
		return terms, fmt.Errorf("store: encoding quad graph: %w", err)
	}
	if genc.IsHashed() {
		if err := s.persistHashedTerm(txn, genc, q.G); err != nil {
			return terms, err
		}
	}
	terms[3] = genc
	return terms, nil
}

// encodeQuadReadOnly encodes a quad for lookup without writing anything;
// used by Delete/Contains, which only need the key bytes.
func (s *Store) encodeQuadReadOnly(q rdf.Quad) ([4]dict.EncodedTerm, error) {
	var terms [4]dict.EncodedTerm
	comps := [3]rdf.Term{q.S, q.P, q.O}
	for i, t := range comps {
		enc, err := s.encoder.Encode(t)
		if err != nil {
			return terms, err
		}
		terms[i] = enc
	}
	genc, err := s.encoder.EncodeGraph(q.G)
	if err != nil {
		return terms, err
	}
	terms[3] = genc
	return terms, nil
}

func (s *Store) persistHashedTerm(txn Transaction, enc dict.EncodedTerm, term rdf.Term) error {
	var hash [16]byte
	copy(hash[:], enc.Payload[:])
	key := hash[:]
	if _, err := txn.Get(FamilyDictString, key); err == nil {
		return nil // already durable
	} else if err != ErrNotFound {
		return err
	}
	raw, err := dict.EncodeTermBytes(enc.Tag, term)
	if err != nil {
		return err
	}
	if err := txn.Set(FamilyDictHash, key, []byte{byte(enc.Tag)}); err != nil {
		return err
	}
	return txn.Set(FamilyDictString, key, raw)
}

// decodeTerm reconstructs the rdf.Term an encoded component represents,
// consulting the durable string table on an in-memory Dictionary miss.
func (s *Store) decodeTerm(r Reader, enc dict.EncodedTerm) (rdf.Term, error) {
	if !enc.IsHashed() {
		return s.encoder.Decode(enc)
	}
	var hash [16]byte
	copy(hash[:], enc.Payload[:])
	if term, ok := s.dict.Resolve(hash); ok {
		return term, nil
	}
	raw, err := r.Get(FamilyDictString, hash[:])
	if err != nil {
		if err == ErrNotFound {
			return nil, &Corruption{Reason: "dictionary entry missing for referenced hash"}
		}
		return nil, err
	}
	term, err := dict.DecodeTermBytes(enc.Tag, raw)
	if err != nil {
		return nil, &Corruption{Reason: err.Error()}
	}
	s.dict.CacheResolved(hash, term)
	return term, nil
}

// ListGraphs returns every named graph that has ever held a quad, by
// scanning the graph-membership table; a graph whose quads have all been
// deleted is still listed (spec's GRAPH ?g enumeration and the DESCRIBE
// default-dataset rule both need the distinct non-default graph names).
func (s *Store) ListGraphs() ([]rdf.Term, error) {
	r, err := s.backend.Snapshot()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	it, err := r.Scan(FamilyGraphs, nil)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var graphs []rdf.Term
	for it.Next() {
		enc := dict.FromBytes(it.Key())
		g, err := s.decodeTerm(r, enc)
		if err != nil {
			return nil, err
		}
		graphs = append(graphs, g)
	}
	return graphs, nil
}

// decodeGraph is decodeTerm's counterpart for the graph position, where the
// DefaultGraph sentinel decodes to nil.
func (s *Store) decodeGraph(r Reader, enc dict.EncodedTerm) (rdf.Term, error) {
	if enc.IsDefaultGraph() {
		return nil, nil
	}
	return s.decodeTerm(r, enc)
}
