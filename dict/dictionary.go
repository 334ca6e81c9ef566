package dict

import (
	"sync"

	"github.com/geoknoesis/quadgraph/rdf"
	"github.com/zeebo/xxh3"
)

// Dictionary is the bijective arena backing EncodedTerm's hash variants: a
// 128-bit fingerprint maps to the original rdf.Term it was computed from,
// with collision detection on insert. It is safe for concurrent use:
// readers and the single writer never need external locking beyond what
// Dictionary itself provides -- the string dictionary is shared across
// snapshots, and its entries are immutable once written.
type Dictionary struct {
	mu      sync.RWMutex
	entries map[[16]byte]rdf.Term
}

// NewDictionary returns an empty, ready-to-use Dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{entries: make(map[[16]byte]rdf.Term)}
}

// hashBytes computes the 128-bit xxh3 fingerprint of a byte slice.
func hashBytes(b []byte) [16]byte {
	h := xxh3.Hash128(b)
	return h.Bytes()
}

// Intern records term under its content hash, returning the hash. If the
// hash is already present, the new term must be structurally Equal to the
// stored one or this is a genuine hash collision and returns
// ErrDictionaryCorruption -- every hash-bearing index key is stored
// alongside the full string and round-trips through the string table for
// disambiguation.
func (d *Dictionary) Intern(term rdf.Term, content []byte) ([16]byte, error) {
	hash := hashBytes(content)
	d.mu.Lock()
	defer d.mu.Unlock()
	if existing, ok := d.entries[hash]; ok {
		if !rdf.Equal(existing, term) {
			return hash, ErrDictionaryCorruption
		}
		return hash, nil
	}
	d.entries[hash] = term
	return hash, nil
}

// CacheResolved records a (hash, term) pair already validated by a durable
// backend's string/term table, without re-hashing or collision-checking --
// used to populate the in-memory cache on a cold Resolve miss.
func (d *Dictionary) CacheResolved(hash [16]byte, term rdf.Term) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.entries[hash]; !ok {
		d.entries[hash] = term
	}
}

// Resolve looks up the term originally interned under hash.
func (d *Dictionary) Resolve(hash [16]byte) (rdf.Term, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.entries[hash]
	return t, ok
}

// Len reports the number of distinct hashed entries, for diagnostics and
// compaction-stats reporting.
func (d *Dictionary) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}
