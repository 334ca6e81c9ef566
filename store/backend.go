// Package store implements the six-index quad storage layer: a capability
// interface (Reader/Transaction/BulkLoader) implemented by two backends --
// an on-disk Badger-backed engine (badger_backend.go, the default) and an
// in-memory B-tree fallback (mem_backend.go) -- plus the Store type that
// drives pattern-based index selection on top of either one.
//
// Grounded on aleksaelezovic/trigo's internal/storage Badger wrapper and
// internal/store.TripleStore (table naming, Begin(writable)/Scan/prefix
// iteration, selectIndex/buildScanPrefix) and twinfer/factstoredb's
// dialect-behind-an-interface split (there: SQLite vs. Postgres; here:
// Badger vs. in-memory B-tree).
package store

import (
	"errors"
	"fmt"

	"github.com/geoknoesis/quadgraph/dict"
)

// Family identifies one column family: one of the six quad indexes, the
// named-graph membership table, or one of the dictionary's two side
// tables. Badger has no native column families, so each Family is realized
// as a one-byte key prefix; the in-memory backend gives each Family its
// own B-tree.
type Family uint8

const (
	// FamilySPOG through FamilyGOSP are the six quad indexes: every insert
	// writes all six, every delete removes all six, so that any
	// bound-prefix pattern can be answered by a single range scan.
	FamilySPOG Family = iota
	FamilyPOSG
	FamilyOSPG
	FamilyGSPO
	FamilyGPOS
	FamilyGOSP
	// FamilyGraphs records every graph name that has held a quad; entries
	// are not removed when the graph's last quad is deleted.
	FamilyGraphs
	// FamilyDictHash and FamilyDictString are the dictionary's durable
	// side tables: hash -> tag byte, and hash -> serialized term bytes.
	FamilyDictHash
	FamilyDictString
)

func (f Family) String() string {
	switch f {
	case FamilySPOG:
		return "spog"
	case FamilyPOSG:
		return "posg"
	case FamilyOSPG:
		return "ospg"
	case FamilyGSPO:
		return "gspo"
	case FamilyGPOS:
		return "gpos"
	case FamilyGOSP:
		return "gosp"
	case FamilyGraphs:
		return "graphs"
	case FamilyDictHash:
		return "dict_hash"
	case FamilyDictString:
		return "dict_string"
	default:
		return fmt.Sprintf("family(%d)", uint8(f))
	}
}

// quadIndexFamilies lists the six quad indexes in a fixed order, used
// whenever every index needs visiting (insert, delete, consistency checks).
var quadIndexFamilies = [6]Family{FamilySPOG, FamilyPOSG, FamilyOSPG, FamilyGSPO, FamilyGPOS, FamilyGOSP}

// quadIndexPermutation returns, for a quad index family, the order its key
// concatenates the four quad components in: 0=S, 1=P, 2=O, 3=G.
func quadIndexPermutation(f Family) [4]int {
	switch f {
	case FamilySPOG:
		return [4]int{0, 1, 2, 3}
	case FamilyPOSG:
		return [4]int{1, 2, 0, 3}
	case FamilyOSPG:
		return [4]int{2, 0, 1, 3}
	case FamilyGSPO:
		return [4]int{3, 0, 1, 2}
	case FamilyGPOS:
		return [4]int{3, 1, 2, 0}
	case FamilyGOSP:
		return [4]int{3, 2, 0, 1}
	default:
		return [4]int{0, 1, 2, 3}
	}
}

// ErrNotFound is returned by Get/Resolve-style lookups that miss.
var ErrNotFound = errors.New("store: key not found")

// Corruption is returned when a decode of a stored key or value fails an
// invariant check -- surfaced as a distinct type rather than a plain IO or
// parse error.
type Corruption struct {
	Reason string
}

func (c *Corruption) Error() string { return "store: corruption: " + c.Reason }

// Iterator walks ascending keys within one family, optionally restricted to
// a key prefix.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Close() error
}

// Reader is a stable, read-only view over the store. Multiple Readers may
// be open concurrently with an in-progress Transaction.
type Reader interface {
	Get(family Family, key []byte) ([]byte, error)
	Scan(family Family, prefix []byte) (Iterator, error)
	Close() error
}

// Transaction buffers mutations for atomic commit across all touched
// families, or discards them on Rollback. It also satisfies Reader so a
// writer observes its own uncommitted writes.
type Transaction interface {
	Reader
	Set(family Family, key, value []byte) error
	Delete(family Family, key []byte) error
	Commit() error
	Rollback() error
}

// BulkLoader is the amortized insert path for large initial loads.
// WithoutAtomicity relaxes the single-commit guarantee in exchange for
// sequential-write-friendly batching; Flush applies what's buffered so far.
type BulkLoader interface {
	WithoutAtomicity()
	Set(family Family, key, value []byte) error
	Flush() error
	Close() error
}

// Backend is the narrow capability interface both storage engines
// implement; the Store type and the SPARQL evaluator are generic over it.
type Backend interface {
	Snapshot() (Reader, error)
	BeginWrite() (Transaction, error)
	NewBulkLoader() (BulkLoader, error)
	Flush() error
	Compact() error
	Backup(dir string) error
	Close() error
}

// decodedTermSize is the on-the-wire width of a dict.EncodedTerm, used when
// slicing index keys back into their component terms.
const decodedTermSize = dict.EncodedTermSize
