package store

import (
	"runtime"
	"sort"
	"sync"

	"github.com/geoknoesis/quadgraph/dict"
	"github.com/geoknoesis/quadgraph/rdf"
)

// BulkInserter is the amortized bulk-load front end over a BulkLoader: it
// may spawn N worker threads sorting disjoint shards, with the final
// merge serialized into one transaction. Quads are precomputed into index
// records per shard, each shard sorted for sequential-write-friendly
// application, then applied in one serialized pass so backend.Flush
// decides how much of that pass is batched.
type BulkInserter struct {
	store  *Store
	loader BulkLoader
}

// WithoutAtomicity relaxes the loader's single-commit guarantee.
func (b *BulkInserter) WithoutAtomicity() { b.loader.WithoutAtomicity() }

// Close releases the underlying loader.
func (b *BulkInserter) Close() error { return b.loader.Close() }

type kv struct {
	family Family
	key    []byte
	value  []byte
}

// InsertAll encodes and writes quads. Shard encoding/sorting runs across
// runtime.GOMAXPROCS workers; the resulting per-shard records are applied
// to the loader in a single serialized pass.
func (b *BulkInserter) InsertAll(quads []rdf.Quad) error {
	if len(quads) == 0 {
		return b.loader.Flush()
	}
	nWorkers := runtime.GOMAXPROCS(0)
	if nWorkers > len(quads) {
		nWorkers = len(quads)
	}
	if nWorkers < 1 {
		nWorkers = 1
	}

	shards := make([][]kv, nWorkers)
	errs := make([]error, nWorkers)
	shardSize := (len(quads) + nWorkers - 1) / nWorkers

	var wg sync.WaitGroup
	for w := 0; w < nWorkers; w++ {
		start := w * shardSize
		end := start + shardSize
		if start > len(quads) {
			start = len(quads)
		}
		if end > len(quads) {
			end = len(quads)
		}
		if start == end {
			continue
		}
		wg.Add(1)
		go func(w int, batch []rdf.Quad) {
			defer wg.Done()
			out, err := b.store.encodeShard(batch)
			if err != nil {
				errs[w] = err
				return
			}
			sort.Slice(out, func(i, j int) bool {
				if out[i].family != out[j].family {
					return out[i].family < out[j].family
				}
				return string(out[i].key) < string(out[j].key)
			})
			shards[w] = out
		}(w, quads[start:end])
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	for _, shard := range shards {
		for _, rec := range shard {
			if err := b.loader.Set(rec.family, rec.key, rec.value); err != nil {
				return err
			}
		}
	}
	return b.loader.Flush()
}

// encodeShard turns a batch of quads into its full set of index, graph
// membership, and dictionary-side-table records, without touching the
// backend. Dictionary writes are unconditional (not existence-checked, as
// insertInTxn's do): identical content always hashes to the same bytes, so
// re-writing an already-durable entry is a harmless no-op.
func (s *Store) encodeShard(quads []rdf.Quad) ([]kv, error) {
	out := make([]kv, 0, len(quads)*7)
	for _, q := range quads {
		terms, err := s.encodeQuadReadOnly(q)
		if err != nil {
			return nil, err
		}
		comps := [4]rdf.Term{q.S, q.P, q.O, q.G}
		for i, t := range terms {
			if !t.IsHashed() {
				continue
			}
			raw, err := dict.EncodeTermBytes(t.Tag, comps[i])
			if err != nil {
				return nil, err
			}
			hash := append([]byte(nil), t.Payload[:]...)
			out = append(out, kv{FamilyDictHash, hash, []byte{byte(t.Tag)}})
			out = append(out, kv{FamilyDictString, hash, raw})
		}
		for _, fam := range quadIndexFamilies {
			out = append(out, kv{fam, buildKey(terms, quadIndexPermutation(fam)), nil})
		}
		if q.G != nil {
			gBytes := terms[3].Bytes()
			out = append(out, kv{FamilyGraphs, append([]byte(nil), gBytes[:]...), nil})
		}
		s.stats.observe(terms)
	}
	return out, nil
}
