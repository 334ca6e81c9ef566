package store

import (
	"bytes"
	"errors"
	"sync"

	"github.com/google/btree"
)

// memBackend is the in-memory fallback Backend: one B-tree per
// Family, reusing google/btree's copy-on-write Clone() for snapshot
// isolation instead of Badger's MVCC, so readers never block behind (or
// observe partial results from) a concurrent writer -- the same contract
// badgerBackend gives through Badger's own transactions.
type memBackend struct {
	writeMu sync.Mutex   // serializes BeginWrite/NewBulkLoader: one writer at a time
	treesMu sync.RWMutex // guards the trees field itself during publish/snapshot
	trees   [9]*btree.BTree
}

const btreeDegree = 32

// OpenMemory returns a fresh in-memory Backend.
func OpenMemory() Backend {
	b := &memBackend{}
	for i := range b.trees {
		b.trees[i] = btree.New(btreeDegree)
	}
	return b
}

type btreeItem struct {
	key   []byte
	value []byte
}

func (i *btreeItem) Less(than btree.Item) bool {
	return bytes.Compare(i.key, than.(*btreeItem).key) < 0
}

func cloneTrees(src [9]*btree.BTree) [9]*btree.BTree {
	var out [9]*btree.BTree
	for i, t := range src {
		out[i] = t.Clone()
	}
	return out
}

func scanTrees(trees [9]*btree.BTree, family Family, prefix []byte) Iterator {
	var items []*btreeItem
	trees[family].AscendGreaterOrEqual(&btreeItem{key: prefix}, func(i btree.Item) bool {
		it := i.(*btreeItem)
		if len(prefix) > 0 && !bytes.HasPrefix(it.key, prefix) {
			return false
		}
		items = append(items, it)
		return true
	})
	return &memIterator{items: items, idx: -1}
}

func getFromTrees(trees [9]*btree.BTree, family Family, key []byte) ([]byte, error) {
	item := trees[family].Get(&btreeItem{key: key})
	if item == nil {
		return nil, ErrNotFound
	}
	return item.(*btreeItem).value, nil
}

func (b *memBackend) Snapshot() (Reader, error) {
	b.treesMu.RLock()
	clones := cloneTrees(b.trees)
	b.treesMu.RUnlock()
	return &memReader{trees: clones}, nil
}

func (b *memBackend) BeginWrite() (Transaction, error) {
	b.writeMu.Lock()
	b.treesMu.RLock()
	clones := cloneTrees(b.trees)
	b.treesMu.RUnlock()
	return &memTxn{backend: b, trees: clones}, nil
}

func (b *memBackend) NewBulkLoader() (BulkLoader, error) {
	b.writeMu.Lock()
	b.treesMu.RLock()
	clones := cloneTrees(b.trees)
	b.treesMu.RUnlock()
	return &memBulkLoader{backend: b, trees: clones}, nil
}

func (b *memBackend) Flush() error { return nil }

func (b *memBackend) Compact() error { return nil }

var errMemBackupUnsupported = errors.New("store: the in-memory backend holds no durable state to back up")

func (b *memBackend) Backup(dir string) error { return errMemBackupUnsupported }

func (b *memBackend) Close() error { return nil }

type memReader struct {
	trees  [9]*btree.BTree
	closed bool
}

func (r *memReader) Get(family Family, key []byte) ([]byte, error) {
	return getFromTrees(r.trees, family, key)
}

func (r *memReader) Scan(family Family, prefix []byte) (Iterator, error) {
	return scanTrees(r.trees, family, prefix), nil
}

func (r *memReader) Close() error {
	r.closed = true
	return nil
}

type memIterator struct {
	items []*btreeItem
	idx   int
}

func (it *memIterator) Next() bool {
	it.idx++
	return it.idx < len(it.items)
}

func (it *memIterator) Key() []byte   { return it.items[it.idx].key }
func (it *memIterator) Value() []byte { return it.items[it.idx].value }
func (it *memIterator) Close() error  { return nil }

type memTxn struct {
	backend *memBackend
	trees   [9]*btree.BTree
	done    bool
}

func (t *memTxn) Get(family Family, key []byte) ([]byte, error) {
	return getFromTrees(t.trees, family, key)
}

func (t *memTxn) Scan(family Family, prefix []byte) (Iterator, error) {
	return scanTrees(t.trees, family, prefix), nil
}

func (t *memTxn) Set(family Family, key, value []byte) error {
	t.trees[family].ReplaceOrInsert(&btreeItem{
		key:   append([]byte(nil), key...),
		value: append([]byte(nil), value...),
	})
	return nil
}

func (t *memTxn) Delete(family Family, key []byte) error {
	t.trees[family].Delete(&btreeItem{key: key})
	return nil
}

func (t *memTxn) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	t.backend.treesMu.Lock()
	t.backend.trees = t.trees
	t.backend.treesMu.Unlock()
	t.backend.writeMu.Unlock()
	return nil
}

func (t *memTxn) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.backend.writeMu.Unlock()
	return nil
}

func (t *memTxn) Close() error { return t.Rollback() }

type memBulkLoader struct {
	backend *memBackend
	trees   [9]*btree.BTree
	done    bool
}

// WithoutAtomicity is a no-op: the in-memory loader always publishes its
// whole buffered batch on Flush, there being no separate commit log to
// relax.
func (l *memBulkLoader) WithoutAtomicity() {}

func (l *memBulkLoader) Set(family Family, key, value []byte) error {
	l.trees[family].ReplaceOrInsert(&btreeItem{
		key:   append([]byte(nil), key...),
		value: append([]byte(nil), value...),
	})
	return nil
}

func (l *memBulkLoader) Flush() error {
	l.backend.treesMu.Lock()
	l.backend.trees = l.trees
	l.backend.treesMu.Unlock()
	return nil
}

func (l *memBulkLoader) Close() error {
	if l.done {
		return nil
	}
	l.done = true
	l.backend.writeMu.Unlock()
	return nil
}
