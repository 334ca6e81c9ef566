package store

import (
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
)

// badgerBackend is the default on-disk Backend. Grounded on
// aleksaelezovic/trigo's internal/storage Badger wrapper; Badger has no
// native column-family concept, so each Family is emulated as a one-byte
// key prefix, matching trigo's table-prefix approach.
type badgerBackend struct {
	db *badger.DB
}

// OpenBadger opens (creating if absent) an on-disk store rooted at dir.
// This is the default backend, an on-disk log-structured KV store;
// selection between it and OpenMemory is an explicit caller choice rather
// than a build tag, so both backends always compile and neither can
// silently disappear from a build.
func OpenBadger(dir string) (Backend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if err := checkOrWriteMetadata(dir, "badger"); err != nil {
		return nil, err
	}
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &badgerBackend{db: db}, nil
}

func familyKey(f Family, key []byte) []byte {
	out := make([]byte, 1+len(key))
	out[0] = byte(f)
	copy(out[1:], key)
	return out
}

func (b *badgerBackend) Snapshot() (Reader, error) {
	return &badgerReader{txn: b.db.NewTransaction(false)}, nil
}

func (b *badgerBackend) BeginWrite() (Transaction, error) {
	return &badgerTxn{txn: b.db.NewTransaction(true)}, nil
}

func (b *badgerBackend) NewBulkLoader() (BulkLoader, error) {
	return &badgerBulkLoader{wb: b.db.NewWriteBatch()}, nil
}

func (b *badgerBackend) Flush() error {
	return b.db.Sync()
}

// Compact runs Badger's value-log GC, reclaiming space from superseded
// and deleted entries.
func (b *badgerBackend) Compact() error {
	err := b.db.RunValueLogGC(0.5)
	if err == badger.ErrNoRewrite {
		return nil
	}
	return err
}

func (b *badgerBackend) Backup(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(dir, "backup.badger"))
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = b.db.Backup(f, 0)
	return err
}

func (b *badgerBackend) Close() error {
	return b.db.Close()
}

type badgerReader struct {
	txn  *badger.Txn
	done bool
}

func (r *badgerReader) Get(family Family, key []byte) ([]byte, error) {
	item, err := r.txn.Get(familyKey(family, key))
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (r *badgerReader) Scan(family Family, prefix []byte) (Iterator, error) {
	opts := badger.DefaultIteratorOptions
	fullPrefix := familyKey(family, prefix)
	it := r.txn.NewIterator(opts)
	it.Seek(fullPrefix)
	return &badgerIterator{it: it, prefix: fullPrefix}, nil
}

func (r *badgerReader) Close() error {
	if r.done {
		return nil
	}
	r.done = true
	r.txn.Discard()
	return nil
}

type badgerIterator struct {
	it      *badger.Iterator
	prefix  []byte
	started bool
	closed  bool
}

func (it *badgerIterator) Next() bool {
	if it.closed {
		return false
	}
	if !it.started {
		it.started = true
	} else {
		it.it.Next()
	}
	return it.it.ValidForPrefix(it.prefix)
}

func (it *badgerIterator) Key() []byte {
	full := it.it.Item().KeyCopy(nil)
	return full[1:]
}

func (it *badgerIterator) Value() []byte {
	v, _ := it.it.Item().ValueCopy(nil)
	return v
}

func (it *badgerIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	it.it.Close()
	return nil
}

type badgerTxn struct {
	txn  *badger.Txn
	done bool
}

func (t *badgerTxn) Get(family Family, key []byte) ([]byte, error) {
	item, err := t.txn.Get(familyKey(family, key))
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (t *badgerTxn) Scan(family Family, prefix []byte) (Iterator, error) {
	opts := badger.DefaultIteratorOptions
	fullPrefix := familyKey(family, prefix)
	it := t.txn.NewIterator(opts)
	it.Seek(fullPrefix)
	return &badgerIterator{it: it, prefix: fullPrefix}, nil
}

func (t *badgerTxn) Set(family Family, key, value []byte) error {
	return t.txn.Set(familyKey(family, key), value)
}

func (t *badgerTxn) Delete(family Family, key []byte) error {
	return t.txn.Delete(familyKey(family, key))
}

func (t *badgerTxn) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.txn.Commit()
}

func (t *badgerTxn) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.txn.Discard()
	return nil
}

func (t *badgerTxn) Close() error {
	return t.Rollback()
}

type badgerBulkLoader struct {
	wb *badger.WriteBatch
}

// WithoutAtomicity is a no-op: Badger's WriteBatch already commits in
// internally-chunked, non-atomic groups rather than one transaction.
func (l *badgerBulkLoader) WithoutAtomicity() {}

func (l *badgerBulkLoader) Set(family Family, key, value []byte) error {
	return l.wb.Set(familyKey(family, key), value)
}

func (l *badgerBulkLoader) Flush() error {
	return l.wb.Flush()
}

func (l *badgerBulkLoader) Close() error {
	l.wb.Cancel()
	return nil
}
