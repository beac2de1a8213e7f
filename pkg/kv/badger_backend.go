package kv

import (
	"fmt"
	"log"

	"github.com/dgraph-io/badger/v4"

	"github.com/orneryd/cylindb/pkg/cylindb"
)

// BadgerBackend provides persistent storage using BadgerDB.
//
// Grounded on pkg/storage/badger.go's BadgerEngine: the same
// DataDir/InMemory/SyncWrites option shape, the same single-physical-
// store-with-prefixed-keyspaces layout, generalized from the teacher's
// fixed node/edge/index prefixes to the named column families this
// package's namespacedKey encodes.
type BadgerBackend struct {
	db *badger.DB
}

// BadgerOptions configures the BadgerDB-backed Backend.
type BadgerOptions struct {
	// DataDir is the directory for storing data files. Required unless
	// InMemory is set.
	DataDir string

	// InMemory runs BadgerDB in memory-only mode. Data is not persisted;
	// useful for tests that want Badger's exact behavior without disk I/O.
	InMemory bool

	// SyncWrites forces fsync after each write. Slower but more durable.
	SyncWrites bool

	// Logger for BadgerDB's internal logging. Defaults to Badger's own.
	Logger badger.Logger
}

// NewBadgerBackend opens a persistent backend at dataDir with default
// settings.
func NewBadgerBackend(dataDir string) (*BadgerBackend, error) {
	return NewBadgerBackendWithOptions(BadgerOptions{DataDir: dataDir})
}

// NewBadgerBackendWithOptions opens a backend with the given options.
func NewBadgerBackendWithOptions(opts BadgerOptions) (*BadgerBackend, error) {
	var badgerOpts badger.Options
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.DataDir == "" {
			return nil, fmt.Errorf("%w: DataDir is required unless InMemory is set", cylindb.ErrInvariantViolation)
		}
		badgerOpts = badger.DefaultOptions(opts.DataDir)
	}
	badgerOpts = badgerOpts.WithSyncWrites(opts.SyncWrites).WithLogger(opts.Logger)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: opening badger: %w", cylindb.ErrStorageIO, err)
	}
	return &BadgerBackend{db: db}, nil
}

func (b *BadgerBackend) Get(cf string, key []byte) ([]byte, error) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(namespacedKey(cf, key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = append([]byte{}, val...)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, wrapNotFound(cf, key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: badger get: %w", cylindb.ErrStorageIO, err)
	}
	return out, nil
}

func (b *BadgerBackend) Exists(cf string, key []byte) (bool, error) {
	found := false
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(namespacedKey(cf, key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: badger exists: %w", cylindb.ErrStorageIO, err)
	}
	return found, nil
}

func (b *BadgerBackend) Put(cf string, key, value []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(namespacedKey(cf, key), value)
	})
	if err != nil {
		return fmt.Errorf("%w: badger put: %w", cylindb.ErrStorageIO, err)
	}
	return nil
}

func (b *BadgerBackend) Delete(cf string, key []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(namespacedKey(cf, key))
	})
	if err != nil {
		return fmt.Errorf("%w: badger delete: %w", cylindb.ErrStorageIO, err)
	}
	return nil
}

func (b *BadgerBackend) Iterate(cf string, prefix []byte, fn IterFunc) error {
	physPrefix := namespacedPrefix(cf, prefix)
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = physPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(physPrefix); it.ValidForPrefix(physPrefix); it.Next() {
			item := it.Item()
			key := splitNamespaced(cf, item.KeyCopy(nil))
			var value []byte
			if err := item.Value(func(val []byte) error {
				value = append([]byte{}, val...)
				return nil
			}); err != nil {
				return err
			}
			if !fn(key, value) {
				break
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: badger iterate: %w", cylindb.ErrStorageIO, err)
	}
	return nil
}

func (b *BadgerBackend) NewBatch() Batch {
	return &badgerBatch{wb: b.db.NewWriteBatch()}
}

func (b *BadgerBackend) NewSnapshot() Snapshot {
	return &badgerSnapshot{txn: b.db.NewTransaction(false)}
}

func (b *BadgerBackend) Close() error {
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("%w: closing badger: %w", cylindb.ErrStorageIO, err)
	}
	return nil
}

// RunGC runs Badger's value-log garbage collection once. Callers
// typically schedule this periodically; it is a no-op error
// (badger.ErrNoRewrite) when there is nothing to reclaim.
func (b *BadgerBackend) RunGC() error {
	err := b.db.RunValueLogGC(0.5)
	if err != nil && err != badger.ErrNoRewrite {
		log.Printf("kv: badger value-log gc: %v", err)
		return fmt.Errorf("%w: badger gc: %w", cylindb.ErrStorageIO, err)
	}
	return nil
}

type badgerBatch struct {
	wb *badger.WriteBatch
}

func (b *badgerBatch) Put(cf string, key, value []byte) {
	_ = b.wb.Set(namespacedKey(cf, key), value)
}

func (b *badgerBatch) Delete(cf string, key []byte) {
	_ = b.wb.Delete(namespacedKey(cf, key))
}

func (b *badgerBatch) Commit() error {
	defer b.wb.Cancel()
	if err := b.wb.Flush(); err != nil {
		return fmt.Errorf("%w: badger batch commit: %w", cylindb.ErrStorageIO, err)
	}
	return nil
}

type badgerSnapshot struct {
	txn *badger.Txn
}

func (s *badgerSnapshot) Get(cf string, key []byte) ([]byte, error) {
	item, err := s.txn.Get(namespacedKey(cf, key))
	if err == badger.ErrKeyNotFound {
		return nil, wrapNotFound(cf, key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: badger snapshot get: %w", cylindb.ErrStorageIO, err)
	}
	var out []byte
	err = item.Value(func(val []byte) error {
		out = append([]byte{}, val...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: badger snapshot get: %w", cylindb.ErrStorageIO, err)
	}
	return out, nil
}

func (s *badgerSnapshot) Exists(cf string, key []byte) (bool, error) {
	_, err := s.txn.Get(namespacedKey(cf, key))
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: badger snapshot exists: %w", cylindb.ErrStorageIO, err)
	}
	return true, nil
}

func (s *badgerSnapshot) Iterate(cf string, prefix []byte, fn IterFunc) error {
	physPrefix := namespacedPrefix(cf, prefix)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = physPrefix
	it := s.txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(physPrefix); it.ValidForPrefix(physPrefix); it.Next() {
		item := it.Item()
		key := splitNamespaced(cf, item.KeyCopy(nil))
		var value []byte
		if err := item.Value(func(val []byte) error {
			value = append([]byte{}, val...)
			return nil
		}); err != nil {
			return fmt.Errorf("%w: badger snapshot iterate: %w", cylindb.ErrStorageIO, err)
		}
		if !fn(key, value) {
			break
		}
	}
	return nil
}

func (s *badgerSnapshot) Close() error {
	s.txn.Discard()
	return nil
}
