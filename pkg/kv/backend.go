// Package kv provides the persistent byte-keyed backend the rest of the
// core is built on: column families, point get/put/delete, ordered
// iteration, atomic write batches, and point-in-time snapshots.
//
// Column families are independent keyspaces that share one physical
// store and transaction log (spec.md §4.1): here that is modeled as a
// name prefixed onto every key, the same trick pkg/storage/badger.go
// uses for its single-byte node/edge/index prefixes, generalized to
// named families instead of single bytes.
package kv

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/orneryd/cylindb/pkg/cylindb"
)

// Column family names, matching the persisted layout in spec.md §6.
const (
	CFNodes         = "nodes"
	CFMeta          = "meta"
	CFTemporalIndex = "t_idx"
	CFSpatialIndex  = "s_idx"
	CFDeltas        = "deltas"
	CFDeltaByNode   = "delta_by_node"
	CFDeltaTime     = "delta_time"
	CFDeltaLatest   = "delta_latest"
)

// ErrKeyNotFound is returned by Get and Snapshot.Get when the key is
// absent from the given column family. Callers at the kv layer see this
// sentinel; higher layers translate it to cylindb.ErrNotFound.
var ErrKeyNotFound = errors.New("kv: key not found")

// IterFunc is called once per matching entry during a scan, in
// lexicographic key order. Returning false stops the scan early.
type IterFunc func(key, value []byte) bool

// Reader is the read-only surface both Backend and Snapshot implement.
type Reader interface {
	// Get returns the value stored at key in cf, or ErrKeyNotFound.
	Get(cf string, key []byte) ([]byte, error)

	// Exists reports whether key is present in cf.
	Exists(cf string, key []byte) (bool, error)

	// Iterate scans every key in cf with the given prefix, in ascending
	// byte order, calling fn for each until fn returns false or the scan
	// is exhausted.
	Iterate(cf string, prefix []byte, fn IterFunc) error
}

// Batch buffers a set of writes for atomic application via Commit. A
// batch is not safe for concurrent use.
type Batch interface {
	Put(cf string, key, value []byte)
	Delete(cf string, key []byte)

	// Commit applies every buffered write atomically. Commit may be
	// called at most once; the batch is unusable afterward.
	Commit() error
}

// Snapshot is a point-in-time read view, unaffected by writes committed
// after it was taken. Callers must Close it to release backend resources.
type Snapshot interface {
	Reader
	Close() error
}

// Backend is the persistent key-value store every higher layer (node
// store, spatial index, delta store) is built on.
type Backend interface {
	Reader

	Put(cf string, key, value []byte) error
	Delete(cf string, key []byte) error

	// NewBatch returns a fresh batch for atomic multi-key writes.
	NewBatch() Batch

	// NewSnapshot opens a point-in-time read view.
	NewSnapshot() Snapshot

	Close() error
}

// namespacedKey joins a column family name and a raw key into the single
// physical key a flat byte-keyed store actually sees. A NUL separator is
// used because column family names never contain one.
func namespacedKey(cf string, key []byte) []byte {
	out := make([]byte, 0, len(cf)+1+len(key))
	out = append(out, cf...)
	out = append(out, 0x00)
	out = append(out, key...)
	return out
}

func namespacedPrefix(cf string, prefix []byte) []byte {
	return namespacedKey(cf, prefix)
}

// splitNamespaced recovers the raw key from a physical key produced by
// namespacedKey, given the known column family.
func splitNamespaced(cf string, physical []byte) []byte {
	p := append([]byte(cf), 0x00)
	return bytes.TrimPrefix(physical, p)
}

// wrapNotFound adapts ErrKeyNotFound for callers outside this package.
func wrapNotFound(cf string, key []byte) error {
	return fmt.Errorf("%w: %s/%x: %w", cylindb.ErrNotFound, cf, key, ErrKeyNotFound)
}
