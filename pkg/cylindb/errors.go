// Package cylindb holds error kinds shared across the core subsystem:
// the coordinate-indexed node store, the R-tree spatial index, the delta
// chain engine, and the multi-layer cache.
//
// Every error kind from the error-handling design is a sentinel error so
// callers can test with errors.Is, the way pkg/storage/types.go declares
// its Err* block.
package cylindb

import "errors"

// Error kinds. Internal retries are permitted for transient ErrStorageIO;
// all others are surfaced immediately to the caller.
var (
	// ErrNotFound means a referenced id is absent, distinct from "present
	// but empty".
	ErrNotFound = errors.New("cylindb: not found")

	// ErrConflict means an optimistic transaction's commit observed a
	// concurrent write on a key it had read.
	ErrConflict = errors.New("cylindb: transaction conflict")

	// ErrInvariantViolation covers chain-append mismatches, checkpoints
	// before origin, strength outside [0,1], negative r, and similar.
	ErrInvariantViolation = errors.New("cylindb: invariant violation")

	// ErrIrreversibleDelta means reverse was requested where the old value
	// was never recorded.
	ErrIrreversibleDelta = errors.New("cylindb: delta is not reversible")

	// ErrStorageIO covers backend I/O failure or corruption.
	ErrStorageIO = errors.New("cylindb: storage I/O error")

	// ErrSerialization covers a malformed encoded value.
	ErrSerialization = errors.New("cylindb: serialization error")

	// ErrCancelled means a cancellation token fired mid-operation; the
	// result returned alongside this error is best-effort partial.
	ErrCancelled = errors.New("cylindb: operation cancelled")

	// ErrResourcePressure means the partial loader refused to exceed its
	// memory cap even after running GC; the caller must narrow the query.
	ErrResourcePressure = errors.New("cylindb: resource pressure")

	// ErrTransactionClosed means commit or rollback was called on a
	// transaction that already committed or rolled back.
	ErrTransactionClosed = errors.New("cylindb: transaction already closed")
)

// IsNotFound reports whether err wraps ErrNotFound, the form kv-layer
// lookups return when translating their own not-found sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
