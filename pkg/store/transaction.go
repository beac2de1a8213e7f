package store

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/orneryd/cylindb/pkg/cylindb"
	"github.com/orneryd/cylindb/pkg/kv"
	"github.com/orneryd/cylindb/pkg/node"
)

// TxStatus mirrors pkg/storage/transaction.go's TransactionStatus.
type TxStatus string

const (
	TxActive     TxStatus = "active"
	TxCommitted  TxStatus = "committed"
	TxRolledBack TxStatus = "rolled_back"
)

type readEntry struct {
	value []byte
	found bool
}

// Tx is an optimistic-concurrency transaction: reads are served from
// a point-in-time snapshot and recorded in a read set; writes are
// buffered and applied only on Commit, which first re-checks every
// read-set key against the live backend and fails the whole
// transaction with ErrConflict if anything it read has changed
// (spec.md §8's S5 scenario).
type Tx struct {
	mu sync.Mutex

	store    *Store
	snapshot kv.Snapshot
	status   TxStatus

	reads   map[uuid.UUID]readEntry
	pending map[uuid.UUID]*node.Node // nil value means buffered delete
}

// Begin opens a transaction against a point-in-time snapshot of the
// backend.
func (s *Store) Begin() *Tx {
	return &Tx{
		store:    s,
		snapshot: s.backend.NewSnapshot(),
		status:   TxActive,
		reads:    make(map[uuid.UUID]readEntry),
		pending:  make(map[uuid.UUID]*node.Node),
	}
}

// Get returns id's current value within the transaction: a pending
// write if one was buffered (read-your-writes), else the snapshot
// value, recording the snapshot read in the read set either way so
// Commit can detect a conflicting concurrent write.
func (tx *Tx) Get(ctx context.Context, id uuid.UUID) (*node.Node, error) {
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.status != TxActive {
		return nil, cylindb.ErrTransactionClosed
	}

	if n, buffered := tx.pending[id]; buffered {
		if n == nil {
			return nil, fmt.Errorf("%w: node %s", cylindb.ErrNotFound, id)
		}
		return n.Clone(), nil
	}

	if _, seen := tx.reads[id]; !seen {
		raw, err := tx.snapshot.Get(kv.CFNodes, kv.NodeKey(id))
		if err != nil {
			if cylindb.IsNotFound(err) {
				tx.reads[id] = readEntry{found: false}
			} else {
				return nil, err
			}
		} else {
			tx.reads[id] = readEntry{value: raw, found: true}
		}
	}

	entry := tx.reads[id]
	if !entry.found {
		return nil, fmt.Errorf("%w: node %s", cylindb.ErrNotFound, id)
	}
	return tx.store.codec.DecodeNode(entry.value)
}

// Put buffers a node write, visible to later Gets in the same
// transaction but not to other transactions until Commit.
func (tx *Tx) Put(n *node.Node) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.status != TxActive {
		return cylindb.ErrTransactionClosed
	}
	if err := n.Validate(); err != nil {
		return err
	}
	tx.pending[n.ID] = n.Clone()
	return nil
}

// Delete buffers a node removal.
func (tx *Tx) Delete(id uuid.UUID) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.status != TxActive {
		return cylindb.ErrTransactionClosed
	}
	tx.pending[id] = nil
	return nil
}

// Commit validates that every key in the transaction's read set still
// matches the live backend, then applies buffered writes atomically.
// A mismatch returns ErrConflict and leaves the transaction rolled
// back; the backend is left untouched either way until every read
// checks out.
func (tx *Tx) Commit(ctx context.Context) error {
	if err := checkCancelled(ctx); err != nil {
		return err
	}
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.status != TxActive {
		return cylindb.ErrTransactionClosed
	}

	tx.store.commitMu.Lock()
	defer tx.store.commitMu.Unlock()

	for id, seen := range tx.reads {
		current, err := tx.store.backend.Get(kv.CFNodes, kv.NodeKey(id))
		currentFound := true
		if err != nil {
			if !cylindb.IsNotFound(err) {
				return err
			}
			currentFound = false
		}
		if currentFound != seen.found || (currentFound && !bytes.Equal(current, seen.value)) {
			tx.status = TxRolledBack
			tx.snapshot.Close()
			return fmt.Errorf("%w: node %s changed since read", cylindb.ErrConflict, id)
		}
	}

	batch := tx.store.backend.NewBatch()
	for id, n := range tx.pending {
		if n == nil {
			batch.Delete(kv.CFNodes, kv.NodeKey(id))
			continue
		}
		encoded, err := tx.store.codec.EncodeNode(n)
		if err != nil {
			return err
		}
		batch.Put(kv.CFNodes, kv.NodeKey(id), encoded)
	}
	if err := batch.Commit(); err != nil {
		return err
	}

	tx.status = TxCommitted
	tx.snapshot.Close()
	return nil
}

// Rollback discards every buffered write and closes the snapshot.
func (tx *Tx) Rollback() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.status != TxActive {
		return cylindb.ErrTransactionClosed
	}
	tx.status = TxRolledBack
	tx.snapshot.Close()
	return nil
}

// Status reports the transaction's current lifecycle state.
func (tx *Tx) Status() TxStatus {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.status
}
