// Package store provides typed node CRUD and optimistic-concurrency
// transactions over pkg/kv, the node-store half of spec.md §4.1/§5.
//
// Grounded on pkg/storage/transaction.go's buffered-operation /
// status-machine transaction idiom (its TxStatus* constants and
// read-your-writes pending map), adapted from that file's in-memory,
// single-process locking to an explicit snapshot-read-set comparison
// so the same Store works over both kv.MemoryBackend and
// kv.BadgerBackend.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/orneryd/cylindb/pkg/codec"
	"github.com/orneryd/cylindb/pkg/cylindb"
	"github.com/orneryd/cylindb/pkg/kv"
	"github.com/orneryd/cylindb/pkg/node"
)

// Store is the typed node store: Get/Put/Delete against a kv.Backend,
// plus Begin for optimistic-concurrency transactions.
type Store struct {
	backend kv.Backend
	codec   codec.NodeCodec

	// commitMu serializes Tx.Commit's read-set check and write-apply
	// so two transactions can't both pass the conflict check against
	// the same stale read and then both apply.
	commitMu sync.Mutex
}

// New creates a node store over backend, encoding nodes with c.
func New(backend kv.Backend, c codec.NodeCodec) *Store {
	return &Store{backend: backend, codec: c}
}

func checkCancelled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", cylindb.ErrCancelled, ctx.Err())
	default:
		return nil
	}
}

// Get fetches a node by id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*node.Node, error) {
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	raw, err := s.backend.Get(kv.CFNodes, kv.NodeKey(id))
	if err != nil {
		return nil, err
	}
	return s.codec.DecodeNode(raw)
}

// Put creates or replaces a node, validating it first.
func (s *Store) Put(ctx context.Context, n *node.Node) error {
	if err := checkCancelled(ctx); err != nil {
		return err
	}
	if err := n.Validate(); err != nil {
		return err
	}
	encoded, err := s.codec.EncodeNode(n)
	if err != nil {
		return err
	}
	return s.backend.Put(kv.CFNodes, kv.NodeKey(n.ID), encoded)
}

// Delete removes a node by id. Callers are responsible for also
// removing its spatial/temporal index entries (spec.md §4.5's
// lifecycle note) -- this method touches only the node record.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	if err := checkCancelled(ctx); err != nil {
		return err
	}
	return s.backend.Delete(kv.CFNodes, kv.NodeKey(id))
}

// Exists reports whether id is present.
func (s *Store) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	if err := checkCancelled(ctx); err != nil {
		return false, err
	}
	return s.backend.Exists(kv.CFNodes, kv.NodeKey(id))
}

// PutBatch writes several nodes atomically.
func (s *Store) PutBatch(ctx context.Context, nodes []*node.Node) error {
	if err := checkCancelled(ctx); err != nil {
		return err
	}
	batch := s.backend.NewBatch()
	for _, n := range nodes {
		if err := n.Validate(); err != nil {
			return err
		}
		encoded, err := s.codec.EncodeNode(n)
		if err != nil {
			return err
		}
		batch.Put(kv.CFNodes, kv.NodeKey(n.ID), encoded)
	}
	return batch.Commit()
}
