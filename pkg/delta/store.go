package delta

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/orneryd/cylindb/pkg/cylindb"
	"github.com/orneryd/cylindb/pkg/kv"
	"github.com/orneryd/cylindb/pkg/node"
)

// RecordCodec encodes and decodes Records for persistence. Declared
// here (rather than imported from pkg/codec) so pkg/codec can depend
// on pkg/delta without creating an import cycle; pkg/codec's
// implementations satisfy this interface structurally.
type RecordCodec interface {
	EncodeRecord(r Record) ([]byte, error)
	DecodeRecord(data []byte) (Record, error)
}

// Store persists per-node delta chains over a kv.Backend. Keys
// mirror the CFDeltaByNode/CFDeltaTime/CFDeltaLatest column families
// declared in pkg/kv, shaped after the sourceID-sharded
// delta:{id}:{ts}:{deltaID} / delta_ts:... scheme of the badger-backed
// DeltaStore in the agent-collab example, generalized to this store's
// per-node chain model instead of a single flat log.
type Store struct {
	backend kv.Backend
	codec   RecordCodec

	mu     sync.Mutex
	chains map[uuid.UUID]*Chain
}

// NewStore creates a delta store over backend, encoding records with c.
func NewStore(backend kv.Backend, c RecordCodec) *Store {
	return &Store{backend: backend, codec: c, chains: make(map[uuid.UUID]*Chain)}
}

// Chain returns the in-memory chain for nodeID, loading it from the
// backend on first access. originContent/originTimestamp seed a new
// chain when none is persisted yet.
func (s *Store) Chain(nodeID uuid.UUID, originContent node.Content, originTimestamp float64) (*Chain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.chains[nodeID]; ok {
		return c, nil
	}

	c := NewChain(nodeID, originContent, originTimestamp)
	prefix := kv.DeltaTimePrefix(nodeID)
	var loadErr error
	err := s.backend.Iterate(kv.CFDeltaTime, prefix, func(key, value []byte) bool {
		var deltaID uuid.UUID
		copy(deltaID[:], value)
		raw, getErr := s.backend.Get(kv.CFDeltas, kv.DeltaKey(deltaID))
		if getErr != nil {
			loadErr = getErr
			return false
		}
		r, decErr := s.codec.DecodeRecord(raw)
		if decErr != nil {
			loadErr = decErr
			return false
		}
		if appendErr := c.Append(r); appendErr != nil {
			loadErr = appendErr
			return false
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("loading delta chain for %s: %w", nodeID, err)
	}
	if loadErr != nil {
		return nil, loadErr
	}

	s.chains[nodeID] = c
	return c, nil
}

// Append persists r and appends it to the in-memory chain, writing
// the primary record, the node->delta index, the time-ordered index,
// and the latest-delta pointer atomically.
func (s *Store) Append(c *Chain, r Record) error {
	if r.IsEmpty() {
		return nil
	}
	encoded, err := s.codec.EncodeRecord(r)
	if err != nil {
		return fmt.Errorf("%w: encoding delta %s: %w", cylindb.ErrSerialization, r.DeltaID, err)
	}

	byNode, err := s.backend.Get(kv.CFDeltaByNode, kv.DeltaByNodeKey(r.NodeID))
	if err != nil && !cylindb.IsNotFound(err) {
		return err
	}
	byNode = append(append([]byte{}, byNode...), r.DeltaID[:]...)

	batch := s.backend.NewBatch()
	batch.Put(kv.CFDeltas, kv.DeltaKey(r.DeltaID), encoded)
	batch.Put(kv.CFDeltaByNode, kv.DeltaByNodeKey(r.NodeID), byNode)
	batch.Put(kv.CFDeltaTime, kv.DeltaTimeKey(r.NodeID, r.Timestamp), r.DeltaID[:])
	batch.Put(kv.CFDeltaLatest, kv.DeltaLatestKey(r.NodeID), r.DeltaID[:])
	if err := batch.Commit(); err != nil {
		return err
	}

	return c.Append(r)
}

// LatestDeltaID returns the most recently appended delta ID persisted
// for nodeID, if any.
func (s *Store) LatestDeltaID(nodeID uuid.UUID) (uuid.UUID, bool, error) {
	raw, err := s.backend.Get(kv.CFDeltaLatest, kv.DeltaLatestKey(nodeID))
	if err != nil {
		if cylindb.IsNotFound(err) {
			return uuid.UUID{}, false, nil
		}
		return uuid.UUID{}, false, err
	}
	var id uuid.UUID
	copy(id[:], raw)
	return id, true, nil
}

// Forget drops a node's in-memory chain (not its persisted records),
// forcing the next Chain call to reload from the backend.
func (s *Store) Forget(nodeID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chains, nodeID)
}
