package cache

import (
	"context"

	"github.com/google/uuid"

	"github.com/orneryd/cylindb/pkg/node"
)

// StreamingResult iterates a large id set in batches through a
// PartialLoader, pinning each batch's nodes for the duration of
// iteration via BeginNodeUsage/EndNodeUsage so the background GC can't
// evict a node out from under an in-flight consumer. Grounded on
// original_source/src/storage/partial_loader.py's
// get_streaming_iterator/StreamingQueryResult.
type StreamingResult struct {
	loader    *PartialLoader
	ids       []uuid.UUID
	batchSize int
	pos       int
}

// NewStreamingResult creates a streaming handle over ids, batched
// batchSize at a time.
func NewStreamingResult(loader *PartialLoader, ids []uuid.UUID, batchSize int) *StreamingResult {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &StreamingResult{loader: loader, ids: ids, batchSize: batchSize}
}

// Count returns the total number of ids in the result set.
func (s *StreamingResult) Count() int {
	return len(s.ids)
}

// Next returns the next batch of nodes, or ok=false once exhausted.
// Each returned node has had BeginNodeUsage called on it; the caller
// must call Release when done with the batch.
func (s *StreamingResult) Next(ctx context.Context) (batch []*node.Node, ok bool, err error) {
	if s.pos >= len(s.ids) {
		return nil, false, nil
	}
	end := s.pos + s.batchSize
	if end > len(s.ids) {
		end = len(s.ids)
	}
	batchIDs := s.ids[s.pos:end]
	s.pos = end

	batch = make([]*node.Node, 0, len(batchIDs))
	for _, id := range batchIDs {
		n, err := s.loader.GetNode(ctx, id)
		if err != nil {
			return nil, false, err
		}
		s.loader.BeginNodeUsage(id)
		batch = append(batch, n)
	}
	return batch, true, nil
}

// Release ends active usage of every node in a batch previously
// returned by Next, allowing it to be evicted again.
func (s *StreamingResult) Release(batch []*node.Node) {
	for _, n := range batch {
		s.loader.EndNodeUsage(n.ID)
	}
}

// GetBatch returns the slice of ids in [offset, offset+limit) loaded
// as nodes, without affecting the streaming cursor used by Next.
func (s *StreamingResult) GetBatch(ctx context.Context, offset, limit int) ([]*node.Node, error) {
	if offset < 0 || offset >= len(s.ids) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.ids) {
		end = len(s.ids)
	}
	out := make([]*node.Node, 0, end-offset)
	for _, id := range s.ids[offset:end] {
		n, err := s.loader.GetNode(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
