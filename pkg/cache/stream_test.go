package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/uuid"
)

func TestStreamingResultIteratesInBatches(t *testing.T) {
	loader, s, idx, tree := newTestPartialLoader(t, 100)
	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		n := putTestNode(t, s, idx, tree, float64(i))
		ids = append(ids, n.ID)
	}

	sr := NewStreamingResult(loader, ids, 2)
	assert.Equal(t, 5, sr.Count())

	ctx := context.Background()
	total := 0
	for {
		batch, ok, err := sr.Next(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		total += len(batch)
		sr.Release(batch)
	}
	assert.Equal(t, 5, total)
}

func TestStreamingResultGetBatchIsIndependentOfCursor(t *testing.T) {
	loader, s, idx, tree := newTestPartialLoader(t, 100)
	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		n := putTestNode(t, s, idx, tree, float64(i))
		ids = append(ids, n.ID)
	}

	sr := NewStreamingResult(loader, ids, 2)
	batch, err := sr.GetBatch(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, ids[1], batch[0].ID)
	assert.Equal(t, ids[2], batch[1].ID)

	// cursor-based Next should still start from the beginning
	first, ok, err := sr.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ids[0], first[0].ID)
}
