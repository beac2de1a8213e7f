package delta

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/cylindb/pkg/node"
)

func setOp(key string, value any) []Op {
	return []Op{SetValueOp{Path: []string{key}, New: value, HasOld: true}}
}

func buildS4Chain(t *testing.T) (*Chain, uuid.UUID) {
	t.Helper()
	nodeID := uuid.New()
	chain := NewChain(nodeID, node.Content{"v": 0}, 0)

	r1 := NewRecord(nodeID, 1, setOp("v", 1), nil)
	require.NoError(t, chain.Append(r1))
	id1 := r1.DeltaID

	r2 := NewRecord(nodeID, 2, setOp("v", 2), &id1)
	require.NoError(t, chain.Append(r2))
	id2 := r2.DeltaID

	r3 := NewRecord(nodeID, 3, setOp("v", 3), &id2)
	require.NoError(t, chain.Append(r3))

	return chain, nodeID
}

func TestReconstructAtIntermediateTime(t *testing.T) {
	chain, _ := buildS4Chain(t)

	assert.Equal(t, node.Content{"v": 1}, chain.ContentAt(1.5))
	assert.Equal(t, node.Content{"v": 2}, chain.ContentAt(2))
	assert.Equal(t, node.Content{"v": 3}, chain.ContentAt(100))
}

func TestAppendRejectsMismatchedPreviousID(t *testing.T) {
	nodeID := uuid.New()
	chain := NewChain(nodeID, node.Content{"v": 0}, 0)
	require.NoError(t, chain.Append(NewRecord(nodeID, 1, setOp("v", 1), nil)))

	badPrev := uuid.New()
	err := chain.Append(NewRecord(nodeID, 2, setOp("v", 2), &badPrev))
	require.Error(t, err)
}

func TestPruneThenReconstruct(t *testing.T) {
	chain, _ := buildS4Chain(t)

	removed, err := chain.Prune(2)
	require.NoError(t, err)
	assert.Equal(t, 2, removed) // deltas at t=1 and t=2

	snap, ok := chain.CheckpointContent(2)
	require.True(t, ok)
	assert.Equal(t, node.Content{"v": 2}, snap)

	assert.Equal(t, node.Content{"v": 2}, chain.ContentAt(2.5))
	// origin is now t=2 with {v:2}; t <= origin clamps to origin content.
	assert.Equal(t, node.Content{"v": 2}, chain.ContentAt(0.5))
	assert.Equal(t, float64(2), chain.OriginTimestamp())
}

func TestCompactMergesAdjacentSmallRecords(t *testing.T) {
	nodeID := uuid.New()
	chain := NewChain(nodeID, node.Content{"v": 0}, 0)

	r1 := NewRecord(nodeID, 1, setOp("a", 1), nil)
	require.NoError(t, chain.Append(r1))
	r2 := NewRecord(nodeID, 2, setOp("b", 2), &r1.DeltaID)
	require.NoError(t, chain.Append(r2))

	removed := chain.Compact(50)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, chain.Len())

	final := chain.LatestContent()
	assert.Equal(t, 1, final["a"])
	assert.Equal(t, 2, final["b"])
}

func TestCheckpointRejectsBeforeOrigin(t *testing.T) {
	nodeID := uuid.New()
	chain := NewChain(nodeID, node.Content{"v": 0}, 5)
	err := chain.Checkpoint(1)
	require.Error(t, err)
}
