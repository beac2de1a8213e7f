package temporal

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/cylindb/pkg/kv"
)

func TestIndexInsertRangeRemove(t *testing.T) {
	backend := kv.NewMemoryBackend()
	idx, err := NewIndex(backend, 1.0)
	require.NoError(t, err)

	early := uuid.New()
	mid := uuid.New()
	late := uuid.New()

	require.NoError(t, idx.Insert(1.0, early))
	require.NoError(t, idx.Insert(5.0, mid))
	require.NoError(t, idx.Insert(9.0, late))

	got := idx.Range(0, 6)
	assert.ElementsMatch(t, []uuid.UUID{early, mid}, got)

	require.NoError(t, idx.Remove(5.0, mid))
	got = idx.Range(0, 6)
	assert.ElementsMatch(t, []uuid.UUID{early}, got)
}

func TestIndexRebuildsFromBackend(t *testing.T) {
	backend := kv.NewMemoryBackend()
	idx, err := NewIndex(backend, 0.5)
	require.NoError(t, err)
	id := uuid.New()
	require.NoError(t, idx.Insert(3.25, id))

	reloaded, err := NewIndex(backend, 0.5)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{id}, reloaded.Range(3, 3.5))
}

func TestEstimateRangeMatchesActualCount(t *testing.T) {
	backend := kv.NewMemoryBackend()
	idx, err := NewIndex(backend, 1.0)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		require.NoError(t, idx.Insert(float64(i), uuid.New()))
	}
	assert.Equal(t, len(idx.Range(2, 5)), idx.EstimateRange(2, 5))
}
