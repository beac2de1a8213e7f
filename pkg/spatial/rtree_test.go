package spatial

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/cylindb/pkg/coordinate"
)

func mustPos(t *testing.T, tt, r, theta float64) coordinate.Position {
	t.Helper()
	p, err := coordinate.New(tt, r, theta)
	require.NoError(t, err)
	return p
}

func TestRangeQueryWrapAround(t *testing.T) {
	tree, err := New(DefaultMaxEntries, DefaultMinEntries, coordinate.DefaultWeights)
	require.NoError(t, err)

	idLow := uuid.New()  // theta = 0.1
	idHigh := uuid.New() // theta = 6.0
	idMid := uuid.New()  // theta = 3.0

	tree.Insert(mustPos(t, 0, 1, 0.1), idLow)
	tree.Insert(mustPos(t, 0, 1, 6.0), idHigh)
	tree.Insert(mustPos(t, 0, 1, 3.0), idMid)

	rect := coordinate.NewRectangle(0, 0, 1, 1, 5.5, 0.5)
	got := tree.RangeQuery(rect)

	assert.ElementsMatch(t, []uuid.UUID{idLow, idHigh}, got)
}

func TestInsertDeleteUpdateRoundTrip(t *testing.T) {
	tree, err := New(DefaultMaxEntries, DefaultMinEntries, coordinate.DefaultWeights)
	require.NoError(t, err)

	id := uuid.New()
	pos := mustPos(t, 0, 1, 1)
	tree.Insert(pos, id)
	assert.Equal(t, 1, tree.Len())

	found := tree.FindExact(pos)
	assert.Contains(t, found, id)

	newPos := mustPos(t, 5, 2, 1)
	tree.Update(pos, newPos, id)
	assert.Equal(t, 1, tree.Len())
	assert.Empty(t, tree.FindExact(pos))
	assert.Contains(t, tree.FindExact(newPos), id)

	assert.True(t, tree.Delete(newPos, id))
	assert.Equal(t, 0, tree.Len())
	assert.False(t, tree.Delete(newPos, id))
}

func TestSplitAndRebalanceUnderLoad(t *testing.T) {
	tree, err := New(8, 2, coordinate.DefaultWeights)
	require.NoError(t, err)

	ids := make([]uuid.UUID, 0, 200)
	positions := make(map[uuid.UUID]coordinate.Position, 200)
	for i := 0; i < 200; i++ {
		id := uuid.New()
		pos := mustPos(t, float64(i), float64(i%10+1), float64(i%20)/20*6.28)
		tree.Insert(pos, id)
		ids = append(ids, id)
		positions[id] = pos
	}
	assert.Equal(t, 200, tree.Len())

	for _, id := range ids[:50] {
		require.True(t, tree.Delete(positions[id], id))
	}
	assert.Equal(t, 150, tree.Len())

	all := tree.RangeQuery(coordinate.NewRectangle(0, 1000, 0, 1000, 0, 6.27))
	assert.Len(t, all, 150)
}

func TestNearestNeighborsOrderedByDistance(t *testing.T) {
	tree, err := New(DefaultMaxEntries, DefaultMinEntries, coordinate.DefaultWeights)
	require.NoError(t, err)

	near := uuid.New()
	mid := uuid.New()
	far := uuid.New()
	tree.Insert(mustPos(t, 0, 1, 0), near)
	tree.Insert(mustPos(t, 0, 5, 0), mid)
	tree.Insert(mustPos(t, 0, 20, 0), far)

	results := tree.NearestNeighbors(mustPos(t, 0, 1, 0), 2)
	require.Len(t, results, 2)
	assert.Equal(t, near, results[0].NodeID)
	assert.Equal(t, mid, results[1].NodeID)
	assert.Less(t, results[0].Distance, results[1].Distance)
}
