package temporal

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/cylindb/pkg/coordinate"
	"github.com/orneryd/cylindb/pkg/kv"
	"github.com/orneryd/cylindb/pkg/spatial"
)

func setup(t *testing.T) (*Combined, map[string]uuid.UUID) {
	t.Helper()
	backend := kv.NewMemoryBackend()
	idx, err := NewIndex(backend, 1.0)
	require.NoError(t, err)
	tree, err := spatial.New(spatial.DefaultMaxEntries, spatial.DefaultMinEntries, coordinate.DefaultWeights)
	require.NoError(t, err)

	ids := map[string]uuid.UUID{
		"old_near":  uuid.New(),
		"new_near":  uuid.New(),
		"old_far":   uuid.New(),
		"new_far":   uuid.New(),
	}
	insert := func(name string, tt, r, theta float64) {
		pos, perr := coordinate.New(tt, r, theta)
		require.NoError(t, perr)
		tree.Insert(pos, ids[name])
		require.NoError(t, idx.Insert(tt, ids[name]))
	}
	insert("old_near", 1, 1, 0)
	insert("new_near", 9, 1, 0)
	insert("old_far", 1, 50, 0)
	insert("new_far", 9, 50, 0)

	return NewCombined(idx, tree), ids
}

func TestCombinedPureTemporal(t *testing.T) {
	c, ids := setup(t)
	got, err := c.Query(Query{TimeRange: &TimeRange{Lo: 0, Hi: 2}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{ids["old_near"], ids["old_far"]}, got)
}

func TestCombinedPureSpatial(t *testing.T) {
	c, ids := setup(t)
	rect := coordinate.NewRectangle(0, 10, 0, 2, 0, 6.27)
	got, err := c.Query(Query{SpatialRect: &rect})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{ids["old_near"], ids["new_near"]}, got)
}

func TestCombinedIntersectBothPredicates(t *testing.T) {
	c, ids := setup(t)
	rect := coordinate.NewRectangle(0, 10, 0, 2, 0, 6.27)
	got, err := c.Query(Query{TimeRange: &TimeRange{Lo: 0, Hi: 2}, SpatialRect: &rect})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{ids["old_near"]}, got)
}

func TestCombinedKNNWithTimeConstraint(t *testing.T) {
	c, ids := setup(t)
	point, err := coordinate.New(0, 1, 0)
	require.NoError(t, err)

	got, err := c.Query(Query{
		KNN:       &KNNQuery{Point: point, K: 1},
		TimeRange: &TimeRange{Lo: 8, Hi: 10},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ids["new_near"], got[0])
}

func TestCombinedQueryRequiresAPredicate(t *testing.T) {
	c, _ := setup(t)
	_, err := c.Query(Query{})
	assert.Error(t, err)
}
