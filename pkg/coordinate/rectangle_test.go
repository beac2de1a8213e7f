package coordinate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRectangleContainsWrapAround(t *testing.T) {
	// min_theta=5.5, max_theta=0.5 -- wraps across the 0/2π seam.
	r := NewRectangle(0, 10, 0, 10, 5.5, 0.5)

	assert.True(t, r.Contains(Position{T: 1, R: 1, Theta: 0.1}))
	assert.True(t, r.Contains(Position{T: 1, R: 1, Theta: 6.0}))
	assert.False(t, r.Contains(Position{T: 1, R: 1, Theta: 3.0}))
}

func TestRectangleIntersectsNormal(t *testing.T) {
	a := NewRectangle(0, 5, 0, 5, 0, 1)
	b := NewRectangle(3, 8, 0, 5, 0.5, 2)
	assert.True(t, a.Intersects(b))

	c := NewRectangle(6, 8, 0, 5, 0, 1)
	assert.False(t, a.Intersects(c))
}

func TestRectangleEnlargeIncludesPoint(t *testing.T) {
	r := FromPosition(Position{T: 1, R: 1, Theta: 1})
	p := Position{T: 5, R: 2, Theta: 1}
	enlarged := r.Enlarge(p)
	assert.True(t, enlarged.Contains(p))
	assert.True(t, enlarged.Contains(Position{T: 1, R: 1, Theta: 1}))
}

func TestRectangleMergeContainsBoth(t *testing.T) {
	a := NewRectangle(0, 1, 0, 1, 0, 1)
	b := NewRectangle(2, 3, 2, 3, 1, 2)
	m := a.Merge(b)
	assert.GreaterOrEqual(t, m.MaxT, a.MaxT)
	assert.GreaterOrEqual(t, m.MaxT, b.MaxT)
	assert.LessOrEqual(t, m.MinT, a.MinT)
	assert.LessOrEqual(t, m.MinT, b.MinT)
}

func TestRectangleMinDistanceZeroInside(t *testing.T) {
	r := NewRectangle(0, 10, 0, 10, 0, 1)
	assert.Equal(t, 0.0, r.MinDistance(Position{T: 5, R: 5, Theta: 0.5}, DefaultWeights))
}
