package coordinate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsNegativeRadius(t *testing.T) {
	_, err := New(0, -1, 0)
	require.Error(t, err)
}

func TestNewNormalizesTheta(t *testing.T) {
	p, err := New(0, 1, 3*math.Pi)
	require.NoError(t, err)
	assert.InDelta(t, math.Pi, p.Theta, 1e-9)
}

func TestAngularDeltaWrapsAround(t *testing.T) {
	assert.InDelta(t, 2*math.Pi-5.9, AngularDelta(0.1, 6.0), 1e-9)
	assert.InDelta(t, math.Pi, AngularDelta(0, math.Pi), 1e-9)
}

// S1 from spec.md §8.
func TestDistanceAntipodalSameRadius(t *testing.T) {
	a := Position{T: 1, R: 2, Theta: 0}
	b := Position{T: 1, R: 2, Theta: math.Pi}
	assert.InDelta(t, 4.0, Distance(a, b), 1e-9)

	c := Position{T: 2, R: 2, Theta: 0}
	assert.InDelta(t, 1.0, Distance(a, c), 1e-9)
}

func TestDistanceSymmetric(t *testing.T) {
	a := Position{T: 0, R: 1, Theta: 0.5}
	b := Position{T: 5, R: 3, Theta: 4.2}
	assert.InDelta(t, Distance(a, b), Distance(b, a), 1e-9)
}

func TestDistanceIdenticalIsZero(t *testing.T) {
	a := Position{T: 1, R: 1, Theta: 1}
	assert.InDelta(t, 0, Distance(a, a), 1e-12)
}
