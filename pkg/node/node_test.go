package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/cylindb/pkg/coordinate"
)

func TestValidateRejectsNegativeRadius(t *testing.T) {
	n := New(Content{"a": 1}, coordinate.Position{R: -1})
	require.Error(t, n.Validate())
}

func TestValidateRejectsOutOfRangeStrength(t *testing.T) {
	n := New(Content{}, coordinate.Position{})
	n.Connections = []Connection{{Strength: 1.5}}
	require.Error(t, n.Validate())
}

func TestCloneIsIndependent(t *testing.T) {
	n := New(Content{"tags": []any{"a", "b"}}, coordinate.Position{R: 1})
	clone := n.Clone()

	tags := clone.Content["tags"].([]any)
	tags[0] = "z"

	original := n.Content["tags"].([]any)
	assert.Equal(t, "a", original[0])
}
