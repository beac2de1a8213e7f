package delta

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/orneryd/cylindb/pkg/node"
)

func TestDetectorRoundTripsThroughApply(t *testing.T) {
	previous := node.Content{"name": "A", "tags": []any{"x", "z"}}
	next := node.Content{"name": "A", "tags": []any{"x", "y", "z"}}

	d := NewDetector()
	record := d.CreateDelta(uuid.New(), previous, next, 1, nil)

	applied := record.Apply(cloneContent(previous))
	assert.Equal(t, next, applied)
}

func TestDetectorDetectsAddedAndRemovedKeys(t *testing.T) {
	previous := node.Content{"a": 1, "b": 2}
	next := node.Content{"a": 1, "c": 3}

	d := NewDetector()
	record := d.CreateDelta(uuid.New(), previous, next, 1, nil)

	applied := record.Apply(cloneContent(previous))
	assert.Equal(t, next, applied)
}

func TestDetectorPrefersSetValueForNearTotalRewrite(t *testing.T) {
	previous := node.Content{"body": "short"}
	next := node.Content{"body": string(make([]byte, 500))}

	d := NewDetector()
	record := d.CreateDelta(uuid.New(), previous, next, 1, nil)

	assert.Len(t, record.Operations, 1)
	_, isSet := record.Operations[0].(SetValueOp)
	assert.True(t, isSet)
}
