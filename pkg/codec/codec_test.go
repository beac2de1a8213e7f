package codec

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/cylindb/pkg/coordinate"
	"github.com/orneryd/cylindb/pkg/delta"
	"github.com/orneryd/cylindb/pkg/node"
)

func sampleNode(t *testing.T) *node.Node {
	t.Helper()
	pos, err := coordinate.New(1, 2, 0.5)
	require.NoError(t, err)
	n := node.New(node.Content{"name": "A", "tags": []any{"x", "y"}}, pos)
	target := uuid.New()
	n.Connections = []node.Connection{{TargetID: target, ConnectionType: "related", Strength: 0.75, Metadata: map[string]any{}}}
	ref := uuid.New()
	n.OriginReference = &ref
	n.Metadata["created_by"] = "test"
	return n
}

func TestJSONCodecNodeRoundTrip(t *testing.T) {
	n := sampleNode(t)
	var c JSONCodec

	encoded, err := c.EncodeNode(n)
	require.NoError(t, err)
	assert.Equal(t, byte(FormatJSON), encoded[0])

	decoded, err := c.DecodeNode(encoded)
	require.NoError(t, err)
	assert.Equal(t, n.ID, decoded.ID)
	assert.Equal(t, n.Content, decoded.Content)
	assert.InDelta(t, n.Position.R, decoded.Position.R, 1e-9)
	assert.Equal(t, n.Connections[0].TargetID, decoded.Connections[0].TargetID)
	assert.Equal(t, *n.OriginReference, *decoded.OriginReference)
}

func TestBinaryCodecNodeRoundTrip(t *testing.T) {
	n := sampleNode(t)
	var c BinaryCodec

	encoded, err := c.EncodeNode(n)
	require.NoError(t, err)
	assert.Equal(t, byte(FormatBinary), encoded[0])

	decoded, err := c.DecodeNode(encoded)
	require.NoError(t, err)
	assert.Equal(t, n.ID, decoded.ID)
	assert.Equal(t, n.Content, decoded.Content)
	assert.InDelta(t, n.Position.Theta, decoded.Position.Theta, 1e-9)
	assert.Equal(t, n.Connections[0].ConnectionType, decoded.Connections[0].ConnectionType)
}

func sampleRecord() delta.Record {
	prev := uuid.New()
	return delta.Record{
		DeltaID:   uuid.New(),
		NodeID:    uuid.New(),
		Timestamp: 42,
		Operations: []delta.Op{
			delta.SetValueOp{Path: []string{"v"}, New: 1, Old: 0, HasOld: true},
			delta.ArrayInsertOp{Path: []string{"tags"}, Index: 1, Value: "y"},
			delta.CompositeOp{Ops: []delta.Op{
				delta.DeleteValueOp{Path: []string{"x"}, Old: "gone"},
			}},
		},
		PreviousDeltaID: &prev,
		Metadata:        map[string]any{"note": "test"},
	}
}

func TestJSONCodecRecordRoundTrip(t *testing.T) {
	r := sampleRecord()
	var c JSONCodec

	encoded, err := c.EncodeRecord(r)
	require.NoError(t, err)
	decoded, err := c.DecodeRecord(encoded)
	require.NoError(t, err)

	assert.Equal(t, r.DeltaID, decoded.DeltaID)
	assert.Equal(t, r.NodeID, decoded.NodeID)
	assert.Equal(t, *r.PreviousDeltaID, *decoded.PreviousDeltaID)
	require.Len(t, decoded.Operations, 3)
	_, isSet := decoded.Operations[0].(delta.SetValueOp)
	assert.True(t, isSet)
}

func TestBinaryCodecRecordRoundTrip(t *testing.T) {
	r := sampleRecord()
	var c BinaryCodec

	encoded, err := c.EncodeRecord(r)
	require.NoError(t, err)
	decoded, err := c.DecodeRecord(encoded)
	require.NoError(t, err)

	assert.Equal(t, r.DeltaID, decoded.DeltaID)
	assert.Equal(t, r.Timestamp, decoded.Timestamp)
	require.Len(t, decoded.Operations, 3)
	composite, isComposite := decoded.Operations[2].(delta.CompositeOp)
	require.True(t, isComposite)
	require.Len(t, composite.Ops, 1)
}
