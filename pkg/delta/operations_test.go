package delta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/cylindb/pkg/node"
)

func TestArrayInsertApplyAndReverse(t *testing.T) {
	content := node.Content{"name": "A", "tags": []any{"x", "z"}}
	op := ArrayInsertOp{Path: []string{"tags"}, Index: 1, Value: "y"}

	applied := op.Apply(content)
	assert.Equal(t, []any{"x", "y", "z"}, applied["tags"])
	assert.Equal(t, "A", applied["name"])

	reversed, err := op.Reverse(applied)
	require.NoError(t, err)
	assert.Equal(t, []any{"x", "z"}, reversed["tags"])
}

func TestSetValueReverseWithoutOldErrors(t *testing.T) {
	op := SetValueOp{Path: []string{"v"}, New: 1, HasOld: false}
	applied := op.Apply(node.Content{})
	_, err := op.Reverse(applied)
	require.Error(t, err)
}

func TestArrayDeleteOutOfRangeIsNoOp(t *testing.T) {
	content := node.Content{"tags": []any{"x"}}
	op := ArrayDeleteOp{Path: []string{"tags"}, Index: 5, Old: "z"}
	result := op.Apply(content)
	assert.Equal(t, []any{"x"}, result["tags"])
}

func TestTextDiffApplyAndReverse(t *testing.T) {
	content := node.Content{"body": "hello world"}
	op := TextDiffOp{
		Path: []string{"body"},
		Edits: []TextEdit{
			{Kind: TextInsert, Pos: 5, Text: ","},
		},
	}
	applied := op.Apply(content)
	assert.Equal(t, "hello, world", applied["body"])

	reversed, err := op.Reverse(applied)
	require.NoError(t, err)
	assert.Equal(t, "hello world", reversed["body"])
}

func TestCompositeAppliesInOrderReversesInReverse(t *testing.T) {
	content := node.Content{"a": 0, "b": 0}
	composite := CompositeOp{Ops: []Op{
		SetValueOp{Path: []string{"a"}, New: 1, Old: 0, HasOld: true},
		SetValueOp{Path: []string{"b"}, New: 2, Old: 0, HasOld: true},
	}}
	applied := composite.Apply(content)
	assert.Equal(t, 1, applied["a"])
	assert.Equal(t, 2, applied["b"])

	reversed, err := composite.Reverse(applied)
	require.NoError(t, err)
	assert.Equal(t, 0, reversed["a"])
	assert.Equal(t, 0, reversed["b"])
}
