package reconstruct

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/cylindb/pkg/delta"
	"github.com/orneryd/cylindb/pkg/node"
)

func TestCompareStatesAddedRemovedChanged(t *testing.T) {
	nv, n := newTestNavigator(t)
	appendRecord(t, nv, n, 5, []delta.Op{
		delta.SetValueOp{Path: []string{"age"}, New: float64(31), Old: float64(30), HasOld: true},
		delta.SetValueOp{Path: []string{"city"}, New: "nyc", HasOld: false},
		delta.DeleteValueOp{Path: []string{"name"}, Old: "alice"},
	})

	cmp, err := nv.CompareStates(context.Background(), n.ID, 0, 5)
	require.NoError(t, err)

	assert.Equal(t, "nyc", cmp.Added["city"])
	assert.Equal(t, "alice", cmp.Removed["name"])
	changed, ok := cmp.Changed["age"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(30), changed["before"])
	assert.Equal(t, float64(31), changed["after"])
}

func TestCompareStatesNestedDict(t *testing.T) {
	nv, n := newTestNavigator(t)
	appendRecord(t, nv, n, 5, []delta.Op{
		delta.SetValueOp{Path: []string{"address"}, New: node.Content{"city": "nyc"}, HasOld: false},
	})

	cmp, err := nv.CompareStates(context.Background(), n.ID, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, node.Content{"city": "nyc"}, cmp.Added["address"])
}

func TestCompareStatesNestedDictChange(t *testing.T) {
	nv, n := newTestNavigator(t)
	appendRecord(t, nv, n, 5, []delta.Op{
		delta.SetValueOp{Path: []string{"profile"}, New: node.Content{"city": "nyc", "zip": "10001"}, HasOld: false},
	})
	appendRecord(t, nv, n, 10, []delta.Op{
		delta.SetValueOp{Path: []string{"profile", "city"}, New: "sf", Old: "nyc", HasOld: true},
	})

	cmp, err := nv.CompareStates(context.Background(), n.ID, 5, 10)
	require.NoError(t, err)
	nested, ok := cmp.Changed["profile"].(map[string]any)
	require.True(t, ok)
	changed := nested["changed"].(map[string]any)
	cityDiff := changed["city"].(map[string]any)
	assert.Equal(t, "nyc", cityDiff["before"])
	assert.Equal(t, "sf", cityDiff["after"])
}

func TestCompareStatesLongStringUsesTextDiff(t *testing.T) {
	nv, n := newTestNavigator(t)
	long := strings.Repeat("a", 150)
	longChanged := strings.Repeat("a", 149) + "b"
	appendRecord(t, nv, n, 5, []delta.Op{
		delta.SetValueOp{Path: []string{"bio"}, New: long, HasOld: false},
	})
	appendRecord(t, nv, n, 10, []delta.Op{
		delta.SetValueOp{Path: []string{"bio"}, New: longChanged, Old: long, HasOld: true},
	})

	cmp, err := nv.CompareStates(context.Background(), n.ID, 5, 10)
	require.NoError(t, err)
	diff, ok := cmp.Changed["bio"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "text_diff", diff["type"])
	entries, ok := diff["diff"].([]TextDiffEntry)
	require.True(t, ok)
	require.NotEmpty(t, entries)
}

func TestCompareStatesListValue(t *testing.T) {
	nv, n := newTestNavigator(t)
	appendRecord(t, nv, n, 5, []delta.Op{
		delta.SetValueOp{Path: []string{"tags"}, New: []any{"a", "b"}, HasOld: false},
	})
	appendRecord(t, nv, n, 10, []delta.Op{
		delta.SetValueOp{Path: []string{"tags"}, New: []any{"a", "b", "c"}, Old: []any{"a", "b"}, HasOld: true},
	})

	cmp, err := nv.CompareStates(context.Background(), n.ID, 5, 10)
	require.NoError(t, err)
	diff, ok := cmp.Changed["tags"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"a", "b"}, diff["before"])
	assert.Equal(t, []any{"a", "b", "c"}, diff["after"])
}

func TestTextDiffOpcodes(t *testing.T) {
	entries := textDiff("hello world", "hello there")
	require.NotEmpty(t, entries)
	var sawReplace bool
	for _, e := range entries {
		if e.Op == "replace" {
			sawReplace = true
		}
	}
	assert.True(t, sawReplace)
}
