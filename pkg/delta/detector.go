package delta

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/orneryd/cylindb/pkg/node"
)

// textDiffThreshold is the string length above which a changed string
// field is diffed character-by-character instead of replaced wholesale
// (spec.md §4.5's "~100 chars").
const textDiffThreshold = 100

// rewriteRatio is the length-ratio threshold past which the detector
// prefers a SetValue over a TextDiff, per spec.md §4.5.
const rewriteRatio = 3

// Detector produces minimal operation lists from structural content
// diffs. Grounded on original_source/src/delta/detector.py's
// ChangeDetector, using go-difflib's SequenceMatcher (a direct port of
// Python's difflib.SequenceMatcher, the library the original itself
// uses) in place of difflib.get_opcodes.
type Detector struct{}

// NewDetector returns a ready-to-use change detector.
func NewDetector() Detector { return Detector{} }

// CreateDelta builds a record transforming previous into next at
// timestamp, linked to previousDeltaID.
func (Detector) CreateDelta(nodeID uuid.UUID, previous, next node.Content, timestamp float64, previousDeltaID *uuid.UUID) Record {
	ops := detectChanges(previous, next, nil)
	return NewRecord(nodeID, timestamp, ops, previousDeltaID)
}

func detectChanges(previous, next node.Content, path []string) []Op {
	var ops []Op
	seen := make(map[string]bool, len(previous)+len(next))
	keys := make([]string, 0, len(previous)+len(next))
	for k := range previous {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	for k := range next {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}

	for _, key := range keys {
		keyPath := append(append([]string{}, path...), key)
		oldVal, hadOld := previous[key]
		newVal, hasNew := next[key]

		switch {
		case hadOld && hasNew:
			if deepEqual(oldVal, newVal) {
				continue
			}
			oldMap, oldIsMap := asContent(oldVal)
			newMap, newIsMap := asContent(newVal)
			oldArr, oldIsArr := oldVal.([]any)
			newArr, newIsArr := newVal.([]any)
			oldStr, oldIsStr := oldVal.(string)
			newStr, newIsStr := newVal.(string)

			switch {
			case oldIsMap && newIsMap:
				ops = append(ops, detectChanges(oldMap, newMap, keyPath)...)
			case oldIsArr && newIsArr:
				ops = append(ops, detectArrayOps(oldArr, newArr, keyPath)...)
			case oldIsStr && newIsStr && len(oldStr) > textDiffThreshold:
				ops = append(ops, detectTextOps(oldStr, newStr, keyPath)...)
			default:
				ops = append(ops, SetValueOp{Path: keyPath, New: newVal, Old: oldVal, HasOld: true})
			}
		case hadOld:
			ops = append(ops, DeleteValueOp{Path: keyPath, Old: oldVal})
		default:
			ops = append(ops, SetValueOp{Path: keyPath, New: newVal, HasOld: false})
		}
	}
	return ops
}

func detectArrayOps(previous, next []any, path []string) []Op {
	var ops []Op

	if len(previous) == 0 {
		for i, v := range next {
			ops = append(ops, ArrayInsertOp{Path: path, Index: i, Value: v})
		}
		return ops
	}
	if len(next) == 0 {
		for i := len(previous) - 1; i >= 0; i-- {
			ops = append(ops, ArrayDeleteOp{Path: path, Index: i, Old: previous[i]})
		}
		return ops
	}

	a := make([]string, len(previous))
	for i, v := range previous {
		a[i] = fmt.Sprintf("%v", v)
	}
	b := make([]string, len(next))
	for i, v := range next {
		b[i] = fmt.Sprintf("%v", v)
	}

	matcher := difflib.NewMatcher(a, b)
	offset := 0
	for _, oc := range matcher.GetOpCodes() {
		switch oc.Tag {
		case 'e':
			continue
		case 'r':
			for i := oc.I2 - 1; i >= oc.I1; i-- {
				ops = append(ops, ArrayDeleteOp{Path: path, Index: i + offset, Old: previous[i]})
			}
			offset -= oc.I2 - oc.I1
			for i := oc.J1; i < oc.J2; i++ {
				ops = append(ops, ArrayInsertOp{Path: path, Index: i, Value: next[i]})
			}
			offset += oc.J2 - oc.J1
		case 'd':
			for i := oc.I2 - 1; i >= oc.I1; i-- {
				ops = append(ops, ArrayDeleteOp{Path: path, Index: i + offset, Old: previous[i]})
			}
			offset -= oc.I2 - oc.I1
		case 'i':
			for i := oc.J1; i < oc.J2; i++ {
				ops = append(ops, ArrayInsertOp{Path: path, Index: i, Value: next[i]})
			}
			offset += oc.J2 - oc.J1
		}
	}
	return ops
}

func detectTextOps(previous, next string, path []string) []Op {
	if len(previous) == 0 || len(next) == 0 ||
		len(previous)*rewriteRatio < len(next) || len(next)*rewriteRatio < len(previous) {
		return []Op{SetValueOp{Path: path, New: next, Old: previous, HasOld: true}}
	}

	a := splitChars(previous)
	b := splitChars(next)
	matcher := difflib.NewMatcher(a, b)

	var edits []TextEdit
	for _, oc := range matcher.GetOpCodes() {
		switch oc.Tag {
		case 'e':
			continue
		case 'r':
			edits = append(edits, TextEdit{Kind: TextReplace, Pos: oc.I1, Text: next[oc.J1:oc.J2]})
		case 'd':
			edits = append(edits, TextEdit{Kind: TextDelete, Pos: oc.I1, Text: previous[oc.I1:oc.I2]})
		case 'i':
			edits = append(edits, TextEdit{Kind: TextInsert, Pos: oc.I1, Text: next[oc.J1:oc.J2]})
		}
	}
	if len(edits) == 0 {
		return nil
	}
	return []Op{TextDiffOp{Path: path, Edits: edits}}
}

func splitChars(s string) []string {
	out := make([]string, len(s))
	for i := range s {
		out[i] = string(s[i])
	}
	return out
}

func asContent(v any) (node.Content, bool) {
	switch t := v.(type) {
	case node.Content:
		return t, true
	case map[string]any:
		return node.Content(t), true
	default:
		return nil, false
	}
}

func deepEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}
