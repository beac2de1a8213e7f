// Package delta implements reversible content operations and the
// per-node delta chain built from them (spec.md §4.5/§4.6).
//
// Operations are pure functions over node.Content: apply/reverse never
// mutate their input, matching original_source/src/delta/operations.py's
// deep-copy-before-mutate discipline.
package delta

import (
	"fmt"
	"sort"

	"github.com/orneryd/cylindb/pkg/cylindb"
	"github.com/orneryd/cylindb/pkg/node"
)

// Op is a reversible content transformation. Apply and Reverse must
// each deep-copy their input rather than mutate it.
type Op interface {
	Apply(content node.Content) node.Content
	Reverse(content node.Content) (node.Content, error)
	Summary() string
}

func navigate(content node.Content, path []string, create bool) (node.Content, bool) {
	target := content
	for _, key := range path {
		next, ok := target[key]
		if !ok {
			if !create {
				return nil, false
			}
			fresh := node.Content{}
			target[key] = fresh
			target = fresh
			continue
		}
		m, ok := next.(node.Content)
		if !ok {
			if !create {
				return nil, false
			}
			fresh := node.Content{}
			target[key] = fresh
			target = fresh
			continue
		}
		target = m
	}
	return target, true
}

// SetValueOp sets content[path] = New, recording Old for reversal.
// Grounded on operations.py's SetValueOperation.
type SetValueOp struct {
	Path     []string
	New, Old any
	HasOld   bool
}

func (o SetValueOp) Apply(content node.Content) node.Content {
	result := cloneContent(content)
	if len(o.Path) == 0 {
		return result
	}
	parent, _ := navigate(result, o.Path[:len(o.Path)-1], true)
	parent[o.Path[len(o.Path)-1]] = cloneValue(o.New)
	return result
}

func (o SetValueOp) Reverse(content node.Content) (node.Content, error) {
	if !o.HasOld {
		return nil, fmt.Errorf("%w: SetValue at %v has no recorded old value", cylindb.ErrIrreversibleDelta, o.Path)
	}
	result := cloneContent(content)
	if len(o.Path) == 0 {
		return result, nil
	}
	parent, ok := navigate(result, o.Path[:len(o.Path)-1], false)
	if !ok {
		return result, nil
	}
	parent[o.Path[len(o.Path)-1]] = cloneValue(o.Old)
	return result, nil
}

func (o SetValueOp) Summary() string { return "Set " + pathString(o.Path) }

// DeleteValueOp removes content[path], recording Old for reversal.
type DeleteValueOp struct {
	Path []string
	Old  any
}

func (o DeleteValueOp) Apply(content node.Content) node.Content {
	result := cloneContent(content)
	if len(o.Path) == 0 {
		return result
	}
	parent, ok := navigate(result, o.Path[:len(o.Path)-1], false)
	if !ok {
		return result
	}
	delete(parent, o.Path[len(o.Path)-1])
	return result
}

func (o DeleteValueOp) Reverse(content node.Content) (node.Content, error) {
	result := cloneContent(content)
	if len(o.Path) == 0 {
		return result, nil
	}
	parent, _ := navigate(result, o.Path[:len(o.Path)-1], true)
	parent[o.Path[len(o.Path)-1]] = cloneValue(o.Old)
	return result, nil
}

func (o DeleteValueOp) Summary() string { return "Delete " + pathString(o.Path) }

// ArrayInsertOp inserts Value at Index within the array at Path,
// clamping Index to the array length (spec.md §4.5).
type ArrayInsertOp struct {
	Path  []string
	Index int
	Value any
}

func (o ArrayInsertOp) Apply(content node.Content) node.Content {
	result := cloneContent(content)
	arr := getArray(result, o.Path, true)
	idx := o.Index
	if idx > len(arr) {
		idx = len(arr)
	}
	if idx < 0 {
		idx = 0
	}
	out := make([]any, 0, len(arr)+1)
	out = append(out, arr[:idx]...)
	out = append(out, cloneValue(o.Value))
	out = append(out, arr[idx:]...)
	setArray(result, o.Path, out)
	return result
}

func (o ArrayInsertOp) Reverse(content node.Content) (node.Content, error) {
	result := cloneContent(content)
	arr, ok := tryGetArray(result, o.Path)
	if !ok {
		return result, nil
	}
	if o.Index < 0 || o.Index >= len(arr) {
		return result, nil
	}
	out := make([]any, 0, len(arr)-1)
	out = append(out, arr[:o.Index]...)
	out = append(out, arr[o.Index+1:]...)
	setArray(result, o.Path, out)
	return result, nil
}

func (o ArrayInsertOp) Summary() string {
	return fmt.Sprintf("Insert value at %s[%d]", pathString(o.Path), o.Index)
}

// ArrayDeleteOp removes the element at Index, recording Old for
// reversal. An out-of-range Index is a no-op (spec.md §4.5).
type ArrayDeleteOp struct {
	Path  []string
	Index int
	Old   any
}

func (o ArrayDeleteOp) Apply(content node.Content) node.Content {
	result := cloneContent(content)
	arr, ok := tryGetArray(result, o.Path)
	if !ok {
		return result
	}
	if o.Index < 0 || o.Index >= len(arr) {
		return result
	}
	out := make([]any, 0, len(arr)-1)
	out = append(out, arr[:o.Index]...)
	out = append(out, arr[o.Index+1:]...)
	setArray(result, o.Path, out)
	return result
}

func (o ArrayDeleteOp) Reverse(content node.Content) (node.Content, error) {
	result := cloneContent(content)
	arr := getArray(result, o.Path, true)
	idx := o.Index
	if idx > len(arr) {
		idx = len(arr)
	}
	if idx < 0 {
		idx = 0
	}
	out := make([]any, 0, len(arr)+1)
	out = append(out, arr[:idx]...)
	out = append(out, cloneValue(o.Old))
	out = append(out, arr[idx:]...)
	setArray(result, o.Path, out)
	return result, nil
}

func (o ArrayDeleteOp) Summary() string {
	return fmt.Sprintf("Delete value at %s[%d]", pathString(o.Path), o.Index)
}

// TextEditKind identifies a single text edit within a TextDiffOp.
type TextEditKind string

const (
	TextInsert  TextEditKind = "insert"
	TextDelete  TextEditKind = "delete"
	TextReplace TextEditKind = "replace"
)

// TextEdit is one (kind, position, text) edit, per spec.md §4.5.
type TextEdit struct {
	Kind TextEditKind
	Pos  int
	Text string
}

// TextDiffOp applies a set of character-level edits to the string at
// Path. Edits apply in descending position order to avoid shifting
// later positions; reverse applies inverse edits in ascending order.
// Grounded on operations.py's TextDiffOperation.
type TextDiffOp struct {
	Path  []string
	Edits []TextEdit
}

func (o TextDiffOp) Apply(content node.Content) node.Content {
	result := cloneContent(content)
	text := getString(result, o.Path)

	edits := append([]TextEdit(nil), o.Edits...)
	sort.SliceStable(edits, func(i, j int) bool { return edits[i].Pos > edits[j].Pos })
	for _, e := range edits {
		switch e.Kind {
		case TextInsert:
			text = text[:e.Pos] + e.Text + text[e.Pos:]
		case TextDelete:
			end := e.Pos + len(e.Text)
			if end > len(text) {
				end = len(text)
			}
			text = text[:e.Pos] + text[end:]
		case TextReplace:
			end := e.Pos + len(e.Text)
			if end > len(text) {
				end = len(text)
			}
			text = text[:e.Pos] + e.Text + text[end:]
		}
	}
	setString(result, o.Path, text)
	return result
}

func (o TextDiffOp) Reverse(content node.Content) (node.Content, error) {
	result := cloneContent(content)
	if len(o.Path) == 0 {
		return result, nil
	}
	parent, ok := navigate(result, o.Path[:len(o.Path)-1], false)
	if !ok {
		return result, nil
	}
	if _, ok := parent[o.Path[len(o.Path)-1]]; !ok {
		return result, nil
	}
	text := getString(result, o.Path)

	edits := append([]TextEdit(nil), o.Edits...)
	sort.SliceStable(edits, func(i, j int) bool { return edits[i].Pos < edits[j].Pos })
	for _, e := range edits {
		switch e.Kind {
		case TextInsert:
			end := e.Pos + len(e.Text)
			if end > len(text) {
				end = len(text)
			}
			text = text[:e.Pos] + text[end:]
		case TextDelete:
			text = text[:e.Pos] + e.Text + text[e.Pos:]
		case TextReplace:
			end := e.Pos + len(e.Text)
			if end > len(text) {
				end = len(text)
			}
			text = text[:e.Pos] + e.Text + text[end:]
		}
	}
	setString(result, o.Path, text)
	return result, nil
}

func (o TextDiffOp) Summary() string {
	return fmt.Sprintf("Text edits (%d) at %s", len(o.Edits), pathString(o.Path))
}

// CompositeOp folds several operations together: Apply left-to-right,
// Reverse right-to-left.
type CompositeOp struct {
	Ops []Op
}

func (o CompositeOp) Apply(content node.Content) node.Content {
	result := content
	for _, op := range o.Ops {
		result = op.Apply(result)
	}
	return result
}

func (o CompositeOp) Reverse(content node.Content) (node.Content, error) {
	result := content
	for i := len(o.Ops) - 1; i >= 0; i-- {
		var err error
		result, err = o.Ops[i].Reverse(result)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (o CompositeOp) Summary() string {
	return fmt.Sprintf("Composite operation with %d operations", len(o.Ops))
}

func pathString(path []string) string {
	if len(path) == 0 {
		return "root"
	}
	out := path[0]
	for _, p := range path[1:] {
		out += "." + p
	}
	return out
}

func cloneContent(c node.Content) node.Content {
	out := make(node.Content, len(c))
	for k, v := range c {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case node.Content:
		return cloneContent(t)
	case map[string]any:
		return cloneContent(node.Content(t))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

func getArray(content node.Content, path []string, create bool) []any {
	arr, ok := tryGetArray(content, path)
	if ok {
		return arr
	}
	if !create {
		return nil
	}
	setArray(content, path, []any{})
	return []any{}
}

func tryGetArray(content node.Content, path []string) ([]any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	parent, ok := navigate(content, path[:len(path)-1], false)
	if !ok {
		return nil, false
	}
	v, ok := parent[path[len(path)-1]]
	if !ok {
		return nil, false
	}
	arr, ok := v.([]any)
	return arr, ok
}

func setArray(content node.Content, path []string, arr []any) {
	if len(path) == 0 {
		return
	}
	parent, _ := navigate(content, path[:len(path)-1], true)
	parent[path[len(path)-1]] = arr
}

func getString(content node.Content, path []string) string {
	if len(path) == 0 {
		return ""
	}
	parent, ok := navigate(content, path[:len(path)-1], false)
	if !ok {
		return ""
	}
	v, ok := parent[path[len(path)-1]]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func setString(content node.Content, path []string, s string) {
	if len(path) == 0 {
		return
	}
	parent, _ := navigate(content, path[:len(path)-1], true)
	parent[path[len(path)-1]] = s
}
