package reconstruct

import (
	"context"
	"reflect"
	"strings"

	"github.com/google/uuid"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/orneryd/cylindb/pkg/node"
)

// longTextThreshold mirrors navigator.py's _text_diff threshold: strings
// longer than this get a character-level diff instead of a plain
// before/after pair.
const longTextThreshold = 100

// Comparison is the result of comparing a node's content between two
// timestamps: top-level keys present only on one side, and keys
// present on both whose values differ.
type Comparison struct {
	Timestamp1 float64
	Timestamp2 float64
	Added      map[string]any
	Removed    map[string]any
	Changed    map[string]any
}

// CompareStates reconstructs nodeID's content at t1 and t2 and reports
// what changed between them, grounded on navigator.py's compare_states.
func (nv *Navigator) CompareStates(ctx context.Context, nodeID uuid.UUID, t1, t2 float64) (*Comparison, error) {
	state1, err := nv.StateAt(ctx, nodeID, t1)
	if err != nil {
		return nil, err
	}
	state2, err := nv.StateAt(ctx, nodeID, t2)
	if err != nil {
		return nil, err
	}

	cmp := &Comparison{
		Timestamp1: t1,
		Timestamp2: t2,
		Added:      map[string]any{},
		Removed:    map[string]any{},
		Changed:    map[string]any{},
	}
	for _, key := range unionKeys(state1, state2) {
		v1, ok1 := state1[key]
		v2, ok2 := state2[key]
		switch {
		case !ok1:
			cmp.Added[key] = v2
		case !ok2:
			cmp.Removed[key] = v1
		case !reflect.DeepEqual(v1, v2):
			if diff, ok := diffTopLevelValue(v1, v2); ok {
				cmp.Changed[key] = diff
			}
		}
	}
	return cmp, nil
}

// diffTopLevelValue mirrors compare_states' per-key dispatch: nested
// dict diff for dict/dict pairs (dropped if nothing inside actually
// differs), a plain before/after pair for lists, a character-level
// diff for long string pairs, and before/after for everything else.
func diffTopLevelValue(v1, v2 any) (any, bool) {
	if m1, ok := v1.(node.Content); ok {
		if m2, ok := v2.(node.Content); ok {
			nested := compareDict(m1, m2)
			if sectionsNonEmpty(nested) {
				return nested, true
			}
			return nil, false
		}
	}
	if l1, ok := v1.([]any); ok {
		if l2, ok := v2.([]any); ok {
			return map[string]any{"before": l1, "after": l2}, true
		}
	}
	if s1, ok := v1.(string); ok {
		if s2, ok := v2.(string); ok {
			if len(s1) > longTextThreshold || len(s2) > longTextThreshold {
				return map[string]any{"type": "text_diff", "diff": textDiff(s1, s2)}, true
			}
		}
	}
	return map[string]any{"before": v1, "after": v2}, true
}

// compareDict recursively compares two content trees, used for nested
// map values found during CompareStates. Unlike diffTopLevelValue it
// has no list/text special-casing -- it mirrors navigator.py's
// _compare_dict, the simpler recursive helper.
func compareDict(a, b node.Content) map[string]any {
	added := map[string]any{}
	removed := map[string]any{}
	changed := map[string]any{}

	for _, key := range unionKeys(a, b) {
		v1, ok1 := a[key]
		v2, ok2 := b[key]
		switch {
		case !ok1:
			added[key] = v2
		case !ok2:
			removed[key] = v1
		case !reflect.DeepEqual(v1, v2):
			m1, isMap1 := v1.(node.Content)
			m2, isMap2 := v2.(node.Content)
			if isMap1 && isMap2 {
				nested := compareDict(m1, m2)
				if sectionsNonEmpty(nested) {
					changed[key] = nested
				}
				continue
			}
			changed[key] = map[string]any{"before": v1, "after": v2}
		}
	}

	return map[string]any{"added": added, "removed": removed, "changed": changed}
}

func sectionsNonEmpty(sections map[string]any) bool {
	for _, v := range sections {
		if m, ok := v.(map[string]any); ok && len(m) > 0 {
			return true
		}
	}
	return false
}

func unionKeys(a, b node.Content) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for k := range a {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	for k := range b {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}

// TextDiffEntry is one hunk of a character-level text comparison.
type TextDiffEntry struct {
	Op      string // "equal", "replace", "remove", "add"
	Text    string
	Removed string
	Added   string
}

// textDiff produces a human-readable character-level diff between two
// strings using the same difflib.SequenceMatcher the rest of this
// repo's change detection is grounded on (pkg/delta/detector.go),
// mirroring navigator.py's _text_diff.
func textDiff(a, b string) []TextDiffEntry {
	ca, cb := splitChars(a), splitChars(b)
	matcher := difflib.NewMatcher(ca, cb)

	var out []TextDiffEntry
	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'e':
			if len(out) > 0 && out[len(out)-1].Op != "equal" {
				out = append(out, TextDiffEntry{Op: "equal", Text: strings.Join(ca[op.I1:op.I2], "")})
			}
		case 'r':
			out = append(out, TextDiffEntry{
				Op:      "replace",
				Removed: strings.Join(ca[op.I1:op.I2], ""),
				Added:   strings.Join(cb[op.J1:op.J2], ""),
			})
		case 'd':
			out = append(out, TextDiffEntry{Op: "remove", Text: strings.Join(ca[op.I1:op.I2], "")})
		case 'i':
			out = append(out, TextDiffEntry{Op: "add", Text: strings.Join(cb[op.J1:op.J2], "")})
		}
	}
	return out
}

func splitChars(s string) []string {
	runes := []rune(s)
	out := make([]string, len(runes))
	for i, r := range runes {
		out[i] = string(r)
	}
	return out
}
