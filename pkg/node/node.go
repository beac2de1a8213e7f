// Package node defines the stored record type: identity, JSON-like
// content, cylindrical position, typed outgoing connections, and the
// bookkeeping the delta layer needs to relate a node to its origin.
//
// Grounded on pkg/storage/types.go's Node/Edge shape, generalized from the
// teacher's labeled-property-graph model to the cylindrical position and
// delta metadata spec.md §3 requires.
package node

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/orneryd/cylindb/pkg/coordinate"
	"github.com/orneryd/cylindb/pkg/cylindb"
)

// Content is the JSON-like value model nodes store: null, bool, number,
// string, ordered list, or string-keyed map. The engine only inspects
// structure during diff and reconstruction; interpretation of any given
// tree is left to the caller.
type Content = map[string]any

// Connection is a directed, typed, weighted edge to another node. The
// target may be absent from the store -- dangling connections are
// permitted and surfaced to callers rather than silently dropped.
type Connection struct {
	TargetID       uuid.UUID
	ConnectionType string
	Strength       float64
	Metadata       map[string]any
}

// Validate checks the connection's own invariants (spec.md §3: strength
// must be in [0,1]). It does not check whether TargetID exists -- that is
// a property of the store, not the connection record.
func (c Connection) Validate() error {
	if c.Strength < 0 || c.Strength > 1 {
		return fmt.Errorf("%w: connection strength %v outside [0,1]", cylindb.ErrInvariantViolation, c.Strength)
	}
	return nil
}

// Node is a single stored record: a point in (t, r, θ) carrying content,
// outgoing connections, and the metadata the delta layer uses to relate
// it to whatever it was derived from.
type Node struct {
	ID       uuid.UUID
	Content  Content
	Position coordinate.Position

	Connections []Connection

	// OriginReference is the node this one was derived from, if any.
	OriginReference *uuid.UUID

	// DeltaInformation carries bookkeeping the delta layer attaches to a
	// node's current version (e.g. the id of its latest applied delta).
	DeltaInformation map[string]any

	Metadata map[string]any
}

// New creates a Node with a freshly generated identity.
func New(content Content, pos coordinate.Position) *Node {
	return &Node{
		ID:               uuid.New(),
		Content:          content,
		Position:         pos,
		DeltaInformation: map[string]any{},
		Metadata:         map[string]any{},
	}
}

// Validate checks every per-node invariant from spec.md §3 and §8: radius
// non-negative, θ normalized, and every connection's strength in range.
// It normalizes θ in place rather than merely checking it, matching the
// "normalize at every boundary" design note.
func (n *Node) Validate() error {
	if n.Position.R < 0 {
		return fmt.Errorf("%w: node %s has negative radius %v", cylindb.ErrInvariantViolation, n.ID, n.Position.R)
	}
	n.Position.Theta = coordinate.NormalizeTheta(n.Position.Theta)
	for i, c := range n.Connections {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("node %s connection %d: %w", n.ID, i, err)
		}
	}
	return nil
}

// Clone deep-copies a node so callers can mutate the copy without
// disturbing whatever the store or cache is still holding.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	clone := *n
	clone.Content = deepCopyValue(n.Content).(Content)
	clone.Connections = make([]Connection, len(n.Connections))
	for i, c := range n.Connections {
		cc := c
		cc.Metadata = deepCopyValue(c.Metadata).(map[string]any)
		clone.Connections[i] = cc
	}
	if n.OriginReference != nil {
		ref := *n.OriginReference
		clone.OriginReference = &ref
	}
	clone.DeltaInformation = deepCopyValue(n.DeltaInformation).(map[string]any)
	clone.Metadata = deepCopyValue(n.Metadata).(map[string]any)
	return &clone
}

// deepCopyValue recursively copies a JSON-like value tree (maps, slices,
// and scalars), the same structural assumption the delta operations and
// change detector make about node content.
func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		if val == nil {
			return map[string]any{}
		}
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = deepCopyValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return val
	}
}
