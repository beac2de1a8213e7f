package delta

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/orneryd/cylindb/pkg/node"
)

// Record is a single delta: an operation list that transforms a node's
// content from one state to the next at a point in time (spec.md §4.5).
// Grounded on original_source/src/delta/records.py's DeltaRecord.
type Record struct {
	DeltaID          uuid.UUID
	NodeID           uuid.UUID
	Timestamp        float64
	Operations       []Op
	PreviousDeltaID  *uuid.UUID
	Metadata         map[string]any
}

// NewRecord builds a record with a fresh delta ID.
func NewRecord(nodeID uuid.UUID, timestamp float64, ops []Op, previous *uuid.UUID) Record {
	return Record{
		DeltaID:         uuid.New(),
		NodeID:          nodeID,
		Timestamp:       timestamp,
		Operations:      ops,
		PreviousDeltaID: previous,
		Metadata:        map[string]any{},
	}
}

// NewCheckpointRecord builds a checkpoint record: metadata.checkpoint
// is true, metadata.content holds the snapshot, and Operations is
// empty (spec.md §4.5).
func NewCheckpointRecord(nodeID uuid.UUID, timestamp float64, content node.Content, previous *uuid.UUID) Record {
	r := NewRecord(nodeID, timestamp, nil, previous)
	r.Metadata["checkpoint"] = true
	r.Metadata["content"] = content
	return r
}

// IsEmpty reports whether the record carries no operations and is not
// a checkpoint. Empty
// records are never stored in a chain.
func (r Record) IsEmpty() bool { return len(r.Operations) == 0 && !r.IsCheckpoint() }

// IsCheckpoint reports whether this record is a full-snapshot
// checkpoint rather than an operation list.
func (r Record) IsCheckpoint() bool {
	v, ok := r.Metadata["checkpoint"]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// CheckpointContent returns the snapshot carried by a checkpoint
// record. Only valid when IsCheckpoint is true.
func (r Record) CheckpointContent() node.Content {
	c, _ := r.Metadata["content"].(node.Content)
	return c
}

// Apply applies every operation in sequence to content.
func (r Record) Apply(content node.Content) node.Content {
	result := content
	for _, op := range r.Operations {
		result = op.Apply(result)
	}
	return result
}

// Reverse reverses every operation in reverse sequence.
func (r Record) Reverse(content node.Content) (node.Content, error) {
	result := content
	for i := len(r.Operations) - 1; i >= 0; i-- {
		var err error
		result, err = r.Operations[i].Reverse(result)
		if err != nil {
			return nil, fmt.Errorf("reversing delta %s: %w", r.DeltaID, err)
		}
	}
	return result, nil
}

// Summary returns a human-readable description, grounded on
// records.py's get_summary.
func (r Record) Summary() string {
	n := len(r.Operations)
	switch {
	case r.IsCheckpoint():
		return "Checkpoint"
	case n == 0:
		return "No changes"
	case n == 1:
		return r.Operations[0].Summary()
	default:
		shown := r.Operations
		if n > 3 {
			shown = shown[:3]
		}
		out := fmt.Sprintf("%d changes: ", n)
		for i, op := range shown {
			if i > 0 {
				out += ", "
			}
			out += op.Summary()
		}
		if n > 3 {
			out += fmt.Sprintf(" and %d more", n-3)
		}
		return out
	}
}
