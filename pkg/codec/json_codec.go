package codec

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/orneryd/cylindb/pkg/coordinate"
	"github.com/orneryd/cylindb/pkg/cylindb"
	"github.com/orneryd/cylindb/pkg/delta"
	"github.com/orneryd/cylindb/pkg/node"
)

// JSONCodec implements NodeCodec and delta.RecordCodec as
// human-readable JSON, prefixed with the FormatJSON header byte.
// UUIDs serialize as canonical hex text (spec.md §6).
type JSONCodec struct{}

type jsonNode struct {
	ID               string           `json:"id"`
	Content          node.Content     `json:"content"`
	Position         [3]float64       `json:"position"`
	Connections      []jsonConnection `json:"connections"`
	OriginReference  *string          `json:"origin_reference,omitempty"`
	DeltaInformation map[string]any   `json:"delta_information"`
	Metadata         map[string]any   `json:"metadata"`
}

type jsonConnection struct {
	TargetID       string         `json:"target_id"`
	ConnectionType string         `json:"connection_type"`
	Strength       float64        `json:"strength"`
	Metadata       map[string]any `json:"metadata"`
}

func (JSONCodec) EncodeNode(n *node.Node) ([]byte, error) {
	jn := jsonNode{
		ID:               n.ID.String(),
		Content:          n.Content,
		Position:         [3]float64{n.Position.T, n.Position.R, n.Position.Theta},
		DeltaInformation: n.DeltaInformation,
		Metadata:         n.Metadata,
	}
	if n.OriginReference != nil {
		s := n.OriginReference.String()
		jn.OriginReference = &s
	}
	for _, c := range n.Connections {
		jn.Connections = append(jn.Connections, jsonConnection{
			TargetID:       c.TargetID.String(),
			ConnectionType: c.ConnectionType,
			Strength:       c.Strength,
			Metadata:       c.Metadata,
		})
	}

	body, err := json.Marshal(jn)
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling node: %w", cylindb.ErrSerialization, err)
	}
	return append([]byte{byte(FormatJSON)}, body...), nil
}

func (JSONCodec) DecodeNode(data []byte) (*node.Node, error) {
	_, body, err := formatOf(data)
	if err != nil {
		return nil, err
	}
	var jn jsonNode
	if err := json.Unmarshal(body, &jn); err != nil {
		return nil, fmt.Errorf("%w: unmarshaling node: %w", cylindb.ErrSerialization, err)
	}

	id, err := uuid.Parse(jn.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: node id: %w", cylindb.ErrSerialization, err)
	}
	pos, err := coordinate.New(jn.Position[0], jn.Position[1], jn.Position[2])
	if err != nil {
		return nil, err
	}

	n := &node.Node{
		ID:               id,
		Content:          jn.Content,
		Position:         pos,
		DeltaInformation: jn.DeltaInformation,
		Metadata:         jn.Metadata,
	}
	if jn.OriginReference != nil {
		ref, err := uuid.Parse(*jn.OriginReference)
		if err != nil {
			return nil, fmt.Errorf("%w: origin reference: %w", cylindb.ErrSerialization, err)
		}
		n.OriginReference = &ref
	}
	for _, jc := range jn.Connections {
		target, err := uuid.Parse(jc.TargetID)
		if err != nil {
			return nil, fmt.Errorf("%w: connection target: %w", cylindb.ErrSerialization, err)
		}
		n.Connections = append(n.Connections, node.Connection{
			TargetID:       target,
			ConnectionType: jc.ConnectionType,
			Strength:       jc.Strength,
			Metadata:       jc.Metadata,
		})
	}
	return n, nil
}

type jsonOp struct {
	Tag   string `json:"tag"`
	Path  []string `json:"path,omitempty"`
	New   any      `json:"new,omitempty"`
	Old   any      `json:"old,omitempty"`
	HasOld bool    `json:"has_old,omitempty"`
	Index int      `json:"index,omitempty"`
	Value any      `json:"value,omitempty"`
	Edits []jsonEdit `json:"edits,omitempty"`
	Ops   []jsonOp   `json:"ops,omitempty"`
}

type jsonEdit struct {
	Kind string `json:"kind"`
	Pos  int    `json:"pos"`
	Text string `json:"text"`
}

type jsonRecord struct {
	DeltaID         string         `json:"delta_id"`
	NodeID          string         `json:"node_id"`
	Timestamp       float64        `json:"timestamp"`
	PreviousDeltaID *string        `json:"previous_delta_id,omitempty"`
	Metadata        map[string]any `json:"metadata"`
	Operations      []jsonOp       `json:"operations"`
}

func opToJSON(op delta.Op) jsonOp {
	switch o := op.(type) {
	case delta.SetValueOp:
		return jsonOp{Tag: "set", Path: o.Path, New: o.New, Old: o.Old, HasOld: o.HasOld}
	case delta.DeleteValueOp:
		return jsonOp{Tag: "del", Path: o.Path, Old: o.Old}
	case delta.ArrayInsertOp:
		return jsonOp{Tag: "ainsert", Path: o.Path, Index: o.Index, Value: o.Value}
	case delta.ArrayDeleteOp:
		return jsonOp{Tag: "adel", Path: o.Path, Index: o.Index, Old: o.Old}
	case delta.TextDiffOp:
		edits := make([]jsonEdit, len(o.Edits))
		for i, e := range o.Edits {
			edits[i] = jsonEdit{Kind: string(e.Kind), Pos: e.Pos, Text: e.Text}
		}
		return jsonOp{Tag: "tdiff", Path: o.Path, Edits: edits}
	case delta.CompositeOp:
		ops := make([]jsonOp, len(o.Ops))
		for i, sub := range o.Ops {
			ops[i] = opToJSON(sub)
		}
		return jsonOp{Tag: "composite", Ops: ops}
	default:
		return jsonOp{Tag: "unknown"}
	}
}

func opFromJSON(jo jsonOp) (delta.Op, error) {
	switch jo.Tag {
	case "set":
		return delta.SetValueOp{Path: jo.Path, New: jo.New, Old: jo.Old, HasOld: jo.HasOld}, nil
	case "del":
		return delta.DeleteValueOp{Path: jo.Path, Old: jo.Old}, nil
	case "ainsert":
		return delta.ArrayInsertOp{Path: jo.Path, Index: jo.Index, Value: jo.Value}, nil
	case "adel":
		return delta.ArrayDeleteOp{Path: jo.Path, Index: jo.Index, Old: jo.Old}, nil
	case "tdiff":
		edits := make([]delta.TextEdit, len(jo.Edits))
		for i, e := range jo.Edits {
			edits[i] = delta.TextEdit{Kind: delta.TextEditKind(e.Kind), Pos: e.Pos, Text: e.Text}
		}
		return delta.TextDiffOp{Path: jo.Path, Edits: edits}, nil
	case "composite":
		ops := make([]delta.Op, len(jo.Ops))
		for i, sub := range jo.Ops {
			op, err := opFromJSON(sub)
			if err != nil {
				return nil, err
			}
			ops[i] = op
		}
		return delta.CompositeOp{Ops: ops}, nil
	default:
		return nil, fmt.Errorf("%w: unknown operation tag %q", cylindb.ErrSerialization, jo.Tag)
	}
}

func (JSONCodec) EncodeRecord(r delta.Record) ([]byte, error) {
	jr := jsonRecord{
		DeltaID:   r.DeltaID.String(),
		NodeID:    r.NodeID.String(),
		Timestamp: r.Timestamp,
		Metadata:  r.Metadata,
	}
	if r.PreviousDeltaID != nil {
		s := r.PreviousDeltaID.String()
		jr.PreviousDeltaID = &s
	}
	for _, op := range r.Operations {
		jr.Operations = append(jr.Operations, opToJSON(op))
	}
	body, err := json.Marshal(jr)
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling delta: %w", cylindb.ErrSerialization, err)
	}
	return append([]byte{byte(FormatJSON)}, body...), nil
}

func (JSONCodec) DecodeRecord(data []byte) (delta.Record, error) {
	_, body, err := formatOf(data)
	if err != nil {
		return delta.Record{}, err
	}
	var jr jsonRecord
	if err := json.Unmarshal(body, &jr); err != nil {
		return delta.Record{}, fmt.Errorf("%w: unmarshaling delta: %w", cylindb.ErrSerialization, err)
	}

	deltaID, err := uuid.Parse(jr.DeltaID)
	if err != nil {
		return delta.Record{}, fmt.Errorf("%w: delta id: %w", cylindb.ErrSerialization, err)
	}
	nodeID, err := uuid.Parse(jr.NodeID)
	if err != nil {
		return delta.Record{}, fmt.Errorf("%w: node id: %w", cylindb.ErrSerialization, err)
	}

	r := delta.Record{
		DeltaID:   deltaID,
		NodeID:    nodeID,
		Timestamp: jr.Timestamp,
		Metadata:  jr.Metadata,
	}
	if r.Metadata == nil {
		r.Metadata = map[string]any{}
	}
	if jr.PreviousDeltaID != nil {
		prev, err := uuid.Parse(*jr.PreviousDeltaID)
		if err != nil {
			return delta.Record{}, fmt.Errorf("%w: previous delta id: %w", cylindb.ErrSerialization, err)
		}
		r.PreviousDeltaID = &prev
	}
	for _, jo := range jr.Operations {
		op, err := opFromJSON(jo)
		if err != nil {
			return delta.Record{}, err
		}
		r.Operations = append(r.Operations, op)
	}
	return r, nil
}
