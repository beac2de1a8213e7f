package codec

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/orneryd/cylindb/pkg/coordinate"
	"github.com/orneryd/cylindb/pkg/cylindb"
	"github.com/orneryd/cylindb/pkg/delta"
	"github.com/orneryd/cylindb/pkg/node"
)

// BinaryCodec implements NodeCodec and delta.RecordCodec as a
// compact, tag-coded binary form, prefixed with the FormatBinary
// header byte. UUIDs serialize as 16 raw bytes and floats as
// big-endian IEEE-754, the same layout pkg/bolt/server.go's
// PackStream float/int encoding uses; nested value trees (Content,
// Metadata, delta edits) are carried as a length-prefixed JSON blob
// rather than a fully recursive tag scheme, since those trees are
// open-ended maps the teacher's own fixed-shape Bolt values never
// have to represent.
type BinaryCodec struct{}

// operation type tags, matching spec.md §6's set|del|ainsert|adel|tdiff|composite.
const (
	opTagSet       byte = 0x01
	opTagDel       byte = 0x02
	opTagAInsert   byte = 0x03
	opTagADelete   byte = 0x04
	opTagTextDiff  byte = 0x05
	opTagComposite byte = 0x06
)

func putUUID(buf []byte, id uuid.UUID) []byte { return append(buf, id[:]...) }

func putFloat64(buf []byte, f float64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(f))
	return append(buf, b[:]...)
}

func readFloat64(data []byte) (float64, []byte, error) {
	if len(data) < 8 {
		return 0, nil, fmt.Errorf("%w: truncated float64", cylindb.ErrSerialization)
	}
	return math.Float64frombits(binary.BigEndian.Uint64(data[:8])), data[8:], nil
}

func readUUID(data []byte) (uuid.UUID, []byte, error) {
	if len(data) < 16 {
		return uuid.UUID{}, nil, fmt.Errorf("%w: truncated uuid", cylindb.ErrSerialization)
	}
	var id uuid.UUID
	copy(id[:], data[:16])
	return id, data[16:], nil
}

func putJSONBlob(buf []byte, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding json blob: %w", cylindb.ErrSerialization, err)
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, body...), nil
}

func readJSONBlob(data []byte, out any) ([]byte, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: truncated blob length", cylindb.ErrSerialization)
	}
	n := binary.BigEndian.Uint32(data[:4])
	data = data[4:]
	if uint32(len(data)) < n {
		return nil, fmt.Errorf("%w: truncated blob body", cylindb.ErrSerialization)
	}
	if err := json.Unmarshal(data[:n], out); err != nil {
		return nil, fmt.Errorf("%w: decoding json blob: %w", cylindb.ErrSerialization, err)
	}
	return data[n:], nil
}

func (BinaryCodec) EncodeNode(n *node.Node) ([]byte, error) {
	buf := []byte{byte(FormatBinary)}
	buf = putUUID(buf, n.ID)
	buf = putFloat64(buf, n.Position.T)
	buf = putFloat64(buf, n.Position.R)
	buf = putFloat64(buf, n.Position.Theta)

	var err error
	buf, err = putJSONBlob(buf, n.Content)
	if err != nil {
		return nil, err
	}

	hasOrigin := byte(0)
	if n.OriginReference != nil {
		hasOrigin = 1
	}
	buf = append(buf, hasOrigin)
	if n.OriginReference != nil {
		buf = putUUID(buf, *n.OriginReference)
	}

	buf = append(buf, byte(len(n.Connections)))
	for _, c := range n.Connections {
		buf = putUUID(buf, c.TargetID)
		buf, err = putJSONBlob(buf, c.ConnectionType)
		if err != nil {
			return nil, err
		}
		buf = putFloat64(buf, c.Strength)
		buf, err = putJSONBlob(buf, c.Metadata)
		if err != nil {
			return nil, err
		}
	}

	buf, err = putJSONBlob(buf, n.DeltaInformation)
	if err != nil {
		return nil, err
	}
	buf, err = putJSONBlob(buf, n.Metadata)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (BinaryCodec) DecodeNode(data []byte) (*node.Node, error) {
	_, rest, err := formatOf(data)
	if err != nil {
		return nil, err
	}

	id, rest, err := readUUID(rest)
	if err != nil {
		return nil, err
	}
	t, rest, err := readFloat64(rest)
	if err != nil {
		return nil, err
	}
	r, rest, err := readFloat64(rest)
	if err != nil {
		return nil, err
	}
	theta, rest, err := readFloat64(rest)
	if err != nil {
		return nil, err
	}
	pos, err := coordinate.New(t, r, theta)
	if err != nil {
		return nil, err
	}

	var content node.Content
	rest, err = readJSONBlob(rest, &content)
	if err != nil {
		return nil, err
	}

	if len(rest) < 1 {
		return nil, fmt.Errorf("%w: truncated origin-reference flag", cylindb.ErrSerialization)
	}
	hasOrigin := rest[0]
	rest = rest[1:]
	var originRef *uuid.UUID
	if hasOrigin == 1 {
		var ref uuid.UUID
		ref, rest, err = readUUID(rest)
		if err != nil {
			return nil, err
		}
		originRef = &ref
	}

	if len(rest) < 1 {
		return nil, fmt.Errorf("%w: truncated connection count", cylindb.ErrSerialization)
	}
	connCount := int(rest[0])
	rest = rest[1:]
	connections := make([]node.Connection, 0, connCount)
	for i := 0; i < connCount; i++ {
		var target uuid.UUID
		target, rest, err = readUUID(rest)
		if err != nil {
			return nil, err
		}
		var connType string
		rest, err = readJSONBlob(rest, &connType)
		if err != nil {
			return nil, err
		}
		var strength float64
		strength, rest, err = readFloat64(rest)
		if err != nil {
			return nil, err
		}
		var meta map[string]any
		rest, err = readJSONBlob(rest, &meta)
		if err != nil {
			return nil, err
		}
		connections = append(connections, node.Connection{
			TargetID:       target,
			ConnectionType: connType,
			Strength:       strength,
			Metadata:       meta,
		})
	}

	var deltaInfo map[string]any
	rest, err = readJSONBlob(rest, &deltaInfo)
	if err != nil {
		return nil, err
	}
	var metadata map[string]any
	_, err = readJSONBlob(rest, &metadata)
	if err != nil {
		return nil, err
	}

	return &node.Node{
		ID:               id,
		Content:          content,
		Position:         pos,
		Connections:      connections,
		OriginReference:  originRef,
		DeltaInformation: deltaInfo,
		Metadata:         metadata,
	}, nil
}

func (BinaryCodec) EncodeRecord(r delta.Record) ([]byte, error) {
	buf := []byte{byte(FormatBinary)}
	buf = putUUID(buf, r.DeltaID)
	buf = putUUID(buf, r.NodeID)
	buf = putFloat64(buf, r.Timestamp)

	hasPrev := byte(0)
	if r.PreviousDeltaID != nil {
		hasPrev = 1
	}
	buf = append(buf, hasPrev)
	if r.PreviousDeltaID != nil {
		buf = putUUID(buf, *r.PreviousDeltaID)
	}

	var err error
	buf, err = putJSONBlob(buf, r.Metadata)
	if err != nil {
		return nil, err
	}

	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(r.Operations)))
	buf = append(buf, countBuf[:]...)
	for _, op := range r.Operations {
		buf, err = encodeOp(buf, op)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func (BinaryCodec) DecodeRecord(data []byte) (delta.Record, error) {
	_, rest, err := formatOf(data)
	if err != nil {
		return delta.Record{}, err
	}
	deltaID, rest, err := readUUID(rest)
	if err != nil {
		return delta.Record{}, err
	}
	nodeID, rest, err := readUUID(rest)
	if err != nil {
		return delta.Record{}, err
	}
	ts, rest, err := readFloat64(rest)
	if err != nil {
		return delta.Record{}, err
	}

	if len(rest) < 1 {
		return delta.Record{}, fmt.Errorf("%w: truncated previous-delta flag", cylindb.ErrSerialization)
	}
	hasPrev := rest[0]
	rest = rest[1:]
	var prev *uuid.UUID
	if hasPrev == 1 {
		var id uuid.UUID
		id, rest, err = readUUID(rest)
		if err != nil {
			return delta.Record{}, err
		}
		prev = &id
	}

	var metadata map[string]any
	rest, err = readJSONBlob(rest, &metadata)
	if err != nil {
		return delta.Record{}, err
	}

	if len(rest) < 4 {
		return delta.Record{}, fmt.Errorf("%w: truncated operation count", cylindb.ErrSerialization)
	}
	count := binary.BigEndian.Uint32(rest[:4])
	rest = rest[4:]

	ops := make([]delta.Op, 0, count)
	for i := uint32(0); i < count; i++ {
		var op delta.Op
		op, rest, err = decodeOp(rest)
		if err != nil {
			return delta.Record{}, err
		}
		ops = append(ops, op)
	}

	return delta.Record{
		DeltaID:         deltaID,
		NodeID:          nodeID,
		Timestamp:       ts,
		Operations:      ops,
		PreviousDeltaID: prev,
		Metadata:        metadata,
	}, nil
}

func encodeOp(buf []byte, op delta.Op) ([]byte, error) {
	var err error
	switch o := op.(type) {
	case delta.SetValueOp:
		buf = append(buf, opTagSet)
		buf, err = putJSONBlob(buf, opSetPayload{Path: o.Path, New: o.New, Old: o.Old, HasOld: o.HasOld})
	case delta.DeleteValueOp:
		buf = append(buf, opTagDel)
		buf, err = putJSONBlob(buf, opDelPayload{Path: o.Path, Old: o.Old})
	case delta.ArrayInsertOp:
		buf = append(buf, opTagAInsert)
		buf, err = putJSONBlob(buf, opAInsertPayload{Path: o.Path, Index: o.Index, Value: o.Value})
	case delta.ArrayDeleteOp:
		buf = append(buf, opTagADelete)
		buf, err = putJSONBlob(buf, opADeletePayload{Path: o.Path, Index: o.Index, Old: o.Old})
	case delta.TextDiffOp:
		buf = append(buf, opTagTextDiff)
		buf, err = putJSONBlob(buf, opTextDiffPayload{Path: o.Path, Edits: o.Edits})
	case delta.CompositeOp:
		buf = append(buf, opTagComposite)
		var countBuf [4]byte
		binary.BigEndian.PutUint32(countBuf[:], uint32(len(o.Ops)))
		buf = append(buf, countBuf[:]...)
		for _, sub := range o.Ops {
			buf, err = encodeOp(buf, sub)
			if err != nil {
				return nil, err
			}
		}
		return buf, nil
	default:
		return nil, fmt.Errorf("%w: unknown operation type", cylindb.ErrSerialization)
	}
	return buf, err
}

func decodeOp(data []byte) (delta.Op, []byte, error) {
	if len(data) < 1 {
		return nil, nil, fmt.Errorf("%w: truncated operation tag", cylindb.ErrSerialization)
	}
	tag := data[0]
	rest := data[1:]

	switch tag {
	case opTagSet:
		var p opSetPayload
		rest, err := readJSONBlob(rest, &p)
		if err != nil {
			return nil, nil, err
		}
		return delta.SetValueOp{Path: p.Path, New: p.New, Old: p.Old, HasOld: p.HasOld}, rest, nil
	case opTagDel:
		var p opDelPayload
		rest, err := readJSONBlob(rest, &p)
		if err != nil {
			return nil, nil, err
		}
		return delta.DeleteValueOp{Path: p.Path, Old: p.Old}, rest, nil
	case opTagAInsert:
		var p opAInsertPayload
		rest, err := readJSONBlob(rest, &p)
		if err != nil {
			return nil, nil, err
		}
		return delta.ArrayInsertOp{Path: p.Path, Index: p.Index, Value: p.Value}, rest, nil
	case opTagADelete:
		var p opADeletePayload
		rest, err := readJSONBlob(rest, &p)
		if err != nil {
			return nil, nil, err
		}
		return delta.ArrayDeleteOp{Path: p.Path, Index: p.Index, Old: p.Old}, rest, nil
	case opTagTextDiff:
		var p opTextDiffPayload
		rest, err := readJSONBlob(rest, &p)
		if err != nil {
			return nil, nil, err
		}
		return delta.TextDiffOp{Path: p.Path, Edits: p.Edits}, rest, nil
	case opTagComposite:
		if len(rest) < 4 {
			return nil, nil, fmt.Errorf("%w: truncated composite count", cylindb.ErrSerialization)
		}
		count := binary.BigEndian.Uint32(rest[:4])
		rest = rest[4:]
		ops := make([]delta.Op, 0, count)
		for i := uint32(0); i < count; i++ {
			var op delta.Op
			var err error
			op, rest, err = decodeOp(rest)
			if err != nil {
				return nil, nil, err
			}
			ops = append(ops, op)
		}
		return delta.CompositeOp{Ops: ops}, rest, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown operation tag %d", cylindb.ErrSerialization, tag)
	}
}

type opSetPayload struct {
	Path   []string `json:"path"`
	New    any      `json:"new"`
	Old    any      `json:"old"`
	HasOld bool     `json:"has_old"`
}

type opDelPayload struct {
	Path []string `json:"path"`
	Old  any      `json:"old"`
}

type opAInsertPayload struct {
	Path  []string `json:"path"`
	Index int      `json:"index"`
	Value any      `json:"value"`
}

type opADeletePayload struct {
	Path  []string `json:"path"`
	Index int      `json:"index"`
	Old   any      `json:"old"`
}

type opTextDiffPayload struct {
	Path  []string         `json:"path"`
	Edits []delta.TextEdit `json:"edits"`
}
