// Package codec implements the two interchangeable wire encodings for
// nodes and delta records (spec.md §6): a text/JSON form and a
// compact binary form, selected at store creation and declared in a
// header byte of every encoded value.
//
// The binary form is grounded on pkg/bolt/server.go's PackStream
// tag-coded value encoder: fixed-shape fields (UUIDs, the position
// triple, operation kind) get dedicated byte layouts, while the
// free-form JSON value trees (Content, Metadata, delta edits) are
// carried as length-prefixed JSON, the same split the teacher's own
// Bolt driver makes between scalar tags and nested structures.
package codec

import (
	"fmt"

	"github.com/orneryd/cylindb/pkg/cylindb"
	"github.com/orneryd/cylindb/pkg/node"
)

// Format identifies which wire encoding produced a value, carried as
// the first byte of every encoded node or delta record.
type Format byte

const (
	// FormatJSON is the human-readable text encoding.
	FormatJSON Format = 0x01

	// FormatBinary is the compact, tag-coded encoding.
	FormatBinary Format = 0x02
)

// NodeCodec encodes and decodes nodes for persistence.
type NodeCodec interface {
	EncodeNode(n *node.Node) ([]byte, error)
	DecodeNode(data []byte) (*node.Node, error)
}

func formatOf(data []byte) (Format, []byte, error) {
	if len(data) == 0 {
		return 0, nil, fmt.Errorf("%w: empty encoded value", cylindb.ErrSerialization)
	}
	return Format(data[0]), data[1:], nil
}
