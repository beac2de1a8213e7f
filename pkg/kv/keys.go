package kv

import (
	"encoding/binary"
	"math"

	"github.com/google/uuid"
)

// Key construction is centralized here rather than scattered across the
// node store, spatial index, and delta store, the way the original
// project's src/storage/key_management.py keeps one place responsible
// for it instead of inlining byte literals at each call site.

// EncodeFloat64 packs f as a big-endian uint64 with its sign bit set
// for non-negative values and every bit inverted for negative ones, so
// that lexicographic byte order matches numeric order for both signs.
func EncodeFloat64(f float64) []byte {
	bits := math.Float64bits(f)
	if f >= 0 {
		bits |= 1 << 63
	} else {
		bits = ^bits
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, bits)
	return buf
}

// DecodeFloat64 reverses EncodeFloat64.
func DecodeFloat64(buf []byte) float64 {
	bits := binary.BigEndian.Uint64(buf)
	if bits&(1<<63) != 0 {
		bits &^= 1 << 63
	} else {
		bits = ^bits
	}
	return math.Float64frombits(bits)
}

// NodeKey builds the "n:"-family key for a node: its raw 16 UUID bytes.
func NodeKey(id uuid.UUID) []byte {
	b := id[:]
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// MetaKey builds the "m:"-family key: UUID + ':' + utf8(key).
func MetaKey(id uuid.UUID, key string) []byte {
	out := make([]byte, 0, 16+1+len(key))
	out = append(out, id[:]...)
	out = append(out, ':')
	out = append(out, key...)
	return out
}

// TemporalKey builds the "t:"-family key: be_f64(t) + UUID.
func TemporalKey(t float64, id uuid.UUID) []byte {
	out := make([]byte, 0, 8+16)
	out = append(out, EncodeFloat64(t)...)
	out = append(out, id[:]...)
	return out
}

// TemporalPrefix returns the "t:"-family prefix covering every key with
// timestamp <= t when scanned forward, or >= t depending on the caller's
// use; it is simply the exact 8-byte encoding with no trailing UUID, used
// as a range bound, not a scan prefix, in practice.
func TemporalPrefix(t float64) []byte {
	return EncodeFloat64(t)
}

// SpatialKey builds the "s:"-family key: be_f64(t) + be_f64(r) +
// be_f64(θ) + UUID.
func SpatialKey(t, r, theta float64, id uuid.UUID) []byte {
	out := make([]byte, 0, 24+16)
	out = append(out, EncodeFloat64(t)...)
	out = append(out, EncodeFloat64(r)...)
	out = append(out, EncodeFloat64(theta)...)
	out = append(out, id[:]...)
	return out
}

// DeltaKey builds the "delta:"-family key for a delta record.
func DeltaKey(id uuid.UUID) []byte {
	return NodeKey(id)
}

// DeltaByNodeKey builds the "node:"-family key for a node's delta-id list.
func DeltaByNodeKey(nodeID uuid.UUID) []byte {
	return NodeKey(nodeID)
}

// DeltaTimeKey builds the "time:"-family key: UUID(node) + ':' + be_f64(t).
func DeltaTimeKey(nodeID uuid.UUID, t float64) []byte {
	out := make([]byte, 0, 16+1+8)
	out = append(out, nodeID[:]...)
	out = append(out, ':')
	out = append(out, EncodeFloat64(t)...)
	return out
}

// DeltaTimePrefix returns the "time:"-family prefix scoping a scan to one
// node's deltas.
func DeltaTimePrefix(nodeID uuid.UUID) []byte {
	out := make([]byte, 0, 16+1)
	out = append(out, nodeID[:]...)
	out = append(out, ':')
	return out
}

// DeltaLatestKey builds the "latest:"-family key for a node's latest delta.
func DeltaLatestKey(nodeID uuid.UUID) []byte {
	return NodeKey(nodeID)
}
