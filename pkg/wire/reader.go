// Package wire implements the Factorio wire protocol's binary codec:
// a cursored reader/writer pair, the varint/varshort encodings, and
// the fixed-point tile coordinate type. See spec.md §4.1.
package wire

import (
	"encoding/binary"

	"github.com/tindalos-systems/factoriolink/pkg/ferrors"
)

// Reader is a cursored reader over an immutable byte slice. It never
// copies the underlying buffer; ReadBytes returns a sub-slice.
type Reader struct {
	data []byte
	pos  int
}

// NewReader wraps data for sequential reads starting at offset 0.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Position returns the current cursor offset.
func (r *Reader) Position() int { return r.pos }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.pos }

// RemainingSlice returns the unread tail of the buffer without advancing.
func (r *Reader) RemainingSlice() []byte { return r.data[r.pos:] }

func (r *Reader) need(n int) error {
	if r.Remaining() < n {
		return &ferrors.ShortRead{Need: n, Have: r.Remaining()}
	}
	return nil
}

// ReadBytes returns the next n bytes and advances the cursor.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Skip advances the cursor by n bytes without returning them.
func (r *Reader) Skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.pos += n
	return nil
}

// ReadU8 reads one unsigned byte.
func (r *Reader) ReadU8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.data[r.pos]
	r.pos++
	return v, nil
}

// ReadBool reads one byte, non-zero meaning true.
func (r *Reader) ReadBool() (bool, error) {
	v, err := r.ReadU8()
	return v != 0, err
}

// ReadU16 reads a little-endian unsigned 16-bit integer.
func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadU32 reads a little-endian unsigned 32-bit integer.
func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadI32 reads a little-endian signed 32-bit integer.
func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

// ReadVarShort reads Factorio's VarShort encoding: a single byte below
// 0xFF is the value itself; 0xFF means the real value follows as a
// little-endian u16.
func (r *Reader) ReadVarShort() (uint16, error) {
	first, err := r.ReadU8()
	if err != nil {
		return 0, err
	}
	if first < 0xFF {
		return uint16(first), nil
	}
	return r.ReadU16()
}

// ReadVarInt reads Factorio's VarInt encoding: a single byte below
// 0xFF is the value itself; 0xFF means the real value follows as a
// little-endian u32.
func (r *Reader) ReadVarInt() (uint32, error) {
	first, err := r.ReadU8()
	if err != nil {
		return 0, err
	}
	if first < 0xFF {
		return uint32(first), nil
	}
	return r.ReadU32()
}

// ReadLenPrefixed8 reads an 8-bit length prefix followed by that many bytes.
func (r *Reader) ReadLenPrefixed8() ([]byte, error) {
	n, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	return r.ReadBytes(int(n))
}

// ReadLenPrefixed16 reads a 16-bit little-endian length prefix followed
// by that many bytes.
func (r *Reader) ReadLenPrefixed16() ([]byte, error) {
	n, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	return r.ReadBytes(int(n))
}

// ReadFixed32 reads a signed fixed-point tile coordinate (§4.1).
func (r *Reader) ReadFixed32() (Fixed32, error) {
	v, err := r.ReadI32()
	return Fixed32(v), err
}
