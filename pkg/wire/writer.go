package wire

import "encoding/binary"

// Writer is an appending writer into a growing byte buffer. The zero
// value is ready to use.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with capacity preallocated for a typical
// small protocol message.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 64)}
}

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

// WriteBytes appends raw bytes verbatim.
func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// WriteU8 appends one byte.
func (w *Writer) WriteU8(v uint8) {
	w.buf = append(w.buf, v)
}

// WriteBool appends 1 or 0.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteU8(1)
	} else {
		w.WriteU8(0)
	}
}

// WriteU16 appends a little-endian unsigned 16-bit integer.
func (w *Writer) WriteU16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteU32 appends a little-endian unsigned 32-bit integer.
func (w *Writer) WriteU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteI32 appends a little-endian signed 32-bit integer.
func (w *Writer) WriteI32(v int32) {
	w.WriteU32(uint32(v))
}

// WriteVarShort emits the shortest VarShort encoding of v (§4.1):
// a single byte if v < 0xFF, otherwise a 0xFF marker and a u16.
func (w *Writer) WriteVarShort(v uint16) {
	if v < 0xFF {
		w.WriteU8(uint8(v))
		return
	}
	w.WriteU8(0xFF)
	w.WriteU16(v)
}

// WriteVarInt emits the shortest VarInt encoding of v (§4.1): a single
// byte if v < 0xFF, otherwise a 0xFF marker and a u32.
func (w *Writer) WriteVarInt(v uint32) {
	if v < 0xFF {
		w.WriteU8(uint8(v))
		return
	}
	w.WriteU8(0xFF)
	w.WriteU32(v)
}

// WriteLenPrefixed8 writes an 8-bit length prefix followed by b. It
// does not check len(b): above 255 the prefix is silently truncated,
// so callers keep len(b) <= 255.
func (w *Writer) WriteLenPrefixed8(b []byte) {
	w.WriteU8(uint8(len(b)))
	w.WriteBytes(b)
}

// WriteLenPrefixed16 writes a 16-bit length prefix followed by b.
func (w *Writer) WriteLenPrefixed16(b []byte) {
	w.WriteU16(uint16(len(b)))
	w.WriteBytes(b)
}

// WriteFixed32 writes a signed fixed-point tile coordinate (§4.1).
func (w *Writer) WriteFixed32(v Fixed32) {
	w.WriteI32(int32(v))
}
