package wire

import "testing"

func TestReadPrimitivesLittleEndian(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07}
	r := NewReader(data)

	if v, err := r.ReadU8(); err != nil || v != 0x01 {
		t.Fatalf("ReadU8: got %v, %v", v, err)
	}
	if v, err := r.ReadU16(); err != nil || v != 0x0302 {
		t.Fatalf("ReadU16: got %#x, %v", v, err)
	}
	if v, err := r.ReadU32(); err != nil || v != 0x07060504 {
		t.Fatalf("ReadU32: got %#x, %v", v, err)
	}
	if r.Remaining() != 0 {
		t.Fatalf("expected buffer exhausted, %d bytes remain", r.Remaining())
	}
}

func TestReadShortRead(t *testing.T) {
	r := NewReader([]byte{0x01})
	if _, err := r.ReadU16(); err == nil {
		t.Fatal("expected ShortRead error reading past end of buffer")
	}
}

func TestVarShortRoundTrip(t *testing.T) {
	cases := []uint16{0, 1, 0xFE, 0xFF, 0x100, 0xFFFF}
	for _, v := range cases {
		w := NewWriter()
		w.WriteVarShort(v)
		r := NewReader(w.Bytes())
		got, err := r.ReadVarShort()
		if err != nil {
			t.Fatalf("value %d: %v", v, err)
		}
		if got != v {
			t.Fatalf("value %d: round-tripped as %d", v, got)
		}
		// Emit side always chooses the shortest form.
		wantLen := 1
		if v >= 0xFF {
			wantLen = 3
		}
		if len(w.Bytes()) != wantLen {
			t.Fatalf("value %d: expected %d-byte encoding, got %d", v, wantLen, len(w.Bytes()))
		}
	}
}

func TestVarIntRoundTrip(t *testing.T) {
	cases := []uint32{0, 1, 0xFE, 0xFF, 0x100, 0xFFFFFFFF}
	for _, v := range cases {
		w := NewWriter()
		w.WriteVarInt(v)
		r := NewReader(w.Bytes())
		got, err := r.ReadVarInt()
		if err != nil {
			t.Fatalf("value %d: %v", v, err)
		}
		if got != v {
			t.Fatalf("value %d: round-tripped as %d", v, got)
		}
		wantLen := 1
		if v >= 0xFF {
			wantLen = 5
		}
		if len(w.Bytes()) != wantLen {
			t.Fatalf("value %d: expected %d-byte encoding, got %d", v, wantLen, len(w.Bytes()))
		}
	}
}

func TestFixed32TileConversion(t *testing.T) {
	// 1.5 tiles = 384 units, matching the codec's observed fixture.
	f := Fixed32(384)
	if got := f.ToTiles(); got < 1.499 || got > 1.501 {
		t.Fatalf("expected ~1.5 tiles, got %f", got)
	}
	if got := FromTiles(1.5); got != 384 {
		t.Fatalf("expected 384 units, got %d", got)
	}
}

func TestLenPrefixedReads(t *testing.T) {
	w := NewWriter()
	w.WriteLenPrefixed8([]byte("iron-chest"))
	w.WriteLenPrefixed16([]byte("a longer field"))

	r := NewReader(w.Bytes())
	a, err := r.ReadLenPrefixed8()
	if err != nil || string(a) != "iron-chest" {
		t.Fatalf("ReadLenPrefixed8: got %q, %v", a, err)
	}
	b, err := r.ReadLenPrefixed16()
	if err != nil || string(b) != "a longer field" {
		t.Fatalf("ReadLenPrefixed16: got %q, %v", b, err)
	}
}
