package savedecode

import (
	"encoding/binary"
	"testing"

	"github.com/tindalos-systems/factoriolink/pkg/wire"
)

func encodeEntity(id uint16, x, y int32) []byte {
	b := make([]byte, entityRecordSize)
	binary.LittleEndian.PutUint16(b[0:2], id)
	binary.LittleEndian.PutUint32(b[2:6], uint32(x))
	binary.LittleEndian.PutUint32(b[6:10], uint32(y))
	return b
}

func TestScanEntityRecordsAcceptsPlausibleRecord(t *testing.T) {
	x := int32(10 * wire.UnitsPerTile)
	y := int32(-20 * wire.UnitsPerTile)
	// Shift y by 1 unit so it's not a multiple of 65536.
	data := encodeEntity(200, x+1, y+1)
	found := ScanEntityRecords(data, 100, 300)
	if len(found) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(found))
	}
	if found[0].ID != 200 {
		t.Fatalf("id = %d", found[0].ID)
	}
}

func TestScanEntityRecordsRejectsOutOfIDRange(t *testing.T) {
	data := encodeEntity(50, 2561, 2561)
	found := ScanEntityRecords(data, 100, 300)
	if len(found) != 0 {
		t.Fatal("expected id out of range to be rejected")
	}
}

func TestScanEntityRecordsRejectsOrigin(t *testing.T) {
	data := encodeEntity(200, 0, 0)
	found := ScanEntityRecords(data, 100, 300)
	if len(found) != 0 {
		t.Fatal("expected (0,0) to be rejected")
	}
}

func TestScanEntityRecordsRejectsOutOfBounds(t *testing.T) {
	data := encodeEntity(200, 501*wire.UnitsPerTile+1, 1)
	found := ScanEntityRecords(data, 100, 300)
	if len(found) != 0 {
		t.Fatal("expected position beyond 500 tiles to be rejected")
	}
}

func TestScanEntityRecordsRejectsAlignedCoordinates(t *testing.T) {
	data := encodeEntity(200, 65536, 1)
	found := ScanEntityRecords(data, 100, 300)
	if len(found) != 0 {
		t.Fatal("expected coordinate divisible by 65536 to be rejected")
	}
}

func TestScanEntityRecordsRejectsTooCloseToOrigin(t *testing.T) {
	data := encodeEntity(200, 3, 3)
	found := ScanEntityRecords(data, 100, 300)
	if len(found) != 0 {
		t.Fatal("expected both coordinates within 4 tiles to be rejected")
	}
}

func TestScanEntityRecordsAdvancesPastAcceptedRecord(t *testing.T) {
	x := int32(10*wire.UnitsPerTile) + 1
	y := int32(-20*wire.UnitsPerTile) + 1
	one := encodeEntity(200, x, y)
	two := encodeEntity(201, x+7, y+7)
	data := append(append([]byte{}, one...), two...)

	found := ScanEntityRecords(data, 100, 300)
	if len(found) != 2 {
		t.Fatalf("expected both back-to-back records found, got %d: %v", len(found), found)
	}
	if found[0].ID != 200 || found[1].ID != 201 {
		t.Fatalf("ids = %d, %d", found[0].ID, found[1].ID)
	}
}

func TestEntityIDRangeEnumeratesNonOrePrototypes(t *testing.T) {
	prototypes := []Prototype{
		{Name: "iron-ore", ID: 135}, // ore kind, excluded from the entity range
		{Name: "iron-chest", ID: 42},
		{Name: "stone-furnace", ID: 109},
	}
	r := EntityIDRange(prototypes)
	if r.Min != 42 || r.Max != 109 {
		t.Fatalf("range = %+v, want [42, 109]", r)
	}
}

func TestEntityIDRangeEmptyWithoutPrototypes(t *testing.T) {
	r := EntityIDRange(nil)
	if r.Min <= r.Max {
		t.Fatalf("range = %+v, want an empty (non-matching) range", r)
	}
}
