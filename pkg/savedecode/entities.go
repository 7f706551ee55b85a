package savedecode

import (
	"encoding/binary"

	"github.com/tindalos-systems/factoriolink/pkg/wire"
)

// EntityRecord is one decoded `[id:u16][x:i32][y:i32]` candidate
// (spec.md §4.7).
type EntityRecord struct {
	ID   uint16
	X, Y wire.Fixed32
}

const (
	entityRecordSize  = 2 + 4 + 4
	maxEntityTiles    = 500
	minEntityMagTiles = 4
	fixed32UnitsAlign = 65536
)

// ScanEntityRecords slides a 10-byte window across data looking for
// `[id][x][y]` shapes whose id falls within [idMin, idMax], applying
// the five acceptance filters spec.md §4.7 calls out: nonzero
// position, within ±500 tiles of the origin, neither coordinate a
// multiple of 65536 raw units (a strong signal of scanning misaligned
// padding rather than a real record), and at least one coordinate
// whose magnitude exceeds 4 tiles (filters near-origin scanner noise).
// Once a window is accepted the cursor skips past it before resuming
// the scan, rather than re-testing the bytes it just consumed as a
// new candidate (spec.md §4.7's tie-break rule).
func ScanEntityRecords(data []byte, idMin, idMax uint16) []EntityRecord {
	var found []EntityRecord
	for i := 0; i+entityRecordSize <= len(data); i++ {
		id := binary.LittleEndian.Uint16(data[i : i+2])
		if id < idMin || id > idMax {
			continue
		}
		x := int32(binary.LittleEndian.Uint32(data[i+2 : i+6]))
		y := int32(binary.LittleEndian.Uint32(data[i+6 : i+10]))

		if x == 0 && y == 0 {
			continue
		}
		if abs32(x) > maxEntityTiles*wire.UnitsPerTile || abs32(y) > maxEntityTiles*wire.UnitsPerTile {
			continue
		}
		if x%fixed32UnitsAlign == 0 || y%fixed32UnitsAlign == 0 {
			continue
		}
		if abs32(x) <= minEntityMagTiles*wire.UnitsPerTile && abs32(y) <= minEntityMagTiles*wire.UnitsPerTile {
			continue
		}

		found = append(found, EntityRecord{ID: id, X: wire.Fixed32(x), Y: wire.Fixed32(y)})
		i += entityRecordSize - 1
	}
	return found
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// EntityIDRange enumerates the prototype table by kind, returning the
// [min, max] span of IDs belonging to entity-like prototypes -- every
// decoded prototype except the ones OreNamesByID claims for the ore
// kind. A save's ID assignment is mod-dependent, so this is computed
// fresh per decoded table rather than held as a constant; an empty
// table yields a range that rejects every candidate.
func EntityIDRange(prototypes []Prototype) KnownIDRange {
	r := KnownIDRange{Min: 1, Max: 0}
	haveAny := false
	for _, p := range prototypes {
		if oreNamePattern.MatchString(p.Name) {
			continue
		}
		if !haveAny {
			r.Min, r.Max = p.ID, p.ID
			haveAny = true
			continue
		}
		if p.ID < r.Min {
			r.Min = p.ID
		}
		if p.ID > r.Max {
			r.Max = p.ID
		}
	}
	return r
}
