package savedecode

import (
	"encoding/binary"
	"regexp"
)

// oreNamePattern matches the vanilla ore prototype names; only
// prototype entries matching it are trusted to label a tile ID. The
// observed table happens to assign these names IDs 135-139, but that
// band is incidental to this mod's table, not a wire constant -- the
// ore range used to scan and label tiles is always the set of IDs
// OreNamesByID resolves from the decoded prototype table, never a
// fixed band.
var oreNamePattern = regexp.MustCompile(`^(iron-ore|copper-ore|coal|stone|uranium-ore)$`)

// ScanResourceTiles reads data as a dense little-endian u16 array and
// counts how many tiles carry each ID present in names, the
// prototype-table-derived ore ID set OreNamesByID produces for this
// session. It returns raw per-ID counts; callers resolve ID -> ore
// name via names itself (see NamedResourceTotals).
func ScanResourceTiles(data []byte, names map[uint16]string) map[uint16]int {
	counts := make(map[uint16]int)
	for i := 0; i+2 <= len(data); i += 2 {
		id := binary.LittleEndian.Uint16(data[i : i+2])
		if _, ok := names[id]; ok {
			counts[id]++
		}
	}
	return counts
}

// OreNamesByID resolves decoded prototype entries whose name matches a
// known ore pattern into the ID -> name table this session's
// ScanResourceTiles and EntityIDRange both key off of.
func OreNamesByID(prototypes []Prototype) map[uint16]string {
	names := make(map[uint16]string)
	for _, p := range prototypes {
		if !oreNamePattern.MatchString(p.Name) {
			continue
		}
		names[p.ID] = p.Name
	}
	return names
}

// NamedResourceTotals combines raw per-ID tile counts with the
// resolved ID -> name table into a final name -> tile count map, the
// shape WorldSnapshot exposes.
func NamedResourceTotals(counts map[uint16]int, names map[uint16]string) map[string]int {
	totals := make(map[string]int, len(names))
	for id, count := range counts {
		name, ok := names[id]
		if !ok {
			continue
		}
		totals[name] += count
	}
	return totals
}
