package savedecode

import (
	"go.uber.org/multierr"

	"github.com/tindalos-systems/factoriolink/pkg/ferrors"
)

// WorldSnapshot is the decoded, read-only view of the reassembled
// map transfer (spec.md §4.7, §5 WorldReady event payload).
type WorldSnapshot struct {
	Prototypes    []Prototype
	Entities      []EntityRecord
	ResourceTiles map[string]int
	Truncated     bool
}

// KnownIDRange bounds the entity IDs ScanEntityRecords treats as
// candidates. It is always derived from the prototype table decoded
// in the same Decode call (see EntityIDRange), never hardcoded, since
// a save's ID assignment is mod-dependent.
type KnownIDRange struct {
	Min, Max uint16
}

// Decode builds a WorldSnapshot from the archive entries spec.md
// §4.6 reassembles, applying the prototype, entity, and resource-tile
// scanners to whichever entries are present. The entity ID range and
// the ore ID set are both enumerated from the prototype table decoded
// in this same call, not fixed ahead of time. A failure decoding one
// entry does not abort the others: every such failure is collected
// via multierr and returned alongside the partial snapshot, matching
// spec.md §7 ("per-entry decode errors are aggregated; the snapshot
// still fires WorldReady with whatever did decode").
func Decode(entries map[string][]byte, maxEntities int) (WorldSnapshot, error) {
	var snap WorldSnapshot
	var errs error

	var prototypes []Prototype
	for _, entryName := range []string{"level.dat0", "level-init.dat"} {
		data, ok := entries[entryName]
		if !ok {
			continue
		}
		found, err := ScanPrototypeTable(data)
		if err != nil {
			errs = multierr.Append(errs, &ferrors.DecoderRejected{Entry: entryName, Cause: err})
			continue
		}
		prototypes = append(prototypes, found...)
	}
	snap.Prototypes = prototypes

	idRange := EntityIDRange(prototypes)
	var entities []EntityRecord
	for i := 0; i <= 7; i++ {
		name := entryNameForIndex(i)
		data, ok := entries[name]
		if !ok {
			continue
		}
		found := ScanEntityRecords(data, idRange.Min, idRange.Max)
		entities = append(entities, found...)
	}
	if maxEntities > 0 && len(entities) > maxEntities {
		entities = entities[:maxEntities]
		snap.Truncated = true
	}
	snap.Entities = entities

	names := OreNamesByID(prototypes)
	totals := make(map[string]int)
	for _, name := range []string{"level.dat1", "level.dat2"} {
		data, ok := entries[name]
		if !ok {
			continue
		}
		counts := ScanResourceTiles(data, names)
		for oreName, count := range NamedResourceTotals(counts, names) {
			totals[oreName] += count
		}
	}
	snap.ResourceTiles = totals

	return snap, errs
}

func entryNameForIndex(i int) string {
	const digits = "01234567"
	return "level.dat" + string(digits[i])
}
