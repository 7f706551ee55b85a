// Package savedecode implements the heuristic level.dat* byte scanner
// (spec.md §4.7): it does not parse a structured format, it looks for
// recognizable shapes in the raw bytes and keeps what plausibly
// matches, the way a reverse-engineered dump tool would.
package savedecode

import "github.com/tindalos-systems/factoriolink/pkg/ferrors"

// Prototype is one decoded `[len:u8][name][id:u16]` prototype table
// entry (spec.md §4.7).
type Prototype struct {
	Name string
	ID   uint16
}

// anchorNames are prototype names known to appear in every vanilla
// save; at least one must be found for a scan to be trusted, guarding
// against scanning a buffer that merely happens to contain
// identifier-shaped noise.
var anchorNames = map[string]struct{}{
	"tree-01":  {},
	"iron-ore": {},
	"coal":     {},
}

const (
	minNameLen = 1
	maxNameLen = 64
)

func isNameByte(b byte) bool {
	switch {
	case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9':
		return true
	case b == '_' || b == '-':
		return true
	default:
		return false
	}
}

// ScanPrototypeTable slides a byte cursor across data looking for
// `[len:u8][name bytes][id:u16 LE]` shapes, matching spec.md's
// description of a heuristic (not structured) prototype table scan.
// Matches found before the first anchor name are header noise and are
// discarded rather than kept, since nothing before that point has been
// shown to be the prototype table at all; it returns
// ferrors.DecoderRejected if no anchor name was ever found, since then
// the whole scan is untrusted.
func ScanPrototypeTable(data []byte) ([]Prototype, error) {
	var found []Prototype
	sawAnchor := false

	for i := 0; i+1 < len(data); i++ {
		nameLen := int(data[i])
		if nameLen < minNameLen || nameLen > maxNameLen {
			continue
		}
		nameStart := i + 1
		nameEnd := nameStart + nameLen
		if nameEnd+2 > len(data) {
			continue
		}
		name := data[nameStart:nameEnd]
		if !allNameBytes(name) {
			continue
		}
		id := uint16(data[nameEnd]) | uint16(data[nameEnd+1])<<8

		s := string(name)
		if _, ok := anchorNames[s]; ok {
			sawAnchor = true
		}
		if !sawAnchor {
			// Header noise ahead of the first anchor; the scan isn't
			// reading the prototype table yet, so nothing found here
			// is kept.
			continue
		}
		found = append(found, Prototype{Name: s, ID: id})
	}

	if !sawAnchor {
		return nil, &ferrors.DecoderRejected{Entry: "prototype-table", Cause: errNoAnchor}
	}
	return found, nil
}

func allNameBytes(b []byte) bool {
	for _, c := range b {
		if !isNameByte(c) {
			return false
		}
	}
	return true
}

var errNoAnchor = anchorMissingError{}

type anchorMissingError struct{}

func (anchorMissingError) Error() string {
	return "no anchor prototype name found in buffer; scan is untrusted"
}
