package wire

// Fixed32 is a signed 32-bit fixed-point tile coordinate: 256 units
// equal one tile (§4.1, GLOSSARY). Conversion to/from the integer unit
// space is exact; the float form is advisory only.
type Fixed32 int32

// UnitsPerTile is the fixed-point scale factor.
const UnitsPerTile = 256

// FromTiles constructs a Fixed32 from a tile-space float. Advisory:
// precision beyond 1/256 of a tile is lost.
func FromTiles(tiles float64) Fixed32 {
	return Fixed32(int32(tiles * UnitsPerTile))
}

// ToTiles converts back to a tile-space float for display purposes.
func (f Fixed32) ToTiles() float64 {
	return float64(f) / UnitsPerTile
}

// Raw returns the underlying integer unit value.
func (f Fixed32) Raw() int32 { return int32(f) }
