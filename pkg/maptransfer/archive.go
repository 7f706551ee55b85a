package maptransfer

import (
	"archive/zip"
	"bytes"
	"compress/zlib"
	"io"

	"github.com/tindalos-systems/factoriolink/pkg/ferrors"
)

// Archive is the reassembled map transfer decoded as a ZIP container
// (spec.md §4.6). Entries are level.dat0 through level.dat7,
// level-init.dat, script.dat, and optionally control.lua.
type Archive struct {
	zr *zip.Reader
}

// knownEntries lists the entry names this client understands; the
// archive may carry others (mod scripts) that are simply ignored.
var knownEntries = []string{
	"level.dat0", "level.dat1", "level.dat2", "level.dat3",
	"level.dat4", "level.dat5", "level.dat6", "level.dat7",
	"level-init.dat", "script.dat", "control.lua",
}

// OpenArchive parses buf as a ZIP container. It does not decompress
// any entry eagerly.
func OpenArchive(buf []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return nil, &ferrors.TransferCorrupt{Cause: err}
	}
	return &Archive{zr: zr}, nil
}

// Names returns the archive's entry names in ZIP directory order.
func (a *Archive) Names() []string {
	names := make([]string, 0, len(a.zr.File))
	for _, f := range a.zr.File {
		names = append(names, f.Name)
	}
	return names
}

// Has reports whether name is present in the archive.
func (a *Archive) Has(name string) bool {
	for _, f := range a.zr.File {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Open returns the fully decoded bytes of entry name: the ZIP
// container's own DEFLATE layer is unwrapped by archive/zip, and the
// resulting stream is zlib-decompressed again, matching the second
// compression layer the game applies internally to each level.dat*
// entry (spec.md §4.6). Decompression happens lazily, only when an
// entry is actually opened.
func (a *Archive) Open(name string) ([]byte, error) {
	var file *zip.File
	for _, f := range a.zr.File {
		if f.Name == name {
			file = f
			break
		}
	}
	if file == nil {
		return nil, &ferrors.TransferCorrupt{Cause: nil}
	}
	rc, err := file.Open()
	if err != nil {
		return nil, &ferrors.TransferCorrupt{Cause: err}
	}
	defer rc.Close()

	inner, err := zlib.NewReader(rc)
	if err != nil {
		return nil, &ferrors.TransferCorrupt{Cause: err}
	}
	defer inner.Close()

	data, err := io.ReadAll(inner)
	if err != nil {
		return nil, &ferrors.TransferCorrupt{Cause: err}
	}
	return data, nil
}

// KnownEntries returns the subset of Names that this client knows how
// to interpret.
func (a *Archive) KnownEntries() []string {
	var out []string
	for _, name := range knownEntries {
		if a.Has(name) {
			out = append(out, name)
		}
	}
	return out
}
