package core

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Format identifies the container type of the output chunks
type Format string

const (
	FormatZip    Format = "zip"     // Deflate-compressed zip (default)
	FormatTarLZ4 Format = "tar.lz4" // Tar stream inside an LZ4 frame
	FormatTarZst Format = "tar.zst" // Tar stream inside a zstd frame
)

// DefaultFormat is used when no format is configured
const DefaultFormat = FormatZip

// Formats lists every supported container format
var Formats = []Format{FormatZip, FormatTarLZ4, FormatTarZst}

// ParseFormat validates a format name. An empty name selects DefaultFormat.
func ParseFormat(name string) (Format, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return DefaultFormat, nil
	}
	for _, f := range Formats {
		if string(f) == name {
			return f, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownFormat, "format %q", name)
}

// Ext returns the file extension, including the leading dot
func (f Format) Ext() string {
	return "." + string(f)
}

// FileEntry is one regular file selected for archiving
type FileEntry struct {
	AbsPath string // Full file path on disk
	RelPath string // Slash-separated path relative to the root, used as member name
	Size    int64  // Size in bytes at enumeration time
}

// ChunkName returns the file name of chunk index for base. The first chunk is
// unsuffixed, later ones get _part{index}.
func ChunkName(base string, index int, f Format) string {
	if index == 0 {
		return base + f.Ext()
	}
	return base + "_part" + strconv.Itoa(index) + f.Ext()
}

// parseChunkName reports whether name is a chunk file of base in format f and
// returns its index.
func parseChunkName(name, base string, f Format) (int, bool) {
	if !strings.HasPrefix(name, base) || !strings.HasSuffix(name, f.Ext()) {
		return 0, false
	}
	middle := strings.TrimSuffix(strings.TrimPrefix(name, base), f.Ext())
	if middle == "" {
		return 0, true
	}
	digits, ok := strings.CutPrefix(middle, "_part")
	if !ok || digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 || strconv.Itoa(n) != digits {
		return 0, false
	}
	return n, true
}

// splitChunkPath splits the path of a first chunk into directory, base name
// and format.
func splitChunkPath(path string) (dir, base string, f Format, err error) {
	dir, name := filepath.Split(path)
	for _, candidate := range Formats {
		if b, ok := strings.CutSuffix(name, candidate.Ext()); ok && b != "" {
			return dir, b, candidate, nil
		}
	}
	return "", "", "", errors.Wrapf(ErrUnknownFormat, "infer format of %s", path)
}
