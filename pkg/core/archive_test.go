package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkName(t *testing.T) {
	assert.Equal(t, "site.zip", ChunkName("site", 0, FormatZip))
	assert.Equal(t, "site_part1.zip", ChunkName("site", 1, FormatZip))
	assert.Equal(t, "site_part12.tar.zst", ChunkName("site", 12, FormatTarZst))
	assert.Equal(t, "my.app_part2.tar.lz4", ChunkName("my.app", 2, FormatTarLZ4))
}

func TestParseChunkName(t *testing.T) {
	tests := []struct {
		name  string
		index int
		ok    bool
	}{
		{"site.zip", 0, true},
		{"site_part1.zip", 1, true},
		{"site_part10.zip", 10, true},
		{"site_part0.zip", 0, false},
		{"site_part01.zip", 0, false},
		{"site_part.zip", 0, false},
		{"site_partx.zip", 0, false},
		{"site2.zip", 0, false},
		{"site.tar.zst", 0, false},
		{"other.zip", 0, false},
	}
	for _, tt := range tests {
		idx, ok := parseChunkName(tt.name, "site", FormatZip)
		assert.Equal(t, tt.ok, ok, tt.name)
		assert.Equal(t, tt.index, idx, tt.name)
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatZip, f)

	f, err = ParseFormat("TAR.ZST")
	require.NoError(t, err)
	assert.Equal(t, FormatTarZst, f)

	_, err = ParseFormat("7z")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestFindChunks(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"site.tar.lz4", "site_part1.tar.lz4", "site_part2.tar.lz4", "site_part4.tar.lz4"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}

	chunks, f, err := FindChunks(filepath.Join(dir, "site.tar.lz4"))
	require.NoError(t, err)
	assert.Equal(t, FormatTarLZ4, f)
	assert.Equal(t, []string{
		filepath.Join(dir, "site.tar.lz4"),
		filepath.Join(dir, "site_part1.tar.lz4"),
		filepath.Join(dir, "site_part2.tar.lz4"),
	}, chunks)

	_, _, err = FindChunks(filepath.Join(dir, "site.rar"))
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, _, err = FindChunks(filepath.Join(dir, "missing.zip"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestContainer_AddAfterClose(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string][]byte{"a.txt": []byte("a")})

	c, err := CreateContainer(filepath.Join(dir, "out", "x.zip"), FormatZip, nil)
	require.NoError(t, err)
	n, err := c.Add(FileEntry{AbsPath: filepath.Join(dir, "a.txt"), RelPath: "a.txt", Size: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Greater(t, c.Size(), int64(0))
	assert.Equal(t, 1, c.Members())

	_, err = c.Add(FileEntry{AbsPath: filepath.Join(dir, "a.txt"), RelPath: "a.txt", Size: 1})
	assert.Error(t, err)
}

func TestContainer_MissingSource(t *testing.T) {
	c, err := CreateContainer(filepath.Join(t.TempDir(), "x.tar.lz4"), FormatTarLZ4, nil)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Add(FileEntry{AbsPath: "/does/not/exist", RelPath: "gone"})
	assert.Error(t, err)
	assert.Equal(t, ClassIO, Classify(err))
}

func TestErrorClassString(t *testing.T) {
	assert.Equal(t, "configuration error", ClassConfig.String())
	assert.Equal(t, "missing input", ClassMissingInput.String())
	assert.Equal(t, "i/o error", ClassIO.String())
}
