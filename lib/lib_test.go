package lib

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressExtractRoundTrip(t *testing.T) {
	tmp := t.TempDir()
	root := filepath.Join(tmp, "site")
	rng := rand.New(rand.NewSource(7))
	want := map[string][]byte{}
	for _, name := range []string{"a.bin", "b.bin", "c/d.bin"} {
		data := make([]byte, 40<<10)
		rng.Read(data)
		want[name] = data
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, data, 0644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "cache"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "cache", "tmp"), []byte("x"), 0644))

	out := filepath.Join(tmp, "out")
	paths, err := Compress(root, out, "50KB", FormatTarZst, "cache")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(out, "site.tar.zst"),
		filepath.Join(out, "site_part1.tar.zst"),
		filepath.Join(out, "site_part2.tar.zst"),
	}, paths)

	dest := filepath.Join(tmp, "dest")
	require.NoError(t, Extract(paths[0], dest))
	for name, data := range want {
		got, err := os.ReadFile(filepath.Join(dest, filepath.FromSlash(name)))
		require.NoError(t, err)
		assert.Equal(t, data, got)
	}
	_, err = os.Stat(filepath.Join(dest, "cache", "tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestCompressRejectsBadSize(t *testing.T) {
	_, err := Compress(t.TempDir(), t.TempDir(), "huge", FormatZip)
	assert.Error(t, err)
}
