package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateExcludesFile(t *testing.T) {
	dir := t.TempDir()

	path, err := GenerateExcludesFile(dir, nil, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DefaultExcludesFileName), path)

	patterns, err := ReadPatternsFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultExcludes, patterns)

	_, err = GenerateExcludesFile(dir, []string{"dist"}, false)
	assert.ErrorIs(t, err, ErrExcludesFileExists)

	_, err = GenerateExcludesFile(dir, []string{" dist ", "", "build"}, true)
	require.NoError(t, err)
	patterns, err = ReadPatternsFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"dist", "build"}, patterns)
}

func TestGenerateExcludesFile_MissingDir(t *testing.T) {
	_, err := GenerateExcludesFile(filepath.Join(t.TempDir(), "nope"), nil, false)
	assert.ErrorIs(t, err, ErrRootNotFound)
}

func TestGeneratedFileIsPickedUp(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string][]byte{
		"node_modules/a.js": []byte("a"),
		"index.js":          []byte("b"),
	})
	_, err := GenerateExcludesFile(root, nil, false)
	require.NoError(t, err)

	patterns, err := ResolvePatterns(FilterOptions{DefaultExcludesFile: filepath.Join(root, DefaultExcludesFileName)})
	require.NoError(t, err)
	w := &Walker{Root: root, Matcher: NewMatcher(patterns, MatchSegment)}
	entries, _, err := w.Entries()
	require.NoError(t, err)
	assert.Equal(t, []string{"index.js"}, relPaths(entries))

	_, err = os.Stat(filepath.Join(root, DefaultExcludesFileName))
	require.NoError(t, err)
}
