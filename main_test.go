package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"chunkzip/pkg/core"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the CLI in an isolated working directory and returns stdout
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a := &app{stderr: &bytes.Buffer{}}
	cmd := a.rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--quiet"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	return dir
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func TestCompressAndExtract(t *testing.T) {
	dir := isolate(t)
	src := filepath.Join(dir, "MyProject")
	writeFile(t, filepath.Join(src, "index.php"), []byte("<?php echo 1;"))
	writeFile(t, filepath.Join(src, "node_modules", "x.js"), []byte("x"))
	writeFile(t, filepath.Join(src, "lang", "en.json"), []byte("{}"))

	out, err := run(t, "compress", src, "--output-dir", "dist", "-e", "node_modules,lang", "-i", "lang")
	require.NoError(t, err)
	assert.Contains(t, out, "Selected 2 files")
	assert.Contains(t, out, "archived into 1 chunk(s)")

	_, err = os.Stat(filepath.Join(dir, "dist", "MyProject.zip"))
	require.NoError(t, err)

	out, err = run(t, "extract", filepath.Join("dist", "MyProject.zip"), "unpacked")
	require.NoError(t, err)
	assert.Contains(t, out, "Extracted 2 files")
	_, err = os.Stat(filepath.Join(dir, "unpacked", "lang", "en.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "unpacked", "node_modules", "x.js"))
	assert.True(t, os.IsNotExist(err))
}

func TestCompress_ExcludeAndExcludesFileConflict(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "src", "a.txt"), []byte("a"))
	writeFile(t, filepath.Join(dir, "excludes"), []byte("x\n"))

	_, err := run(t, "compress", "src", "-e", "x", "--excludes-file", "excludes")
	require.Error(t, err)
	assert.Equal(t, exitConfig, exitCode(err))
	assert.ErrorIs(t, err, core.ErrConflictingExcludes)

	_, statErr := os.Stat(filepath.Join(dir, "src.zip"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCompress_EmptyExcludeStillConflicts(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "src", "a.txt"), []byte("a"))
	writeFile(t, filepath.Join(dir, "excludes"), []byte("x\n"))

	_, err := run(t, "compress", "src", "-e", "", "--excludes-file", "excludes")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConflictingExcludes)
}

func TestCompress_InvalidChunkSize(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "src", "a.txt"), []byte("a"))

	_, err := run(t, "compress", "src", "--chunk-size", "lots")
	require.Error(t, err)
	assert.Equal(t, exitConfig, exitCode(err))
}

func TestCompress_MissingRoot(t *testing.T) {
	isolate(t)
	_, err := run(t, "compress", "nowhere")
	require.Error(t, err)
	assert.Equal(t, exitMissingInput, exitCode(err))
}

func TestCompress_ConfigFileDefaults(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".chunkzip.yaml"), []byte("excludes: [secret]\noutput_name: bundle\nformat: tar.lz4\n"))
	writeFile(t, filepath.Join(dir, "src", "secret", "key.pem"), []byte("k"))
	writeFile(t, filepath.Join(dir, "src", "app.go"), []byte("package app"))

	out, err := run(t, "compress", "src", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Selected 1 files")
	assert.Contains(t, out, "would write bundle.tar.lz4")
	_, statErr := os.Stat(filepath.Join(dir, "bundle.tar.lz4"))
	assert.True(t, os.IsNotExist(statErr))

	// flags win over the config file
	_, err = run(t, "compress", "src", "-f", "zip", "-o", "custom")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "custom.zip"))
	assert.NoError(t, err)
}

func TestCompress_CleanRemovesStaleChunks(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "src", "a.txt"), []byte("a"))
	writeFile(t, filepath.Join(dir, "src_part1.zip"), []byte("stale"))
	writeFile(t, filepath.Join(dir, "src.zip"), []byte("stale"))

	_, err := run(t, "compress", "src", "--clean")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "src_part1.zip"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "src.zip"))
	assert.NoError(t, err)
}

func TestCompress_CleanKeepsChunksWhenRunFails(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "proj", "a.txt"), []byte("a"))
	_, err := run(t, "compress", "proj", "--output-dir", "dist")
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, "proj", "a.txt")))
	_, err = run(t, "compress", "proj", "--output-dir", "dist", "--clean")
	require.Error(t, err)
	assert.Equal(t, exitMissingInput, exitCode(err))
	_, err = os.Stat(filepath.Join(dir, "dist", "proj.zip"))
	assert.NoError(t, err)
}

func TestExcludesInit(t *testing.T) {
	dir := isolate(t)

	out, err := run(t, "excludes", "init")
	require.NoError(t, err)
	assert.Contains(t, out, core.DefaultExcludesFileName)

	_, err = run(t, "excludes", "init")
	require.Error(t, err)
	assert.Equal(t, exitConfig, exitCode(err))

	_, err = run(t, "excludes", "init", "--force", "--defaults", "dist,build")
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dir, core.DefaultExcludesFileName))
	require.NoError(t, err)
	assert.Equal(t, "dist\nbuild\n", string(data))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 1, exitCode(assert.AnError))
	assert.Equal(t, exitMissingInput, exitCode(wrapExit(core.ErrNothingToArchive)))
	assert.Equal(t, exitIO, exitCode(wrapExit(assert.AnError)))
	assert.NoError(t, wrapExit(nil))
	assert.Equal(t, exitConfig, exitCode(errors.Wrap(&ExitError{Code: exitConfig}, "compress")))
}
