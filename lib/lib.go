// Package lib is a small convenience API over pkg/core for programs that
// embed chunkzip and only need default behavior.
package lib

import (
	"chunkzip/pkg/core"
)

// Re-exported from core
type (
	Format = core.Format
	Chunk  = core.Chunk
)

// Re-exported formats
const (
	FormatZip    = core.FormatZip
	FormatTarLZ4 = core.FormatTarLZ4
	FormatTarZst = core.FormatTarZst
)

// Compress archives root into outputDir using chunkSize (e.g. "60MB", "" for
// a single chunk). Excludes work as on the command line without a config
// file: the root's excludes file is read if present. It returns the chunk
// paths in index order.
func Compress(root, outputDir, chunkSize string, format Format, excludes ...string) ([]string, error) {
	size, err := core.ParseChunkSize(chunkSize)
	if err != nil {
		return nil, err
	}
	result, err := core.Compress(core.Options{
		Root:      root,
		OutputDir: outputDir,
		Format:    format,
		ChunkSize: size,
		Filter:    core.FilterOptions{Excludes: excludes},
	})
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(result.Chunks))
	for _, c := range result.Chunks {
		paths = append(paths, c.Path)
	}
	return paths, nil
}

// Extract unpacks the chunk set starting at firstChunk into dest
func Extract(firstChunk, dest string) error {
	_, err := core.Extract(core.ExtractOptions{Archive: firstChunk, DestDir: dest})
	return err
}
