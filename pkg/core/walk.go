package core

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
)

// WalkStats counts what a single enumeration pass saw
type WalkStats struct {
	Files     int   // Files passed to the callback
	Bytes     int64 // Sum of their sizes
	Excluded  int   // Files and pruned directories matched by an exclude pattern
	Skipped   int   // Unreadable files and directories
	Irregular int   // Symlinks, devices, sockets and pipes
}

// Walker enumerates the regular, readable files below Root
type Walker struct {
	Root    string
	Matcher *Matcher
	// Ignore hides absolute paths from the walk, e.g. the run's own output.
	Ignore func(absPath string) bool
	Logger *log.Logger
}

// CheckRoot verifies that root exists and is a directory
func CheckRoot(root string) error {
	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		return errors.Wrapf(ErrRootNotFound, "%s", root)
	}
	if err != nil {
		return errors.Wrapf(err, "stat root %s", root)
	}
	if !info.IsDir() {
		return errors.Wrapf(ErrRootNotDir, "%s", root)
	}
	return nil
}

// Walk calls fn for every selected file in lexical order. Each call walks the
// tree again. An error returned by fn stops the walk and is returned as is.
func (w *Walker) Walk(fn func(FileEntry) error) (WalkStats, error) {
	var stats WalkStats
	logger := w.Logger
	if logger == nil {
		logger = discardLogger
	}

	root, err := filepath.Abs(w.Root)
	if err != nil {
		return stats, errors.Wrapf(err, "resolve root %s", w.Root)
	}
	if err := CheckRoot(root); err != nil {
		return stats, err
	}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if path == root {
			if err != nil {
				return errors.Wrapf(err, "read root %s", root)
			}
			return nil
		}

		rel := relativePath(root, path)
		if err != nil {
			stats.Skipped++
			logger.Debug("skipping unreadable entry", "path", rel, "err", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if w.Matcher.PruneDir(rel) {
				stats.Excluded++
				logger.Debug("excluded directory", "path", rel)
				return fs.SkipDir
			}
			return nil
		}

		if w.Ignore != nil && w.Ignore(path) {
			return nil
		}
		if w.Matcher.Excluded(rel) {
			stats.Excluded++
			logger.Debug("excluded file", "path", rel)
			return nil
		}
		if !d.Type().IsRegular() {
			stats.Irregular++
			logger.Debug("skipping irregular file", "path", rel, "type", d.Type().String())
			return nil
		}

		info, err := d.Info()
		if err != nil {
			stats.Skipped++
			logger.Debug("skipping file without info", "path", rel, "err", err)
			return nil
		}
		if !readable(path) {
			stats.Skipped++
			logger.Debug("skipping unreadable file", "path", rel)
			return nil
		}

		stats.Files++
		stats.Bytes += info.Size()
		return fn(FileEntry{AbsPath: path, RelPath: rel, Size: info.Size()})
	})
	return stats, walkErr
}

// Entries collects a full walk into a slice
func (w *Walker) Entries() ([]FileEntry, WalkStats, error) {
	var entries []FileEntry
	stats, err := w.Walk(func(e FileEntry) error {
		entries = append(entries, e)
		return nil
	})
	return entries, stats, err
}

// relativePath strips root and any leading separator and returns a
// slash-separated path.
func relativePath(root, path string) string {
	rel := strings.TrimPrefix(path, root)
	rel = strings.TrimLeft(rel, string(filepath.Separator))
	return filepath.ToSlash(rel)
}

func readable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}
