package core

import (
	"os"
	"path/filepath"

	"chunkzip/pkg/progress"

	"github.com/pkg/errors"
)

// trialPattern names the disposable archive of the estimation pass
const trialPattern = "chunkzip-trial-*"

// Estimate is the outcome of the trial pass
type Estimate struct {
	Ratio             float64 // CompressedBytes / UncompressedBytes
	UncompressedBytes int64
	CompressedBytes   int64
	Files             int
}

// EstimateRatio writes every file the walker yields into a temporary
// container of format f, measures it, and deletes it again. The temporary
// file lives in tmpDir (os.TempDir when empty) and is removed on every
// return path.
func EstimateRatio(w *Walker, f Format, tmpDir string, tracker *progress.Tracker) (est Estimate, stats WalkStats, err error) {
	tmp, err := os.CreateTemp(tmpDir, trialPattern+f.Ext())
	if err != nil {
		return est, stats, errors.Wrap(err, "create trial archive")
	}
	trialPath := tmp.Name()
	defer func() {
		if rmErr := os.Remove(trialPath); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
			err = errors.Wrap(rmErr, "remove trial archive")
		}
	}()

	c, err := openContainer(tmp, f, tracker)
	if err != nil {
		_ = tmp.Close()
		return est, stats, err
	}

	// The trial file may sit inside the root when tmpDir points there
	absTrial, err := filepath.Abs(trialPath)
	if err != nil {
		_ = c.Close()
		return est, stats, errors.Wrap(err, "resolve trial archive path")
	}
	walker := *w
	walker.Ignore = func(abs string) bool {
		return abs == absTrial || (w.Ignore != nil && w.Ignore(abs))
	}

	stats, err = walker.Walk(func(entry FileEntry) error {
		_, addErr := c.Add(entry)
		return addErr
	})
	if err != nil {
		_ = c.Close()
		return est, stats, err
	}
	if err := c.Close(); err != nil {
		return est, stats, err
	}

	est = Estimate{
		UncompressedBytes: c.Bytes(),
		CompressedBytes:   c.Size(),
		Files:             c.Members(),
	}
	if est.Files == 0 || est.UncompressedBytes == 0 {
		return est, stats, errors.Wrapf(ErrNothingToArchive, "%d files, %d bytes selected", est.Files, est.UncompressedBytes)
	}
	est.Ratio = float64(est.CompressedBytes) / float64(est.UncompressedBytes)
	return est, stats, nil
}
