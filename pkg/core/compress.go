package core

import (
	"io"
	"os"
	"path/filepath"

	"chunkzip/pkg/progress"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
)

var discardLogger = log.New(io.Discard)

// Options configures one compress run
type Options struct {
	Root       string // Source directory, defaults to the working directory
	OutputDir  string // Where chunks are written, defaults to the working directory
	OutputName string // Chunk base name, defaults to the root's base name
	Format     Format
	ChunkSize  int64 // Estimated compressed bytes per chunk, 0 is unbounded
	Filter     FilterOptions
	MatchMode  MatchMode
	DryRun     bool   // Plan only, write no chunks
	Clean      bool   // Remove an existing chunk set of the same name before writing
	TempDir    string // Directory of the trial archive, defaults to os.TempDir

	Logger   *log.Logger
	Progress *progress.Tracker
}

// Chunk describes one finalized output file
type Chunk struct {
	Index             int
	Path              string
	Files             int
	UncompressedBytes int64
	EstimatedBytes    float64
	ActualBytes       int64
}

// Result summarizes a compress run
type Result struct {
	Root     string
	Patterns PatternSet
	Estimate Estimate
	Stats    WalkStats // Stats of the writing pass
	Chunks   []Chunk
	Removed  []string // Stale chunks deleted by Clean
}

// Compress archives opts.Root into size bounded chunks. A first pass writes
// every selected file into a disposable archive to measure the compression
// ratio; a second pass writes the chunks, predicting each file's compressed
// size from that ratio. Chunks finalized before an I/O error stay on disk.
// With Clean set, the previous chunk set is removed only once the input has
// been validated and measured, so a run that fails early leaves it intact.
func Compress(opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = discardLogger
	}

	if err := opts.Filter.Validate(); err != nil {
		return nil, err
	}
	format, err := ParseFormat(string(opts.Format))
	if err != nil {
		return nil, err
	}
	mode, err := ParseMatchMode(string(opts.MatchMode))
	if err != nil {
		return nil, err
	}
	if opts.ChunkSize < 0 {
		return nil, errors.Wrapf(ErrInvalidChunkSize, "%d", opts.ChunkSize)
	}

	root := opts.Root
	if root == "" {
		root = "."
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "resolve root")
	}
	if err := CheckRoot(root); err != nil {
		return nil, err
	}

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = "."
	}
	outputDir, err = filepath.Abs(outputDir)
	if err != nil {
		return nil, errors.Wrap(err, "resolve output directory")
	}
	base := opts.OutputName
	if base == "" {
		base = filepath.Base(root)
	}

	filter := opts.Filter
	if filter.DefaultExcludesFile == "" {
		filter.DefaultExcludesFile = filepath.Join(root, DefaultExcludesFileName)
	}
	patterns, err := ResolvePatterns(filter)
	if err != nil {
		return nil, err
	}
	logger.Debug("resolved exclude patterns", "patterns", patterns, "mode", mode)

	walker := &Walker{
		Root:    root,
		Matcher: NewMatcher(patterns, mode),
		Ignore:  outputIgnorer(outputDir, base, format),
		Logger:  logger,
	}

	opts.Progress.Start("estimating", 0)
	est, stats, err := EstimateRatio(walker, format, opts.TempDir, opts.Progress)
	opts.Progress.Stop()
	if err != nil {
		return nil, err
	}
	logger.Info("estimated compression ratio",
		"ratio", est.Ratio, "files", est.Files,
		"excluded", stats.Excluded, "skipped", stats.Skipped)

	result := &Result{Root: root, Patterns: patterns, Estimate: est}
	if opts.DryRun {
		entries, stats, err := walker.Entries()
		if err != nil {
			return nil, err
		}
		result.Stats = stats
		for _, pc := range PlanChunks(entries, est.Ratio, opts.ChunkSize) {
			result.Chunks = append(result.Chunks, Chunk{
				Index:             pc.Index,
				Path:              filepath.Join(outputDir, ChunkName(base, pc.Index, format)),
				Files:             len(pc.Entries),
				UncompressedBytes: pc.UncompressedBytes,
				EstimatedBytes:    pc.EstimatedBytes,
			})
		}
		return result, nil
	}

	if opts.Clean {
		removed, err := RemoveChunks(outputDir, base, format)
		result.Removed = removed
		if err != nil {
			return result, err
		}
		for _, p := range removed {
			logger.Info("removed stale chunk", "path", p)
		}
	}

	opts.Progress.Start("writing", uint64(est.UncompressedBytes))
	defer opts.Progress.Stop()

	w := &chunkWriter{
		dir:     outputDir,
		base:    base,
		format:  format,
		planner: NewPlanner(est.Ratio, opts.ChunkSize),
		tracker: opts.Progress,
		logger:  logger,
	}
	chunks, stats, err := w.run(walker)
	result.Chunks = chunks
	result.Stats = stats
	if err != nil {
		return result, err
	}
	return result, nil
}

// chunkWriter drives the planner during the writing pass and keeps exactly
// one container open at a time.
type chunkWriter struct {
	dir     string
	base    string
	format  Format
	planner *Planner
	tracker *progress.Tracker
	logger  *log.Logger

	current *Container
	chunks  []Chunk
}

func (w *chunkWriter) run(walker *Walker) ([]Chunk, WalkStats, error) {
	if err := w.open(0); err != nil {
		return nil, WalkStats{}, err
	}

	stats, err := walker.Walk(func(entry FileEntry) error {
		idx, rollover := w.planner.Place(entry.Size)
		if rollover {
			if err := w.finalize(); err != nil {
				return err
			}
			if err := w.open(idx); err != nil {
				return err
			}
		}
		_, err := w.current.Add(entry)
		return err
	})
	if err != nil {
		_ = w.current.Close()
		return w.chunks, stats, err
	}
	if err := w.finalize(); err != nil {
		return w.chunks, stats, err
	}
	return w.chunks, stats, nil
}

func (w *chunkWriter) open(index int) error {
	path := filepath.Join(w.dir, ChunkName(w.base, index, w.format))
	c, err := CreateContainer(path, w.format, w.tracker)
	if err != nil {
		return err
	}
	w.current = c
	w.chunks = append(w.chunks, Chunk{Index: index, Path: path})
	return nil
}

// finalize closes the open container and completes its Chunk record
func (w *chunkWriter) finalize() error {
	c := w.current
	chunk := &w.chunks[len(w.chunks)-1]
	// The planner has already moved on when a rollover triggered finalize,
	// so the estimate is recomputed from the container contents.
	chunk.EstimatedBytes = w.planner.Estimate(c.Bytes())
	if err := c.Close(); err != nil {
		return err
	}
	chunk.Files = c.Members()
	chunk.UncompressedBytes = c.Bytes()
	chunk.ActualBytes = c.Size()
	w.logger.Info("finalized chunk",
		"path", chunk.Path, "files", chunk.Files, "estimated", int64(chunk.EstimatedBytes), "actual", chunk.ActualBytes)
	return nil
}

// outputIgnorer hides this run's chunk files from the walk so a root that
// contains the output directory does not archive its own output.
func outputIgnorer(dir, base string, f Format) func(string) bool {
	return func(abs string) bool {
		if filepath.Dir(abs) != dir {
			return false
		}
		_, ok := parseChunkName(filepath.Base(abs), base, f)
		return ok
	}
}

// RemoveChunks deletes the chunk files of base in dir, starting at index 0
// and stopping at the first gap. It returns the removed paths.
func RemoveChunks(dir, base string, f Format) ([]string, error) {
	var removed []string
	for i := 0; ; i++ {
		path := filepath.Join(dir, ChunkName(base, i, f))
		err := os.Remove(path)
		if os.IsNotExist(err) {
			return removed, nil
		}
		if err != nil {
			return removed, errors.Wrapf(err, "remove %s", path)
		}
		removed = append(removed, path)
	}
}
