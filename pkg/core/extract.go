package core

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"chunkzip/pkg/progress"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ExtractOptions configures an extraction
type ExtractOptions struct {
	Archive  string // Path of the first chunk (the unsuffixed one)
	DestDir  string // Defaults to the working directory
	Logger   *log.Logger
	Progress *progress.Tracker
}

// ExtractResult lists what was extracted
type ExtractResult struct {
	Chunks []string
	Stale  []string // Parts older than the first chunk, likely left by an earlier run
	Files  int
	Bytes  int64
}

// FindChunks returns the contiguous chunk set starting at first, which must
// be the unsuffixed chunk. Discovery stops at the first missing index.
func FindChunks(first string) ([]string, Format, error) {
	dir, base, f, err := splitChunkPath(first)
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(first); err != nil {
		return nil, "", errors.Wrapf(err, "stat %s", first)
	}
	chunks := []string{first}
	for i := 1; ; i++ {
		path := filepath.Join(dir, ChunkName(base, i, f))
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return chunks, f, nil
			}
			return nil, "", errors.Wrapf(err, "stat %s", path)
		}
		chunks = append(chunks, path)
	}
}

// staleChunks returns the parts of a chunk set whose modification time is
// before that of the first chunk. A rerun that writes fewer parts without
// --clean leaves such files behind.
func staleChunks(chunks []string) ([]string, error) {
	first, err := os.Stat(chunks[0])
	if err != nil {
		return nil, errors.Wrapf(err, "stat %s", chunks[0])
	}
	var stale []string
	for _, path := range chunks[1:] {
		info, err := os.Stat(path)
		if err != nil {
			return nil, errors.Wrapf(err, "stat %s", path)
		}
		if info.ModTime().Before(first.ModTime()) {
			stale = append(stale, path)
		}
	}
	return stale, nil
}

// Extract unpacks every chunk of a set into DestDir, one goroutine per
// chunk bounded by the number of CPUs. Parts older than the first chunk are
// still extracted but reported in the result and logged as warnings.
func Extract(opts ExtractOptions) (*ExtractResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = discardLogger
	}
	chunks, f, err := FindChunks(opts.Archive)
	if err != nil {
		return nil, err
	}
	stale, err := staleChunks(chunks)
	if err != nil {
		return nil, err
	}
	for _, path := range stale {
		logger.Warn("chunk is older than the first chunk of the set", "path", path)
	}

	dest := opts.DestDir
	if dest == "" {
		dest = "."
	}
	dest, err = filepath.Abs(dest)
	if err != nil {
		return nil, errors.Wrap(err, "resolve destination")
	}
	if err := os.MkdirAll(dest, 0755); err != nil {
		return nil, errors.Wrapf(err, "create destination %s", dest)
	}

	var (
		mu     sync.Mutex
		result = &ExtractResult{Chunks: chunks, Stale: stale}
	)
	g := new(errgroup.Group)
	g.SetLimit(runtime.NumCPU())
	for _, chunk := range chunks {
		g.Go(func() error {
			files, n, err := extractChunk(chunk, f, dest, opts.Progress)
			if err != nil {
				return errors.Wrapf(err, "extract %s", chunk)
			}
			logger.Debug("extracted chunk", "path", chunk, "files", files, "bytes", n)
			mu.Lock()
			result.Files += files
			result.Bytes += n
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

func extractChunk(path string, f Format, dest string, tracker *progress.Tracker) (int, int64, error) {
	if f == FormatZip {
		return extractZip(path, dest, tracker)
	}

	file, err := os.Open(path)
	if err != nil {
		return 0, 0, errors.Wrap(err, "open chunk")
	}
	defer file.Close()

	var r io.Reader
	switch f {
	case FormatTarLZ4:
		r = lz4.NewReader(file)
	case FormatTarZst:
		dec, err := zstd.NewReader(file, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return 0, 0, errors.Wrap(err, "create zstd decoder")
		}
		defer dec.Close()
		r = dec
	default:
		return 0, 0, errors.Wrapf(ErrUnknownFormat, "format %q", f)
	}
	return extractTar(tar.NewReader(r), dest, tracker)
}

func extractZip(path, dest string, tracker *progress.Tracker) (int, int64, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return 0, 0, errors.Wrap(err, "open zip")
	}
	defer zr.Close()

	var files int
	var total int64
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		target, err := memberPath(dest, zf.Name)
		if err != nil {
			return files, total, err
		}
		rc, err := zf.Open()
		if err != nil {
			return files, total, errors.Wrapf(err, "open member %s", zf.Name)
		}
		n, err := writeMember(target, rc, zf.Mode(), tracker)
		_ = rc.Close()
		if err != nil {
			return files, total, err
		}
		files++
		total += n
	}
	return files, total, nil
}

func extractTar(tr *tar.Reader, dest string, tracker *progress.Tracker) (int, int64, error) {
	var files int
	var total int64
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return files, total, nil
		}
		if err != nil {
			return files, total, errors.Wrap(err, "read tar header")
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		target, err := memberPath(dest, hdr.Name)
		if err != nil {
			return files, total, err
		}
		n, err := writeMember(target, tr, hdr.FileInfo().Mode(), tracker)
		if err != nil {
			return files, total, err
		}
		files++
		total += n
	}
}

// memberPath joins name onto dest and rejects names escaping dest
func memberPath(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", errors.Errorf("invalid member path %q", name)
	}
	return target, nil
}

func writeMember(target string, r io.Reader, mode os.FileMode, tracker *progress.Tracker) (n int64, err error) {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return 0, errors.Wrapf(err, "create parent of %s", target)
	}
	perm := mode.Perm()
	if perm == 0 {
		perm = 0644
	}
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return 0, errors.Wrapf(err, "create %s", target)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = errors.Wrapf(closeErr, "close %s", target)
		}
	}()

	n, err = io.Copy(&progress.Writer{W: out, T: tracker}, r)
	if err != nil {
		return n, errors.Wrapf(err, "write %s", target)
	}
	return n, nil
}
