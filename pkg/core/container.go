package core

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"

	"chunkzip/pkg/progress"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
)

// memberWriter appends members to an open container stream
type memberWriter interface {
	add(entry FileEntry, info os.FileInfo, r io.Reader) (int64, error)
	close() error
}

// Container owns one archive file on disk from creation until Close
type Container struct {
	path    string
	file    *os.File
	mw      memberWriter
	tracker *progress.Tracker

	members int
	bytes   int64
	size    int64
	closed  bool
}

// CreateContainer creates (or truncates) path and opens a container of format f on it
func CreateContainer(path string, f Format, tracker *progress.Tracker) (*Container, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "create output directory")
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "create archive")
	}
	c, err := openContainer(file, f, tracker)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return c, nil
}

// openContainer wraps an already created file
func openContainer(file *os.File, f Format, tracker *progress.Tracker) (*Container, error) {
	var mw memberWriter
	switch f {
	case FormatZip:
		mw = newZipMembers(file)
	case FormatTarLZ4:
		mw = newTarMembers(lz4.NewWriter(file))
	case FormatTarZst:
		enc, err := zstd.NewWriter(file,
			zstd.WithEncoderLevel(zstd.SpeedDefault),
			zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, errors.Wrap(err, "create zstd encoder")
		}
		mw = newTarMembers(enc)
	default:
		return nil, errors.Wrapf(ErrUnknownFormat, "format %q", f)
	}
	return &Container{path: file.Name(), file: file, mw: mw, tracker: tracker}, nil
}

// Path returns the archive file path
func (c *Container) Path() string { return c.path }

// Members returns the number of files added so far
func (c *Container) Members() int { return c.members }

// Bytes returns the uncompressed bytes added so far
func (c *Container) Bytes() int64 { return c.bytes }

// Size returns the on-disk size; only valid after Close
func (c *Container) Size() int64 { return c.size }

// Add streams the file into the container and returns the bytes read
func (c *Container) Add(entry FileEntry) (int64, error) {
	if c.closed {
		return 0, errors.Errorf("add %s: container %s already closed", entry.RelPath, c.path)
	}
	f, err := os.Open(entry.AbsPath)
	if err != nil {
		return 0, errors.Wrapf(err, "open %s", entry.RelPath)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, errors.Wrapf(err, "stat %s", entry.RelPath)
	}

	n, err := c.mw.add(entry, info, &progress.Reader{R: f, T: c.tracker})
	if err != nil {
		return n, errors.Wrapf(err, "add %s to %s", entry.RelPath, c.path)
	}
	c.members++
	c.bytes += n
	return n, nil
}

// Close finalizes the container stream and the file, then records its size
func (c *Container) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.mw.close(); err != nil {
		_ = c.file.Close()
		return errors.Wrapf(err, "finalize %s", c.path)
	}
	if err := c.file.Close(); err != nil {
		return errors.Wrapf(err, "close %s", c.path)
	}
	info, err := os.Stat(c.path)
	if err != nil {
		return errors.Wrapf(err, "stat %s", c.path)
	}
	c.size = info.Size()
	return nil
}

type zipMembers struct {
	zw *zip.Writer
}

func newZipMembers(w io.Writer) *zipMembers {
	return &zipMembers{zw: zip.NewWriter(w)}
}

func (z *zipMembers) add(entry FileEntry, info os.FileInfo, r io.Reader) (int64, error) {
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return 0, errors.Wrap(err, "zip header")
	}
	header.Name = entry.RelPath
	header.Method = zip.Deflate

	w, err := z.zw.CreateHeader(header)
	if err != nil {
		return 0, errors.Wrap(err, "zip entry")
	}
	return io.Copy(w, r)
}

func (z *zipMembers) close() error {
	return z.zw.Close()
}

// tarMembers writes a tar stream into a compressing writer
type tarMembers struct {
	cw io.WriteCloser
	tw *tar.Writer
}

func newTarMembers(cw io.WriteCloser) *tarMembers {
	return &tarMembers{cw: cw, tw: tar.NewWriter(cw)}
}

func (t *tarMembers) add(entry FileEntry, info os.FileInfo, r io.Reader) (int64, error) {
	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return 0, errors.Wrap(err, "tar header")
	}
	header.Name = entry.RelPath
	if err := t.tw.WriteHeader(header); err != nil {
		return 0, errors.Wrap(err, "tar entry")
	}
	n, err := io.CopyN(t.tw, r, header.Size)
	if err != nil {
		return n, errors.Wrapf(err, "copy %d of %d bytes", n, header.Size)
	}
	return n, nil
}

func (t *tarMembers) close() error {
	if err := t.tw.Close(); err != nil {
		_ = t.cw.Close()
		return err
	}
	return t.cw.Close()
}
