package core

import "github.com/pkg/errors"

// Configuration errors, raised before the source tree is touched
var (
	ErrConflictingExcludes = errors.New("exclude list and excludes file cannot be combined")
	ErrInvalidChunkSize    = errors.New("invalid chunk size")
	ErrUnknownFormat       = errors.New("unknown archive format")
	ErrUnknownMatchMode    = errors.New("unknown match mode")
)

// Missing-input errors, raised before any output file is created
var (
	ErrRootNotFound         = errors.New("root path does not exist")
	ErrRootNotDir           = errors.New("root path is not a directory")
	ErrNothingToArchive     = errors.New("nothing to archive")
	ErrExcludesFileNotFound = errors.New("excludes file not found")
)

// ErrExcludesFileExists is returned when generating an excludes file that is
// already present and overwriting was not requested.
var ErrExcludesFileExists = errors.New("excludes file already exists")

// ErrorClass groups errors by how a caller should react to them
type ErrorClass int

const (
	ClassIO           ErrorClass = iota // Write/close failures, partial output may exist
	ClassConfig                         // Invalid or conflicting options
	ClassMissingInput                   // Nothing usable to archive
)

func (c ErrorClass) String() string {
	switch c {
	case ClassConfig:
		return "configuration error"
	case ClassMissingInput:
		return "missing input"
	default:
		return "i/o error"
	}
}

// Classify maps err to its ErrorClass. Unrecognized errors are I/O errors.
func Classify(err error) ErrorClass {
	switch {
	case errors.Is(err, ErrConflictingExcludes),
		errors.Is(err, ErrInvalidChunkSize),
		errors.Is(err, ErrUnknownFormat),
		errors.Is(err, ErrUnknownMatchMode),
		errors.Is(err, ErrExcludesFileExists):
		return ClassConfig
	case errors.Is(err, ErrRootNotFound),
		errors.Is(err, ErrRootNotDir),
		errors.Is(err, ErrNothingToArchive),
		errors.Is(err, ErrExcludesFileNotFound):
		return ClassMissingInput
	default:
		return ClassIO
	}
}
