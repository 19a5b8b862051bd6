package core

import (
	"bufio"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pkg/errors"
)

// DefaultExcludesFileName is looked up in the root directory when no
// excludes file is given explicitly.
const DefaultExcludesFileName = ".chunkzip_excludes"

// DefaultExcludes is written by GenerateExcludesFile when no defaults are given
var DefaultExcludes = []string{
	DefaultExcludesFileName,
	"node_modules",
	".git",
	"database/database.sqlite",
	".github",
	".idea",
}

// MatchMode selects how exclude patterns are compared with relative paths
type MatchMode string

const (
	// MatchSegment matches whole path segments: "lang" excludes "lang" and
	// "lang/x" but not "language_tools".
	MatchSegment MatchMode = "segment"
	// MatchPrefix is a raw string prefix test: "lang" also excludes
	// "language_tools". Kept for existing excludes files.
	MatchPrefix MatchMode = "prefix"
)

// ParseMatchMode validates a match mode name. Empty selects MatchSegment.
func ParseMatchMode(name string) (MatchMode, error) {
	switch MatchMode(strings.ToLower(strings.TrimSpace(name))) {
	case "", MatchSegment:
		return MatchSegment, nil
	case MatchPrefix:
		return MatchPrefix, nil
	default:
		return "", errors.Wrapf(ErrUnknownMatchMode, "match mode %q", name)
	}
}

// FilterOptions holds every source of exclude and include patterns
type FilterOptions struct {
	Excludes            []string // Explicit exclude list, replaces file and defaults
	ExcludesFile        string   // Explicit excludes file, must exist
	AppendExcludes      []string // Always added to the resolved excludes
	Includes            []string // Removed from the resolved excludes by exact match
	DefaultExcludes     []string // Fallback from configuration
	DefaultExcludesFile string   // Read when present and nothing explicit was given
}

// Validate checks the options for conflicts without touching the file system.
// A supplied exclude list conflicts with an excludes file even when every
// entry in it is blank.
func (o FilterOptions) Validate() error {
	if o.Excludes != nil && o.ExcludesFile != "" {
		return errors.Wrapf(ErrConflictingExcludes, "--exclude and --excludes-file %s", o.ExcludesFile)
	}
	return nil
}

// PatternSet is a sorted list of unique exclude patterns
type PatternSet []string

// Contains reports whether p is in the set
func (s PatternSet) Contains(p string) bool {
	_, found := slices.BinarySearch(s, p)
	return found
}

// ResolvePatterns computes the effective exclude set. Sources are tried in
// order: explicit excludes file or explicit list (never both), the default
// excludes file, then the configured defaults. Append-excludes are added
// and includes removed afterwards.
func ResolvePatterns(opts FilterOptions) (PatternSet, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var base []string
	explicit := cleanPatterns(opts.Excludes)
	switch {
	case opts.ExcludesFile != "":
		patterns, err := ReadPatternsFile(opts.ExcludesFile)
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrapf(ErrExcludesFileNotFound, "%s", opts.ExcludesFile)
		}
		if err != nil {
			return nil, err
		}
		base = patterns
	case len(explicit) > 0:
		base = explicit
	case opts.DefaultExcludesFile != "" && fileExists(opts.DefaultExcludesFile):
		patterns, err := ReadPatternsFile(opts.DefaultExcludesFile)
		if err != nil {
			return nil, err
		}
		base = patterns
	default:
		base = cleanPatterns(opts.DefaultExcludes)
	}

	set := make(map[string]struct{}, len(base)+len(opts.AppendExcludes))
	for _, p := range base {
		set[p] = struct{}{}
	}
	for _, p := range cleanPatterns(opts.AppendExcludes) {
		set[p] = struct{}{}
	}
	for _, p := range cleanPatterns(opts.Includes) {
		delete(set, p)
	}

	result := make(PatternSet, 0, len(set))
	for p := range set {
		result = append(result, p)
	}
	slices.Sort(result)
	return result, nil
}

// ReadPatternsFile reads one pattern per line. Lines are trimmed; blank lines
// and lines starting with # are ignored.
func ReadPatternsFile(filename string) (patterns []string, err error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "open excludes file")
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read excludes file %s", filename)
	}
	return patterns, nil
}

// Matcher decides whether a relative path is excluded
type Matcher struct {
	mode     MatchMode
	patterns []string
}

// NewMatcher prepares patterns for mode. In segment mode patterns are
// normalized to slash form without leading "./" or "/" and trailing "/".
func NewMatcher(patterns PatternSet, mode MatchMode) *Matcher {
	m := &Matcher{mode: mode}
	for _, p := range patterns {
		if mode == MatchSegment {
			p = normalizeSegmentPattern(p)
		}
		if p != "" {
			m.patterns = append(m.patterns, p)
		}
	}
	return m
}

// Excluded reports whether the slash-separated relative path rel is excluded
func (m *Matcher) Excluded(rel string) bool {
	if m == nil {
		return false
	}
	for _, p := range m.patterns {
		if m.match(p, rel) {
			return true
		}
	}
	return false
}

// PruneDir reports whether every file below the directory rel is excluded,
// so the walk can skip it entirely.
func (m *Matcher) PruneDir(rel string) bool {
	if m == nil {
		return false
	}
	if m.mode == MatchPrefix {
		return m.Excluded(rel + "/")
	}
	return m.Excluded(rel)
}

func (m *Matcher) match(pattern, rel string) bool {
	if m.mode == MatchPrefix {
		return strings.HasPrefix(rel, pattern)
	}
	return rel == pattern || strings.HasPrefix(rel, pattern+"/")
}

func normalizeSegmentPattern(p string) string {
	p = filepath.ToSlash(p)
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	p = strings.Trim(p, "/")
	if p == "" || p == "." {
		return ""
	}
	return path.Clean(p)
}

func cleanPatterns(patterns []string) []string {
	var out []string
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func fileExists(name string) bool {
	info, err := os.Stat(name)
	return err == nil && !info.IsDir()
}
