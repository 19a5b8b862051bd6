package core

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// GenerateExcludesFile writes DefaultExcludesFileName into dir, one pattern
// per line. DefaultExcludes is used when patterns is empty. An existing file
// is only replaced when force is set.
func GenerateExcludesFile(dir string, patterns []string, force bool) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := CheckRoot(dir); err != nil {
		return "", err
	}

	path := filepath.Join(dir, DefaultExcludesFileName)
	if _, err := os.Stat(path); err == nil && !force {
		return "", errors.Wrapf(ErrExcludesFileExists, "%s (use --force to overwrite)", path)
	}

	patterns = cleanPatterns(patterns)
	if len(patterns) == 0 {
		patterns = DefaultExcludes
	}
	data := strings.Join(patterns, "\n") + "\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		return "", errors.Wrap(err, "write excludes file")
	}
	return path, nil
}
