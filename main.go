package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"chunkzip/pkg/config"
	"chunkzip/pkg/core"
	"chunkzip/pkg/progress"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags)
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags)
	Commit = "unknown"
)

// app carries the state shared by all subcommands
type app struct {
	cfgFile string
	verbose bool
	quiet   bool

	cfg    *config.Config
	logger *log.Logger
	stderr io.Writer
}

func main() {
	a := &app{stderr: os.Stderr}
	if err := fang.Execute(
		context.Background(),
		a.rootCmd(),
		fang.WithVersion(versionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(exitCode(err))
	}
}

func versionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// rootCmd builds the command tree
func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "chunkzip",
		Short: "Pack a directory tree into size bounded archives",
		Long: `chunkzip packs a directory tree into one or more archives.

A trial pass measures how well the selected files compress; the real pass
then starts a new archive (name_part1.zip, name_part2.zip, ...) whenever the
predicted compressed size would exceed --chunk-size.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./.chunkzip.yaml or $XDG_CONFIG_HOME/chunkzip/.chunkzip.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "suppress progress output")

	root.AddCommand(a.compressCmd())
	root.AddCommand(a.excludesCmd())
	root.AddCommand(a.extractCmd())
	return root
}

// setup loads configuration and sets up logging before any subcommand runs
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	a.logger = log.NewWithOptions(a.stderr, log.Options{Prefix: config.AppName})
	switch {
	case a.verbose:
		a.logger.SetLevel(log.DebugLevel)
	case a.quiet:
		a.logger.SetLevel(log.WarnLevel)
	}

	cfg, used, err := config.Load(a.cfgFile)
	if err != nil {
		return &ExitError{Code: exitConfig, Err: err}
	}
	if used != "" {
		a.logger.Debug("loaded config", "file", used)
	}
	a.cfg = cfg
	return nil
}

// tracker returns nil when progress output is suppressed
func (a *app) tracker() *progress.Tracker {
	if a.quiet {
		return nil
	}
	return progress.New(a.stderr)
}

// Exit codes
const (
	exitIO           = 1
	exitConfig       = 2
	exitMissingInput = 3
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// wrapExit attaches the exit code matching the class of err
func wrapExit(err error) error {
	if err == nil {
		return nil
	}
	switch core.Classify(err) {
	case core.ClassConfig:
		return &ExitError{Code: exitConfig, Err: err}
	case core.ClassMissingInput:
		return &ExitError{Code: exitMissingInput, Err: err}
	default:
		return &ExitError{Code: exitIO, Err: err}
	}
}

func exitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}
