package main

import (
	"fmt"
	"path/filepath"

	"chunkzip/pkg/core"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// compressFlags mirrors the compress command line
type compressFlags struct {
	excludes       []string
	excludesFile   string
	appendExcludes []string
	includes       []string
	output         string
	outputDir      string
	chunkSize      string
	format         string
	matchMode      string
	dryRun         bool
	clean          bool
}

func (f *compressFlags) add(fs *pflag.FlagSet) {
	fs.StringSliceVarP(&f.excludes, "exclude", "e", nil, "exclude path `prefixes` (comma separated or repeated), replaces config defaults")
	fs.StringVar(&f.excludesFile, "excludes-file", "", "read exclude patterns from `file`, one per line")
	fs.StringSliceVarP(&f.appendExcludes, "append-exclude", "a", nil, "always exclude these `prefixes` in addition")
	fs.StringSliceVarP(&f.includes, "include", "i", nil, "remove these `patterns` from the exclude set")
	fs.StringVarP(&f.output, "output", "o", "", "output base `name` (default is the root directory name)")
	fs.StringVar(&f.outputDir, "output-dir", "", "`directory` for the archive chunks (default \".\")")
	fs.StringVarP(&f.chunkSize, "chunk-size", "s", "", "maximum estimated compressed `size` per chunk, e.g. 60MB or 1GiB; bare numbers are MB, 0 is unbounded")
	fs.StringVarP(&f.format, "format", "f", "", "archive `format`: zip, tar.lz4 or tar.zst")
	fs.StringVar(&f.matchMode, "match-mode", "", "exclude matching: segment or prefix (raw string prefix)")
	fs.BoolVar(&f.dryRun, "dry-run", false, "print the chunk plan without writing archives")
	fs.BoolVar(&f.clean, "clean", false, "remove existing chunks with the same name before writing")
}

func (a *app) compressCmd() *cobra.Command {
	var flags compressFlags
	cmd := &cobra.Command{
		Use:   "compress [root]",
		Short: "Archive a directory into size bounded chunks",
		Example: `  chunkzip compress
  chunkzip compress ./site --chunk-size 60MB --exclude node_modules,.git
  chunkzip compress --excludes-file .chunkzip_excludes --include .github -f tar.zst`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			opts, err := a.compressOptions(cmd, flags, root)
			if err != nil {
				return wrapExit(err)
			}
			return wrapExit(a.runCompress(cmd, opts))
		},
	}
	flags.add(cmd.Flags())
	return cmd
}

// compressOptions merges flags with configuration. Flags win when set.
func (a *app) compressOptions(cmd *cobra.Command, flags compressFlags, root string) (core.Options, error) {
	cfg := a.cfg
	pick := func(name, flagValue, cfgValue string) string {
		if cmd.Flags().Changed(name) {
			return flagValue
		}
		return cfgValue
	}

	filter := core.FilterOptions{
		Excludes:        flags.excludes,
		ExcludesFile:    flags.excludesFile,
		AppendExcludes:  flags.appendExcludes,
		Includes:        flags.includes,
		DefaultExcludes: cfg.Excludes,
	}
	if err := filter.Validate(); err != nil {
		return core.Options{}, err
	}

	chunkSize, err := core.ParseChunkSize(pick("chunk-size", flags.chunkSize, cfg.ChunkSize))
	if err != nil {
		return core.Options{}, err
	}
	format, err := core.ParseFormat(pick("format", flags.format, cfg.Format))
	if err != nil {
		return core.Options{}, err
	}
	mode, err := core.ParseMatchMode(pick("match-mode", flags.matchMode, cfg.MatchMode))
	if err != nil {
		return core.Options{}, err
	}

	return core.Options{
		Root:       root,
		OutputDir:  pick("output-dir", flags.outputDir, cfg.OutputDir),
		OutputName: pick("output", flags.output, cfg.OutputName),
		Format:     format,
		ChunkSize:  chunkSize,
		Filter:     filter,
		MatchMode:  mode,
		DryRun:     flags.dryRun,
		Clean:      flags.clean,
		Logger:     a.logger,
		Progress:   a.tracker(),
	}, nil
}

func (a *app) runCompress(cmd *cobra.Command, opts core.Options) error {
	out := cmd.OutOrStdout()

	result, err := core.Compress(opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Selected %d files (%s), excluded %d, skipped %d unreadable\n",
		result.Estimate.Files, humanize.IBytes(uint64(result.Estimate.UncompressedBytes)),
		result.Stats.Excluded, result.Stats.Skipped)
	fmt.Fprintf(out, "Estimated compression ratio: %.3f\n", result.Estimate.Ratio)

	for _, c := range result.Chunks {
		if opts.DryRun {
			fmt.Fprintf(out, "  would write %s: %d files, %s raw, ~%s compressed\n",
				filepath.Base(c.Path), c.Files,
				humanize.IBytes(uint64(c.UncompressedBytes)), humanize.IBytes(uint64(c.EstimatedBytes)))
			continue
		}
		fmt.Fprintf(out, "  %s: %d files, %s raw, ~%s estimated, %s on disk\n",
			c.Path, c.Files,
			humanize.IBytes(uint64(c.UncompressedBytes)), humanize.IBytes(uint64(c.EstimatedBytes)),
			humanize.IBytes(uint64(c.ActualBytes)))
	}
	if !opts.DryRun {
		fmt.Fprintf(out, "Project %s has been archived into %d chunk(s)\n", filepath.Base(result.Root), len(result.Chunks))
	}
	return nil
}
