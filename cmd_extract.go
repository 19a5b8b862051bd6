package main

import (
	"fmt"

	"chunkzip/pkg/core"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func (a *app) extractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <first-chunk> [dest]",
		Short: "Extract a chunk set (name.zip, name_part1.zip, ...) into a directory",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := core.ExtractOptions{
				Archive:  args[0],
				Logger:   a.logger,
				Progress: a.tracker(),
			}
			if len(args) == 2 {
				opts.DestDir = args[1]
			}

			opts.Progress.Start("extracting", 0)
			result, err := core.Extract(opts)
			opts.Progress.Stop()
			if err != nil {
				return wrapExit(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Extracted %d files (%s) from %d chunk(s)\n",
				result.Files, humanize.IBytes(uint64(result.Bytes)), len(result.Chunks))
			if len(result.Stale) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Warning: %d part(s) predate the first chunk and may be left over from an earlier run\n",
					len(result.Stale))
			}
			return nil
		},
	}
}
