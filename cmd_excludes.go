package main

import (
	"fmt"

	"chunkzip/pkg/core"

	"github.com/spf13/cobra"
)

func (a *app) excludesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "excludes",
		Short: "Manage the " + core.DefaultExcludesFileName + " file",
	}
	cmd.AddCommand(a.excludesInitCmd())
	return cmd
}

func (a *app) excludesInitCmd() *cobra.Command {
	var (
		defaults []string
		force    bool
	)
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Generate an excludes file for compress",
		Long: `Writes ` + core.DefaultExcludesFileName + ` into path (default: the working
directory). compress reads it automatically when no --exclude is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			path, err := core.GenerateExcludesFile(dir, defaults, force)
			if err != nil {
				return wrapExit(err)
			}
			a.logger.Debug("wrote excludes file", "path", path)
			fmt.Fprintf(cmd.OutOrStdout(), "Excludes file generated: %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&defaults, "defaults", nil, "patterns to write instead of the built-in list")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing excludes file")
	return cmd
}
