package main

import (
	"strings"

	"bup/pkg/ui"

	"github.com/spf13/cobra"
)

// cleanCmd represents the clean command
var cleanCmd = &cobra.Command{
	Use:   "clean [dir]",
	Short: "Remove pages and snapshots of creators no longer configured",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, appOptions{
		dir:   projectDir(args),
		flags: commandFlags(),
	})
	if err != nil {
		return err
	}
	defer a.Close()

	removed, err := a.updater(ui.NopReporter{}).Clean(ctx, a.cfg.UIDs)
	if !quiet {
		if len(removed) == 0 {
			ui.PrintInfo("Removed", "nothing")
		} else {
			ui.PrintInfo("Removed", strings.Join(removed, ", "))
		}
	}
	return err
}
