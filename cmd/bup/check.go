package main

import (
	"fmt"

	"bup/pkg/ui"

	"github.com/spf13/cobra"
)

var checkAccount string

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check [dir]",
	Short: "Report which creators have new uploads without building",
	Long: `Fetch every configured creator and compare it with the stored snapshot.
Nothing is written: snapshots, pages and assets stay as they are.

Exits with status 1 when no creator has an update.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkAccount, "account", "a", "", "stored account to use")
	addPlatformFlags(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, appOptions{
		dir:     projectDir(args),
		account: checkAccount,
		flags:   platformFlags(),
	})
	if err != nil {
		return err
	}
	defer a.Close()

	reporter := newReporter()
	updated, err := a.updater(reporter).Check(ctx, a.cfg.UIDs)
	if err != nil {
		return err
	}
	reporter.FinishRun(nil)

	if len(updated) == 0 {
		if !quiet {
			ui.PrintWarning("Got no update.")
		}
		return exitCode(1)
	}
	for _, md := range updated {
		latest := ""
		if len(md.Videos) > 0 {
			latest = md.Videos[0].Title
		}
		fmt.Printf("%s(%s)\t%s\n", md.UID, md.Name, latest)
	}
	return nil
}
