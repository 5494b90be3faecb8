package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"bup/pkg/site"
	"bup/pkg/ui"
	"bup/pkg/ui/tui"
	"bup/pkg/updater"

	"github.com/spf13/cobra"
)

var (
	buildAccount  string
	buildTUI      bool
	maxDelay      time.Duration
	transportKind string
	proxyURL      string
	concurrent    int
	notifications bool
)

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:     "build [dir]",
	Aliases: []string{"b"},
	Short:   "Check every creator and rebuild the pages that changed",
	Long: `Check every configured creator for new uploads and rebuild the site.

The project dir (default ".") holds bup.yaml and the doc dir the pages are
written to. Creator dirs that are no longer configured are removed first.

Exits with status 1 when no creator has an update.`,
	Example: `  # Build the project in the current directory
  bup build

  # Use a stored account and the dashboard
  bup build ./site --account main --tui

  # Spread requests out and use plain net/http
  bup build --max-delay 3s --transport standard`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVarP(&buildAccount, "account", "a", "", "stored account to use")
	buildCmd.Flags().BoolVar(&buildTUI, "tui", false, "show the terminal dashboard")
	addPlatformFlags(buildCmd)
	buildCmd.Flags().IntVar(&concurrent, "concurrent", 0, "number of concurrent asset downloads")
	buildCmd.Flags().BoolVar(&notifications, "notifications", false, "send a desktop notification on updates")
}

// addPlatformFlags registers the flags that shape outgoing requests.
func addPlatformFlags(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&maxDelay, "max-delay", 0, "upper bound of the random pause before each request")
	cmd.Flags().StringVar(&transportKind, "transport", "", "HTTP transport (browser, standard)")
	cmd.Flags().StringVar(&proxyURL, "proxy", "", "proxy URL for all requests")
}

func platformFlags() map[string]interface{} {
	flags := commandFlags()
	flags["max-delay"] = maxDelay
	flags["transport"] = transportKind
	flags["proxy"] = proxyURL
	return flags
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	flags := platformFlags()
	flags["concurrent"] = concurrent
	flags["notifications"] = notifications

	opts := appOptions{
		dir:      projectDir(args),
		account:  buildAccount,
		flags:    flags,
		withSite: true,
	}
	if buildTUI {
		// Console logs would tear the dashboard. A log file still works.
		opts.logOut = io.Discard
	}

	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	var result *updater.RunResult
	work := func(ctx context.Context, r ui.Reporter) error {
		var err error
		result, err = a.updater(r).Run(ctx, a.cfg.UIDs)
		return err
	}

	if buildTUI {
		err = tui.NewTUI().Run(ctx, work)
	} else {
		err = work(ctx, newReporter())
	}

	if errors.Is(err, site.ErrNoUpdates) {
		if !quiet && !buildTUI {
			ui.PrintWarning("Got no update.")
		}
		return exitCode(1)
	}
	if err != nil {
		return err
	}

	names := result.UpdatedNames()
	a.log.InfoWithFields("build finished", map[string]interface{}{
		"updated":        len(result.Updated),
		"built":          len(result.Built),
		"failed":         len(result.Failed),
		"asset_failures": result.AssetFailures,
		"files_written":  a.docs.WrittenCount(),
	})
	if !quiet && !buildTUI {
		ui.PrintSuccess("Updated: " + strings.Join(names, ", "))
		if result.AssetFailures > 0 {
			ui.PrintWarning(fmt.Sprintf("%d assets could not be mirrored", result.AssetFailures))
		}
	}

	if a.cfg.Notifications.Enabled {
		if err := ui.NewNotifier().NotifyUpdates(names); err != nil {
			a.log.WithError(err).Warn("failed to send notification")
		}
	}

	if len(result.Built) == 0 {
		return fmt.Errorf("none of the %d updated creators could be built", len(result.Updated))
	}
	return nil
}

// newReporter picks the line-based reporter for the global flags.
func newReporter() ui.Reporter {
	if quiet {
		return ui.NopReporter{}
	}
	return ui.NewProgressDisplay(os.Stdout, debug)
}
