package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"bup/pkg/ui"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	// Version information
	version   = "2.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	debug      bool
	noColor    bool
	quiet      bool
)

// exitCode makes Execute exit with code without printing anything more.
type exitCode int

func (c exitCode) Error() string {
	return fmt.Sprintf("exit status %d", int(c))
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bup",
	Short: "Watch Bilibili creators and publish a static page of their uploads",
	Long: `BUp polls a list of Bilibili creators, detects new uploads and
rebuilds a static site with one page per creator.

Features:
  - WBI signed requests with a browser-like TLS fingerprint
  - Snapshots on disk or in Redis for change detection
  - Mirrored avatars and thumbnails
  - Cookie accounts kept in the system keychain
  - Terminal dashboard and desktop notifications`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor || !term.IsTerminal(int(os.Stdout.Fd())) {
			ui.DisableColor()
		}
		if quiet {
			logLevel = "error"
		}

		// Don't show logo for certain commands
		if !quiet && cmd.Name() != "help" && cmd.Name() != "sign" {
			ui.PrintLogo(version)
		}
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err == nil {
		return
	}
	var code exitCode
	if errors.As(err, &code) {
		os.Exit(int(code))
	}
	ui.PrintError("Error", err)
	os.Exit(1)
}

// commandFlags collects the global flags for config.Load.
func commandFlags() map[string]interface{} {
	return map[string]interface{}{
		"debug":     debug,
		"log-level": logLevel,
		"no-color":  noColor,
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is bup.yaml in the project dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "debug logging and per-creator output")
	rootCmd.PersistentFlags().BoolVarP(&noColor, "no-color", "C", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	rootCmd.SetVersionTemplate(`BUp {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
