// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for wheelsmith.
package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"

	// verbose enables debug output
	verbose bool

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "wheelsmith",
		Short: "Build the binary wheels missing from a package's releases",
		Long: TitleStyle.Render("wheelsmith") + SubtitleStyle.Render(" - missing-wheel reconciliation for package indexes") + `

wheelsmith compares each release of a package against a configured map of
version ranges to required python versions, determines which wheels are
missing for a target platform, and drives cibuildwheel to produce them.
Wheels already on the index are never rebuilt (they cannot be replaced)
unless --force is given.

Packages are declared in a '` + "wheelsmith.yml" + `' file; see 'wheelsmith init'.

` + SubtitleStyle.Render("Examples:") + `
  wheelsmith init                      Create a starter wheelsmith.yml
  wheelsmith build mac                 Build missing macOS wheels
  wheelsmith build linux64 -o dist     Build into ./dist
  wheelsmith build win64 --force       Rebuild even published wheels`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(initCmd)
}

// initRootConfig wires viper: WHEELSMITH_* environment variables override
// the built-in defaults (e.g. WHEELSMITH_INDEX_URL for a mirror).
func initRootConfig() {
	viper.SetEnvPrefix("WHEELSMITH")
	viper.AutomaticEnv()

	viper.SetDefault("index_url", "https://pypi.org")
	viper.SetDefault("packages_file", "wheelsmith.yml")
}

// newLogger builds the logger handed to the reconciler. Verbose mode lowers
// the level to Debug.
func newLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "wheelsmith",
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return Version + " (commit: " + Commit + ")"
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
