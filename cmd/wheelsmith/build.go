// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"wheelsmith/internal/config"
	"wheelsmith/internal/pypi"
	"wheelsmith/internal/reconcile"
)

// platformTags maps the CLI platform argument to the composite wheel
// platform tag used for filename matching and build specifiers.
var platformTags = map[string]string{
	"mac":     "macosx",
	"win32":   "win32",
	"win64":   "win_amd64",
	"linux32": "manylinux1_i686",
	"linux64": "manylinux1_x86_64",
}

var (
	buildOutputDir    string
	buildForce        bool
	buildPackagesFile string

	buildCmd = &cobra.Command{
		Use:   "build <platform>",
		Short: "Build the wheels missing from the index for a target platform",
		Long: `Build the wheels missing from the index for a target platform.

For every package in the packages file, each release is checked against the
configured version ranges; wheels required but not yet published for the
target platform are built with cibuildwheel, one target at a time. The first
failure aborts the run.`,
		Example: `  # Build missing macOS wheels into the current directory
  wheelsmith build mac

  # Build missing 64-bit Linux wheels into ./dist
  wheelsmith build linux64 --output-dir dist

  # Rebuild everything the config requires, even already-published wheels
  wheelsmith build win64 --force`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: platformNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			p, err := newBuildParams(args[0])
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("error:"), err)
				return &ExitError{Code: 2, Err: err}
			}

			if err := runBuild(cmd.Context(), p); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("error:"), err)
				return &ExitError{Code: 1, Err: err}
			}

			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("✓"), "all packages reconciled")
			return nil
		},
	}
)

func init() {
	buildCmd.Flags().StringVarP(&buildOutputDir, "output-dir", "o", ".", "directory receiving built wheels (must exist)")
	buildCmd.Flags().BoolVar(&buildForce, "force", false, "rebuild targets even if already published")
	buildCmd.Flags().StringVar(&buildPackagesFile, "packages-file", "", "packages file (default wheelsmith.yml, or WHEELSMITH_PACKAGES_FILE)")
}

// buildParams bundles the resolved inputs for one build run, keeping
// runBuild testable without a Cobra command or live index.
type buildParams struct {
	runner      packageRunner
	packages    []config.Package
	platformTag string
	outputDir   string
	force       bool
}

// packageRunner reconciles a single package. *reconcile.Reconciler
// satisfies it.
type packageRunner interface {
	Run(ctx context.Context, req reconcile.Request) error
}

// platformNames returns the accepted platform arguments, sorted.
func platformNames() []string {
	names := make([]string, 0, len(platformTags))
	for name := range platformTags {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resolvePlatformTag maps the CLI platform argument to its wheel platform tag.
func resolvePlatformTag(arg string) (string, error) {
	tag, ok := platformTags[arg]
	if !ok {
		return "", fmt.Errorf("unknown platform %q (choose one of: %s)", arg, strings.Join(platformNames(), ", "))
	}
	return tag, nil
}

// resolveOutputDir makes the output directory absolute and requires it to
// already exist: builds are long, and discovering a bad destination at the
// end of the first one would waste all of it.
func resolveOutputDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving output dir: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("output dir %s: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("output dir %s is not a directory", abs)
	}
	return abs, nil
}

// newBuildParams resolves flags, environment, and the packages file into
// ready-to-run build parameters.
func newBuildParams(platformArg string) (buildParams, error) {
	platformTag, err := resolvePlatformTag(platformArg)
	if err != nil {
		return buildParams{}, err
	}

	outputDir, err := resolveOutputDir(buildOutputDir)
	if err != nil {
		return buildParams{}, err
	}

	packagesFile := buildPackagesFile
	if packagesFile == "" {
		packagesFile = viper.GetString("packages_file")
	}
	file, err := config.Load(packagesFile)
	if err != nil {
		return buildParams{}, err
	}

	logger := newLogger()

	client := pypi.NewClient(
		pypi.WithBaseURL(viper.GetString("index_url")),
		pypi.WithUserAgent("wheelsmith/"+Version),
	)
	runner := reconcile.New(
		reconcile.WithIndex(client),
		reconcile.WithSources(reconcile.NewWorkspaceSources(client)),
		reconcile.WithLogger(logger),
	)

	return buildParams{
		runner:      runner,
		packages:    file.Packages,
		platformTag: platformTag,
		outputDir:   outputDir,
		force:       buildForce,
	}, nil
}

// runBuild reconciles every configured package, strictly in order; the
// first failure aborts the remainder of the run.
func runBuild(ctx context.Context, p buildParams) error {
	for _, pkg := range p.packages {
		req := reconcile.Request{
			PackageName:    pkg.PackageName,
			PythonVersions: pkg.PythonVersions,
			PlatformTag:    p.platformTag,
			OutputDir:      p.outputDir,
			BeforeBuild:    pkg.BeforeBuild,
			PinNumpy:       pkg.PinNumpy,
			TestCommand:    pkg.TestCommand,
			TestRequires:   pkg.TestRequires,
			Force:          p.force,
		}
		if err := p.runner.Run(ctx, req); err != nil {
			return err
		}
	}
	return nil
}
