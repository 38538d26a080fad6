// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"wheelsmith/internal/config"
)

const initHeader = `# wheelsmith packages file.
#
# Each entry names a package on the index and maps package version
# thresholds to the python tags that must have wheels from that version on.
# Versions below the smallest threshold are never built.
`

var (
	initForce bool

	// initCmd creates a starter packages file
	initCmd = &cobra.Command{
		Use:   "init [filename]",
		Short: "Create a starter wheelsmith.yml in the current directory",
		Long: `Create a starter wheelsmith.yml in the current directory.

The generated file declares one example package; edit it to describe the
packages whose wheels you want reconciled.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runInit,
	}
)

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing packages file")
}

func runInit(cmd *cobra.Command, args []string) error {
	filename := config.DefaultPackagesFile
	if len(args) > 0 {
		filename = args[0]
	}

	if _, err := os.Stat(filename); err == nil && !initForce {
		return fmt.Errorf("file '%s' already exists. Use --force to overwrite", filename)
	}

	content, err := samplePackagesFile()
	if err != nil {
		return err
	}

	if err := os.WriteFile(filename, content, 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	absPath, _ := filepath.Abs(filename)
	fmt.Fprintf(cmd.OutOrStdout(), "%s Created %s\n", SuccessStyle.Render("✓"), absPath)
	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprintln(cmd.OutOrStdout(), SubtitleStyle.Render("Next steps:"))
	fmt.Fprintln(cmd.OutOrStdout(), "  1. Edit the file to declare your packages")
	fmt.Fprintln(cmd.OutOrStdout(), "  2. Run 'wheelsmith build <platform>' to build missing wheels")

	return nil
}

// samplePackagesFile renders the starter file: a commented header followed
// by one example package record.
func samplePackagesFile() ([]byte, error) {
	sample := config.File{
		Packages: []config.Package{
			{
				PackageName: "example-package",
				PythonVersions: map[string][]string{
					"0.1": {"cp27", "cp35"},
					"0.2": {"cp27", "cp35", "cp36"},
				},
				TestCommand:  "pytest --pyargs example_package",
				TestRequires: "pytest",
			},
		},
	}

	body, err := yaml.Marshal(&sample)
	if err != nil {
		return nil, fmt.Errorf("rendering sample packages file: %w", err)
	}

	return append([]byte(initHeader), body...), nil
}
