// SPDX-License-Identifier: MPL-2.0

package builder

import (
	"fmt"
	"strings"
)

// buildVerbosity is the fixed verbosity level passed to the builder.
const buildVerbosity = "3"

// Platform families recognized by the external builder.
const (
	FamilyMacOS   = "macos"
	FamilyLinux   = "linux"
	FamilyWindows = "windows"
)

// Config is the full, immutable configuration for one builder invocation.
// It replaces process-global environment mutation: every invocation derives
// its environment from a Config value alone, so nothing can leak from one
// build into the next.
type Config struct {
	// PythonTag is the CPython build tag to produce (e.g. "cp39").
	PythonTag string
	// PlatformTag is the wheel platform tag (e.g. "manylinux1_x86_64").
	PlatformTag string
	// OutputDir receives the built wheels. Must already exist.
	OutputDir string
	// BeforeBuild is an optional command run before each build.
	BeforeBuild string
	// PinNumpy selects the pinned-numpy before-build hook instead of
	// BeforeBuild. When both are set, PinNumpy wins.
	PinNumpy bool
	// TestCommand is an optional command run against the built wheel.
	TestCommand string
	// TestRequires is an optional dependency string installed before
	// TestCommand runs.
	TestRequires string
}

// BuildSpec returns the single-target build specifier handed to the builder,
// "{pythonTag}-{platformTag}".
func (c Config) BuildSpec() string {
	return fmt.Sprintf("%s-%s", c.PythonTag, c.PlatformTag)
}

// PlatformFamily derives the builder's target platform family from the
// platform tag by substring: "mac" wins, then "linux", else "windows".
func (c Config) PlatformFamily() string {
	switch {
	case strings.Contains(c.PlatformTag, "mac"):
		return FamilyMacOS
	case strings.Contains(c.PlatformTag, "linux"):
		return FamilyLinux
	default:
		return FamilyWindows
	}
}

// beforeBuildCommand resolves the before-build hook. Resolution is mutually
// exclusive, first match wins: pinned numpy install, then the configured
// BeforeBuild verbatim, then none.
func (c Config) beforeBuildCommand() (string, error) {
	if c.PinNumpy {
		pinned, err := PinnedNumpy(c.PythonTag, c.PlatformTag)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("pip install numpy==%s", pinned), nil
	}
	if c.BeforeBuild != "" {
		return c.BeforeBuild, nil
	}
	return "", nil
}
