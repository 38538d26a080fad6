// SPDX-License-Identifier: MPL-2.0

package builder

import (
	"fmt"
	"sort"
	"strings"
)

// envPrefix marks the environment keys that configure the external builder.
const envPrefix = "CIBW_"

// Environment keys recognized by the external builder.
const (
	EnvPlatform       = "CIBW_PLATFORM"
	EnvBuild          = "CIBW_BUILD"
	EnvOutputDir      = "CIBW_OUTPUT_DIR"
	EnvBeforeBuild    = "CIBW_BEFORE_BUILD"
	EnvTestCommand    = "CIBW_TEST_COMMAND"
	EnvTestRequires   = "CIBW_TEST_REQUIRES"
	EnvBuildVerbosity = "CIBW_BUILD_VERBOSITY"
)

// BuildEnv constructs the complete builder environment for one invocation.
// Every CIBW_ key is derived from cfg alone; optional keys are absent rather
// than empty.
func BuildEnv(cfg Config) (map[string]string, error) {
	env := map[string]string{
		EnvPlatform:       cfg.PlatformFamily(),
		EnvBuild:          cfg.BuildSpec(),
		EnvOutputDir:      cfg.OutputDir,
		EnvBuildVerbosity: buildVerbosity,
	}

	before, err := cfg.beforeBuildCommand()
	if err != nil {
		return nil, err
	}
	if before != "" {
		env[EnvBeforeBuild] = before
	}

	if cfg.TestCommand != "" {
		env[EnvTestCommand] = cfg.TestCommand
	}
	if cfg.TestRequires != "" {
		env[EnvTestRequires] = cfg.TestRequires
	}

	return env, nil
}

// filterBuilderEnv strips all CIBW_ keys from environ. The builder
// environment is fully overwritten per invocation, never appended to, so a
// key set by a previous target's build (or inherited from the parent shell)
// cannot leak into the next.
func filterBuilderEnv(environ []string) []string {
	filtered := make([]string, 0, len(environ))
	for _, kv := range environ {
		if strings.HasPrefix(kv, envPrefix) {
			continue
		}
		filtered = append(filtered, kv)
	}
	return filtered
}

// envToSlice flattens the env map into sorted KEY=VALUE form for exec.Cmd.
func envToSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(out)
	return out
}
