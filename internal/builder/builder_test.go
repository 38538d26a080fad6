// SPDX-License-Identifier: MPL-2.0

package builder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestConfig_BuildSpec(t *testing.T) {
	t.Parallel()

	cfg := Config{PythonTag: "cp39", PlatformTag: "manylinux1_x86_64"}
	if got := cfg.BuildSpec(); got != "cp39-manylinux1_x86_64" {
		t.Errorf("BuildSpec() = %q, want %q", got, "cp39-manylinux1_x86_64")
	}
}

func TestConfig_PlatformFamily(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		platformTag string
		want        string
	}{
		{name: "mac", platformTag: "macosx", want: FamilyMacOS},
		{name: "manylinux 64", platformTag: "manylinux1_x86_64", want: FamilyLinux},
		{name: "manylinux 32", platformTag: "manylinux1_i686", want: FamilyLinux},
		{name: "win32 falls through", platformTag: "win32", want: FamilyWindows},
		{name: "win64 falls through", platformTag: "win_amd64", want: FamilyWindows},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Config{PlatformTag: tt.platformTag}
			if got := cfg.PlatformFamily(); got != tt.want {
				t.Errorf("PlatformFamily() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildEnv_FullContract(t *testing.T) {
	t.Parallel()

	cfg := Config{
		PythonTag:    "cp36",
		PlatformTag:  "macosx",
		OutputDir:    "/tmp/wheels",
		TestCommand:  "pytest {project}/tests",
		TestRequires: "pytest numpy",
	}

	env, err := BuildEnv(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]string{
		EnvPlatform:       "macos",
		EnvBuild:          "cp36-macosx",
		EnvOutputDir:      "/tmp/wheels",
		EnvBuildVerbosity: "3",
		EnvTestCommand:    "pytest {project}/tests",
		EnvTestRequires:   "pytest numpy",
	}
	for k, v := range want {
		if env[k] != v {
			t.Errorf("env[%s] = %q, want %q", k, env[k], v)
		}
	}
	if _, ok := env[EnvBeforeBuild]; ok {
		t.Errorf("env[%s] should be absent when no hook is configured", EnvBeforeBuild)
	}
	if len(env) != len(want) {
		t.Errorf("env has %d keys, want %d: %v", len(env), len(want), env)
	}
}

func TestBuildEnv_BeforeBuildResolution(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "pin numpy wins over before_build",
			cfg:  Config{PythonTag: "cp39", PlatformTag: "manylinux1_x86_64", PinNumpy: true, BeforeBuild: "pip install cython"},
			want: "pip install numpy==1.19.3",
		},
		{
			name: "before_build used verbatim",
			cfg:  Config{PythonTag: "cp39", PlatformTag: "manylinux1_x86_64", BeforeBuild: "pip install cython"},
			want: "pip install cython",
		},
		{
			name: "no hook",
			cfg:  Config{PythonTag: "cp39", PlatformTag: "manylinux1_x86_64"},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env, err := BuildEnv(tt.cfg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if env[EnvBeforeBuild] != tt.want {
				t.Errorf("env[%s] = %q, want %q", EnvBeforeBuild, env[EnvBeforeBuild], tt.want)
			}
		})
	}
}

func TestBuildEnv_PinNumpyUnknownPair(t *testing.T) {
	t.Parallel()

	cfg := Config{PythonTag: "cp313", PlatformTag: "manylinux1_i686", PinNumpy: true}
	if _, err := BuildEnv(cfg); !errors.Is(err, ErrNoPinnedNumpy) {
		t.Fatalf("expected ErrNoPinnedNumpy, got %v", err)
	}
}

func TestPinnedNumpy(t *testing.T) {
	t.Parallel()

	got, err := PinnedNumpy("cp27", "win32")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "1.10.2" {
		t.Errorf("PinnedNumpy(cp27, win32) = %q, want %q", got, "1.10.2")
	}

	if _, err := PinnedNumpy("cp99", "macosx"); !errors.Is(err, ErrNoPinnedNumpy) {
		t.Errorf("expected ErrNoPinnedNumpy for unknown tag, got %v", err)
	}
}

func TestFilterBuilderEnv(t *testing.T) {
	t.Parallel()

	environ := []string{"PATH=/usr/bin", "CIBW_BUILD=cp27-macosx", "HOME=/home/u", "CIBW_BEFORE_BUILD=stale"}
	got := filterBuilderEnv(environ)

	want := []string{"PATH=/usr/bin", "HOME=/home/u"}
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

// fakeBuilder writes a shell script that records its environment and exits
// with the given status, standing in for the external build tool.
func fakeBuilder(t *testing.T, exitCode int) (script, envFile string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake builder script requires a POSIX shell")
	}

	dir := t.TempDir()
	envFile = filepath.Join(dir, "env.txt")
	script = filepath.Join(dir, "fake-cibuildwheel")

	content := "#!/bin/sh\nenv > " + envFile + "\npwd >> " + envFile + "\nexit " + ExitCode(exitCode).String() + "\n"
	if err := os.WriteFile(script, []byte(content), 0o755); err != nil {
		t.Fatalf("writing fake builder: %v", err)
	}
	return script, envFile
}

func TestBuild_EnvironmentIsFullyOverwritten(t *testing.T) {
	t.Parallel()

	script, envFile := fakeBuilder(t, 0)
	srcDir := t.TempDir()

	// A stale key from a previous invocation must not survive.
	b := New(
		WithExecutable(script),
		WithEnviron(func() []string {
			return []string{"PATH=" + os.Getenv("PATH"), "CIBW_BEFORE_BUILD=stale-hook"}
		}),
	)

	cfg := Config{PythonTag: "cp35", PlatformTag: "macosx", OutputDir: "/tmp/out"}
	res := b.Build(context.Background(), cfg, srcDir)
	if !res.Success() {
		t.Fatalf("expected success, got exit=%s err=%v", res.ExitCode, res.Err)
	}

	recorded, err := os.ReadFile(envFile)
	if err != nil {
		t.Fatalf("reading recorded env: %v", err)
	}
	got := string(recorded)

	if strings.Contains(got, "stale-hook") {
		t.Error("stale CIBW_BEFORE_BUILD leaked into the builder environment")
	}
	for _, want := range []string{"CIBW_PLATFORM=macos", "CIBW_BUILD=cp35-macosx", "CIBW_OUTPUT_DIR=/tmp/out", "CIBW_BUILD_VERBOSITY=3"} {
		if !strings.Contains(got, want) {
			t.Errorf("builder environment missing %q", want)
		}
	}
	if !strings.Contains(got, srcDir) {
		t.Errorf("builder did not run inside source dir %s", srcDir)
	}
}

func TestBuild_NonZeroExit(t *testing.T) {
	t.Parallel()

	script, _ := fakeBuilder(t, 3)
	b := New(WithExecutable(script))

	cfg := Config{PythonTag: "cp35", PlatformTag: "macosx", OutputDir: "/tmp/out"}
	res := b.Build(context.Background(), cfg, t.TempDir())

	if res.Err != nil {
		t.Fatalf("non-zero exit is not an infrastructure error: %v", res.Err)
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %s, want 3", res.ExitCode)
	}
	if res.Success() {
		t.Error("Success() must be false for non-zero exit")
	}
}

func TestBuild_MissingExecutable(t *testing.T) {
	t.Parallel()

	b := New(WithExecutable(filepath.Join(t.TempDir(), "does-not-exist")))
	cfg := Config{PythonTag: "cp35", PlatformTag: "macosx"}

	res := b.Build(context.Background(), cfg, t.TempDir())
	if res.Err == nil {
		t.Fatal("expected infrastructure error for missing executable")
	}
}

func TestBuildFailedError(t *testing.T) {
	t.Parallel()

	err := &BuildFailedError{BuildSpec: "cp39-win32", ExitCode: 2}
	if !errors.Is(err, ErrBuildFailed) {
		t.Error("BuildFailedError must wrap ErrBuildFailed")
	}
	if !strings.Contains(err.Error(), "cp39-win32") {
		t.Errorf("error message %q should name the build spec", err.Error())
	}
}
