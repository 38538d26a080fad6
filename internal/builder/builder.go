// SPDX-License-Identifier: MPL-2.0

// Package builder drives the external wheel-building tool. The tool is a
// black box: it is handed a source directory and a fully specified
// environment, builds exactly one target per invocation, and reports success
// through its exit status.
package builder

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// DefaultExecutable is the external build tool invoked for each target.
const DefaultExecutable = "cibuildwheel"

type (
	// Builder invokes the external build tool. Invocations are strictly
	// sequential; the tool is not re-entrant within a shared working
	// directory.
	Builder struct {
		executable string
		args       []string
		stdout     io.Writer
		stderr     io.Writer
		environ    func() []string
	}

	// Option configures a Builder during construction.
	Option func(*Builder)
)

// WithExecutable overrides the build tool executable, primarily for tests.
func WithExecutable(path string) Option {
	return func(b *Builder) {
		b.executable = path
	}
}

// WithOutput redirects the builder's stdout and stderr.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(b *Builder) {
		b.stdout = stdout
		b.stderr = stderr
	}
}

// WithEnviron overrides the base process environment, primarily for tests.
func WithEnviron(environ func() []string) Option {
	return func(b *Builder) {
		b.environ = environ
	}
}

// New creates a Builder with production defaults: the cibuildwheel
// executable, the process environment, and the process's own stdio.
func New(opts ...Option) *Builder {
	b := &Builder{
		executable: DefaultExecutable,
		args:       []string{"."},
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		environ:    os.Environ,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build runs the external build tool once, inside srcDir, for the single
// target described by cfg. The tool's environment is the process environment
// with every builder key stripped and replaced by the keys derived from cfg,
// so configuration can never leak between invocations.
func (b *Builder) Build(ctx context.Context, cfg Config, srcDir string) Result {
	env, err := BuildEnv(cfg)
	if err != nil {
		return Result{ExitCode: 1, Err: err}
	}

	cmd := exec.CommandContext(ctx, b.executable, b.args...)
	cmd.Dir = srcDir
	cmd.Env = append(filterBuilderEnv(b.environ()), envToSlice(env)...)
	cmd.Stdout = b.stdout
	cmd.Stderr = b.stderr

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return Result{ExitCode: ExitCode(exitErr.ExitCode())}
		}
		return Result{ExitCode: 1, Err: fmt.Errorf("running %s: %w", b.executable, err)}
	}

	return Result{}
}
