// SPDX-License-Identifier: MPL-2.0

// Package reconcile implements the version-gap reconciliation at the heart
// of wheelsmith: given a package's publication history and a configuration
// mapping version ranges to required python tags, determine which (release,
// target) combinations are missing and drive the builder for each of them.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"wheelsmith/internal/builder"
	"wheelsmith/internal/pypi"
	"wheelsmith/internal/version"
)

type (
	// Index provides a package's publication history. *pypi.Client
	// satisfies it.
	Index interface {
		Project(ctx context.Context, name string) (*pypi.Project, error)
	}

	// Sources turns a source distribution record into a ready-to-build
	// local directory. The returned cleanup runs after the release is
	// processed, success or not.
	Sources interface {
		Prepare(ctx context.Context, file pypi.ReleaseFile) (srcDir string, cleanup func() error, err error)
	}

	// WheelBuilder builds a single target inside srcDir. *builder.Builder
	// satisfies it.
	WheelBuilder interface {
		Build(ctx context.Context, cfg builder.Config, srcDir string) builder.Result
	}

	// Request describes one reconciliation run: the package, its version
	// range configuration, and the target platform.
	Request struct {
		PackageName    string
		PythonVersions map[string][]string
		PlatformTag    string
		OutputDir      string
		BeforeBuild    string
		PinNumpy       bool
		TestCommand    string
		TestRequires   string
		// Force rebuilds every required target even when its wheel is
		// already published. It bypasses only the "already present" skip;
		// out-of-range releases are still skipped.
		Force bool
	}

	// Reconciler walks a package's releases and builds whatever is missing.
	// All work is strictly sequential: releases in index enumeration order,
	// targets in ascending tag order, one builder invocation at a time.
	Reconciler struct {
		index   Index
		sources Sources
		builder WheelBuilder
		logger  *log.Logger
	}

	// Option configures a Reconciler during construction.
	Option func(*Reconciler)
)

// WithIndex overrides the package index client.
func WithIndex(idx Index) Option {
	return func(r *Reconciler) {
		r.index = idx
	}
}

// WithSources overrides the source distribution preparer.
func WithSources(s Sources) Option {
	return func(r *Reconciler) {
		r.sources = s
	}
}

// WithBuilder overrides the wheel builder.
func WithBuilder(b WheelBuilder) Option {
	return func(r *Reconciler) {
		r.builder = b
	}
}

// WithLogger sets the progress logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Reconciler) {
		r.logger = l
	}
}

// New creates a Reconciler. Unset dependencies get production defaults:
// the public index, a workspace-backed source preparer, and the external
// cibuildwheel builder.
func New(opts ...Option) *Reconciler {
	r := &Reconciler{}
	for _, opt := range opts {
		opt(r)
	}
	if r.index == nil {
		r.index = pypi.NewClient()
	}
	if r.sources == nil {
		r.sources = NewWorkspaceSources(pypi.NewClient())
	}
	if r.builder == nil {
		r.builder = builder.New()
	}
	if r.logger == nil {
		r.logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "reconcile"})
	}
	return r
}

// Run reconciles every release of the requested package against the version
// range configuration, building each missing target. The first fatal error
// (configuration anomaly, network failure, builder failure) aborts the run;
// nothing is retried and no partial progress is persisted; a re-run derives
// the missing set afresh from live index state.
func (r *Reconciler) Run(ctx context.Context, req Request) error {
	r.logger.Info("processing package", "package", req.PackageName, "platform", req.PlatformTag)

	ranges, err := NewRangeConfig(req.PythonVersions)
	if err != nil {
		return fmt.Errorf("package %s: %w", req.PackageName, err)
	}

	project, err := r.index.Project(ctx, req.PackageName)
	if err != nil {
		return err
	}

	for _, release := range project.Releases {
		if err := r.processRelease(ctx, req, ranges, release); err != nil {
			return fmt.Errorf("package %s release %s: %w", req.PackageName, release.Version, err)
		}
	}

	return nil
}

// processRelease reconciles a single release. Scope-skips return nil; every
// other failure is fatal for the whole run.
func (r *Reconciler) processRelease(ctx context.Context, req Request, ranges *RangeConfig, release pypi.Release) error {
	logger := r.logger.With("release", release.Version)

	required, err := ranges.RequiredTags(release.Version)
	switch {
	case errors.Is(err, ErrOutOfRange):
		logger.Info("skipping", "reason", "predates configured versions")
		return nil
	case errors.Is(err, version.ErrInvalidVersion):
		// The index occasionally carries junk version strings; they match
		// no configured range and are skipped like out-of-range releases.
		logger.Warn("skipping", "reason", "unparsable version")
		return nil
	case err != nil:
		return err
	}

	missing, sdist, err := MissingTags(release.Files, req.PlatformTag, required)
	if err != nil {
		return err
	}

	targets := missing
	if req.Force {
		targets = required
	}

	if len(targets) == 0 {
		logger.Info("all wheels present")
		return nil
	}
	logger.Info("missing wheels", "tags", targets)

	srcDir, cleanup, err := r.sources.Prepare(ctx, *sdist)
	if err != nil {
		return err
	}
	defer func() {
		if cleanupErr := cleanup(); cleanupErr != nil {
			logger.Warn("workspace cleanup failed", "err", cleanupErr)
		}
	}()

	for _, tag := range targets {
		cfg := builder.Config{
			PythonTag:    tag,
			PlatformTag:  req.PlatformTag,
			OutputDir:    req.OutputDir,
			BeforeBuild:  req.BeforeBuild,
			PinNumpy:     req.PinNumpy,
			TestCommand:  req.TestCommand,
			TestRequires: req.TestRequires,
		}

		logger.Info("building", "spec", cfg.BuildSpec())
		res := r.builder.Build(ctx, cfg, srcDir)
		if res.Err != nil {
			return res.Err
		}
		if !res.ExitCode.IsSuccess() {
			// Fail fast: a failed build usually means an environment
			// problem that would sink the remaining targets too.
			return &builder.BuildFailedError{BuildSpec: cfg.BuildSpec(), ExitCode: res.ExitCode}
		}
	}

	return nil
}
