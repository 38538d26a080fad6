// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"wheelsmith/internal/reconcile"
)

var (
	// ErrNoPackages is returned when the packages file declares no packages.
	ErrNoPackages = errors.New("packages file declares no packages")

	// ErrUnknownPythonTag is the sentinel error wrapped by UnknownPythonTagError.
	ErrUnknownPythonTag = errors.New("unknown python tag")

	// ErrInvalidHookCommand is the sentinel error wrapped by InvalidHookCommandError.
	ErrInvalidHookCommand = errors.New("invalid hook command")
)

type (
	// File is the decoded packages file: one record per package to process.
	File struct {
		Packages []Package `json:"packages" yaml:"packages"`
	}

	// Package is the per-package build configuration.
	Package struct {
		// PackageName is the project name on the index.
		PackageName string `json:"package_name" yaml:"package_name"`
		// PythonVersions maps package version thresholds to the python
		// tags required from that version on.
		PythonVersions map[string][]string `json:"python_versions" yaml:"python_versions"`
		// BeforeBuild is an optional command run before each build.
		BeforeBuild string `json:"before_build,omitempty" yaml:"before_build,omitempty"`
		// PinNumpy installs the pinned oldest-compatible numpy before each
		// build, taking precedence over BeforeBuild.
		PinNumpy bool `json:"pin_numpy,omitempty" yaml:"pin_numpy,omitempty"`
		// TestCommand is an optional command run against the built wheel.
		TestCommand string `json:"test_command,omitempty" yaml:"test_command,omitempty"`
		// TestRequires is an optional dependency string installed before
		// TestCommand runs.
		TestRequires string `json:"test_requires,omitempty" yaml:"test_requires,omitempty"`
	}

	// UnknownPythonTagError reports a python tag outside the recognized
	// vocabulary. Unknown tags would silently never match any wheel
	// filename, so they are rejected at load time.
	UnknownPythonTagError struct {
		Package string
		Version string
		Tag     string
	}

	// InvalidHookCommandError reports a hook command that does not parse as
	// shell. A malformed hook would otherwise surface only mid-build, after
	// downloads and extraction.
	InvalidHookCommandError struct {
		Package string
		Field   string
		Err     error
	}
)

// Error formats the offending tag with its location in the packages file.
func (e *UnknownPythonTagError) Error() string {
	return fmt.Sprintf("package %s: python_versions[%q]: unknown python tag %q (known: %s)",
		e.Package, e.Version, e.Tag, strings.Join(reconcile.PythonTags(), ", "))
}

// Unwrap returns ErrUnknownPythonTag so callers can use errors.Is.
func (e *UnknownPythonTagError) Unwrap() error { return ErrUnknownPythonTag }

// Error formats the offending field and the parser's complaint.
func (e *InvalidHookCommandError) Error() string {
	return fmt.Sprintf("package %s: %s does not parse as shell: %v", e.Package, e.Field, e.Err)
}

// Unwrap returns ErrInvalidHookCommand so callers can use errors.Is.
func (e *InvalidHookCommandError) Unwrap() error { return ErrInvalidHookCommand }

// Validate checks the semantic constraints the schema cannot express: tags
// must come from the recognized vocabulary and hook commands must parse as
// shell.
func (p *Package) Validate() error {
	if len(p.PythonVersions) == 0 {
		return fmt.Errorf("package %s: python_versions must not be empty", p.PackageName)
	}

	for ver, tags := range p.PythonVersions {
		for _, tag := range tags {
			if !reconcile.IsKnownPythonTag(tag) {
				return &UnknownPythonTagError{Package: p.PackageName, Version: ver, Tag: tag}
			}
		}
	}

	for field, cmd := range map[string]string{
		"before_build": p.BeforeBuild,
		"test_command": p.TestCommand,
	} {
		if cmd == "" {
			continue
		}
		if err := checkShellSyntax(cmd); err != nil {
			return &InvalidHookCommandError{Package: p.PackageName, Field: field, Err: err}
		}
	}

	return nil
}

// checkShellSyntax parses cmd as POSIX shell and reports syntax errors.
func checkShellSyntax(cmd string) error {
	parser := syntax.NewParser(syntax.Variant(syntax.LangPOSIX))
	_, err := parser.Parse(strings.NewReader(cmd), "")
	return err
}
