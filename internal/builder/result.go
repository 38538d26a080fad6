// SPDX-License-Identifier: MPL-2.0

package builder

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrBuildFailed is the sentinel error wrapped by BuildFailedError.
var ErrBuildFailed = errors.New("build failed")

type (
	// ExitCode represents a process exit status code.
	// The zero value (0) means success.
	ExitCode int

	// Result is the outcome of a single builder invocation. A non-success
	// exit is reported through ExitCode; Err is reserved for infrastructure
	// failures (the builder could not be started at all).
	Result struct {
		ExitCode ExitCode
		Err      error
	}

	// BuildFailedError reports a builder invocation that exited with a
	// non-success status.
	BuildFailedError struct {
		BuildSpec string
		ExitCode  ExitCode
	}
)

// IsSuccess returns true if the exit code indicates successful execution.
func (c ExitCode) IsSuccess() bool { return c == 0 }

// String returns the decimal string representation of the ExitCode.
func (c ExitCode) String() string { return strconv.Itoa(int(c)) }

// Success reports whether the invocation completed with exit code 0 and no
// infrastructure error.
func (r Result) Success() bool { return r.Err == nil && r.ExitCode.IsSuccess() }

// Error implements the error interface.
func (e *BuildFailedError) Error() string {
	return fmt.Sprintf("building %s: builder exited with status %s", e.BuildSpec, e.ExitCode)
}

// Unwrap returns ErrBuildFailed so callers can use errors.Is for
// programmatic detection.
func (e *BuildFailedError) Unwrap() error { return ErrBuildFailed }
