// SPDX-License-Identifier: MPL-2.0

package embed

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	// ErrInputNotFound is the sentinel wrapped by PreconditionError.
	ErrInputNotFound = errors.New("input file not found")
	// ErrInvalidRequest is the sentinel wrapped by InvalidRequestError.
	ErrInvalidRequest = errors.New("invalid embed request")
	// ErrExternalTool is the sentinel wrapped by ExternalToolError.
	ErrExternalTool = errors.New("external tool failed")
	// ErrArtifactMissing is the sentinel wrapped by ArtifactMissingError.
	ErrArtifactMissing = errors.New("built artifact missing")
	// ErrFilesystem is the sentinel wrapped by FilesystemError.
	ErrFilesystem = errors.New("filesystem operation failed")
)

type (
	// PreconditionError reports an input path that is absent or not a regular file.
	// It is raised before any side effect takes place.
	PreconditionError struct {
		Path string
		Err  error
	}

	// InvalidRequestError lists the request fields that failed validation.
	InvalidRequestError struct {
		FieldErrors []string
	}

	// ExternalToolError reports a subprocess that could not be started or
	// exited with a non-zero status.
	ExternalToolError struct {
		Stage State
		Log   CommandLog
		Err   error
	}

	// ArtifactMissingError reports that the build finished but the expected
	// binary is not inside the workspace.
	ArtifactMissingError struct {
		Path string
		Err  error
	}

	// FilesystemError reports a local file operation failure attributed to a stage.
	FilesystemError struct {
		Stage State
		Op    string
		Path  string
		Err   error
	}
)

// Error implements the error interface.
func (e *PreconditionError) Error() string {
	if e.Err == nil || errors.Is(e.Err, os.ErrNotExist) {
		return fmt.Sprintf("Could not find file %q", e.Path)
	}
	return fmt.Sprintf("Cannot use input file %q: %v", e.Path, e.Err)
}

// Unwrap returns ErrInputNotFound so callers can use errors.Is.
func (e *PreconditionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInputNotFound}
	}
	return []error{ErrInputNotFound, e.Err}
}

// Error implements the error interface.
func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid embed request: %s", strings.Join(e.FieldErrors, "; "))
}

// Unwrap returns ErrInvalidRequest.
func (e *InvalidRequestError) Unwrap() error { return ErrInvalidRequest }

// Error implements the error interface.
func (e *ExternalToolError) Error() string {
	var msg strings.Builder
	fmt.Fprintf(&msg, "%s: %s", e.Stage, e.Log.Command)
	switch {
	case e.Log.ExitCode > 0:
		fmt.Fprintf(&msg, " exited with status %d", e.Log.ExitCode)
	case e.Err != nil:
		fmt.Fprintf(&msg, ": %v", e.Err)
	default:
		msg.WriteString(" failed")
	}
	if stderr := strings.TrimSpace(e.Log.Stderr); stderr != "" {
		msg.WriteString(": ")
		msg.WriteString(lastLine(stderr))
	}
	return msg.String()
}

// Unwrap exposes ErrExternalTool and the underlying exec error.
func (e *ExternalToolError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrExternalTool}
	}
	return []error{ErrExternalTool, e.Err}
}

// Error implements the error interface.
func (e *ArtifactMissingError) Error() string {
	return fmt.Sprintf("build produced no executable at %s", e.Path)
}

// Unwrap exposes ErrArtifactMissing and the stat error.
func (e *ArtifactMissingError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrArtifactMissing}
	}
	return []error{ErrArtifactMissing, e.Err}
}

// Error implements the error interface.
func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", e.Stage, e.Op, e.Path, e.Err)
}

// Unwrap exposes ErrFilesystem and the os error.
func (e *FilesystemError) Unwrap() []error {
	return []error{ErrFilesystem, e.Err}
}

// lastLine returns the final non-empty line of multi-line tool output,
// which is where compilers and cmake put the summary.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
