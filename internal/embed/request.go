// SPDX-License-Identifier: MPL-2.0

package embed

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// TargetNative builds for the host platform.
	TargetNative Target = "native"
	// TargetWindowsCross cross-compiles a Windows executable with the MinGW toolchain.
	TargetWindowsCross Target = "windows-cross"

	// DefaultTitle is the window title used when none is given.
	DefaultTitle = "cg1"
	// DefaultScale is the window scale factor used when none is given.
	DefaultScale = 1

	// DefaultHeaderPath is the header location consumed by the native source tree.
	DefaultHeaderPath = "src/cg1/embed.h"
	// DefaultWorkspaceDir is the CMake binary directory used for one run.
	DefaultWorkspaceDir = "embed_build"
	// DefaultToolchainFile is the CMake toolchain description for the Windows cross target.
	DefaultToolchainFile = "mingw-w64-toolchain.cmake"
	// DefaultExecutableName is the base name of the binary the build deposits in the workspace.
	DefaultExecutableName = "main"
	// DefaultSymbol is the C identifier of the embedded byte array.
	DefaultSymbol = "__embedded_program"
)

// ErrUnsafeWorkspace reports a workspace whose reset would delete source files.
var ErrUnsafeWorkspace = errors.New("workspace overlaps the source tree")

type (
	// Target selects the platform the produced executable runs on.
	Target string

	// Request is a single embedding unit of work.
	Request struct {
		// InputPath is the data file to embed. It must be a regular file.
		InputPath string
		// OutputPath receives a copy of the built executable. Existing files are overwritten.
		OutputPath string
		// ShowFPS enables the runtime's FPS overlay.
		ShowFPS bool
		// Scale is the window scale factor (>= 1).
		Scale int
		// Title is the window title.
		Title string
		// StaticLink requests a statically linked executable. Defaults to false.
		StaticLink bool
		// Target selects native or Windows cross compilation. Empty means native.
		Target Target
	}

	// Layout holds the filesystem locations one pipeline run works with.
	// Relative HeaderPath, WorkspaceDir and ToolchainFile are resolved against SourceDir.
	Layout struct {
		SourceDir      string
		HeaderPath     string
		WorkspaceDir   string
		ToolchainFile  string
		ExecutableName string
		Symbol         string
	}
)

// NewRequest returns a Request with the documented defaults applied.
func NewRequest(inputPath, outputPath string) Request {
	return Request{
		InputPath:  inputPath,
		OutputPath: outputPath,
		Scale:      DefaultScale,
		Title:      DefaultTitle,
		Target:     TargetNative,
	}
}

// String returns the target name.
func (t Target) String() string { return string(t) }

// IsValid reports whether t is a known target. The empty value counts as native.
func (t Target) IsValid() bool {
	switch t {
	case "", TargetNative, TargetWindowsCross:
		return true
	default:
		return false
	}
}

// normalized maps the zero value to TargetNative.
func (t Target) normalized() Target {
	if t == "" {
		return TargetNative
	}
	return t
}

// Validate checks the request fields that can be verified without touching the filesystem.
// Input existence is checked by the pipeline at run time.
func (r Request) Validate() error {
	var fieldErrs []string
	if strings.TrimSpace(r.InputPath) == "" {
		fieldErrs = append(fieldErrs, "input path is required")
	}
	if strings.TrimSpace(r.OutputPath) == "" {
		fieldErrs = append(fieldErrs, "output path is required")
	}
	if r.Scale < 1 {
		fieldErrs = append(fieldErrs, fmt.Sprintf("scale must be a positive integer, got %d", r.Scale))
	}
	if r.Title == "" {
		fieldErrs = append(fieldErrs, "title must not be empty")
	}
	if !r.Target.IsValid() {
		fieldErrs = append(fieldErrs, fmt.Sprintf("unknown target %q", r.Target))
	}
	if len(fieldErrs) > 0 {
		return &InvalidRequestError{FieldErrors: fieldErrs}
	}
	return nil
}

// DefaultLayout returns the layout of a cg1 source checkout rooted at the current directory.
func DefaultLayout() Layout {
	return Layout{
		SourceDir:      ".",
		HeaderPath:     DefaultHeaderPath,
		WorkspaceDir:   DefaultWorkspaceDir,
		ToolchainFile:  DefaultToolchainFile,
		ExecutableName: DefaultExecutableName,
		Symbol:         DefaultSymbol,
	}
}

// withDefaults fills empty fields from DefaultLayout.
func (l Layout) withDefaults() Layout {
	d := DefaultLayout()
	if l.SourceDir == "" {
		l.SourceDir = d.SourceDir
	}
	if l.HeaderPath == "" {
		l.HeaderPath = d.HeaderPath
	}
	if l.WorkspaceDir == "" {
		l.WorkspaceDir = d.WorkspaceDir
	}
	if l.ToolchainFile == "" {
		l.ToolchainFile = d.ToolchainFile
	}
	if l.ExecutableName == "" {
		l.ExecutableName = d.ExecutableName
	}
	if l.Symbol == "" {
		l.Symbol = d.Symbol
	}
	return l
}

// HeaderFile returns the header path resolved against SourceDir.
func (l Layout) HeaderFile() string { return l.resolve(l.HeaderPath) }

// Workspace returns the workspace path resolved against SourceDir.
func (l Layout) Workspace() string { return l.resolve(l.WorkspaceDir) }

func (l Layout) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(l.SourceDir, p)
}

// ToolchainPath returns the toolchain file path resolved against SourceDir.
func (l Layout) ToolchainPath() string { return l.resolve(l.ToolchainFile) }

// CheckWorkspace rejects a workspace that the reset step must never delete:
// the source directory, one of its ancestors, or a directory holding the
// header or the toolchain file.
func (l Layout) CheckWorkspace() error {
	l = l.withDefaults()
	ws, err := filepath.Abs(l.Workspace())
	if err != nil {
		return err
	}

	guarded := []struct{ what, path string }{
		{"source directory", l.SourceDir},
		{"header", l.HeaderFile()},
		{"toolchain file", l.ToolchainPath()},
	}
	for _, g := range guarded {
		abs, err := filepath.Abs(g.path)
		if err != nil {
			return err
		}
		if within(abs, ws) {
			return fmt.Errorf("%w: %s contains the %s %s", ErrUnsafeWorkspace, ws, g.what, abs)
		}
	}
	return nil
}

// within reports whether path is dir or lies below it. Both must be absolute.
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
