// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/cg1/g1embed/internal/embed"
	"github.com/cg1/g1embed/internal/issue"
)

// Process exit codes.
const (
	ExitInputNotFound   = 1
	ExitUsage           = 2
	ExitToolFailed      = 3
	ExitArtifactMissing = 4
	ExitFilesystem      = 5
	ExitCanceled        = 130
)

// stderrTailLines bounds the tool output quoted under a failure when it was
// not already streamed with --verbose.
const stderrTailLines = 20

// classifyEmbedError maps a pipeline failure to a process exit code, an issue
// catalog ID and a styled message for CLI rendering.
func classifyEmbedError(err error, verbose bool) (code int, issueID issue.Id, styledMsg string) {
	code, issueID = ExitInputNotFound, 0

	var toolErr *embed.ExternalToolError
	switch {
	case errors.Is(err, context.Canceled):
		code = ExitCanceled
	case errors.Is(err, embed.ErrInputNotFound):
		code, issueID = ExitInputNotFound, issue.InputNotFoundId
		if errors.Is(err, os.ErrPermission) {
			issueID = issue.PermissionDeniedId
		}
	case errors.Is(err, embed.ErrInvalidRequest):
		code, issueID = ExitUsage, issue.InvalidRequestId
	case errors.As(err, &toolErr):
		code, issueID = ExitToolFailed, toolIssue(toolErr)
	case errors.Is(err, embed.ErrArtifactMissing):
		code, issueID = ExitArtifactMissing, issue.ArtifactMissingId
	case errors.Is(err, embed.ErrFilesystem):
		code, issueID = ExitFilesystem, issue.FilesystemErrorId
		if errors.Is(err, os.ErrPermission) {
			issueID = issue.PermissionDeniedId
		}
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "\n%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(withRemedies(err), verbose))
	if toolErr != nil && !verbose {
		if tail := tailLines(toolErr.Log.Stderr, stderrTailLines); tail != "" {
			fmt.Fprintf(&msg, "\n%s\n%s\n", VerboseHighlightStyle.Render(toolErr.Log.Command+" output:"), VerboseStyle.Render(tail))
		}
	}
	return code, issueID, msg.String()
}

// withRemedies attaches the failed operation and remediation hints to local
// filesystem and staging failures. Other errors are returned unchanged.
func withRemedies(err error) error {
	var fsErr *embed.FilesystemError
	var artErr *embed.ArtifactMissingError
	switch {
	case errors.As(err, &fsErr) && fsErr.Err != nil && fsErr.Op != "":
		ae := issue.WrapWithContext(fsErr.Err, fsErr.Op, fsErr.Path)
		switch {
		case errors.Is(fsErr.Err, embed.ErrUnsafeWorkspace):
			ae.Suggestions = append(ae.Suggestions,
				"Set build.workspace_dir to a dedicated directory such as embed_build",
				"The workspace is deleted before every build, so it must not contain sources")
		case errors.Is(fsErr.Err, os.ErrPermission):
			ae.Suggestions = append(ae.Suggestions, "Check the permissions of "+fsErr.Path)
		}
		return ae
	case errors.As(err, &artErr):
		ae := issue.WrapWithContext(err, "stage executable", "")
		ae.Suggestions = append(ae.Suggestions,
			"Check that the CMake project builds its executable into the workspace",
			"Set build.executable_name if the target has a different name")
		return ae
	}
	return err
}

func toolIssue(err *embed.ExternalToolError) issue.Id {
	if errors.Is(err, exec.ErrNotFound) {
		return issue.ToolNotFoundId
	}
	switch err.Stage {
	case embed.StateEncoding:
		return issue.EncoderFailedId
	case embed.StateConfiguringBuild:
		return issue.ConfigureFailedId
	default:
		return issue.BuildFailedId
	}
}

// formatErrorForDisplay formats an error for user display.
// ActionableErrors print their suggestions; verbose mode adds the error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

func tailLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
