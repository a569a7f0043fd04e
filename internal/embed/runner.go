// SPDX-License-Identifier: MPL-2.0

package embed

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long Run waits for the output pipes to close after the
// process exits or is killed. Compilers spawned by cmake can hold them open.
const waitDelay = 5 * time.Second

type (
	// Command describes one external invocation.
	Command struct {
		Name string
		Args []string
		// Dir is the working directory. Empty means the current directory.
		Dir string
		// Echo, when set, receives a live copy of stdout and stderr.
		Echo io.Writer
	}

	// CommandResult holds the captured output of a finished command.
	CommandResult struct {
		Stdout   string
		Stderr   string
		ExitCode int
	}

	// CommandLog captures one external command invocation and its outcome.
	CommandLog struct {
		Command  string   `json:"command"`
		Args     []string `json:"args"`
		Dir      string   `json:"dir,omitempty"`
		ExitCode int      `json:"exitCode"`
		Stdout   string   `json:"stdout"`
		Stderr   string   `json:"stderr"`
	}

	// CommandRunner executes external commands. Implementations must return a
	// non-nil error for a command that could not start or exited non-zero.
	CommandRunner interface {
		Run(ctx context.Context, cmd Command) (CommandResult, error)
	}

	// ExecRunner runs commands through os/exec.
	ExecRunner struct{}
)

// Run executes cmd to completion and captures stdout, stderr and the exit code.
// A command that cannot be started reports exit code -1. When ctx ends while
// the command runs, the returned error also matches ctx.Err().
func (ExecRunner) Run(ctx context.Context, cmd Command) (CommandResult, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	if cmd.Echo != nil {
		c.Stdout = io.MultiWriter(&stdout, cmd.Echo)
		c.Stderr = io.MultiWriter(&stderr, cmd.Echo)
	} else {
		c.Stdout = &stdout
		c.Stderr = &stderr
	}

	err := c.Run()
	result := CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Join(ctxErr, err)
		}
		return result, err
	}

	return result, nil
}

// newCommandLog records cmd and its result.
func newCommandLog(cmd Command, res CommandResult) CommandLog {
	return CommandLog{
		Command:  cmd.Name,
		Args:     cmd.Args,
		Dir:      cmd.Dir,
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
	}
}

// String renders the invocation as a single shell-like line.
func (l CommandLog) String() string {
	return commandLine(l.Command, l.Args)
}

func commandLine(name string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, quoteArg(name))
	for _, a := range args {
		parts = append(parts, quoteArg(a))
	}
	return strings.Join(parts, " ")
}

func quoteArg(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"\\$`") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
