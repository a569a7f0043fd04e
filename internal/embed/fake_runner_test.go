// SPDX-License-Identifier: MPL-2.0

package embed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// fakeRunner stands in for xxd and cmake. The configure call creates the
// workspace, and the build call drops an executable named binary into it.
type fakeRunner struct {
	mu sync.Mutex

	header string // stdout of the encoder
	binary string // file the build step creates; empty means none

	failOn   string // "encode", "configure" or "build"
	exitCode int
	stderr   string

	calls []Command
	// headerSeen records whether the header existed when the build step ran.
	headerSeen bool
	headerPath string
}

func (f *fakeRunner) Run(_ context.Context, cmd Command) (CommandResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cmd)

	step := f.classify(cmd)
	if step == f.failOn {
		return CommandResult{Stderr: f.stderr, ExitCode: f.exitCode}, fmt.Errorf("exit status %d", f.exitCode)
	}

	switch step {
	case "encode":
		return CommandResult{Stdout: f.header}, nil
	case "configure":
		ws := argAfter(cmd.Args, "-B")
		if err := os.MkdirAll(inDir(cmd.Dir, ws), 0o755); err != nil {
			return CommandResult{ExitCode: 1}, err
		}
		return CommandResult{Stdout: "-- Configuring done"}, nil
	case "build":
		if f.headerPath != "" {
			_, err := os.Stat(f.headerPath)
			f.headerSeen = err == nil
		}
		ws := argAfter(cmd.Args, "--build")
		if f.binary != "" {
			if err := os.WriteFile(filepath.Join(inDir(cmd.Dir, ws), f.binary), []byte("\x7fELF"), 0o755); err != nil {
				return CommandResult{ExitCode: 1}, err
			}
		}
		return CommandResult{Stdout: "[100%] Built target main"}, nil
	}
	return CommandResult{ExitCode: 127}, errors.New("unexpected command")
}

func (f *fakeRunner) classify(cmd Command) string {
	switch {
	case slices.Contains(cmd.Args, "-i"):
		return "encode"
	case slices.Contains(cmd.Args, "-B"):
		return "configure"
	case slices.Contains(cmd.Args, "--build"):
		return "build"
	}
	return ""
}

func (f *fakeRunner) steps() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, f.classify(c))
	}
	return out
}

func argAfter(args []string, flag string) string {
	i := slices.Index(args, flag)
	if i < 0 || i+1 >= len(args) {
		return ""
	}
	return args[i+1]
}

func inDir(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
