// SPDX-License-Identifier: MPL-2.0

package embed

import (
	"context"
	"io"
)

// DefaultBuildCommand is the build system front end.
var DefaultBuildCommand = []string{"cmake"}

// Driver runs the configure and build phases of the native build.
// Build depends on state written by Configure, so callers must run them in order.
type Driver struct {
	// Command is the build system argv prefix, "cmake" by default.
	Command []string
	// Dir is the native source tree the build system runs in.
	Dir    string
	Runner CommandRunner
	// Echo, when set, receives live build output.
	Echo io.Writer
}

// Configure runs the configure phase with the given BuildConfigureArgs.
func (d *Driver) Configure(ctx context.Context, args []string) (CommandLog, error) {
	return d.run(ctx, StateConfiguringBuild, args)
}

// Build runs the build phase against the configured workspace.
func (d *Driver) Build(ctx context.Context, layout Layout) (CommandLog, error) {
	return d.run(ctx, StateBuilding, BuildArgs(layout))
}

func (d *Driver) command(args []string) Command {
	argv := d.Command
	if len(argv) == 0 {
		argv = DefaultBuildCommand
	}
	full := make([]string, 0, len(argv)-1+len(args))
	full = append(full, argv[1:]...)
	full = append(full, args...)
	return Command{Name: argv[0], Args: full, Dir: d.Dir, Echo: d.Echo}
}

func (d *Driver) run(ctx context.Context, stage State, args []string) (CommandLog, error) {
	cmd := d.command(args)
	res, err := d.Runner.Run(ctx, cmd)
	log := newCommandLog(cmd, res)
	if err != nil {
		return log, &ExternalToolError{Stage: stage, Log: log, Err: err}
	}
	return log, nil
}
