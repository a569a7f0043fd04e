// SPDX-License-Identifier: MPL-2.0

package embed

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

const (
	StateValidating       State = "validating"
	StateEncoding         State = "encoding"
	StateConfiguringBuild State = "configuring"
	StateBuilding         State = "building"
	StateStaging          State = "staging"
	StateCleaningUp       State = "cleaning up"
	StateDone             State = "done"
	StateFailed           State = "failed"
)

// lockSuffix names the lock file that sits next to the workspace directory.
const lockSuffix = ".lock"

type (
	// State is a step of the embedding pipeline.
	State string

	// Options configures a Pipeline. Zero values select production defaults.
	Options struct {
		Layout Layout
		// EncoderCommand is the encoder argv prefix, ["xxd"] by default.
		EncoderCommand []string
		// BuildCommand is the build system argv prefix, ["cmake"] by default.
		BuildCommand []string
		Runner       CommandRunner
		Logger       *log.Logger
		// BuildOutput, when set, receives live output of the configure and build steps.
		BuildOutput io.Writer
		// DisableLock skips the workspace lock. Only safe with one run per source tree.
		DisableLock bool
		// OnStage is called on every state transition.
		OnStage func(State)
	}

	// Pipeline turns a data file into a standalone executable.
	// Runs against the same Layout are serialized by a workspace lock.
	Pipeline struct {
		layout  Layout
		encoder *Encoder
		driver  *Driver
		logger  *log.Logger
		lock    bool
		onStage func(State)
	}

	// Result describes a finished run.
	Result struct {
		State State
		// ArtifactPath is the binary inside the workspace that was copied.
		ArtifactPath string
		// OutputPath is the absolute path the artifact was copied to.
		OutputPath string
		// WorkspaceReset reports whether a previous workspace was deleted.
		WorkspaceReset bool
		Logs           []CommandLog
	}

	// PlanStep is one action Run would take.
	PlanStep struct {
		State       State
		Description string
		// Command is set for steps that invoke an external tool.
		Command *Command
	}
)

// String returns the state name.
func (s State) String() string { return string(s) }

// New creates a Pipeline from opts.
func New(opts Options) *Pipeline {
	layout := opts.Layout.withDefaults()

	runner := opts.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Pipeline{
		layout: layout,
		encoder: &Encoder{
			Command: opts.EncoderCommand,
			Symbol:  layout.Symbol,
			Runner:  runner,
		},
		driver: &Driver{
			Command: opts.BuildCommand,
			Dir:     layout.SourceDir,
			Runner:  runner,
			Echo:    opts.BuildOutput,
		},
		logger:  logger,
		lock:    !opts.DisableLock,
		onStage: opts.OnStage,
	}
}

// Layout returns the resolved layout the pipeline works with.
func (p *Pipeline) Layout() Layout { return p.layout }

// Run executes the pipeline for req. Any failure stops the run; the
// generated header is removed whether the run succeeds or fails, and the
// workspace is left on disk. The returned Result is never nil.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	res := &Result{}

	p.enter(res, StateValidating)
	if err := req.Validate(); err != nil {
		// A missing input outranks the other field errors.
		if strings.TrimSpace(req.InputPath) != "" {
			if _, inErr := checkInput(req.InputPath); inErr != nil {
				return p.fail(res, inErr)
			}
		}
		return p.fail(res, err)
	}
	inputPath, err := checkInput(req.InputPath)
	if err != nil {
		return p.fail(res, err)
	}
	if err := p.layout.CheckWorkspace(); err != nil {
		return p.fail(res, &FilesystemError{Stage: StateValidating, Op: "check workspace", Path: p.layout.Workspace(), Err: err})
	}
	outputPath, err := filepath.Abs(req.OutputPath)
	if err != nil {
		return p.fail(res, &FilesystemError{Stage: StateValidating, Op: "resolve output", Path: req.OutputPath, Err: err})
	}
	res.OutputPath = outputPath

	if p.lock {
		lockPath := p.layout.Workspace() + lockSuffix
		p.logger.Debug("acquiring workspace lock", "path", lockPath)
		lock, lockErr := acquireWorkspaceLock(lockPath)
		if lockErr != nil {
			return p.fail(res, &FilesystemError{Stage: StateValidating, Op: "lock workspace", Path: lockPath, Err: lockErr})
		}
		defer lock.Release()
	}

	if err := p.checkContext(ctx, res); err != nil {
		return res, err
	}
	p.enter(res, StateEncoding)
	text, encLog, err := p.encoder.Encode(ctx, inputPath)
	res.Logs = append(res.Logs, encLog)
	if err != nil {
		return p.fail(res, err)
	}

	header := p.layout.HeaderFile()
	defer func() {
		if res.State != StateFailed {
			return
		}
		if rmErr := RemoveHeader(header); rmErr != nil {
			p.logger.Warn("failed to remove generated header", "path", header, "error", rmErr)
		}
	}()
	if err := WriteHeader(header, text); err != nil {
		return p.fail(res, err)
	}
	p.logger.Debug("wrote header", "path", header, "bytes", len(text))

	if err := p.checkContext(ctx, res); err != nil {
		return res, err
	}
	p.enter(res, StateConfiguringBuild)
	reset, err := ResetWorkspace(p.logger, p.layout.Workspace())
	res.WorkspaceReset = reset
	if err != nil {
		return p.fail(res, err)
	}
	cfgLog, err := p.driver.Configure(ctx, BuildConfigureArgs(req, p.layout))
	res.Logs = append(res.Logs, cfgLog)
	if err != nil {
		return p.fail(res, err)
	}

	if err := p.checkContext(ctx, res); err != nil {
		return res, err
	}
	p.enter(res, StateBuilding)
	buildLog, err := p.driver.Build(ctx, p.layout)
	res.Logs = append(res.Logs, buildLog)
	if err != nil {
		return p.fail(res, err)
	}

	p.enter(res, StateStaging)
	name := ArtifactName(req.Target, p.layout.ExecutableName)
	src, err := StageArtifact(p.layout.Workspace(), name, outputPath)
	res.ArtifactPath = src
	if err != nil {
		return p.fail(res, err)
	}
	p.logger.Info("staged executable", "from", src, "to", outputPath)

	p.enter(res, StateCleaningUp)
	if err := RemoveHeader(header); err != nil {
		return p.fail(res, err)
	}

	p.enter(res, StateDone)
	return res, nil
}

// Plan lists what Run would do for req without touching the filesystem or
// running any tool.
func (p *Pipeline) Plan(req Request) ([]PlanStep, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := p.layout.CheckWorkspace(); err != nil {
		return nil, &FilesystemError{Stage: StateValidating, Op: "check workspace", Path: p.layout.Workspace(), Err: err}
	}

	header := p.layout.HeaderFile()
	workspace := p.layout.Workspace()
	encode := p.encoder.command(req.InputPath)
	configure := p.driver.command(BuildConfigureArgs(req, p.layout))
	build := p.driver.command(BuildArgs(p.layout))
	configure.Echo, build.Echo = nil, nil

	steps := []PlanStep{
		{State: StateValidating, Description: fmt.Sprintf("check that %s is a regular file", req.InputPath)},
	}
	if p.lock {
		steps = append(steps, PlanStep{State: StateValidating, Description: "lock " + workspace + lockSuffix})
	}
	steps = append(steps,
		PlanStep{State: StateEncoding, Description: "encode input", Command: &encode},
		PlanStep{State: StateEncoding, Description: "write header " + header},
		PlanStep{State: StateConfiguringBuild, Description: "remove workspace " + workspace + " if present"},
		PlanStep{State: StateConfiguringBuild, Description: "configure", Command: &configure},
		PlanStep{State: StateBuilding, Description: "build", Command: &build},
		PlanStep{
			State:       StateStaging,
			Description: fmt.Sprintf("copy %s to %s", filepath.Join(workspace, ArtifactName(req.Target, p.layout.ExecutableName)), req.OutputPath),
		},
		PlanStep{State: StateCleaningUp, Description: "remove header " + header},
	)
	return steps, nil
}

// String renders the step as one line.
func (s PlanStep) String() string {
	if s.Command == nil {
		return s.Description
	}
	return fmt.Sprintf("%s: %s", s.Description, s.CommandLine())
}

// CommandLine renders the step's command as a shell-quoted line, or "" when
// the step runs no tool.
func (s PlanStep) CommandLine() string {
	if s.Command == nil {
		return ""
	}
	line := commandLine(s.Command.Name, s.Command.Args)
	if s.Command.Dir != "" {
		line = "(cd " + quoteArg(s.Command.Dir) + " && " + line + ")"
	}
	return line
}

func (p *Pipeline) enter(res *Result, s State) {
	res.State = s
	p.logger.Debug("stage", "state", s)
	if p.onStage != nil {
		p.onStage(s)
	}
}

func (p *Pipeline) fail(res *Result, err error) (*Result, error) {
	failedAt := res.State
	p.enter(res, StateFailed)
	p.logger.Debug("pipeline failed", "stage", failedAt, "error", err)
	return res, err
}

func (p *Pipeline) checkContext(ctx context.Context, res *Result) error {
	if err := ctx.Err(); err != nil {
		_, err = p.fail(res, fmt.Errorf("embedding canceled after %s: %w", res.State, err))
		return err
	}
	return nil
}

// checkInput verifies path names a readable regular file and returns its absolute form.
func checkInput(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", &PreconditionError{Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return "", &PreconditionError{Path: path, Err: fmt.Errorf("not a regular file: %s", info.Mode())}
	}
	f, err := os.Open(path)
	if err != nil {
		return "", &PreconditionError{Path: path, Err: err}
	}
	f.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &PreconditionError{Path: path, Err: err}
	}
	return abs, nil
}
