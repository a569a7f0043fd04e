// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/cg1/g1embed/internal/config"
	"github.com/cg1/g1embed/internal/embed"
	"github.com/cg1/g1embed/internal/issue"
	"github.com/cg1/g1embed/internal/testutil"
)

type (
	stubConfigProvider struct {
		cfg *config.Config
		err error
		got config.LoadOptions
	}

	recordingEmbedder struct {
		requests []EmbedRequest
		planned  bool
		err      error
	}
)

func (p *stubConfigProvider) Load(_ context.Context, opts config.LoadOptions) (*config.Config, error) {
	p.got = opts
	if p.err != nil {
		return nil, p.err
	}
	return p.cfg, nil
}

func (e *recordingEmbedder) Embed(_ context.Context, req EmbedRequest) (*embed.Result, error) {
	e.requests = append(e.requests, req)
	if e.err != nil {
		return &embed.Result{State: embed.StateFailed}, e.err
	}
	return &embed.Result{State: embed.StateDone, OutputPath: req.Request.OutputPath}, nil
}

func (e *recordingEmbedder) Plan(_ context.Context, req EmbedRequest) ([]embed.PlanStep, error) {
	e.requests = append(e.requests, req)
	e.planned = true
	return nil, e.err
}

func darkConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.UI.ColorScheme = config.ColorSchemeDark
	return cfg
}

// runCLI executes the command tree with args the way Execute does.
func runCLI(t *testing.T, deps Dependencies, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	deps.Stdout, deps.Stderr = &out, &errOut
	app, appErr := NewApp(deps)
	if appErr != nil {
		t.Fatalf("NewApp() failed: %v", appErr)
	}

	rootCmd := newRootCommand(app)
	rootCmd.SetArgs(normalizeArgs(args))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	err = rootCmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError, got %T: %v", err, err)
	}
	return exitErr.Code
}

func TestNormalizeArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"no legacy flags", []string{"a", "b", "-f"}, []string{"a", "b", "-f"}},
		{"static", []string{"a", "b", "-st"}, []string{"a", "b", "--static"}},
		{"windows", []string{"-win", "a", "b"}, []string{"--windows", "a", "b"}},
		{"both", []string{"a", "b", "-st", "-win", "-s", "2"}, []string{"a", "b", "--static", "--windows", "-s", "2"}},
		{"after terminator", []string{"--", "-st", "-win"}, []string{"--", "-st", "-win"}},
		{"empty", []string{}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := normalizeArgs(tt.in); !slices.Equal(got, tt.want) {
				t.Errorf("normalizeArgs(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRoot_FlagsBuildRequest(t *testing.T) {
	embedder := &recordingEmbedder{}
	stdout, _, err := runCLI(t, Dependencies{
		Config:   &stubConfigProvider{cfg: darkConfig()},
		Embedder: embedder,
	}, "game.rom", "game.exe", "-f", "-s", "3", "-t", "Demo", "-st", "-win")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if len(embedder.requests) != 1 {
		t.Fatalf("Embed called %d times, want 1", len(embedder.requests))
	}
	want := embed.Request{
		InputPath:  "game.rom",
		OutputPath: "game.exe",
		ShowFPS:    true,
		Scale:      3,
		Title:      "Demo",
		StaticLink: true,
		Target:     embed.TargetWindowsCross,
	}
	if got := embedder.requests[0].Request; got != want {
		t.Errorf("request = %+v, want %+v", got, want)
	}
	if !strings.Contains(stdout, "Build successful.") {
		t.Errorf("stdout = %q, want success message", stdout)
	}
}

func TestRoot_DefaultsFromConfig(t *testing.T) {
	cfg := darkConfig()
	cfg.Defaults.Title = "Configured"
	cfg.Defaults.Scale = 4
	embedder := &recordingEmbedder{}

	_, _, err := runCLI(t, Dependencies{
		Config:   &stubConfigProvider{cfg: cfg},
		Embedder: embedder,
	}, "in.bin", "out")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	req := embedder.requests[0].Request
	if req.Title != "Configured" || req.Scale != 4 {
		t.Errorf("request = %+v, want title Configured scale 4", req)
	}
	if req.StaticLink {
		t.Error("static linking must default to false")
	}
	if req.Target != embed.TargetNative {
		t.Errorf("target = %q, want native", req.Target)
	}
	if req.ShowFPS {
		t.Error("show_fps must default to false")
	}
}

func TestRoot_ExplicitFlagOverridesConfig(t *testing.T) {
	cfg := darkConfig()
	cfg.Defaults.Scale = 4
	embedder := &recordingEmbedder{}

	_, _, err := runCLI(t, Dependencies{
		Config:   &stubConfigProvider{cfg: cfg},
		Embedder: embedder,
	}, "in.bin", "out", "--scale", "1")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := embedder.requests[0].Request.Scale; got != 1 {
		t.Errorf("scale = %d, want 1", got)
	}
}

func TestRoot_ConfigFlagPassedToProvider(t *testing.T) {
	provider := &stubConfigProvider{cfg: darkConfig()}
	_, _, err := runCLI(t, Dependencies{Config: provider, Embedder: &recordingEmbedder{}},
		"in.bin", "out", "--config", "/etc/g1embed.cue")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if provider.got.ConfigFilePath != "/etc/g1embed.cue" {
		t.Errorf("ConfigFilePath = %q", provider.got.ConfigFilePath)
	}
}

func TestRoot_WrongArgCount(t *testing.T) {
	embedder := &recordingEmbedder{}
	_, _, err := runCLI(t, Dependencies{
		Config:   &stubConfigProvider{cfg: darkConfig()},
		Embedder: embedder,
	}, "only-input")
	if err == nil {
		t.Fatal("expected an argument count error")
	}
	if len(embedder.requests) != 0 {
		t.Error("no embedding should start on a usage error")
	}
}

func TestRoot_ConfigLoadFailure(t *testing.T) {
	embedder := &recordingEmbedder{}
	_, stderr, err := runCLI(t, Dependencies{
		Config:   &stubConfigProvider{err: errors.New("bad config")},
		Embedder: embedder,
	}, "in.bin", "out")

	if code := exitCode(t, err); code != ExitUsage {
		t.Errorf("exit code = %d, want %d", code, ExitUsage)
	}
	if !strings.Contains(stderr, "bad config") {
		t.Errorf("stderr should contain the error, got %q", stderr)
	}
	if len(embedder.requests) != 0 {
		t.Error("no embedding should start when config fails to load")
	}
}

func TestRoot_MissingInputExitsOne(t *testing.T) {
	dir := t.TempDir()
	cfg := darkConfig()
	cfg.Build.SourceDir = dir

	stdout, stderr, err := runCLI(t, Dependencies{Config: &stubConfigProvider{cfg: cfg}},
		filepath.Join(dir, "missing.rom"), filepath.Join(dir, "out"))

	if code := exitCode(t, err); code != ExitInputNotFound {
		t.Errorf("exit code = %d, want %d", code, ExitInputNotFound)
	}
	if !strings.Contains(stdout, "Could not find file") || !strings.Contains(stdout, "missing.rom") {
		t.Errorf("stdout should name the missing file, got %q", stdout)
	}
	if !strings.Contains(stderr, "found") {
		t.Errorf("stderr should carry the help section, got %q", stderr)
	}
	if strings.Contains(stdout, "Build successful.") {
		t.Error("failure must not print the success message")
	}
	entries, _ := filepath.Glob(filepath.Join(dir, "*"))
	if len(entries) != 0 {
		t.Errorf("missing input must leave no side effects, found %v", entries)
	}
}

func TestRoot_DryRun(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "game.rom")
	testutil.MustWriteFile(t, input, "data")
	cfg := darkConfig()
	cfg.Build.SourceDir = dir

	stdout, _, err := runCLI(t, Dependencies{Config: &stubConfigProvider{cfg: cfg}},
		input, filepath.Join(dir, "game"), "--dry-run", "-st")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	for _, want := range []string{"Dry Run", "xxd -i -n __embedded_program", "-DSTATIC_BUILD=ON", "--build"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("dry run output missing %q:\n%s", want, stdout)
		}
	}
	if strings.Contains(stdout, "Build successful.") {
		t.Error("dry run must not report a build")
	}
	entries, _ := filepath.Glob(filepath.Join(dir, "*"))
	if len(entries) != 1 {
		t.Errorf("dry run must not touch the source tree, found %v", entries)
	}
}

func TestRoot_EmbedFailureExitCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"tool", &embed.ExternalToolError{Stage: embed.StateBuilding, Log: embed.CommandLog{Command: "cmake", ExitCode: 2}}, ExitToolFailed},
		{"artifact", &embed.ArtifactMissingError{Path: "embed_build/main"}, ExitArtifactMissing},
		{"filesystem", &embed.FilesystemError{Stage: embed.StateStaging, Op: "copy", Path: "out", Err: errors.New("disk full")}, ExitFilesystem},
		{"invalid", &embed.InvalidRequestError{FieldErrors: []string{"scale must be >= 1"}}, ExitUsage},
		{"canceled", context.Canceled, ExitCanceled},
		{"canceled tool", &embed.ExternalToolError{Stage: embed.StateBuilding, Err: errors.Join(context.Canceled, errors.New("signal: killed"))}, ExitCanceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := runCLI(t, Dependencies{
				Config:   &stubConfigProvider{cfg: darkConfig()},
				Embedder: &recordingEmbedder{err: tt.err},
			}, "in.bin", "out")

			if code := exitCode(t, err); code != tt.code {
				t.Errorf("exit code = %d, want %d", code, tt.code)
			}
			var svcErr *ServiceError
			if !errors.As(err, &svcErr) {
				t.Errorf("expected the error to carry a *ServiceError, got %T", err)
			}
			if strings.Contains(stdout, "Build successful.") {
				t.Error("failure must not print the success message")
			}
		})
	}
}

func TestConfigCommand_Dump(t *testing.T) {
	cfg := darkConfig()
	cfg.Build.WorkspaceDir = "custom_ws"

	for _, format := range []string{"cue", "toml"} {
		t.Run(format, func(t *testing.T) {
			stdout, _, err := runCLI(t, Dependencies{Config: &stubConfigProvider{cfg: cfg}},
				"config", "dump", "--format", format)
			if err != nil {
				t.Fatalf("execute: %v", err)
			}
			if !strings.Contains(stdout, "custom_ws") {
				t.Errorf("dump output missing workspace_dir:\n%s", stdout)
			}
		})
	}
}

func TestConfigCommand_Show(t *testing.T) {
	config.SetConfigDirOverride(t.TempDir())
	t.Cleanup(config.Reset)
	t.Cleanup(testutil.MustChdir(t, t.TempDir()))

	stdout, _, err := runCLI(t, Dependencies{Config: &stubConfigProvider{cfg: darkConfig()}}, "config", "show")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, want := range []string{"Current Configuration", "(using defaults)", "workspace_dir", "embed_build"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("show output missing %q:\n%s", want, stdout)
		}
	}
}

func TestConfigCommand_InitAndPath(t *testing.T) {
	cfgDir := t.TempDir()
	config.SetConfigDirOverride(cfgDir)
	t.Cleanup(config.Reset)
	t.Cleanup(testutil.MustChdir(t, t.TempDir()))
	deps := Dependencies{Config: &stubConfigProvider{cfg: darkConfig()}}

	stdout, _, err := runCLI(t, deps, "config", "path")
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if !strings.Contains(stdout, "not created yet") {
		t.Errorf("path before init = %q", stdout)
	}

	if _, _, err := runCLI(t, deps, "config", "init"); err != nil {
		t.Fatalf("config init: %v", err)
	}

	stdout, _, err = runCLI(t, deps, "config", "path")
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if strings.TrimSpace(stdout) != filepath.Join(cfgDir, "config.cue") {
		t.Errorf("path after init = %q", stdout)
	}
}

func TestGetVersionString(t *testing.T) {
	origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
	t.Cleanup(func() {
		Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
	})

	Version, Commit, BuildDate = "v1.2.3", "abc1234", "2026-01-15T10:00:00Z"
	if got, want := getVersionString(), "v1.2.3 (commit: abc1234, built: 2026-01-15T10:00:00Z)"; got != want {
		t.Errorf("getVersionString() = %q, want %q", got, want)
	}

	Version = "dev"
	if got, want := getVersionString(), "dev (built from source)"; got != want {
		t.Errorf("getVersionString() = %q, want %q", got, want)
	}
}

func TestClassifyEmbedError_Issues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		err   error
		issue issue.Id
	}{
		{"missing input", &embed.PreconditionError{Path: "x"}, issue.InputNotFoundId},
		{"encoder", &embed.ExternalToolError{Stage: embed.StateEncoding}, issue.EncoderFailedId},
		{"configure", &embed.ExternalToolError{Stage: embed.StateConfiguringBuild}, issue.ConfigureFailedId},
		{"build", &embed.ExternalToolError{Stage: embed.StateBuilding}, issue.BuildFailedId},
		{"artifact", &embed.ArtifactMissingError{Path: "p"}, issue.ArtifactMissingId},
		{"filesystem", &embed.FilesystemError{Stage: embed.StateStaging, Err: errors.New("x")}, issue.FilesystemErrorId},
		{"canceled", context.Canceled, 0},
		{"canceled tool", &embed.ExternalToolError{Stage: embed.StateBuilding, Err: errors.Join(context.Canceled, errors.New("signal: killed"))}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, got, msg := classifyEmbedError(tt.err, false)
			if got != tt.issue {
				t.Errorf("issue = %d, want %d", got, tt.issue)
			}
			if !strings.Contains(msg, "Error:") {
				t.Errorf("styled message = %q", msg)
			}
		})
	}
}

func TestClassifyEmbedError_MissingTool(t *testing.T) {
	t.Parallel()

	cmd := embed.Command{Name: "g1embed-no-such-tool"}
	res, runErr := embed.ExecRunner{}.Run(context.Background(), cmd)
	err := &embed.ExternalToolError{
		Stage: embed.StateEncoding,
		Log:   embed.CommandLog{Command: cmd.Name, ExitCode: res.ExitCode},
		Err:   runErr,
	}

	code, id, _ := classifyEmbedError(err, false)
	if code != ExitToolFailed {
		t.Errorf("exit code = %d, want %d", code, ExitToolFailed)
	}
	if id != issue.ToolNotFoundId {
		t.Errorf("issue = %d, want %d", id, issue.ToolNotFoundId)
	}
}

func TestClassifyEmbedError_Remedies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		code int
		want []string
	}{
		{
			"unsafe workspace",
			&embed.FilesystemError{
				Stage: embed.StateValidating,
				Op:    "check workspace",
				Path:  "/src",
				Err:   fmt.Errorf("%w: /src contains the header", embed.ErrUnsafeWorkspace),
			},
			ExitFilesystem,
			[]string{"failed to check workspace: /src", "build.workspace_dir"},
		},
		{
			"artifact missing",
			&embed.ArtifactMissingError{Path: "embed_build/main"},
			ExitArtifactMissing,
			[]string{"failed to stage executable", "embed_build/main", "build.executable_name"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			code, _, msg := classifyEmbedError(tt.err, false)
			if code != tt.code {
				t.Errorf("exit code = %d, want %d", code, tt.code)
			}
			for _, want := range tt.want {
				if !strings.Contains(msg, want) {
					t.Errorf("message %q missing %q", msg, want)
				}
			}
		})
	}
}
