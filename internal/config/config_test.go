// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cg1/g1embed/internal/embed"
	"github.com/cg1/g1embed/internal/issue"
	"github.com/cg1/g1embed/internal/testutil"
)

// isolate points every lookup location at empty temp directories.
func isolate(t *testing.T) string {
	t.Helper()
	cfgDir := t.TempDir()
	SetConfigDirOverride(cfgDir)
	t.Cleanup(Reset)
	t.Cleanup(testutil.MustChdir(t, t.TempDir()))
	return cfgDir
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Encoder.Command != "xxd" {
		t.Errorf("encoder.command = %q, want xxd", cfg.Encoder.Command)
	}
	if cfg.Build.Command != "cmake" {
		t.Errorf("build.command = %q, want cmake", cfg.Build.Command)
	}
	if cfg.Build.HeaderPath != embed.DefaultHeaderPath {
		t.Errorf("build.header_path = %q, want %q", cfg.Build.HeaderPath, embed.DefaultHeaderPath)
	}
	if cfg.Build.WorkspaceDir != embed.DefaultWorkspaceDir {
		t.Errorf("build.workspace_dir = %q, want %q", cfg.Build.WorkspaceDir, embed.DefaultWorkspaceDir)
	}
	if !cfg.Build.Lock {
		t.Error("expected build.lock to be true by default")
	}
	if cfg.Defaults.Title != "cg1" || cfg.Defaults.Scale != 1 {
		t.Errorf("defaults = %+v, want title cg1 scale 1", cfg.Defaults)
	}
	if cfg.UI.ColorScheme != ColorSchemeAuto {
		t.Errorf("ui.color_scheme = %q, want auto", cfg.UI.ColorScheme)
	}
	if valid, errs := cfg.IsValid(); !valid {
		t.Errorf("default config should be valid: %v", errs)
	}
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, path, err := loadWithOptions(context.Background(), LoadOptions{})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if path != "" {
		t.Errorf("resolved path = %q, want empty", path)
	}
	if *cfg != *DefaultConfig() {
		t.Errorf("config = %+v, want defaults", cfg)
	}
}

func TestLoad_CUEFromConfigDir(t *testing.T) {
	cfgDir := isolate(t)
	testutil.MustWriteFile(t, filepath.Join(cfgDir, "config.cue"), `
build: {
	workspace_dir: "out/embed"
	lock: false
}
defaults: scale: 3
`)

	cfg, path, err := loadWithOptions(context.Background(), LoadOptions{})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if path != filepath.Join(cfgDir, "config.cue") {
		t.Errorf("resolved path = %q", path)
	}
	if cfg.Build.WorkspaceDir != "out/embed" {
		t.Errorf("build.workspace_dir = %q, want out/embed", cfg.Build.WorkspaceDir)
	}
	if cfg.Build.Lock {
		t.Error("build.lock should be false")
	}
	if cfg.Defaults.Scale != 3 {
		t.Errorf("defaults.scale = %d, want 3", cfg.Defaults.Scale)
	}
	if cfg.Defaults.Title != "cg1" {
		t.Errorf("unset defaults.title should keep its default, got %q", cfg.Defaults.Title)
	}
}

func TestLoad_TOML(t *testing.T) {
	cfgDir := isolate(t)
	testutil.MustWriteFile(t, filepath.Join(cfgDir, "config.toml"), `
[encoder]
command = "xxd -C"

[defaults]
title = "Space Game"
scale = 2
`)

	cfg, path, err := loadWithOptions(context.Background(), LoadOptions{})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if filepath.Base(path) != "config.toml" {
		t.Errorf("resolved path = %q, want config.toml", path)
	}
	if cfg.Encoder.Command != "xxd -C" {
		t.Errorf("encoder.command = %q", cfg.Encoder.Command)
	}
	if cfg.Defaults.Title != "Space Game" || cfg.Defaults.Scale != 2 {
		t.Errorf("defaults = %+v", cfg.Defaults)
	}
}

func TestLoad_CUEPreferredOverTOML(t *testing.T) {
	cfgDir := isolate(t)
	testutil.MustWriteFile(t, filepath.Join(cfgDir, "config.cue"), `defaults: title: "from cue"`)
	testutil.MustWriteFile(t, filepath.Join(cfgDir, "config.toml"), "[defaults]\ntitle = \"from toml\"\n")

	cfg, _, err := loadWithOptions(context.Background(), LoadOptions{})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if cfg.Defaults.Title != "from cue" {
		t.Errorf("defaults.title = %q, want from cue", cfg.Defaults.Title)
	}
}

func TestLoad_LocalFile(t *testing.T) {
	isolate(t)
	testutil.MustWriteFile(t, "config.cue", `ui: verbose: true`)

	cfg, path, err := loadWithOptions(context.Background(), LoadOptions{})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if path != "config.cue" {
		t.Errorf("resolved path = %q, want config.cue", path)
	}
	if !cfg.UI.Verbose {
		t.Error("ui.verbose should be true")
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	isolate(t)
	explicit := filepath.Join(t.TempDir(), "custom.cue")
	testutil.MustWriteFile(t, explicit, `build: executable_name: "game"`)

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: explicit})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Build.ExecutableName != "game" {
		t.Errorf("build.executable_name = %q, want game", cfg.Build.ExecutableName)
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	isolate(t)

	_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: "/nonexistent/g1embed.cue"})
	if err == nil {
		t.Fatal("expected error for a missing explicit config file")
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("error should be *issue.ActionableError, got %T", err)
	}
	if ae.Resource != "/nonexistent/g1embed.cue" {
		t.Errorf("Resource = %q", ae.Resource)
	}
}

func TestLoad_SchemaViolations(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown field", "config.cue", `build: jobs: 4`},
		{"wrong type", "config.cue", `build: lock: "yes"`},
		{"scale below one", "config.cue", `defaults: scale: 0`},
		{"bad symbol", "config.cue", `encoder: symbol: "9lives"`},
		{"bad color scheme", "config.cue", `ui: color_scheme: "sepia"`},
		{"workspace is the source dir", "config.cue", `build: workspace_dir: "."`},
		{"syntax error", "config.cue", `build: {`},
		{"toml schema violation", "config.toml", "[defaults]\nscale = -1\n"},
		{"toml syntax error", "config.toml", "[defaults\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfgDir := isolate(t)
			path := filepath.Join(cfgDir, tt.file)
			testutil.MustWriteFile(t, path, tt.content)

			_, _, err := loadWithOptions(context.Background(), LoadOptions{})
			if err == nil {
				t.Fatal("expected a validation error")
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("error should be *issue.ActionableError, got %T: %v", err, err)
			}
			if ae.Operation != "load configuration" {
				t.Errorf("Operation = %q", ae.Operation)
			}
			if !strings.Contains(err.Error(), path) {
				t.Errorf("error should name the file: %v", err)
			}
		})
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	cfgDir := isolate(t)
	testutil.MustWriteFile(t, filepath.Join(cfgDir, "config.cue"), `build: workspace_dir: "from-file"`)
	t.Cleanup(testutil.MustSetenv(t, "G1EMBED_BUILD_WORKSPACE_DIR", "from-env"))
	t.Cleanup(testutil.MustSetenv(t, "G1EMBED_DEFAULTS_SCALE", "4"))

	cfg, _, err := loadWithOptions(context.Background(), LoadOptions{})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if cfg.Build.WorkspaceDir != "from-env" {
		t.Errorf("build.workspace_dir = %q, want from-env", cfg.Build.WorkspaceDir)
	}
	if cfg.Defaults.Scale != 4 {
		t.Errorf("defaults.scale = %d, want 4", cfg.Defaults.Scale)
	}
}

func TestLoad_EnvOverrideValidated(t *testing.T) {
	isolate(t)
	t.Cleanup(testutil.MustSetenv(t, "G1EMBED_DEFAULTS_SCALE", "0"))

	_, _, err := loadWithOptions(context.Background(), LoadOptions{})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoad_EnvOverrideRejectsSourceTreeWorkspace(t *testing.T) {
	isolate(t)
	t.Cleanup(testutil.MustSetenv(t, "G1EMBED_BUILD_WORKSPACE_DIR", "src/.."))

	_, _, err := loadWithOptions(context.Background(), LoadOptions{})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if !strings.Contains(err.Error(), "build.workspace_dir") {
		t.Errorf("error should name build.workspace_dir: %v", err)
	}
}

func TestLoad_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := loadWithOptions(ctx, LoadOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestGenerateCUE_RoundTrip(t *testing.T) {
	cfgDir := isolate(t)

	want := DefaultConfig()
	want.Build.SourceDir = "/src/cg1"
	want.Build.Lock = false
	want.Defaults.Title = `My "quoted" game`
	want.UI.ColorScheme = ColorSchemeDark
	testutil.MustWriteFile(t, filepath.Join(cfgDir, "config.cue"), GenerateCUE(want))

	got, _, err := loadWithOptions(context.Background(), LoadOptions{})
	if err != nil {
		t.Fatalf("generated CUE does not load: %v", err)
	}
	if *got != *want {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestGenerateTOML_Loads(t *testing.T) {
	cfgDir := isolate(t)

	want := DefaultConfig()
	want.Encoder.Command = "xxd -C"
	text, err := GenerateTOML(want)
	if err != nil {
		t.Fatalf("GenerateTOML() error = %v", err)
	}
	if !strings.Contains(text, "[build]") {
		t.Errorf("TOML output should have a [build] table:\n%s", text)
	}
	testutil.MustWriteFile(t, filepath.Join(cfgDir, "config.toml"), text)

	got, _, err := loadWithOptions(context.Background(), LoadOptions{})
	if err != nil {
		t.Fatalf("generated TOML does not load: %v", err)
	}
	if *got != *want {
		t.Errorf("TOML round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	cfgDir := isolate(t)

	path, err := CreateDefaultConfig()
	if err != nil {
		t.Fatalf("CreateDefaultConfig() error = %v", err)
	}
	if path != filepath.Join(cfgDir, "config.cue") {
		t.Errorf("path = %q", path)
	}

	testutil.MustWriteFile(t, path, `defaults: title: "kept"`)
	if _, err := CreateDefaultConfig(); err != nil {
		t.Fatalf("second CreateDefaultConfig() error = %v", err)
	}
	if got := testutil.MustReadFile(t, path); !strings.Contains(got, "kept") {
		t.Error("CreateDefaultConfig() must not overwrite an existing file")
	}
}

func TestConfigDir_Override(t *testing.T) {
	SetConfigDirOverride("/custom/dir")
	t.Cleanup(Reset)

	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() error = %v", err)
	}
	if dir != "/custom/dir" {
		t.Errorf("ConfigDir() = %q, want /custom/dir", dir)
	}
}

func TestFindConfigFile_ConfigDirPathOption(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(dir, "config.toml"), "")

	path, err := FindConfigFile(LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("FindConfigFile() error = %v", err)
	}
	if path != filepath.Join(dir, "config.toml") {
		t.Errorf("path = %q", path)
	}
}
