// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/cg1/g1embed/internal/issue"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "g1embed"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the default config file extension.
	ConfigFileExt = "cue"
	// TOMLFileExt is the alternative config file extension.
	TOMLFileExt = "toml"
	// EnvPrefix prefixes environment overrides, e.g. G1EMBED_BUILD_WORKSPACE_DIR.
	EnvPrefix = "G1EMBED"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the g1embed configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// FindConfigFile returns the file loadWithOptions would read, or "" when
// no config file exists and defaults apply. An explicit ConfigFilePath
// that does not exist is an error.
func FindConfigFile(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Check that the file exists and is readable").
				WithSuggestion("Use 'g1embed config show' to see the default configuration").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
	if err != nil {
		return "", err
	}

	for _, dir := range []string{cfgDir, ""} {
		for _, ext := range []string{ConfigFileExt, TOMLFileExt} {
			path := filepath.Join(dir, ConfigFileName+"."+ext)
			if fileExists(path) {
				return path, nil
			}
		}
	}
	return "", nil
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath, err := FindConfigFile(opts)
	if err != nil {
		return nil, "", err
	}

	if resolvedPath != "" {
		if err := loadFileIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid " + formatName(resolvedPath) + " syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Run 'g1embed config dump' to see a valid configuration").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	// Environment overrides bypass the schema, so check the merged result.
	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithSuggestion("Check " + EnvPrefix + "_* environment variables for overrides").
			WithSuggestion("Run 'g1embed config show' to inspect the effective values").
			Wrap(errors.Join(errs...)).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, defaults *Config) {
	v.SetDefault("encoder.command", defaults.Encoder.Command.String())
	v.SetDefault("encoder.symbol", defaults.Encoder.Symbol)
	v.SetDefault("build.command", defaults.Build.Command.String())
	v.SetDefault("build.source_dir", defaults.Build.SourceDir)
	v.SetDefault("build.header_path", defaults.Build.HeaderPath)
	v.SetDefault("build.workspace_dir", defaults.Build.WorkspaceDir)
	v.SetDefault("build.toolchain_file", defaults.Build.ToolchainFile)
	v.SetDefault("build.executable_name", defaults.Build.ExecutableName)
	v.SetDefault("build.lock", defaults.Build.Lock)
	v.SetDefault("defaults.title", defaults.Defaults.Title)
	v.SetDefault("defaults.scale", defaults.Defaults.Scale)
	v.SetDefault("ui.color_scheme", defaults.UI.ColorScheme.String())
	v.SetDefault("ui.verbose", defaults.UI.Verbose)
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// loadFileIntoViper parses a CUE or TOML file, validates it against the
// #Config schema and merges its contents into Viper.
func loadFileIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := checkFileSize(data, maxConfigFileSize, path); err != nil {
		return err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	var userValue cue.Value
	if isTOML(path) {
		var raw map[string]any
		if err := toml.Unmarshal(data, &raw); err != nil {
			return formatTOMLError(err, path)
		}
		userValue = ctx.Encode(raw)
	} else {
		userValue = ctx.CompileBytes(data, cue.Filename(path))
	}
	if userValue.Err() != nil {
		return formatCUEError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return formatCUEError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return formatCUEError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

func formatTOMLError(err error, path string) error {
	var derr *toml.DecodeError
	if errors.As(err, &derr) {
		row, col := derr.Position()
		return fmt.Errorf("%s:%d:%d: %s", path, row, col, derr.Error())
	}
	return fmt.Errorf("%s: %w", path, err)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), "."+TOMLFileExt)
}

func formatName(path string) string {
	if isTOML(path) {
		return "TOML"
	}
	return "CUE"
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes a default config.cue into the config directory
// unless a config file is already there. It returns the path of the file.
func CreateDefaultConfig() (string, error) {
	cfgDir, err := ConfigDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	for _, ext := range []string{ConfigFileExt, TOMLFileExt} {
		existing := filepath.Join(cfgDir, ConfigFileName+"."+ext)
		if _, err := os.Stat(existing); err == nil {
			return existing, nil
		}
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return cfgPath, nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// g1embed configuration file\n\n")

	sb.WriteString("encoder: {\n")
	fmt.Fprintf(&sb, "\tcommand: %q\n", cfg.Encoder.Command)
	fmt.Fprintf(&sb, "\tsymbol:  %q\n", cfg.Encoder.Symbol)
	sb.WriteString("}\n")

	sb.WriteString("\nbuild: {\n")
	fmt.Fprintf(&sb, "\tcommand:         %q\n", cfg.Build.Command)
	fmt.Fprintf(&sb, "\tsource_dir:      %q\n", cfg.Build.SourceDir)
	fmt.Fprintf(&sb, "\theader_path:     %q\n", cfg.Build.HeaderPath)
	fmt.Fprintf(&sb, "\tworkspace_dir:   %q\n", cfg.Build.WorkspaceDir)
	fmt.Fprintf(&sb, "\ttoolchain_file:  %q\n", cfg.Build.ToolchainFile)
	fmt.Fprintf(&sb, "\texecutable_name: %q\n", cfg.Build.ExecutableName)
	fmt.Fprintf(&sb, "\tlock:            %v\n", cfg.Build.Lock)
	sb.WriteString("}\n")

	sb.WriteString("\ndefaults: {\n")
	fmt.Fprintf(&sb, "\ttitle: %q\n", cfg.Defaults.Title)
	fmt.Fprintf(&sb, "\tscale: %d\n", cfg.Defaults.Scale)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	fmt.Fprintf(&sb, "\tverbose:      %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}

// GenerateTOML renders the configuration as a config.toml document.
func GenerateTOML(cfg *Config) (string, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to encode config as TOML: %w", err)
	}
	return string(data), nil
}
