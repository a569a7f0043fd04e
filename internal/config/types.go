// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/cg1/g1embed/internal/embed"

	"mvdan.cc/sh/v3/shell"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidToolCommand is returned when a ToolCommand cannot be tokenized or is empty.
	ErrInvalidToolCommand = errors.New("invalid tool command")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")

	symbolPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// ToolCommand is an external tool invocation written as a shell word list,
	// for example "xxd" or "ccache-wrapper cmake". Environment variables are expanded.
	ToolCommand string

	// InvalidToolCommandError is returned when a ToolCommand is empty or malformed.
	InvalidToolCommandError struct {
		Value ToolCommand
		Err   error
	}

	// InvalidConfigError collects field-level validation errors.
	// It wraps ErrInvalidConfig for errors.Is() compatibility.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// Encoder configures the hex dump tool that generates the header.
		Encoder EncoderConfig `json:"encoder" mapstructure:"encoder" toml:"encoder"`
		// Build configures the CMake project and its workspace.
		Build BuildConfig `json:"build" mapstructure:"build" toml:"build"`
		// Defaults holds values used when the matching CLI flag is absent.
		Defaults DefaultsConfig `json:"defaults" mapstructure:"defaults" toml:"defaults"`
		// UI configures the user interface
		UI UIConfig `json:"ui" mapstructure:"ui" toml:"ui"`
	}

	// EncoderConfig configures header generation.
	EncoderConfig struct {
		Command ToolCommand `json:"command" mapstructure:"command" toml:"command"`
		Symbol  string      `json:"symbol" mapstructure:"symbol" toml:"symbol"`
	}

	// BuildConfig configures the native build. Relative paths are resolved
	// against SourceDir.
	BuildConfig struct {
		Command        ToolCommand `json:"command" mapstructure:"command" toml:"command"`
		SourceDir      string      `json:"source_dir" mapstructure:"source_dir" toml:"source_dir"`
		HeaderPath     string      `json:"header_path" mapstructure:"header_path" toml:"header_path"`
		WorkspaceDir   string      `json:"workspace_dir" mapstructure:"workspace_dir" toml:"workspace_dir"`
		ToolchainFile  string      `json:"toolchain_file" mapstructure:"toolchain_file" toml:"toolchain_file"`
		ExecutableName string      `json:"executable_name" mapstructure:"executable_name" toml:"executable_name"`
		// Lock serializes runs that share a workspace (default: true).
		Lock bool `json:"lock" mapstructure:"lock" toml:"lock"`
	}

	// DefaultsConfig holds request defaults.
	DefaultsConfig struct {
		Title string `json:"title" mapstructure:"title" toml:"title"`
		Scale int    `json:"scale" mapstructure:"scale" toml:"scale"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// ColorScheme sets the color scheme
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme" toml:"color_scheme"`
		// Verbose enables debug logging and error chains
		Verbose bool `json:"verbose" mapstructure:"verbose" toml:"verbose"`
	}
)

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined schemes.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// Error implements the error interface.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns ErrInvalidColorScheme for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// String returns the command as written.
func (c ToolCommand) String() string { return string(c) }

// Argv splits the command into words with shell quoting rules and
// expands environment variables.
func (c ToolCommand) Argv() ([]string, error) {
	fields, err := shell.Fields(string(c), os.Getenv)
	if err != nil {
		return nil, &InvalidToolCommandError{Value: c, Err: err}
	}
	if len(fields) == 0 {
		return nil, &InvalidToolCommandError{Value: c}
	}
	return fields, nil
}

// IsValid reports whether the command tokenizes to at least one word.
func (c ToolCommand) IsValid() (bool, []error) {
	if _, err := c.Argv(); err != nil {
		return false, []error{err}
	}
	return true, nil
}

// Error implements the error interface.
func (e *InvalidToolCommandError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("invalid tool command %q: empty", e.Value)
	}
	return fmt.Sprintf("invalid tool command %q: %v", e.Value, e.Err)
}

// Unwrap returns ErrInvalidToolCommand and the tokenizer error.
func (e *InvalidToolCommandError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidToolCommand}
	}
	return []error{ErrInvalidToolCommand, e.Err}
}

// IsValid checks the constraints the schema cannot see once environment
// overrides are applied.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Encoder.Command.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if !symbolPattern.MatchString(c.Encoder.Symbol) {
		errs = append(errs, fmt.Errorf("encoder.symbol %q is not a C identifier", c.Encoder.Symbol))
	}
	if valid, fieldErrs := c.Build.Command.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	for _, field := range []struct{ name, value string }{
		{"build.source_dir", c.Build.SourceDir},
		{"build.header_path", c.Build.HeaderPath},
		{"build.workspace_dir", c.Build.WorkspaceDir},
		{"build.toolchain_file", c.Build.ToolchainFile},
		{"build.executable_name", c.Build.ExecutableName},
		{"defaults.title", c.Defaults.Title},
	} {
		if strings.TrimSpace(field.value) == "" {
			errs = append(errs, fmt.Errorf("%s must not be empty", field.name))
		}
	}
	if strings.TrimSpace(c.Build.WorkspaceDir) != "" {
		if err := c.Layout().CheckWorkspace(); err != nil {
			errs = append(errs, fmt.Errorf("build.workspace_dir: %w", err))
		}
	}
	if c.Defaults.Scale < 1 {
		errs = append(errs, fmt.Errorf("defaults.scale must be >= 1, got %d", c.Defaults.Scale))
	}
	if valid, fieldErrs := c.UI.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// Layout maps the build section onto the pipeline layout.
func (c *Config) Layout() embed.Layout {
	return embed.Layout{
		SourceDir:      c.Build.SourceDir,
		HeaderPath:     c.Build.HeaderPath,
		WorkspaceDir:   c.Build.WorkspaceDir,
		ToolchainFile:  c.Build.ToolchainFile,
		ExecutableName: c.Build.ExecutableName,
		Symbol:         c.Encoder.Symbol,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Encoder: EncoderConfig{
			Command: "xxd",
			Symbol:  embed.DefaultSymbol,
		},
		Build: BuildConfig{
			Command:        "cmake",
			SourceDir:      ".",
			HeaderPath:     embed.DefaultHeaderPath,
			WorkspaceDir:   embed.DefaultWorkspaceDir,
			ToolchainFile:  embed.DefaultToolchainFile,
			ExecutableName: embed.DefaultExecutableName,
			Lock:           true,
		},
		Defaults: DefaultsConfig{
			Title: embed.DefaultTitle,
			Scale: embed.DefaultScale,
		},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
			Verbose:     false,
		},
	}
}
