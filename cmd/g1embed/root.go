// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cg1/g1embed/internal/config"
	"github.com/cg1/g1embed/internal/embed"
	"github.com/cg1/g1embed/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// legacyFlags maps the multi-letter single-dash spellings accepted by the
// original command line onto their long flags.
var legacyFlags = map[string]string{
	"-st":  "--static",
	"-win": "--windows",
}

type rootFlags struct {
	showFPS bool
	scale   int
	title   string
	static  bool
	windows bool
	dryRun  bool
	verbose bool
	cfgFile string
}

// newRootCommand creates the g1embed command tree.
func newRootCommand(app *App) *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "g1embed <input_path> <output_path>",
		Short: "Embed a program or data file into a standalone executable",
		Long: TitleStyle.Render("g1embed") + SubtitleStyle.Render(" - embed a file into a native executable") + `

g1embed turns a data file into a C header with xxd, builds the native
runtime with CMake around it, and copies the resulting executable to
the output path. Run it from the runtime source tree, or point
build.source_dir at it in the configuration.

` + SubtitleStyle.Render("Examples:") + `
  g1embed game.rom game                   Build a native executable
  g1embed game.rom game -f -s 3 -t Demo   Show FPS, scale 3, window title "Demo"
  g1embed game.rom game.exe --windows     Cross-compile for Windows
  g1embed game.rom game --dry-run         Print the steps without running them
  g1embed config show                     Show the effective configuration`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmbed(cmd, app, flags, args[0], args[1])
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging and stream build output")
	rootCmd.PersistentFlags().StringVar(&flags.cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/g1embed/config.cue)")

	rootCmd.Flags().BoolVarP(&flags.showFPS, "show_fps", "f", false, "show the FPS counter in the window")
	rootCmd.Flags().IntVarP(&flags.scale, "scale", "s", embed.DefaultScale, "window scale factor")
	rootCmd.Flags().StringVarP(&flags.title, "title", "t", embed.DefaultTitle, "window title")
	rootCmd.Flags().BoolVar(&flags.static, "static", false, "link the executable statically (also -st)")
	rootCmd.Flags().BoolVar(&flags.windows, "windows", false, "cross-compile a Windows executable (also -win)")
	rootCmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "print the build steps without running them")

	rootCmd.AddCommand(newConfigCommand(app, flags))

	return rootCmd
}

// runEmbed loads configuration, builds the request and runs or plans it.
func runEmbed(cmd *cobra.Command, app *App, flags *rootFlags, input, output string) error {
	ctx := cmd.Context()
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	cfg, err := app.Config.Load(ctx, config.LoadOptions{ConfigFilePath: flags.cfgFile})
	if err != nil {
		svcErr := newServiceError(err, issue.ConfigLoadFailedId,
			fmt.Sprintf("\n%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, flags.verbose)))
		renderServiceError(app.stderr, svcErr, glamourStyle(config.ColorSchemeAuto))
		return &ExitError{Code: ExitUsage, Err: svcErr}
	}

	verbose := flags.verbose || cfg.UI.Verbose
	logger := newLogger(app.stderr, verbose)

	req := embedRequest(cmd, flags, cfg, input, output)
	embedReq := EmbedRequest{Request: req, Config: cfg, Logger: logger, Verbose: verbose}

	if flags.dryRun {
		steps, planErr := app.Embedder.Plan(ctx, embedReq)
		if planErr != nil {
			return failEmbed(app, cfg, planErr, verbose)
		}
		renderPlan(app.stdout, req, steps)
		return nil
	}

	result, err := app.Embedder.Embed(ctx, embedReq)
	if err != nil {
		return failEmbed(app, cfg, err, verbose)
	}

	logger.Debug("embedding finished", "output", result.OutputPath, "workspace_reset", result.WorkspaceReset)
	fmt.Fprintln(app.stdout, SuccessStyle.Render("Build successful."))
	return nil
}

// embedRequest merges flags over configuration defaults.
func embedRequest(cmd *cobra.Command, flags *rootFlags, cfg *config.Config, input, output string) embed.Request {
	req := embed.NewRequest(input, output)
	req.ShowFPS = flags.showFPS
	req.StaticLink = flags.static
	req.Scale = cfg.Defaults.Scale
	req.Title = cfg.Defaults.Title
	if cmd.Flags().Changed("scale") {
		req.Scale = flags.scale
	}
	if cmd.Flags().Changed("title") {
		req.Title = flags.title
	}
	if flags.windows {
		req.Target = embed.TargetWindowsCross
	}
	return req
}

func failEmbed(app *App, cfg *config.Config, err error, verbose bool) error {
	code, issueID, styled := classifyEmbedError(err, verbose)
	if errors.Is(err, embed.ErrInputNotFound) {
		// The missing-input message goes to stdout; the help section stays on stderr.
		fmt.Fprint(app.stdout, styled)
		styled = ""
	}
	svcErr := newServiceError(err, issueID, styled)
	renderServiceError(app.stderr, svcErr, glamourStyle(cfg.UI.ColorScheme))
	return &ExitError{Code: code, Err: svcErr}
}

// normalizeArgs rewrites legacy single-dash flags before Cobra parses argv.
// Arguments after "--" are left untouched.
func normalizeArgs(args []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		if arg == "--" {
			copy(out[i:], args[i:])
			break
		}
		if long, ok := legacyFlags[arg]; ok {
			arg = long
		}
		out[i] = arg
	}
	return out
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// errorHandler prints errors fang did not see rendered. ExitErrors were
// already reported by the command that returned them.
func errorHandler(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

// Execute runs the CLI and exits the process with the resulting code.
// This is called by main.main().
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error:"), err)
		os.Exit(1)
	}

	rootCmd := newRootCommand(app)
	rootCmd.SetArgs(normalizeArgs(os.Args[1:]))

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithErrorHandler(errorHandler),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(ExitUsage)
	}
}
