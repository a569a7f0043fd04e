// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/cg1/g1embed/internal/config"
	"github.com/cg1/g1embed/internal/issue"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `g1embed config` command tree.
// Subcommands that read configuration use the App's ConfigProvider.
func newConfigCommand(app *App, flags *rootFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage g1embed configuration",
		Long: `Manage g1embed configuration.

Configuration is stored in:
  - Linux: ~/.config/g1embed/config.cue
  - macOS: ~/Library/Application Support/g1embed/config.cue
  - Windows: %APPDATA%\g1embed\config.cue

config.toml is accepted in the same places. A config.cue or config.toml in
the current directory is used when the user file is absent. Every value can
be overridden with G1EMBED_<SECTION>_<KEY>, e.g. G1EMBED_BUILD_WORKSPACE_DIR.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), app, flags)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.CreateDefaultConfig()
			if err != nil {
				return err
			}
			fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("Configuration file:"), path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath(app.stdout, flags)
		},
	})

	var format string
	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE or TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context(), app, flags)
			if err != nil {
				return err
			}

			switch format {
			case config.ConfigFileExt:
				fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			case config.TOMLFileExt:
				text, err := config.GenerateTOML(cfg)
				if err != nil {
					return err
				}
				fmt.Fprint(app.stdout, text)
			default:
				return fmt.Errorf("unknown format %q (valid: cue, toml)", format)
			}
			return nil
		},
	}
	dumpCmd.Flags().StringVar(&format, "format", config.ConfigFileExt, "output format: cue or toml")
	cfgCmd.AddCommand(dumpCmd)

	return cfgCmd
}

func loadConfig(ctx context.Context, app *App, flags *rootFlags) (*config.Config, error) {
	cfg, err := app.Config.Load(ctx, config.LoadOptions{ConfigFilePath: flags.cfgFile})
	if err != nil {
		if catalogEntry := issue.Get(issue.ConfigLoadFailedId); catalogEntry != nil {
			if rendered, renderErr := catalogEntry.Render(glamourStyle(config.ColorSchemeAuto)); renderErr == nil {
				fmt.Fprint(app.stderr, rendered)
			}
		}
		return nil, err
	}
	return cfg, nil
}

func showConfig(ctx context.Context, app *App, flags *rootFlags) error {
	cfg, err := loadConfig(ctx, app, flags)
	if err != nil {
		return err
	}

	w := app.stdout
	keyStyle := CmdStyle
	valueStyle := SuccessStyle

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)

	path, _ := config.FindConfigFile(config.LoadOptions{ConfigFilePath: flags.cfgFile})
	if path != "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), path)
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}

	section := func(name string, kv ...string) {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s:\n", keyStyle.Render(name))
		for i := 0; i+1 < len(kv); i += 2 {
			fmt.Fprintf(w, "  %s: %s\n", kv[i], valueStyle.Render(kv[i+1]))
		}
	}

	section("encoder",
		"command", cfg.Encoder.Command.String(),
		"symbol", cfg.Encoder.Symbol,
	)
	section("build",
		"command", cfg.Build.Command.String(),
		"source_dir", cfg.Build.SourceDir,
		"header_path", cfg.Build.HeaderPath,
		"workspace_dir", cfg.Build.WorkspaceDir,
		"toolchain_file", cfg.Build.ToolchainFile,
		"executable_name", cfg.Build.ExecutableName,
		"lock", strconv.FormatBool(cfg.Build.Lock),
	)
	section("defaults",
		"title", strconv.Quote(cfg.Defaults.Title),
		"scale", strconv.Itoa(cfg.Defaults.Scale),
	)
	section("ui",
		"color_scheme", cfg.UI.ColorScheme.String(),
		"verbose", strconv.FormatBool(cfg.UI.Verbose),
	)

	return nil
}

func showConfigPath(w io.Writer, flags *rootFlags) error {
	path, err := config.FindConfigFile(config.LoadOptions{ConfigFilePath: flags.cfgFile})
	if err != nil {
		return err
	}
	if path != "" {
		fmt.Fprintln(w, path)
		return nil
	}

	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s %s\n", filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt),
		SubtitleStyle.Render("(not created yet)"))
	return nil
}
