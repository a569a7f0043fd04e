// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the CLI commands for g1embed.
//
// The root command embeds a data file into a native executable; the config
// subcommands inspect and create the configuration file.
package cmd
