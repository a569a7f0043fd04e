// SPDX-License-Identifier: MPL-2.0

// Package config handles g1embed configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/g1embed/config.cue (XDG on Linux,
// ~/Library/Application Support/g1embed on macOS, %APPDATA%\g1embed on Windows),
// or from config.toml in the same places. Every file is validated against the
// embedded CUE schema (config_schema.cue), TOML files included, and values can be
// overridden with G1EMBED_* environment variables.
package config
