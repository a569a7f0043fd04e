// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

// newLogger creates the CLI logger and installs it as the slog default so
// package-level slog calls share its output and level.
func newLogger(w io.Writer, verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}

	logger := log.NewWithOptions(w, log.Options{
		Prefix: "g1embed",
		Level:  level,
	})
	slog.SetDefault(slog.New(logger))
	return logger
}
