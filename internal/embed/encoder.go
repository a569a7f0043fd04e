// SPDX-License-Identifier: MPL-2.0

package embed

import (
	"context"
	"os"
)

// DefaultEncoderCommand is the hex dump tool that produces C array headers.
var DefaultEncoderCommand = []string{"xxd"}

// Encoder turns a binary file into a C header declaring a named byte array
// and its length, by running an external dump tool (xxd -i -n <symbol>).
type Encoder struct {
	// Command is the tool argv prefix. The encoder appends "-i -n <symbol> <input>".
	Command []string
	// Symbol is the C identifier of the generated array.
	Symbol string
	Runner CommandRunner
}

// command returns the invocation used to encode inputPath.
func (e *Encoder) command(inputPath string) Command {
	argv := e.Command
	if len(argv) == 0 {
		argv = DefaultEncoderCommand
	}
	symbol := e.Symbol
	if symbol == "" {
		symbol = DefaultSymbol
	}

	args := make([]string, 0, len(argv)+3)
	args = append(args, argv[1:]...)
	args = append(args, "-i", "-n", symbol, inputPath)
	return Command{Name: argv[0], Args: args}
}

// Encode runs the encoder on inputPath and returns its stdout unmodified.
// The header text is opaque to this package.
func (e *Encoder) Encode(ctx context.Context, inputPath string) (string, CommandLog, error) {
	cmd := e.command(inputPath)
	res, err := e.Runner.Run(ctx, cmd)
	log := newCommandLog(cmd, res)
	if err != nil {
		return "", log, &ExternalToolError{Stage: StateEncoding, Log: log, Err: err}
	}
	return res.Stdout, log, nil
}

// WriteHeader writes text to path verbatim, truncating previous content.
func WriteHeader(path, text string) error {
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return &FilesystemError{Stage: StateEncoding, Op: "write header", Path: path, Err: err}
	}
	return nil
}

// RemoveHeader deletes the generated header. A header that is already gone is not an error.
func RemoveHeader(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return &FilesystemError{Stage: StateCleaningUp, Op: "remove header", Path: path, Err: err}
	}
	return nil
}
