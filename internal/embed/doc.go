// SPDX-License-Identifier: MPL-2.0

// Package embed builds a standalone cg1 executable with a data file compiled
// into it.
//
// A run encodes the input with xxd into a C header inside the native source
// tree, configures and builds the runtime with CMake in a fresh workspace,
// copies the produced binary to the requested output path and removes the
// header again. Every external invocation is checked, and failures are
// reported as PreconditionError, ExternalToolError, ArtifactMissingError or
// FilesystemError.
package embed
