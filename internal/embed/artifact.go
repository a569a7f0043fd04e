// SPDX-License-Identifier: MPL-2.0

package embed

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// windowsExeSuffix is appended to the executable name for the Windows cross target.
const windowsExeSuffix = ".exe"

// ArtifactName returns the file name the build deposits in the workspace for target.
func ArtifactName(target Target, base string) string {
	if target.normalized() == TargetWindowsCross {
		return base + windowsExeSuffix
	}
	return base
}

// StageArtifact copies the built executable name from workspace to outPath,
// overwriting outPath. The workspace copy is left in place. It returns the
// source path that was copied.
func StageArtifact(workspace, name, outPath string) (string, error) {
	src := filepath.Join(workspace, name)

	info, err := os.Stat(src)
	if err != nil {
		return src, &ArtifactMissingError{Path: src, Err: err}
	}
	if !info.Mode().IsRegular() {
		return src, &ArtifactMissingError{Path: src, Err: fmt.Errorf("not a regular file: %s", info.Mode())}
	}

	if err := copyFile(src, outPath, info.Mode().Perm()); err != nil {
		return src, &FilesystemError{Stage: StateStaging, Op: "copy artifact", Path: outPath, Err: err}
	}
	return src, nil
}

func copyFile(src, dst string, perm os.FileMode) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return err
	}
	// OpenFile does not change the mode of an existing destination.
	return os.Chmod(dst, perm)
}
