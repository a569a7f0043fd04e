// SPDX-License-Identifier: MPL-2.0

package embed

import (
	"os"

	"github.com/charmbracelet/log"
)

// ResetWorkspace recursively deletes the workspace at path so the next
// configure step starts from an empty directory. The delete is irreversible
// and is logged before it happens. It reports whether anything was removed.
func ResetWorkspace(logger *log.Logger, path string) (bool, error) {
	info, err := os.Lstat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, &FilesystemError{Stage: StateConfiguringBuild, Op: "inspect workspace", Path: path, Err: err}
	}

	logger.Warn("removing previous build workspace", "path", path, "dir", info.IsDir())
	if err := os.RemoveAll(path); err != nil {
		return false, &FilesystemError{Stage: StateConfiguringBuild, Op: "remove workspace", Path: path, Err: err}
	}
	return true, nil
}
