// SPDX-License-Identifier: MPL-2.0

//go:build linux

package embed

import (
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"
)

// workspaceLock holds a blocking exclusive flock on the lock file that sits
// next to a build workspace. Two g1embed processes sharing a source tree
// serialize on it instead of racing on the header and workspace.
// The kernel drops the flock when the descriptor closes, including on crash,
// so a leftover zero-byte lock file is harmless.
type workspaceLock struct {
	file *os.File
}

// acquireWorkspaceLock opens (or creates) the lock file at lockPath and
// blocks until the exclusive flock is granted.
func acquireWorkspaceLock(lockPath string) (*workspaceLock, error) {
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", lockPath, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("flock %s: %w", lockPath, err)
	}

	return &workspaceLock{file: f}, nil
}

// Release unlocks and closes the lock file. Safe to call more than once.
func (l *workspaceLock) Release() {
	if l == nil || l.file == nil {
		return
	}
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		slog.Debug("flock unlock failed", "error", err)
	}
	if err := l.file.Close(); err != nil {
		slog.Debug("lock file close failed", "error", err)
	}
	l.file = nil
}
