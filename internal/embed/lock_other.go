// SPDX-License-Identifier: MPL-2.0

//go:build !linux

package embed

import "sync"

// workspaceMutexes serializes runs within this process when flock is not available.
var workspaceMutexes sync.Map // lock path -> *sync.Mutex

// workspaceLock is the in-process fallback used off Linux.
type workspaceLock struct {
	mu *sync.Mutex
}

// acquireWorkspaceLock blocks until no other pipeline in this process holds lockPath.
// It does not protect against a second process.
func acquireWorkspaceLock(lockPath string) (*workspaceLock, error) {
	v, _ := workspaceMutexes.LoadOrStore(lockPath, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return &workspaceLock{mu: mu}, nil
}

// Release unlocks the mutex. Safe to call more than once.
func (l *workspaceLock) Release() {
	if l == nil || l.mu == nil {
		return
	}
	l.mu.Unlock()
	l.mu = nil
}
