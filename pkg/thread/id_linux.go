//go:build linux

package thread

import "golang.org/x/sys/unix"

// ID is the OS thread id of the caller. It only stays valid for a
// goroutine locked with runtime.LockOSThread.
func ID() int { return unix.Gettid() }
