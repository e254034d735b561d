//go:build !linux

package thread

// ID is unknown on this platform, callers get 0.
func ID() int { return 0 }
