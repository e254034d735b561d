// This package used for locking goroutines to
// the main OS thread.
// See: https://github.com/golang/go/wiki/LockOSThread
package thread

import "github.com/faiface/mainthread"

// Wrap runs the app function while the main thread serves Call.
// It returns when run finishes, call it from main.
func Wrap(run func()) { mainthread.Run(run) }

// Call calls a function on the main thread and waits for it.
// Only valid inside Wrap.
func Call(f func()) { mainthread.Call(f) }

// CallErr is Call for functions returning an error.
func CallErr(f func() error) error { return mainthread.CallErr(f) }
