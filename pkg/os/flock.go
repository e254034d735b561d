package os

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

type Flock struct {
	f *flock.Flock
}

// NewFileLock prepares an inter-process lock file at path.
// An empty path falls back to the temp dir.
func NewFileLock(path string) (*Flock, error) {
	if path == "" {
		path = filepath.Join(os.TempDir(), "camview.lock")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0770); err != nil {
		return nil, err
	}
	return &Flock{f: flock.New(path)}, nil
}

// LockName returns a lock file path under dir for an arbitrary device name.
func LockName(dir, name string) string {
	if dir == "" {
		dir = os.TempDir()
	}
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_")
	if name == "" {
		name = "default"
	}
	return filepath.Join(dir, "camview_"+r.Replace(name)+".lock")
}

// TryLock takes the lock without waiting, false means someone else holds it.
func (f *Flock) TryLock() (bool, error) { return f.f.TryLock() }
func (f *Flock) Unlock() error          { return f.f.Unlock() }
func (f *Flock) Path() string           { return f.f.Path() }
