package thread

import "sync/atomic"

// Owner tracks the thread holding a thread-bound resource, like a GL
// context. Where thread ids are unknown (see ID) it only tracks whether
// the resource is held, so Held reports true on any thread.
type Owner struct {
	tid  atomic.Int64
	held atomic.Bool
}

// Acquire marks the calling thread as the holder.
func (o *Owner) Acquire() {
	o.tid.Store(int64(ID()))
	o.held.Store(true)
}

func (o *Owner) Release() {
	o.held.Store(false)
	o.tid.Store(0)
}

// Held tells whether the calling thread holds the resource.
func (o *Owner) Held() bool {
	if !o.held.Load() {
		return false
	}
	if id := ID(); id != 0 {
		return int64(id) == o.tid.Load()
	}
	return true
}
