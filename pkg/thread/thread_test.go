package thread

import (
	"errors"
	"runtime"
	"testing"
)

func TestCall(t *testing.T) {
	value := 0
	var err error
	Wrap(func() {
		Call(func() { value = 1 })
		err = CallErr(func() error { return errors.New("boom") })
	})
	if value != 1 {
		t.Errorf("wrong value %v", value)
	}
	if err == nil || err.Error() != "boom" {
		t.Errorf("err = %v", err)
	}
}

func TestIDPerLockedThread(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	mine := ID()
	if runtime.GOOS != "linux" {
		if mine != 0 {
			t.Errorf("id = %v, want 0 where unknown", mine)
		}
		return
	}
	if mine == 0 || mine != ID() {
		t.Fatalf("id is not stable: %v", mine)
	}

	other := make(chan int)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		other <- ID()
	}()
	if id := <-other; id == mine {
		t.Errorf("two locked goroutines share thread %v", id)
	}
}

func TestOwner(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var o Owner
	if o.Held() {
		t.Fatal("held before acquire")
	}
	o.Acquire()
	if !o.Held() {
		t.Fatal("not held after acquire")
	}

	other := make(chan bool)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		other <- o.Held()
	}()
	// only thread ids tell the threads apart
	if held := <-other; held != (runtime.GOOS != "linux") {
		t.Errorf("held on another thread = %v", held)
	}

	o.Release()
	if o.Held() {
		t.Errorf("held after release")
	}
}
