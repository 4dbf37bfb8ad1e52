// Package signalconveyor translates an asynchronous SIGHUP into a
// boolean flag the Monitor's loop polls. The handler only performs an
// atomic store; all real reload work happens on the loop thread.
package signalconveyor

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
)

// Flag is a process-wide reload request latch.
type Flag struct {
	requested atomic.Bool
}

// New returns an unset Flag.
func New() *Flag {
	return &Flag{}
}

// Watch installs a SIGHUP handler that sets the flag. It returns a
// stop function that undoes the signal.Notify registration.
func (f *Flag) Watch() (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGHUP)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ch:
				f.requested.Store(true)
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(ch)
		close(done)
	}
}

// TakeRequested reports whether a reload was requested since the last
// call, clearing the flag atomically if so.
func (f *Flag) TakeRequested() bool {
	return f.requested.CompareAndSwap(true, false)
}

// Set is exposed for tests that want to simulate a hangup without
// sending a real signal.
func (f *Flag) Set() {
	f.requested.Store(true)
}
