package console

import (
    "sync/atomic"
    "time"
)

// stopper is the part of *time.Timer the scheduler needs.
type stopper interface{ Stop() bool }

type afterFunc func(d time.Duration, f func()) stopper

func realAfterFunc(d time.Duration, f func()) stopper { return time.AfterFunc(d, f) }

const (
    handlePending int32 = iota
    handleFired
    handleCancelled
)

// PollHandle is a scheduled, cancellable re-fetch. It fires at most once.
type PollHandle struct {
    t     stopper
    state atomic.Int32
}

// Pending reports whether the handle has neither fired nor been cancelled.
func (h *PollHandle) Pending() bool { return h != nil && h.state.Load() == handlePending }

// Scheduler arms deferred callbacks. It keeps no state of its own; the
// controller owns the single live handle.
type Scheduler struct {
    after afterFunc
}

// NewScheduler returns a Scheduler backed by time.AfterFunc.
func NewScheduler() *Scheduler { return &Scheduler{after: realAfterFunc} }

// Schedule runs fn once after delay unless the returned handle is cancelled
// first.
func (s *Scheduler) Schedule(delay time.Duration, fn func()) *PollHandle {
    h := &PollHandle{}
    h.t = s.after(delay, func() {
        if h.state.CompareAndSwap(handlePending, handleFired) { fn() }
    })
    return h
}

// Cancel stops h. It is safe on nil, fired and already cancelled handles.
// It reports whether this call prevented h from firing.
func (s *Scheduler) Cancel(h *PollHandle) bool {
    if h == nil { return false }
    if !h.state.CompareAndSwap(handlePending, handleCancelled) { return false }
    if h.t != nil { h.t.Stop() }
    return true
}
