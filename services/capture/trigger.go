package capture

import "sync/atomic"

// Trigger is a single slot: one capture cycle may be pending or running at
// a time and signals arriving meanwhile are refused.
type Trigger struct {
	pending atomic.Bool
	wake    chan struct{}
}

func NewTrigger() *Trigger {
	return &Trigger{wake: make(chan struct{}, 1)}
}

// Fire requests a capture cycle. It returns false if one is already
// pending or in progress.
func (t *Trigger) Fire() bool {
	if !t.pending.CompareAndSwap(false, true) {
		return false
	}
	select {
	case t.wake <- struct{}{}:
	default:
	}
	return true
}

func (t *Trigger) Pending() bool {
	return t.pending.Load()
}

// Clear is called by the loop once a cycle has finished.
func (t *Trigger) Clear() {
	t.pending.Store(false)
}

// Wake receives after a successful Fire.
func (t *Trigger) Wake() <-chan struct{} {
	return t.wake
}
