package analyst

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Limiter is the admission gate bounding simultaneous in-flight upstream
// calls. When all slots are taken, Acquire queues the caller in FIFO order;
// a queued wait ends in exactly one of grant, wait-timeout (ErrBusy), or
// cancellation. Safe for concurrent use.
type Limiter struct {
	mu          sync.Mutex
	limit       int
	waitTimeout time.Duration
	active      int
	waiters     *list.List // of *waiter, oldest first
}

// waiter is one queued acquisition. done marks the terminal transition so
// that grant, timeout, and cancel cannot all win.
type waiter struct {
	grant chan struct{} // closed on grant
	elem  *list.Element
	done  bool
}

// NewLimiter returns a gate with the given capacity and per-wait timeout.
// Capacity below 1 is raised to 1.
func NewLimiter(limit int, waitTimeout time.Duration) *Limiter {
	if limit < 1 {
		limit = 1
	}
	return &Limiter{limit: limit, waitTimeout: waitTimeout, waiters: list.New()}
}

// Acquire claims a slot, suspending in the FIFO queue when none is free.
// An already-cancelled ctx fails immediately without enqueuing. A wait that
// outlives the configured wait timeout fails with ErrBusy; a cancellation
// during the wait fails with ctx.Err(). Callers that got nil must Release.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	if l.active < l.limit {
		l.active++
		l.mu.Unlock()
		return nil
	}
	w := &waiter{grant: make(chan struct{})}
	w.elem = l.waiters.PushBack(w)
	l.mu.Unlock()

	timer := time.NewTimer(l.waitTimeout)
	defer timer.Stop()
	select {
	case <-w.grant:
		return nil
	case <-timer.C:
		if l.abandon(w) {
			return ErrBusy
		}
		// The grant won the race before the timer could; the slot is ours.
		<-w.grant
		return nil
	case <-ctx.Done():
		if l.abandon(w) {
			return ctx.Err()
		}
		// Granted concurrently with cancellation: hand the slot straight back.
		<-w.grant
		l.Release()
		return ctx.Err()
	}
}

// abandon marks w terminal and unlinks it from the queue. Reports false when
// a grant already won, in which case the caller owns a slot.
func (l *Limiter) abandon(w *waiter) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if w.done {
		return false
	}
	w.done = true
	l.waiters.Remove(w.elem)
	return true
}

// Release returns a slot and hands it to the oldest still-pending waiter, if
// any. The active count is incremented again as part of granting, so it never
// dips below zero nor exceeds the limit during the handoff.
func (l *Limiter) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active > 0 {
		l.active--
	}
	for e := l.waiters.Front(); e != nil; e = l.waiters.Front() {
		w := e.Value.(*waiter)
		l.waiters.Remove(e)
		if w.done {
			continue
		}
		w.done = true
		l.active++
		close(w.grant)
		return
	}
}

// Active returns the number of granted, unreleased slots.
func (l *Limiter) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Pending returns the number of queued waiters.
func (l *Limiter) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.waiters.Len()
}

// Limit returns the configured capacity.
func (l *Limiter) Limit() int { return l.limit }
