// Package spin implements a family of busy-waiting mutual-exclusion
// primitives intended for very short critical sections, such as the ones
// guarding a single pool node's link fields. None of the types here ever
// park a goroutine: a blocked caller spins on an atomic until the lock
// becomes available, trading CPU for the absence of scheduler latency.
//
// Spinning for longer than a handful of instructions defeats the purpose
// of these types; callers with unbounded critical sections should use
// sync.Mutex instead.
package spin

import (
	"sync/atomic"
	"time"
)

// Mutex is a plain spin lock: one atomic flag, {unlocked, locked}.
//
// The zero value is an unlocked Mutex.
type Mutex struct {
	locked atomic.Bool
}

// Lock spins until the mutex is acquired.
func (m *Mutex) Lock() {
	for !m.locked.CompareAndSwap(false, true) {
	}
}

// Unlock releases the mutex. Unlocking an already-unlocked Mutex, or one
// held by another goroutine, is a caller bug with undefined effect.
func (m *Mutex) Unlock() {
	m.locked.Store(false)
}

// TryLock acquires the mutex without spinning, reporting whether it
// succeeded.
func (m *Mutex) TryLock() bool {
	return m.locked.CompareAndSwap(false, true)
}

// TryLockFor spins until either the mutex is acquired or d has elapsed,
// polling the clock once per spin iteration.
func (m *Mutex) TryLockFor(d time.Duration) bool {
	return m.TryLockUntil(time.Now().Add(d))
}

// TryLockUntil spins until either the mutex is acquired or the deadline
// has passed.
func (m *Mutex) TryLockUntil(deadline time.Time) bool {
	for !m.locked.CompareAndSwap(false, true) {
		if !time.Now().Before(deadline) {
			return false
		}
	}
	return true
}
