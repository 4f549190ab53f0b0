// Package semaphore implements the counting, blocking, timeout-capable
// semaphore spec.md §4.J describes, built atop internal/sched's
// scheduler collaborator.
//
// Grounded directly on
// original_source/src/synch/semaphore.rs: the same (count, queue) state
// under a single IRQ-save spinlock, the same acquire loop (reset the
// wakeup reason, then loop taking the lock, checking count, checking a
// timeout wakeup, or blocking), and the same release (increment count,
// pop a waiter under the same lock, route the wakeup through that
// waiter's own core).
package semaphore

import (
	"github.com/hermitgo/kernel/internal/irqlock"
	"github.com/hermitgo/kernel/internal/sched"
)

// Semaphore is a counting, blocking synchronization primitive. The zero
// value is not usable; construct with New.
type Semaphore struct {
	mu       irqlock.SpinlockIRQSave
	count    int64
	queue    *sched.PriorityTaskQueue
	registry *sched.Registry
}

// New returns a semaphore initialized with count, which may be
// negative: a count of -n takes n releases to reach zero and one more
// before any acquire can succeed. registry is used by Release to route a
// wakeup to the waiter's own core.
func New(count int64, registry *sched.Registry) *Semaphore {
	return &Semaphore{
		count:    count,
		queue:    sched.NewPriorityTaskQueue(),
		registry: registry,
	}
}

// TryAcquire takes a permit without blocking, returning false
// immediately if none is available.
func (s *Semaphore) TryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count > 0 {
		s.count--
		return true
	}
	return false
}

// Acquire blocks the calling task until a permit is available or, if
// wakeupTime is non-nil, until that deadline elapses. It returns true on
// success, false on timeout. The caller must arrange for its own
// deadline (if any) to eventually fire via
// scheduler.BlockedTasks().CheckDeadlines — acquire itself only reacts
// to the wakeup reason it observes after being woken.
func (s *Semaphore) Acquire(task *sched.Task, scheduler *sched.Scheduler, wakeupTime *uint64) bool {
	task.SetLastWakeupReason(sched.ReasonCustom)

	for {
		acquired, shouldReturn := s.step(task, scheduler, wakeupTime)
		if shouldReturn {
			return acquired
		}
		scheduler.Yield()
	}
}

// step runs one iteration of the acquire loop under the semaphore's
// lock: take a permit, give up on a timeout, or block and enqueue.
// shouldReturn reports whether Acquire should return immediately with
// value acquired, rather than yielding and looping again.
func (s *Semaphore) step(task *sched.Task, scheduler *sched.Scheduler, wakeupTime *uint64) (acquired, shouldReturn bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.count > 0 {
		s.count--
		return true, true
	}
	if task.LastWakeupReason() == sched.ReasonTimer {
		s.queue.Remove(task)
		return false, true
	}

	scheduler.BlockedTasks().Add(task, wakeupTime)
	s.queue.Push(task)
	return false, false
}

// Release increments count and, if a task is waiting, pops the
// highest-priority waiter, both under the same lock, preserving the
// invariant that count > 0 never coexists with a non-empty queue. The
// popped waiter is then woken on its own core after the lock is
// released.
func (s *Semaphore) Release() {
	s.mu.Lock()
	s.count++
	task, ok := s.queue.Pop()
	s.mu.Unlock()

	if !ok {
		return
	}
	target, found := s.registry.Get(task.CoreID)
	if !found {
		return
	}
	target.BlockedTasks().CustomWakeup(task)
}

// Count returns the current permit count, for tests asserting the
// round-trip and quiescent-moment invariants spec.md §8 names. It takes
// the lock, so it reflects a value the semaphore actually held at some
// instant, not a racy read.
func (s *Semaphore) Count() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// QueueEmpty reports whether the wait queue is currently empty, for
// tests asserting invariant I-4 (count > 0 implies queue is empty).
func (s *Semaphore) QueueEmpty() bool {
	return s.queue.Empty()
}
