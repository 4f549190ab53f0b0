// Package sched is the external scheduler collaborator spec.md §6
// names: the types a synchronization primitive needs — the current
// task, a priority wait queue, and a blocked-task service — without
// pulling in a real multi-core cooperative scheduler (out of scope per
// spec.md's Non-goals: "the scheduler internals beyond the interface
// the semaphore consumes").
//
// Grounded on original_source/src/synch/semaphore.rs's consumption of
// scheduler::task: Task, WakeupReason, PriorityTaskQueue, and the
// core_scheduler()/get_scheduler(core_id)/blocked_tasks/custom_wakeup
// surface it calls. Where the original leans on global statics
// (core_scheduler(), thread-locals), this package follows spec.md §9's
// resolution for process-wide mutable state: explicit values threaded
// through APIs rather than package-level globals, the same choice
// internal/mm and internal/gdt already made for their own collaborators.
//
// A task's suspend/resume cycle (scheduler.yield() blocking until a
// wakeup) is implemented with a buffered channel rather than a real
// context switch: on this host-testable substrate a "task" is simply
// whatever goroutine is calling Semaphore.Acquire, and a channel send
// is the natural Go equivalent of "mark ready and requeue."
package sched

import "github.com/hermitgo/kernel/internal/irqlock"

// Reason mirrors scheduler::task::WakeupReason: why a blocked task was
// last requeued to ready.
type Reason int

const (
	// ReasonNone is the zero value: the task has never been woken.
	ReasonNone Reason = iota
	// ReasonCustom is used by an explicit release (Semaphore.Release).
	ReasonCustom
	// ReasonTimer is used when a blocked task's deadline elapses.
	ReasonTimer
)

func (r Reason) String() string {
	switch r {
	case ReasonCustom:
		return "Custom"
	case ReasonTimer:
		return "Timer"
	default:
		return "None"
	}
}

// Status mirrors the task status field spec.md §3's glossary names.
type Status int

const (
	StatusRunning Status = iota
	StatusReady
	StatusBlocked
	StatusIdle
)

// TaskID identifies a Task uniquely within a Registry, standing in for
// the reference-counted task handle spec.md §3 describes.
type TaskID uint64

// Task is the non-owning handle a semaphore and its wait queue hold
// into the scheduler's task table (spec.md §9's "cyclic structures"
// resolution: the scheduler owns the Task; queues only ever hold a
// *Task obtained from it).
type Task struct {
	ID        TaskID
	CoreID    int
	StackBase uint64
	Priority  int

	mu               irqlock.SpinlockIRQSave
	status           Status
	lastWakeupReason Reason
	wake             chan struct{}
}

// NewTask returns a Ready task with no outstanding wakeup.
func NewTask(id TaskID, coreID int, priority int, stackBase uint64) *Task {
	return &Task{
		ID:        id,
		CoreID:    coreID,
		StackBase: stackBase,
		Priority:  priority,
		status:    StatusReady,
		wake:      make(chan struct{}, 1),
	}
}

func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *Task) setStatus(s Status) {
	t.mu.Lock()
	t.status = s
	t.mu.Unlock()
}

// LastWakeupReason reports why this task was last requeued to ready.
func (t *Task) LastWakeupReason() Reason {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastWakeupReason
}

// SetLastWakeupReason lets the task itself reset its own wakeup reason,
// the way semaphore.rs's acquire does at its own entry
// ("current_task.borrow_mut().last_wakeup_reason = WakeupReason::Custom").
func (t *Task) SetLastWakeupReason(r Reason) {
	t.mu.Lock()
	t.lastWakeupReason = r
	t.mu.Unlock()
}

// wakeup marks the task Ready with the given reason and requeues it:
// here, that means unblocking whatever goroutine is parked in Yield.
// The buffered channel means a wakeup that arrives before Yield is
// called is not lost.
func (t *Task) wakeup(reason Reason) {
	t.mu.Lock()
	t.lastWakeupReason = reason
	t.status = StatusReady
	t.mu.Unlock()
	select {
	case t.wake <- struct{}{}:
	default:
	}
}
