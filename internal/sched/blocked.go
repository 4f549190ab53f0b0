package sched

import "github.com/hermitgo/kernel/internal/irqlock"

// BlockedTasks is the per-core blocked-task service spec.md §6
// describes: it records (task, optional deadline) pairs and wakes a
// task either on an explicit custom_wakeup or when its deadline elapses
// (CheckDeadlines, standing in for the periodic timer service that
// calls custom_wakeup with reason Timer in the original).
type BlockedTasks struct {
	mu      irqlock.SpinlockIRQSave
	entries map[TaskID]*blockedEntry
}

type blockedEntry struct {
	task     *Task
	deadline *uint64
}

// NewBlockedTasks returns an empty blocked-task service.
func NewBlockedTasks() *BlockedTasks {
	return &BlockedTasks{entries: make(map[TaskID]*blockedEntry)}
}

// Add records task as blocked, with an optional wakeup deadline in the
// system's monotonic TSC-derived base.
func (b *BlockedTasks) Add(task *Task, deadline *uint64) {
	task.setStatus(StatusBlocked)
	b.mu.Lock()
	b.entries[task.ID] = &blockedEntry{task: task, deadline: deadline}
	b.mu.Unlock()
}

// CustomWakeup removes task from the blocked set and wakes it with
// reason Custom — the path Semaphore.Release takes.
func (b *BlockedTasks) CustomWakeup(task *Task) {
	b.mu.Lock()
	delete(b.entries, task.ID)
	b.mu.Unlock()
	task.wakeup(ReasonCustom)
}

// CheckDeadlines wakes, with reason Timer, every blocked task whose
// deadline is at or before now. It stands in for the timer ISR that,
// in the original, calls custom_wakeup with WakeupReason::Timer once a
// deadline elapses.
func (b *BlockedTasks) CheckDeadlines(now uint64) {
	b.mu.Lock()
	var expired []*Task
	for id, e := range b.entries {
		if e.deadline != nil && now >= *e.deadline {
			expired = append(expired, e.task)
			delete(b.entries, id)
		}
	}
	b.mu.Unlock()

	for _, t := range expired {
		t.wakeup(ReasonTimer)
	}
}

// Len reports how many tasks are currently blocked, for tests.
func (b *BlockedTasks) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
