package sched

import "github.com/hermitgo/kernel/internal/irqlock"

// PriorityTaskQueue is a priority wait queue of task handles: pop
// returns the highest-priority task first, FIFO among tasks of equal
// priority, matching original_source/src/synch/semaphore.rs's use of
// scheduler::task::PriorityTaskQueue.
type PriorityTaskQueue struct {
	mu      irqlock.SpinlockIRQSave
	buckets map[int][]*Task
}

// NewPriorityTaskQueue returns an empty queue.
func NewPriorityTaskQueue() *PriorityTaskQueue {
	return &PriorityTaskQueue{buckets: make(map[int][]*Task)}
}

// Push enqueues task at its own priority, behind any task already
// waiting at that priority.
func (q *PriorityTaskQueue) Push(task *Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.buckets[task.Priority] = append(q.buckets[task.Priority], task)
}

// Pop removes and returns the highest-priority waiting task, or
// (nil, false) if the queue is empty.
func (q *PriorityTaskQueue) Pop() (*Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	best := -1
	for priority, tasks := range q.buckets {
		if len(tasks) == 0 {
			continue
		}
		if priority > best {
			best = priority
		}
	}
	if best == -1 {
		return nil, false
	}

	bucket := q.buckets[best]
	task := bucket[0]
	if len(bucket) == 1 {
		delete(q.buckets, best)
	} else {
		q.buckets[best] = bucket[1:]
	}
	return task, true
}

// Remove drops task from the queue if present, used when a blocked
// task's wakeup reason turns out to be a timeout rather than a release.
func (q *PriorityTaskQueue) Remove(task *Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	bucket := q.buckets[task.Priority]
	for i, t := range bucket {
		if t.ID == task.ID {
			q.buckets[task.Priority] = append(bucket[:i], bucket[i+1:]...)
			return true
		}
	}
	return false
}

// Empty reports whether the queue currently holds no tasks, used by
// tests asserting invariant I-4 (count > 0 implies queue is empty).
func (q *PriorityTaskQueue) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, tasks := range q.buckets {
		if len(tasks) > 0 {
			return false
		}
	}
	return true
}
