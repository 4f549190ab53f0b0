package sched

import "testing"

func TestPriorityTaskQueuePopsHighestPriorityFirst(t *testing.T) {
	q := NewPriorityTaskQueue()
	low := NewTask(1, 0, 1, 0)
	high := NewTask(2, 0, 5, 0)
	mid := NewTask(3, 0, 3, 0)

	q.Push(low)
	q.Push(high)
	q.Push(mid)

	got, ok := q.Pop()
	if !ok || got.ID != high.ID {
		t.Fatalf("Pop() = %v, want task %d", got, high.ID)
	}
	got, ok = q.Pop()
	if !ok || got.ID != mid.ID {
		t.Fatalf("Pop() = %v, want task %d", got, mid.ID)
	}
	got, ok = q.Pop()
	if !ok || got.ID != low.ID {
		t.Fatalf("Pop() = %v, want task %d", got, low.ID)
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("Pop() on empty queue returned ok=true")
	}
}

func TestPriorityTaskQueueFIFOWithinSamePriority(t *testing.T) {
	q := NewPriorityTaskQueue()
	a := NewTask(1, 0, 2, 0)
	b := NewTask(2, 0, 2, 0)

	q.Push(a)
	q.Push(b)

	got, _ := q.Pop()
	if got.ID != a.ID {
		t.Fatalf("Pop() = task %d, want %d (FIFO)", got.ID, a.ID)
	}
	got, _ = q.Pop()
	if got.ID != b.ID {
		t.Fatalf("Pop() = task %d, want %d (FIFO)", got.ID, b.ID)
	}
}

func TestPriorityTaskQueueRemove(t *testing.T) {
	q := NewPriorityTaskQueue()
	a := NewTask(1, 0, 2, 0)
	b := NewTask(2, 0, 2, 0)
	q.Push(a)
	q.Push(b)

	if !q.Remove(a) {
		t.Fatal("Remove(a) = false, want true")
	}
	if q.Remove(a) {
		t.Fatal("Remove(a) a second time = true, want false")
	}

	got, ok := q.Pop()
	if !ok || got.ID != b.ID {
		t.Fatalf("Pop() after Remove(a) = %v, want task %d", got, b.ID)
	}
}

func TestBlockedTasksCheckDeadlinesWakesOnlyExpired(t *testing.T) {
	b := NewBlockedTasks()
	soon := uint64(100)
	later := uint64(1000)

	taskSoon := NewTask(1, 0, 0, 0)
	taskLater := NewTask(2, 0, 0, 0)
	b.Add(taskSoon, &soon)
	b.Add(taskLater, &later)

	b.CheckDeadlines(100)

	if taskSoon.LastWakeupReason() != ReasonTimer {
		t.Fatalf("taskSoon reason = %v, want Timer", taskSoon.LastWakeupReason())
	}
	if taskLater.LastWakeupReason() == ReasonTimer {
		t.Fatal("taskLater was woken early")
	}
	if b.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", b.Len())
	}
}

func TestSchedulerYieldBlocksUntilWoken(t *testing.T) {
	s := NewScheduler(0)
	task := NewTask(1, 0, 0, 0)
	s.SetCurrentTask(task)

	done := make(chan struct{})
	go func() {
		s.Yield()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Yield returned before the task was woken")
	default:
	}

	s.BlockedTasks().Add(task, nil)
	s.BlockedTasks().CustomWakeup(task)
	<-done
}

func TestRegistryRoundTrip(t *testing.T) {
	r := NewRegistry()
	s0 := NewScheduler(0)
	s1 := NewScheduler(1)
	r.Register(s0)
	r.Register(s1)

	got, ok := r.Get(1)
	if !ok || got != s1 {
		t.Fatalf("Get(1) = %v, %v; want s1, true", got, ok)
	}
	if _, ok := r.Get(2); ok {
		t.Fatal("Get(2) = true, want false for unregistered core")
	}
}
