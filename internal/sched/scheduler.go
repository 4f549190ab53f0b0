package sched

import "sync"

// Scheduler is one core's cooperative scheduler handle: it owns the
// currently-running task and that core's blocked-task service, and
// provides the yield point a blocking primitive suspends in.
//
// Context-switching between ready tasks, timer-driven preemption, and
// task creation/destruction are the scheduler internals spec.md's
// Non-goals explicitly exclude; this type exposes only the surface
// Semaphore consumes.
type Scheduler struct {
	CoreID  int
	blocked *BlockedTasks

	current *Task
}

// NewScheduler returns a scheduler for coreID with its own blocked-task
// service and no current task set.
func NewScheduler(coreID int) *Scheduler {
	return &Scheduler{CoreID: coreID, blocked: NewBlockedTasks()}
}

// CurrentTask returns the task this core is presently running.
func (s *Scheduler) CurrentTask() *Task { return s.current }

// SetCurrentTask installs t as the running task, marking it Running.
// Production code calls this from the context-switch path; tests call
// it directly to put a goroutine "on" a simulated core.
func (s *Scheduler) SetCurrentTask(t *Task) {
	t.setStatus(StatusRunning)
	s.current = t
}

// BlockedTasks returns this core's blocked-task service.
func (s *Scheduler) BlockedTasks() *BlockedTasks { return s.blocked }

// Yield suspends the calling goroutine until the current task is woken
// — the host-testable equivalent of scheduler.rs's scheduler() context
// switch, which does not return to its caller until that task is
// rescheduled.
func (s *Scheduler) Yield() {
	task := s.current
	<-task.wake
}

// Registry resolves a core ID to its Scheduler, the host-testable
// equivalent of the original's free functions core_scheduler() (current
// core) and get_scheduler(core_id) (any core). Semaphore.Release needs
// it to route a cross-core wakeup to the waiter's own core, per spec.md
// §5's "cross-core wake-up routes through the target core's scheduler
// object."
type Registry struct {
	mu         sync.Mutex
	schedulers map[int]*Scheduler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{schedulers: make(map[int]*Scheduler)}
}

// Register makes s reachable by its CoreID.
func (r *Registry) Register(s *Scheduler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schedulers[s.CoreID] = s
}

// Get returns the scheduler for coreID (get_scheduler(core_id)).
func (r *Registry) Get(coreID int) (*Scheduler, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.schedulers[coreID]
	return s, ok
}
