package janitor

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"winenotes/internal/logging"
)

// DefaultRetryDelay is used when Options.RetryDelay is unset.
const DefaultRetryDelay = 120 * time.Second

// Options configures a Janitor.
type Options struct {
	Clock      Clock
	RetryDelay time.Duration
	// Remove deletes a directory tree. Defaults to os.RemoveAll.
	Remove func(path string) error
}

// Outcome is the state of a scheduled cleanup.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeRemoved
	OutcomeFailed
	OutcomeCanceled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRemoved:
		return "removed"
	case OutcomeFailed:
		return "failed"
	case OutcomeCanceled:
		return "canceled"
	default:
		return "pending"
	}
}

// Janitor owns delayed, best-effort removal of transient directories.
type Janitor struct {
	clock  Clock
	retry  time.Duration
	remove func(string) error
	logger *slog.Logger

	mu       sync.Mutex
	tasks    map[*Task]struct{}
	inflight sync.WaitGroup
	stopped  bool
}

// Task is one scheduled removal.
type Task struct {
	Path string

	j       *Janitor
	timer   Timer
	due     time.Time
	attempt int
	running bool
	outcome Outcome
	done    chan struct{}
}

// New constructs a Janitor.
func New(opts Options, logger *slog.Logger) *Janitor {
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.Remove == nil {
		opts.Remove = os.RemoveAll
	}
	return &Janitor{
		clock:  opts.Clock,
		retry:  opts.RetryDelay,
		remove: opts.Remove,
		logger: logging.NewComponentLogger(logger, "janitor"),
		tasks:  make(map[*Task]struct{}),
	}
}

// Schedule removes path after grace. It never removes anything on the
// caller's goroutine; a zero grace still goes through the clock.
func (j *Janitor) Schedule(path string, grace time.Duration) *Task {
	if grace < 0 {
		grace = 0
	}
	task := &Task{Path: path, j: j, done: make(chan struct{})}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.stopped {
		task.outcome = OutcomeCanceled
		close(task.done)
		logging.WarnWithContext(j.logger, "cleanup scheduled after shutdown; skipped", "transient_cleanup_skipped",
			logging.String(logging.FieldPath, path),
			logging.String(logging.FieldImpact, "directory remains until the next sweep"),
		)
		return task
	}
	task.due = j.clock.Now().Add(grace)
	j.tasks[task] = struct{}{}
	task.timer = j.clock.AfterFunc(grace, task.fire)
	j.logger.Debug("cleanup scheduled",
		logging.String(logging.FieldPath, path),
		logging.Duration("grace", grace),
		logging.String(logging.FieldEventType, "transient_cleanup_scheduled"),
	)
	return task
}

// Pending counts tasks that have not reached a final outcome.
func (j *Janitor) Pending() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.tasks)
}

// Stop cancels tasks that are not yet due, runs the ones whose delay already
// elapsed, and waits for in-flight removals or ctx.
func (j *Janitor) Stop(ctx context.Context) error {
	j.mu.Lock()
	j.stopped = true
	now := j.clock.Now()
	var due []*Task
	for task := range j.tasks {
		if task.running {
			continue
		}
		task.timer.Stop()
		if !task.due.After(now) {
			task.startLocked()
			due = append(due, task)
			continue
		}
		task.finishLocked(OutcomeCanceled)
	}
	j.mu.Unlock()

	for _, task := range due {
		task.run()
	}

	finished := make(chan struct{})
	go func() {
		j.inflight.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel stops a task that has not started removing. It reports whether the
// task was canceled.
func (t *Task) Cancel() bool {
	j := t.j
	j.mu.Lock()
	defer j.mu.Unlock()
	if t.outcome != OutcomePending || t.running {
		return false
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	t.finishLocked(OutcomeCanceled)
	return true
}

// Outcome reports the task's current state.
func (t *Task) Outcome() Outcome {
	t.j.mu.Lock()
	defer t.j.mu.Unlock()
	return t.outcome
}

// Done is closed once the task reaches a final outcome.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

func (t *Task) finishLocked(outcome Outcome) {
	t.outcome = outcome
	t.running = false
	delete(t.j.tasks, t)
	close(t.done)
}

func (t *Task) startLocked() {
	t.running = true
	t.attempt++
	t.j.inflight.Add(1)
}

func (t *Task) fire() {
	j := t.j
	j.mu.Lock()
	if t.outcome != OutcomePending || t.running {
		j.mu.Unlock()
		return
	}
	t.startLocked()
	j.mu.Unlock()
	t.run()
}

func (t *Task) run() {
	j := t.j
	defer j.inflight.Done()

	err := j.removeTree(t.Path)

	j.mu.Lock()
	defer j.mu.Unlock()
	if err == nil {
		j.logger.Info("transient directory removed",
			logging.String(logging.FieldPath, t.Path),
			logging.String(logging.FieldEventType, "transient_cleanup_done"),
		)
		t.finishLocked(OutcomeRemoved)
		return
	}
	if t.attempt >= 2 || j.stopped {
		logging.WarnWithContext(j.logger, "transient cleanup failed; giving up", "transient_cleanup_gave_up",
			logging.String(logging.FieldPath, t.Path),
			logging.Int("attempts", t.attempt),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run `winenotes transient clean` or remove the directory manually"),
			logging.String(logging.FieldImpact, "disk space not reclaimed"),
		)
		t.finishLocked(OutcomeFailed)
		return
	}
	logging.WarnWithContext(j.logger, "transient cleanup failed; retrying once", "transient_cleanup_retry",
		logging.String(logging.FieldPath, t.Path),
		logging.Duration("retry_in", j.retry),
		logging.Error(err),
		logging.String(logging.FieldImpact, "directory remains until the retry"),
	)
	t.running = false
	t.due = j.clock.Now().Add(j.retry)
	t.timer = j.clock.AfterFunc(j.retry, t.fire)
}

func (j *Janitor) removeTree(path string) error {
	if _, err := os.Lstat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return j.remove(path)
}
