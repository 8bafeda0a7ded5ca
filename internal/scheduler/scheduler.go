// Package scheduler runs registered tasks on interval or wall-clock
// triggers with single-flight semantics: a trigger that arrives while
// the previous execution of the same task is still running is skipped,
// and a trigger missed by more than the grace period coalesces into
// the next regular slot instead of replaying.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/evseev/channelgate/internal/metrics"
)

type Scheduler struct {
	grace      time.Duration
	runTimeout time.Duration
	log        *slog.Logger

	tasks []*Task
	locks map[string]*sync.Mutex

	wg      sync.WaitGroup
	started bool
}

func New(grace, runTimeout time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{
		grace:      grace,
		runTimeout: runTimeout,
		log:        log,
		locks:      make(map[string]*sync.Mutex),
	}
}

// Register adds a task. Must be called before Start.
func (s *Scheduler) Register(t *Task) error {
	if s.started {
		return fmt.Errorf("register %q: scheduler already started", t.ID)
	}
	if t.ID == "" || t.Run == nil {
		return fmt.Errorf("task needs an id and a run function")
	}
	if (t.Every > 0) == (t.At != nil) {
		return fmt.Errorf("task %q: exactly one of interval and wall-clock trigger required", t.ID)
	}
	if _, dup := s.locks[t.ID]; dup {
		return fmt.Errorf("task %q already registered", t.ID)
	}
	s.tasks = append(s.tasks, t)
	s.locks[t.ID] = &sync.Mutex{}
	return nil
}

// Start launches one goroutine per task. The tasks stop when ctx is
// cancelled; Wait blocks until all loops have exited.
func (s *Scheduler) Start(ctx context.Context) {
	s.started = true
	for _, t := range s.tasks {
		s.wg.Add(1)
		go s.loop(ctx, t)

		next := t.next(time.Now().UTC())
		s.log.Info("task scheduled", "task", t.ID, "next_run", next.Format(time.RFC3339))
	}
}

func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// RunNow triggers one task immediately, honoring single-flight. Used
// by the admin surface for manual runs.
func (s *Scheduler) RunNow(ctx context.Context, id string) error {
	for _, t := range s.tasks {
		if t.ID == id {
			s.execute(ctx, t)
			return nil
		}
	}
	return fmt.Errorf("unknown task %q", id)
}

func (s *Scheduler) loop(ctx context.Context, t *Task) {
	defer s.wg.Done()

	next := t.next(time.Now().UTC())
	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case fired := <-timer.C:
			if late := fired.Sub(next); late > s.grace {
				// The process slept through the trigger (suspend,
				// clock jump). Coalesce to the next slot rather than
				// replaying stale work.
				s.log.Warn("trigger missed beyond grace, coalescing",
					"task", t.ID, "late", late.Round(time.Second))
				metrics.RecordTaskRun(t.ID, "misfire", 0)
			} else {
				s.execute(ctx, t)
			}
			next = t.next(time.Now().UTC())
			timer.Reset(time.Until(next))
		}
	}
}

// execute runs one iteration with the per-run timeout, skipping when a
// previous iteration of the same task still holds the lock.
func (s *Scheduler) execute(ctx context.Context, t *Task) {
	lock := s.locks[t.ID]
	if !lock.TryLock() {
		s.log.Warn("previous run still in progress, skipping trigger", "task", t.ID)
		metrics.RecordTaskRun(t.ID, "skipped", 0)
		return
	}
	defer lock.Unlock()

	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	// Run id correlates every log line of one execution.
	log := s.log.With("task", t.ID, "run_id", uuid.NewString())

	start := time.Now()
	err := s.runSafely(runCtx, log, t)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		log.Error("task failed", "elapsed", elapsed.Round(time.Millisecond), "error", err)
	} else {
		log.Debug("task finished", "elapsed", elapsed.Round(time.Millisecond))
	}
	metrics.RecordTaskRun(t.ID, outcome, elapsed)
}

// runSafely converts a panic inside a task into an error so one broken
// task cannot take the process down.
func (s *Scheduler) runSafely(ctx context.Context, log *slog.Logger, t *Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("task panicked", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("task %q panicked: %v", t.ID, r)
		}
	}()
	return t.Run(ctx)
}
