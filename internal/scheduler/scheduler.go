// Package scheduler implements the Task Scheduler: it
// registers a TaskRunner per periodic job, persists their schedule as
// ScheduledTask rows, and dispatches each on its own ticker with a
// per-process re-entrancy guard, generalized from "one adapter, one
// poll loop" to "N named task
// types sharing one registry."
package scheduler

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// TaskRunner is one periodic job's work function. The scheduler never
// calls Run concurrently with itself for the same task type: ticker-driven
// ticks and manual Trigger calls share one re-entrancy guard, so a tick
// that finds the task running is skipped and a Trigger returns
// ErrAlreadyRunning.
type TaskRunner interface {
	Run(ctx context.Context) error
}

// staggerMin/staggerMax bound the random startup delay applied to a task
// whose NextRunAt is absent or already due, so every registered task
// doesn't fire in the same instant at process boot.
const (
	staggerMin = 5 * time.Second
	staggerMax = 60 * time.Second
)

type registeredTask struct {
	runner  TaskRunner
	running atomic.Bool
}

// Scheduler registers TaskRunners by TaskType and dispatches each on its
// own ticker, persisting run bookkeeping through Store.
type Scheduler struct {
	store *Store
	log   *slog.Logger

	mu    sync.Mutex
	tasks map[TaskType]*registeredTask
}

// New creates a Scheduler. Register every TaskRunner before calling Start.
func New(store *Store, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		store: store,
		log:   log.With("component", "scheduler"),
		tasks: make(map[TaskType]*registeredTask),
	}
}

// EnsureDefaults upserts the default row for every known task type that
// doesn't already have one. Start calls this itself; callers that only
// want to List or Update without running the scheduler (acquisitionctl)
// call it directly first so a fresh database has rows to show.
func (s *Scheduler) EnsureDefaults() error {
	return s.store.EnsureDefaults()
}

// Register associates a TaskRunner with a task type. Must be called before
// Start; registering after Start has begun has no effect on already-started
// tickers.
func (s *Scheduler) Register(taskType TaskType, runner TaskRunner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[taskType] = &registeredTask{runner: runner}
}

// Start upserts default ScheduledTask rows, then runs one ticker goroutine
// per enabled registered task until ctx is cancelled. It returns when every
// ticker goroutine has stopped (i.e. on shutdown), never on a single task's
// error. A task runner's error is logged, not propagated.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.store.EnsureDefaults(); err != nil {
		return err
	}

	rows, err := s.store.List()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, row := range rows {
		row := row
		s.mu.Lock()
		rt, ok := s.tasks[row.Type]
		s.mu.Unlock()
		if !ok || !row.Enabled {
			continue
		}
		g.Go(func() error {
			s.runLoop(ctx, row.Type, rt, row)
			return nil
		})
	}
	return g.Wait()
}

// runLoop drives one task type's ticker for the lifetime of ctx.
func (s *Scheduler) runLoop(ctx context.Context, taskType TaskType, rt *registeredTask, initial *ScheduledTask) {
	interval := time.Duration(initial.IntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = defaultInterval[taskType]
	}

	due := initial.NextRunAt == nil || initial.NextRunAt.Before(time.Now())
	if due {
		delay := staggerMin + time.Duration(rand.Int64N(int64(staggerMax-staggerMin)))
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		s.execute(ctx, taskType, rt, interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.execute(ctx, taskType, rt, interval)
		}
	}
}

// execute runs one tick: set lastRunAt, invoke the runner, record duration
// and nextRunAt. If the task is already running (Trigger raced the
// ticker), the tick is silently skipped.
func (s *Scheduler) execute(ctx context.Context, taskType TaskType, rt *registeredTask, interval time.Duration) {
	if !rt.running.CompareAndSwap(false, true) {
		return
	}
	defer rt.running.Store(false)

	started := time.Now()
	if err := rt.runner.Run(ctx); err != nil {
		s.log.Error("task failed", "task", taskType, "error", err)
	}
	duration := time.Since(started)

	row, err := s.store.Get(taskType)
	intervalMinutes := int(interval.Minutes())
	if err == nil {
		intervalMinutes = row.IntervalMinutes
	}
	if err := s.store.RecordRun(taskType, started, duration, intervalMinutes); err != nil {
		s.log.Error("failed to record task run", "task", taskType, "error", err)
	}
}

// Trigger runs one task immediately, out of band from its ticker. Returns
// ErrAlreadyRunning if that task's previous run (ticker- or trigger-
// initiated) is still in flight, and ErrUnknownTask if taskType was never
// registered.
func (s *Scheduler) Trigger(ctx context.Context, taskType TaskType) error {
	s.mu.Lock()
	rt, ok := s.tasks[taskType]
	s.mu.Unlock()
	if !ok {
		return ErrUnknownTask
	}
	if !rt.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer rt.running.Store(false)

	row, err := s.store.Get(taskType)
	if err != nil {
		return err
	}

	started := time.Now()
	runErr := rt.runner.Run(ctx)
	duration := time.Since(started)
	if recordErr := s.store.RecordRun(taskType, started, duration, row.IntervalMinutes); recordErr != nil {
		s.log.Error("failed to record task run", "task", taskType, "error", recordErr)
	}
	return runErr
}

// Update re-schedules a task's interval and/or enabled flag.
// Interval changes take effect on the task's
// next tick (an already-running ticker keeps its current period); callers
// that need an immediate effect should restart the scheduler.
func (s *Scheduler) Update(taskType TaskType, intervalMinutes int, enabled bool) error {
	s.mu.Lock()
	_, ok := s.tasks[taskType]
	s.mu.Unlock()
	if !ok {
		return ErrUnknownTask
	}
	return s.store.Update(taskType, intervalMinutes, enabled)
}

// TaskStatus is one row of Scheduler.List's output: a ScheduledTask row
// plus the in-memory isRunning flag the persisted row can't carry.
type TaskStatus struct {
	ScheduledTask
	IsRunning bool
}

// List returns every registered task's persisted schedule plus whether
// it's currently executing.
func (s *Scheduler) List() ([]TaskStatus, error) {
	rows, err := s.store.List()
	if err != nil {
		return nil, err
	}
	statuses := make([]TaskStatus, 0, len(rows))
	for _, row := range rows {
		s.mu.Lock()
		rt, ok := s.tasks[row.Type]
		s.mu.Unlock()
		running := ok && rt.running.Load()
		statuses = append(statuses, TaskStatus{ScheduledTask: *row, IsRunning: running})
	}
	return statuses, nil
}
