package scheduler

import "errors"

// Sentinel errors for the scheduler package.
var (
	// ErrUnknownTask indicates an operation named a task type that was
	// never registered with the scheduler.
	ErrUnknownTask = errors.New("scheduler: unknown task type")

	// ErrAlreadyRunning is returned by a manual Trigger call made while
	// that task's previous run is still in flight. It never surfaces from
	// the automatic
	// ticker path, which silently skips the tick instead.
	ErrAlreadyRunning = errors.New("scheduler: task already running")
)
