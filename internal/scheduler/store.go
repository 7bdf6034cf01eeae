package scheduler

import (
	"database/sql"
	"errors"
	"time"
)

// TaskType identifies one of the periodic jobs the scheduler runs.
type TaskType string

const (
	TaskDownloadMonitor  TaskType = "download_monitor"
	TaskCompletedScanner TaskType = "completed_scanner"
	TaskRequestedSearch  TaskType = "requested_search"
	TaskRSSSync          TaskType = "rss_sync"
	TaskBackup           TaskType = "backup"
	TaskBlacklistCleanup TaskType = "blacklist_cleanup"
)

// defaultInterval is the upsert-on-startup interval for a task type that
// has no row yet.
var defaultInterval = map[TaskType]time.Duration{
	TaskDownloadMonitor:  time.Minute,
	TaskCompletedScanner: 5 * time.Minute,
	TaskRequestedSearch:  60 * time.Minute,
	TaskRSSSync:          15 * time.Minute,
	TaskBackup:           24 * time.Hour,
	TaskBlacklistCleanup: 24 * time.Hour,
}

// ScheduledTask is the persisted row backing one registered task.
type ScheduledTask struct {
	Type            TaskType
	IntervalMinutes int
	Enabled         bool
	NextRunAt       *time.Time
	LastRunAt       *time.Time
	LastDurationMs  int64
}

// Store provides access to scheduled_tasks rows, following the plain
// db-handle-holding Store shape used throughout the repo (internal/download,
// internal/blacklist) rather than the querier-interface one internal/library
// uses: scheduler operations never need to share a caller's transaction.
type Store struct {
	db *sql.DB
}

// NewStore creates a new scheduler store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func mapSQLiteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUnknownTask
	}
	return err
}

const taskColumns = `task_type, interval_minutes, enabled, next_run_at, last_run_at, last_duration_ms`

func scanTask(row interface{ Scan(...any) error }) (*ScheduledTask, error) {
	t := &ScheduledTask{}
	var enabled int
	err := row.Scan(&t.Type, &t.IntervalMinutes, &enabled, &t.NextRunAt, &t.LastRunAt, &t.LastDurationMs)
	t.Enabled = enabled != 0
	return t, err
}

// EnsureDefaults upserts the default row for every known task type that
// doesn't already have one, leaving existing rows (and any user edits to
// their interval/enabled columns) untouched.
func (s *Store) EnsureDefaults() error {
	for taskType, interval := range defaultInterval {
		_, err := s.db.Exec(`
			INSERT INTO scheduled_tasks (task_type, interval_minutes, enabled)
			VALUES (?, ?, 1)
			ON CONFLICT(task_type) DO NOTHING`,
			taskType, int(interval.Minutes()),
		)
		if err != nil {
			return mapSQLiteError(err)
		}
	}
	return nil
}

// Get returns the row for one task type.
func (s *Store) Get(taskType TaskType) (*ScheduledTask, error) {
	row := s.db.QueryRow(`SELECT `+taskColumns+` FROM scheduled_tasks WHERE task_type = ?`, taskType)
	t, err := scanTask(row)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	return t, nil
}

// List returns every registered task's row.
func (s *Store) List() ([]*ScheduledTask, error) {
	rows, err := s.db.Query(`SELECT ` + taskColumns + ` FROM scheduled_tasks ORDER BY task_type`)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var tasks []*ScheduledTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// RecordRun updates lastRunAt/lastDurationMs/nextRunAt after one execution
// of a task, regardless of whether it succeeded.
func (s *Store) RecordRun(taskType TaskType, startedAt time.Time, duration time.Duration, intervalMinutes int) error {
	nextRunAt := startedAt.Add(duration).Add(time.Duration(intervalMinutes) * time.Minute)
	_, err := s.db.Exec(`
		UPDATE scheduled_tasks
		SET last_run_at = ?, last_duration_ms = ?, next_run_at = ?
		WHERE task_type = ?`,
		startedAt, duration.Milliseconds(), nextRunAt, taskType,
	)
	return mapSQLiteError(err)
}

// Update changes a task's interval and/or enabled flag.
func (s *Store) Update(taskType TaskType, intervalMinutes int, enabled bool) error {
	result, err := s.db.Exec(`
		UPDATE scheduled_tasks SET interval_minutes = ?, enabled = ? WHERE task_type = ?`,
		intervalMinutes, enabled, taskType,
	)
	if err != nil {
		return mapSQLiteError(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return mapSQLiteError(err)
	}
	if n == 0 {
		return ErrUnknownTask
	}
	return nil
}
