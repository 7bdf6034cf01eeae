// Package backup implements the Task Scheduler's daily Backup job: a
// point-in-time copy of the SQLite database file.
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Config controls where backups land and how many are retained.
type Config struct {
	// Dir is the directory backup files are written to.
	Dir string
	// Keep is how many of the most recent backups to retain; older ones
	// are deleted after a successful run. Zero means unlimited.
	Keep int
}

// Runner implements scheduler.TaskRunner for the Backup task. It satisfies
// the TaskRunner interface directly (unlike the other tasks, which wrap an
// existing component's method via scheduler.RunnerFunc) because a backup
// has meaningful config and state of its own (Dir, Keep) worth naming as a
// type rather than capturing in a closure.
type Runner struct {
	db  *sql.DB
	cfg Config
	log *slog.Logger
}

// New creates a backup Runner.
func New(db *sql.DB, cfg Config, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{db: db, cfg: cfg, log: log.With("component", "backup")}
}

// Run performs one backup: a consistent snapshot via SQLite's VACUUM INTO
// (a single statement that also compacts the copy, unlike a raw file copy
// which could race a concurrent writer), then prunes old backups beyond
// Keep.
func (r *Runner) Run(ctx context.Context) error {
	if r.cfg.Dir == "" {
		return fmt.Errorf("backup: no directory configured")
	}
	if err := os.MkdirAll(r.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("backup: create dir: %w", err)
	}

	dest := filepath.Join(r.cfg.Dir, fmt.Sprintf("acquisitiond-%s.db", time.Now().UTC().Format("20060102-150405")))
	if _, err := r.db.ExecContext(ctx, `VACUUM INTO ?`, dest); err != nil {
		return fmt.Errorf("backup: vacuum into %s: %w", dest, err)
	}
	r.log.Info("backup written", "path", dest)

	if r.cfg.Keep > 0 {
		if err := r.prune(); err != nil {
			r.log.Warn("backup prune failed", "error", err)
		}
	}
	return nil
}

func (r *Runner) prune() error {
	entries, err := os.ReadDir(r.cfg.Dir)
	if err != nil {
		return fmt.Errorf("read backup dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names) // timestamped names sort chronologically

	if len(names) <= r.cfg.Keep {
		return nil
	}
	for _, name := range names[:len(names)-r.cfg.Keep] {
		if err := os.Remove(filepath.Join(r.cfg.Dir, name)); err != nil {
			return fmt.Errorf("remove old backup %s: %w", name, err)
		}
	}
	return nil
}
