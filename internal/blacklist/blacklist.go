// Package blacklist suppresses re-grabbing releases already known bad,
// by GUID or by normalized title.
package blacklist

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vmunix/arrgo/pkg/release"
)

// Entry is one blacklisted release.
type Entry struct {
	ID              int64
	GUID            string
	NormalizedTitle string
	Reason          string
	CreatedAt       time.Time
}

// Release is the minimal shape Filter needs from a search result; callers
// adapt their own release type to this.
type Release struct {
	GUID  string
	Title string
}

// Store provides access to the blacklist.
type Store struct {
	db *sql.DB
}

// NewStore creates a new blacklist store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func mapSQLiteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// ErrNotFound indicates a blacklist entry does not exist.
var ErrNotFound = errors.New("blacklist entry not found")

// Add records a release as blacklisted, keyed by both its GUID and its
// normalized title.
func (s *Store) Add(guid, title, reason string) error {
	_, err := s.db.Exec(
		`INSERT INTO blacklist (guid, normalized_title, reason, created_at) VALUES (?, ?, ?, ?)`,
		guid, release.Normalize(title), reason, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("add blacklist entry: %w", mapSQLiteError(err))
	}
	return nil
}

// IsBlacklisted reports whether guid or normalizedTitle matches an
// existing entry. Satisfies download.BlacklistChecker.
func (s *Store) IsBlacklisted(guid, normalizedTitle string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM blacklist WHERE (guid != '' AND guid = ?) OR (normalized_title != '' AND normalized_title = ?)`,
		guid, normalizedTitle,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}
	return count > 0, nil
}

// Filter returns only the releases not present in the blacklist by GUID
// and not matching by normalized title.
func (s *Store) Filter(releases []Release) ([]Release, error) {
	entries, err := s.listAll()
	if err != nil {
		return nil, fmt.Errorf("load blacklist: %w", err)
	}

	byGUID := make(map[string]struct{}, len(entries))
	byTitle := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.GUID != "" {
			byGUID[e.GUID] = struct{}{}
		}
		if e.NormalizedTitle != "" {
			byTitle[e.NormalizedTitle] = struct{}{}
		}
	}

	kept := make([]Release, 0, len(releases))
	for _, r := range releases {
		if _, blocked := byGUID[r.GUID]; blocked {
			continue
		}
		if _, blocked := byTitle[release.Normalize(r.Title)]; blocked {
			continue
		}
		kept = append(kept, r)
	}
	return kept, nil
}

// Prune deletes blacklist entries older than maxAge, returning the number
// removed. The Task Scheduler's Blacklist Cleanup task calls this
// once per run.
func (s *Store) Prune(maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	result, err := s.db.Exec(`DELETE FROM blacklist WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune blacklist: %w", mapSQLiteError(err))
	}
	return result.RowsAffected()
}

func (s *Store) listAll() ([]Entry, error) {
	rows, err := s.db.Query(`SELECT id, guid, normalized_title, reason, created_at FROM blacklist`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.GUID, &e.NormalizedTitle, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan blacklist entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
