package library

import (
	"fmt"
	"strings"
	"time"
)

// TvShow is a series container for Episode rows.
type TvShow struct {
	ID             int64
	Title          string
	TVDBID         *int64
	QualityProfile string
	RootPath       string
	AddedAt        time.Time
	UpdatedAt      time.Time
}

func addTvShow(q querier, s *TvShow) error {
	now := time.Now()
	result, err := q.Exec(`
		INSERT INTO tv_shows (title, tvdb_id, quality_profile, root_path, added_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.Title, s.TVDBID, s.QualityProfile, s.RootPath, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert tv show: %w", mapSQLiteError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	s.ID = id
	s.AddedAt = now
	s.UpdatedAt = now
	return nil
}

// AddTvShow inserts a new TV show. Sets ID, AddedAt, UpdatedAt.
func (s *Store) AddTvShow(sh *TvShow) error { return addTvShow(s.db, sh) }

// AddTvShow inserts a new TV show within a transaction.
func (t *Tx) AddTvShow(sh *TvShow) error { return addTvShow(t.tx, sh) }

func getTvShow(q querier, id int64) (*TvShow, error) {
	sh := &TvShow{}
	err := q.QueryRow(`
		SELECT id, title, tvdb_id, quality_profile, root_path, added_at, updated_at
		FROM tv_shows WHERE id = ?`, id,
	).Scan(&sh.ID, &sh.Title, &sh.TVDBID, &sh.QualityProfile, &sh.RootPath, &sh.AddedAt, &sh.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get tv show %d: %w", id, mapSQLiteError(err))
	}
	return sh, nil
}

// GetTvShow retrieves a TV show by ID. Returns ErrNotFound if absent.
func (s *Store) GetTvShow(id int64) (*TvShow, error) { return getTvShow(s.db, id) }

// GetTvShow retrieves a TV show by ID within a transaction.
func (t *Tx) GetTvShow(id int64) (*TvShow, error) { return getTvShow(t.tx, id) }

func listTvShows(q querier, f TvShowFilter) ([]*TvShow, int, error) {
	var conditions []string
	var args []any

	if f.Title != nil {
		conditions = append(conditions, "title = ?")
		args = append(args, *f.Title)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := q.QueryRow("SELECT COUNT(*) FROM tv_shows "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tv shows: %w", err)
	}

	query := "SELECT id, title, tvdb_id, quality_profile, root_path, added_at, updated_at FROM tv_shows " + whereClause + " ORDER BY id"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)
	}

	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tv shows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*TvShow
	for rows.Next() {
		sh := &TvShow{}
		if err := rows.Scan(&sh.ID, &sh.Title, &sh.TVDBID, &sh.QualityProfile, &sh.RootPath, &sh.AddedAt, &sh.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan tv show: %w", err)
		}
		results = append(results, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate tv shows: %w", err)
	}
	return results, total, nil
}

// ListTvShows returns TV shows matching the filter with pagination.
func (s *Store) ListTvShows(f TvShowFilter) ([]*TvShow, int, error) { return listTvShows(s.db, f) }

// ListTvShows returns TV shows matching the filter within a transaction.
func (t *Tx) ListTvShows(f TvShowFilter) ([]*TvShow, int, error) { return listTvShows(t.tx, f) }

func deleteTvShow(q querier, id int64) error {
	// Episodes cascade via the schema's ON DELETE CASCADE foreign key.
	_, err := q.Exec("DELETE FROM tv_shows WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete tv show %d: %w", id, mapSQLiteError(err))
	}
	return nil
}

// DeleteTvShow removes a TV show (and its episodes) by ID. Idempotent.
func (s *Store) DeleteTvShow(id int64) error { return deleteTvShow(s.db, id) }

// DeleteTvShow removes a TV show by ID within a transaction.
func (t *Tx) DeleteTvShow(id int64) error { return deleteTvShow(t.tx, id) }
