package library

import (
	"fmt"
	"strings"
	"time"
)

// Movie is a wanted or owned film.
type Movie struct {
	ID             int64
	Title          string
	Year           int
	TMDBID         *int64
	Requested      bool
	HasFile        bool
	QualityProfile string
	RootPath       string
	AddedAt        time.Time
	UpdatedAt      time.Time
}

func addMovie(q querier, m *Movie) error {
	now := time.Now()
	result, err := q.Exec(`
		INSERT INTO movies (title, year, tmdb_id, requested, has_file, quality_profile, root_path, added_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Title, m.Year, m.TMDBID, m.Requested, m.HasFile, m.QualityProfile, m.RootPath, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert movie: %w", mapSQLiteError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	m.ID = id
	m.AddedAt = now
	m.UpdatedAt = now
	return nil
}

// AddMovie inserts a new movie. Sets ID, AddedAt, UpdatedAt.
func (s *Store) AddMovie(m *Movie) error { return addMovie(s.db, m) }

// AddMovie inserts a new movie within a transaction.
func (t *Tx) AddMovie(m *Movie) error { return addMovie(t.tx, m) }

func getMovie(q querier, id int64) (*Movie, error) {
	m := &Movie{}
	err := q.QueryRow(`
		SELECT id, title, year, tmdb_id, requested, has_file, quality_profile, root_path, added_at, updated_at
		FROM movies WHERE id = ?`, id,
	).Scan(&m.ID, &m.Title, &m.Year, &m.TMDBID, &m.Requested, &m.HasFile, &m.QualityProfile, &m.RootPath, &m.AddedAt, &m.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get movie %d: %w", id, mapSQLiteError(err))
	}
	return m, nil
}

// GetMovie retrieves a movie by ID. Returns ErrNotFound if absent.
func (s *Store) GetMovie(id int64) (*Movie, error) { return getMovie(s.db, id) }

// GetMovie retrieves a movie by ID within a transaction.
func (t *Tx) GetMovie(id int64) (*Movie, error) { return getMovie(t.tx, id) }

func listMovies(q querier, f MovieFilter) ([]*Movie, int, error) {
	var conditions []string
	var args []any

	if f.Requested != nil {
		conditions = append(conditions, "requested = ?")
		args = append(args, *f.Requested)
	}
	if f.HasFile != nil {
		conditions = append(conditions, "has_file = ?")
		args = append(args, *f.HasFile)
	}
	if f.Title != nil {
		conditions = append(conditions, "title = ?")
		args = append(args, *f.Title)
	}
	if f.Year != nil {
		conditions = append(conditions, "year = ?")
		args = append(args, *f.Year)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := q.QueryRow("SELECT COUNT(*) FROM movies "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count movies: %w", err)
	}

	query := "SELECT id, title, year, tmdb_id, requested, has_file, quality_profile, root_path, added_at, updated_at FROM movies " + whereClause + " ORDER BY id"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)
	}

	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list movies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Movie
	for rows.Next() {
		m := &Movie{}
		if err := rows.Scan(&m.ID, &m.Title, &m.Year, &m.TMDBID, &m.Requested, &m.HasFile, &m.QualityProfile, &m.RootPath, &m.AddedAt, &m.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan movie: %w", err)
		}
		results = append(results, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate movies: %w", err)
	}
	return results, total, nil
}

// ListMovies returns movies matching the filter with pagination.
func (s *Store) ListMovies(f MovieFilter) ([]*Movie, int, error) { return listMovies(s.db, f) }

// ListMovies returns movies matching the filter within a transaction.
func (t *Tx) ListMovies(f MovieFilter) ([]*Movie, int, error) { return listMovies(t.tx, f) }

func updateMovie(q querier, m *Movie) error {
	now := time.Now()
	result, err := q.Exec(`
		UPDATE movies SET title = ?, year = ?, tmdb_id = ?, requested = ?, has_file = ?, quality_profile = ?, root_path = ?, updated_at = ?
		WHERE id = ?`,
		m.Title, m.Year, m.TMDBID, m.Requested, m.HasFile, m.QualityProfile, m.RootPath, now, m.ID,
	)
	if err != nil {
		return fmt.Errorf("update movie %d: %w", m.ID, mapSQLiteError(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update movie %d: %w", m.ID, ErrNotFound)
	}
	m.UpdatedAt = now
	return nil
}

// UpdateMovie updates an existing movie. Returns ErrNotFound if absent.
func (s *Store) UpdateMovie(m *Movie) error { return updateMovie(s.db, m) }

// UpdateMovie updates an existing movie within a transaction.
func (t *Tx) UpdateMovie(m *Movie) error { return updateMovie(t.tx, m) }

func deleteMovie(q querier, id int64) error {
	_, err := q.Exec("DELETE FROM movies WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete movie %d: %w", id, mapSQLiteError(err))
	}
	return nil
}

// DeleteMovie removes a movie by ID. Idempotent.
func (s *Store) DeleteMovie(id int64) error { return deleteMovie(s.db, id) }

// DeleteMovie removes a movie by ID within a transaction.
func (t *Tx) DeleteMovie(id int64) error { return deleteMovie(t.tx, id) }
