package library

import (
	"fmt"
	"strings"
	"time"
)

// Episode is a single wanted or owned episode of a TvShow.
type Episode struct {
	ID        int64
	TvShowID  int64
	Season    int
	Episode   int
	Title     string
	AirDate   *time.Time
	Requested bool
	HasFile   bool
}

func addEpisode(q querier, e *Episode) error {
	result, err := q.Exec(`
		INSERT INTO episodes (tv_show_id, season, episode, title, air_date, requested, has_file)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.TvShowID, e.Season, e.Episode, e.Title, e.AirDate, e.Requested, e.HasFile,
	)
	if err != nil {
		return fmt.Errorf("insert episode: %w", mapSQLiteError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	e.ID = id
	return nil
}

// AddEpisode inserts a new episode. Sets ID.
func (s *Store) AddEpisode(e *Episode) error { return addEpisode(s.db, e) }

// AddEpisode inserts a new episode within a transaction.
func (t *Tx) AddEpisode(e *Episode) error { return addEpisode(t.tx, e) }

func getEpisode(q querier, id int64) (*Episode, error) {
	e := &Episode{}
	err := q.QueryRow(`
		SELECT id, tv_show_id, season, episode, title, air_date, requested, has_file
		FROM episodes WHERE id = ?`, id,
	).Scan(&e.ID, &e.TvShowID, &e.Season, &e.Episode, &e.Title, &e.AirDate, &e.Requested, &e.HasFile)
	if err != nil {
		return nil, fmt.Errorf("get episode %d: %w", id, mapSQLiteError(err))
	}
	return e, nil
}

// GetEpisode retrieves an episode by ID. Returns ErrNotFound if absent.
func (s *Store) GetEpisode(id int64) (*Episode, error) { return getEpisode(s.db, id) }

// GetEpisode retrieves an episode by ID within a transaction.
func (t *Tx) GetEpisode(id int64) (*Episode, error) { return getEpisode(t.tx, id) }

func listEpisodes(q querier, f EpisodeFilter) ([]*Episode, int, error) {
	var conditions []string
	var args []any

	if f.TvShowID != nil {
		conditions = append(conditions, "tv_show_id = ?")
		args = append(args, *f.TvShowID)
	}
	if f.Season != nil {
		conditions = append(conditions, "season = ?")
		args = append(args, *f.Season)
	}
	if f.Requested != nil {
		conditions = append(conditions, "requested = ?")
		args = append(args, *f.Requested)
	}
	if f.HasFile != nil {
		conditions = append(conditions, "has_file = ?")
		args = append(args, *f.HasFile)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := q.QueryRow("SELECT COUNT(*) FROM episodes "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count episodes: %w", err)
	}

	query := "SELECT id, tv_show_id, season, episode, title, air_date, requested, has_file FROM episodes " + whereClause + " ORDER BY season, episode"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)
	}

	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list episodes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Episode
	for rows.Next() {
		e := &Episode{}
		if err := rows.Scan(&e.ID, &e.TvShowID, &e.Season, &e.Episode, &e.Title, &e.AirDate, &e.Requested, &e.HasFile); err != nil {
			return nil, 0, fmt.Errorf("scan episode: %w", err)
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate episodes: %w", err)
	}
	return results, total, nil
}

// ListEpisodes returns episodes matching the filter with pagination.
func (s *Store) ListEpisodes(f EpisodeFilter) ([]*Episode, int, error) { return listEpisodes(s.db, f) }

// ListEpisodes returns episodes matching the filter within a transaction.
func (t *Tx) ListEpisodes(f EpisodeFilter) ([]*Episode, int, error) { return listEpisodes(t.tx, f) }

func updateEpisode(q querier, e *Episode) error {
	result, err := q.Exec(`
		UPDATE episodes SET tv_show_id = ?, season = ?, episode = ?, title = ?, air_date = ?, requested = ?, has_file = ?
		WHERE id = ?`,
		e.TvShowID, e.Season, e.Episode, e.Title, e.AirDate, e.Requested, e.HasFile, e.ID,
	)
	if err != nil {
		return fmt.Errorf("update episode %d: %w", e.ID, mapSQLiteError(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update episode %d: %w", e.ID, ErrNotFound)
	}
	return nil
}

// UpdateEpisode updates an existing episode. Returns ErrNotFound if absent.
func (s *Store) UpdateEpisode(e *Episode) error { return updateEpisode(s.db, e) }

// UpdateEpisode updates an existing episode within a transaction.
func (t *Tx) UpdateEpisode(e *Episode) error { return updateEpisode(t.tx, e) }

func deleteEpisode(q querier, id int64) error {
	_, err := q.Exec("DELETE FROM episodes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete episode %d: %w", id, mapSQLiteError(err))
	}
	return nil
}

// DeleteEpisode removes an episode by ID. Idempotent.
func (s *Store) DeleteEpisode(id int64) error { return deleteEpisode(s.db, id) }

// DeleteEpisode removes an episode by ID within a transaction.
func (t *Tx) DeleteEpisode(id int64) error { return deleteEpisode(t.tx, id) }
