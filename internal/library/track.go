package library

import "fmt"

// Track is a single song on an Album.
type Track struct {
	ID      int64
	AlbumID int64
	Number  int
	Title   string
	HasFile bool
}

func addTrack(q querier, t *Track) error {
	result, err := q.Exec(`
		INSERT INTO tracks (album_id, number, title, has_file)
		VALUES (?, ?, ?, ?)`,
		t.AlbumID, t.Number, t.Title, t.HasFile,
	)
	if err != nil {
		return fmt.Errorf("insert track: %w", mapSQLiteError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	t.ID = id
	return nil
}

// AddTrack inserts a new track.
func (s *Store) AddTrack(t *Track) error { return addTrack(s.db, t) }

// AddTrack inserts a new track within a transaction.
func (tx *Tx) AddTrack(t *Track) error { return addTrack(tx.tx, t) }

func getTrack(q querier, id int64) (*Track, error) {
	t := &Track{}
	err := q.QueryRow(`SELECT id, album_id, number, title, has_file FROM tracks WHERE id = ?`, id).
		Scan(&t.ID, &t.AlbumID, &t.Number, &t.Title, &t.HasFile)
	if err != nil {
		return nil, fmt.Errorf("get track %d: %w", id, mapSQLiteError(err))
	}
	return t, nil
}

// GetTrack retrieves a track by ID.
func (s *Store) GetTrack(id int64) (*Track, error) { return getTrack(s.db, id) }

// GetTrack retrieves a track by ID within a transaction.
func (tx *Tx) GetTrack(id int64) (*Track, error) { return getTrack(tx.tx, id) }

func listTracks(q querier, f TrackFilter) ([]*Track, error) {
	query := "SELECT id, album_id, number, title, has_file FROM tracks"
	var conditions []string
	var args []any
	if f.AlbumID != nil {
		conditions = append(conditions, "album_id = ?")
		args = append(args, *f.AlbumID)
	}
	if f.HasFile != nil {
		conditions = append(conditions, "has_file = ?")
		args = append(args, *f.HasFile)
	}
	if len(conditions) > 0 {
		query += " WHERE "
		for i, c := range conditions {
			if i > 0 {
				query += " AND "
			}
			query += c
		}
	}
	query += " ORDER BY number"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)
	}
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Track
	for rows.Next() {
		t := &Track{}
		if err := rows.Scan(&t.ID, &t.AlbumID, &t.Number, &t.Title, &t.HasFile); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		results = append(results, t)
	}
	return results, rows.Err()
}

// ListTracks returns tracks matching the filter.
func (s *Store) ListTracks(f TrackFilter) ([]*Track, error) { return listTracks(s.db, f) }

// ListTracks returns tracks matching the filter within a transaction.
func (tx *Tx) ListTracks(f TrackFilter) ([]*Track, error) { return listTracks(tx.tx, f) }

func updateTrack(q querier, t *Track) error {
	result, err := q.Exec(`UPDATE tracks SET album_id = ?, number = ?, title = ?, has_file = ? WHERE id = ?`,
		t.AlbumID, t.Number, t.Title, t.HasFile, t.ID)
	if err != nil {
		return fmt.Errorf("update track %d: %w", t.ID, mapSQLiteError(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update track %d: %w", t.ID, ErrNotFound)
	}
	return nil
}

// UpdateTrack updates an existing track. Returns ErrNotFound if absent.
func (s *Store) UpdateTrack(t *Track) error { return updateTrack(s.db, t) }

// UpdateTrack updates an existing track within a transaction.
func (tx *Tx) UpdateTrack(t *Track) error { return updateTrack(tx.tx, t) }
