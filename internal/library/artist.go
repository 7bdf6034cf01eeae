package library

import (
	"fmt"
	"time"
)

// Artist is an album container.
type Artist struct {
	ID            int64
	Name          string
	MusicBrainzID *string
	RootPath      string
	AddedAt       time.Time
}

func addArtist(q querier, a *Artist) error {
	now := time.Now()
	result, err := q.Exec(`
		INSERT INTO artists (name, musicbrainz_id, root_path, added_at)
		VALUES (?, ?, ?, ?)`,
		a.Name, a.MusicBrainzID, a.RootPath, now,
	)
	if err != nil {
		return fmt.Errorf("insert artist: %w", mapSQLiteError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	a.ID = id
	a.AddedAt = now
	return nil
}

// AddArtist inserts a new artist.
func (s *Store) AddArtist(a *Artist) error { return addArtist(s.db, a) }

// AddArtist inserts a new artist within a transaction.
func (t *Tx) AddArtist(a *Artist) error { return addArtist(t.tx, a) }

func getArtist(q querier, id int64) (*Artist, error) {
	a := &Artist{}
	err := q.QueryRow(`SELECT id, name, musicbrainz_id, root_path, added_at FROM artists WHERE id = ?`, id).
		Scan(&a.ID, &a.Name, &a.MusicBrainzID, &a.RootPath, &a.AddedAt)
	if err != nil {
		return nil, fmt.Errorf("get artist %d: %w", id, mapSQLiteError(err))
	}
	return a, nil
}

// GetArtist retrieves an artist by ID.
func (s *Store) GetArtist(id int64) (*Artist, error) { return getArtist(s.db, id) }

// GetArtist retrieves an artist by ID within a transaction.
func (t *Tx) GetArtist(id int64) (*Artist, error) { return getArtist(t.tx, id) }

func listArtists(q querier, f ArtistFilter) ([]*Artist, error) {
	query := "SELECT id, name, musicbrainz_id, root_path, added_at FROM artists"
	var args []any
	if f.Name != nil {
		query += " WHERE name = ?"
		args = append(args, *f.Name)
	}
	query += " ORDER BY id"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)
	}
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list artists: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Artist
	for rows.Next() {
		a := &Artist{}
		if err := rows.Scan(&a.ID, &a.Name, &a.MusicBrainzID, &a.RootPath, &a.AddedAt); err != nil {
			return nil, fmt.Errorf("scan artist: %w", err)
		}
		results = append(results, a)
	}
	return results, rows.Err()
}

// ListArtists returns artists matching the filter.
func (s *Store) ListArtists(f ArtistFilter) ([]*Artist, error) { return listArtists(s.db, f) }

// ListArtists returns artists matching the filter within a transaction.
func (t *Tx) ListArtists(f ArtistFilter) ([]*Artist, error) { return listArtists(t.tx, f) }

func deleteArtist(q querier, id int64) error {
	_, err := q.Exec("DELETE FROM artists WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete artist %d: %w", id, mapSQLiteError(err))
	}
	return nil
}

// DeleteArtist removes an artist (and cascading albums/tracks) by ID. Idempotent.
func (s *Store) DeleteArtist(id int64) error { return deleteArtist(s.db, id) }

// DeleteArtist removes an artist by ID within a transaction.
func (t *Tx) DeleteArtist(id int64) error { return deleteArtist(t.tx, id) }
