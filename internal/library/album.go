package library

import (
	"fmt"
	"time"
)

// Album is a wanted or owned release by an Artist. Completeness (hasFile)
// is derived from its Track rows, not stored directly.
type Album struct {
	ID        int64
	ArtistID  int64
	Title     string
	Year      int
	Requested bool
	RootPath  string
	AddedAt   time.Time
}

func addAlbum(q querier, a *Album) error {
	now := time.Now()
	result, err := q.Exec(`
		INSERT INTO albums (artist_id, title, year, requested, root_path, added_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ArtistID, a.Title, a.Year, a.Requested, a.RootPath, now,
	)
	if err != nil {
		return fmt.Errorf("insert album: %w", mapSQLiteError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	a.ID = id
	a.AddedAt = now
	return nil
}

// AddAlbum inserts a new album.
func (s *Store) AddAlbum(a *Album) error { return addAlbum(s.db, a) }

// AddAlbum inserts a new album within a transaction.
func (t *Tx) AddAlbum(a *Album) error { return addAlbum(t.tx, a) }

func getAlbum(q querier, id int64) (*Album, error) {
	a := &Album{}
	err := q.QueryRow(`SELECT id, artist_id, title, year, requested, root_path, added_at FROM albums WHERE id = ?`, id).
		Scan(&a.ID, &a.ArtistID, &a.Title, &a.Year, &a.Requested, &a.RootPath, &a.AddedAt)
	if err != nil {
		return nil, fmt.Errorf("get album %d: %w", id, mapSQLiteError(err))
	}
	return a, nil
}

// GetAlbum retrieves an album by ID.
func (s *Store) GetAlbum(id int64) (*Album, error) { return getAlbum(s.db, id) }

// GetAlbum retrieves an album by ID within a transaction.
func (t *Tx) GetAlbum(id int64) (*Album, error) { return getAlbum(t.tx, id) }

func listAlbums(q querier, f AlbumFilter) ([]*Album, error) {
	query := "SELECT id, artist_id, title, year, requested, root_path, added_at FROM albums"
	var conditions []string
	var args []any
	if f.ArtistID != nil {
		conditions = append(conditions, "artist_id = ?")
		args = append(args, *f.ArtistID)
	}
	if f.Requested != nil {
		conditions = append(conditions, "requested = ?")
		args = append(args, *f.Requested)
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
	query += " ORDER BY id"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)
	}
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list albums: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Album
	for rows.Next() {
		a := &Album{}
		if err := rows.Scan(&a.ID, &a.ArtistID, &a.Title, &a.Year, &a.Requested, &a.RootPath, &a.AddedAt); err != nil {
			return nil, fmt.Errorf("scan album: %w", err)
		}
		results = append(results, a)
	}
	return results, rows.Err()
}

// ListAlbums returns albums matching the filter.
func (s *Store) ListAlbums(f AlbumFilter) ([]*Album, error) { return listAlbums(s.db, f) }

// ListAlbums returns albums matching the filter within a transaction.
func (t *Tx) ListAlbums(f AlbumFilter) ([]*Album, error) { return listAlbums(t.tx, f) }

func deleteAlbum(q querier, id int64) error {
	_, err := q.Exec("DELETE FROM albums WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete album %d: %w", id, mapSQLiteError(err))
	}
	return nil
}

// DeleteAlbum removes an album (and its tracks) by ID. Idempotent.
func (s *Store) DeleteAlbum(id int64) error { return deleteAlbum(s.db, id) }

// DeleteAlbum removes an album by ID within a transaction.
func (t *Tx) DeleteAlbum(id int64) error { return deleteAlbum(t.tx, id) }

// AlbumHasFile reports whether every track of the album has a linked file.
// An album with zero tracks is not considered complete.
func albumHasFile(q querier, albumID int64) (bool, error) {
	var total, withFile int
	err := q.QueryRow("SELECT COUNT(*), COALESCE(SUM(has_file), 0) FROM tracks WHERE album_id = ?", albumID).
		Scan(&total, &withFile)
	if err != nil {
		return false, fmt.Errorf("album has_file %d: %w", albumID, mapSQLiteError(err))
	}
	return total > 0 && total == withFile, nil
}

// AlbumHasFile reports whether every track of the album has a linked file.
func (s *Store) AlbumHasFile(albumID int64) (bool, error) { return albumHasFile(s.db, albumID) }

// AlbumHasFile reports completeness within a transaction.
func (t *Tx) AlbumHasFile(albumID int64) (bool, error) { return albumHasFile(t.tx, albumID) }
