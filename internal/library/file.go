package library

import (
	"fmt"
	"time"
)

// MediaFileKind discriminates which of the four media kinds a MediaFile
// belongs to. Exactly one of MovieID/EpisodeID/TrackID/BookID is set.
type MediaFileKind string

const (
	MediaFileMovie   MediaFileKind = "movie"
	MediaFileEpisode MediaFileKind = "episode"
	MediaFileTrack   MediaFileKind = "track"
	MediaFileBook    MediaFileKind = "book"
)

// MediaFile is a single file on disk backing a library entity.
type MediaFile struct {
	ID        int64
	Kind      MediaFileKind
	MovieID   *int64
	EpisodeID *int64
	TrackID   *int64
	BookID    *int64
	Path      string
	SizeBytes int64
	Quality   string
	AddedAt   time.Time
}

func addMediaFile(q querier, f *MediaFile) error {
	now := time.Now()
	result, err := q.Exec(`
		INSERT INTO media_files (kind, movie_id, episode_id, track_id, book_id, path, size_bytes, quality, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.Kind, f.MovieID, f.EpisodeID, f.TrackID, f.BookID, f.Path, f.SizeBytes, f.Quality, now,
	)
	if err != nil {
		return fmt.Errorf("insert media file: %w", mapSQLiteError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	f.ID = id
	f.AddedAt = now
	return nil
}

// AddMediaFile inserts a new media file. Sets ID and AddedAt.
func (s *Store) AddMediaFile(f *MediaFile) error { return addMediaFile(s.db, f) }

// AddMediaFile inserts a new media file within a transaction.
func (t *Tx) AddMediaFile(f *MediaFile) error { return addMediaFile(t.tx, f) }

func getMediaFile(q querier, id int64) (*MediaFile, error) {
	f := &MediaFile{}
	err := q.QueryRow(`
		SELECT id, kind, movie_id, episode_id, track_id, book_id, path, size_bytes, quality, added_at
		FROM media_files WHERE id = ?`, id,
	).Scan(&f.ID, &f.Kind, &f.MovieID, &f.EpisodeID, &f.TrackID, &f.BookID, &f.Path, &f.SizeBytes, &f.Quality, &f.AddedAt)
	if err != nil {
		return nil, fmt.Errorf("get media file %d: %w", id, mapSQLiteError(err))
	}
	return f, nil
}

// GetMediaFile retrieves a media file by ID.
func (s *Store) GetMediaFile(id int64) (*MediaFile, error) { return getMediaFile(s.db, id) }

// GetMediaFile retrieves a media file by ID within a transaction.
func (t *Tx) GetMediaFile(id int64) (*MediaFile, error) { return getMediaFile(t.tx, id) }

func listMediaFiles(q querier, f MediaFileFilter) ([]*MediaFile, error) {
	query := "SELECT id, kind, movie_id, episode_id, track_id, book_id, path, size_bytes, quality, added_at FROM media_files"
	var conditions []string
	var args []any
	if f.MovieID != nil {
		conditions = append(conditions, "movie_id = ?")
		args = append(args, *f.MovieID)
	}
	if f.EpisodeID != nil {
		conditions = append(conditions, "episode_id = ?")
		args = append(args, *f.EpisodeID)
	}
	if f.TrackID != nil {
		conditions = append(conditions, "track_id = ?")
		args = append(args, *f.TrackID)
	}
	if f.BookID != nil {
		conditions = append(conditions, "book_id = ?")
		args = append(args, *f.BookID)
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
		return nil, fmt.Errorf("list media files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*MediaFile
	for rows.Next() {
		mf := &MediaFile{}
		if err := rows.Scan(&mf.ID, &mf.Kind, &mf.MovieID, &mf.EpisodeID, &mf.TrackID, &mf.BookID, &mf.Path, &mf.SizeBytes, &mf.Quality, &mf.AddedAt); err != nil {
			return nil, fmt.Errorf("scan media file: %w", err)
		}
		results = append(results, mf)
	}
	return results, rows.Err()
}

// ListMediaFiles returns media files matching the filter.
func (s *Store) ListMediaFiles(f MediaFileFilter) ([]*MediaFile, error) { return listMediaFiles(s.db, f) }

// ListMediaFiles returns media files matching the filter within a transaction.
func (t *Tx) ListMediaFiles(f MediaFileFilter) ([]*MediaFile, error) { return listMediaFiles(t.tx, f) }

func deleteMediaFile(q querier, id int64) error {
	_, err := q.Exec("DELETE FROM media_files WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete media file %d: %w", id, mapSQLiteError(err))
	}
	return nil
}

// DeleteMediaFile removes a media file by ID. Idempotent.
func (s *Store) DeleteMediaFile(id int64) error { return deleteMediaFile(s.db, id) }

// DeleteMediaFile removes a media file by ID within a transaction.
func (t *Tx) DeleteMediaFile(id int64) error { return deleteMediaFile(t.tx, id) }
