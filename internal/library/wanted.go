package library

import "fmt"

// Wanted-set queries back the RSS Sync Pipeline: library
// entities that are requested, missing a file, and have no active
// (non-terminal) Download in flight. "Active" is read directly off the
// downloads table rather than imported from the download package, since
// both packages share one schema and a Go-level dependency would be
// circular.

const terminalDownloadStatuses = "('completed', 'failed')"

// WantedEpisode pairs an Episode with its parent show's title, since RSS
// matching needs both.
type WantedEpisode struct {
	Episode
	ShowTitle string
}

// WantedAlbum pairs an Album with its artist's name.
type WantedAlbum struct {
	Album
	ArtistName string
}

// WantedBook pairs a Book with its author's name.
type WantedBook struct {
	Book
	AuthorName string
}

// WantedMovies returns requested movies with no file and no active download.
func (s *Store) WantedMovies() ([]*Movie, error) {
	rows, err := s.db.Query(`
		SELECT m.id, m.title, m.year, m.tmdb_id, m.requested, m.has_file, m.quality_profile, m.root_path, m.added_at, m.updated_at
		FROM movies m
		WHERE m.requested = 1 AND m.has_file = 0
		AND NOT EXISTS (SELECT 1 FROM downloads d WHERE d.movie_id = m.id AND d.status NOT IN ` + terminalDownloadStatuses + `)
		ORDER BY m.id`)
	if err != nil {
		return nil, fmt.Errorf("wanted movies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Movie
	for rows.Next() {
		m := &Movie{}
		if err := rows.Scan(&m.ID, &m.Title, &m.Year, &m.TMDBID, &m.Requested, &m.HasFile, &m.QualityProfile, &m.RootPath, &m.AddedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan wanted movie: %w", err)
		}
		results = append(results, m)
	}
	return results, rows.Err()
}

// WantedEpisodes returns requested episodes with no file and no active
// download, bounded at limit to cap match cost.
func (s *Store) WantedEpisodes(limit int) ([]*WantedEpisode, error) {
	query := `
		SELECT e.id, e.tv_show_id, e.season, e.episode, e.title, e.air_date, e.requested, e.has_file, t.title
		FROM episodes e
		JOIN tv_shows t ON t.id = e.tv_show_id
		WHERE e.requested = 1 AND e.has_file = 0
		AND NOT EXISTS (SELECT 1 FROM downloads d WHERE d.episode_id = e.id AND d.status NOT IN ` + terminalDownloadStatuses + `)
		ORDER BY e.id`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("wanted episodes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*WantedEpisode
	for rows.Next() {
		we := &WantedEpisode{}
		if err := rows.Scan(&we.ID, &we.TvShowID, &we.Season, &we.Episode, &we.Title, &we.AirDate, &we.Requested, &we.HasFile, &we.ShowTitle); err != nil {
			return nil, fmt.Errorf("scan wanted episode: %w", err)
		}
		results = append(results, we)
	}
	return results, rows.Err()
}

// WantedAlbums returns requested albums with at least one track missing a
// file and no active download.
func (s *Store) WantedAlbums() ([]*WantedAlbum, error) {
	rows, err := s.db.Query(`
		SELECT al.id, al.artist_id, al.title, al.year, al.requested, al.root_path, al.added_at, ar.name
		FROM albums al
		JOIN artists ar ON ar.id = al.artist_id
		WHERE al.requested = 1
		AND EXISTS (SELECT 1 FROM tracks tr WHERE tr.album_id = al.id AND tr.has_file = 0)
		AND NOT EXISTS (SELECT 1 FROM downloads d WHERE d.album_id = al.id AND d.status NOT IN ` + terminalDownloadStatuses + `)
		ORDER BY al.id`)
	if err != nil {
		return nil, fmt.Errorf("wanted albums: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*WantedAlbum
	for rows.Next() {
		wa := &WantedAlbum{}
		if err := rows.Scan(&wa.ID, &wa.ArtistID, &wa.Title, &wa.Year, &wa.Requested, &wa.RootPath, &wa.AddedAt, &wa.ArtistName); err != nil {
			return nil, fmt.Errorf("scan wanted album: %w", err)
		}
		results = append(results, wa)
	}
	return results, rows.Err()
}

// WantedBooks returns requested books with no file and no active download.
func (s *Store) WantedBooks() ([]*WantedBook, error) {
	rows, err := s.db.Query(`
		SELECT b.id, b.author_id, b.title, b.requested, b.has_file, b.root_path, b.added_at, a.name
		FROM books b
		JOIN authors a ON a.id = b.author_id
		WHERE b.requested = 1 AND b.has_file = 0
		AND NOT EXISTS (SELECT 1 FROM downloads d WHERE d.book_id = b.id AND d.status NOT IN ` + terminalDownloadStatuses + `)
		ORDER BY b.id`)
	if err != nil {
		return nil, fmt.Errorf("wanted books: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*WantedBook
	for rows.Next() {
		wb := &WantedBook{}
		if err := rows.Scan(&wb.ID, &wb.AuthorID, &wb.Title, &wb.Requested, &wb.HasFile, &wb.RootPath, &wb.AddedAt, &wb.AuthorName); err != nil {
			return nil, fmt.Errorf("scan wanted book: %w", err)
		}
		results = append(results, wb)
	}
	return results, rows.Err()
}
