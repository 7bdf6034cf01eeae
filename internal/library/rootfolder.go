package library

import "fmt"

// Root-folder rows map one media type ("movie", "tv", "music", "book") to
// the directory that kind's organized files live under. Entity rows may
// carry their own root_path; these are the per-kind fallback.

func setRootFolder(q querier, mediaType, path string) error {
	_, err := q.Exec(`
		INSERT INTO root_folders (path, media_type) VALUES (?, ?)
		ON CONFLICT(media_type) DO UPDATE SET path = excluded.path`,
		path, mediaType,
	)
	if err != nil {
		return fmt.Errorf("set root folder %s: %w", mediaType, mapSQLiteError(err))
	}
	return nil
}

// SetRootFolder records mediaType's root directory, replacing any previous
// one.
func (s *Store) SetRootFolder(mediaType, path string) error {
	return setRootFolder(s.db, mediaType, path)
}

func getRootFolder(q querier, mediaType string) (string, error) {
	var path string
	err := q.QueryRow(`SELECT path FROM root_folders WHERE media_type = ?`, mediaType).Scan(&path)
	if err != nil {
		return "", fmt.Errorf("get root folder %s: %w", mediaType, mapSQLiteError(err))
	}
	return path, nil
}

// GetRootFolder returns mediaType's registered root directory. Returns
// ErrNotFound if none is recorded.
func (s *Store) GetRootFolder(mediaType string) (string, error) {
	return getRootFolder(s.db, mediaType)
}
