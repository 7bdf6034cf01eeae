// internal/importer/testutil_test.go
package importer

import (
	"database/sql"
	_ "embed"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

//go:embed testdata/schema.sql
var testSchema string

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:?_foreign_keys=on")
	require.NoError(t, err, "open db")
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(testSchema)
	require.NoError(t, err, "apply schema")
	return db
}

func insertTestClient(t *testing.T, db *sql.DB) int64 {
	t.Helper()
	result, err := db.Exec(`INSERT INTO download_clients (name, type, host, port) VALUES ('sab', 'sabnzbd', 'localhost', 8080)`)
	require.NoError(t, err)
	id, err := result.LastInsertId()
	require.NoError(t, err)
	return id
}

func insertTestMovie(t *testing.T, db *sql.DB, title string, year int, rootPath string) int64 {
	t.Helper()
	now := time.Now()
	result, err := db.Exec(`
		INSERT INTO movies (title, year, requested, has_file, root_path, added_at, updated_at)
		VALUES (?, ?, 1, 0, ?, ?, ?)`,
		title, year, rootPath, now, now,
	)
	require.NoError(t, err)
	id, err := result.LastInsertId()
	require.NoError(t, err)
	return id
}

func insertTestTvShow(t *testing.T, db *sql.DB, title, rootPath string) int64 {
	t.Helper()
	now := time.Now()
	result, err := db.Exec(`
		INSERT INTO tv_shows (title, root_path, added_at, updated_at) VALUES (?, ?, ?, ?)`,
		title, rootPath, now, now,
	)
	require.NoError(t, err)
	id, err := result.LastInsertId()
	require.NoError(t, err)
	return id
}

func insertTestEpisode(t *testing.T, db *sql.DB, showID int64, season, episode int, title string) int64 {
	t.Helper()
	result, err := db.Exec(`
		INSERT INTO episodes (tv_show_id, season, episode, title, requested, has_file)
		VALUES (?, ?, ?, ?, 1, 0)`,
		showID, season, episode, title,
	)
	require.NoError(t, err)
	id, err := result.LastInsertId()
	require.NoError(t, err)
	return id
}

func insertTestArtist(t *testing.T, db *sql.DB, name, rootPath string) int64 {
	t.Helper()
	result, err := db.Exec(`INSERT INTO artists (name, root_path, added_at) VALUES (?, ?, ?)`, name, rootPath, time.Now())
	require.NoError(t, err)
	id, err := result.LastInsertId()
	require.NoError(t, err)
	return id
}

func insertTestAlbum(t *testing.T, db *sql.DB, artistID int64, title string, year int, rootPath string) int64 {
	t.Helper()
	result, err := db.Exec(`
		INSERT INTO albums (artist_id, title, year, requested, root_path, added_at)
		VALUES (?, ?, ?, 1, ?, ?)`,
		artistID, title, year, rootPath, time.Now(),
	)
	require.NoError(t, err)
	id, err := result.LastInsertId()
	require.NoError(t, err)
	return id
}

func insertTestTrack(t *testing.T, db *sql.DB, albumID int64, number int, title string) int64 {
	t.Helper()
	result, err := db.Exec(`INSERT INTO tracks (album_id, number, title, has_file) VALUES (?, ?, ?, 0)`, albumID, number, title)
	require.NoError(t, err)
	id, err := result.LastInsertId()
	require.NoError(t, err)
	return id
}

func insertTestAuthor(t *testing.T, db *sql.DB, name, rootPath string) int64 {
	t.Helper()
	result, err := db.Exec(`INSERT INTO authors (name, root_path, added_at) VALUES (?, ?, ?)`, name, rootPath, time.Now())
	require.NoError(t, err)
	id, err := result.LastInsertId()
	require.NoError(t, err)
	return id
}

func insertTestBook(t *testing.T, db *sql.DB, authorID int64, title, rootPath string) int64 {
	t.Helper()
	result, err := db.Exec(`
		INSERT INTO books (author_id, title, requested, has_file, root_path, added_at)
		VALUES (?, ?, 1, 0, ?, ?)`,
		authorID, title, rootPath, time.Now(),
	)
	require.NoError(t, err)
	id, err := result.LastInsertId()
	require.NoError(t, err)
	return id
}

// insertTestDownload inserts a downloads row, leaving exactly the given
// library FK set, and returns its ID.
func insertTestDownload(t *testing.T, db *sql.DB, clientID int64, title, outputPath string, movieID, episodeID, albumID, bookID *int64) int64 {
	t.Helper()
	now := time.Now()
	result, err := db.Exec(`
		INSERT INTO downloads (client_id, movie_id, episode_id, album_id, book_id,
			title, output_path, status, last_transition_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 'importing', ?)`,
		clientID, movieID, episodeID, albumID, bookID, title, outputPath, now,
	)
	require.NoError(t, err)
	id, err := result.LastInsertId()
	require.NoError(t, err)
	return id
}

func int64Ptr(v int64) *int64 { return &v }
