// internal/download/testutil_test.go
package download

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
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(testSchema)
	require.NoError(t, err)
	return db
}

// insertTestClient inserts a download_clients row and returns its ID.
// Needed because downloads reference a client via foreign key.
func insertTestClient(t *testing.T, db *sql.DB, name string) int64 {
	t.Helper()
	result, err := db.Exec(`INSERT INTO download_clients (name, type, host, port) VALUES (?, 'sabnzbd', 'localhost', 8080)`, name)
	require.NoError(t, err)
	id, err := result.LastInsertId()
	require.NoError(t, err)
	return id
}

// insertTestMovie inserts a movies row and returns its ID.
func insertTestMovie(t *testing.T, db *sql.DB, title string) int64 {
	t.Helper()
	result, err := db.Exec(`
		INSERT INTO movies (title, year, requested, has_file, added_at, updated_at)
		VALUES (?, 2000, 1, 0, ?, ?)`,
		title, time.Now(), time.Now(),
	)
	require.NoError(t, err)
	id, err := result.LastInsertId()
	require.NoError(t, err)
	return id
}
