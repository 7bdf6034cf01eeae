// internal/importer/importer_test.go
package importer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/arrgo/internal/download"
	"github.com/vmunix/arrgo/internal/events"
	"github.com/vmunix/arrgo/internal/library"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))
}

func TestImport_Movie(t *testing.T) {
	db := setupTestDB(t)
	clientID := insertTestClient(t, db)
	root := t.TempDir()
	movieID := insertTestMovie(t, db, "The Matrix", 1999, root)

	outputDir := t.TempDir()
	writeFile(t, filepath.Join(outputDir, "The.Matrix.1999.1080p.mkv"), 1000)

	dlID := insertTestDownload(t, db, clientID, "The.Matrix.1999.1080p", outputDir, int64Ptr(movieID), nil, nil, nil)

	imp := New(db, Config{}, events.NewBus(nil, slog.Default()), slog.Default())
	d := &download.Download{ID: dlID, MovieID: int64Ptr(movieID), Title: "The.Matrix.1999.1080p", OutputPath: outputDir}

	err := imp.Import(context.Background(), d)
	require.NoError(t, err)

	lib := library.NewStore(db)
	movie, err := lib.GetMovie(movieID)
	require.NoError(t, err)
	assert.True(t, movie.HasFile)

	files, err := lib.ListMediaFiles(library.MediaFileFilter{MovieID: &movieID})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "1080p", files[0].Quality)

	_, err = os.Stat(files[0].Path)
	assert.NoError(t, err, "imported file should exist at dest path")
}

func TestImport_Movie_NoVideoFile(t *testing.T) {
	db := setupTestDB(t)
	clientID := insertTestClient(t, db)
	root := t.TempDir()
	movieID := insertTestMovie(t, db, "Empty", 2020, root)

	outputDir := t.TempDir()
	writeFile(t, filepath.Join(outputDir, "readme.nfo"), 10)

	dlID := insertTestDownload(t, db, clientID, "Empty.2020", outputDir, int64Ptr(movieID), nil, nil, nil)

	imp := New(db, Config{}, nil, slog.Default())
	d := &download.Download{ID: dlID, MovieID: int64Ptr(movieID), Title: "Empty.2020", OutputPath: outputDir}

	err := imp.Import(context.Background(), d)
	assert.ErrorIs(t, err, ErrNoVideoFile)
}

func TestImport_Episode(t *testing.T) {
	db := setupTestDB(t)
	clientID := insertTestClient(t, db)
	root := t.TempDir()
	showID := insertTestTvShow(t, db, "Breaking Bad", root)
	episodeID := insertTestEpisode(t, db, showID, 1, 5, "Gray Matter")

	outputDir := t.TempDir()
	writeFile(t, filepath.Join(outputDir, "Breaking.Bad.S01E05.720p.mkv"), 500)

	dlID := insertTestDownload(t, db, clientID, "Breaking.Bad.S01E05.720p", outputDir, nil, int64Ptr(episodeID), nil, nil)

	imp := New(db, Config{}, events.NewBus(nil, slog.Default()), slog.Default())
	d := &download.Download{ID: dlID, EpisodeID: int64Ptr(episodeID), Title: "Breaking.Bad.S01E05.720p", OutputPath: outputDir}

	err := imp.Import(context.Background(), d)
	require.NoError(t, err)

	lib := library.NewStore(db)
	ep, err := lib.GetEpisode(episodeID)
	require.NoError(t, err)
	assert.True(t, ep.HasFile)
}

func TestImport_Episode_MultipleVideos_PrefersReleaseMatch(t *testing.T) {
	db := setupTestDB(t)
	clientID := insertTestClient(t, db)
	root := t.TempDir()
	showID := insertTestTvShow(t, db, "Show", root)
	episodeID := insertTestEpisode(t, db, showID, 1, 2, "Ep2")

	outputDir := t.TempDir()
	writeFile(t, filepath.Join(outputDir, "Show.S01E02.1080p.mkv"), 100)
	writeFile(t, filepath.Join(outputDir, "Show.S01E02.extra.mkv"), 9999) // decoy: bigger file

	dlID := insertTestDownload(t, db, clientID, "Show.S01E02", outputDir, nil, int64Ptr(episodeID), nil, nil)

	imp := New(db, Config{}, nil, slog.Default())
	d := &download.Download{ID: dlID, EpisodeID: int64Ptr(episodeID), Title: "Show.S01E02", OutputPath: outputDir}

	err := imp.Import(context.Background(), d)
	require.NoError(t, err)

	lib := library.NewStore(db)
	files, err := lib.ListMediaFiles(library.MediaFileFilter{EpisodeID: &episodeID})
	require.NoError(t, err)
	require.Len(t, files, 1)
}

func TestImport_Album(t *testing.T) {
	db := setupTestDB(t)
	clientID := insertTestClient(t, db)
	root := t.TempDir()
	artistID := insertTestArtist(t, db, "Boards of Canada", root)
	albumID := insertTestAlbum(t, db, artistID, "Geogaddi", 2002, root)
	track1 := insertTestTrack(t, db, albumID, 1, "Ready Lets Go")
	track2 := insertTestTrack(t, db, albumID, 2, "Energy Warning")

	outputDir := t.TempDir()
	writeFile(t, filepath.Join(outputDir, "01 - Ready Lets Go.flac"), 100)
	writeFile(t, filepath.Join(outputDir, "02 - Energy Warning.flac"), 200)
	writeFile(t, filepath.Join(outputDir, "cover.jpg"), 10) // not a track

	dlID := insertTestDownload(t, db, clientID, "Boards.of.Canada.Geogaddi", outputDir, nil, nil, int64Ptr(albumID), nil)

	imp := New(db, Config{}, events.NewBus(nil, slog.Default()), slog.Default())
	d := &download.Download{ID: dlID, AlbumID: int64Ptr(albumID), Title: "Boards.of.Canada.Geogaddi", OutputPath: outputDir}

	err := imp.Import(context.Background(), d)
	require.NoError(t, err)

	lib := library.NewStore(db)
	t1, err := lib.GetTrack(track1)
	require.NoError(t, err)
	assert.True(t, t1.HasFile)
	t2, err := lib.GetTrack(track2)
	require.NoError(t, err)
	assert.True(t, t2.HasFile)

	hasFile, err := lib.AlbumHasFile(albumID)
	require.NoError(t, err)
	assert.True(t, hasFile)
}

func TestImport_Album_PartialFailureTolerated(t *testing.T) {
	db := setupTestDB(t)
	clientID := insertTestClient(t, db)
	root := t.TempDir()
	artistID := insertTestArtist(t, db, "Artist", root)
	albumID := insertTestAlbum(t, db, artistID, "Album", 2020, root)
	track1 := insertTestTrack(t, db, albumID, 1, "Track One")
	insertTestTrack(t, db, albumID, 2, "Track Two") // no matching file on disk

	outputDir := t.TempDir()
	writeFile(t, filepath.Join(outputDir, "01 - Track One.flac"), 100)

	dlID := insertTestDownload(t, db, clientID, "Artist.Album", outputDir, nil, nil, int64Ptr(albumID), nil)

	imp := New(db, Config{}, nil, slog.Default())
	d := &download.Download{ID: dlID, AlbumID: int64Ptr(albumID), Title: "Artist.Album", OutputPath: outputDir}

	err := imp.Import(context.Background(), d)
	require.NoError(t, err, "one matched track importing should succeed even though track 2 has no file")

	lib := library.NewStore(db)
	t1, err := lib.GetTrack(track1)
	require.NoError(t, err)
	assert.True(t, t1.HasFile)

	hasFile, err := lib.AlbumHasFile(albumID)
	require.NoError(t, err)
	assert.False(t, hasFile, "album should not be complete while track 2 lacks a file")
}

func TestImport_Album_NoAudioFiles(t *testing.T) {
	db := setupTestDB(t)
	clientID := insertTestClient(t, db)
	root := t.TempDir()
	artistID := insertTestArtist(t, db, "Artist", root)
	albumID := insertTestAlbum(t, db, artistID, "Album", 2020, root)
	insertTestTrack(t, db, albumID, 1, "Track One")

	outputDir := t.TempDir()
	writeFile(t, filepath.Join(outputDir, "cover.jpg"), 10)

	dlID := insertTestDownload(t, db, clientID, "Artist.Album", outputDir, nil, nil, int64Ptr(albumID), nil)

	imp := New(db, Config{}, nil, slog.Default())
	d := &download.Download{ID: dlID, AlbumID: int64Ptr(albumID), Title: "Artist.Album", OutputPath: outputDir}

	err := imp.Import(context.Background(), d)
	assert.ErrorIs(t, err, ErrNoMediaFile)
}

func TestImport_Book(t *testing.T) {
	db := setupTestDB(t)
	clientID := insertTestClient(t, db)
	root := t.TempDir()
	authorID := insertTestAuthor(t, db, "Frank Herbert", root)
	bookID := insertTestBook(t, db, authorID, "Dune", root)

	outputDir := t.TempDir()
	writeFile(t, filepath.Join(outputDir, "dune.epub"), 300)

	dlID := insertTestDownload(t, db, clientID, "Frank.Herbert.Dune", outputDir, nil, nil, nil, int64Ptr(bookID))

	imp := New(db, Config{}, events.NewBus(nil, slog.Default()), slog.Default())
	d := &download.Download{ID: dlID, BookID: int64Ptr(bookID), Title: "Frank.Herbert.Dune", OutputPath: outputDir}

	err := imp.Import(context.Background(), d)
	require.NoError(t, err)

	lib := library.NewStore(db)
	book, err := lib.GetBook(bookID)
	require.NoError(t, err)
	assert.True(t, book.HasFile)
}

func TestImport_UnsupportedKind(t *testing.T) {
	db := setupTestDB(t)
	imp := New(db, Config{}, nil, slog.Default())
	d := &download.Download{ID: 1, OutputPath: t.TempDir()}

	err := imp.Import(context.Background(), d)
	assert.ErrorIs(t, err, ErrUnsupportedKind)
}

func TestImport_PathInaccessible(t *testing.T) {
	db := setupTestDB(t)
	imp := New(db, Config{}, nil, slog.Default())
	d := &download.Download{ID: 1, MovieID: int64Ptr(1), OutputPath: filepath.Join(t.TempDir(), "does-not-exist")}

	err := imp.Import(context.Background(), d)
	assert.ErrorIs(t, err, ErrPathInaccessible)
}

func TestCheckPathAccessible_Timeout(t *testing.T) {
	err := checkPathAccessible(context.Background(), "/definitely/not/a/real/path/so/this/stats/fast", 1)
	assert.ErrorIs(t, err, ErrPathInaccessible)
}

func TestImport_CleanupSource(t *testing.T) {
	db := setupTestDB(t)
	clientID := insertTestClient(t, db)
	root := t.TempDir()
	movieID := insertTestMovie(t, db, "Cleanup Movie", 2021, root)

	outputDir := t.TempDir()
	writeFile(t, filepath.Join(outputDir, "movie.mkv"), 42)

	dlID := insertTestDownload(t, db, clientID, "Cleanup.Movie.2021", outputDir, int64Ptr(movieID), nil, nil, nil)

	imp := New(db, Config{CleanupSource: true}, events.NewBus(nil, slog.Default()), slog.Default())
	d := &download.Download{ID: dlID, MovieID: int64Ptr(movieID), Title: "Cleanup.Movie.2021", OutputPath: outputDir}

	err := imp.Import(context.Background(), d)
	require.NoError(t, err)

	_, statErr := os.Stat(outputDir)
	assert.True(t, os.IsNotExist(statErr), "source directory should be removed after import")
}
