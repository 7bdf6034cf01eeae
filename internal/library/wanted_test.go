package library

import (
	"database/sql"
	"testing"
	"time"
)

// insertClientAndDownload satisfies the downloads table's client FK and
// parks a download row against one library entity column.
func insertClientAndDownload(t *testing.T, db *sql.DB, column string, entityID int64, status string) {
	t.Helper()
	if _, err := db.Exec(`INSERT OR IGNORE INTO download_clients (id, name, type, host) VALUES (1, 'test', 'sabnzbd', 'localhost')`); err != nil {
		t.Fatalf("insert client: %v", err)
	}
	query := `INSERT INTO downloads (client_id, ` + column + `, status, last_transition_at) VALUES (1, ?, ?, ?)`
	if _, err := db.Exec(query, entityID, status, time.Now()); err != nil {
		t.Fatalf("insert download: %v", err)
	}
}

func TestWantedMovies(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	wanted := &Movie{Title: "Wanted", Year: 2020, Requested: true}
	owned := &Movie{Title: "Owned", Year: 2021, Requested: true, HasFile: true}
	unrequested := &Movie{Title: "Ignored", Year: 2022}
	grabbing := &Movie{Title: "Grabbing", Year: 2023, Requested: true}
	failed := &Movie{Title: "Failed Grab", Year: 2024, Requested: true}
	for _, m := range []*Movie{wanted, owned, unrequested, grabbing, failed} {
		if err := store.AddMovie(m); err != nil {
			t.Fatalf("add movie: %v", err)
		}
	}
	insertClientAndDownload(t, db, "movie_id", grabbing.ID, "downloading")
	insertClientAndDownload(t, db, "movie_id", failed.ID, "failed")

	got, err := store.WantedMovies()
	if err != nil {
		t.Fatalf("wanted movies: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 wanted movies, got %d", len(got))
	}
	if got[0].Title != "Wanted" || got[1].Title != "Failed Grab" {
		t.Errorf("wrong wanted set: %q, %q", got[0].Title, got[1].Title)
	}
}

func TestWantedEpisodes_JoinsShowTitleAndLimits(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	show := &TvShow{Title: "Some Show"}
	if err := store.AddTvShow(show); err != nil {
		t.Fatalf("add show: %v", err)
	}
	for i := 1; i <= 3; i++ {
		ep := &Episode{TvShowID: show.ID, Season: 1, Episode: i, Requested: true}
		if err := store.AddEpisode(ep); err != nil {
			t.Fatalf("add episode: %v", err)
		}
	}

	got, err := store.WantedEpisodes(2)
	if err != nil {
		t.Fatalf("wanted episodes: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(got))
	}
	if got[0].ShowTitle != "Some Show" {
		t.Errorf("show title not joined: %q", got[0].ShowTitle)
	}

	all, err := store.WantedEpisodes(0)
	if err != nil {
		t.Fatalf("wanted episodes unbounded: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 without limit, got %d", len(all))
	}
}

func TestWantedAlbums_CompletenessDerivedFromTracks(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	artist := &Artist{Name: "Some Artist"}
	if err := store.AddArtist(artist); err != nil {
		t.Fatalf("add artist: %v", err)
	}

	partial := &Album{ArtistID: artist.ID, Title: "Partial", Requested: true}
	complete := &Album{ArtistID: artist.ID, Title: "Complete", Requested: true}
	for _, a := range []*Album{partial, complete} {
		if err := store.AddAlbum(a); err != nil {
			t.Fatalf("add album: %v", err)
		}
	}
	for _, tr := range []*Track{
		{AlbumID: partial.ID, Number: 1, Title: "One", HasFile: true},
		{AlbumID: partial.ID, Number: 2, Title: "Two"},
		{AlbumID: complete.ID, Number: 1, Title: "Only", HasFile: true},
	} {
		if err := store.AddTrack(tr); err != nil {
			t.Fatalf("add track: %v", err)
		}
	}

	got, err := store.WantedAlbums()
	if err != nil {
		t.Fatalf("wanted albums: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Partial" {
		t.Fatalf("expected only the partial album, got %+v", got)
	}
	if got[0].ArtistName != "Some Artist" {
		t.Errorf("artist name not joined: %q", got[0].ArtistName)
	}

	hasFile, err := store.AlbumHasFile(complete.ID)
	if err != nil {
		t.Fatalf("album has file: %v", err)
	}
	if !hasFile {
		t.Error("complete album should derive has_file = true")
	}
}

func TestWantedBooks_ExcludesActiveDownload(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	author := &Author{Name: "Some Author"}
	if err := store.AddAuthor(author); err != nil {
		t.Fatalf("add author: %v", err)
	}
	wanted := &Book{AuthorID: author.ID, Title: "Wanted Book", Requested: true}
	active := &Book{AuthorID: author.ID, Title: "In Flight", Requested: true}
	for _, b := range []*Book{wanted, active} {
		if err := store.AddBook(b); err != nil {
			t.Fatalf("add book: %v", err)
		}
	}
	insertClientAndDownload(t, db, "book_id", active.ID, "queued")

	got, err := store.WantedBooks()
	if err != nil {
		t.Fatalf("wanted books: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Wanted Book" {
		t.Fatalf("expected only the idle book, got %+v", got)
	}
	if got[0].AuthorName != "Some Author" {
		t.Errorf("author name not joined: %q", got[0].AuthorName)
	}
}
