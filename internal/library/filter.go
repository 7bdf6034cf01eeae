// Package library tracks the wanted/owned media catalogue: movies, TV
// shows+episodes, artists+albums+tracks, and authors+books, plus the
// media files that back them.
package library

// MovieFilter specifies criteria for listing movies.
type MovieFilter struct {
	Requested *bool
	HasFile   *bool
	Title     *string
	Year      *int
	Limit     int // 0 = no limit
	Offset    int
}

// TvShowFilter specifies criteria for listing TV shows.
type TvShowFilter struct {
	Title  *string
	Limit  int
	Offset int
}

// EpisodeFilter specifies criteria for listing episodes.
type EpisodeFilter struct {
	TvShowID  *int64
	Season    *int
	Requested *bool
	HasFile   *bool
	Limit     int
	Offset    int
}

// ArtistFilter specifies criteria for listing artists.
type ArtistFilter struct {
	Name   *string
	Limit  int
	Offset int
}

// AlbumFilter specifies criteria for listing albums.
type AlbumFilter struct {
	ArtistID  *int64
	Requested *bool
	Limit     int
	Offset    int
}

// TrackFilter specifies criteria for listing tracks.
type TrackFilter struct {
	AlbumID *int64
	HasFile *bool
	Limit   int
	Offset  int
}

// AuthorFilter specifies criteria for listing authors.
type AuthorFilter struct {
	Name   *string
	Limit  int
	Offset int
}

// BookFilter specifies criteria for listing books.
type BookFilter struct {
	AuthorID  *int64
	Requested *bool
	HasFile   *bool
	Limit     int
	Offset    int
}

// MediaFileFilter specifies criteria for listing media files.
type MediaFileFilter struct {
	MovieID   *int64
	EpisodeID *int64
	TrackID   *int64
	BookID    *int64
	Limit     int
	Offset    int
}
