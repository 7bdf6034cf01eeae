package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vmunix/arrgo/internal/httpgw"
	"github.com/vmunix/arrgo/pkg/newznab"
)

// Kind identifies which library entity a search is for, using the same
// literal names as library.MediaFileKind/the download FK columns (movie,
// episode, album, book) rather than Newznab's own mode vocabulary.
type Kind string

const (
	KindMovie   Kind = "movie"
	KindEpisode Kind = "episode"
	KindAlbum   Kind = "album"
	KindBook    Kind = "book"
)

// newznabMode maps a Kind onto the Newznab t= search mode it should use.
var newznabMode = map[Kind]string{
	KindMovie:   newznab.KindMovie,
	KindEpisode: newznab.KindTV,
	KindAlbum:   newznab.KindMusic,
	KindBook:    newznab.KindBook,
}

// DefaultCategories are the Newznab category IDs searched per kind absent
// any indexer-specific override, following the standard Newznab category
// ranges (2000 movies, 3000 audio, 5000 TV, 7000 books).
var DefaultCategories = map[Kind][]int{
	KindMovie:   {2000, 2010, 2020, 2030, 2040, 2045, 2050},
	KindEpisode: {5000, 5010, 5020, 5030, 5040, 5045, 5050, 5070},
	KindAlbum:   {3000, 3010, 3020, 3030, 3040},
	KindBook:    {7000, 7010, 7020, 7030},
}

// Release is a single search/RSS result entry.
type Release struct {
	Title       string
	GUID        string
	DownloadURL string
	Size        int64
	PublishDate time.Time
	Indexer     string
	Categories  []int
}

// Indexer wraps one configured Newznab client and resolves per-kind
// category sets, so internal/rss can search/RSS against it without knowing
// Newznab's wire details.
type Indexer struct {
	id         int64
	name       string
	client     *newznab.Client
	categories map[Kind][]int
}

// New creates an Indexer. categories overrides DefaultCategories per kind;
// a nil or partial map falls back to the default for any kind not present.
func New(name string, client *newznab.Client, categories map[Kind][]int) *Indexer {
	return &Indexer{name: name, client: client, categories: categories}
}

// Name returns the indexer's configured name.
func (ix *Indexer) Name() string { return ix.name }

// ID returns the indexer's persisted row ID, or 0 if SetID was never called.
func (ix *Indexer) ID() int64 { return ix.id }

// SetID records the indexer's persisted row ID, stamped onto the Download
// rows its releases produce.
func (ix *Indexer) SetID(id int64) { ix.id = id }

func (ix *Indexer) categoriesFor(kind Kind) []int {
	if cats, ok := ix.categories[kind]; ok && len(cats) > 0 {
		return cats
	}
	return DefaultCategories[kind]
}

// Search performs a synchronous search against this indexer for one kind.
func (ix *Indexer) Search(ctx context.Context, kind Kind, query string, limit int) ([]Release, error) {
	mode, ok := newznabMode[kind]
	if !ok {
		return nil, fmt.Errorf("indexer: unknown kind %q", kind)
	}
	releases, err := ix.client.SearchKind(ctx, mode, query, ix.categoriesFor(kind), limit, 0)
	if err != nil {
		return nil, ix.classify(err)
	}
	return toReleases(releases), nil
}

// RSS fetches this indexer's latest-releases feed for one kind (same
// contract as Search with an empty query).
func (ix *Indexer) RSS(ctx context.Context, kind Kind, limit int) ([]Release, error) {
	releases, err := ix.client.RSS(ctx, ix.categoriesFor(kind), limit)
	if err != nil {
		return nil, ix.classify(err)
	}
	return toReleases(releases), nil
}

var allKinds = []Kind{KindMovie, KindEpisode, KindAlbum, KindBook}

// RSSAll fetches this indexer's RSS feed once across the union of every
// kind's configured categories, rather than once per kind, so the sync
// pipeline issues one request per indexer per cycle instead of four.
func (ix *Indexer) RSSAll(ctx context.Context, limit int) ([]Release, error) {
	seen := make(map[int]struct{})
	var union []int
	for _, kind := range allKinds {
		for _, cat := range ix.categoriesFor(kind) {
			if _, ok := seen[cat]; !ok {
				seen[cat] = struct{}{}
				union = append(union, cat)
			}
		}
	}
	releases, err := ix.client.RSS(ctx, union, limit)
	if err != nil {
		return nil, ix.classify(err)
	}
	return toReleases(releases), nil
}

// classify turns an arbitrary newznab.Client error into an httpgw.HttpError/
// TransportError (passed through unchanged so callers can still errors.As
// into them) or a ProtocolError for anything else (XML decode failure, bad
// base URL). The caller is expected to tolerate partial, per-indexer
// failure either way.
func (ix *Indexer) classify(err error) error {
	var httpErr *httpgw.HttpError
	var transportErr *httpgw.TransportError
	if errors.As(err, &httpErr) || errors.As(err, &transportErr) {
		return err
	}
	return &ProtocolError{Indexer: ix.name, Err: err}
}

// SearchMovie, SearchEpisode, SearchAlbum, and SearchBook are thin
// per-kind wrappers over Search, the shape internal/scheduler's
// requested-items search task needs (a fixed-kind search interface it can
// depend on without importing indexer.Kind, mirroring how RSSAll wraps
// RSS/categoriesFor for the sync pipeline's decoupled IndexerClient).
func (ix *Indexer) SearchMovie(ctx context.Context, query string, limit int) ([]Release, error) {
	return ix.Search(ctx, KindMovie, query, limit)
}

func (ix *Indexer) SearchEpisode(ctx context.Context, query string, limit int) ([]Release, error) {
	return ix.Search(ctx, KindEpisode, query, limit)
}

func (ix *Indexer) SearchAlbum(ctx context.Context, query string, limit int) ([]Release, error) {
	return ix.Search(ctx, KindAlbum, query, limit)
}

func (ix *Indexer) SearchBook(ctx context.Context, query string, limit int) ([]Release, error) {
	return ix.Search(ctx, KindBook, query, limit)
}

func toReleases(in []newznab.Release) []Release {
	out := make([]Release, len(in))
	for i, r := range in {
		out[i] = Release{
			Title:       r.Title,
			GUID:        r.GUID,
			DownloadURL: r.DownloadURL,
			Size:        r.Size,
			PublishDate: r.PublishDate,
			Indexer:     r.Indexer,
			Categories:  r.Categories,
		}
	}
	return out
}
