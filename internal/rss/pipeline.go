package rss

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/vmunix/arrgo/internal/blacklist"
	"github.com/vmunix/arrgo/internal/download"
	"github.com/vmunix/arrgo/internal/indexer"
	"github.com/vmunix/arrgo/internal/library"
	"github.com/vmunix/arrgo/pkg/release"
)

// LibraryStore is the subset of library.Store the pipeline needs to load
// the four wanted sets.
type LibraryStore interface {
	WantedMovies() ([]*library.Movie, error)
	WantedEpisodes(limit int) ([]*library.WantedEpisode, error)
	WantedAlbums() ([]*library.WantedAlbum, error)
	WantedBooks() ([]*library.WantedBook, error)
}

// BlacklistFilter is the subset of blacklist.Store the pipeline needs.
type BlacklistFilter interface {
	Filter(releases []blacklist.Release) ([]blacklist.Release, error)
}

// Grabber is the subset of download.Manager the pipeline needs.
type Grabber interface {
	Grab(ctx context.Context, req download.GrabRequest) (*download.Download, error)
}

// IndexerClient is the subset of indexer.Indexer the pipeline needs: an
// identity (for the Download rows its grabs produce, and logging) and a
// single RSS fetch spanning every kind's categories.
type IndexerClient interface {
	ID() int64
	Name() string
	RSSAll(ctx context.Context, limit int) ([]Release, error)
}

// SearchableIndexer extends IndexerClient with per-kind synchronous
// search, the shape the Requested-Items Search task needs instead of the
// RSS feed.
type SearchableIndexer interface {
	IndexerClient
	SearchMovie(ctx context.Context, query string, limit int) ([]Release, error)
	SearchEpisode(ctx context.Context, query string, limit int) ([]Release, error)
	SearchAlbum(ctx context.Context, query string, limit int) ([]Release, error)
	SearchBook(ctx context.Context, query string, limit int) ([]Release, error)
}

// Release is the shape IndexerClient.RSSAll returns, aliased so
// *indexer.Indexer satisfies IndexerClient/SearchableIndexer directly.
type Release = indexer.Release

// Config controls pacing/bounds the pipeline applies to every cycle.
type Config struct {
	// EpisodeLimit bounds how many wanted episodes are loaded per cycle
	// to cap match cost.
	EpisodeLimit int
	// ReleaseLimit bounds how many releases are requested per indexer
	// per RSS fetch.
	ReleaseLimit int
	// ClientID is the download client new grabs are enqueued against.
	ClientID int64
	// GrabPacing is the delay after each successful grab, so a burst of
	// matches doesn't overwhelm the download client.
	GrabPacing time.Duration
}

// DefaultConfig holds the pacing/bound values used when config leaves
// them unset.
var DefaultConfig = Config{
	EpisodeLimit: 50,
	ReleaseLimit: 100,
	GrabPacing:   2 * time.Second,
}

// Result accumulates what one sync cycle did.
type Result struct {
	IndexersChecked int
	ReleasesFound   int
	Grabbed         int
	Errors          []error
}

// Pipeline implements the RSS Sync Pipeline.
type Pipeline struct {
	indexers  []IndexerClient
	library   LibraryStore
	blacklist BlacklistFilter
	grabber   Grabber
	cfg       Config
	log       *slog.Logger
	running   atomic.Bool
}

// New creates a Pipeline over the given enabled RSS-capable indexers.
func New(indexers []IndexerClient, lib LibraryStore, bl BlacklistFilter, grabber Grabber, cfg Config, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	if cfg.ReleaseLimit <= 0 {
		cfg.ReleaseLimit = DefaultConfig.ReleaseLimit
	}
	if cfg.EpisodeLimit <= 0 {
		cfg.EpisodeLimit = DefaultConfig.EpisodeLimit
	}
	if cfg.GrabPacing <= 0 {
		cfg.GrabPacing = DefaultConfig.GrabPacing
	}
	return &Pipeline{
		indexers:  indexers,
		library:   lib,
		blacklist: bl,
		grabber:   grabber,
		cfg:       cfg,
		log:       log.With("component", "rss"),
	}
}

type wantedSet struct {
	movies   []*library.Movie
	episodes []*library.WantedEpisode
	albums   []*library.WantedAlbum
	books    []*library.WantedBook
}

func (w wantedSet) empty() bool {
	return len(w.movies) == 0 && len(w.episodes) == 0 && len(w.albums) == 0 && len(w.books) == 0
}

// Sync runs one cycle of the pipeline. It skips
// the cycle (ErrAlreadyRunning) rather than running concurrently with
// itself if the previous cycle is still in flight.
func (p *Pipeline) Sync(ctx context.Context) (Result, error) {
	if !p.running.CompareAndSwap(false, true) {
		return Result{}, ErrAlreadyRunning
	}
	defer p.running.Store(false)

	var result Result

	if len(p.indexers) == 0 {
		p.log.Debug("sync skipped: no indexers configured")
		return result, nil
	}

	wanted, err := p.loadWanted()
	if err != nil {
		return result, fmt.Errorf("load wanted sets: %w", err)
	}
	if wanted.empty() {
		p.log.Debug("sync skipped: nothing wanted")
		return result, nil
	}

	for _, ix := range p.indexers {
		result.IndexersChecked++

		releases, err := ix.RSSAll(ctx, p.cfg.ReleaseLimit)
		if err != nil {
			p.log.Warn("indexer rss fetch failed", "indexer", ix.Name(), "error", err)
			result.Errors = append(result.Errors, fmt.Errorf("%s: %w", ix.Name(), err))
			continue
		}
		result.ReleasesFound += len(releases)

		filtered, err := p.filterBlacklist(releases)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("%s: blacklist filter: %w", ix.Name(), err))
			continue
		}

		for _, rel := range filtered {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			default:
			}

			grabbed, grabErr := p.matchAndGrab(ctx, ix, rel, wanted)
			if grabErr != nil {
				result.Errors = append(result.Errors, fmt.Errorf("%s: %s: %w", ix.Name(), rel.Title, grabErr))
				continue
			}
			if grabbed {
				result.Grabbed++
				time.Sleep(p.cfg.GrabPacing)
			}
		}
	}

	p.log.Info("sync complete",
		"indexers_checked", result.IndexersChecked,
		"releases_found", result.ReleasesFound,
		"grabbed", result.Grabbed,
		"errors", len(result.Errors),
	)
	return result, nil
}

func (p *Pipeline) loadWanted() (wantedSet, error) {
	var w wantedSet
	var err error

	w.movies, err = p.library.WantedMovies()
	if err != nil {
		return w, fmt.Errorf("wanted movies: %w", err)
	}
	w.episodes, err = p.library.WantedEpisodes(p.cfg.EpisodeLimit)
	if err != nil {
		return w, fmt.Errorf("wanted episodes: %w", err)
	}
	w.albums, err = p.library.WantedAlbums()
	if err != nil {
		return w, fmt.Errorf("wanted albums: %w", err)
	}
	w.books, err = p.library.WantedBooks()
	if err != nil {
		return w, fmt.Errorf("wanted books: %w", err)
	}
	return w, nil
}

func (p *Pipeline) filterBlacklist(releases []Release) ([]Release, error) {
	return filterBlacklist(p.blacklist, releases)
}

// filterBlacklist is the free-function form shared by Pipeline.Sync and
// Searcher.Search.
func filterBlacklist(bl BlacklistFilter, releases []Release) ([]Release, error) {
	if bl == nil {
		return releases, nil
	}
	asBlacklist := make([]blacklist.Release, len(releases))
	for i, r := range releases {
		asBlacklist[i] = blacklist.Release{GUID: r.GUID, Title: r.Title}
	}
	kept, err := bl.Filter(asBlacklist)
	if err != nil {
		return nil, err
	}
	byGUID := make(map[string]struct{}, len(kept))
	for _, r := range kept {
		byGUID[r.GUID] = struct{}{}
	}
	filtered := make([]Release, 0, len(kept))
	for _, r := range releases {
		if _, ok := byGUID[r.GUID]; ok {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// matchAndGrab attempts, in the fixed order movies -> episodes -> albums
// -> books, to match rel against the wanted set, grabbing on the first
// hit.
func (p *Pipeline) matchAndGrab(ctx context.Context, ix IndexerClient, rel Release, wanted wantedSet) (bool, error) {
	return matchAndGrab(ctx, p.grabber, p.cfg, p.log, ix, rel, wanted)
}

// matchAndGrab is the free-function form shared by Pipeline.Sync and
// Searcher.Search.
func matchAndGrab(ctx context.Context, grabber Grabber, cfg Config, log *slog.Logger, ix IndexerClient, rel Release, wanted wantedSet) (bool, error) {
	for _, m := range wanted.movies {
		if matchMovie(rel.Title, m.Title, m.Year) {
			return grab(ctx, grabber, log, download.GrabRequest{
				MovieID:         &m.ID,
				ClientID:        cfg.ClientID,
				IndexerID:       indexerID(ix),
				IndexerName:     ix.Name(),
				Title:           rel.Title,
				NormalizedTitle: normalizedTitle(rel.Title),
				SizeBytes:       rel.Size,
				DownloadURL:     rel.DownloadURL,
				GUID:            rel.GUID,
			})
		}
	}
	for _, e := range wanted.episodes {
		if matchEpisode(rel.Title, e.ShowTitle, e.Season, e.Episode.Episode) {
			return grab(ctx, grabber, log, download.GrabRequest{
				TvShowID:        &e.TvShowID,
				EpisodeID:       &e.ID,
				ClientID:        cfg.ClientID,
				IndexerID:       indexerID(ix),
				IndexerName:     ix.Name(),
				Title:           rel.Title,
				NormalizedTitle: normalizedTitle(rel.Title),
				SizeBytes:       rel.Size,
				DownloadURL:     rel.DownloadURL,
				GUID:            rel.GUID,
			})
		}
	}
	for _, al := range wanted.albums {
		if matchAlbum(rel.Title, al.ArtistName, al.Title) {
			return grab(ctx, grabber, log, download.GrabRequest{
				AlbumID:         &al.ID,
				ClientID:        cfg.ClientID,
				IndexerID:       indexerID(ix),
				IndexerName:     ix.Name(),
				Title:           rel.Title,
				NormalizedTitle: normalizedTitle(rel.Title),
				SizeBytes:       rel.Size,
				DownloadURL:     rel.DownloadURL,
				GUID:            rel.GUID,
			})
		}
	}
	for _, b := range wanted.books {
		if matchBook(rel.Title, b.AuthorName, b.Title) {
			return grab(ctx, grabber, log, download.GrabRequest{
				BookID:          &b.ID,
				ClientID:        cfg.ClientID,
				IndexerID:       indexerID(ix),
				IndexerName:     ix.Name(),
				Title:           rel.Title,
				NormalizedTitle: normalizedTitle(rel.Title),
				SizeBytes:       rel.Size,
				DownloadURL:     rel.DownloadURL,
				GUID:            rel.GUID,
			})
		}
	}
	return false, nil
}

func grab(ctx context.Context, grabber Grabber, log *slog.Logger, req download.GrabRequest) (bool, error) {
	if _, err := grabber.Grab(ctx, req); err != nil {
		if isBenignGrabError(err) {
			log.Debug("grab skipped", "title", req.Title, "reason", err)
			return false, nil
		}
		return false, err
	}
	log.Info("grabbed release", "title", req.Title, "indexer", req.IndexerName)
	return true, nil
}

// indexerID returns ix's persisted row ID as a nullable FK value.
func indexerID(ix IndexerClient) *int64 {
	if id := ix.ID(); id > 0 {
		return &id
	}
	return nil
}

// isBenignGrabError reports whether err reflects an expected precondition
// failure (already blacklisted, already actively downloading) rather than
// an actual fault worth surfacing in Result.Errors.
func isBenignGrabError(err error) bool {
	return errors.Is(err, download.ErrBlacklisted) || errors.Is(err, download.ErrAlreadyActive)
}

func normalizedTitle(title string) string {
	return release.Normalize(title)
}
