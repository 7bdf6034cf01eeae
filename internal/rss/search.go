package rss

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/vmunix/arrgo/internal/library"
)

// SearchResult accumulates what one Requested-Items Search cycle did,
// structurally identical to Result but kept as its own type so a caller
// can't conflate the two tasks' outcomes in a TaskRunner's logging.
type SearchResult struct {
	ItemsSearched   int
	IndexersQueried int
	ReleasesFound   int
	Grabbed         int
	Errors          []error
}

// Searcher implements the Requested-Items Search task: rather than
// waiting for a release to show up in an indexer's RSS feed
// (Pipeline.Sync), it actively queries every indexer's search endpoint
// for each wanted item by name. Same wanted-set loading, blacklist
// filter, matching rules, and grab/pacing behavior as the pipeline,
// swapped onto indexer search instead of indexer RSS.
type Searcher struct {
	indexers  []SearchableIndexer
	library   LibraryStore
	blacklist BlacklistFilter
	grabber   Grabber
	cfg       Config
	log       *slog.Logger
	running   atomic.Bool
}

// NewSearcher creates a Searcher over the given indexers (any indexer that
// supports synchronous search, which — unlike RSS — every Newznab-
// compatible indexer does).
func NewSearcher(indexers []SearchableIndexer, lib LibraryStore, bl BlacklistFilter, grabber Grabber, cfg Config, log *slog.Logger) *Searcher {
	if log == nil {
		log = slog.Default()
	}
	if cfg.ReleaseLimit <= 0 {
		cfg.ReleaseLimit = DefaultConfig.ReleaseLimit
	}
	if cfg.GrabPacing <= 0 {
		cfg.GrabPacing = DefaultConfig.GrabPacing
	}
	return &Searcher{
		indexers:  indexers,
		library:   lib,
		blacklist: bl,
		grabber:   grabber,
		cfg:       cfg,
		log:       log.With("component", "requested_search"),
	}
}

// Run executes one search cycle. It skips (ErrAlreadyRunning) rather than
// running concurrently with itself if the previous cycle is still in
// flight, the same re-entrancy contract Pipeline.Sync offers.
func (s *Searcher) Run(ctx context.Context) error {
	_, err := s.Search(ctx)
	return err
}

// Search is the exported, result-returning form of Run, for callers (and
// tests) that want the SearchResult rather than just its error.
func (s *Searcher) Search(ctx context.Context) (SearchResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return SearchResult{}, ErrAlreadyRunning
	}
	defer s.running.Store(false)

	var result SearchResult

	if len(s.indexers) == 0 {
		s.log.Debug("search skipped: no indexers configured")
		return result, nil
	}

	wanted, err := s.loadWanted()
	if err != nil {
		return result, fmt.Errorf("load wanted sets: %w", err)
	}
	if wanted.empty() {
		s.log.Debug("search skipped: nothing wanted")
		return result, nil
	}

	for _, m := range wanted.movies {
		if s.searchAndGrab(ctx, &result, m.Title, wantedSet{movies: []*library.Movie{m}}) {
			return result, ctx.Err()
		}
	}
	for _, e := range wanted.episodes {
		query := fmt.Sprintf("%s %s", e.ShowTitle, seasonEpisodeToken(e.Season, e.Episode.Episode))
		if s.searchAndGrab(ctx, &result, query, wantedSet{episodes: []*library.WantedEpisode{e}}) {
			return result, ctx.Err()
		}
	}
	for _, al := range wanted.albums {
		query := fmt.Sprintf("%s %s", al.ArtistName, al.Title)
		if s.searchAndGrab(ctx, &result, query, wantedSet{albums: []*library.WantedAlbum{al}}) {
			return result, ctx.Err()
		}
	}
	for _, b := range wanted.books {
		query := fmt.Sprintf("%s %s", b.AuthorName, b.Title)
		if s.searchAndGrab(ctx, &result, query, wantedSet{books: []*library.WantedBook{b}}) {
			return result, ctx.Err()
		}
	}

	s.log.Info("requested search complete",
		"items_searched", result.ItemsSearched,
		"releases_found", result.ReleasesFound,
		"grabbed", result.Grabbed,
		"errors", len(result.Errors),
	)
	return result, nil
}

// searchAndGrab queries every indexer for one wanted item and attempts to
// match/grab each returned release against that single item. Returns true
// if ctx was cancelled mid-cycle, so the caller can stop early.
func (s *Searcher) searchAndGrab(ctx context.Context, result *SearchResult, query string, wanted wantedSet) bool {
	select {
	case <-ctx.Done():
		return true
	default:
	}
	result.ItemsSearched++

	for _, ix := range s.indexers {
		releases, err := s.searchKind(ctx, ix, wanted, query)
		if err != nil {
			s.log.Warn("indexer search failed", "indexer", ix.Name(), "query", query, "error", err)
			result.Errors = append(result.Errors, fmt.Errorf("%s: %s: %w", ix.Name(), query, err))
			continue
		}
		result.IndexersQueried++
		result.ReleasesFound += len(releases)

		filtered, err := s.filterBlacklist(releases)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("%s: blacklist filter: %w", ix.Name(), err))
			continue
		}

		for _, rel := range filtered {
			grabbed, grabErr := s.matchAndGrab(ctx, ix, rel, wanted)
			if grabErr != nil {
				result.Errors = append(result.Errors, fmt.Errorf("%s: %s: %w", ix.Name(), rel.Title, grabErr))
				continue
			}
			if grabbed {
				result.Grabbed++
				time.Sleep(s.cfg.GrabPacing)
				return false
			}
		}
	}
	return false
}

func (s *Searcher) searchKind(ctx context.Context, ix SearchableIndexer, wanted wantedSet, query string) ([]Release, error) {
	switch {
	case len(wanted.movies) > 0:
		return ix.SearchMovie(ctx, query, s.cfg.ReleaseLimit)
	case len(wanted.episodes) > 0:
		return ix.SearchEpisode(ctx, query, s.cfg.ReleaseLimit)
	case len(wanted.albums) > 0:
		return ix.SearchAlbum(ctx, query, s.cfg.ReleaseLimit)
	default:
		return ix.SearchBook(ctx, query, s.cfg.ReleaseLimit)
	}
}

func (s *Searcher) loadWanted() (wantedSet, error) {
	var w wantedSet
	var err error

	w.movies, err = s.library.WantedMovies()
	if err != nil {
		return w, fmt.Errorf("wanted movies: %w", err)
	}
	w.episodes, err = s.library.WantedEpisodes(s.cfg.EpisodeLimit)
	if err != nil {
		return w, fmt.Errorf("wanted episodes: %w", err)
	}
	w.albums, err = s.library.WantedAlbums()
	if err != nil {
		return w, fmt.Errorf("wanted albums: %w", err)
	}
	w.books, err = s.library.WantedBooks()
	if err != nil {
		return w, fmt.Errorf("wanted books: %w", err)
	}
	return w, nil
}

func (s *Searcher) filterBlacklist(releases []Release) ([]Release, error) {
	return filterBlacklist(s.blacklist, releases)
}

func (s *Searcher) matchAndGrab(ctx context.Context, ix SearchableIndexer, rel Release, wanted wantedSet) (bool, error) {
	return matchAndGrab(ctx, s.grabber, s.cfg, s.log, ix, rel, wanted)
}
