package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/vmunix/arrgo/internal/download"
	"github.com/vmunix/arrgo/internal/library"
)

// LibraryStore is the subset of library.Store the scanner needs to build
// the candidate pool fuzzy-matching runs against.
type LibraryStore interface {
	WantedMovies() ([]*library.Movie, error)
	WantedEpisodes(limit int) ([]*library.WantedEpisode, error)
	WantedAlbums() ([]*library.WantedAlbum, error)
	WantedBooks() ([]*library.WantedBook, error)
}

// DownloadStore is the subset of download.Store the scanner needs.
type DownloadStore interface {
	GetByExternalID(clientID int64, externalID string) (*download.Download, error)
	Add(d *download.Download) error
	Update(d *download.Download) error
	Transition(ctx context.Context, d *download.Download, to download.Status) error
	ListStuck(thresholds map[download.Status]time.Duration) ([]*download.Download, error)
}

// ImportRetrier is the subset of download.Manager the scanner needs: a way
// to (re)run the Importer for a Download already sitting in StatusImporting.
type ImportRetrier interface {
	RetryStuckImports(ctx context.Context, d *download.Download)
}

// DefaultHistoryLimit is the per-client history page size. Jobs that
// complete between ticks during a backlog deeper than this are picked up
// once the client naturally bumps them into the window.
const DefaultHistoryLimit = 50

// DefaultStuckImportThreshold is how long a download may sit in
// StatusImporting before the scanner re-invokes the Importer for it
// as stuck.
const DefaultStuckImportThreshold = 5 * time.Minute

// Config controls the scanner's bounds and thresholds.
type Config struct {
	HistoryLimit         int
	StuckImportThreshold time.Duration
}

// DefaultConfig holds the bounds used when config leaves them unset.
var DefaultConfig = Config{
	HistoryLimit:         DefaultHistoryLimit,
	StuckImportThreshold: DefaultStuckImportThreshold,
}

// Result accumulates what one scan cycle did.
type Result struct {
	ClientsScanned int
	StuckRetried   int
	Imported       int
	Unmatched      int
	Errors         []error
}

// Scanner implements the Completed-Downloads Scanner: it recovers imports
// stuck mid-flight, and folds completed history entries the Manager never
// saw a Download row for back into the library by fuzzy-matching their
// folder name.
type Scanner struct {
	clients map[int64]download.Downloader
	store   DownloadStore
	library LibraryStore
	retrier ImportRetrier
	cfg     Config
	log     *slog.Logger
	running atomic.Bool
}

// New creates a Scanner over a set of download clients keyed by their
// DownloadClient row ID, mirroring download.NewManager's client map.
func New(clients map[int64]download.Downloader, store DownloadStore, lib LibraryStore, retrier ImportRetrier, cfg Config, log *slog.Logger) *Scanner {
	if log == nil {
		log = slog.Default()
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultConfig.HistoryLimit
	}
	if cfg.StuckImportThreshold <= 0 {
		cfg.StuckImportThreshold = DefaultConfig.StuckImportThreshold
	}
	return &Scanner{
		clients: clients,
		store:   store,
		library: lib,
		retrier: retrier,
		cfg:     cfg,
		log:     log.With("component", "scanner"),
	}
}

// Scan runs one reconciliation cycle. At most one runs at a time per
// process; a concurrent call returns ErrAlreadyRunning rather than blocking.
func (s *Scanner) Scan(ctx context.Context) (Result, error) {
	if !s.running.CompareAndSwap(false, true) {
		return Result{}, ErrAlreadyRunning
	}
	defer s.running.Store(false)

	var result Result

	stuck, err := s.store.ListStuck(map[download.Status]time.Duration{
		download.StatusImporting: s.cfg.StuckImportThreshold,
	})
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("list stuck imports: %w", err))
	}
	for _, d := range stuck {
		s.log.Info("retrying stuck import", "download_id", d.ID, "title", d.Title)
		s.retrier.RetryStuckImports(ctx, d)
		result.StuckRetried++
	}

	if len(s.clients) == 0 {
		return result, nil
	}

	wanted, err := s.loadWanted()
	if err != nil {
		return result, fmt.Errorf("load wanted sets: %w", err)
	}

	for clientID, client := range s.clients {
		result.ClientsScanned++

		history, err := client.GetHistory(ctx, s.cfg.HistoryLimit)
		if err != nil {
			s.log.Warn("scanner history fetch failed", "client_id", clientID, "error", err)
			result.Errors = append(result.Errors, fmt.Errorf("client %d: %w", clientID, err))
			continue
		}

		for _, h := range history {
			if h.Status != download.StatusCompleted {
				continue
			}

			select {
			case <-ctx.Done():
				return result, ctx.Err()
			default:
			}

			if err := s.reconcileOrphan(ctx, clientID, h, wanted, &result); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("client %d: %s: %w", clientID, h.ExternalID, err))
			}
		}
	}

	s.log.Info("scan complete",
		"clients_scanned", result.ClientsScanned,
		"stuck_retried", result.StuckRetried,
		"imported", result.Imported,
		"unmatched", result.Unmatched,
		"errors", len(result.Errors),
	)
	return result, nil
}

// reconcileOrphan handles one completed history entry: a
// Download row may already exist for it, in which case it is reconciled
// in place per the three sub-cases below; or none does, in which case its
// folder name is fuzzy-matched against the library and, on a hit, a
// Download row is synthesized and immediately handed to the Importer.
func (s *Scanner) reconcileOrphan(ctx context.Context, clientID int64, h download.HistoryItem, wanted wantedSet, result *Result) error {
	existing, err := s.store.GetByExternalID(clientID, h.ExternalID)
	if err == nil {
		return s.reconcileExisting(ctx, existing, h, result)
	}
	if !errors.Is(err, download.ErrNotFound) {
		return fmt.Errorf("lookup existing download: %w", err)
	}

	m := matchOrphan(h.Title, wanted)
	if m == nil {
		result.Unmatched++
		s.log.Debug("no library match for completed download", "client_id", clientID, "title", h.Title)
		return nil
	}

	d := &download.Download{
		ExternalID: h.ExternalID,
		ClientID:   clientID,
		MovieID:    m.MovieID,
		TvShowID:   m.TvShowID,
		EpisodeID:  m.EpisodeID,
		AlbumID:    m.AlbumID,
		BookID:     m.BookID,
		Title:      h.Title,
		OutputPath: h.OutputPath,
		Status:     download.StatusCompleted,
	}
	if err := s.store.Add(d); err != nil {
		return fmt.Errorf("save synthesized download: %w", err)
	}
	if err := s.store.Transition(ctx, d, download.StatusImporting); err != nil {
		return fmt.Errorf("transition synthesized download to importing: %w", err)
	}

	s.log.Info("matched orphaned completed download", "download_id", d.ID, "title", h.Title)
	s.retrier.RetryStuckImports(ctx, d)
	result.Imported++
	return nil
}

// reconcileExisting reconciles a completed history slot whose Download
// row already exists: terminal rows are left
// alone; a row already in StatusImporting is left to the stuck-import
// sweep at the top of Scan (it re-invokes the Importer once
// StuckImportThreshold has passed); anything else is advanced through
// Completed into Importing and handed to the Importer now.
func (s *Scanner) reconcileExisting(ctx context.Context, d *download.Download, h download.HistoryItem, result *Result) error {
	if d.Status.IsTerminal() || d.Status == download.StatusImporting {
		return nil
	}

	d.OutputPath = h.OutputPath
	if err := s.store.Update(d); err != nil {
		return fmt.Errorf("update output path: %w", err)
	}
	// validTransitions only allows Completed->Importing; pass through
	// Completed first unless already there.
	if d.Status != download.StatusCompleted {
		if err := s.store.Transition(ctx, d, download.StatusCompleted); err != nil {
			return fmt.Errorf("transition to completed: %w", err)
		}
	}
	if err := s.store.Transition(ctx, d, download.StatusImporting); err != nil {
		return fmt.Errorf("transition to importing: %w", err)
	}

	s.log.Info("reconciling completed download", "download_id", d.ID, "title", d.Title)
	s.retrier.RetryStuckImports(ctx, d)
	result.Imported++
	return nil
}

func (s *Scanner) loadWanted() (wantedSet, error) {
	var w wantedSet
	var err error

	w.movies, err = s.library.WantedMovies()
	if err != nil {
		return w, fmt.Errorf("wanted movies: %w", err)
	}
	w.episodes, err = s.library.WantedEpisodes(0)
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
