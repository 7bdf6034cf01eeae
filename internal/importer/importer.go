// Package importer moves a completed download's files into the library,
// renaming them according to configured templates and flipping the owning
// entity's hasFile (or, for albums, leaving it derived from track
// completeness).
package importer

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vmunix/arrgo/internal/download"
	"github.com/vmunix/arrgo/internal/events"
	"github.com/vmunix/arrgo/internal/library"
)

// defaultPathTimeout bounds how long Import waits to confirm the
// download's output path is reachable before giving up. A download whose
// target volume went away must fail, not hang or silently retry.
const defaultPathTimeout = 3 * time.Second

// Config configures a new Importer.
type Config struct {
	MovieTemplate  string
	SeriesTemplate string
	AlbumTemplate  string
	BookTemplate   string

	// CleanupSource removes a download's output directory after a
	// successful import. Defaults to false (leave it for the download
	// client to manage) to match the zero value being the safe one.
	CleanupSource bool

	// PathTimeout overrides defaultPathTimeout; mostly for tests.
	PathTimeout time.Duration
}

// Importer processes completed downloads, dispatching on whichever of the
// four library foreign keys a Download carries. It satisfies
// download.Importer.
type Importer struct {
	library       *library.Store
	renamer       *Renamer
	bus           *events.Bus // nil disables event publishing
	cleanupSource bool
	pathTimeout   time.Duration
	log           *slog.Logger
}

// New creates an Importer. bus may be nil (events go unpublished).
func New(db *sql.DB, cfg Config, bus *events.Bus, log *slog.Logger) *Importer {
	timeout := cfg.PathTimeout
	if timeout <= 0 {
		timeout = defaultPathTimeout
	}
	return &Importer{
		library:       library.NewStore(db),
		renamer:       NewRenamer(cfg.MovieTemplate, cfg.SeriesTemplate, cfg.AlbumTemplate, cfg.BookTemplate),
		bus:           bus,
		cleanupSource: cfg.CleanupSource,
		pathTimeout:   timeout,
		log:           log,
	}
}

// Import processes a completed download: it is the sole entry point
// required by download.Importer. The caller (download.Manager) transitions
// the Download's status based on the returned error; Import itself never
// touches d.Status.
func (i *Importer) Import(ctx context.Context, d *download.Download) error {
	i.log.Info("import started", "download_id", d.ID, "path", d.OutputPath)
	i.publishStarted(ctx, d)

	if err := checkPathAccessible(ctx, d.OutputPath, i.pathTimeout); err != nil {
		i.fail(ctx, d, err)
		return err
	}

	var err error
	switch {
	case d.MovieID != nil:
		err = i.importMovie(ctx, d)
	case d.EpisodeID != nil:
		err = i.importEpisode(ctx, d)
	case d.AlbumID != nil:
		err = i.importAlbum(ctx, d)
	case d.BookID != nil:
		err = i.importBook(ctx, d)
	default:
		err = fmt.Errorf("%w: download %d", ErrUnsupportedKind, d.ID)
	}
	if err != nil {
		i.fail(ctx, d, err)
		return err
	}

	i.cleanup(ctx, d)
	i.log.Info("import complete", "download_id", d.ID)
	return nil
}

// checkPathAccessible stats path in a goroutine so a wedged network mount
// can't block Import past timeout.
func checkPathAccessible(ctx context.Context, path string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := os.Stat(path)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPathInaccessible, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrPathInaccessible, ctx.Err())
	}
}

// rootFor resolves an import's destination root: the entity's own
// root_path when set, else the media type's registered root folder.
func (i *Importer) rootFor(entityRoot, mediaType string) (string, error) {
	if entityRoot != "" {
		return entityRoot, nil
	}
	root, err := i.library.GetRootFolder(mediaType)
	if err != nil {
		return "", fmt.Errorf("no root folder for %s: %w", mediaType, err)
	}
	return root, nil
}

func (i *Importer) importMovie(ctx context.Context, d *download.Download) error {
	movie, err := i.library.GetMovie(*d.MovieID)
	if err != nil {
		return fmt.Errorf("get movie: %w", err)
	}

	src, _, err := FindLargestVideo(d.OutputPath)
	if err != nil {
		return err
	}

	quality := extractQuality(d.Title)
	ext := strings.TrimPrefix(filepath.Ext(src), ".")
	relPath := i.renamer.MoviePath(movie.Title, movie.Year, quality, ext)
	root, err := i.rootFor(movie.RootPath, "movie")
	if err != nil {
		return err
	}
	destPath := filepath.Join(root, relPath)
	if err := ValidatePath(destPath, root); err != nil {
		return err
	}

	size, err := CopyFile(src, destPath)
	if err != nil {
		return err
	}

	tx, err := i.library.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.AddMediaFile(&library.MediaFile{
		Kind: library.MediaFileMovie, MovieID: &movie.ID, Path: destPath, SizeBytes: size, Quality: quality,
	}); err != nil {
		return fmt.Errorf("add media file: %w", err)
	}
	movie.HasFile = true
	if err := tx.UpdateMovie(movie); err != nil {
		return fmt.Errorf("update movie: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	i.publishImported(ctx, d, events.Target{MovieID: &movie.ID}, destPath, 1, size)
	i.publishFilled(ctx, events.EntityMovie, movie.ID, "movie", movie.Title)
	return nil
}

func (i *Importer) importEpisode(ctx context.Context, d *download.Download) error {
	episode, err := i.library.GetEpisode(*d.EpisodeID)
	if err != nil {
		return fmt.Errorf("get episode: %w", err)
	}
	show, err := i.library.GetTvShow(episode.TvShowID)
	if err != nil {
		return fmt.Errorf("get tv show: %w", err)
	}

	videos, err := FindAllVideos(d.OutputPath)
	if err != nil {
		return err
	}
	if len(videos) == 0 {
		return ErrNoVideoFile
	}

	src := videos[0]
	if len(videos) > 1 {
		// Multiple candidates usually means an extra/sample slipped past
		// the sample-name filter; prefer the one release-naming actually
		// identifies as this episode, falling back to the largest file.
		if matches, _ := MatchFilesToEpisodes(videos, []*library.Episode{episode}); len(matches) > 0 {
			src = matches[0].FilePath
		} else if largest, _, err := largestOf(videos); err == nil {
			src = largest
		}
	}

	quality := extractQuality(d.Title)
	ext := strings.TrimPrefix(filepath.Ext(src), ".")
	relPath := i.renamer.EpisodePath(show.Title, episode.Season, episode.Episode, quality, ext)
	root, err := i.rootFor(show.RootPath, "tv")
	if err != nil {
		return err
	}
	destPath := filepath.Join(root, relPath)
	if err := ValidatePath(destPath, root); err != nil {
		return err
	}

	size, err := CopyFile(src, destPath)
	if err != nil {
		return err
	}

	tx, err := i.library.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.AddMediaFile(&library.MediaFile{
		Kind: library.MediaFileEpisode, EpisodeID: &episode.ID, Path: destPath, SizeBytes: size, Quality: quality,
	}); err != nil {
		return fmt.Errorf("add media file: %w", err)
	}
	episode.HasFile = true
	if err := tx.UpdateEpisode(episode); err != nil {
		return fmt.Errorf("update episode: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	i.publishImported(ctx, d, events.Target{EpisodeID: &episode.ID}, destPath, 1, size)
	i.publishFilled(ctx, events.EntityEpisode, episode.ID, "episode",
		fmt.Sprintf("%s S%02dE%02d", show.Title, episode.Season, episode.Episode))
	return nil
}

// importAlbum handles the one case where a single Download legitimately
// covers many library rows: one NZB containing one file per Track.
func (i *Importer) importAlbum(ctx context.Context, d *download.Download) error {
	album, err := i.library.GetAlbum(*d.AlbumID)
	if err != nil {
		return fmt.Errorf("get album: %w", err)
	}
	artist, err := i.library.GetArtist(album.ArtistID)
	if err != nil {
		return fmt.Errorf("get artist: %w", err)
	}
	tracks, err := i.library.ListTracks(library.TrackFilter{AlbumID: &album.ID})
	if err != nil {
		return fmt.Errorf("list tracks: %w", err)
	}

	files, err := FindAllAudio(d.OutputPath)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return ErrNoMediaFile
	}

	matches, unmatched := MatchFilesToTracks(files, tracks)
	if len(unmatched) > 0 {
		i.log.Warn("album import: unmatched files", "download_id", d.ID, "album_id", album.ID, "count", len(unmatched))
	}
	if len(matches) == 0 {
		return fmt.Errorf("%w: no track filenames matched for album %d", ErrNoMediaFile, album.ID)
	}

	quality := extractQuality(d.Title)
	root, err := i.rootFor(album.RootPath, "music")
	if err != nil {
		return err
	}

	tx, err := i.library.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var totalSize int64
	var imported int
	var copyErrs []string
	for _, m := range matches {
		ext := strings.TrimPrefix(filepath.Ext(m.FilePath), ".")
		relPath := i.renamer.AlbumPath(artist.Name, album.Title, album.Year, m.Track.Number, m.Track.Title, ext)
		destPath := filepath.Join(root, relPath)
		if err := ValidatePath(destPath, root); err != nil {
			copyErrs = append(copyErrs, fmt.Sprintf("track %d: %v", m.Track.Number, err))
			continue
		}

		size, err := CopyFile(m.FilePath, destPath)
		if err != nil {
			copyErrs = append(copyErrs, fmt.Sprintf("track %d: %v", m.Track.Number, err))
			continue
		}

		if err := tx.AddMediaFile(&library.MediaFile{
			Kind: library.MediaFileTrack, TrackID: &m.Track.ID, Path: destPath, SizeBytes: size, Quality: quality,
		}); err != nil {
			return fmt.Errorf("add media file for track %d: %w", m.Track.Number, err)
		}
		m.Track.HasFile = true
		if err := tx.UpdateTrack(m.Track); err != nil {
			return fmt.Errorf("update track %d: %w", m.Track.Number, err)
		}
		totalSize += size
		imported++
	}
	if imported == 0 {
		return fmt.Errorf("%w: all %d track copies failed: %s", ErrCopyFailed, len(matches), strings.Join(copyErrs, "; "))
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	if len(copyErrs) > 0 {
		i.log.Warn("album import: some tracks failed", "download_id", d.ID, "album_id", album.ID, "errors", copyErrs)
	}

	i.publishImported(ctx, d, events.Target{AlbumID: &album.ID}, root, imported, totalSize)
	i.publishFilled(ctx, events.EntityAlbum, album.ID, "album", fmt.Sprintf("%s - %s", artist.Name, album.Title))
	return nil
}

func (i *Importer) importBook(ctx context.Context, d *download.Download) error {
	book, err := i.library.GetBook(*d.BookID)
	if err != nil {
		return fmt.Errorf("get book: %w", err)
	}
	author, err := i.library.GetAuthor(book.AuthorID)
	if err != nil {
		return fmt.Errorf("get author: %w", err)
	}

	files, err := FindAllDocuments(d.OutputPath)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return ErrNoMediaFile
	}
	src, _, err := largestOf(files)
	if err != nil {
		return err
	}

	ext := strings.TrimPrefix(filepath.Ext(src), ".")
	relPath := i.renamer.BookPath(author.Name, book.Title, ext)
	root, err := i.rootFor(book.RootPath, "book")
	if err != nil {
		return err
	}
	destPath := filepath.Join(root, relPath)
	if err := ValidatePath(destPath, root); err != nil {
		return err
	}

	size, err := CopyFile(src, destPath)
	if err != nil {
		return err
	}

	tx, err := i.library.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.AddMediaFile(&library.MediaFile{
		Kind: library.MediaFileBook, BookID: &book.ID, Path: destPath, SizeBytes: size,
	}); err != nil {
		return fmt.Errorf("add media file: %w", err)
	}
	book.HasFile = true
	if err := tx.UpdateBook(book); err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	i.publishImported(ctx, d, events.Target{BookID: &book.ID}, destPath, 1, size)
	i.publishFilled(ctx, events.EntityBook, book.ID, "book", fmt.Sprintf("%s - %s", author.Name, book.Title))
	return nil
}

// largestOf returns the largest file among paths by disk size.
func largestOf(paths []string) (string, int64, error) {
	var best string
	var bestSize int64
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			continue
		}
		if fi.Size() > bestSize {
			bestSize = fi.Size()
			best = p
		}
	}
	if best == "" {
		return "", 0, ErrNoVideoFile
	}
	return best, bestSize, nil
}

// cleanup removes the download's source directory once its files have been
// copied into the library, if configured to do so. Best effort: a failure
// here doesn't fail the import, since the library copy already succeeded.
func (i *Importer) cleanup(ctx context.Context, d *download.Download) {
	if !i.cleanupSource {
		return
	}
	i.publish(ctx, &events.CleanupStarted{
		BaseEvent:  events.NewBaseEvent(events.EventCleanupStarted, events.EntityDownload, d.ID),
		DownloadID: d.ID,
		SourcePath: d.OutputPath,
	})
	if err := os.RemoveAll(d.OutputPath); err != nil {
		i.log.Warn("cleanup source failed", "download_id", d.ID, "path", d.OutputPath, "error", err)
		return
	}
	i.publish(ctx, &events.CleanupCompleted{
		BaseEvent:  events.NewBaseEvent(events.EventCleanupCompleted, events.EntityDownload, d.ID),
		DownloadID: d.ID,
	})
}

func (i *Importer) fail(ctx context.Context, d *download.Download, err error) {
	i.log.Error("import failed", "download_id", d.ID, "error", err)
	i.publish(ctx, &events.ImportFailed{
		BaseEvent:  events.NewBaseEvent(events.EventImportFailed, events.EntityDownload, d.ID),
		DownloadID: d.ID,
		Reason:     err.Error(),
	})
}

func (i *Importer) publishStarted(ctx context.Context, d *download.Download) {
	i.publish(ctx, &events.ImportStarted{
		BaseEvent:  events.NewBaseEvent(events.EventImportStarted, events.EntityDownload, d.ID),
		DownloadID: d.ID,
		SourcePath: d.OutputPath,
	})
}

func (i *Importer) publishImported(ctx context.Context, d *download.Download, target events.Target, destPath string, filesImported int, size int64) {
	i.publish(ctx, &events.ImportCompleted{
		BaseEvent:     events.NewBaseEvent(events.EventImportCompleted, events.EntityDownload, d.ID),
		Target:        target,
		DownloadID:    d.ID,
		DestPath:      destPath,
		FilesImported: filesImported,
		FileSize:      size,
	})
}

func (i *Importer) publishFilled(ctx context.Context, entityType string, entityID int64, kind, title string) {
	i.publish(ctx, &events.LibraryItemFilled{
		BaseEvent: events.NewBaseEvent(events.EventLibraryItemFilled, entityType, entityID),
		Kind:      kind,
		Title:     title,
	})
}

func (i *Importer) publish(ctx context.Context, e events.Event) {
	if i.bus == nil {
		return
	}
	if err := i.bus.Publish(ctx, e); err != nil {
		i.log.Warn("publish event failed", "event_type", e.EventType(), "error", err)
	}
}

// extractQuality extracts a coarse resolution label from a release name,
// used for display and file naming, not for quality-profile matching
// (pkg/release.Parse does that more precisely where it matters).
func extractQuality(releaseName string) string {
	lower := strings.ToLower(releaseName)
	switch {
	case strings.Contains(lower, "2160p") || strings.Contains(lower, "4k"):
		return "2160p"
	case strings.Contains(lower, "1080p"):
		return "1080p"
	case strings.Contains(lower, "720p"):
		return "720p"
	case strings.Contains(lower, "480p"):
		return "480p"
	default:
		return "unknown"
	}
}
