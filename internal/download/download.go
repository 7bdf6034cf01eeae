// Package download owns the Download lifecycle record: grabbing a release,
// tracking its progress through a download client, and handing completed
// jobs to the importer set.
package download

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a Download.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusDownloading Status = "downloading"
	StatusPaused      Status = "paused"
	StatusCompleted   Status = "completed"
	StatusImporting   Status = "importing"
	StatusFailed      Status = "failed"
)

// Download is the lifecycle record for a grabbed release. Exactly one of
// MovieID, EpisodeID, AlbumID, BookID is set (TvShowID accompanies
// EpisodeID for convenience; it is not itself a discriminant).
type Download struct {
	ID               int64
	ExternalID       string
	ClientID         int64
	IndexerID        *int64
	IndexerName      string
	MovieID          *int64
	TvShowID         *int64
	EpisodeID        *int64
	AlbumID          *int64
	BookID           *int64
	Title            string
	SizeBytes        int64
	DownloadURL      string
	GUID             string
	OutputPath       string
	Status           Status
	Progress         float64
	StartedAt        *time.Time
	CompletedAt      *time.Time
	LastTransitionAt time.Time
	ErrorMessage     string
}

// Filter specifies criteria for listing downloads.
type Filter struct {
	MovieID   *int64
	EpisodeID *int64
	AlbumID   *int64
	BookID    *int64
	ClientID  *int64
	Status    *Status
	Active    bool // excludes terminal (completed, failed) statuses
}

// Job is one entry in a download client's active queue.
type Job struct {
	ExternalID string
	Title      string
	Progress   float64
	Status     Status
	SizeBytes  int64
	OutputPath string
}

// HistoryItem is one completed or failed entry in a download client's history.
type HistoryItem struct {
	ExternalID  string
	Title       string
	Status      Status
	OutputPath  string
	CompletedAt time.Time
}

// AddJobRequest enqueues a grab with a download client.
type AddJobRequest struct {
	DownloadURL string
	Title       string
	Category    string
}

// Downloader is the uniform contract over heterogeneous download-client
// backends. Concrete adapters live in internal/downloadclient.
type Downloader interface {
	AddJob(ctx context.Context, req AddJobRequest) (externalID string, err error)
	GetJobs(ctx context.Context) ([]Job, error)
	GetHistory(ctx context.Context, limit int) ([]HistoryItem, error)
	Cancel(ctx context.Context, externalID string, deleteData bool) error
}

// TransitionHandler is notified after a Download changes status.
type TransitionHandler func(ctx context.Context, d *Download, from, to Status)

// Store provides access to download records.
type Store struct {
	db             *sql.DB
	handlers       []TransitionHandler
	createHandlers []func(d *Download)
}

// NewStore creates a new download store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// OnTransition registers a callback invoked after every successful status
// transition, in registration order.
func (s *Store) OnTransition(h TransitionHandler) {
	s.handlers = append(s.handlers, h)
}

// OnCreate registers a callback invoked after Add inserts a new row. Not
// fired when Add returns an already-existing active row.
func (s *Store) OnCreate(h func(d *Download)) {
	s.createHandlers = append(s.createHandlers, h)
}

func mapSQLiteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if strings.Contains(err.Error(), "CHECK constraint failed") {
		return ErrInvalidRequest
	}
	return err
}

const downloadColumns = `id, external_id, client_id, indexer_id, indexer_name,
	movie_id, tv_show_id, episode_id, album_id, book_id,
	title, size_bytes, download_url, guid, output_path, status, progress,
	started_at, completed_at, last_transition_at, error_message`

func scanDownload(row interface{ Scan(...any) error }) (*Download, error) {
	d := &Download{}
	err := row.Scan(&d.ID, &d.ExternalID, &d.ClientID, &d.IndexerID, &d.IndexerName,
		&d.MovieID, &d.TvShowID, &d.EpisodeID, &d.AlbumID, &d.BookID,
		&d.Title, &d.SizeBytes, &d.DownloadURL, &d.GUID, &d.OutputPath, &d.Status, &d.Progress,
		&d.StartedAt, &d.CompletedAt, &d.LastTransitionAt, &d.ErrorMessage)
	return d, err
}

// Add inserts a new download. Idempotent: if an active (non-terminal)
// download already exists for the same library entity, that row is
// returned instead of inserting a duplicate (enforces "at most one active
// Download per library item").
func (s *Store) Add(d *Download) error {
	existing, err := s.findActiveFor(d)
	if err != nil {
		return err
	}
	if existing != nil {
		*d = *existing
		return nil
	}

	now := time.Now()
	if d.Status == "" {
		d.Status = StatusQueued
	}
	result, err := s.db.Exec(`
		INSERT INTO downloads (external_id, client_id, indexer_id, indexer_name,
			movie_id, tv_show_id, episode_id, album_id, book_id,
			title, size_bytes, download_url, guid, output_path, status, progress,
			started_at, completed_at, last_transition_at, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ExternalID, d.ClientID, d.IndexerID, d.IndexerName,
		d.MovieID, d.TvShowID, d.EpisodeID, d.AlbumID, d.BookID,
		d.Title, d.SizeBytes, d.DownloadURL, d.GUID, d.OutputPath, d.Status, d.Progress,
		d.StartedAt, d.CompletedAt, now, d.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("insert download: %w", mapSQLiteError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	d.ID = id
	d.LastTransitionAt = now

	for _, h := range s.createHandlers {
		h(d)
	}
	return nil
}

func (s *Store) findActiveFor(d *Download) (*Download, error) {
	existing, err := s.List(Filter{MovieID: d.MovieID, EpisodeID: d.EpisodeID, AlbumID: d.AlbumID, BookID: d.BookID, Active: true})
	if err != nil {
		return nil, fmt.Errorf("check existing active download: %w", err)
	}
	if len(existing) > 0 {
		return existing[0], nil
	}
	return nil, nil
}

// Get retrieves a download by ID. Returns ErrNotFound if absent.
func (s *Store) Get(id int64) (*Download, error) {
	d, err := scanDownload(s.db.QueryRow("SELECT "+downloadColumns+" FROM downloads WHERE id = ?", id))
	if err != nil {
		return nil, fmt.Errorf("get download %d: %w", id, mapSQLiteError(err))
	}
	return d, nil
}

// GetByExternalID retrieves a download by client ID and external job ID.
// Returns ErrNotFound if absent.
func (s *Store) GetByExternalID(clientID int64, externalID string) (*Download, error) {
	d, err := scanDownload(s.db.QueryRow(
		"SELECT "+downloadColumns+" FROM downloads WHERE client_id = ? AND external_id = ?", clientID, externalID))
	if err != nil {
		return nil, fmt.Errorf("get download by external id %s: %w", externalID, mapSQLiteError(err))
	}
	return d, nil
}

// List returns downloads matching the filter.
func (s *Store) List(f Filter) ([]*Download, error) {
	var conditions []string
	var args []any

	addEq := func(col string, v any) {
		conditions = append(conditions, col+" = ?")
		args = append(args, v)
	}
	if f.MovieID != nil {
		addEq("movie_id", *f.MovieID)
	}
	if f.EpisodeID != nil {
		addEq("episode_id", *f.EpisodeID)
	}
	if f.AlbumID != nil {
		addEq("album_id", *f.AlbumID)
	}
	if f.BookID != nil {
		addEq("book_id", *f.BookID)
	}
	if f.ClientID != nil {
		addEq("client_id", *f.ClientID)
	}
	if f.Status != nil {
		addEq("status", *f.Status)
	}
	if f.Active {
		conditions = append(conditions, "status NOT IN ('completed', 'failed')")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	rows, err := s.db.Query("SELECT "+downloadColumns+" FROM downloads "+whereClause+" ORDER BY id", args...) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("list downloads: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Download
	for rows.Next() {
		d, err := scanDownload(rows)
		if err != nil {
			return nil, fmt.Errorf("scan download: %w", err)
		}
		results = append(results, d)
	}
	return results, rows.Err()
}

// Update persists mutable progress/output fields. Use Transition for status
// changes.
func (s *Store) Update(d *Download) error {
	_, err := s.db.Exec(`
		UPDATE downloads SET external_id = ?, title = ?, size_bytes = ?, output_path = ?, progress = ?,
			started_at = ?, error_message = ?
		WHERE id = ?`,
		d.ExternalID, d.Title, d.SizeBytes, d.OutputPath, d.Progress, d.StartedAt, d.ErrorMessage, d.ID)
	if err != nil {
		return fmt.Errorf("update download %d: %w", d.ID, mapSQLiteError(err))
	}
	return nil
}

// Transition validates and applies a status change, persists it, and fires
// registered TransitionHandlers.
func (s *Store) Transition(ctx context.Context, d *Download, to Status) error {
	if !d.Status.CanTransitionTo(to) {
		return fmt.Errorf("transition %s -> %s: %w", d.Status, to, ErrInvalidTransition)
	}
	from := d.Status
	now := time.Now()
	completedAt := d.CompletedAt
	if to == StatusCompleted || to == StatusFailed {
		completedAt = &now
	}

	_, err := s.db.Exec(`UPDATE downloads SET status = ?, completed_at = ?, last_transition_at = ?, error_message = ? WHERE id = ?`,
		to, completedAt, now, d.ErrorMessage, d.ID)
	if err != nil {
		return fmt.Errorf("transition download %d: %w", d.ID, mapSQLiteError(err))
	}

	d.Status = to
	d.CompletedAt = completedAt
	d.LastTransitionAt = now

	for _, h := range s.handlers {
		h(ctx, d, from, to)
	}
	return nil
}

// Delete removes a download by ID. Idempotent.
func (s *Store) Delete(id int64) error {
	_, err := s.db.Exec("DELETE FROM downloads WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete download %d: %w", id, mapSQLiteError(err))
	}
	return nil
}

// ListStuck returns non-terminal downloads whose status has not changed for
// longer than the threshold configured for that status — used to recover
// imports stuck past the recovery window.
func (s *Store) ListStuck(thresholds map[Status]time.Duration) ([]*Download, error) {
	var parts []string
	var args []any
	now := time.Now()
	for status, dur := range thresholds {
		parts = append(parts, "(status = ? AND last_transition_at < ?)")
		args = append(args, status, now.Add(-dur))
	}
	if len(parts) == 0 {
		return nil, nil
	}
	query := "SELECT " + downloadColumns + " FROM downloads WHERE " + strings.Join(parts, " OR ") //nolint:gosec
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stuck downloads: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Download
	for rows.Next() {
		d, err := scanDownload(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stuck download: %w", err)
		}
		results = append(results, d)
	}
	return results, rows.Err()
}
