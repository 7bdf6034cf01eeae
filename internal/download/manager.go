package download

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Importer is invoked by Manager once a download's client-side job has
// completed. Concrete implementations live in internal/importer; the
// interface is declared here (consumer side) to avoid a package cycle.
type Importer interface {
	Import(ctx context.Context, d *Download) error
}

// BlacklistChecker reports whether a release has been blacklisted.
// Concrete implementation lives in internal/blacklist.
type BlacklistChecker interface {
	IsBlacklisted(guid, normalizedTitle string) (bool, error)
}

// GrabRequest describes a release to hand to a download client. Exactly
// one of MovieID, EpisodeID, AlbumID, BookID must be set.
type GrabRequest struct {
	MovieID         *int64
	TvShowID        *int64
	EpisodeID       *int64
	AlbumID         *int64
	BookID          *int64
	ClientID        int64
	IndexerID       *int64
	IndexerName     string
	Title           string
	NormalizedTitle string
	SizeBytes       int64
	DownloadURL     string
	GUID            string
}

func (r GrabRequest) targetCount() int {
	n := 0
	for _, set := range []bool{r.MovieID != nil, r.EpisodeID != nil, r.AlbumID != nil, r.BookID != nil} {
		if set {
			n++
		}
	}
	return n
}

// Manager orchestrates the Download lifecycle: grab, monitor, cancel.
type Manager struct {
	clients    map[int64]Downloader
	store      *Store
	importer   Importer
	blacklist  BlacklistChecker
	log        *slog.Logger
	monitoring atomic.Bool
}

// NewManager creates a download manager over a set of download clients
// keyed by their DownloadClient row ID.
func NewManager(clients map[int64]Downloader, store *Store, importer Importer, blacklist BlacklistChecker, log *slog.Logger) *Manager {
	return &Manager{clients: clients, store: store, importer: importer, blacklist: blacklist, log: log}
}

// Grab validates preconditions, enqueues the release with the named
// client, and persists a queued Download row.
func (m *Manager) Grab(ctx context.Context, req GrabRequest) (*Download, error) {
	if req.targetCount() != 1 {
		return nil, fmt.Errorf("grab request must set exactly one library target: %w", ErrInvalidRequest)
	}

	if m.blacklist != nil {
		blacklisted, err := m.blacklist.IsBlacklisted(req.GUID, req.NormalizedTitle)
		if err != nil {
			return nil, fmt.Errorf("check blacklist: %w", err)
		}
		if blacklisted {
			return nil, ErrBlacklisted
		}
	}

	existing, err := m.store.List(Filter{MovieID: req.MovieID, EpisodeID: req.EpisodeID, AlbumID: req.AlbumID, BookID: req.BookID, Active: true})
	if err != nil {
		return nil, fmt.Errorf("check active download: %w", err)
	}
	if len(existing) > 0 {
		return nil, ErrAlreadyActive
	}

	client, ok := m.clients[req.ClientID]
	if !ok {
		return nil, fmt.Errorf("download client %d: %w", req.ClientID, ErrInvalidRequest)
	}

	externalID, err := client.AddJob(ctx, AddJobRequest{DownloadURL: req.DownloadURL, Title: req.Title})
	if err != nil {
		m.log.Error("grab failed", "title", req.Title, "error", err)
		return nil, fmt.Errorf("add job: %w", err)
	}

	d := &Download{
		ExternalID:  externalID,
		ClientID:    req.ClientID,
		IndexerID:   req.IndexerID,
		IndexerName: req.IndexerName,
		MovieID:     req.MovieID,
		TvShowID:    req.TvShowID,
		EpisodeID:   req.EpisodeID,
		AlbumID:     req.AlbumID,
		BookID:      req.BookID,
		Title:       req.Title,
		SizeBytes:   req.SizeBytes,
		DownloadURL: req.DownloadURL,
		GUID:        req.GUID,
		Status:      StatusQueued,
	}
	if err := m.store.Add(d); err != nil {
		// The client now holds an orphan job; Monitor/the Completed-Downloads
		// Scanner will reconcile it on a later tick.
		return nil, fmt.Errorf("save download: %w", err)
	}

	m.log.Info("grab sent", "download_id", d.ID, "title", req.Title, "client_id", req.ClientID, "external_id", externalID)
	return d, nil
}

// Monitor runs one reconciliation tick: polls every configured client's
// active queue and history, advances Download status accordingly, and
// dispatches completed jobs to the Importer. At most one tick runs at a
// time per process.
func (m *Manager) Monitor(ctx context.Context) error {
	if !m.monitoring.CompareAndSwap(false, true) {
		return nil
	}
	defer m.monitoring.Store(false)

	var lastErr error
	for clientID, client := range m.clients {
		if err := m.monitorClient(ctx, clientID, client); err != nil {
			m.log.Error("monitor client failed", "client_id", clientID, "error", err)
			lastErr = err
		}
	}
	return lastErr
}

func (m *Manager) monitorClient(ctx context.Context, clientID int64, client Downloader) error {
	downloads, err := m.store.List(Filter{ClientID: &clientID, Active: true})
	if err != nil {
		return fmt.Errorf("list active downloads: %w", err)
	}
	if len(downloads) == 0 {
		return nil
	}

	jobs, err := client.GetJobs(ctx)
	if err != nil {
		// Transient client error: must not flip any non-terminal download
		// to failed.
		return fmt.Errorf("get jobs: %w", err)
	}
	jobByID := make(map[string]Job, len(jobs))
	for _, j := range jobs {
		jobByID[j.ExternalID] = j
	}

	history, err := client.GetHistory(ctx, 50)
	if err != nil {
		return fmt.Errorf("get history: %w", err)
	}
	historyByID := make(map[string]HistoryItem, len(history))
	for _, h := range history {
		historyByID[h.ExternalID] = h
	}

	for _, d := range downloads {
		if h, ok := historyByID[d.ExternalID]; ok {
			m.reconcileHistory(ctx, d, h)
			continue
		}
		if j, ok := jobByID[d.ExternalID]; ok {
			m.reconcileJob(ctx, d, j)
		}
		// Neither queue nor history mentions this job: leave status as-is.
	}
	return nil
}

func (m *Manager) reconcileJob(ctx context.Context, d *Download, j Job) {
	d.Progress = j.Progress
	if j.OutputPath != "" {
		d.OutputPath = j.OutputPath
	}
	if err := m.store.Update(d); err != nil {
		m.log.Error("update download progress failed", "download_id", d.ID, "error", err)
	}
	if j.Status != d.Status && d.Status.CanTransitionTo(j.Status) {
		if err := m.store.Transition(ctx, d, j.Status); err != nil {
			m.log.Error("transition from job status failed", "download_id", d.ID, "error", err)
		}
	}
}

func (m *Manager) reconcileHistory(ctx context.Context, d *Download, h HistoryItem) {
	switch h.Status {
	case StatusFailed:
		if d.Status.IsTerminal() {
			return
		}
		d.ErrorMessage = "download client reported failure"
		if err := m.store.Transition(ctx, d, StatusFailed); err != nil {
			m.log.Error("transition to failed failed", "download_id", d.ID, "error", err)
		}
	case StatusCompleted:
		if d.Status.IsTerminal() || d.Status == StatusImporting {
			return
		}
		d.OutputPath = h.OutputPath
		if err := m.store.Update(d); err != nil {
			m.log.Error("update download output path failed", "download_id", d.ID, "error", err)
			return
		}
		// The client-observed status (typically still Downloading) can't
		// jump straight to Importing: validTransitions only allows
		// Completed->Importing. Pass through Completed first.
		if d.Status != StatusCompleted {
			if err := m.store.Transition(ctx, d, StatusCompleted); err != nil {
				m.log.Error("transition to completed failed", "download_id", d.ID, "error", err)
				return
			}
		}
		if err := m.store.Transition(ctx, d, StatusImporting); err != nil {
			m.log.Error("transition to importing failed", "download_id", d.ID, "error", err)
			return
		}
		m.runImport(ctx, d)
	}
}

// runImport invokes the Importer and finalizes status based on its result.
// A path-inaccessible failure is final: imports that fail because the
// target volume is unreachable are never auto-retried.
func (m *Manager) runImport(ctx context.Context, d *Download) {
	if err := m.importer.Import(ctx, d); err != nil {
		m.log.Error("import failed", "download_id", d.ID, "error", err)
		d.ErrorMessage = err.Error()
		if tErr := m.store.Transition(ctx, d, StatusFailed); tErr != nil {
			m.log.Error("transition to failed after import error failed", "download_id", d.ID, "error", tErr)
		}
		return
	}
	if err := m.store.Transition(ctx, d, StatusCompleted); err != nil {
		m.log.Error("transition to completed after import failed", "download_id", d.ID, "error", err)
	}
}

// RetryStuckImports re-invokes the Importer for downloads stuck in
// StatusImporting past the stuck threshold, called by the
// Completed-Downloads Scanner.
func (m *Manager) RetryStuckImports(ctx context.Context, d *Download) {
	m.runImport(ctx, d)
}

// Cancel removes a download from its client and marks it failed. Already
// terminal downloads are left untouched (idempotent).
func (m *Manager) Cancel(ctx context.Context, downloadID int64, deleteData bool) error {
	d, err := m.store.Get(downloadID)
	if err != nil {
		return fmt.Errorf("get download: %w", err)
	}
	if d.Status.IsTerminal() {
		return nil
	}

	if client, ok := m.clients[d.ClientID]; ok {
		_ = client.Cancel(ctx, d.ExternalID, deleteData) // best effort
	}

	d.ErrorMessage = "cancelled"
	if err := m.store.Transition(ctx, d, StatusFailed); err != nil {
		return fmt.Errorf("mark cancelled download failed: %w", err)
	}
	return nil
}

// GetActive returns all non-terminal downloads.
func (m *Manager) GetActive() ([]*Download, error) {
	return m.store.List(Filter{Active: true})
}
