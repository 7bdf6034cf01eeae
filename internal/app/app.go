// Package app builds the acquisition engine's component graph from config:
// gateway, stores, clients, and the scheduler that drives them. Both
// cmd/acquisitiond (the long-running daemon) and cmd/acquisitionctl (the
// one-shot control CLI) build the same App so they never diverge on
// wiring.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vmunix/arrgo/internal/backup"
	"github.com/vmunix/arrgo/internal/blacklist"
	"github.com/vmunix/arrgo/internal/config"
	"github.com/vmunix/arrgo/internal/download"
	"github.com/vmunix/arrgo/internal/downloadclient"
	"github.com/vmunix/arrgo/internal/events"
	"github.com/vmunix/arrgo/internal/httpgw"
	"github.com/vmunix/arrgo/internal/importer"
	"github.com/vmunix/arrgo/internal/indexer"
	"github.com/vmunix/arrgo/internal/library"
	"github.com/vmunix/arrgo/internal/migrations"
	"github.com/vmunix/arrgo/internal/rss"
	"github.com/vmunix/arrgo/internal/scanner"
	"github.com/vmunix/arrgo/internal/scheduler"
	"github.com/vmunix/arrgo/pkg/newznab"

	_ "modernc.org/sqlite"
)

// App holds every constructed component, so main packages can either drive
// the Scheduler (the daemon) or reach into a single Store/Manager for a
// one-shot CLI operation.
type App struct {
	Config *config.Config
	Logger *slog.Logger
	DB     *sql.DB

	Library   *library.Store
	Downloads *download.Store
	Blacklist *blacklist.Store

	Gateway   *httpgw.Gateway
	Indexers  []*indexer.Indexer
	Clients   map[int64]download.Downloader
	clientIDs map[string]int64 // config key -> download_clients row ID

	Bus      *events.Bus
	Importer *importer.Importer
	Manager  *download.Manager
	RSS      *rss.Pipeline
	Search   *rss.Searcher
	Scanner  *scanner.Scanner
	Backup   *backup.Runner

	Scheduler *scheduler.Scheduler
}

// ParseLogLevel maps a config log_level string to a slog.Level.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the text-handler slog.Logger both cmd binaries start
// from, at cfg's configured level.
func NewLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: ParseLogLevel(cfg.Server.LogLevel)}))
}

// Build opens the database, runs migrations, and constructs every
// component the acquisition engine needs, wiring config-declared indexers
// and download clients. It does not start the scheduler; call
// App.Scheduler.Start(ctx) to run the daemon, or App.Scheduler.Trigger to
// run one task and exit.
func Build(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: ParseLogLevel(cfg.Server.LogLevel)}))
	}

	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", cfg.Database.Path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(migrations.InitialSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	a := &App{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Library:   library.NewStore(db),
		Downloads: download.NewStore(db),
		Blacklist: blacklist.NewStore(db),
		clientIDs: make(map[string]int64),
	}

	a.Bus = events.NewBus(events.NewEventLog(db), logger.With("component", "bus"))
	a.Downloads.OnTransition(a.publishTransition)
	a.Downloads.OnCreate(a.publishCreated)

	a.Gateway = httpgw.NewGateway(buildProviderLimits(cfg), logger)

	if err := a.buildDownloadClients(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := a.buildIndexers(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := a.persistRootFolders(); err != nil {
		_ = db.Close()
		return nil, err
	}

	a.Importer = importer.New(db, importer.Config{
		MovieTemplate:  cfg.Libraries.Movies.Naming,
		SeriesTemplate: cfg.Libraries.Series.Naming,
		AlbumTemplate:  cfg.Libraries.Music.Naming,
		BookTemplate:   cfg.Libraries.Books.Naming,
		CleanupSource:  cfg.Importer.ShouldCleanupSource(),
		PathTimeout:    cfg.Importer.PathCheckTimeout(),
	}, a.Bus, logger.With("component", "importer"))

	a.Manager = download.NewManager(a.Clients, a.Downloads, a.Importer, a.Blacklist, logger.With("component", "download"))

	defaultClientID, ok := a.clientIDs[cfg.RSS.DefaultDownloadClient]
	if !ok {
		// No default named in config: fall back to the lowest-ID client.
		for _, id := range a.clientIDs {
			if defaultClientID == 0 || id < defaultClientID {
				defaultClientID = id
			}
		}
	}
	rssCfg := rss.Config{
		EpisodeLimit: cfg.RSS.EpisodeLimit,
		ReleaseLimit: cfg.RSS.ReleaseLimit,
		ClientID:     defaultClientID,
		GrabPacing:   time.Duration(cfg.RSS.GrabPacingSeconds) * time.Second,
	}

	var rssIndexers []rss.IndexerClient
	var searchIndexers []rss.SearchableIndexer
	for _, ix := range a.Indexers {
		rssIndexers = append(rssIndexers, ix)
		searchIndexers = append(searchIndexers, ix)
	}
	a.RSS = rss.New(rssIndexers, a.Library, a.Blacklist, a.Manager, rssCfg, logger)
	a.Search = rss.NewSearcher(searchIndexers, a.Library, a.Blacklist, a.Manager, rssCfg, logger)

	a.Scanner = scanner.New(a.Clients, a.Downloads, a.Library, a.Manager, scanner.DefaultConfig, logger)

	a.Backup = backup.New(db, backup.Config{Dir: cfg.Backup.Dir, Keep: cfg.Backup.Keep}, logger)

	a.Scheduler = scheduler.New(scheduler.NewStore(db), logger)
	a.registerTasks()
	if err := a.applyTaskOverrides(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return a, nil
}

// applyTaskOverrides folds config's [tasks.NAME] sections into the
// persisted schedule, preserving whichever of interval/enabled a section
// leaves unset.
func (a *App) applyTaskOverrides() error {
	if len(a.Config.Tasks) == 0 {
		return nil
	}
	if err := a.Scheduler.EnsureDefaults(); err != nil {
		return fmt.Errorf("ensure task defaults: %w", err)
	}
	statuses, err := a.Scheduler.List()
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	byType := make(map[scheduler.TaskType]scheduler.TaskStatus, len(statuses))
	for _, st := range statuses {
		byType[st.Type] = st
	}
	for name, tc := range a.Config.Tasks {
		taskType := scheduler.TaskType(name)
		row, ok := byType[taskType]
		if !ok {
			return fmt.Errorf("tasks.%s: unknown task type", name)
		}
		interval := row.IntervalMinutes
		if tc.IntervalMinutes > 0 {
			interval = tc.IntervalMinutes
		}
		enabled := row.Enabled
		if tc.Enabled != nil {
			enabled = *tc.Enabled
		}
		if err := a.Scheduler.Update(taskType, interval, enabled); err != nil {
			return fmt.Errorf("tasks.%s: %w", name, err)
		}
	}
	return nil
}

// Close releases the database handle.
func (a *App) Close() error {
	return a.DB.Close()
}

// buildDownloadClients upserts a download_clients row per configured client
// (downloads.client_id references it, and the database runs with foreign
// keys on) and keys each adapter by its row ID.
func (a *App) buildDownloadClients() error {
	a.Clients = make(map[int64]download.Downloader)

	names := make([]string, 0, len(a.Config.DownloadClients))
	for name := range a.Config.DownloadClients {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		dc := a.Config.DownloadClients[name]

		if _, err := a.DB.Exec(`
			INSERT INTO download_clients (name, type, host, api_key, category, remote_path, local_path)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				type = excluded.type, host = excluded.host, api_key = excluded.api_key,
				category = excluded.category, remote_path = excluded.remote_path, local_path = excluded.local_path`,
			name, dc.Type, dc.URL, dc.APIKey, dc.Category, dc.RemotePath, dc.LocalPath,
		); err != nil {
			return fmt.Errorf("download_clients.%s: persist: %w", name, err)
		}
		var id int64
		if err := a.DB.QueryRow(`SELECT id FROM download_clients WHERE name = ?`, name).Scan(&id); err != nil {
			return fmt.Errorf("download_clients.%s: lookup id: %w", name, err)
		}
		a.clientIDs[name] = id

		switch dc.Type {
		case "sabnzbd":
			providerKey := "downloadclient:" + dc.URL
			a.Clients[id] = downloadclient.NewSABnzbdClient(dc.URL, dc.APIKey, dc.Category, dc.RemotePath, dc.LocalPath, a.Gateway, a.Logger.With("provider", providerKey))
		default:
			return fmt.Errorf("download_clients.%s: unsupported type %q", name, dc.Type)
		}
	}
	return nil
}

// buildIndexers upserts an indexers row per configured indexer and stamps
// each client with its row ID, so Download rows can carry indexer_id.
func (a *App) buildIndexers() error {
	names := make([]string, 0, len(a.Config.Indexers))
	for name := range a.Config.Indexers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ixCfg := a.Config.Indexers[name]

		if _, err := a.DB.Exec(`
			INSERT INTO indexers (name, base_url, api_key)
			VALUES (?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET base_url = excluded.base_url, api_key = excluded.api_key`,
			name, ixCfg.URL, ixCfg.APIKey,
		); err != nil {
			return fmt.Errorf("indexers.%s: persist: %w", name, err)
		}
		var id int64
		if err := a.DB.QueryRow(`SELECT id FROM indexers WHERE name = ?`, name).Scan(&id); err != nil {
			return fmt.Errorf("indexers.%s: lookup id: %w", name, err)
		}

		client := newznab.NewClient(name, ixCfg.URL, ixCfg.APIKey, a.Gateway, a.Logger)
		categories := make(map[indexer.Kind][]int, len(ixCfg.Categories))
		for kind, cats := range ixCfg.Categories {
			categories[indexer.Kind(kind)] = cats
		}
		ix := indexer.New(name, client, categories)
		ix.SetID(id)
		a.Indexers = append(a.Indexers, ix)
	}
	return nil
}

// publishTransition translates Download status transitions into domain
// events on the bus. A move from importing to completed is left to the
// importer, which publishes ImportCompleted with a richer payload; every
// move to failed, import failures included, publishes DownloadFailed.
func (a *App) publishTransition(ctx context.Context, d *download.Download, from, to download.Status) {
	a.Logger.Info("download status changed", "download_id", d.ID, "from", from, "to", to)

	var e events.Event
	switch to {
	case download.StatusCompleted:
		if from == download.StatusImporting {
			return // import success; the importer published ImportCompleted
		}
		e = &events.DownloadCompleted{
			BaseEvent:  events.NewBaseEvent(events.EventDownloadCompleted, events.EntityDownload, d.ID),
			DownloadID: d.ID,
			OutputPath: d.OutputPath,
		}
	case download.StatusFailed:
		e = &events.DownloadFailed{
			BaseEvent:  events.NewBaseEvent(events.EventDownloadFailed, events.EntityDownload, d.ID),
			DownloadID: d.ID,
			Reason:     d.ErrorMessage,
		}
	default:
		return
	}
	if err := a.Bus.Publish(ctx, e); err != nil {
		a.Logger.Warn("publish download event failed", "download_id", d.ID, "error", err)
	}
}

// publishCreated emits DownloadCreated for every freshly persisted row.
func (a *App) publishCreated(d *download.Download) {
	e := &events.DownloadCreated{
		BaseEvent: events.NewBaseEvent(events.EventDownloadCreated, events.EntityDownload, d.ID),
		Target: events.Target{
			MovieID: d.MovieID, TvShowID: d.TvShowID, EpisodeID: d.EpisodeID,
			AlbumID: d.AlbumID, BookID: d.BookID,
		},
		DownloadID:  d.ID,
		ClientID:    d.ClientID,
		ReleaseName: d.Title,
	}
	if err := a.Bus.Publish(context.Background(), e); err != nil {
		a.Logger.Warn("publish download event failed", "download_id", d.ID, "error", err)
	}
}

// persistRootFolders mirrors config's library roots into root_folders, one
// row per media type, backing the importer's fallback destination lookup
// for entities that carry no root path of their own.
func (a *App) persistRootFolders() error {
	for mediaType, root := range map[string]string{
		"movie": a.Config.Libraries.Movies.Root,
		"tv":    a.Config.Libraries.Series.Root,
		"music": a.Config.Libraries.Music.Root,
		"book":  a.Config.Libraries.Books.Root,
	} {
		if root == "" {
			continue
		}
		if err := os.MkdirAll(root, 0o755); err != nil {
			return fmt.Errorf("root folder %s: %w", mediaType, err)
		}
		if err := a.Library.SetRootFolder(mediaType, root); err != nil {
			return fmt.Errorf("root folder %s: %w", mediaType, err)
		}
	}
	return nil
}

// buildProviderLimits translates config.ProviderRateLimitsConfig into
// httpgw.ProviderLimit, falling back to httpgw.DefaultProviderLimit for any
// key the operator didn't override.
func buildProviderLimits(cfg *config.Config) map[string]httpgw.ProviderLimit {
	limits := make(map[string]httpgw.ProviderLimit, len(cfg.ProviderRateLimits))
	for key, rl := range cfg.ProviderRateLimits {
		limits[key] = httpgw.ProviderLimit{
			Interval:    time.Duration(rl.IntervalMS) * time.Millisecond,
			IntervalCap: rl.IntervalCap,
			Concurrency: rl.Concurrency,
			Timeout:     time.Duration(rl.TimeoutSecs) * time.Second,
		}
	}
	return limits
}

// registerTasks associates each of the six default task types with its
// runner.
func (a *App) registerTasks() {
	a.Scheduler.Register(scheduler.TaskDownloadMonitor, scheduler.RunnerFunc(a.Manager.Monitor))
	a.Scheduler.Register(scheduler.TaskCompletedScanner, scheduler.RunnerFunc(func(ctx context.Context) error {
		_, err := a.Scanner.Scan(ctx)
		return err
	}))
	a.Scheduler.Register(scheduler.TaskRSSSync, scheduler.RunnerFunc(func(ctx context.Context) error {
		_, err := a.RSS.Sync(ctx)
		return err
	}))
	a.Scheduler.Register(scheduler.TaskRequestedSearch, scheduler.RunnerFunc(a.Search.Run))
	a.Scheduler.Register(scheduler.TaskBackup, scheduler.RunnerFunc(a.Backup.Run))
	a.Scheduler.Register(scheduler.TaskBlacklistCleanup, scheduler.RunnerFunc(func(ctx context.Context) error {
		_, err := a.Blacklist.Prune(blacklistRetention)
		return err
	}))
}

// blacklistRetention is how long a blacklist entry is kept before the
// Blacklist Cleanup task prunes it.
const blacklistRetention = 90 * 24 * time.Hour
