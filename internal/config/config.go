// Package config handles TOML configuration loading with environment variable substitution.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	Server             ServerConfig             `toml:"server"`
	Database           DatabaseConfig           `toml:"database"`
	Libraries          LibrariesConfig          `toml:"libraries"`
	Quality            QualityConfig            `toml:"quality"`
	Indexers           IndexersConfig           `toml:"indexers"`
	DownloadClients    DownloadClientsConfig    `toml:"download_clients"`
	ProviderRateLimits ProviderRateLimitsConfig `toml:"provider_rate_limits"`
	RSS                RSSConfig                `toml:"rss"`
	Importer           ImporterConfig           `toml:"importer"`
	Tasks              TasksConfig              `toml:"tasks"`
	Backup             BackupConfig             `toml:"backup"`
}

// TasksConfig overrides internal/scheduler's per-task-type defaults,
// keyed by the same task_type strings internal/scheduler.TaskType uses
// ("rss_sync", "download_monitor", ...). A task type absent here keeps
// internal/scheduler's built-in default interval, enabled.
type TasksConfig map[string]*TaskConfig

type TaskConfig struct {
	IntervalMinutes int  `toml:"interval_minutes"`
	Enabled         *bool `toml:"enabled"`
}

// EnabledOrDefault returns Enabled if set, else true.
func (c *TaskConfig) EnabledOrDefault() bool {
	if c == nil || c.Enabled == nil {
		return true
	}
	return *c.Enabled
}

// BackupConfig configures the Backup task's internal/backup.Runner.
type BackupConfig struct {
	Dir  string `toml:"dir"`
	Keep int    `toml:"keep"`
}

type ServerConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	LogLevel string `toml:"log_level"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

// LibrariesConfig carries one root/naming pair per library kind.
type LibrariesConfig struct {
	Movies LibraryConfig `toml:"movies"`
	Series LibraryConfig `toml:"series"`
	Music  LibraryConfig `toml:"music"`
	Books  LibraryConfig `toml:"books"`
}

type LibraryConfig struct {
	Root   string `toml:"root"`
	Naming string `toml:"naming"`
}

type QualityConfig struct {
	Default  string                    `toml:"default"`
	Profiles map[string]QualityProfile `toml:"profiles"`
}

type QualityProfile struct {
	Resolution  []string `toml:"resolution"`
	Sources     []string `toml:"sources"`
	Codecs      []string `toml:"codecs"`
	HDR         []string `toml:"hdr"`
	Audio       []string `toml:"audio"`
	PreferRemux bool     `toml:"prefer_remux"`
	Reject      []string `toml:"reject"`
}

// IndexersConfig is a map of indexer name to config, parsed from
// [indexers.NAME] sections in TOML.
type IndexersConfig map[string]*NewznabConfig

// NewznabConfig describes one configured Newznab-compatible indexer.
// Categories optionally overrides indexer.DefaultCategories per kind; a
// kind absent from the map falls back to the package default.
type NewznabConfig struct {
	URL        string           `toml:"url"`
	APIKey     string           `toml:"api_key"`
	Categories map[string][]int `toml:"categories"`
}

// DownloadClientsConfig is a map of download-client name to config, parsed
// from [download_clients.NAME] sections. An installation may run any number
// of clients, of any adapter Type internal/downloadclient implements.
type DownloadClientsConfig map[string]*DownloadClientConfig

// DownloadClientConfig describes one configured download client. Type
// selects the internal/downloadclient adapter ("sabnzbd" is the only one
// implemented).
type DownloadClientConfig struct {
	Type       string `toml:"type"`
	URL        string `toml:"url"`
	APIKey     string `toml:"api_key"`
	Category   string `toml:"category"`
	RemotePath string `toml:"remote_path"` // path prefix as seen by the client (e.g., /data/usenet)
	LocalPath  string `toml:"local_path"`  // corresponding path on this machine (e.g., /srv/data/usenet)
}

// ProviderRateLimitsConfig overrides internal/httpgw's per-provider gate,
// keyed by the same providerKey convention httpgw callers use
// ("indexer:NAME", "downloadclient:URL"). A provider key absent here uses
// httpgw.DefaultProviderLimit.
type ProviderRateLimitsConfig map[string]*ProviderRateLimitConfig

type ProviderRateLimitConfig struct {
	IntervalMS  int `toml:"interval_ms"`
	IntervalCap int `toml:"interval_cap"`
	Concurrency int `toml:"concurrency"`
	TimeoutSecs int `toml:"timeout_secs"`
}

// RSSConfig tunes internal/rss.Pipeline's per-cycle bounds and pacing.
type RSSConfig struct {
	EpisodeLimit          int    `toml:"episode_limit"`
	ReleaseLimit          int    `toml:"release_limit"`
	GrabPacingSeconds     int    `toml:"grab_pacing_seconds"`
	DefaultDownloadClient string `toml:"default_download_client"`
}

type ImporterConfig struct {
	CleanupSource        *bool `toml:"cleanup_source"`
	PathCheckTimeoutSecs int   `toml:"path_check_timeout_secs"`
}

// ShouldCleanupSource returns whether to delete source files after import.
// Defaults to true if not explicitly configured.
func (c *ImporterConfig) ShouldCleanupSource() bool {
	if c.CleanupSource == nil {
		return true // default
	}
	return *c.CleanupSource
}

// PathCheckTimeout returns PathCheckTimeoutSecs as a time.Duration, the form
// the importer's filesystem-readiness check actually needs.
func (c *ImporterConfig) PathCheckTimeout() time.Duration {
	return time.Duration(c.PathCheckTimeoutSecs) * time.Second
}

// Load reads, parses, and validates the configuration file.
func Load(path string) (*Config, error) {
	cfg, missing, err := load(path)
	if err != nil {
		return nil, err
	}

	// Build ConfigError if any issues
	configErr := &ConfigError{Path: path, Missing: missing}

	// Run validation
	configErr.Errors = cfg.Validate()

	if configErr.HasErrors() {
		return nil, configErr
	}

	return cfg, nil
}

// LoadWithoutValidation reads and parses the config without validation.
// Useful for init commands or debugging.
func LoadWithoutValidation(path string) (*Config, error) {
	cfg, _, err := load(path)
	return cfg, err
}

// load is the internal loader that returns config, missing vars, and parse error.
func load(path string) (*Config, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}

	// Substitute environment variables
	content, missing := substituteEnvVars(string(data))

	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		return nil, nil, fmt.Errorf("parsing config: %w", err)
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8484
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = "info"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./data/arrgo.db"
	}
	if cfg.RSS.EpisodeLimit == 0 {
		cfg.RSS.EpisodeLimit = 50
	}
	if cfg.RSS.ReleaseLimit == 0 {
		cfg.RSS.ReleaseLimit = 100
	}
	if cfg.RSS.GrabPacingSeconds == 0 {
		cfg.RSS.GrabPacingSeconds = 2
	}
	if cfg.Importer.PathCheckTimeoutSecs == 0 {
		cfg.Importer.PathCheckTimeoutSecs = 3
	}
	if cfg.Backup.Dir == "" {
		cfg.Backup.Dir = "./data/backups"
	}
	if cfg.Backup.Keep == 0 {
		cfg.Backup.Keep = 7
	}

	return &cfg, missing, nil
}

// substituteEnvVars replaces ${VAR}, ${VAR:-default}, ${VAR:?error} patterns.
// Returns the substituted content and a list of missing/error variables.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?:(:[-?])([^}]*))?\}`)

func substituteEnvVars(content string) (string, []string) {
	var missing []string

	result := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		varName := parts[1]
		modifier := parts[2]
		modValue := parts[3]

		value, exists := os.LookupEnv(varName)

		switch modifier {
		case ":-": // Default value
			if !exists || value == "" {
				return modValue
			}
			return value
		case ":?": // Required with error
			if !exists || value == "" {
				missing = append(missing, varName+": "+modValue)
				return match
			}
			return value
		default: // Simple substitution
			if exists {
				return value
			}
			missing = append(missing, varName)
			return match
		}
	})

	return result, missing
}
