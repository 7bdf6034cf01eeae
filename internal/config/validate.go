// internal/config/validate.go
package config

import "fmt"

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

var validDownloadClientTypes = map[string]bool{
	"sabnzbd": true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	// At least one library required
	if c.Libraries.Movies.Root == "" && c.Libraries.Series.Root == "" &&
		c.Libraries.Music.Root == "" && c.Libraries.Books.Root == "" {
		errs = append(errs, "libraries: at least one library (movies, series, music, or books) must be configured")
	}

	// Server validation
	if c.Server.Port != 0 && (c.Server.Port < 1 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server.port: must be between 1 and 65535, got %d", c.Server.Port))
	}
	if !validLogLevels[c.Server.LogLevel] {
		errs = append(errs, fmt.Sprintf("server.log_level: must be one of debug, info, warn, error; got %q", c.Server.LogLevel))
	}

	// Quality validation
	if c.Quality.Default != "" && len(c.Quality.Profiles) > 0 {
		if _, ok := c.Quality.Profiles[c.Quality.Default]; !ok {
			errs = append(errs, fmt.Sprintf("quality.default: profile %q not defined", c.Quality.Default))
		}
	}

	// Indexers validation
	if len(c.Indexers) == 0 {
		errs = append(errs, "indexers: at least one indexer must be configured")
	}
	for name, indexer := range c.Indexers {
		if indexer.URL == "" {
			errs = append(errs, fmt.Sprintf("indexers.%s.url: required", name))
		}
		if indexer.APIKey == "" {
			errs = append(errs, fmt.Sprintf("indexers.%s.api_key: required", name))
		}
	}

	// Download client validation
	if len(c.DownloadClients) == 0 {
		errs = append(errs, "download_clients: at least one download client must be configured")
	}
	for name, dc := range c.DownloadClients {
		if !validDownloadClientTypes[dc.Type] {
			errs = append(errs, fmt.Sprintf("download_clients.%s.type: must be one of sabnzbd; got %q", name, dc.Type))
		}
		if dc.URL == "" {
			errs = append(errs, fmt.Sprintf("download_clients.%s.url: required", name))
		}
		if dc.APIKey == "" {
			errs = append(errs, fmt.Sprintf("download_clients.%s.api_key: required", name))
		}
	}

	// RSS validation
	if c.RSS.DefaultDownloadClient != "" {
		if _, ok := c.DownloadClients[c.RSS.DefaultDownloadClient]; !ok {
			errs = append(errs, fmt.Sprintf("rss.default_download_client: %q not defined in download_clients", c.RSS.DefaultDownloadClient))
		}
	}

	// Library roots are not stat'd here: a missing directory is created on
	// demand at startup.

	return errs
}
