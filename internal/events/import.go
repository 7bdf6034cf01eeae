// internal/events/import.go
package events

// ImportStarted is emitted when an Importer begins processing a completed
// download.
type ImportStarted struct {
	BaseEvent
	DownloadID int64  `json:"download_id"`
	SourcePath string `json:"source_path"`
}

// ImportCompleted is emitted when an Importer successfully moves a
// download's files into its target RootFolder.
type ImportCompleted struct {
	BaseEvent
	Target
	DownloadID    int64  `json:"download_id"`
	DestPath      string `json:"dest_path"`
	FilesImported int    `json:"files_imported"`
	FileSize      int64  `json:"file_size"`
}

// ImportFailed is emitted when an Importer cannot complete an import;
// Download.ErrorMessage carries the same reason.
type ImportFailed struct {
	BaseEvent
	DownloadID int64  `json:"download_id"`
	Reason     string `json:"reason"`
}

// CleanupStarted is emitted when source cleanup begins after a successful
// import.
type CleanupStarted struct {
	BaseEvent
	DownloadID int64  `json:"download_id"`
	SourcePath string `json:"source_path"`
}

// CleanupCompleted is emitted when source files are removed.
type CleanupCompleted struct {
	BaseEvent
	DownloadID int64 `json:"download_id"`
}
