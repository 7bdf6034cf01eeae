// internal/importer/errors.go
package importer

import "errors"

var (
	// ErrDownloadNotFound indicates the download record doesn't exist.
	ErrDownloadNotFound = errors.New("download not found")

	// ErrDownloadNotReady indicates the download is not in completed status.
	ErrDownloadNotReady = errors.New("download not in completed status")

	// ErrNoVideoFile indicates no video file was found in the download.
	ErrNoVideoFile = errors.New("no video file found in download")

	// ErrNoMediaFile indicates no file of the expected kind (audio, document)
	// was found in the download.
	ErrNoMediaFile = errors.New("no media file found in download")

	// ErrCopyFailed indicates the file copy operation failed.
	ErrCopyFailed = errors.New("failed to copy file")

	// ErrDestinationExists indicates the destination file already exists.
	ErrDestinationExists = errors.New("destination file already exists")

	// ErrPathTraversal indicates a path traversal attack was detected.
	ErrPathTraversal = errors.New("path traversal detected")

	// ErrUnsupportedKind indicates a Download carries none of the four
	// recognized library foreign keys.
	ErrUnsupportedKind = errors.New("download has no recognized library target")

	// ErrPathInaccessible indicates the download's output path could not be
	// stat'd within the accessibility timeout (e.g. the volume backing it
	// went away). Importer.Import returns an error wrapping this and the Download
	// is left failed rather than retried.
	ErrPathInaccessible = errors.New("output path inaccessible")
)
