package download

import "errors"

// Sentinel errors for the download package.
var (
	// ErrNotFound indicates a download record does not exist.
	ErrNotFound = errors.New("download not found")

	// ErrInvalidTransition indicates a requested status change is not
	// reachable from the download's current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidRequest indicates a grab request did not name exactly one
	// library entity, or named one that does not exist.
	ErrInvalidRequest = errors.New("invalid download request")

	// ErrAlreadyActive indicates an active, non-terminal download already
	// exists for the requested library entity.
	ErrAlreadyActive = errors.New("download already active for this item")

	// ErrBlacklisted indicates the requested release is blacklisted.
	ErrBlacklisted = errors.New("release is blacklisted")
)
