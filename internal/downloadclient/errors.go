package downloadclient

import "errors"

// Sentinel errors for download-client adapters. These are transport/auth
// failures talking to the client itself, distinct from download.Store's
// lifecycle errors.
var (
	ErrClientUnavailable = errors.New("download client unavailable")
	ErrInvalidAPIKey     = errors.New("download client rejected api key")
	ErrJobNotFound       = errors.New("job not found on download client")
)
