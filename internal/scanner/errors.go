// Package scanner implements the Completed-Downloads Scanner: it walks each
// download client's history for completed jobs the Manager isn't already
// tracking and folds them back into the library, and recovers imports that
// got stuck mid-flight.
package scanner

import "errors"

// ErrAlreadyRunning indicates a scan was requested while the previous one
// was still in flight; the caller should simply skip this tick.
var ErrAlreadyRunning = errors.New("scanner: scan already running")
