// Package rss implements the periodic RSS Sync Pipeline: fetch every
// configured indexer's latest-releases feed, filter it through the
// blacklist, and grab the first release matching anything the library
// wants.
package rss

import "errors"

// ErrAlreadyRunning indicates a sync cycle was requested while the
// previous one was still in flight; the caller should simply skip this
// tick rather than treat it as a failure.
var ErrAlreadyRunning = errors.New("rss: sync already running")
