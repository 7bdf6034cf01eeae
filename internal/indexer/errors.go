// Package indexer is the thin per-indexer orchestration layer over
// pkg/newznab: one Indexer wraps one configured newznab.Client and knows
// how to turn a library "kind" (movie/episode/album/book) into the right
// Newznab search mode and category set.
package indexer

import "fmt"

// ProtocolError wraps a response the indexer returned that couldn't be
// parsed — malformed XML, or any failure below the HTTP layer that isn't
// already an httpgw.HttpError/TransportError. Distinguished from HttpError
// so callers (the RSS pipeline, the scheduler) can tell "indexer is up but
// broken" apart from "indexer is down" or "indexer rejected the request".
type ProtocolError struct {
	Indexer string
	Err     error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("indexer %s: protocol error: %v", e.Indexer, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }
