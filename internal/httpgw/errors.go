// Package httpgw is the single outbound-HTTP facade for the system: every
// indexer search/RSS fetch and download-client poll is dispatched through a
// Gateway so per-provider rate limits and concurrency budgets are enforced
// in exactly one place instead of once per client package.
package httpgw

import (
	"errors"
	"fmt"
)

// TransportError wraps a network/DNS/timeout failure below the HTTP layer.
// Callers may retry at their own discretion.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("httpgw: transport error for %s: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HttpError wraps a non-2xx response. Body is the response body, preserved
// for callers that need to inspect it (e.g. ProtocolError detection upstream).
type HttpError struct {
	Provider string
	Status   int
	Body     []byte
}

func (e *HttpError) Error() string {
	return fmt.Sprintf("httpgw: %s returned status %d", e.Provider, e.Status)
}

// ErrRateLimited indicates the provider returned 429 twice in a row (the
// single automatic Retry-After retry also failed); callers decide whether
// to surface or drop the request.
var ErrRateLimited = errors.New("httpgw: rate limited by upstream")

// ErrQueueCancelled indicates the caller's context was cancelled while the
// request was still queued, before it was ever dispatched.
var ErrQueueCancelled = errors.New("httpgw: request cancelled before dispatch")
