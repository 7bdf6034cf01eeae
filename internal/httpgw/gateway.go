package httpgw

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ProviderLimit configures the FIFO gate for one provider key.
type ProviderLimit struct {
	// Interval is the window over which IntervalCap requests are allowed
	// (e.g. 1s with IntervalCap 4 means ~4 req/s).
	Interval time.Duration
	// IntervalCap is the number of requests permitted per Interval, and
	// the limiter's burst size.
	IntervalCap int
	// Concurrency is the maximum number of in-flight requests for this
	// provider.
	Concurrency int
	// Timeout bounds a single dispatched request, including any 429 retry.
	Timeout time.Duration
}

// DefaultProviderLimit is a conservative ~3 req/s serial budget, used for
// any provider key the caller didn't configure explicitly.
var DefaultProviderLimit = ProviderLimit{
	Interval:    time.Second,
	IntervalCap: 3,
	Concurrency: 1,
	Timeout:     30 * time.Second,
}

type providerGate struct {
	limiter *rate.Limiter
	sem     chan struct{}
	timeout time.Duration
}

// Gateway is the single outbound-HTTP facade. Every outbound call in the
// system should be dispatched through Gateway.Do under a providerKey (e.g.
// "indexer:NAME", "downloadclient:URL") so rate limiting and concurrency are
// enforced once, centrally, instead of per client package.
type Gateway struct {
	client *http.Client
	log    *slog.Logger

	mu     sync.Mutex
	limits map[string]ProviderLimit
	gates  map[string]*providerGate
}

// NewGateway creates a Gateway. limits maps providerKey to its rate/
// concurrency/timeout configuration; a provider key not present here falls
// back to DefaultProviderLimit.
func NewGateway(limits map[string]ProviderLimit, log *slog.Logger) *Gateway {
	if log == nil {
		log = slog.Default()
	}
	return &Gateway{
		client: &http.Client{},
		log:    log,
		limits: limits,
		gates:  make(map[string]*providerGate),
	}
}

func (g *Gateway) gateFor(providerKey string) *providerGate {
	g.mu.Lock()
	defer g.mu.Unlock()

	if gate, ok := g.gates[providerKey]; ok {
		return gate
	}
	limit, ok := g.limits[providerKey]
	if !ok {
		limit = DefaultProviderLimit
	}
	// Partially-specified limits inherit the default for each unset field.
	if limit.Interval <= 0 {
		limit.Interval = DefaultProviderLimit.Interval
	}
	if limit.IntervalCap <= 0 {
		limit.IntervalCap = DefaultProviderLimit.IntervalCap
	}
	if limit.Concurrency <= 0 {
		limit.Concurrency = DefaultProviderLimit.Concurrency
	}
	if limit.Timeout <= 0 {
		limit.Timeout = DefaultProviderLimit.Timeout
	}
	every := limit.Interval / time.Duration(limit.IntervalCap)
	gate := &providerGate{
		limiter: rate.NewLimiter(rate.Every(every), limit.IntervalCap),
		sem:     make(chan struct{}, limit.Concurrency),
		timeout: limit.Timeout,
	}
	g.gates[providerKey] = gate
	return gate
}

// Do dispatches req under providerKey's rate/concurrency gate. It blocks
// (FIFO per provider, via the rate limiter's reservation order) until the
// interval and concurrency budgets allow dispatch, or ctx is cancelled
// first. A single 429 is retried once honoring the upstream's Retry-After
// header; a second 429 surfaces ErrRateLimited.
func (g *Gateway) Do(ctx context.Context, providerKey string, req *http.Request) (*http.Response, error) {
	gate := g.gateFor(providerKey)

	if err := gate.limiter.Wait(ctx); err != nil {
		return nil, ErrQueueCancelled
	}

	select {
	case gate.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ErrQueueCancelled
	}
	defer func() { <-gate.sem }()

	reqCtx, cancel := context.WithTimeout(ctx, gate.timeout)
	defer cancel()

	resp, err := g.dispatch(reqCtx, providerKey, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusTooManyRequests {
		return resp, nil
	}

	delay := retryAfter(resp.Header.Get("Retry-After"))
	_ = resp.Body.Close()
	g.log.Warn("rate limited, retrying once", "provider", providerKey, "delay", delay)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-reqCtx.Done():
		return nil, ErrQueueCancelled
	}

	resp, err = g.dispatch(reqCtx, providerKey, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		_ = resp.Body.Close()
		return nil, ErrRateLimited
	}
	return resp, nil
}

func (g *Gateway) dispatch(ctx context.Context, providerKey string, req *http.Request) (*http.Response, error) {
	req = req.Clone(ctx)
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &TransportError{Provider: providerKey, Err: err}
	}
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusTooManyRequests {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, &HttpError{Provider: providerKey, Status: resp.StatusCode, Body: body}
	}
	return resp, nil
}

// retryAfter parses the Retry-After header (seconds or HTTP-date); falls
// back to 5s when absent or unparseable.
func retryAfter(header string) time.Duration {
	if header == "" {
		return 5 * time.Second
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 5 * time.Second
}
