// Package downloadclient adapts heterogeneous download-client backends to
// the download.Downloader contract.
package downloadclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vmunix/arrgo/internal/download"
	"github.com/vmunix/arrgo/internal/httpgw"
)

// SABnzbdClient adapts a SABnzbd instance to download.Downloader. All
// requests are dispatched through a shared httpgw.Gateway under the
// "downloadclient:<baseURL>" provider key, the same facade indexer clients
// use, so polling a download client never bypasses the system's single
// outbound-HTTP budget.
type SABnzbdClient struct {
	baseURL    string
	apiKey     string
	category   string
	remotePath string
	localPath  string
	gw         *httpgw.Gateway
	log        *slog.Logger
}

// NewSABnzbdClient creates a new SABnzbd adapter. remotePath/localPath
// translate storage paths SABnzbd reports (as seen from its own
// filesystem) into paths this process can read, when the two processes
// do not share a mount point. gw may be nil, in which case the client
// builds its own single-provider gateway (mainly useful in tests).
func NewSABnzbdClient(baseURL, apiKey, category, remotePath, localPath string, gw *httpgw.Gateway, log *slog.Logger) *SABnzbdClient {
	var clientLog *slog.Logger
	if log != nil {
		clientLog = log.With("component", "sabnzbd")
	} else {
		clientLog = slog.Default().With("component", "sabnzbd")
	}
	if gw == nil {
		gw = httpgw.NewGateway(nil, clientLog)
	}
	return &SABnzbdClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		category:   category,
		remotePath: remotePath,
		localPath:  localPath,
		gw:         gw,
		log:        clientLog,
	}
}

func (c *SABnzbdClient) providerKey() string {
	return "downloadclient:" + c.baseURL
}

// AddJob sends an NZB URL to SABnzbd and returns its assigned nzo_id.
func (c *SABnzbdClient) AddJob(ctx context.Context, req download.AddJobRequest) (string, error) {
	category := req.Category
	if category == "" {
		category = c.category
	}
	c.log.Debug("adding nzb", "category", category)

	params := url.Values{
		"apikey": {c.apiKey},
		"output": {"json"},
		"mode":   {"addurl"},
		"name":   {req.DownloadURL},
		"cat":    {category},
	}

	var resp addResponse
	if err := c.doRequest(ctx, "addurl", params, &resp); err != nil {
		return "", err
	}
	if !resp.Status {
		if isAPIKeyError(resp.Error) {
			return "", ErrInvalidAPIKey
		}
		return "", fmt.Errorf("sabnzbd add failed: %s", resp.Error)
	}
	if len(resp.NzoIDs) == 0 {
		return "", fmt.Errorf("sabnzbd returned no nzo_id")
	}

	c.log.Debug("nzb added", "nzo_id", resp.NzoIDs[0])
	return resp.NzoIDs[0], nil
}

// GetJobs returns SABnzbd's active queue.
func (c *SABnzbdClient) GetJobs(ctx context.Context) ([]download.Job, error) {
	params := url.Values{"apikey": {c.apiKey}, "output": {"json"}, "mode": {"queue"}}

	var resp queueResponse
	if err := c.doRequest(ctx, "queue", params, &resp); err != nil {
		return nil, err
	}

	jobs := make([]download.Job, 0, len(resp.Queue.Slots))
	for _, slot := range resp.Queue.Slots {
		jobs = append(jobs, download.Job{
			ExternalID: slot.NzoID,
			Title:      slot.Filename,
			Progress:   parseFloat(slot.Percentage),
			Status:     mapQueueStatus(slot.Status),
			SizeBytes:  int64(parseFloat(slot.MB) * 1024 * 1024),
		})
	}
	return jobs, nil
}

// GetHistory returns SABnzbd's completed/failed history, most recent first,
// capped at limit entries.
func (c *SABnzbdClient) GetHistory(ctx context.Context, limit int) ([]download.HistoryItem, error) {
	params := url.Values{"apikey": {c.apiKey}, "output": {"json"}, "mode": {"history"}}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var resp historyResponse
	if err := c.doRequest(ctx, "history", params, &resp); err != nil {
		return nil, err
	}

	items := make([]download.HistoryItem, 0, len(resp.History.Slots))
	for _, slot := range resp.History.Slots {
		items = append(items, download.HistoryItem{
			ExternalID: slot.NzoID,
			Title:      slot.Name,
			Status:     mapHistoryStatus(slot.Status),
			OutputPath: c.remapPath(slot.Storage),
		})
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Cancel removes a job from SABnzbd's queue.
func (c *SABnzbdClient) Cancel(ctx context.Context, externalID string, deleteData bool) error {
	c.log.Debug("cancelling job", "external_id", externalID, "delete_data", deleteData)

	params := url.Values{
		"apikey": {c.apiKey},
		"output": {"json"},
		"mode":   {"queue"},
		"name":   {"delete"},
		"value":  {externalID},
	}

	var resp statusResponse
	if err := c.doRequest(ctx, "queue/delete", params, &resp); err != nil {
		return err
	}
	if !resp.Status {
		return fmt.Errorf("sabnzbd cancel failed")
	}
	return nil
}

// remapPath translates a path SABnzbd reports on its own filesystem into
// one readable by this process, when the two do not share a mount.
func (c *SABnzbdClient) remapPath(path string) string {
	if c.remotePath == "" || c.localPath == "" {
		return path
	}
	if rest, ok := strings.CutPrefix(path, c.remotePath); ok {
		return c.localPath + rest
	}
	return path
}

func (c *SABnzbdClient) doRequest(ctx context.Context, mode string, params url.Values, result any) error {
	start := time.Now()
	reqURL := c.baseURL + "/api?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.gw.Do(ctx, c.providerKey(), req)
	if err != nil {
		c.log.Debug("api request failed", "mode", mode, "error", err)
		var transportErr *httpgw.TransportError
		var httpErr *httpgw.HttpError
		switch {
		case errors.As(err, &transportErr):
			return ErrClientUnavailable
		case errors.As(err, &httpErr):
			return fmt.Errorf("unexpected status: %d", httpErr.Status)
		default:
			return ErrClientUnavailable
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	c.log.Debug("api request complete", "mode", mode, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

type addResponse struct {
	Status bool     `json:"status"`
	NzoIDs []string `json:"nzo_ids"`
	Error  string   `json:"error"`
}

type statusResponse struct {
	Status bool `json:"status"`
}

type queueResponse struct {
	Queue struct {
		Speed string      `json:"speed"`
		Slots []queueSlot `json:"slots"`
	} `json:"queue"`
}

type queueSlot struct {
	NzoID      string `json:"nzo_id"`
	Filename   string `json:"filename"`
	Status     string `json:"status"`
	Percentage string `json:"percentage"`
	MB         string `json:"mb"`
	TimeLeft   string `json:"timeleft"`
}

type historyResponse struct {
	History struct {
		Slots []historySlot `json:"slots"`
	} `json:"history"`
}

type historySlot struct {
	NzoID   string `json:"nzo_id"`
	Name    string `json:"name"`
	Status  string `json:"status"`
	Bytes   int64  `json:"bytes"`
	Storage string `json:"storage"`
}

func mapQueueStatus(sabStatus string) download.Status {
	switch sabStatus {
	case "Downloading", "Fetching", "Grabbing", "Checking":
		return download.StatusDownloading
	case "Paused":
		return download.StatusPaused
	case "Queued", "Propagating":
		return download.StatusQueued
	default:
		return download.StatusDownloading
	}
}

func mapHistoryStatus(sabStatus string) download.Status {
	switch sabStatus {
	case "Completed":
		return download.StatusCompleted
	case "Failed":
		return download.StatusFailed
	default:
		return download.StatusDownloading
	}
}

func isAPIKeyError(errMsg string) bool {
	lower := strings.ToLower(errMsg)
	return strings.Contains(lower, "api key") || strings.Contains(lower, "apikey")
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
