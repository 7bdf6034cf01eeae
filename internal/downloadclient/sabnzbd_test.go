package downloadclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/arrgo/internal/download"
)

const (
	modeQueue   = "queue"
	modeHistory = "history"
)

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestSABnzbdClient_AddJob(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "addurl", r.URL.Query().Get("mode"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		assert.Equal(t, "http://example.com/test.nzb", r.URL.Query().Get("name"))
		assert.Equal(t, "movies", r.URL.Query().Get("cat"))

		writeJSON(t, w, map[string]any{"status": true, "nzo_ids": []string{"nzo_abc123"}})
	}))
	defer server.Close()

	client := NewSABnzbdClient(server.URL, "test-key", "", "", "", nil, nil)
	id, err := client.AddJob(context.Background(), download.AddJobRequest{DownloadURL: "http://example.com/test.nzb", Category: "movies"})
	require.NoError(t, err)
	assert.Equal(t, "nzo_abc123", id)
}

func TestSABnzbdClient_AddJob_InvalidKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"status": false, "error": "API Key Incorrect"})
	}))
	defer server.Close()

	client := NewSABnzbdClient(server.URL, "bad-key", "", "", "", nil, nil)
	_, err := client.AddJob(context.Background(), download.AddJobRequest{DownloadURL: "http://example.com/test.nzb"})
	require.ErrorIs(t, err, ErrInvalidAPIKey)
}

func TestSABnzbdClient_AddJob_Unavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewSABnzbdClient(server.URL, "test-key", "", "", "", nil, nil)
	_, err := client.AddJob(context.Background(), download.AddJobRequest{DownloadURL: "http://example.com/test.nzb"})
	require.ErrorIs(t, err, ErrClientUnavailable)
}

func TestSABnzbdClient_GetJobs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, modeQueue, r.URL.Query().Get("mode"))
		writeJSON(t, w, map[string]any{
			"queue": map[string]any{
				"slots": []map[string]any{
					{
						"nzo_id":     "nzo_abc123",
						"filename":   "Test.Movie.2024.1080p",
						"status":     "Downloading",
						"percentage": "45",
						"mb":         "1500",
					},
				},
			},
		})
	}))
	defer server.Close()

	client := NewSABnzbdClient(server.URL, "test-key", "", "", "", nil, nil)
	jobs, err := client.GetJobs(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "nzo_abc123", jobs[0].ExternalID)
	assert.Equal(t, download.StatusDownloading, jobs[0].Status)
	assert.InDelta(t, 45, jobs[0].Progress, 0.001)
}

func TestSABnzbdClient_GetHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, modeHistory, r.URL.Query().Get("mode"))
		writeJSON(t, w, map[string]any{
			"history": map[string]any{
				"slots": []map[string]any{
					{
						"nzo_id":  "nzo_done1",
						"name":    "Completed.Movie.2024",
						"status":  "Completed",
						"bytes":   1572864000,
						"storage": "/downloads/complete/Completed.Movie.2024",
					},
					{
						"nzo_id": "nzo_fail1",
						"name":   "Failed.Movie.2024",
						"status": "Failed",
					},
				},
			},
		})
	}))
	defer server.Close()

	client := NewSABnzbdClient(server.URL, "test-key", "", "", "", nil, nil)
	items, err := client.GetHistory(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "nzo_done1", items[0].ExternalID)
	assert.Equal(t, download.StatusCompleted, items[0].Status)
	assert.Equal(t, "/downloads/complete/Completed.Movie.2024", items[0].OutputPath)
	assert.Equal(t, "nzo_fail1", items[1].ExternalID)
	assert.Equal(t, download.StatusFailed, items[1].Status)
}

func TestSABnzbdClient_GetHistory_RemapsPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"history": map[string]any{
				"slots": []map[string]any{
					{"nzo_id": "nzo_done1", "name": "x", "status": "Completed", "storage": "/mnt/remote/complete/x"},
				},
			},
		})
	}))
	defer server.Close()

	client := NewSABnzbdClient(server.URL, "test-key", "", "/mnt/remote", "/data", nil, nil)
	items, err := client.GetHistory(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "/data/complete/x", items[0].OutputPath)
}

func TestSABnzbdClient_Cancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "queue", r.URL.Query().Get("mode"))
		assert.Equal(t, "delete", r.URL.Query().Get("name"))
		assert.Equal(t, "nzo_abc123", r.URL.Query().Get("value"))
		writeJSON(t, w, map[string]any{"status": true})
	}))
	defer server.Close()

	client := NewSABnzbdClient(server.URL, "test-key", "", "", "", nil, nil)
	err := client.Cancel(context.Background(), "nzo_abc123", false)
	require.NoError(t, err)
}
