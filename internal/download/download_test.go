package download

import "testing"

func TestStatusConstants(t *testing.T) {
	statuses := []Status{
		StatusQueued,
		StatusDownloading,
		StatusPaused,
		StatusCompleted,
		StatusImporting,
		StatusFailed,
	}

	for _, s := range statuses {
		if s == "" {
			t.Error("status constant is empty")
		}
	}
}
