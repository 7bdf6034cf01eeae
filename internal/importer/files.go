// internal/importer/files.go
package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// findAllMatching walks root recursively collecting files for which match
// returns true, skipping any whose name contains "sample".
func findAllMatching(root string, match func(string) bool) ([]string, error) {
	var found []string

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if !match(path) {
			return nil
		}
		if strings.Contains(strings.ToLower(info.Name()), "sample") {
			return nil
		}
		found = append(found, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return found, nil
}

// FindAllVideos finds all video files in a directory (recursive).
// Skips files with "sample" in the name.
func FindAllVideos(root string) ([]string, error) {
	return findAllMatching(root, IsVideoFile)
}

// FindAllAudio finds all music track files in a directory (recursive),
// used to match a multi-track Album download's files against its Tracks.
func FindAllAudio(root string) ([]string, error) {
	return findAllMatching(root, IsAudioFile)
}

// FindAllDocuments finds all book document files in a directory (recursive).
func FindAllDocuments(root string) ([]string, error) {
	return findAllMatching(root, IsDocumentFile)
}
