// internal/importer/track_matcher.go
package importer

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/vmunix/arrgo/internal/library"
)

// trackNumberRegex matches a leading track number, the way most rippers
// and scene groups prefix audio filenames: "01 - Track.flac",
// "01. Track.flac", "01_Track.flac".
var trackNumberRegex = regexp.MustCompile(`^(\d{1,3})[\s._-]`)

// TrackMatch represents a matched file-to-track pairing.
type TrackMatch struct {
	FilePath string
	Track    *library.Track
}

// MatchFileToTrack finds the track that matches a filename's leading track
// number. Returns error if the filename doesn't carry one or no track in
// the album has that number.
func MatchFileToTrack(filename string, tracks []*library.Track) (*library.Track, error) {
	base := filepath.Base(filename)
	m := trackNumberRegex.FindStringSubmatch(base)
	if m == nil {
		return nil, fmt.Errorf("cannot parse track number from %s", filename)
	}
	num, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, fmt.Errorf("cannot parse track number from %s", filename)
	}

	for _, tr := range tracks {
		if tr.Number == num {
			return tr, nil
		}
	}
	return nil, fmt.Errorf("no matching track for number %d in %s", num, filename)
}

// MatchFilesToTracks matches an Album download's audio files to its Track
// rows. Returns matched pairs and a list of unmatched files (e.g. booklets
// or files the ripper didn't number).
func MatchFilesToTracks(files []string, tracks []*library.Track) ([]TrackMatch, []string) {
	matches := make([]TrackMatch, 0, len(files))
	var unmatched []string

	for _, f := range files {
		tr, err := MatchFileToTrack(f, tracks)
		if err != nil {
			unmatched = append(unmatched, f)
			continue
		}
		matches = append(matches, TrackMatch{FilePath: f, Track: tr})
	}

	return matches, unmatched
}
