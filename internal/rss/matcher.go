package rss

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/vmunix/arrgo/pkg/release"
)

// qualityOrSourceToken recognizes the token immediately following a
// matched movie title as a plausible release-name continuation rather
// than an unrelated longer title that merely happens to contain the
// wanted title as a substring.
var qualityOrSourceToken = regexp.MustCompile(`(?i)^(\d{3,4}p|2160p|4k|uhd|bluray|blu-ray|bdrip|brrip|bdremux|remux|web-?dl|webrip|web-?rip|hdtv|hdcam|camrip|hdts|telesync|x264|x265|h264|h265|hevc|avc|dvdrip|xvid|dts|dts-hd|truehd|atmos|ddp5\.1|aac)$`)

var fourDigitYear = regexp.MustCompile(`^(19|20)\d{2}$`)

// matchMovie reports whether a release looks like the wanted movie: the
// normalized title must contain the wanted normalized title, the wanted
// year (if any) must appear somewhere in the normalized title, and the
// text immediately following the matched title must be empty, a 4-digit
// year, or a recognized quality/source token.
func matchMovie(releaseTitle, wantedTitle string, wantedYear int) bool {
	normRelease := release.Normalize(releaseTitle)
	normWanted := release.Normalize(wantedTitle)
	if normWanted == "" {
		return false
	}

	idx := strings.Index(normRelease, normWanted)
	if idx < 0 {
		return false
	}

	if wantedYear > 0 && !strings.Contains(normRelease, strconv.Itoa(wantedYear)) {
		return false
	}

	rest := strings.TrimSpace(normRelease[idx+len(normWanted):])
	if rest == "" {
		return true
	}
	token := strings.Fields(rest)[0]
	return fourDigitYear.MatchString(token) || qualityOrSourceToken.MatchString(token)
}

// seasonEpisodeToken formats season/episode as the zero-padded "sNNeMM"
// literal the episode match rule requires.
func seasonEpisodeToken(season, episode int) string {
	return fmt.Sprintf("s%02de%02d", season, episode)
}

// matchEpisode reports whether the normalized release title contains the
// show's normalized title plus the literal sNNeMM token.
func matchEpisode(releaseTitle, showTitle string, season, episode int) bool {
	normRelease := release.Normalize(releaseTitle)
	normShow := release.Normalize(showTitle)
	if normShow == "" || !strings.Contains(normRelease, normShow) {
		return false
	}
	return strings.Contains(normRelease, seasonEpisodeToken(season, episode))
}

// matchAlbum reports whether the normalized release title contains both
// the artist and album normalized titles.
func matchAlbum(releaseTitle, artistName, albumTitle string) bool {
	normRelease := release.Normalize(releaseTitle)
	normArtist := release.Normalize(artistName)
	normAlbum := release.Normalize(albumTitle)
	if normArtist == "" || normAlbum == "" {
		return false
	}
	return strings.Contains(normRelease, normArtist) && strings.Contains(normRelease, normAlbum)
}

// matchBook reports whether the normalized release title contains both
// the author and book normalized titles.
func matchBook(releaseTitle, authorName, bookTitle string) bool {
	normRelease := release.Normalize(releaseTitle)
	normAuthor := release.Normalize(authorName)
	normBook := release.Normalize(bookTitle)
	if normAuthor == "" || normBook == "" {
		return false
	}
	return strings.Contains(normRelease, normAuthor) && strings.Contains(normRelease, normBook)
}
