package scanner

import (
	"regexp"
	"strconv"
	"strings"

	edlib "github.com/hbollon/go-edlib"

	"github.com/vmunix/arrgo/internal/library"
)

// kind identifies which parsing branch a folder/history-item name fell into.
type kind string

const (
	kindMovie   kind = "movie"
	kindEpisode kind = "episode"
	kindAlbum   kind = "album"
	kindBook    kind = "book"
)

// parsedName is what parseFolderName extracts from a completed download's
// title/folder name, before it is matched against the library.
type parsedName struct {
	kind    kind
	primary string // show title / artist name / book title / movie title
	second  string // album title / author name, when applicable
	year    int
	season  int
	episode int
}

var (
	tvPattern       = regexp.MustCompile(`(?i)^(.+?)\s*(?:S(\d+)E(\d+)|(\d+)x(\d+))`)
	musicPattern    = regexp.MustCompile(`(?i)^(.+?) - (.+?)(?:\s+(?:CD|LP|EP|FLAC|MP3|WEB|Vinyl|\d{4}))`)
	bookByPattern   = regexp.MustCompile(`(?i)^(.+?)\s+by\s+(.+)$`)
	bookDashPattern = regexp.MustCompile(`^(.+?) - (.+)$`)

	qualityOrSourceToken = regexp.MustCompile(`(?i)^(\d{3,4}p|2160p|4k|uhd|bluray|blu-ray|bdrip|brrip|bdremux|remux|web-?dl|webrip|web-?rip|hdtv|hdcam|camrip|hdts|telesync|x264|x265|h264|h265|hevc|avc|dvdrip|xvid|dts|dts-hd|truehd|atmos|ddp5\.1|aac)`)
	fourDigitYear        = regexp.MustCompile(`^(19|20)\d{2}$`)

	ebookTokens = []string{"epub", "mobi", "pdf", "audiobook", "ebook"}
)

// parseFolderName tries the parse patterns in fallback order: TV
// (most specific, season/episode markers), then music (" - " separator
// followed by a format/year token), then book (gated on an ebook-format
// token being present anywhere in the name), then a movie fallback that
// stops the title at the first quality/source token.
func parseFolderName(name string) parsedName {
	if m := tvPattern.FindStringSubmatch(name); m != nil {
		show := strings.TrimSpace(m[1])
		var season, episode int
		if m[2] != "" && m[3] != "" {
			season, _ = strconv.Atoi(m[2])
			episode, _ = strconv.Atoi(m[3])
		} else {
			season, _ = strconv.Atoi(m[4])
			episode, _ = strconv.Atoi(m[5])
		}
		return parsedName{kind: kindEpisode, primary: show, season: season, episode: episode}
	}

	if m := musicPattern.FindStringSubmatch(name); m != nil {
		return parsedName{kind: kindAlbum, primary: strings.TrimSpace(m[1]), second: strings.TrimSpace(m[2])}
	}

	if containsEbookToken(name) {
		if m := bookByPattern.FindStringSubmatch(name); m != nil {
			return parsedName{kind: kindBook, primary: strings.TrimSpace(m[1]), second: strings.TrimSpace(m[2])}
		}
		if m := bookDashPattern.FindStringSubmatch(name); m != nil {
			return parsedName{kind: kindBook, primary: strings.TrimSpace(m[1]), second: strings.TrimSpace(m[2])}
		}
	}

	title, year := parseMovieFallback(name)
	return parsedName{kind: kindMovie, primary: title, year: year}
}

func containsEbookToken(name string) bool {
	lower := strings.ToLower(name)
	for _, tok := range ebookTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// parseMovieFallback takes the title as everything before the first
// quality/source token, and the year as the first standalone 4-digit token
// found anywhere in the name.
func parseMovieFallback(name string) (title string, year int) {
	words := strings.Fields(strings.NewReplacer(".", " ", "_", " ").Replace(name))
	cut := len(words)
	for i, w := range words {
		if qualityOrSourceToken.MatchString(w) {
			cut = i
			break
		}
	}
	for _, w := range words {
		if fourDigitYear.MatchString(w) {
			year, _ = strconv.Atoi(w)
			break
		}
	}
	return strings.TrimSpace(strings.Join(words[:cut], " ")), year
}

// normalizeForFuzzy strips everything but lowercase letters/digits, the
// alphabet the fuzzy match compares over.
func normalizeForFuzzy(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// fuzzyMatch reports whether a and b are "the same title":
// containment either way, or, for names short enough that
// Levenshtein distance is a meaningful signal — a distance-to-length ratio
// under 0.30.
func fuzzyMatch(a, b string) bool {
	na, nb := normalizeForFuzzy(a), normalizeForFuzzy(b)
	if na == "" || nb == "" {
		return false
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return true
	}
	if len(na) >= 20 || len(nb) >= 20 {
		return false
	}
	dist, err := edlib.StringsSimilarity(na, nb, edlib.Levenshtein)
	if err != nil {
		return false
	}
	// StringsSimilarity returns a 0..1 normalized similarity (1 = identical),
	// the inverse of a distance ratio: keep anything at or above 0.70
	// similarity (distance ratio under 0.30).
	return dist >= 0.70
}

func yearWithinOne(a, b int) bool {
	if a <= 0 || b <= 0 {
		return true
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff <= 1
}

// match identifies which wanted library item an orphaned completed download
// corresponds to. Exactly one of the ID fields is set.
type match struct {
	MovieID   *int64
	TvShowID  *int64
	EpisodeID *int64
	AlbumID   *int64
	BookID    *int64
}

type wantedSet struct {
	movies   []*library.Movie
	episodes []*library.WantedEpisode
	albums   []*library.WantedAlbum
	books    []*library.WantedBook
}

// matchOrphan parses title and tries to fuzzy-match it against the wanted
// set appropriate to the parsed kind, returning nil if nothing matches.
func matchOrphan(title string, wanted wantedSet) *match {
	p := parseFolderName(title)
	switch p.kind {
	case kindEpisode:
		for _, e := range wanted.episodes {
			if fuzzyMatch(p.primary, e.ShowTitle) && p.season == e.Season && p.episode == e.Episode.Episode {
				return &match{TvShowID: &e.TvShowID, EpisodeID: &e.ID}
			}
		}
	case kindAlbum:
		for _, a := range wanted.albums {
			if fuzzyMatch(p.primary, a.ArtistName) && fuzzyMatch(p.second, a.Title) {
				return &match{AlbumID: &a.ID}
			}
		}
	case kindBook:
		for _, b := range wanted.books {
			if fuzzyMatch(p.primary, b.Title) && fuzzyMatch(p.second, b.AuthorName) {
				return &match{BookID: &b.ID}
			}
		}
	case kindMovie:
		for _, m := range wanted.movies {
			if fuzzyMatch(p.primary, m.Title) && yearWithinOne(p.year, m.Year) {
				return &match{MovieID: &m.ID}
			}
		}
	}
	return nil
}
