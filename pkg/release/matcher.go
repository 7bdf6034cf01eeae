package release

import (
	"strconv"
	"strings"

	edlib "github.com/hbollon/go-edlib"
)

// MatchConfidence represents the confidence level of a title match.
type MatchConfidence int

const (
	ConfidenceNone   MatchConfidence = iota // Score < 0.70
	ConfidenceLow                           // Score >= 0.70
	ConfidenceMedium                        // Score >= 0.85
	ConfidenceHigh                          // Score >= 0.95
)

func (c MatchConfidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceLow:
		return "low"
	default:
		return "none"
	}
}

// MatchResult represents the result of a fuzzy title match.
type MatchResult struct {
	Title      string          // The matched candidate title
	Score      float64         // Jaro-Winkler similarity score (0.0-1.0)
	Confidence MatchConfidence // Confidence level based on score
}

// sequelMismatchPenalty is subtracted when the release and a candidate
// disagree on their numeric tokens. Jaro-Winkler is prefix-weighted, so
// "back to the future 2" otherwise scores "Back to the Future" above
// "Back to the Future Part II"; sequel numbers are load-bearing.
const sequelMismatchPenalty = 0.1

// MatchTitle fuzzy-matches a parsed release title against candidate
// library titles, returning the best-scoring candidate (zero-valued
// MatchResult if candidates is empty). Both sides are compared in
// CleanTitle form, so article, accent, punctuation, and Roman-numeral
// variations all land on the same string.
func MatchTitle(title string, candidates []string) MatchResult {
	query := CleanTitle(title)
	var best MatchResult
	for _, cand := range candidates {
		clean := CleanTitle(cand)
		var score float64
		if clean == query {
			score = 1.0
		} else {
			sim, err := edlib.StringsSimilarity(query, clean, edlib.JaroWinkler)
			if err != nil {
				continue
			}
			score = float64(sim)
			if !sameDigitTokens(query, clean) {
				score -= sequelMismatchPenalty
			}
		}
		if score > best.Score {
			best = MatchResult{Title: cand, Score: score, Confidence: confidenceFor(score)}
		}
	}
	return best
}

func confidenceFor(score float64) MatchConfidence {
	switch {
	case score >= 0.95:
		return ConfidenceHigh
	case score >= 0.85:
		return ConfidenceMedium
	case score >= 0.70:
		return ConfidenceLow
	default:
		return ConfidenceNone
	}
}

// sameDigitTokens reports whether a and b contain the same set of purely
// numeric tokens.
func sameDigitTokens(a, b string) bool {
	da, db := digitTokens(a), digitTokens(b)
	if len(da) != len(db) {
		return false
	}
	for tok := range da {
		if _, ok := db[tok]; !ok {
			return false
		}
	}
	return true
}

func digitTokens(s string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, f := range strings.Fields(s) {
		if _, err := strconv.Atoi(f); err == nil {
			tokens[f] = struct{}{}
		}
	}
	return tokens
}
