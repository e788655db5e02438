package reconcile

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/ppiankov/cultura/internal/model"
)

const (
	sequenceWeight = 0.6
	wordWeight     = 0.4
)

// FuzzyMatchScore blends the sequence ratio of the lowercased strings with the
// Jaccard index of their word sets. When either word set is empty only the
// sequence ratio is used. Accents are significant.
func FuzzyMatchScore(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if b < a {
		// matcher tie-breaking depends on argument order
		a, b = b, a
	}

	seq := sequenceRatio(a, b)

	wordsA, wordsB := wordSet(a), wordSet(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return seq
	}

	shared := 0
	for w := range wordsA {
		if _, ok := wordsB[w]; ok {
			shared++
		}
	}
	union := len(wordsA) + len(wordsB) - shared
	return seq*sequenceWeight + float64(shared)/float64(union)*wordWeight
}

func sequenceRatio(a, b string) float64 {
	return difflib.NewMatcher(splitRunes(a), splitRunes(b)).Ratio()
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		set[w] = struct{}{}
	}
	return set
}

// FindBestMatch returns the corpus element whose title scores highest against
// title. Ties keep the earliest element. An empty corpus yields (nil, 0).
func FindBestMatch(title string, corpus []model.VerifiedElement) (*model.VerifiedElement, float64) {
	var best *model.VerifiedElement
	bestScore := 0.0
	for i := range corpus {
		score := FuzzyMatchScore(title, corpus[i].Title)
		if score > bestScore {
			best = &corpus[i]
			bestScore = score
		}
	}
	return best, bestScore
}
