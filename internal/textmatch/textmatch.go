// Package textmatch decides whether recognized text contains a target string.
//
// OCR output is noisy: line breaks land in the middle of phrases and single
// characters are misread. Matching therefore normalizes whitespace first and
// can tolerate a bounded number of edits.
package textmatch

import (
	"strings"

	"github.com/arbovm/levenshtein"
)

// Normalize collapses every run of whitespace into a single space and trims
// the result.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Contains reports whether target occurs in text.
//
// With maxEdits == 0 this is a substring test on the normalized strings.
// With maxEdits > 0 any window of text whose Levenshtein distance to target
// is at most maxEdits also counts. An empty target never matches.
func Contains(text, target string, maxEdits int) bool {
	_, ok := Best(text, target, maxEdits)
	return ok
}

// Best returns the smallest edit distance between target and any window of
// text, and whether it is within maxEdits.
func Best(text, target string, maxEdits int) (int, bool) {
	text = Normalize(text)
	target = Normalize(target)
	if target == "" {
		return 0, false
	}
	if strings.Contains(text, target) {
		return 0, true
	}
	if maxEdits <= 0 || text == "" {
		return -1, false
	}

	tr := []rune(text)
	n := len([]rune(target))
	best := -1
	for size := max(n-maxEdits, 1); size <= n+maxEdits; size++ {
		if size > len(tr) {
			break
		}
		for i := 0; i+size <= len(tr); i++ {
			d := levenshtein.Distance(string(tr[i:i+size]), target)
			if best < 0 || d < best {
				best = d
			}
			if best == 0 {
				return 0, true
			}
		}
	}
	// Text shorter than every window size is compared whole.
	if best < 0 {
		best = levenshtein.Distance(string(tr), target)
	}
	return best, best <= maxEdits
}
