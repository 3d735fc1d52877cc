package textutil

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases, trims, and NFC-normalizes a string for comparison.
func Normalize(value string) string {
	return norm.NFC.String(strings.ToLower(strings.TrimSpace(value)))
}

// LevenshteinDistance returns the minimum number of single-rune edits
// (insertions, deletions, substitutions) required to transform a into b.
func LevenshteinDistance(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			deletion := prev[j] + 1
			insertion := curr[j-1] + 1
			substitution := prev[j-1] + cost

			min := deletion
			if insertion < min {
				min = insertion
			}
			if substitution < min {
				min = substitution
			}
			curr[j] = min
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// Similarity returns the normalized Levenshtein similarity between a and b.
// Two empty strings are considered identical.
func Similarity(a, b string) float64 {
	la := len([]rune(a))
	lb := len([]rune(b))
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	if maxLen == 0 {
		return 1.0
	}
	distance := LevenshteinDistance(a, b)
	return float64(maxLen-distance) / float64(maxLen)
}
