// Package dedupe finds leads that likely describe the same real-world company.
package dedupe

import "strings"

// Similarity returns the normalized edit-distance similarity of a and b in [0,1].
// Comparison is case-insensitive and counts runes; two empty strings are identical.
func Similarity(a, b string) float64 {
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))

	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1.0
	}

	distance := levenshtein(ra, rb)
	return float64(longest-distance) / float64(longest)
}

// levenshtein computes the edit distance between a and b with unit costs.
// The (len(b)+1) x (len(a)+1) table is kept as two rolling rows.
func levenshtein(a, b []rune) int {
	prev := make([]int, len(a)+1)
	curr := make([]int, len(a)+1)
	for i := range prev {
		prev[i] = i
	}

	for j := 1; j <= len(b); j++ {
		curr[0] = j
		for i := 1; i <= len(a); i++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[i] = min(curr[i-1]+1, prev[i]+1, prev[i-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(a)]
}
