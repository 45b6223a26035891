// Package suggest finds near matches for mistyped words using Levenshtein
// distance.
package suggest

import (
	"slices"
	"strings"
)

// levenshtein calculates the edit distance between two strings in runes.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(
				prev[j]+1,      // deletion
				cur[j-1]+1,     // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

// Closest returns up to n candidates within a few edits of word, best first.
// Matching is case-insensitive; an exact match returns nothing.
func Closest(word string, candidates []string, n int) []string {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return nil
	}

	type scored struct {
		word string
		dist int
	}
	var matches []scored
	maxDist := max(2, len([]rune(word))/3)
	for _, c := range candidates {
		lc := strings.ToLower(c)
		if lc == word {
			return nil
		}
		if d := levenshtein(word, lc); d <= maxDist || strings.HasPrefix(lc, word) {
			matches = append(matches, scored{c, d})
		}
	}
	slices.SortStableFunc(matches, func(a, b scored) int { return a.dist - b.dist })

	var out []string
	for i := 0; i < len(matches) && i < n; i++ {
		out = append(out, matches[i].word)
	}
	return out
}
