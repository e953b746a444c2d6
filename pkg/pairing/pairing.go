// Package pairing enumerates the channel pairs compared during
// cross-channel analysis. Enumeration is canonical so that output
// column ordering is reproducible across runs.
package pairing

import (
	"sort"

	"scopemetrics/internal/models"
)

// Pairs returns all unordered, non-self pairs of the given channel
// indices in canonical order: indices sorted ascending, then pairs
// enumerated in lexicographic order of (first, second) with
// first < second. Duplicate indices in the input are collapsed. The
// result is stable across repeated calls with the same channel set.
func Pairs(channels []int) []models.ChannelPair {
	seen := make(map[int]bool, len(channels))
	unique := make([]int, 0, len(channels))
	for _, c := range channels {
		if !seen[c] {
			seen[c] = true
			unique = append(unique, c)
		}
	}
	sort.Ints(unique)

	pairs := make([]models.ChannelPair, 0, len(unique)*(len(unique)-1)/2)
	for i := 0; i < len(unique); i++ {
		for j := i + 1; j < len(unique); j++ {
			pairs = append(pairs, models.ChannelPair{A: unique[i], B: unique[j]})
		}
	}

	return pairs
}
