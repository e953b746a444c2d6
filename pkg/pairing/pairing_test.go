package pairing

import (
	"testing"
)

// TestPairsCount verifies the N*(N-1)/2 pair count for increasing
// channel set sizes
func TestPairsCount(t *testing.T) {
	for n := 2; n <= 6; n++ {
		channels := make([]int, n)
		for i := range channels {
			channels[i] = i
		}

		pairs := Pairs(channels)
		expected := n * (n - 1) / 2
		if len(pairs) != expected {
			t.Errorf("Expected %d pairs for %d channels, got %d", expected, n, len(pairs))
		}
	}
}

// TestPairsNoSelfNoDuplicates verifies pair invariants: no self-pairs
// and no duplicate unordered pairs
func TestPairsNoSelfNoDuplicates(t *testing.T) {
	pairs := Pairs([]int{3, 0, 2, 1})

	seen := make(map[[2]int]bool)
	for _, p := range pairs {
		if p.A == p.B {
			t.Errorf("Found self-pair (%d, %d)", p.A, p.B)
		}
		if p.A >= p.B {
			t.Errorf("Pair (%d, %d) not in canonical order", p.A, p.B)
		}
		key := [2]int{p.A, p.B}
		if seen[key] {
			t.Errorf("Duplicate pair (%d, %d)", p.A, p.B)
		}
		seen[key] = true
	}
}

// TestPairsStableOrder verifies that enumeration order is identical
// across calls regardless of input order
func TestPairsStableOrder(t *testing.T) {
	first := Pairs([]int{2, 0, 1})
	second := Pairs([]int{1, 2, 0})

	if len(first) != len(second) {
		t.Fatalf("Expected identical lengths, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("Pair %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}

	// Canonical enumeration for three channels
	expected := [][2]int{{0, 1}, {0, 2}, {1, 2}}
	for i, p := range first {
		if p.A != expected[i][0] || p.B != expected[i][1] {
			t.Errorf("Expected pair %v at index %d, got (%d, %d)", expected[i], i, p.A, p.B)
		}
	}
}

// TestPairsDegenerate verifies empty and single-channel inputs yield
// no pairs
func TestPairsDegenerate(t *testing.T) {
	if pairs := Pairs(nil); len(pairs) != 0 {
		t.Errorf("Expected 0 pairs for empty input, got %d", len(pairs))
	}
	if pairs := Pairs([]int{0}); len(pairs) != 0 {
		t.Errorf("Expected 0 pairs for one channel, got %d", len(pairs))
	}
	if pairs := Pairs([]int{1, 1, 1}); len(pairs) != 0 {
		t.Errorf("Expected 0 pairs for duplicate channel ids, got %d", len(pairs))
	}
}
