package filter

import (
	"math"
	"testing"

	"scopemetrics/internal/models"
)

// TestGaussianSmoothConstantField verifies that smoothing a constant
// field leaves it unchanged
func TestGaussianSmoothConstantField(t *testing.T) {
	ch := models.Channel{
		Data:   make([]float64, 8*8),
		Depth:  1,
		Height: 8,
		Width:  8,
	}
	for i := range ch.Data {
		ch.Data[i] = 7.5
	}

	out := GaussianSmooth(ch, 1.0)
	for i, v := range out.Data {
		if math.Abs(v-7.5) > 1e-9 {
			t.Fatalf("Expected constant value 7.5 at index %d, got %g", i, v)
		}
	}
}

// TestGaussianSmoothPreservesInput verifies that the input channel is
// not modified
func TestGaussianSmoothPreservesInput(t *testing.T) {
	ch := models.Channel{
		Data:   make([]float64, 5*5),
		Depth:  1,
		Height: 5,
		Width:  5,
	}
	ch.Data[2*5+2] = 100 // single hot pixel

	out := GaussianSmooth(ch, 1.0)
	if ch.Data[2*5+2] != 100 {
		t.Errorf("Expected input to stay unchanged, got %g at center", ch.Data[2*5+2])
	}
	if out.Data[2*5+2] >= 100 {
		t.Errorf("Expected smoothed peak below 100, got %g", out.Data[2*5+2])
	}
	if out.Data[2*5+1] <= 0 {
		t.Errorf("Expected smoothing to spread intensity to neighbors, got %g", out.Data[2*5+1])
	}
}

// TestGaussianSmoothZeroSigma verifies that a non-positive sigma is a
// no-op
func TestGaussianSmoothZeroSigma(t *testing.T) {
	ch := models.Channel{
		Data:   []float64{1, 2, 3, 4},
		Depth:  1,
		Height: 2,
		Width:  2,
	}

	out := GaussianSmooth(ch, 0)
	for i := range ch.Data {
		if out.Data[i] != ch.Data[i] {
			t.Errorf("Expected no-op at index %d, got %g want %g", i, out.Data[i], ch.Data[i])
		}
	}
}

// TestSmoothProfile verifies 1D profile smoothing retains the total
// ordering of a single dominant peak
func TestSmoothProfile(t *testing.T) {
	profile := []float64{0, 0, 1, 10, 1, 0, 0}

	out := SmoothProfile(profile, 0.8)
	maxIdx := 0
	for i, v := range out {
		if v > out[maxIdx] {
			maxIdx = i
		}
	}
	if maxIdx != 3 {
		t.Errorf("Expected smoothed maximum at index 3, got %d", maxIdx)
	}
	if out[3] >= 10 {
		t.Errorf("Expected smoothed peak below 10, got %g", out[3])
	}
}
