package geometry

import (
	"errors"
	"math"
	"testing"

	"scopemetrics/internal/models"
)

// TestDistanceIdentity verifies that the distance from a point to
// itself is exactly zero
func TestDistanceIdentity(t *testing.T) {
	points := []Point{
		{Z: 0, Y: 0, X: 0},
		{Z: 1.5, Y: -2.25, X: 3.125},
		{Z: 1e6, Y: 1e-6, X: 42},
	}

	for _, p := range points {
		if d := Distance3D(p, p); d != 0 {
			t.Errorf("Expected Distance3D(p, p)=0, got %g for %+v", d, p)
		}
		if d := LateralDistance(p, p); d != 0 {
			t.Errorf("Expected LateralDistance(p, p)=0, got %g for %+v", d, p)
		}
		if d := AxialDistance(p, p); d != 0 {
			t.Errorf("Expected AxialDistance(p, p)=0, got %g for %+v", d, p)
		}
	}
}

// TestDistanceSymmetry verifies distance(a, b) == distance(b, a)
func TestDistanceSymmetry(t *testing.T) {
	a := Point{Z: 1, Y: 2, X: 3}
	b := Point{Z: -4, Y: 5.5, X: 0.25}

	if Distance3D(a, b) != Distance3D(b, a) {
		t.Errorf("Expected symmetric 3D distance, got %g and %g",
			Distance3D(a, b), Distance3D(b, a))
	}
	if LateralDistance(a, b) != LateralDistance(b, a) {
		t.Errorf("Expected symmetric lateral distance, got %g and %g",
			LateralDistance(a, b), LateralDistance(b, a))
	}
}

// TestTriangleInequality verifies the triangle inequality for a set of
// point triples
func TestTriangleInequality(t *testing.T) {
	triples := [][3]Point{
		{{0, 0, 0}, {1, 1, 1}, {2, 0, 1}},
		{{1, 2, 3}, {-1, -2, -3}, {0.5, 0.5, 0.5}},
		{{0, 0, 0}, {0, 0, 5}, {0, 5, 0}},
	}

	const eps = 1e-12
	for _, tr := range triples {
		ab := Distance3D(tr[0], tr[1])
		bc := Distance3D(tr[1], tr[2])
		ac := Distance3D(tr[0], tr[2])
		if ac > ab+bc+eps {
			t.Errorf("Triangle inequality violated: d(a,c)=%g > d(a,b)+d(b,c)=%g", ac, ab+bc)
		}
	}
}

// TestDistanceVector verifies the generic vector distance and its
// known values
func TestDistanceVector(t *testing.T) {
	d, err := Distance([]float64{0, 0, 0}, []float64{3, 4, 0})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if math.Abs(d-5) > 1e-12 {
		t.Errorf("Expected distance 5, got %g", d)
	}

	// Two-axis vectors are also valid as long as both sides agree
	d, err = Distance([]float64{1, 1}, []float64{1, 1})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if d != 0 {
		t.Errorf("Expected distance 0, got %g", d)
	}
}

// TestDimensionMismatch verifies that mismatched axis counts fail with
// a DimensionMismatchError
func TestDimensionMismatch(t *testing.T) {
	_, err := Distance([]float64{1, 2, 3}, []float64{1, 2})
	if err == nil {
		t.Fatal("Expected an error for mismatched axis counts, got nil")
	}

	var mismatch *DimensionMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("Expected DimensionMismatchError, got %T: %v", err, err)
	}
	if mismatch.LenA != 3 || mismatch.LenB != 2 {
		t.Errorf("Expected mismatch lengths 3 and 2, got %d and %d",
			mismatch.LenA, mismatch.LenB)
	}
}

// TestToPhysical verifies pixel to physical space conversion using
// per-axis voxel sizes
func TestToPhysical(t *testing.T) {
	f := models.Feature{Z: 2, Y: 10, X: 4}
	cal := models.Calibration{VoxelSizeZ: 0.125, VoxelSizeY: 0.39, VoxelSizeX: 0.39}

	p := ToPhysical(f, cal)
	if math.Abs(p.Z-0.25) > 1e-12 {
		t.Errorf("Expected Z=0.25, got %g", p.Z)
	}
	if math.Abs(p.Y-3.9) > 1e-12 {
		t.Errorf("Expected Y=3.9, got %g", p.Y)
	}
	if math.Abs(p.X-1.56) > 1e-12 {
		t.Errorf("Expected X=1.56, got %g", p.X)
	}
}
