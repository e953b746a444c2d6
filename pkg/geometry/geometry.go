// Package geometry provides pure functions for converting feature
// positions from pixel space to physical space and for computing
// distances between physical-space points. All computations use
// double-precision floating point and assume the caller supplies voxel
// sizes in consistent units.
package geometry

import (
	"fmt"
	"math"

	"scopemetrics/internal/models"
)

// Point is a position in physical space, in microns.
type Point struct {
	Z float64
	Y float64
	X float64
}

// DimensionMismatchError reports a distance computation over coordinate
// vectors of different axis counts. It signals a contract violation
// between pipeline components, not a user input error.
type DimensionMismatchError struct {
	LenA int
	LenB int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("geometry: dimension mismatch: %d vs %d axes", e.LenA, e.LenB)
}

// ToPhysical converts a feature centroid from pixel space to physical
// space by scaling each axis by its voxel size.
func ToPhysical(f models.Feature, cal models.Calibration) Point {
	return Point{
		Z: f.Z * cal.VoxelSizeZ,
		Y: f.Y * cal.VoxelSizeY,
		X: f.X * cal.VoxelSizeX,
	}
}

// Distance returns the Euclidean norm between two coordinate vectors
// sharing the same axis count. It fails with a DimensionMismatchError
// when the axis counts differ.
func Distance(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, &DimensionMismatchError{LenA: len(a), LenB: len(b)}
	}
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// Distance3D returns the full three-dimensional Euclidean distance
// between two physical-space points.
func Distance3D(a, b Point) float64 {
	dz := a.Z - b.Z
	dy := a.Y - b.Y
	dx := a.X - b.X
	return math.Sqrt(dz*dz + dy*dy + dx*dx)
}

// LateralDistance returns the axis-restricted distance in the lateral
// (XY) plane, ignoring the depth axis. Callers choose between this and
// Distance3D according to which is semantically relevant.
func LateralDistance(a, b Point) float64 {
	dy := a.Y - b.Y
	dx := a.X - b.X
	return math.Sqrt(dy*dy + dx*dx)
}

// AxialDistance returns the absolute distance along the depth axis.
func AxialDistance(a, b Point) float64 {
	return math.Abs(a.Z - b.Z)
}
