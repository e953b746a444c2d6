// Package aggregate reduces detected features into measurement
// collections and summary statistics. Cross-channel distance
// computation supports two explicit policies: the complete bipartite
// permutation set and greedy nearest-neighbor matching. The policy is
// always named by the caller, never inferred.
package aggregate

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"scopemetrics/internal/models"
	"scopemetrics/pkg/geometry"
)

// DistanceMode names the cross-channel distance policy.
type DistanceMode string

const (
	// ModePermutation computes every pairwise distance between the
	// features of the two channels (complete bipartite set).
	ModePermutation DistanceMode = "permutation"

	// ModeNearestNeighbor matches each feature of the first channel
	// to its closest unmatched feature of the second channel, greedy
	// by ascending distance.
	ModeNearestNeighbor DistanceMode = "nearest_neighbor"
)

// PairDistance is one distance measurement between a feature of
// channel A and a feature of channel B, in microns.
type PairDistance struct {
	// SpotA and SpotB index the features within their respective
	// channel's detection sequence.
	SpotA int
	SpotB int

	// Distance3D is the full Euclidean distance.
	Distance3D float64

	// DistanceZ is the axis-restricted distance along the depth axis.
	DistanceZ float64

	// DistanceLateral is the axis-restricted distance in the XY
	// plane.
	DistanceLateral float64
}

// PairDistances computes the distance measurements between the
// features of two channels under the given policy. Features flagged as
// touching the image border are excluded. Inputs with no usable
// features yield an empty set, not an error.
func PairDistances(a, b []models.Feature, cal models.Calibration, mode DistanceMode) ([]PairDistance, error) {
	switch mode {
	case ModePermutation:
		return permutationDistances(a, b, cal), nil
	case ModeNearestNeighbor:
		return nearestNeighborDistances(a, b, cal), nil
	default:
		return nil, fmt.Errorf("aggregate: unknown distance mode %q", mode)
	}
}

// physicalPoints converts non-border features to physical space,
// keeping their original indices.
func physicalPoints(features []models.Feature, cal models.Calibration) ([]geometry.Point, []int) {
	points := make([]geometry.Point, 0, len(features))
	indices := make([]int, 0, len(features))
	for i, f := range features {
		if f.OnBorder {
			continue
		}
		points = append(points, geometry.ToPhysical(f, cal))
		indices = append(indices, i)
	}
	return points, indices
}

func permutationDistances(a, b []models.Feature, cal models.Calibration) []PairDistance {
	pointsA, idxA := physicalPoints(a, cal)
	pointsB, idxB := physicalPoints(b, cal)

	out := make([]PairDistance, 0, len(pointsA)*len(pointsB))
	for i, pa := range pointsA {
		for j, pb := range pointsB {
			out = append(out, PairDistance{
				SpotA:           idxA[i],
				SpotB:           idxB[j],
				Distance3D:      geometry.Distance3D(pa, pb),
				DistanceZ:       geometry.AxialDistance(pa, pb),
				DistanceLateral: geometry.LateralDistance(pa, pb),
			})
		}
	}
	return out
}

// nearestNeighborDistances greedily pairs features by ascending 3D
// distance until one side is exhausted. Ties break on the candidate
// indices, which is stable because detection order is deterministic.
func nearestNeighborDistances(a, b []models.Feature, cal models.Calibration) []PairDistance {
	candidates := permutationDistances(a, b, cal)
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Distance3D != candidates[j].Distance3D {
			return candidates[i].Distance3D < candidates[j].Distance3D
		}
		if candidates[i].SpotA != candidates[j].SpotA {
			return candidates[i].SpotA < candidates[j].SpotA
		}
		return candidates[i].SpotB < candidates[j].SpotB
	})

	usedA := make(map[int]bool)
	usedB := make(map[int]bool)
	out := make([]PairDistance, 0)
	for _, c := range candidates {
		if usedA[c.SpotA] || usedB[c.SpotB] {
			continue
		}
		usedA[c.SpotA] = true
		usedB[c.SpotB] = true
		out = append(out, c)
	}

	// Report matches in feature order of channel A
	sort.Slice(out, func(i, j int) bool { return out[i].SpotA < out[j].SpotA })
	return out
}

// Summary holds the reduction of a measurement collection. When Count
// is zero the statistics are undefined and each field carries NaN as a
// documented sentinel; callers must test Undefined before using the
// values.
type Summary struct {
	Count  int
	Mean   float64
	Median float64
	StdDev float64
}

// Undefined reports whether the summary was computed over an empty
// collection.
func (s Summary) Undefined() bool {
	return s.Count == 0
}

// Summarize reduces a measurement collection to mean, median and
// population standard deviation. An empty collection yields the
// undefined sentinel summary, never a numeric error.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{
			Count:  0,
			Mean:   math.NaN(),
			Median: math.NaN(),
			StdDev: math.NaN(),
		}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return Summary{
		Count:  len(values),
		Mean:   stat.Mean(values, nil),
		Median: medianSorted(sorted),
		// Population standard deviation via the second central moment
		StdDev: math.Sqrt(stat.Moment(2, values, nil)),
	}
}

// medianSorted returns the median of an ascending slice, averaging the
// two middle elements for even counts.
func medianSorted(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// IntensityExtremes returns the indices of the features with the
// highest and lowest integrated intensity. Both are -1 when the input
// is empty.
func IntensityExtremes(features []models.Feature) (maxIdx, minIdx int) {
	maxIdx, minIdx = -1, -1
	for i, f := range features {
		if maxIdx == -1 || f.IntegratedIntensity > features[maxIdx].IntegratedIntensity {
			maxIdx = i
		}
		if minIdx == -1 || f.IntegratedIntensity < features[minIdx].IntegratedIntensity {
			minIdx = i
		}
	}
	return maxIdx, minIdx
}

// Deciles returns the 0th through 90th percentile of the channel
// intensities normalized by the channel maximum. A channel with a
// non-positive maximum yields all zeros.
func Deciles(data []float64) []float64 {
	out := make([]float64, 10)
	if len(data) == 0 {
		return out
	}

	max := data[0]
	for _, v := range data {
		if v > max {
			max = v
		}
	}
	if max <= 0 {
		return out
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	for i := 0; i < 10; i++ {
		out[i] = stat.Quantile(float64(i)/10, stat.Empirical, sorted, nil) / max
	}
	return out
}

// AdjacentSpacings returns the differences between consecutive sorted
// positions, used for line pattern spacing statistics.
func AdjacentSpacings(positions []float64) []float64 {
	if len(positions) < 2 {
		return nil
	}
	sorted := make([]float64, len(positions))
	copy(sorted, positions)
	sort.Float64s(sorted)

	out := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		out = append(out, sorted[i]-sorted[i-1])
	}
	return out
}
