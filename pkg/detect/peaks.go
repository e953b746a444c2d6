package detect

import (
	"math"
	"sort"

	"scopemetrics/pkg/filter"
)

// PeakConfig holds the detection configuration for line-like features
// found as local maxima of an intensity profile.
type PeakConfig struct {
	// Sigma is the Gaussian smoothing width in samples applied to the
	// profile before peak search. Zero disables smoothing.
	Sigma float64

	// MinProminence is the minimum peak prominence as a fraction of
	// the profile's intensity range (0-1). Peaks shallower than this
	// are ignored.
	MinProminence float64

	// MinDistance is the minimum separation between peaks in samples.
	// When two peaks are closer, the lower one is discarded.
	MinDistance float64
}

// Peak is a local intensity profile maximum with a sub-pixel position
// along the scan axis.
type Peak struct {
	// Index is the sample index of the peak maximum.
	Index int

	// Position is the sub-pixel peak position: parabolic
	// interpolation around a single-sample maximum, or the midpoint
	// of a flat-topped one.
	Position float64

	// Height is the profile value at the maximum.
	Height float64

	// Prominence is the height of the peak above the higher of the
	// two valleys separating it from larger peaks.
	Prominence float64
}

// Peaks detects local maxima in a 1D intensity profile. Peaks are
// returned ascending by position. Zero detected peaks is not an error.
func Peaks(profile []float64, cfg PeakConfig) ([]Peak, error) {
	if len(profile) < 3 {
		return nil, &DetectionError{Reason: "profile too short for peak detection"}
	}
	for _, v := range profile {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &DetectionError{Reason: "profile contains non-finite intensities"}
		}
	}

	smoothed := filter.SmoothProfile(profile, cfg.Sigma)

	lo, hi := smoothed[0], smoothed[0]
	for _, v := range smoothed {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi <= lo {
		// Flat profile, nothing to detect
		return []Peak{}, nil
	}

	var peaks []Peak
	for i := 1; i < len(smoothed)-1; i++ {
		if smoothed[i] <= smoothed[i-1] {
			continue
		}

		// Walk a flat top to its end so a plateau counts once
		j := i
		for j < len(smoothed)-1 && smoothed[j+1] == smoothed[i] {
			j++
		}
		// A maximum requires a descent after the plateau; a rise or
		// the profile end is not a peak
		if j == len(smoothed)-1 || smoothed[j+1] > smoothed[i] {
			i = j
			continue
		}

		center := (i + j) / 2
		position := subpixelPosition(smoothed, center)
		if j > i {
			// Plateau peaks sit at the plateau midpoint
			position = float64(i+j) / 2
		}

		p := Peak{
			Index:      center,
			Position:   position,
			Height:     smoothed[center],
			Prominence: prominence(smoothed, center),
		}
		i = j
		if p.Prominence < cfg.MinProminence*(hi-lo) {
			continue
		}
		peaks = append(peaks, p)
	}

	peaks = suppressClosePeaks(peaks, cfg.MinDistance)

	sort.Slice(peaks, func(i, j int) bool {
		return peaks[i].Position < peaks[j].Position
	})

	if peaks == nil {
		peaks = []Peak{}
	}
	return peaks, nil
}

// subpixelPosition refines the peak position with a parabola fitted
// through the maximum and its two neighbors.
func subpixelPosition(profile []float64, i int) float64 {
	left := profile[i-1]
	center := profile[i]
	right := profile[i+1]

	denom := left - 2*center + right
	if denom == 0 {
		return float64(i)
	}
	offset := 0.5 * (left - right) / denom
	if offset > 0.5 || offset < -0.5 {
		return float64(i)
	}
	return float64(i) + offset
}

// prominence walks outward from the peak on both sides until a higher
// sample is found, tracking the lowest valley crossed. The prominence
// is the peak height above the higher of the two valleys.
func prominence(profile []float64, i int) float64 {
	height := profile[i]

	leftMin := height
	for j := i - 1; j >= 0; j-- {
		if profile[j] > height {
			break
		}
		if profile[j] < leftMin {
			leftMin = profile[j]
		}
	}

	rightMin := height
	for j := i + 1; j < len(profile); j++ {
		if profile[j] > height {
			break
		}
		if profile[j] < rightMin {
			rightMin = profile[j]
		}
	}

	base := leftMin
	if rightMin > base {
		base = rightMin
	}
	return height - base
}

// suppressClosePeaks drops the lower of any two peaks closer than
// minDist samples, keeping enumeration stable.
func suppressClosePeaks(peaks []Peak, minDist float64) []Peak {
	if minDist <= 0 || len(peaks) < 2 {
		return peaks
	}

	order := make([]int, len(peaks))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := peaks[order[i]], peaks[order[j]]
		if a.Height != b.Height {
			return a.Height > b.Height
		}
		return a.Position < b.Position
	})

	kept := make([]Peak, 0, len(peaks))
	for _, i := range order {
		cand := peaks[i]
		tooClose := false
		for _, k := range kept {
			if math.Abs(cand.Position-k.Position) < minDist {
				tooClose = true
				break
			}
		}
		if !tooClose {
			kept = append(kept, cand)
		}
	}

	return kept
}
