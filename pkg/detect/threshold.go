// Package detect locates point-like and line-like features in a single
// image channel. Spot detection combines intensity thresholding,
// connected-component grouping and intensity-weighted sub-pixel
// centroids. Line pattern detection finds local intensity profile peaks
// along a scan axis. Detection is deterministic: features are always
// returned ascending by spatial position, so downstream pairing is
// reproducible.
package detect

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ThresholdStrategy selects how the detection threshold is resolved
// from the channel intensities.
type ThresholdStrategy string

const (
	// ThresholdFixed uses the configured absolute intensity value.
	ThresholdFixed ThresholdStrategy = "fixed"

	// ThresholdPercentile resolves the threshold as an intensity
	// percentile of the channel.
	ThresholdPercentile ThresholdStrategy = "percentile"

	// ThresholdOtsu resolves the threshold automatically by
	// maximizing between-class variance over the intensity histogram.
	ThresholdOtsu ThresholdStrategy = "otsu"
)

// DetectionError reports that the detection configuration cannot
// resolve on the given image, for example a threshold outside the
// intensity range. It is fatal to one channel's detection but does not
// necessarily abort a whole run.
type DetectionError struct {
	Reason string
}

func (e *DetectionError) Error() string {
	return "detect: " + e.Reason
}

// resolveThreshold maps the configured strategy to an absolute
// intensity value within the channel's range.
func resolveThreshold(data []float64, cfg SpotConfig) (float64, error) {
	lo, hi := data[0], data[0]
	for _, v := range data {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	switch cfg.Strategy {
	case ThresholdFixed:
		if cfg.FixedThreshold < lo || cfg.FixedThreshold > hi {
			return 0, &DetectionError{Reason: fmt.Sprintf(
				"no valid threshold: fixed value %g outside intensity range [%g, %g]",
				cfg.FixedThreshold, lo, hi)}
		}
		return cfg.FixedThreshold, nil

	case ThresholdPercentile:
		if cfg.Percentile < 0 || cfg.Percentile > 100 {
			return 0, &DetectionError{Reason: fmt.Sprintf(
				"no valid threshold: percentile %g outside [0, 100]", cfg.Percentile)}
		}
		sorted := make([]float64, len(data))
		copy(sorted, data)
		sort.Float64s(sorted)
		return stat.Quantile(cfg.Percentile/100, stat.Empirical, sorted, nil), nil

	case ThresholdOtsu:
		return otsuThreshold(data, lo, hi), nil

	default:
		return 0, &DetectionError{Reason: fmt.Sprintf(
			"no valid threshold: unknown strategy %q", cfg.Strategy)}
	}
}

// otsuThreshold computes the automatic threshold over a 256-bin
// histogram, picking the bin boundary that maximizes between-class
// variance.
func otsuThreshold(data []float64, lo, hi float64) float64 {
	if hi <= lo {
		return hi
	}

	const numBins = 256
	hist := make([]float64, numBins)
	binWidth := (hi - lo) / float64(numBins)

	for _, v := range data {
		binIdx := int((v - lo) / binWidth)
		if binIdx >= numBins {
			binIdx = numBins - 1
		} else if binIdx < 0 {
			binIdx = 0
		}
		hist[binIdx]++
	}

	total := float64(len(data))
	sumAll := 0.0
	for i, count := range hist {
		sumAll += float64(i) * count
	}

	var (
		sumBelow    float64
		countBelow  float64
		bestVar     float64
		bestBin     int
	)
	for i := 0; i < numBins-1; i++ {
		countBelow += hist[i]
		if countBelow == 0 {
			continue
		}
		countAbove := total - countBelow
		if countAbove == 0 {
			break
		}
		sumBelow += float64(i) * hist[i]

		meanBelow := sumBelow / countBelow
		meanAbove := (sumAll - sumBelow) / countAbove
		betweenVar := countBelow * countAbove * (meanBelow - meanAbove) * (meanBelow - meanAbove)
		if betweenVar > bestVar {
			bestVar = betweenVar
			bestBin = i
		}
	}

	return lo + (float64(bestBin)+1)*binWidth
}

// median returns the median of a slice without modifying it.
func median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
