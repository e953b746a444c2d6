package detect

import (
	"sort"

	"scopemetrics/internal/models"
	"scopemetrics/pkg/filter"
)

// SpotConfig holds the detection configuration for point-like features.
type SpotConfig struct {
	// Strategy selects the threshold resolution strategy.
	Strategy ThresholdStrategy

	// FixedThreshold is the absolute intensity for ThresholdFixed.
	FixedThreshold float64

	// Percentile is the intensity percentile (0-100) for
	// ThresholdPercentile.
	Percentile float64

	// Sigma is the Gaussian pre-smoothing width in pixels applied to
	// the segmentation copy of the channel. Zero disables smoothing.
	// Intensity measures are always taken from the raw channel.
	Sigma float64

	// MinPixels discards candidate regions smaller than this number
	// of voxels.
	MinPixels int

	// MinSeparation is the minimum centroid distance in pixels
	// between two features. When two candidates are closer, the one
	// with the lower integrated intensity is discarded.
	MinSeparation float64
}

// Spots detects point-like features in a single channel and returns
// them ordered ascending by spatial position (z, then y, then x).
// Running detection twice on the same input yields identical sequences.
// Zero detected features is not an error and returns an empty slice.
func Spots(ch models.Channel, channelIdx int, cfg SpotConfig) ([]models.Feature, error) {
	if ch.Empty() {
		return nil, &DetectionError{Reason: "empty channel"}
	}
	if !ch.Finite() {
		return nil, &DetectionError{Reason: "channel contains non-finite intensities"}
	}

	segmented := filter.GaussianSmooth(ch, cfg.Sigma)

	threshold, err := resolveThreshold(segmented.Data, cfg)
	if err != nil {
		return nil, err
	}

	regions := labelRegions(segmented, threshold)

	features := make([]models.Feature, 0, len(regions))
	for _, region := range regions {
		if len(region) < cfg.MinPixels {
			continue
		}
		features = append(features, regionFeature(ch, channelIdx, region))
	}

	features = suppressClose(features, cfg.MinSeparation)

	sort.Slice(features, func(i, j int) bool {
		if features[i].Z != features[j].Z {
			return features[i].Z < features[j].Z
		}
		if features[i].Y != features[j].Y {
			return features[i].Y < features[j].Y
		}
		return features[i].X < features[j].X
	})

	return features, nil
}

// voxel is a single above-threshold position within a region.
type voxel struct {
	z, y, x int
}

// labelRegions groups adjacent above-threshold voxels into regions
// using 6-connectivity. The raster scan order makes region enumeration
// deterministic.
func labelRegions(ch models.Channel, threshold float64) [][]voxel {
	visited := make([]bool, len(ch.Data))
	var regions [][]voxel

	idx := func(z, y, x int) int {
		return (z*ch.Height+y)*ch.Width + x
	}

	var stack []voxel
	for z := 0; z < ch.Depth; z++ {
		for y := 0; y < ch.Height; y++ {
			for x := 0; x < ch.Width; x++ {
				i := idx(z, y, x)
				if visited[i] || ch.Data[i] <= threshold {
					continue
				}

				// Flood-fill the component starting here
				var region []voxel
				stack = append(stack[:0], voxel{z, y, x})
				visited[i] = true
				for len(stack) > 0 {
					v := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					region = append(region, v)

					for _, n := range [6]voxel{
						{v.z, v.y, v.x - 1},
						{v.z, v.y, v.x + 1},
						{v.z, v.y - 1, v.x},
						{v.z, v.y + 1, v.x},
						{v.z - 1, v.y, v.x},
						{v.z + 1, v.y, v.x},
					} {
						if n.x < 0 || n.x >= ch.Width ||
							n.y < 0 || n.y >= ch.Height ||
							n.z < 0 || n.z >= ch.Depth {
							continue
						}
						ni := idx(n.z, n.y, n.x)
						if !visited[ni] && ch.Data[ni] > threshold {
							visited[ni] = true
							stack = append(stack, n)
						}
					}
				}

				regions = append(regions, region)
			}
		}
	}

	return regions
}

// regionFeature computes the feature properties of one region from the
// raw channel intensities: intensity-weighted centroid, peak,
// integrated and median intensity, and border contact.
func regionFeature(ch models.Channel, channelIdx int, region []voxel) models.Feature {
	var sumW, sumZ, sumY, sumX float64
	var peak float64
	onBorder := false
	intensities := make([]float64, 0, len(region))

	for _, v := range region {
		val := ch.At(v.z, v.y, v.x)
		intensities = append(intensities, val)
		if val > peak {
			peak = val
		}
		if w := val; w > 0 {
			sumW += w
			sumZ += w * float64(v.z)
			sumY += w * float64(v.y)
			sumX += w * float64(v.x)
		}
		if v.x == 0 || v.x == ch.Width-1 || v.y == 0 || v.y == ch.Height-1 {
			onBorder = true
		}
		if ch.Depth > 1 && (v.z == 0 || v.z == ch.Depth-1) {
			onBorder = true
		}
	}

	f := models.Feature{
		Channel:         channelIdx,
		PixelCount:      len(region),
		PeakIntensity:   peak,
		MedianIntensity: median(intensities),
		OnBorder:        onBorder,
	}
	for _, val := range intensities {
		f.IntegratedIntensity += val
	}

	if sumW > 0 {
		f.Z = sumZ / sumW
		f.Y = sumY / sumW
		f.X = sumX / sumW
	} else {
		// Degenerate region with no positive intensity: fall back to
		// the unweighted center
		for _, v := range region {
			f.Z += float64(v.z)
			f.Y += float64(v.y)
			f.X += float64(v.x)
		}
		n := float64(len(region))
		f.Z /= n
		f.Y /= n
		f.X /= n
	}

	return f
}

// suppressClose enforces the minimum feature separation by keeping the
// brighter of any two features whose centroids are closer than minSep
// pixels. Ties break on spatial position so the result is stable.
func suppressClose(features []models.Feature, minSep float64) []models.Feature {
	if minSep <= 0 || len(features) < 2 {
		return features
	}

	order := make([]int, len(features))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := features[order[i]], features[order[j]]
		if a.IntegratedIntensity != b.IntegratedIntensity {
			return a.IntegratedIntensity > b.IntegratedIntensity
		}
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})

	kept := make([]models.Feature, 0, len(features))
	for _, i := range order {
		cand := features[i]
		tooClose := false
		for _, k := range kept {
			dz := cand.Z - k.Z
			dy := cand.Y - k.Y
			dx := cand.X - k.X
			if dz*dz+dy*dy+dx*dx < minSep*minSep {
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
