// Package filter provides the pre-detection smoothing step of the
// analysis pipeline. Smoothing suppresses single-pixel noise before
// thresholding so that connected-component grouping does not fragment
// features.
package filter

import (
	"math"

	"scopemetrics/internal/models"
)

// GaussianSmooth returns a smoothed copy of the channel, convolving
// each z-plane with a separable Gaussian kernel of the given sigma (in
// pixels). A sigma of zero or less returns the input unchanged. The
// input channel is never modified.
func GaussianSmooth(ch models.Channel, sigma float64) models.Channel {
	if sigma <= 0 || ch.Empty() {
		return ch
	}

	kernel := gaussianKernel(sigma)
	out := models.Channel{
		Data:   make([]float64, len(ch.Data)),
		Depth:  ch.Depth,
		Height: ch.Height,
		Width:  ch.Width,
	}
	tmp := make([]float64, ch.Height*ch.Width)

	for z := 0; z < ch.Depth; z++ {
		plane := ch.Data[z*ch.Height*ch.Width : (z+1)*ch.Height*ch.Width]
		outPlane := out.Data[z*ch.Height*ch.Width : (z+1)*ch.Height*ch.Width]

		// Horizontal pass into tmp, vertical pass into the output
		convolveRows(plane, tmp, ch.Width, ch.Height, kernel)
		convolveCols(tmp, outPlane, ch.Width, ch.Height, kernel)
	}

	return out
}

// SmoothProfile convolves a 1D intensity profile with a Gaussian
// kernel of the given sigma. Used to stabilize peak detection on line
// pattern profiles.
func SmoothProfile(profile []float64, sigma float64) []float64 {
	if sigma <= 0 || len(profile) == 0 {
		return profile
	}

	kernel := gaussianKernel(sigma)
	radius := len(kernel) / 2
	out := make([]float64, len(profile))

	for i := range profile {
		sum := 0.0
		weight := 0.0
		for k := -radius; k <= radius; k++ {
			j := i + k
			if j < 0 || j >= len(profile) {
				continue
			}
			w := kernel[k+radius]
			sum += w * profile[j]
			weight += w
		}
		out[i] = sum / weight
	}

	return out
}

// gaussianKernel builds a normalized 1D kernel truncated at three
// standard deviations.
func gaussianKernel(sigma float64) []float64 {
	radius := int(math.Ceil(3 * sigma))
	if radius < 1 {
		radius = 1
	}

	kernel := make([]float64, 2*radius+1)
	sum := 0.0
	for i := -radius; i <= radius; i++ {
		v := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		kernel[i+radius] = v
		sum += v
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	return kernel
}

// convolveRows applies the kernel along the x axis. Borders renormalize
// over the in-bounds kernel taps so edge intensities are not darkened.
func convolveRows(src, dst []float64, width, height int, kernel []float64) {
	radius := len(kernel) / 2
	for y := 0; y < height; y++ {
		row := src[y*width : (y+1)*width]
		for x := 0; x < width; x++ {
			sum := 0.0
			weight := 0.0
			for k := -radius; k <= radius; k++ {
				xx := x + k
				if xx < 0 || xx >= width {
					continue
				}
				w := kernel[k+radius]
				sum += w * row[xx]
				weight += w
			}
			dst[y*width+x] = sum / weight
		}
	}
}

// convolveCols applies the kernel along the y axis.
func convolveCols(src, dst []float64, width, height int, kernel []float64) {
	radius := len(kernel) / 2
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			sum := 0.0
			weight := 0.0
			for k := -radius; k <= radius; k++ {
				yy := y + k
				if yy < 0 || yy >= height {
					continue
				}
				w := kernel[k+radius]
				sum += w * src[yy*width+x]
				weight += w
			}
			dst[y*width+x] = sum / weight
		}
	}
}
