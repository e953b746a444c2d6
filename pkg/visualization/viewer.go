// Package visualization renders analyzed channels as images for visual
// inspection: normalized grayscale planes with detected features marked
// on top.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"scopemetrics/internal/models"
)

// Viewer renders the planes of a single channel together with the
// features detected in it.
type Viewer struct {
	// channel holds the intensity data being rendered
	channel models.Channel

	// features are the detections to mark on the rendered planes
	features []models.Feature
}

// NewViewer creates a viewer for one channel and its detections
func NewViewer(ch models.Channel, features []models.Feature) *Viewer {
	return &Viewer{
		channel:  ch,
		features: features,
	}
}

// RenderPlane renders one z plane as a 16-bit grayscale image with
// intensities normalized to the channel's dynamic range
func (v *Viewer) RenderPlane(z int) (*image.Gray16, error) {
	if z < 0 || z >= v.channel.Depth {
		return nil, fmt.Errorf("plane %d exceeds depth %d", z, v.channel.Depth)
	}

	lo, hi := intensityRange(v.channel.Data)
	scale := 0.0
	if hi > lo {
		scale = 65535 / (hi - lo)
	}

	img := image.NewGray16(image.Rect(0, 0, v.channel.Width, v.channel.Height))
	for y := 0; y < v.channel.Height; y++ {
		for x := 0; x < v.channel.Width; x++ {
			value := uint16(math.Max(0, math.Min(65535, (v.channel.At(z, y, x)-lo)*scale)))
			img.SetGray16(x, y, color.Gray16{Y: value})
		}
	}

	return img, nil
}

// RenderOverlay renders one z plane with the centroids of the features
// on that plane marked as crosses
func (v *Viewer) RenderOverlay(z int) (*image.RGBA, error) {
	plane, err := v.RenderPlane(z)
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA(plane.Bounds())
	for y := 0; y < v.channel.Height; y++ {
		for x := 0; x < v.channel.Width; x++ {
			img.Set(x, y, plane.Gray16At(x, y))
		}
	}

	mark := color.RGBA{R: 255, A: 255}
	for _, f := range v.features {
		// A feature belongs to the plane nearest its centroid
		if int(math.Round(f.Z)) != z {
			continue
		}
		cx := int(math.Round(f.X))
		cy := int(math.Round(f.Y))
		for d := -2; d <= 2; d++ {
			setIfInside(img, cx+d, cy, mark)
			setIfInside(img, cx, cy+d, mark)
		}
	}

	return img, nil
}

// SavePlane saves a rendered image as PNG
func (v *Viewer) SavePlane(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return png.Encode(file, img)
}

// SaveOverlaySequence renders and saves the overlay of every z plane
// into outputDir
func (v *Viewer) SaveOverlaySequence(outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for z := 0; z < v.channel.Depth; z++ {
		img, err := v.RenderOverlay(z)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("plane_%03d.png", z))
		if err := v.SavePlane(img, filename); err != nil {
			return err
		}
	}

	return nil
}

func intensityRange(data []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range data {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func setIfInside(img *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.Set(x, y, c)
	}
}
