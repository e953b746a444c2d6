package models

// Feature is a detected point-like element (a fluorescent spot or a
// profile peak) within one image channel. Positions are sub-pixel
// coordinates in pixel space; conversion to physical units is the
// responsibility of the geometry package. A Feature is never mutated
// after detection.
type Feature struct {
	// Channel is the index of the channel the feature belongs to.
	Channel int

	// Z, Y and X are the intensity-weighted centroid coordinates of
	// the feature in pixel space.
	Z float64
	Y float64
	X float64

	// PixelCount is the number of above-threshold voxels grouped
	// into this feature.
	PixelCount int

	// PeakIntensity is the highest raw intensity within the feature.
	PeakIntensity float64

	// IntegratedIntensity is the sum of raw intensities over all
	// voxels of the feature.
	IntegratedIntensity float64

	// MedianIntensity is the median raw intensity of the feature.
	MedianIntensity float64

	// OnBorder marks features whose region touches the image border.
	// Such features keep their properties but are excluded from
	// cross-channel distance aggregation.
	OnBorder bool
}

// ChannelPair is an unordered pair of distinct channel indices in
// canonical order: A < B always holds.
type ChannelPair struct {
	A int
	B int
}
