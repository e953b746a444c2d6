// Package models defines the data entities shared by the analysis
// pipeline: images, calibration metadata, detected features and channel
// pairs. All entities are created fresh per analysis run and are never
// mutated after creation.
package models

import "math"

// Image is a multi-channel intensity volume in CZYX order. The voxel
// data is owned by the caller and is read-only to the analysis engine.
// For 2D images Depth is 1.
type Image struct {
	// Data holds the intensity values in row-major order,
	// indexed as [c][z][y][x].
	Data []float64

	// Channels is the number of image channels.
	Channels int

	// Depth, Height and Width are the spatial dimensions in voxels
	// along the z, y and x axes.
	Depth  int
	Height int
	Width  int
}

// At returns the intensity at channel c and voxel position (z, y, x).
func (im *Image) At(c, z, y, x int) float64 {
	return im.Data[((c*im.Depth+z)*im.Height+y)*im.Width+x]
}

// Channel returns a view over one channel of the image. The returned
// view shares the underlying voxel data and must not be written to.
func (im *Image) Channel(c int) Channel {
	size := im.Depth * im.Height * im.Width
	return Channel{
		Data:   im.Data[c*size : (c+1)*size],
		Depth:  im.Depth,
		Height: im.Height,
		Width:  im.Width,
	}
}

// VoxelsPerChannel returns the number of voxels in a single channel.
func (im *Image) VoxelsPerChannel() int {
	return im.Depth * im.Height * im.Width
}

// Channel is a single-channel intensity volume. It is the unit of work
// for feature detection.
type Channel struct {
	// Data holds the intensity values in row-major [z][y][x] order.
	Data []float64

	// Depth, Height and Width are the spatial dimensions in voxels.
	Depth  int
	Height int
	Width  int
}

// At returns the intensity at voxel position (z, y, x).
func (ch Channel) At(z, y, x int) float64 {
	return ch.Data[(z*ch.Height+y)*ch.Width+x]
}

// Empty reports whether the channel contains no voxels.
func (ch Channel) Empty() bool {
	return len(ch.Data) == 0 || ch.Depth <= 0 || ch.Height <= 0 || ch.Width <= 0
}

// Finite reports whether every voxel holds a finite value. Detection
// refuses to run on channels containing NaN or infinities.
func (ch Channel) Finite() bool {
	for _, v := range ch.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Calibration carries the physical metadata supplied alongside an
// image: the voxel size along each spatial axis and the channel labels.
// Voxel sizes are expressed in microns and must be positive finite
// numbers.
type Calibration struct {
	// VoxelSizeZ, VoxelSizeY and VoxelSizeX are the physical voxel
	// extents in microns along each spatial axis.
	VoxelSizeZ float64
	VoxelSizeY float64
	VoxelSizeX float64

	// ChannelLabels optionally names each channel. When present its
	// length must match the image channel count.
	ChannelLabels []string
}

// Valid reports whether every voxel size is a positive finite number.
func (c Calibration) Valid() bool {
	for _, v := range []float64{c.VoxelSizeZ, c.VoxelSizeY, c.VoxelSizeX} {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
