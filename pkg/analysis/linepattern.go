package analysis

import (
	"errors"
	"fmt"
	"math"

	"scopemetrics/internal/models"
	"scopemetrics/pkg/aggregate"
	"scopemetrics/pkg/detect"
	"scopemetrics/pkg/schema"
)

// peakPropertiesSpec declares the per-peak table of the line pattern.
var peakPropertiesSpec = schema.TableSpec{
	Name: "peak_properties",
	Columns: []schema.ColumnSpec{
		{Name: "channel", Required: true},
		{Name: "peak", Required: true},
		{Name: "position_pixel", Required: true},
		{Name: "position_micron", Required: true},
		{Name: "height", Required: true},
		{Name: "prominence", Required: false},
	},
}

// AnalyzeLinePattern runs the pattern "E" pipeline on a line pattern
// image: each channel is reduced to a mean intensity profile along the
// configured scan axis, profile peaks are detected as line features
// and peak spacings yield the resolution estimate. Outputs are the
// intensity_profiles and peak_properties tables plus one key-value
// record. Line metrics are per channel; the pairing stage has nothing
// to enumerate for this pattern.
func AnalyzeLinePattern(img *models.Image, cal models.Calibration, cfg Config) (*Result, error) {
	r := newRun()

	// Validating
	if err := validateInput(img, cal, cfg); err != nil {
		return r.fail(err)
	}
	if cfg.Axis != ScanAxisX && cfg.Axis != ScanAxisY {
		return r.fail(&ValidationError{Reason: fmt.Sprintf(
			"scan axis must be %q or %q, got %q", ScanAxisX, ScanAxisY, cfg.Axis)})
	}

	axisScale := cal.VoxelSizeX
	if cfg.Axis == ScanAxisY {
		axisScale = cal.VoxelSizeY
	}

	// Detecting
	r.advance(StateDetecting)
	profiles := make(map[int][]float64, img.Channels)
	peaks := make(map[int][]detect.Peak, img.Channels)
	detected := make([]int, 0, img.Channels)
	for c := 0; c < img.Channels; c++ {
		ch := img.Channel(c)
		if saturated(ch, cfg.BitDepth) {
			r.warnf("channel %d: saturated at %d-bit full scale, skipped", c, cfg.BitDepth)
			continue
		}

		profile := scanProfile(ch, cfg.Axis)
		pks, err := detect.Peaks(profile, cfg.Peaks)
		if err != nil {
			var det *detect.DetectionError
			if errors.As(err, &det) {
				r.warnf("channel %d: %v", c, err)
				continue
			}
			return r.fail(fmt.Errorf("channel %d: %w", c, err))
		}
		if len(pks) == 0 {
			r.warnf("channel %d: no peaks detected", c)
		}
		profiles[c] = profile
		peaks[c] = pks
		detected = append(detected, c)
	}
	if len(detected) == 0 {
		return r.fail(&detect.DetectionError{Reason: "detection failed on every channel"})
	}

	// Pairing: nothing to enumerate, resolution metrics are
	// single-channel
	r.advance(StatePairing)

	// Aggregating
	r.advance(StateAggregating)
	kv := make(map[string]schema.Value)
	var required []string
	put := func(key string, v schema.Value) {
		kv[key] = v
		required = append(required, key)
	}

	var colChannels, colNrPeaks, colResolution, colContrast []float64
	for _, c := range detected {
		pks := peaks[c]
		colChannels = append(colChannels, float64(c))
		colNrPeaks = append(colNrPeaks, float64(len(pks)))

		positions := make([]float64, len(pks))
		for i, p := range pks {
			positions[i] = p.Position * axisScale
		}
		put(fmt.Sprintf("ch%02d_peak_positions_micron", c), schema.List(positions))

		spacing := aggregate.Summarize(aggregate.AdjacentSpacings(positions))
		suffix := fmt.Sprintf("ch%02d", c)
		put("mean_spacing_micron_"+suffix, schema.Scalar(spacing.Mean))
		put("median_spacing_micron_"+suffix, schema.Scalar(spacing.Median))
		put("std_spacing_micron_"+suffix, schema.Scalar(spacing.StdDev))

		resolution, contrast := resolutionEstimate(profiles[c], pks, axisScale)
		if math.IsNaN(resolution) {
			r.warnf("channel %d: fewer than 2 peaks, resolution undefined", c)
		}
		colResolution = append(colResolution, resolution)
		colContrast = append(colContrast, contrast)
	}
	put("channels", schema.List(colChannels))
	put("nr_of_peaks", schema.List(colNrPeaks))
	put("resolution_micron", schema.List(colResolution))
	put("peak_valley_contrast", schema.List(colContrast))

	// Assembling
	r.advance(StateAssembling)
	profileTable, err := schema.AssembleTable(profileTableSpec(detected), profileColumns(detected, profiles))
	if err != nil {
		return r.fail(err)
	}
	r.result.Tables = append(r.result.Tables, profileTable)

	peakTable, err := schema.AssembleTable(peakPropertiesSpec, peakPropertyColumns(detected, peaks, axisScale))
	if err != nil {
		return r.fail(err)
	}
	r.result.Tables = append(r.result.Tables, peakTable)

	record, err := schema.AssembleRecord("resolution_key_values", required, kv)
	if err != nil {
		return r.fail(err)
	}
	r.result.Records = append(r.result.Records, record)

	r.advance(StateDone)
	return r.result, nil
}

// scanProfile reduces a channel to its mean intensity profile along
// the scan axis, averaging across the orthogonal axis at the focus
// plane.
func scanProfile(ch models.Channel, axis ScanAxis) []float64 {
	z := focusPlane(ch)

	if axis == ScanAxisY {
		out := make([]float64, ch.Height)
		for y := 0; y < ch.Height; y++ {
			sum := 0.0
			for x := 0; x < ch.Width; x++ {
				sum += ch.At(z, y, x)
			}
			out[y] = sum / float64(ch.Width)
		}
		return out
	}

	out := make([]float64, ch.Width)
	for x := 0; x < ch.Width; x++ {
		sum := 0.0
		for y := 0; y < ch.Height; y++ {
			sum += ch.At(z, y, x)
		}
		out[x] = sum / float64(ch.Height)
	}
	return out
}

// focusPlane returns the z plane with the highest total intensity.
func focusPlane(ch models.Channel) int {
	best := 0
	bestSum := math.Inf(-1)
	planeSize := ch.Height * ch.Width
	for z := 0; z < ch.Depth; z++ {
		sum := 0.0
		for _, v := range ch.Data[z*planeSize : (z+1)*planeSize] {
			sum += v
		}
		if sum > bestSum {
			bestSum = sum
			best = z
		}
	}
	return best
}

// resolutionEstimate returns the minimum adjacent peak spacing in
// microns and the peak-to-valley contrast of that closest pair. Both
// are NaN when fewer than two peaks exist.
func resolutionEstimate(profile []float64, peaks []detect.Peak, axisScale float64) (resolution, contrast float64) {
	if len(peaks) < 2 {
		return math.NaN(), math.NaN()
	}

	// Peaks are ordered by position, so adjacent pairs are
	// consecutive entries
	bestSpacing := math.Inf(1)
	bestIdx := 0
	for i := 1; i < len(peaks); i++ {
		spacing := peaks[i].Position - peaks[i-1].Position
		if spacing < bestSpacing {
			bestSpacing = spacing
			bestIdx = i
		}
	}

	left, right := peaks[bestIdx-1], peaks[bestIdx]
	valley := math.Inf(1)
	for i := left.Index; i <= right.Index && i < len(profile); i++ {
		if profile[i] < valley {
			valley = profile[i]
		}
	}

	peakMean := (left.Height + right.Height) / 2
	if peakMean+valley == 0 {
		return bestSpacing * axisScale, math.NaN()
	}
	return bestSpacing * axisScale, (peakMean - valley) / (peakMean + valley)
}

// profileTableSpec declares one required profile column per detected
// channel.
func profileTableSpec(detected []int) schema.TableSpec {
	spec := schema.TableSpec{Name: "intensity_profiles"}
	for _, c := range detected {
		spec.Columns = append(spec.Columns, schema.ColumnSpec{
			Name:     fmt.Sprintf("ch%02d_intensity", c),
			Required: true,
		})
	}
	return spec
}

func profileColumns(detected []int, profiles map[int][]float64) map[string][]float64 {
	cols := make(map[string][]float64, len(detected))
	for _, c := range detected {
		cols[fmt.Sprintf("ch%02d_intensity", c)] = profiles[c]
	}
	return cols
}

func peakPropertyColumns(detected []int, peaks map[int][]detect.Peak, axisScale float64) map[string][]float64 {
	cols := map[string][]float64{
		"channel":         {},
		"peak":            {},
		"position_pixel":  {},
		"position_micron": {},
		"height":          {},
		"prominence":      {},
	}

	for _, c := range detected {
		for i, p := range peaks[c] {
			cols["channel"] = append(cols["channel"], float64(c))
			cols["peak"] = append(cols["peak"], float64(i))
			cols["position_pixel"] = append(cols["position_pixel"], p.Position)
			cols["position_micron"] = append(cols["position_micron"], p.Position*axisScale)
			cols["height"] = append(cols["height"], p.Height)
			cols["prominence"] = append(cols["prominence"], p.Prominence)
		}
	}

	return cols
}
