package analysis

import (
	"errors"
	"fmt"
	"math"

	"scopemetrics/internal/models"
	"scopemetrics/pkg/aggregate"
	"scopemetrics/pkg/detect"
	"scopemetrics/pkg/pairing"
	"scopemetrics/pkg/schema"
)

// spotsPropertiesSpec declares the per-spot table of the spot grid
// pattern.
var spotsPropertiesSpec = schema.TableSpec{
	Name: "spots_properties",
	Columns: []schema.ColumnSpec{
		{Name: "channel", Required: true},
		{Name: "spot", Required: true},
		{Name: "pixel_count", Required: true},
		{Name: "centroid_z_pixel", Required: true},
		{Name: "centroid_y_pixel", Required: true},
		{Name: "centroid_x_pixel", Required: true},
		{Name: "integrated_intensity", Required: true},
		{Name: "peak_intensity", Required: true},
		{Name: "median_intensity", Required: false},
		{Name: "on_border", Required: false},
	},
}

// spotsDistancesSpec declares the cross-channel distance table of the
// spot grid pattern.
var spotsDistancesSpec = schema.TableSpec{
	Name: "spots_distances",
	Columns: []schema.ColumnSpec{
		{Name: "channel_a", Required: true},
		{Name: "channel_b", Required: true},
		{Name: "spot_a", Required: true},
		{Name: "spot_b", Required: true},
		{Name: "distance_3d_micron", Required: true},
		{Name: "distance_z_micron", Required: true},
		{Name: "distance_lateral_micron", Required: false},
	},
}

// AnalyzeSpotGrid runs the pattern "B" pipeline on a spot grid image:
// spots are detected per channel, every channel pair is compared under
// the configured distance policy and the measurements are reduced into
// the spots_properties and spots_distances tables plus one key-value
// record of summary statistics.
func AnalyzeSpotGrid(img *models.Image, cal models.Calibration, cfg Config) (*Result, error) {
	r := newRun()

	// Validating
	if err := validateInput(img, cal, cfg); err != nil {
		return r.fail(err)
	}
	switch cfg.DistanceMode {
	case aggregate.ModePermutation, aggregate.ModeNearestNeighbor:
	default:
		return r.fail(&ValidationError{Reason: fmt.Sprintf(
			"distance mode must name an explicit policy, got %q", cfg.DistanceMode)})
	}

	// Detecting
	r.advance(StateDetecting)
	features := make(map[int][]models.Feature, img.Channels)
	detected := make([]int, 0, img.Channels)
	for c := 0; c < img.Channels; c++ {
		ch := img.Channel(c)
		if saturated(ch, cfg.BitDepth) {
			r.warnf("channel %d: saturated at %d-bit full scale, skipped", c, cfg.BitDepth)
			continue
		}

		feats, err := detect.Spots(ch, c, cfg.Spots)
		if err != nil {
			var det *detect.DetectionError
			if errors.As(err, &det) {
				r.warnf("channel %d: %v", c, err)
				continue
			}
			return r.fail(fmt.Errorf("channel %d: %w", c, err))
		}
		if len(feats) == 0 {
			r.warnf("channel %d: no features detected", c)
		}
		features[c] = feats
		detected = append(detected, c)
	}
	if len(detected) == 0 {
		return r.fail(&detect.DetectionError{Reason: "detection failed on every channel"})
	}

	// Pairing
	r.advance(StatePairing)
	var pairs []models.ChannelPair
	if len(detected) < 2 {
		r.warnf("fewer than 2 usable channels, cross-channel metrics skipped")
	} else {
		pairs = pairing.Pairs(detected)
	}

	// Aggregating
	r.advance(StateAggregating)
	kv := make(map[string]schema.Value)
	var required []string
	put := func(key string, v schema.Value) {
		kv[key] = v
		required = append(required, key)
	}

	var (
		colChannels, colNrSpots             []float64
		colMaxInt, colMaxSpot               []float64
		colMinInt, colMinSpot               []float64
	)
	for _, c := range detected {
		feats := features[c]
		colChannels = append(colChannels, float64(c))
		colNrSpots = append(colNrSpots, float64(len(feats)))

		maxIdx, minIdx := aggregate.IntensityExtremes(feats)
		if maxIdx >= 0 {
			colMaxInt = append(colMaxInt, feats[maxIdx].IntegratedIntensity)
			colMaxSpot = append(colMaxSpot, float64(maxIdx))
			colMinInt = append(colMinInt, feats[minIdx].IntegratedIntensity)
			colMinSpot = append(colMinSpot, float64(minIdx))
		} else {
			colMaxInt = append(colMaxInt, math.NaN())
			colMaxSpot = append(colMaxSpot, -1)
			colMinInt = append(colMinInt, math.NaN())
			colMinSpot = append(colMinSpot, -1)
		}

		put(fmt.Sprintf("ch%02d_intensity_deciles", c), schema.List(aggregate.Deciles(img.Channel(c).Data)))
	}
	put("channels", schema.List(colChannels))
	put("nr_of_spots", schema.List(colNrSpots))
	put("max_intensity", schema.List(colMaxInt))
	put("max_intensity_spot", schema.List(colMaxSpot))
	put("min_intensity", schema.List(colMinInt))
	put("min_intensity_spot", schema.List(colMinSpot))

	distCols := map[string][]float64{
		"channel_a":               {},
		"channel_b":               {},
		"spot_a":                  {},
		"spot_b":                  {},
		"distance_3d_micron":      {},
		"distance_z_micron":       {},
		"distance_lateral_micron": {},
	}
	for _, p := range pairs {
		dists, err := aggregate.PairDistances(features[p.A], features[p.B], cal, cfg.DistanceMode)
		if err != nil {
			return r.fail(err)
		}

		var values3D, valuesZ []float64
		for _, d := range dists {
			distCols["channel_a"] = append(distCols["channel_a"], float64(p.A))
			distCols["channel_b"] = append(distCols["channel_b"], float64(p.B))
			distCols["spot_a"] = append(distCols["spot_a"], float64(d.SpotA))
			distCols["spot_b"] = append(distCols["spot_b"], float64(d.SpotB))
			distCols["distance_3d_micron"] = append(distCols["distance_3d_micron"], d.Distance3D)
			distCols["distance_z_micron"] = append(distCols["distance_z_micron"], d.DistanceZ)
			distCols["distance_lateral_micron"] = append(distCols["distance_lateral_micron"], d.DistanceLateral)
			values3D = append(values3D, d.Distance3D)
			valuesZ = append(valuesZ, d.DistanceZ)
		}

		sum3D := aggregate.Summarize(values3D)
		sumZ := aggregate.Summarize(valuesZ)
		if sum3D.Undefined() {
			r.warnf("channel pair (%d, %d): no distance measurements", p.A, p.B)
		}

		suffix := fmt.Sprintf("ch%02d_ch%02d", p.A, p.B)
		put("mean_3d_distance_"+suffix, schema.Scalar(sum3D.Mean))
		put("median_3d_distance_"+suffix, schema.Scalar(sum3D.Median))
		put("std_3d_distance_"+suffix, schema.Scalar(sum3D.StdDev))
		put("mean_z_distance_"+suffix, schema.Scalar(sumZ.Mean))
		put("median_z_distance_"+suffix, schema.Scalar(sumZ.Median))
		put("std_z_distance_"+suffix, schema.Scalar(sumZ.StdDev))
	}

	// Assembling
	r.advance(StateAssembling)
	propsTable, err := schema.AssembleTable(spotsPropertiesSpec, spotPropertyColumns(detected, features))
	if err != nil {
		return r.fail(err)
	}
	r.result.Tables = append(r.result.Tables, propsTable)

	if len(pairs) > 0 {
		distTable, err := schema.AssembleTable(spotsDistancesSpec, distCols)
		if err != nil {
			return r.fail(err)
		}
		r.result.Tables = append(r.result.Tables, distTable)
	}

	record, err := schema.AssembleRecord("spots_key_values", required, kv)
	if err != nil {
		return r.fail(err)
	}
	r.result.Records = append(r.result.Records, record)

	r.advance(StateDone)
	return r.result, nil
}

// spotPropertyColumns flattens the per-channel feature sequences into
// the spots_properties column set.
func spotPropertyColumns(detected []int, features map[int][]models.Feature) map[string][]float64 {
	cols := map[string][]float64{
		"channel":              {},
		"spot":                 {},
		"pixel_count":          {},
		"centroid_z_pixel":     {},
		"centroid_y_pixel":     {},
		"centroid_x_pixel":     {},
		"integrated_intensity": {},
		"peak_intensity":       {},
		"median_intensity":     {},
		"on_border":            {},
	}

	for _, c := range detected {
		for i, f := range features[c] {
			cols["channel"] = append(cols["channel"], float64(c))
			cols["spot"] = append(cols["spot"], float64(i))
			cols["pixel_count"] = append(cols["pixel_count"], float64(f.PixelCount))
			cols["centroid_z_pixel"] = append(cols["centroid_z_pixel"], f.Z)
			cols["centroid_y_pixel"] = append(cols["centroid_y_pixel"], f.Y)
			cols["centroid_x_pixel"] = append(cols["centroid_x_pixel"], f.X)
			cols["integrated_intensity"] = append(cols["integrated_intensity"], f.IntegratedIntensity)
			cols["peak_intensity"] = append(cols["peak_intensity"], f.PeakIntensity)
			cols["median_intensity"] = append(cols["median_intensity"], f.MedianIntensity)
			border := 0.0
			if f.OnBorder {
				border = 1.0
			}
			cols["on_border"] = append(cols["on_border"], border)
		}
	}

	return cols
}
