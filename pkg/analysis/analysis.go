// Package analysis drives the per-pattern analysis pipelines that turn
// a calibrated multi-channel image into schema-conformant metric
// tables and key-value records. Each run walks a fixed sequence of
// stages: Validating, Detecting, Pairing, Aggregating, Assembling and
// Done, with Failed reachable from any non-terminal stage. Runs hold no
// state beyond their own result, so concurrent runs on different
// inputs never interfere.
package analysis

import (
	"fmt"
	"math"

	"scopemetrics/internal/models"
	"scopemetrics/pkg/aggregate"
	"scopemetrics/pkg/detect"
)

// State identifies the stage an analysis run is in. Runs advance
// strictly forward; Done and Failed are terminal.
type State int

const (
	StateValidating State = iota
	StateDetecting
	StatePairing
	StateAggregating
	StateAssembling
	StateDone
	StateFailed
)

// String returns the stage name for diagnostics.
func (s State) String() string {
	switch s {
	case StateValidating:
		return "Validating"
	case StateDetecting:
		return "Detecting"
	case StatePairing:
		return "Pairing"
	case StateAggregating:
		return "Aggregating"
	case StateAssembling:
		return "Assembling"
	case StateDone:
		return "Done"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ScanAxis selects the axis along which a line pattern profile runs.
type ScanAxis string

const (
	// ScanAxisY profiles along y, measuring vertical line spacing.
	ScanAxisY ScanAxis = "y"

	// ScanAxisX profiles along x, measuring horizontal line spacing.
	ScanAxisX ScanAxis = "x"
)

// Config is the immutable per-run analysis configuration. It is passed
// by value into the run and never shared as mutable process state.
type Config struct {
	// Spots configures point feature detection (pattern B).
	Spots detect.SpotConfig

	// Peaks configures profile peak detection (pattern E).
	Peaks detect.PeakConfig

	// DistanceMode names the cross-channel distance policy for
	// pattern B. It must be set explicitly.
	DistanceMode aggregate.DistanceMode

	// MinChannels is the minimum channel count the pattern requires.
	// Zero means one.
	MinChannels int

	// BitDepth enables the saturation check: a channel reaching the
	// detector's full-scale value 2^BitDepth-1 is skipped with a
	// warning. Zero disables the check.
	BitDepth int

	// Axis is the scan axis for pattern E profiles.
	Axis ScanAxis
}

// ValidationError reports malformed or incomplete input. It is fatal
// and reported before any detection work occurs.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "analysis: validation: " + e.Reason
}

// run tracks the state of one analysis invocation.
type run struct {
	result *Result
}

func newRun() *run {
	return &run{result: &Result{State: StateValidating}}
}

func (r *run) advance(s State) {
	r.result.State = s
}

// fail moves the run to the terminal Failed state, wrapping the error
// with the stage it occurred in.
func (r *run) fail(err error) (*Result, error) {
	stage := r.result.State
	r.result.State = StateFailed
	return r.result, fmt.Errorf("analysis: %s: %w", stage, err)
}

// warnf attaches a warning annotation to the run result. Warnings
// record degraded conditions (zero features, skipped stages) that do
// not fail the run.
func (r *run) warnf(format string, args ...any) {
	r.result.Warnings = append(r.result.Warnings, fmt.Sprintf(format, args...))
}

// validateInput performs the fail-fast checks shared by all patterns:
// image shape, channel count, data size consistency and calibration
// completeness.
func validateInput(img *models.Image, cal models.Calibration, cfg Config) error {
	if img == nil {
		return &ValidationError{Reason: "image is nil"}
	}
	if img.Channels <= 0 || img.Depth <= 0 || img.Height <= 0 || img.Width <= 0 {
		return &ValidationError{Reason: fmt.Sprintf(
			"image has degenerate dimensions %dx%dx%dx%d (CZYX)",
			img.Channels, img.Depth, img.Height, img.Width)}
	}
	if len(img.Data) != img.Channels*img.Depth*img.Height*img.Width {
		return &ValidationError{Reason: fmt.Sprintf(
			"image data length %d does not match dimensions", len(img.Data))}
	}

	minChannels := cfg.MinChannels
	if minChannels < 1 {
		minChannels = 1
	}
	if img.Channels < minChannels {
		return &ValidationError{Reason: fmt.Sprintf(
			"pattern requires at least %d channels, image has %d", minChannels, img.Channels)}
	}

	if !cal.Valid() {
		return &ValidationError{Reason: "calibration metadata incomplete: voxel sizes must be positive finite"}
	}
	if len(cal.ChannelLabels) > 0 && len(cal.ChannelLabels) != img.Channels {
		return &ValidationError{Reason: fmt.Sprintf(
			"calibration declares %d channel labels for %d channels",
			len(cal.ChannelLabels), img.Channels)}
	}

	return nil
}

// saturated reports whether a channel reaches the detector full-scale
// value for the configured bit depth.
func saturated(ch models.Channel, bitDepth int) bool {
	if bitDepth <= 0 {
		return false
	}
	full := math.Pow(2, float64(bitDepth)) - 1
	for _, v := range ch.Data {
		if v >= full {
			return true
		}
	}
	return false
}
