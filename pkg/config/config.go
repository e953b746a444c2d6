// Package config provides configuration loading and management for scopemetrics.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"scopemetrics/internal/models"
	"scopemetrics/pkg/aggregate"
	"scopemetrics/pkg/analysis"
	"scopemetrics/pkg/detect"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Spot detection parameters
	Detection struct {
		// Strategy selects how the segmentation threshold is resolved:
		// "fixed", "percentile" or "otsu"
		Strategy string `yaml:"strategy"`

		// FixedThreshold is the absolute intensity used by the fixed strategy
		FixedThreshold float64 `yaml:"fixedThreshold"`

		// Percentile is the intensity percentile (0-100) used by the
		// percentile strategy
		Percentile float64 `yaml:"percentile"`

		// Sigma is the Gaussian pre-smoothing width in pixels
		Sigma float64 `yaml:"sigma"`

		// MinPixels discards regions smaller than this voxel count
		MinPixels int `yaml:"minPixels"`

		// MinSeparation is the minimum centroid distance in pixels
		// between two detected features
		MinSeparation float64 `yaml:"minSeparation"`
	} `yaml:"detection"`

	// Profile peak detection parameters
	Peaks struct {
		// Sigma is the Gaussian smoothing width in samples applied to
		// intensity profiles before peak finding
		Sigma float64 `yaml:"sigma"`

		// MinProminence is the minimum peak prominence as a fraction
		// of the profile dynamic range
		MinProminence float64 `yaml:"minProminence"`

		// MinDistance is the minimum separation between peaks in samples
		MinDistance float64 `yaml:"minDistance"`
	} `yaml:"peaks"`

	// Analysis run parameters
	Analysis struct {
		// DistanceMode selects the cross-channel distance policy:
		// "permutation" or "nearest_neighbor"
		DistanceMode string `yaml:"distanceMode"`

		// MinChannels is the minimum channel count the input must carry
		MinChannels int `yaml:"minChannels"`

		// BitDepth is the detector bit depth used for saturation
		// checks; zero disables the check
		BitDepth int `yaml:"bitDepth"`

		// ScanAxis is the profile axis for line patterns: "x" or "y"
		ScanAxis string `yaml:"scanAxis"`
	} `yaml:"analysis"`

	// Calibration parameters for inputs whose metadata lacks them
	Calibration struct {
		// VoxelSizeZ is the axial voxel size in microns
		VoxelSizeZ float64 `yaml:"voxelSizeZ"`

		// VoxelSizeY is the lateral voxel size along y in microns
		VoxelSizeY float64 `yaml:"voxelSizeY"`

		// VoxelSizeX is the lateral voxel size along x in microns
		VoxelSizeX float64 `yaml:"voxelSizeX"`

		// ChannelLabels optionally names the channels
		ChannelLabels []string `yaml:"channelLabels"`
	} `yaml:"calibration"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default detection parameters
	cfg.Detection.Strategy = string(detect.ThresholdOtsu)
	cfg.Detection.Percentile = 99.0
	cfg.Detection.Sigma = 1.0
	cfg.Detection.MinPixels = 4
	cfg.Detection.MinSeparation = 2.0

	// Set default peak parameters
	cfg.Peaks.Sigma = 1.0
	cfg.Peaks.MinProminence = 0.1
	cfg.Peaks.MinDistance = 2.0

	// Set default analysis parameters
	cfg.Analysis.DistanceMode = string(aggregate.ModePermutation)
	cfg.Analysis.MinChannels = 1
	cfg.Analysis.BitDepth = 0
	cfg.Analysis.ScanAxis = string(analysis.ScanAxisY)

	// Set default calibration parameters
	cfg.Calibration.VoxelSizeZ = 1.0
	cfg.Calibration.VoxelSizeY = 1.0
	cfg.Calibration.VoxelSizeX = 1.0

	// Set default output parameters
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// AnalysisConfig converts the loaded configuration into the run
// configuration consumed by the analysis package
func (c *Config) AnalysisConfig() analysis.Config {
	return analysis.Config{
		Spots: detect.SpotConfig{
			Strategy:       detect.ThresholdStrategy(c.Detection.Strategy),
			FixedThreshold: c.Detection.FixedThreshold,
			Percentile:     c.Detection.Percentile,
			Sigma:          c.Detection.Sigma,
			MinPixels:      c.Detection.MinPixels,
			MinSeparation:  c.Detection.MinSeparation,
		},
		Peaks: detect.PeakConfig{
			Sigma:         c.Peaks.Sigma,
			MinProminence: c.Peaks.MinProminence,
			MinDistance:   c.Peaks.MinDistance,
		},
		DistanceMode: aggregate.DistanceMode(c.Analysis.DistanceMode),
		MinChannels:  c.Analysis.MinChannels,
		BitDepth:     c.Analysis.BitDepth,
		Axis:         analysis.ScanAxis(c.Analysis.ScanAxis),
	}
}

// CalibrationFor returns the calibration metadata for an image with
// the given channel count, using the configured labels when they match
func (c *Config) CalibrationFor(channels int) models.Calibration {
	cal := models.Calibration{
		VoxelSizeZ: c.Calibration.VoxelSizeZ,
		VoxelSizeY: c.Calibration.VoxelSizeY,
		VoxelSizeX: c.Calibration.VoxelSizeX,
	}
	if len(c.Calibration.ChannelLabels) == channels {
		cal.ChannelLabels = c.Calibration.ChannelLabels
	}
	return cal
}
