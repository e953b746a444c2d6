package config

import (
	"os"
	"path/filepath"
	"testing"

	"scopemetrics/pkg/aggregate"
	"scopemetrics/pkg/detect"
)

// TestDefaultConfig verifies the default values are usable without a
// config file
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Detection.Strategy != string(detect.ThresholdOtsu) {
		t.Errorf("Expected default strategy otsu, got %s", cfg.Detection.Strategy)
	}
	if cfg.Analysis.DistanceMode != string(aggregate.ModePermutation) {
		t.Errorf("Expected default distance mode permutation, got %s", cfg.Analysis.DistanceMode)
	}
	if cfg.Calibration.VoxelSizeX != 1.0 {
		t.Errorf("Expected default voxel size 1.0, got %f", cfg.Calibration.VoxelSizeX)
	}
}

// TestLoadConfigMissingFile verifies that a missing file falls back to
// defaults without error
func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Expected no error for a missing file, got %v", err)
	}
	if cfg.Detection.Strategy != string(detect.ThresholdOtsu) {
		t.Errorf("Expected default config, got strategy %s", cfg.Detection.Strategy)
	}
}

// TestLoadConfigOverrides verifies YAML values override the defaults
func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
detection:
  strategy: percentile
  percentile: 95
analysis:
  distanceMode: nearest_neighbor
  scanAxis: x
calibration:
  voxelSizeZ: 0.125
  voxelSizeY: 0.39
  voxelSizeX: 0.39
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Detection.Strategy != "percentile" {
		t.Errorf("Expected strategy percentile, got %s", cfg.Detection.Strategy)
	}
	if cfg.Detection.Percentile != 95 {
		t.Errorf("Expected percentile 95, got %f", cfg.Detection.Percentile)
	}
	if cfg.Analysis.DistanceMode != string(aggregate.ModeNearestNeighbor) {
		t.Errorf("Expected nearest_neighbor, got %s", cfg.Analysis.DistanceMode)
	}
	if cfg.Calibration.VoxelSizeZ != 0.125 {
		t.Errorf("Expected voxel size z 0.125, got %f", cfg.Calibration.VoxelSizeZ)
	}

	// Untouched sections keep their defaults
	if cfg.Detection.Sigma != 1.0 {
		t.Errorf("Expected default sigma 1.0, got %f", cfg.Detection.Sigma)
	}
}

// TestSaveAndReloadConfig verifies a round trip through SaveConfig
func TestSaveAndReloadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Detection.MinPixels = 9
	cfg.Analysis.BitDepth = 12

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to reload config: %v", err)
	}
	if loaded.Detection.MinPixels != 9 {
		t.Errorf("Expected minPixels 9, got %d", loaded.Detection.MinPixels)
	}
	if loaded.Analysis.BitDepth != 12 {
		t.Errorf("Expected bitDepth 12, got %d", loaded.Analysis.BitDepth)
	}
}

// TestAnalysisConfig verifies the conversion to the analysis run config
func TestAnalysisConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Detection.Strategy = "fixed"
	cfg.Detection.FixedThreshold = 42

	run := cfg.AnalysisConfig()
	if run.Spots.Strategy != detect.ThresholdFixed {
		t.Errorf("Expected fixed strategy, got %s", run.Spots.Strategy)
	}
	if run.Spots.FixedThreshold != 42 {
		t.Errorf("Expected threshold 42, got %f", run.Spots.FixedThreshold)
	}
	if run.DistanceMode != aggregate.ModePermutation {
		t.Errorf("Expected permutation mode, got %s", run.DistanceMode)
	}
}

// TestCalibrationFor verifies label propagation only on channel match
func TestCalibrationFor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Calibration.ChannelLabels = []string{"DAPI", "GFP"}

	cal := cfg.CalibrationFor(2)
	if len(cal.ChannelLabels) != 2 {
		t.Errorf("Expected 2 labels, got %d", len(cal.ChannelLabels))
	}

	cal = cfg.CalibrationFor(3)
	if len(cal.ChannelLabels) != 0 {
		t.Errorf("Expected labels dropped on channel mismatch, got %v", cal.ChannelLabels)
	}
}
