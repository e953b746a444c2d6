package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/image/tiff"

	"scopemetrics/internal/models"
	"scopemetrics/pkg/analysis"
	"scopemetrics/pkg/config"
	"scopemetrics/pkg/detect"
	"scopemetrics/pkg/schema"
	"scopemetrics/pkg/visualization"
)

func main() {
	// Parse command line arguments
	inputDir := flag.String("input", "", "Directory containing per-channel calibration images (TIFF or PNG)")
	pattern := flag.String("pattern", "spots", "Calibration pattern to analyze: spots or lines")
	configPath := flag.String("config", "scopemetrics.yaml", "Path to YAML configuration file")
	outputDir := flag.String("output", "", "Directory to write metric tables as CSV (optional)")
	overlayDir := flag.String("overlays", "", "Directory to save detection overlay images (spots pattern only)")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration file and exit")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config file: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", *configPath)
		return
	}

	// Validate inputs
	if *inputDir == "" {
		flag.Usage()
		os.Exit(1)
	}
	if *pattern != "spots" && *pattern != "lines" {
		log.Fatalf("Unknown pattern %q: expected spots or lines", *pattern)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("================================")
	fmt.Println("SCOPEMETRICS MICROSCOPE PERFORMANCE ANALYSIS")
	fmt.Println("Spot grid and line pattern calibration metrics")
	fmt.Println("================================")

	// Load the per-channel images into a single multi-channel stack
	img, files, err := loadChannelStack(*inputDir)
	if err != nil {
		log.Fatalf("Failed to load input images: %v", err)
	}
	fmt.Printf("Loaded %d channels (%dx%d) from %s\n",
		img.Channels, img.Width, img.Height, *inputDir)
	if cfg.Output.Verbose {
		for i, f := range files {
			fmt.Printf("  channel %d: %s\n", i, filepath.Base(f))
		}
	}

	cal := cfg.CalibrationFor(img.Channels)
	runCfg := cfg.AnalysisConfig()

	// Run the analysis pipeline
	fmt.Printf("\nRunning %s pattern analysis...\n", *pattern)
	startTime := time.Now()

	var result *analysis.Result
	switch *pattern {
	case "spots":
		result, err = analysis.AnalyzeSpotGrid(img, cal, runCfg)
	case "lines":
		result, err = analysis.AnalyzeLinePattern(img, cal, runCfg)
	}
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}
	processingTime := time.Since(startTime)

	fmt.Printf("\nAnalysis completed in %.2f seconds (state: %s)\n",
		processingTime.Seconds(), result.State)

	for _, w := range result.Warnings {
		fmt.Printf("Warning: %s\n", w)
	}

	// Report key-value records
	for _, record := range result.Records {
		fmt.Printf("\n%s:\n", record.Name)
		fmt.Println(strings.Repeat("=", len(record.Name)+1))
		for _, key := range record.Keys() {
			v := record.Values[key]
			switch v.Kind() {
			case schema.KindScalar:
				fmt.Printf("%s: %.6g\n", key, v.Scalar())
			case schema.KindList:
				fmt.Printf("%s: %s\n", key, formatList(v.List()))
			}
		}
	}

	// Report table shapes and optionally export them
	fmt.Println()
	for _, table := range result.Tables {
		fmt.Printf("Table %s: %d rows, %d columns\n",
			table.Name, table.Rows(), len(table.Columns))
	}

	if *outputDir != "" {
		if err := os.MkdirAll(*outputDir, 0755); err != nil {
			log.Fatalf("Failed to create output directory: %v", err)
		}
		for _, table := range result.Tables {
			path := filepath.Join(*outputDir, table.Name+".csv")
			if err := writeTableCSV(table, path); err != nil {
				log.Fatalf("Failed to write %s: %v", path, err)
			}
			fmt.Printf("Wrote %s\n", path)
		}
	}

	// Save per-channel detection overlays if requested
	if *overlayDir != "" && *pattern == "spots" {
		fmt.Println("\nSaving detection overlays...")
		for c := 0; c < img.Channels; c++ {
			feats, err := detect.Spots(img.Channel(c), c, runCfg.Spots)
			if err != nil {
				log.Printf("Warning: skipping overlay for channel %d: %v", c, err)
				continue
			}

			viewer := visualization.NewViewer(img.Channel(c), feats)
			channelDir := filepath.Join(*overlayDir, fmt.Sprintf("ch%02d", c))
			if err := viewer.SaveOverlaySequence(channelDir); err != nil {
				log.Printf("Warning: failed to save overlays for channel %d: %v", c, err)
				continue
			}
			fmt.Printf("Saved channel %d overlays to: %s\n", c, channelDir)
		}
	}
}

// loadChannelStack reads every TIFF and PNG file in dir, sorted by
// name, and stacks them as the channels of a single 2D image.
func loadChannelStack(dir string) (*models.Image, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("error reading input directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".tif", ".tiff", ".png":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("no TIFF or PNG files found in %s", dir)
	}

	img := &models.Image{Channels: len(files), Depth: 1}
	for i, path := range files {
		plane, w, h, err := loadPlane(path)
		if err != nil {
			return nil, nil, err
		}
		if i == 0 {
			img.Width = w
			img.Height = h
			img.Data = make([]float64, 0, len(files)*w*h)
		} else if w != img.Width || h != img.Height {
			return nil, nil, fmt.Errorf("channel %d has dimensions %dx%d, expected %dx%d",
				i, w, h, img.Width, img.Height)
		}
		img.Data = append(img.Data, plane...)
	}
	return img, files, nil
}

// loadPlane decodes one grayscale image file into row-major intensities.
func loadPlane(path string) ([]float64, int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("error opening %s: %w", path, err)
	}
	defer f.Close()

	var decoded image.Image
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		decoded, err = png.Decode(f)
	default:
		decoded, err = tiff.Decode(f)
	}
	if err != nil {
		return nil, 0, 0, fmt.Errorf("error decoding %s: %w", path, err)
	}

	bounds := decoded.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	plane := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// Gray sources report their full sample in the red channel
			r, _, _, _ := decoded.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			plane[y*w+x] = float64(r)
		}
	}
	return plane, w, h, nil
}

// writeTableCSV exports a metric table with a header row.
func writeTableCSV(table schema.MetricTable, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		header[i] = col.Name
	}
	if err := w.Write(header); err != nil {
		return err
	}

	row := make([]string, len(table.Columns))
	for i := 0; i < table.Rows(); i++ {
		for j, col := range table.Columns {
			row[j] = strconv.FormatFloat(col.Values[i], 'g', -1, 64)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatList(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.FormatFloat(v, 'g', 6, 64)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
