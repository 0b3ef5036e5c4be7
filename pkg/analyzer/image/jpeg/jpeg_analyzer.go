package jpeg

import (
	"context"
	"fmt"
	"os"
	"time"

	"adjpeg/pkg/analyzer"
	"adjpeg/pkg/codec"
	"adjpeg/pkg/localization"
	"adjpeg/pkg/models"
	"adjpeg/pkg/render"
)

// JPEGAnalyzer localizes regions of a JPEG image that were not compressed
// twice like the rest of it
type JPEGAnalyzer struct {
	analyzer.BaseAnalyzer
}

// NewJPEGAnalyzer creates a new JPEG analyzer
func NewJPEGAnalyzer() *JPEGAnalyzer {
	return &JPEGAnalyzer{
		BaseAnalyzer: analyzer.NewBaseAnalyzer(
			"JPEG Analyzer",
			"Localizes splicing in JPEG images from double quantization artifacts",
			[]string{"jpeg", "jpg"},
		),
	}
}

// Analyze performs double compression localization on a JPEG file
func (a *JPEGAnalyzer) Analyze(ctx context.Context, filePath string, options analyzer.AnalysisOptions) (*models.LocalizationResult, error) {
	start := time.Now()
	log := options.Log
	cfg := options.Config

	log.Infof("Reading DCT coefficients of %s", filePath)
	img, err := codec.ReadDCT(filePath)
	if err != nil {
		return nil, err
	}

	res, err := localization.Localize(ctx, img, cfg, log)
	if err != nil {
		return nil, err
	}

	norm, err := render.Normalize(res.Map, 1.0)
	if err != nil {
		return nil, err
	}

	result := &models.LocalizationResult{
		FileType:              "jpeg",
		Filename:              filePath,
		Width:                 img.Width,
		Height:                img.Height,
		BlocksX:               res.Map.Cols,
		BlocksY:               res.Map.Rows,
		Coefficients:          res.Indices,
		PrimaryQuantization:   res.Q1.Steps,
		SecondaryQuantization: res.Q2.Ints(),
		Likelihood: models.LikelihoodStats{
			Min:  res.Map.Min(),
			Max:  res.Map.Max(),
			Mean: res.Map.Mean(),
		},
		DetectionScore:  render.HighFraction(norm),
		Findings:        []models.Finding{},
		Recommendations: []string{},
		AnalysisTime:    start,
	}

	if options.OutputPath != "" {
		if err := render.Write(options.OutputPath, res.Map, cfg.OutputQuality); err != nil {
			return nil, err
		}
		result.OutputPath = options.OutputPath
		log.Successf("Likelihood map written to %s", options.OutputPath)
	}

	a.interpret(result, res)

	trailing, err := appendedData(filePath)
	if err != nil {
		log.Warningf("Could not check for appended data: %v", err)
	} else if trailing > 0 {
		result.AddFinding("Found appended data after EOF", 0.8,
			fmt.Sprintf("Found %d bytes of appended data", trailing))
		result.Recommendations = append(result.Recommendations,
			"Inspect the data after the JPEG EOF marker, editors rarely leave it behind")
	}

	result.AnalysisDuration = time.Since(start)
	return result, nil
}

// interpret turns the estimate and the map statistics into findings
func (a *JPEGAnalyzer) interpret(result *models.LocalizationResult, res *localization.Result) {
	mismatched := result.MismatchedPositions()
	analyzed := len(res.Indices)

	if mismatched > 0 {
		conf := float64(mismatched) / float64(analyzed)
		result.AddFinding("Primary quantization differs from the current table", conf,
			fmt.Sprintf("%d of %d analyzed coefficients were quantized with a different step before", mismatched, analyzed))
	} else {
		result.AddFinding("No evidence of an earlier compression", 0.5,
			"Estimated primary steps match the current quantization table")
		result.Recommendations = append(result.Recommendations,
			"Double compression artifacts are weak, the likelihood map may be unreliable")
	}

	switch {
	case result.DetectionScore > 0.5:
		result.AddFinding("Most blocks are inconsistent with double compression", result.DetectionScore,
			fmt.Sprintf("%.1f%% of the blocks lie in the upper half of the likelihood range", result.DetectionScore*100))
		result.Recommendations = append(result.Recommendations,
			"The image may have been compressed only once, or the estimate may be off; try a narrower coefficient range")
	case result.DetectionScore > 0:
		result.AddFinding("Blocks inconsistent with double compression", result.DetectionScore,
			fmt.Sprintf("%.1f%% of the blocks lie in the upper half of the likelihood range", result.DetectionScore*100))
		result.Recommendations = append(result.Recommendations,
			"Inspect the bright regions of the likelihood map for spliced content")
	}
}

// appendedData returns the number of bytes after the last EOI marker
func appendedData(filePath string) (int64, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return 0, err
	}

	// JPEG files end with the EOI marker: 0xFF 0xD9
	for pos := len(data) - 2; pos >= 0; pos-- {
		if data[pos] == 0xFF && data[pos+1] == 0xD9 {
			return int64(len(data) - pos - 2), nil
		}
	}
	return 0, fmt.Errorf("invalid JPEG: no EOI marker found")
}
