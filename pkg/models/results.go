package models

import (
	"time"
)

// LocalizationResult contains the results of a double compression analysis
type LocalizationResult struct {
	FileType string `json:"fileType"`
	Filename string `json:"filename"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	BlocksX  int    `json:"blocksX"`
	BlocksY  int    `json:"blocksY"`

	// Zigzag indices actually analyzed, in ascending order
	Coefficients []int `json:"coefficients"`

	// Quantization steps in natural 8x8 order. 0 marks an unanalyzed position.
	PrimaryQuantization   [8][8]int `json:"primaryQuantization"`
	SecondaryQuantization [8][8]int `json:"secondaryQuantization"`

	Likelihood LikelihoodStats `json:"likelihood"`

	// DetectionScore is the fraction of blocks whose likelihood ratio lies
	// above the midpoint of the normalized map
	DetectionScore float64 `json:"detectionScore"`

	Findings         []Finding     `json:"findings"`
	Recommendations  []string      `json:"recommendations"`
	OutputPath       string        `json:"outputPath,omitempty"`
	AnalysisTime     time.Time     `json:"analysisTime"`
	AnalysisDuration time.Duration `json:"analysisDuration"`
}

// LikelihoodStats summarizes a likelihood map
type LikelihoodStats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// Finding represents a specific detection or discovery during analysis
type Finding struct {
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"` // 0.0-1.0
	Details     string  `json:"details"`
}

// AddFinding adds a finding to the analysis result
func (r *LocalizationResult) AddFinding(description string, confidence float64, details string) {
	r.Findings = append(r.Findings, Finding{
		Description: description,
		Confidence:  confidence,
		Details:     details,
	})
}

// MismatchedPositions counts analyzed positions whose primary step differs
// from the secondary step
func (r *LocalizationResult) MismatchedPositions() int {
	n := 0
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			if r.PrimaryQuantization[i][j] != 0 && r.PrimaryQuantization[i][j] != r.SecondaryQuantization[i][j] {
				n++
			}
		}
	}
	return n
}
