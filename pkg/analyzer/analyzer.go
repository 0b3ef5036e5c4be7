package analyzer

import (
	"context"

	"adjpeg/pkg/config"
	"adjpeg/pkg/console"
	"adjpeg/pkg/models"
)

/*
Analyzer.go contains the interface and base implementation for file analyzers.
FileAnalyzer: interface defines the methods that all file analyzers must implement.
BaseAnalyzer: struct provides common functionality for analyzers, such as name, description, and supported formats.
AnalysisOptions: struct holds the analysis configuration, the logger progress goes to and where the rendered likelihood map is written.
*/

// AnalysisOptions holds configuration options for analysis
type AnalysisOptions struct {
	Config config.Config
	Log    *console.Logger

	// OutputPath receives the rendered likelihood map. Empty skips rendering.
	OutputPath string
}

// FileAnalyzer is the interface that all file analyzers must implement
type FileAnalyzer interface {
	// CanAnalyze checks if this analyzer can handle the given format
	CanAnalyze(format string) bool

	// Analyze performs analysis on a file and returns results
	Analyze(ctx context.Context, filePath string, options AnalysisOptions) (*models.LocalizationResult, error)

	// Name returns the name of the analyzer
	Name() string

	// Description returns a detailed description of what the analyzer does
	Description() string

	// SupportedFormats returns a list of file formats this analyzer supports
	SupportedFormats() []string
}

// BaseAnalyzer provides common functionality for analyzers
type BaseAnalyzer struct {
	name        string
	description string
	formats     []string
}

// NewBaseAnalyzer creates a new BaseAnalyzer
func NewBaseAnalyzer(name, description string, formats []string) BaseAnalyzer {
	return BaseAnalyzer{
		name:        name,
		description: description,
		formats:     formats,
	}
}

// Name returns the analyzer name
func (b *BaseAnalyzer) Name() string {
	return b.name
}

// Description returns the analyzer description
func (b *BaseAnalyzer) Description() string {
	return b.description
}

// SupportedFormats returns the supported formats
func (b *BaseAnalyzer) SupportedFormats() []string {
	return b.formats
}

// CanAnalyze checks if the analyzer supports the given format
func (b *BaseAnalyzer) CanAnalyze(format string) bool {
	for _, f := range b.formats {
		if f == format {
			return true
		}
	}
	return false
}
