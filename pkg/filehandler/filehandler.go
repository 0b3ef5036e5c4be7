package filehandler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

/*
File explanation:
This file contains utility functions for file handling, such as detecting file formats, naming outputs and saving reports.
The DetectFileFormat function detects the format of a file by checking the extension and content type.
The OutputPath function derives where the likelihood map of an input image is written.
The SaveReport function writes analysis results as indented JSON.
*/

// SupportedImageFormats is a map of file extensions to their format names
var SupportedImageFormats = map[string]string{
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".jpe":  "jpeg",
	".jfif": "jpeg",
}

// DetectFileFormat detects the format of a file
func DetectFileFormat(filePath string) (string, error) {
	// First check extension
	ext := strings.ToLower(filepath.Ext(filePath))
	if format, ok := SupportedImageFormats[ext]; ok {
		return format, nil
	}

	// If extension not recognized, try to detect by content
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	// Read first 512 bytes to detect content type
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	contentType := http.DetectContentType(buffer[:n])
	if strings.Contains(contentType, "image/jpeg") {
		return "jpeg", nil
	}
	return "", fmt.Errorf("unsupported file format: %s", contentType)
}

// OutputPath returns the likelihood map path for input inside outputDir,
// named adjpeg_<input base name>
func OutputPath(outputDir, input string) string {
	base := filepath.Base(input)
	ext := filepath.Ext(base)
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
	default:
		base = strings.TrimSuffix(base, ext) + ".jpg"
	}
	return filepath.Join(outputDir, "adjpeg_"+base)
}

// EnsureDir creates dir and its parents if they do not exist
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// SaveReport writes v as indented JSON to path
func SaveReport(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := EnsureDir(dir); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
