// Package render turns a likelihood map into a grayscale JPEG where every
// block of the analyzed image becomes a uniform 8x8 tile.
package render

import (
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	"adjpeg/pkg/codec"
	"adjpeg/pkg/localization"
)

// TileSize is the edge length in pixels of one rendered block
const TileSize = 8

// Normalize min-max scales m to [0, 255], multiplies by brightness and clips.
// The result has one pixel per block.
func Normalize(m *localization.LikelihoodMap, brightness float64) (*image.Gray, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	lo, hi := m.Min(), m.Max()
	img := image.NewGray(image.Rect(0, 0, m.Cols, m.Rows))
	for r := 0; r < m.Rows; r++ {
		for c := 0; c < m.Cols; c++ {
			v := (m.At(r, c) - lo) / (hi - lo) * 255 * brightness
			img.Pix[r*img.Stride+c] = uint8(math.Round(math.Max(0, math.Min(255, v))))
		}
	}
	return img, nil
}

// Tiles scales img up by an integer factor so each source pixel covers a
// scale x scale square
func Tiles(img *image.Gray, scale int) *image.Gray {
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// Render normalizes m with unit brightness and expands it to tiles
func Render(m *localization.LikelihoodMap) (*image.Gray, error) {
	norm, err := Normalize(m, 1.0)
	if err != nil {
		return nil, err
	}
	return Tiles(norm, TileSize), nil
}

// Write renders m and stores it as a JPEG of the given quality at path,
// creating the parent directory when needed
func Write(path string, m *localization.LikelihoodMap, quality int) error {
	img, err := Render(m)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := codec.WriteSpatial(path, img, codec.QualityTable(quality)); err != nil {
		return fmt.Errorf("failed to write likelihood map: %w", err)
	}
	return nil
}

// HighFraction returns the share of pixels of a normalized map above the
// midpoint of the intensity range
func HighFraction(norm *image.Gray) float64 {
	if len(norm.Pix) == 0 {
		return 0
	}
	n := 0
	for _, p := range norm.Pix {
		if float64(p) > 127.5 {
			n++
		}
	}
	return float64(n) / float64(len(norm.Pix))
}
