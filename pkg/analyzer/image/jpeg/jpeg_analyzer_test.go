package jpeg

import (
	"context"
	"image"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adjpeg/pkg/analyzer"
	"adjpeg/pkg/codec"
	"adjpeg/pkg/config"
	"adjpeg/pkg/models"
)

// writeDoubleCompressed writes a textured image compressed with q1 and then
// again with q2
func writeDoubleCompressed(t *testing.T, path string, w, h, q1, q2 int) {
	t.Helper()
	rng := rand.New(rand.NewSource(21))
	px := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			base := 128 + 50*((x/6+y/4)%3-1)
			px.Pix[y*px.Stride+x] = uint8(max(0, min(255, base+rng.Intn(31)-15)))
		}
	}
	first, err := codec.EncodeSpatial(px, codec.QualityTable(q1))
	require.NoError(t, err)
	require.NoError(t, codec.WriteSpatial(path, codec.DecodeSpatial(first), codec.QualityTable(q2)))
}

func testOptions(t *testing.T) analyzer.AnalysisOptions {
	cfg := config.Default()
	cfg.Workers = 2
	cfg.TempDir = t.TempDir()
	return analyzer.AnalysisOptions{Config: cfg}
}

func TestRegistryReturnsJPEGAnalyzer(t *testing.T) {
	registry := analyzer.NewRegistry()
	registry.Register(NewJPEGAnalyzer())

	analyzers := registry.GetAnalyzersForFormat("jpeg")
	require.Len(t, analyzers, 1)
	assert.Equal(t, "JPEG Analyzer", analyzers[0].Name())
	assert.True(t, analyzers[0].CanAnalyze("jpg"))
	assert.False(t, analyzers[0].CanAnalyze("png"))
	assert.Equal(t, []string{"jpeg", "jpg"}, registry.GetSupportedFormats())
	assert.Empty(t, registry.GetAnalyzersForFormat("gif"))

	a, err := registry.AnalyzerFor(" JPG ")
	require.NoError(t, err)
	assert.Equal(t, "JPEG Analyzer", a.Name())
	assert.NotEmpty(t, a.Description())

	_, err = registry.AnalyzerFor("png")
	assert.ErrorIs(t, err, models.ErrInput)
}

func TestAnalyzeEndToEnd(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "input.jpg")
	writeDoubleCompressed(t, src, 80, 64, 55, 85)

	opts := testOptions(t)
	opts.OutputPath = filepath.Join(dir, "out", "adjpeg_input.jpg")

	result, err := NewJPEGAnalyzer().Analyze(context.Background(), src, opts)
	require.NoError(t, err)

	assert.Equal(t, "jpeg", result.FileType)
	assert.Equal(t, 80, result.Width)
	assert.Equal(t, 64, result.Height)
	assert.Equal(t, 10, result.BlocksX)
	assert.Equal(t, 8, result.BlocksY)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, result.Coefficients)
	q2 := codec.QualityTable(85)
	assert.Equal(t, q2.Ints(), result.SecondaryQuantization)
	assert.Greater(t, result.Likelihood.Min, 0.0)
	assert.Greater(t, result.Likelihood.Max, result.Likelihood.Min)
	assert.GreaterOrEqual(t, result.DetectionScore, 0.0)
	assert.LessOrEqual(t, result.DetectionScore, 1.0)
	assert.NotEmpty(t, result.Findings)
	assert.Equal(t, opts.OutputPath, result.OutputPath)

	rendered, err := codec.ReadDCT(opts.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, 80, rendered.Width)
	assert.Equal(t, 64, rendered.Height)

	entries, err := os.ReadDir(opts.Config.TempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAnalyzeReportsAppendedData(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "input.jpg")
	writeDoubleCompressed(t, src, 48, 48, 60, 90)

	f, err := os.OpenFile(src, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.Write([]byte("hidden payload"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	result, err := NewJPEGAnalyzer().Analyze(context.Background(), src, testOptions(t))
	require.NoError(t, err)
	assert.Empty(t, result.OutputPath)

	var found bool
	for _, f := range result.Findings {
		if f.Description == "Found appended data after EOF" {
			found = true
			assert.Contains(t, f.Details, "14 bytes")
		}
	}
	assert.True(t, found)
}

func TestAnalyzeErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewJPEGAnalyzer().Analyze(context.Background(), filepath.Join(dir, "missing.jpg"), testOptions(t))
	assert.ErrorIs(t, err, models.ErrInput)

	small := filepath.Join(dir, "small.jpg")
	writeDoubleCompressed(t, small, 16, 40, 60, 90)
	_, err = NewJPEGAnalyzer().Analyze(context.Background(), small, testOptions(t))
	assert.ErrorIs(t, err, models.ErrInput)

	opts := testOptions(t)
	opts.Config.Range = config.CoefficientRange{Start: 3, End: 3}
	_, err = NewJPEGAnalyzer().Analyze(context.Background(), small, opts)
	assert.ErrorIs(t, err, models.ErrConfig)
}
