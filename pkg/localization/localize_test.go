package localization

import (
	"context"
	"image"
	"math/rand"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adjpeg/pkg/codec"
	"adjpeg/pkg/config"
	"adjpeg/pkg/models"
	"adjpeg/pkg/zigzag"
)

func texture(rng *rand.Rand, w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			base := 128 + 60*((x/5+y/7)%3-1)
			img.Pix[y*img.Stride+x] = uint8(max(0, min(255, base+rng.Intn(41)-20)))
		}
	}
	return img
}

// doubleCompressed compresses px with q1, decodes it and compresses the
// result again with q2
func doubleCompressed(t *testing.T, px *image.Gray, q1, q2 int) *codec.Image {
	t.Helper()
	first, err := codec.EncodeSpatial(px, codec.QualityTable(q1))
	require.NoError(t, err)
	second, err := codec.EncodeSpatial(codec.DecodeSpatial(first), codec.QualityTable(q2))
	require.NoError(t, err)
	return second
}

func scratchConfig(t *testing.T) config.Config {
	cfg := testConfig()
	cfg.TempDir = t.TempDir()
	return cfg
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch files left behind in %s", dir)
}

func TestSamplerRejectsUndersizedImages(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	cfg := scratchConfig(t)
	sampler := NewSampler(cfg, nil)

	for _, size := range []image.Point{{16, 40}, {40, 16}, {8, 8}} {
		img, err := codec.EncodeSpatial(texture(rng, size.X, size.Y), codec.QualityTable(90))
		require.NoError(t, err)

		_, err = sampler.Cropped(context.Background(), img)
		assert.ErrorIs(t, err, models.ErrInput, "%v", size)
		_, err = sampler.Shifted(context.Background(), img)
		assert.ErrorIs(t, err, models.ErrInput, "%v", size)
		_, err = Localize(context.Background(), img, cfg, nil)
		assert.ErrorIs(t, err, models.ErrInput, "%v", size)
	}
	assertEmptyDir(t, cfg.TempDir)
}

func TestSamplerCropped(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	cfg := scratchConfig(t)
	img := doubleCompressed(t, texture(rng, 64, 48), 60, 85)

	samples, err := NewSampler(cfg, nil).Cropped(context.Background(), img)
	require.NoError(t, err)
	require.NotNil(t, samples.Unquantized)
	require.NotNil(t, samples.SingleQ2)
	assert.Equal(t, 7, samples.Unquantized.BlocksX)
	assert.Equal(t, 5, samples.Unquantized.BlocksY)
	assert.Equal(t, samples.Unquantized.Blocks(), samples.SingleQ2.Blocks())
	assertEmptyDir(t, cfg.TempDir)

	cfg.UseMixture = false
	samples, err = NewSampler(cfg, nil).Cropped(context.Background(), img)
	require.NoError(t, err)
	assert.Nil(t, samples.SingleQ2)
}

func TestSamplerShifted(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	cfg := scratchConfig(t)
	img := doubleCompressed(t, texture(rng, 40, 33), 70, 90)

	grid, err := NewSampler(cfg, nil).Shifted(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, img.Grid.BlocksX, grid.BlocksX)
	assert.Equal(t, img.Grid.BlocksY, grid.BlocksY)
	assertEmptyDir(t, cfg.TempDir)
}

func TestSamplerCleansUpOnCancel(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	cfg := scratchConfig(t)
	img := doubleCompressed(t, texture(rng, 40, 40), 70, 90)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSampler(cfg, nil).Cropped(ctx, img)
	assert.ErrorIs(t, err, context.Canceled)
	assertEmptyDir(t, cfg.TempDir)
}

func TestLocalizeEndToEnd(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	cfg := scratchConfig(t)
	img := doubleCompressed(t, texture(rng, 96, 80), 50, 80)

	res, err := Localize(context.Background(), img, cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, res.Indices)
	assert.Equal(t, img.Quant, res.Q2)
	assert.Equal(t, 10, res.Map.Rows)
	assert.Equal(t, 12, res.Map.Cols)
	for _, v := range res.Map.Values {
		assert.Greater(t, v, 0.0)
	}
	for _, idx := range res.Indices {
		p := zigzag.Index(idx)
		assert.GreaterOrEqual(t, res.Q1.Steps[p.Row][p.Col], 1)
		assert.LessOrEqual(t, res.Q1.Steps[p.Row][p.Col], cfg.MaxCandidateStep)
	}
	assert.Zero(t, res.Q1.Steps[0][0])
	assertEmptyDir(t, cfg.TempDir)
}

func TestLocalizeRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Range = config.CoefficientRange{Start: 5, End: 2}
	_, err := Localize(context.Background(), &codec.Image{}, cfg, nil)
	assert.ErrorIs(t, err, models.ErrConfig)
}

func TestZeroQuantizationStepIsInputError(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	cfg := scratchConfig(t)
	cfg.UseMixture = false
	img := doubleCompressed(t, texture(rng, 40, 40), 70, 90)
	p := zigzag.Index(3)
	img.Quant[p.Row][p.Col] = 0

	_, err := Localize(context.Background(), img, cfg, nil)
	assert.ErrorIs(t, err, models.ErrInput)
	assertEmptyDir(t, cfg.TempDir)

	samples := &Samples{Unquantized: img.Grid}
	_, err = EstimatePrimaryQuantization(context.Background(), img.Grid, img.Quant, samples, []int{3}, cfg, nil)
	assert.ErrorIs(t, err, models.ErrInput)

	q1 := &Estimate{}
	q1.Steps[p.Row][p.Col] = 4
	_, err = ComputeLikelihoodMap(context.Background(), img.Grid, img.Quant, q1, img.Grid, []int{3}, cfg, nil)
	assert.ErrorIs(t, err, models.ErrInput)

	// a zero step outside the analyzed range is never used
	_, err = EstimatePrimaryQuantization(context.Background(), img.Grid, img.Quant, samples, []int{1, 2}, cfg, nil)
	assert.NoError(t, err)
}
