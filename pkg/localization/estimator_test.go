package localization

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adjpeg/pkg/codec"
	"adjpeg/pkg/config"
	"adjpeg/pkg/console"
	"adjpeg/pkg/models"
	"adjpeg/pkg/zigzag"
)

// laplacian draws n integer samples from a Laplace distribution
func laplacian(rng *rand.Rand, n int, scale float64) []int32 {
	out := make([]int32, n)
	for i := range out {
		v := rng.ExpFloat64() * scale
		if rng.Intn(2) == 0 {
			v = -v
		}
		out[i] = int32(math.Round(v))
	}
	return out
}

// doubleQuantize simulates quantization with q1, dequantization and
// quantization with q2
func doubleQuantize(values []int32, q1, q2 int) []int32 {
	out := make([]int32, len(values))
	for i, u := range values {
		c1 := roundHalfEven(float64(u), float64(q1)) * int64(q1)
		out[i] = int32(roundHalfEven(float64(c1), float64(q2)))
	}
	return out
}

func setPlane(g *codec.Grid, p zigzag.Position, values []int32) {
	for i, v := range values {
		g.Set(i/g.BlocksX, i%g.BlocksX, p, int16(v))
	}
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Workers = 4
	return cfg
}

func TestEstimateRecoversPrimaryStep(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const blocksY, blocksX = 64, 64

	cases := []struct {
		index int
		q1    int
		q2    int
	}{
		{1, 10, 20},
		{2, 7, 3},
		{3, 12, 5},
	}

	observed := codec.NewGrid(blocksY, blocksX)
	unquantized := codec.NewGrid(blocksY, blocksX)
	var q2 codec.QuantTable
	for _, c := range cases {
		p := zigzag.Index(c.index)
		u := laplacian(rng, blocksY*blocksX, 40)
		setPlane(unquantized, p, u)
		setPlane(observed, p, doubleQuantize(u, c.q1, c.q2))
		q2[p.Row][p.Col] = uint16(c.q2)
	}
	indices := []int{1, 2, 3}

	t.Run("without mixture", func(t *testing.T) {
		cfg := testConfig()
		cfg.UseMixture = false
		est, err := EstimatePrimaryQuantization(context.Background(), observed, q2,
			&Samples{Unquantized: unquantized}, indices, cfg, nil)
		require.NoError(t, err)
		for _, c := range cases {
			p := zigzag.Index(c.index)
			assert.Equal(t, c.q1, est.Step(p), "coefficient %d", c.index)
			assert.Zero(t, est.Scores[p.Row][p.Col])
		}
		assert.Zero(t, est.Total)
	})

	t.Run("with mixture", func(t *testing.T) {
		est, err := EstimatePrimaryQuantization(context.Background(), observed, q2,
			&Samples{Unquantized: unquantized, SingleQ2: observed}, indices, testConfig(), nil)
		require.NoError(t, err)
		for _, c := range cases {
			assert.Equal(t, c.q1, est.Step(zigzag.Index(c.index)), "coefficient %d", c.index)
		}
	})

	t.Run("unanalyzed positions stay unset", func(t *testing.T) {
		est, err := EstimatePrimaryQuantization(context.Background(), observed, q2,
			&Samples{Unquantized: unquantized}, []int{1}, testConfig(), nil)
		require.NoError(t, err)
		assert.Equal(t, 10, est.Steps[0][1])
		assert.Zero(t, est.Steps[1][0])
		assert.Zero(t, est.Steps[0][0])
	})
}

func TestEstimateTiesKeepSmallestStep(t *testing.T) {
	// all-zero planes give the same histogram for every candidate
	g := codec.NewGrid(4, 4)
	est, err := EstimatePrimaryQuantization(context.Background(), g, codec.Uniform(8),
		&Samples{Unquantized: g, SingleQ2: g}, []int{5}, testConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, est.Step(zigzag.Index(5)))
}

func TestEstimateStepsWithinCandidateRange(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	observed := codec.NewGrid(16, 16)
	unquantized := codec.NewGrid(16, 16)
	indices := []int{1, 2, 3, 4, 5}
	for _, idx := range indices {
		p := zigzag.Index(idx)
		setPlane(observed, p, laplacian(rng, 256, 3))
		setPlane(unquantized, p, laplacian(rng, 256, 50))
	}

	cfg := testConfig()
	cfg.MaxCandidateStep = 17
	est, err := EstimatePrimaryQuantization(context.Background(), observed, codec.Uniform(6),
		&Samples{Unquantized: unquantized}, indices, cfg, nil)
	require.NoError(t, err)
	for _, idx := range indices {
		s := est.Step(zigzag.Index(idx))
		assert.GreaterOrEqual(t, s, 1)
		assert.LessOrEqual(t, s, 17)
	}
}

func TestEstimateErrors(t *testing.T) {
	g := codec.NewGrid(2, 2)
	samples := &Samples{Unquantized: g}

	_, err := EstimatePrimaryQuantization(context.Background(), g, codec.Uniform(1), samples, []int{64}, testConfig(), nil)
	assert.ErrorIs(t, err, models.ErrConfig)

	_, err = EstimatePrimaryQuantization(context.Background(), g, codec.Uniform(1), samples, nil, testConfig(), nil)
	assert.ErrorIs(t, err, models.ErrConfig)

	_, err = EstimatePrimaryQuantization(context.Background(), g, codec.Uniform(1), &Samples{}, []int{1}, testConfig(), nil)
	assert.ErrorIs(t, err, models.ErrInput)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = EstimatePrimaryQuantization(ctx, g, codec.Uniform(1), samples, []int{1, 2}, testConfig(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHistogram(t *testing.T) {
	h := NewHistogram(3)
	require.Len(t, h.Bins, 7)

	h.Fill([]int32{-3, -1, 0, 0, 3, 4, -9})
	assert.Equal(t, []float64{1, 0, 1, 2, 0, 0, 1}, h.Bins)
	assert.Equal(t, 2.0, h.At(0))
	assert.Zero(t, h.At(4))

	other := NewHistogram(3).Fill([]int32{0, 0, 1})
	assert.Equal(t, 4.0, h.L1(other))

	mix := NewHistogram(3).Mix(h, 0.5, other, 0.5)
	assert.Equal(t, 2.0, mix.At(0))
	assert.Equal(t, 0.5, mix.At(1))

	h.Reset()
	assert.Zero(t, h.L1(NewHistogram(3)))
}

func TestRoundHalfEven(t *testing.T) {
	assert.Equal(t, int64(0), roundHalfEven(1, 2))
	assert.Equal(t, int64(2), roundHalfEven(3, 2))
	assert.Equal(t, int64(-2), roundHalfEven(-3, 2))
	assert.Equal(t, int64(2), roundHalfEven(5, 2.5))
}

func TestEstimateDebugPrintsHistograms(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	const blocksY, blocksX = 32, 32
	p := zigzag.Index(1)
	u := laplacian(rng, blocksY*blocksX, 40)
	observed := codec.NewGrid(blocksY, blocksX)
	unquantized := codec.NewGrid(blocksY, blocksX)
	setPlane(unquantized, p, u)
	setPlane(observed, p, doubleQuantize(u, 10, 20))
	var q2 codec.QuantTable
	q2[p.Row][p.Col] = 20

	cfg := testConfig()
	cfg.UseMixture = false

	var out bytes.Buffer
	log := console.New(&out, config.Debug, true)
	est, err := EstimatePrimaryQuantization(context.Background(), observed, q2,
		&Samples{Unquantized: unquantized}, []int{1}, cfg, log)
	require.NoError(t, err)
	require.Zero(t, est.Scores[p.Row][p.Col])

	text := out.String()
	require.Contains(t, text, "[d] index\timg\tapprox")

	// the winning simulation reproduces the observed histogram exactly
	obs := NewHistogram(cfg.SymmetricRange).Fill(observed.Plane(p))
	from, to, ok := obs.Span(obs)
	require.True(t, ok)
	for v := from; v <= to; v++ {
		row := fmt.Sprintf("[d] %d\t%.0f\t%.0f\n", v, obs.At(v), obs.At(v))
		assert.Contains(t, text, row)
	}

	out.Reset()
	quiet := console.New(&out, config.Normal, true)
	_, err = EstimatePrimaryQuantization(context.Background(), observed, q2,
		&Samples{Unquantized: unquantized}, []int{1}, cfg, quiet)
	require.NoError(t, err)
	assert.False(t, strings.Contains(out.String(), "approx"))
}

func TestHistogramSpanAndCopy(t *testing.T) {
	a := NewHistogram(4).Fill([]int32{-2, 1})
	b := NewHistogram(4).Fill([]int32{3})

	from, to, ok := a.Span(b)
	require.True(t, ok)
	assert.Equal(t, -2, from)
	assert.Equal(t, 3, to)

	_, _, ok = NewHistogram(4).Span(NewHistogram(4))
	assert.False(t, ok)

	c := NewHistogram(4).CopyFrom(a)
	assert.Equal(t, a.Bins, c.Bins)
	a.Reset()
	assert.Equal(t, 1.0, c.At(1))
}
