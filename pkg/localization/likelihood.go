package localization

import (
	"context"
	"math"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"adjpeg/pkg/codec"
	"adjpeg/pkg/config"
	"adjpeg/pkg/console"
	"adjpeg/pkg/models"
)

// LikelihoodMap holds one likelihood ratio per block, row-major. Higher
// values mean the block fits single compression better than the image's
// double compression.
type LikelihoodMap struct {
	Rows   int
	Cols   int
	Values []float64
}

// NewLikelihoodMap creates a map with every entry set to 1
func NewLikelihoodMap(rows, cols int) *LikelihoodMap {
	values := make([]float64, rows*cols)
	for i := range values {
		values[i] = 1
	}
	return &LikelihoodMap{Rows: rows, Cols: cols, Values: values}
}

// At returns the ratio of block (row, col)
func (m *LikelihoodMap) At(row, col int) float64 {
	return m.Values[row*m.Cols+col]
}

// Min returns the smallest entry
func (m *LikelihoodMap) Min() float64 {
	return lo.Min(m.Values)
}

// Max returns the largest entry
func (m *LikelihoodMap) Max() float64 {
	return lo.Max(m.Values)
}

// Mean returns the average entry
func (m *LikelihoodMap) Mean() float64 {
	if len(m.Values) == 0 {
		return 0
	}
	return lo.Sum(m.Values) / float64(len(m.Values))
}

// Validate fails with a ComputationError when the map cannot be normalized
func (m *LikelihoodMap) Validate() error {
	if len(m.Values) == 0 {
		return models.NewError(models.ComputationError, "likelihood map is empty")
	}
	if m.Max()-m.Min() == 0 {
		return models.NewError(models.ComputationError, "likelihood map is the same over all values (%g)", m.Values[0])
	}
	return nil
}

// PeriodicFactor is the density ratio between double quantization with
// steps q1 then q2 and single quantization with q2, at quantized value v.
// A non-positive ratio, where no q1 multiple falls into the q2 bin of v,
// is replaced by the neutral 1.
func PeriodicFactor(v, q1, q2 int) float64 {
	fv, fq1, fq2 := float64(v), float64(q1), float64(q2)
	l := fq1 * (math.Ceil(fq2/fq1*(fv-0.5)) - 0.5)
	r := fq1 * (math.Floor(fq2/fq1*(fv+0.5)) + 0.5)
	f := (r - l) / fq2
	if f <= 0 {
		return 1
	}
	return f
}

// ComputeLikelihoodMap multiplies, for every zigzag index, the ratio of the
// single compression probability H0 to the double compression probability
// H1 into a per-block map. H0 sums a Laplace smoothed histogram of the
// unquantized samples over the q2 bin of the observed value; H1 weights H0
// by PeriodicFactor with the estimated q1. Positions are computed in
// parallel and multiplied in ascending order.
func ComputeLikelihoodMap(ctx context.Context, observed *codec.Grid, q2 codec.QuantTable, q1 *Estimate,
	unquantized *codec.Grid, indices []int, cfg config.Config, log *console.Logger) (*LikelihoodMap, error) {
	positions, err := positionsOf(indices)
	if err != nil {
		return nil, err
	}
	if unquantized == nil {
		return nil, models.NewError(models.InputError, "no unquantized samples for the likelihood map")
	}
	if err := checkSteps(q2, positions); err != nil {
		return nil, err
	}
	for i, pos := range positions {
		if q1.Step(pos) < 1 {
			return nil, models.NewError(models.ConfigError, "no primary quantization estimate for coefficient %d %s", indices[i], pos)
		}
	}

	ratios := make([][]float64, len(positions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.WorkerCount())
	for i, pos := range positions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := positionRatios(observed.Plane(pos), unquantized.Plane(pos), q1.Step(pos), q2.At(pos), cfg.SymmetricRange)
			if err != nil {
				return models.WrapError(models.RangeError, err, "coefficient %d %s", indices[i], pos)
			}
			ratios[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m := NewLikelihoodMap(observed.BlocksY, observed.BlocksX)
	for i, r := range ratios {
		for b, v := range r {
			m.Values[b] *= v
		}
		log.Debugf("Current DCT coefficient: %d %s; Q1: %d; Q2: %d; mean ratio: %.4f",
			indices[i], positions[i], q1.Step(positions[i]), q2.At(positions[i]), lo.Sum(r)/float64(len(r)))
	}
	return m, nil
}

// positionRatios returns H0/H1 for every block of one frequency position
func positionRatios(observed, unquantized []int32, q1, q2, bound int) ([]float64, error) {
	// p0 is the smoothed unquantized density, cumulated so a window sum is
	// a difference of two entries
	hist := NewHistogram(bound).Fill(unquantized)
	norm := float64(len(unquantized) + len(hist.Bins))
	cum := make([]float64, len(hist.Bins)+1)
	for i, c := range hist.Bins {
		cum[i+1] = cum[i] + (c+1)/norm
	}

	fq2 := float64(q2)
	out := make([]float64, len(observed))
	for b, v := range observed {
		center := fq2 * float64(v)
		from := int(math.RoundToEven(center - fq2/2))
		to := int(math.RoundToEven(center + fq2/2))
		if from < -bound || to > bound {
			return nil, models.NewError(models.RangeError,
				"quantization window [%d, %d] of value %d with step %d exceeds the symmetric range %d",
				from, to, v, q2, bound)
		}
		h0 := cum[to+bound+1] - cum[from+bound]
		h1 := h0 * PeriodicFactor(int(v), q1, q2)
		out[b] = h0 / h1
	}
	return out, nil
}
