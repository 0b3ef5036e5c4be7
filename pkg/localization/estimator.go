package localization

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"adjpeg/pkg/codec"
	"adjpeg/pkg/config"
	"adjpeg/pkg/console"
	"adjpeg/pkg/models"
	"adjpeg/pkg/zigzag"
)

// Estimate is a primary quantization estimate. Positions that were not
// analyzed hold a zero step.
type Estimate struct {
	Steps [8][8]int
	// Scores holds the L1 histogram distance of the chosen step
	Scores [8][8]float64
	Total  float64
}

// Step returns the estimated step at p, 0 if p was not analyzed
func (e *Estimate) Step(p zigzag.Position) int {
	return e.Steps[p.Row][p.Col]
}

type positionEstimate struct {
	pos zigzag.Position
	stepSearch
}

// stepSearch is the outcome of the candidate search at one position. The
// histograms are only kept for debug output.
type stepSearch struct {
	q1    int
	score float64

	observed *Histogram
	// approx is the simulated double quantization histogram of q1
	approx *Histogram
}

// EstimatePrimaryQuantization searches, for every zigzag index, the primary
// step q1 in [1, MaxCandidateStep] whose simulated double quantization of
// the unquantized samples best matches the observed coefficient histogram.
// With the mixture enabled the simulated histogram is averaged with the
// histogram of the samples compressed once at Q2. Ties keep the smallest q1.
func EstimatePrimaryQuantization(ctx context.Context, observed *codec.Grid, q2 codec.QuantTable,
	samples *Samples, indices []int, cfg config.Config, log *console.Logger) (*Estimate, error) {
	positions, err := positionsOf(indices)
	if err != nil {
		return nil, err
	}
	if samples == nil || samples.Unquantized == nil {
		return nil, models.NewError(models.InputError, "no unquantized samples to estimate from")
	}
	if err := checkSteps(q2, positions); err != nil {
		return nil, err
	}
	mixture := cfg.UseMixture && samples.SingleQ2 != nil

	results := make([]positionEstimate, len(positions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.WorkerCount())
	for i, pos := range positions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var single []int32
			if mixture {
				single = samples.SingleQ2.Plane(pos)
			}
			search := estimateStep(
				observed.Plane(pos),
				samples.Unquantized.Plane(pos),
				single,
				q2.At(pos),
				cfg.MaxCandidateStep,
				cfg.SymmetricRange,
				log.DebugEnabled(),
			)
			results[i] = positionEstimate{pos: pos, stepSearch: search}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	est := &Estimate{}
	for i, r := range results {
		est.Steps[r.pos.Row][r.pos.Col] = r.q1
		est.Scores[r.pos.Row][r.pos.Col] = r.score
		est.Total += r.score
		log.Debugf("DCT coefficient: %d; (x,y): %s; Q1: %d; Q2: %d; L: %.0f",
			indices[i], r.pos, r.q1, q2.At(r.pos), r.score)
		debugHistograms(log, r.observed, r.approx)
	}
	log.Debugf("Error sum: %.0f", est.Total)
	return est, nil
}

// estimateStep runs the candidate search for one frequency position. The
// histogram buffers are allocated once and reused for every candidate. With
// keep set the observed and best simulated histograms are returned as well.
func estimateStep(observed, unquantized, singleQ2 []int32, q2, maxStep, bound int, keep bool) stepSearch {
	hObs := NewHistogram(bound).Fill(observed)
	hC2 := NewHistogram(bound)

	var hQ2, hMix, hBest *Histogram
	if singleQ2 != nil {
		hQ2 = NewHistogram(bound).Fill(singleQ2)
		hMix = NewHistogram(bound)
	}
	if keep {
		hBest = NewHistogram(bound)
	}

	best, bestScore := 0, math.Inf(1)
	fq2 := float64(q2)
	for q1 := 1; q1 <= maxStep; q1++ {
		fq1 := float64(q1)
		hC2.Reset()
		for _, u := range unquantized {
			c1 := roundHalfEven(float64(u), fq1) * int64(q1)
			hC2.Add(roundHalfEven(float64(c1), fq2))
		}

		estimated := hC2
		if hQ2 != nil {
			estimated = hMix.Mix(hC2, 0.5, hQ2, 0.5)
		}
		if score := estimated.L1(hObs); score < bestScore {
			best, bestScore = q1, score
			if keep {
				hBest.CopyFrom(hC2)
			}
		}
	}

	search := stepSearch{q1: best, score: bestScore}
	if keep {
		search.observed, search.approx = hObs, hBest
	}
	return search
}

// debugHistograms prints observed and approximated counts side by side over
// the values where either is non-zero
func debugHistograms(log *console.Logger, observed, approx *Histogram) {
	if !log.DebugEnabled() || observed == nil || approx == nil {
		return
	}
	from, to, ok := observed.Span(approx)
	if !ok {
		return
	}
	log.Debugf("index\timg\tapprox")
	for v := from; v <= to; v++ {
		log.Debugf("%d\t%.0f\t%.0f", v, observed.At(v), approx.At(v))
	}
}

func positionsOf(indices []int) ([]zigzag.Position, error) {
	if len(indices) == 0 {
		return nil, models.NewError(models.ConfigError, "empty coefficient range")
	}
	positions := make([]zigzag.Position, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= zigzag.BlockSize {
			return nil, models.NewError(models.ConfigError, "coefficient index %d outside 0-63", idx)
		}
		positions[i] = zigzag.Index(idx)
	}
	return positions, nil
}
