package localization

import (
	"context"
	"time"

	"adjpeg/pkg/codec"
	"adjpeg/pkg/config"
	"adjpeg/pkg/console"
	"adjpeg/pkg/models"
	"adjpeg/pkg/zigzag"
)

// Result is the outcome of one localization run
type Result struct {
	Map     *LikelihoodMap
	Q1      *Estimate
	Q2      codec.QuantTable
	Indices []int
}

// Localize estimates the primary quantization of img and computes its
// likelihood map over the configured coefficient range
func Localize(ctx context.Context, img *codec.Image, cfg config.Config, log *console.Logger) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if img == nil || img.Grid == nil {
		return nil, models.NewError(models.InputError, "no image to analyze")
	}
	if len(img.Grid.Coef) != img.Grid.Blocks()*codec.BlockSize {
		return nil, models.NewError(models.InputError, "number of DCT coefficients per block has to be %d", codec.BlockSize)
	}
	if err := CheckSize(img); err != nil {
		return nil, err
	}
	if err := checkSteps(img.Quant, zigzag.Positions(cfg.Indices())); err != nil {
		return nil, err
	}

	indices := cfg.Indices()
	sampler := NewSampler(cfg, log)

	log.Infof("Estimating primary quantization step")
	start := time.Now()
	samples, err := sampler.Cropped(ctx, img)
	if err != nil {
		return nil, err
	}
	q1, err := EstimatePrimaryQuantization(ctx, img.Grid, img.Quant, samples, indices, cfg, log)
	if err != nil {
		return nil, err
	}
	log.Debugf("Primary quantization estimated in %v", time.Since(start))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log.Infof("Estimating unquantized DCT coefficients")
	unquantized, err := sampler.Shifted(ctx, img)
	if err != nil {
		return nil, err
	}

	log.Infof("Starting likelihood map calculation")
	start = time.Now()
	m, err := ComputeLikelihoodMap(ctx, img.Grid, img.Quant, q1, unquantized, indices, cfg, log)
	if err != nil {
		return nil, err
	}
	log.Debugf("Likelihood map computed in %v", time.Since(start))

	return &Result{Map: m, Q1: q1, Q2: img.Quant, Indices: indices}, nil
}

// checkSteps fails with an InputError when q has a non-positive step at one
// of positions
func checkSteps(q codec.QuantTable, positions []zigzag.Position) error {
	for _, pos := range positions {
		if q.At(pos) < 1 {
			return models.NewError(models.InputError, "quantization step at %s must be positive, got %d", pos, q.At(pos))
		}
	}
	return nil
}
