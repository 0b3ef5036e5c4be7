package localization

import (
	"context"
	"image"

	"adjpeg/pkg/codec"
	"adjpeg/pkg/config"
	"adjpeg/pkg/console"
	"adjpeg/pkg/models"
)

// minSampleSize is the smallest spatial dimension, exclusive, that leaves
// room for cropping and re-encoding
const minSampleSize = 16

// Samples are the reference coefficients the estimator compares against
type Samples struct {
	// Unquantized holds coefficients re-encoded with a unit table
	Unquantized *codec.Grid
	// SingleQ2 holds the same pixels compressed once at Q2, nil when the
	// mixture is disabled
	SingleQ2 *codec.Grid
}

// Sampler approximates unquantized DCT coefficients of an image by codec
// round trips through a scratch directory
type Sampler struct {
	cfg config.Config
	log *console.Logger
}

// NewSampler creates a sampler
func NewSampler(cfg config.Config, log *console.Logger) *Sampler {
	return &Sampler{cfg: cfg, log: log}
}

// CheckSize fails with an InputError when the image is too small to sample
func CheckSize(img *codec.Image) error {
	if img.Width <= minSampleSize || img.Height <= minSampleSize {
		return models.NewError(models.InputError,
			"image is too small to be cropped and re-compressed: %dx%d, both sides must exceed %d px",
			img.Width, img.Height, minSampleSize)
	}
	return nil
}

// Cropped decodes img to pixels, removes the configured border and
// re-encodes the rest at quality 100, and at Q2 as well when the mixture is
// enabled
func (s *Sampler) Cropped(ctx context.Context, img *codec.Image) (*Samples, error) {
	if err := CheckSize(img); err != nil {
		return nil, err
	}

	var samples Samples
	err := s.roundTrip(ctx, img, func(scratch *codec.Scratch, px *image.Gray) error {
		cropped := codec.Crop(px, s.cfg.BorderCrop)
		s.log.Debugf("Cropped %d px border: %dx%d -> %dx%d", s.cfg.BorderCrop,
			px.Bounds().Dx(), px.Bounds().Dy(), cropped.Bounds().Dx(), cropped.Bounds().Dy())

		grid, err := reencode(scratch, "img_0.jpeg", cropped, codec.QualityTable(100))
		if err != nil {
			return err
		}
		samples.Unquantized = grid

		if s.cfg.UseMixture {
			if err := ctx.Err(); err != nil {
				return err
			}
			grid, err := reencode(scratch, "img_q2.jpeg", cropped, img.Quant)
			if err != nil {
				return err
			}
			samples.SingleQ2 = grid
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &samples, nil
}

// Shifted decodes img to pixels, rolls them cyclically by the configured
// shift on both axes and re-encodes at quality 100
func (s *Sampler) Shifted(ctx context.Context, img *codec.Image) (*codec.Grid, error) {
	if err := CheckSize(img); err != nil {
		return nil, err
	}

	var out *codec.Grid
	err := s.roundTrip(ctx, img, func(scratch *codec.Scratch, px *image.Gray) error {
		shifted := codec.Roll(px, s.cfg.ShiftPixels, s.cfg.ShiftPixels)
		grid, err := reencode(scratch, "img_0_shift.jpeg", shifted, codec.QualityTable(100))
		if err != nil {
			return err
		}
		out = grid
		return nil
	})
	return out, err
}

// roundTrip writes img, decodes its pixels and hands them to fn. The scratch
// directory is removed on every path.
func (s *Sampler) roundTrip(ctx context.Context, img *codec.Image, fn func(*codec.Scratch, *image.Gray) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	scratch, err := codec.NewScratch(s.cfg.TempDir)
	if err != nil {
		return err
	}
	dir := scratch.Dir()
	defer func() {
		if err := scratch.Close(); err != nil {
			s.log.Warningf("Failed to remove scratch directory %s: %v", dir, err)
		}
	}()
	s.log.Debugf("Using scratch directory %s", dir)

	path := scratch.Path("temp.jpeg")
	if err := codec.WriteDCT(path, img); err != nil {
		return err
	}
	px, err := codec.ReadSpatial(path)
	if err != nil {
		return err
	}
	return fn(scratch, px)
}

func reencode(scratch *codec.Scratch, name string, px *image.Gray, table codec.QuantTable) (*codec.Grid, error) {
	path := scratch.Path(name)
	if err := codec.WriteSpatial(path, px, table); err != nil {
		return nil, err
	}
	img, err := codec.ReadDCT(path)
	if err != nil {
		return nil, err
	}
	return img.Grid, nil
}
