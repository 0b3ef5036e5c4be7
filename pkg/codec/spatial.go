package codec

import (
	"image"
	"image/jpeg"
	"math"
	"os"

	"golang.org/x/image/draw"

	"adjpeg/pkg/models"
)

// ReadSpatial decodes a JPEG file to its luminance pixels
func ReadSpatial(path string) (*image.Gray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, models.WrapError(models.InputError, err, "opening %s", path)
	}
	defer f.Close()

	img, err := jpeg.Decode(f)
	if err != nil {
		return nil, models.WrapError(models.InputError, err, "decoding pixels of %s", path)
	}
	return Luminance(img), nil
}

// Luminance returns the luma plane of img with its origin at (0, 0)
func Luminance(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < b.Dy(); y++ {
			copy(out.Pix[y*out.Stride:y*out.Stride+b.Dx()], src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):])
		}
	case *image.YCbCr:
		for y := 0; y < b.Dy(); y++ {
			copy(out.Pix[y*out.Stride:y*out.Stride+b.Dx()], src.Y[src.YOffset(b.Min.X, b.Min.Y+y):])
		}
	default:
		draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	}
	return out
}

// EncodeSpatial level-shifts, transforms and quantizes the pixels of img.
// Partial blocks at the right and bottom edges are padded by replicating
// the last column and row. Quantization rounds half away from zero.
func EncodeSpatial(img *image.Gray, table QuantTable) (*Image, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, models.NewError(models.InputError, "cannot encode an empty image")
	}
	for _, row := range table {
		for _, q := range row {
			if q == 0 {
				return nil, models.NewError(models.InputError, "quantization table contains a zero step")
			}
		}
	}

	grid := NewGrid(ceilDiv(h, 8), ceilDiv(w, 8))
	var block [64]float64
	for by := 0; by < grid.BlocksY; by++ {
		for bx := 0; bx < grid.BlocksX; bx++ {
			for y := 0; y < 8; y++ {
				py := min(by*8+y, h-1)
				for x := 0; x < 8; x++ {
					px := min(bx*8+x, w-1)
					block[y*8+x] = float64(img.GrayAt(b.Min.X+px, b.Min.Y+py).Y) - 128
				}
			}
			ForwardDCT(block[:])

			out := grid.Block(by, bx)
			for i, c := range block {
				out[i] = int16(math.Round(c / float64(table[i/8][i%8])))
			}
		}
	}

	return &Image{Width: w, Height: h, Grid: grid, Quant: table}, nil
}

// WriteSpatial compresses img with table and writes it to path
func WriteSpatial(path string, img *image.Gray, table QuantTable) error {
	enc, err := EncodeSpatial(img, table)
	if err != nil {
		return err
	}
	return WriteDCT(path, enc)
}

// DecodeSpatial dequantizes and inverse-transforms img to pixels, clamped to
// [0, 255] and cropped to the image size
func DecodeSpatial(img *Image) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, img.Width, img.Height))
	var block [64]float64
	for by := 0; by < img.Grid.BlocksY; by++ {
		for bx := 0; bx < img.Grid.BlocksX; bx++ {
			coef := img.Grid.Block(by, bx)
			for i := range block {
				block[i] = float64(coef[i]) * float64(img.Quant[i/8][i%8])
			}
			InverseDCT(block[:])
			for y := 0; y < 8; y++ {
				py := by*8 + y
				if py >= img.Height {
					break
				}
				for x := 0; x < 8; x++ {
					px := bx*8 + x
					if px >= img.Width {
						break
					}
					v := math.Round(block[y*8+x] + 128)
					out.Pix[py*out.Stride+px] = uint8(max(0, min(255, v)))
				}
			}
		}
	}
	return out
}

// Crop returns a copy of img without a border of the given width
func Crop(img *image.Gray, border int) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx()-2*border, b.Dy()-2*border
	out := image.NewGray(image.Rect(0, 0, max(w, 0), max(h, 0)))
	for y := 0; y < h; y++ {
		off := img.PixOffset(b.Min.X+border, b.Min.Y+border+y)
		copy(out.Pix[y*out.Stride:y*out.Stride+w], img.Pix[off:off+w])
	}
	return out
}

// Roll cyclically shifts img down by dy and right by dx pixels. Pixels
// pushed off one edge re-enter at the opposite edge.
func Roll(img *image.Gray, dy, dx int) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return out
	}
	for y := 0; y < h; y++ {
		ty := ((y+dy)%h + h) % h
		for x := 0; x < w; x++ {
			tx := ((x+dx)%w + w) % w
			out.Pix[ty*out.Stride+tx] = img.Pix[img.PixOffset(b.Min.X+x, b.Min.Y+y)]
		}
	}
	return out
}
