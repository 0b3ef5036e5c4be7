// Package codec reads and writes the DCT coefficients of sequential JPEG
// files and converts between coefficients and luminance pixels.
package codec

import (
	"adjpeg/pkg/models"
	"adjpeg/pkg/zigzag"
)

// BlockSize is the number of coefficients per 8x8 block
const BlockSize = zigzag.BlockSize

// unzig[k] is the natural (row-major) offset of the k-th zigzag coefficient
var unzig = func() [BlockSize]int {
	var t [BlockSize]int
	for k := 0; k < BlockSize; k++ {
		t[k] = zigzag.Natural(k)
	}
	return t
}()

// QuantTable is an 8x8 quantization table in natural order
type QuantTable [8][8]uint16

// At returns the step at a block position
func (q *QuantTable) At(p zigzag.Position) int {
	return int(q[p.Row][p.Col])
}

// Ints returns the table as ints, for reporting
func (q *QuantTable) Ints() [8][8]int {
	var out [8][8]int
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			out[r][c] = int(q[r][c])
		}
	}
	return out
}

// Uniform returns a table with every step equal to v
func Uniform(v uint16) QuantTable {
	var q QuantTable
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			q[r][c] = v
		}
	}
	return q
}

func quantFromZigzag(zz [BlockSize]uint16) QuantTable {
	var q QuantTable
	for k := 0; k < BlockSize; k++ {
		n := unzig[k]
		q[n/8][n%8] = zz[k]
	}
	return q
}

func (q *QuantTable) zigzag() [BlockSize]uint16 {
	var zz [BlockSize]uint16
	for k := 0; k < BlockSize; k++ {
		n := unzig[k]
		zz[k] = q[n/8][n%8]
	}
	return zz
}

// Grid holds the luminance DCT coefficients of an image, indexed by block
// row, block column, frequency row and frequency column
type Grid struct {
	BlocksY int
	BlocksX int
	// Coef has BlocksY*BlocksX*64 entries: blocks row-major, coefficients
	// in natural order inside a block
	Coef []int16
}

// NewGrid creates a zeroed grid
func NewGrid(blocksY, blocksX int) *Grid {
	return &Grid{
		BlocksY: blocksY,
		BlocksX: blocksX,
		Coef:    make([]int16, blocksY*blocksX*BlockSize),
	}
}

// GridFromCoefficients wraps an existing coefficient slice. It fails with an
// InputError unless there are exactly 64 coefficients per block.
func GridFromCoefficients(blocksY, blocksX int, coef []int16) (*Grid, error) {
	if blocksY <= 0 || blocksX <= 0 {
		return nil, models.NewError(models.InputError, "empty block grid %dx%d", blocksY, blocksX)
	}
	if len(coef) != blocksY*blocksX*BlockSize {
		return nil, models.NewError(models.InputError,
			"number of DCT coefficients per block has to be %d (got %d values for %dx%d blocks)",
			BlockSize, len(coef), blocksY, blocksX)
	}
	return &Grid{BlocksY: blocksY, BlocksX: blocksX, Coef: coef}, nil
}

// Blocks returns the number of blocks
func (g *Grid) Blocks() int {
	return g.BlocksY * g.BlocksX
}

// Block returns the 64 coefficients of a block, aliasing the grid
func (g *Grid) Block(by, bx int) []int16 {
	off := (by*g.BlocksX + bx) * BlockSize
	return g.Coef[off : off+BlockSize]
}

// At returns one coefficient
func (g *Grid) At(by, bx int, p zigzag.Position) int16 {
	return g.Coef[(by*g.BlocksX+bx)*BlockSize+p.Row*8+p.Col]
}

// Set stores one coefficient
func (g *Grid) Set(by, bx int, p zigzag.Position, v int16) {
	g.Coef[(by*g.BlocksX+bx)*BlockSize+p.Row*8+p.Col] = v
}

// Plane returns the values of one frequency position across all blocks,
// row-major over blocks
func (g *Grid) Plane(p zigzag.Position) []int32 {
	return g.PlaneInto(nil, p)
}

// PlaneInto is Plane reusing dst when it has enough capacity
func (g *Grid) PlaneInto(dst []int32, p zigzag.Position) []int32 {
	n := g.Blocks()
	if cap(dst) < n {
		dst = make([]int32, n)
	}
	dst = dst[:n]
	off := p.Row*8 + p.Col
	for i := 0; i < n; i++ {
		dst[i] = int32(g.Coef[i*BlockSize+off])
	}
	return dst
}

// Image is a decoded JPEG reduced to what the analysis needs: the luminance
// coefficients, the table they were quantized with and the pixel size
type Image struct {
	Width  int
	Height int
	Grid   *Grid
	Quant  QuantTable
}
