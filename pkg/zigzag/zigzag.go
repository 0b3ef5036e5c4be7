// Package zigzag maps JPEG zigzag scan indices to positions in an 8x8 block.
package zigzag

import "fmt"

// BlockSize is the number of coefficients in a DCT block
const BlockSize = 64

// diagonalStarts[d] is one more than the number of cells covered before
// anti-diagonal d. The final entry closes the last diagonal.
var diagonalStarts = [...]int{1, 2, 4, 7, 11, 16, 22, 29, 37, 44, 50, 55, 59, 62, 64, 65}

// Position is a (row, col) cell of an 8x8 block
type Position struct {
	Row int
	Col int
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

// Index returns the block position of the i-th coefficient in zigzag order.
// It panics if i is outside [0, 63].
func Index(i int) Position {
	if i < 0 || i >= BlockSize {
		panic(fmt.Sprintf("zigzag: index %d out of range [0, %d)", i, BlockSize))
	}

	d := 0
	for d+1 < len(diagonalStarts) && diagonalStarts[d+1] <= i+1 {
		d++
	}
	p := i - (diagonalStarts[d] - 1)

	if d%2 == 0 {
		// ascending: bottom-left to top-right
		start := Position{Row: min(d, 7), Col: max(0, d-7)}
		return Position{Row: start.Row - p, Col: start.Col + p}
	}
	// descending: top-right to bottom-left
	start := Position{Row: max(0, d-7), Col: min(d, 7)}
	return Position{Row: start.Row + p, Col: start.Col - p}
}

// Positions maps a list of zigzag indices to block positions
func Positions(indices []int) []Position {
	out := make([]Position, len(indices))
	for k, i := range indices {
		out[k] = Index(i)
	}
	return out
}

// Scan returns the natural-order table of zigzag indices: Scan()[r][c] is the
// zigzag index of cell (r, c).
func Scan() [8][8]int {
	var table [8][8]int
	for i := 0; i < BlockSize; i++ {
		p := Index(i)
		table[p.Row][p.Col] = i
	}
	return table
}

// Natural returns the row-major offset (row*8+col) of the i-th zigzag
// coefficient.
func Natural(i int) int {
	p := Index(i)
	return p.Row*8 + p.Col
}
