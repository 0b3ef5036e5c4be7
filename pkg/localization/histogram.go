// Package localization estimates the primary quantization of a double
// compressed JPEG and computes a per-block likelihood map of tampering.
package localization

import (
	"math"
)

// Histogram counts integer coefficient values over [-Bound, Bound] with one
// bin per value. Values outside the range are ignored.
type Histogram struct {
	Bound int
	Bins  []float64
}

// NewHistogram allocates an empty histogram with 2*bound+1 bins
func NewHistogram(bound int) *Histogram {
	return &Histogram{Bound: bound, Bins: make([]float64, 2*bound+1)}
}

// Reset zeroes every bin
func (h *Histogram) Reset() {
	clear(h.Bins)
}

// Add counts one value
func (h *Histogram) Add(v int64) {
	if v < -int64(h.Bound) || v > int64(h.Bound) {
		return
	}
	h.Bins[v+int64(h.Bound)]++
}

// Fill replaces the contents with the counts of values
func (h *Histogram) Fill(values []int32) *Histogram {
	h.Reset()
	for _, v := range values {
		h.Add(int64(v))
	}
	return h
}

// At returns the count of value v, 0 outside the range
func (h *Histogram) At(v int) float64 {
	if v < -h.Bound || v > h.Bound {
		return 0
	}
	return h.Bins[v+h.Bound]
}

// L1 returns the sum of absolute bin differences
func (h *Histogram) L1(other *Histogram) float64 {
	var sum float64
	for i, v := range h.Bins {
		sum += math.Abs(v - other.Bins[i])
	}
	return sum
}

// Mix stores wa*a + wb*b in h
func (h *Histogram) Mix(a *Histogram, wa float64, b *Histogram, wb float64) *Histogram {
	for i := range h.Bins {
		h.Bins[i] = wa*a.Bins[i] + wb*b.Bins[i]
	}
	return h
}

// CopyFrom overwrites h with the bins of other
func (h *Histogram) CopyFrom(other *Histogram) *Histogram {
	copy(h.Bins, other.Bins)
	return h
}

// Span returns the smallest and largest values with a non-zero count in h
// or other. ok is false when both are empty.
func (h *Histogram) Span(other *Histogram) (from, to int, ok bool) {
	first, last := -1, -1
	for i := range h.Bins {
		if h.Bins[i] != 0 || other.Bins[i] != 0 {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return 0, 0, false
	}
	return first - h.Bound, last - h.Bound, true
}

// roundHalfEven rounds x/d to the nearest integer, ties to even
func roundHalfEven(x, d float64) int64 {
	return int64(math.RoundToEven(x / d))
}
