package codec

import (
	"adjpeg/pkg/models"
)

// bitReader reads an entropy-coded segment, removing 0xFF00 stuffing.
// It stops at the first marker and feeds zero bits from then on.
type bitReader struct {
	data     []byte
	pos      int
	bits     uint64
	bitsLeft uint
	// marker is set once a non-stuffed 0xFF has been reached
	marker bool
}

func newBitReader(data []byte, pos int) *bitReader {
	return &bitReader{data: data, pos: pos}
}

func (r *bitReader) fill() {
	for r.bitsLeft <= 56 {
		var b byte
		if !r.marker && r.pos < len(r.data) {
			b = r.data[r.pos]
			if b == 0xFF {
				if r.pos+1 < len(r.data) && r.data[r.pos+1] == 0x00 {
					r.pos += 2
				} else {
					r.marker = true
					b = 0
				}
			} else {
				r.pos++
			}
		}
		// A truncated segment reads as zeros
		r.bits |= uint64(b) << (56 - r.bitsLeft)
		r.bitsLeft += 8
	}
}

// read returns the next n bits, n <= 16
func (r *bitReader) read(n uint) uint32 {
	if n == 0 {
		return 0
	}
	if r.bitsLeft < n {
		r.fill()
	}
	v := uint32(r.bits >> (64 - n))
	r.bits <<= n
	r.bitsLeft -= n
	return v
}

// decodeHuffman reads one symbol of the given table
func (r *bitReader) decodeHuffman(h *huffmanTable) (uint8, error) {
	if r.bitsLeft < 16 {
		r.fill()
	}
	if v := h.fastLookup[r.bits>>56]; v >= 0 {
		n := uint(v >> 8)
		r.bits <<= n
		r.bitsLeft -= n
		return uint8(v & 0xFF), nil
	}
	for bits := uint(1); bits <= 16; bits++ {
		code := int32(r.bits >> (64 - bits))
		if code <= h.maxCode[bits] {
			r.bits <<= bits
			r.bitsLeft -= bits
			return h.symbols[h.valPtr[bits]+code], nil
		}
	}
	return 0, models.NewError(models.InputError, "invalid Huffman code in entropy-coded segment")
}

// restart discards buffered bits and consumes the next RSTn marker
func (r *bitReader) restart() error {
	r.bits = 0
	r.bitsLeft = 0
	r.marker = false
	for r.pos+1 < len(r.data) {
		if r.data[r.pos] == 0xFF && r.data[r.pos+1] >= 0xD0 && r.data[r.pos+1] <= 0xD7 {
			r.pos += 2
			return nil
		}
		if r.data[r.pos] == 0xFF && r.data[r.pos+1] != 0x00 && r.data[r.pos+1] != 0xFF {
			break
		}
		r.pos++
	}
	return models.NewError(models.InputError, "missing restart marker at offset %d", r.pos)
}
