package codec

import (
	"adjpeg/pkg/models"
)

// huffmanTable is a canonical JPEG Huffman table with derived lookups for
// decoding and per-symbol codes for encoding
type huffmanTable struct {
	// numCodes is the count of codes for each bit length (1-16)
	numCodes [17]uint8
	symbols  [256]uint8
	count    int

	// fastLookup maps the next 8 bits to symbol | length<<8, or -1
	fastLookup [256]int16
	maxCode    [18]int32
	valPtr     [17]int32

	codes   [256]uint16
	lengths [256]uint8
}

// newHuffmanTable validates a DHT definition and builds the derived tables
func newHuffmanTable(numCodes [17]uint8, symbols []uint8) (*huffmanTable, error) {
	h := &huffmanTable{numCodes: numCodes}
	for i := 1; i <= 16; i++ {
		h.count += int(numCodes[i])
	}
	if h.count == 0 || h.count > 256 || h.count != len(symbols) {
		return nil, models.NewError(models.InputError, "invalid Huffman table: %d symbols declared, %d given", h.count, len(symbols))
	}
	copy(h.symbols[:], symbols)

	for i := range h.fastLookup {
		h.fastLookup[i] = -1
	}

	code := 0
	idx := 0
	for bits := 1; bits <= 16; bits++ {
		h.valPtr[bits] = int32(idx) - int32(code)
		if numCodes[bits] > 0 {
			h.maxCode[bits] = int32(code) + int32(numCodes[bits]) - 1
		} else {
			h.maxCode[bits] = -1
		}
		for i := 0; i < int(numCodes[bits]); i++ {
			sym := h.symbols[idx]
			h.codes[sym] = uint16(code)
			h.lengths[sym] = uint8(bits)
			if bits <= 8 {
				shift := 8 - bits
				base := code << shift
				for j := 0; j < 1<<shift; j++ {
					h.fastLookup[base+j] = int16(sym) | int16(bits<<8)
				}
			}
			code++
			idx++
		}
		if code > 1<<bits {
			return nil, models.NewError(models.InputError, "invalid Huffman table: too many codes of length %d", bits)
		}
		code <<= 1
	}
	h.maxCode[17] = 0x7FFFFFFF
	return h, nil
}

func mustHuffmanTable(numCodes [17]uint8, symbols []uint8) *huffmanTable {
	h, err := newHuffmanTable(numCodes, symbols)
	if err != nil {
		panic(err)
	}
	return h
}

// Typical luminance tables from Annex K.3 of ITU-T T.81
var (
	stdLuminanceDCCodes = [17]uint8{0, 0, 1, 5, 1, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0, 0, 0}
	stdLuminanceDCSyms  = []uint8{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}

	stdLuminanceACCodes = [17]uint8{0, 0, 2, 1, 3, 3, 2, 4, 3, 5, 5, 4, 4, 0, 0, 1, 0x7d}
	stdLuminanceACSyms  = []uint8{
		0x01, 0x02, 0x03, 0x00, 0x04, 0x11, 0x05, 0x12, 0x21, 0x31, 0x41, 0x06, 0x13, 0x51, 0x61, 0x07,
		0x22, 0x71, 0x14, 0x32, 0x81, 0x91, 0xa1, 0x08, 0x23, 0x42, 0xb1, 0xc1, 0x15, 0x52, 0xd1, 0xf0,
		0x24, 0x33, 0x62, 0x72, 0x82, 0x09, 0x0a, 0x16, 0x17, 0x18, 0x19, 0x1a, 0x25, 0x26, 0x27, 0x28,
		0x29, 0x2a, 0x34, 0x35, 0x36, 0x37, 0x38, 0x39, 0x3a, 0x43, 0x44, 0x45, 0x46, 0x47, 0x48, 0x49,
		0x4a, 0x53, 0x54, 0x55, 0x56, 0x57, 0x58, 0x59, 0x5a, 0x63, 0x64, 0x65, 0x66, 0x67, 0x68, 0x69,
		0x6a, 0x73, 0x74, 0x75, 0x76, 0x77, 0x78, 0x79, 0x7a, 0x83, 0x84, 0x85, 0x86, 0x87, 0x88, 0x89,
		0x8a, 0x92, 0x93, 0x94, 0x95, 0x96, 0x97, 0x98, 0x99, 0x9a, 0xa2, 0xa3, 0xa4, 0xa5, 0xa6, 0xa7,
		0xa8, 0xa9, 0xaa, 0xb2, 0xb3, 0xb4, 0xb5, 0xb6, 0xb7, 0xb8, 0xb9, 0xba, 0xc2, 0xc3, 0xc4, 0xc5,
		0xc6, 0xc7, 0xc8, 0xc9, 0xca, 0xd2, 0xd3, 0xd4, 0xd5, 0xd6, 0xd7, 0xd8, 0xd9, 0xda, 0xe1, 0xe2,
		0xe3, 0xe4, 0xe5, 0xe6, 0xe7, 0xe8, 0xe9, 0xea, 0xf1, 0xf2, 0xf3, 0xf4, 0xf5, 0xf6, 0xf7, 0xf8,
		0xf9, 0xfa,
	}

	stdLuminanceDC = mustHuffmanTable(stdLuminanceDCCodes, stdLuminanceDCSyms)
	stdLuminanceAC = mustHuffmanTable(stdLuminanceACCodes, stdLuminanceACSyms)
)

// category returns the number of bits needed for the magnitude of v
func category(v int32) uint8 {
	if v < 0 {
		v = -v
	}
	c := uint8(0)
	for v > 0 {
		c++
		v >>= 1
	}
	return c
}

// decodeVLI decodes a magnitude category value into a signed coefficient
func decodeVLI(size uint8, bits uint32) int32 {
	if size == 0 {
		return 0
	}
	// MSB 0 means negative
	if bits < 1<<(size-1) {
		return int32(bits) - int32(1<<size) + 1
	}
	return int32(bits)
}
