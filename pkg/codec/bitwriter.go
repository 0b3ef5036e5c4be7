package codec

// bitWriter packs Huffman codes into bytes with JPEG-style 0xFF escaping
type bitWriter struct {
	buf      []byte
	acc      uint64
	bitsUsed uint
}

func newBitWriter(capacity int) *bitWriter {
	return &bitWriter{buf: make([]byte, 0, capacity)}
}

// write appends the low n bits of val, n <= 32
func (w *bitWriter) write(val uint32, n uint) {
	if n == 0 {
		return
	}
	w.acc = w.acc<<n | uint64(val)&(1<<n-1)
	w.bitsUsed += n
	for w.bitsUsed >= 8 {
		b := byte(w.acc >> (w.bitsUsed - 8))
		w.buf = append(w.buf, b)
		if b == 0xFF {
			// Escape FF
			w.buf = append(w.buf, 0x00)
		}
		w.bitsUsed -= 8
	}
	w.acc &= 1<<w.bitsUsed - 1
}

// pad fills the last partial byte with one bits
func (w *bitWriter) pad() {
	if rem := w.bitsUsed % 8; rem != 0 {
		w.write(1<<(8-rem)-1, 8-rem)
	}
}

// marker appends an unescaped marker; the writer must be byte aligned
func (w *bitWriter) marker(m byte) {
	w.buf = append(w.buf, 0xFF, m)
}

func (w *bitWriter) bytes() []byte {
	return w.buf
}
