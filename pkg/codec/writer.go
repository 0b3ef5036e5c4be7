package codec

import (
	"bytes"
	"io"
	"os"

	"adjpeg/pkg/models"
)

const (
	maxDCCategory = 11
	maxACCategory = 10
)

// WriteDCT writes img as a grayscale JPEG file
func WriteDCT(path string, img *Image) error {
	f, err := os.Create(path)
	if err != nil {
		return models.WrapError(models.InputError, err, "creating %s", path)
	}
	if err := EncodeDCT(f, img); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return models.WrapError(models.InputError, err, "closing %s", path)
	}
	return nil
}

// EncodeDCT writes the coefficients of img, without further quantization,
// as a single-component sequential JPEG using the typical luminance Huffman
// tables. Tables with steps above 255 are written with 16-bit precision
// under an extended sequential frame header.
func EncodeDCT(w io.Writer, img *Image) error {
	return encodeDCT(w, img, 0)
}

// encodeDCT is EncodeDCT with an optional restart interval in blocks
func encodeDCT(w io.Writer, img *Image, restart int) error {
	if err := validateImage(img); err != nil {
		return err
	}

	var out bytes.Buffer
	out.Grow(img.Grid.Blocks()*16 + 1024)

	extended := false
	for _, row := range img.Quant {
		for _, q := range row {
			if q > 255 {
				extended = true
			}
		}
	}

	out.Write([]byte{0xFF, markerSOI})
	writeJFIF(&out)
	writeDQT(&out, &img.Quant, extended)
	writeSOF(&out, img.Width, img.Height, extended)
	writeDHT(&out)
	if restart > 0 {
		writeSegment(&out, markerDRI, []byte{byte(restart >> 8), byte(restart)})
	}
	writeSOS(&out)

	scan, err := encodeScan(img.Grid, restart)
	if err != nil {
		return err
	}
	out.Write(scan)
	out.Write([]byte{0xFF, markerEOI})

	if _, err := w.Write(out.Bytes()); err != nil {
		return models.WrapError(models.InputError, err, "writing JPEG data")
	}
	return nil
}

func validateImage(img *Image) error {
	if img == nil || img.Grid == nil {
		return models.NewError(models.InputError, "no coefficients to encode")
	}
	if img.Width <= 0 || img.Height <= 0 || img.Width > 0xFFFF || img.Height > 0xFFFF {
		return models.NewError(models.InputError, "invalid image size %dx%d", img.Width, img.Height)
	}
	if img.Grid.BlocksX != ceilDiv(img.Width, 8) || img.Grid.BlocksY != ceilDiv(img.Height, 8) {
		return models.NewError(models.InputError, "block grid %dx%d does not match image size %dx%d",
			img.Grid.BlocksX, img.Grid.BlocksY, img.Width, img.Height)
	}
	if len(img.Grid.Coef) != img.Grid.Blocks()*BlockSize {
		return models.NewError(models.InputError, "number of DCT coefficients per block has to be %d", BlockSize)
	}
	for _, row := range img.Quant {
		for _, q := range row {
			if q == 0 {
				return models.NewError(models.InputError, "quantization table contains a zero step")
			}
		}
	}
	return nil
}

func writeSegment(out *bytes.Buffer, marker byte, payload []byte) {
	n := len(payload) + 2
	out.Write([]byte{0xFF, marker, byte(n >> 8), byte(n)})
	out.Write(payload)
}

func writeJFIF(out *bytes.Buffer) {
	writeSegment(out, markerAPP0, []byte{
		'J', 'F', 'I', 'F', 0,
		// version 1.1
		1, 1,
		// no units, 1:1 pixel aspect
		0, 0, 1, 0, 1,
		// no thumbnail
		0, 0,
	})
}

func writeDQT(out *bytes.Buffer, q *QuantTable, extended bool) {
	zz := q.zigzag()
	if !extended {
		payload := make([]byte, 0, 1+BlockSize)
		payload = append(payload, 0x00)
		for _, v := range zz {
			payload = append(payload, byte(v))
		}
		writeSegment(out, markerDQT, payload)
		return
	}
	payload := make([]byte, 0, 1+2*BlockSize)
	payload = append(payload, 0x10)
	for _, v := range zz {
		payload = append(payload, byte(v>>8), byte(v))
	}
	writeSegment(out, markerDQT, payload)
}

func writeSOF(out *bytes.Buffer, width, height int, extended bool) {
	marker := byte(markerSOF0)
	if extended {
		marker = markerSOF1
	}
	writeSegment(out, marker, []byte{
		8,
		byte(height >> 8), byte(height),
		byte(width >> 8), byte(width),
		// one component: id 1, 1x1 sampling, table 0
		1,
		1, 0x11, 0,
	})
}

func writeDHT(out *bytes.Buffer) {
	payload := make([]byte, 0, 2*17+len(stdLuminanceDCSyms)+len(stdLuminanceACSyms))
	payload = append(payload, 0x00)
	payload = append(payload, stdLuminanceDCCodes[1:]...)
	payload = append(payload, stdLuminanceDCSyms...)
	payload = append(payload, 0x10)
	payload = append(payload, stdLuminanceACCodes[1:]...)
	payload = append(payload, stdLuminanceACSyms...)
	writeSegment(out, markerDHT, payload)
}

func writeSOS(out *bytes.Buffer) {
	writeSegment(out, markerSOS, []byte{
		// one component: id 1, DC/AC tables 0
		1,
		1, 0x00,
		// full spectral selection, no approximation
		0, 63, 0,
	})
}

func encodeScan(g *Grid, restart int) ([]byte, error) {
	bw := newBitWriter(g.Blocks() * 16)
	var pred int32
	for by := 0; by < g.BlocksY; by++ {
		for bx := 0; bx < g.BlocksX; bx++ {
			if n := by*g.BlocksX + bx; restart > 0 && n > 0 && n%restart == 0 {
				bw.pad()
				bw.marker(markerRST0 + byte((n/restart-1)&7))
				pred = 0
			}
			block := g.Block(by, bx)
			dc := int32(block[0])
			if err := encodeDC(bw, dc-pred); err != nil {
				return nil, models.WrapError(models.InputError, err, "block (%d,%d)", by, bx)
			}
			pred = dc
			if err := encodeAC(bw, block); err != nil {
				return nil, models.WrapError(models.InputError, err, "block (%d,%d)", by, bx)
			}
		}
	}
	bw.pad()
	return bw.bytes(), nil
}

// additionalBits returns the magnitude bits written after a category code.
// Negative values use one's complement.
func additionalBits(v int32, cat uint8) uint32 {
	if v >= 0 {
		return uint32(v)
	}
	return uint32(v-1) & (1<<cat - 1)
}

func encodeDC(bw *bitWriter, diff int32) error {
	cat := category(diff)
	if cat > maxDCCategory {
		return models.NewError(models.InputError, "DC difference %d out of range", diff)
	}
	t := stdLuminanceDC
	bw.write(uint32(t.codes[cat]), uint(t.lengths[cat]))
	bw.write(additionalBits(diff, cat), uint(cat))
	return nil
}

func encodeAC(bw *bitWriter, block []int16) error {
	t := stdLuminanceAC
	run := 0
	for k := 1; k < BlockSize; k++ {
		coef := int32(block[unzig[k]])
		if coef == 0 {
			run++
			continue
		}
		for run >= 16 {
			// ZRL
			bw.write(uint32(t.codes[0xF0]), uint(t.lengths[0xF0]))
			run -= 16
		}
		cat := category(coef)
		if cat > maxACCategory {
			return models.NewError(models.InputError, "AC coefficient %d out of range", coef)
		}
		sym := uint8(run<<4) | cat
		bw.write(uint32(t.codes[sym]), uint(t.lengths[sym]))
		bw.write(additionalBits(coef, cat), uint(cat))
		run = 0
	}
	if run > 0 {
		// EOB
		bw.write(uint32(t.codes[0x00]), uint(t.lengths[0x00]))
	}
	return nil
}
