package codec

import (
	"io"
	"os"

	"adjpeg/pkg/models"
)

// JPEG markers
const (
	markerSOF0 = 0xC0 // Baseline DCT
	markerSOF1 = 0xC1 // Extended sequential DCT
	markerSOF2 = 0xC2 // Progressive DCT
	markerDHT  = 0xC4
	markerRST0 = 0xD0
	markerRST7 = 0xD7
	markerSOI  = 0xD8
	markerEOI  = 0xD9
	markerSOS  = 0xDA
	markerDQT  = 0xDB
	markerDRI  = 0xDD
	markerAPP0 = 0xE0
	markerTEM  = 0x01
)

const maxComponents = 4

type component struct {
	id int
	h  int
	v  int
	tq int

	dcTable int
	acTable int

	// allocated block grid, a whole number of MCUs
	blocksX int
	blocksY int
	coef    []int16
}

func (c *component) block(by, bx int) []int16 {
	off := (by*c.blocksX + bx) * BlockSize
	return c.coef[off : off+BlockSize]
}

type decoder struct {
	data []byte
	pos  int

	width  int
	height int
	comps  []*component
	hmax   int
	vmax   int
	mcusX  int
	mcusY  int

	quant     [4][BlockSize]uint16
	quantSet  [4]bool
	dc        [4]*huffmanTable
	ac        [4]*huffmanTable
	restart   int
	scans     int
	lumaQuant [BlockSize]uint16
}

// ReadDCT reads the luminance DCT coefficients of a JPEG file
func ReadDCT(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, models.WrapError(models.InputError, err, "opening %s", path)
	}
	defer f.Close()

	img, err := DecodeDCT(f)
	if err != nil {
		return nil, models.WrapError(models.InputError, err, "decoding %s", path)
	}
	return img, nil
}

// DecodeDCT decodes the entropy-coded coefficients of a sequential Huffman
// JPEG without dequantizing them. Only the first frame component
// (luminance) is returned.
func DecodeDCT(r io.Reader) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, models.WrapError(models.InputError, err, "reading JPEG data")
	}
	d := &decoder{data: data}
	return d.decode()
}

func (d *decoder) decode() (*Image, error) {
	if len(d.data) < 4 || d.data[0] != 0xFF || d.data[1] != markerSOI {
		return nil, models.NewError(models.InputError, "not a JPEG file: missing SOI marker")
	}
	d.pos = 2

	for {
		marker, ok := d.nextMarker()
		if !ok {
			if d.scans > 0 {
				// Tolerate a missing EOI after complete scans
				break
			}
			return nil, models.NewError(models.InputError, "unexpected end of JPEG data")
		}
		if marker == markerEOI {
			break
		}
		if marker == markerTEM || (marker >= markerRST0 && marker <= markerRST7) {
			continue
		}

		seg, err := d.segment()
		if err != nil {
			return nil, err
		}

		switch {
		case marker == markerSOF0 || marker == markerSOF1:
			if err := d.parseSOF(seg); err != nil {
				return nil, err
			}
		case marker == markerSOF2:
			return nil, models.NewError(models.InputError, "progressive JPEG is not supported")
		case marker > markerSOF2 && marker <= 0xCF && marker != markerDHT && marker != 0xC8 && marker != 0xCC:
			return nil, models.NewError(models.InputError, "unsupported JPEG process (SOF marker 0x%02X)", marker)
		case marker == 0xCC:
			return nil, models.NewError(models.InputError, "arithmetic-coded JPEG is not supported")
		case marker == markerDHT:
			if err := d.parseDHT(seg); err != nil {
				return nil, err
			}
		case marker == markerDQT:
			if err := d.parseDQT(seg); err != nil {
				return nil, err
			}
		case marker == markerDRI:
			if len(seg) < 2 {
				return nil, models.NewError(models.InputError, "DRI segment too short")
			}
			d.restart = int(seg[0])<<8 | int(seg[1])
		case marker == markerSOS:
			if err := d.parseSOS(seg); err != nil {
				return nil, err
			}
		default:
			// APPn, COM and anything else is skipped
		}
	}

	if d.comps == nil {
		return nil, models.NewError(models.InputError, "JPEG has no frame header")
	}
	if d.scans == 0 {
		return nil, models.NewError(models.InputError, "JPEG has no scan data")
	}
	return d.luminance()
}

// nextMarker skips to the next marker and returns its code
func (d *decoder) nextMarker() (byte, bool) {
	for d.pos+1 < len(d.data) {
		if d.data[d.pos] != 0xFF {
			d.pos++
			continue
		}
		m := d.data[d.pos+1]
		if m == 0xFF {
			// fill byte
			d.pos++
			continue
		}
		if m == 0x00 {
			d.pos += 2
			continue
		}
		d.pos += 2
		return m, true
	}
	return 0, false
}

// segment returns the payload of a length-prefixed marker segment
func (d *decoder) segment() ([]byte, error) {
	if d.pos+2 > len(d.data) {
		return nil, models.NewError(models.InputError, "truncated marker segment at offset %d", d.pos)
	}
	n := int(d.data[d.pos])<<8 | int(d.data[d.pos+1])
	if n < 2 || d.pos+n > len(d.data) {
		return nil, models.NewError(models.InputError, "invalid marker segment length %d at offset %d", n, d.pos)
	}
	seg := d.data[d.pos+2 : d.pos+n]
	d.pos += n
	return seg, nil
}

func (d *decoder) parseSOF(data []byte) error {
	if d.comps != nil {
		return models.NewError(models.InputError, "multiple SOF markers")
	}
	if len(data) < 6 {
		return models.NewError(models.InputError, "SOF segment too short")
	}
	if data[0] != 8 {
		return models.NewError(models.InputError, "%d bit precision not supported", data[0])
	}
	d.height = int(data[1])<<8 | int(data[2])
	d.width = int(data[3])<<8 | int(data[4])
	n := int(data[5])
	if d.height == 0 || d.width == 0 {
		return models.NewError(models.InputError, "image dimensions cannot be zero (%dx%d)", d.width, d.height)
	}
	if n < 1 || n > maxComponents {
		return models.NewError(models.InputError, "image has %d components, 1 to %d supported", n, maxComponents)
	}
	if len(data) < 6+3*n {
		return models.NewError(models.InputError, "SOF segment too short for components")
	}

	d.hmax, d.vmax = 1, 1
	comps := make([]*component, n)
	for i := 0; i < n; i++ {
		p := 6 + 3*i
		c := &component{
			id: int(data[p]),
			h:  int(data[p+1] >> 4),
			v:  int(data[p+1] & 0x0F),
			tq: int(data[p+2]),
		}
		if c.h < 1 || c.h > 4 || c.v < 1 || c.v > 4 {
			return models.NewError(models.InputError, "invalid sampling factors %dx%d", c.h, c.v)
		}
		if c.tq > 3 {
			return models.NewError(models.InputError, "quantization table index %d too big", c.tq)
		}
		if c.h > d.hmax {
			d.hmax = c.h
		}
		if c.v > d.vmax {
			d.vmax = c.v
		}
		comps[i] = c
	}

	d.mcusX = ceilDiv(d.width, 8*d.hmax)
	d.mcusY = ceilDiv(d.height, 8*d.vmax)
	for _, c := range comps {
		c.blocksX = d.mcusX * c.h
		c.blocksY = d.mcusY * c.v
		c.coef = make([]int16, c.blocksX*c.blocksY*BlockSize)
	}
	d.comps = comps
	return nil
}

func (d *decoder) parseDHT(data []byte) error {
	pos := 0
	for pos < len(data) {
		class := data[pos] >> 4
		id := data[pos] & 0x0F
		pos++
		if class > 1 || id > 3 {
			return models.NewError(models.InputError, "invalid Huffman table index")
		}
		if pos+16 > len(data) {
			return models.NewError(models.InputError, "DHT segment too short")
		}
		var numCodes [17]uint8
		total := 0
		for i := 1; i <= 16; i++ {
			numCodes[i] = data[pos+i-1]
			total += int(numCodes[i])
		}
		pos += 16
		if pos+total > len(data) {
			return models.NewError(models.InputError, "DHT segment too short for symbols")
		}
		h, err := newHuffmanTable(numCodes, data[pos:pos+total])
		if err != nil {
			return err
		}
		pos += total

		if class == 0 {
			d.dc[id] = h
		} else {
			d.ac[id] = h
		}
	}
	return nil
}

func (d *decoder) parseDQT(data []byte) error {
	pos := 0
	for pos < len(data) {
		precision := data[pos] >> 4
		id := data[pos] & 0x0F
		pos++
		if id > 3 || precision > 1 {
			return models.NewError(models.InputError, "invalid quantization table header 0x%02X", data[pos-1])
		}
		if precision == 0 {
			if pos+64 > len(data) {
				return models.NewError(models.InputError, "DQT segment too short")
			}
			for i := 0; i < 64; i++ {
				d.quant[id][i] = uint16(data[pos+i])
			}
			pos += 64
		} else {
			if pos+128 > len(data) {
				return models.NewError(models.InputError, "DQT segment too short")
			}
			for i := 0; i < 64; i++ {
				d.quant[id][i] = uint16(data[pos+2*i])<<8 | uint16(data[pos+2*i+1])
			}
			pos += 128
		}
		d.quantSet[id] = true
	}
	return nil
}

func (d *decoder) parseSOS(data []byte) error {
	if d.comps == nil {
		return models.NewError(models.InputError, "SOS before SOF")
	}
	if len(data) < 1 {
		return models.NewError(models.InputError, "SOS segment too short")
	}
	n := int(data[0])
	if n < 1 || n > len(d.comps) || len(data) < 1+2*n+3 {
		return models.NewError(models.InputError, "invalid SOS segment with %d components", n)
	}

	scan := make([]*component, n)
	for i := 0; i < n; i++ {
		id := int(data[1+2*i])
		sel := data[2+2*i]
		var c *component
		for _, fc := range d.comps {
			if fc.id == id {
				c = fc
				break
			}
		}
		if c == nil {
			return models.NewError(models.InputError, "scan references unknown component %d", id)
		}
		c.dcTable = int(sel >> 4)
		c.acTable = int(sel & 0x0F)
		if c.dcTable > 3 || c.acTable > 3 || d.dc[c.dcTable] == nil || d.ac[c.acTable] == nil {
			return models.NewError(models.InputError, "scan references undefined Huffman table")
		}
		scan[i] = c
	}

	p := 1 + 2*n
	ss, se, ahal := data[p], data[p+1], data[p+2]
	if ss != 0 || se != 63 || ahal != 0 {
		return models.NewError(models.InputError, "non-sequential scan (Ss=%d Se=%d Ah/Al=0x%02X)", ss, se, ahal)
	}

	if containsComponent(scan, d.comps[0]) {
		l := d.comps[0]
		if !d.quantSet[l.tq] {
			return models.NewError(models.InputError, "luminance quantization table %d is not defined", l.tq)
		}
		d.lumaQuant = d.quant[l.tq]
	}

	if err := d.decodeScan(scan); err != nil {
		return err
	}
	d.scans++
	return nil
}

func containsComponent(scan []*component, c *component) bool {
	for _, s := range scan {
		if s == c {
			return true
		}
	}
	return false
}

func (d *decoder) decodeScan(scan []*component) error {
	br := newBitReader(d.data, d.pos)
	var preds [maxComponents]int32

	nx, ny := d.mcusX, d.mcusY
	if len(scan) == 1 {
		// Non-interleaved scans cover only the component's own blocks
		c := scan[0]
		nx = ceilDiv(ceilDiv(d.width*c.h, d.hmax), 8)
		ny = ceilDiv(ceilDiv(d.height*c.v, d.vmax), 8)
	}

	mcu := 0
	for my := 0; my < ny; my++ {
		for mx := 0; mx < nx; mx++ {
			if d.restart > 0 && mcu > 0 && mcu%d.restart == 0 {
				if err := br.restart(); err != nil {
					return err
				}
				preds = [maxComponents]int32{}
			}
			if len(scan) == 1 {
				if err := d.decodeBlock(br, scan[0], my, mx, &preds[0]); err != nil {
					return err
				}
			} else {
				for i, c := range scan {
					for v := 0; v < c.v; v++ {
						for h := 0; h < c.h; h++ {
							if err := d.decodeBlock(br, c, my*c.v+v, mx*c.h+h, &preds[i]); err != nil {
								return err
							}
						}
					}
				}
			}
			mcu++
		}
	}
	d.pos = br.pos
	return nil
}

func (d *decoder) decodeBlock(br *bitReader, c *component, by, bx int, pred *int32) error {
	block := c.block(by, bx)

	s, err := br.decodeHuffman(d.dc[c.dcTable])
	if err != nil {
		return err
	}
	if s > 15 {
		return models.NewError(models.InputError, "invalid DC magnitude category %d", s)
	}
	*pred += decodeVLI(s, br.read(uint(s)))
	block[0] = int16(*pred)

	ac := d.ac[c.acTable]
	for k := 1; k < BlockSize; {
		rs, err := br.decodeHuffman(ac)
		if err != nil {
			return err
		}
		run, size := int(rs>>4), rs&0x0F
		if size == 0 {
			if run == 15 {
				// ZRL
				k += 16
				continue
			}
			// EOB
			break
		}
		k += run
		if k >= BlockSize {
			return models.NewError(models.InputError, "AC run exceeds block boundary")
		}
		block[unzig[k]] = int16(decodeVLI(size, br.read(uint(size))))
		k++
	}
	return nil
}

// luminance trims the first component to the blocks covering the image
func (d *decoder) luminance() (*Image, error) {
	c := d.comps[0]
	bx := ceilDiv(ceilDiv(d.width*c.h, d.hmax), 8)
	by := ceilDiv(ceilDiv(d.height*c.v, d.vmax), 8)

	for i, q := range d.lumaQuant {
		if q == 0 {
			return nil, models.NewError(models.InputError, "luminance quantization table has a zero step at zigzag index %d", i)
		}
	}

	grid := NewGrid(by, bx)
	for y := 0; y < by; y++ {
		for x := 0; x < bx; x++ {
			copy(grid.Block(y, x), c.block(y, x))
		}
	}
	return &Image{
		Width:  d.width,
		Height: d.height,
		Grid:   grid,
		Quant:  quantFromZigzag(d.lumaQuant),
	}, nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
