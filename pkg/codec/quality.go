package codec

// stdLuminanceQuant is the Annex K luminance quantization table, in zigzag
// order
var stdLuminanceQuant = [BlockSize]uint16{
	16, 11, 12, 14, 12, 10, 16, 14,
	13, 14, 18, 17, 16, 19, 24, 40,
	26, 24, 22, 22, 24, 49, 35, 37,
	29, 40, 58, 51, 61, 60, 57, 51,
	56, 55, 64, 72, 92, 78, 64, 68,
	87, 69, 55, 56, 80, 109, 81, 87,
	95, 98, 103, 104, 103, 62, 77, 113,
	121, 112, 100, 120, 92, 101, 103, 99,
}

// QualityTable scales the standard luminance table to an IJG quality in
// [1, 100], clamping steps to the baseline range [1, 255]. Quality 100
// yields a table of ones.
func QualityTable(quality int) QuantTable {
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}

	scale := 200 - 2*quality
	if quality < 50 {
		scale = 5000 / quality
	}

	var zz [BlockSize]uint16
	for i, base := range stdLuminanceQuant {
		v := (int(base)*scale + 50) / 100
		if v < 1 {
			v = 1
		}
		if v > 255 {
			v = 255
		}
		zz[i] = uint16(v)
	}
	return quantFromZigzag(zz)
}
