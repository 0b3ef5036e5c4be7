package codec

// dctMatrix[8*u+x] = 0.5*alpha(u)*cos((2*x+1)*u*M_PI/16),
// where alpha(0) = 1/sqrt(2) and alpha(u) = 1 for u > 0.
var dctMatrix = [64]float64{
	0.3535533906, 0.3535533906, 0.3535533906, 0.3535533906,
	0.3535533906, 0.3535533906, 0.3535533906, 0.3535533906,
	0.4903926402, 0.4157348062, 0.2777851165, 0.0975451610,
	-0.0975451610, -0.2777851165, -0.4157348062, -0.4903926402,
	0.4619397663, 0.1913417162, -0.1913417162, -0.4619397663,
	-0.4619397663, -0.1913417162, 0.1913417162, 0.4619397663,
	0.4157348062, -0.0975451610, -0.4903926402, -0.2777851165,
	0.2777851165, 0.4903926402, 0.0975451610, -0.4157348062,
	0.3535533906, -0.3535533906, -0.3535533906, 0.3535533906,
	0.3535533906, -0.3535533906, -0.3535533906, 0.3535533906,
	0.2777851165, -0.4903926402, 0.0975451610, 0.4157348062,
	-0.4157348062, -0.0975451610, 0.4903926402, -0.2777851165,
	0.1913417162, -0.4619397663, 0.4619397663, -0.1913417162,
	-0.1913417162, 0.4619397663, -0.4619397663, 0.1913417162,
	0.0975451610, -0.2777851165, 0.4157348062, -0.4903926402,
	0.4903926402, -0.4157348062, 0.2777851165, -0.0975451610,
}

type transform1d func(in []float64, stride int, out []float64)

func dct1d(in []float64, stride int, out []float64) {
	for x := 0; x < 8; x++ {
		out[x*stride] = 0.0
		for u := 0; u < 8; u++ {
			out[x*stride] += dctMatrix[8*x+u] * in[u*stride]
		}
	}
}

func idct1d(in []float64, stride int, out []float64) {
	for x := 0; x < 8; x++ {
		out[x*stride] = 0.0
		for u := 0; u < 8; u++ {
			out[x*stride] += dctMatrix[8*u+x] * in[u*stride]
		}
	}
}

func transformBlock(block []float64, f transform1d) {
	var tmp [64]float64
	for x := 0; x < 8; x++ {
		f(block[x:], 8, tmp[x:])
	}
	for y := 0; y < 8; y++ {
		f(tmp[8*y:], 1, block[8*y:])
	}
}

// ForwardDCT transforms 64 level-shifted samples, row-major, into DCT
// coefficients in natural order, in place
func ForwardDCT(block []float64) {
	transformBlock(block, dct1d)
}

// InverseDCT is the inverse of ForwardDCT
func InverseDCT(block []float64) {
	transformBlock(block, idct1d)
}
