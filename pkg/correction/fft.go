package correction

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// fft2 transforms a rows x cols complex matrix in place, stored row-major.
// The forward transform is unnormalized; the inverse divides by rows*cols
// so that a forward/inverse pair is the identity.
type fft2 struct {
	rows, cols int
	rowFFT     *fourier.CmplxFFT
	colFFT     *fourier.CmplxFFT
	column     []complex128
}

func newFFT2(rows, cols int) *fft2 {
	return &fft2{
		rows:   rows,
		cols:   cols,
		rowFFT: fourier.NewCmplxFFT(cols),
		colFFT: fourier.NewCmplxFFT(rows),
		column: make([]complex128, rows),
	}
}

// forward replaces data with its 2D discrete Fourier transform
func (t *fft2) forward(data []complex128) {
	t.apply(data, false)
}

// inverse replaces data with its normalized inverse 2D transform
func (t *fft2) inverse(data []complex128) {
	t.apply(data, true)
	scale := complex(1/float64(t.rows*t.cols), 0)
	for i := range data {
		data[i] *= scale
	}
}

func (t *fft2) apply(data []complex128, inverse bool) {
	// Row-wise transforms
	for r := 0; r < t.rows; r++ {
		row := data[r*t.cols : (r+1)*t.cols]
		if inverse {
			t.rowFFT.Sequence(row, row)
		} else {
			t.rowFFT.Coefficients(row, row)
		}
	}

	// Column-wise transforms
	for c := 0; c < t.cols; c++ {
		for r := 0; r < t.rows; r++ {
			t.column[r] = data[r*t.cols+c]
		}
		if inverse {
			t.colFFT.Sequence(t.column, t.column)
		} else {
			t.colFFT.Coefficients(t.column, t.column)
		}
		for r := 0; r < t.rows; r++ {
			data[r*t.cols+c] = t.column[r]
		}
	}
}

// signedFreq returns the integer frequency of coefficient i of an n-point
// transform, negative for the upper half of the spectrum.
func signedFreq(i, n int) float64 {
	if i < (n-1)/2+1 {
		return float64(i)
	}
	return float64(i - n)
}
