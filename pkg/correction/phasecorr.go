package correction

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"
)

// Registration is the translation that registers a moving image stack onto
// a reference stack.
type Registration struct {
	// Shift is the (row, column) translation to apply to the moving stack
	Shift [2]float64

	// Error is the normalized RMS registration error, in [0, 1]
	Error float64

	// PhaseDiff is the global phase difference between the two stacks
	PhaseDiff float64
}

var machineEpsilon = math.Nextafter(1, 2) - 1

// PhaseCrossCorrelation estimates the translation between two equally sized
// stacks of rows x cols frames. The cross-power spectra of all frame pairs
// are summed, so a single shift characterizes the whole stack. The integer
// peak of the phase correlation is refined on a grid of 1/upsampleFactor
// samples with a matrix-multiply DFT around the peak.
func PhaseCrossCorrelation(reference, moving [][]float64, rows, cols, upsampleFactor int) (Registration, error) {
	if len(reference) == 0 || len(reference) != len(moving) {
		return Registration{}, fmt.Errorf("stacks must be non-empty and of equal length, got %d and %d", len(reference), len(moving))
	}
	if rows < 1 || cols < 1 {
		return Registration{}, fmt.Errorf("invalid frame size %dx%d", rows, cols)
	}
	if upsampleFactor < 1 {
		return Registration{}, fmt.Errorf("upsample factor must be at least 1, got %d", upsampleFactor)
	}

	n := rows * cols
	t := newFFT2(rows, cols)
	product := make([]complex128, n)
	src := make([]complex128, n)
	tgt := make([]complex128, n)
	var srcAmp, tgtAmp float64

	for i := range reference {
		if len(reference[i]) != n || len(moving[i]) != n {
			return Registration{}, fmt.Errorf("frame %d does not have %d samples", i, n)
		}
		for k := 0; k < n; k++ {
			src[k] = complex(reference[i][k], 0)
			tgt[k] = complex(moving[i][k], 0)
		}
		t.forward(src)
		t.forward(tgt)
		for k := 0; k < n; k++ {
			product[k] += src[k] * cmplx.Conj(tgt[k])
			srcAmp += real(src[k] * cmplx.Conj(src[k]))
			tgtAmp += real(tgt[k] * cmplx.Conj(tgt[k]))
		}
	}
	srcAmp /= float64(n)
	tgtAmp /= float64(n)

	normalized := make([]complex128, n)
	for k, p := range product {
		normalized[k] = p / complex(math.Max(cmplx.Abs(p), machineEpsilon), 0)
	}

	// Integer-pixel peak of the phase correlation surface
	corr := make([]complex128, n)
	copy(corr, normalized)
	t.inverse(corr)
	mags := make([]float64, n)
	for k, c := range corr {
		mags[k] = cmplx.Abs(c)
	}
	peak := floats.MaxIdx(mags)
	shift := [2]float64{
		wrapShift(peak/cols, rows),
		wrapShift(peak%cols, cols),
	}

	if upsampleFactor > 1 {
		uf := float64(upsampleFactor)
		shift[0] = math.Round(shift[0]*uf) / uf
		shift[1] = math.Round(shift[1]*uf) / uf

		region := int(math.Ceil(uf * 1.5))
		dftShift := math.Trunc(float64(region) / 2)

		up := upsampledCorrelation(normalized, rows, cols, shift, region, dftShift, uf)
		upMags := make([]float64, len(up))
		for k, c := range up {
			upMags[k] = cmplx.Abs(c)
		}
		best := floats.MaxIdx(upMags)
		shift[0] += (float64(best/region) - dftShift) / uf
		shift[1] += (float64(best%region) - dftShift) / uf
	}

	// A singleton axis carries no shift information
	if rows == 1 {
		shift[0] = 0
	}
	if cols == 1 {
		shift[1] = 0
	}

	reg := Registration{Shift: shift, Error: 1}
	ccMax := correlationAt(product, rows, cols, shift)
	if amp := srcAmp * tgtAmp; amp > 0 {
		reg.Error = math.Sqrt(math.Abs(1 - real(ccMax*cmplx.Conj(ccMax))/amp))
		reg.PhaseDiff = math.Atan2(imag(ccMax), real(ccMax))
	}

	return reg, nil
}

// wrapShift maps a peak index to a signed shift: indices past the midpoint
// are negative shifts.
func wrapShift(idx, size int) float64 {
	if idx > size/2 {
		return float64(idx - size)
	}
	return float64(idx)
}

// upsampledCorrelation evaluates the inverse DFT of spectrum on a
// region x region grid of spacing 1/uf, centred on shift. The result is
// row-major. The two axes are separable, so this is two small complex
// matrix products rather than a full upsampled transform.
func upsampledCorrelation(spectrum []complex128, rows, cols int, shift [2]float64, region int, dftShift, uf float64) []complex128 {
	kernel := func(size int, centre float64) []complex128 {
		k := make([]complex128, region*size)
		for m := 0; m < region; m++ {
			pos := centre + (float64(m)-dftShift)/uf
			for f := 0; f < size; f++ {
				k[m*size+f] = cmplx.Exp(complex(0, 2*math.Pi*signedFreq(f, size)*pos/float64(size)))
			}
		}
		return k
	}
	colKernel := kernel(cols, shift[1])
	rowKernel := kernel(rows, shift[0])

	// partial[ky][m] = sum over kx of spectrum[ky][kx] * colKernel[m][kx]
	partial := make([]complex128, rows*region)
	for ky := 0; ky < rows; ky++ {
		spec := spectrum[ky*cols : (ky+1)*cols]
		for m := 0; m < region; m++ {
			ker := colKernel[m*cols : (m+1)*cols]
			var sum complex128
			for kx, s := range spec {
				sum += s * ker[kx]
			}
			partial[ky*region+m] = sum
		}
	}

	// out[n][m] = sum over ky of rowKernel[n][ky] * partial[ky][m]
	out := make([]complex128, region*region)
	for nIdx := 0; nIdx < region; nIdx++ {
		ker := rowKernel[nIdx*rows : (nIdx+1)*rows]
		for ky, k := range ker {
			row := partial[ky*region : (ky+1)*region]
			dst := out[nIdx*region : (nIdx+1)*region]
			for m, p := range row {
				dst[m] += k * p
			}
		}
	}

	return out
}

// correlationAt evaluates the unnormalized cross-correlation of the two
// stacks at a (possibly fractional) shift from their cross-power spectrum.
func correlationAt(spectrum []complex128, rows, cols int, shift [2]float64) complex128 {
	var sum complex128
	for ky := 0; ky < rows; ky++ {
		fy := signedFreq(ky, rows) * shift[0] / float64(rows)
		for kx := 0; kx < cols; kx++ {
			fx := signedFreq(kx, cols) * shift[1] / float64(cols)
			sum += spectrum[ky*cols+kx] * cmplx.Exp(complex(0, 2*math.Pi*(fy+fx)))
		}
	}
	return sum / complex(float64(rows*cols), 0)
}
