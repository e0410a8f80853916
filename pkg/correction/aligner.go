package correction

import (
	"fmt"
	"math"

	"octprof/internal/models"
)

// UpsampleFactor is the sub-pixel precision of the scan-pass shift estimate.
const UpsampleFactor = 100

// Aligner registers the odd (reverse sweep) rows of every frame against the
// even (forward sweep) rows.
type Aligner struct {
	UpsampleFactor int
	Workers        int
}

// NewAligner creates an aligner with the standard 1/100 sample precision
func NewAligner(workers int) *Aligner {
	return &Aligner{
		UpsampleFactor: UpsampleFactor,
		Workers:        workers,
	}
}

// Estimate computes one shift for the whole volume from the even and odd
// row groups of all frames. With an odd row count the trailing even row is
// left out so both groups have the same size.
func (a *Aligner) Estimate(vol *models.Volume) (models.ShiftEstimate, error) {
	if vol.NumDims() != 3 {
		return models.ShiftEstimate{}, fmt.Errorf("%w: alignment needs a 3D volume, got %d dimensions", models.ErrDimension, vol.NumDims())
	}
	pairs := vol.Rows() / 2
	if vol.Frames() == 0 || pairs == 0 || vol.Cols() == 0 {
		return models.ShiftEstimate{}, fmt.Errorf("%w: alignment needs at least two rows per frame, got shape %v", models.ErrDimension, vol.Shape)
	}

	cols := vol.Cols()
	even := make([][]float64, vol.Frames())
	odd := make([][]float64, vol.Frames())
	for f := range even {
		even[f] = make([]float64, pairs*cols)
		odd[f] = make([]float64, pairs*cols)
		for p := 0; p < pairs; p++ {
			copy(even[f][p*cols:(p+1)*cols], vol.Row(f, 2*p))
			copy(odd[f][p*cols:(p+1)*cols], vol.Row(f, 2*p+1))
		}
	}

	reg, err := PhaseCrossCorrelation(even, odd, pairs, cols, a.UpsampleFactor)
	if err != nil {
		return models.ShiftEstimate{}, fmt.Errorf("scan-pass registration failed: %w", err)
	}

	return models.ShiftEstimate{
		Dy:        reg.Shift[0],
		Dx:        reg.Shift[1],
		RoundedDx: int(math.RoundToEven(reg.Shift[1])),
		Error:     reg.Error,
		PhaseDiff: reg.PhaseDiff,
	}, nil
}

// Align estimates the scan-pass shift and applies its rounded column
// component to the odd rows. The row component and the sub-pixel remainder
// are reported but not applied. vol is modified in place and returned.
func (a *Aligner) Align(vol *models.Volume) (*models.Volume, models.ShiftEstimate, error) {
	est, err := a.Estimate(vol)
	if err != nil {
		return nil, models.ShiftEstimate{}, err
	}
	return ShiftOddRows(vol, est.RoundedDx, a.Workers), est, nil
}

// ShiftOddRows circularly shifts every odd row by shift columns (positive
// moves samples towards higher column indices) and zeroes the trailing
// |shift| columns, which hold wrapped samples after the roll.
func ShiftOddRows(vol *models.Volume, shift, workers int) *models.Volume {
	cols := vol.Cols()
	if shift == 0 || cols == 0 {
		return vol
	}

	blank := shift
	if blank < 0 {
		blank = -blank
	}
	if blank > cols {
		blank = cols
	}
	offset := ((shift % cols) + cols) % cols

	forEachFrame(vol.Frames(), workers, func(f int) {
		scratch := make([]float64, cols)
		for r := 1; r < vol.Rows(); r += 2 {
			row := vol.Row(f, r)
			copy(scratch, row)
			for c := range row {
				row[c] = scratch[(c-offset+cols)%cols]
			}
			clear(row[cols-blank:])
		}
	})

	return vol
}
