// Package correction removes the geometric artifacts of the resonant scan
// mirror: sinusoidal sample spacing along each scan line, and the offset
// between forward and reverse sweeps.
//
// Volumes are expected in stored orientation, [frames][height][width], so
// that every row is one recorded scan line of width samples.
package correction

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"

	"octprof/internal/models"
)

// SourceGrid returns the positions at which the mirror actually sampled a
// row of the given width:
//
//	x[k] = (width/2)*sin(pi*k/width - pi/2) + width/2
//
// x[0] is 0 and the grid is strictly increasing.
func SourceGrid(width int) []float64 {
	grid := make([]float64, width)
	half := float64(width) / 2
	for k := range grid {
		grid[k] = half*math.Sin(math.Pi*float64(k)/float64(width)-math.Pi/2) + half
	}
	return grid
}

// Linearize resamples every row of vol from the sinusoidal source grid onto
// the uniform grid 0..cols-1. Targets beyond the last source position take
// the last sample value. Every row is treated the same way. vol is modified
// in place and returned.
func Linearize(vol *models.Volume, workers int) *models.Volume {
	cols := vol.Cols()
	if cols < 2 {
		return vol
	}

	grid := SourceGrid(cols)
	targets := make([]float64, cols)
	floats.Span(targets, 0, float64(cols-1))

	forEachFrame(vol.Frames(), workers, func(f int) {
		var pl interp.PiecewiseLinear
		resampled := make([]float64, cols)
		for r := 0; r < vol.Rows(); r++ {
			row := vol.Row(f, r)
			if err := pl.Fit(grid, row); err != nil {
				// grid is strictly increasing and as long as the row
				panic(err)
			}
			for k, x := range targets {
				resampled[k] = pl.Predict(x)
			}
			copy(row, resampled)
		}
	})

	return vol
}

// ReverseOddRows reverses the sample order of every odd-indexed row, turning
// reverse-sweep rows back into forward order. vol is modified in place and
// returned.
func ReverseOddRows(vol *models.Volume, workers int) *models.Volume {
	forEachFrame(vol.Frames(), workers, func(f int) {
		for r := 1; r < vol.Rows(); r += 2 {
			floats.Reverse(vol.Row(f, r))
		}
	})
	return vol
}
