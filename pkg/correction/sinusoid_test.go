package correction

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"

	"octprof/internal/models"
)

// TestSourceGrid verifies the endpoints and monotonicity of the sampling grid
func TestSourceGrid(t *testing.T) {
	for _, width := range []int{2, 3, 6, 17, 400, 1250} {
		grid := SourceGrid(width)

		if len(grid) != width {
			t.Fatalf("width %d: expected %d grid points, got %d", width, width, len(grid))
		}
		if math.Abs(grid[0]) > 1e-9 {
			t.Errorf("width %d: expected grid[0] = 0, got %v", width, grid[0])
		}

		half := float64(width) / 2
		last := half * (1 - math.Cos(math.Pi*float64(width-1)/float64(width)))
		if !scalar.EqualWithinAbs(grid[width-1], last, 1e-9) {
			t.Errorf("width %d: expected last grid point %v, got %v", width, last, grid[width-1])
		}
		if grid[width-1] >= float64(width) {
			t.Errorf("width %d: grid exceeds the row", width)
		}

		for k := 1; k < width; k++ {
			if grid[k] <= grid[k-1] {
				t.Errorf("width %d: grid not increasing at %d (%v <= %v)", width, k, grid[k], grid[k-1])
				break
			}
		}
	}
}

// TestLinearizeIdentitySignal feeds rows whose value equals the true position
// of each sample, so the resampled row must equal the uniform grid
func TestLinearizeIdentitySignal(t *testing.T) {
	const frames, rows, cols = 3, 4, 40
	vol := models.NewVolume(frames, rows, cols, 4)
	grid := SourceGrid(cols)
	for f := 0; f < frames; f++ {
		for r := 0; r < rows; r++ {
			copy(vol.Row(f, r), grid)
		}
	}

	out := Linearize(vol, 2)
	if out != vol {
		t.Fatalf("Expected Linearize to return the same volume")
	}
	if out.Frames() != frames || out.Rows() != rows || out.Cols() != cols {
		t.Fatalf("Shape changed to %v", out.Shape)
	}

	lastSource := grid[cols-1]
	for f := 0; f < frames; f++ {
		for r := 0; r < rows; r++ {
			row := out.Row(f, r)
			for k, v := range row {
				want := float64(k)
				if want > lastSource {
					// targets past the last source sample clamp to it
					want = lastSource
				}
				if !scalar.EqualWithinAbs(v, want, 1e-9) {
					t.Fatalf("frame %d row %d col %d: expected %v, got %v", f, r, k, want, v)
				}
			}
		}
	}
}

// TestLinearizeConstantRows verifies that a constant row is left unchanged and
// that rows do not leak into each other
func TestLinearizeConstantRows(t *testing.T) {
	vol := models.NewVolume(2, 3, 16, 4)
	for f := 0; f < 2; f++ {
		for r := 0; r < 3; r++ {
			row := vol.Row(f, r)
			for k := range row {
				row[k] = float64(10*f + r)
			}
		}
	}

	Linearize(vol, 4)

	for f := 0; f < 2; f++ {
		for r := 0; r < 3; r++ {
			for k, v := range vol.Row(f, r) {
				if !scalar.EqualWithinAbs(v, float64(10*f+r), 1e-12) {
					t.Fatalf("frame %d row %d col %d: expected %d, got %v", f, r, k, 10*f+r, v)
				}
			}
		}
	}
}

// TestLinearizeSingleColumn verifies that a one-sample row is left alone
func TestLinearizeSingleColumn(t *testing.T) {
	vol := models.NewVolume(1, 2, 1, 4)
	vol.Data[0], vol.Data[1] = 3, 5

	Linearize(vol, 1)

	if vol.Data[0] != 3 || vol.Data[1] != 5 {
		t.Errorf("Expected single-column rows unchanged, got %v", vol.Data)
	}
}

// TestReverseOddRows verifies that only odd rows are reversed
func TestReverseOddRows(t *testing.T) {
	vol := models.NewVolume(2, 3, 4, 4)
	for i := range vol.Data {
		vol.Data[i] = float64(i % 4)
	}

	ReverseOddRows(vol, 2)

	for f := 0; f < 2; f++ {
		for r := 0; r < 3; r++ {
			want := []float64{0, 1, 2, 3}
			if r%2 == 1 {
				want = []float64{3, 2, 1, 0}
			}
			if !floats.Equal(vol.Row(f, r), want) {
				t.Errorf("frame %d row %d: expected %v, got %v", f, r, want, vol.Row(f, r))
			}
		}
	}
}

// TestForEachFrame verifies that every frame is visited exactly once
func TestForEachFrame(t *testing.T) {
	for _, workers := range []int{0, 1, 3, 8, 50} {
		visits := make([]int, 17)
		forEachFrame(len(visits), workers, func(f int) {
			visits[f]++
		})
		for f, n := range visits {
			if n != 1 {
				t.Errorf("workers=%d: frame %d visited %d times", workers, f, n)
			}
		}
	}
}
