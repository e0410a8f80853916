package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"

	"octprof/internal/models"
)

// Viewer extracts 2D cross-sections of a display-oriented volume as
// grayscale images, for inspecting decoded scans without an interactive
// viewer.
type Viewer struct {
	volume *models.Volume

	// intensity window mapped to black..white
	low, high float64
}

// NewViewer creates a viewer whose intensity window spans the volume's
// minimum and maximum samples
func NewViewer(volume *models.Volume) (*Viewer, error) {
	if volume.NumDims() != 3 {
		return nil, fmt.Errorf("%w: viewer needs a 3D volume, got %d dimensions", models.ErrDimension, volume.NumDims())
	}

	v := &Viewer{volume: volume}
	if len(volume.Data) > 0 {
		v.low = floats.Min(volume.Data)
		v.high = floats.Max(volume.Data)
	}
	return v, nil
}

// gray maps a sample into the intensity window
func (v *Viewer) gray(value float64) color.Gray16 {
	span := v.high - v.low
	if span <= 0 || math.IsNaN(value) {
		return color.Gray16{}
	}
	t := (value - v.low) / span
	return color.Gray16{Y: uint16(math.Max(0, math.Min(65535, t*65535)))}
}

// ExtractSlice extracts a 2D section at position along an axis:
// "frame" (or "z") is a whole frame, "row" (or "y") stacks one row of every
// frame, "col" (or "x") stacks one column of every frame.
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	frames, rows, cols := v.volume.Frames(), v.volume.Rows(), v.volume.Cols()
	var img *image.Gray16

	switch axis {
	case "frame", "z", "Z":
		if position >= frames {
			return nil, fmt.Errorf("position %d exceeds frame count %d", position, frames)
		}
		img = image.NewGray16(image.Rect(0, 0, cols, rows))
		for r := 0; r < rows; r++ {
			for c, value := range v.volume.Row(position, r) {
				img.SetGray16(c, r, v.gray(value))
			}
		}

	case "row", "y", "Y":
		if position >= rows {
			return nil, fmt.Errorf("position %d exceeds row count %d", position, rows)
		}
		img = image.NewGray16(image.Rect(0, 0, cols, frames))
		for f := 0; f < frames; f++ {
			for c, value := range v.volume.Row(f, position) {
				img.SetGray16(c, f, v.gray(value))
			}
		}

	case "col", "x", "X":
		if position >= cols {
			return nil, fmt.Errorf("position %d exceeds column count %d", position, cols)
		}
		img = image.NewGray16(image.Rect(0, 0, frames, rows))
		for f := 0; f < frames; f++ {
			for r := 0; r < rows; r++ {
				img.SetGray16(f, r, v.gray(v.volume.Row(f, r)[position]))
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be frame, row or col)", axis)
	}

	return img, nil
}

// SaveSlice saves an extracted slice as a JPEG image
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

// SaveSliceSequence extracts and saves every slice along the specified axis
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	var maxPos int
	switch axis {
	case "frame", "z", "Z":
		maxPos = v.volume.Frames()
	case "row", "y", "Y":
		maxPos = v.volume.Rows()
	case "col", "x", "X":
		maxPos = v.volume.Cols()
	default:
		return fmt.Errorf("invalid axis: %s (must be frame, row or col)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("%s_%04d.jpg", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}
