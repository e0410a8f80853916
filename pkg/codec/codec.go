// Package codec reads and writes .prof volumes: raw little-endian float
// frames, concatenated frame-major, each frame row-major.
package codec

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"octprof/internal/models"
)

// Decode reads the volume at path as described by desc and returns it in
// display orientation. The file length must equal desc.TotalBytes() exactly.
// A cancelled context yields no volume.
func Decode(ctx context.Context, path string, desc models.VolumeDescriptor) (*models.Volume, error) {
	vol, err := DecodeScanLines(ctx, path, desc)
	if err != nil {
		return nil, err
	}
	return Reorient(vol)
}

// DecodeScanLines reads the volume at path as stored: shape
// [depth][height][width], one row per recorded scan line. Scan corrections
// work on this orientation.
func DecodeScanLines(ctx context.Context, path string, desc models.VolumeDescriptor) (*models.Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", models.ErrIO, path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %w", models.ErrIO, path, err)
	}
	if expected := desc.TotalBytes(); info.Size() != expected {
		return nil, &models.SizeMismatchError{Path: path, Expected: expected, Actual: info.Size()}
	}

	frames, err := newFrameIO(desc.ElementWidth, desc.Height*desc.Width)
	if err != nil {
		return nil, err
	}

	vol := models.NewVolume(desc.Depth, desc.Height, desc.Width, desc.ElementWidth)
	r := bufio.NewReaderSize(f, 1<<20)

	for d := 0; d < desc.Depth; d++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		if err := frames.read(r, vol.Frame(d)); err != nil {
			return nil, fmt.Errorf("%w: read frame %d of %s: %w", models.ErrIO, d, path, err)
		}
	}

	return vol, nil
}

// Reorient turns a volume in stored orientation ([depth][height][width])
// into display orientation ([depth][width][height]) in place and returns it.
func Reorient(vol *models.Volume) (*models.Volume, error) {
	if vol.NumDims() != 3 {
		return nil, fmt.Errorf("%w: .prof volumes have 3 dimensions, got %d", models.ErrDimension, vol.NumDims())
	}

	depth, height, width := vol.Frames(), vol.Rows(), vol.Cols()
	n := height * width
	disk := make([]float64, n)
	for d := 0; d < depth; d++ {
		frame := vol.Data[d*n : (d+1)*n]
		copy(disk, frame)
		toDisplay(frame, disk, height, width)
	}
	vol.Shape = []int{depth, width, height}

	return vol, nil
}

// Validate checks that vol can be encoded. It touches no files.
func Validate(vol *models.Volume) error {
	if vol == nil {
		return fmt.Errorf("%w: nil volume", models.ErrDimension)
	}
	if vol.NumDims() != 3 {
		return fmt.Errorf("%w: .prof volumes have 3 dimensions, got %d", models.ErrDimension, vol.NumDims())
	}
	n := 1
	for _, s := range vol.Shape {
		if s < 0 {
			return fmt.Errorf("%w: negative extent in shape %v", models.ErrDimension, vol.Shape)
		}
		n *= s
	}
	if n != len(vol.Data) {
		return fmt.Errorf("%w: shape %v needs %d samples, have %d", models.ErrDimension, vol.Shape, n, len(vol.Data))
	}
	if w := vol.ElementSize(); w != 4 && w != 8 {
		return fmt.Errorf("%w: unsupported element width %d", models.ErrDimension, w)
	}
	return nil
}

// Encode writes vol, given in display orientation, to path. The volume is
// validated before any file is created, and the data is written to a
// temporary file that replaces path only once complete.
func Encode(ctx context.Context, vol *models.Volume, path string) error {
	if err := Validate(vol); err != nil {
		return err
	}

	// display rows are the on-disk width, display columns the on-disk height
	height, width := vol.Cols(), vol.Rows()
	frames, err := newFrameIO(vol.ElementSize(), height*width)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temporary file for %s: %w", models.ErrIO, path, err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	w := bufio.NewWriterSize(tmp, 1<<20)
	disk := make([]float64, height*width)
	for d := 0; d < vol.Frames(); d++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		toDisk(disk, vol.Frame(d), height, width)
		if err := frames.write(w, disk); err != nil {
			return fmt.Errorf("%w: write frame %d of %s: %w", models.ErrIO, d, path, err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("%w: flush %s: %w", models.ErrIO, path, err)
	}
	if err := tmp.Chmod(0644); err != nil {
		return fmt.Errorf("%w: chmod %s: %w", models.ErrIO, tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", models.ErrIO, path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%w: rename into %s: %w", models.ErrIO, path, err)
	}
	committed = true

	return nil
}
