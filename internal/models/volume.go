package models

// DefaultElementWidth is the sample width in bytes of legacy .prof files (float32).
const DefaultElementWidth = 4

// Volume is a 3D stack of floating-point samples stored in a flat,
// row-major slice. A decoded volume is in display orientation:
// Shape is [frames][rows][cols].
type Volume struct {
	// Data holds the samples, frame after frame, each frame row-major
	Data []float64

	// Shape lists the extent of each axis. A valid volume has exactly three.
	Shape []int

	// ElementWidth is the on-disk sample width in bytes (4 or 8).
	// Zero means DefaultElementWidth.
	ElementWidth int
}

// NewVolume allocates a zeroed volume of the given shape
func NewVolume(frames, rows, cols, elementWidth int) *Volume {
	return &Volume{
		Data:         make([]float64, frames*rows*cols),
		Shape:        []int{frames, rows, cols},
		ElementWidth: elementWidth,
	}
}

// NumDims returns the number of axes of the volume.
func (v *Volume) NumDims() int { return len(v.Shape) }

// Frames returns the extent of the first axis.
func (v *Volume) Frames() int { return v.Shape[0] }

// Rows returns the extent of the second axis.
func (v *Volume) Rows() int { return v.Shape[1] }

// Cols returns the extent of the third axis.
func (v *Volume) Cols() int { return v.Shape[2] }

// FrameSize returns the number of samples in one frame.
func (v *Volume) FrameSize() int { return v.Rows() * v.Cols() }

// Frame returns the samples of frame f. The slice aliases v.Data.
func (v *Volume) Frame(f int) []float64 {
	n := v.FrameSize()
	return v.Data[f*n : (f+1)*n]
}

// Row returns row r of frame f. The slice aliases v.Data.
func (v *Volume) Row(f, r int) []float64 {
	cols := v.Cols()
	start := f*v.FrameSize() + r*cols
	return v.Data[start : start+cols]
}

// ElementSize returns the on-disk sample width, applying the default.
func (v *Volume) ElementSize() int {
	if v.ElementWidth == 0 {
		return DefaultElementWidth
	}
	return v.ElementWidth
}

// VolumeDescriptor describes the binary layout of a .prof data file.
// Height and Width are the on-disk frame dimensions (Height rows of Width
// samples); Depth is derived from the file size. Samples are always
// little-endian.
type VolumeDescriptor struct {
	Height       int
	Width        int
	Depth        int
	ElementWidth int
}

// FrameBytes returns the on-disk size of a single frame.
func (d VolumeDescriptor) FrameBytes() int64 {
	return int64(d.Height) * int64(d.Width) * int64(d.ElementWidth)
}

// TotalBytes returns the expected size of the whole data file.
func (d VolumeDescriptor) TotalBytes() int64 {
	return d.FrameBytes() * int64(d.Depth)
}

// SidecarDescriptor is the XML metadata file that accompanies a data file.
// It is resolved per call and never cached.
type SidecarDescriptor struct {
	Path       string
	Exists     bool
	Height     int
	Width      int
	FrameCount int
}

// ShiftEstimate is the registration result between the even and odd
// scan-line groups of a volume
type ShiftEstimate struct {
	Dy float64
	Dx float64

	// RoundedDx is the only component that is applied.
	RoundedDx int

	Error     float64
	PhaseDiff float64
}

// CorrectionFlags selects the optional corrections applied after decoding.
type CorrectionFlags struct {
	LinearizeSinusoid bool
	AlignScanPasses   bool
}

// LayerKind enumerates the kinds of decoded result.
type LayerKind int

const (
	// VolumetricImage is a 3D intensity volume.
	VolumetricImage LayerKind = iota
)

func (k LayerKind) String() string {
	switch k {
	case VolumetricImage:
		return "image"
	default:
		return "unknown"
	}
}

// Layer is the result of decoding a volume for display
type Layer struct {
	Data *Volume
	Name string
	Kind LayerKind

	// Shift is set when scan-pass alignment was applied.
	Shift *ShiftEstimate
}
