// Package metadata resolves the XML sidecar that carries the dimensions of a
// .prof data file, and synthesizes one when a volume is written without it.
package metadata

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"octprof/internal/models"
)

// Sidecar tag and attribute names. Synthesized sidecars use the same names
// so that they resolve again.
const (
	VolumeSizeTag     = "Volume_Size"
	HeightAttr        = "Height"
	WidthAttr         = "BscanWidth"
	FrameCountAttr    = "Number_of_Frames"
	defaultDataExt    = ".prof"
	defaultSidecarExt = ".xml"
)

// DefaultScanSuffixes are the acquisition-subtype suffixes of OCTA and
// structural exports that share one sidecar.
var DefaultScanSuffixes = []string{"_OCTA", "_Struc"}

// Resolver derives sidecar paths and volume descriptors.
type Resolver struct {
	// DataExt is the extension every data file must carry
	DataExt string

	// SidecarExt is appended to the stripped base name
	SidecarExt string

	// Suffixes are removed from the end of the base name, at most one of them
	Suffixes []string

	// ElementWidth is the sample width used to derive the frame count
	ElementWidth int
}

// NewResolver creates a resolver with the default naming convention
func NewResolver(elementWidth int) *Resolver {
	return &Resolver{
		DataExt:      defaultDataExt,
		SidecarExt:   defaultSidecarExt,
		Suffixes:     DefaultScanSuffixes,
		ElementWidth: elementWidth,
	}
}

func (r *Resolver) dataExt() string {
	if r.DataExt == "" {
		return defaultDataExt
	}
	return r.DataExt
}

// CheckDataPath returns ErrUnsupportedFile unless dataPath ends in the data
// file extension.
func (r *Resolver) CheckDataPath(dataPath string) error {
	if !strings.HasSuffix(filepath.Base(dataPath), r.dataExt()) {
		return fmt.Errorf("%w: %s does not end in %s", models.ErrUnsupportedFile, dataPath, r.dataExt())
	}
	return nil
}

// SidecarPath returns the sidecar path for a data file: same directory,
// data extension removed, scan-type suffix removed, sidecar extension
// appended. Other extensions are kept as part of the base name.
func (r *Resolver) SidecarPath(dataPath string) string {
	dir, name := filepath.Split(dataPath)
	base := strings.TrimSuffix(name, r.dataExt())
	for _, suffix := range r.Suffixes {
		if suffix != "" && strings.HasSuffix(base, suffix) {
			base = strings.TrimSuffix(base, suffix)
			break
		}
	}
	ext := r.SidecarExt
	if ext == "" {
		ext = defaultSidecarExt
	}
	return filepath.Join(dir, base+ext)
}

// Lookup resolves the sidecar for dataPath. A missing sidecar is not an
// error: the returned descriptor has Exists == false. A sidecar that exists
// but cannot be parsed yields ErrMetadataInvalid.
func (r *Resolver) Lookup(dataPath string) (models.SidecarDescriptor, error) {
	sc := models.SidecarDescriptor{Path: r.SidecarPath(dataPath)}

	f, err := os.Open(sc.Path)
	if errors.Is(err, os.ErrNotExist) {
		return sc, nil
	}
	if err != nil {
		return sc, fmt.Errorf("%w: open sidecar %s: %w", models.ErrIO, sc.Path, err)
	}
	defer f.Close()

	sc.Exists = true
	attrs, err := findVolumeSize(f)
	if err != nil {
		return sc, fmt.Errorf("%w: %s: %v", models.ErrMetadataInvalid, sc.Path, err)
	}

	for _, field := range []struct {
		name string
		dst  *int
	}{
		{HeightAttr, &sc.Height},
		{WidthAttr, &sc.Width},
		{FrameCountAttr, &sc.FrameCount},
	} {
		raw, ok := attrs[field.name]
		if !ok {
			return sc, fmt.Errorf("%w: %s: attribute %s missing", models.ErrMetadataInvalid, sc.Path, field.name)
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n < 0 {
			return sc, fmt.Errorf("%w: %s: attribute %s=%q is not a non-negative integer", models.ErrMetadataInvalid, sc.Path, field.name, raw)
		}
		*field.dst = n
	}

	return sc, nil
}

// findVolumeSize returns the attributes of the first Volume_Size element,
// wherever it sits in the tree.
func findVolumeSize(r io.Reader) (map[string]string, error) {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, fmt.Errorf("no %s element", VolumeSizeTag)
		}
		if err != nil {
			return nil, fmt.Errorf("malformed xml: %v", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != VolumeSizeTag {
			continue
		}
		attrs := make(map[string]string, len(start.Attr))
		for _, a := range start.Attr {
			attrs[a.Name.Local] = a.Value
		}
		return attrs, nil
	}
}

// Resolve returns the descriptor of dataPath from its sidecar. It fails with
// ErrMetadataMissing when there is no sidecar, ErrMetadataInvalid when the
// sidecar is unusable, and ErrSizeMismatch when the file length disagrees.
func (r *Resolver) Resolve(dataPath string) (models.VolumeDescriptor, error) {
	sc, err := r.Lookup(dataPath)
	if err != nil {
		return models.VolumeDescriptor{}, err
	}
	if !sc.Exists {
		return models.VolumeDescriptor{}, fmt.Errorf("%w: no sidecar %s for %s", models.ErrMetadataMissing, sc.Path, dataPath)
	}
	if sc.Height == 0 || sc.Width == 0 {
		return models.VolumeDescriptor{}, fmt.Errorf("%w: %s declares a %dx%d frame", models.ErrMetadataInvalid, sc.Path, sc.Height, sc.Width)
	}

	size, err := fileSize(dataPath)
	if err != nil {
		return models.VolumeDescriptor{}, err
	}
	return Describe(dataPath, sc.Height, sc.Width, sc.FrameCount, r.ElementWidth, size)
}

// ResolveWithHints behaves like Resolve but falls back to the given frame
// dimensions when no sidecar exists. Hints of zero mean "not given".
func (r *Resolver) ResolveWithHints(dataPath string, heightHint, widthHint int) (models.VolumeDescriptor, error) {
	desc, err := r.Resolve(dataPath)
	if err == nil || !errors.Is(err, models.ErrMetadataMissing) {
		return desc, err
	}
	if heightHint <= 0 || widthHint <= 0 {
		return desc, err
	}

	size, serr := fileSize(dataPath)
	if serr != nil {
		return models.VolumeDescriptor{}, serr
	}
	return Describe(dataPath, heightHint, widthHint, 0, r.ElementWidth, size)
}

// Describe derives the frame count from the file size and validates the
// result. A positive declaredFrames must match the derived count.
func Describe(dataPath string, height, width, declaredFrames, elementWidth int, size int64) (models.VolumeDescriptor, error) {
	if elementWidth != 4 && elementWidth != 8 {
		return models.VolumeDescriptor{}, fmt.Errorf("unsupported element width %d", elementWidth)
	}

	desc := models.VolumeDescriptor{Height: height, Width: width, ElementWidth: elementWidth}
	frameBytes := desc.FrameBytes()
	if frameBytes <= 0 {
		return models.VolumeDescriptor{}, fmt.Errorf("%w: frame %dx%d is empty", models.ErrMetadataInvalid, height, width)
	}

	if size%frameBytes != 0 {
		expected := (size/frameBytes + 1) * frameBytes
		if declaredFrames > 0 {
			expected = frameBytes * int64(declaredFrames)
		}
		return models.VolumeDescriptor{}, &models.SizeMismatchError{Path: dataPath, Expected: expected, Actual: size}
	}

	desc.Depth = int(size / frameBytes)
	if declaredFrames > 0 && declaredFrames != desc.Depth {
		return models.VolumeDescriptor{}, &models.SizeMismatchError{Path: dataPath, Expected: frameBytes * int64(declaredFrames), Actual: size}
	}

	return desc, nil
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("%w: stat %s: %w", models.ErrIO, path, err)
	}
	return info.Size(), nil
}
