package metadata

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"octprof/internal/models"
)

// writeFile writes content to dir/name and returns the full path
func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

const validSidecar = `<?xml version="1.0"?>
<Data_Export>
  <Acquisition>
    <Volume_Size Height="4" BscanWidth="6" Number_of_Frames="2"/>
  </Acquisition>
</Data_Export>`

// TestSidecarPath verifies the naming convention, including suffix stripping
func TestSidecarPath(t *testing.T) {
	r := NewResolver(4)
	dir := filepath.Join("data", "scans")

	cases := []struct {
		name string
		want string
	}{
		{"eye_OCTA.prof", "eye.xml"},
		{"eye_Struc.prof", "eye.xml"},
		{"eye.prof", "eye.xml"},
		{"eye_OCTA_extra.prof", "eye_OCTA_extra.xml"},
		{"eye_Struc_OCTA.prof", "eye_Struc.xml"},
		{"scan.v2.prof", "scan.v2.xml"},
		{"eye_OCTA.raw", "eye_OCTA.raw.xml"},
	}

	for _, tc := range cases {
		got := r.SidecarPath(filepath.Join(dir, tc.name))
		want := filepath.Join(dir, tc.want)
		if got != want {
			t.Errorf("SidecarPath(%s): expected %s, got %s", tc.name, want, got)
		}
	}
}

// TestLookupMissing verifies that an absent sidecar is reported, not failed
func TestLookupMissing(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(4)

	sc, err := r.Lookup(filepath.Join(dir, "eye_OCTA.prof"))
	if err != nil {
		t.Fatalf("Expected no error for a missing sidecar, got %v", err)
	}
	if sc.Exists {
		t.Errorf("Expected Exists to be false")
	}
	if sc.Path != filepath.Join(dir, "eye.xml") {
		t.Errorf("Unexpected sidecar path %s", sc.Path)
	}
}

// TestLookupValid verifies that attributes are read from a nested element
func TestLookupValid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "eye.xml", []byte(validSidecar))

	sc, err := NewResolver(4).Lookup(filepath.Join(dir, "eye_Struc.prof"))
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if !sc.Exists || sc.Height != 4 || sc.Width != 6 || sc.FrameCount != 2 {
		t.Errorf("Unexpected sidecar %+v", sc)
	}
}

// TestLookupInvalid verifies that malformed sidecars yield ErrMetadataInvalid
func TestLookupInvalid(t *testing.T) {
	cases := map[string]string{
		"missing attribute": `<a><Volume_Size Height="4" BscanWidth="6"/></a>`,
		"negative value":    `<a><Volume_Size Height="-4" BscanWidth="6" Number_of_Frames="2"/></a>`,
		"not a number":      `<a><Volume_Size Height="four" BscanWidth="6" Number_of_Frames="2"/></a>`,
		"no element":        `<a><Size Height="4"/></a>`,
		"broken xml":        `<a><Volume_Size Height="4"`,
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "eye.xml", []byte(content))

			_, err := NewResolver(4).Lookup(filepath.Join(dir, "eye.prof"))
			if !errors.Is(err, models.ErrMetadataInvalid) {
				t.Errorf("Expected ErrMetadataInvalid, got %v", err)
			}
		})
	}
}

// TestResolve verifies depth derivation and size validation
func TestResolve(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "eye.xml", []byte(validSidecar))
	r := NewResolver(4)

	good := writeFile(t, dir, "eye_OCTA.prof", make([]byte, 4*6*4*2))
	desc, err := r.Resolve(good)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if desc.Height != 4 || desc.Width != 6 || desc.Depth != 2 || desc.ElementWidth != 4 {
		t.Errorf("Unexpected descriptor %+v", desc)
	}

	// One frame short of the declared count
	short := writeFile(t, dir, "eye_Struc.prof", make([]byte, 4*6*4))
	if _, err := r.Resolve(short); !errors.Is(err, models.ErrSizeMismatch) {
		t.Errorf("Expected ErrSizeMismatch for a short file, got %v", err)
	}

	// Not a whole number of frames
	ragged := writeFile(t, dir, "eye.prof", make([]byte, 4*6*4*2+3))
	_, err = r.Resolve(ragged)
	var sizeErr *models.SizeMismatchError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("Expected SizeMismatchError, got %v", err)
	}
	if sizeErr.Actual != 4*6*4*2+3 {
		t.Errorf("Expected actual size %d, got %d", 4*6*4*2+3, sizeErr.Actual)
	}
}

// TestResolveMissing verifies that a data file without sidecar yields ErrMetadataMissing
func TestResolveMissing(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "lonely.prof", make([]byte, 96))

	_, err := NewResolver(4).Resolve(path)
	if !errors.Is(err, models.ErrMetadataMissing) {
		t.Errorf("Expected ErrMetadataMissing, got %v", err)
	}
}

// TestResolveWithHints verifies the hint fallback used for en-face exports
func TestResolveWithHints(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "enface.prof", make([]byte, 5*3*8*7))
	r := NewResolver(8)

	desc, err := r.ResolveWithHints(path, 5, 3)
	if err != nil {
		t.Fatalf("ResolveWithHints failed: %v", err)
	}
	if desc.Depth != 7 {
		t.Errorf("Expected depth 7, got %d", desc.Depth)
	}

	if _, err := r.ResolveWithHints(path, 0, 3); !errors.Is(err, models.ErrMetadataMissing) {
		t.Errorf("Expected ErrMetadataMissing without a height hint, got %v", err)
	}

	if _, err := r.ResolveWithHints(path, 4, 3); !errors.Is(err, models.ErrSizeMismatch) {
		t.Errorf("Expected ErrSizeMismatch for hints that do not divide the file, got %v", err)
	}
}

// TestCreateSidecarRoundTrip verifies that a synthesized sidecar resolves again
func TestCreateSidecarRoundTrip(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(4)
	dataPath := filepath.Join(dir, "new_OCTA.prof")

	// Display orientation: 3 frames of 6 rows (disk width) by 4 columns (disk height)
	vol := models.NewVolume(3, 6, 4, 4)

	created, err := r.CreateSidecar(dataPath, vol)
	if err != nil {
		t.Fatalf("CreateSidecar failed: %v", err)
	}
	if created.Path != filepath.Join(dir, "new.xml") {
		t.Errorf("Unexpected sidecar path %s", created.Path)
	}

	sc, err := r.Lookup(dataPath)
	if err != nil {
		t.Fatalf("Lookup of synthesized sidecar failed: %v", err)
	}
	if sc.Height != 4 || sc.Width != 6 || sc.FrameCount != 3 {
		t.Errorf("Synthesized sidecar read back as %+v", sc)
	}

	content, err := os.ReadFile(created.Path)
	if err != nil {
		t.Fatalf("Failed to read synthesized sidecar: %v", err)
	}
	if !strings.Contains(string(content), "<Napari_Metadata>") {
		t.Errorf("Expected a Napari_Metadata root element, got:\n%s", content)
	}
}

// TestCheckDataPath verifies that only files with the data extension are accepted
func TestCheckDataPath(t *testing.T) {
	r := NewResolver(4)
	if err := r.CheckDataPath(filepath.Join("scans", "eye_OCTA.prof")); err != nil {
		t.Errorf("Expected .prof to be accepted, got %v", err)
	}
	for _, name := range []string{"eye.xml", "eye.prof.bak", "eye"} {
		if err := r.CheckDataPath(name); !errors.Is(err, models.ErrUnsupportedFile) {
			t.Errorf("CheckDataPath(%s): expected ErrUnsupportedFile, got %v", name, err)
		}
	}

	r.DataExt = ".raw"
	if err := r.CheckDataPath("eye.raw"); err != nil {
		t.Errorf("Expected a configured extension to be accepted, got %v", err)
	}
	if got := r.SidecarPath("eye_Struc.raw"); got != "eye.xml" {
		t.Errorf("Expected eye.xml with a configured extension, got %s", got)
	}
}

// TestCreateSidecarRejects2D verifies the dimension guard
func TestCreateSidecarRejects2D(t *testing.T) {
	dir := t.TempDir()
	vol := &models.Volume{Data: make([]float64, 12), Shape: []int{3, 4}}

	_, err := NewResolver(4).CreateSidecar(filepath.Join(dir, "flat.prof"), vol)
	if !errors.Is(err, models.ErrDimension) {
		t.Errorf("Expected ErrDimension, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "flat.xml")); !os.IsNotExist(statErr) {
		t.Errorf("Expected no sidecar to be written")
	}
}
