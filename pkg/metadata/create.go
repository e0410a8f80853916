package metadata

import (
	"encoding/xml"
	"fmt"
	"os"
	"strconv"

	"octprof/internal/models"
)

type sidecarDocument struct {
	XMLName  xml.Name        `xml:"Napari_Metadata"`
	Metadata sidecarMetadata `xml:"Metadata"`
}

type sidecarMetadata struct {
	VolumeSize sidecarVolumeSize `xml:"Volume_Size"`
}

type sidecarVolumeSize struct {
	Height         string `xml:"Height,attr"`
	BscanWidth     string `xml:"BscanWidth,attr"`
	NumberOfFrames string `xml:"Number_of_Frames,attr"`
}

// CreateSidecar writes a sidecar describing vol at the sidecar path of
// dataPath. vol is in display orientation, so its rows are the on-disk
// width and its columns the on-disk height.
func (r *Resolver) CreateSidecar(dataPath string, vol *models.Volume) (models.SidecarDescriptor, error) {
	if vol.NumDims() != 3 {
		return models.SidecarDescriptor{}, fmt.Errorf("%w: sidecar needs a 3D volume, got %d dimensions", models.ErrDimension, vol.NumDims())
	}

	sc := models.SidecarDescriptor{
		Path:       r.SidecarPath(dataPath),
		Exists:     true,
		Height:     vol.Cols(),
		Width:      vol.Rows(),
		FrameCount: vol.Frames(),
	}

	doc := sidecarDocument{
		Metadata: sidecarMetadata{
			VolumeSize: sidecarVolumeSize{
				Height:         strconv.Itoa(sc.Height),
				BscanWidth:     strconv.Itoa(sc.Width),
				NumberOfFrames: strconv.Itoa(sc.FrameCount),
			},
		},
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return models.SidecarDescriptor{}, fmt.Errorf("failed to marshal sidecar: %w", err)
	}
	out = append([]byte(xml.Header), out...)
	out = append(out, '\n')

	if err := os.WriteFile(sc.Path, out, 0644); err != nil {
		return models.SidecarDescriptor{}, fmt.Errorf("%w: write sidecar %s: %w", models.ErrIO, sc.Path, err)
	}

	return sc, nil
}
