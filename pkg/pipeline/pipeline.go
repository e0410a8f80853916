// Package pipeline composes sidecar resolution, the .prof codec and the
// scan corrections into the two operations offered to callers: decoding a
// volume for display and encoding one back to disk.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"octprof/internal/models"
	"octprof/pkg/codec"
	"octprof/pkg/correction"
	"octprof/pkg/metadata"
)

// Params holds the per-invocation processing parameters.
type Params struct {
	// HeightHint and WidthHint are used when a data file has no sidecar.
	// Zero means not given.
	HeightHint int
	WidthHint  int

	// Flags selects the corrections applied after decoding
	Flags models.CorrectionFlags

	// NumCores bounds the goroutines used for per-frame corrections
	NumCores int
}

// Processor runs decode and encode requests. It holds no state between
// calls, so one Processor may serve concurrent requests for different files.
type Processor struct {
	params   *Params
	resolver *metadata.Resolver
	logger   logrus.FieldLogger
}

// NewProcessor creates a processor. A nil logger discards log output.
func NewProcessor(params *Params, resolver *metadata.Resolver, logger logrus.FieldLogger) *Processor {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Processor{
		params:   params,
		resolver: resolver,
		logger:   logger,
	}
}

// DisplayName returns the layer name for a data file: its base name with
// every "." replaced by "_".
func DisplayName(path string) string {
	return strings.ReplaceAll(filepath.Base(path), ".", "_")
}

// DecodeVolume resolves the dimensions of the data file at path, decodes
// it, applies the configured corrections along the recorded scan lines and
// returns the volume in display orientation.
func (p *Processor) DecodeVolume(ctx context.Context, path string) (*models.Layer, error) {
	log := p.logger.WithField("path", path)
	start := time.Now()

	if err := p.resolver.CheckDataPath(path); err != nil {
		return nil, err
	}

	desc, err := p.resolver.ResolveWithHints(path, p.params.HeightHint, p.params.WidthHint)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve dimensions: %w", err)
	}
	log.WithFields(logrus.Fields{
		"height":        desc.Height,
		"width":         desc.Width,
		"frames":        desc.Depth,
		"element_width": desc.ElementWidth,
	}).Debug("Resolved volume descriptor")

	vol, err := codec.DecodeScanLines(ctx, path, desc)
	if err != nil {
		return nil, fmt.Errorf("failed to decode volume: %w", err)
	}

	layer := &models.Layer{
		Name: DisplayName(path),
		Kind: models.VolumetricImage,
	}

	if p.params.Flags.LinearizeSinusoid {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log.Debug("Converting scan lines from sinusoidal to linear spacing")
		correction.ReverseOddRows(vol, p.params.NumCores)
		correction.Linearize(vol, p.params.NumCores)
	}

	if p.params.Flags.AlignScanPasses {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		aligned, est, err := correction.NewAligner(p.params.NumCores).Align(vol)
		if err != nil {
			return nil, fmt.Errorf("failed to align scan passes: %w", err)
		}
		vol = aligned
		layer.Shift = &est
		log.WithFields(logrus.Fields{
			"dy":         est.Dy,
			"dx":         est.Dx,
			"rounded_dx": est.RoundedDx,
			"error":      est.Error,
			"phase_diff": est.PhaseDiff,
		}).Info("Aligned scan passes")
	}

	if vol, err = codec.Reorient(vol); err != nil {
		return nil, err
	}
	layer.Data = vol
	summary := Summarize(vol)
	log.WithFields(logrus.Fields{
		"name":     layer.Name,
		"shape":    vol.Shape,
		"min":      summary.Min,
		"max":      summary.Max,
		"mean":     summary.Mean,
		"std":      summary.StdDev,
		"duration": time.Since(start).String(),
	}).Info("Volume decoded")

	return layer, nil
}

// EncodeVolume writes vol to path. The volume is validated before anything
// is written. When no sidecar exists for path one is synthesized from the
// volume's own dimensions. It returns the written path.
func (p *Processor) EncodeVolume(ctx context.Context, path string, vol *models.Volume) (string, error) {
	log := p.logger.WithField("path", path)

	if err := codec.Validate(vol); err != nil {
		return "", err
	}

	sc, err := p.resolver.Lookup(path)
	if err != nil {
		return "", fmt.Errorf("failed to check sidecar: %w", err)
	}

	if sc.Exists && (sc.Height != vol.Cols() || sc.Width != vol.Rows() || (sc.FrameCount > 0 && sc.FrameCount != vol.Frames())) {
		log.WithFields(logrus.Fields{
			"sidecar": sc.Path,
			"shape":   vol.Shape,
		}).Warn("Existing sidecar does not match the volume being written")
	}

	if err := codec.Encode(ctx, vol, path); err != nil {
		return "", fmt.Errorf("failed to encode volume: %w", err)
	}

	// only a written data file gets a sidecar
	if !sc.Exists {
		created, err := p.resolver.CreateSidecar(path, vol)
		if err != nil {
			return "", fmt.Errorf("failed to create sidecar: %w", err)
		}
		log.WithFields(logrus.Fields{
			"sidecar": created.Path,
			"height":  created.Height,
			"width":   created.Width,
			"frames":  created.FrameCount,
		}).Info("Created sidecar")
	}

	log.WithField("shape", vol.Shape).Info("Volume written")
	return path, nil
}

// IsRecoverable reports whether err can be resolved by the caller supplying
// more information, such as dimension hints for a file without sidecar.
func IsRecoverable(err error) bool {
	return errors.Is(err, models.ErrMetadataMissing)
}
