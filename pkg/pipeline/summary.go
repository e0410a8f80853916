package pipeline

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"octprof/internal/models"
)

// Summary holds intensity statistics of a volume
type Summary struct {
	Min, Max     float64
	Mean, StdDev float64
}

// Summarize computes intensity statistics over all samples of vol
func Summarize(vol *models.Volume) Summary {
	if len(vol.Data) == 0 {
		return Summary{}
	}
	s := Summary{
		Min:  floats.Min(vol.Data),
		Max:  floats.Max(vol.Data),
		Mean: stat.Mean(vol.Data, nil),
	}
	if len(vol.Data) > 1 {
		s.StdDev = stat.StdDev(vol.Data, nil)
	}
	return s
}
