package codec

import (
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/exp/constraints"
)

// readSamples fills dst with little-endian samples of type T read from r.
// scratch must have len(dst) elements.
func readSamples[T constraints.Float](r io.Reader, scratch []T, dst []float64) error {
	if err := binary.Read(r, binary.LittleEndian, scratch); err != nil {
		return err
	}
	for i, v := range scratch {
		dst[i] = float64(v)
	}
	return nil
}

// writeSamples converts src to T and writes it little-endian to w.
func writeSamples[T constraints.Float](w io.Writer, scratch []T, src []float64) error {
	for i, v := range src {
		scratch[i] = T(v)
	}
	return binary.Write(w, binary.LittleEndian, scratch)
}

// frameIO reads and writes whole frames at one element width.
type frameIO struct {
	read  func(r io.Reader, dst []float64) error
	write func(w io.Writer, src []float64) error
}

func newFrameIO(elementWidth, frameSize int) (frameIO, error) {
	switch elementWidth {
	case 4:
		scratch := make([]float32, frameSize)
		return frameIO{
			read:  func(r io.Reader, dst []float64) error { return readSamples(r, scratch, dst) },
			write: func(w io.Writer, src []float64) error { return writeSamples(w, scratch, src) },
		}, nil
	case 8:
		scratch := make([]float64, frameSize)
		return frameIO{
			read:  func(r io.Reader, dst []float64) error { return readSamples(r, scratch, dst) },
			write: func(w io.Writer, src []float64) error { return writeSamples(w, scratch, src) },
		}, nil
	default:
		return frameIO{}, fmt.Errorf("unsupported element width %d", elementWidth)
	}
}
