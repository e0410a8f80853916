package models

import (
	"errors"
	"fmt"
)

var (
	// ErrMetadataMissing means no sidecar exists for a data file.
	ErrMetadataMissing = errors.New("metadata missing")

	// ErrMetadataInvalid means the sidecar exists but lacks valid dimensions.
	ErrMetadataInvalid = errors.New("metadata invalid")

	// ErrSizeMismatch means the data file length disagrees with its dimensions.
	ErrSizeMismatch = errors.New("size mismatch")

	// ErrDimension means a volume without exactly three axes was given.
	ErrDimension = errors.New("dimension error")

	// ErrUnsupportedFile means a path does not name a .prof data file.
	ErrUnsupportedFile = errors.New("unsupported file")

	// ErrIO wraps filesystem failures that are not otherwise classified.
	ErrIO = errors.New("io failure")
)

// SizeMismatchError reports the expected and actual byte length of a data file.
type SizeMismatchError struct {
	Path     string
	Expected int64
	Actual   int64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("size mismatch: %s is %d bytes, expected %d", e.Path, e.Actual, e.Expected)
}

// Is makes SizeMismatchError match ErrSizeMismatch.
func (e *SizeMismatchError) Is(target error) bool {
	return target == ErrSizeMismatch
}
