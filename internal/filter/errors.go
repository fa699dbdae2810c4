package filter

import "errors"

var (
	// ErrNilReader is returned when a filter list is loaded from a nil reader.
	ErrNilReader = errors.New("filter list reader is nil")

	// ErrNilWriter is returned when a filter list is saved to a nil writer.
	ErrNilWriter = errors.New("filter list writer is nil")

	// ErrNoStatusChecker is returned by the refresh routines when the
	// Filter was built without a way to request thread URLs.
	ErrNoStatusChecker = errors.New("filter has no status checker")
)
