package swath

import "errors"

var (
	// ErrMissingInput is returned when a required input dataset is absent.
	ErrMissingInput = errors.New("missing input")
	// ErrDegenerateGeometry is returned for empty axes or zero-area windows.
	ErrDegenerateGeometry = errors.New("degenerate geometry")
	// ErrInconsistentKey is returned when two tiles disagree on the measure
	// of the same swath.
	ErrInconsistentKey = errors.New("inconsistent swath key")
	// ErrIOConflict is returned when an output cannot be written.
	ErrIOConflict = errors.New("output conflict")
)
