// Package dataset holds the immutable in-memory model of a loaded
// calibration report plus the per-variable color assignment derived from it.
package dataset

import "errors"

// Sentinel error set for the whole tool. Callers match with errors.Is; call
// sites add context with fmt.Errorf("...: %w", Err...) so messages keep the
// offending row/column or path while the category stays testable.
var (
	// ErrMalformedInput covers structurally invalid reports: missing
	// Iteration column, ragged rows, non-numeric cells in numeric columns.
	ErrMalformedInput = errors.New("calibration: malformed input")

	// ErrInvalidArgument covers caller mistakes such as a non-positive
	// variable cap. An empty filter result is not an error.
	ErrInvalidArgument = errors.New("calibration: invalid argument")

	// ErrEmptySelection is returned by exports when nothing is selected for
	// the requested pane. No file is written in that case.
	ErrEmptySelection = errors.New("calibration: empty selection")

	// ErrMissingResource covers absent input files and unwritable output
	// locations.
	ErrMissingResource = errors.New("calibration: missing resource")
)
