package accidents

import "errors"

var (
	// ErrDataUnavailable means the source could not be read or lacks a
	// required column. It is fatal for a request.
	ErrDataUnavailable = errors.New("accident data unavailable")

	// ErrNoMatchingRecords means the filters matched zero rows. The report
	// returned alongside it is still usable.
	ErrNoMatchingRecords = errors.New("no data available for the selected filters")

	// ErrMissingOptionalField means an optional column is absent; the
	// corresponding summary is Empty.
	ErrMissingOptionalField = errors.New("optional field missing from dataset")
)
