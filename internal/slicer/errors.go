package slicer

import "errors"

// Sentinel errors for slice jobs.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrMissingInput indicates the source dataset does not exist.
	// The job is skipped; it is not a failure.
	ErrMissingInput = errors.New("missing input")

	// ErrMalformedInput indicates the source exists but could not be read or
	// parsed as a dataset. No destination is written.
	ErrMalformedInput = errors.New("malformed input")

	// ErrWriteFailure indicates the destination could not be written.
	// The previous destination content, if any, is left untouched.
	ErrWriteFailure = errors.New("write failure")

	// ErrJobsFailed is returned by BatchResult.Err when at least one job failed.
	ErrJobsFailed = errors.New("slice jobs failed")
)
