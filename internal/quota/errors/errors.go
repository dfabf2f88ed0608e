package errors

import "errors"

var (
	ErrNotFound = errors.New("quota day not found")

	// ErrVersionConflict is returned by conditional writes when another
	// writer advanced the day's version between read and update.
	ErrVersionConflict = errors.New("quota day version conflict")

	ErrInvalidDate = errors.New("invalid quota date format")
)
