package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	// ErrDuplicateID is returned when a reservation code is already taken.
	ErrDuplicateID = errors.New("reservation code already exists")

	// ErrStatusMismatch is returned by conditional status updates when the
	// booking is no longer in the expected state.
	ErrStatusMismatch = errors.New("booking is not in the expected status")
)
