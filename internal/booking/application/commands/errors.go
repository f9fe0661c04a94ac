package commands

import "errors"

var (
	// ErrNotAllowed is returned when the acting caller is neither party
	// entitled to the operation.
	ErrNotAllowed = errors.New("caller is not allowed to perform this operation")

	// ErrMissingStart is returned when a create request has no start time.
	ErrMissingStart = errors.New("start time is required")
)
