package domain

import "errors"

var (
	// ErrTaskNotFound is returned when a task id does not resolve. Malformed
	// ids map here as well, never to an internal error.
	ErrTaskNotFound = errors.New("task not found")

	// ErrUserNotFound is returned when a user id does not resolve.
	ErrUserNotFound = errors.New("user not found")
)
