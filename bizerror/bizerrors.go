package bizerror

import "errors"

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")

	// ErrInvalidState rejects an operation which is not legal in the
	// entity's current lifecycle state, e.g. accepting a bid twice.
	ErrInvalidState = errors.New("invalid state")

	// ErrConflict reports a concurrent mutation detected by a conditional
	// write: the expected prior state was gone when the update ran.
	ErrConflict = errors.New("conflict")

	ErrInvalidPassword = errors.New("invalid password")
)
