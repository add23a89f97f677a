package camera

import "errors"

var (
	// ErrClosed is returned by operations on a shut-down session.
	ErrClosed = errors.New("session closed")

	// ErrBroken marks a session whose device state could not be restored
	// after a failed transition; it must be reinitialized before use.
	ErrBroken = errors.New("session in unrecoverable state, reinitialization required")

	// ErrNoPhoto is returned when the capture produced no output file.
	ErrNoPhoto = errors.New("photo file was not produced")
)
