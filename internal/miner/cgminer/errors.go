package cgminer

import "errors"

var (
	// ErrCommandFailed is returned when the device answers with an error status.
	ErrCommandFailed = errors.New("cgminer: command failed")

	// ErrBadResponse is returned when a reply cannot be decoded.
	ErrBadResponse = errors.New("cgminer: malformed response")

	// ErrUnsupported is returned when the device does not report a value.
	ErrUnsupported = errors.New("cgminer: not reported by device")
)
