package miner

import "errors"

// Sentinel errors for device operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNoDevice is returned by a Factory when nothing answers at the host.
	ErrNoDevice = errors.New("miner: no device at host")

	// ErrActivationFailed is returned when the device rejects a light-on command.
	ErrActivationFailed = errors.New("miner: light activation failed")

	// ErrDeactivationFailed is returned when the device rejects a light-off command.
	ErrDeactivationFailed = errors.New("miner: light deactivation failed")

	// ErrLightQuery is returned when the current light state cannot be read.
	ErrLightQuery = errors.New("miner: light state query failed")

	// ErrInvalidLightMode is returned by ParseLightMode for unknown modes.
	ErrInvalidLightMode = errors.New("miner: invalid light mode")
)
