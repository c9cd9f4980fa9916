package fleetmqtt

import "errors"

var (
	// ErrBadCommand is returned for a light command that cannot be parsed.
	ErrBadCommand = errors.New("fleetmqtt: bad light command")

	// ErrNotStarted is returned when commands arrive before Start.
	ErrNotStarted = errors.New("fleetmqtt: bridge not started")

	// ErrStopped is returned when commands arrive during shutdown.
	ErrStopped = errors.New("fleetmqtt: bridge stopped")
)
