package fleet

import "errors"

// Per-host failure kinds. A scan never fails as a whole; each host that did
// not produce a record carries one of these.
var (
	// ErrUnreachable is returned when no device answered at the host.
	ErrUnreachable = errors.New("fleet: host unreachable")

	// ErrQueryFailed is returned when a device answered but telemetry
	// retrieval failed.
	ErrQueryFailed = errors.New("fleet: query failed")

	// ErrCancelled is returned when the request was cancelled before the
	// host finished.
	ErrCancelled = errors.New("fleet: cancelled")
)

// Reason returns a short machine-readable label for a per-host error.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	case errors.Is(err, ErrUnreachable):
		return "unreachable"
	case errors.Is(err, ErrQueryFailed):
		return "query_failed"
	default:
		return "error"
	}
}
