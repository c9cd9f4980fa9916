package miner

import (
	"context"
	"fmt"
)

// LightMode is a requested fault-light operation.
type LightMode int

// Light modes.
const (
	LightStatus LightMode = iota
	LightOn
	LightOff
	LightToggle
)

// String returns the mode's wire name.
func (m LightMode) String() string {
	switch m {
	case LightStatus:
		return "status"
	case LightOn:
		return "on"
	case LightOff:
		return "off"
	case LightToggle:
		return "toggle"
	default:
		return fmt.Sprintf("LightMode(%d)", int(m))
	}
}

// ParseLightMode parses on, off, toggle or status.
func ParseLightMode(s string) (LightMode, error) {
	switch s {
	case "status":
		return LightStatus, nil
	case "on":
		return LightOn, nil
	case "off":
		return LightOff, nil
	case "toggle":
		return LightToggle, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidLightMode, s)
	}
}

// Mutates reports whether the mode may change device state.
func (m LightMode) Mutates() bool {
	return m != LightStatus
}

// SetLight runs one fault-light operation against client and returns the
// resulting light state.
//
// The current state is always read first. on and off fail with
// ErrActivationFailed/ErrDeactivationFailed when the device refuses the
// command. toggle never fails once the state is known: a refused command
// reports the unchanged state. A command's own success signal is trusted;
// the state is not re-read afterwards.
//
// Parameters:
//   - ctx: Bounds every device command
//   - client: Connected device
//   - mode: on, off, toggle or status
//
// Returns:
//   - bool: Light state after the operation
//   - error: ErrLightQuery, ErrActivationFailed, ErrDeactivationFailed or
//     ErrInvalidLightMode
func SetLight(ctx context.Context, client DeviceClient, mode LightMode) (bool, error) {
	current, err := client.CheckLight(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrLightQuery, client.Host(), err)
	}

	switch mode {
	case LightStatus:
		return current, nil

	case LightOn:
		if ok, err := client.ActivateLight(ctx); err != nil || !ok {
			return current, lightFailure(ErrActivationFailed, client.Host(), err)
		}
		return true, nil

	case LightOff:
		if ok, err := client.DeactivateLight(ctx); err != nil || !ok {
			return current, lightFailure(ErrDeactivationFailed, client.Host(), err)
		}
		return false, nil

	case LightToggle:
		var ok bool
		if current {
			ok, err = client.DeactivateLight(ctx)
		} else {
			ok, err = client.ActivateLight(ctx)
		}
		if err != nil || !ok {
			return current, nil
		}
		return !current, nil

	default:
		return current, fmt.Errorf("%w: %d", ErrInvalidLightMode, int(mode))
	}
}

func lightFailure(sentinel error, host string, cause error) error {
	if cause != nil {
		return fmt.Errorf("%w: %s: %w", sentinel, host, cause)
	}
	return fmt.Errorf("%w: %s", sentinel, host)
}
