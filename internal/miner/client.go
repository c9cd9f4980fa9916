package miner

import (
	"context"

	"github.com/nerrad567/minergate/internal/telemetry"
)

// DeviceClient is a connected handle to one mining device.
//
// Implementations own their transport and timeouts. Every method honours
// ctx cancellation.
type DeviceClient interface {
	// Host returns the address the client talks to.
	Host() string

	// Telemetry returns a finalised snapshot of the device.
	Telemetry(ctx context.Context) (*telemetry.Record, error)

	// CheckLight reports whether the fault light is currently on.
	CheckLight(ctx context.Context) (bool, error)

	// ActivateLight turns the light on and reports whether the device
	// accepted the command.
	ActivateLight(ctx context.Context) (bool, error)

	// DeactivateLight turns the light off and reports whether the device
	// accepted the command.
	DeactivateLight(ctx context.Context) (bool, error)

	Errors(ctx context.Context) ([]string, error)
	Hostname(ctx context.Context) (string, error)
	Model(ctx context.Context) (string, error)
}

// Factory resolves a host address to a DeviceClient.
//
// Connect fails (wrapping ErrNoDevice where the cause is known) when no
// device answers at host.
type Factory interface {
	Connect(ctx context.Context, host string) (DeviceClient, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(ctx context.Context, host string) (DeviceClient, error)

// Connect calls f.
func (f FactoryFunc) Connect(ctx context.Context, host string) (DeviceClient, error) {
	return f(ctx, host)
}
