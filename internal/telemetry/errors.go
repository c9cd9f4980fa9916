package telemetry

import (
	"errors"
	"fmt"
)

// ErrUnknownField is matched by every UnknownFieldError.
var ErrUnknownField = errors.New("telemetry: unknown field")

// UnknownFieldError reports a selector name outside the schema.
type UnknownFieldError struct {
	Name string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("telemetry: unknown field %q", e.Name)
}

// Is lets errors.Is match ErrUnknownField.
func (e *UnknownFieldError) Is(target error) bool {
	return target == ErrUnknownField
}
