package errdefs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument marks malformed inputs: mismatched lengths, empty delimiters,
	// wrong shapes, unsupported experiment kinds.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidState marks operations that are not valid for the object's current state.
	ErrInvalidState = errors.New("invalid state")
	// ErrNotAttached is returned when a generator run has no identity because it is
	// attached to neither a trial nor a generation step.
	ErrNotAttached = fmt.Errorf("%w: generator run is not attached to a trial or generation step", ErrInvalidState)
)

func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// InvalidArgumentf returns an error wrapping ErrInvalidArgument.
func InvalidArgumentf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// InvalidStatef returns an error wrapping ErrInvalidState.
func InvalidStatef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}
