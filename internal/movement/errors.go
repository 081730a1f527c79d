package movement

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is matched by every EmptyInputError.
var ErrEmptyInput = errors.New("no samples")

// EmptyInputError is returned when an entity has no samples to summarise.
type EmptyInputError struct {
	EntityID string
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("no samples for entity %q", e.EntityID)
}

// Is lets errors.Is(err, ErrEmptyInput) match.
func (e *EmptyInputError) Is(target error) bool {
	return target == ErrEmptyInput
}
