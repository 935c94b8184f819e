package store

import (
	"errors"
	"fmt"
)

// Store-level failures indicate programmer or data-consistency faults. They are
// never retried and always propagate to the caller.
var (
	// ErrDuplicate is returned when creating a story whose id already exists.
	ErrDuplicate = errors.New("story already exists")
	// ErrNotFound is returned when a story id has no record.
	ErrNotFound = errors.New("story not found")
	// ErrInvalidTransition is returned when a status update would violate the
	// lifecycle or the artifact invariant.
	ErrInvalidTransition = errors.New("invalid status transition")
)

func invalidTransition(id string, from, to Status, reason string) error {
	return fmt.Errorf("%w: story %s: %s -> %s: %s", ErrInvalidTransition, id, from, to, reason)
}
