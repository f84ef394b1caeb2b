package reservation

import "errors"

var (
	// ErrValidation covers missing or malformed user input.
	ErrValidation = errors.New("validation error")
	// ErrNotFound is returned when the referenced reservation does not exist.
	ErrNotFound = errors.New("reservation not found")
	// ErrSlotConflict means the target bucket is closed or already at
	// capacity; callers should offer alternative slots.
	ErrSlotConflict = errors.New("slot not available")
	// ErrCancelled rejects edits to a cancelled reservation.
	ErrCancelled = errors.New("reservation is cancelled")
)
