package schedule

import "errors"

// Schedule errors. Validation failures leave the model untouched;
// ErrStoreUnavailable means the in-memory change stands but was not saved.
var (
	ErrDuplicateSlot    = errors.New("slot already exists")
	ErrSlotNotFound     = errors.New("slot not found")
	ErrEmptyName        = errors.New("slot name cannot be empty")
	ErrOutOfRange       = errors.New("slot cannot move in that direction")
	ErrStoreUnavailable = errors.New("schedule store unavailable")
	ErrInvalidField     = errors.New("invalid cell field")
	ErrInvalidWeekday   = errors.New("invalid weekday")
)

// blankNameError is returned by AddSlot for an empty or whitespace-only
// name. It matches both ErrEmptyName and ErrDuplicateSlot.
type blankNameError struct{}

func (blankNameError) Error() string { return ErrEmptyName.Error() }

func (blankNameError) Is(target error) bool {
	return target == ErrEmptyName || target == ErrDuplicateSlot
}
