package schedule

import (
	"fmt"
	"strings"

	"github.com/julianstephens/weekplan/internal/models"
)

// Field selects one attribute of a cell.
type Field int

const (
	FieldText Field = iota
	FieldBackground
	FieldForeground
)

func (f Field) String() string {
	switch f {
	case FieldText:
		return "text"
	case FieldBackground:
		return "bg"
	case FieldForeground:
		return "fg"
	default:
		return fmt.Sprintf("Field(%d)", int(f))
	}
}

// ParseField accepts text, bg/background and fg/foreground.
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text":
		return FieldText, nil
	case "bg", "background":
		return FieldBackground, nil
	case "fg", "foreground":
		return FieldForeground, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidField, s)
}

// Direction is the way MoveSlot shifts a slot.
type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Up {
		return "up"
	}
	return "down"
}

// ParseDirection accepts "up" or "down".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	}
	return 0, fmt.Errorf("invalid direction %q (expected up or down)", s)
}

// EventKind identifies what changed.
type EventKind string

const (
	EventSlotAdded   EventKind = "slot_added"
	EventSlotRemoved EventKind = "slot_removed"
	EventSlotRenamed EventKind = "slot_renamed"
	EventSlotMoved   EventKind = "slot_moved"
	EventCellChanged EventKind = "cell_changed"
	EventSaved       EventKind = "saved"
)

// Event describes a change applied to the model. Only the fields relevant
// to Kind are set.
type Event struct {
	Kind    EventKind
	SlotID  string
	Slot    string
	OldName string
	Index   int
	Day     models.Weekday
	Field   Field
}

// Listener is called synchronously after each change.
type Listener func(Event)
