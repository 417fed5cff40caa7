package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/julianstephens/weekplan/internal/constants"
)

// DaysPerWeek is the fixed number of weekday columns in a schedule.
const DaysPerWeek = 7

// Weekday is a schedule column. Monday is the first day of the week.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// Weekdays lists every weekday in display order.
var Weekdays = [DaysPerWeek]Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var weekdayNames = [DaysPerWeek]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// Valid reports whether d is one of the seven weekdays.
func (d Weekday) Valid() bool {
	return d >= Monday && d <= Sunday
}

// ParseWeekday accepts full or three-letter weekday names, case-insensitive.
func ParseWeekday(s string) (Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range weekdayNames {
		lower := strings.ToLower(name)
		if s == lower || s == lower[:3] {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("invalid weekday: %q", s)
}

// WeekdayNames returns the weekday labels in display order.
func WeekdayNames() []string {
	names := make([]string, DaysPerWeek)
	copy(names, weekdayNames[:])
	return names
}

// Cell is the content of one (slot, weekday) position.
type Cell struct {
	Text       string `json:"text"`
	Background string `json:"bg"`
	Foreground string `json:"fg"`
}

// DefaultCell returns an empty cell with the default colors.
func DefaultCell() Cell {
	return Cell{
		Background: constants.DefaultBackground,
		Foreground: constants.DefaultForeground,
	}
}

// Slot is a named schedule row. ID is stable across renames.
type Slot struct {
	ID    string
	Name  string
	Cells [DaysPerWeek]Cell
}

// NewSlot creates a slot with a fresh ID and seven default cells.
func NewSlot(name string) Slot {
	s := Slot{
		ID:   uuid.New().String(),
		Name: name,
	}
	for i := range s.Cells {
		s.Cells[i] = DefaultCell()
	}
	return s
}

// Cell returns the cell for the given weekday.
func (s Slot) Cell(day Weekday) Cell {
	return s.Cells[day]
}
