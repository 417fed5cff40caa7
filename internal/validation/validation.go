// Package validation checks cell colors and looks for problems in a
// schedule that the model itself allows, such as overlapping time slots or
// unreadable color pairs.
package validation

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/julianstephens/weekplan/internal/models"
)

// MinContrastRatio is the lowest text/background contrast reported as
// readable.
const MinContrastRatio = 3.0

var ErrInvalidColor = errors.New("invalid color")

// ParseColor accepts #rgb or #rrggbb, with or without the leading #, and
// returns the lowercase #rrggbb form.
func ParseColor(s string) (string, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	c, err := colorful.Hex("#" + hex)
	if err != nil || len(hex) != 6 {
		return "", fmt.Errorf("%w %q: expected a hex color such as #1e1e1e", ErrInvalidColor, s)
	}
	return c.Hex(), nil
}

// ContrastRatio returns the WCAG contrast ratio of two colors, from 1 to 21.
func ContrastRatio(fg, bg string) (float64, error) {
	a, err := colorful.Hex(normalize(fg))
	if err != nil {
		return 0, fmt.Errorf("%w %q", ErrInvalidColor, fg)
	}
	b, err := colorful.Hex(normalize(bg))
	if err != nil {
		return 0, fmt.Errorf("%w %q", ErrInvalidColor, bg)
	}
	l1, l2 := luminance(a), luminance(b)
	if l1 < l2 {
		l1, l2 = l2, l1
	}
	return (l1 + 0.05) / (l2 + 0.05), nil
}

func normalize(s string) string {
	if c, err := ParseColor(s); err == nil {
		return c
	}
	return s
}

func luminance(c colorful.Color) float64 {
	r, g, b := c.LinearRgb()
	return 0.2126*r + 0.7152*g + 0.0722*b
}

var timeRangePattern = regexp.MustCompile(`^\s*(\d{1,2}):(\d{2})\s*-\s*(\d{1,2}):(\d{2})\s*$`)

// ParseTimeRange reads slot names of the form "HH:MM - HH:MM" and returns
// the start and end as minutes after midnight.
func ParseTimeRange(name string) (start, end int, ok bool) {
	m := timeRangePattern.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, false
	}
	toMinutes := func(h, mm string) (int, bool) {
		hour, _ := strconv.Atoi(h)
		minute, _ := strconv.Atoi(mm)
		if hour > 24 || minute > 59 || (hour == 24 && minute != 0) {
			return 0, false
		}
		return hour*60 + minute, true
	}
	start, ok1 := toMinutes(m[1], m[2])
	end, ok2 := toMinutes(m[3], m[4])
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	return start, end, true
}

// ConflictType identifies a kind of problem.
type ConflictType string

const (
	ConflictInvalidColor     ConflictType = "invalid_color"
	ConflictLowContrast      ConflictType = "low_contrast"
	ConflictInvalidTimeRange ConflictType = "invalid_time_range"
	ConflictOverlappingSlots ConflictType = "overlapping_slots"
	ConflictSlotsOutOfOrder  ConflictType = "slots_out_of_order"
)

// Conflict is one detected problem.
type Conflict struct {
	Type        ConflictType
	Description string
	Slots       []string
	Day         string
}

// Result holds every conflict found.
type Result struct {
	Conflicts []Conflict
}

func (r *Result) HasConflicts() bool {
	return len(r.Conflicts) > 0
}

func (r *Result) add(c Conflict) {
	r.Conflicts = append(r.Conflicts, c)
}

// FormatReport returns a human-readable list of the conflicts.
func (r *Result) FormatReport() string {
	if !r.HasConflicts() {
		return "No problems detected."
	}
	var b strings.Builder
	b.WriteString("Problems detected:\n")
	for _, c := range r.Conflicts {
		fmt.Fprintf(&b, "- %s\n", c.Description)
	}
	return b.String()
}

type timedSlot struct {
	name       string
	start, end int
}

// ValidateDocument checks colors on every cell and time ranges on slots
// named like "09:00 - 10:00". Slots with other names are not compared.
func ValidateDocument(doc models.Document) Result {
	result := Result{Conflicts: []Conflict{}}

	var timed []timedSlot
	for _, slot := range doc.Slots {
		for _, day := range models.Weekdays {
			checkCell(&result, slot.Name, day, slot.Cells[day])
		}

		start, end, ok := ParseTimeRange(slot.Name)
		if !ok {
			continue
		}
		if end <= start {
			result.add(Conflict{
				Type:        ConflictInvalidTimeRange,
				Description: fmt.Sprintf("Slot %q ends before it starts", slot.Name),
				Slots:       []string{slot.Name},
			})
			continue
		}
		timed = append(timed, timedSlot{name: slot.Name, start: start, end: end})
	}

	for i := 1; i < len(timed); i++ {
		if timed[i].start < timed[i-1].start {
			result.add(Conflict{
				Type:        ConflictSlotsOutOfOrder,
				Description: fmt.Sprintf("Slot %q is listed after %q but starts earlier", timed[i].name, timed[i-1].name),
				Slots:       []string{timed[i-1].name, timed[i].name},
			})
		}
	}
	for i := 0; i < len(timed); i++ {
		for j := i + 1; j < len(timed); j++ {
			a, b := timed[i], timed[j]
			if a.start < b.end && b.start < a.end {
				result.add(Conflict{
					Type:        ConflictOverlappingSlots,
					Description: fmt.Sprintf("Slots %q and %q overlap", a.name, b.name),
					Slots:       []string{a.name, b.name},
				})
			}
		}
	}
	return result
}

func checkCell(result *Result, slot string, day models.Weekday, cell models.Cell) {
	bg, bgErr := ParseColor(cell.Background)
	fg, fgErr := ParseColor(cell.Foreground)
	for _, bad := range []struct {
		field string
		value string
		err   error
	}{{"background", cell.Background, bgErr}, {"foreground", cell.Foreground, fgErr}} {
		if bad.err != nil {
			result.add(Conflict{
				Type:        ConflictInvalidColor,
				Description: fmt.Sprintf("%s %s: %s color %q is not a hex color", slot, day, bad.field, bad.value),
				Slots:       []string{slot},
				Day:         day.String(),
			})
		}
	}
	if bgErr != nil || fgErr != nil || strings.TrimSpace(cell.Text) == "" {
		return
	}

	ratio, err := ContrastRatio(fg, bg)
	if err == nil && ratio < MinContrastRatio {
		result.add(Conflict{
			Type:        ConflictLowContrast,
			Description: fmt.Sprintf("%s %s: text is hard to read (contrast %.1f:1)", slot, day, math.Floor(ratio*10)/10),
			Slots:       []string{slot},
			Day:         day.String(),
		})
	}
}
