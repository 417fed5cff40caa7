// Package view renders a schedule as a colored terminal grid.
package view

import (
	"iter"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/julianstephens/weekplan/internal/constants"
	"github.com/julianstephens/weekplan/internal/models"
	"github.com/julianstephens/weekplan/internal/schedule"
	"github.com/julianstephens/weekplan/internal/validation"
)

const (
	DefaultCellWidth = 14
	labelHeader      = "Time"
	ellipsis         = "…"
)

// Cursor marks the selected cell. Col 0 is the slot label column and
// columns 1 to 7 are Monday to Sunday.
type Cursor struct {
	Row int
	Col int
}

type Options struct {
	// CellWidth caps the width of day columns. Zero means DefaultCellWidth.
	CellWidth int
	// Cursor highlights one cell when set.
	Cursor *Cursor
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)

	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

// Header returns the column titles.
func Header() []string {
	return append([]string{labelHeader}, models.WeekdayNames()...)
}

// RenderGrid draws one row per slot with each day cell in its own colors.
func RenderGrid(rows iter.Seq[schedule.Row], opts Options) string {
	width := opts.CellWidth
	if width <= 0 {
		width = DefaultCellWidth
	}

	var cells [][]models.Cell
	var data [][]string
	for row := range rows {
		record := make([]string, 0, models.DaysPerWeek+1)
		record = append(record, row.Slot)
		for _, c := range row.Cells {
			record = append(record, Truncate(c.Text, width))
		}
		data = append(data, record)
		cells = append(cells, row.Cells[:])
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		BorderRow(true).
		Headers(Header()...).
		Rows(data...).
		StyleFunc(func(r, c int) lipgloss.Style {
			var style lipgloss.Style
			switch {
			case r == table.HeaderRow:
				style = headerStyle
			case c == 0:
				style = labelStyle
			default:
				style = CellStyle(cells[r][c-1]).Width(width + 2)
			}
			if opts.Cursor != nil && r == opts.Cursor.Row && c == opts.Cursor.Col {
				style = style.Reverse(true).Bold(true)
			}
			return style
		})
	return t.String()
}

// CellStyle applies a cell's colors, falling back to the defaults for
// values that are not valid hex colors.
func CellStyle(c models.Cell) lipgloss.Style {
	bg, err := validation.ParseColor(c.Background)
	if err != nil {
		bg = constants.DefaultBackground
	}
	fg, err := validation.ParseColor(c.Foreground)
	if err != nil {
		fg = constants.DefaultForeground
	}
	return lipgloss.NewStyle().
		Background(lipgloss.Color(bg)).
		Foreground(lipgloss.Color(fg)).
		Padding(0, 1)
}

// Truncate shortens s to at most width runes, ending in an ellipsis when
// text was cut.
func Truncate(s string, width int) string {
	runes := []rune(s)
	if width <= 0 || len(runes) <= width {
		return s
	}
	if width == 1 {
		return ellipsis
	}
	return string(runes[:width-1]) + ellipsis
}
