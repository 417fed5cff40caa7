package view

import (
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"github.com/julianstephens/weekplan/internal/models"
	"github.com/julianstephens/weekplan/internal/schedule"
)

func sampleRows() []schedule.Row {
	var first, second schedule.Row
	first.Slot = "09:00 - 10:00"
	second.Slot = "10:00 - 11:00"
	for i := range first.Cells {
		first.Cells[i] = models.DefaultCell()
		second.Cells[i] = models.DefaultCell()
	}
	first.Cells[models.Monday].Text = "Standup"
	second.Cells[models.Sunday] = models.Cell{Text: "Brunch", Background: "not-a-color", Foreground: "#000"}
	return []schedule.Row{first, second}
}

func TestRenderGridContainsLabelsAndText(t *testing.T) {
	out := RenderGrid(slices.Values(sampleRows()), Options{})

	for _, want := range append(Header(), "09:00 - 10:00", "10:00 - 11:00", "Standup", "Brunch") {
		assert.Contains(t, out, want)
	}

	lines := strings.Split(out, "\n")
	assert.Less(t, strings.Index(out, "09:00 - 10:00"), strings.Index(out, "10:00 - 11:00"), "rows keep slot order")
	assert.Greater(t, len(lines), 4)
}

func TestRenderGridEmpty(t *testing.T) {
	out := RenderGrid(slices.Values([]schedule.Row(nil)), Options{})
	assert.Contains(t, out, "Time")
	assert.Contains(t, out, "Sunday")
}

func TestRenderGridTruncatesLongText(t *testing.T) {
	rows := sampleRows()
	rows[0].Cells[models.Friday].Text = "An extremely long appointment description"

	out := RenderGrid(slices.Values(rows), Options{CellWidth: 8})
	assert.Contains(t, out, "An extr…")
	assert.NotContains(t, out, "appointment")
}

func TestRenderGridWithCursor(t *testing.T) {
	out := RenderGrid(slices.Values(sampleRows()), Options{Cursor: &Cursor{Row: 1, Col: 7}})
	assert.Contains(t, out, "Brunch")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 5))
	assert.Equal(t, "hel…", Truncate("hello", 4))
	assert.Equal(t, "…", Truncate("hello", 1))
	assert.Equal(t, "héll…", Truncate("héllo wörld", 5))
	assert.Equal(t, "hello", Truncate("hello", 0))
}

func TestCellStyleFallsBackOnInvalidColors(t *testing.T) {
	style := CellStyle(models.Cell{Background: "nope", Foreground: "#FFF"})
	assert.Equal(t, "#1e1e1e", string(style.GetBackground().(lipgloss.Color)))
	assert.Equal(t, "#ffffff", string(style.GetForeground().(lipgloss.Color)))
}
