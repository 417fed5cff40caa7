package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/weekplan/internal/constants"
	"github.com/julianstephens/weekplan/internal/view"
)

const minCellWidth = 6

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case constants.StateEditCell, constants.StateAddSlot, constants.StateRenameSlot:
		content = docStyle.Render(m.form.View())
	case constants.StateConfirmDelete:
		content = m.viewConfirmDelete()
	case constants.StateConfirmQuit:
		content = m.viewConfirmQuit()
	default:
		content = docStyle.Render(m.viewGrid())
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewHeader(),
		m.viewBanner(),
		content,
		m.viewStatus(),
		m.help.View(m),
	)
}

func (m Model) viewHeader() string {
	title := titleStyle.Render(constants.AppName + " · " + m.sched.Name())
	if m.sched.Dirty() {
		return lipgloss.JoinHorizontal(lipgloss.Top, title, dirtyStyle.Render("● unsaved changes"))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, title, cleanStyle.Render("saved"))
}

func (m Model) viewBanner() string {
	var lines []string
	if m.sessionWarning != "" {
		lines = append(lines, warningStyle.Render(m.sessionWarning))
	}
	if m.validationWarning != "" {
		lines = append(lines, warningStyle.Render(m.validationWarning))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) viewStatus() string {
	if m.status == "" {
		return ""
	}
	if m.statusIsError {
		return dangerStyle.Render(m.status)
	}
	return statusStyle.Render(m.status)
}

// cellWidth fits the grid into the terminal width when it is known.
func (m Model) cellWidth() int {
	if m.width <= 0 {
		return view.DefaultCellWidth
	}
	// 8 columns, each with 2 padding and 1 border, plus docStyle padding.
	w := (m.width-4)/8 - 3
	if w > view.DefaultCellWidth {
		return view.DefaultCellWidth
	}
	if w < minCellWidth {
		return minCellWidth
	}
	return w
}

func (m Model) viewGrid() string {
	opts := view.Options{CellWidth: m.cellWidth()}
	if m.sched.Len() == 0 {
		return view.RenderGrid(m.sched.Table(), opts) + "\n\nNo slots. Press a to add one."
	}
	cursor := m.cursor
	opts.Cursor = &cursor
	return view.RenderGrid(m.sched.Table(), opts)
}

func (m Model) viewConfirmDelete() string {
	return lipgloss.Place(m.width, max(m.height-6, 5),
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center,
			dangerStyle.Render(fmt.Sprintf("Delete slot %q and all of its cells?", m.editingSlot)),
			"",
			"[y] Yes",
			"[n] No",
		),
	)
}

func (m Model) viewConfirmQuit() string {
	return lipgloss.Place(m.width, max(m.height-6, 5),
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center,
			warningStyle.Render("You have unsaved changes."),
			"",
			"[s] Save and quit",
			"[y] Quit without saving",
			"[n] Cancel",
		),
	)
}
