package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/weekplan/internal/constants"
	apperrors "github.com/julianstephens/weekplan/internal/errors"
	"github.com/julianstephens/weekplan/internal/logger"
	"github.com/julianstephens/weekplan/internal/schedule"
	"github.com/julianstephens/weekplan/internal/validation"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	}

	var cmd tea.Cmd
	switch m.state {
	case constants.StateEditCell:
		cmd = m.handleEditCellState(msg)
	case constants.StateAddSlot, constants.StateRenameSlot:
		cmd = m.handleSlotFormState(msg)
	case constants.StateConfirmDelete:
		cmd = m.handleConfirmDeleteState(msg)
	case constants.StateConfirmQuit:
		cmd = m.handleConfirmQuitState(msg)
	default:
		if msg, ok := msg.(tea.KeyMsg); ok {
			cmd = m.handleGridKeys(msg)
		}
	}
	return m, cmd
}

func (m *Model) handleGridKeys(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.ForceQuit):
		m.quitting = true
		return tea.Quit
	case key.Matches(msg, m.keys.Quit):
		if m.sched.Dirty() {
			m.state = constants.StateConfirmQuit
			return nil
		}
		m.quitting = true
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.MoveUp):
		m.moveSlot(schedule.Up)
	case key.Matches(msg, m.keys.MoveDown):
		m.moveSlot(schedule.Down)
	case key.Matches(msg, m.keys.Up):
		m.cursor.Row--
		m.clampCursor()
	case key.Matches(msg, m.keys.Down):
		m.cursor.Row++
		m.clampCursor()
	case key.Matches(msg, m.keys.Left):
		m.cursor.Col--
		m.clampCursor()
	case key.Matches(msg, m.keys.Right):
		m.cursor.Col++
		m.clampCursor()
	case key.Matches(msg, m.keys.Save):
		m.setResult(m.sched.SaveAll(m.ctx), "Saved")
	case key.Matches(msg, m.keys.Add):
		m.slotForm = &SlotFormModel{}
		m.form = NewSlotForm(m.slotForm, "New slot")
		m.state = constants.StateAddSlot
		return m.form.Init()
	case key.Matches(msg, m.keys.Rename):
		return m.openRename()
	case key.Matches(msg, m.keys.Delete):
		if slot, ok := m.currentSlot(); ok {
			m.editingSlot = slot
			m.state = constants.StateConfirmDelete
		}
	case key.Matches(msg, m.keys.Edit):
		if m.cursor.Col == 0 {
			return m.openRename()
		}
		return m.openCellEditor()
	}
	return nil
}

func (m *Model) openRename() tea.Cmd {
	slot, ok := m.currentSlot()
	if !ok {
		return nil
	}
	m.editingSlot = slot
	m.slotForm = &SlotFormModel{Name: slot}
	m.form = NewSlotForm(m.slotForm, "Rename slot")
	m.state = constants.StateRenameSlot
	return m.form.Init()
}

func (m *Model) openCellEditor() tea.Cmd {
	slot, ok := m.currentSlot()
	if !ok {
		return nil
	}
	day, ok := m.currentDay()
	if !ok {
		return nil
	}
	cell, err := m.sched.Cell(slot, day)
	if err != nil {
		m.setResult(err, "")
		return nil
	}

	m.editingSlot = slot
	m.editingDay = day
	m.cellForm = &CellFormModel{Text: cell.Text, Background: cell.Background, Foreground: cell.Foreground}
	m.form = NewCellForm(m.cellForm, slot, day)
	m.state = constants.StateEditCell
	return m.form.Init()
}

// updateForm forwards msg to the active form. Esc aborts.
func (m *Model) updateForm(msg tea.Msg) (huh.FormState, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		return huh.StateAborted, nil
	}
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	return m.form.State, cmd
}

func (m *Model) closeForm() {
	m.form = nil
	m.cellForm = nil
	m.slotForm = nil
	m.state = constants.StateGrid
}

func (m *Model) handleEditCellState(msg tea.Msg) tea.Cmd {
	state, cmd := m.updateForm(msg)
	switch state {
	case huh.StateCompleted:
		m.submitCell()
		m.closeForm()
	case huh.StateAborted:
		m.closeForm()
	}
	return cmd
}

func (m *Model) handleSlotFormState(msg tea.Msg) tea.Cmd {
	state, cmd := m.updateForm(msg)
	switch state {
	case huh.StateCompleted:
		if m.state == constants.StateAddSlot {
			m.submitAdd()
		} else {
			m.submitRename()
		}
		m.closeForm()
	case huh.StateAborted:
		m.closeForm()
	}
	return cmd
}

func (m *Model) handleConfirmDeleteState(msg tea.Msg) tea.Cmd {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "y", "Y":
			err := m.sched.RemoveSlot(m.ctx, m.editingSlot)
			m.setResult(err, fmt.Sprintf("Deleted slot %q", m.editingSlot))
			m.clampCursor()
			m.editingSlot = ""
			m.state = constants.StateGrid
		case "n", "N", "esc":
			m.editingSlot = ""
			m.state = constants.StateGrid
		}
	}
	return nil
}

func (m *Model) handleConfirmQuitState(msg tea.Msg) tea.Cmd {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "s", "S":
			if err := m.sched.SaveAll(m.ctx); err != nil {
				m.setResult(err, "")
				m.state = constants.StateGrid
				return nil
			}
			m.quitting = true
			return tea.Quit
		case "y", "Y", "ctrl+c":
			logger.Warn("Quitting with unsaved changes", "schedule", m.sched.Name())
			m.quitting = true
			return tea.Quit
		case "n", "N", "esc":
			m.state = constants.StateGrid
		}
	}
	return nil
}

// submitCell applies the fields of the cell form that changed.
func (m *Model) submitCell() {
	fm := m.cellForm
	cell, err := m.sched.Cell(m.editingSlot, m.editingDay)
	if err != nil {
		m.setResult(err, "")
		return
	}
	bg, err := validation.ParseColor(fm.Background)
	if err != nil {
		m.setResult(err, "")
		return
	}
	fg, err := validation.ParseColor(fm.Foreground)
	if err != nil {
		m.setResult(err, "")
		return
	}

	changes := []struct {
		field schedule.Field
		old   string
		value string
	}{
		{schedule.FieldText, cell.Text, fm.Text},
		{schedule.FieldBackground, cell.Background, bg},
		{schedule.FieldForeground, cell.Foreground, fg},
	}
	changed := 0
	for _, c := range changes {
		if c.old == c.value {
			continue
		}
		if err := m.sched.SetCell(m.editingSlot, m.editingDay, c.field, c.value); err != nil {
			m.setResult(err, "")
			return
		}
		changed++
	}
	if changed == 0 {
		return
	}
	m.setResult(nil, fmt.Sprintf("Updated %s %s, press s to save", m.editingSlot, m.editingDay))
}

func (m *Model) submitAdd() {
	err := m.sched.AddSlot(m.ctx, m.slotForm.Name)
	if err == nil || errors.Is(err, schedule.ErrStoreUnavailable) {
		m.cursor.Row = m.sched.Len() - 1
		m.clampCursor()
	}
	m.setResult(err, fmt.Sprintf("Added slot %q", strings.TrimSpace(m.slotForm.Name)))
}

func (m *Model) submitRename() {
	err := m.sched.RenameSlot(m.ctx, m.editingSlot, m.slotForm.Name)
	m.setResult(err, fmt.Sprintf("Renamed slot %q", m.editingSlot))
	m.editingSlot = ""
}

func (m *Model) moveSlot(dir schedule.Direction) {
	slot, ok := m.currentSlot()
	if !ok {
		return
	}
	err := m.sched.MoveSlot(m.ctx, m.cursor.Row, dir)
	if err == nil || errors.Is(err, schedule.ErrStoreUnavailable) {
		if dir == schedule.Up {
			m.cursor.Row--
		} else {
			m.cursor.Row++
		}
		m.clampCursor()
	}
	m.setResult(err, fmt.Sprintf("Moved slot %q %s", slot, dir))
}

// setResult reports the outcome of an edit on the status line.
func (m *Model) setResult(err error, success string) {
	if err != nil {
		m.status = apperrors.Describe(err)
		m.statusIsError = true
	} else {
		m.status = success
		m.statusIsError = false
	}
	m.updateValidationStatus()
}
