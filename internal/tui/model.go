// Package tui is the interactive weekly grid editor.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/weekplan/internal/constants"
	"github.com/julianstephens/weekplan/internal/models"
	"github.com/julianstephens/weekplan/internal/schedule"
	"github.com/julianstephens/weekplan/internal/sessions"
	"github.com/julianstephens/weekplan/internal/validation"
	"github.com/julianstephens/weekplan/internal/view"
)

type Model struct {
	ctx               context.Context
	sched             *schedule.Model
	state             constants.SessionState
	keys              KeyMap
	help              help.Model
	cursor            view.Cursor
	form              *huh.Form
	cellForm          *CellFormModel
	slotForm          *SlotFormModel
	editingSlot       string
	editingDay        models.Weekday
	status            string
	statusIsError     bool
	sessionWarning    string
	validationWarning string
	quitting          bool
	width             int
	height            int
}

// NewModel builds an editor over sched. others lists concurrent sessions
// on the same store; when present the editor warns that saves may clash.
func NewModel(ctx context.Context, sched *schedule.Model, others []sessions.Session) Model {
	m := Model{
		ctx:    ctx,
		sched:  sched,
		state:  constants.StateGrid,
		keys:   DefaultKeyMap(),
		help:   help.New(),
		cursor: view.Cursor{Row: 0, Col: 1},
	}

	if len(others) > 0 {
		pids := make([]string, len(others))
		for i, s := range others {
			pids[i] = fmt.Sprintf("%d", s.PID)
		}
		m.sessionWarning = fmt.Sprintf("⚠ Another weekplan session is editing this store (pid %s); the last save wins",
			strings.Join(pids, ", "))
	}

	m.updateValidationStatus()
	return m
}

func (m Model) ShortHelp() []key.Binding {
	switch m.state {
	case constants.StateGrid:
		return []key.Binding{m.keys.Edit, m.keys.Add, m.keys.Save, m.keys.Quit, m.keys.Help}
	default:
		return nil
	}
}

func (m Model) FullHelp() [][]key.Binding {
	navigation := []key.Binding{m.keys.Up, m.keys.Down, m.keys.Left, m.keys.Right}
	slots := []key.Binding{m.keys.Add, m.keys.Rename, m.keys.Delete, m.keys.MoveUp, m.keys.MoveDown}
	global := []key.Binding{m.keys.Edit, m.keys.Save, m.keys.Help, m.keys.Quit, m.keys.ForceQuit}
	return [][]key.Binding{navigation, slots, global}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// currentSlot returns the name of the slot under the cursor.
func (m Model) currentSlot() (string, bool) {
	names := m.sched.Slots()
	if m.cursor.Row < 0 || m.cursor.Row >= len(names) {
		return "", false
	}
	return names[m.cursor.Row], true
}

// currentDay returns the weekday under the cursor, false on the label column.
func (m Model) currentDay() (models.Weekday, bool) {
	if m.cursor.Col < 1 || m.cursor.Col > models.DaysPerWeek {
		return 0, false
	}
	return models.Weekday(m.cursor.Col - 1), true
}

func (m *Model) clampCursor() {
	n := m.sched.Len()
	if m.cursor.Row >= n {
		m.cursor.Row = n - 1
	}
	if m.cursor.Row < 0 {
		m.cursor.Row = 0
	}
	if m.cursor.Col < 0 {
		m.cursor.Col = 0
	}
	if m.cursor.Col > models.DaysPerWeek {
		m.cursor.Col = models.DaysPerWeek
	}
}

// updateValidationStatus lints the current document for the banner.
func (m *Model) updateValidationStatus() {
	result := validation.ValidateDocument(m.sched.Document())
	if result.HasConflicts() {
		m.validationWarning = fmt.Sprintf("⚠ %d schedule warning(s), run 'weekplan doctor' for details", len(result.Conflicts))
	} else {
		m.validationWarning = ""
	}
}
