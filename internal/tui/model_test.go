package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/weekplan/internal/constants"
	"github.com/julianstephens/weekplan/internal/models"
	"github.com/julianstephens/weekplan/internal/schedule"
	"github.com/julianstephens/weekplan/internal/sessions"
	"github.com/julianstephens/weekplan/internal/storage"
)

type memStore struct {
	docs  map[string]models.Document
	fail  bool
	saves int
}

func (s *memStore) LoadSchedule(_ context.Context, name string) (models.Document, error) {
	doc, ok := s.docs[name]
	if !ok {
		return models.Document{}, storage.ErrNotFound
	}
	return doc, nil
}

func (s *memStore) SaveSchedule(_ context.Context, name string, doc models.Document) error {
	if s.fail {
		return errors.New("connection refused")
	}
	s.saves++
	s.docs[name] = doc
	return nil
}

func newTestModel(t *testing.T, slots ...string) (Model, *memStore) {
	t.Helper()
	store := &memStore{docs: map[string]models.Document{}}
	if len(slots) > 0 {
		doc := models.Document{Version: constants.DocumentVersion}
		for _, name := range slots {
			doc.Slots = append(doc.Slots, models.NewSlot(name))
		}
		store.docs[constants.DefaultScheduleName] = doc
	}
	sched, err := schedule.Open(context.Background(), store, "")
	require.NoError(t, err)
	return NewModel(context.Background(), sched, nil), store
}

func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "left":
			msg = tea.KeyMsg{Type: tea.KeyLeft}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "ctrl+c":
			msg = tea.KeyMsg{Type: tea.KeyCtrlC}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		updated, c := m.Update(msg)
		m = updated.(Model)
		cmd = c
	}
	return m, cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestCursorNavigationClamps(t *testing.T) {
	m, _ := newTestModel(t, "A", "B")
	assert.Equal(t, 0, m.cursor.Row)
	assert.Equal(t, 1, m.cursor.Col)

	m, _ = press(t, m, "up", "left", "left")
	assert.Equal(t, 0, m.cursor.Row)
	assert.Equal(t, 0, m.cursor.Col)

	m, _ = press(t, m, "down", "down", "down", "j")
	assert.Equal(t, 1, m.cursor.Row)

	for range 10 {
		m, _ = press(t, m, "l")
	}
	assert.Equal(t, models.DaysPerWeek, m.cursor.Col)
	day, ok := m.currentDay()
	require.True(t, ok)
	assert.Equal(t, models.Sunday, day)
}

func TestQuitWhenClean(t *testing.T) {
	m, _ := newTestModel(t, "A")
	m, cmd := press(t, m, "q")
	assert.True(t, m.quitting)
	assert.True(t, isQuit(cmd))
	assert.Empty(t, m.View())
}

func TestQuitWhenDirtyAsksForConfirmation(t *testing.T) {
	m, store := newTestModel(t, "A")
	require.NoError(t, m.sched.SetCell("A", models.Monday, schedule.FieldText, "Gym"))

	m, cmd := press(t, m, "q")
	assert.Equal(t, constants.StateConfirmQuit, m.state)
	assert.False(t, isQuit(cmd))
	assert.Contains(t, m.View(), "unsaved changes")

	m, _ = press(t, m, "n")
	assert.Equal(t, constants.StateGrid, m.state)

	m, _ = press(t, m, "q")
	m, cmd = press(t, m, "s")
	assert.True(t, isQuit(cmd))
	assert.False(t, m.sched.Dirty())
	assert.Equal(t, "Gym", store.docs[constants.DefaultScheduleName].Slots[0].Cells[models.Monday].Text)
}

func TestQuitSaveFailureStaysOpen(t *testing.T) {
	m, store := newTestModel(t, "A")
	require.NoError(t, m.sched.SetCell("A", models.Monday, schedule.FieldText, "Gym"))
	store.fail = true

	m, _ = press(t, m, "q")
	m, cmd := press(t, m, "s")
	assert.False(t, isQuit(cmd))
	assert.Equal(t, constants.StateGrid, m.state)
	assert.True(t, m.statusIsError)
	assert.Contains(t, m.status, "may not survive a restart")
}

func TestForceQuit(t *testing.T) {
	m, _ := newTestModel(t, "A")
	require.NoError(t, m.sched.SetCell("A", models.Monday, schedule.FieldText, "Gym"))
	m, cmd := press(t, m, "ctrl+c")
	assert.True(t, m.quitting)
	assert.True(t, isQuit(cmd))
}

func TestDeleteSlotWithConfirmation(t *testing.T) {
	m, store := newTestModel(t, "A", "B")
	m, _ = press(t, m, "down", "d")
	assert.Equal(t, constants.StateConfirmDelete, m.state)
	assert.Contains(t, m.View(), `"B"`)

	m, _ = press(t, m, "n")
	assert.Equal(t, constants.StateGrid, m.state)
	assert.Equal(t, []string{"A", "B"}, m.sched.Slots())

	m, _ = press(t, m, "d", "y")
	assert.Equal(t, constants.StateGrid, m.state)
	assert.Equal(t, []string{"A"}, m.sched.Slots())
	assert.Equal(t, 0, m.cursor.Row)
	assert.Len(t, store.docs[constants.DefaultScheduleName].Slots, 1)
	assert.False(t, m.statusIsError)
}

func TestDeleteLastSlotLeavesEmptyGrid(t *testing.T) {
	m, _ := newTestModel(t, "A")
	m, _ = press(t, m, "d", "y")
	assert.Equal(t, 0, m.sched.Len())
	assert.Contains(t, m.View(), "No slots")

	m, _ = press(t, m, "d", "enter", "J")
	assert.Equal(t, constants.StateGrid, m.state)
}

func TestMoveSlotCursorFollows(t *testing.T) {
	m, _ := newTestModel(t, "A", "B", "C")
	m, _ = press(t, m, "J")
	assert.Equal(t, []string{"B", "A", "C"}, m.sched.Slots())
	assert.Equal(t, 1, m.cursor.Row)

	m, _ = press(t, m, "K", "K")
	assert.Equal(t, []string{"A", "B", "C"}, m.sched.Slots())
	assert.Equal(t, 0, m.cursor.Row)
	assert.True(t, m.statusIsError)
	assert.Equal(t, "The slot cannot move any further in that direction.", m.status)
}

func TestAddSlot(t *testing.T) {
	m, _ := newTestModel(t, "A")
	m, _ = press(t, m, "a")
	require.Equal(t, constants.StateAddSlot, m.state)
	require.NotNil(t, m.slotForm)

	m.slotForm.Name = "  B  "
	m.submitAdd()
	m.closeForm()
	assert.Equal(t, []string{"A", "B"}, m.sched.Slots())
	assert.Equal(t, 1, m.cursor.Row)
	assert.Equal(t, constants.StateGrid, m.state)

	m, _ = press(t, m, "a")
	m.slotForm.Name = "A"
	m.submitAdd()
	assert.True(t, m.statusIsError)
	assert.Equal(t, "A slot with that name already exists.", m.status)
	assert.Equal(t, 1, m.cursor.Row)
}

func TestAddSlotStoreFailureKeepsChange(t *testing.T) {
	m, store := newTestModel(t, "A")
	store.fail = true

	m, _ = press(t, m, "a")
	m.slotForm.Name = "B"
	m.submitAdd()
	assert.Equal(t, []string{"A", "B"}, m.sched.Slots())
	assert.True(t, m.sched.Dirty())
	assert.Contains(t, m.status, "Warning")
}

func TestRenameFromLabelColumn(t *testing.T) {
	m, _ := newTestModel(t, "A", "B", "C")
	m, _ = press(t, m, "down", "left", "enter")
	require.Equal(t, constants.StateRenameSlot, m.state)
	assert.Equal(t, "B", m.slotForm.Name)

	m.slotForm.Name = "Beta"
	m.submitRename()
	m.closeForm()
	assert.Equal(t, []string{"A", "Beta", "C"}, m.sched.Slots())

	m, _ = press(t, m, "r")
	m.slotForm.Name = "C"
	m.submitRename()
	assert.Equal(t, "A slot with that name already exists.", m.status)
	assert.Equal(t, []string{"A", "Beta", "C"}, m.sched.Slots())
}

func TestEditCell(t *testing.T) {
	m, store := newTestModel(t, "A")
	saves := store.saves
	m, _ = press(t, m, "right", "enter")
	require.Equal(t, constants.StateEditCell, m.state)
	assert.Equal(t, models.Tuesday, m.editingDay)
	assert.Equal(t, constants.DefaultBackground, m.cellForm.Background)

	m.cellForm.Text = "Lunch"
	m.cellForm.Background = "#F00"
	m.submitCell()
	m.closeForm()

	cell, err := m.sched.Cell("A", models.Tuesday)
	require.NoError(t, err)
	assert.Equal(t, models.Cell{Text: "Lunch", Background: "#ff0000", Foreground: constants.DefaultForeground}, cell)
	assert.True(t, m.sched.Dirty())
	assert.Equal(t, saves, store.saves)
	assert.Contains(t, m.View(), "unsaved")

	m, _ = press(t, m, "s")
	assert.False(t, m.sched.Dirty())
	assert.Equal(t, "Saved", m.status)
	assert.Equal(t, saves+1, store.saves)
}

func TestEditCellEscCancels(t *testing.T) {
	m, _ := newTestModel(t, "A")
	m, _ = press(t, m, "enter")
	require.Equal(t, constants.StateEditCell, m.state)
	m, _ = press(t, m, "esc")
	assert.Equal(t, constants.StateGrid, m.state)
	assert.Nil(t, m.form)
	assert.False(t, m.sched.Dirty())
}

func TestValidationBanner(t *testing.T) {
	m, _ := newTestModel(t, "10:00 - 11:00", "09:00 - 10:00")
	assert.Contains(t, m.validationWarning, "1 schedule warning")

	m, _ = press(t, m, "J")
	assert.Empty(t, m.validationWarning)
}

func TestSessionWarning(t *testing.T) {
	store := &memStore{docs: map[string]models.Document{}}
	sched, err := schedule.Open(context.Background(), store, "work")
	require.NoError(t, err)

	m := NewModel(context.Background(), sched, []sessions.Session{{PID: 4242, Store: "x", Schedule: "work"}})
	assert.Contains(t, m.View(), "4242")
	assert.Contains(t, m.View(), "work")
}

func TestWindowResizeShrinksCells(t *testing.T) {
	m, _ := newTestModel(t, "A")
	assert.Equal(t, 14, m.cellWidth())

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = updated.(Model)
	assert.Equal(t, 6, m.cellWidth())
	assert.Equal(t, 80, m.help.Width)
}
