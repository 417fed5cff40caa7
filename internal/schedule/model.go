// Package schedule holds the in-memory weekly schedule and the rules that
// keep it consistent across slot and cell edits.
//
// A Model is owned by a single session and is not safe for concurrent use.
// Structural changes (add, remove, rename, move) save the whole document
// immediately. Cell edits only mark the model dirty; callers flush them with
// SaveAll. Two sessions saving to the same store overwrite each other's
// documents in full: the last save wins.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/julianstephens/weekplan/internal/constants"
	"github.com/julianstephens/weekplan/internal/logger"
	"github.com/julianstephens/weekplan/internal/models"
	"github.com/julianstephens/weekplan/internal/storage"
)

// Store is the persistence the model needs. storage.Provider satisfies it.
type Store interface {
	LoadSchedule(ctx context.Context, name string) (models.Document, error)
	SaveSchedule(ctx context.Context, name string, doc models.Document) error
}

// Row is one slot as seen by renderers and exporters.
type Row struct {
	Slot  string
	Cells [models.DaysPerWeek]models.Cell
}

// Model is one named schedule: its ordered slots, their cells and whether
// any edit has not been saved yet.
type Model struct {
	name      string
	store     Store
	slots     []models.Slot
	dirty     bool
	listeners []Listener
}

// Open loads the named schedule. A missing or empty document is replaced by
// a single default slot which is saved right away. If that save fails the
// model is still returned along with an error wrapping ErrStoreUnavailable.
func Open(ctx context.Context, store Store, name string) (*Model, error) {
	if strings.TrimSpace(name) == "" {
		name = constants.DefaultScheduleName
	}
	m := &Model{name: name, store: store}

	doc, err := store.LoadSchedule(ctx, name)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: failed to load schedule %q: %w", ErrStoreUnavailable, name, err)
	}

	if err == nil && !doc.IsEmpty() {
		m.slots = make([]models.Slot, len(doc.Slots))
		copy(m.slots, doc.Slots)
		logger.Debug("Loaded schedule", "name", name, "slots", len(m.slots))
		return m, nil
	}

	logger.Info("Initializing empty schedule", "name", name)
	m.slots = []models.Slot{models.NewSlot(constants.DefaultSlotName)}
	if err := m.persist(ctx); err != nil {
		return m, err
	}
	return m, nil
}

// Name returns the document key the model saves under.
func (m *Model) Name() string {
	return m.name
}

// Dirty reports whether there are changes not yet saved.
func (m *Model) Dirty() bool {
	return m.dirty
}

// Len returns the number of slots.
func (m *Model) Len() int {
	return len(m.slots)
}

// Slots returns the slot names in display order.
func (m *Model) Slots() []string {
	names := make([]string, len(m.slots))
	for i, s := range m.slots {
		names[i] = s.Name
	}
	return names
}

// Index returns the position of the named slot, or -1.
func (m *Model) Index(name string) int {
	for i, s := range m.slots {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// Cell returns the content of one cell.
func (m *Model) Cell(slot string, day models.Weekday) (models.Cell, error) {
	if !day.Valid() {
		return models.Cell{}, fmt.Errorf("%w: %d", ErrInvalidWeekday, int(day))
	}
	i := m.Index(slot)
	if i < 0 {
		return models.Cell{}, fmt.Errorf("%w: %q", ErrSlotNotFound, slot)
	}
	return m.slots[i].Cells[day], nil
}

// Subscribe registers a listener for change events.
func (m *Model) Subscribe(l Listener) {
	m.listeners = append(m.listeners, l)
}

// AddSlot appends a slot with seven default cells and saves.
func (m *Model) AddSlot(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return blankNameError{}
	}
	if m.Index(name) >= 0 {
		return fmt.Errorf("%w: %q", ErrDuplicateSlot, name)
	}

	slot := models.NewSlot(name)
	m.slots = append(m.slots, slot)
	m.emit(Event{Kind: EventSlotAdded, SlotID: slot.ID, Slot: name, Index: len(m.slots) - 1})
	return m.persist(ctx)
}

// RemoveSlot deletes a slot and its cells and saves.
func (m *Model) RemoveSlot(ctx context.Context, name string) error {
	i := m.Index(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrSlotNotFound, name)
	}

	removed := m.slots[i]
	m.slots = append(m.slots[:i], m.slots[i+1:]...)
	m.emit(Event{Kind: EventSlotRemoved, SlotID: removed.ID, Slot: removed.Name, Index: i})
	return m.persist(ctx)
}

// RenameSlot changes a slot's name in place, keeping its position and
// cells, and saves. Renaming a slot to its current name does nothing.
func (m *Model) RenameSlot(ctx context.Context, oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return ErrEmptyName
	}
	i := m.Index(oldName)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrSlotNotFound, oldName)
	}
	if newName == oldName {
		return nil
	}
	if j := m.Index(newName); j >= 0 && j != i {
		return fmt.Errorf("%w: %q", ErrDuplicateSlot, newName)
	}

	m.slots[i].Name = newName
	m.emit(Event{Kind: EventSlotRenamed, SlotID: m.slots[i].ID, Slot: newName, OldName: oldName, Index: i})
	return m.persist(ctx)
}

// MoveSlot swaps the slot at index with its neighbour and saves. Cells
// travel with their slot.
func (m *Model) MoveSlot(ctx context.Context, index int, dir Direction) error {
	if index < 0 || index >= len(m.slots) {
		return fmt.Errorf("%w: index %d of %d", ErrOutOfRange, index, len(m.slots))
	}

	target := index - 1
	if dir == Down {
		target = index + 1
	}
	if target < 0 || target >= len(m.slots) {
		return fmt.Errorf("%w: cannot move %q %s", ErrOutOfRange, m.slots[index].Name, dir)
	}

	m.slots[index], m.slots[target] = m.slots[target], m.slots[index]
	m.emit(Event{Kind: EventSlotMoved, SlotID: m.slots[target].ID, Slot: m.slots[target].Name, Index: target})
	return m.persist(ctx)
}

// SetCell updates one field of one cell. It does not save.
func (m *Model) SetCell(slot string, day models.Weekday, field Field, value string) error {
	i := m.Index(slot)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrSlotNotFound, slot)
	}
	if !day.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidWeekday, int(day))
	}

	cell := &m.slots[i].Cells[day]
	switch field {
	case FieldText:
		cell.Text = value
	case FieldBackground:
		cell.Background = value
	case FieldForeground:
		cell.Foreground = value
	default:
		return fmt.Errorf("%w: %s", ErrInvalidField, field)
	}

	m.dirty = true
	m.emit(Event{Kind: EventCellChanged, SlotID: m.slots[i].ID, Slot: slot, Index: i, Day: day, Field: field})
	return nil
}

// SaveAll writes the whole schedule to the store, replacing what is there.
func (m *Model) SaveAll(ctx context.Context) error {
	return m.persist(ctx)
}

// Table yields the slots in display order. It reads live state, can be
// ranged over any number of times and never mutates the model.
func (m *Model) Table() iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for _, s := range m.slots {
			if !yield(Row{Slot: s.Name, Cells: s.Cells}) {
				return
			}
		}
	}
}

// Document returns a copy of the schedule in its persisted form.
func (m *Model) Document() models.Document {
	slots := make([]models.Slot, len(m.slots))
	copy(slots, m.slots)
	return models.Document{Version: constants.DocumentVersion, Slots: slots}
}

func (m *Model) persist(ctx context.Context) error {
	if err := m.store.SaveSchedule(ctx, m.name, m.Document()); err != nil {
		m.dirty = true
		logger.Warn("Failed to save schedule", "name", m.name, "error", err)
		return fmt.Errorf("%w: failed to save schedule %q: %w", ErrStoreUnavailable, m.name, err)
	}
	m.dirty = false
	m.emit(Event{Kind: EventSaved, Index: -1})
	return nil
}

func (m *Model) emit(e Event) {
	for _, l := range m.listeners {
		l(e)
	}
}
