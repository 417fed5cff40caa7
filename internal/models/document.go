package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/julianstephens/weekplan/internal/constants"
)

// Document is the persisted form of a schedule. Slot order is display order.
type Document struct {
	Version int    `json:"version"`
	Slots   []Slot `json:"slots"`
}

// IsEmpty reports whether the document holds no slots.
func (d Document) IsEmpty() bool {
	return len(d.Slots) == 0
}

// Validate checks the schedule invariants: non-empty unique names and unique IDs.
func (d Document) Validate() error {
	names := make(map[string]struct{}, len(d.Slots))
	ids := make(map[string]struct{}, len(d.Slots))
	for i, s := range d.Slots {
		if s.Name == "" {
			return fmt.Errorf("slot %d has an empty name", i)
		}
		if _, ok := names[s.Name]; ok {
			return fmt.Errorf("duplicate slot name %q", s.Name)
		}
		names[s.Name] = struct{}{}
		if s.ID == "" {
			return fmt.Errorf("slot %q has no id", s.Name)
		}
		if _, ok := ids[s.ID]; ok {
			return fmt.Errorf("duplicate slot id %q", s.ID)
		}
		ids[s.ID] = struct{}{}
	}
	return nil
}

type cellRecord struct {
	Text string  `json:"text"`
	Bg   *string `json:"bg,omitempty"`
	Fg   *string `json:"fg,omitempty"`
}

type slotRecord struct {
	ID    string                `json:"id"`
	Name  string                `json:"name"`
	Cells map[string]cellRecord `json:"cells"`
}

func (s Slot) MarshalJSON() ([]byte, error) {
	rec := slotRecord{
		ID:    s.ID,
		Name:  s.Name,
		Cells: make(map[string]cellRecord, DaysPerWeek),
	}
	for _, day := range Weekdays {
		c := s.Cells[day]
		bg, fg := c.Background, c.Foreground
		rec.Cells[day.String()] = cellRecord{Text: c.Text, Bg: &bg, Fg: &fg}
	}
	return json.Marshal(rec)
}

func (s *Slot) UnmarshalJSON(data []byte) error {
	var rec slotRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	cells, err := cellsFromRecords(rec.Cells)
	if err != nil {
		return fmt.Errorf("slot %q: %w", rec.Name, err)
	}
	s.ID = rec.ID
	s.Name = rec.Name
	s.Cells = cells
	return nil
}

// cellsFromRecords fills missing weekdays and missing colors with defaults.
func cellsFromRecords(recs map[string]cellRecord) ([DaysPerWeek]Cell, error) {
	var cells [DaysPerWeek]Cell
	for i := range cells {
		cells[i] = DefaultCell()
	}
	for key, rec := range recs {
		day, err := ParseWeekday(key)
		if err != nil {
			return cells, err
		}
		c := DefaultCell()
		c.Text = rec.Text
		if rec.Bg != nil {
			c.Background = *rec.Bg
		}
		if rec.Fg != nil {
			c.Foreground = *rec.Fg
		}
		cells[day] = c
	}
	return cells, nil
}

// EncodeDocument serializes a document in the current format.
func EncodeDocument(doc Document) ([]byte, error) {
	if doc.Version == 0 {
		doc.Version = constants.DocumentVersion
	}
	if doc.Slots == nil {
		doc.Slots = []Slot{}
	}
	return json.Marshal(doc)
}

// DecodeDocument parses a stored document. Besides the current
// {"version","slots"} form it accepts the legacy form, an object keyed by
// slot name in display order. Slots without an ID are given one.
func DecodeDocument(data []byte) (Document, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Document{Version: constants.DocumentVersion}, nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return Document{}, fmt.Errorf("failed to parse schedule document: %w", err)
	}

	var doc Document
	if raw, ok := probe["slots"]; ok && bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
		if err := json.Unmarshal(data, &doc); err != nil {
			return Document{}, fmt.Errorf("failed to parse schedule document: %w", err)
		}
	} else {
		slots, err := decodeLegacy(data)
		if err != nil {
			return Document{}, fmt.Errorf("failed to parse legacy schedule document: %w", err)
		}
		doc.Slots = slots
	}

	if doc.Version == 0 {
		doc.Version = constants.DocumentVersion
	}
	if doc.Version > constants.DocumentVersion {
		return Document{}, fmt.Errorf("schedule document version %d is newer than supported version %d", doc.Version, constants.DocumentVersion)
	}
	for i := range doc.Slots {
		if doc.Slots[i].ID == "" {
			doc.Slots[i].ID = uuid.New().String()
		}
	}
	return doc, nil
}

// decodeLegacy walks the top-level object with a token decoder so that
// key order, which is the display order, survives.
func decodeLegacy(data []byte) ([]Slot, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("expected a JSON object")
	}

	slots := []Slot{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var recs map[string]cellRecord
		if err := dec.Decode(&recs); err != nil {
			return nil, fmt.Errorf("slot %q: %w", name, err)
		}
		cells, err := cellsFromRecords(recs)
		if err != nil {
			return nil, fmt.Errorf("slot %q: %w", name, err)
		}
		slots = append(slots, Slot{Name: name, Cells: cells})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return slots, nil
}
