// Package storagetest checks that a storage.Provider behaves the way the
// schedule model expects.
package storagetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/weekplan/internal/models"
	"github.com/julianstephens/weekplan/internal/storage"
)

// Run exercises an initialized provider. The provider must start empty.
func Run(t *testing.T, p storage.Provider) {
	t.Helper()

	t.Run("load missing", func(t *testing.T) {
		_, err := p.LoadSchedule(context.Background(), "missing")
		assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)
	})

	t.Run("round trip", func(t *testing.T) {
		ctx := context.Background()
		a := models.NewSlot("09:00 - 10:00")
		a.Cells[models.Monday] = models.Cell{Text: "Lunch <b>", Background: "#ff0000", Foreground: "#000000"}
		b := models.NewSlot("10:00 - 11:00")
		b.Cells[models.Sunday].Text = "Rest, \"quoted\""

		require.NoError(t, p.SaveSchedule(ctx, "roundtrip", models.Document{Slots: []models.Slot{a, b}}))

		doc, err := p.LoadSchedule(ctx, "roundtrip")
		require.NoError(t, err)
		require.Len(t, doc.Slots, 2)
		assert.Equal(t, a, doc.Slots[0])
		assert.Equal(t, b, doc.Slots[1])
	})

	t.Run("save replaces", func(t *testing.T) {
		ctx := context.Background()
		first := models.NewSlot("first")
		second := models.NewSlot("second")

		require.NoError(t, p.SaveSchedule(ctx, "replace", models.Document{Slots: []models.Slot{first, second}}))
		require.NoError(t, p.SaveSchedule(ctx, "replace", models.Document{Slots: []models.Slot{second}}))

		doc, err := p.LoadSchedule(ctx, "replace")
		require.NoError(t, err)
		require.Len(t, doc.Slots, 1)
		assert.Equal(t, "second", doc.Slots[0].Name)
	})

	t.Run("names are independent", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, p.SaveSchedule(ctx, "work", models.Document{Slots: []models.Slot{models.NewSlot("w")}}))
		require.NoError(t, p.SaveSchedule(ctx, "home", models.Document{Slots: []models.Slot{models.NewSlot("h")}}))

		work, err := p.LoadSchedule(ctx, "work")
		require.NoError(t, err)
		home, err := p.LoadSchedule(ctx, "home")
		require.NoError(t, err)
		assert.Equal(t, "w", work.Slots[0].Name)
		assert.Equal(t, "h", home.Slots[0].Name)
	})

	t.Run("empty document", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, p.SaveSchedule(ctx, "empty", models.Document{}))
		doc, err := p.LoadSchedule(ctx, "empty")
		require.NoError(t, err)
		assert.True(t, doc.IsEmpty())
	})

	t.Run("list", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, p.SaveSchedule(ctx, "listed", models.Document{}))
		require.NoError(t, p.SaveSchedule(ctx, "listed", models.Document{}))

		infos, err := p.ListSchedules(ctx)
		require.NoError(t, err)

		var found *storage.ScheduleInfo
		for i := range infos {
			if infos[i].Name == "listed" {
				found = &infos[i]
			}
		}
		require.NotNil(t, found, "listed schedule missing from %v", infos)
		assert.Equal(t, 2, found.Revision)
		assert.False(t, found.UpdatedAt.IsZero())
	})

	t.Run("describe", func(t *testing.T) {
		assert.NotEmpty(t, p.Describe())
	})
}
