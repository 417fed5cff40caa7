package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/weekplan/internal/models"
	"github.com/julianstephens/weekplan/internal/schedule"
)

func rowsOf(slots ...models.Slot) []schedule.Row {
	rows := make([]schedule.Row, len(slots))
	for i, s := range slots {
		rows[i] = schedule.Row{Slot: s.Name, Cells: s.Cells}
	}
	return rows
}

func TestWriteCSV(t *testing.T) {
	a := models.NewSlot("09:00 - 10:00")
	a.Cells[models.Monday] = models.Cell{Text: "Lunch", Background: "#ff0000", Foreground: "#000000"}
	b := models.NewSlot("Evening, late")
	b.Cells[models.Sunday].Text = `Say "hi"`

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, slices.Values(rowsOf(a, b))))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"Time", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}, records[0])
	assert.Equal(t, []string{"09:00 - 10:00", "Lunch", "", "", "", "", "", ""}, records[1])
	assert.Equal(t, "Evening, late", records[2][0])
	assert.Equal(t, `Say "hi"`, records[2][7])
	assert.NotContains(t, buf.String(), "#ff0000")
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, slices.Values([]schedule.Row(nil))))
	assert.Equal(t, "Time,Monday,Tuesday,Wednesday,Thursday,Friday,Saturday,Sunday\n", buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteCSVPropagatesWriteErrors(t *testing.T) {
	err := WriteCSV(failingWriter{}, slices.Values(rowsOf(models.NewSlot("A"))))
	assert.ErrorContains(t, err, "disk full")
}

func TestWriteHTML(t *testing.T) {
	a := models.NewSlot("09:00 - 10:00")
	a.Cells[models.Tuesday] = models.Cell{Text: "<script>alert(1)</script>", Background: "#FF0000", Foreground: "#00ff00"}
	a.Cells[models.Friday] = models.Cell{Text: "x", Background: "red;position:fixed", Foreground: "#fff"}

	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, "My <Week>", slices.Values(rowsOf(a))))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "<title>My &lt;Week&gt;</title>")
	assert.Contains(t, out, "<th>Sunday</th>")
	assert.Contains(t, out, "<th>09:00 - 10:00</th>")
	assert.Contains(t, out, `style="background:#ff0000;color:#00ff00"`)
	assert.Contains(t, out, "&lt;script&gt;")
	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "position:fixed")
	assert.Contains(t, out, `style="background:#1e1e1e;color:#ffffff">x</td>`)
	assert.Equal(t, 7, strings.Count(out, "<td "))
}
