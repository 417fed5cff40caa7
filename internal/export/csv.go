// Package export writes a schedule to CSV and to a printable HTML page.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"iter"

	"github.com/julianstephens/weekplan/internal/schedule"
	"github.com/julianstephens/weekplan/internal/view"
)

// WriteCSV writes a header of Time and the weekday names, then one record
// per slot with the cell text. Colors are not exported.
func WriteCSV(w io.Writer, rows iter.Seq[schedule.Row]) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(view.Header()); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for row := range rows {
		record := make([]string, 0, len(row.Cells)+1)
		record = append(record, row.Slot)
		for _, c := range row.Cells {
			record = append(record, c.Text)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row %q: %w", row.Slot, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
