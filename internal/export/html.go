package export

import (
	"fmt"
	"html/template"
	"io"
	"iter"

	"github.com/julianstephens/weekplan/internal/constants"
	"github.com/julianstephens/weekplan/internal/schedule"
	"github.com/julianstephens/weekplan/internal/validation"
	"github.com/julianstephens/weekplan/internal/view"
)

var pageTemplate = template.Must(template.New("schedule").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { background:#0f1117; color:#ffffff; font-family:sans-serif; margin:2rem; }
table { width:100%; border-collapse:collapse; }
th, td { border:1px solid #333333; padding:12px; text-align:center; }
th { background:#111111; }
td { font-weight:bold; }
@media print { body { -webkit-print-color-adjust:exact; print-color-adjust:exact; } }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<table>
<tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr>
{{- range .Rows}}
<tr><th>{{.Slot}}</th>{{range .Cells}}<td style="background:{{.Background}};color:{{.Foreground}}">{{.Text}}</td>{{end}}</tr>
{{- end}}
</table>
</body>
</html>
`))

type htmlCell struct {
	Text       string
	Background template.CSS
	Foreground template.CSS
}

type htmlRow struct {
	Slot  string
	Cells []htmlCell
}

// safeColor returns a validated hex color, or fallback.
func safeColor(value, fallback string) template.CSS {
	c, err := validation.ParseColor(value)
	if err != nil {
		c = fallback
	}
	return template.CSS(c)
}

// WriteHTML writes a standalone dark page with the schedule table. Colors
// that are not valid hex values are replaced by the defaults.
func WriteHTML(w io.Writer, title string, rows iter.Seq[schedule.Row]) error {
	data := struct {
		Title  string
		Header []string
		Rows   []htmlRow
	}{Title: title, Header: view.Header()}

	for row := range rows {
		hr := htmlRow{Slot: row.Slot}
		for _, c := range row.Cells {
			hr.Cells = append(hr.Cells, htmlCell{
				Text:       c.Text,
				Background: safeColor(c.Background, constants.DefaultBackground),
				Foreground: safeColor(c.Foreground, constants.DefaultForeground),
			})
		}
		data.Rows = append(data.Rows, hr)
	}

	if err := pageTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render html: %w", err)
	}
	return nil
}
