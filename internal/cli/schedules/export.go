package schedules

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/julianstephens/weekplan/internal/cli"
	"github.com/julianstephens/weekplan/internal/export"
)

type ExportCmd struct {
	Format string `help:"Output format." enum:"csv,html" default:"csv"`
	Output string `short:"o" help:"Write to this file instead of stdout." type:"path"`
	Title  string `help:"Page title for HTML output. Defaults to the schedule name."`
}

func (c *ExportCmd) Run(ctx *cli.Context) error {
	sched, err := openSchedule(ctx)
	if err != nil {
		return err
	}

	write := func(w io.Writer) error {
		if c.Format == "html" {
			title := c.Title
			if title == "" {
				title = sched.Name()
			}
			return export.WriteHTML(w, title, sched.Table())
		}
		return export.WriteCSV(w, sched.Table())
	}

	if c.Output == "" {
		return write(ctx.Out)
	}

	// Write next to the destination and rename so a failed export never
	// leaves a truncated file behind.
	tmp, err := os.CreateTemp(filepath.Dir(c.Output), ".export-*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to export schedule: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.Output); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	ctx.Printf("✓ Exported %s to %s\n", c.Format, c.Output)
	return nil
}
