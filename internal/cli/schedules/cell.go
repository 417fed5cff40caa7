package schedules

import (
	"errors"
	"fmt"

	"github.com/julianstephens/weekplan/internal/cli"
	"github.com/julianstephens/weekplan/internal/models"
	"github.com/julianstephens/weekplan/internal/schedule"
	"github.com/julianstephens/weekplan/internal/validation"
)

type CellSetCmd struct {
	Slot string  `arg:"" help:"Slot name."`
	Day  string  `arg:"" help:"Weekday, e.g. Monday or mon."`
	Text *string `help:"Cell text. Pass an empty string to clear it."`
	Bg   string  `help:"Background color as #rgb or #rrggbb."`
	Fg   string  `help:"Foreground color as #rgb or #rrggbb."`
}

func (c *CellSetCmd) Run(ctx *cli.Context) error {
	if c.Text == nil && c.Bg == "" && c.Fg == "" {
		return errors.New("nothing to set: pass at least one of --text, --bg or --fg")
	}
	day, err := models.ParseWeekday(c.Day)
	if err != nil {
		return err
	}

	type change struct {
		field schedule.Field
		value string
	}
	var changes []change
	if c.Text != nil {
		changes = append(changes, change{schedule.FieldText, *c.Text})
	}
	for _, color := range []struct {
		field schedule.Field
		value string
	}{{schedule.FieldBackground, c.Bg}, {schedule.FieldForeground, c.Fg}} {
		if color.value == "" {
			continue
		}
		hex, err := validation.ParseColor(color.value)
		if err != nil {
			return fmt.Errorf("--%s: %w", color.field, err)
		}
		changes = append(changes, change{color.field, hex})
	}

	sched, err := openSchedule(ctx)
	if err != nil {
		return err
	}
	for _, ch := range changes {
		if err := sched.SetCell(c.Slot, day, ch.field, ch.value); err != nil {
			return err
		}
	}

	// Cell edits are only kept in memory until saved.
	if err := sched.SaveAll(ctx.Ctx); err != nil {
		return failIfUnsaved(err)
	}
	ctx.Printf("✓ Updated %s %s\n", c.Slot, day)
	return nil
}

type CellGetCmd struct {
	Slot string `arg:"" help:"Slot name."`
	Day  string `arg:"" help:"Weekday, e.g. Monday or mon."`
}

func (c *CellGetCmd) Run(ctx *cli.Context) error {
	day, err := models.ParseWeekday(c.Day)
	if err != nil {
		return err
	}
	sched, err := openSchedule(ctx)
	if err != nil {
		return err
	}
	cell, err := sched.Cell(c.Slot, day)
	if err != nil {
		return err
	}
	ctx.Printf("text: %s\nbg:   %s\nfg:   %s\n", cell.Text, cell.Background, cell.Foreground)
	return nil
}
