package schedules

import (
	"fmt"

	"github.com/julianstephens/weekplan/internal/cli"
	"github.com/julianstephens/weekplan/internal/schedule"
)

type SlotAddCmd struct {
	Name string `arg:"" help:"Slot name, e.g. \"09:00 - 10:00\"."`
}

func (c *SlotAddCmd) Run(ctx *cli.Context) error {
	sched, err := openSchedule(ctx)
	if err != nil {
		return err
	}
	if err := sched.AddSlot(ctx.Ctx, c.Name); err != nil {
		return failIfUnsaved(err)
	}
	ctx.Printf("✓ Added slot %q (%d total)\n", sched.Slots()[sched.Len()-1], sched.Len())
	return nil
}

type SlotRemoveCmd struct {
	Name string `arg:"" help:"Slot to remove."`
	Yes  bool   `short:"y" help:"Do not ask for confirmation."`
}

func (c *SlotRemoveCmd) Run(ctx *cli.Context) error {
	sched, err := openSchedule(ctx)
	if err != nil {
		return err
	}
	if sched.Index(c.Name) < 0 {
		return fmt.Errorf("%w: %q", schedule.ErrSlotNotFound, c.Name)
	}

	if !c.Yes {
		ok, err := ctx.Confirm(fmt.Sprintf("Delete slot %q and all of its cells?", c.Name))
		if err != nil {
			return err
		}
		if !ok {
			ctx.Printf("Cancelled.\n")
			return nil
		}
	}

	if err := sched.RemoveSlot(ctx.Ctx, c.Name); err != nil {
		return failIfUnsaved(err)
	}
	ctx.Printf("✓ Removed slot %q\n", c.Name)
	return nil
}

type SlotRenameCmd struct {
	Old string `arg:"" help:"Current slot name."`
	New string `arg:"" help:"New slot name."`
}

func (c *SlotRenameCmd) Run(ctx *cli.Context) error {
	sched, err := openSchedule(ctx)
	if err != nil {
		return err
	}
	if err := sched.RenameSlot(ctx.Ctx, c.Old, c.New); err != nil {
		return failIfUnsaved(err)
	}
	ctx.Printf("✓ Renamed slot %q to %q\n", c.Old, c.New)
	return nil
}

type SlotMoveCmd struct {
	Name      string `arg:"" help:"Slot to move."`
	Direction string `arg:"" enum:"up,down" help:"up or down."`
}

func (c *SlotMoveCmd) Run(ctx *cli.Context) error {
	dir, err := schedule.ParseDirection(c.Direction)
	if err != nil {
		return err
	}
	sched, err := openSchedule(ctx)
	if err != nil {
		return err
	}
	i := sched.Index(c.Name)
	if i < 0 {
		return fmt.Errorf("%w: %q", schedule.ErrSlotNotFound, c.Name)
	}
	if err := sched.MoveSlot(ctx.Ctx, i, dir); err != nil {
		return failIfUnsaved(err)
	}
	ctx.Printf("✓ Moved slot %q %s\n", c.Name, dir)
	return nil
}

type SlotListCmd struct{}

func (c *SlotListCmd) Run(ctx *cli.Context) error {
	sched, err := openSchedule(ctx)
	if err != nil {
		return err
	}
	for i, name := range sched.Slots() {
		ctx.Printf("%2d  %s\n", i+1, name)
	}
	return nil
}
