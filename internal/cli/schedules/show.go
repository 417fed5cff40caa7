package schedules

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/julianstephens/weekplan/internal/cli"
	apperrors "github.com/julianstephens/weekplan/internal/errors"
	"github.com/julianstephens/weekplan/internal/schedule"
	"github.com/julianstephens/weekplan/internal/view"
)

// openSchedule opens the configured schedule. When only the first save of
// a new document failed the model is still usable and a warning is printed.
func openSchedule(ctx *cli.Context) (*schedule.Model, error) {
	sched, err := ctx.OpenSchedule()
	if sched != nil && errors.Is(err, schedule.ErrStoreUnavailable) {
		fmt.Fprintln(ctx.Err, apperrors.Describe(err))
		return sched, nil
	}
	if err != nil {
		return nil, err
	}
	return sched, nil
}

// failIfUnsaved turns a kept-but-unsaved change into an error. One-shot
// commands exit right after, so the change would be lost.
func failIfUnsaved(err error) error {
	if errors.Is(err, schedule.ErrStoreUnavailable) {
		return fmt.Errorf("%s: %w", apperrors.Describe(err), err)
	}
	return err
}

type ShowCmd struct {
	List  bool `help:"List stored schedules instead of drawing one."`
	Width int  `help:"Maximum width of day columns." default:"14"`
}

func (c *ShowCmd) Run(ctx *cli.Context) error {
	if c.List {
		return c.list(ctx)
	}

	sched, err := openSchedule(ctx)
	if err != nil {
		return err
	}
	ctx.Printf("%s\n", sched.Name())
	ctx.Printf("%s\n", view.RenderGrid(sched.Table(), view.Options{CellWidth: c.Width}))
	return nil
}

func (c *ShowCmd) list(ctx *cli.Context) error {
	infos, err := ctx.Store.ListSchedules(ctx.Ctx)
	if err != nil {
		return fmt.Errorf("failed to list schedules: %w", err)
	}
	if len(infos) == 0 {
		ctx.Printf("No schedules stored in %s.\n", ctx.Store.Describe())
		return nil
	}

	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		name := info.Name
		if name == ctx.Schedule {
			name += " *"
		}
		rows = append(rows, []string{
			name,
			fmt.Sprintf("%d", info.Revision),
			info.UpdatedAt.Local().Format(time.DateTime),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Schedule", "Revision", "Updated").
		Rows(rows...)
	ctx.Printf("%s\n", t.String())
	return nil
}
