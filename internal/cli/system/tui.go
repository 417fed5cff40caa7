package system

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/weekplan/internal/cli"
	"github.com/julianstephens/weekplan/internal/logger"
	"github.com/julianstephens/weekplan/internal/schedule"
	"github.com/julianstephens/weekplan/internal/sessions"
	"github.com/julianstephens/weekplan/internal/tui"
)

type TuiCmd struct{}

func (c *TuiCmd) Run(ctx *cli.Context) error {
	sched, err := ctx.OpenSchedule()
	if sched == nil || (err != nil && !errors.Is(err, schedule.ErrStoreUnavailable)) {
		return err
	}
	if err != nil {
		// The default slot exists in memory; the editor shows it as unsaved.
		logger.Warn("Starting with an unsaved schedule", "error", err)
	}

	ctx.PerformAutomaticBackup()

	key := ctx.Target.Key()
	lock, err := sessions.Acquire(ctx.SessionsDir, key, sched.Name())
	if err != nil {
		logger.Warn("Failed to record editor session", "error", err)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("Failed to release editor session", "error", err)
		}
	}()

	others, err := sessions.Others(ctx.SessionsDir, key)
	if err != nil {
		logger.Warn("Failed to check for other sessions", "error", err)
	}

	p := tea.NewProgram(tui.NewModel(ctx.Ctx, sched, others), tea.WithAltScreen(), tea.WithContext(ctx.Ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("editor failed: %w", err)
	}
	if sched.Dirty() {
		fmt.Fprintln(ctx.Err, "Exited with unsaved cell edits.")
	}
	return nil
}
