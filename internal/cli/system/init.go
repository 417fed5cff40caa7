package system

import (
	"errors"
	"fmt"
	"os"

	"github.com/julianstephens/weekplan/internal/backup"
	"github.com/julianstephens/weekplan/internal/cli"
	apperrors "github.com/julianstephens/weekplan/internal/errors"
	"github.com/julianstephens/weekplan/internal/schedule"
)

type InitCmd struct {
	Force bool `help:"Back up and delete an existing store file before initializing."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if c.Force {
		path, ok := ctx.Target.FilePath()
		if !ok {
			return errors.New("--force only applies to SQLite and JSON stores")
		}
		if _, err := os.Stat(path); err == nil {
			backupPath, err := backup.NewManager(path).Create()
			if err != nil {
				return fmt.Errorf("refusing to delete the store without a backup: %w", err)
			}
			if err := ctx.Store.Close(); err != nil {
				return fmt.Errorf("failed to close existing store: %w", err)
			}
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("failed to delete existing store: %w", err)
			}
			ctx.Printf("Backed up existing store to %s and deleted it\n", backupPath)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to access existing store: %w", err)
		}
	}

	if err := ctx.Store.Init(ctx.Ctx); err != nil {
		return err
	}
	ctx.Printf("Initialized %s storage at: %s\n", ctx.Target.Kind, ctx.Store.Describe())

	sched, err := ctx.OpenSchedule()
	if errors.Is(err, schedule.ErrStoreUnavailable) {
		return fmt.Errorf("%s: %w", apperrors.Describe(err), err)
	}
	if err != nil {
		return err
	}
	ctx.Printf("Schedule %q has %d slot(s)\n", sched.Name(), sched.Len())
	return nil
}
