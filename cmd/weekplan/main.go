package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/weekplan/internal/cli"
	"github.com/julianstephens/weekplan/internal/cli/backups"
	"github.com/julianstephens/weekplan/internal/cli/schedules"
	"github.com/julianstephens/weekplan/internal/cli/system"
	"github.com/julianstephens/weekplan/internal/config"
	"github.com/julianstephens/weekplan/internal/constants"
	apperrors "github.com/julianstephens/weekplan/internal/errors"
	"github.com/julianstephens/weekplan/internal/logger"
)

var CLI struct {
	Version  kong.VersionFlag
	Config   string `help:"Config file (YAML or JSON)." default:"~/.config/weekplan/config.yaml"`
	Store    string `help:"SQLite path, .json file or PostgreSQL connection string. PostgreSQL passwords must NOT be embedded; use 'weekplan keyring set', WEEKPLAN_DB_CONNECTION or .pgpass instead."`
	Schedule string `short:"s" help:"Name of the schedule to edit."`
	Debug    bool   `help:"Log at debug level to stderr as well as the log file."`

	Init   system.InitCmd      `cmd:"" help:"Initialize weekplan storage."`
	Tui    system.TuiCmd       `cmd:"" help:"Launch the interactive editor." default:"1"`
	Show   schedules.ShowCmd   `cmd:"" help:"Print the schedule as a grid."`
	Export schedules.ExportCmd `cmd:"" help:"Export the schedule as CSV or HTML."`
	Doctor system.DoctorCmd    `cmd:"" help:"Run health checks and diagnostics."`
	Slot   struct {
		Add    schedules.SlotAddCmd    `cmd:"" help:"Append a slot."`
		Remove schedules.SlotRemoveCmd `cmd:"" help:"Delete a slot and its cells."`
		Rename schedules.SlotRenameCmd `cmd:"" help:"Rename a slot in place."`
		Move   schedules.SlotMoveCmd   `cmd:"" help:"Move a slot up or down."`
		List   schedules.SlotListCmd   `cmd:"" help:"List slots in order."`
	} `cmd:"" help:"Manage time slots."`
	Cell struct {
		Set schedules.CellSetCmd `cmd:"" help:"Set the text or colors of a cell and save."`
		Get schedules.CellGetCmd `cmd:"" help:"Print one cell."`
	} `cmd:"" help:"Read and edit cells."`
	Keyring struct {
		Set    system.KeyringSetCmd    `cmd:"" help:"Store a PostgreSQL connection string in the OS keyring."`
		Get    system.KeyringGetCmd    `cmd:"" help:"Show the stored connection string with the password masked."`
		Delete system.KeyringDeleteCmd `cmd:"" help:"Remove the stored connection string."`
		Status system.KeyringStatusCmd `cmd:"" help:"Check whether the OS keyring is available."`
	} `cmd:"" help:"Manage the PostgreSQL connection string in the OS keyring."`
	Backup struct {
		Create  backups.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    backups.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore backups.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage backups of file stores."`
}

// needsStore reports whether command works on an opened store. The others
// open it themselves or never touch it.
func needsStore(command string) bool {
	for _, prefix := range []string{"init", "doctor", "keyring", "backup"} {
		if strings.HasPrefix(command, prefix) {
			return false
		}
	}
	return true
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Weekly time-slot schedule editor"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		apperrors.Fatal(err)
	}
	if CLI.Debug {
		cfg.Debug = true
	}
	if CLI.Schedule != "" {
		cfg.Schedule = CLI.Schedule
	}

	if err := logger.Init(logger.Config{Debug: cfg.Debug, ConfigDir: config.ExpandHome(constants.DefaultConfigDir)}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	target, err := cli.ResolveTarget(CLI.Store, cfg)
	if err != nil {
		apperrors.Fatal(err)
	}
	logger.Debug("Resolved store", "kind", target.Kind, "source", target.Source)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	appCtx := cli.NewContext(ctx, cfg, target)

	if needsStore(kctx.Command()) {
		if cfg.Metrics.Addr != "" {
			if err := appCtx.EnableMetrics(cfg.Metrics.Addr); err != nil {
				logger.Warn("Metrics disabled", "error", err)
			}
		}
		if cfg.MQTT.Enabled() {
			if err := appCtx.EnableMQTT(cfg.MQTT); err != nil {
				logger.Warn("MQTT change feed disabled", "error", err)
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}
		}
		if err := appCtx.Store.Open(ctx); err != nil {
			stop()
			fmt.Fprintln(os.Stderr, apperrors.Describe(err))
			os.Exit(1)
		}
	}

	err = kctx.Run(appCtx)
	if closeErr := appCtx.Close(); closeErr != nil {
		logger.Warn("Failed to close store", "error", closeErr)
	}
	stop()
	if err != nil {
		apperrors.Fatal(err)
	}
}
