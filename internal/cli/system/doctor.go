package system

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/julianstephens/weekplan/internal/backup"
	"github.com/julianstephens/weekplan/internal/cli"
	"github.com/julianstephens/weekplan/internal/constants"
	"github.com/julianstephens/weekplan/internal/keyring"
	"github.com/julianstephens/weekplan/internal/logger"
	"github.com/julianstephens/weekplan/internal/sessions"
	"github.com/julianstephens/weekplan/internal/storage"
	"github.com/julianstephens/weekplan/internal/validation"
)

type DoctorCmd struct{}

type checkStatus int

const (
	checkOK checkStatus = iota
	checkWarn
	checkFail
	checkSkipped
)

type check struct {
	name string
	run  func(ctx *cli.Context) (checkStatus, string)
	// needsStore checks are skipped when the store cannot be opened.
	needsStore bool
}

var doctorChecks = []check{
	{name: "Schema version", run: checkSchemaVersion, needsStore: true},
	{name: "Schedule document", run: checkScheduleDocument, needsStore: true},
	{name: "Schedule lint", run: checkScheduleLint, needsStore: true},
	{name: "Backups present", run: checkBackupsPresent},
	{name: "Other sessions", run: checkOtherSessions},
	{name: "Keyring", run: checkKeyring},
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	ctx.Printf("Running diagnostics...\n\n")
	ctx.Printf("Store: %s (%s, from %s)\n", ctx.Store.Describe(), ctx.Target.Kind, ctx.Target.Source)
	if path := logger.Path(); path != "" {
		ctx.Printf("Log file: %s\n", path)
	}
	ctx.Printf("\n")

	hasError := false
	storeReachable := true
	if err := ctx.Store.Open(ctx.Ctx); err != nil {
		ctx.Printf("❌ Store reachable: FAIL\n")
		ctx.Printf("   Error: %v\n", err)
		hasError = true
		storeReachable = false
	} else {
		ctx.Printf("✓ Store reachable: OK\n")
	}

	for _, c := range doctorChecks {
		if c.needsStore && !storeReachable {
			report(ctx, c.name, checkSkipped, "store not reachable")
			continue
		}
		status, detail := c.run(ctx)
		report(ctx, c.name, status, detail)
		if status == checkFail {
			hasError = true
		}
	}

	ctx.Printf("\n")
	if hasError {
		ctx.Printf("Diagnostics completed with errors.\n")
		return errors.New("one or more health checks failed")
	}
	ctx.Printf("All diagnostics passed!\n")
	return nil
}

func report(ctx *cli.Context, name string, status checkStatus, detail string) {
	switch status {
	case checkOK:
		ctx.Printf("✓ %s: OK\n", name)
	case checkWarn:
		ctx.Printf("⚠ %s: WARNING\n", name)
	case checkFail:
		ctx.Printf("❌ %s: FAIL\n", name)
	case checkSkipped:
		ctx.Printf("⊘ %s: SKIPPED (%s)\n", name, detail)
		return
	}
	if detail != "" {
		for line := range strings.SplitSeq(strings.TrimRight(detail, "\n"), "\n") {
			ctx.Printf("   %s\n", line)
		}
	}
}

func checkSchemaVersion(ctx *cli.Context) (checkStatus, string) {
	versioned, ok := storage.Unwrap(ctx.Store).(storage.Versioned)
	if !ok {
		return checkOK, "store has no schema"
	}
	current, latest, err := versioned.SchemaVersion(ctx.Ctx)
	if err != nil {
		return checkFail, fmt.Sprintf("Error: %v", err)
	}
	switch {
	case current > latest:
		return checkFail, fmt.Sprintf("schema version %d is newer than this build supports (%d)", current, latest)
	case current < latest:
		return checkFail, fmt.Sprintf("schema version %d is behind %d, run 'weekplan init'", current, latest)
	}
	return checkOK, ""
}

func checkScheduleDocument(ctx *cli.Context) (checkStatus, string) {
	infos, err := ctx.Store.ListSchedules(ctx.Ctx)
	if err != nil {
		return checkFail, fmt.Sprintf("Error: %v", err)
	}
	i := slices.IndexFunc(infos, func(info storage.ScheduleInfo) bool { return info.Name == ctx.Schedule })
	if i < 0 {
		return checkWarn, fmt.Sprintf("schedule %q has not been saved yet; it is created on first use", ctx.Schedule)
	}
	if _, err := ctx.Store.LoadSchedule(ctx.Ctx, ctx.Schedule); err != nil {
		return checkFail, fmt.Sprintf("Error: %v", err)
	}
	return checkOK, fmt.Sprintf("%q at revision %d", ctx.Schedule, infos[i].Revision)
}

func checkScheduleLint(ctx *cli.Context) (checkStatus, string) {
	doc, err := ctx.Store.LoadSchedule(ctx.Ctx, ctx.Schedule)
	if errors.Is(err, storage.ErrNotFound) {
		return checkOK, ""
	}
	if err != nil {
		return checkFail, fmt.Sprintf("Error: %v", err)
	}
	if err := doc.Validate(); err != nil {
		return checkFail, fmt.Sprintf("Error: %v", err)
	}
	result := validation.ValidateDocument(doc)
	if result.HasConflicts() {
		return checkWarn, result.FormatReport()
	}
	return checkOK, ""
}

func checkBackupsPresent(ctx *cli.Context) (checkStatus, string) {
	path, ok := ctx.Target.FilePath()
	if !ok {
		return checkOK, "not applicable to PostgreSQL, use pg_dump"
	}
	if _, err := os.Stat(path); err != nil {
		return checkSkipped, "store file does not exist"
	}
	backups, err := backup.NewManager(path).List()
	if err != nil {
		return checkWarn, fmt.Sprintf("failed to list backups: %v", err)
	}
	if len(backups) == 0 {
		return checkWarn, "no backups found, create one with 'weekplan backup create'"
	}
	return checkOK, ""
}

func checkOtherSessions(ctx *cli.Context) (checkStatus, string) {
	others, err := sessions.Others(ctx.SessionsDir, ctx.Target.Key())
	if err != nil {
		return checkWarn, err.Error()
	}
	if len(others) == 0 {
		return checkOK, ""
	}
	var b strings.Builder
	for _, s := range others {
		fmt.Fprintf(&b, "pid %d is editing %q\n", s.PID, s.Schedule)
	}
	b.WriteString("saves from concurrent sessions overwrite each other, the last one wins")
	return checkWarn, b.String()
}

func checkKeyring(ctx *cli.Context) (checkStatus, string) {
	if ctx.Target.Kind != cli.KindPostgres {
		return checkOK, "not used by file stores"
	}
	if ctx.Target.Source == string(keyring.SourceKeyring) {
		return checkOK, "connection string read from the OS keyring"
	}
	if !keyring.IsAvailable() {
		return checkWarn, "OS keyring is not available; use " + constants.ConnectionEnvVar + " or .pgpass"
	}
	return checkOK, ""
}
