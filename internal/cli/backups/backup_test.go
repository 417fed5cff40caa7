package backups

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/weekplan/internal/cli"
	"github.com/julianstephens/weekplan/internal/config"
	"github.com/julianstephens/weekplan/internal/constants"
	"github.com/julianstephens/weekplan/internal/models"
)

func newTestContext(t *testing.T, file string) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	target, err := cli.ResolveTarget(filepath.Join(dir, file), config.Default())
	require.NoError(t, err)

	ctx := cli.NewContext(context.Background(), config.Default(), target)
	out := &bytes.Buffer{}
	ctx.Out = out
	ctx.Err = &bytes.Buffer{}
	ctx.In = strings.NewReader("")
	ctx.SessionsDir = filepath.Join(dir, constants.SessionsDirName)
	require.NoError(t, ctx.Store.Init(context.Background()))
	t.Cleanup(func() { _ = ctx.Close() })
	return ctx, out
}

func save(t *testing.T, ctx *cli.Context, names ...string) {
	t.Helper()
	doc := models.Document{Version: constants.DocumentVersion}
	for _, name := range names {
		doc.Slots = append(doc.Slots, models.NewSlot(name))
	}
	require.NoError(t, ctx.Store.SaveSchedule(context.Background(), constants.DefaultScheduleName, doc))
}

func slotNames(t *testing.T, ctx *cli.Context) []string {
	t.Helper()
	require.NoError(t, ctx.Store.Open(context.Background()))
	doc, err := ctx.Store.LoadSchedule(context.Background(), constants.DefaultScheduleName)
	require.NoError(t, err)
	var names []string
	for _, s := range doc.Slots {
		names = append(names, s.Name)
	}
	return names
}

func TestBackupCreateListRestore(t *testing.T) {
	for _, file := range []string{"weekplan.db", "weekplan.json"} {
		t.Run(file, func(t *testing.T) {
			ctx, out := newTestContext(t, file)

			require.NoError(t, (&BackupListCmd{}).Run(ctx))
			assert.Contains(t, out.String(), "No backups found.")

			save(t, ctx, "A")
			out.Reset()
			require.NoError(t, (&BackupCreateCmd{}).Run(ctx))
			assert.Contains(t, out.String(), "✓ Backup created: "+constants.BackupFilePrefix)
			name := strings.TrimSpace(strings.TrimPrefix(out.String(), "✓ Backup created: "))

			out.Reset()
			require.NoError(t, (&BackupListCmd{}).Run(ctx))
			assert.Contains(t, out.String(), "1 total")
			assert.Contains(t, out.String(), name)

			save(t, ctx, "A", "B")
			assert.Equal(t, []string{"A", "B"}, slotNames(t, ctx))

			out.Reset()
			require.NoError(t, (&BackupRestoreCmd{BackupFile: name, Yes: true}).Run(ctx))
			assert.Contains(t, out.String(), "restored successfully")
			assert.Contains(t, out.String(), "replaced store was saved")
			assert.Equal(t, []string{"A"}, slotNames(t, ctx))
		})
	}
}

func TestBackupRestoreCancelled(t *testing.T) {
	ctx, out := newTestContext(t, "weekplan.db")
	save(t, ctx, "A")
	require.NoError(t, (&BackupCreateCmd{}).Run(ctx))
	name := strings.TrimSpace(strings.TrimPrefix(out.String(), "✓ Backup created: "))
	save(t, ctx, "A", "B")

	ctx.In = strings.NewReader("n\n")
	out.Reset()
	require.NoError(t, (&BackupRestoreCmd{BackupFile: name}).Run(ctx))
	assert.Contains(t, out.String(), "Restore cancelled.")
	assert.Equal(t, []string{"A", "B"}, slotNames(t, ctx))
}

func TestBackupRestoreMissingFile(t *testing.T) {
	ctx, _ := newTestContext(t, "weekplan.db")
	err := (&BackupRestoreCmd{BackupFile: "nope.db", Yes: true}).Run(ctx)
	assert.ErrorContains(t, err, "backup file not found")
}

func TestBackupsRequireFileStore(t *testing.T) {
	target := cli.Target{Kind: cli.KindPostgres, Location: "postgres://localhost/week"}
	ctx := cli.NewContext(context.Background(), config.Default(), target)

	assert.ErrorIs(t, (&BackupCreateCmd{}).Run(ctx), errNotFileStore)
	assert.ErrorIs(t, (&BackupListCmd{}).Run(ctx), errNotFileStore)
	assert.ErrorIs(t, (&BackupRestoreCmd{BackupFile: "x"}).Run(ctx), errNotFileStore)
}
