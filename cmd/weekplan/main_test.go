package main

import (
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/weekplan/internal/constants"
)

func parse(t *testing.T, args ...string) *kong.Context {
	t.Helper()
	parser, err := kong.New(&CLI, kong.Name(constants.AppName), kong.Vars{"version": constants.Version})
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	require.NoError(t, err)
	return kctx
}

func TestCommandRouting(t *testing.T) {
	tests := []struct {
		args      []string
		command   string
		needStore bool
	}{
		{nil, "tui", true},
		{[]string{"show"}, "show", true},
		{[]string{"slot", "add", "12:00 - 13:00"}, "slot add <name>", true},
		{[]string{"slot", "move", "Lunch", "up"}, "slot move <name> <direction>", true},
		{[]string{"cell", "set", "Lunch", "mon", "--text", "Eat"}, "cell set <slot> <day>", true},
		{[]string{"init"}, "init", false},
		{[]string{"doctor"}, "doctor", false},
		{[]string{"keyring", "status"}, "keyring status", false},
		{[]string{"backup"}, "backup create", false},
		{[]string{"backup", "restore", "weekplan-x.db"}, "backup restore <backup-file>", false},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			kctx := parse(t, tt.args...)
			assert.Equal(t, tt.command, kctx.Command())
			assert.Equal(t, tt.needStore, needsStore(kctx.Command()))
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	parse(t, "--store", "/tmp/plan.json", "-s", "work", "--debug", "show")
	assert.Equal(t, "/tmp/plan.json", CLI.Store)
	assert.Equal(t, "work", CLI.Schedule)
	assert.True(t, CLI.Debug)
}

func TestRejectsUnknownDirection(t *testing.T) {
	parser, err := kong.New(&CLI, kong.Name(constants.AppName), kong.Vars{"version": constants.Version})
	require.NoError(t, err)
	_, err = parser.Parse([]string{"slot", "move", "Lunch", "sideways"})
	assert.Error(t, err)
}
