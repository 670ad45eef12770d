package telegram

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/dmbot/core/telegram/commands"
)

func noop(tele.Context) error { return nil }

func TestRegisterCommandValidation(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("start", commands.Menu("Start", noop))
	reg.RegisterCommand("/", commands.Menu("Root", noop))
	reg.RegisterCommand("/help", commands.Command{Handler: noop})
	reg.RegisterCommand("/start", commands.Menu("Start", noop, "Старт"))
	reg.RegisterCommand("/start", commands.Menu("Again", noop))

	require.Len(t, reg.Commands(), 1)
	assert.Equal(t, "Start", reg.Commands()["/start"].Description)
}

func TestLookupCommand(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/start", commands.Menu("Start", noop, "Старт"))
	reg.RegisterCommand("/info_log", commands.Admin("Info log", noop))

	for _, name := range []string{"/start", "Старт"} {
		key, _, ok := reg.LookupCommand(name)
		require.True(t, ok, name)
		assert.Equal(t, "/start", key)
	}
	_, cmd, ok := reg.LookupCommand("/info_log")
	require.True(t, ok)
	assert.True(t, cmd.AdminOnly)

	for _, name := range []string{"start", "info_log", "/Старт", "hello", ""} {
		_, _, ok = reg.LookupCommand(name)
		assert.False(t, ok, name)
	}
}

func TestLookupAliasIgnoresCommandNames(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/start", commands.Menu("Start", noop, "Старт"))
	reg.RegisterCommand("/error_log", commands.Admin("Error log", noop))

	key, _, ok := reg.LookupAlias("Старт")
	require.True(t, ok)
	assert.Equal(t, "/start", key)

	for _, text := range []string{"/start", "start", "error_log", "/error_log"} {
		_, _, ok = reg.LookupAlias(text)
		assert.False(t, ok, text)
	}
}

func TestListCommandsBuildsMenu(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/start", commands.Menu("Start", noop))
	reg.RegisterCommand("/help", commands.Menu("Help", noop))
	reg.RegisterCommand("/error_log", commands.Admin("Error log", noop))
	reg.RegisterCommand("/debug", commands.Other("Debug", noop))

	assert.Equal(t, []tele.Command{
		{Text: "help", Description: "Help"},
		{Text: "start", Description: "Start"},
	}, reg.ListCommands(true))
	assert.Len(t, reg.ListCommands(false), 4)
	assert.Equal(t, []string{"help", "start"}, reg.MenuCommands())
}

type commandRecorder struct {
	got []tele.Command
	err error
}

func (r *commandRecorder) SetCommands(opts ...interface{}) error {
	if len(opts) > 0 {
		r.got, _ = opts[0].([]tele.Command)
	}
	return r.err
}

func TestInitBotCommands(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/start", commands.Menu("Start", noop))
	reg.RegisterCommand("/info_log", commands.Admin("Info log", noop))

	rec := &commandRecorder{}
	require.NoError(t, InitBotCommands(rec, reg))
	assert.Equal(t, []tele.Command{{Text: "start", Description: "Start"}}, rec.got)

	rec.err = errors.New("telegram: Unauthorized (401)")
	assert.Error(t, InitBotCommands(rec, reg))
}

func TestRegisterCallback(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCallback("menu", noop))
	require.Error(t, reg.RegisterCallback("menu", noop))
	require.Error(t, reg.RegisterCallback("", noop))
	require.NoError(t, reg.RegisterCallback("about", noop))

	_, ok := reg.GetCallback("menu")
	assert.True(t, ok)
	assert.Equal(t, []string{"about", "menu"}, reg.ListCallbacks())
}
