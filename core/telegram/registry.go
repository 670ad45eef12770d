package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/m3rciful/dmbot/core/logger"
	"github.com/m3rciful/dmbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

func wireLog() *slog.Logger { return logger.Component("tg.wire") }

// Registry maps command names and callback keys to handlers. Commands are
// registered during startup; callbacks may be added at any time.
type Registry struct {
	commands map[string]commands.Command

	mu        sync.RWMutex
	callbacks map[string]tele.HandlerFunc
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		callbacks: make(map[string]tele.HandlerFunc),
	}
}

func skipRegistration(kind, name, reason string) {
	wireLog().LogAttrs(context.Background(), slog.LevelWarn, "register."+kind+".skip",
		slog.String("status", "skip"),
		slog.String("name", name),
		slog.String("reason", reason),
	)
}

// RegisterCommand adds cmd under name, which must start with "/". Invalid
// and duplicate registrations are logged and ignored.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) {
	switch {
	case r == nil:
		return
	case !strings.HasPrefix(name, "/") || len(name) == 1:
		skipRegistration("command", name, "no_slash_prefix")
	case cmd.Handler == nil || cmd.Description == "":
		skipRegistration("command", name, "invalid")
	default:
		if _, dup := r.commands[name]; dup {
			skipRegistration("command", name, "duplicate")
			return
		}
		r.commands[name] = cmd
	}
}

// ListCommands returns commands sorted by name. With visibleOnly, hidden
// and admin-only commands are left out; the result is the bot menu. Names
// are returned without the slash, as setMyCommands expects.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	list := make([]tele.Command, 0, len(r.commands))
	for name, cmd := range r.commands {
		if visibleOnly && (cmd.Hidden || cmd.AdminOnly) {
			continue
		}
		list = append(list, tele.Command{Text: strings.TrimPrefix(name, "/"), Description: cmd.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// LookupCommand resolves a registered "/name" or one of the command
// aliases to the registered command.
func (r *Registry) LookupCommand(name string) (string, commands.Command, bool) {
	if cmd, ok := r.commands[name]; ok && strings.HasPrefix(name, "/") {
		return name, cmd, true
	}
	return r.LookupAlias(name)
}

// LookupAlias resolves text that equals a command alias, such as a reply
// keyboard label. Command names themselves never match.
func (r *Registry) LookupAlias(text string) (string, commands.Command, bool) {
	if text == "" {
		return "", commands.Command{}, false
	}
	for key, cmd := range r.commands {
		for _, alias := range cmd.Aliases {
			if alias == text {
				return key, cmd, true
			}
		}
	}
	return "", commands.Command{}, false
}

// MenuCommands returns the names of visible commands in sorted order.
func (r *Registry) MenuCommands() []string {
	list := r.ListCommands(true)
	names := make([]string, len(list))
	for i, c := range list {
		names[i] = c.Text
	}
	return names
}

// Commands returns the registered commands. The map must not be modified.
func (r *Registry) Commands() map[string]commands.Command {
	return r.commands
}

// RegisterCallback routes callback queries with key to handler.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if r == nil || key == "" || handler == nil {
		skipRegistration("callback", key, "invalid")
		return fmt.Errorf("invalid callback registration %q", key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.callbacks[key]; dup {
		skipRegistration("callback", key, "duplicate")
		return fmt.Errorf("callback already registered: %s", key)
	}
	r.callbacks[key] = handler
	return nil
}

// GetCallback returns the handler registered for key.
func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// ListCallbacks returns the registered callback keys, sorted.
func (r *Registry) ListCallbacks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.callbacks))
	for k := range r.callbacks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type commandSetter interface {
	SetCommands(opts ...interface{}) error
}

// InitBotCommands publishes the visible commands as the bot command menu.
func InitBotCommands(bot commandSetter, reg *Registry) error {
	list := reg.ListCommands(true)
	if err := bot.SetCommands(list); err != nil {
		wireLog().LogAttrs(context.Background(), slog.LevelError, "register.commands.set_failed",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("set commands: %w", err)
	}
	preview, _ := logger.SummarizeStrings(reg.MenuCommands(), 10)
	wireLog().LogAttrs(context.Background(), slog.LevelInfo, "register.commands.set",
		slog.String("status", "ok"),
		slog.Int("commands", len(list)),
		slog.String("menu", preview),
	)
	return nil
}
