// Package handlers implements the bot's commands and update handlers on top
// of the registry, membership tracker and admin services.
package handlers

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/dmbot/core/logger"
	tg "github.com/m3rciful/dmbot/core/telegram"
	"github.com/m3rciful/dmbot/core/telegram/commands"
	"github.com/m3rciful/dmbot/core/telegram/format"
	tghelpers "github.com/m3rciful/dmbot/core/telegram/helpers"
	"github.com/m3rciful/dmbot/core/telegram/keyboard"
	"github.com/m3rciful/dmbot/internal/admin"
	"github.com/m3rciful/dmbot/internal/locales"
	"github.com/m3rciful/dmbot/internal/membership"
	"github.com/m3rciful/dmbot/internal/users"

	tele "gopkg.in/telebot.v4"
)

// Deps lists what the handlers need.
type Deps struct {
	Store    users.Store
	Rights   *admin.Rights
	Archive  *admin.LogArchive
	Notifier *admin.Notifier
	Tracker  *membership.Tracker
	Texts    *locales.Bundle

	InfoLogPath  string
	ErrorLogPath string
}

// Handlers groups the bot's handler funcs.
type Handlers struct {
	deps Deps
}

// New returns Handlers over deps.
func New(deps Deps) *Handlers {
	return &Handlers{deps: deps}
}

// Register adds every command to reg. Menu commands also match their
// localized label as plain text.
func (h *Handlers) Register(reg *tg.Registry) {
	t := h.deps.Texts
	reg.RegisterCommand("/start", commands.Menu(t.T(locales.MenuStart), h.Start, t.T(locales.MenuStart)))
	reg.RegisterCommand("/help", commands.Menu(t.T(locales.MenuHelp), h.Help, t.T(locales.MenuHelp)))
	reg.RegisterCommand("/info_log", commands.Admin(t.T(locales.AdminInfoLog), h.InfoLog))
	reg.RegisterCommand("/error_log", commands.Admin(t.T(locales.AdminErrorLog), h.ErrorLog))
}

// Start registers a first-time private user, tells the admins about them and
// greets. Private chats also get the menu keyboard.
func (h *Handlers) Start(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	chat, user := c.Chat(), c.Sender()
	private := chat != nil && chat.Type == tele.ChatPrivate
	if private && user != nil {
		name := membership.FullName(user)
		inserted, err := h.deps.Store.InsertIfAbsent(ctx, users.UserRecord{ID: user.ID, DisplayName: name, IsActive: true})
		if err != nil {
			return fmt.Errorf("start: register user %d: %w", user.ID, err)
		}
		if inserted {
			logger.Info(ctx, "store.users", "user.started",
				slog.String("status", "ok"),
				slog.String("actor", logger.SanitizeLimit(name, 128)),
			)
			text := h.deps.Texts.Text(locales.NewUser, map[string]any{
				"Mention": format.MentionMarkdown(user.ID, name),
			})
			h.deps.Notifier.Notify(ctx, text)
		}
	}
	if private {
		return tghelpers.SendText(c, h.deps.Texts.T(locales.Greeting), &tele.SendOptions{ReplyMarkup: h.menu()})
	}
	return tghelpers.SendText(c, h.deps.Texts.T(locales.Greeting))
}

// menu labels match the command aliases, so pressing a button runs the command.
func (h *Handlers) menu() *tele.ReplyMarkup {
	t := h.deps.Texts
	return keyboard.ReplyButtons([]string{t.T(locales.MenuStart), t.T(locales.MenuHelp)})
}

// Help replies with the help text.
func (h *Handlers) Help(c tele.Context) error {
	return tghelpers.SendText(c, h.deps.Texts.T(locales.Help))
}

// InfoLog sends and clears the info log.
func (h *Handlers) InfoLog(c tele.Context) error {
	return h.fetchLog(c, h.deps.InfoLogPath, locales.NoInfoEntries)
}

// ErrorLog sends and clears the error log.
func (h *Handlers) ErrorLog(c tele.Context) error {
	return h.fetchLog(c, h.deps.ErrorLogPath, locales.NoErrorEntries)
}

// fetchLog replies synchronously: document, then the cleared notice.
func (h *Handlers) fetchLog(c tele.Context, path, emptyMsg string) error {
	user := c.Sender()
	if user == nil || !h.deps.Rights.IsAdmin(user.ID) {
		return nil
	}
	ctx := tghelpers.BuildContext(c)

	res, err := h.deps.Archive.FetchAndClear(ctx, path, func(_ context.Context, doc admin.Document) error {
		return c.Reply(&tele.Document{
			File:     tele.FromReader(bytes.NewReader(doc.Content)),
			FileName: doc.Name,
			MIME:     "text/plain",
		})
	})
	if err != nil {
		return err
	}
	if res.Empty {
		return c.Reply(h.deps.Texts.T(emptyMsg))
	}
	logger.Info(ctx, "admin", "log.sent",
		slog.String("status", "ok"),
		slog.Int64("admin_id", user.ID),
		slog.Int("bytes", res.Bytes),
	)
	return c.Reply(h.deps.Texts.T(locales.LogCleared))
}

// MyChatMember feeds membership changes of the bot to the tracker.
func (h *Handlers) MyChatMember(c tele.Context) error {
	ev, ok := membership.EventFromUpdate(c.ChatMember())
	if !ok {
		return nil
	}
	_, err := h.deps.Tracker.Handle(tghelpers.BuildContext(c), ev)
	return err
}

// UnknownText logs plain messages that match no command.
func (h *Handlers) UnknownText(c tele.Context) error {
	logger.Debug(tghelpers.BuildContext(c), "tg", "message.ignored",
		slog.String("status", "skip"),
		slog.Int("text_len", len([]rune(c.Text()))),
	)
	return nil
}
