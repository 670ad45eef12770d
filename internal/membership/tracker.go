package membership

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/dmbot/core/logger"
	"github.com/m3rciful/dmbot/internal/users"
)

// Transition names what a status change meant for the bot.
type Transition string

const (
	TransitionNone      Transition = ""
	TransitionUnblocked Transition = "unblocked"
	TransitionBlocked   Transition = "blocked"
	TransitionAdded     Transition = "added"
	TransitionRemoved   Transition = "removed"
)

// Leaver makes the bot leave a chat.
type Leaver interface {
	Leave(ctx context.Context, chatID int64) error
}

// Outcome reports what Handle did.
type Outcome struct {
	Transition Transition
	// Left is true when the bot tried to leave the chat.
	Left     bool
	LeaveErr error
}

// Tracker applies membership events to the user registry.
type Tracker struct {
	store  users.Store
	leaver Leaver
	log    *slog.Logger
}

// NewTracker builds a Tracker. A nil log falls back to the members component.
func NewTracker(store users.Store, leaver Leaver, log *slog.Logger) *Tracker {
	return &Tracker{store: store, leaver: leaver, log: log}
}

func (t *Tracker) lg() *slog.Logger {
	return logger.Or(t.log, "members")
}

// Handle applies ev. Only registry failures are returned; a failed leave is
// logged and reported in the outcome.
func (t *Tracker) Handle(ctx context.Context, ev Event) (Outcome, error) {
	was, is, ok := ev.StatusChange()
	if !ok || ev.Actor.IsBot {
		return Outcome{}, nil
	}

	tr := transition(ev.Chat.Kind, was, is)
	if tr == TransitionNone {
		return Outcome{}, nil
	}

	attrs := []slog.Attr{
		slog.String("transition", string(tr)),
		slog.String("chat_ref", NormalizeChatID(ev.Chat.ID)),
		slog.String("chat_type", string(ev.Chat.Kind)),
		slog.String("actor", logger.SanitizeLimit(ev.Actor.Name, 128)),
		slog.Int64("actor_id", ev.Actor.ID),
	}
	if ev.Chat.Kind != KindPrivate && ev.Chat.Title != "" {
		attrs = append(attrs, slog.String("chat_title", logger.SanitizeLimit(ev.Chat.Title, 128)))
	}

	out := Outcome{Transition: tr}
	switch tr {
	case TransitionUnblocked, TransitionBlocked:
		rec := users.UserRecord{ID: ev.Chat.ID, DisplayName: ev.Actor.Name, IsActive: tr == TransitionUnblocked}
		if err := t.store.Upsert(ctx, rec); err != nil {
			return out, fmt.Errorf("membership: upsert %d: %w", rec.ID, err)
		}
		logger.LogEvent(ctx, t.lg(), slog.LevelInfo, "member."+string(tr), attrs...)
	case TransitionAdded:
		logger.LogEvent(ctx, t.lg(), slog.LevelInfo, "member.added", attrs...)
		out.Left = true
		out.LeaveErr = t.leave(ctx, ev.Chat)
	case TransitionRemoved:
		logger.LogEvent(ctx, t.lg(), slog.LevelInfo, "member.removed", attrs...)
	}
	return out, nil
}

func (t *Tracker) leave(ctx context.Context, chat Chat) error {
	if t.leaver == nil {
		return nil
	}
	err := t.leaver.Leave(ctx, chat.ID)
	level := slog.LevelInfo
	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.String("chat_ref", NormalizeChatID(chat.ID)),
		slog.String("chat_type", string(chat.Kind)),
	}
	if err != nil {
		level = slog.LevelError
		attrs = append(attrs, slog.String("err", err.Error()))
	}
	logger.LogEvent(ctx, t.lg(), level, "member.leave", attrs...)
	return err
}

func transition(kind ChatKind, was, is bool) Transition {
	switch {
	case !was && is:
		if kind == KindPrivate {
			return TransitionUnblocked
		}
		return TransitionAdded
	case was && !is:
		if kind == KindPrivate {
			return TransitionBlocked
		}
		return TransitionRemoved
	}
	return TransitionNone
}
