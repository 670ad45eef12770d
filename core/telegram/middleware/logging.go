package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/dmbot/core/logger"
	"github.com/m3rciful/dmbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/dmbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// seenUpdates remembers update ids for ttl so an update wrapped by the
// logger twice gets a single receipt line.
type seenUpdates struct {
	mu    sync.Mutex
	ttl   time.Duration
	at    map[int]time.Time
	swept time.Time
}

func (s *seenUpdates) first(id int, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.Sub(s.swept) > s.ttl {
		for k, t := range s.at {
			if now.Sub(t) > s.ttl {
				delete(s.at, k)
			}
		}
		s.swept = now
	}
	if t, ok := s.at[id]; ok && now.Sub(t) <= s.ttl {
		return false
	}
	s.at[id] = now
	return true
}

var received = &seenUpdates{ttl: 10 * time.Second, at: make(map[int]time.Time)}

// UpdateKind names the payload carried by upd for logs and rate-limit exclusions.
func UpdateKind(upd tele.Update) string {
	switch {
	case upd.MyChatMember != nil:
		return "my_chat_member"
	case upd.Callback != nil:
		return "callback"
	case upd.Message != nil:
		return "message"
	case upd.Query != nil:
		return "inline_query"
	}
	return "other"
}

// LoggerMiddleware attaches the update context with its rid and writes one
// update.received line per update.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		userID, chatID := tghelpers.IDs(c)
		rid := logger.BuildRID(upd.ID, chatID, userID)
		c.Set("rid", rid)

		ctx := logger.WithUpdateMeta(logger.WithRID(logger.Background(), rid), upd.ID, userID, chatID)
		tghelpers.StoreContext(c, ctx)

		if received.first(upd.ID, time.Now()) {
			logger.Debug(ctx, "tg", "update.received", receipt(c, upd)...)
		}
		return next(c)
	}
}

func receipt(c tele.Context, upd tele.Update) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("status", "ok"),
		slog.String("kind", UpdateKind(upd)),
	}
	add := func(key, val string, limit int) {
		if val != "" {
			attrs = append(attrs, slog.String(key, logger.SanitizeLimit(val, limit)))
		}
	}
	if chat := c.Chat(); chat != nil {
		add("chat_type", string(chat.Type), 32)
	}
	if user := c.Sender(); user != nil {
		add("username", user.Username, 64)
		add("lang", user.LanguageCode, 16)
	}

	switch {
	case upd.Callback != nil:
		data := callbacks.Parse(upd.Callback)
		add("cb_key", data.Key, 128)
		add("payload", data.Payload, 256)
	case upd.Message != nil:
		add("payload", c.Text(), 256)
	case upd.MyChatMember != nil:
		if m := upd.MyChatMember; m.OldChatMember != nil && m.NewChatMember != nil {
			add("transition", string(m.OldChatMember.Role)+"->"+string(m.NewChatMember.Role), 64)
		}
	}
	return attrs
}
