package helpers

import (
	"context"

	"github.com/m3rciful/dmbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// ctxKey holds the per-update logging context inside tele.Context.
const ctxKey = "dmbot.ctx"

// StoreContext attaches ctx to c so later BuildContext calls return it.
func StoreContext(c tele.Context, ctx context.Context) {
	if c == nil || ctx == nil {
		return
	}
	c.Set(ctxKey, ctx)
}

func stored(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	ctx, ok := c.Get(ctxKey).(context.Context)
	return ctx, ok && ctx != nil
}

// IDs returns the sender and chat of the update carried by c; zero when absent.
func IDs(c tele.Context) (userID, chatID int64) {
	if u := c.Sender(); u != nil {
		userID = u.ID
	}
	if ch := c.Chat(); ch != nil {
		chatID = ch.ID
	}
	return userID, chatID
}

// BuildContext returns the logging context of the update carried by c:
// request id, update/user/chat ids and the tg component logger. It is built
// once per update and cached on c.
func BuildContext(c tele.Context) context.Context {
	if ctx, ok := stored(c); ok {
		return ctx
	}

	updateID := c.Update().ID
	userID, chatID := IDs(c)
	rid, _ := c.Get("rid").(string)
	if rid == "" {
		rid = logger.BuildRID(updateID, chatID, userID)
	}

	ctx := logger.WithRID(context.Background(), rid)
	ctx = logger.WithUpdateMeta(ctx, updateID, userID, chatID)
	ctx = logger.WithLogger(ctx, logger.Component("tg"))
	StoreContext(c, ctx)
	return ctx
}

// WithHandler tags the cached context with the running handler's name.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler != "" {
		ctx = logger.WithHandler(ctx, handler)
		StoreContext(c, ctx)
	}
	return ctx
}
