package router

import (
	"log/slog"

	tg "github.com/m3rciful/dmbot/core/telegram"
	"github.com/m3rciful/dmbot/core/telegram/callbacks"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions sets what happens to callbacks with no registered key.
type CallbackOptions struct {
	// NotFound runs after the query is answered; nil ignores the callback.
	NotFound tele.HandlerFunc
}

// CallbackRoute answers every callback query, then runs the handler
// registered for its key.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler: guard(func(c tele.Context) error {
			if c.Callback() == nil {
				return nil
			}
			key := callbacks.Key(c)
			s := handlerName("callback.", key).with(slog.String("cb_key", key))

			// the client keeps a spinner until the query is answered
			_ = c.Respond()

			h, ok := reg.GetCallback(key)
			if !ok || h == nil {
				s.status = "skip"
				return s.with(slog.String("reason", "not_found")).run(c, opts.NotFound)
			}
			return s.run(c, h)
		}),
	}
}
