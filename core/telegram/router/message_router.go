package router

import (
	tg "github.com/m3rciful/dmbot/core/telegram"
	"github.com/m3rciful/dmbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// TextOptions sets the handlers for text and documents that match nothing.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// TextRoutes handles plain text and documents. Text equal to a command
// alias, such as a reply keyboard label, runs that command with the same
// admin gate as the slash form.
func TextRoutes(reg *tg.Registry, opts TextOptions, cmdOpts CommandRouteOptions) []tg.Route {
	gate := middleware.AdminOnlyMiddleware(cmdOpts.adminOptions())

	onText := func(c tele.Context) error {
		if text := c.Text(); reg != nil && text != "" {
			if key, cmd, ok := reg.LookupAlias(text); ok && cmd.Handler != nil {
				run := cmd.Handler
				if cmd.AdminOnly {
					run = gate(run)
				}
				return handlerName("cmd.", key).run(c, run)
			}
		}
		return fallback("unknown_text", opts.UnknownText).run(c, opts.UnknownText)
	}
	onDocument := func(c tele.Context) error {
		return fallback("unexpected_document", opts.UnknownDocument).run(c, opts.UnknownDocument)
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: guard(onText)},
		{Endpoint: tele.OnDocument, Handler: guard(onDocument)},
	}
}

// fallback is logged as skipped when no handler is set.
func fallback(name string, h tele.HandlerFunc) summary {
	s := summary{name: name}
	if h == nil {
		s.status = "skip"
	}
	return s
}
