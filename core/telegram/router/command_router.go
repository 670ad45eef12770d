package router

import (
	"log/slog"
	"sort"

	"github.com/m3rciful/dmbot/core/logger"
	tg "github.com/m3rciful/dmbot/core/telegram"
	"github.com/m3rciful/dmbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures the admin gate of command routes.
type CommandRouteOptions struct {
	Rights        middleware.RightsChecker
	OnAdminReject tele.HandlerFunc
}

func (o CommandRouteOptions) adminOptions() middleware.AdminOptions {
	return middleware.AdminOptions{Rights: o.Rights, OnReject: o.OnAdminReject}
}

// CommandRoutes returns one route per registered command. Admin-only
// commands are checked before the handler runs or logs anything.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}
	gate := middleware.AdminOnlyMiddleware(opts.adminOptions())

	names := make([]string, 0, len(reg.Commands()))
	for name := range reg.Commands() {
		names = append(names, name)
	}
	sort.Strings(names)

	routes := make([]tg.Route, 0, len(names))
	for _, name := range names {
		cmd := reg.Commands()[name]
		s := handlerName("cmd.", name)
		h := func(c tele.Context) error { return s.run(c, cmd.Handler) }
		if cmd.AdminOnly {
			h = gate(h)
		}
		routes = append(routes, tg.Route{Endpoint: name, Handler: guard(h)})
	}

	logger.Info(logger.Background(), "tg.wire", "tg.wire",
		slog.String("status", "ok"),
		slog.Int("commands", len(names)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}
