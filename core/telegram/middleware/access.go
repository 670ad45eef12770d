package middleware

import (
	"log/slog"

	"github.com/m3rciful/dmbot/core/logger"
	tghelpers "github.com/m3rciful/dmbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RightsChecker decides whether a user may run admin commands.
type RightsChecker interface {
	IsAdmin(userID int64) bool
}

// AdminOptions defines how admin-only checks should behave.
type AdminOptions struct {
	Rights RightsChecker
	// OnReject runs instead of the handler; nil rejects silently.
	OnReject tele.HandlerFunc
}

func allowed(rights RightsChecker, c tele.Context) bool {
	if rights == nil {
		return false
	}
	user := c.Sender()
	return user != nil && rights.IsAdmin(user.ID)
}

// AdminOnlyMiddleware ensures that only admins can invoke downstream handlers.
// Without a RightsChecker every call is rejected.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if allowed(opts.Rights, c) {
				return next(c)
			}
			ctx := tghelpers.BuildContext(c)
			logger.Debug(ctx, "admin", "rights.denied",
				slog.String("status", "denied"),
				slog.String("cmd", logger.SanitizeLimit(c.Text(), 64)),
			)
			if opts.OnReject != nil {
				return opts.OnReject(c)
			}
			return nil
		}
	}
}
