package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/dmbot/core/logger"
	tghelpers "github.com/m3rciful/dmbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures RateLimitMiddleware.
type RateLimitOptions struct {
	Interval time.Duration
	// Exclude lists update kinds, as named by UpdateKind, that are never limited.
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
	// now is replaced in tests.
	now func() time.Time
}

// lastSeen tracks when each user was last let through.
type lastSeen struct {
	mu sync.Mutex
	at map[int64]time.Time
}

// admit records now for user unless the previous admitted update is closer
// than interval.
func (l *lastSeen) admit(user int64, now time.Time, interval time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if prev, ok := l.at[user]; ok && now.Sub(prev) < interval {
		return false
	}
	l.at[user] = now
	return true
}

// RateLimitMiddleware drops updates from a user that arrive within Interval
// of the previous one. Membership updates always pass.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	seen := &lastSeen{at: make(map[int64]time.Time)}
	now := opts.now
	if now == nil {
		now = time.Now
	}
	exempt := func(kind string) bool {
		_, ok := opts.Exclude[kind]
		return ok || kind == "my_chat_member"
	}

	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			kind := UpdateKind(c.Update())
			if user == nil || opts.Interval <= 0 || exempt(kind) {
				return next(c)
			}
			if seen.admit(user.ID, now(), opts.Interval) {
				return next(c)
			}

			logger.Warn(tghelpers.BuildContext(c), "tg", "tg.rate_limit",
				slog.String("status", "rate_limited"),
				slog.String("kind", kind),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}
