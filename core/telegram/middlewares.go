package telegram

import (
	"strings"
	"time"

	coreconfig "github.com/m3rciful/dmbot/core/config"
	"github.com/m3rciful/dmbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// DefaultMiddlewares returns the global chain in order: panic recovery, the
// optional per-user rate limit, update logging and send counters.
// onLimited runs for throttled updates; nil drops them silently.
func DefaultMiddlewares(cfg *coreconfig.Config, onLimited tele.HandlerFunc) []Middleware {
	mws := []Middleware{{Name: "recover", Use: middleware.RecoverMiddleware}}
	if limit, ok := rateLimit(cfg, onLimited); ok {
		mws = append(mws, limit)
	}
	return append(mws,
		Middleware{Name: "logger", Use: middleware.LoggerMiddleware},
		Middleware{Name: "metrics", Use: middleware.MessageMetricsMiddleware},
	)
}

func rateLimit(cfg *coreconfig.Config, onLimited tele.HandlerFunc) (Middleware, bool) {
	if cfg == nil || cfg.RateLimit.IntervalMS <= 0 {
		return Middleware{}, false
	}
	opts := middleware.RateLimitOptions{
		Interval:  time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
		Exclude:   make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates)),
		OnLimited: onLimited,
	}
	for _, kind := range cfg.RateLimit.ExcludeUpdates {
		opts.Exclude[strings.ToLower(kind)] = struct{}{}
	}
	return Middleware{Name: "rate_limit", Use: middleware.RateLimitMiddleware(opts)}, true
}
