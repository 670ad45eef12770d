// Package reporting forwards handler errors and recovered panics to Sentry.
// Every function is a no-op until Init succeeds with a non-empty DSN.
package reporting

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/m3rciful/dmbot/core/buildinfo"
	coreconfig "github.com/m3rciful/dmbot/core/config"
	"github.com/m3rciful/dmbot/core/logger"
)

var enabled atomic.Bool

// Init configures the Sentry client from cfg.
func Init(cfg coreconfig.SentryConfig) error {
	if cfg.DSN == "" {
		return nil
	}
	env := cfg.Environment
	if env == "" {
		env = "production"
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: env,
		Release:     buildinfo.Version,
	}); err != nil {
		return fmt.Errorf("sentry init: %w", err)
	}
	enabled.Store(true)
	return nil
}

// Enabled reports whether events are being sent.
func Enabled() bool {
	return enabled.Load()
}

// Capture sends err tagged with the request metadata stored in ctx.
func Capture(ctx context.Context, err error) {
	if err == nil || !enabled.Load() {
		return
	}
	hub := sentry.CurrentHub().Clone()
	meta := logger.MetaFrom(ctx)
	hub.ConfigureScope(func(scope *sentry.Scope) {
		if meta.RID != "" {
			scope.SetTag("rid", meta.RID)
		}
		if meta.Handler != "" {
			scope.SetTag("handler", meta.Handler)
		}
		if meta.ChatID != 0 {
			scope.SetTag("chat_id", fmt.Sprint(meta.ChatID))
		}
		if meta.UserID != 0 {
			scope.SetUser(sentry.User{ID: fmt.Sprint(meta.UserID)})
		}
	})
	hub.CaptureException(err)
}

// Recover reports a value obtained from recover().
func Recover(r any) {
	if r == nil || !enabled.Load() {
		return
	}
	sentry.CurrentHub().Recover(r)
}

// Flush waits for buffered events up to timeout.
func Flush(timeout time.Duration) {
	if !enabled.Load() {
		return
	}
	sentry.Flush(timeout)
}
