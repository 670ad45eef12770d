package router

import (
	"context"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/dmbot/core/logger"
	tghelpers "github.com/m3rciful/dmbot/core/telegram/helpers"
	"github.com/m3rciful/dmbot/core/telegram/middleware"
	"github.com/m3rciful/dmbot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

var timeNow = time.Now

// guard adds panic recovery and the receipt log line to h.
func guard(h tele.HandlerFunc) tele.HandlerFunc {
	return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
}

// summary names a handler run and what to add to its handler.handled line.
type summary struct {
	name string
	// status replaces the one derived from the handler error.
	status string
	extras []slog.Attr
}

func handlerName(prefix, key string) summary {
	key = strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(strings.TrimSpace(key), "/"), " ", "_"))
	if key == "" {
		key = "unknown"
	}
	return summary{name: prefix + key}
}

func (s summary) with(attrs ...slog.Attr) summary {
	s.extras = append(append([]slog.Attr(nil), s.extras...), attrs...)
	return s
}

// run calls fn, tagging the update context with the handler name, and logs
// the outcome. A nil fn only logs.
func (s summary) run(c tele.Context, fn tele.HandlerFunc) error {
	start := timeNow()
	ctx := tghelpers.WithHandler(c, s.name)
	var err error
	if fn != nil {
		err = fn(c)
	}
	s.log(ctx, c, start, err)
	return err
}

func (s summary) log(ctx context.Context, c tele.Context, start time.Time, err error) {
	sent := middleware.GetCounters(c)
	status := s.status
	if status == "" {
		status = logger.Status(err)
	}
	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("handler", s.name),
		slog.String("outcome", logger.Status(err)),
		slog.Int("messages", sent.Messages),
		slog.Int("documents", sent.Documents),
		slog.Bool("kb", sent.Keyboard),
		slog.Duration("duration", logger.Took(start)),
	}
	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelWarn
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(netutil.RedactToken(err.Error()), 256)),
			slog.String("err_code", errorCode(err)),
			slog.String("error_kind", netutil.ClassifyError(err)),
		)
	}
	logger.Event(ctx, "tg", level, "handler.handled", append(attrs, s.extras...)...)
}

// errorCode prefers an explicit Code() and falls back to the error type name.
func errorCode(err error) string {
	if c, ok := err.(interface{ Code() string }); ok {
		if code := strings.TrimSpace(c.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return "UNKNOWN_ERROR"
	}
	return strings.ToUpper(t.Name())
}
