package logger

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	metaKey ctxKey = iota
	loggerKey
)

// Meta identifies the update a log line belongs to. Zero fields are omitted
// from output.
type Meta struct {
	RID      string
	UpdateID int
	UserID   int64
	ChatID   int64
	Handler  string
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// MetaFrom returns the metadata carried by ctx.
func MetaFrom(ctx context.Context) Meta {
	if ctx == nil {
		return Meta{}
	}
	m, _ := ctx.Value(metaKey).(Meta)
	return m
}

// WithMeta replaces the metadata carried by ctx.
func WithMeta(ctx context.Context, m Meta) context.Context {
	return context.WithValue(orBackground(ctx), metaKey, m)
}

func updateMeta(ctx context.Context, fn func(*Meta)) context.Context {
	m := MetaFrom(ctx)
	fn(&m)
	return WithMeta(ctx, m)
}

// WithRID sets the correlation id.
func WithRID(ctx context.Context, rid string) context.Context {
	return updateMeta(ctx, func(m *Meta) { m.RID = rid })
}

// WithUpdateMeta sets the update, user and chat ids.
func WithUpdateMeta(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	return updateMeta(ctx, func(m *Meta) {
		m.UpdateID, m.UserID, m.ChatID = updateID, userID, chatID
	})
}

// WithHandler sets the handler name. An empty name leaves ctx as is.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		return orBackground(ctx)
	}
	return updateMeta(ctx, func(m *Meta) { m.Handler = handler })
}

// RIDFrom returns the correlation id carried by ctx.
func RIDFrom(ctx context.Context) string {
	return MetaFrom(ctx).RID
}

// WithLogger attaches log to ctx; LogEvent falls back to it when no logger
// is passed explicitly.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	ctx = orBackground(ctx)
	if log == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey, log)
}

// FromContext returns the logger attached to ctx, or L.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
			return l
		}
	}
	return L
}
