package logger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"
)

type handlerOptions struct {
	level    slog.Leveler
	writer   *asyncWriter
	format   logFormat
	keyOrder []string
}

// lineHandler writes each record as one line with a stable key order. Group
// names are flattened into dotted keys.
type lineHandler struct {
	level  slog.Leveler
	out    *asyncWriter
	enc    encoder
	order  []string
	attrs  []slog.Attr
	prefix string
}

func newLineHandler(opts handlerOptions) *lineHandler {
	h := &lineHandler{
		level: opts.level,
		out:   opts.writer,
		enc:   kvEncoder{},
		order: opts.keyOrder,
	}
	if h.level == nil {
		h.level = slog.LevelInfo
	}
	if h.order == nil {
		h.order = append([]string(nil), defaultKeyOrder...)
	}
	if opts.format == formatJSON {
		h.enc = jsonEncoder{}
	}
	return h
}

func (h *lineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *lineHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.out == nil {
		return errors.New("logger: writer not initialized")
	}

	fields := make(fieldSet, 16)
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	fields["ts"] = ts.UTC().Truncate(time.Millisecond).Format(timeFormatMillis)
	fields["level"] = levelName(r.Level)

	for _, a := range h.attrs {
		h.add(fields, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.add(fields, a)
		return true
	})
	addContextFields(ctx, fields)
	h.finish(fields, r.Message)

	line, err := h.enc.encode(fields, fields.keys(h.order))
	if err != nil {
		return err
	}
	return h.out.Write(r.Level, append(line, '\n'))
}

// finish fills required keys and drops values that would only add noise.
func (h *lineHandler) finish(fields fieldSet, msg string) {
	if rid := fields.str("rid"); rid != "" {
		if short := CompactRID(rid); short != rid {
			fields["rid"] = short
			if h.enc.keepsFullRID() {
				fields["rid_full"] = rid
			}
		}
	}
	if fields.str("event") == "" {
		fields["event"] = "unknown"
		if msg != "" {
			fields["event"] = msg
		}
	}
	if fields.str("component") == "" {
		fields["component"] = "app"
	}
	if s := fields.str("status"); s != "" {
		fields["status"], _ = normalizeStatus(s)
	}
	if o := fields.str("outcome"); o != "" {
		if v, ok := normalizeOutcome(o); ok {
			fields["outcome"] = v
		} else {
			delete(fields, "outcome")
		}
	}
	fields.prune()
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

func (h *lineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = joinKey(h.prefix, name)
	return &clone
}

func (h *lineHandler) add(fields fieldSet, attr slog.Attr) {
	walkAttr(h.prefix, attr, func(key string, v slog.Value) {
		if key, val, ok := plainValue(key, v); ok {
			fields[key] = val
		}
	})
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	default:
		return prefix + "." + key
	}
}

func walkAttr(prefix string, attr slog.Attr, fn func(string, slog.Value)) {
	key := joinKey(prefix, attr.Key)
	val := attr.Value.Resolve()
	if val.Kind() == slog.KindGroup {
		for _, child := range val.Group() {
			walkAttr(key, child, fn)
		}
		return
	}
	if key != "" {
		fn(key, val)
	}
}

// durationKey makes the millisecond unit part of the key.
func durationKey(key string) string {
	if key == "duration" {
		return "duration_ms"
	}
	if strings.HasSuffix(key, "_ms") {
		return key
	}
	return key + "_ms"
}

// plainValue converts v into something both encoders print the same way.
func plainValue(key string, v slog.Value) (string, any, bool) {
	switch v.Kind() {
	case slog.KindString:
		return key, strings.TrimSpace(v.String()), true
	case slog.KindBool:
		return key, v.Bool(), true
	case slog.KindInt64:
		return key, v.Int64(), true
	case slog.KindUint64:
		u := v.Uint64()
		if u > math.MaxInt64 {
			return key, u, true
		}
		return key, int64(u), true
	case slog.KindFloat64:
		return key, v.Float64(), true
	case slog.KindDuration:
		return durationKey(key), RoundMS(v.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano), true
	}
	switch x := v.Any().(type) {
	case nil:
		return key, nil, false
	case error:
		return key, x.Error(), true
	case fmt.Stringer:
		return key, x.String(), true
	default:
		return key, strings.TrimSpace(fmt.Sprint(x)), true
	}
}

// addContextFields fills in update metadata the record did not set itself.
func addContextFields(ctx context.Context, fields fieldSet) {
	m := MetaFrom(ctx)
	put := func(key string, val any, ok bool) {
		if _, exists := fields[key]; ok && !exists {
			fields[key] = val
		}
	}
	put("rid", m.RID, m.RID != "")
	put("user_id", m.UserID, m.UserID != 0)
	put("update_id", m.UpdateID, m.UpdateID != 0)
	put("chat_id", m.ChatID, m.ChatID != 0)
	put("handler", m.Handler, m.Handler != "")
}
