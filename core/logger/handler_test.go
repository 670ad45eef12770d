package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/dmbot/core/config"
)

func newTestHandler(format logFormat, sinks ...Sink) (*lineHandler, *asyncWriter) {
	aw := newAsyncWriter(sinks, 1024)
	h := newLineHandler(handlerOptions{
		level:    slog.LevelDebug,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	return h, aw
}

func TestLineHandlerKVOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(formatKV, Sink{Writer: buf, MinLevel: slog.LevelDebug})
	ctx := WithRID(Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	log := slog.New(handler).With("component", "app")
	LogEvent(ctx, log, slog.LevelInfo, "test.event",
		slog.String("status", "ok"),
		slog.String("cause", "unit"),
	)
	require.NoError(t, aw.Close())

	tokens := strings.Split(strings.TrimSpace(buf.String()), " ")
	require.GreaterOrEqual(t, len(tokens), 6, buf.String())
	expected := []string{"ts=", "level=INFO", "component=app", "event=test.event", "status=ok", "rid=rid-123"}
	for i, prefix := range expected {
		assert.True(t, strings.HasPrefix(tokens[i], prefix), "token %d = %s, expected prefix %s", i, tokens[i], prefix)
	}
}

func TestLineHandlerJSONOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(formatJSON, Sink{Writer: buf, MinLevel: slog.LevelDebug})
	ctx := WithRID(Background(), "rid-json")
	ctx = WithUpdateMeta(ctx, 11, 22, 33)

	log := slog.New(handler).With("component", "members")
	LogEvent(ctx, log, slog.LevelError, "member.leave_failed",
		slog.String("status", "fail"),
		slog.String("err", "boom"),
	)
	require.NoError(t, aw.Close())

	line := strings.TrimSpace(buf.String())
	require.True(t, strings.HasPrefix(line, "{"), line)
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"members"`, `"event":"member.leave_failed"`, `"status":"fail"`, `"rid":"rid-json"`, `"update_id":11`, `"user_id":22`, `"chat_id":33`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		require.True(t, idx > pos, "prefix %s not found in order within %s", pref, line)
		pos = idx
	}
}

func TestLineHandlerCompactRID(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(formatKV, Sink{Writer: buf, MinLevel: slog.LevelDebug})
	rawRID := "123:456:789"
	LogEvent(WithRID(Background(), rawRID), slog.New(handler), slog.LevelInfo, "rid.test")
	require.NoError(t, aw.Close())

	line := buf.String()
	assert.Contains(t, line, "rid="+CompactRID(rawRID))
	assert.NotContains(t, line, "rid_full=")
}

func TestLineHandlerCompactRIDJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(formatJSON, Sink{Writer: buf, MinLevel: slog.LevelDebug})
	rawRID := "12:34:56"
	LogEvent(WithRID(Background(), rawRID), slog.New(handler), slog.LevelInfo, "rid.test")
	require.NoError(t, aw.Close())

	line := buf.String()
	assert.Contains(t, line, `"rid":"`+CompactRID(rawRID)+`"`)
	assert.Contains(t, line, `"rid_full":"`+rawRID+`"`)
}

func TestAsyncWriterRoutesByLevel(t *testing.T) {
	console, info, errs := &bytes.Buffer{}, &bytes.Buffer{}, &bytes.Buffer{}
	handler, aw := newTestHandler(formatKV,
		Sink{Writer: console, MinLevel: slog.LevelDebug},
		Sink{Writer: info, MinLevel: slog.LevelInfo},
		Sink{Writer: errs, MinLevel: slog.LevelError},
	)
	log := slog.New(handler)
	LogEvent(Background(), log, slog.LevelDebug, "debug.line")
	LogEvent(Background(), log, slog.LevelInfo, "info.line")
	LogEvent(Background(), log, slog.LevelError, "error.line")
	require.NoError(t, aw.Flush())

	assert.Equal(t, 3, strings.Count(console.String(), "\n"))
	assert.Equal(t, 2, strings.Count(info.String(), "\n"))
	assert.NotContains(t, info.String(), "debug.line")
	assert.Equal(t, 1, strings.Count(errs.String(), "\n"))
	assert.Contains(t, errs.String(), "event=error.line")

	require.NoError(t, aw.Close())
	assert.Error(t, aw.Write(slog.LevelInfo, []byte("late\n")))
}

func TestDurationAttrsGetUnitSuffix(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(formatKV, Sink{Writer: buf, MinLevel: slog.LevelDebug})
	LogEvent(Background(), slog.New(handler), slog.LevelInfo, "timing",
		slog.Duration("duration", 1500*1000*1000),
		slog.Duration("wait", 2*1000*1000),
	)
	require.NoError(t, aw.Close())

	assert.Contains(t, buf.String(), "duration_ms=1500")
	assert.Contains(t, buf.String(), "wait_ms=2")
}

func TestSanitizeLimit(t *testing.T) {
	assert.Equal(t, "ab\tc", SanitizeLimit("a\x00b\tc\u200b", 10))
	assert.Equal(t, "при", SanitizeLimit("привет", 3))
	assert.Equal(t, "", SanitizeLimit("x", 0))
}

func TestSummarizeStrings(t *testing.T) {
	s, cut := SummarizeStrings([]string{"/help", "/start"}, 5)
	assert.Equal(t, "/help, /start", s)
	assert.False(t, cut)

	s, cut = SummarizeStrings([]string{"a", "b", "c"}, 2)
	assert.Equal(t, "a, b, +1", s)
	assert.True(t, cut)

	s, _ = SummarizeStrings([]string{"a"}, 0)
	assert.Equal(t, "+1", s)
}

func TestLineHandlerFlattensGroups(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(formatKV, Sink{Writer: buf, MinLevel: slog.LevelDebug})
	log := slog.New(handler).WithGroup("db")
	LogEvent(Background(), log, slog.LevelInfo, "grouped",
		slog.Group("pool", slog.Int("open", 3)),
		slog.String("empty", " "),
	)
	require.NoError(t, aw.Close())

	assert.Contains(t, buf.String(), "db.pool.open=3")
	assert.NotContains(t, buf.String(), "db.empty")
}

func TestMetaAccumulates(t *testing.T) {
	ctx := WithRID(Background(), "1:2:3")
	ctx = WithUpdateMeta(ctx, 1, 3, 2)
	ctx = WithHandler(ctx, "start")
	ctx = WithHandler(ctx, "")

	assert.Equal(t, Meta{RID: "1:2:3", UpdateID: 1, UserID: 3, ChatID: 2, Handler: "start"}, MetaFrom(ctx))
	assert.Equal(t, "1:2:3", RIDFrom(ctx))
	assert.Equal(t, Meta{}, MetaFrom(nil))
}

func TestRIDHelpers(t *testing.T) {
	rid := BuildRID(100, -1001234, 42)
	assert.Equal(t, "100:-1001234:42", rid)
	assert.Equal(t, "2s.-lgk2.16", CompactRID(rid))
	assert.Equal(t, "not-a-rid", CompactRID("not-a-rid"))
}

func TestResolveSettings(t *testing.T) {
	s := resolve(nil)
	assert.Equal(t, slog.LevelInfo, s.console)
	assert.Equal(t, formatJSON, s.format)
	assert.Equal(t, defaultKeyOrder, s.order)

	cfg := &coreconfig.Config{}
	cfg.Logging.Level = "warning"
	cfg.Logging.Profile = "Dev"
	cfg.Logging.KeysOrder = "event, level,,ts"
	s = resolve(cfg)
	assert.Equal(t, slog.LevelWarn, s.console)
	assert.Equal(t, formatKV, s.format)
	assert.Equal(t, "dev", s.profile)
	assert.Equal(t, []string{"event", "level", "ts"}, s.order)

	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "json"
	s = resolve(cfg)
	assert.Equal(t, slog.LevelDebug, s.console)
	assert.Equal(t, formatJSON, s.format)
}

func TestLevelName(t *testing.T) {
	assert.Equal(t, "DEBUG", levelName(slog.LevelDebug))
	assert.Equal(t, "INFO", levelName(slog.LevelInfo+2))
	assert.Equal(t, "WARN", levelName(slog.LevelWarn))
	assert.Equal(t, "ERROR", levelName(slog.LevelError+4))
}
