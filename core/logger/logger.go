package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/dmbot/core/buildinfo"
	coreconfig "github.com/m3rciful/dmbot/core/config"
)

// L is the base logger. It is nil until InitLogger runs.
var L *slog.Logger

var (
	initOnce sync.Once

	mu     sync.Mutex
	out    *asyncWriter
	files  []io.Closer
	closed bool
)

// settings is the logging section resolved to concrete values.
type settings struct {
	console slog.Level
	format  logFormat
	order   []string
	profile string
}

func resolve(cfg *coreconfig.Config) settings {
	s := settings{console: slog.LevelInfo, format: formatJSON, profile: "prod"}
	if cfg == nil {
		s.order = append([]string(nil), defaultKeyOrder...)
		return s
	}
	lc := cfg.Logging
	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		s.profile = p
	}
	s.console = parseLevel(lc.Level)
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		s.format = formatKV
	case "json":
	default:
		if s.profile == "debug" || s.profile == "dev" {
			s.format = formatKV
		}
	}
	s.order = parseKeyOrder(lc.KeysOrder)
	return s
}

func parseLevel(raw string) slog.Level {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "warning") {
		return slog.LevelWarn
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func parseKeyOrder(raw string) []string {
	raw = strings.TrimSpace(raw)
	var order []string
	if raw != "" && raw != "default" {
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				order = append(order, k)
			}
		}
	}
	if len(order) == 0 {
		order = append([]string(nil), defaultKeyOrder...)
	}
	return order
}

// InitLogger configures the global logger and its file sinks. Later calls
// are no-ops.
func InitLogger(cfg *coreconfig.Config) error {
	var err error
	initOnce.Do(func() {
		s := resolve(cfg)
		var sinks []Sink
		sinks, files, err = openSinks(cfg, s.console)
		if err != nil {
			return
		}
		out = newAsyncWriter(sinks, 64*1024)

		L = slog.New(newLineHandler(handlerOptions{
			// the info file needs INFO even when the console is quieter
			level:    min(s.console, slog.LevelInfo),
			writer:   out,
			format:   s.format,
			keyOrder: s.order,
		}))
		slog.SetDefault(L)

		LogEvent(context.Background(), L, slog.LevelInfo, "startup",
			slog.String("component", "app"),
			slog.String("go_version", runtime.Version()),
			slog.String("build_version", buildinfo.Version),
			slog.String("build_commit", buildinfo.Commit),
			slog.String("build_time", buildinfo.Date),
			slog.String("cfg_profile", s.profile),
		)
	})
	return err
}

// openSinks routes stdout by the console level, the info file from INFO and
// the errors file from ERROR. A file that cannot be opened is reported on
// stderr and skipped.
func openSinks(cfg *coreconfig.Config, console slog.Level) ([]Sink, []io.Closer, error) {
	sinks := []Sink{{Writer: os.Stdout, MinLevel: console}}
	if cfg == nil {
		return sinks, nil, nil
	}
	var closers []io.Closer
	for _, f := range []struct {
		path string
		min  slog.Level
	}{
		{cfg.Logging.InfoPath(), slog.LevelInfo},
		{cfg.Logging.ErrorsPath(), slog.LevelError},
	} {
		if f.path == "" {
			continue
		}
		fh, err := openAppend(f.path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logger: %v\n", err)
			continue
		}
		sinks = append(sinks, Sink{Writer: fh, MinLevel: f.min})
		closers = append(closers, fh)
	}
	return sinks, closers, nil
}

func openAppend(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir for %s: %w", path, err)
	}
	fh, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return fh, nil
}

// Flush blocks until every queued line has reached all sinks.
func Flush() error {
	mu.Lock()
	defer mu.Unlock()
	if out == nil || closed {
		return nil
	}
	return out.Flush()
}

// Shutdown flushes pending output and closes the log files.
func Shutdown() error {
	mu.Lock()
	defer mu.Unlock()
	if closed {
		return nil
	}
	closed = true

	var errs []error
	if out != nil {
		errs = append(errs, out.Close())
	}
	for _, c := range files {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
