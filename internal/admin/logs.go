package admin

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/m3rciful/dmbot/core/logger"
)

// DefaultClearDelay is the pause between truncating a log and confirming it.
const DefaultClearDelay = 500 * time.Millisecond

// Document is a log snapshot ready to be sent as a file.
type Document struct {
	Name    string
	Content []byte
}

// DeliverFunc sends a snapshot to whoever asked for it.
type DeliverFunc func(ctx context.Context, doc Document) error

// Result describes a FetchAndClear call.
type Result struct {
	// Empty is true when the file was missing or had no content.
	Empty bool
	Bytes int
}

// ArchiveOptions configures LogArchive.
type ArchiveOptions struct {
	// Delay defaults to DefaultClearDelay; negative disables it.
	Delay time.Duration
	// Flush runs before a file is read so buffered lines are included.
	Flush func() error
	Log   *slog.Logger
}

// LogArchive hands out log files and truncates them afterwards. Calls for
// the same path are serialized.
type LogArchive struct {
	delay time.Duration
	flush func() error
	log   *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLogArchive returns a LogArchive.
func NewLogArchive(opts ArchiveOptions) *LogArchive {
	delay := opts.Delay
	switch {
	case delay == 0:
		delay = DefaultClearDelay
	case delay < 0:
		delay = 0
	}
	return &LogArchive{
		delay: delay,
		flush: opts.Flush,
		log:   opts.Log,
		locks: make(map[string]*sync.Mutex),
	}
}

func (a *LogArchive) lockFor(path string) *sync.Mutex {
	key := filepath.Clean(path)
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.locks[key]
	if !ok {
		l = &sync.Mutex{}
		a.locks[key] = l
	}
	return l
}

// FetchAndClear reads path, passes the content to deliver, truncates the
// file and waits for the configured delay. A missing or empty file yields
// Result{Empty: true} and is left untouched. When deliver fails the file is
// not truncated.
func (a *LogArchive) FetchAndClear(ctx context.Context, path string, deliver DeliverFunc) (Result, error) {
	l := a.lockFor(path)
	l.Lock()
	defer l.Unlock()

	log := logger.Or(a.log, "admin")
	if a.flush != nil {
		if err := a.flush(); err != nil {
			logger.LogEvent(ctx, log, slog.LevelWarn, "log.flush",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
	}

	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return Result{Empty: true}, nil
	case err != nil:
		return Result{}, fmt.Errorf("admin: read %s: %w", path, err)
	case len(content) == 0:
		return Result{Empty: true}, nil
	}

	if err := deliver(ctx, Document{Name: filepath.Base(path), Content: content}); err != nil {
		return Result{}, fmt.Errorf("admin: deliver %s: %w", filepath.Base(path), err)
	}

	if err := os.Truncate(path, 0); err != nil {
		return Result{}, fmt.Errorf("admin: truncate %s: %w", path, err)
	}
	logger.LogEvent(ctx, log, slog.LevelInfo, "log.cleared",
		slog.String("status", "ok"),
		slog.String("log_file", filepath.Base(path)),
		slog.Int("bytes", len(content)),
	)

	if a.delay > 0 {
		timer := time.NewTimer(a.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Result{Bytes: len(content)}, ctx.Err()
		case <-timer.C:
		}
	}
	return Result{Bytes: len(content)}, nil
}
