package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/m3rciful/dmbot/core/logger"
)

const migrateWaitTimeout = 30 * time.Second

// Source locates migration files inside an fs.FS, usually an embed.FS.
type Source struct {
	FS  fs.FS
	Dir string
}

// upFiles lists the *.up.sql files of src in name order, which is version
// order for zero-padded prefixes.
func (s Source) upFiles() []string {
	if s.FS == nil {
		return nil
	}
	entries, err := fs.ReadDir(s.FS, s.Dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names
}

// fileVersion parses the numeric prefix of a migration file name.
func fileVersion(name string) uint64 {
	prefix, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(prefix, 10, 64)
	return v
}

// selectApplied returns the files whose version lies in (from, to].
func selectApplied(files []string, from, to uint64) []string {
	var out []string
	for _, f := range files {
		if v := fileVersion(f); v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}

// RunMigrations waits for the server and applies every pending up migration
// from src.
func RunMigrations(cfg Config, src Source) error {
	ctx := context.Background()
	log := logger.Component("db.migrate")
	fail := func(stage string, err error, attrs ...slog.Attr) error {
		logger.LogEvent(ctx, log, slog.LevelError, "db.migrate", append(attrs,
			slog.String("status", "fail"),
			slog.String("cause", stage),
			slog.String("err", err.Error()),
		)...)
		return fmt.Errorf("migrations %s: %w", stage, err)
	}

	dsn := cfg.URL()
	if err := WaitForPostgres(dsn, migrateWaitTimeout); err != nil {
		return fail("wait", err)
	}

	files := src.upFiles()
	preview, _ := logger.SummarizeStrings(files, 6)
	logger.LogEvent(ctx, log, slog.LevelDebug, "db.migrate.resolve",
		slog.String("path", src.Dir),
		slog.Int("files_total", len(files)),
		slog.String("files", preview),
	)

	driver, err := iofs.New(src.FS, src.Dir)
	if err != nil {
		return fail("source", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", driver, dsn)
	if err != nil {
		return fail("init", err)
	}
	defer m.Close()

	from, _, _ := m.Version()
	start := time.Now()
	err = m.Up()
	took := logger.RoundMS(time.Since(start))
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fail("apply", err, slog.Duration("duration", took))
	}

	to, _, _ := m.Version()
	applied := selectApplied(files, uint64(from), uint64(to))
	appliedPreview, _ := logger.SummarizeStrings(applied, 6)
	logger.LogEvent(ctx, log, slog.LevelInfo, "db.migrate",
		slog.String("status", "ok"),
		slog.Uint64("from_ver", uint64(from)),
		slog.Uint64("to_ver", uint64(to)),
		slog.Int("files", len(applied)),
		slog.String("applied", appliedPreview),
		slog.Duration("duration", took),
	)
	return nil
}
