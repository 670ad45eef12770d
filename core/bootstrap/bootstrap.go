package bootstrap

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/dmbot/core/config"
	coredatabase "github.com/m3rciful/dmbot/core/database"
	"github.com/m3rciful/dmbot/core/logger"
	"github.com/m3rciful/dmbot/core/reporting"
)

// Options control the generic bootstrap pipeline shared between bots.
type Options struct {
	Config *coreconfig.Config
	// Database is nil when the bot runs without Postgres.
	Database   *coredatabase.Config
	Migrations coredatabase.Source

	LoggerInit    func(*coreconfig.Config) error
	ReportingInit func(coreconfig.SentryConfig) error
	Connect       func(coredatabase.Config) (*sqlx.DB, error)
	Migrate       func(coredatabase.Config, coredatabase.Source) error
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	DB *sqlx.DB
}

// Run initializes the logger and error reporting, then connects to the
// database and applies migrations when one is configured.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	reportingInit := opts.ReportingInit
	if reportingInit == nil {
		reportingInit = reporting.Init
	}
	if err := reportingInit(opts.Config.Sentry); err != nil {
		return nil, fmt.Errorf("bootstrap: reporting init failed: %w", err)
	}

	if opts.Database == nil {
		return &Result{}, nil
	}

	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	db, err := connect(*opts.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}
	if err := migrate(*opts.Database, opts.Migrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}

	return &Result{DB: db}, nil
}
