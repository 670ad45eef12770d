package users

import (
	"context"
	"database/sql"
	"embed"
	"errors"

	"github.com/jmoiron/sqlx"
)

// Migrations holds the schema for PostgresStore.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations that holds the files.
const MigrationsDir = "migrations"

// PostgresStore keeps records in the bot_users table.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an open connection; the schema must be migrated.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (UserRecord, error) {
	var rec UserRecord
	err := s.db.GetContext(ctx, &rec,
		`SELECT id, display_name, is_active, updated_at FROM bot_users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return UserRecord{}, ErrNotFound
	}
	return rec, err
}

func (s *PostgresStore) Upsert(ctx context.Context, rec UserRecord) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO bot_users (id, display_name, is_active, updated_at)
		VALUES (:id, :display_name, :is_active, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at`, stamp(rec))
	return err
}

func (s *PostgresStore) InsertIfAbsent(ctx context.Context, rec UserRecord) (bool, error) {
	res, err := s.db.NamedExecContext(ctx, `
		INSERT INTO bot_users (id, display_name, is_active, updated_at)
		VALUES (:id, :display_name, :is_active, :updated_at)
		ON CONFLICT (id) DO NOTHING`, stamp(rec))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]UserRecord, error) {
	var recs []UserRecord
	err := s.db.SelectContext(ctx, &recs,
		`SELECT id, display_name, is_active, updated_at FROM bot_users ORDER BY id`)
	return recs, err
}

// Close is a no-op; the connection belongs to the caller.
func (s *PostgresStore) Close() error { return nil }
