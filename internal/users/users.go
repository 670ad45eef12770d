// Package users keeps the registry of people who talk to the bot in private
// chats. A record is keyed by the Telegram user id, which equals the private
// chat id. Records are overwritten but never deleted; a missing record means
// the user is unknown, which is different from an inactive one.
package users

import (
	"context"
	"errors"
	"sort"
	"time"
)

// ErrNotFound is returned by Get for ids without a record.
var ErrNotFound = errors.New("users: not found")

// UserRecord is the registry entry of one private chat.
type UserRecord struct {
	ID          int64     `json:"id" db:"id"`
	DisplayName string    `json:"display_name" db:"display_name"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Store abstracts registry persistence. Implementations are safe for
// concurrent use; concurrent upserts of one id resolve as last write wins.
type Store interface {
	// Get returns the record for id or ErrNotFound.
	Get(ctx context.Context, id int64) (UserRecord, error)
	// Upsert creates or overwrites the record for rec.ID.
	Upsert(ctx context.Context, rec UserRecord) error
	// InsertIfAbsent stores rec only when no record exists yet and reports
	// whether it did.
	InsertIfAbsent(ctx context.Context, rec UserRecord) (bool, error)
	// List returns all records ordered by id.
	List(ctx context.Context) ([]UserRecord, error)
	Close() error
}

// Known reports whether the registry holds a record for id.
func Known(ctx context.Context, s Store, id int64) (bool, error) {
	_, err := s.Get(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func stamp(rec UserRecord) UserRecord {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	return rec
}

func sortByID(recs []UserRecord) {
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
}
