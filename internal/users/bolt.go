package users

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketUsers = []byte("users")

// BoltStore persists records in a bbolt file, one JSON value per user keyed
// by the decimal id.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens or creates the database file at path.
func OpenBolt(path string) (*BoltStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("users: create dir: %w", err)
		}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("users: open bolt: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, e := tx.CreateBucketIfNotExists(bucketUsers)
		return e
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("users: create bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func boltKey(id int64) []byte {
	return []byte(strconv.FormatInt(id, 10))
}

func (s *BoltStore) Get(_ context.Context, id int64) (UserRecord, error) {
	var rec UserRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketUsers).Get(boltKey(id))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &rec)
	})
	return rec, err
}

func (s *BoltStore) Upsert(_ context.Context, rec UserRecord) error {
	b, err := json.Marshal(stamp(rec))
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketUsers).Put(boltKey(rec.ID), b)
	})
}

func (s *BoltStore) InsertIfAbsent(_ context.Context, rec UserRecord) (bool, error) {
	b, err := json.Marshal(stamp(rec))
	if err != nil {
		return false, err
	}
	inserted := false
	err = s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketUsers)
		if bucket.Get(boltKey(rec.ID)) != nil {
			return nil
		}
		inserted = true
		return bucket.Put(boltKey(rec.ID), b)
	})
	return inserted, err
}

func (s *BoltStore) List(_ context.Context) ([]UserRecord, error) {
	var recs []UserRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketUsers).ForEach(func(_, v []byte) error {
			var rec UserRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			recs = append(recs, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	// keys sort lexically, not numerically
	sortByID(recs)
	return recs, nil
}

func (s *BoltStore) Close() error { return s.db.Close() }
