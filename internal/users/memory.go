package users

import (
	"context"
	"sync"
)

// MemoryStore keeps records in process memory only.
type MemoryStore struct {
	mu   sync.RWMutex
	recs map[int64]UserRecord
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[int64]UserRecord)}
}

func (s *MemoryStore) Get(_ context.Context, id int64) (UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recs[id]
	if !ok {
		return UserRecord{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) Upsert(_ context.Context, rec UserRecord) error {
	s.mu.Lock()
	s.recs[rec.ID] = stamp(rec)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) InsertIfAbsent(_ context.Context, rec UserRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recs[rec.ID]; ok {
		return false, nil
	}
	s.recs[rec.ID] = stamp(rec)
	return true, nil
}

func (s *MemoryStore) List(_ context.Context) ([]UserRecord, error) {
	s.mu.RLock()
	out := make([]UserRecord, 0, len(s.recs))
	for _, rec := range s.recs {
		out = append(out, rec)
	}
	s.mu.RUnlock()
	sortByID(out)
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
