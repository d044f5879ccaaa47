package keystore

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store for development and tests
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]User
	keys  map[string][]SigningKeyRecord // org -> records, newest last
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]User),
		keys:  make(map[string][]SigningKeyRecord),
	}
}

// PutUser registers a user
func (s *MemoryStore) PutUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.OrgID] = u
}

// PutKey appends a key record for an org
func (s *MemoryStore) PutKey(rec SigningKeyRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[rec.OrgID] = append(s.keys[rec.OrgID], rec)
}

// ActivateLatest flips the newest record for an org to activated
func (s *MemoryStore) ActivateLatest(orgID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := s.keys[orgID]
	if len(recs) > 0 {
		recs[len(recs)-1].Activated = true
	}
}

func (s *MemoryStore) GetUser(_ context.Context, orgID string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[orgID]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := u
	return &copied, nil
}

func (s *MemoryStore) LatestKey(_ context.Context, orgID string) (*SigningKeyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := s.keys[orgID]
	if len(recs) == 0 {
		return nil, ErrKeyNotFound
	}
	copied := recs[len(recs)-1]
	return &copied, nil
}
