package keystore

import (
	"context"
	"errors"
	"testing"
	"time"
)

// countingStore returns scripted key records and counts reads
type countingStore struct {
	reads   int
	records []*SigningKeyRecord // one per read, last repeated
	err     error
}

func (s *countingStore) GetUser(ctx context.Context, orgID string) (*User, error) {
	return &User{OrgID: orgID}, nil
}

func (s *countingStore) LatestKey(ctx context.Context, orgID string) (*SigningKeyRecord, error) {
	s.reads++
	if s.err != nil {
		return nil, s.err
	}
	idx := s.reads - 1
	if idx >= len(s.records) {
		idx = len(s.records) - 1
	}
	return s.records[idx], nil
}

func newTestWaiter(store Store) (*Waiter, *int) {
	w := NewWaiter(store, nil)
	sleeps := 0
	w.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps++
		return nil
	}
	return w, &sleeps
}

func TestWaitFailsFastWhenNoKeyExists(t *testing.T) {
	store := &countingStore{err: ErrKeyNotFound}
	w, sleeps := newTestWaiter(store)

	_, err := w.Wait(context.Background(), "org-1")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
	if store.reads != 1 {
		t.Fatalf("expected 1 read, got %d", store.reads)
	}
	if *sleeps != 0 {
		t.Fatalf("expected no sleeps, got %d", *sleeps)
	}
}

func TestWaitSucceedsOnThirdCheck(t *testing.T) {
	inactive := &SigningKeyRecord{OrgID: "org-1"}
	active := &SigningKeyRecord{OrgID: "org-1", Activated: true}
	store := &countingStore{records: []*SigningKeyRecord{inactive, inactive, active}}
	w, sleeps := newTestWaiter(store)

	rec, err := w.Wait(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if !rec.Activated {
		t.Fatalf("expected activated record")
	}
	if store.reads != 3 {
		t.Fatalf("expected 3 reads, got %d", store.reads)
	}
	if *sleeps != 2 {
		t.Fatalf("expected 2 sleeps, got %d", *sleeps)
	}
}

func TestWaitExhaustsBudget(t *testing.T) {
	inactive := &SigningKeyRecord{OrgID: "org-1"}
	store := &countingStore{records: []*SigningKeyRecord{inactive}}
	w, sleeps := newTestWaiter(store)

	_, err := w.Wait(context.Background(), "org-1")
	if !errors.Is(err, ErrKeyNotReady) {
		t.Fatalf("expected ErrKeyNotReady, got %v", err)
	}
	if store.reads != ActivationMaxAttempts {
		t.Fatalf("expected exactly %d reads, got %d", ActivationMaxAttempts, store.reads)
	}
	if *sleeps != ActivationMaxAttempts-1 {
		t.Fatalf("expected %d sleeps, got %d", ActivationMaxAttempts-1, *sleeps)
	}
}

func TestWaitStopsOnContextCancel(t *testing.T) {
	inactive := &SigningKeyRecord{OrgID: "org-1"}
	store := &countingStore{records: []*SigningKeyRecord{inactive}}
	w := NewWaiter(store, nil)
	w.sleep = func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}

	_, err := w.Wait(context.Background(), "org-1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if store.reads != 1 {
		t.Fatalf("expected 1 read before cancel, got %d", store.reads)
	}
}

func TestMemoryStoreLatestKey(t *testing.T) {
	store := NewMemoryStore()
	store.PutUser(User{OrgID: "org-1"})
	store.PutKey(SigningKeyRecord{OrgID: "org-1", AccountAddress: "0x01"})
	store.PutKey(SigningKeyRecord{OrgID: "org-1", AccountAddress: "0x02"})

	rec, err := store.LatestKey(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("LatestKey failed: %v", err)
	}
	if rec.AccountAddress != "0x02" {
		t.Fatalf("expected newest record, got %s", rec.AccountAddress)
	}

	store.ActivateLatest("org-1")
	rec, err = store.LatestKey(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("LatestKey failed: %v", err)
	}
	if !rec.Activated {
		t.Fatalf("expected activated record")
	}

	if _, err := store.LatestKey(context.Background(), "org-2"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}
