package otp

import (
	"context"
	"sync"
	"time"
)

type memoryStore struct {
	mu         sync.Mutex
	challenges map[string]*Challenge
	now        func() time.Time
}

// NewMemoryStore builds an in-memory challenge store for development and
// testing.
func NewMemoryStore() Store {
	return &memoryStore{challenges: make(map[string]*Challenge), now: time.Now}
}

func memKey(identityKey string, purpose Purpose) string {
	return string(purpose) + ":" + identityKey
}

func (s *memoryStore) Put(_ context.Context, ch Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := ch
	s.challenges[memKey(ch.IdentityKey, ch.Purpose)] = &copied
	return nil
}

func (s *memoryStore) Get(_ context.Context, identityKey string, purpose Purpose) (Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, err := s.lookup(identityKey, purpose)
	if err != nil {
		return Challenge{}, err
	}
	return *ch, nil
}

func (s *memoryStore) Delete(_ context.Context, identityKey string, purpose Purpose) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.challenges, memKey(identityKey, purpose))
	return nil
}

func (s *memoryStore) RecordAttempt(_ context.Context, identityKey string, purpose Purpose) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, err := s.lookup(identityKey, purpose)
	if err != nil {
		return 0, err
	}
	ch.Attempts++
	return ch.Attempts, nil
}

func (s *memoryStore) Consume(_ context.Context, identityKey string, purpose Purpose) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, err := s.lookup(identityKey, purpose)
	if err != nil {
		return false, err
	}
	if ch.Consumed {
		return false, nil
	}
	ch.Consumed = true
	return true, nil
}

// lookup returns the live record for the pair, purging it when expired.
// Callers must hold the mutex.
func (s *memoryStore) lookup(identityKey string, purpose Purpose) (*Challenge, error) {
	key := memKey(identityKey, purpose)
	ch, ok := s.challenges[key]
	if !ok {
		return nil, ErrNotFound
	}
	if ch.Expired(s.now()) {
		delete(s.challenges, key)
		return nil, ErrNotFound
	}
	return ch, nil
}
