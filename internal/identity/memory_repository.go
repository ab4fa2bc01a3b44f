package identity

import (
	"context"
	"sync"
	"time"
)

type memoryRepository struct {
	mu         sync.RWMutex
	identities map[string]Identity
}

// NewMemoryRepository builds an in-memory identity store for development and
// testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{identities: make(map[string]Identity)}
}

func (r *memoryRepository) Create(_ context.Context, ident Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.identities[ident.Key]; exists {
		return ErrConflict
	}
	r.identities[ident.Key] = ident
	return nil
}

func (r *memoryRepository) FindByKey(_ context.Context, key string) (Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ident, ok := r.identities[key]
	if !ok {
		return Identity{}, ErrNotFound
	}
	return ident, nil
}

func (r *memoryRepository) UpdatePassword(_ context.Context, key string, hash []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ident, ok := r.identities[key]
	if !ok {
		return ErrNotFound
	}
	ident.PasswordHash = hash
	r.identities[key] = ident
	return nil
}

func (r *memoryRepository) UpdateLastLogin(_ context.Context, key string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ident, ok := r.identities[key]
	if !ok {
		return ErrNotFound
	}
	ident.LastLogin = at
	r.identities[key] = ident
	return nil
}
