package storage

import (
	"context"
	"sync"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo keeps the token keys for the lifetime of the process only
type InMemoryRepo struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		values: make(map[string]string),
	}
}

func (r *InMemoryRepo) Load(_ context.Context) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record := Record{
		AuthToken:    r.values[KeyAuthToken],
		RefreshToken: r.values[KeyRefreshToken],
	}
	if !record.complete() {
		return Record{}, ErrNotFound
	}
	return record, nil
}

func (r *InMemoryRepo) Save(_ context.Context, record Record) error {
	if err := validate(record); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.values[KeyAuthToken] = record.AuthToken
	r.values[KeyRefreshToken] = record.RefreshToken
	return nil
}

func (r *InMemoryRepo) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.values, KeyAuthToken)
	delete(r.values, KeyRefreshToken)
	return nil
}

// Keys returns the keys currently held, for inspection in tests
func (r *InMemoryRepo) Keys() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make(map[string]string, len(r.values))
	for k, v := range r.values {
		keys[k] = v
	}
	return keys
}

func (r *InMemoryRepo) Close() error {
	return nil
}
