package session

import (
	"context"
	"sync"
	"time"

	"farmsmart/internal/domain"
)

type memoryRepo struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemory is used when no DSN is configured. Sessions then survive a page
// reload but not a server restart.
func NewMemory() Repository {
	return &memoryRepo{records: make(map[string]Record)}
}

func (r *memoryRepo) Save(_ context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.records[rec.ID]; ok {
		rec.CreatedAt = existing.CreatedAt
	} else {
		rec.CreatedAt = time.Now().UTC()
	}
	r.records[rec.ID] = rec
	return nil
}

func (r *memoryRepo) Get(_ context.Context, id string) (*Record, error) {
	r.mu.RLock()
	rec, ok := r.records[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (r *memoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.records, id)
	return nil
}
