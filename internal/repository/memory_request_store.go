package repository

import (
	"context"
	"fmt"
	"sync"

	"StockCast/internal/domain/models"
	"StockCast/internal/domain/repository"

	"github.com/google/uuid"
)

// MemoryRequestStore is the RequestStore used without ClickHouse.
type MemoryRequestStore struct {
	mu   sync.RWMutex
	data map[uuid.UUID]models.Data
}

var _ repository.RequestStore = (*MemoryRequestStore)(nil)

func NewMemoryRequestStore() *MemoryRequestStore {
	return &MemoryRequestStore{data: make(map[uuid.UUID]models.Data)}
}

func (s *MemoryRequestStore) Init(context.Context) error { return nil }

// Save ignores writes older than the stored record.
func (s *MemoryRequestStore) Save(_ context.Context, d *models.Data) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.data[d.ID]; ok && d.UpdatedAt.Before(cur.UpdatedAt) {
		return nil
	}
	cp := *d
	cp.Data = append([]byte(nil), d.Data...)
	s.data[d.ID] = cp
	return nil
}

func (s *MemoryRequestStore) Get(_ context.Context, id uuid.UUID) (*models.Data, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.data[id]
	if !ok {
		return nil, fmt.Errorf("request %s: %w", id, models.ErrNotFound)
	}
	return &d, nil
}

func (s *MemoryRequestStore) Health(context.Context) error { return nil }

func (s *MemoryRequestStore) Close() error { return nil }
