package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/courrier-mf/courrier/internal/courrier"
	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("courrier not found")
)

// Repository is the storage contract the courrier service depends on. Create
// assigns the id (when empty), the next num and the timestamps.
type Repository interface {
	Create(ctx context.Context, d *courrier.Document) error
	Get(ctx context.Context, id string) (*courrier.Document, error)
	List(ctx context.Context) ([]*courrier.Document, error)
	Update(ctx context.Context, d *courrier.Document) error
	Delete(ctx context.Context, id string) error
}

// MemoryRepo is the default register: everything lives in process memory and
// is gone on restart. Stored documents are copies, never the caller's pointer.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]*courrier.Document
	seq   int64
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*courrier.Document)}
}

func (m *MemoryRepo) Create(_ context.Context, d *courrier.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	m.seq++
	d.Num = m.seq
	d.CreatedAt = time.Now().UTC()
	d.UpdatedAt = d.CreatedAt
	m.store[d.ID] = d.Clone()
	return nil
}

func (m *MemoryRepo) Get(_ context.Context, id string) (*courrier.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.store[id]; ok {
		return d.Clone(), nil
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) List(_ context.Context) ([]*courrier.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*courrier.Document, 0, len(m.store))
	for _, d := range m.store {
		out = append(out, d.Clone())
	}
	courrier.SortByNum(out)
	return out, nil
}

// Update replaces the stored document; id, num and createdAt are kept from the
// stored copy.
func (m *MemoryRepo) Update(_ context.Context, d *courrier.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.store[d.ID]
	if !ok {
		return ErrNotFound
	}
	d.Num = cur.Num
	d.CreatedAt = cur.CreatedAt
	d.UpdatedAt = time.Now().UTC()
	m.store[d.ID] = d.Clone()
	return nil
}

func (m *MemoryRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	return nil
}
