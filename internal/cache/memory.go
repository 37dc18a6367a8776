package cache

import (
	"context"
	"sync"

	"github.com/j-veylop/mass-rtp-search/internal/models"
)

type memoryKey struct {
	title string
	model string
}

// Memory is an in-process store. Nothing survives the process; useful for
// dry runs and tests.
type Memory struct {
	mu      sync.RWMutex
	entries map[memoryKey]models.SearchResult
	nextID  int64
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[memoryKey]models.SearchResult)}
}

// Lookup implements Store.
func (m *Memory) Lookup(ctx context.Context, gameTitle, model string) (*models.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.entries[memoryKey{gameTitle, model}]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

// Insert implements Store. A later insert for the same key replaces the
// earlier one, matching the newest-wins lookup of the SQL store.
func (m *Memory) Insert(ctx context.Context, r *models.SearchResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	r.ID = m.nextID
	m.entries[memoryKey{r.GameTitle, r.Model}] = *r
	return nil
}

// Len returns the number of stored entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

var _ Store = (*Memory)(nil)
