package cache

import (
	"context"
	"time"

	"github.com/j-veylop/mass-rtp-search/internal/db"
	"github.com/j-veylop/mass-rtp-search/internal/models"
)

// SQLite stores results in the search_results table.
type SQLite struct {
	db      *db.DB
	timeout time.Duration
}

// NewSQLite wraps an open database.
func NewSQLite(database *db.DB, timeout time.Duration) *SQLite {
	return &SQLite{db: database, timeout: timeout}
}

// Lookup implements Store.
func (s *SQLite) Lookup(ctx context.Context, gameTitle, model string) (*models.SearchResult, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	return s.db.LookupSearchResult(ctx, gameTitle, model)
}

// Insert implements Store.
func (s *SQLite) Insert(ctx context.Context, r *models.SearchResult) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	return s.db.InsertSearchResult(ctx, r)
}

var _ Store = (*SQLite)(nil)
