// Package cache provides the cache-aside store for RTP search results.
//
// A Store maps (game title, model) to the newest persisted SearchResult.
// Lookup returns (nil, nil) on a miss. Implementations must be safe for
// concurrent use and must not block indefinitely: every operation runs under
// the store's timeout.
package cache

import (
	"context"
	"time"

	"github.com/j-veylop/mass-rtp-search/internal/models"
)

// DefaultTimeout bounds a single store operation when none is configured.
const DefaultTimeout = 5 * time.Second

// Store is the persistent key-value store consumed by the pipeline.
type Store interface {
	Lookup(ctx context.Context, gameTitle, model string) (*models.SearchResult, error)
	Insert(ctx context.Context, r *models.SearchResult) error
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(ctx, d)
}
