package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/j-veylop/mass-rtp-search/internal/models"
)

// Redis stores one JSON document per (model, game title) key. Entries never
// expire. SETNX keeps the first entry written for a key.
type Redis struct {
	rdb     *redis.Client
	prefix  string
	timeout time.Duration
}

// RedisOption configures a Redis store.
type RedisOption func(*Redis)

// WithRedisPrefix sets the key prefix (default "rtp").
func WithRedisPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		if p := strings.Trim(prefix, ":"); p != "" {
			r.prefix = p
		}
	}
}

// WithRedisTimeout bounds each store operation.
func WithRedisTimeout(d time.Duration) RedisOption {
	return func(r *Redis) { r.timeout = d }
}

// NewRedis wraps a connected client.
func NewRedis(rdb *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{
		rdb:     rdb,
		prefix:  "rtp",
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type redisEntry struct {
	SearchDate time.Time `json:"searchDate"`
	GameTitle  string    `json:"gameTitle"`
	Model      string    `json:"model"`
	MinRTP     int64     `json:"minRtp"`
	MaxRTP     int64     `json:"maxRtp"`
}

func (r *Redis) key(model, gameTitle string) string {
	return fmt.Sprintf("%s:result:%s:%s", r.prefix, model, gameTitle)
}

// Lookup implements Store.
func (r *Redis) Lookup(ctx context.Context, gameTitle, model string) (*models.SearchResult, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	data, err := r.rdb.Get(ctx, r.key(model, gameTitle)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached result: %w", err)
	}

	var e redisEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to decode cached result: %w", err)
	}

	return &models.SearchResult{
		GameTitle:  e.GameTitle,
		Model:      e.Model,
		SearchDate: e.SearchDate,
		Range:      models.RTPRange{Min: models.Percent(e.MinRTP), Max: models.Percent(e.MaxRTP)},
	}, nil
}

// Insert implements Store. A later insert for the same key overwrites the
// earlier one, so lookups return the newest entry like the other stores.
func (r *Redis) Insert(ctx context.Context, res *models.SearchResult) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	searchDate := res.SearchDate
	if searchDate.IsZero() {
		searchDate = time.Now()
	}

	data, err := json.Marshal(redisEntry{
		SearchDate: searchDate.UTC(),
		GameTitle:  res.GameTitle,
		Model:      res.Model,
		MinRTP:     int64(res.Range.Min),
		MaxRTP:     int64(res.Range.Max),
	})
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	if err := r.rdb.Set(ctx, r.key(res.Model, res.GameTitle), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()
	return r.rdb.Ping(ctx).Err()
}

var _ Store = (*Redis)(nil)
