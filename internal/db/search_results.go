package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/j-veylop/mass-rtp-search/internal/models"
)

// LookupSearchResult returns the newest cached result for a game and model,
// or nil when there is none.
func (db *DB) LookupSearchResult(ctx context.Context, gameTitle, model string) (*models.SearchResult, error) {
	query := `
		SELECT id, game_title, search_date, model, reported_min_rtp, reported_max_rtp
		FROM search_results
		WHERE game_title = ? AND model = ?
		ORDER BY search_date DESC, id DESC
		LIMIT 1
	`

	var r models.SearchResult
	var searchDate string
	var minRTP, maxRTP int64

	err := db.QueryRowContext(ctx, query, gameTitle, model).Scan(
		&r.ID,
		&r.GameTitle,
		&searchDate,
		&r.Model,
		&minRTP,
		&maxRTP,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query search result: %w", err)
	}

	if ts, ok := parseTimeString(searchDate); ok {
		r.SearchDate = ts
	}
	r.Range = models.RTPRange{Min: models.Percent(minRTP), Max: models.Percent(maxRTP)}

	return &r, nil
}

// InsertSearchResult persists a new cache entry inside a transaction and sets
// its ID.
func (db *DB) InsertSearchResult(ctx context.Context, r *models.SearchResult) error {
	searchDate := r.SearchDate
	if searchDate.IsZero() {
		searchDate = time.Now()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO search_results (game_title, search_date, model, reported_min_rtp, reported_max_rtp)
		VALUES (?, ?, ?, ?, ?)
	`,
		r.GameTitle,
		searchDate.UTC().Format(sqlTimeFormat),
		r.Model,
		int64(r.Range.Min),
		int64(r.Range.Max),
	)
	if err != nil {
		return fmt.Errorf("failed to insert search result: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit search result: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		r.ID = id
	}
	return nil
}

// GetCacheStats summarizes the cache table.
func (db *DB) GetCacheStats(ctx context.Context) (*models.CacheStats, error) {
	query := `
		SELECT COUNT(*), COUNT(DISTINCT game_title), COUNT(DISTINCT model)
		FROM search_results
	`

	var stats models.CacheStats
	if err := db.QueryRowContext(ctx, query).Scan(&stats.Entries, &stats.UniqueGames, &stats.UniqueModels); err != nil {
		return nil, fmt.Errorf("failed to query cache stats: %w", err)
	}
	return &stats, nil
}
