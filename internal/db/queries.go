package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/j-veylop/mass-rtp-search/internal/logger"
	"github.com/j-veylop/mass-rtp-search/internal/models"
)

// InsertAPICall logs a completion request to the database.
func (db *DB) InsertAPICall(ctx context.Context, call *models.APICall) error {
	query := `
		INSERT INTO api_calls (
			timestamp, run_id, game_title, model, prompt_tokens, completion_tokens,
			total_tokens, duration_ms, status_code, error, request_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	timestamp := call.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	result, err := db.ExecContext(ctx, query,
		timestamp.UTC().Format(sqlTimeFormat),
		call.RunID,
		call.GameTitle,
		call.Model,
		call.PromptTokens,
		call.CompletionTokens,
		call.TotalTokens,
		call.DurationMs,
		call.StatusCode,
		nullString(call.Error),
		nullString(call.RequestID),
	)
	if err != nil {
		return fmt.Errorf("failed to insert API call: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		call.ID = id
	}

	return nil
}

// GetRecentAPICalls returns the most recent API calls.
func (db *DB) GetRecentAPICalls(ctx context.Context, limit int) ([]models.APICall, error) {
	query := `
		SELECT id, timestamp, run_id, game_title, model, prompt_tokens,
			   completion_tokens, total_tokens, duration_ms, status_code,
			   error, request_id
		FROM api_calls
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`

	rows, err := db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent API calls: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("failed to close rows", "error", err)
		}
	}()

	var calls []models.APICall
	for rows.Next() {
		var call models.APICall
		var timestamp string
		var errStr, reqID sql.NullString

		err := rows.Scan(
			&call.ID,
			&timestamp,
			&call.RunID,
			&call.GameTitle,
			&call.Model,
			&call.PromptTokens,
			&call.CompletionTokens,
			&call.TotalTokens,
			&call.DurationMs,
			&call.StatusCode,
			&errStr,
			&reqID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan API call: %w", err)
		}

		if ts, ok := parseTimeString(timestamp); ok {
			call.Timestamp = ts
		}
		call.Error = errStr.String
		call.RequestID = reqID.String
		calls = append(calls, call)
	}

	return calls, rows.Err()
}

// GetTotalStats returns aggregated statistics over all API calls, or over a
// single run when runID is not empty.
func (db *DB) GetTotalStats(ctx context.Context, runID string) (*models.TotalStats, error) {
	query := `
		SELECT
			COUNT(*) as total_calls,
			COALESCE(SUM(prompt_tokens), 0) as total_prompt,
			COALESCE(SUM(completion_tokens), 0) as total_completion,
			COALESCE(AVG(duration_ms), 0) as avg_duration,
			COALESCE(SUM(CASE WHEN status_code >= 400 OR error IS NOT NULL THEN 1 ELSE 0 END), 0) as error_count,
			COUNT(DISTINCT game_title) as unique_games,
			COUNT(DISTINCT model) as unique_models
		FROM api_calls
		WHERE (? = '' OR run_id = ?)
	`

	var stats models.TotalStats
	err := db.QueryRowContext(ctx, query, runID, runID).Scan(
		&stats.TotalCalls,
		&stats.TotalPromptTokens,
		&stats.TotalOutTokens,
		&stats.AvgDurationMs,
		&stats.ErrorCount,
		&stats.UniqueGames,
		&stats.UniqueModels,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query total stats: %w", err)
	}

	return &stats, nil
}

// nullString returns a sql.NullString from a string.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
