// Package models defines data structures and domain types.
package models

import "time"

// APICall represents a logged completion request to the database.
type APICall struct {
	Timestamp        time.Time
	Error            string
	RunID            string
	GameTitle        string
	Model            string
	RequestID        string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	DurationMs       int
	StatusCode       int
	ID               int64
}

// Completion is the text answer of one completion request plus its usage.
type Completion struct {
	Text             string
	RequestID        string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
