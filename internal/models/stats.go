// Package models defines data structures and domain types.
package models

// TotalStats represents overall aggregated API call statistics.
type TotalStats struct {
	TotalCalls        int
	TotalPromptTokens int64
	TotalOutTokens    int64
	AvgDurationMs     float64
	ErrorCount        int
	UniqueGames       int
	UniqueModels      int
}

// CacheStats summarizes the search_results table.
type CacheStats struct {
	Entries      int
	UniqueGames  int
	UniqueModels int
}
