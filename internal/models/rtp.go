// Package models defines data structures and domain types.
package models

import "time"

// RTPRange is a return-to-player range. A fixed RTP has Min == Max.
// Min <= Max is not enforced: values are kept exactly as reported.
type RTPRange struct {
	Min Percent
	Max Percent
}

// IsFixed reports whether the range describes a single value.
func (r RTPRange) IsFixed() bool {
	return r.Min == r.Max
}

// Game is one work item read from the input file.
type Game struct {
	Title string
	// Index is the position among non-blank input lines, starting at 0.
	Index int
}

// SearchResult is a persisted cache entry keyed by (GameTitle, Model).
type SearchResult struct {
	SearchDate time.Time
	GameTitle  string
	Model      string
	Range      RTPRange
	ID         int64
}
