// Package models defines data structures and domain types.
package models

import "time"

// Status tags how a single game was resolved.
type Status int

const (
	// StatusCached means the range came from the cache without a query.
	StatusCached Status = iota
	// StatusFetched means the range was queried, parsed and stored.
	StatusFetched
	// StatusNoMatch means the answer contained no RTP marker.
	StatusNoMatch
	// StatusQueryFailed means the query could not be completed.
	StatusQueryFailed
)

// String returns a short lowercase label for logs and summaries.
func (s Status) String() string {
	switch s {
	case StatusCached:
		return "cached"
	case StatusFetched:
		return "fetched"
	case StatusNoMatch:
		return "no-match"
	case StatusQueryFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// OK reports whether the status carries a real range.
func (s Status) OK() bool {
	return s == StatusCached || s == StatusFetched
}

// Outcome is the result of processing one game.
type Outcome struct {
	Err      error
	Game     Game
	Range    RTPRange
	Duration time.Duration
	Status   Status
}

// Reported returns the range written to the report. Soft and hard failures
// collapse to the (0, 0) sentinel here and nowhere else.
func (o Outcome) Reported() RTPRange {
	if !o.Status.OK() {
		return RTPRange{}
	}
	return o.Range
}
