package enrich

import "github.com/j-veylop/mass-rtp-search/internal/models"

// EventType defines the type of pipeline event.
type EventType int

const (
	// EventStarted indicates a game was admitted through the gate.
	EventStarted EventType = iota
	// EventFinished indicates a game produced its outcome.
	EventFinished
)

// Event reports pipeline progress. For EventStarted only Outcome.Game is set.
type Event struct {
	Outcome models.Outcome
	Type    EventType
}

// Events returns the progress channel. Events are dropped when nobody reads.
func (p *Pipeline) Events() <-chan Event {
	return p.eventChan
}

// sendEvent sends an event to the event channel non-blocking.
func (p *Pipeline) sendEvent(event Event) {
	select {
	case p.eventChan <- event:
	default:
		// Channel full, drop oldest
		select {
		case <-p.eventChan:
		default:
		}
		select {
		case p.eventChan <- event:
		default:
		}
	}
}
