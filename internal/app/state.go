// Package app provides the Bubble Tea progress view for runs.
package app

import (
	"slices"

	"github.com/j-veylop/mass-rtp-search/internal/models"
	"github.com/j-veylop/mass-rtp-search/internal/services"
)

// maxRecent is how many finished games the view lists.
const maxRecent = 8

// State tracks the progress of the current run. It is owned by the Bubble
// Tea model and only touched from Update.
type State struct {
	active map[int]models.Game
	counts map[models.Status]int
	result *services.RunResult
	err    error
	recent []models.Outcome
	runID  string
	total  int
	done   int
	runs   int
}

// NewState creates an empty state.
func NewState() *State {
	return &State{
		active: make(map[int]models.Game),
		counts: make(map[models.Status]int),
	}
}

// Apply folds a service event into the state.
func (s *State) Apply(event services.ServiceEvent) {
	switch e := event.(type) {
	case services.RunStartedEvent:
		s.reset()
		s.runID = e.RunID
		s.total = e.Total
		s.runs++

	case services.GameStartedEvent:
		s.active[e.Game.Index] = e.Game

	case services.GameFinishedEvent:
		delete(s.active, e.Outcome.Game.Index)
		s.done++
		s.counts[e.Outcome.Status]++
		s.recent = append(s.recent, e.Outcome)
		if len(s.recent) > maxRecent {
			s.recent = s.recent[len(s.recent)-maxRecent:]
		}

	case services.RunFinishedEvent:
		s.result = e.Result
		clear(s.active)
		// Progress events can be dropped under load; the report is exact.
		if e.Result != nil && e.Result.Report != nil {
			c := e.Result.Report.Counts()
			s.counts[models.StatusCached] = c.Cached
			s.counts[models.StatusFetched] = c.Fetched
			s.counts[models.StatusNoMatch] = c.NoMatch
			s.counts[models.StatusQueryFailed] = c.Failed
			s.done = c.Total()
		}

	case services.ErrorEvent:
		s.err = e.Error
	}
}

func (s *State) reset() {
	clear(s.active)
	clear(s.counts)
	s.recent = nil
	s.result = nil
	s.err = nil
	s.done = 0
	s.total = 0
}

// Percent returns the finished share of the current run in [0, 1].
func (s *State) Percent() float64 {
	if s.total == 0 {
		return 0
	}
	return float64(s.done) / float64(s.total)
}

// Active returns the games currently holding a slot, in input order.
func (s *State) Active() []models.Game {
	games := make([]models.Game, 0, len(s.active))
	for _, g := range s.active {
		games = append(games, g)
	}
	slices.SortFunc(games, func(a, b models.Game) int { return a.Index - b.Index })
	return games
}

// Recent returns the last finished outcomes, oldest first.
func (s *State) Recent() []models.Outcome {
	return s.recent
}

// Count returns how many games finished with status.
func (s *State) Count(status models.Status) int {
	return s.counts[status]
}

// Done returns the number of finished games.
func (s *State) Done() int { return s.done }

// Total returns the number of games in the current run.
func (s *State) Total() int { return s.total }

// RunID returns the current run id.
func (s *State) RunID() string { return s.runID }

// Runs returns how many runs have started.
func (s *State) Runs() int { return s.runs }

// Result returns the finished run, if any.
func (s *State) Result() *services.RunResult { return s.result }

// Err returns the last reported error.
func (s *State) Err() error { return s.err }
