// Package enrich runs the per-game lookup pipeline.
//
// Every game passes the concurrency gate, checks the cache and, only on a
// miss, waits for a rate permit before querying. Each game yields exactly one
// models.Outcome regardless of how it failed.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/j-veylop/mass-rtp-search/internal/cache"
	"github.com/j-veylop/mass-rtp-search/internal/logger"
	"github.com/j-veylop/mass-rtp-search/internal/models"
	"github.com/j-veylop/mass-rtp-search/internal/rtp"
)

// DefaultSystemPrompt instructs the model to answer in the RTP: format.
const DefaultSystemPrompt = "You are a casino game expert. Respond with the RTP (Return to Player) " +
	"percentage (100 = 100%) for the specified game in this exact format: 'RTP: <min>-<max>' " +
	"or 'RTP: <fixed>' if there's only one value. Use the minimum RTP if multiple configurations " +
	"exist. Make sure the response contains the RTP line unless you cannot find it. Restate it " +
	"at the end of your response in the EXACT format: 'RTP: <min>-<max>' or 'RTP: <fixed>'"

// Querier answers a single question.
type Querier interface {
	Ask(ctx context.Context, model, system, question string) (models.Completion, error)
}

// Limiter hands out rate permits.
type Limiter interface {
	Acquire(ctx context.Context) error
}

// Gate admits a bounded number of callers. release must be called once.
type Gate interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// CallRecorder persists one row per query.
type CallRecorder interface {
	InsertAPICall(ctx context.Context, call *models.APICall) error
}

// Config holds the per-run settings of a Pipeline.
type Config struct {
	Model        string
	SystemPrompt string
	RunID        string
}

// Pipeline resolves games to RTP ranges.
type Pipeline struct {
	querier   Querier
	store     cache.Store
	limiter   Limiter
	gate      Gate
	recorder  CallRecorder
	eventChan chan Event
	cfg       Config
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRecorder stores an audit row for every query.
func WithRecorder(r CallRecorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// New creates a pipeline.
func New(cfg Config, querier Querier, store cache.Store, limiter Limiter, gate Gate, opts ...Option) *Pipeline {
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	p := &Pipeline{
		querier:   querier,
		store:     store,
		limiter:   limiter,
		gate:      gate,
		eventChan: make(chan Event, 100),
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Question returns the user message sent for a game.
func Question(gameTitle string) string {
	return fmt.Sprintf("What is the RTP of %s?", gameTitle)
}

// Run processes all games concurrently and returns one outcome per game,
// in completion order.
func (p *Pipeline) Run(ctx context.Context, games []models.Game) []models.Outcome {
	c := newCollector(len(games), func(o models.Outcome) {
		p.sendEvent(Event{Type: EventFinished, Outcome: o})
	})

	var g errgroup.Group
	for _, game := range games {
		g.Go(func() error {
			c.add(p.process(ctx, game))
			return nil
		})
	}
	_ = g.Wait()

	return c.drain()
}

func (p *Pipeline) process(ctx context.Context, game models.Game) models.Outcome {
	start := time.Now()
	outcome := p.resolve(ctx, game)
	outcome.Game = game
	outcome.Duration = time.Since(start)

	attrs := []any{
		"game", game.Title,
		"model", p.cfg.Model,
		"status", outcome.Status.String(),
		"duration", outcome.Duration.Round(time.Millisecond),
	}
	switch outcome.Status {
	case models.StatusCached, models.StatusFetched:
		logger.Info("resolved game", append(attrs, "min", outcome.Range.Min.StringFixed(2), "max", outcome.Range.Max.StringFixed(2))...)
	case models.StatusNoMatch:
		logger.Warn("no RTP in answer", attrs...)
	default:
		logger.Error("query failed", append(attrs, "error", outcome.Err)...)
	}

	return outcome
}

// resolve runs the gated part of the pipeline. The gate is held on every
// path until resolve returns.
func (p *Pipeline) resolve(ctx context.Context, game models.Game) models.Outcome {
	release, err := p.gate.Acquire(ctx)
	if err != nil {
		return failed(fmt.Errorf("failed to acquire slot: %w", err))
	}
	defer release()
	p.sendEvent(Event{Type: EventStarted, Outcome: models.Outcome{Game: game}})

	if cached, ok := p.lookup(ctx, game.Title); ok {
		return models.Outcome{Status: models.StatusCached, Range: cached}
	}

	if err := p.limiter.Acquire(ctx); err != nil {
		return failed(fmt.Errorf("failed to acquire rate permit: %w", err))
	}

	answer, err := p.query(ctx, game.Title)
	if err != nil {
		return failed(err)
	}

	found, ok := rtp.Parse(answer)
	if !ok {
		return models.Outcome{Status: models.StatusNoMatch}
	}

	p.save(ctx, game.Title, found)
	return models.Outcome{Status: models.StatusFetched, Range: found}
}

// lookup treats store errors as a miss.
func (p *Pipeline) lookup(ctx context.Context, title string) (models.RTPRange, bool) {
	res, err := p.store.Lookup(ctx, title, p.cfg.Model)
	if err != nil {
		logger.Warn("cache lookup failed, querying instead", "game", title, "error", err)
		return models.RTPRange{}, false
	}
	if res == nil {
		return models.RTPRange{}, false
	}
	return res.Range, true
}

func (p *Pipeline) query(ctx context.Context, title string) (string, error) {
	start := time.Now()
	completion, err := p.querier.Ask(ctx, p.cfg.Model, p.cfg.SystemPrompt, Question(title))
	p.record(ctx, title, completion, err, time.Since(start))
	if err != nil {
		return "", fmt.Errorf("failed to query %q: %w", title, err)
	}
	return completion.Text, nil
}

// save writes a new cache entry. A failed write is logged and the parsed
// range is still reported. The write outlives cancellation of ctx since the
// query it records has already been paid for.
func (p *Pipeline) save(ctx context.Context, title string, found models.RTPRange) {
	entry := &models.SearchResult{
		SearchDate: time.Now().UTC(),
		GameTitle:  title,
		Model:      p.cfg.Model,
		Range:      found,
	}
	if err := p.store.Insert(context.WithoutCancel(ctx), entry); err != nil {
		logger.Error("failed to cache result", "game", title, "error", err)
	}
}

type httpStatuser interface {
	HTTPStatus() int
}

func (p *Pipeline) record(ctx context.Context, title string, c models.Completion, queryErr error, elapsed time.Duration) {
	if p.recorder == nil {
		return
	}

	call := &models.APICall{
		Timestamp:        time.Now().UTC(),
		RunID:            p.cfg.RunID,
		GameTitle:        title,
		Model:            p.cfg.Model,
		RequestID:        c.RequestID,
		PromptTokens:     c.PromptTokens,
		CompletionTokens: c.CompletionTokens,
		TotalTokens:      c.TotalTokens,
		DurationMs:       int(elapsed.Milliseconds()),
		StatusCode:       200,
	}
	if queryErr != nil {
		call.Error = queryErr.Error()
		call.StatusCode = 0
		var hs httpStatuser
		if errors.As(queryErr, &hs) {
			call.StatusCode = hs.HTTPStatus()
		}
	}

	if err := p.recorder.InsertAPICall(context.WithoutCancel(ctx), call); err != nil {
		logger.Warn("failed to record API call", "game", title, "error", err)
	}
}

func failed(err error) models.Outcome {
	return models.Outcome{Status: models.StatusQueryFailed, Err: err}
}
