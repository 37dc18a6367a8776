// Package services wires configuration, storage and the pipeline into runs.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gen2brain/beeep"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/j-veylop/mass-rtp-search/internal/cache"
	"github.com/j-veylop/mass-rtp-search/internal/config"
	"github.com/j-veylop/mass-rtp-search/internal/db"
	"github.com/j-veylop/mass-rtp-search/internal/enrich"
	"github.com/j-veylop/mass-rtp-search/internal/input"
	"github.com/j-veylop/mass-rtp-search/internal/logger"
	"github.com/j-veylop/mass-rtp-search/internal/models"
	"github.com/j-veylop/mass-rtp-search/internal/perplexity"
	"github.com/j-veylop/mass-rtp-search/internal/ratelimit"
	"github.com/j-veylop/mass-rtp-search/internal/report"
)

type (
	// RunStartedEvent is emitted once the input has been read.
	RunStartedEvent struct {
		RunID     string
		InputPath string
		Total     int
	}

	// GameStartedEvent is emitted when a game is admitted through the gate.
	GameStartedEvent struct {
		Game models.Game
	}

	// GameFinishedEvent is emitted when a game has its outcome.
	GameFinishedEvent struct {
		Outcome models.Outcome
	}

	// RunFinishedEvent is emitted after the report has been written.
	RunFinishedEvent struct {
		Result *RunResult
	}

	// ErrorEvent is emitted when a run cannot complete.
	ErrorEvent struct {
		Error   error
		Service string
	}
)

// ServiceEvent is the interface implemented by all service events.
type ServiceEvent interface {
	isServiceEvent()
}

func (RunStartedEvent) isServiceEvent()   {}
func (GameStartedEvent) isServiceEvent()  {}
func (GameFinishedEvent) isServiceEvent() {}
func (RunFinishedEvent) isServiceEvent()  {}
func (ErrorEvent) isServiceEvent()        {}

// RunResult describes one completed run.
type RunResult struct {
	Report     *report.Report
	Calls      *models.TotalStats
	Cache      *models.CacheStats
	Failures   []models.APICall
	RunID      string
	OutputPath string
	Elapsed    time.Duration
	OutputSize int64
}

// Summary renders the terminal summary for the run.
func (r *RunResult) Summary(width int) string {
	return r.Report.Summary(report.SummaryOptions{
		Calls:      r.Calls,
		Cache:      r.Cache,
		Failures:   r.Failures,
		OutputPath: r.OutputPath,
		RunID:      r.RunID,
		Elapsed:    r.Elapsed,
		OutputSize: r.OutputSize,
		Width:      width,
	})
}

// Manager owns the long-lived resources shared by runs: the rate limiter,
// the concurrency gate, the cache store and the API client.
type Manager struct {
	mu          sync.RWMutex
	cfg         *config.Config
	database    *db.DB
	rdb         *redis.Client
	store       cache.Store
	client      *perplexity.Client
	bucket      *ratelimit.Bucket
	gate        *ratelimit.Gate
	cancel      context.CancelFunc
	notify      func(title, message string) error
	subscribers []chan ServiceEvent
	httpClient  *http.Client
}

// Option configures a Manager.
type Option func(*Manager)

// WithHTTPClient replaces the HTTP client used for API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(m *Manager) { m.httpClient = hc }
}

// WithNotifier replaces the desktop notification function.
func WithNotifier(fn func(title, message string) error) Option {
	return func(m *Manager) { m.notify = fn }
}

// NewManager creates a new service manager. The rate limiter starts filling
// immediately and stops when ctx ends or the manager is closed.
func NewManager(ctx context.Context, cfg *config.Config, opts ...Option) (*Manager, error) {
	m := &Manager{
		cfg: cfg,
		notify: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
	for _, opt := range opts {
		opt(m)
	}

	var err error
	if err = m.openStore(ctx); err != nil {
		_ = m.closeStores()
		return nil, err
	}

	m.gate, err = ratelimit.NewGate(cfg.MaxConcurrentRequests)
	if err != nil {
		_ = m.closeStores()
		return nil, err
	}

	limiterCtx, cancel := context.WithCancel(ctx)
	m.bucket, err = ratelimit.NewBucket(limiterCtx, cfg.MaxRequestsPerMin)
	if err != nil {
		cancel()
		_ = m.closeStores()
		return nil, err
	}
	m.cancel = cancel

	clientOpts := []perplexity.Option{perplexity.WithBaseURL(cfg.BaseURL)}
	if cfg.HTTPTimeout > 0 {
		clientOpts = append(clientOpts, perplexity.WithTimeout(cfg.HTTPTimeout))
	}
	if m.httpClient != nil {
		clientOpts = append(clientOpts, perplexity.WithHTTPClient(m.httpClient))
	}
	m.client = perplexity.New(cfg.APIKey, clientOpts...)

	logger.Debug("manager ready",
		"backend", cfg.CacheBackend,
		"model", cfg.Model,
		"burst", m.bucket.Capacity(),
		"permit_period", m.bucket.Period(),
		"concurrency", m.gate.Limit(),
	)
	return m, nil
}

func (m *Manager) openStore(ctx context.Context) error {
	var err error
	if m.cfg.UsesDatabase() {
		m.database, err = db.New(m.cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
	}

	switch m.cfg.CacheBackend {
	case config.BackendSQLite:
		m.store = cache.NewSQLite(m.database, m.cfg.CacheTimeout)

	case config.BackendRedis:
		m.rdb = redis.NewClient(&redis.Options{
			Addr:     m.cfg.RedisAddr,
			Password: m.cfg.RedisPassword,
			DB:       m.cfg.RedisDB,
		})
		rs := cache.NewRedis(m.rdb,
			cache.WithRedisPrefix(m.cfg.RedisPrefix),
			cache.WithRedisTimeout(m.cfg.CacheTimeout),
		)
		if err := rs.Ping(ctx); err != nil {
			return fmt.Errorf("failed to connect to redis at %s: %w", m.cfg.RedisAddr, err)
		}
		m.store = rs

	default:
		m.store = cache.NewMemory()
	}

	return nil
}

// Run reads games from inputPath, resolves every one of them and writes the
// report. Only an unreadable input or an unwritable report is an error;
// per-game failures end up as zero rows in the report.
func (m *Manager) Run(ctx context.Context, inputPath string) (*RunResult, error) {
	start := time.Now()

	games, err := input.ReadFile(inputPath)
	if err != nil {
		m.broadcast(ErrorEvent{Service: "input", Error: err})
		return nil, err
	}

	if len(games) == 0 {
		logger.Warn("input has no game titles", "path", inputPath)
	}

	runID := uuid.NewString()
	logger.Info("starting run", "run_id", runID, "games", len(games), "model", m.cfg.Model)
	m.broadcast(RunStartedEvent{RunID: runID, InputPath: inputPath, Total: len(games)})

	pipelineOpts := []enrich.Option{}
	if m.database != nil {
		pipelineOpts = append(pipelineOpts, enrich.WithRecorder(m.database))
	}
	p := enrich.New(enrich.Config{Model: m.cfg.Model, RunID: runID}, m.client, m.store, m.bucket, m.gate, pipelineOpts...)

	stop := make(chan struct{})
	forwarded := make(chan struct{})
	go m.forwardEvents(p.Events(), stop, forwarded)

	outcomes := p.Run(ctx, games)
	close(stop)
	<-forwarded

	rep := report.New(outcomes)
	if err := rep.WriteFile(m.cfg.OutputPath); err != nil {
		err = fmt.Errorf("failed to write %s: %w", m.cfg.OutputPath, err)
		m.broadcast(ErrorEvent{Service: "report", Error: err})
		return nil, err
	}

	result := &RunResult{
		Report:     rep,
		RunID:      runID,
		OutputPath: m.cfg.OutputPath,
		Elapsed:    time.Since(start),
	}
	if fi, err := os.Stat(m.cfg.OutputPath); err == nil {
		result.OutputSize = fi.Size()
	}
	if m.database != nil {
		m.loadRunStats(context.WithoutCancel(ctx), result)
	}

	counts := rep.Counts()
	logger.Info("run complete",
		"run_id", runID,
		"cached", counts.Cached,
		"fetched", counts.Fetched,
		"no_match", counts.NoMatch,
		"failed", counts.Failed,
		"permits_issued", m.bucket.Issued(),
		"elapsed", result.Elapsed.Round(time.Millisecond),
		"output", m.cfg.OutputPath,
	)

	m.broadcast(RunFinishedEvent{Result: result})
	m.checkNotifications(result)

	return result, nil
}

// loadRunStats fills the audit details of result from the database. Query
// errors are logged and leave the fields unset.
func (m *Manager) loadRunStats(ctx context.Context, result *RunResult) {
	stats, err := m.database.GetTotalStats(ctx, result.RunID)
	if err != nil {
		logger.Warn("failed to load call stats", "run_id", result.RunID, "error", err)
		return
	}
	result.Calls = stats

	if cacheStats, err := m.database.GetCacheStats(ctx); err != nil {
		logger.Warn("failed to load cache stats", "error", err)
	} else {
		result.Cache = cacheStats
	}

	if stats.ErrorCount == 0 {
		return
	}
	calls, err := m.database.GetRecentAPICalls(ctx, stats.TotalCalls)
	if err != nil {
		logger.Warn("failed to load failed calls", "run_id", result.RunID, "error", err)
		return
	}
	for _, call := range calls {
		if call.RunID == result.RunID && (call.Error != "" || call.StatusCode >= http.StatusBadRequest) {
			result.Failures = append(result.Failures, call)
		}
	}
}

// forwardEvents converts pipeline events until stop is closed, then drains
// what is left.
func (m *Manager) forwardEvents(events <-chan enrich.Event, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	forward := func(ev enrich.Event) {
		switch ev.Type {
		case enrich.EventStarted:
			m.broadcast(GameStartedEvent{Game: ev.Outcome.Game})
		case enrich.EventFinished:
			m.broadcast(GameFinishedEvent{Outcome: ev.Outcome})
		}
	}

	for {
		select {
		case ev := <-events:
			forward(ev)
		case <-stop:
			for {
				select {
				case ev := <-events:
					forward(ev)
				default:
					return
				}
			}
		}
	}
}

func (m *Manager) checkNotifications(result *RunResult) {
	if !m.cfg.Notify || m.notify == nil {
		return
	}

	c := result.Report.Counts()
	title := "RTP search complete"
	body := fmt.Sprintf("%d games: %d fetched, %d cached, %d without RTP, %d failed",
		c.Total(), c.Fetched, c.Cached, c.NoMatch, c.Failed)
	if err := m.notify(title, body); err != nil {
		logger.Warn("failed to send notification", "error", err)
	}
}

// broadcast sends an event to all subscribers.
func (m *Manager) broadcast(event ServiceEvent) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber channel full, skip
		}
	}
}

// Subscribe creates a channel for receiving service events.
// Returns a tea.Cmd that can be used in Bubble Tea's Init or Update.
func (m *Manager) Subscribe() (chan ServiceEvent, tea.Cmd) {
	ch := make(chan ServiceEvent, 256)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	return ch, WaitForEvent(ch)
}

// WaitForEvent returns a tea.Cmd for the next event on a channel.
func WaitForEvent(ch <-chan ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return ev
	}
}

// Unsubscribe removes a subscriber channel.
func (m *Manager) Unsubscribe(ch chan ServiceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscribers {
		if sub == ch {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// Config returns the configuration the manager was built with.
func (m *Manager) Config() *config.Config {
	return m.cfg
}

// Database returns the database instance, nil for the memory backend.
func (m *Manager) Database() *db.DB {
	return m.database
}

// Close stops the rate limiter and closes all stores.
func (m *Manager) Close() error {
	if m.cancel != nil {
		m.cancel()
	}

	m.mu.Lock()
	for _, sub := range m.subscribers {
		close(sub)
	}
	m.subscribers = nil
	m.mu.Unlock()

	return m.closeStores()
}

func (m *Manager) closeStores() error {
	var errs []error
	if m.rdb != nil {
		if err := m.rdb.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
		m.rdb = nil
	}
	if m.database != nil {
		if err := m.database.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
		m.database = nil
	}
	return errors.Join(errs...)
}
