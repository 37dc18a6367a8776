package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/j-veylop/mass-rtp-search/internal/config"
	"github.com/j-veylop/mass-rtp-search/internal/models"
	"github.com/j-veylop/mass-rtp-search/internal/perplexity"
)

// MockRoundTripper implements http.RoundTripper for testing
type MockRoundTripper struct {
	RoundTripFunc func(req *http.Request) (*http.Response, error)
}

func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.RoundTripFunc(req)
}

// fakeAPI answers completion requests from a table keyed by game title.
type fakeAPI struct {
	answers map[string]string
	status  map[string]int
	calls   atomic.Int64
}

func (f *fakeAPI) client() *http.Client {
	return &http.Client{Transport: &MockRoundTripper{RoundTripFunc: f.roundTrip}}
}

func (f *fakeAPI) roundTrip(req *http.Request) (*http.Response, error) {
	f.calls.Add(1)

	var body perplexity.Request
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return nil, err
	}
	question := body.Messages[len(body.Messages)-1].Content
	title := strings.TrimSuffix(strings.TrimPrefix(question, "What is the RTP of "), "?")

	if code, ok := f.status[title]; ok {
		return &http.Response{StatusCode: code, Body: io.NopCloser(strings.NewReader("upstream error"))}, nil
	}

	data, _ := json.Marshal(perplexity.Response{
		ID:      "req-" + title,
		Choices: []perplexity.Choice{{Message: perplexity.Message{Role: "assistant", Content: f.answers[title]}}},
		Usage:   perplexity.Usage{PromptTokens: 20, CompletionTokens: 10, TotalTokens: 30},
	})
	return &http.Response{StatusCode: 200, Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		APIKey:                "test-key",
		BaseURL:               "http://perplexity.test",
		Model:                 "sonar",
		DatabasePath:          filepath.Join(dir, "rtp_cache.db"),
		OutputPath:            filepath.Join(dir, "rtp_results.csv"),
		CacheBackend:          config.BackendSQLite,
		MaxRequestsPerMin:     6000,
		MaxConcurrentRequests: 2,
		CacheTimeout:          5 * time.Second,
	}
}

func writeInput(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "games.txt")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestManager(t *testing.T, cfg *config.Config, api *fakeAPI, opts ...Option) *Manager {
	t.Helper()
	opts = append([]Option{WithHTTPClient(api.client())}, opts...)
	m, err := NewManager(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func readOutput(t *testing.T, cfg *config.Config) string {
	t.Helper()
	data, err := os.ReadFile(cfg.OutputPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	return string(data)
}

const exampleCSV = "Game,Min RTP %,Max RTP %\n" +
	"Blackjack,99.50,99.50\n" +
	"Roulette,95.00,97.00\n"

func exampleAPI() *fakeAPI {
	return &fakeAPI{answers: map[string]string{
		"Blackjack": "Blackjack with basic strategy... RTP: 99.5",
		"Roulette":  "Depends on the variant... RTP: 95-97",
	}}
}

func TestManager_RunEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	api := exampleAPI()
	m := newTestManager(t, cfg, api)

	result, err := m.Run(context.Background(), writeInput(t, "Blackjack", "", "Roulette"))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := readOutput(t, cfg); got != exampleCSV {
		t.Errorf("unexpected CSV:\n%s\nwant:\n%s", got, exampleCSV)
	}
	if result.Report.Len() != 2 {
		t.Errorf("expected 2 rows, got %d", result.Report.Len())
	}
	if api.calls.Load() != 2 {
		t.Errorf("expected 2 API calls, got %d", api.calls.Load())
	}
	if result.RunID == "" {
		t.Error("missing run id")
	}
	if result.OutputSize != int64(len(exampleCSV)) {
		t.Errorf("OutputSize = %d", result.OutputSize)
	}
	if result.Calls == nil || result.Calls.TotalCalls != 2 || result.Calls.ErrorCount != 0 {
		t.Errorf("unexpected call stats: %+v", result.Calls)
	}
	if s := result.Summary(80); !strings.Contains(s, "2 fetched") {
		t.Errorf("summary missing fetch count:\n%s", s)
	}
}

func TestManager_RunIdempotent(t *testing.T) {
	cfg := testConfig(t)
	input := writeInput(t, "Blackjack", "Roulette")

	first := exampleAPI()
	m1 := newTestManager(t, cfg, first)
	if _, err := m1.Run(context.Background(), input); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if err := m1.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	firstCSV := readOutput(t, cfg)

	second := exampleAPI()
	m2 := newTestManager(t, cfg, second)
	result, err := m2.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if second.calls.Load() != 0 {
		t.Errorf("expected no API calls on the second run, got %d", second.calls.Load())
	}
	if got := readOutput(t, cfg); got != firstCSV {
		t.Errorf("output changed between runs:\n%s\nvs\n%s", firstCSV, got)
	}
	if c := result.Report.Counts(); c.Cached != 2 {
		t.Errorf("expected 2 cache hits, got %+v", c)
	}
	if result.Calls == nil || result.Calls.TotalCalls != 0 {
		t.Errorf("expected no calls recorded for the second run: %+v", result.Calls)
	}
}

func TestManager_RunFailures(t *testing.T) {
	cfg := testConfig(t)
	api := &fakeAPI{
		answers: map[string]string{
			"Blackjack": "RTP: 99.5",
			"Mystery":   "I could not find this game.",
		},
		status: map[string]int{"Broken": 500},
	}
	m := newTestManager(t, cfg, api)

	result, err := m.Run(context.Background(), writeInput(t, "Mystery", "Broken", "Blackjack"))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := "Game,Min RTP %,Max RTP %\n" +
		"Blackjack,99.50,99.50\n" +
		"Mystery,0.00,0.00\n" +
		"Broken,0.00,0.00\n"
	if got := readOutput(t, cfg); got != want {
		t.Errorf("unexpected CSV:\n%s\nwant:\n%s", got, want)
	}

	c := result.Report.Counts()
	if c.Fetched != 1 || c.NoMatch != 1 || c.Failed != 1 {
		t.Errorf("unexpected counts: %+v", c)
	}
	if result.Calls == nil || result.Calls.ErrorCount != 1 {
		t.Errorf("expected one failed call recorded: %+v", result.Calls)
	}
	if len(result.Failures) != 1 || result.Failures[0].GameTitle != "Broken" || result.Failures[0].StatusCode != 500 {
		t.Errorf("unexpected failures: %+v", result.Failures)
	}
	if result.Cache == nil || result.Cache.Entries != 1 {
		t.Errorf("expected one cache entry: %+v", result.Cache)
	}

	// Neither failure was cached, so a second run asks again.
	before := api.calls.Load()
	if _, err := m.Run(context.Background(), writeInput(t, "Mystery", "Broken", "Blackjack")); err != nil {
		t.Fatal(err)
	}
	if n := api.calls.Load() - before; n != 2 {
		t.Errorf("expected 2 repeat calls, got %d", n)
	}
}

func TestManager_RunMissingInput(t *testing.T) {
	cfg := testConfig(t)
	api := exampleAPI()
	m := newTestManager(t, cfg, api)

	_, err := m.Run(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
	if _, err := os.Stat(cfg.OutputPath); !os.IsNotExist(err) {
		t.Error("no report should be written when the input is unreadable")
	}
	if api.calls.Load() != 0 {
		t.Error("no API calls expected")
	}
}

func TestManager_RunBlankInput(t *testing.T) {
	cfg := testConfig(t)
	api := exampleAPI()
	m := newTestManager(t, cfg, api)

	path := filepath.Join(t.TempDir(), "games.txt")
	if err := os.WriteFile(path, []byte("\n   \n\n"), 0600); err != nil {
		t.Fatal(err)
	}

	result, err := m.Run(context.Background(), path)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Report.Len() != 0 {
		t.Errorf("expected no rows, got %d", result.Report.Len())
	}
	if got := readOutput(t, cfg); got != "Game,Min RTP %,Max RTP %\n" {
		t.Errorf("expected header-only report, got:\n%s", got)
	}
	if api.calls.Load() != 0 {
		t.Error("no API calls expected")
	}
}

func TestManager_MemoryBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.CacheBackend = config.BackendMemory
	api := exampleAPI()
	m := newTestManager(t, cfg, api)

	if m.Database() != nil {
		t.Error("memory backend should not open the database")
	}
	if _, err := os.Stat(cfg.DatabasePath); !os.IsNotExist(err) {
		t.Error("database file should not exist")
	}

	input := writeInput(t, "Blackjack", "Roulette")
	result, err := m.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Calls != nil {
		t.Error("no call stats without a database")
	}
	if got := readOutput(t, cfg); got != exampleCSV {
		t.Errorf("unexpected CSV:\n%s", got)
	}

	// The same manager keeps its in-memory cache between runs.
	if _, err := m.Run(context.Background(), input); err != nil {
		t.Fatal(err)
	}
	if api.calls.Load() != 2 {
		t.Errorf("expected 2 API calls in total, got %d", api.calls.Load())
	}
}

func TestManager_Subscription(t *testing.T) {
	cfg := testConfig(t)
	m := newTestManager(t, cfg, exampleAPI())

	ch, cmd := m.Subscribe()
	if cmd == nil {
		t.Error("Subscribe should return a command")
	}

	if _, err := m.Run(context.Background(), writeInput(t, "Blackjack", "Roulette")); err != nil {
		t.Fatal(err)
	}

	var started, gameStarted, finished, runFinished int
	timeout := time.After(2 * time.Second)
	for runFinished == 0 {
		select {
		case ev := <-ch:
			switch e := ev.(type) {
			case RunStartedEvent:
				started++
				if e.Total != 2 {
					t.Errorf("RunStartedEvent.Total = %d", e.Total)
				}
			case GameStartedEvent:
				gameStarted++
			case GameFinishedEvent:
				finished++
			case RunFinishedEvent:
				runFinished++
				if e.Result == nil || e.Result.Report.Len() != 2 {
					t.Errorf("unexpected run result: %+v", e.Result)
				}
			}
		case <-timeout:
			t.Fatal("timed out waiting for RunFinishedEvent")
		}
	}

	if started != 1 || gameStarted != 2 || finished != 2 {
		t.Errorf("events: started=%d gameStarted=%d finished=%d", started, gameStarted, finished)
	}

	m.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Unsubscribe")
	}
}

func TestManager_Notification(t *testing.T) {
	cfg := testConfig(t)
	cfg.Notify = true

	var mu sync.Mutex
	var titles, bodies []string
	notifier := func(title, body string) error {
		mu.Lock()
		defer mu.Unlock()
		titles = append(titles, title)
		bodies = append(bodies, body)
		return nil
	}
	m := newTestManager(t, cfg, exampleAPI(), WithNotifier(notifier))

	if _, err := m.Run(context.Background(), writeInput(t, "Blackjack", "Roulette")); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(titles) != 1 || titles[0] != "RTP search complete" {
		t.Fatalf("unexpected notifications: %v", titles)
	}
	if !strings.Contains(bodies[0], "2 games: 2 fetched") {
		t.Errorf("unexpected body: %q", bodies[0])
	}
}

func TestManager_NotificationDisabled(t *testing.T) {
	cfg := testConfig(t)
	called := false
	m := newTestManager(t, cfg, exampleAPI(), WithNotifier(func(string, string) error {
		called = true
		return nil
	}))

	if _, err := m.Run(context.Background(), writeInput(t, "Blackjack")); err != nil {
		t.Fatal(err)
	}
	if called {
		t.Error("notifier called with NOTIFY off")
	}
}

func TestManager_Close(t *testing.T) {
	cfg := testConfig(t)
	m, err := NewManager(context.Background(), cfg, WithHTTPClient(exampleAPI().client()))
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	select {
	case <-m.bucket.Done():
	case <-time.After(time.Second):
		t.Error("rate limiter still running after Close")
	}
}

func TestNewManager_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxConcurrentRequests = 0
	if _, err := NewManager(context.Background(), cfg); err == nil {
		t.Error("expected error for zero concurrency")
	}
}

func TestWaitForEvent(t *testing.T) {
	ch := make(chan ServiceEvent, 1)
	ch <- ErrorEvent{Service: "test", Error: errors.New("boom")}

	msg := WaitForEvent(ch)()
	if _, ok := msg.(ErrorEvent); !ok {
		t.Errorf("expected ErrorEvent, got %T", msg)
	}

	close(ch)
	if msg := WaitForEvent(ch)(); msg != nil {
		t.Errorf("expected nil after close, got %v", msg)
	}
}

func TestServiceEvent_Interface(t *testing.T) {
	events := []ServiceEvent{
		RunStartedEvent{},
		GameStartedEvent{},
		GameFinishedEvent{Outcome: models.Outcome{Status: models.StatusCached}},
		RunFinishedEvent{},
		ErrorEvent{},
	}
	for _, e := range events {
		e.isServiceEvent()
	}
}
