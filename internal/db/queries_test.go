package db

import (
	"context"
	"testing"
	"time"

	"github.com/j-veylop/mass-rtp-search/internal/models"
)

func TestInsertAPICall(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	call := &models.APICall{
		RunID:            "run-1",
		GameTitle:        "Blackjack",
		Model:            "sonar",
		PromptTokens:     100,
		CompletionTokens: 40,
		TotalTokens:      140,
		DurationMs:       850,
		StatusCode:       200,
		RequestID:        "req-123",
	}

	if err := db.InsertAPICall(context.Background(), call); err != nil {
		t.Fatalf("InsertAPICall() failed: %v", err)
	}

	if call.ID == 0 {
		t.Error("InsertAPICall() should set ID")
	}
}

func TestInsertAPICall_WithError(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	call := &models.APICall{
		RunID:      "run-1",
		GameTitle:  "Roulette",
		Model:      "sonar",
		StatusCode: 429,
		Error:      "rate limit exceeded",
	}

	if err := db.InsertAPICall(context.Background(), call); err != nil {
		t.Fatalf("InsertAPICall() with error failed: %v", err)
	}
}

func TestGetRecentAPICalls(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	now := time.Now()
	calls := []*models.APICall{
		{RunID: "r", GameTitle: "Baccarat", Model: "sonar", Timestamp: now.Add(-3 * time.Hour), StatusCode: 200},
		{RunID: "r", GameTitle: "Keno", Model: "sonar", Timestamp: now.Add(-2 * time.Hour), StatusCode: 200},
		{RunID: "r", GameTitle: "Craps", Model: "sonar", Timestamp: now.Add(-1 * time.Hour), StatusCode: 200, Error: "boom"},
	}

	for _, call := range calls {
		if err := db.InsertAPICall(context.Background(), call); err != nil {
			t.Fatalf("InsertAPICall() failed: %v", err)
		}
	}

	recent, err := db.GetRecentAPICalls(context.Background(), 2)
	if err != nil {
		t.Fatalf("GetRecentAPICalls() failed: %v", err)
	}

	if len(recent) != 2 {
		t.Fatalf("GetRecentAPICalls(2) returned %d calls, want 2", len(recent))
	}
	if recent[0].GameTitle != "Craps" {
		t.Errorf("first call should be most recent, got %s", recent[0].GameTitle)
	}
	if recent[0].Error != "boom" {
		t.Errorf("Error = %q, want boom", recent[0].Error)
	}
	if recent[1].GameTitle != "Keno" {
		t.Errorf("second call should be second most recent, got %s", recent[1].GameTitle)
	}
	if recent[0].Timestamp.IsZero() {
		t.Error("Timestamp should be parsed")
	}
}

func TestGetRecentAPICalls_Empty(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	calls, err := db.GetRecentAPICalls(context.Background(), 10)
	if err != nil {
		t.Fatalf("GetRecentAPICalls() failed: %v", err)
	}

	if len(calls) != 0 {
		t.Errorf("GetRecentAPICalls() on empty db returned %d calls, want 0", len(calls))
	}
}

func TestGetTotalStats(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	calls := []*models.APICall{
		{RunID: "a", GameTitle: "Blackjack", Model: "sonar", PromptTokens: 10, CompletionTokens: 5, DurationMs: 100, StatusCode: 200},
		{RunID: "a", GameTitle: "Roulette", Model: "sonar", PromptTokens: 20, CompletionTokens: 5, DurationMs: 300, StatusCode: 500, Error: "server error"},
		{RunID: "b", GameTitle: "Blackjack", Model: "sonar-pro", PromptTokens: 30, CompletionTokens: 5, DurationMs: 200, StatusCode: 200},
	}
	for _, call := range calls {
		if err := db.InsertAPICall(context.Background(), call); err != nil {
			t.Fatalf("InsertAPICall() failed: %v", err)
		}
	}

	all, err := db.GetTotalStats(context.Background(), "")
	if err != nil {
		t.Fatalf("GetTotalStats() failed: %v", err)
	}
	if all.TotalCalls != 3 {
		t.Errorf("TotalCalls = %d, want 3", all.TotalCalls)
	}
	if all.TotalPromptTokens != 60 {
		t.Errorf("TotalPromptTokens = %d, want 60", all.TotalPromptTokens)
	}
	if all.ErrorCount != 1 {
		t.Errorf("ErrorCount = %d, want 1", all.ErrorCount)
	}
	if all.UniqueGames != 2 || all.UniqueModels != 2 {
		t.Errorf("unique games/models = %d/%d, want 2/2", all.UniqueGames, all.UniqueModels)
	}

	run, err := db.GetTotalStats(context.Background(), "a")
	if err != nil {
		t.Fatalf("GetTotalStats(run) failed: %v", err)
	}
	if run.TotalCalls != 2 {
		t.Errorf("run TotalCalls = %d, want 2", run.TotalCalls)
	}
	if run.AvgDurationMs != 200 {
		t.Errorf("run AvgDurationMs = %v, want 200", run.AvgDurationMs)
	}
}

func TestGetTotalStats_Empty(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	stats, err := db.GetTotalStats(context.Background(), "")
	if err != nil {
		t.Fatalf("GetTotalStats() failed: %v", err)
	}
	if stats.TotalCalls != 0 || stats.ErrorCount != 0 {
		t.Errorf("empty stats = %+v", stats)
	}
}
