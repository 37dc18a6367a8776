package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/j-veylop/mass-rtp-search/internal/db"
	"github.com/j-veylop/mass-rtp-search/internal/models"
)

// testStore runs the behavior every Store implementation must share.
func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("Miss", func(t *testing.T) {
		got, err := s.Lookup(ctx, "Blackjack", "sonar")
		if err != nil {
			t.Fatalf("Lookup() failed: %v", err)
		}
		if got != nil {
			t.Errorf("Lookup() = %+v, want nil", got)
		}
	})

	t.Run("InsertThenHit", func(t *testing.T) {
		want := models.RTPRange{Min: models.MustParsePercent("95"), Max: models.MustParsePercent("97.25")}
		if err := s.Insert(ctx, &models.SearchResult{GameTitle: "Roulette", Model: "sonar", Range: want}); err != nil {
			t.Fatalf("Insert() failed: %v", err)
		}

		got, err := s.Lookup(ctx, "Roulette", "sonar")
		if err != nil {
			t.Fatalf("Lookup() failed: %v", err)
		}
		if got == nil {
			t.Fatal("Lookup() returned nil after insert")
		}
		if got.Range != want {
			t.Errorf("Range = %+v, want %+v", got.Range, want)
		}
		if got.GameTitle != "Roulette" || got.Model != "sonar" {
			t.Errorf("key = (%q, %q), want (Roulette, sonar)", got.GameTitle, got.Model)
		}
		if got.SearchDate.IsZero() {
			t.Error("SearchDate should default to insert time")
		}
	})

	t.Run("ModelIsPartOfKey", func(t *testing.T) {
		got, err := s.Lookup(ctx, "Roulette", "other-model")
		if err != nil {
			t.Fatalf("Lookup() failed: %v", err)
		}
		if got != nil {
			t.Error("a different model must miss")
		}
	})

	t.Run("LaterInsertWins", func(t *testing.T) {
		now := time.Now().UTC().Truncate(time.Second)
		first := models.RTPRange{Min: models.MustParsePercent("98.94"), Max: models.MustParsePercent("98.94")}
		second := models.RTPRange{Min: models.MustParsePercent("98.5"), Max: models.MustParsePercent("98.5")}

		for _, r := range []*models.SearchResult{
			{GameTitle: "Baccarat", Model: "sonar", SearchDate: now.Add(-time.Hour), Range: first},
			{GameTitle: "Baccarat", Model: "sonar", SearchDate: now, Range: second},
		} {
			if err := s.Insert(ctx, r); err != nil {
				t.Fatalf("Insert() failed: %v", err)
			}
		}

		got, err := s.Lookup(ctx, "Baccarat", "sonar")
		if err != nil {
			t.Fatalf("Lookup() failed: %v", err)
		}
		if got == nil || got.Range != second {
			t.Errorf("Lookup() = %+v, want the newer range %+v", got, second)
		}
	})

	t.Run("ConcurrentDisjointKeys", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := range 16 {
			wg.Add(2)
			title := fmt.Sprintf("Slot %d", i)
			go func() {
				defer wg.Done()
				r := &models.SearchResult{GameTitle: title, Model: "sonar", Range: models.RTPRange{Min: 960000, Max: 960000}}
				if err := s.Insert(ctx, r); err != nil {
					t.Errorf("Insert(%s) failed: %v", title, err)
				}
			}()
			go func() {
				defer wg.Done()
				if _, err := s.Lookup(ctx, title, "sonar"); err != nil {
					t.Errorf("Lookup(%s) failed: %v", title, err)
				}
			}()
		}
		wg.Wait()

		for i := range 16 {
			got, err := s.Lookup(ctx, fmt.Sprintf("Slot %d", i), "sonar")
			if err != nil || got == nil {
				t.Errorf("Slot %d missing after concurrent insert: %v", i, err)
			}
		}
	})
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	testStore(t, m)

	if m.Len() != 17 {
		t.Errorf("Len() = %d, want 17", m.Len())
	}
}

func TestMemory_CanceledContext(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.Lookup(ctx, "Keno", "sonar"); err == nil {
		t.Error("Lookup() with canceled context should fail")
	}
	if err := m.Insert(ctx, &models.SearchResult{GameTitle: "Keno", Model: "sonar"}); err == nil {
		t.Error("Insert() with canceled context should fail")
	}
}

func TestSQLite(t *testing.T) {
	database, err := db.New(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("db.New() failed: %v", err)
	}
	defer database.Close()

	testStore(t, NewSQLite(database, time.Second))
}

func TestSQLite_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	first, err := db.New(path)
	if err != nil {
		t.Fatalf("db.New() failed: %v", err)
	}
	want := models.RTPRange{Min: models.MustParsePercent("99.5"), Max: models.MustParsePercent("99.5")}
	if err := NewSQLite(first, 0).Insert(context.Background(), &models.SearchResult{GameTitle: "Blackjack", Model: "sonar", Range: want}); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}
	first.Close()

	second, err := db.New(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer second.Close()

	got, err := NewSQLite(second, 0).Lookup(context.Background(), "Blackjack", "sonar")
	if err != nil {
		t.Fatalf("Lookup() failed: %v", err)
	}
	if got == nil || got.Range != want {
		t.Errorf("Lookup() after reopen = %+v, want range %+v", got, want)
	}
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	prefix := fmt.Sprintf("rtp-test-%d", time.Now().UnixNano())
	store := NewRedis(rdb, WithRedisPrefix(prefix), WithRedisTimeout(2*time.Second))
	if err := store.Ping(context.Background()); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}
	t.Cleanup(func() {
		ctx := context.Background()
		keys, _ := rdb.Keys(ctx, prefix+":*").Result()
		if len(keys) > 0 {
			rdb.Del(ctx, keys...)
		}
	})

	testStore(t, store)
}

func TestRedis_Key(t *testing.T) {
	r := NewRedis(nil, WithRedisPrefix(":games:"))
	if got := r.key("sonar", "Blackjack"); got != "games:result:sonar:Blackjack" {
		t.Errorf("key() = %q", got)
	}

	def := NewRedis(nil, WithRedisPrefix(""))
	if got := def.key("sonar", "Keno"); got != "rtp:result:sonar:Keno" {
		t.Errorf("key() with empty prefix = %q", got)
	}
}
