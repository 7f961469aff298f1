package usage

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	config := DefaultStoreConfig()
	config.Path = filepath.Join(t.TempDir(), "usage.db")

	store, err := NewStore(config)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testRecord(id string, createdAt time.Time) Record {
	return Record{
		ID:               id,
		Protocol:         ProtocolOpenAI,
		Model:            "relay",
		Endpoint:         "http://backend-1:8080",
		Streamed:         false,
		PromptTokens:     12,
		CompletionTokens: 34,
		FaultRetries:     1,
		Duration:         2500 * time.Millisecond,
		CreatedAt:        createdAt,
	}
}

func TestStore_Record(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Record(ctx, testRecord("chatcmpl-1", time.Now())); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := store.Record(ctx, testRecord("chatcmpl-2", time.Time{})); err != nil {
		t.Fatalf("Record() with zero CreatedAt error = %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("Count() = %d, want 2", count)
	}
}

func TestStore_Record_DuplicateID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Record(ctx, testRecord("chatcmpl-dup", time.Now())); err != nil {
		t.Fatal(err)
	}
	if err := store.Record(ctx, testRecord("chatcmpl-dup", time.Now())); err == nil {
		t.Error("Record() with duplicate ID succeeded, want primary key error")
	}
}

func TestStore_Prune(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now()

	for i, createdAt := range []time.Time{old, old, recent} {
		rec := testRecord(string(rune('a'+i)), createdAt)
		if err := store.Record(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	deleted, err := store.Prune(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 2 {
		t.Errorf("Prune() deleted %d rows, want 2", deleted)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("Count() after prune = %d, want 1", count)
	}
}

func TestScheduler_EmptyScheduleIsNoop(t *testing.T) {
	store := newTestStore(t)
	scheduler := NewScheduler(store, SchedulerConfig{Retention: 24 * time.Hour})

	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatalf("Start() with empty schedule error = %v", err)
	}
	if scheduler.IsRunning() {
		t.Error("scheduler running without a schedule")
	}
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	store := newTestStore(t)
	scheduler := NewScheduler(store, SchedulerConfig{
		Schedule:  "not a cron expression",
		Retention: 24 * time.Hour,
	})

	if err := scheduler.Start(context.Background()); err == nil {
		t.Error("Start() with invalid schedule succeeded, want error")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	store := newTestStore(t)
	scheduler := NewScheduler(store, SchedulerConfig{
		Schedule:  "0 3 * * *",
		Retention: 24 * time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	if err := scheduler.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !scheduler.IsRunning() {
		t.Error("scheduler not running after Start")
	}

	cancel()
	deadline := time.Now().Add(time.Second)
	for scheduler.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if scheduler.IsRunning() {
		t.Error("scheduler still running after context cancellation")
	}
}
