package history_test

import (
	"context"
	"testing"
	"time"

	"storyboard/internal/history"
	"storyboard/internal/services"
	"storyboard/internal/testsupport"
)

func TestOpenAppliesMigrations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	if store.Path() != cfg.HistoryPath() {
		t.Fatalf("unexpected path %q", store.Path())
	}

	version, err := store.SchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if version != 2 {
		t.Fatalf("schema version = %d, want 2", version)
	}

	// Reopening an already migrated database must be a no-op.
	again, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.Close()
	if v, err := again.SchemaVersion(context.Background()); err != nil || v != version {
		t.Fatalf("reopened schema version = %d (%v), want %d", v, err, version)
	}
}

func TestRecordAndList(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	attempts := []history.Attempt{
		{Project: "a.json", BatchID: "b1", RowID: 1, Kind: "image", Prompt: "p1", Outcome: history.OutcomeSucceeded, AssetCount: 1, StartedAt: start, FinishedAt: start.Add(2 * time.Second)},
		{Project: "a.json", BatchID: "b1", RowID: 2, Kind: "image", Prompt: "p2", Outcome: services.OutcomeBlocked, ErrorMessage: "image generation failed: blocked (reason: SAFETY)", StartedAt: start, FinishedAt: start.Add(time.Second)},
		{Project: "a.json", BatchID: "b2", RowID: 1, Kind: "video_prompt", Outcome: history.OutcomeSucceeded, AssetCount: 1, StartedAt: start, FinishedAt: start},
		{Project: "b.json", BatchID: "b3", RowID: 1, Kind: "image", Outcome: services.OutcomeTransport},
	}
	for _, a := range attempts {
		if _, err := store.Record(ctx, a); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	all, err := store.List(ctx, history.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 4 || all[0].Project != "b.json" {
		t.Fatalf("expected newest first, got %+v", all)
	}

	row1, err := store.List(ctx, history.Filter{Project: "a.json", RowID: 1})
	if err != nil {
		t.Fatalf("List row: %v", err)
	}
	if len(row1) != 2 || row1[0].Kind != "video_prompt" || row1[1].Prompt != "p1" {
		t.Fatalf("unexpected row history %+v", row1)
	}
	if row1[1].Duration() != 2*time.Second || !row1[1].StartedAt.Equal(start) {
		t.Fatalf("timestamps not preserved: %+v", row1[1])
	}

	limited, err := store.List(ctx, history.Filter{BatchID: "b1", Limit: 1})
	if err != nil {
		t.Fatalf("List batch: %v", err)
	}
	if len(limited) != 1 || limited[0].RowID != 2 || limited[0].ErrorMessage == "" {
		t.Fatalf("unexpected batch history %+v", limited)
	}

	counts, err := store.OutcomeCounts(ctx, "a.json")
	if err != nil {
		t.Fatalf("OutcomeCounts: %v", err)
	}
	if counts[history.OutcomeSucceeded] != 2 || counts[services.OutcomeBlocked] != 1 || counts[services.OutcomeTransport] != 0 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestRecordRequiresKindAndOutcome(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	if _, err := store.Record(context.Background(), history.Attempt{RowID: 1, Kind: "image"}); err == nil {
		t.Fatal("expected error for missing outcome")
	}
}

func TestRecordDefaultsTimestamps(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	ctx := context.Background()
	if _, err := store.Record(ctx, history.Attempt{RowID: 5, Kind: "image", Outcome: history.OutcomeSucceeded}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	got, err := store.List(ctx, history.Filter{RowID: 5})
	if err != nil || len(got) != 1 {
		t.Fatalf("List = %v, %v", got, err)
	}
	if got[0].StartedAt.IsZero() || got[0].FinishedAt.IsZero() {
		t.Fatalf("expected timestamps to be filled, got %+v", got[0])
	}
}
