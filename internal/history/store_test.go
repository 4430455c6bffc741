package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "history.db")
	store, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestRecordAndList(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)

	base := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	older := Run{
		ID: "run-1", StartedAt: base, FinishedAt: base.Add(3 * time.Second),
		Section: "1", Collection: "Commentary", Processed: 10, WithCommentary: 2, Added: 1, AlreadyMember: 1,
	}
	newer := Run{
		ID: "run-2", StartedAt: base.Add(time.Hour), FinishedAt: base.Add(time.Hour + time.Second),
		Section: "1", Collection: "Commentary", DryRun: true, Processed: 10, Failed: 1, Error: "interrupted",
	}
	if err := store.Record(ctx, older, []AddedItem{
		{ItemID: "42", Title: "Alien", Source: SourceKeyword},
		{ItemID: "43", Title: "Heat", Source: SourceDiscovery},
	}); err != nil {
		t.Fatalf("Record older: %v", err)
	}
	if err := store.Record(ctx, newer, nil); err != nil {
		t.Fatalf("Record newer: %v", err)
	}

	runs, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-2" || runs[1].ID != "run-1" {
		t.Fatalf("expected newest first, got %+v", runs)
	}
	if !runs[0].DryRun || runs[0].Error != "interrupted" || runs[0].Failed != 1 {
		t.Fatalf("unexpected newer run %+v", runs[0])
	}
	if got := runs[1].Duration(); got != 3*time.Second {
		t.Fatalf("unexpected duration %s", got)
	}
	if !runs[1].StartedAt.Equal(base) {
		t.Fatalf("unexpected start %s", runs[1].StartedAt)
	}

	items, err := store.Items(ctx, "run-1")
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	want := []AddedItem{
		{RunID: "run-1", ItemID: "42", Title: "Alien", Source: SourceKeyword},
		{RunID: "run-1", ItemID: "43", Title: "Heat", Source: SourceDiscovery},
	}
	if diff := cmp.Diff(want, items); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestRecentHonoursLimit(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)
	start := time.Now()
	for i, id := range []string{"a", "b", "c"} {
		run := Run{ID: id, StartedAt: start.Add(time.Duration(i) * time.Minute), FinishedAt: start, Section: "1", Collection: "C"}
		if err := store.Record(ctx, run, nil); err != nil {
			t.Fatalf("Record %s: %v", id, err)
		}
	}
	runs, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "c" {
		t.Fatalf("unexpected runs %+v", runs)
	}
}

func TestReopenKeepsRuns(t *testing.T) {
	ctx := context.Background()
	store, path := openTestStore(t)
	if err := store.Record(ctx, Run{ID: "keep", StartedAt: time.Now(), FinishedAt: time.Now(), Section: "1", Collection: "C"}, nil); err != nil {
		t.Fatalf("Record: %v", err)
	}
	_ = store.Close()

	reopened, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	runs, err := reopened.Recent(ctx, 0)
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected 1 run after reopen, got %d err %v", len(runs), err)
	}
}

func TestSchemaMismatch(t *testing.T) {
	ctx := context.Background()
	store, path := openTestStore(t)
	if _, err := store.db.ExecContext(ctx, "UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("update version: %v", err)
	}
	_ = store.Close()

	_, err := Open(ctx, path)
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}
