package reconcile

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"commentarycollection/internal/catalog"
	"commentarycollection/internal/services"
)

type mutation struct {
	ItemID string
	Names  []string
}

type fakeMutator struct {
	calls []mutation
	fail  map[string]bool
}

func (f *fakeMutator) MutateCollections(_ context.Context, itemID string, names []string) error {
	f.calls = append(f.calls, mutation{ItemID: itemID, Names: append([]string(nil), names...)})
	if f.fail[itemID] {
		return services.Wrap(services.ErrServer, "plex", "update collections", fmt.Sprintf("item %s rejected", itemID), nil)
	}
	return nil
}

func ids(items []*catalog.Item) []string {
	var out []string
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}

func newState() *catalog.State {
	state := catalog.NewState()
	state.Add(catalog.Item{ID: "1", DisplayName: "Member", CommentaryTracks: []string{"Commentary"}, Collections: []string{"Commentary"}})
	state.Add(catalog.Item{ID: "2", DisplayName: "Curated", CommentaryTracks: []string{"Commentary"}, Collections: []string{"Favourites", "Noir"}})
	state.Add(catalog.Item{ID: "3", DisplayName: "Plain"})
	state.Add(catalog.Item{ID: "4", DisplayName: "Bare", CommentaryTracks: []string{"Cast Commentary"}})
	return state
}

func TestReconcileAddsMissingItemsWithSupersetTags(t *testing.T) {
	mutator := &fakeMutator{}
	state := newState()

	result := New(mutator).Reconcile(context.Background(), state, "Commentary")

	want := []mutation{
		{ItemID: "2", Names: []string{"Favourites", "Noir", "Commentary"}},
		{ItemID: "4", Names: []string{"Commentary"}},
	}
	if diff := cmp.Diff(want, mutator.calls); diff != "" {
		t.Fatalf("mutations mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"1"}, ids(result.AlreadyMember)); diff != "" {
		t.Fatalf("members mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"2", "4"}, ids(result.Added)); diff != "" {
		t.Fatalf("added mismatch (-want +got):\n%s", diff)
	}
	item, _ := state.Get("2")
	if diff := cmp.Diff([]string{"Favourites", "Noir", "Commentary"}, item.Collections); diff != "" {
		t.Fatalf("collections not updated in place (-want +got):\n%s", diff)
	}
}

func TestReconcileIsIdempotentAcrossRuns(t *testing.T) {
	mutator := &fakeMutator{}
	state := newState()

	New(mutator).Reconcile(context.Background(), state, "Commentary")
	first := len(mutator.calls)
	second := New(mutator).Reconcile(context.Background(), state, "Commentary")

	if len(mutator.calls) != first {
		t.Fatalf("expected no new mutations, got %d", len(mutator.calls)-first)
	}
	if diff := cmp.Diff([]string{"1", "2", "4"}, ids(second.AlreadyMember)); diff != "" {
		t.Fatalf("members mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcileFailureLeavesStateUnchanged(t *testing.T) {
	mutator := &fakeMutator{fail: map[string]bool{"4": true}}
	state := newState()

	result := New(mutator).Reconcile(context.Background(), state, "Commentary")

	if diff := cmp.Diff([]string{"4"}, ids(result.Failed)); diff != "" {
		t.Fatalf("failed mismatch (-want +got):\n%s", diff)
	}
	item, _ := state.Get("4")
	if item.InCollection("Commentary") {
		t.Fatal("failed item must not be marked as a member")
	}
}

func TestAddItemsAttemptsEachItemOnce(t *testing.T) {
	mutator := &fakeMutator{fail: map[string]bool{"4": true}}
	state := newState()
	reconciler := New(mutator)

	reconciler.Reconcile(context.Background(), state, "Commentary")
	item, _ := state.Get("4")
	again := reconciler.AddItems(context.Background(), []*catalog.Item{item}, "Commentary")

	if len(mutator.calls) != 2 {
		t.Fatalf("expected 2 mutations in total, got %d", len(mutator.calls))
	}
	if len(again.Failed)+len(again.Added) != 0 {
		t.Fatalf("expected second attempt to be suppressed, got %+v", again)
	}
}

func TestDryRunDoesNotMutate(t *testing.T) {
	mutator := &fakeMutator{}
	state := newState()

	result := New(mutator, WithDryRun(true)).Reconcile(context.Background(), state, "Commentary")

	if len(mutator.calls) != 0 {
		t.Fatalf("expected no mutations, got %d", len(mutator.calls))
	}
	if diff := cmp.Diff([]string{"2", "4"}, ids(result.WouldAdd)); diff != "" {
		t.Fatalf("would-add mismatch (-want +got):\n%s", diff)
	}
	item, _ := state.Get("2")
	if item.InCollection("Commentary") {
		t.Fatal("dry run must not touch collections")
	}
}

func TestResultMerge(t *testing.T) {
	a := Result{Added: []*catalog.Item{{ID: "1"}}}
	a.Merge(Result{Added: []*catalog.Item{{ID: "2"}}, Failed: []*catalog.Item{{ID: "3"}}})
	if diff := cmp.Diff([]string{"1", "2"}, ids(a.Added)); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
	if len(a.Failed) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(a.Failed))
	}
}
