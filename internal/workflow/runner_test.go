package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"commentarycollection/internal/config"
	"commentarycollection/internal/discovery"
	"commentarycollection/internal/history"
	"commentarycollection/internal/notifications"
	"commentarycollection/internal/services"
	"commentarycollection/internal/services/plex"
	"commentarycollection/internal/testsupport"
)

func newClient(cfg *config.Config) *plex.Client {
	retrier := &plex.Retrier{Attempts: 3, Sleep: func(context.Context, time.Duration) error { return nil }}
	return plex.NewClient(cfg.Plex.URL, cfg.Plex.Token, plex.WithRetrier(retrier), plex.WithClientIdentifier("test"))
}

func seedLibrary(fake *testsupport.FakePlex) {
	fake.AddSection("1", "Movies", "movie")
	fake.AddSection("2", "Music", "artist")

	alien := testsupport.Movie("101", "Alien",
		testsupport.Audio("English", "eng", 6),
		testsupport.Audio("Commentary by Ridley Scott", "eng", 2),
	)
	alien.Collection = []plex.Tag{{Tag: "Sci-Fi"}}
	heat := testsupport.Movie("102", "Heat", testsupport.Audio("Director's Commentary", "eng", 2))
	heat.Collection = []plex.Tag{{Tag: "Commentary Collection"}}
	hidden := testsupport.Movie("103", "Brazil",
		testsupport.Audio("English", "eng", 6),
		testsupport.Audio("", "", 2),
	)
	plain := testsupport.Movie("104", "Amélie", testsupport.Audio("Français", "fra", 6))

	for _, md := range []plex.Metadata{alien, heat, hidden, plain} {
		fake.AddItem("1", md)
	}
}

type fakeRecorder struct {
	runs  []string
	items [][]string
}

func (f *fakeRecorder) Record(_ context.Context, run history.Run, items []history.AddedItem) error {
	f.runs = append(f.runs, run.ID)
	var ids []string
	for _, item := range items {
		ids = append(ids, item.ItemID+":"+item.Source)
	}
	f.items = append(f.items, ids)
	return nil
}

type fakeNotifier struct {
	completed []notifications.ScanResult
	failed    []error
}

func (f *fakeNotifier) NotifyScanCompleted(_ context.Context, result notifications.ScanResult) error {
	f.completed = append(f.completed, result)
	return nil
}

func (f *fakeNotifier) NotifyScanFailed(_ context.Context, _ string, err error) error {
	f.failed = append(f.failed, err)
	return nil
}

func TestRunReconcilesAndDiscovers(t *testing.T) {
	fake := testsupport.NewFakePlex(t, "test-token")
	seedLibrary(fake)
	cfg := testsupport.NewConfig(t, testsupport.WithPlexURL(fake.URL()), testsupport.WithDiscovery(false))
	store := testsupport.MustOpenHistory(t, cfg)
	decider := &discovery.ScriptedDecider{Answers: map[string]discovery.Decision{"103": discovery.DecisionAccept}}

	runner := NewRunner(cfg, newClient(cfg), nil, Options{Decider: decider, Recorder: store})
	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Listed != 4 || summary.Processed != 4 || summary.Failed() != 0 {
		t.Fatalf("unexpected counts listed=%d processed=%d failed=%d", summary.Listed, summary.Processed, summary.Failed())
	}
	if summary.Added() != 2 {
		t.Fatalf("expected 2 additions, got %d", summary.Added())
	}
	want := []testsupport.Mutation{
		{Method: "PUT", Section: "1", Type: "1", ItemID: "101", Tags: []string{"Sci-Fi", "Commentary Collection"}},
		{Method: "PUT", Section: "1", Type: "1", ItemID: "103", Tags: []string{"Commentary Collection"}},
	}
	if diff := cmp.Diff(want, fake.Mutations()); diff != "" {
		t.Fatalf("mutations mismatch (-want +got):\n%s", diff)
	}
	if fake.Preflights() != 2 {
		t.Fatalf("expected a preflight per mutation, got %d", fake.Preflights())
	}
	if diff := cmp.Diff([]string{"103"}, decider.Asked); diff != "" {
		t.Fatalf("discovery candidates mismatch (-want +got):\n%s", diff)
	}
	if summary.IgnoreFlushed {
		t.Fatal("ignore list must not be written without new ignores")
	}
	if _, err := os.Stat(cfg.Discovery.IgnorePath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no ignore file, stat err %v", err)
	}

	runs, err := store.Recent(context.Background(), 5)
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected one recorded run, got %d err %v", len(runs), err)
	}
	if runs[0].ID != summary.RunID || runs[0].Added != 2 || runs[0].Surfaced != 1 {
		t.Fatalf("unexpected history row %+v", runs[0])
	}
	items, err := store.Items(context.Background(), summary.RunID)
	if err != nil || len(items) != 2 || items[1].Source != "discovery" {
		t.Fatalf("unexpected history items %+v err %v", items, err)
	}
}

func TestSecondRunIssuesNoMutations(t *testing.T) {
	fake := testsupport.NewFakePlex(t, "test-token")
	seedLibrary(fake)
	cfg := testsupport.NewConfig(t, testsupport.WithPlexURL(fake.URL()))

	for i := 0; i < 2; i++ {
		summary, err := NewRunner(cfg, newClient(cfg), nil, Options{}).Run(context.Background())
		if err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
		if i == 1 && (summary.Added() != 0 || len(summary.Reconcile.AlreadyMember) != 2) {
			t.Fatalf("second run: added=%d members=%d", summary.Added(), len(summary.Reconcile.AlreadyMember))
		}
	}
	if got := len(fake.Mutations()); got != 1 {
		t.Fatalf("expected a single mutation across both runs, got %d", got)
	}
	if diff := cmp.Diff([]string{"Sci-Fi", "Commentary Collection"}, fake.Collections("101")); diff != "" {
		t.Fatalf("server collections mismatch (-want +got):\n%s", diff)
	}
}

func TestFailedBatchIsSkipped(t *testing.T) {
	fake := testsupport.NewFakePlex(t, "test-token")
	fake.AddSection("1", "Movies", "movie")
	for i := 1; i <= 60; i++ {
		title := fmt.Sprintf("Movie %d", i)
		fake.AddItem("1", testsupport.Movie(fmt.Sprint(i), title, testsupport.Audio("Commentary", "eng", 2)))
	}
	fake.FailMetadata("55", 3)
	cfg := testsupport.NewConfig(t, testsupport.WithPlexURL(fake.URL()))

	summary, err := NewRunner(cfg, newClient(cfg), nil, Options{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.FailedBatches != 1 || summary.FetchFailed != 10 || summary.Processed != 50 {
		t.Fatalf("unexpected counts batches=%d fetch_failed=%d processed=%d", summary.FailedBatches, summary.FetchFailed, summary.Processed)
	}
	if summary.Added() != 50 || summary.Failed() != 10 {
		t.Fatalf("expected 50 added and 10 failed, got %d and %d", summary.Added(), summary.Failed())
	}
}

func TestTransientBatchFailureRecovers(t *testing.T) {
	fake := testsupport.NewFakePlex(t, "test-token")
	seedLibrary(fake)
	fake.FailMetadata("101", 2)
	cfg := testsupport.NewConfig(t, testsupport.WithPlexURL(fake.URL()))

	summary, err := NewRunner(cfg, newClient(cfg), nil, Options{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Processed != 4 || summary.FailedBatches != 0 {
		t.Fatalf("expected recovery, processed=%d failed_batches=%d", summary.Processed, summary.FailedBatches)
	}
}

func TestAuthFailureAbortsBeforeItemWork(t *testing.T) {
	fake := testsupport.NewFakePlex(t, "right-token")
	seedLibrary(fake)
	cfg := testsupport.NewConfig(t, testsupport.WithPlexURL(fake.URL()))
	recorder := &fakeRecorder{}

	summary, err := NewRunner(cfg, newClient(cfg), nil, Options{Recorder: recorder}).Run(context.Background())
	if !errors.Is(err, services.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if !IsAbort(err) {
		t.Fatal("expected auth failure to abort the run")
	}
	if summary.Processed != 0 || len(fake.Mutations()) != 0 {
		t.Fatalf("expected no item work, processed=%d", summary.Processed)
	}
	if len(recorder.runs) != 1 {
		t.Fatalf("expected failed run to be recorded, got %d", len(recorder.runs))
	}
}

func TestUnsupportedSectionIsConfigurationError(t *testing.T) {
	fake := testsupport.NewFakePlex(t, "test-token")
	seedLibrary(fake)
	cfg := testsupport.NewConfig(t, testsupport.WithPlexURL(fake.URL()), testsupport.WithSection("2"))

	_, err := NewRunner(cfg, newClient(cfg), nil, Options{}).Run(context.Background())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestDryRunLeavesServerUntouched(t *testing.T) {
	fake := testsupport.NewFakePlex(t, "test-token")
	seedLibrary(fake)
	cfg := testsupport.NewConfig(t, testsupport.WithPlexURL(fake.URL()))

	summary, err := NewRunner(cfg, newClient(cfg), nil, Options{DryRun: true}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(fake.Mutations()) != 0 || fake.Preflights() != 0 {
		t.Fatal("dry run must not contact the mutation endpoint")
	}
	if summary.WouldAdd() != 1 || summary.Added() != 0 {
		t.Fatalf("expected one pending addition, got would_add=%d added=%d", summary.WouldAdd(), summary.Added())
	}
}

func TestIgnoredCandidatePersistsAcrossRuns(t *testing.T) {
	fake := testsupport.NewFakePlex(t, "test-token")
	seedLibrary(fake)
	cfg := testsupport.NewConfig(t, testsupport.WithPlexURL(fake.URL()), testsupport.WithDiscovery(true))

	first := &discovery.ScriptedDecider{Default: discovery.DecisionIgnore}
	summary, err := NewRunner(cfg, newClient(cfg), nil, Options{Decider: first}).Run(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if !summary.IgnoreFlushed || len(summary.Discovery.Ignored) != 1 {
		t.Fatalf("expected ignore list flush, flushed=%v ignored=%d", summary.IgnoreFlushed, len(summary.Discovery.Ignored))
	}

	second := &discovery.ScriptedDecider{Default: discovery.DecisionAccept}
	summary, err = NewRunner(cfg, newClient(cfg), nil, Options{Decider: second}).Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(second.Asked) != 0 || summary.Discovery.PreviouslyIgnored != 1 {
		t.Fatalf("expected candidate to stay ignored, asked=%v", second.Asked)
	}
	if summary.IgnoreFlushed {
		t.Fatal("unchanged ignore list must not be rewritten")
	}
}

func TestDiscoveryDisabledByOption(t *testing.T) {
	fake := testsupport.NewFakePlex(t, "test-token")
	seedLibrary(fake)
	cfg := testsupport.NewConfig(t, testsupport.WithPlexURL(fake.URL()), testsupport.WithDiscovery(false))
	off := false
	decider := &discovery.ScriptedDecider{Default: discovery.DecisionAccept}

	summary, err := NewRunner(cfg, newClient(cfg), nil, Options{Discover: &off, Decider: decider}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Discovery != nil || len(decider.Asked) != 0 {
		t.Fatal("expected discovery to be skipped")
	}
}

func TestRunNotifiesOutcome(t *testing.T) {
	fake := testsupport.NewFakePlex(t, "test-token")
	seedLibrary(fake)
	cfg := testsupport.NewConfig(t, testsupport.WithPlexURL(fake.URL()))
	notifier := &fakeNotifier{}

	if _, err := NewRunner(cfg, newClient(cfg), nil, Options{Notifier: notifier}).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []notifications.ScanResult{{Section: "Movies", Collection: "Commentary Collection", Processed: 4, Added: 1}}
	if diff := cmp.Diff(want, notifier.completed, cmpopts.IgnoreFields(notifications.ScanResult{}, "Duration")); diff != "" {
		t.Fatalf("notification mismatch (-want +got):\n%s", diff)
	}

	cfg.Plex.Token = "wrong"
	if _, err := NewRunner(cfg, newClient(cfg), nil, Options{Notifier: notifier}).Run(context.Background()); err == nil {
		t.Fatal("expected auth failure")
	}
	if len(notifier.failed) != 1 || !errors.Is(notifier.failed[0], services.ErrAuth) {
		t.Fatalf("expected one failure notification, got %v", notifier.failed)
	}
}
